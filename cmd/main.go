package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/okian/linewatch/internal/adapters/http/api"
	"github.com/okian/linewatch/internal/adapters/http/site"
	"github.com/okian/linewatch/internal/adapters/http/swagger"
	"github.com/okian/linewatch/internal/adapters/imageprep"
	"github.com/okian/linewatch/internal/adapters/ocr"
	"github.com/okian/linewatch/internal/adapters/repository"
	app "github.com/okian/linewatch/internal/app"
	"github.com/okian/linewatch/internal/config"
	"github.com/okian/linewatch/internal/domain/model"
	"github.com/okian/linewatch/internal/domain/rate"
	"github.com/okian/linewatch/pkg/logger"
	"github.com/okian/linewatch/pkg/metrics"
)

// HTTP server timeout constants.
const (
	readTimeout       = 30 * time.Second
	idleTimeout       = 60 * time.Second
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 30 * time.Second
	// writeSlack is added to the recognizer timeout so a slow model call can
	// still be answered.
	writeSlack = 15 * time.Second
)

func main() {
	// Initialize logging
	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}

	if err := logger.SetFormat(cfg.LogFormat); err != nil {
		os.Stderr.WriteString("invalid log_format: " + err.Error() + "\n")
	}
	loggerInstance := logger.Get()
	// Apply configured log level (fallback to info on invalid input)
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		loggerInstance.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	if err := run(ctx, cfg, loggerInstance); err != nil {
		loggerInstance.Error(ctx, "server failed", logger.Error(err))
		os.Exit(1)
	}
}

// run serves HTTP until ctx is cancelled.
func run(ctx context.Context, cfg *config.Config, l logger.Logger) error {
	metrics.Configure(metricsOptions(cfg)...)

	svc, err := newService(cfg, l)
	if err != nil {
		return err
	}

	go func() {
		if err := metrics.RunRuntimeCollector(ctx); err != nil && !errors.Is(err, metrics.ErrDisabled) {
			l.Warn(ctx, "runtime metrics stopped", logger.Error(err))
		}
	}()

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           newMux(ctx, cfg, svc),
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout(cfg),
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		l.Info(ctx, "starting HTTP server",
			logger.String("addr", cfg.Addr),
			logger.String("schema", cfg.Schema),
			logger.String("mode", cfg.Mode))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen %s: %w", cfg.Addr, err)
		}
	case <-ctx.Done():
	}
	l.Info(ctx, "shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		l.Error(ctx, "server shutdown failed", logger.Error(err))
	}
	l.Info(ctx, "server stopped")
	return nil
}

// newService assembles the reading log, image pipeline and recognizer. An
// unavailable recognizer is logged and leaves manual entry working.
// metricsOptions maps config onto the metrics manager.
func metricsOptions(cfg *config.Config) []metrics.Option {
	return []metrics.Option{
		metrics.WithMetricsEnabled(cfg.MetricsEnabled),
		metrics.WithNamespace(cfg.MetricsNamespace),
		metrics.WithSubsystem(cfg.MetricsSubsystem),
		metrics.WithRefreshInterval(cfg.MetricsRefresh()),
		metrics.WithCustomLabels(cfg.MetricsLabels),
	}
}

// writeTimeout leaves room for one recognizer round trip. An unbounded
// recognizer gets an unbounded write.
func writeTimeout(cfg *config.Config) time.Duration {
	if cfg.RecognizerTimeout() == 0 {
		return 0
	}
	return cfg.RecognizerTimeout() + writeSlack
}

func newService(cfg *config.Config, l logger.Logger) (*app.Service, error) {
	schema, err := model.SchemaByName(cfg.Schema)
	if err != nil {
		return nil, fmt.Errorf("schema: %w", err)
	}
	if threshold, ok := cfg.Threshold(schema.Name); ok {
		schema.NormalThreshold = threshold
	}

	calc := rate.NewCalculator(
		rate.WithThreshold(schema.NormalThreshold),
		rate.WithWindow(cfg.RateWindow()),
	)
	log := repository.NewMemoryLog(schema,
		repository.WithCalculator(calc),
		repository.WithLogger(l.Named("log")),
	)

	opts := []app.Option{
		app.WithLogger(l.Named("service")),
		app.WithSchema(schema),
		app.WithMode(cfg.Mode),
		app.WithLog(log),
		app.WithPreparer(imageprep.New(
			imageprep.WithMaxBytes(cfg.MaxImageBytes),
			imageprep.WithMaxDimension(cfg.MaxImageDimension),
			imageprep.WithQuality(cfg.JPEGQuality),
		)),
		app.WithThumbnailCache(imageprep.NewThumbnailCache(cfg.ImageCacheSize)),
	}

	recognizer, err := ocr.Open(ocr.Settings{
		Backend:  cfg.Recognizer,
		APIKey:   cfg.GeminiAPIKey,
		Model:    cfg.GeminiModel,
		Endpoint: cfg.GeminiEndpoint,
		ProxyURL: cfg.ProxyURL,
		Language: cfg.TesseractLanguage,
		Timeout:  cfg.RecognizerTimeout(),
	}, l.Named("ocr"))
	if err != nil {
		l.Warn(context.Background(), "recognizer unavailable; only manual entry will work",
			logger.String("recognizer", cfg.Recognizer), logger.Error(err))
	} else {
		opts = append(opts, app.WithRecognizer(recognizer))
	}
	return app.New(opts...), nil
}

// newMux registers every route. The capture page owns "/".
func newMux(ctx context.Context, cfg *config.Config, svc *app.Service) *http.ServeMux {
	mux := http.NewServeMux()
	swagger.Register(ctx, mux)
	api.NewServer(svc,
		api.WithTimezoneOffset(cfg.TimezoneOffsetMinutes),
		// base64 adds a third; leave room for the JSON envelope
		api.WithMaxBodyBytes(int64(cfg.MaxImageBytes)*4/3+64<<10),
		api.WithLogger(logger.Get().Named("api")),
	).Register(ctx, mux)
	site.Register(ctx, mux)
	return mux
}
