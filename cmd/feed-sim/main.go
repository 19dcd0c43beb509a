package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/okian/linewatch/internal/feedsim"
	"github.com/okian/linewatch/pkg/logger"
)

// Default configuration constants.
const (
	defaultSlowEvery       = 7
	defaultIrrelevantEvery = 11
	defaultRunTimeout      = 10 * time.Minute
)

func main() {
	var (
		baseURL         = flag.String("url", "http://localhost:9080", "Base URL of the service")
		readings        = flag.Int("readings", feedsim.DefaultReadings, "Number of readings to submit")
		interval        = flag.Duration("interval", feedsim.DefaultInterval, "Gap between simulated photos")
		meanRate        = flag.Int64("rate", feedsim.DefaultMeanRate, "Units per minute on a normal step")
		slowEvery       = flag.Int("slow-every", defaultSlowEvery, "Every n-th step runs below the threshold, 0 disables")
		irrelevantEvery = flag.Int("irrelevant-every", defaultIrrelevantEvery, "Every n-th entry is not a counter photo, 0 disables")
		window          = flag.Duration("window", feedsim.DefaultWindow, "Rate window configured on the server")
		workers         = flag.Int("workers", feedsim.DefaultWorkers, "Concurrent verification requests")
		seed            = flag.Uint64("seed", 1, "Seed for the step generator")
		timeout         = flag.Duration("timeout", feedsim.DefaultTimeout, "HTTP request timeout")
		outputFile      = flag.String("output", "", "Write the planned feed to this JSON file")
		logFile         = flag.String("log", "", "Log file (default: feedsim_TIMESTAMP.log)")
		verbose         = flag.Bool("verbose", false, "Log every submitted reading")
		help            = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		feedsim.ShowHelp()
		return
	}

	closer, err := feedsim.SetupLogging(*logFile, *verbose)
	if err != nil {
		os.Stderr.WriteString("failed to set up logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() { _ = closer.Close() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, defaultRunTimeout)
	defer cancel()

	cfg := &feedsim.Config{
		BaseURL:         *baseURL,
		Readings:        *readings,
		Interval:        *interval,
		MeanRate:        *meanRate,
		SlowEvery:       *slowEvery,
		IrrelevantEvery: *irrelevantEvery,
		Window:          *window,
		Workers:         *workers,
		Timeout:         *timeout,
		Seed:            *seed,
		OutputFile:      *outputFile,
		LogFile:         *logFile,
		Verbose:         *verbose,
	}
	if _, err := feedsim.Run(ctx, cfg); err != nil {
		logger.Get().Error(ctx, "simulation failed", logger.Error(err))
		cancel()
		stop()
		_ = closer.Close()
		os.Exit(1)
	}
}
