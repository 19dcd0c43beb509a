package feedsim

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/okian/linewatch/pkg/logger"
)

// SetupLogging sends log output to both the console and a file.
// If logFile is empty, a timestamped filename is generated.
func SetupLogging(logFile string, verbose bool) (io.Closer, error) {
	if err := logger.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	if verbose {
		_ = logger.SetLevelString("debug")
	}

	if logFile == "" {
		logFile = "feedsim_" + time.Now().Format("20060102_150405") + ".log"
	}
	file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, filePermission)
	if err != nil {
		return nil, fmt.Errorf("failed to create log file: %w", err)
	}
	if err := logger.SetOutput(io.MultiWriter(os.Stdout, file)); err != nil {
		_ = file.Close()
		return nil, err
	}
	logger.Get().Info(context.Background(), "logging to file", logger.String("logFile", logFile))
	return file, nil
}

// ShowHelp prints usage information for the feed simulator.
func ShowHelp() {
	os.Stdout.WriteString(`linewatch feed simulator
========================

Posts a synthetic counter feed to a running server as manual readings and
checks that every derived rate and status matches a local derivation.

Usage:
  go run ./cmd/feed-sim [options]

Options:
  -url string
        Base URL of the service (default "http://localhost:9080")
  -readings int
        Number of readings to submit (default 48)
  -interval duration
        Gap between simulated photos (default 5m)
  -rate int
        Units per minute on a normal step (default 80)
  -slow-every int
        Every n-th step runs below the threshold, 0 disables (default 7)
  -irrelevant-every int
        Every n-th entry is not a counter photo, 0 disables (default 11)
  -window duration
        Rate window configured on the server (default 1h)
  -workers int
        Concurrent verification requests (default 4)
  -seed uint
        Seed for the step generator (default 1)
  -timeout duration
        HTTP request timeout (default 30s)
  -output string
        Write the planned feed to this JSON file
  -log string
        Log file (default: feedsim_TIMESTAMP.log)
  -verbose
        Log every submitted reading
  -help
        Show this help message
`)
}
