package loadgen

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/okian/cinerank/pkg/logger"
)

const logFilePermission = 0600

// SetupLogging initialises the logger to write to stdout and a log file.
// An empty logFile gets a timestamped name. The returned closer flushes
// and closes the file.
func SetupLogging(logFile string, verbose bool) (io.Closer, error) {
	if logFile == "" {
		logFile = "loadgen_" + time.Now().Format("20060102_150405") + ".log"
	}

	file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, logFilePermission)
	if err != nil {
		return nil, fmt.Errorf("failed to create log file: %w", err)
	}
	if err := logger.Init(logger.WithOutput(io.MultiWriter(os.Stdout, file))); err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	if verbose {
		_ = logger.SetLevelString("debug")
	}
	return file, nil
}

// ShowHelp prints usage information for the load generator.
func ShowHelp() {
	os.Stdout.WriteString(`CineRank Load Generator
=======================

Submits synthetic ratings to a running CineRank server, waits for them to
apply, then fetches recommendations for every synthetic user and checks
that each list is ordered, bounded and free of already rated movies.

Usage:
  go run ./cmd/loadgen [options]

Options:
  -url string
        Base URL of the service (default "http://localhost:5001")
  -events int
        Number of rating events to submit (default 5000)
  -users int
        Number of synthetic users (default 200)
  -duplicates float
        Fraction of events replaying an earlier event id (default 0.05)
  -top int
        Recommendations requested per user (default 10)
  -workers int
        Number of concurrent workers (default CPU cores * 2)
  -timeout duration
        HTTP request timeout (default 10s)
  -wait duration
        How long to wait for ratings to apply (default 30s)
  -output string
        Write generated events to this JSON file
  -log string
        Log file (default: loadgen_TIMESTAMP.log)
  -verbose
        Enable verbose logging
  -help
        Show this help message

Examples:
  go run ./cmd/loadgen -events 20000 -users 1000 -workers 16
  go run ./cmd/loadgen -url http://localhost:8080 -output events.json
`)
}
