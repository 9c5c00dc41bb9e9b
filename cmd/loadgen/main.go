package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/okian/cinerank/internal/loadgen"
)

// Default configuration constants.
const (
	defaultNumEvents  = 5000
	defaultUsers      = 200
	defaultDuplicates = 0.05
	defaultTopN       = 10
	defaultWorkers    = 2 // multiplier for runtime.NumCPU()
	defaultTimeout    = 10 * time.Second
	defaultWait       = 30 * time.Second
	defaultRunTimeout = 10 * time.Minute
)

func main() {
	var (
		baseURL    = flag.String("url", "http://localhost:5001", "Base URL of the service")
		numEvents  = flag.Int("events", defaultNumEvents, "Number of rating events to submit")
		users      = flag.Int("users", defaultUsers, "Number of synthetic users")
		duplicates = flag.Float64("duplicates", defaultDuplicates, "Fraction of events replaying an earlier event id")
		topN       = flag.Int("top", defaultTopN, "Recommendations requested per user")
		workers    = flag.Int("workers", runtime.NumCPU()*defaultWorkers, "Number of concurrent workers")
		timeout    = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		wait       = flag.Duration("wait", defaultWait, "How long to wait for ratings to apply")
		outputFile = flag.String("output", "", "Write generated events to this JSON file")
		logFile    = flag.String("log", "", "Log file (default: loadgen_TIMESTAMP.log)")
		verbose    = flag.Bool("verbose", false, "Enable verbose logging")
		help       = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		loadgen.ShowHelp()
		return
	}

	closer, err := loadgen.SetupLogging(*logFile, *verbose)
	if err != nil {
		os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() { _ = closer.Close() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, defaultRunTimeout)
	defer cancel()

	config := &loadgen.Config{
		BaseURL:        *baseURL,
		NumEvents:      *numEvents,
		Users:          *users,
		DuplicateRatio: *duplicates,
		TopN:           *topN,
		Workers:        max(*workers, 1),
		Timeout:        *timeout,
		WaitTimeout:    *wait,
		OutputFile:     *outputFile,
		LogFile:        *logFile,
		Verbose:        *verbose,
	}

	if _, err := loadgen.Run(ctx, config); err != nil {
		os.Stderr.WriteString("Load run failed: " + err.Error() + "\n")
		os.Exit(1) //nolint:gocritic // exitAfterDefer: run already finished
	}
}
