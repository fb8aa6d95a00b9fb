package main

import (
	"context"
	"flag"
	"os"
	"runtime"
	"time"

	"github.com/okian/pixelrelay/internal/testevents"
)

const (
	defaultNumEvents      = 1000
	defaultWorkers        = 2 // multiplier for runtime.NumCPU()
	defaultTimeout        = 10 * time.Second
	defaultDuplicateRatio = 0.05
	defaultRunTimeout     = 10 * time.Minute
)

func main() {
	var (
		baseURL    = flag.String("url", "http://localhost:9080", "Base URL of the relay")
		numEvents  = flag.Int("events", defaultNumEvents, "Number of events to generate and submit")
		workers    = flag.Int("workers", runtime.NumCPU()*defaultWorkers, "Number of concurrent submitters")
		duplicates = flag.Float64("duplicates", defaultDuplicateRatio, "Share of events resent with an already used id")
		timeout    = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		outputFile = flag.String("output", "", "Write generated events to this JSON file")
		logFile    = flag.String("log", "", "Also write logs to this file")
		verbose    = flag.Bool("verbose", false, "Log progress while submitting")
		help       = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		testevents.ShowHelp()
		return
	}

	if err := testevents.SetupLogging(*logFile); err != nil {
		_, _ = os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultRunTimeout)
	defer cancel()

	config := &testevents.Config{
		BaseURL:        *baseURL,
		NumEvents:      *numEvents,
		Workers:        *workers,
		Timeout:        *timeout,
		DuplicateRatio: *duplicates,
		OutputFile:     *outputFile,
		LogFile:        *logFile,
		Verbose:        *verbose,
	}

	stats, err := testevents.Run(ctx, config)
	if err != nil {
		_, _ = os.Stderr.WriteString("Run failed: " + err.Error() + "\n")
		os.Exit(1)
	}
	if stats.Failed > 0 {
		os.Exit(2)
	}
}
