package testevents

import (
	"fmt"
	"io"
	"os"

	"github.com/okian/pixelrelay/pkg/logger"
)

const logFilePermission = 0600

// SetupLogging sends log output to stdout and, when logFile is set, to that
// file as well.
func SetupLogging(logFile string) error {
	var w io.Writer = os.Stdout
	if logFile != "" {
		file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, logFilePermission)
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}
		w = io.MultiWriter(os.Stdout, file)
	}
	return logger.InitWithWriter(w)
}

// ShowHelp prints usage information for the event tool.
func ShowHelp() {
	_, _ = os.Stdout.WriteString(`pixelrelay event tool
=====================

Generates synthetic storefront events and posts them to a running relay.

Usage:
  go run ./cmd/test-events [options]

Options:
  -url string
        Base URL of the relay (default "http://localhost:9080")
  -events int
        Number of events to generate and submit (default 1000)
  -workers int
        Number of concurrent submitters (default CPU cores * 2)
  -duplicates float
        Share of events resent with an already used id (default 0.05)
  -timeout duration
        HTTP request timeout (default 10s)
  -output string
        Write generated events to this JSON file
  -log string
        Also write logs to this file
  -verbose
        Log progress while submitting
  -help
        Show this help message

Examples:
  go run ./cmd/test-events -events 5000 -workers 16
  go run ./cmd/test-events -duplicates 0.2 -output events.json
`)
}
