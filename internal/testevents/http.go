package testevents

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/pixelrelay/internal/domain/storefront"
	"github.com/okian/pixelrelay/pkg/logger"
)

// Submission results.
const (
	resultEmitted      = "emitted"
	resultSuppressed   = "suppressed"
	resultUnregistered = "unregistered"
	resultDuplicate    = "duplicate"
	resultFailed       = "failed"
)

// HTTPClient wraps http.Client with a per-request timeout.
type HTTPClient struct {
	client *http.Client
}

func newHTTPClient(timeout time.Duration) *HTTPClient {
	return &HTTPClient{client: &http.Client{Timeout: timeout}}
}

// Get performs a GET request.
func (c *HTTPClient) Get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	return c.client.Do(req)
}

// Post performs a POST request with a JSON body.
func (c *HTTPClient) Post(ctx context.Context, url string, body any) (*http.Response, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.client.Do(req)
}

// submitEvents posts events concurrently and tallies the relay's answers.
func submitEvents(ctx context.Context, config *Config, events []storefront.Event, stats *Stats) error {
	log := logger.Get().Named("submit")
	log.Info(ctx, "submitting events", logger.Int("events", len(events)), logger.Int("workers", config.Workers))

	client := newHTTPClient(config.Timeout)
	url := config.BaseURL + "/events"

	var submitted int64
	counts := map[string]*int64{
		resultEmitted:      new(int64),
		resultSuppressed:   new(int64),
		resultUnregistered: new(int64),
		resultDuplicate:    new(int64),
		resultFailed:       new(int64),
	}

	workers := config.Workers
	if workers < 1 {
		workers = 1
	}
	eventChan := make(chan storefront.Event, workers*2)
	var wg sync.WaitGroup

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for event := range eventChan {
				result := submitSingleEvent(ctx, client, url, event)
				atomic.AddInt64(counts[result], 1)
				n := atomic.AddInt64(&submitted, 1)
				if config.Verbose && n%1000 == 0 {
					log.Info(ctx, "progress", logger.Int("submitted", int(n)), logger.Int("total", len(events)))
				}
			}
		}()
	}

	go func() {
		defer close(eventChan)
		for _, event := range events {
			select {
			case <-ctx.Done():
				return
			case eventChan <- event:
			}
		}
	}()

	wg.Wait()

	stats.EventsSubmitted = int(atomic.LoadInt64(&submitted))
	stats.Emitted = int(atomic.LoadInt64(counts[resultEmitted]))
	stats.Suppressed = int(atomic.LoadInt64(counts[resultSuppressed]))
	stats.Unregistered = int(atomic.LoadInt64(counts[resultUnregistered]))
	stats.Duplicate = int(atomic.LoadInt64(counts[resultDuplicate]))
	stats.Failed = int(atomic.LoadInt64(counts[resultFailed]))

	log.Info(ctx, "event submission completed",
		logger.Int("emitted", stats.Emitted),
		logger.Int("suppressed", stats.Suppressed),
		logger.Int("unregistered", stats.Unregistered),
		logger.Int("duplicate", stats.Duplicate),
		logger.Int("failed", stats.Failed))
	return ctx.Err()
}

// submitSingleEvent posts one event and classifies the response.
func submitSingleEvent(ctx context.Context, client *HTTPClient, url string, event storefront.Event) string {
	resp, err := client.Post(ctx, url, event)
	if err != nil {
		return resultFailed
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resultFailed
	}

	var ack AckResponse
	_ = json.Unmarshal(body, &ack)

	switch resp.StatusCode {
	case StatusAccepted:
		switch ack.Outcome {
		case resultSuppressed, resultUnregistered:
			return ack.Outcome
		default:
			return resultEmitted
		}
	case StatusOK:
		return resultDuplicate
	default:
		return resultFailed
	}
}
