package workflow

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

type WaitForConfig struct {
	URL      string
	Status   int
	Timeout  time.Duration
	Interval time.Duration
}

// waitForService polls a URL until it returns the expected status code or times out
func (r *Runner) waitForService(ctx context.Context, cfg *WaitForConfig) error {
	status := cfg.Status
	if status == 0 {
		status = http.StatusOK
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	interval := cfg.Interval
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}

	if r.config.Verbose {
		fmt.Printf("Waiting for %s to return %d (timeout: %v, interval: %v)\n",
			cfg.URL, status, timeout, interval)
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	client := &http.Client{
		Timeout: 5 * time.Second, // Per-request timeout
	}

	var lastErr error
	var lastStatus int

	for {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, cfg.URL, nil)
		if err != nil {
			return fmt.Errorf("wait-for URL %q: %w", cfg.URL, err)
		}

		resp, err := client.Do(req)
		if err != nil {
			if ctx.Err() == nil {
				lastErr = err
			}
		} else {
			lastErr = nil
			lastStatus = resp.StatusCode
			resp.Body.Close()
			if resp.StatusCode == status {
				if r.config.Verbose {
					fmt.Printf("Service %s is ready (status: %d)\n", cfg.URL, resp.StatusCode)
				}
				return nil
			}
		}

		select {
		case <-ctx.Done():
			if lastErr != nil {
				return &NetworkError{Err: fmt.Errorf("service %s not ready after %v: %w", cfg.URL, timeout, lastErr)}
			}
			return fmt.Errorf("service %s not ready after %v: got status %d, expected %d",
				cfg.URL, timeout, lastStatus, status)
		case <-time.After(interval):
		}
	}
}
