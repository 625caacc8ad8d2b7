// Package backends provides HTTP clients for the structured membership and
// visibility data sources. Each client wraps its host in a circuit breaker
// so a struggling backend is skipped quickly on subsequent evaluations, and
// retries transient failures a bounded number of times per call.
package backends

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/avast/retry-go/v5"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// NotFoundError marks a well-formed "no such entity" answer. Never retried,
// never trips the breaker open by itself.
type NotFoundError struct {
	Path string
}

func (e *NotFoundError) Error() string {
	return "not found: " + e.Path
}

type restClient struct {
	base    string
	http    *http.Client
	breaker *gobreaker.CircuitBreaker
	retries uint
	log     *zap.Logger
}

func newRestClient(name, base string, timeout time.Duration, retries uint, log *zap.Logger) *restClient {
	if log == nil {
		log = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 3,
		Interval:    30 * time.Second,
		Timeout:     60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 5
		},
		// A clean "no such entity" is a healthy backend answering.
		IsSuccessful: func(err error) bool {
			var nf *NotFoundError
			return err == nil || errors.As(err, &nf)
		},
	})
	return &restClient{
		base:    strings.TrimRight(base, "/"),
		http:    &http.Client{Timeout: timeout},
		breaker: cb,
		retries: retries,
		log:     log,
	}
}

// getJSON fetches base+path and decodes the JSON body into out. Transient
// failures (network errors, 5xx, 429) are retried; 404 maps to
// *NotFoundError and returns immediately.
func (c *restClient) getJSON(ctx context.Context, path string, out any) error {
	_, err := c.breaker.Execute(func() (any, error) {
		r := retry.New(
			retry.Context(ctx),
			retry.Attempts(c.retries+1),
			retry.LastErrorOnly(true),
		)
		return nil, r.Do(func() error {
			return c.fetch(ctx, path, out)
		})
	})
	return err
}

func (c *restClient) fetch(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+path, nil)
	if err != nil {
		return retry.Unrecoverable(fmt.Errorf("build request: %w", err))
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request %s: %w", path, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return retry.Unrecoverable(&NotFoundError{Path: path})
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		io.Copy(io.Discard, resp.Body)
		return fmt.Errorf("request %s: status %d", path, resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return retry.Unrecoverable(fmt.Errorf("request %s: status %d", path, resp.StatusCode))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return retry.Unrecoverable(fmt.Errorf("decode %s: %w", path, err))
	}
	return nil
}

func escape(s string) string {
	return url.PathEscape(s)
}
