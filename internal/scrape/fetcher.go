// Package scrape fetches per-instrument pages from the exchange and parses
// them into normalized bond records.
package scrape

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"motcli/internal/config"
	apperrors "motcli/internal/errors"
)

// Client performs rate-limited HTTP fetches against the exchange with a
// bounded retry policy. It is safe for concurrent use by the worker pool:
// the underlying http.Client and rate limiter are both concurrency-safe
// and nothing else is mutated after construction.
type Client struct {
	cfg     config.ScrapeConfig
	http    *http.Client
	limiter *rate.Limiter
	logger  *slog.Logger
}

// NewClient builds a fetch client from configuration.
func NewClient(cfg config.ScrapeConfig, logger *slog.Logger) *Client {
	return &Client{
		cfg:     cfg,
		http:    &http.Client{},
		limiter: rate.NewLimiter(rate.Limit(cfg.RatePerSecond), cfg.RateBurst),
		logger:  logger,
	}
}

// FetchPage retrieves the instrument page HTML for one ISIN.
func (c *Client) FetchPage(ctx context.Context, isin string) (string, error) {
	url := c.cfg.PageURL + isin + ".html"
	body, err := c.doWithRetry(ctx, isin, c.cfg.PageTimeout, func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("User-Agent", c.cfg.UserAgent)
		req.Header.Set("Accept-Language", "it,en;q=0.9")
		return req, nil
	})
	if err != nil {
		return "", err
	}
	return string(body), nil
}

// doWithRetry runs one request attempt per retry budget slot. Transient
// failures (network errors, 5xx, 429) are retried after a delay; any other
// non-200 status is permanent. Context cancellation is surfaced as the
// context error so the pipeline can tell a cancelled run from a skip.
func (c *Client) doWithRetry(ctx context.Context, isin string, timeout time.Duration, build func(context.Context) (*http.Request, error)) ([]byte, error) {
	var lastErr error

	for attempt := 1; attempt <= c.cfg.Retries; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			// Wait also fails when the context is still alive but its
			// deadline falls before the next token; that is a fetch
			// failure, not a cancellation.
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, apperrors.FetchFailed(isin, "rate limiter rejected the wait", err)
		}

		body, retryable, err := c.doOnce(ctx, timeout, build)
		if err == nil {
			return body, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		lastErr = err

		if !retryable {
			return nil, apperrors.FetchFailed(isin, "permanent fetch failure", err)
		}

		c.logger.DebugContext(ctx, "fetch attempt failed",
			slog.String("isin", isin),
			slog.Int("attempt", attempt),
			slog.String("error", err.Error()))

		if attempt < c.cfg.Retries {
			select {
			case <-time.After(c.cfg.RetryDelay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
	}

	return nil, apperrors.FetchFailed(isin,
		fmt.Sprintf("retries exhausted after %d attempts", c.cfg.Retries), lastErr)
}

// doOnce performs a single attempt under its own timeout. The second
// return value reports whether the failure is worth retrying.
func (c *Client) doOnce(ctx context.Context, timeout time.Duration, build func(context.Context) (*http.Request, error)) ([]byte, bool, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := build(attemptCtx)
	if err != nil {
		return nil, false, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		// Network errors and timeouts are transient.
		return nil, true, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		retryable := resp.StatusCode >= http.StatusInternalServerError ||
			resp.StatusCode == http.StatusTooManyRequests
		return nil, retryable, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, true, err
	}
	return body, false, nil
}
