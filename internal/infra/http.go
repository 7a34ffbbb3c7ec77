package infra

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"
)

// HTTPStatusError represents an error due to a non-200 HTTP status code.
type HTTPStatusError struct {
	URL        string
	StatusCode int
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("GET %s: status %d %s", e.URL, e.StatusCode, http.StatusText(e.StatusCode))
}

// Retryable reports whether the status is worth another attempt.
func (e *HTTPStatusError) Retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// ClientOptions holds options for creating a new Client.
type ClientOptions struct {
	Timeout         time.Duration
	RequestsPerSec  float64
	MaxRetryElapsed time.Duration
	BreakerFailures uint32
	UserAgent       string
}

// Client is a rate-limited HTTP client with exponential-backoff retries and a
// circuit breaker per upstream host.
type Client struct {
	http    *http.Client
	limiter *rate.Limiter
	opts    ClientOptions

	mu       sync.Mutex
	breakers map[string]*gobreaker.CircuitBreaker
}

// NewClient creates a new HTTP client, filling unset options with defaults.
func NewClient(opts ClientOptions) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.RequestsPerSec <= 0 {
		opts.RequestsPerSec = 2
	}
	if opts.MaxRetryElapsed <= 0 {
		opts.MaxRetryElapsed = 30 * time.Second
	}
	if opts.BreakerFailures == 0 {
		opts.BreakerFailures = 3
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "Mozilla/5.0 (compatible; regimefolio/1.0)"
	}
	return &Client{
		http:     &http.Client{Timeout: opts.Timeout},
		limiter:  rate.NewLimiter(rate.Limit(opts.RequestsPerSec), 1),
		opts:     opts,
		breakers: make(map[string]*gobreaker.CircuitBreaker),
	}
}

func (c *Client) breaker(host string) *gobreaker.CircuitBreaker {
	c.mu.Lock()
	defer c.mu.Unlock()
	if b, ok := c.breakers[host]; ok {
		return b
	}
	threshold := c.opts.BreakerFailures
	b := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    host,
		Timeout: 60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().Str("component", "http").Str("host", name).
				Str("from", from.String()).Str("to", to.String()).
				Msg("circuit breaker state change")
		},
	})
	c.breakers[host] = b
	return b
}

// Get performs a GET request and returns the full body of a 200 response.
// Transient failures (network errors, 429, 5xx) are retried with
// exponential backoff; other statuses fail immediately.
func (c *Client) Get(ctx context.Context, rawURL string, headers map[string]string) ([]byte, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse url: %w", err)
	}

	out, err := c.breaker(u.Host).Execute(func() (interface{}, error) {
		return c.getWithRetry(ctx, rawURL, headers)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) {
			return nil, fmt.Errorf("%s unavailable: %w", u.Host, err)
		}
		return nil, err
	}
	return out.([]byte), nil
}

func (c *Client) getWithRetry(ctx context.Context, rawURL string, headers map[string]string) ([]byte, error) {
	var body []byte
	operation := func() error {
		if err := c.limiter.Wait(ctx); err != nil {
			return backoff.Permanent(err)
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("creating request: %w", err))
		}
		req.Header.Set("User-Agent", c.opts.UserAgent)
		for k, v := range headers {
			req.Header.Set(k, v)
		}

		resp, err := c.http.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(ctx.Err())
			}
			return fmt.Errorf("HTTP request failed: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			_, _ = io.Copy(io.Discard, resp.Body)
			statusErr := &HTTPStatusError{URL: redact(req.URL), StatusCode: resp.StatusCode}
			if statusErr.Retryable() {
				return statusErr
			}
			return backoff.Permanent(statusErr)
		}

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("read response: %w", err)
		}
		body = data
		return nil
	}

	strategy := backoff.NewExponentialBackOff()
	strategy.MaxElapsedTime = c.opts.MaxRetryElapsed

	notify := func(err error, wait time.Duration) {
		log.Warn().Str("component", "http").Err(err).Dur("retry_in", wait).Msg("request failed, retrying")
	}
	if err := backoff.RetryNotify(operation, backoff.WithContext(strategy, ctx), notify); err != nil {
		return nil, err
	}
	return body, nil
}

// redact strips credentials from a URL before it reaches logs or errors.
func redact(u *url.URL) string {
	cp := *u
	q := cp.Query()
	if q.Has("api_key") {
		q.Set("api_key", "***")
		cp.RawQuery = q.Encode()
	}
	return cp.String()
}
