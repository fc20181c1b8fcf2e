// Package httpclient is the shared outbound HTTP client for the geocoding,
// sun-times and weather lookups. Every request is bounded by a short timeout
// and passes through a process-wide rate limiter.
package httpclient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/tidwall/gjson"
	"golang.org/x/time/rate"
)

const (
	userAgent    = "gammad/1.0 (+https://github.com/saaga0h/gammad)"
	maxBodyBytes = 1 << 20
)

var (
	// ErrStatus is returned for any non-2xx response
	ErrStatus = errors.New("unexpected HTTP status")

	// ErrInvalidJSON is returned when the body is not valid JSON
	ErrInvalidJSON = errors.New("invalid JSON response")
)

// Client fetches JSON documents from external services
type Client struct {
	httpClient *http.Client
	limiter    *rate.Limiter
}

// New creates a Client with the given timeout and request rate.
// A non-positive ratePerSec disables limiting.
func New(timeout time.Duration, ratePerSec float64) *Client {
	limiter := rate.NewLimiter(rate.Inf, 1)
	if ratePerSec > 0 {
		burst := int(ratePerSec)
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(ratePerSec), burst)
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		limiter:    limiter,
	}
}

// GetJSON performs a GET on endpoint with params and returns the parsed document
func (c *Client) GetJSON(ctx context.Context, endpoint string, params url.Values) (gjson.Result, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return gjson.Result{}, fmt.Errorf("parsing URL %s: %w", endpoint, err)
	}
	if len(params) > 0 {
		u.RawQuery = params.Encode()
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return gjson.Result{}, fmt.Errorf("rate limiter: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return gjson.Result{}, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return gjson.Result{}, fmt.Errorf("GET %s: %w", u.Host, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return gjson.Result{}, fmt.Errorf("reading response from %s: %w", u.Host, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return gjson.Result{}, fmt.Errorf("%w: %d from %s", ErrStatus, resp.StatusCode, u.Host)
	}

	if !gjson.ValidBytes(body) {
		return gjson.Result{}, fmt.Errorf("%w from %s", ErrInvalidJSON, u.Host)
	}

	return gjson.ParseBytes(body), nil
}
