// Package provider fetches position snapshots from the upstream positions API.
package provider

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
	"golang.org/x/time/rate"

	"github.com/mtlprog/positions/internal/domain"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ErrRateLimited is returned when the provider keeps answering 429 after all retries.
var ErrRateLimited = errors.New("provider rate limit exceeded")

// Client is an HTTP client for the positions provider with client-side rate limiting and
// retry on 429.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter
	maxRetries int
	baseDelay  time.Duration
}

// NewClient creates a new provider client. ratePerSecond <= 0 disables client-side limiting.
func NewClient(baseURL, apiKey string, ratePerSecond float64, maxRetries int, baseDelay time.Duration) *Client {
	limit := rate.Inf
	if ratePerSecond > 0 {
		limit = rate.Limit(ratePerSecond)
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		limiter:    rate.NewLimiter(limit, 1),
		maxRetries: maxRetries,
		baseDelay:  baseDelay,
	}
}

// ListPositions fetches the DeFi positions snapshot of a wallet in the given native currency.
func (c *Client) ListPositions(ctx context.Context, address, currency string) (domain.ListPositionsResponse, error) {
	q := url.Values{}
	q.Set("currency", domain.NormalizeCurrency(currency))
	path := "/v1/positions/" + url.PathEscape(address) + "?" + q.Encode()

	var resp domain.ListPositionsResponse
	if err := c.getJSON(ctx, path, &resp); err != nil {
		return domain.ListPositionsResponse{}, fmt.Errorf("listing positions for %s: %w", address, err)
	}
	return resp, nil
}

// get performs a GET request with retry on 429.
func (c *Client) get(ctx context.Context, path string) ([]byte, error) {
	endpoint := c.baseURL + path

	var lastErr error
	for attempt := range c.maxRetries + 1 {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("waiting for rate limiter: %w", err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, fmt.Errorf("creating request: %w", err)
		}
		req.Header.Set("Accept", "application/json")
		if c.apiKey != "" {
			req.Header.Set("Authorization", "Bearer "+c.apiKey)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("executing request: %w", err)
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("reading response: %w", err)
		}

		if resp.StatusCode == http.StatusOK {
			return body, nil
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			lastErr = fmt.Errorf("%w: HTTP 429 at %s (attempt %d/%d)", ErrRateLimited, endpoint, attempt+1, c.maxRetries+1)
			if attempt < c.maxRetries {
				delay := c.baseDelay * time.Duration(1<<uint(attempt))
				select {
				case <-ctx.Done():
					return nil, ctx.Err()
				case <-time.After(delay):
				}
				continue
			}
			return nil, lastErr
		}

		return nil, fmt.Errorf("HTTP %d from %s: %s", resp.StatusCode, endpoint, string(body))
	}

	return nil, lastErr
}

// getJSON performs a GET request and unmarshals the JSON response.
func (c *Client) getJSON(ctx context.Context, path string, dest any) error {
	body, err := c.get(ctx, path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, dest); err != nil {
		return fmt.Errorf("parsing JSON from %s: %w", path, err)
	}
	return nil
}
