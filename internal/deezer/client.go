// Package deezer provides a client for the Deezer public search API,
// used to resolve 30-second preview URLs for candidate tracks.
package deezer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/tuneswipe/tuneswipe-api/internal/cache"
)

const (
	baseURL   = "https://api.deezer.com/search"
	userAgent = "tuneswipe-api/1.0"

	// previewTTL bounds how long a resolved preview URL is cached.
	previewTTL = 24 * time.Hour
)

// Deezer API error codes.
const (
	errCodeQuotaExceeded  = 4
	errCodeServiceBusy    = 700
	errCodeInvalidRequest = 500
)

// Sentinel errors.
var (
	// ErrRateLimited is returned when the API quota is exceeded after retries.
	ErrRateLimited = errors.New("rate limit exceeded")
)

// Client is a Deezer search client with preview-URL caching.
type Client struct {
	httpClient *http.Client
	baseURL    string
	cache      cache.Cache
}

// NewClient creates a new Deezer client. The cache may be shared across
// instances (Redis) or process-local.
func NewClient(c cache.Cache) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		baseURL: baseURL,
		cache:   c,
	}
}

// FindPreview resolves a preview URL for a track. It tries an exact
// track/artist search first, then a general one. Returns an empty string
// when no preview exists; that is not an error.
func (c *Client) FindPreview(ctx context.Context, title, artist string) (string, error) {
	cacheKey := fmt.Sprintf("preview:%s:%s", artist, title)
	if cached, ok, err := c.cache.Get(ctx, cacheKey); err == nil && ok {
		return cached, nil
	}

	// Exact field search first
	preview, err := c.search(ctx, fmt.Sprintf("track:%q artist:%q", title, artist))
	if err != nil {
		return "", err
	}

	if preview == "" {
		// Fall back to a general search
		preview, err = c.search(ctx, title+" "+artist)
		if err != nil {
			return "", err
		}
	}

	if preview != "" {
		_ = c.cache.Set(ctx, cacheKey, preview, previewTTL)
	}
	return preview, nil
}

// search runs one search query and returns the first result's preview URL.
func (c *Client) search(ctx context.Context, query string) (string, error) {
	params := url.Values{"q": {query}}
	body, err := c.doRequest(ctx, params)
	if err != nil {
		return "", fmt.Errorf("searching deezer: %w", err)
	}

	var resp searchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("parsing deezer response: %w", err)
	}

	if len(resp.Data) == 0 {
		return "", nil
	}
	return resp.Data[0].Preview, nil
}

// doRequest performs an HTTP GET request with retry on rate limit.
// Retries up to 3 times with exponential backoff (1s, 2s, 4s).
func (c *Client) doRequest(ctx context.Context, params url.Values) ([]byte, error) {
	reqURL := c.baseURL + "?" + params.Encode()

	delays := []time.Duration{1 * time.Second, 2 * time.Second, 4 * time.Second}
	var lastErr error

	for attempt := 0; attempt <= len(delays); attempt++ {
		// Wait before retry (skip on first attempt)
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delays[attempt-1]):
			}
		}

		body, err := c.doSingleRequest(ctx, reqURL)
		if err == nil {
			return body, nil
		}

		if errors.Is(err, ErrRateLimited) {
			lastErr = err
			continue
		}

		// Non-retryable error
		return nil, err
	}

	return nil, lastErr
}

// doSingleRequest performs a single HTTP request.
func (c *Client) doSingleRequest(ctx context.Context, reqURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	// Check for API error in response
	var apiResp errorResponse
	if err := json.Unmarshal(body, &apiResp); err == nil && apiResp.Error != nil {
		switch apiResp.Error.Code {
		case errCodeQuotaExceeded, errCodeServiceBusy:
			return nil, ErrRateLimited
		default:
			return nil, fmt.Errorf("API error %d: %s", apiResp.Error.Code, apiResp.Error.Message)
		}
	}

	return body, nil
}
