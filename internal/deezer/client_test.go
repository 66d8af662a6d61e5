package deezer

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/tuneswipe/tuneswipe-api/internal/cache"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	c := NewClient(cache.NewMemory())
	c.baseURL = server.URL
	return c
}

func searchResult(previews ...string) searchResponse {
	var resp searchResponse
	for _, p := range previews {
		var tr trackResult
		tr.Preview = p
		resp.Data = append(resp.Data, tr)
	}
	resp.Total = len(resp.Data)
	return resp
}

func TestFindPreview(t *testing.T) {
	tests := []struct {
		name        string
		exactResult searchResponse
		fallback    searchResponse
		want        string
	}{
		{
			name:        "exact search hit",
			exactResult: searchResult("https://cdn.deezer.com/preview/abc.mp3"),
			want:        "https://cdn.deezer.com/preview/abc.mp3",
		},
		{
			name:        "falls back to general search",
			exactResult: searchResult(),
			fallback:    searchResult("https://cdn.deezer.com/preview/def.mp3"),
			want:        "https://cdn.deezer.com/preview/def.mp3",
		},
		{
			name:        "no preview anywhere",
			exactResult: searchResult(),
			fallback:    searchResult(),
			want:        "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls int
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				calls++
				resp := tt.exactResult
				if calls > 1 {
					resp = tt.fallback
				}
				json.NewEncoder(w).Encode(resp)
			})

			got, err := c.FindPreview(context.Background(), "Karma Police", "Radiohead")
			if err != nil {
				t.Fatalf("FindPreview() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("FindPreview() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFindPreviewCaches(t *testing.T) {
	var calls int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		json.NewEncoder(w).Encode(searchResult("https://cdn.deezer.com/preview/xyz.mp3"))
	})

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		got, err := c.FindPreview(ctx, "Creep", "Radiohead")
		if err != nil {
			t.Fatalf("FindPreview() error = %v", err)
		}
		if got != "https://cdn.deezer.com/preview/xyz.mp3" {
			t.Errorf("FindPreview() = %q", got)
		}
	}

	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Errorf("upstream called %d times, want 1", n)
	}
}

func TestFindPreviewRateLimitRetries(t *testing.T) {
	var calls int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			json.NewEncoder(w).Encode(errorResponse{Error: &apiError{Code: errCodeQuotaExceeded, Message: "Quota limit exceeded"}})
			return
		}
		json.NewEncoder(w).Encode(searchResult("https://cdn.deezer.com/preview/retry.mp3"))
	})

	got, err := c.FindPreview(context.Background(), "Weird Fishes", "Radiohead")
	if err != nil {
		t.Fatalf("FindPreview() error = %v", err)
	}
	if got != "https://cdn.deezer.com/preview/retry.mp3" {
		t.Errorf("FindPreview() = %q", got)
	}
	if n := atomic.LoadInt32(&calls); n < 2 {
		t.Errorf("upstream called %d times, want at least 2", n)
	}
}

func TestFindPreviewAPIError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(errorResponse{Error: &apiError{Code: errCodeInvalidRequest, Message: "Invalid parameter"}})
	})

	_, err := c.FindPreview(context.Background(), "Nude", "Radiohead")
	if err == nil {
		t.Fatal("FindPreview() error = nil, want API error")
	}
	if errors.Is(err, ErrRateLimited) {
		t.Errorf("FindPreview() error = %v, want non-retryable API error", err)
	}
}

func TestFindPreviewContextCancel(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(errorResponse{Error: &apiError{Code: errCodeServiceBusy, Message: "Service busy"}})
	})

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	_, err := c.FindPreview(ctx, "Reckoner", "Radiohead")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("FindPreview() error = %v, want context deadline", err)
	}
}
