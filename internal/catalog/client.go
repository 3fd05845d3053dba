package catalog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"os"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"tarifario/internal/config"
)

// Document is the raw published spreadsheet as fetched from its source.
type Document struct {
	Location    string
	ContentType string
	Body        []byte
}

type Client struct {
	cfg        config.Config
	httpClient *http.Client
	limiter    *rate.Limiter
}

func NewClient(cfg config.Config) *Client {
	rps := cfg.SourceRateLimitRPS
	if rps <= 0 {
		rps = 1
	}
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: time.Duration(cfg.SourceTimeoutMs) * time.Millisecond},
		limiter:    rate.NewLimiter(rate.Limit(rps), 1),
	}
}

// Fetch reads the configured source. Local paths are read from disk; http(s) URLs are fetched
// with retries on 429 and 5xx responses.
func (c *Client) Fetch(ctx context.Context) (Document, error) {
	location := strings.TrimSpace(c.cfg.SheetSource)
	if location == "" {
		return Document{}, errors.New("missing SHEET_SOURCE")
	}
	if !isRemote(location) {
		body, err := os.ReadFile(location)
		if err != nil {
			return Document{}, err
		}
		return Document{Location: location, Body: body}, nil
	}
	return c.fetchRemote(ctx, location)
}

func (c *Client) fetchRemote(ctx context.Context, location string) (Document, error) {
	attempts := c.cfg.SourceMaxAttempts
	if attempts <= 0 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return Document{}, err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, location, nil)
		if err != nil {
			return Document{}, err
		}
		req.Header.Set("Accept", "text/csv, text/html, application/vnd.openxmlformats-officedocument.spreadsheetml.sheet, */*")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			if ctx.Err() != nil {
				return Document{}, ctx.Err()
			}
			continue
		}

		body, readErr := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if readErr != nil {
			lastErr = readErr
			continue
		}

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			if isRetryableStatus(resp.StatusCode) && attempt < attempts {
				lastErr = fmt.Errorf("source status %d", resp.StatusCode)
				backoff := time.Duration(250*(1<<(attempt-1))+rand.Intn(100)) * time.Millisecond
				select {
				case <-ctx.Done():
					return Document{}, ctx.Err()
				case <-time.After(backoff):
				}
				continue
			}
			return Document{}, fmt.Errorf("source error: status=%d body=%s", resp.StatusCode, truncate(string(body), 200))
		}

		return Document{Location: location, ContentType: resp.Header.Get("Content-Type"), Body: body}, nil
	}

	if lastErr == nil {
		lastErr = errors.New("source request failed")
	}
	return Document{}, lastErr
}

func isRemote(location string) bool {
	lower := strings.ToLower(location)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

func isRetryableStatus(status int) bool {
	switch status {
	case 429, 500, 502, 503, 504:
		return true
	default:
		return false
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
