package extract

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// fetchUserAgent is sent on every page fetch; some university sites serve
// reduced markup to unknown agents.
const fetchUserAgent = "Mozilla/5.0"

// Fetcher retrieves raw HTML payloads over HTTP with an explicit timeout.
type Fetcher struct {
	client *http.Client
}

// NewFetcher returns a fetcher whose requests time out after the given duration.
func NewFetcher(timeout time.Duration) *Fetcher {
	return &Fetcher{client: &http.Client{Timeout: timeout}}
}

// Fetch performs a GET on url and returns the response body as a string.
// Transport errors, timeouts, and non-200 statuses are retryable
// ExtractionErrors.
func (f *Fetcher) Fetch(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", &ExtractionError{Source: url, Err: err}
	}
	req.Header.Set("User-Agent", fetchUserAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return "", &ExtractionError{Source: url, Retryable: true, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", &ExtractionError{
			Source:    url,
			Retryable: true,
			Err:       fmt.Errorf("unexpected status %d", resp.StatusCode),
		}
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &ExtractionError{Source: url, Retryable: true, Err: err}
	}
	return string(body), nil
}
