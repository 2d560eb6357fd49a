package storage

import (
	"context"
	"fmt"
	"io"
	"net/http"
)

// maxResourceBytes caps the size of a fetched catalog.
const maxResourceBytes = 10 << 20 // 10 MB

// HTTP fetches the resource with a single GET request.
type HTTP struct {
	url    string
	client *http.Client
}

// NewHTTP creates an HTTP provider. A nil client uses http.DefaultClient;
// deadlines come from the context passed to Fetch.
func NewHTTP(url string, client *http.Client) *HTTP {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTP{url: url, client: client}
}

// Fetch implements Provider. Any non-2xx status is an error.
func (h *HTTP) Fetch(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.url, nil)
	if err != nil {
		return nil, fmt.Errorf("storage: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("storage: get %s: %w", h.url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))
		return nil, fmt.Errorf("storage: get %s: unexpected status %d", h.url, resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResourceBytes+1))
	if err != nil {
		return nil, fmt.Errorf("storage: read body: %w", err)
	}
	if len(data) > maxResourceBytes {
		return nil, fmt.Errorf("storage: resource exceeds %d bytes", maxResourceBytes)
	}
	return data, nil
}

// Describe implements Provider.
func (h *HTTP) Describe() string {
	return h.url
}
