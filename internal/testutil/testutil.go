// Package testutil provides shared test helpers for catalog resources.
package testutil

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
)

// TwoLanguages is the Go/Rust catalog used across scenario tests.
const TwoLanguages = `[
	{"name":"Go","description":"Compiled, concurrent","creationInfo":"2009","link":"https://go.dev"},
	{"name":"Rust","description":"Safe systems","creationInfo":"2010","link":"https://rust-lang.org"}
]`

// ErrNetwork simulates a transport failure.
var ErrNetwork = errors.New("simulated network error")

// Logger returns a logger that discards output.
func Logger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// Provider is a scripted storage.Provider that counts fetches.
type Provider struct {
	mu    sync.Mutex
	data  []byte
	err   error
	gate  chan struct{}
	calls atomic.Int64
}

// NewProvider returns a Provider that serves data.
func NewProvider(data string) *Provider {
	return &Provider{data: []byte(data)}
}

// FailingProvider returns a Provider whose fetches fail with err.
func FailingProvider(err error) *Provider {
	return &Provider{err: err}
}

// Set replaces the scripted response.
func (p *Provider) Set(data string, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.data = []byte(data)
	p.err = err
}

// Hold makes subsequent fetches block until the returned release func is called.
func (p *Provider) Hold() (release func()) {
	gate := make(chan struct{})
	p.mu.Lock()
	p.gate = gate
	p.mu.Unlock()
	var once sync.Once
	return func() { once.Do(func() { close(gate) }) }
}

// Fetch implements storage.Provider.
func (p *Provider) Fetch(ctx context.Context) ([]byte, error) {
	p.calls.Add(1)
	p.mu.Lock()
	gate, data, err := p.gate, p.data, p.err
	p.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}
	return data, nil
}

// Describe implements storage.Provider.
func (p *Provider) Describe() string {
	return "test://provider"
}

// Calls returns the number of Fetch calls so far.
func (p *Provider) Calls() int64 {
	return p.calls.Load()
}

// CatalogServer serves body as the catalog resource and counts requests.
func CatalogServer(t *testing.T, body string) (*httptest.Server, *atomic.Int64) {
	t.Helper()
	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

// CatalogFile writes body to a temp catalog file and returns its path.
func CatalogFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "catalog.json")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}
