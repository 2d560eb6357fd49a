// Package catalog owns the load-once record catalog and the record filter.
package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/starford/langcards/internal/apperr"
	"github.com/starford/langcards/internal/models"
	"github.com/starford/langcards/internal/parser"
	"github.com/starford/langcards/internal/storage"
)

// DefaultTimeout bounds a single catalog fetch when none is configured.
const DefaultTimeout = 10 * time.Second

// Loader fetches the catalog from a provider once and caches it.
//
// State is empty until the first load that yields at least one record;
// from then on the catalog is returned without I/O and is never refreshed.
// Failed or empty loads leave the state empty, so the next call tries again.
// Concurrent callers share a single in-flight fetch.
type Loader struct {
	provider storage.Provider
	timeout  time.Duration
	logger   *slog.Logger

	group   singleflight.Group
	catalog atomic.Pointer[models.Catalog]
	fetches atomic.Int64
}

// NewLoader creates a Loader reading from provider.
func NewLoader(provider storage.Provider, timeout time.Duration, logger *slog.Logger) *Loader {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{provider: provider, timeout: timeout, logger: logger}
}

// Ensure returns the cached catalog, loading it first if it is still empty.
//
// Errors wrap apperr.ErrResourceLoad or apperr.ErrResourceParse. A caller
// whose ctx ends while a shared fetch is in flight gets ErrResourceLoad; the
// fetch itself keeps running for the remaining callers.
func (l *Loader) Ensure(ctx context.Context) (models.Catalog, error) {
	if c := l.catalog.Load(); c != nil {
		return *c, nil
	}

	ch := l.group.DoChan("catalog", func() (any, error) {
		return l.load(context.WithoutCancel(ctx))
	})

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %w", apperr.ErrResourceLoad, ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(models.Catalog), nil
	}
}

// Loaded reports whether the catalog has been populated.
func (l *Loader) Loaded() bool {
	return l.catalog.Load() != nil
}

// Fetches returns how many times the provider has been hit.
func (l *Loader) Fetches() int64 {
	return l.fetches.Load()
}

// Source describes the underlying provider.
func (l *Loader) Source() string {
	return l.provider.Describe()
}

func (l *Loader) load(ctx context.Context) (models.Catalog, error) {
	// A previous flight may have stored the catalog after our fast-path check.
	if c := l.catalog.Load(); c != nil {
		return *c, nil
	}

	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	l.fetches.Add(1)
	start := time.Now()
	data, err := l.provider.Fetch(ctx)
	if err != nil {
		err = fmt.Errorf("%w: %s: %w", apperr.ErrResourceLoad, l.provider.Describe(), err)
		l.logger.Error("catalog: load failed",
			slog.String("source", l.provider.Describe()),
			slog.String("error", err.Error()))
		return nil, err
	}

	cat, err := parser.Parse(data)
	if err != nil {
		l.logger.Error("catalog: parse failed",
			slog.String("source", l.provider.Describe()),
			slog.String("error", err.Error()))
		return nil, err
	}

	if cat.Empty() {
		l.logger.Warn("catalog: resource has no records", slog.String("source", l.provider.Describe()))
		return cat, nil
	}

	l.catalog.Store(&cat)
	l.logger.Info("catalog: loaded",
		slog.String("source", l.provider.Describe()),
		slog.Int("records", cat.Len()),
		slog.Duration("elapsed", time.Since(start)))
	return cat, nil
}
