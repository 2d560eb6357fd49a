// Package search implements the filter-and-render pipeline.
package search

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/starford/langcards/internal/apperr"
	"github.com/starford/langcards/internal/catalog"
	"github.com/starford/langcards/internal/models"
	"github.com/starford/langcards/internal/render"
)

// Source yields the catalog, loading it if necessary.
type Source interface {
	Ensure(ctx context.Context) (models.Catalog, error)
}

// Outcome describes what a HandleSearch call did to the container.
type Outcome int

const (
	// Rendered means the container now shows the result of this query.
	Rendered Outcome = iota
	// Aborted means the catalog could not be loaded; the container is untouched.
	Aborted
	// Superseded means a newer query was issued first; this result was dropped.
	Superseded
)

func (o Outcome) String() string {
	switch o {
	case Rendered:
		return "rendered"
	case Aborted:
		return "aborted"
	case Superseded:
		return "superseded"
	default:
		return "unknown"
	}
}

// Pipeline owns one display container and refreshes it per query.
//
// Every call takes a sequence number. Only a call whose number is still the
// latest issued may render, so a slow, older query can never overwrite the
// cards of a newer one. Numbers come from the pipeline itself
// (HandleSearch) or from the caller (HandleSearchSeq) when the order the
// queries were typed in differs from the order they arrive in.
type Pipeline struct {
	source    Source
	renderer  *render.Renderer
	container render.Container
	logger    *slog.Logger

	seq atomic.Uint64
	mu  sync.Mutex // serializes renders into container
}

// NewPipeline creates a pipeline rendering into container.
func NewPipeline(source Source, renderer *render.Renderer, container render.Container, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		source:    source,
		renderer:  renderer,
		container: container,
		logger:    logger,
	}
}

// HandleSearch loads the catalog if needed, filters it by queryRaw and
// re-renders the container. Load failures are logged and leave the
// container as it was; nothing is returned to the caller but the outcome.
func (p *Pipeline) HandleSearch(ctx context.Context, queryRaw string) Outcome {
	return p.run(ctx, queryRaw, p.seq.Add(1))
}

// HandleSearchSeq is HandleSearch for a query the caller numbered itself.
// A seq not above the highest seen so far is dropped without running.
func (p *Pipeline) HandleSearchSeq(ctx context.Context, queryRaw string, seq uint64) Outcome {
	for {
		latest := p.seq.Load()
		if seq <= latest {
			p.logger.Debug("search: dropping stale query",
				slog.Uint64("seq", seq),
				slog.Uint64("latest", latest))
			return Superseded
		}
		if p.seq.CompareAndSwap(latest, seq) {
			break
		}
	}
	return p.run(ctx, queryRaw, seq)
}

// Latest returns the highest sequence number issued so far.
func (p *Pipeline) Latest() uint64 {
	return p.seq.Load()
}

func (p *Pipeline) run(ctx context.Context, queryRaw string, seq uint64) Outcome {
	cat, err := p.source.Ensure(ctx)
	if err != nil {
		p.logger.Warn("search: catalog unavailable",
			slog.Uint64("seq", seq),
			slog.String("error", err.Error()))
		return Aborted
	}
	if cat.Empty() {
		p.logger.Debug("search: catalog empty", slog.Uint64("seq", seq))
		return Aborted
	}

	matches := catalog.Filter(cat, queryRaw)

	p.mu.Lock()
	defer p.mu.Unlock()
	if latest := p.seq.Load(); seq != latest {
		p.logger.Debug("search: dropping stale result",
			slog.Uint64("seq", seq),
			slog.Uint64("latest", latest))
		return Superseded
	}
	p.renderer.Render(p.container, matches)
	p.logger.Debug("search: rendered",
		slog.Uint64("seq", seq),
		slog.Int("cards", len(matches)))
	return Rendered
}

// Search returns the records matching queryRaw without touching any
// container. An empty catalog is a load failure, as it is for HandleSearch.
func Search(ctx context.Context, source Source, queryRaw string) ([]models.Record, error) {
	cat, err := source.Ensure(ctx)
	if err != nil {
		return nil, err
	}
	if cat.Empty() {
		return nil, fmt.Errorf("%w: catalog is empty", apperr.ErrResourceLoad)
	}
	return catalog.Filter(cat, queryRaw), nil
}
