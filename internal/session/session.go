// Package session keeps one display container and search pipeline per open
// search page, and pushes every render of that container to the page over SSE.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/starford/langcards/internal/apperr"
	"github.com/starford/langcards/internal/render"
	"github.com/starford/langcards/internal/search"
	"github.com/starford/langcards/internal/sse"
)

// Publisher delivers events to SSE clients.
type Publisher interface {
	Publish(event sse.Event)
}

// liveView is a render.View that publishes its HTML after every render.
type liveView struct {
	*render.View
	topic     string
	publisher Publisher
	logger    *slog.Logger
}

// Flush implements render.Flusher.
func (v *liveView) Flush() {
	html, err := v.HTML()
	if err != nil {
		v.logger.Error("session: render html failed",
			slog.String("session", v.topic),
			slog.String("error", err.Error()))
		return
	}
	v.publisher.Publish(sse.Event{
		Topic: v.topic,
		Type:  sse.TypeCardsRendered,
		Data: map[string]any{
			"html":  string(html),
			"count": v.Len(),
		},
	})
}

// Session is the server side of one search page.
type Session struct {
	ID string

	view     *liveView
	pipeline *search.Pipeline

	mu         sync.Mutex
	streams    int
	lastActive time.Time
}

// Search runs the pipeline for this session's container.
func (s *Session) Search(ctx context.Context, query string) search.Outcome {
	s.touch()
	return s.pipeline.HandleSearch(ctx, query)
}

// SearchSeq runs the pipeline for a query the page numbered itself.
func (s *Session) SearchSeq(ctx context.Context, query string, seq uint64) search.Outcome {
	s.touch()
	return s.pipeline.HandleSearchSeq(ctx, query, seq)
}

// Seq returns the number of the latest search issued for this session.
// Page-numbered searches must start above it.
func (s *Session) Seq() uint64 {
	return s.pipeline.Latest()
}

// Cards returns the cards currently in the session's container.
func (s *Session) Cards() []render.Card {
	return s.view.Cards()
}

func (s *Session) touch() {
	s.mu.Lock()
	s.lastActive = time.Now()
	s.mu.Unlock()
}

func (s *Session) idleSince(now time.Time) (time.Duration, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return now.Sub(s.lastActive), s.streams > 0
}

// Registry holds the open sessions.
type Registry struct {
	source    search.Source
	renderer  *render.Renderer
	publisher Publisher
	logger    *slog.Logger
	max       int

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewRegistry creates a registry holding at most max sessions.
func NewRegistry(source search.Source, renderer *render.Renderer, publisher Publisher, maxSessions int, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		source:    source,
		renderer:  renderer,
		publisher: publisher,
		logger:    logger,
		max:       maxSessions,
		sessions:  make(map[string]*Session),
	}
}

// Create opens a new session with an empty container.
func (r *Registry) Create() (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.max > 0 && len(r.sessions) >= r.max {
		return nil, fmt.Errorf("session: limit %d reached: %w", r.max, apperr.ErrTooManySessions)
	}

	id := uuid.NewString()
	view := &liveView{
		View:      render.NewView(),
		topic:     id,
		publisher: r.publisher,
		logger:    r.logger,
	}
	s := &Session{
		ID:         id,
		view:       view,
		pipeline:   search.NewPipeline(r.source, r.renderer, view, r.logger.With(slog.String("session", id))),
		lastActive: time.Now(),
	}
	r.sessions[id] = s
	r.logger.Debug("session: created", slog.String("session", id))
	return s, nil
}

// Get returns the session with id.
func (r *Registry) Get(id string) (*Session, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, apperr.ErrNotFound
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	return s, nil
}

// Attach marks an SSE stream as open for the session.
func (r *Registry) Attach(s *Session) {
	s.mu.Lock()
	s.streams++
	s.lastActive = time.Now()
	s.mu.Unlock()
}

// Detach marks an SSE stream as closed. A session without streams is
// dropped by the next Sweep once it has been idle long enough.
func (r *Registry) Detach(s *Session) {
	s.mu.Lock()
	s.streams--
	s.lastActive = time.Now()
	s.mu.Unlock()
}

// Remove drops a session.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	delete(r.sessions, id)
	r.mu.Unlock()
}

// Len returns the number of open sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Sweep removes sessions with no open stream that have been idle for at
// least maxIdle, and returns how many were removed.
func (r *Registry) Sweep(maxIdle time.Duration) int {
	now := time.Now()
	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for id, s := range r.sessions {
		idle, streaming := s.idleSince(now)
		if streaming || idle < maxIdle {
			continue
		}
		delete(r.sessions, id)
		removed++
	}
	if removed > 0 {
		r.logger.Debug("session: swept idle sessions", slog.Int("removed", removed))
	}
	return removed
}

// RunSweeper calls Sweep every interval until ctx is cancelled.
func (r *Registry) RunSweeper(ctx context.Context, interval, maxIdle time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Sweep(maxIdle)
		}
	}
}
