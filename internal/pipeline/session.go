package pipeline

import (
	"context"
	"sync"

	"github.com/ppiankov/cardset/internal/model"
)

// Builder builds the card set for a query
type Builder interface {
	Build(ctx context.Context, query string) (*model.CardSet, error)
}

// Session runs queries with last-write-wins semantics: starting a query
// supersedes every earlier one. Superseded runs are not cancelled; their
// results are simply never published.
type Session struct {
	builder Builder

	mu     sync.Mutex
	seq    uint64
	latest *model.CardSet
}

// NewSession creates a session over builder
func NewSession(builder Builder) *Session {
	return &Session{builder: builder}
}

// Run is one query started in a session
type Run struct {
	Query string

	id      uint64
	done    chan struct{}
	set     *model.CardSet
	err     error
	current bool
}

// Start begins building query in the background
func (s *Session) Start(ctx context.Context, query string) *Run {
	s.mu.Lock()
	s.seq++
	r := &Run{Query: query, id: s.seq, done: make(chan struct{})}
	s.mu.Unlock()

	go func() {
		defer close(r.done)
		set, err := s.builder.Build(ctx, query)

		s.mu.Lock()
		defer s.mu.Unlock()
		r.set, r.err = set, err
		if r.id == s.seq {
			r.current = true
			if err == nil {
				s.latest = set
			}
		}
	}()
	return r
}

// Done is closed when the run finishes
func (r *Run) Done() <-chan struct{} {
	return r.done
}

// Wait blocks until the run finishes. current is false when a newer query
// was started in the meantime; callers should then discard the result.
func (r *Run) Wait() (set *model.CardSet, current bool, err error) {
	<-r.done
	return r.set, r.current, r.err
}

// Latest returns the most recently published card set, or nil
func (s *Session) Latest() *model.CardSet {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.latest
}
