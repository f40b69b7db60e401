// Package services – Session
//
// This file implements the session facade: one Session per browser session
// holds an explicit GenerationState and turns every gate outcome into a
// Status value, so no generation failure escapes as an error. Sessions is the
// in-memory registry keyed by session id, with opportunistic eviction of idle
// sessions.
package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/tbourn/go-news-generator/internal/agent"
	"github.com/tbourn/go-news-generator/internal/domain"
)

// StatusKind is the outcome of a generation request.
type StatusKind string

const (
	StatusGenerated  StatusKind = "generated"
	StatusBlocked    StatusKind = "already_generated"
	StatusInProgress StatusKind = "in_progress"
	StatusFailed     StatusKind = "failed"
)

// User-facing status messages.
const (
	MsgGenerated  = "News generated successfully!"
	MsgBlocked    = "News already generated for today. Clear news to regenerate."
	MsgInProgress = "News generation is already running. Please wait."
	MsgFailed     = "News generation failed. Please try again."
	MsgCleared    = "News cleared. You can now re-generate the news."
)

// Status reports a generation outcome to the presentation layer.
type Status struct {
	Kind    StatusKind
	Message string
	// Text is today's result when one is held (generated or blocked).
	Text string
	// Err is the underlying failure for StatusFailed, kept for diagnostics.
	Err error
}

// ErrorKind returns "remote", "malformed" or "other" for failed statuses and
// "" otherwise.
func (s Status) ErrorKind() string {
	if s.Err == nil {
		return ""
	}
	return agent.ErrorKind(s.Err)
}

// Session is the facade a single user session talks to. It is safe for
// concurrent use; operations on one session run one at a time.
type Session struct {
	ID string

	gate  *Gate
	mu    sync.Mutex
	state domain.GenerationState
}

// NewSession returns an empty session bound to gate.
func NewSession(id string, gate *Gate) *Session {
	return &Session{ID: id, gate: gate}
}

// CurrentText returns today's text, loading it from the cache store on first
// use. ok is false when nothing was generated today.
func (s *Session) CurrentText(ctx context.Context) (text string, ok bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := s.gate.Hydrate(ctx, s.state)
	if err != nil {
		return "", false, err
	}
	s.state = st
	return st.Text, st.HasText(), nil
}

// RequestGeneration asks the gate for today's generation and reports the
// outcome as a Status.
func (s *Session) RequestGeneration(ctx context.Context) Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := s.gate.Generate(ctx, s.state)
	s.state = st

	switch {
	case err == nil:
		return Status{Kind: StatusGenerated, Message: MsgGenerated, Text: st.Text}
	case errors.Is(err, ErrBlocked):
		return Status{Kind: StatusBlocked, Message: MsgBlocked, Text: st.Text}
	case errors.Is(err, ErrInProgress):
		return Status{Kind: StatusInProgress, Message: MsgInProgress}
	default:
		return Status{Kind: StatusFailed, Message: MsgFailed, Err: err}
	}
}

// Clear removes today's result from the store and resets the session.
func (s *Session) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := s.gate.Clear(ctx, s.state)
	if err != nil {
		return err
	}
	s.state = st
	return nil
}

// State returns a snapshot of the session state as of today.
func (s *Session) State() domain.GenerationState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.ForDate(s.gate.Today())
}

// Generating reports whether a remote fetch is outstanding in this process.
func (s *Session) Generating() bool {
	return s.gate.Phase() == PhaseFetching
}

// sessionEntry holds a session and the last time it was used.
type sessionEntry struct {
	session  *Session
	lastSeen time.Time
}

// Sessions is an in-memory registry of sessions keyed by id.
//
// Idle sessions are evicted after TTL by an opportunistic sweep during
// lookups. Evicting a session only drops its in-memory state; today's result
// stays in the cache store and is rehydrated on the next request.
type Sessions struct {
	gate *Gate
	ttl  time.Duration
	now  func() time.Time

	mu       sync.Mutex
	entries  map[string]*sessionEntry
	lookups  uint64
	sweepGap uint64
}

// NewSessions returns a registry creating sessions bound to gate.
// ttl <= 0 defaults to 24h.
func NewSessions(gate *Gate, ttl time.Duration) *Sessions {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Sessions{
		gate:     gate,
		ttl:      ttl,
		now:      time.Now,
		entries:  make(map[string]*sessionEntry),
		sweepGap: 1000,
	}
}

// Get returns the session for id, creating it if absent.
func (r *Sessions) Get(id string) *Session {
	now := r.now()

	r.mu.Lock()
	defer r.mu.Unlock()

	// Sweep before touching the requested entry so an idle one is evicted
	// even when it is the one being fetched.
	r.lookups++
	if r.lookups >= r.sweepGap {
		for k, e := range r.entries {
			if now.Sub(e.lastSeen) >= r.ttl {
				delete(r.entries, k)
			}
		}
		r.lookups = 0
	}

	if e, ok := r.entries[id]; ok {
		e.lastSeen = now
		return e.session
	}
	s := NewSession(id, r.gate)
	r.entries[id] = &sessionEntry{session: s, lastSeen: now}
	return s
}

// Len returns the number of live sessions.
func (r *Sessions) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}
