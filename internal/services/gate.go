// Package services – Gate
//
// This file implements the daily-generation gate: the state machine deciding
// whether a new remote generation may run today, persisting the single result
// of the day, and rehydrating it for later requests.
//
// Phases are Idle and Fetching (process-wide, at most one outstanding remote
// call) and Done, which lives in the caller's GenerationState. Requests made
// while a result exists for today, in memory or in the store, are Blocked.
//
// Quota: at most one successful remote fetch per calendar date. A failed
// fetch does not consume it.
//
// Observability: Generate is OpenTelemetry-instrumented and outcomes are
// counted in Prometheus.
package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/tbourn/go-news-generator/internal/agent"
	"github.com/tbourn/go-news-generator/internal/domain"
)

// CacheStore persists at most one text per calendar date.
type CacheStore interface {
	// Load returns the text stored for date; a missing record is ok=false
	// with a nil error.
	Load(ctx context.Context, date string) (text string, ok bool, err error)
	// Save creates or overwrites the record for date.
	Save(ctx context.Context, date, text string) error
	// Clear removes the record for date; missing records are a no-op.
	Clear(ctx context.Context, date string) error
	// PurgeStale removes every record except keepDate's.
	PurgeStale(ctx context.Context, keepDate string) (removed int64, err error)
}

// Fetcher performs one remote generation.
type Fetcher interface {
	Fetch(ctx context.Context, prompt string) (string, error)
}

// Phase is the process-wide fetch phase of a Gate.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseFetching
)

func (p Phase) String() string {
	if p == PhaseFetching {
		return "fetching"
	}
	return "idle"
}

// Gate enforces the daily quota in front of a Fetcher and a CacheStore.
type Gate struct {
	Store   CacheStore
	Fetcher Fetcher
	Prompt  string

	// Location defines the calendar day; nil means time.Local.
	Location *time.Location
	// Now is the clock; nil means time.Now.
	Now func() time.Time

	mu       sync.Mutex
	fetching bool
	// unsaved holds a generated result the store refused, so the quota keeps
	// holding in this process until a later save succeeds.
	unsaved domain.DailyRecord
}

// NewGate returns a Gate using the wall clock in loc.
func NewGate(store CacheStore, fetcher Fetcher, prompt string, loc *time.Location) *Gate {
	return &Gate{
		Store:    store,
		Fetcher:  fetcher,
		Prompt:   prompt,
		Location: loc,
	}
}

// Today returns the current date key in the gate's time zone.
func (g *Gate) Today() string {
	now := time.Now
	if g.Now != nil {
		now = g.Now
	}
	loc := g.Location
	if loc == nil {
		loc = time.Local
	}
	return domain.DateKey(now().In(loc))
}

// Phase reports whether a remote fetch is currently outstanding.
func (g *Gate) Phase() Phase {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.fetching {
		return PhaseFetching
	}
	return PhaseIdle
}

// begin moves Idle → Fetching; it reports false if a fetch is already running.
func (g *Gate) begin() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.fetching {
		return false
	}
	g.fetching = true
	return true
}

func (g *Gate) end() {
	g.mu.Lock()
	g.fetching = false
	g.mu.Unlock()
}

// Generate runs one generation attempt for the session state st and returns
// the updated state.
//
// It returns ErrBlocked (with the state holding today's text) when the quota
// is already consumed, ErrInProgress when another fetch is outstanding, and
// the Fetcher's error when the remote call fails. Only a successful fetch
// writes the store, exactly once.
func (g *Gate) Generate(ctx context.Context, st domain.GenerationState) (domain.GenerationState, error) {
	tr := otel.Tracer("services/Gate")
	ctx, span := tr.Start(ctx, "Generate")
	defer span.End()

	today := g.Today()
	st = st.ForDate(today)
	span.SetAttributes(attribute.String("news.date", today))
	lg := zerolog.Ctx(ctx).With().Str("date", today).Logger()

	if st.HasText() {
		generations.WithLabelValues(outcomeBlocked).Inc()
		return st, ErrBlocked
	}

	if !g.begin() {
		generations.WithLabelValues(outcomeInProgress).Inc()
		return st, ErrInProgress
	}
	defer g.end()

	// Checked after entering Fetching so a concurrent fetch that just
	// finished is always observed.
	cached, ok, err := g.load(ctx, today)
	if err != nil {
		generations.WithLabelValues(outcomeStoreUnavailable).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, "load record")
		return st, fmt.Errorf("load today's record: %w", err)
	}
	if ok {
		generations.WithLabelValues(outcomeBlocked).Inc()
		return st.WithText(today, cached), ErrBlocked
	}

	st.AttemptsToday++
	span.SetAttributes(attribute.Int("news.attempt", st.AttemptsToday))

	if n, err := g.Store.PurgeStale(ctx, today); err != nil {
		lg.Warn().Err(err).Msg("purge stale records")
	} else if n > 0 {
		purgedRecords.Add(float64(n))
		lg.Info().Int64("removed", n).Msg("purged stale records")
	}

	start := time.Now()
	text, err := g.Fetcher.Fetch(ctx, g.Prompt)
	fetchDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		kind := agent.ErrorKind(err)
		generations.WithLabelValues(failureOutcome(kind)).Inc()
		span.RecordError(err, trace.WithAttributes(attribute.String("error.kind", kind)))
		span.SetStatus(codes.Error, "fetch")
		lg.Error().
			Err(err).
			Str("error_kind", kind).
			Int("attempts", st.AttemptsToday).
			Msg("news generation failed")
		return st, err
	}

	outcome := outcomeGenerated
	if err := g.Store.Save(ctx, today, text); err != nil {
		// The remote side effect already happened; keep the result and
		// serve it from memory until the store accepts it.
		outcome = outcomeGeneratedUnsaved
		g.setUnsaved(domain.DailyRecord{Date: today, Text: text})
		span.RecordError(err)
		lg.Error().Err(err).Msg("persist generated news; holding it in memory")
	} else {
		g.setUnsaved(domain.DailyRecord{})
	}

	generations.WithLabelValues(outcome).Inc()
	lg.Info().
		Int("attempts", st.AttemptsToday).
		Int("length", len(text)).
		Msg("news generated")
	return st.WithText(today, text), nil
}

// Hydrate fills st with today's stored text when it holds none.
func (g *Gate) Hydrate(ctx context.Context, st domain.GenerationState) (domain.GenerationState, error) {
	today := g.Today()
	st = st.ForDate(today)
	if st.HasText() {
		return st, nil
	}
	text, ok, err := g.load(ctx, today)
	if err != nil {
		return st, fmt.Errorf("load today's record: %w", err)
	}
	if ok {
		st = st.WithText(today, text)
	}
	return st, nil
}

// Clear deletes today's record and returns an empty state for today.
func (g *Gate) Clear(ctx context.Context, st domain.GenerationState) (domain.GenerationState, error) {
	today := g.Today()
	if err := g.Store.Clear(ctx, today); err != nil {
		return st, fmt.Errorf("clear today's record: %w", err)
	}
	g.setUnsaved(domain.DailyRecord{})
	zerolog.Ctx(ctx).Info().Str("date", today).Msg("news cleared")
	return domain.GenerationState{Date: today}, nil
}

// load returns today's text, preferring a result the store has not accepted
// yet. Each call retries persisting that result.
func (g *Gate) load(ctx context.Context, today string) (string, bool, error) {
	g.mu.Lock()
	pending := g.unsaved
	g.mu.Unlock()

	if pending.Date == today && pending.Text != "" {
		if err := g.Store.Save(ctx, today, pending.Text); err == nil {
			g.mu.Lock()
			if g.unsaved == pending {
				g.unsaved = domain.DailyRecord{}
			}
			g.mu.Unlock()
			zerolog.Ctx(ctx).Info().Str("date", today).Msg("persisted held news")
		}
		return pending.Text, true, nil
	}
	return g.Store.Load(ctx, today)
}

func (g *Gate) setUnsaved(rec domain.DailyRecord) {
	g.mu.Lock()
	g.unsaved = rec
	g.mu.Unlock()
}
