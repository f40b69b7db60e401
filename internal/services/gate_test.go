package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/tbourn/go-news-generator/internal/agent"
	"github.com/tbourn/go-news-generator/internal/domain"
)

func TestGate_Today_UsesLocation(t *testing.T) {
	g := &Gate{
		Location: time.FixedZone("UTC+10", 10*60*60),
		Now:      func() time.Time { return time.Date(2026, 10, 15, 20, 0, 0, 0, time.UTC) },
	}
	if got := g.Today(); got != "2026-10-16" {
		t.Fatalf("Today() = %q; want 2026-10-16", got)
	}
}

func TestGate_Generate_SuccessWritesOnce(t *testing.T) {
	store := newFakeStore()
	f := &fakeFetcher{text: "news"}
	g := newTestGate(store, f, newFakeClock())

	st, err := g.Generate(context.Background(), domain.GenerationState{})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if st.Text != "news" || st.Date != "2026-10-15" || st.AttemptsToday != 1 {
		t.Fatalf("unexpected state: %+v", st)
	}
	if store.saves != 1 || store.records["2026-10-15"] != "news" {
		t.Fatalf("expected exactly one save of today's record, saves=%d records=%v", store.saves, store.records)
	}
	if len(f.prompts) != 1 || f.prompts[0] != "P" {
		t.Fatalf("fetcher prompts = %v", f.prompts)
	}
	if g.Phase() != PhaseIdle {
		t.Fatalf("phase should return to idle")
	}
}

func TestGate_Generate_BlockedByMemory(t *testing.T) {
	store := newFakeStore()
	f := &fakeFetcher{text: "news"}
	g := newTestGate(store, f, newFakeClock())

	in := domain.GenerationState{Date: "2026-10-15", Text: "held"}
	st, err := g.Generate(context.Background(), in)
	if !errors.Is(err, ErrBlocked) {
		t.Fatalf("expected ErrBlocked, got %v", err)
	}
	if st != in || f.count() != 0 || store.saves != 0 {
		t.Fatalf("blocked call must not fetch or write: st=%+v calls=%d saves=%d", st, f.count(), store.saves)
	}
}

func TestGate_Generate_BlockedByStoreHydrates(t *testing.T) {
	store := newFakeStore()
	store.records["2026-10-15"] = "from another session"
	f := &fakeFetcher{text: "news"}
	g := newTestGate(store, f, newFakeClock())

	st, err := g.Generate(context.Background(), domain.GenerationState{})
	if !errors.Is(err, ErrBlocked) {
		t.Fatalf("expected ErrBlocked, got %v", err)
	}
	if st.Text != "from another session" || f.count() != 0 {
		t.Fatalf("expected hydration without fetch: st=%+v calls=%d", st, f.count())
	}
	if st.AttemptsToday != 0 {
		t.Fatalf("blocked request is not an attempt, got %d", st.AttemptsToday)
	}
}

func TestGate_Generate_FailureDoesNotConsumeQuota(t *testing.T) {
	store := newFakeStore()
	f := &fakeFetcher{err: &agent.RemoteError{StatusCode: 500}}
	g := newTestGate(store, f, newFakeClock())

	st, err := g.Generate(context.Background(), domain.GenerationState{})
	var re *agent.RemoteError
	if !errors.As(err, &re) {
		t.Fatalf("expected RemoteError, got %v", err)
	}
	if st.HasText() || st.AttemptsToday != 1 || store.saves != 0 {
		t.Fatalf("failure must leave no result: st=%+v saves=%d", st, store.saves)
	}

	// Retry the same day is allowed and succeeds.
	f.err, f.text = nil, "second try"
	st, err = g.Generate(context.Background(), st)
	if err != nil || st.Text != "second try" || st.AttemptsToday != 2 {
		t.Fatalf("retry: st=%+v err=%v", st, err)
	}
	if f.count() != 2 || store.saves != 1 {
		t.Fatalf("calls=%d saves=%d", f.count(), store.saves)
	}
}

func TestGate_Generate_MalformedLeavesStateUnchanged(t *testing.T) {
	_, extractErr := agent.Extract([]byte(`{"agentReasoning": []}`), agent.DefaultMatch)
	store := newFakeStore()
	f := &fakeFetcher{err: extractErr}
	g := newTestGate(store, f, newFakeClock())

	st, err := g.Generate(context.Background(), domain.GenerationState{})
	var me *agent.MalformedResponseError
	if !errors.As(err, &me) {
		t.Fatalf("expected MalformedResponseError, got %v", err)
	}
	if st.HasText() || store.saves != 0 || len(store.dates()) != 0 {
		t.Fatalf("malformed response must not write: st=%+v saves=%d", st, store.saves)
	}
}

func TestGate_Generate_StoreLoadErrorSkipsFetch(t *testing.T) {
	store := newFakeStore()
	store.loadErr = errDisk
	f := &fakeFetcher{text: "news"}
	g := newTestGate(store, f, newFakeClock())

	_, err := g.Generate(context.Background(), domain.GenerationState{})
	if !errors.Is(err, errDisk) {
		t.Fatalf("expected wrapped store error, got %v", err)
	}
	if f.count() != 0 {
		t.Fatalf("must not fetch when the quota cannot be verified")
	}
	if g.Phase() != PhaseIdle {
		t.Fatalf("phase must be released on error")
	}
}

func TestGate_Generate_PurgeErrorIsNotFatal(t *testing.T) {
	store := newFakeStore()
	store.purgeErr = errDisk
	f := &fakeFetcher{text: "news"}
	g := newTestGate(store, f, newFakeClock())

	st, err := g.Generate(context.Background(), domain.GenerationState{})
	if err != nil || st.Text != "news" {
		t.Fatalf("purge failure should not fail generation: st=%+v err=%v", st, err)
	}
}

func TestGate_Generate_SaveErrorKeepsSessionResult(t *testing.T) {
	store := newFakeStore()
	store.saveErr = errDisk
	f := &fakeFetcher{text: "news"}
	g := newTestGate(store, f, newFakeClock())

	st, err := g.Generate(context.Background(), domain.GenerationState{})
	if err != nil || st.Text != "news" {
		t.Fatalf("st=%+v err=%v", st, err)
	}
	// The session still blocks a second remote call.
	if _, err := g.Generate(context.Background(), st); !errors.Is(err, ErrBlocked) {
		t.Fatalf("expected ErrBlocked, got %v", err)
	}
	if f.count() != 1 {
		t.Fatalf("calls=%d", f.count())
	}
}

func TestGate_Generate_SaveErrorStillBlocksOtherSessions(t *testing.T) {
	store := newFakeStore()
	store.saveErr = errDisk
	f := &fakeFetcher{text: "news"}
	g := newTestGate(store, f, newFakeClock())
	base := testutil.ToFloat64(generations.WithLabelValues(outcomeGeneratedUnsaved))

	if _, err := g.Generate(context.Background(), domain.GenerationState{}); err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if got := testutil.ToFloat64(generations.WithLabelValues(outcomeGeneratedUnsaved)); got != base+1 {
		t.Fatalf("generated_unsaved = %v; want %v", got, base+1)
	}

	// A fresh session sees the held result and is blocked without a fetch.
	st, err := g.Generate(context.Background(), domain.GenerationState{})
	if !errors.Is(err, ErrBlocked) || st.Text != "news" {
		t.Fatalf("fresh session: st=%+v err=%v", st, err)
	}
	if f.count() != 1 {
		t.Fatalf("calls=%d; want 1", f.count())
	}

	// Once the store recovers, the held result is written through.
	store.mu.Lock()
	store.saveErr = nil
	store.mu.Unlock()
	st, err = g.Hydrate(context.Background(), domain.GenerationState{})
	if err != nil || st.Text != "news" {
		t.Fatalf("Hydrate: st=%+v err=%v", st, err)
	}
	if store.records["2026-10-15"] != "news" {
		t.Fatalf("held result not persisted: %v", store.records)
	}

	// Clear drops it everywhere, so generation is allowed again.
	if _, err := g.Clear(context.Background(), st); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if _, err := g.Generate(context.Background(), domain.GenerationState{}); err != nil {
		t.Fatalf("Generate after clear: %v", err)
	}
	if f.count() != 2 {
		t.Fatalf("calls=%d; want 2", f.count())
	}
}

func TestGate_Generate_InProgress(t *testing.T) {
	store := newFakeStore()
	f := &fakeFetcher{text: "news", started: make(chan struct{}), release: make(chan struct{})}
	g := newTestGate(store, f, newFakeClock())

	done := make(chan error, 1)
	go func() {
		_, err := g.Generate(context.Background(), domain.GenerationState{})
		done <- err
	}()
	<-f.started

	if g.Phase() != PhaseFetching {
		t.Fatalf("expected fetching phase")
	}
	if _, err := g.Generate(context.Background(), domain.GenerationState{}); !errors.Is(err, ErrInProgress) {
		t.Fatalf("expected ErrInProgress, got %v", err)
	}

	close(f.release)
	if err := <-done; err != nil {
		t.Fatalf("first Generate: %v", err)
	}

	// Once finished, a fresh session is blocked by the store.
	if _, err := g.Generate(context.Background(), domain.GenerationState{}); !errors.Is(err, ErrBlocked) {
		t.Fatalf("expected ErrBlocked after completion, got %v", err)
	}
	if f.count() != 1 {
		t.Fatalf("calls=%d", f.count())
	}
}

func TestGate_Rollover_ResetsQuotaAndPurges(t *testing.T) {
	store := newFakeStore()
	f := &fakeFetcher{text: "day one"}
	clock := newFakeClock()
	g := newTestGate(store, f, clock)

	st, err := g.Generate(context.Background(), domain.GenerationState{})
	if err != nil {
		t.Fatalf("day one: %v", err)
	}

	clock.advance(24 * time.Hour)

	// Yesterday's state does not block.
	st, err = g.Hydrate(context.Background(), st)
	if err != nil || st.HasText() || st.Date != "2026-10-16" {
		t.Fatalf("rollover hydrate: st=%+v err=%v", st, err)
	}

	f.text = "day two"
	st, err = g.Generate(context.Background(), st)
	if err != nil || st.Text != "day two" {
		t.Fatalf("day two: st=%+v err=%v", st, err)
	}
	if got := store.dates(); len(got) != 1 || got[0] != "2026-10-16" {
		t.Fatalf("stale record not purged: %v", got)
	}
}

func TestGate_Clear(t *testing.T) {
	store := newFakeStore()
	f := &fakeFetcher{text: "news"}
	g := newTestGate(store, f, newFakeClock())

	st, _ := g.Generate(context.Background(), domain.GenerationState{})
	st, err := g.Clear(context.Background(), st)
	if err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if st.HasText() || st.AttemptsToday != 0 || st.Date != "2026-10-15" {
		t.Fatalf("expected empty state, got %+v", st)
	}
	if len(store.dates()) != 0 {
		t.Fatalf("record should be gone: %v", store.dates())
	}

	if _, err := g.Generate(context.Background(), st); err != nil {
		t.Fatalf("generate after clear: %v", err)
	}
	if f.count() != 2 {
		t.Fatalf("calls=%d", f.count())
	}
}

func TestGate_Clear_StoreError(t *testing.T) {
	store := newFakeStore()
	store.clearErr = errDisk
	g := newTestGate(store, &fakeFetcher{}, newFakeClock())

	in := domain.GenerationState{Date: "2026-10-15", Text: "x"}
	st, err := g.Clear(context.Background(), in)
	if !errors.Is(err, errDisk) || st != in {
		t.Fatalf("expected unchanged state and error, st=%+v err=%v", st, err)
	}
}

func TestPhase_String(t *testing.T) {
	if PhaseIdle.String() != "idle" || PhaseFetching.String() != "fetching" {
		t.Fatalf("unexpected phase names")
	}
}
