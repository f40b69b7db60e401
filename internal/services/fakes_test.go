package services

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"
)

// ----- Fake cache store -----

type fakeStore struct {
	mu      sync.Mutex
	records map[string]string

	saves  int
	purges int

	loadErr  error
	saveErr  error
	clearErr error
	purgeErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{records: map[string]string{}}
}

func (s *fakeStore) Load(_ context.Context, date string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loadErr != nil {
		return "", false, s.loadErr
	}
	t, ok := s.records[date]
	return t, ok, nil
}

func (s *fakeStore) Save(_ context.Context, date, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return s.saveErr
	}
	s.saves++
	s.records[date] = text
	return nil
}

func (s *fakeStore) Clear(_ context.Context, date string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.clearErr != nil {
		return s.clearErr
	}
	delete(s.records, date)
	return nil
}

func (s *fakeStore) PurgeStale(_ context.Context, keep string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.purges++
	if s.purgeErr != nil {
		return 0, s.purgeErr
	}
	var n int64
	for d := range s.records {
		if d != keep {
			delete(s.records, d)
			n++
		}
	}
	return n, nil
}

func (s *fakeStore) dates() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.records))
	for d := range s.records {
		out = append(out, d)
	}
	sort.Strings(out)
	return out
}

// ----- Fake fetcher -----

type fakeFetcher struct {
	mu        sync.Mutex
	calls     int
	successes int
	prompts   []string

	text string
	err  error

	// When set, Fetch signals started and waits for release.
	started chan struct{}
	release chan struct{}
}

func (f *fakeFetcher) Fetch(_ context.Context, prompt string) (string, error) {
	f.mu.Lock()
	f.calls++
	f.prompts = append(f.prompts, prompt)
	started, release := f.started, f.release
	text, err := f.text, f.err
	if err == nil {
		f.successes++
	}
	f.mu.Unlock()

	if started != nil {
		started <- struct{}{}
		<-release
	}
	if err != nil {
		return "", err
	}
	return text, nil
}

func (f *fakeFetcher) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// ----- Clock -----

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestGate(store CacheStore, f Fetcher, clock *fakeClock) *Gate {
	g := NewGate(store, f, "P", time.UTC)
	g.Now = clock.Now
	return g
}

var errDisk = errors.New("disk unavailable")
