// Package repo implements the data persistence layer for domain entities.
// This file provides FileStore, a directory-backed cache with one JSON file
// per calendar day (news_YYYY-MM-DD.json containing {"news": "..."}).
//
// FileStore is an alternative to the SQLite-backed record functions for
// deployments that only have a writable directory. Writes go through a temp
// file and rename so a crash never leaves a half-written record behind.
package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/tbourn/go-news-generator/internal/domain"
)

const (
	filePrefix = "news_"
	fileSuffix = ".json"
)

// fileRecord is the on-disk JSON shape of a daily record.
type fileRecord struct {
	News string `json:"news"`
}

// FileStore persists daily records as individual files under Dir.
//
// It is safe for concurrent use within one process. Across processes the
// last rename wins.
type FileStore struct {
	Dir string

	mu sync.Mutex
}

// NewFileStore creates dir (if needed) and returns a store rooted there.
func NewFileStore(dir string) (*FileStore, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("cache dir must not be empty")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}
	return &FileStore{Dir: dir}, nil
}

// path returns the file path for date after validating the key, so a
// malformed key can never escape Dir.
func (s *FileStore) path(date string) (string, error) {
	if _, err := time.Parse(domain.DateLayout, date); err != nil {
		return "", fmt.Errorf("invalid date key %q: %w", date, err)
	}
	return filepath.Join(s.Dir, filePrefix+date+fileSuffix), nil
}

// Load returns the text stored for date. A missing file is ("", false, nil).
func (s *FileStore) Load(_ context.Context, date string) (string, bool, error) {
	p, err := s.path(date)
	if err != nil {
		return "", false, err
	}
	data, err := os.ReadFile(p)
	if errors.Is(err, os.ErrNotExist) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("read record: %w", err)
	}
	var rec fileRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return "", false, fmt.Errorf("parse record %s: %w", filepath.Base(p), err)
	}
	if rec.News == "" {
		return "", false, nil
	}
	return rec.News, true, nil
}

// Save writes text as the record for date, replacing any previous file.
func (s *FileStore) Save(_ context.Context, date, text string) error {
	p, err := s.path(date)
	if err != nil {
		return err
	}
	data, err := json.Marshal(fileRecord{News: text})
	if err != nil {
		return fmt.Errorf("encode record: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tmp, err := os.CreateTemp(s.Dir, filePrefix+"*.tmp")
	if err != nil {
		return fmt.Errorf("create temp record: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write record: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close record: %w", err)
	}
	if err := os.Rename(tmpName, p); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("commit record: %w", err)
	}
	return nil
}

// Clear removes the record for date; a missing file is a no-op.
func (s *FileStore) Clear(_ context.Context, date string) error {
	p, err := s.path(date)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove record: %w", err)
	}
	return nil
}

// PurgeStale removes every record file except the one for keepDate and
// returns the number of files removed.
func (s *FileStore) PurgeStale(_ context.Context, keepDate string) (int64, error) {
	keep := filePrefix + keepDate + fileSuffix

	s.mu.Lock()
	defer s.mu.Unlock()

	matches, err := filepath.Glob(filepath.Join(s.Dir, filePrefix+"*"+fileSuffix))
	if err != nil {
		return 0, err
	}
	var removed int64
	for _, m := range matches {
		if filepath.Base(m) == keep {
			continue
		}
		if err := os.Remove(m); err != nil && !errors.Is(err, os.ErrNotExist) {
			return removed, fmt.Errorf("remove stale record: %w", err)
		}
		removed++
	}
	return removed, nil
}
