// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for DailyRecord,
// the one-row-per-day cache of generated news.
//
// All functions are context-aware and accept a *gorm.DB handle. They follow
// the "thin repository" approach: no gating rules, only persistence.
//
// Error semantics:
//   - LoadRecord returns ErrNotFound when no row exists for the date.
//   - Deletes of missing rows are no-ops, not errors.
//   - Other DB errors are propagated unchanged.
package repo

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tbourn/go-news-generator/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound for convenience.
var ErrNotFound = gorm.ErrRecordNotFound

// ErrEmptyDate is returned when a blank date key is passed.
var ErrEmptyDate = errors.New("date key is empty")

// LoadRecord fetches the record stored for date, or ErrNotFound.
func LoadRecord(ctx context.Context, db *gorm.DB, date string) (*domain.DailyRecord, error) {
	if strings.TrimSpace(date) == "" {
		return nil, ErrEmptyDate
	}
	var rec domain.DailyRecord
	err := db.WithContext(ctx).Where("date = ?", date).First(&rec).Error
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// SaveRecord creates the record for date or overwrites its text.
func SaveRecord(ctx context.Context, db *gorm.DB, date, text string) error {
	if strings.TrimSpace(date) == "" {
		return ErrEmptyDate
	}
	now := time.Now().UTC()
	rec := &domain.DailyRecord{
		Date:      date,
		Text:      text,
		CreatedAt: now,
		UpdatedAt: now,
	}
	return db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "date"}},
			DoUpdates: clause.AssignmentColumns([]string{"text", "updated_at"}),
		}).
		Create(rec).Error
}

// DeleteRecord removes the record for date. Missing rows are not an error.
func DeleteRecord(ctx context.Context, db *gorm.DB, date string) error {
	if strings.TrimSpace(date) == "" {
		return ErrEmptyDate
	}
	return db.WithContext(ctx).
		Where("date = ?", date).
		Delete(&domain.DailyRecord{}).Error
}

// PurgeRecordsExcept deletes every record whose date differs from keepDate
// and returns how many rows were removed.
func PurgeRecordsExcept(ctx context.Context, db *gorm.DB, keepDate string) (int64, error) {
	res := db.WithContext(ctx).
		Where("date <> ?", keepDate).
		Delete(&domain.DailyRecord{})
	return res.RowsAffected, res.Error
}

