// Package domain defines the core models for the daily news generator. These
// types are shared across the repository, service, and HTTP layers.
//
// DailyRecord is the persisted, GORM-mapped result of one calendar day.
// GenerationState is the in-memory view a single session holds of that day.
package domain

import "time"

// DateLayout is the ISO calendar-date layout used for record keys.
const DateLayout = "2006-01-02"

// DateKey returns the record key (YYYY-MM-DD) for t in t's own location.
// Callers convert t to the service time zone first.
func DateKey(t time.Time) string {
	return t.Format(DateLayout)
}

// DailyRecord represents the single accepted generation for a calendar day.
//
// Fields:
//   - Date: ISO date key (YYYY-MM-DD); primary key, so at most one row per day.
//   - Text: raw generated text as returned by the remote agent.
//   - CreatedAt / UpdatedAt: timestamps managed by GORM.
type DailyRecord struct {
	Date      string    `json:"date"       gorm:"type:char(10);primaryKey"`
	Text      string    `json:"text"       gorm:"type:text;not null"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName returns the database table name for DailyRecord.
func (DailyRecord) TableName() string { return "daily_records" }

// GenerationState is the per-session view of the current day's generation.
//
// It mirrors, but is not identical to, the persisted DailyRecord: it also
// counts same-day attempts (including failed ones). An empty Text means no
// result is held. Date is the calendar day the state describes; a state whose
// Date differs from today is stale and is reset by ForDate.
type GenerationState struct {
	Date          string `json:"date,omitempty"`
	Text          string `json:"text,omitempty"`
	AttemptsToday int    `json:"attempts_today"`
}

// ForDate returns s unchanged when it already describes date, and an empty
// state for date otherwise (calendar rollover).
func (s GenerationState) ForDate(date string) GenerationState {
	if s.Date == date {
		return s
	}
	return GenerationState{Date: date}
}

// HasText reports whether the state holds a result for its day.
func (s GenerationState) HasText() bool { return s.Text != "" }

// WithText returns a copy of s holding text for date.
func (s GenerationState) WithText(date, text string) GenerationState {
	s = s.ForDate(date)
	s.Text = text
	return s
}
