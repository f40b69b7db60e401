// Package services defines the business logic of the daily news generator.
// This file centralizes service-level error values so that they can be
// consistently returned by service methods and checked by callers.
//
// Translation into user-facing messages or HTTP status codes is performed at
// the session facade and handler layers.
package services

import "errors"

var (
	// ErrBlocked indicates the daily quota is already consumed: a result for
	// today exists in memory or in the cache store. It is informational, not
	// a failure; only an explicit clear allows a new generation.
	ErrBlocked = errors.New("already generated today, clear to regenerate")

	// ErrInProgress is returned when another generation is already fetching
	// in this process.
	ErrInProgress = errors.New("generation already in progress")
)
