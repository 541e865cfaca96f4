// Package store persists users and check-in records.
package store

import "errors"

var (
	// ErrUniqueViolation is returned when an insert collides with an existing key.
	ErrUniqueViolation = errors.New("unique constraint violation")
	// ErrNotFound is returned when a looked-up row does not exist.
	ErrNotFound = errors.New("record not found")
)

// Stats summarises table sizes.
type Stats struct {
	Users    int64 `json:"user_count"`
	Checkins int64 `json:"checkin_count"`
}
