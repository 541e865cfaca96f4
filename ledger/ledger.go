// Package ledger enforces one check-in per user per calendar day and
// exposes the append and query operations over the check-in log.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/cppla/nohand/models"
	"github.com/cppla/nohand/store"
)

var (
	// ErrDuplicateCheckin is returned when the user already recorded that day.
	ErrDuplicateCheckin = errors.New("already checked in for this date")
	// ErrInvalidStatus is returned for a status outside the recordable set.
	ErrInvalidStatus = errors.New("invalid check-in status")
	// ErrUnknownUser is returned when the referenced user does not exist.
	ErrUnknownUser = errors.New("unknown user")
)

// Store is the persistence collaborator of the ledger.
// Insert must be an atomic insert-if-absent returning store.ErrUniqueViolation.
type Store interface {
	Get(ctx context.Context, userID uint, date string) (*models.CheckinRecord, error)
	Insert(ctx context.Context, rec *models.CheckinRecord) error
	ListByUser(ctx context.Context, userID uint) ([]models.CheckinRecord, error)
	ListAllUsers(ctx context.Context) ([]models.User, error)
	UserExists(ctx context.Context, userID uint) (bool, error)
	WipeAll(ctx context.Context) error
}

// LatestLister is implemented by stores able to fetch every user's newest
// record in one round trip.
type LatestLister interface {
	LatestPerUser(ctx context.Context) (map[uint]models.CheckinRecord, error)
}

// Ledger is the append-only check-in log.
type Ledger struct {
	store Store
}

// New creates a Ledger over s.
func New(s Store) *Ledger {
	return &Ledger{store: s}
}

// Record appends the status of userID for the calendar day of date.
// An existing record for that day is never overwritten.
func (l *Ledger) Record(ctx context.Context, userID uint, date time.Time, status models.Status) (*models.CheckinRecord, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}

	ok, err := l.store.UserExists(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrUnknownUser
	}

	rec := &models.CheckinRecord{
		UserID:      userID,
		CheckinDate: models.FormatDate(date),
		Status:      status,
	}
	if err := l.store.Insert(ctx, rec); err != nil {
		if errors.Is(err, store.ErrUniqueViolation) {
			return nil, ErrDuplicateCheckin
		}
		return nil, err
	}
	return rec, nil
}

// Get returns the record of userID for the calendar day of date, or nil.
func (l *Ledger) Get(ctx context.Context, userID uint, date time.Time) (*models.CheckinRecord, error) {
	return l.store.Get(ctx, userID, models.FormatDate(date))
}

// History returns every record of userID, most recent first.
// Each call issues a fresh query.
func (l *Ledger) History(ctx context.Context, userID uint) ([]models.CheckinRecord, error) {
	recs, err := l.store.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	sortNewestFirst(recs)
	return recs, nil
}

// AllUsersLatest pairs every known user with their most recent record.
func (l *Ledger) AllUsersLatest(ctx context.Context) ([]models.LatestCheckin, error) {
	users, err := l.store.ListAllUsers(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]models.LatestCheckin, 0, len(users))
	if ll, ok := l.store.(LatestLister); ok {
		latest, err := ll.LatestPerUser(ctx)
		if err != nil {
			return nil, err
		}
		for _, u := range users {
			entry := models.LatestCheckin{User: u}
			if rec, ok := latest[u.ID]; ok {
				entry.Record = &rec
			}
			out = append(out, entry)
		}
		return out, nil
	}

	for _, u := range users {
		hist, err := l.History(ctx, u.ID)
		if err != nil {
			return nil, err
		}
		entry := models.LatestCheckin{User: u}
		if len(hist) > 0 {
			entry.Record = &hist[0]
		}
		out = append(out, entry)
	}
	return out, nil
}

// WipeAll clears the whole store. Authorization is the caller's concern.
func (l *Ledger) WipeAll(ctx context.Context) error {
	return l.store.WipeAll(ctx)
}

func sortNewestFirst(recs []models.CheckinRecord) {
	sort.SliceStable(recs, func(i, j int) bool {
		return recs[i].CheckinDate > recs[j].CheckinDate
	})
}
