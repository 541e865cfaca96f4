// Package streak computes current streaks and the ranked leaderboard.
// Everything here is a pure function of its inputs.
package streak

import (
	"sort"

	"github.com/cppla/nohand/models"
)

// HistoryFunc returns a user's records, most recent first.
type HistoryFunc func(userID uint) ([]models.CheckinRecord, error)

// Entry is one leaderboard row.
type Entry struct {
	Rank     int           `json:"rank"`
	UserID   uint          `json:"user_id"`
	Username string        `json:"username"`
	Status   models.Status `json:"status"`
	Days     int           `json:"days"`
	LastDate *string       `json:"last_date"`
}

// CurrentStreak counts the leading run of negative records on consecutive
// calendar days. history must be ordered newest first.
func CurrentStreak(history []models.CheckinRecord) int {
	streak := 0
	prev := ""
	for _, rec := range history {
		if rec.Status != models.StatusNegative {
			break
		}
		if prev != "" && !models.DayBefore(rec.CheckinDate, prev) {
			break
		}
		streak++
		prev = rec.CheckinDate
	}
	return streak
}

// ComputeLeaderboard ranks every user: negative first by longest streak,
// then positive, then users without records. Ties break on username.
func ComputeLeaderboard(latest []models.LatestCheckin, history HistoryFunc) ([]Entry, error) {
	entries := make([]Entry, 0, len(latest))
	for _, l := range latest {
		e := Entry{
			UserID:   l.User.ID,
			Username: l.User.Username,
			Status:   models.StatusNone,
		}
		if l.Record != nil {
			e.Status = l.Record.Status
			d := l.Record.CheckinDate
			e.LastDate = &d
		}
		if e.Status == models.StatusNegative {
			hist, err := history(l.User.ID)
			if err != nil {
				return nil, err
			}
			e.Days = CurrentStreak(hist)
		}
		entries = append(entries, e)
	}

	sort.Slice(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if ba, bb := bucket(a.Status), bucket(b.Status); ba != bb {
			return ba < bb
		}
		if a.Days != b.Days {
			return a.Days > b.Days
		}
		if a.Username != b.Username {
			return a.Username < b.Username
		}
		return a.UserID < b.UserID
	})

	for i := range entries {
		entries[i].Rank = i + 1
	}
	return entries, nil
}

func bucket(s models.Status) int {
	switch s {
	case models.StatusNegative:
		return 0
	case models.StatusPositive:
		return 1
	default:
		return 2
	}
}
