package services

import (
	"context"
	"errors"
	"time"

	"github.com/cppla/nohand/ledger"
	"github.com/cppla/nohand/models"
	"github.com/cppla/nohand/observability"
	"github.com/cppla/nohand/streak"
	"github.com/cppla/nohand/utils"
)

// TodayView is a member's state for the current calendar day.
type TodayView struct {
	Date   string                `json:"date"`
	Record *models.CheckinRecord `json:"record"`
	// Streak is only non-zero when today's record is negative.
	Streak int `json:"streak"`
}

// CheckinService binds the ledger to the wall clock of the configured location.
type CheckinService struct {
	ledger *ledger.Ledger
	board  *LeaderboardService
	loc    *time.Location
	now    func() time.Time
}

// NewCheckinService creates the service. board may be nil.
func NewCheckinService(l *ledger.Ledger, board *LeaderboardService, loc *time.Location) *CheckinService {
	if loc == nil {
		loc = time.Local
	}
	return &CheckinService{ledger: l, board: board, loc: loc, now: time.Now}
}

// WithClock overrides the time source.
func (s *CheckinService) WithClock(now func() time.Time) *CheckinService {
	s.now = now
	return s
}

func (s *CheckinService) today() time.Time {
	return s.now().In(s.loc)
}

// CheckIn records today's status for userID. On ledger.ErrDuplicateCheckin
// the already stored record for today is returned along with the error.
func (s *CheckinService) CheckIn(ctx context.Context, userID uint, status models.Status) (*models.CheckinRecord, error) {
	today := s.today()
	rec, err := s.ledger.Record(ctx, userID, today, status)
	if err != nil {
		switch {
		case errors.Is(err, ledger.ErrDuplicateCheckin):
			observability.RecordRejection("duplicate")
			existing, gerr := s.ledger.Get(ctx, userID, today)
			if gerr != nil {
				return nil, gerr
			}
			return existing, err
		case errors.Is(err, ledger.ErrInvalidStatus):
			observability.RecordRejection("invalid_status")
		case errors.Is(err, ledger.ErrUnknownUser):
			observability.RecordRejection("unknown_user")
		default:
			utils.L().Errorf("check-in failed user=%d: %v", userID, err)
		}
		return nil, err
	}

	observability.RecordCheckin(string(status))
	if s.board != nil {
		s.board.Invalidate(ctx)
	}
	utils.L().Infow("check-in recorded", "user_id", userID, "date", rec.CheckinDate, "status", rec.Status)
	return rec, nil
}

// Today returns today's record of userID and, when it is negative, the current streak.
func (s *CheckinService) Today(ctx context.Context, userID uint) (TodayView, error) {
	today := s.today()
	view := TodayView{Date: models.FormatDate(today)}

	rec, err := s.ledger.Get(ctx, userID, today)
	if err != nil {
		return TodayView{}, err
	}
	view.Record = rec
	if rec == nil || rec.Status != models.StatusNegative {
		return view, nil
	}

	hist, err := s.ledger.History(ctx, userID)
	if err != nil {
		return TodayView{}, err
	}
	view.Streak = streak.CurrentStreak(hist)
	return view, nil
}

// History returns every record of userID, newest first.
func (s *CheckinService) History(ctx context.Context, userID uint) ([]models.CheckinRecord, error) {
	return s.ledger.History(ctx, userID)
}
