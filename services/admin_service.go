package services

import (
	"context"
	"time"

	"github.com/cppla/nohand/ledger"
	"github.com/cppla/nohand/observability"
	"github.com/cppla/nohand/store"
	"github.com/cppla/nohand/utils"
)

// StatsReader reports table sizes.
type StatsReader interface {
	Stats(ctx context.Context) (store.Stats, error)
}

// DebugInfo is the operator snapshot.
type DebugInfo struct {
	store.Stats
	Driver      string `json:"database_driver"`
	CurrentTime string `json:"current_time"`
	CurrentUser string `json:"current_user"`
}

// AdminService holds the administrative capabilities. Callers gate access.
type AdminService struct {
	ledger        *ledger.Ledger
	users         *UserService
	board         *LeaderboardService
	stats         StatsReader
	driver        string
	adminUsername string
	adminPassword string
}

// AdminOptions configures the account re-seeded after a reset.
type AdminOptions struct {
	Driver        string
	AdminUsername string
	AdminPassword string
}

func NewAdminService(l *ledger.Ledger, users *UserService, board *LeaderboardService, stats StatsReader, opts AdminOptions) *AdminService {
	return &AdminService{
		ledger:        l,
		users:         users,
		board:         board,
		stats:         stats,
		driver:        opts.Driver,
		adminUsername: opts.AdminUsername,
		adminPassword: opts.AdminPassword,
	}
}

// Reset wipes all data, then re-creates the configured admin account.
func (s *AdminService) Reset(ctx context.Context, by string) error {
	if err := s.ledger.WipeAll(ctx); err != nil {
		return err
	}
	observability.RecordWipe()
	if s.board != nil {
		s.board.Invalidate(ctx)
	}
	utils.L().Warnw("all data wiped", "by", by)

	if _, err := s.users.EnsureAdmin(ctx, s.adminUsername, s.adminPassword); err != nil {
		return err
	}
	return nil
}

// Debug returns counts and server time.
func (s *AdminService) Debug(ctx context.Context, currentUser string) (DebugInfo, error) {
	st, err := s.stats.Stats(ctx)
	if err != nil {
		return DebugInfo{}, err
	}
	return DebugInfo{
		Stats:       st,
		Driver:      s.driver,
		CurrentTime: time.Now().Format("2006-01-02 15:04:05"),
		CurrentUser: currentUser,
	}, nil
}
