package main

import (
	"context"
	"time"

	"github.com/cppla/nohand/config"
	"github.com/cppla/nohand/ledger"
	"github.com/cppla/nohand/models"
	"github.com/cppla/nohand/routes"
	"github.com/cppla/nohand/services"
	"github.com/cppla/nohand/store"
	"github.com/cppla/nohand/utils"
)

// backend is what both store implementations provide.
type backend interface {
	ledger.Store
	services.UserRepository
	services.StatsReader
}

func main() {
	cfg := config.Load()

	// Initialize logger early
	if err := utils.InitLogger(cfg); err != nil {
		panic(err)
	}
	defer func() { _ = utils.Logger.Sync() }()

	var st backend
	db := config.InitDatabase(&models.User{}, &models.CheckinRecord{})
	if db != nil {
		st = store.NewGormStore(db)
	} else {
		utils.Sugar.Warn("using in-memory store, data is lost on restart")
		st = store.NewMemoryStore()
	}

	l := ledger.New(st)
	rc := utils.GetRedis()
	board := services.NewLeaderboardService(l, rc, cfg.LeaderboardCacheTTL())
	users := services.NewUserService(st, services.UserOptions{Board: board, IsReserved: cfg.IsAdmin})
	checkins := services.NewCheckinService(l, board, cfg.Location())

	adminName := ""
	if len(cfg.AdminUsernames) > 0 {
		adminName = cfg.AdminUsernames[0]
	}
	admin := services.NewAdminService(l, users, board, st, services.AdminOptions{
		Driver:        cfg.DBDriver,
		AdminUsername: adminName,
		AdminPassword: cfg.AdminPassword,
	})

	if adminName != "" && cfg.AdminPassword == "" {
		utils.Sugar.Warnf("ADMIN_PASSWORD is not set, admin account %s is not seeded and admin routes are closed", adminName)
	}
	if _, err := users.EnsureAdmin(context.Background(), adminName, cfg.AdminPassword); err != nil {
		utils.Sugar.Fatalf("seed admin: %v", err)
	}

	r := routes.SetupRouter(routes.Services{
		Users:         users,
		Checkins:      checkins,
		Leaderboard:   board,
		Admin:         admin,
		RegisterGuard: utils.NewRegistrationGuard(rc,
			time.Duration(cfg.RegisterCooldownSeconds)*time.Second, cfg.RegisterMaxPerIPPerDay),
	})

	closeDB := func() {
		if db == nil {
			return
		}
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}

	utils.Sugar.Infof("Starting server on port %s (graceful)", cfg.AppPort)
	if err := utils.GraceServer(":"+cfg.AppPort, r, closeDB); err != nil {
		utils.Sugar.Fatalf("server stopped with error: %v", err)
	}
}
