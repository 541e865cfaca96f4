package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cppla/nohand/services"
	"github.com/cppla/nohand/streak"
	"github.com/cppla/nohand/utils"
)

// LeaderboardController serves the public streak board.
type LeaderboardController struct {
	board *services.LeaderboardService
}

// NewLeaderboardController creates a new LeaderboardController instance.
func NewLeaderboardController(board *services.LeaderboardService) *LeaderboardController {
	return &LeaderboardController{board: board}
}

// GetLeaderboard returns every user ranked by status bucket and streak.
func (l *LeaderboardController) GetLeaderboard(ctx *gin.Context) {
	entries, err := l.board.Compute(ctx.Request.Context())
	if err != nil {
		utils.L().Errorf("leaderboard failed: %v", err)
		utils.Error(ctx, http.StatusInternalServerError, 50040, "failed to compute leaderboard")
		return
	}
	if entries == nil {
		entries = []streak.Entry{}
	}
	utils.Success(ctx, gin.H{"items": entries, "total": len(entries)})
}
