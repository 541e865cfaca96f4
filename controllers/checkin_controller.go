package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cppla/nohand/ledger"
	"github.com/cppla/nohand/models"
	"github.com/cppla/nohand/services"
	"github.com/cppla/nohand/utils"
)

// CheckinController handles daily check-in endpoints.
type CheckinController struct {
	checkins *services.CheckinService
}

// NewCheckinController creates a new controller instance.
func NewCheckinController(checkins *services.CheckinService) *CheckinController {
	return &CheckinController{checkins: checkins}
}

// CheckIn records today's status for the caller.
func (c *CheckinController) CheckIn(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	var req struct {
		Status string `json:"status" binding:"required"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40030, "invalid request payload")
		return
	}

	rec, err := c.checkins.CheckIn(ctx.Request.Context(), userID, models.Status(req.Status))
	if err != nil {
		switch {
		case errors.Is(err, ledger.ErrDuplicateCheckin):
			utils.Respond(ctx, http.StatusConflict, 40931, "already checked in today", rec)
		case errors.Is(err, ledger.ErrInvalidStatus):
			utils.Error(ctx, http.StatusBadRequest, 40031, "status must be negative or positive")
		case errors.Is(err, ledger.ErrUnknownUser):
			utils.Error(ctx, http.StatusNotFound, 40410, "user not found")
		default:
			utils.Error(ctx, http.StatusInternalServerError, 50030, "failed to record check-in")
		}
		return
	}

	utils.Success(ctx, rec)
}

// Today returns the caller's record for today and the current streak.
func (c *CheckinController) Today(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	view, err := c.checkins.Today(ctx.Request.Context(), userID)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50031, "failed to load today's check-in")
		return
	}
	utils.Success(ctx, view)
}

// History lists every check-in of the caller, newest first.
func (c *CheckinController) History(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	recs, err := c.checkins.History(ctx.Request.Context(), userID)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50032, "failed to load history")
		return
	}
	if recs == nil {
		recs = []models.CheckinRecord{}
	}
	utils.Success(ctx, gin.H{"items": recs, "total": len(recs)})
}
