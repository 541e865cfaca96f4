package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cppla/nohand/services"
	"github.com/cppla/nohand/utils"
)

// AdminController exposes operator endpoints. Routes are gated by AdminRequired.
type AdminController struct {
	admin *services.AdminService
}

func NewAdminController(admin *services.AdminService) *AdminController {
	return &AdminController{admin: admin}
}

// Reset wipes every user and check-in.
func (a *AdminController) Reset(ctx *gin.Context) {
	if err := a.admin.Reset(ctx.Request.Context(), getUsername(ctx)); err != nil {
		utils.L().Errorf("reset failed: %v", err)
		utils.Error(ctx, http.StatusInternalServerError, 50060, "failed to reset data")
		return
	}
	utils.Success(ctx, gin.H{"message": "all data has been reset"})
}

// Debug reports table sizes and server time.
func (a *AdminController) Debug(ctx *gin.Context) {
	info, err := a.admin.Debug(ctx.Request.Context(), getUsername(ctx))
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50061, "failed to load debug info")
		return
	}
	utils.Success(ctx, info)
}
