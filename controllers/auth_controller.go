package controllers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/cppla/nohand/middleware"
	"github.com/cppla/nohand/models"
	"github.com/cppla/nohand/services"
	"github.com/cppla/nohand/utils"
)

// AuthController handles registration, login and session endpoints.
type AuthController struct {
	users *services.UserService
	guard *utils.RegistrationGuard
}

// NewAuthController creates an AuthController. guard may be nil.
func NewAuthController(users *services.UserService, guard *utils.RegistrationGuard) *AuthController {
	return &AuthController{users: users, guard: guard}
}

type credentialsRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Register creates an account and signs it in.
func (a *AuthController) Register(ctx *gin.Context) {
	var req credentialsRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40001, "invalid request payload")
		return
	}

	ip := ctx.ClientIP()
	if err := a.guard.Allow(ctx.Request.Context(), ip); err != nil {
		if errors.Is(err, utils.ErrRegisterDailyLimit) {
			utils.Error(ctx, http.StatusTooManyRequests, 42921, err.Error())
			return
		}
		utils.Error(ctx, http.StatusTooManyRequests, 42910, err.Error())
		return
	}

	user, err := a.users.Register(ctx.Request.Context(), req.Username, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidUsername):
			utils.Error(ctx, http.StatusBadRequest, 40002, err.Error())
		case errors.Is(err, services.ErrInvalidPassword):
			utils.Error(ctx, http.StatusBadRequest, 40005, err.Error())
		case errors.Is(err, services.ErrUsernameTaken):
			utils.Error(ctx, http.StatusConflict, 40901, err.Error())
		case errors.Is(err, services.ErrUsernameReserved):
			utils.Error(ctx, http.StatusConflict, 40902, err.Error())
		default:
			utils.L().Errorf("register %q failed: %v", req.Username, err)
			utils.Error(ctx, http.StatusInternalServerError, 50001, "failed to create user")
		}
		return
	}
	a.guard.Succeeded(ctx.Request.Context(), ip)
	utils.L().Infow("user registered", "user_id", user.ID, "username", user.Username, "ip", ip)

	a.issueToken(ctx, user)
}

// Login verifies credentials and returns a bearer token.
func (a *AuthController) Login(ctx *gin.Context) {
	var req credentialsRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40003, "invalid request payload")
		return
	}

	user, err := a.users.Authenticate(ctx.Request.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, services.ErrInvalidCredentials) {
			utils.Error(ctx, http.StatusUnauthorized, 40106, "invalid username or password")
			return
		}
		utils.L().Errorf("login %q failed: %v", req.Username, err)
		utils.Error(ctx, http.StatusInternalServerError, 50002, "failed to load user")
		return
	}

	a.issueToken(ctx, user)
}

func (a *AuthController) issueToken(ctx *gin.Context, user *models.User) {
	role := utils.RoleMember
	if user.IsAdmin {
		role = utils.RoleAdmin
	}
	token, err := utils.GenerateToken(user.ID, user.Username, role, utils.TokenTTL)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50004, "failed to generate token")
		return
	}

	utils.Success(ctx, gin.H{
		"token": token,
		"user":  userResponse(*user),
	})
}

// Logout invalidates the token by blacklisting it until expiration.
func (a *AuthController) Logout(ctx *gin.Context) {
	token := ctx.GetString(middleware.ContextTokenKey)
	claims, err := utils.ParseToken(token)
	if err != nil {
		utils.Error(ctx, http.StatusUnauthorized, 40105, "invalid token")
		return
	}

	expiresAt := time.Now().Add(utils.TokenTTL)
	if claims.RegisteredClaims.ExpiresAt != nil {
		expiresAt = claims.RegisteredClaims.ExpiresAt.Time
	}

	utils.BlacklistToken(token, expiresAt)
	utils.Success(ctx, gin.H{"message": "logged out"})
}

// Me returns the authenticated user.
func (a *AuthController) Me(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	user, err := a.users.Get(ctx.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, services.ErrUserNotFound) {
			utils.Error(ctx, http.StatusNotFound, 40410, "user not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50010, "failed to load user")
		return
	}

	utils.Success(ctx, userResponse(*user))
}

func userResponse(user models.User) gin.H {
	return gin.H{
		"id":         user.ID,
		"username":   user.Username,
		"is_admin":   user.IsAdmin,
		"created_at": user.CreatedAt,
	}
}
