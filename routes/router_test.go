package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cppla/nohand/config"
	"github.com/cppla/nohand/ledger"
	"github.com/cppla/nohand/models"
	"github.com/cppla/nohand/services"
	"github.com/cppla/nohand/store"
	"github.com/cppla/nohand/utils"
)

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type testApp struct {
	router *gin.Engine
	store  *store.MemoryStore
	ledger *ledger.Ledger
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	return newTestAppWithAdmin(t, "adminpass")
}

// newTestAppWithAdmin wires the app like main does; an empty password leaves the admin unseeded.
func newTestAppWithAdmin(t *testing.T, adminPassword string) *testApp {
	t.Helper()
	config.Set(config.AppConfig{
		JWTSecret:          "test-secret",
		GinMode:            "test",
		GinPath:            filepath.Join(t.TempDir(), "gin.log"),
		RateLimitPerMinute: 6000,
		AdminUsernames:     []string{"admin"},
		Timezone:           "UTC",
	})

	mr := miniredis.RunT(t)
	rc := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rc.Close() })
	utils.SetRedis(rc)

	s := store.NewMemoryStore()
	l := ledger.New(s)
	board := services.NewLeaderboardService(l, rc, time.Minute)
	users := services.NewUserService(s, services.UserOptions{Board: board, IsReserved: config.Get().IsAdmin})
	admin := services.NewAdminService(l, users, board, s, services.AdminOptions{
		Driver:        "memory",
		AdminUsername: "admin",
		AdminPassword: adminPassword,
	})
	_, err := users.EnsureAdmin(context.Background(), "admin", adminPassword)
	require.NoError(t, err)

	r := SetupRouter(Services{
		Users:         users,
		Checkins:      services.NewCheckinService(l, board, time.UTC),
		Leaderboard:   board,
		Admin:         admin,
		RegisterGuard: utils.NewRegistrationGuard(rc, 0, 0),
	})
	return &testApp{router: r, store: s, ledger: l}
}

func (a *testApp) do(t *testing.T, method, path, token string, body any) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)

	var env envelope
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	}
	return w, env
}

func (a *testApp) login(t *testing.T, path, username, password string) (string, uint) {
	t.Helper()
	w, env := a.do(t, http.MethodPost, path, "", gin.H{"username": username, "password": password})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var data struct {
		Token string `json:"token"`
		User  struct {
			ID uint `json:"id"`
		} `json:"user"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	require.NotEmpty(t, data.Token)
	return data.Token, data.User.ID
}

func TestHealthAndMetrics(t *testing.T) {
	app := newTestApp(t)

	w, env := app.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 0, env.Code)
	assert.NotEmpty(t, w.Header().Get(utils.RequestIDHeader))

	w, _ = app.do(t, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "nohand_ledger")

	w, env = app.do(t, http.MethodGet, "/api/v1/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, 40400, env.Code)
}

func TestRegisterAndLogin(t *testing.T) {
	app := newTestApp(t)

	token, id := app.login(t, "/api/v1/auth/register", "alice", "secret1")
	assert.NotZero(t, id)

	w, env := app.do(t, http.MethodPost, "/api/v1/auth/register", "", gin.H{"username": "alice", "password": "secret2"})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, 40901, env.Code)

	w, env = app.do(t, http.MethodPost, "/api/v1/auth/register", "", gin.H{"username": "al", "password": "secret2"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, 40002, env.Code)

	w, env = app.do(t, http.MethodPost, "/api/v1/auth/login", "", gin.H{"username": "alice", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, 40106, env.Code)

	token2, id2 := app.login(t, "/api/v1/auth/login", "alice", "secret1")
	assert.Equal(t, id, id2)

	w, env = app.do(t, http.MethodGet, "/api/v1/auth/me", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(env.Data), `"username":"alice"`)
	assert.Contains(t, string(env.Data), `"is_admin":false`)

	w, _ = app.do(t, http.MethodPost, "/api/v1/auth/logout", token2, nil)
	require.Equal(t, http.StatusOK, w.Code)
	w, env = app.do(t, http.MethodGet, "/api/v1/auth/me", token2, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, 40104, env.Code)
}

func TestCheckinFlow(t *testing.T) {
	app := newTestApp(t)
	token, id := app.login(t, "/api/v1/auth/register", "alice", "secret1")

	w, env := app.do(t, http.MethodPost, "/api/v1/checkins", "", gin.H{"status": "negative"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, 40101, env.Code)

	w, env = app.do(t, http.MethodPost, "/api/v1/checkins", token, gin.H{"status": "maybe"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, 40031, env.Code)

	// two prior days of a negative streak
	today := time.Now().UTC()
	for _, back := range []int{2, 1} {
		_, err := app.ledger.Record(context.Background(), id, today.AddDate(0, 0, -back), models.StatusNegative)
		require.NoError(t, err)
	}

	w, env = app.do(t, http.MethodPost, "/api/v1/checkins", token, gin.H{"status": "negative"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, string(env.Data), models.FormatDate(today))

	w, env = app.do(t, http.MethodPost, "/api/v1/checkins", token, gin.H{"status": "positive"})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, 40931, env.Code)
	assert.Contains(t, string(env.Data), `"status":"negative"`)

	w, env = app.do(t, http.MethodGet, "/api/v1/checkins/today", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var view services.TodayView
	require.NoError(t, json.Unmarshal(env.Data, &view))
	assert.Equal(t, 3, view.Streak)
	require.NotNil(t, view.Record)

	w, env = app.do(t, http.MethodGet, "/api/v1/checkins/history", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var hist struct {
		Items []models.CheckinRecord `json:"items"`
		Total int                    `json:"total"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &hist))
	require.Equal(t, 3, hist.Total)
	assert.Equal(t, models.FormatDate(today), hist.Items[0].CheckinDate)
}

func TestLeaderboardIsPublic(t *testing.T) {
	app := newTestApp(t)
	token, _ := app.login(t, "/api/v1/auth/register", "bob", "secret1")
	w, _ := app.do(t, http.MethodPost, "/api/v1/checkins", token, gin.H{"status": "negative"})
	require.Equal(t, http.StatusOK, w.Code)

	w, env := app.do(t, http.MethodGet, "/api/v1/leaderboard", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var board struct {
		Items []struct {
			Rank     int           `json:"rank"`
			Username string        `json:"username"`
			Status   models.Status `json:"status"`
			Days     int           `json:"days"`
		} `json:"items"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &board))
	require.Len(t, board.Items, 2)
	assert.Equal(t, "bob", board.Items[0].Username)
	assert.Equal(t, 1, board.Items[0].Days)
	assert.Equal(t, "admin", board.Items[1].Username)
	assert.Equal(t, models.StatusNone, board.Items[1].Status)
}

func TestAdminRoutes(t *testing.T) {
	app := newTestApp(t)
	userToken, _ := app.login(t, "/api/v1/auth/register", "carol", "secret1")
	adminToken, _ := app.login(t, "/api/v1/auth/login", "admin", "adminpass")

	w, env := app.do(t, http.MethodGet, "/api/v1/admin/debug", userToken, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, 40301, env.Code)

	w, _ = app.do(t, http.MethodPost, "/api/v1/admin/reset", userToken, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, env = app.do(t, http.MethodGet, "/api/v1/admin/debug", adminToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(env.Data), `"user_count":2`)
	assert.Contains(t, string(env.Data), `"current_user":"admin"`)

	w, _ = app.do(t, http.MethodPost, "/api/v1/admin/reset", adminToken, nil)
	require.Equal(t, http.StatusOK, w.Code)

	st, err := app.store.Stats(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 1, st.Users)
	assert.EqualValues(t, 0, st.Checkins)

	w, _ = app.do(t, http.MethodPost, "/api/v1/auth/login", "", gin.H{"username": "carol", "password": "secret1"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAdminNameCannotBeRegistered(t *testing.T) {
	app := newTestAppWithAdmin(t, "")
	victimToken, _ := app.login(t, "/api/v1/auth/register", "victim", "secret1")
	w, _ := app.do(t, http.MethodPost, "/api/v1/checkins", victimToken, gin.H{"status": "negative"})
	require.Equal(t, http.StatusOK, w.Code)

	for _, name := range []string{"admin", "ADMIN"} {
		w, env := app.do(t, http.MethodPost, "/api/v1/auth/register", "", gin.H{"username": name, "password": "attacker1"})
		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Equal(t, 40902, env.Code)
	}

	w, env := app.do(t, http.MethodPost, "/api/v1/admin/reset", victimToken, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, 40301, env.Code)

	st, err := app.store.Stats(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 1, st.Users)
	assert.EqualValues(t, 1, st.Checkins)
}

func TestAdminRightsComeFromStoredAccount(t *testing.T) {
	app := newTestApp(t)

	// a member token that merely carries an admin username is not enough
	forged, err := utils.GenerateToken(999, "admin", utils.RoleMember, time.Hour)
	require.NoError(t, err)
	w, _ := app.do(t, http.MethodGet, "/api/v1/admin/debug", forged, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	adminToken, _ := app.login(t, "/api/v1/auth/login", "admin", "adminpass")
	w, env := app.do(t, http.MethodGet, "/api/v1/auth/me", adminToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(env.Data), `"is_admin":true`)
}

func TestRegisterShowsOnCachedLeaderboard(t *testing.T) {
	app := newTestApp(t)

	w, env := app.do(t, http.MethodGet, "/api/v1/leaderboard", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(env.Data), `"total":1`)

	app.login(t, "/api/v1/auth/register", "dora", "secret1")

	w, env = app.do(t, http.MethodGet, "/api/v1/leaderboard", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(env.Data), `"total":2`)
	assert.Contains(t, string(env.Data), `"username":"dora"`)
}
