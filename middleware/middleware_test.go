package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cppla/nohand/config"
	"github.com/cppla/nohand/utils"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func setup(t *testing.T) {
	t.Helper()
	config.Set(config.AppConfig{JWTSecret: "mw-secret", AdminUsernames: []string{"root"}})
	utils.SetRedis(nil)
}

func newEngine(handlers ...gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	handlers = append(handlers, func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"user_id":  c.GetUint(ContextUserIDKey),
			"username": c.GetString(ContextUsernameKey),
		})
	})
	r.GET("/x", handlers...)
	return r
}

func get(r *gin.Engine, header string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthRequired(t *testing.T) {
	setup(t)
	r := newEngine(AuthRequired())

	token, err := utils.GenerateToken(3, "alice", utils.RoleMember, time.Hour)
	require.NoError(t, err)

	cases := []struct {
		name   string
		header string
		status int
		code   string
	}{
		{"missing", "", http.StatusUnauthorized, "40101"},
		{"wrong scheme", "Basic abc", http.StatusUnauthorized, "40102"},
		{"empty token", "Bearer  ", http.StatusUnauthorized, "40103"},
		{"garbage token", "Bearer abc.def.ghi", http.StatusUnauthorized, "40105"},
		{"valid", "Bearer " + token, http.StatusOK, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := get(r, tc.header)
			assert.Equal(t, tc.status, w.Code)
			if tc.code != "" {
				assert.Contains(t, w.Body.String(), tc.code)
			}
		})
	}

	w := get(r, "Bearer "+token)
	assert.Contains(t, w.Body.String(), `"username":"alice"`)

	expired, err := utils.GenerateToken(3, "alice", utils.RoleMember, -time.Minute)
	require.NoError(t, err)
	w = get(r, "Bearer "+expired)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "40106")

	utils.BlacklistToken(token, time.Now().Add(time.Hour))
	w = get(r, "Bearer "+token)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "40104")
}

func TestAdminRequired(t *testing.T) {
	setup(t)
	r := newEngine(AuthRequired(), AdminRequired())

	userToken, err := utils.GenerateToken(1, "alice", utils.RoleMember, time.Hour)
	require.NoError(t, err)
	// configured admin name without the stored role
	namedToken, err := utils.GenerateToken(2, "root", utils.RoleMember, time.Hour)
	require.NoError(t, err)
	adminToken, err := utils.GenerateToken(3, "ops", utils.RoleAdmin, time.Hour)
	require.NoError(t, err)

	assert.Equal(t, http.StatusForbidden, get(r, "Bearer "+userToken).Code)
	assert.Equal(t, http.StatusForbidden, get(r, "Bearer "+namedToken).Code)
	assert.Equal(t, http.StatusOK, get(r, "Bearer "+adminToken).Code)

	bare := newEngine(AdminRequired())
	assert.Equal(t, http.StatusUnauthorized, get(bare, "").Code)
}

func TestRateLimitPerMinute(t *testing.T) {
	setup(t)
	// burst of 2 for 4 per minute
	r := newEngine(RateLimitPerMinute(4))

	assert.Equal(t, http.StatusOK, get(r, "").Code)
	assert.Equal(t, http.StatusOK, get(r, "").Code)
	w := get(r, "")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Contains(t, w.Body.String(), "42901")

	// another instance owns its own buckets, even at the same rate
	other := newEngine(RateLimitPerMinute(4))
	assert.Equal(t, http.StatusOK, get(other, "").Code)
}

func TestLimiterSetEvictsIdleClients(t *testing.T) {
	set := newLimiterSet(2)
	start := time.Now()

	assert.True(t, set.allow("10.0.0.1", start))
	assert.False(t, set.allow("10.0.0.1", start))

	later := start.Add(limiterIdleTTL + time.Second)
	assert.True(t, set.allow("10.0.0.2", later))
	set.mu.Lock()
	_, kept := set.clients["10.0.0.1"]
	set.mu.Unlock()
	assert.False(t, kept)
}
