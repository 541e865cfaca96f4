package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadJSONConfigGroupedSections(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"app": {"AppPort": "9000", "JWTSecret": "s3cret", "AllowedOrigins": ["https://a.example"]},
		"database": {"Driver": "sqlite", "Path": "/tmp/board.db"},
		"admin": {"Usernames": ["root", "ops"], "Password": "pw"},
		"checkin": {"Timezone": "Asia/Shanghai", "LeaderboardCacheSeconds": 30}
	}`), 0o600))

	var c AppConfig
	require.NoError(t, loadJSONConfig(path, &c))
	applyDefaults(&c)

	assert.Equal(t, "9000", c.AppPort)
	assert.Equal(t, "s3cret", c.JWTSecret)
	assert.Equal(t, []string{"https://a.example"}, c.AllowedOrigins)
	assert.Equal(t, "sqlite", c.DBDriver)
	assert.Equal(t, "/tmp/board.db", c.DBPath)
	assert.Equal(t, []string{"root", "ops"}, c.AdminUsernames)
	assert.Equal(t, 30*time.Second, c.LeaderboardCacheTTL())
	assert.Equal(t, 60, c.RateLimitPerMinute)
}

func TestLoadJSONConfigMissingAndInvalid(t *testing.T) {
	var c AppConfig
	assert.NoError(t, loadJSONConfig(filepath.Join(t.TempDir(), "absent.json"), &c))

	bad := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte("{not json"), 0o600))
	assert.Error(t, loadJSONConfig(bad, &c))
}

func TestEnvOverridesWin(t *testing.T) {
	t.Setenv("DB_DRIVER", "SQLITE")
	t.Setenv("ADMIN_USERNAMES", " alice , bob ,")
	t.Setenv("LEADERBOARD_CACHE_SECONDS", "5")
	t.Setenv("TIMEZONE", "UTC")

	c := AppConfig{DBDriver: "mysql", LeaderboardCacheSeconds: 60}
	applyEnvOverrides(&c)

	assert.Equal(t, "sqlite", c.DBDriver)
	assert.Equal(t, []string{"alice", "bob"}, c.AdminUsernames)
	assert.Equal(t, 5, c.LeaderboardCacheSeconds)
	assert.Equal(t, time.UTC, c.Location())
}

func TestIsAdmin(t *testing.T) {
	c := AppConfig{AdminUsernames: []string{"Admin", " ops "}}
	assert.True(t, c.IsAdmin("admin"))
	assert.True(t, c.IsAdmin("OPS"))
	assert.False(t, c.IsAdmin(""))
	assert.False(t, c.IsAdmin("alice"))
}

func TestLocationFallsBackToLocal(t *testing.T) {
	assert.Equal(t, time.Local, AppConfig{}.Location())
	assert.Equal(t, time.Local, AppConfig{Timezone: "Not/AZone"}.Location())
}

func TestOpenDialector(t *testing.T) {
	d, err := openDialector(AppConfig{DBDriver: "memory"})
	require.NoError(t, err)
	assert.Nil(t, d)

	d, err = openDialector(AppConfig{DBDriver: "sqlite", DBPath: "x.db"})
	require.NoError(t, err)
	assert.Equal(t, "sqlite", d.Name())

	_, err = openDialector(AppConfig{DBDriver: "oracle"})
	assert.Error(t, err)
}
