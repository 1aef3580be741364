package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func reset(t *testing.T) {
	t.Helper()
	mu.Lock()
	loaded = false
	cfg = AppConfig{}
	mu.Unlock()
	t.Cleanup(func() {
		mu.Lock()
		loaded = false
		mu.Unlock()
	})
}

const sampleTOML = `
[app]
AppPort = "9000"
JWTSecret = "from-file"
AdminUsernames = ["root", "boss"]

[database]
Driver = "postgres"
DBName = "blog"

[feed]
PostsPerPage = 5

[log]
Level = "debug"
`

func TestLoadFileTOML(t *testing.T) {
	reset(t)
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(sampleTOML), 0o600))

	c := LoadFile(path)
	assert.Equal(t, "9000", c.AppPort)
	assert.Equal(t, "from-file", c.JWTSecret)
	assert.Equal(t, "postgres", c.DBDriver)
	assert.Equal(t, "blog", c.DBName)
	assert.Equal(t, "5432", c.DBPort, "driver specific default")
	assert.Equal(t, 5, c.PostsPerPage)
	assert.Equal(t, 20, c.PageCacheTTLSec)
	assert.Equal(t, "/media/", c.MediaURL)
	assert.True(t, c.IsAdmin("Boss"))
	assert.False(t, c.IsAdmin("leo"))
	assert.False(t, c.IsAdmin(""))
	assert.Equal(t, c, Get())
}

func TestEnvOverridesFile(t *testing.T) {
	reset(t)
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"app":{"JWTSecret":"json-secret","AppPort":"7000"}}`), 0o600))
	t.Setenv("APP_PORT", "8081")
	t.Setenv("PAGE_CACHE_TTL_SEC", "45")
	t.Setenv("REDIS_HOST", "cache.local")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example")

	c := LoadFile(path)
	assert.Equal(t, "json-secret", c.JWTSecret)
	assert.Equal(t, "8081", c.AppPort)
	assert.Equal(t, 45, c.PageCacheTTLSec)
	assert.Equal(t, "cache.local", c.RedisHost)
	assert.Equal(t, 6379, c.RedisPort)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, c.AllowedOrigins)
	assert.Equal(t, "sqlite", c.DBDriver)
}

func TestSetFillsDefaults(t *testing.T) {
	reset(t)
	c := Set(AppConfig{JWTSecret: "x"})
	assert.Equal(t, "8000", c.AppPort)
	assert.Equal(t, 10, c.PostsPerPage)
	assert.Equal(t, 0, c.RedisPort, "no redis port without a redis host")
	assert.Equal(t, c, Get())
}

func TestOpenSQLite(t *testing.T) {
	type note struct {
		ID   uint
		Body string
	}
	conn, err := OpenDatabase(AppConfig{DBDriver: "sqlite", DatabaseURI: filepath.Join(t.TempDir(), "t.sqlite3"), LogLevel: "silent"})
	require.NoError(t, err)
	require.NoError(t, Migrate(conn, &note{}))
	require.NoError(t, conn.Create(&note{Body: "hi"}).Error)

	var n int64
	require.NoError(t, conn.Model(&note{}).Count(&n).Error)
	assert.Equal(t, int64(1), n)

	_, err = OpenDatabase(AppConfig{DBDriver: "oracle"})
	assert.Error(t, err)
}

func TestDuplicateKeyIsTranslated(t *testing.T) {
	type tag struct {
		ID   uint
		Slug string `gorm:"uniqueIndex"`
	}
	conn, err := OpenDatabase(AppConfig{DBDriver: "sqlite", DatabaseURI: filepath.Join(t.TempDir(), "t.sqlite3"), LogLevel: "silent"})
	require.NoError(t, err)
	require.NoError(t, Migrate(conn, &tag{}))
	require.NoError(t, conn.Create(&tag{Slug: "cats"}).Error)

	err = conn.Create(&tag{Slug: "cats"}).Error
	assert.ErrorIs(t, err, gorm.ErrDuplicatedKey)
}
