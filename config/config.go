package config

import (
	"encoding/json"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// AppConfig holds environment driven configuration values.
// Secrets have no defaults in code and must come from the config file or the environment.
type AppConfig struct {
	AppPort            string
	JWTSecret          string
	RateLimitPerMinute int
	AllowedOrigins     []string
	AdminUsernames     []string
	// Database
	DBDriver    string
	DatabaseURI string
	DBHost      string
	DBPort      string
	DBUser      string
	DBPassword  string
	DBName      string
	// Redis backs the page cache, token blacklist and OAuth state when RedisHost is set
	RedisHost     string
	RedisPort     int
	RedisDB       int
	RedisPassword string
	// Feed and cache
	PostsPerPage    int
	PageCacheTTLSec int
	// Uploaded images
	MediaRoot string
	MediaURL  string
	// GitHub sign-in
	GitHubClientID     string
	GitHubClientSecret string
	OAuthRedirectBase  string
	// Gin framework configuration
	GinMode string
	GinPath string
	// Logging configuration
	LogLevel      string
	LogPath       string
	LogMaxSizeMB  int
	LogMaxBackups int
	LogMaxAgeDays int
	LogCompress   bool
}

// fileConfig mirrors the grouped layout of config/config.toml and config/config.json.
type fileConfig struct {
	App struct {
		AppPort            string   `toml:"AppPort" json:"AppPort"`
		JWTSecret          string   `toml:"JWTSecret" json:"JWTSecret"`
		RateLimitPerMinute int      `toml:"RateLimitPerMinute" json:"RateLimitPerMinute"`
		AllowedOrigins     []string `toml:"AllowedOrigins" json:"AllowedOrigins"`
		AdminUsernames     []string `toml:"AdminUsernames" json:"AdminUsernames"`
	} `toml:"app" json:"app"`
	Database struct {
		Driver      string `toml:"Driver" json:"Driver"`
		DatabaseURI string `toml:"DatabaseURI" json:"DatabaseURI"`
		DBHost      string `toml:"DBHost" json:"DBHost"`
		DBPort      string `toml:"DBPort" json:"DBPort"`
		DBUser      string `toml:"DBUser" json:"DBUser"`
		DBPassword  string `toml:"DBPassword" json:"DBPassword"`
		DBName      string `toml:"DBName" json:"DBName"`
	} `toml:"database" json:"database"`
	Redis struct {
		RedisHost     string `toml:"RedisHost" json:"RedisHost"`
		RedisPort     int    `toml:"RedisPort" json:"RedisPort"`
		RedisDB       int    `toml:"RedisDB" json:"RedisDB"`
		RedisPassword string `toml:"RedisPassword" json:"RedisPassword"`
	} `toml:"redis" json:"redis"`
	Feed struct {
		PostsPerPage    int `toml:"PostsPerPage" json:"PostsPerPage"`
		PageCacheTTLSec int `toml:"PageCacheTTLSec" json:"PageCacheTTLSec"`
	} `toml:"feed" json:"feed"`
	Media struct {
		Root string `toml:"Root" json:"Root"`
		URL  string `toml:"URL" json:"URL"`
	} `toml:"media" json:"media"`
	OAuth struct {
		GitHubClientID     string `toml:"GitHubClientID" json:"GitHubClientID"`
		GitHubClientSecret string `toml:"GitHubClientSecret" json:"GitHubClientSecret"`
		RedirectBase       string `toml:"RedirectBase" json:"RedirectBase"`
	} `toml:"oauth" json:"oauth"`
	Log struct {
		Level      string `toml:"Level" json:"Level"`
		Path       string `toml:"Path" json:"Path"`
		GinMode    string `toml:"GinMode" json:"GinMode"`
		GinPath    string `toml:"GinPath" json:"GinPath"`
		MaxSizeMB  int    `toml:"MaxSizeMB" json:"MaxSizeMB"`
		MaxBackups int    `toml:"MaxBackups" json:"MaxBackups"`
		MaxAgeDays int    `toml:"MaxAgeDays" json:"MaxAgeDays"`
		Compress   bool   `toml:"Compress" json:"Compress"`
	} `toml:"log" json:"log"`
}

var (
	cfg    AppConfig
	loaded bool
	mu     sync.RWMutex
)

// DefaultPath is the config file consulted when no explicit path is given.
var DefaultPath = filepath.Join("config", "config.toml")

// Load loads the application configuration. It should be called once during boot.
// Precedence: .env -> config file -> defaults -> environment variable overrides.
func Load() AppConfig {
	return LoadFile("")
}

// LoadFile is Load with an explicit config file path (toml or json).
func LoadFile(path string) AppConfig {
	mu.Lock()
	defer mu.Unlock()
	if loaded {
		return cfg
	}

	// .env is optional; a missing file is not an error
	_ = godotenv.Load()

	var c AppConfig
	if path == "" {
		path = DefaultPath
		if _, err := os.Stat(path); err != nil {
			path = filepath.Join("config", "config.json")
		}
	}
	if err := loadConfigFile(path, &c); err != nil {
		log.Fatalf("invalid config file %s: %v", path, err)
	}

	applyDefaults(&c)
	applyEnvOverrides(&c)

	if c.JWTSecret == "" {
		log.Fatal("JWT_SECRET must be set in the config file or environment variables")
	}

	cfg = c
	loaded = true
	return cfg
}

// Get returns the cached configuration, loading it if necessary.
func Get() AppConfig {
	mu.RLock()
	if loaded {
		defer mu.RUnlock()
		return cfg
	}
	mu.RUnlock()
	return Load()
}

// Set installs c as the active configuration after filling defaults. Used by tests and tools.
func Set(c AppConfig) AppConfig {
	mu.Lock()
	defer mu.Unlock()
	applyDefaults(&c)
	cfg = c
	loaded = true
	return cfg
}

// loadConfigFile reads a grouped config file into out. A missing file is ignored.
func loadConfigFile(path string, out *AppConfig) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil
	}

	var fc fileConfig
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		if err := json.Unmarshal(raw, &fc); err != nil {
			return err
		}
	default:
		if _, err := toml.Decode(string(raw), &fc); err != nil {
			return err
		}
	}

	out.AppPort = fc.App.AppPort
	out.JWTSecret = fc.App.JWTSecret
	out.RateLimitPerMinute = fc.App.RateLimitPerMinute
	out.AllowedOrigins = fc.App.AllowedOrigins
	out.AdminUsernames = fc.App.AdminUsernames

	out.DBDriver = fc.Database.Driver
	out.DatabaseURI = fc.Database.DatabaseURI
	out.DBHost = fc.Database.DBHost
	out.DBPort = fc.Database.DBPort
	out.DBUser = fc.Database.DBUser
	out.DBPassword = fc.Database.DBPassword
	out.DBName = fc.Database.DBName

	out.RedisHost = fc.Redis.RedisHost
	out.RedisPort = fc.Redis.RedisPort
	out.RedisDB = fc.Redis.RedisDB
	out.RedisPassword = fc.Redis.RedisPassword

	out.PostsPerPage = fc.Feed.PostsPerPage
	out.PageCacheTTLSec = fc.Feed.PageCacheTTLSec

	out.MediaRoot = fc.Media.Root
	out.MediaURL = fc.Media.URL

	out.GitHubClientID = fc.OAuth.GitHubClientID
	out.GitHubClientSecret = fc.OAuth.GitHubClientSecret
	out.OAuthRedirectBase = fc.OAuth.RedirectBase

	out.LogLevel = fc.Log.Level
	out.LogPath = fc.Log.Path
	out.GinMode = fc.Log.GinMode
	out.GinPath = fc.Log.GinPath
	out.LogMaxSizeMB = fc.Log.MaxSizeMB
	out.LogMaxBackups = fc.Log.MaxBackups
	out.LogMaxAgeDays = fc.Log.MaxAgeDays
	out.LogCompress = fc.Log.Compress
	return nil
}

// applyDefaults sets sane defaults for zero-value fields.
func applyDefaults(c *AppConfig) {
	if c.AppPort == "" {
		c.AppPort = "8000"
	}
	if c.GinMode == "" {
		c.GinMode = "release"
	}
	if c.GinPath == "" {
		c.GinPath = "logs/go_gin.log"
	}
	if c.RateLimitPerMinute == 0 {
		c.RateLimitPerMinute = 60
	}
	if len(c.AllowedOrigins) == 0 {
		c.AllowedOrigins = []string{"*"}
	}
	if c.OAuthRedirectBase == "" {
		c.OAuthRedirectBase = "http://localhost:" + c.AppPort
	}
	if c.DBDriver == "" {
		c.DBDriver = "sqlite"
	}
	if c.DBName == "" {
		c.DBName = "yatube"
	}
	if c.DBDriver == "mysql" {
		if c.DBHost == "" {
			c.DBHost = "127.0.0.1"
		}
		if c.DBPort == "" {
			c.DBPort = "3306"
		}
		if c.DBUser == "" {
			c.DBUser = "root"
		}
	}
	if c.DBDriver == "postgres" {
		if c.DBHost == "" {
			c.DBHost = "127.0.0.1"
		}
		if c.DBPort == "" {
			c.DBPort = "5432"
		}
		if c.DBUser == "" {
			c.DBUser = "postgres"
		}
	}
	if c.RedisHost != "" && c.RedisPort == 0 {
		c.RedisPort = 6379
	}
	if c.PostsPerPage == 0 {
		c.PostsPerPage = 10
	}
	if c.PageCacheTTLSec == 0 {
		c.PageCacheTTLSec = 20
	}
	if c.MediaRoot == "" {
		c.MediaRoot = "media"
	}
	if c.MediaURL == "" {
		c.MediaURL = "/media/"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.LogMaxSizeMB == 0 {
		c.LogMaxSizeMB = 100
	}
	if c.LogMaxBackups == 0 {
		c.LogMaxBackups = 3
	}
	if c.LogMaxAgeDays == 0 {
		c.LogMaxAgeDays = 7
	}
}

// applyEnvOverrides maps known environment variables onto config values when present.
func applyEnvOverrides(c *AppConfig) {
	if v := getEnv("APP_PORT", ""); v != "" {
		c.AppPort = v
	}
	if v := getEnv("JWT_SECRET", ""); v != "" {
		c.JWTSecret = v
	}
	if v := getEnv("RATE_LIMIT_PER_MINUTE", ""); v != "" {
		c.RateLimitPerMinute = mustParseInt(v)
	}
	if v := getEnv("CORS_ALLOWED_ORIGINS", ""); v != "" {
		c.AllowedOrigins = splitAndTrim(v)
	}
	if v := getEnv("ADMIN_USERNAMES", ""); v != "" {
		c.AdminUsernames = splitAndTrim(v)
	}
	if v := getEnv("DB_DRIVER", ""); v != "" {
		c.DBDriver = v
	}
	if v := getEnv("DATABASE_URI", ""); v != "" {
		c.DatabaseURI = v
	}
	if v := getEnv("DB_HOST", ""); v != "" {
		c.DBHost = v
	}
	if v := getEnv("DB_PORT", ""); v != "" {
		c.DBPort = v
	}
	if v := getEnv("DB_USER", ""); v != "" {
		c.DBUser = v
	}
	if v := getEnv("DB_PASSWORD", ""); v != "" {
		c.DBPassword = v
	}
	if v := getEnv("DB_NAME", ""); v != "" {
		c.DBName = v
	}
	if v := getEnv("REDIS_HOST", ""); v != "" {
		c.RedisHost = v
		if c.RedisPort == 0 {
			c.RedisPort = 6379
		}
	}
	if v := getEnv("REDIS_PORT", ""); v != "" {
		c.RedisPort = mustParseInt(v)
	}
	if v := getEnv("REDIS_DB", ""); v != "" {
		c.RedisDB = mustParseInt(v)
	}
	if v := getEnv("REDIS_PASSWORD", ""); v != "" {
		c.RedisPassword = v
	}
	if v := getEnv("POSTS_PER_PAGE", ""); v != "" {
		c.PostsPerPage = mustParseInt(v)
	}
	if v := getEnv("PAGE_CACHE_TTL_SEC", ""); v != "" {
		c.PageCacheTTLSec = mustParseInt(v)
	}
	if v := getEnv("MEDIA_ROOT", ""); v != "" {
		c.MediaRoot = v
	}
	if v := getEnv("MEDIA_URL", ""); v != "" {
		c.MediaURL = v
	}
	if v := getEnv("GITHUB_CLIENT_ID", ""); v != "" {
		c.GitHubClientID = v
	}
	if v := getEnv("GITHUB_CLIENT_SECRET", ""); v != "" {
		c.GitHubClientSecret = v
	}
	if v := getEnv("OAUTH_REDIRECT_BASE_URL", ""); v != "" {
		c.OAuthRedirectBase = v
	}
	if v := getEnv("GIN_MODE", ""); v != "" {
		c.GinMode = v
	}
	if v := getEnv("GIN_PATH", ""); v != "" {
		c.GinPath = v
	}
	if v := getEnv("LOG_LEVEL", ""); v != "" {
		c.LogLevel = v
	}
	if v := getEnv("LOG_PATH", ""); v != "" {
		c.LogPath = v
	}
	if v := getEnv("LOG_MAX_SIZE_MB", ""); v != "" {
		c.LogMaxSizeMB = mustParseInt(v)
	}
	if v := getEnv("LOG_MAX_BACKUPS", ""); v != "" {
		c.LogMaxBackups = mustParseInt(v)
	}
	if v := getEnv("LOG_MAX_AGE_DAYS", ""); v != "" {
		c.LogMaxAgeDays = mustParseInt(v)
	}
	if v := getEnv("LOG_COMPRESS", ""); v != "" {
		c.LogCompress = v == "true"
	}
}

// IsAdmin reports whether username is listed in AdminUsernames.
func (c AppConfig) IsAdmin(username string) bool {
	if username == "" {
		return false
	}
	for _, u := range c.AdminUsernames {
		if strings.EqualFold(strings.TrimSpace(u), username) {
			return true
		}
	}
	return false
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func mustParseInt(val string) int {
	i, err := strconv.Atoi(val)
	if err != nil {
		log.Fatalf("invalid integer value %s: %v", val, err)
	}
	return i
}

func splitAndTrim(raw string) []string {
	items := []string{}
	for _, item := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(item); trimmed != "" {
			items = append(items, trimmed)
		}
	}
	return items
}
