package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// AppConfig holds environment driven configuration values.
// Secrets and host-specific paths should come from config/config.json or the
// environment; defaults here only cover local development.
type AppConfig struct {
	AppPort            string
	RateLimitPerMinute int
	AllowedOrigins     []string
	// Gin framework configuration
	GinMode string
	GinPath string
	// Redis for session metadata and counters
	RedisHost     string
	RedisPort     int
	RedisDB       int
	RedisPassword string
	// Logging configuration
	LogLevel      string
	LogPath       string
	LogMaxSizeMB  int
	LogMaxBackups int
	LogMaxAgeDays int
	LogCompress   bool
	// Upload engine
	ChunkStoragePath   string
	StoragePath        string
	MaxFileSizeMB      int
	SessionTimeoutSec  int
	RetentionDays      int
	CleanupIntervalSec int
	AllowedImageTypes  []string
	AllowedVideoTypes  []string
}

var cfg AppConfig
var loaded bool

// Load loads the application configuration. It should be called once during boot.
// Precedence: config/config.json -> defaults -> environment variable overrides.
func Load() AppConfig {
	if loaded {
		return cfg
	}

	_ = loadJSONConfig(filepath.Join("config", "config.json"), &cfg)
	applyDefaults(&cfg)
	applyEnvOverrides(&cfg)

	loaded = true
	return cfg
}

// Get returns the cached configuration, loading it if necessary.
func Get() AppConfig {
	if !loaded {
		return Load()
	}
	return cfg
}

// MaxFileSizeBytes returns the configured upload size ceiling in bytes.
func (c AppConfig) MaxFileSizeBytes() int64 {
	return int64(c.MaxFileSizeMB) * 1024 * 1024
}

// AllowedMimeTypes returns the image and video allow-lists merged.
func (c AppConfig) AllowedMimeTypes() []string {
	merged := make([]string, 0, len(c.AllowedImageTypes)+len(c.AllowedVideoTypes))
	merged = append(merged, c.AllowedImageTypes...)
	merged = append(merged, c.AllowedVideoTypes...)
	return merged
}

// loadJSONConfig reads JSON file into cfg if present. Returns error only for invalid JSON.
func loadJSONConfig(path string, out *AppConfig) error {
	f, err := os.Open(path)
	if err != nil {
		return nil // silently ignore missing file
	}
	defer f.Close()

	var raw map[string]any
	if err := json.NewDecoder(f).Decode(&raw); err != nil {
		return err
	}

	getString := func(m map[string]any, key string) string {
		if v, ok := m[key]; ok {
			if s, ok := v.(string); ok {
				return s
			}
		}
		return ""
	}
	getInt := func(m map[string]any, key string) int {
		if v, ok := m[key]; ok {
			switch t := v.(type) {
			case float64:
				return int(t)
			case int:
				return t
			}
		}
		return 0
	}
	getBool := func(m map[string]any, key string) bool {
		if v, ok := m[key]; ok {
			if b, ok := v.(bool); ok {
				return b
			}
		}
		return false
	}
	getStringSlice := func(m map[string]any, key string) []string {
		if v, ok := m[key]; ok {
			if arr, ok := v.([]any); ok {
				res := make([]string, 0, len(arr))
				for _, it := range arr {
					if s, ok := it.(string); ok {
						res = append(res, s)
					}
				}
				return res
			}
		}
		return nil
	}

	if app, ok := raw["app"].(map[string]any); ok {
		out.AppPort = getString(app, "AppPort")
		if v := getInt(app, "RateLimitPerMinute"); v != 0 {
			out.RateLimitPerMinute = v
		}
		if list := getStringSlice(app, "AllowedOrigins"); len(list) > 0 {
			out.AllowedOrigins = list
		}
	}

	if g, ok := raw["gin"].(map[string]any); ok {
		if v := getString(g, "Mode"); v != "" {
			out.GinMode = v
		}
		if v := getString(g, "LogPath"); v != "" {
			out.GinPath = v
		}
	}

	if rds, ok := raw["redis"].(map[string]any); ok {
		out.RedisHost = getString(rds, "RedisHost")
		if v := getInt(rds, "RedisPort"); v != 0 {
			out.RedisPort = v
		}
		if v := getInt(rds, "RedisDB"); v != 0 {
			out.RedisDB = v
		}
		out.RedisPassword = getString(rds, "RedisPassword")
	}

	if lg, ok := raw["log"].(map[string]any); ok {
		if v := getString(lg, "Level"); v != "" {
			out.LogLevel = v
		}
		if v := getString(lg, "Path"); v != "" {
			out.LogPath = v
		}
		if v := getInt(lg, "MaxSizeMB"); v != 0 {
			out.LogMaxSizeMB = v
		}
		if v := getInt(lg, "MaxBackups"); v != 0 {
			out.LogMaxBackups = v
		}
		if v := getInt(lg, "MaxAgeDays"); v != 0 {
			out.LogMaxAgeDays = v
		}
		out.LogCompress = getBool(lg, "Compress")
	}

	if up, ok := raw["upload"].(map[string]any); ok {
		if v := getString(up, "ChunkStoragePath"); v != "" {
			out.ChunkStoragePath = v
		}
		if v := getString(up, "StoragePath"); v != "" {
			out.StoragePath = v
		}
		if v := getInt(up, "MaxFileSizeMB"); v != 0 {
			out.MaxFileSizeMB = v
		}
		if v := getInt(up, "SessionTimeoutSec"); v != 0 {
			out.SessionTimeoutSec = v
		}
		if v := getInt(up, "RetentionDays"); v != 0 {
			out.RetentionDays = v
		}
		if v := getInt(up, "CleanupIntervalSec"); v != 0 {
			out.CleanupIntervalSec = v
		}
		if list := getStringSlice(up, "AllowedImageTypes"); len(list) > 0 {
			out.AllowedImageTypes = list
		}
		if list := getStringSlice(up, "AllowedVideoTypes"); len(list) > 0 {
			out.AllowedVideoTypes = list
		}
	}

	return nil
}

// applyDefaults sets sane defaults for zero-value fields.
func applyDefaults(c *AppConfig) {
	if c.AppPort == "" {
		c.AppPort = "8080"
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
	if c.RedisHost == "" {
		c.RedisHost = "127.0.0.1"
	}
	if c.RedisPort == 0 {
		c.RedisPort = 6379
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
	if c.ChunkStoragePath == "" {
		c.ChunkStoragePath = "var/chunks"
	}
	if c.StoragePath == "" {
		c.StoragePath = "var/uploads"
	}
	if c.MaxFileSizeMB == 0 {
		c.MaxFileSizeMB = 500
	}
	if c.SessionTimeoutSec == 0 {
		c.SessionTimeoutSec = 86400 // 24 hour retention for in-flight uploads
	}
	if c.RetentionDays == 0 {
		c.RetentionDays = 30
	}
	if c.CleanupIntervalSec == 0 {
		c.CleanupIntervalSec = 300
	}
	if len(c.AllowedImageTypes) == 0 {
		c.AllowedImageTypes = []string{"image/jpeg", "image/png", "image/gif", "image/webp"}
	}
	if len(c.AllowedVideoTypes) == 0 {
		c.AllowedVideoTypes = []string{"video/mp4", "video/quicktime", "video/webm"}
	}
}

// applyEnvOverrides maps known environment variables onto config values when present.
func applyEnvOverrides(c *AppConfig) {
	if v := os.Getenv("APP_PORT"); v != "" {
		c.AppPort = v
	}
	if v := os.Getenv("GIN_MODE"); v != "" {
		c.GinMode = v
	}
	if v := os.Getenv("GIN_PATH"); v != "" {
		c.GinPath = v
	}
	if v := os.Getenv("RATE_LIMIT_PER_MINUTE"); v != "" {
		c.RateLimitPerMinute = mustParseInt(v)
	}
	if v := os.Getenv("CORS_ALLOWED_ORIGINS"); v != "" {
		c.AllowedOrigins = splitAndTrim(v)
	}
	if v := os.Getenv("REDIS_HOST"); v != "" {
		c.RedisHost = v
	}
	if v := os.Getenv("REDIS_PORT"); v != "" {
		c.RedisPort = mustParseInt(v)
	}
	if v := os.Getenv("REDIS_DB"); v != "" {
		c.RedisDB = mustParseInt(v)
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		c.RedisPassword = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv("LOG_PATH"); v != "" {
		c.LogPath = v
	}
	if v := os.Getenv("LOG_MAX_SIZE_MB"); v != "" {
		c.LogMaxSizeMB = mustParseInt(v)
	}
	if v := os.Getenv("LOG_MAX_BACKUPS"); v != "" {
		c.LogMaxBackups = mustParseInt(v)
	}
	if v := os.Getenv("LOG_MAX_AGE_DAYS"); v != "" {
		c.LogMaxAgeDays = mustParseInt(v)
	}
	if v := os.Getenv("LOG_COMPRESS"); v != "" {
		c.LogCompress = v == "true"
	}
	if v := os.Getenv("CHUNK_STORAGE_PATH"); v != "" {
		c.ChunkStoragePath = v
	}
	if v := os.Getenv("STORAGE_PATH"); v != "" {
		c.StoragePath = v
	}
	if v := os.Getenv("MAX_FILE_SIZE_MB"); v != "" {
		c.MaxFileSizeMB = mustParseInt(v)
	}
	if v := os.Getenv("SESSION_TIMEOUT_SEC"); v != "" {
		c.SessionTimeoutSec = mustParseInt(v)
	}
	if v := os.Getenv("RETENTION_DAYS"); v != "" {
		c.RetentionDays = mustParseInt(v)
	}
	if v := os.Getenv("CLEANUP_INTERVAL_SEC"); v != "" {
		c.CleanupIntervalSec = mustParseInt(v)
	}
	if v := os.Getenv("ALLOWED_IMAGE_TYPES"); v != "" {
		c.AllowedImageTypes = splitAndTrim(v)
	}
	if v := os.Getenv("ALLOWED_VIDEO_TYPES"); v != "" {
		c.AllowedVideoTypes = splitAndTrim(v)
	}
}

func mustParseInt(val string) int {
	i, err := strconv.Atoi(val)
	if err != nil {
		panic("invalid integer value " + val + ": " + err.Error())
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
