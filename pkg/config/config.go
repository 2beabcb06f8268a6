package config

import (
	"errors"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database    DatabaseConfig
	Redis       RedisConfig
	Auth        AuthConfig
	CORS        CORSConfig
	Log         LogConfig
	LinkPreview LinkPreviewConfig
	Chat        ChatConfig
	Exports     ExportConfig
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
	AutoMigrate  bool
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// AuthConfig describes how tokens minted by the external identity provider are verified.
type AuthConfig struct {
	JWTSecret     string
	Issuer        string
	TeacherEmails []string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// LinkPreviewConfig configures the chat link preview providers.
type LinkPreviewConfig struct {
	Enabled     bool
	APIKey      string
	APIBaseURL  string
	OEmbedURL   string
	Timeout     time.Duration
	CacheTTL    time.Duration
	CachePrefix string
}

// ChatConfig configures message fan-out and the polling fallback.
type ChatConfig struct {
	RealtimeEnabled bool
	ChannelPrefix   string
	PollInterval    time.Duration
}

// ExportConfig controls progress report files and their signed download links.
type ExportConfig struct {
	StorageDir      string
	SignedURLSecret string
	SignedURLTTL    time.Duration
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
		AutoMigrate:  v.GetBool("DB_AUTO_MIGRATE"),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.Auth = AuthConfig{
		JWTSecret:     v.GetString("AUTH_JWT_SECRET"),
		Issuer:        v.GetString("AUTH_ISSUER"),
		TeacherEmails: splitAndTrim(v.GetString("TEACHER_EMAILS")),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.LinkPreview = LinkPreviewConfig{
		Enabled:     v.GetBool("ENABLE_LINKPREVIEW"),
		APIKey:      v.GetString("LINKPREVIEW_KEY"),
		APIBaseURL:  v.GetString("LINKPREVIEW_API_URL"),
		OEmbedURL:   v.GetString("YOUTUBE_OEMBED_URL"),
		Timeout:     parseDuration(v.GetString("LINKPREVIEW_TIMEOUT"), 5*time.Second),
		CacheTTL:    parseDuration(v.GetString("LINKPREVIEW_CACHE_TTL"), 10*time.Minute),
		CachePrefix: v.GetString("LINKPREVIEW_CACHE_PREFIX"),
	}

	cfg.Chat = ChatConfig{
		RealtimeEnabled: v.GetBool("ENABLE_CHAT_REALTIME"),
		ChannelPrefix:   v.GetString("CHAT_CHANNEL_PREFIX"),
		PollInterval:    parseDuration(v.GetString("CHAT_POLL_INTERVAL"), 6*time.Second),
	}

	cfg.Exports = ExportConfig{
		StorageDir:      v.GetString("EXPORTS_STORAGE_DIR"),
		SignedURLSecret: v.GetString("EXPORTS_SIGNED_URL_SECRET"),
		SignedURLTTL:    parseDuration(v.GetString("EXPORTS_SIGNED_URL_TTL"), 24*time.Hour),
	}

	return cfg, nil
}

// IsTeacherEmail reports whether the address belongs to the configured teacher roster.
func (c AuthConfig) IsTeacherEmail(email string) bool {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return false
	}
	for _, candidate := range c.TeacherEmails {
		if strings.ToLower(candidate) == email {
			return true
		}
	}
	return false
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "manabi")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)
	v.SetDefault("DB_AUTO_MIGRATE", true)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("AUTH_JWT_SECRET", "dev_secret")
	v.SetDefault("AUTH_ISSUER", "")
	v.SetDefault("TEACHER_EMAILS", "teacher@example.com")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("ENABLE_LINKPREVIEW", true)
	v.SetDefault("LINKPREVIEW_KEY", "")
	v.SetDefault("LINKPREVIEW_API_URL", "https://api.linkpreview.net/")
	v.SetDefault("YOUTUBE_OEMBED_URL", "https://www.youtube.com/oembed")
	v.SetDefault("LINKPREVIEW_TIMEOUT", "5s")
	v.SetDefault("LINKPREVIEW_CACHE_TTL", "10m")
	v.SetDefault("LINKPREVIEW_CACHE_PREFIX", "linkpreview:")

	v.SetDefault("ENABLE_CHAT_REALTIME", true)
	v.SetDefault("CHAT_CHANNEL_PREFIX", "chat:")
	v.SetDefault("CHAT_POLL_INTERVAL", "6s")

	v.SetDefault("EXPORTS_STORAGE_DIR", "./exports")
	v.SetDefault("EXPORTS_SIGNED_URL_SECRET", "dev_exports_secret")
	v.SetDefault("EXPORTS_SIGNED_URL_TTL", "24h")
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
