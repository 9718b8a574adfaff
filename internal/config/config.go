package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	defaultHTTPAddr         = ":8080"
	defaultDatabaseURL      = "file:linuxos.db"
	defaultJWTSecret        = "change-me-jwt-secret"
	defaultJWTAccessTTL     = "15m"
	defaultMediaRoot        = "./media"
	defaultMediaURL         = "/media/"
	defaultAttachmentMax    = "-1"
	defaultSizeForContent   = "{}"
	defaultUploadSessionTTL = "24h"
)

type Config struct {
	AppEnv      string
	HTTPAddr    string
	DatabaseURL string

	JWTSecret    string
	JWTAccessTTL time.Duration

	MediaRoot string
	MediaURL  string

	// AttachmentMaxSize is the global per-file bound in bytes, -1 for unlimited.
	AttachmentMaxSize int64
	// AttachmentSizeForContent overrides AttachmentMaxSize per content-type table name.
	AttachmentSizeForContent map[string]int64
	UploadSessionTTL         time.Duration

	CORSAllowedOrigins []string
}

func Load() (*Config, error) {
	cfg := &Config{}
	appEnv := strings.TrimSpace(os.Getenv("APP_ENV"))
	if appEnv == "" {
		appEnv = strings.TrimSpace(os.Getenv("ENV"))
	}
	if appEnv == "" {
		appEnv = "dev"
	}
	cfg.AppEnv = strings.ToLower(appEnv)

	cfg.HTTPAddr = strings.TrimSpace(getEnv("HTTP_ADDR", defaultHTTPAddr))
	cfg.DatabaseURL = strings.TrimSpace(getEnv("DATABASE_URL", defaultDatabaseURL))
	cfg.JWTSecret = strings.TrimSpace(getEnv("JWT_SECRET", defaultJWTSecret))
	cfg.MediaRoot = strings.TrimSpace(getEnv("MEDIA_ROOT", defaultMediaRoot))
	cfg.MediaURL = strings.TrimSpace(getEnv("MEDIA_URL", defaultMediaURL))

	for _, o := range strings.Split(os.Getenv("CORS_ALLOWED_ORIGINS"), ",") {
		if o = strings.TrimSpace(o); o != "" {
			cfg.CORSAllowedOrigins = append(cfg.CORSAllowedOrigins, o)
		}
	}

	var err error
	cfg.JWTAccessTTL, err = parseDurationEnv("JWT_ACCESS_TTL", defaultJWTAccessTTL)
	if err != nil {
		return nil, err
	}

	cfg.UploadSessionTTL, err = parseDurationEnv("UPLOAD_SESSION_TTL", defaultUploadSessionTTL)
	if err != nil {
		return nil, err
	}

	cfg.AttachmentMaxSize, err = parseInt64Env("ATTACHMENT_MAX_SIZE", defaultAttachmentMax)
	if err != nil {
		return nil, err
	}

	cfg.AttachmentSizeForContent, err = parseSizeMapEnv("ATTACHMENT_SIZE_FOR_CONTENT", defaultSizeForContent)
	if err != nil {
		return nil, err
	}

	if err := validateConfig(cfg); err != nil {
		return nil, err
	}

	log.Printf("attachment config: max_size=%d overrides=%d media_root=%s", cfg.AttachmentMaxSize, len(cfg.AttachmentSizeForContent), cfg.MediaRoot)

	return cfg, nil
}

func validateConfig(cfg *Config) error {
	if cfg.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL must not be empty")
	}
	if cfg.JWTAccessTTL <= 0 {
		return fmt.Errorf("JWT_ACCESS_TTL must be > 0")
	}
	if cfg.UploadSessionTTL <= 0 {
		return fmt.Errorf("UPLOAD_SESSION_TTL must be > 0")
	}
	if cfg.MediaRoot == "" {
		return fmt.Errorf("MEDIA_ROOT must not be empty")
	}
	if !strings.HasSuffix(cfg.MediaURL, "/") {
		return fmt.Errorf("MEDIA_URL must end with a slash")
	}
	for table := range cfg.AttachmentSizeForContent {
		if strings.TrimSpace(table) == "" {
			return fmt.Errorf("ATTACHMENT_SIZE_FOR_CONTENT contains an empty table name")
		}
	}

	if isProdLike(cfg.AppEnv) && isEmptyOrDefault(cfg.JWTSecret, defaultJWTSecret) {
		return fmt.Errorf("in prod/release JWT_SECRET must be set and not default")
	}

	return nil
}

func isProdLike(env string) bool {
	env = strings.ToLower(strings.TrimSpace(env))
	return env == "prod" || env == "production" || env == "release"
}

func isEmptyOrDefault(v, def string) bool {
	trimmed := strings.TrimSpace(v)
	return trimmed == "" || trimmed == def
}

func parseDurationEnv(name, fallback string) (time.Duration, error) {
	value := strings.TrimSpace(getEnv(name, fallback))
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", name, value, err)
	}
	return d, nil
}

func parseInt64Env(name, fallback string) (int64, error) {
	value := strings.TrimSpace(getEnv(name, fallback))
	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", name, value, err)
	}
	return n, nil
}

// parseSizeMapEnv reads a YAML mapping such as `{article_article: 1048576, photos: -1}`.
func parseSizeMapEnv(name, fallback string) (map[string]int64, error) {
	value := strings.TrimSpace(getEnv(name, fallback))
	sizes := map[string]int64{}
	if err := yaml.Unmarshal([]byte(value), &sizes); err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", name, value, err)
	}
	return sizes, nil
}

func getEnv(name, fallback string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return fallback
}
