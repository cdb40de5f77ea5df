package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds the server configuration
type Config struct {
	BaseURL    string        `yaml:"base_url"`
	ListenAddr string        `yaml:"listen_addr"`
	Storage    StorageConfig `yaml:"storage"`
	Limits     LimitsConfig  `yaml:"limits"`
	Auth       AuthConfig    `yaml:"auth"`
	Local      LocalConfig   `yaml:"local"`
	CORS       CORSConfig    `yaml:"cors"`
	Log        LogConfig     `yaml:"log"`
}

// StorageConfig selects where uploads live
type StorageConfig struct {
	Type string `yaml:"type"` // "filesystem" or "s3"
	// For filesystem storage
	Path string `yaml:"path"`
	// For S3-compatible storage
	Endpoint        string `yaml:"endpoint"`
	Bucket          string `yaml:"bucket"`
	Prefix          string `yaml:"prefix"`
	Region          string `yaml:"region"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
}

// LimitsConfig holds size limits
type LimitsConfig struct {
	MaxFileSize string `yaml:"max_file_size"` // e.g., "100MB", "1GB", "0" for unlimited
}

// AuthConfig holds the admin secret
type AuthConfig struct {
	AdminSecret string `yaml:"admin_secret"`
	// AllowQueryToken accepts ?admin=<token>. Tokens in URLs end up in
	// access logs and browser history.
	AllowQueryToken bool `yaml:"allow_query_token"`
}

// LocalConfig lists the host directories the local-directory source may read
type LocalConfig struct {
	Roots []string `yaml:"roots"`
}

// CORSConfig holds allowed origins for the JSON API
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// LogConfig controls the zap logger
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // "json" or "console"
}

// Load reads configuration from path. An empty path falls back to
// MEDIA_CONFIG and then ./config.yaml; a missing file yields defaults.
// Environment variables (optionally from .env) override file values.
func Load(path string) (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	if path == "" {
		path = os.Getenv("MEDIA_CONFIG")
	}
	if path == "" {
		path = "config.yaml"
	}

	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	case os.IsNotExist(err):
	default:
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	cfg.applyEnv()
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func defaultConfig() *Config {
	return &Config{
		BaseURL:    "http://localhost:5000",
		ListenAddr: ":5000",
		Storage: StorageConfig{
			Type: "filesystem",
			Path: "./cloud_uploads",
		},
		Limits: LimitsConfig{
			MaxFileSize: "0",
		},
		CORS: CORSConfig{
			AllowedOrigins: []string{"*"},
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

func (c *Config) applyEnv() {
	if v := os.Getenv("MEDIA_LISTEN_ADDR"); v != "" {
		c.ListenAddr = v
	}
	if v := os.Getenv("MEDIA_UPLOAD_DIR"); v != "" {
		c.Storage.Path = v
	}
	if v := os.Getenv("MEDIA_ADMIN_SECRET"); v != "" {
		c.Auth.AdminSecret = v
	}
	if v := os.Getenv("MEDIA_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("MEDIA_ALLOW_QUERY_TOKEN"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Auth.AllowQueryToken = b
		}
	}
}

func (c *Config) applyDefaults() {
	if c.ListenAddr == "" {
		c.ListenAddr = ":5000"
	}
	if c.Storage.Type == "" {
		c.Storage.Type = "filesystem"
	}
	if c.Storage.Type == "filesystem" && c.Storage.Path == "" {
		c.Storage.Path = "./cloud_uploads"
	}
	if c.Limits.MaxFileSize == "" {
		c.Limits.MaxFileSize = "0"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "console"
	}
}

// Validate checks settings that cannot be defaulted
func (c *Config) Validate() error {
	switch c.Storage.Type {
	case "filesystem":
	case "s3":
		if c.Storage.Bucket == "" {
			return fmt.Errorf("storage.bucket is required for s3 storage")
		}
	default:
		return fmt.Errorf("unknown storage type: %s", c.Storage.Type)
	}
	if ParseSize(c.Limits.MaxFileSize) < 0 {
		return fmt.Errorf("invalid limits.max_file_size: %s", c.Limits.MaxFileSize)
	}
	return nil
}

// MaxFileSize returns the upload limit in bytes, 0 meaning unlimited
func (c *Config) MaxFileSize() int64 {
	return ParseSize(c.Limits.MaxFileSize)
}

// ParseSize converts size strings like "100MB", "1GB" to bytes.
// Unparseable input yields -1.
func ParseSize(s string) int64 {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" || s == "0" {
		return 0 // unlimited
	}

	multiplier := int64(1)

	switch {
	case strings.HasSuffix(s, "GB"):
		multiplier = 1024 * 1024 * 1024
		s = strings.TrimSuffix(s, "GB")
	case strings.HasSuffix(s, "MB"):
		multiplier = 1024 * 1024
		s = strings.TrimSuffix(s, "MB")
	case strings.HasSuffix(s, "KB"):
		multiplier = 1024
		s = strings.TrimSuffix(s, "KB")
	case strings.HasSuffix(s, "B"):
		s = strings.TrimSuffix(s, "B")
	}

	size, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || size < 0 {
		return -1
	}
	return size * multiplier
}
