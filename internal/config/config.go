// Package config loads and validates application configuration.
//
// Values come from three layers, later layers winning: built-in defaults, an
// optional YAML file named by CONFIG_FILE, and environment variables.
package config

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Storage backends accepted in STORAGE_BACKEND.
const (
	StorageLocal = "local"
	StorageS3    = "s3"
)

// Config holds all configuration values for the API server.
type Config struct {
	// Port is the TCP port the HTTP server listens on. Defaults to "8080".
	Port string `yaml:"port"`

	// DatabaseURL is the Postgres connection string. Required.
	DatabaseURL string `yaml:"database_url"`

	// LogLevel controls the minimum log level. Defaults to "info".
	// Valid values: debug, info, warn, error.
	LogLevel string `yaml:"log_level"`

	// CORSOrigins is the list of allowed cross-origin request origins.
	// Set CORS_ORIGINS to a comma-separated list to override.
	CORSOrigins []string `yaml:"cors_origins"`

	// MediaRoot is the directory the local backend writes uploads to, and
	// MediaURL the public prefix they are served under.
	MediaRoot string `yaml:"media_root"`
	MediaURL  string `yaml:"media_url"`

	// StorageBackend selects where images go: "local" (default) or "s3".
	StorageBackend string   `yaml:"storage_backend"`
	S3             S3Config `yaml:"s3"`

	// MaxBodyBytes caps JSON request bodies; MaxUploadBytes caps image uploads.
	MaxBodyBytes   int64 `yaml:"max_body_bytes"`
	MaxUploadBytes int64 `yaml:"max_upload_bytes"`

	// DBWaitTimeout is how long startup keeps retrying an unreachable database.
	DBWaitTimeout    time.Duration `yaml:"-"`
	DBWaitTimeoutRaw string        `yaml:"db_wait_timeout"`
}

// S3Config configures the S3 storage backend. Endpoint is only needed for
// S3-compatible services such as MinIO.
type S3Config struct {
	Bucket    string `yaml:"bucket"`
	Region    string `yaml:"region"`
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	PublicURL string `yaml:"public_url"`
}

func defaults() Config {
	return Config{
		Port:             "8080",
		LogLevel:         "info",
		CORSOrigins:      []string{"http://localhost:5173"},
		MediaRoot:        "media",
		MediaURL:         "/media/",
		StorageBackend:   StorageLocal,
		S3:               S3Config{Region: "us-east-1"},
		MaxBodyBytes:     1 << 20,
		MaxUploadBytes:   10 << 20,
		DBWaitTimeoutRaw: "30s",
	}
}

// Load builds the Config from defaults, the optional CONFIG_FILE and the
// environment. Returns an error listing any required values that are not set.
func Load() (Config, error) {
	cfg := defaults()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	var errs []string
	applyEnv(&cfg, &errs)

	d, err := time.ParseDuration(cfg.DBWaitTimeoutRaw)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid db_wait_timeout %q", cfg.DBWaitTimeoutRaw))
	}
	cfg.DBWaitTimeout = d

	if err := cfg.validate(); err != nil {
		errs = append(errs, err.Error())
	}
	if len(errs) > 0 {
		return Config{}, fmt.Errorf("invalid configuration: %s", strings.Join(errs, "; "))
	}
	return cfg, nil
}

// loadFile overlays the YAML file at path onto cfg. ${VAR} references in the
// file are replaced with environment values before parsing.
func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal([]byte(expandEnvVars(string(data))), cfg); err != nil {
		return fmt.Errorf("parsing config file: %w", err)
	}
	return nil
}

var envRefRe = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnvVars replaces ${VAR_NAME} with the variable's value, or "" when unset.
func expandEnvVars(s string) string {
	return envRefRe.ReplaceAllStringFunc(s, func(match string) string {
		return os.Getenv(envRefRe.FindStringSubmatch(match)[1])
	})
}

func applyEnv(cfg *Config, errs *[]string) {
	setString(&cfg.Port, "PORT")
	setString(&cfg.DatabaseURL, "DATABASE_URL")
	setString(&cfg.LogLevel, "LOG_LEVEL")
	if v := os.Getenv("CORS_ORIGINS"); v != "" {
		cfg.CORSOrigins = splitCSV(v)
	}
	setString(&cfg.MediaRoot, "MEDIA_ROOT")
	setString(&cfg.MediaURL, "MEDIA_URL")
	setString(&cfg.StorageBackend, "STORAGE_BACKEND")
	setString(&cfg.S3.Bucket, "S3_BUCKET")
	setString(&cfg.S3.Region, "S3_REGION")
	setString(&cfg.S3.Endpoint, "S3_ENDPOINT")
	setString(&cfg.S3.AccessKey, "S3_ACCESS_KEY")
	setString(&cfg.S3.SecretKey, "S3_SECRET_KEY")
	setString(&cfg.S3.PublicURL, "S3_PUBLIC_URL")
	setString(&cfg.DBWaitTimeoutRaw, "DB_WAIT_TIMEOUT")

	setInt64(&cfg.MaxBodyBytes, "MAX_BODY_BYTES", errs)
	setInt64(&cfg.MaxUploadBytes, "MAX_UPLOAD_BYTES", errs)
}

func (c Config) validate() error {
	var problems []string
	if c.DatabaseURL == "" {
		problems = append(problems, "DATABASE_URL is required")
	}
	switch c.StorageBackend {
	case StorageLocal:
		if c.MediaRoot == "" {
			problems = append(problems, "MEDIA_ROOT is required for local storage")
		}
	case StorageS3:
		if c.S3.Bucket == "" {
			problems = append(problems, "S3_BUCKET is required for s3 storage")
		}
	default:
		problems = append(problems, fmt.Sprintf("STORAGE_BACKEND must be %q or %q, got %q", StorageLocal, StorageS3, c.StorageBackend))
	}
	if c.MaxBodyBytes <= 0 || c.MaxUploadBytes <= 0 {
		problems = append(problems, "body size limits must be positive")
	}
	if len(problems) > 0 {
		return fmt.Errorf("%s", strings.Join(problems, "; "))
	}
	return nil
}

// setString overwrites *dst with the environment variable named by key when it
// is set and non-empty.
func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt64(dst *int64, key string, errs *[]string) {
	v := os.Getenv(key)
	if v == "" {
		return
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		*errs = append(*errs, fmt.Sprintf("%s must be an integer, got %q", key, v))
		return
	}
	*dst = n
}

// splitCSV splits a comma-separated string into a trimmed slice, ignoring empty entries.
func splitCSV(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if t := strings.TrimSpace(part); t != "" {
			out = append(out, t)
		}
	}
	return out
}
