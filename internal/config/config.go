package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/leavedesk/leavedesk/store"
)

const envPrefix = "LEAVEDESK_"

type Config struct {
	Addr               string
	DBPath             string
	Backend            string
	JournalDir         string
	JournalMaxFileSize int64
	Verbose            bool
	LogLevel           string
	LogFormat          string
	StrictEmployeeRefs bool
	GuardTransitions   bool
	MaxBodyBytes       int64
	MetricsEnabled     bool
	ShutdownTimeout    time.Duration

	BackupS3Bucket    string
	BackupS3Region    string
	BackupS3Endpoint  string
	BackupS3PathStyle bool
	BackupS3Prefix    string
}

func Load() Config {
	return Config{
		Addr:               getEnv("ADDR", ":8080"),
		DBPath:             getEnv("DB_PATH", "leavedesk.db"),
		Backend:            getEnv("BACKEND", "bolt"),
		JournalDir:         getEnv("JOURNAL_DIR", ""),
		JournalMaxFileSize: int64(getEnvInt("JOURNAL_MAX_FILE_SIZE", 4*1024*1024)),
		Verbose:            getEnvBool("VERBOSE", false),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		LogFormat:          getEnv("LOG_FORMAT", "json"),
		StrictEmployeeRefs: getEnvBool("STRICT_EMPLOYEE_REFS", false),
		GuardTransitions:   getEnvBool("GUARD_TRANSITIONS", false),
		MaxBodyBytes:       int64(getEnvInt("MAX_BODY_BYTES", 65536)),
		MetricsEnabled:     getEnvBool("METRICS_ENABLED", true),
		ShutdownTimeout:    getEnvDuration("SHUTDOWN_TIMEOUT", 10*time.Second),

		BackupS3Bucket:    getEnv("BACKUP_S3_BUCKET", ""),
		BackupS3Region:    getEnv("BACKUP_S3_REGION", "us-east-1"),
		BackupS3Endpoint:  getEnv("BACKUP_S3_ENDPOINT", ""),
		BackupS3PathStyle: getEnvBool("BACKUP_S3_PATH_STYLE", false),
		BackupS3Prefix:    getEnv("BACKUP_S3_PREFIX", "leavedesk/"),
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(envPrefix + key); value != "" {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value := os.Getenv(envPrefix + key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvInt(key string, fallback int) int {
	value := os.Getenv(envPrefix + key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(envPrefix + key)
	if value == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func (c Config) Validate() error {
	backend, err := store.ParseBackend(c.Backend)
	if err != nil {
		return fmt.Errorf("LEAVEDESK_BACKEND: %w", err)
	}
	if backend != store.Memory && strings.TrimSpace(c.DBPath) == "" {
		return fmt.Errorf("LEAVEDESK_DB_PATH is required for the %v backend", backend)
	}
	if _, err := c.SlogLevel(); err != nil {
		return err
	}
	switch c.LogFormat {
	case "json", "text":
	default:
		return fmt.Errorf("LEAVEDESK_LOG_FORMAT must be json or text, got %q", c.LogFormat)
	}
	if c.MaxBodyBytes < 1024 {
		return fmt.Errorf("LEAVEDESK_MAX_BODY_BYTES must be at least 1024")
	}
	if c.JournalDir != "" && c.JournalMaxFileSize < 4096 {
		return fmt.Errorf("LEAVEDESK_JOURNAL_MAX_FILE_SIZE must be at least 4096")
	}
	if c.ShutdownTimeout <= 0 {
		return fmt.Errorf("LEAVEDESK_SHUTDOWN_TIMEOUT must be positive")
	}
	return nil
}

func (c Config) StoreBackend() store.Backend {
	b, _ := store.ParseBackend(c.Backend)
	return b
}

func (c Config) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("LEAVEDESK_LOG_LEVEL: %w", err)
	}
	return level, nil
}
