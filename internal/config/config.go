package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"

	applog "bankreport/internal/log"
	"bankreport/internal/services"
)

type Config struct {
	// HTTP Server
	Port           string `yaml:"port"`
	MaxUploadBytes int64  `yaml:"max_upload_bytes"`

	// Artifact folders
	UploadDir   string `yaml:"upload_dir"`
	DownloadDir string `yaml:"download_dir"`
	ChartsDir   string `yaml:"charts_dir"`

	// Report index
	IndexBackend string `yaml:"index_backend"`
	SQLiteDBPath string `yaml:"sqlite_db_path"`

	// AMQP, publishing is disabled when AMQPURL is empty
	AMQPURL      string `yaml:"amqp_url"`
	AMQPExchange string `yaml:"amqp_exchange"`
	AMQPQueue    string `yaml:"amqp_queue"`

	// Google Sheets summary export, disabled when GoogleSpreadsheetID is empty
	GoogleSpreadsheetID      string `yaml:"google_spreadsheet_id"`
	GoogleSheetName          string `yaml:"google_sheet_name"`
	GoogleServiceAccountJSON string `yaml:"-"`
	GoogleServiceAccountFile string `yaml:"google_service_account_file"`

	// Worker
	RetentionSchedule string        `yaml:"retention_schedule"`
	RetentionMaxAge   time.Duration `yaml:"retention_max_age"`

	// Monthly export cache
	CacheSize int           `yaml:"cache_size"`
	CacheTTL  time.Duration `yaml:"cache_ttl"`

	// Logging
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`

	fileErr error
}

// Defaults returns the configuration used when nothing is set.
func Defaults() *Config {
	return &Config{
		Port:           "8080",
		MaxUploadBytes: 32 << 20,

		UploadDir:   "./data/uploads",
		DownloadDir: "./data/downloads",
		ChartsDir:   "./data/charts",

		IndexBackend: "sqlite",
		SQLiteDBPath: "./data/bankreport.db",

		AMQPExchange: "bankreport",
		AMQPQueue:    "report_generated",

		GoogleSheetName: "Monthly Summary",

		RetentionSchedule: "@daily",
		RetentionMaxAge:   30 * 24 * time.Hour,

		CacheSize: 64,
		CacheTTL:  10 * time.Minute,

		LogLevel:  "info",
		LogFormat: "text",
	}
}

// Load builds the configuration from defaults, the optional YAML file named by
// CONFIG_FILE and the environment, in that order. A file that cannot be read is
// reported by Validate.
func Load() *Config {
	cfg := Defaults()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.overlayFile(path); err != nil {
			cfg.fileErr = err
		}
	}
	cfg.overlayEnv()
	return cfg
}

// LoadFile reads defaults overlaid with the YAML file at path, ignoring the
// environment.
func LoadFile(path string) (*Config, error) {
	cfg := Defaults()
	if err := cfg.overlayFile(path); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) overlayFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) overlayEnv() {
	c.Port = getEnv("PORT", c.Port)
	c.MaxUploadBytes = getEnvInt64("MAX_UPLOAD_BYTES", c.MaxUploadBytes)

	c.UploadDir = getEnv("UPLOAD_DIR", c.UploadDir)
	c.DownloadDir = getEnv("DOWNLOAD_DIR", c.DownloadDir)
	c.ChartsDir = getEnv("CHARTS_DIR", c.ChartsDir)

	c.IndexBackend = getEnv("INDEX_BACKEND", c.IndexBackend)
	c.SQLiteDBPath = getEnv("SQLITE_DB_PATH", c.SQLiteDBPath)

	c.AMQPURL = getEnv("AMQP_URL", c.AMQPURL)
	c.AMQPExchange = getEnv("AMQP_EXCHANGE", c.AMQPExchange)
	c.AMQPQueue = getEnv("AMQP_QUEUE", c.AMQPQueue)

	c.GoogleSpreadsheetID = getEnv("GOOGLE_SPREADSHEET_ID", c.GoogleSpreadsheetID)
	c.GoogleSheetName = getEnv("GOOGLE_SHEET_NAME", c.GoogleSheetName)
	c.GoogleServiceAccountJSON = getEnv("GOOGLE_SERVICE_ACCOUNT_JSON", c.GoogleServiceAccountJSON)
	c.GoogleServiceAccountFile = getEnv("GOOGLE_SERVICE_ACCOUNT_FILE", getEnv("GOOGLE_APPLICATION_CREDENTIALS", c.GoogleServiceAccountFile))

	c.RetentionSchedule = getEnv("RETENTION_SCHEDULE", c.RetentionSchedule)
	c.RetentionMaxAge = getEnvDuration("RETENTION_MAX_AGE", c.RetentionMaxAge)

	c.CacheSize = getEnvInt("CACHE_SIZE", c.CacheSize)
	c.CacheTTL = getEnvDuration("CACHE_TTL", c.CacheTTL)

	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
	c.LogFormat = getEnv("LOG_FORMAT", c.LogFormat)
}

// Paths returns the artifact folders handed to each statement run.
func (c *Config) Paths() services.Paths {
	return services.Paths{
		Uploads:   c.UploadDir,
		Downloads: c.DownloadDir,
		Charts:    c.ChartsDir,
	}
}

// SheetsEnabled reports whether the summary export to Google Sheets is configured.
func (c *Config) SheetsEnabled() bool {
	return c.GoogleSpreadsheetID != ""
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	if c.fileErr != nil {
		errors = append(errors, c.fileErr.Error())
	}

	// Validate port
	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if c.MaxUploadBytes < 1 {
		errors = append(errors, fmt.Sprintf("invalid max upload size %d: must be positive", c.MaxUploadBytes))
	}

	for name, dir := range map[string]string{"upload": c.UploadDir, "download": c.DownloadDir, "charts": c.ChartsDir} {
		if strings.TrimSpace(dir) == "" {
			errors = append(errors, fmt.Sprintf("%s directory cannot be empty", name))
		}
	}

	// Validate index backend
	validBackends := []string{"memory", "sqlite"}
	isValidBackend := false
	for _, backend := range validBackends {
		if c.IndexBackend == backend {
			isValidBackend = true
			break
		}
	}
	if !isValidBackend {
		errors = append(errors, fmt.Sprintf("invalid index backend '%s': must be one of %v", c.IndexBackend, validBackends))
	}

	if c.IndexBackend == "sqlite" {
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		} else {
			dir := filepath.Dir(c.SQLiteDBPath)
			if dir != "." && dir != "" {
				if _, err := os.Stat(dir); os.IsNotExist(err) {
					if err := os.MkdirAll(dir, 0755); err != nil {
						errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
					}
				}
			}
		}
	}

	// AMQP is optional; when set it must be complete
	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if c.SheetsEnabled() {
		if c.GoogleSheetName == "" {
			errors = append(errors, "Google Sheet name is required when a spreadsheet ID is set")
		}
		if c.GoogleServiceAccountJSON == "" && c.GoogleServiceAccountFile == "" {
			errors = append(errors, "either GOOGLE_SERVICE_ACCOUNT_JSON or GOOGLE_SERVICE_ACCOUNT_FILE must be provided for the sheets export")
		}
		if c.GoogleServiceAccountFile != "" {
			if _, err := os.Stat(c.GoogleServiceAccountFile); os.IsNotExist(err) {
				errors = append(errors, fmt.Sprintf("Google service account file does not exist: %s", c.GoogleServiceAccountFile))
			}
		}
	}

	// Validate worker configuration
	if _, err := cron.ParseStandard(c.RetentionSchedule); err != nil {
		errors = append(errors, fmt.Sprintf("invalid retention schedule '%s': %v", c.RetentionSchedule, err))
	}
	if c.RetentionMaxAge < time.Hour {
		errors = append(errors, fmt.Sprintf("invalid retention max age %v: must be at least 1 hour", c.RetentionMaxAge))
	}

	if c.CacheSize < 1 {
		errors = append(errors, fmt.Sprintf("invalid cache size %d: must be at least 1", c.CacheSize))
	}
	if c.CacheTTL < time.Second {
		errors = append(errors, fmt.Sprintf("invalid cache TTL %v: must be at least 1 second", c.CacheTTL))
	}

	if _, err := applog.ParseLevel(c.LogLevel); err != nil {
		errors = append(errors, err.Error())
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		errors = append(errors, fmt.Sprintf("invalid log format '%s': must be 'text' or 'json'", c.LogFormat))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.ParseInt(value, 10, 64); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
