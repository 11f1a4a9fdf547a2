package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration
type Config struct {
	Database  DatabaseConfig
	Server    ServerConfig
	OCR       OCRConfig
	Detection DetectionConfig
	Relevance RelevanceConfig
	Events    EventsConfig
	Logging   LoggingConfig
}

// DatabaseConfig holds catalog database configuration
type DatabaseConfig struct {
	Driver           string // postgres | sqlite
	DSN              string
	MaxConns         int32
	MinConns         int32
	MaxConnLifetime  time.Duration
	MaxConnIdleTime  time.Duration
	DialTimeout      time.Duration
	StatementTimeout time.Duration
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	GRPCAddr        string
	HTTPAddr        string
	MaxUploadBytes  int64
	ShutdownTimeout time.Duration
}

// OCRConfig holds text-extraction configuration
type OCRConfig struct {
	Pdftotext        string
	Pdftoppm         string
	Tesseract        string
	TesseractLang    string
	HeicConverter    string
	TessdataDir      string
	ArtifactCacheDir string
	DPI              int
	MaxPages         int

	// RemoteURL, when set, puts the remote extraction service in front of local OCR.
	RemoteURL     string
	RemoteAPIKey  string
	RemoteTimeout time.Duration
	RatePerSecond float64
	Burst         int
}

// DetectionConfig holds duplicate-detection thresholds and limits
type DetectionConfig struct {
	VisualThreshold       float64
	ContentThreshold      float64
	TemporalToleranceDays float64
	RecurringPeriodDays   float64
	RecurringWeight       float64
	MinOverall            float64
	Workers               int
	CandidateLimit        int
	LookbackDays          int
}

// RelevanceConfig holds relevance-scoring configuration
type RelevanceConfig struct {
	RulesPath  string // empty -> embedded defaults
	StrictMode bool
}

// EventsConfig holds decision-event publishing configuration
type EventsConfig struct {
	NATSURL string // empty disables publishing
	Subject string
}

type LoggingConfig struct {
	Level  string
	Format string // text | json
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Driver:           getEnv("DB_DRIVER", "postgres"),
			DSN:              getEnv("DB_URL", ""),
			MaxConns:         getEnvAsInt32("DB_MAX_CONNS", 20),
			MinConns:         getEnvAsInt32("DB_MIN_CONNS", 5),
			MaxConnLifetime:  getEnvAsDuration("DB_MAX_CONN_LIFETIME", 30*time.Minute),
			MaxConnIdleTime:  getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 5*time.Minute),
			DialTimeout:      getEnvAsDuration("DB_DIAL_TIMEOUT", 3*time.Second),
			StatementTimeout: getEnvAsDuration("DB_STATEMENT_TIMEOUT", 0),
		},
		Server: ServerConfig{
			GRPCAddr:        getEnv("GRPC_ADDR", ":8080"),
			HTTPAddr:        getEnv("HTTP_ADDR", ":8081"),
			MaxUploadBytes:  getEnvAsInt64("MAX_UPLOAD_BYTES", 50<<20),
			ShutdownTimeout: getEnvAsDuration("SHUTDOWN_TIMEOUT", 15*time.Second),
		},
		OCR: OCRConfig{
			Pdftotext:        getEnv("PDFTOTEXT_BIN", "pdftotext"),
			Pdftoppm:         getEnv("PDFTOPPM_BIN", "pdftoppm"),
			Tesseract:        getEnv("TESSERACT_BIN", "tesseract"),
			TesseractLang:    getEnv("TESSERACT_LANG", "eng"),
			HeicConverter:    getEnv("HEIC_CONVERTER", "magick"),
			TessdataDir:      getEnv("TESSDATA_PREFIX", ""),
			ArtifactCacheDir: getEnv("ARTIFACT_CACHE_DIR", ""),
			DPI:              getEnvAsInt("OCR_DPI", 300),
			MaxPages:         getEnvAsInt("OCR_MAX_PAGES", 0),
			RemoteURL:        getEnv("REMOTE_EXTRACT_URL", ""),
			RemoteAPIKey:     getEnv("REMOTE_EXTRACT_API_KEY", ""),
			RemoteTimeout:    getEnvAsDuration("REMOTE_EXTRACT_TIMEOUT", 60*time.Second),
			RatePerSecond:    getEnvAsFloat64("REMOTE_EXTRACT_RATE", 5),
			Burst:            getEnvAsInt("REMOTE_EXTRACT_BURST", 10),
		},
		Detection: DetectionConfig{
			VisualThreshold:       getEnvAsFloat64("DUP_VISUAL_THRESHOLD", 0.85),
			ContentThreshold:      getEnvAsFloat64("DUP_CONTENT_THRESHOLD", 0.8),
			TemporalToleranceDays: getEnvAsFloat64("DUP_TEMPORAL_TOLERANCE_DAYS", 35),
			RecurringPeriodDays:   getEnvAsFloat64("DUP_RECURRING_PERIOD_DAYS", 30),
			RecurringWeight:       getEnvAsFloat64("DUP_RECURRING_WEIGHT", 0.7),
			MinOverall:            getEnvAsFloat64("DUP_MIN_OVERALL", 0.6),
			Workers:               getEnvAsInt("DUP_WORKERS", 0),
			CandidateLimit:        getEnvAsInt("DUP_CANDIDATE_LIMIT", 200),
			LookbackDays:          getEnvAsInt("DUP_LOOKBACK_DAYS", 365),
		},
		Relevance: RelevanceConfig{
			RulesPath:  getEnv("RULES_PATH", ""),
			StrictMode: getEnvAsBool("STRICT_MODE", false),
		},
		Events: EventsConfig{
			NATSURL: getEnv("NATS_URL", ""),
			Subject: getEnv("NATS_SUBJECT", "docintel.decisions"),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "text"),
		},
	}
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsInt32(key string, defaultValue int32) int32 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 32); err == nil {
			return int32(intVal)
		}
	}
	return defaultValue
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsFloat64(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// Validate checks the loaded configuration. The database is only required when
// requireDB is set; local analysis runs without a catalog.
func (c *Config) Validate(requireDB bool) error {
	v := NewValidator()
	switch c.Database.Driver {
	case "postgres", "sqlite":
	default:
		v.Field("DB_DRIVER", c.Database.Driver, OneOf("postgres", "sqlite"))
	}
	if requireDB {
		v.Field("DB_URL", c.Database.DSN, Required)
	}
	v.Field("DUP_VISUAL_THRESHOLD", c.Detection.VisualThreshold, PositiveUnitInterval)
	v.Field("DUP_CONTENT_THRESHOLD", c.Detection.ContentThreshold, PositiveUnitInterval)
	v.Field("DUP_RECURRING_WEIGHT", c.Detection.RecurringWeight, PositiveUnitInterval)
	v.Field("DUP_MIN_OVERALL", c.Detection.MinOverall, PositiveUnitInterval)
	v.Field("LOG_FORMAT", strings.ToLower(c.Logging.Format), OneOf("text", "json"))
	if c.Detection.TemporalToleranceDays <= 0 || c.Detection.RecurringPeriodDays <= 0 {
		v.Field("DUP_RECURRING_PERIOD_DAYS", c.Detection.RecurringPeriodDays, func(f string, val interface{}) *ValidationError {
			return &ValidationError{Field: f, Value: val, Message: "recurring period and DUP_TEMPORAL_TOLERANCE_DAYS must be positive"}
		})
	}
	if c.Server.MaxUploadBytes <= 0 {
		v.Field("MAX_UPLOAD_BYTES", c.Server.MaxUploadBytes, func(f string, val interface{}) *ValidationError {
			return &ValidationError{Field: f, Value: val, Message: "must be positive"}
		})
	}
	if v.HasErrors() {
		return NewAppError("CONFIG_ERROR", v.ErrorMessage(), ErrInvalidInput)
	}
	if c.Events.NATSURL != "" && c.Events.Subject == "" {
		return NewAppError("CONFIG_ERROR", "NATS_SUBJECT is required when NATS_URL is set", ErrInvalidInput)
	}
	return nil
}

// String renders the config with secrets masked.
func (c *Config) String() string {
	return fmt.Sprintf("db=%s(%s) grpc=%s http=%s remote_extract=%t nats=%t rules=%q strict=%t",
		c.Database.Driver, maskDSN(c.Database.DSN), c.Server.GRPCAddr, c.Server.HTTPAddr,
		c.OCR.RemoteURL != "", c.Events.NATSURL != "", c.Relevance.RulesPath, c.Relevance.StrictMode)
}

func maskDSN(dsn string) string {
	at := strings.LastIndex(dsn, "@")
	scheme := strings.Index(dsn, "://")
	if at < 0 || scheme < 0 || at < scheme {
		return dsn
	}
	return dsn[:scheme+3] + "***" + dsn[at:]
}
