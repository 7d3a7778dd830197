package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the checkpoint engine.
type Config struct {
	App     AppConfig
	Serial  SerialConfig
	Reader  ReaderConfig
	Capture CaptureConfig
	Logger  LoggerConfig
	Audit   AuditConfig
	API     APIConfig
}

// AppConfig identifies this checkpoint instance.
type AppConfig struct {
	Name       string
	Checkpoint string
	Env        string
}

// SerialConfig holds the fingerprint sensor transport settings.
type SerialConfig struct {
	Device        string
	Baud          int
	ReadTimeoutMS int
}

// ReaderConfig holds the proximity token reader transport settings.
type ReaderConfig struct {
	Device   string
	Baud     int
	ResetPin int
}

// CaptureConfig holds the polling and enrollment policy knobs.
type CaptureConfig struct {
	PollIntervalMS    int
	DefaultTimeoutSec int
	EnrollPauseSec    int
	SimImageDir       string
	MatchThreshold    float64
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level  string
	Format string
}

// AuditConfig holds the optional capture-event sink settings. Empty values
// disable the corresponding sink.
type AuditConfig struct {
	PostgresDSN   string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisChannel  string
	BufferSize    int
}

// APIConfig configures the optional serve-mode HTTP surface.
type APIConfig struct {
	Host                  string
	Port                  string
	AuthSecret            string
	TokenTTLMinutes       int
	RequestTimeoutSeconds int
}

// Load reads configuration from environment variables, applying defaults
// where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("AUDIT_REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid AUDIT_REDIS_DB: %w", err)
	}

	cfg := &Config{
		App: AppConfig{
			Name:       getEnv("APP_NAME", "checkpoint-capture"),
			Checkpoint: getEnv("CHECKPOINT_NAME", "checkpoint-0"),
			Env:        getEnv("APP_ENV", "development"),
		},
		Serial: SerialConfig{
			Device:        getEnv("FP_SERIAL_DEVICE", "/dev/serial0"),
			Baud:          getEnvAsInt("FP_SERIAL_BAUD", 57600),
			ReadTimeoutMS: getEnvAsInt("FP_SERIAL_READ_TIMEOUT_MS", 1000),
		},
		Reader: ReaderConfig{
			Device:   getEnv("RFID_SERIAL_DEVICE", "/dev/ttyUSB0"),
			Baud:     getEnvAsInt("RFID_SERIAL_BAUD", 9600),
			ResetPin: getEnvAsInt("RFID_RESET_PIN", 25),
		},
		Capture: CaptureConfig{
			PollIntervalMS:    getEnvAsInt("POLL_INTERVAL_MS", 500),
			DefaultTimeoutSec: getEnvAsInt("DEFAULT_TIMEOUT_SECONDS", 30),
			EnrollPauseSec:    getEnvAsInt("ENROLL_PAUSE_SECONDS", 2),
			SimImageDir:       getEnv("SIM_IMAGE_DIR", ""),
			MatchThreshold:    getEnvAsFloat("MATCH_THRESHOLD", 40),
		},
		Logger: LoggerConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "console"),
		},
		Audit: AuditConfig{
			PostgresDSN:   os.Getenv("AUDIT_POSTGRES_DSN"),
			RedisAddr:     os.Getenv("AUDIT_REDIS_ADDR"),
			RedisPassword: os.Getenv("AUDIT_REDIS_PASSWORD"),
			RedisDB:       redisDB,
			RedisChannel:  getEnv("AUDIT_REDIS_CHANNEL", "capture-events"),
			BufferSize:    getEnvAsInt("AUDIT_BUFFER_SIZE", 64),
		},
		API: APIConfig{
			Host:                  getEnv("API_HOST", "0.0.0.0"),
			Port:                  getEnv("API_PORT", "8080"),
			AuthSecret:            os.Getenv("API_AUTH_SECRET"),
			TokenTTLMinutes:       getEnvAsInt("API_TOKEN_TTL_MINUTES", 60),
			RequestTimeoutSeconds: getEnvAsInt("API_REQUEST_TIMEOUT_SECONDS", 120),
		},
	}

	if cfg.Capture.PollIntervalMS <= 0 {
		return nil, fmt.Errorf("POLL_INTERVAL_MS must be positive")
	}

	return cfg, nil
}

// Addr returns the HTTP bind address.
func (a APIConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a APIConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// PollInterval returns the delay between device probes.
func (c CaptureConfig) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalMS) * time.Millisecond
}

// DefaultTimeout returns the timeout applied when a caller supplies none.
func (c CaptureConfig) DefaultTimeout() time.Duration {
	return time.Duration(c.DefaultTimeoutSec) * time.Second
}

// EnrollPause returns the enforced pause between the two enrollment captures.
func (c CaptureConfig) EnrollPause() time.Duration {
	return time.Duration(c.EnrollPauseSec) * time.Second
}

// ReadTimeout returns the serial read timeout.
func (s SerialConfig) ReadTimeout() time.Duration {
	return time.Duration(s.ReadTimeoutMS) * time.Millisecond
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsFloat(key string, fallback float64) float64 {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return fallback
	}
	return parsed
}
