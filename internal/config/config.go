// Package config provides configuration loading and validation from environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Config holds all application configuration. It is built once in main and
// passed to the components that need it.
type Config struct {
	// API listener (e.g., ":8080")
	ListenAddr string `validate:"required,hostname_port"`
	// Prometheus listener; empty disables it
	MetricsListenAddr string `validate:"omitempty,hostname_port"`
	LogLevel          string `validate:"oneof=debug info warn warning error"`
	DatabasePath      string `validate:"required"`
	// Optional JSON file of spots imported at startup
	SeedFile string

	// Admin shared secret; empty rejects every admin request
	AdminToken string
	// Admin mailbox for notifications; empty skips them
	AdminMail string `validate:"omitempty,email"`

	// Captcha passphrase; empty disables captcha routes
	CaptchaPrivateKey string
	// Max token age; 0 disables expiry
	CaptchaTTL       time.Duration `validate:"gte=0"`
	CaptchaSingleUse bool

	// Empty host logs notifications instead of sending them
	SMTPHost     string
	SMTPPort     int `validate:"min=1,max=65535"`
	SMTPUsername string
	SMTPPassword string
	MailFrom     string `validate:"required,email"`
	AppName      string `validate:"required"`

	MaxBodyBytes int64 `validate:"gt=0"`
}

// Defaults.
const (
	DefaultListenAddr        = ":8080"
	DefaultMetricsListenAddr = "localhost:9090"
	DefaultLogLevel          = "info"
	DefaultDatabasePath      = "/data/spots.db"
	DefaultCaptchaTTL        = 10 * time.Minute
	DefaultSMTPPort          = 587
	DefaultMailFrom          = "no-reply@pumpfoilmap.org"
	DefaultAppName           = "PumpFoilMap"
	DefaultMaxBodyBytes      = 1 << 20
	DefaultEnvFile           = ".env"
)

// Load reads an optional .env file (ENV_FILE, default ".env") and then parses
// configuration from environment variables. Variables already set in the
// process environment take precedence over the file. A missing file is not
// an error.
func Load() (*Config, error) {
	envFile := os.Getenv("ENV_FILE")
	if envFile == "" {
		envFile = DefaultEnvFile
	}
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load %s: %w", envFile, err)
	}

	cfg := &Config{
		ListenAddr:        getEnv("LISTEN_ADDR", DefaultListenAddr),
		MetricsListenAddr: getEnvAllowEmpty("METRICS_LISTEN_ADDR", DefaultMetricsListenAddr),
		LogLevel:          strings.ToLower(getEnv("LOG_LEVEL", DefaultLogLevel)),
		DatabasePath:      getEnv("DATABASE_PATH", DefaultDatabasePath),
		SeedFile:          os.Getenv("SEED_FILE"),
		AdminToken:        os.Getenv("ADMIN_TOKEN"),
		AdminMail:         strings.TrimSpace(os.Getenv("ADMIN_MAIL")),
		CaptchaPrivateKey: os.Getenv("CAPTCHA_PRIVATE_KEY"),
		SMTPHost:          os.Getenv("SMTP_HOST"),
		SMTPUsername:      os.Getenv("SMTP_USERNAME"),
		SMTPPassword:      os.Getenv("SMTP_PASSWORD"),
		MailFrom:          getEnv("MAIL_FROM", DefaultMailFrom),
		AppName:           getEnv("APP_NAME", DefaultAppName),
	}

	var err error
	if cfg.CaptchaTTL, err = parseDuration("CAPTCHA_TTL", DefaultCaptchaTTL); err != nil {
		return nil, err
	}
	if cfg.CaptchaSingleUse, err = parseBool("CAPTCHA_SINGLE_USE", false); err != nil {
		return nil, err
	}
	if cfg.SMTPPort, err = parseInt("SMTP_PORT", DefaultSMTPPort); err != nil {
		return nil, err
	}
	maxBody, err := parseInt("MAX_BODY_BYTES", DefaultMaxBodyBytes)
	if err != nil {
		return nil, err
	}
	cfg.MaxBodyBytes = int64(maxBody)

	return cfg, nil
}

var validate = validator.New()

// Validate checks the format of every value. Secrets are never required:
// a missing admin token, mailbox or captcha key disables the operations
// that need it.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s: invalid value %v (%s)", envName(fe.Field()), fe.Value(), fe.Tag()))
	}
	return fmt.Errorf("invalid configuration: %s", strings.Join(msgs, "; "))
}

// envName maps a Config field to its environment variable.
func envName(field string) string {
	switch field {
	case "ListenAddr":
		return "LISTEN_ADDR"
	case "MetricsListenAddr":
		return "METRICS_LISTEN_ADDR"
	case "LogLevel":
		return "LOG_LEVEL"
	case "DatabasePath":
		return "DATABASE_PATH"
	case "AdminMail":
		return "ADMIN_MAIL"
	case "CaptchaTTL":
		return "CAPTCHA_TTL"
	case "SMTPPort":
		return "SMTP_PORT"
	case "MailFrom":
		return "MAIL_FROM"
	case "AppName":
		return "APP_NAME"
	case "MaxBodyBytes":
		return "MAX_BODY_BYTES"
	default:
		return field
	}
}

func getEnv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

// getEnvAllowEmpty distinguishes an unset variable from one set to "".
func getEnvAllowEmpty(key, def string) string {
	v, ok := os.LookupEnv(key)
	if !ok {
		return def
	}
	return strings.TrimSpace(v)
}

func parseDuration(key string, def time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	if v == "0" {
		return 0, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}

func parseBool(key string, def bool) (bool, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s: %w", key, err)
	}
	return b, nil
}

func parseInt(key string, def int) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}
