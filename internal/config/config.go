package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/multierr"
)

type Env string

const (
	EnvStaging    Env = "staging"
	EnvProduction Env = "production"
)

type Twilio struct {
	AccountSID string
	AuthToken  string
	FromPhone  string
}

func (t Twilio) Configured() bool {
	return t.AccountSID != "" && t.AuthToken != "" && t.FromPhone != ""
}

type Config struct {
	Env      Env
	Addr     string // ops API bind address; empty disables the API
	LogDir   string // service log directory
	LogLevel string

	StoreURL string // memory, a directory, postgres://, mysql://, sqlite:
	AuditDir string // per-check audit logs and their archives

	CheckInterval       time.Duration
	RotateInterval      time.Duration
	MaxConcurrentChecks int // 0 = unlimited

	Twilio          Twilio
	SlackWebhookURL string

	OpsRPM   int
	OpsBurst int
}

// FromEnv reads the process environment after loading an optional .env
// file. Unknown ENV values fall back to staging.
func FromEnv() Config {
	_ = godotenv.Load()

	env := Env(strings.ToLower(strings.TrimSpace(os.Getenv("ENV"))))
	if env != EnvProduction {
		env = EnvStaging
	}

	// Windows-friendly default; ADDR set to "" turns the ops API off.
	addr, ok := os.LookupEnv("ADDR")
	if !ok {
		addr = "127.0.0.1:8080"
	}

	return Config{
		Env:      env,
		Addr:     addr,
		LogDir:   getenv("LOG_DIR", "logs"),
		LogLevel: getenv("LOG_LEVEL", "info"),

		StoreURL: getenv("STORE_URL", ".data/checks"),
		AuditDir: getenv("AUDIT_DIR", ".logs"),

		CheckInterval:       envDuration("CHECK_INTERVAL", time.Minute),
		RotateInterval:      envDuration("ROTATE_INTERVAL", 24*time.Hour),
		MaxConcurrentChecks: envInt("MAX_CONCURRENT_CHECKS", 0),

		Twilio: Twilio{
			AccountSID: os.Getenv("TWILIO_ACCOUNT_SID"),
			AuthToken:  os.Getenv("TWILIO_AUTH_TOKEN"),
			FromPhone:  os.Getenv("TWILIO_FROM_PHONE"),
		},
		SlackWebhookURL: os.Getenv("SLACK_WEBHOOK_URL"),

		OpsRPM:   envInt("OPS_RPM", 120),
		OpsBurst: envInt("OPS_BURST", 20),
	}
}

// Validate reports every setting the worker cannot start with.
func (c Config) Validate() error {
	var err error
	if c.CheckInterval <= 0 {
		err = multierr.Append(err, errors.New("CHECK_INTERVAL must be positive"))
	}
	if c.RotateInterval <= 0 {
		err = multierr.Append(err, errors.New("ROTATE_INTERVAL must be positive"))
	}
	if c.MaxConcurrentChecks < 0 {
		err = multierr.Append(err, errors.New("MAX_CONCURRENT_CHECKS must be >= 0"))
	}
	if strings.TrimSpace(c.AuditDir) == "" {
		err = multierr.Append(err, errors.New("AUDIT_DIR must not be empty"))
	} else if sameDir(c.AuditDir, c.LogDir) {
		// rotation would treat the service log as a check log
		err = multierr.Append(err, fmt.Errorf("AUDIT_DIR and LOG_DIR must differ (both %q)", c.AuditDir))
	}
	if c.OpsRPM <= 0 || c.OpsBurst <= 0 {
		err = multierr.Append(err, fmt.Errorf("OPS_RPM and OPS_BURST must be positive (got %d/%d)", c.OpsRPM, c.OpsBurst))
	}
	return err
}

func sameDir(a, b string) bool {
	if strings.TrimSpace(b) == "" {
		return false
	}
	if absA, err := filepath.Abs(a); err == nil {
		if absB, err := filepath.Abs(b); err == nil {
			return absA == absB
		}
	}
	return filepath.Clean(a) == filepath.Clean(b)
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func envInt(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

// envDuration accepts Go durations ("90s", "1h") or bare seconds.
func envDuration(k string, def time.Duration) time.Duration {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if n, err := strconv.Atoi(v); err == nil {
		return time.Duration(n) * time.Second
	}
	return def
}
