// Package config holds the process configuration and its defaults.
package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

type Config struct {
	Server         Server         `koanf:"server"`
	Database       Database       `koanf:"database"`
	Minio          Minio          `koanf:"minio"`
	AI             AI             `koanf:"ai"`
	ActiveCampaign ActiveCampaign `koanf:"activecampaign"`
	Stripe         Stripe         `koanf:"stripe"`
	Calendly       Calendly       `koanf:"calendly"`
	Auth           Auth           `koanf:"auth"`
	CORS           CORS           `koanf:"cors"`
	RateLimit      RateLimit      `koanf:"ratelimit"`
	Jobs           Jobs           `koanf:"jobs"`
	Log            Log            `koanf:"log"`
}

type Server struct {
	Port int `koanf:"port"`
	// PublicURL is the front-end origin used for report links in marketing fields.
	PublicURL       string        `koanf:"public_url"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	// AutoMigrate applies the embedded schema on startup.
	AutoMigrate bool `koanf:"auto_migrate"`
}

type Database struct {
	// Driver is "postgres" (Supabase) or "mysql".
	Driver   string `koanf:"driver"`
	DSN      string `koanf:"dsn"`
	Host     string `koanf:"host"`
	Port     int    `koanf:"port"`
	User     string `koanf:"user"`
	Password string `koanf:"password"`
	Name     string `koanf:"name"`
	SSLMode  string `koanf:"sslmode"`
}

type Minio struct {
	Endpoint   string        `koanf:"endpoint"`
	AccessKey  string        `koanf:"access_key"`
	SecretKey  string        `koanf:"secret_key"`
	BucketName string        `koanf:"bucket"`
	Region     string        `koanf:"region"`
	UseSSL     bool          `koanf:"use_ssl"`
	Prefix     string        `koanf:"prefix"`
	LinkExpiry time.Duration `koanf:"link_expiry"`
}

type AI struct {
	// Provider is "openai" or "gemini".
	Provider     string        `koanf:"provider"`
	Model        string        `koanf:"model"`
	OpenAIKey    string        `koanf:"openai_key"`
	OpenAIBase   string        `koanf:"openai_base_url"`
	GeminiKey    string        `koanf:"gemini_key"`
	MaxRetries   int           `koanf:"max_retries"`
	RetryInitial time.Duration `koanf:"retry_initial"`
}

type ActiveCampaign struct {
	BaseURL     string `koanf:"base_url"`
	Token       string `koanf:"token"`
	Concurrency int    `koanf:"concurrency"`
}

func (a ActiveCampaign) Enabled() bool { return a.BaseURL != "" && a.Token != "" }

type Stripe struct {
	SecretKey     string `koanf:"secret_key"`
	WebhookSecret string `koanf:"webhook_secret"`
	// Prices maps tier name to Stripe price ID.
	Prices     map[string]string `koanf:"prices"`
	SuccessURL string            `koanf:"success_url"`
	CancelURL  string            `koanf:"cancel_url"`
}

func (s Stripe) Enabled() bool { return s.SecretKey != "" }

type Calendly struct {
	SigningKey string        `koanf:"signing_key"`
	Tolerance  time.Duration `koanf:"tolerance"`
}

type Auth struct {
	APIKeys []string `koanf:"api_keys"`
}

type CORS struct {
	AllowedOrigins []string `koanf:"allowed_origins"`
}

type RateLimit struct {
	RequestsPerMinute int `koanf:"rpm"`
	Burst             int `koanf:"burst"`
}

// Jobs holds cron specs. An empty spec leaves the job runnable only from wunderctl.
type Jobs struct {
	EntitlementSweep string        `koanf:"entitlement_sweep"`
	FollowupNudge    string        `koanf:"followup_nudge"`
	SyncRetry        string        `koanf:"sync_retry"`
	NudgeAge         time.Duration `koanf:"nudge_age"`
	SyncMaxAttempts  int           `koanf:"sync_max_attempts"`
}

type Log struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// New returns a Config with defaults suitable for local development.
func New() *Config {
	return &Config{
		Server: Server{
			Port:            8080,
			PublicURL:       "http://localhost:3000",
			ShutdownTimeout: 10 * time.Second,
			AutoMigrate:     true,
		},
		Database: Database{
			Driver:  "postgres",
			Host:    "localhost",
			Port:    5432,
			User:    "postgres",
			Name:    "wunderbrand",
			SSLMode: "disable",
		},
		Minio: Minio{
			Endpoint:   "localhost:9000",
			BucketName: "wunderbrand-reports",
			Region:     "us-east-1",
			Prefix:     "reports",
			LinkExpiry: 15 * time.Minute,
		},
		AI: AI{
			Provider:     "openai",
			Model:        "gpt-4o-mini",
			MaxRetries:   3,
			RetryInitial: 500 * time.Millisecond,
		},
		ActiveCampaign: ActiveCampaign{Concurrency: 4},
		Stripe:         Stripe{Prices: map[string]string{}},
		Calendly:       Calendly{Tolerance: 5 * time.Minute},
		CORS:           CORS{AllowedOrigins: []string{"http://localhost:3000"}},
		RateLimit:      RateLimit{RequestsPerMinute: 120, Burst: 20},
		Jobs: Jobs{
			EntitlementSweep: "@hourly",
			FollowupNudge:    "0 14 * * *",
			SyncRetry:        "*/15 * * * *",
			NudgeAge:         72 * time.Hour,
			SyncMaxAttempts:  10,
		},
		Log: Log{Level: "info", Format: "json"},
	}
}

// DatabaseDSN returns Database.DSN when set, otherwise builds one for the driver.
func (c *Config) DatabaseDSN() string {
	d := c.Database
	if d.Driver == "mysql" {
		if d.DSN != "" {
			return ensureParseTime(d.DSN)
		}
		return c.MySQLDSN()
	}
	if d.DSN != "" {
		return d.DSN
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(d.User, d.Password),
		Host:     fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:     "/" + d.Name,
		RawQuery: "sslmode=" + d.SSLMode,
	}
	return u.String()
}

// Helper untuk build DSN MySQL
func (c *Config) MySQLDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&charset=utf8mb4&loc=UTC",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
	)
}

// Timestamps are scanned into time.Time, which the mysql driver only does with parseTime.
func ensureParseTime(dsn string) string {
	if strings.Contains(dsn, "parseTime=") {
		return dsn
	}
	if strings.Contains(dsn, "?") {
		return dsn + "&parseTime=true"
	}
	return dsn + "?parseTime=true"
}
