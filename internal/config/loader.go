package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/bryanwahyu/wunderbrand/internal/domain/tier"
)

const envPrefix = "WB_"

var ErrInvalid = errors.New("invalid config")

// Load builds a Config by layering, lowest precedence first:
//  1. defaults (New)
//  2. .env in the working directory, if present
//  3. YAML file named by WB_CONFIG
//  4. WB_ environment variables; "__" separates sections (WB_DATABASE__HOST)
func Load() (*Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")
	if path := os.Getenv("WB_CONFIG"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load %s: %w", path, err)
		}
	}

	envProvider := env.Provider(envPrefix, ".", envKey)
	if err := k.Load(envProvider, nil); err != nil {
		return nil, err
	}

	cfg := New()
	if err := k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	splitLists(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// envKey maps WB_STRIPE__PRICES__SNAPSHOT_PLUS to stripe.prices.snapshot_plus.
func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, envPrefix))
	return strings.ReplaceAll(s, "__", ".")
}

// Env vars arrive as a single comma-separated string.
func splitLists(c *Config) {
	c.Auth.APIKeys = splitCSV(c.Auth.APIKeys)
	c.CORS.AllowedOrigins = splitCSV(c.CORS.AllowedOrigins)
}

func splitCSV(in []string) []string {
	var out []string
	for _, v := range in {
		for _, p := range strings.Split(v, ",") {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}

// Validate checks the secrets each enabled integration needs.
func (c *Config) Validate() error {
	var errs []error
	if c.Server.Port <= 0 {
		errs = append(errs, errors.New("server.port must be positive"))
	}
	switch c.Database.Driver {
	case "postgres", "mysql":
	default:
		errs = append(errs, fmt.Errorf("database.driver %q must be postgres or mysql", c.Database.Driver))
	}
	switch c.AI.Provider {
	case "openai":
		if c.AI.OpenAIKey == "" {
			errs = append(errs, errors.New("ai.openai_key is required for provider openai"))
		}
	case "gemini":
		if c.AI.GeminiKey == "" {
			errs = append(errs, errors.New("ai.gemini_key is required for provider gemini"))
		}
	default:
		errs = append(errs, fmt.Errorf("ai.provider %q must be openai or gemini", c.AI.Provider))
	}
	if c.AI.MaxRetries < 1 {
		errs = append(errs, errors.New("ai.max_retries must be at least 1"))
	}
	if c.Minio.BucketName == "" {
		errs = append(errs, errors.New("minio.bucket is required"))
	}
	if c.Stripe.Enabled() {
		if c.Stripe.WebhookSecret == "" {
			errs = append(errs, errors.New("stripe.webhook_secret is required when stripe is enabled"))
		}
		for name := range c.Stripe.Prices {
			t, err := tier.Parse(name)
			if err != nil {
				errs = append(errs, fmt.Errorf("stripe.prices: %w", err))
				continue
			}
			if !t.Paid() {
				errs = append(errs, fmt.Errorf("stripe.prices: %s is not a paid tier", t))
			}
		}
	}
	if c.ActiveCampaign.BaseURL != "" && c.ActiveCampaign.Token == "" {
		errs = append(errs, errors.New("activecampaign.token is required with activecampaign.base_url"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalid, errors.Join(errs...))
	}
	return nil
}

// StripePrices returns the price table keyed by tier.
func (c *Config) StripePrices() map[tier.Tier]string {
	out := make(map[tier.Tier]string, len(c.Stripe.Prices))
	for name, id := range c.Stripe.Prices {
		if t, err := tier.Parse(name); err == nil {
			out[t] = id
		}
	}
	return out
}
