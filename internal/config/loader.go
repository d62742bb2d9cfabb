package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const (
	envPrefix  = "SOFASCOUT_"
	envConfig  = "SOFASCOUT_CONFIG"
	keyDelimit = "."
)

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New(ctx))
//  2. file (YAML) if SOFASCOUT_CONFIG is set
//  3. env (prefix SOFASCOUT_)
func Load(ctx context.Context) (*Config, error) {
	base := New(ctx)

	k := koanf.New(keyDelimit)

	if path := os.Getenv(envConfig); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: read %s: %v", ErrLoadConfig, path, err)
		}
	}

	// SOFASCOUT_PAGE_DELAY_MS -> page_delay_ms. Keys stay flat so underscores
	// match the koanf tags on the struct.
	envProvider := env.Provider(envPrefix, keyDelimit, func(s string) string {
		if s == envConfig {
			return ""
		}
		return strings.TrimPrefix(strings.ToLower(s), strings.ToLower(envPrefix))
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: env: %v", ErrLoadConfig, err)
	}

	cfg := *base
	// A configured league list replaces the defaults instead of overlaying them.
	if k.Exists("leagues") {
		cfg.Leagues = nil
	}
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: unmarshal: %v", ErrLoadConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks ranges and required values.
func (c *Config) Validate() error {
	switch {
	case c.SiteRoot == "":
		return fmt.Errorf("%w: site_root must not be empty", ErrInvalidConfig)
	case c.APIRoot == "":
		return fmt.Errorf("%w: api_root must not be empty", ErrInvalidConfig)
	case c.MaxRetries < 0:
		return fmt.Errorf("%w: max_retries must be >= 0", ErrInvalidConfig)
	case c.RetryDelayMS < 0 || c.PageDelayMS < 0 || c.TabDelayMS < 0 || c.PlayerDelayMS < 0 || c.SettleDelayMS < 0:
		return fmt.Errorf("%w: delays must be >= 0", ErrInvalidConfig)
	case c.CaptureTimeoutMS <= 0 || c.MultiCaptureTimeoutMS <= 0 || c.NavigationTimeoutMS <= 0:
		return fmt.Errorf("%w: timeouts must be > 0", ErrInvalidConfig)
	case c.FetchRatePerSec <= 0:
		return fmt.Errorf("%w: fetch_rate_per_sec must be > 0", ErrInvalidConfig)
	case c.HubCapacity <= 0:
		return fmt.Errorf("%w: hub_capacity must be > 0", ErrInvalidConfig)
	case len(c.Leagues) == 0:
		return fmt.Errorf("%w: at least one league is required", ErrInvalidConfig)
	}
	for _, l := range c.Leagues {
		if l.Name == "" || l.Slug == "" || l.TournamentID <= 0 {
			return fmt.Errorf("%w: league %q needs name, slug and tournament_id", ErrInvalidConfig, l.Name)
		}
	}
	return nil
}
