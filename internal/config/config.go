// Package config defines crawler configuration and its loading hooks.
//
// Conventions:
//   - New(ctx) returns a Config populated with defaults.
//   - Load(ctx) layers defaults, an optional YAML file and SOFASCOUT_ env vars.
//   - Durations are stored as milliseconds and exposed as time.Duration helpers.
package config

import (
	"context"
	"time"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`
	// LogFormat selects the handler: text or json.
	LogFormat string `koanf:"log_format"`

	// DatabaseURL is a PostgreSQL connection string.
	DatabaseURL string `koanf:"database_url"`

	// Headless runs Chromium without a window.
	Headless bool `koanf:"headless"`
	// BrowserBin overrides the Chromium binary; empty lets the launcher pick one.
	BrowserBin string `koanf:"browser_bin"`
	UserAgent  string `koanf:"user_agent"`

	// SiteRoot prefixes page URLs, APIRoot marks observable API traffic.
	SiteRoot string `koanf:"site_root"`
	APIRoot  string `koanf:"api_root"`

	PageDelayMS   int `koanf:"page_delay_ms"`
	TabDelayMS    int `koanf:"tab_delay_ms"`
	PlayerDelayMS int `koanf:"player_delay_ms"`
	SettleDelayMS int `koanf:"settle_delay_ms"`

	MaxRetries   int `koanf:"max_retries"`
	RetryDelayMS int `koanf:"retry_delay_ms"`

	CaptureTimeoutMS      int `koanf:"capture_timeout_ms"`
	MultiCaptureTimeoutMS int `koanf:"multi_capture_timeout_ms"`
	NavigationTimeoutMS   int `koanf:"navigation_timeout_ms"`

	// FetchRatePerSec bounds in-page API fetches.
	FetchRatePerSec float64 `koanf:"fetch_rate_per_sec"`

	// HubCapacity bounds the observed-response queue.
	HubCapacity int `koanf:"hub_capacity"`

	// MetricsAddr enables the /healthz, /metrics and /stats listener when set.
	MetricsAddr string `koanf:"metrics_addr"`

	Leagues []League `koanf:"leagues"`

	// TeamAliases maps a source-side team name to acceptable catalog names.
	TeamAliases map[string][]string `koanf:"team_aliases"`
}

// New creates a Config with defaults.
func New(_ context.Context) *Config {
	return &Config{
		LogLevel:              "info",
		LogFormat:             "text",
		Headless:              true,
		UserAgent:             "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36",
		SiteRoot:              "https://www.sofascore.com",
		APIRoot:               "www.sofascore.com/api/v1",
		PageDelayMS:           3000,
		TabDelayMS:            2000,
		PlayerDelayMS:         120000,
		SettleDelayMS:         4000,
		MaxRetries:            2,
		RetryDelayMS:          5000,
		CaptureTimeoutMS:      15000,
		MultiCaptureTimeoutMS: 20000,
		NavigationTimeoutMS:   30000,
		FetchRatePerSec:       1,
		HubCapacity:           4096,
		Leagues:               DefaultLeagues(),
		TeamAliases:           DefaultTeamAliases(),
	}
}

func ms(v int) time.Duration { return time.Duration(v) * time.Millisecond }

// PageDelay is the pause between successful team-level items.
func (c *Config) PageDelay() time.Duration { return ms(c.PageDelayMS) }

// TabDelay is the pause after a navigation or tab click.
func (c *Config) TabDelay() time.Duration { return ms(c.TabDelayMS) }

// PlayerDelay is the pause between successful player-level items.
func (c *Config) PlayerDelay() time.Duration { return ms(c.PlayerDelayMS) }

// SettleDelay is the pause after loading a page whose data arrives late.
func (c *Config) SettleDelay() time.Duration { return ms(c.SettleDelayMS) }

// RetryDelay is the fixed delay between attempts.
func (c *Config) RetryDelay() time.Duration { return ms(c.RetryDelayMS) }

// CaptureTimeout bounds a single-pattern wait.
func (c *Config) CaptureTimeout() time.Duration { return ms(c.CaptureTimeoutMS) }

// MultiCaptureTimeout bounds a multi-pattern wait.
func (c *Config) MultiCaptureTimeout() time.Duration { return ms(c.MultiCaptureTimeoutMS) }

// NavigationTimeout bounds a page load.
func (c *Config) NavigationTimeout() time.Duration { return ms(c.NavigationTimeoutMS) }
