package config_test

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/okian/sofascout/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		ctx := context.Background()

		convey.Convey("When loading config with defaults only", func() {
			clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load successfully with defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg, convey.ShouldNotBeNil)
				convey.So(cfg.PageDelayMS, convey.ShouldEqual, 3000)
				convey.So(cfg.MaxRetries, convey.ShouldEqual, 2)
				convey.So(cfg.Leagues, convey.ShouldHaveLength, 6)
			})
		})

		convey.Convey("When loading config with environment variables", func() {
			_ = os.Setenv("SOFASCOUT_PAGE_DELAY_MS", "100")
			_ = os.Setenv("SOFASCOUT_MAX_RETRIES", "4")
			_ = os.Setenv("SOFASCOUT_HEADLESS", "false")
			_ = os.Setenv("SOFASCOUT_DATABASE_URL", "postgres://scout@localhost/scout")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should override defaults with env vars", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.PageDelayMS, convey.ShouldEqual, 100)
				convey.So(cfg.MaxRetries, convey.ShouldEqual, 4)
				convey.So(cfg.Headless, convey.ShouldBeFalse)
				convey.So(cfg.DatabaseURL, convey.ShouldEqual, "postgres://scout@localhost/scout")
			})
		})

		convey.Convey("When loading config with a YAML file", func() {
			yamlContent := `
log_level: debug
player_delay_ms: 1000
leagues:
  - name: Eredivisie
    slug: eredivisie
    tournament_id: 37
team_aliases:
  PSV: ["PSV Eindhoven"]
`
			tmpFile := createTempConfigFile(yamlContent)
			defer func() { _ = os.Remove(tmpFile) }()

			_ = os.Setenv("SOFASCOUT_CONFIG", tmpFile)
			_ = os.Setenv("SOFASCOUT_PLAYER_DELAY_MS", "2000")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then file values apply and env wins over the file", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.LogLevel, convey.ShouldEqual, "debug")
				convey.So(cfg.PlayerDelayMS, convey.ShouldEqual, 2000)
				convey.So(cfg.LeagueNames(), convey.ShouldResemble, []string{"Eredivisie"})
				convey.So(cfg.TeamAliases["PSV"], convey.ShouldResemble, []string{"PSV Eindhoven"})
				convey.So(cfg.TeamAliases["Newcastle"], convey.ShouldNotBeEmpty)
			})
		})

		convey.Convey("When loading config with invalid YAML file", func() {
			tmpFile := createTempConfigFile(`invalid: yaml: content: [`)
			defer func() { _ = os.Remove(tmpFile) }()

			_ = os.Setenv("SOFASCOUT_CONFIG", tmpFile)
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a load error", func() {
				convey.So(cfg, convey.ShouldBeNil)
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When loading config with non-existent file", func() {
			_ = os.Setenv("SOFASCOUT_CONFIG", "/non/existent/file.yaml")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return an error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When a value fails validation", func() {
			_ = os.Setenv("SOFASCOUT_MAX_RETRIES", "-1")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a validation error", func() {
				convey.So(cfg, convey.ShouldBeNil)
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				convey.So(err.Error(), convey.ShouldContainSubstring, "max_retries")
			})
		})

		convey.Convey("When the fetch rate is zero", func() {
			_ = os.Setenv("SOFASCOUT_FETCH_RATE_PER_SEC", "0")
			defer clearConfigEnvVars()

			_, err := config.Load(ctx)

			convey.Convey("Then it should be rejected", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			})
		})
	})
}

func clearConfigEnvVars() {
	for _, k := range []string{
		"SOFASCOUT_CONFIG",
		"SOFASCOUT_PAGE_DELAY_MS",
		"SOFASCOUT_PLAYER_DELAY_MS",
		"SOFASCOUT_MAX_RETRIES",
		"SOFASCOUT_HEADLESS",
		"SOFASCOUT_DATABASE_URL",
		"SOFASCOUT_FETCH_RATE_PER_SEC",
	} {
		_ = os.Unsetenv(k)
	}
}

func createTempConfigFile(content string) string {
	tmpFile, err := os.CreateTemp("", "sofascout-config-*.yaml")
	if err != nil {
		panic(err)
	}
	defer func() { _ = tmpFile.Close() }()
	if _, err := tmpFile.WriteString(content); err != nil {
		panic(err)
	}
	return tmpFile.Name()
}
