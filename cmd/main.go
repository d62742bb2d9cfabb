// sofascout collects team and player data for the configured football
// leagues by driving a real browser and stores it in PostgreSQL.
//
// Usage:
//
//	sofascout all
//	sofascout team-stats --league "Premier League" --team 42
//	sofascout player-profiles --league laliga --headed
//	sofascout reconcile-team-stats --team "Newcastle"
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"strconv"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/okian/sofascout/internal/adapters/http/api"
	app "github.com/okian/sofascout/internal/app"
	"github.com/okian/sofascout/internal/config"
	"github.com/okian/sofascout/pkg/logger"
	"github.com/okian/sofascout/pkg/metrics"
)

// HTTP server timeout constants.
const (
	readTimeout           = 10 * time.Second
	writeTimeout          = 10 * time.Second
	idleTimeout           = 60 * time.Second
	readHeaderTimeout     = 5 * time.Second
	shutdownTimeout       = 10 * time.Second
	systemMetricsInterval = 10 * time.Second
)

var version = "dev"

// flags shared by every command.
type flags struct {
	league      string
	team        string
	headed      bool
	debug       bool
	dryRun      bool
	metricsAddr string
}

func main() {
	// Disable default Go metrics collection to avoid duplicate metrics
	prometheus.Unregister(collectors.NewGoCollector())
	prometheus.Unregister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	f := &flags{}
	root := &cobra.Command{
		Use:   "sofascout",
		Short: "Collect football team and player data through a browser session",
		Long: `sofascout opens league, team and player pages in Chromium, captures the
API responses those pages make and upserts the extracted rows into PostgreSQL.

Configuration is read from defaults, the YAML file named by SOFASCOUT_CONFIG
and SOFASCOUT_* environment variables, in that order.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&f.league, "league", "l", "", "Restrict the run to one league (name, slug or source name)")
	pf.StringVarP(&f.team, "team", "t", "", "Team id for crawl commands, team name for reconcile-team-stats")
	pf.BoolVar(&f.headed, "headed", false, "Show the browser window")
	pf.BoolVar(&f.debug, "debug", false, "Log at debug level")
	pf.BoolVar(&f.dryRun, "dry-run", false, "Keep records in memory instead of writing to the database")
	pf.StringVar(&f.metricsAddr, "metrics-addr", "", "Serve /healthz, /metrics and /stats on this address")

	for _, c := range []struct{ name, short string }{
		{app.CommandAll, "Run every crawl stage for each league"},
		{app.CommandTeamStats, "Collect season statistics of every team"},
		{app.CommandTeamPlayers, "Collect the squad of every team"},
		{app.CommandPlayerProfiles, "Collect player profiles, attributes and traits"},
		{app.CommandPlayerStats, "Collect season statistics of every player"},
		{app.CommandReconcile, "Merge team_statistics rows with freshly fetched team statistics"},
	} {
		name := c.name
		root.AddCommand(&cobra.Command{
			Use:   name,
			Short: c.short,
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return run(cmd.Context(), cmd.ErrOrStderr(), name, f)
			},
		})
	}
	return root
}

// request turns the command line into a service request.
func request(command string, f *flags) (app.Request, error) {
	req := app.Request{Command: command, League: f.league}
	if f.team == "" {
		return req, nil
	}
	if command == app.CommandReconcile {
		req.TeamName = f.team
		return req, nil
	}
	id, err := strconv.ParseInt(f.team, 10, 64)
	if err != nil || id <= 0 {
		return req, fmt.Errorf("--team must be a numeric team id for %s, got %q", command, f.team)
	}
	req.TeamID = id
	return req, nil
}

func run(ctx context.Context, logOut io.Writer, command string, f *flags) error {
	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if f.headed {
		cfg.Headless = false
	}
	if f.metricsAddr != "" {
		cfg.MetricsAddr = f.metricsAddr
	}
	req, err := request(command, f)
	if err != nil {
		return err
	}

	if err := logger.Init(logger.WithWriter(logOut), logger.WithFormat(cfg.LogFormat)); err != nil {
		return fmt.Errorf("initialize logging: %w", err)
	}
	defer func() {
		_ = logger.Sync()
	}()
	log := logger.Get()

	level := cfg.LogLevel
	if f.debug {
		level = "debug"
	}
	if err := logger.SetLevelString(level); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", level), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	log.Info(ctx, "sofascout starting", logger.String("command", command), logger.String("version", version))

	svc := app.New(cfg, app.WithLogger(log.Named("crawler")), app.WithDryRun(f.dryRun))
	if err := svc.Validate(req); err != nil {
		return err
	}
	if err := svc.Start(ctx); err != nil {
		return fmt.Errorf("start: %w", err)
	}
	defer svc.Stop()

	go startSystemMetricsUpdater(ctx)
	if cfg.MetricsAddr != "" {
		srv := newMonitoringServer(cfg.MetricsAddr, svc)
		go func() {
			log.Info(ctx, "starting monitoring server", logger.String("addr", cfg.MetricsAddr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error(ctx, "monitoring server failed", logger.Error(err))
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				log.Error(ctx, "monitoring server shutdown failed", logger.Error(err))
			}
		}()
	}

	_, err = svc.Run(ctx, req)
	return err
}

func newMonitoringServer(addr string, svc *app.Service) *http.Server {
	mux := http.NewServeMux()
	api.NewServer(svc, svc).Register(mux)
	return &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}
}

// startSystemMetricsUpdater starts a background goroutine that updates system metrics.
func startSystemMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(systemMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateSystemMetrics()
		}
	}
}

func updateSystemMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	metrics.UpdateSystemMemoryUsage(m.Alloc)
	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())
}
