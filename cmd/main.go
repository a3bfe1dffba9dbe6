package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"github.com/urfave/cli/v2"

	"regsync/internal/calendar"
	"regsync/internal/config"
	"regsync/internal/registry"
	"regsync/internal/statuspage"
	"regsync/internal/syncer"
	"regsync/internal/timezone"
)

func main() {
	// Load .env file first, but don't error if it doesn't exist.
	_ = godotenv.Load()

	app := &cli.App{
		Name:  "regsync",
		Usage: "Mirror registry maintenance announcements onto a status page.",
		Commands: []*cli.Command{
			syncCommand(),
			exportCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		slog.Error("Application failed", "error", err)
		os.Exit(1)
	}
}

func syncCommand() *cli.Command {
	return &cli.Command{
		Name:  "sync",
		Usage: "Reconcile registry maintenance windows with status page incidents.",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "once", Usage: "Run the sync cycle once and exit (the default; overrides --watch and --schedule)."},
			&cli.BoolFlag{Name: "dry-run", Usage: "Log what would be written without making changes."},
			&cli.IntFlag{Name: "watch", Value: 3600, Usage: "Run sync every N seconds. Overrides --once."},
			&cli.StringFlag{Name: "schedule", Usage: "Run sync on a cron schedule (e.g. '0 */6 * * *'). Overrides --watch."},
			&cli.StringFlag{Name: "secrets", Value: config.DefaultSecretsFile, Usage: "Path to the status page secrets file."},
		},
		Action: func(c *cli.Context) error {
			logger := setupLogger(os.Getenv("LOG_LEVEL"))

			cfg, err := config.Load(c.String("secrets"))
			if err != nil {
				return err
			}
			if err := cfg.ValidateStatusPage(); err != nil {
				return err
			}

			if c.Bool("dry-run") {
				logger.Info("Performing a dry run. No changes will be made.")
			}

			regClient, err := newRegistryClient(logger, cfg)
			if err != nil {
				return err
			}
			spClient := statuspage.NewClient(logger, cfg.StatusPageBaseURL, cfg.PageID, cfg.APIKey)
			s := syncer.NewSyncer(logger, regClient, spClient, cfg, c.Bool("dry-run"))

			runCycle := func() {
				if err := s.Sync(c.Context); err != nil {
					logger.Error("Sync cycle failed", "error", err)
				}
			}

			switch syncMode(c.Bool("once"), c.String("schedule"), c.IsSet("watch")) {
			case modeCron:
				spec := c.String("schedule")
				engine := cron.New()
				if err := scheduleSync(engine, spec, runCycle); err != nil {
					return err
				}
				logger.Info("Starting cron scheduler.", "schedule", spec)
				engine.Run()

			case modeWatch:
				interval := time.Duration(c.Int("watch")) * time.Second
				logger.Info("Starting watcher.", "interval", interval)
				ticker := time.NewTicker(interval)
				defer ticker.Stop()
				for ; true; <-ticker.C {
					runCycle()
				}

			default:
				logger.Info("Running a single sync cycle.")
				if err := s.Sync(c.Context); err != nil {
					return fmt.Errorf("single sync cycle failed: %w", err)
				}
			}

			return nil
		},
	}
}

func exportCommand() *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "Export upcoming registry maintenance windows as an iCalendar file.",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "output", Value: "maintenance.ics", Usage: "File to write the calendar to."},
			&cli.IntFlag{Name: "days", Value: 365, Usage: "How many days ahead to include."},
			&cli.StringFlag{Name: "publish-url", Usage: "WebDAV collection URL to publish the calendar to instead of writing a file."},
			&cli.StringFlag{Name: "publish-user", Usage: "WebDAV username."},
			&cli.StringFlag{Name: "publish-pass", Usage: "WebDAV password."},
			&cli.StringFlag{Name: "secrets", Value: config.DefaultSecretsFile, Usage: "Path to the status page secrets file."},
		},
		Action: func(c *cli.Context) error {
			logger := setupLogger(os.Getenv("LOG_LEVEL"))

			cfg, err := config.Load(c.String("secrets"))
			if err != nil {
				return err
			}

			regClient, err := newRegistryClient(logger, cfg)
			if err != nil {
				return err
			}

			start := time.Now()
			end := start.AddDate(0, 0, c.Int("days"))
			windows, err := regClient.FetchMaintenance(c.Context, cfg.Environment, start, end)
			if err != nil {
				return fmt.Errorf("fetch registry maintenance: %w", err)
			}
			windows = syncer.FilterWindows(windows, cfg.Environment, cfg.MonitoredSystem)

			cal := calendar.Build(windows, time.Now())

			if publishURL := c.String("publish-url"); publishURL != "" {
				publisher, err := calendar.NewPublisher(logger, publishURL, c.String("publish-user"), c.String("publish-pass"))
				if err != nil {
					return err
				}
				return publisher.Publish(c.Context, cal, filepath.Base(c.String("output")))
			}

			f, err := os.Create(c.String("output"))
			if err != nil {
				return fmt.Errorf("create %s: %w", c.String("output"), err)
			}
			defer f.Close()
			if err := calendar.Write(cal, f); err != nil {
				return err
			}
			logger.Info("Wrote maintenance calendar.", "file", c.String("output"), "events", len(windows))
			return nil
		},
	}
}

const (
	modeOnce  = "once"
	modeCron  = "cron"
	modeWatch = "watch"
)

// syncMode picks how the sync command runs. An explicit --once wins over the
// loop flags; with nothing set, a single cycle is the default.
func syncMode(once bool, schedule string, watchSet bool) string {
	switch {
	case once:
		return modeOnce
	case schedule != "":
		return modeCron
	case watchSet:
		return modeWatch
	default:
		return modeOnce
	}
}

// scheduleSync registers run on the cron engine and fires it once up front,
// so the first reconciliation does not wait for the first tick.
func scheduleSync(engine *cron.Cron, spec string, run func()) error {
	if _, err := engine.AddFunc(spec, run); err != nil {
		return fmt.Errorf("invalid cron schedule %q: %w", spec, err)
	}
	run()
	return nil
}

func newRegistryClient(logger *slog.Logger, cfg config.Config) (*registry.Client, error) {
	resolver, err := timezone.NewResolver(timezone.SystemZoneNames())
	if err != nil {
		return nil, fmt.Errorf("build timezone resolver: %w", err)
	}
	parser := registry.NewTimestampParser(resolver)
	return registry.NewClient(logger, cfg.RegistryURL, parser), nil
}

func setupLogger(level string) *slog.Logger {
	var logLevel slog.Level
	switch strings.ToLower(level) {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))
}
