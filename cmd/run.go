package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"meetprep/internal/config"
	"meetprep/internal/google"
	"meetprep/internal/icloud"
	"meetprep/internal/ics"
	"meetprep/internal/metrics"
	"meetprep/internal/outlook"
	"meetprep/internal/processor"
	"meetprep/internal/schedule"
	"meetprep/internal/store"
	"meetprep/internal/syncer"

	"github.com/urfave/cli/v2"
)

func runCommand() *cli.Command {
	return &cli.Command{
		Name:  "run",
		Usage: "Run one prep cycle.",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "dry-run", Usage: "Write the digest preview instead of publishing."},
			&cli.IntFlag{Name: "watch", Usage: "Run a cycle every N seconds until interrupted."},
		},
		Action: func(c *cli.Context) error {
			cfg, logger, err := loadConfig(c)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
			defer stop()

			dryRun := c.Bool("dry-run")
			if dryRun {
				logger.Info("Performing a dry run. Nothing will be published.")
			}

			rec := metrics.NewRecorder()
			s, loc, err := buildSyncer(ctx, logger, cfg, dryRun, rec)
			if err != nil {
				return err
			}

			// --watch flag takes precedence
			if c.IsSet("watch") {
				interval := time.Duration(c.Int("watch")) * time.Second
				if interval <= 0 {
					return fmt.Errorf("--watch must be a positive number of seconds")
				}
				stopMetrics := serveMetrics(ctx, logger, cfg.Metrics.Addr, rec)
				defer stopMetrics()

				logger.Info("Starting watcher.", "interval", interval)
				ticker := time.NewTicker(interval)
				defer ticker.Stop()
				for {
					if err := cycle(ctx, s, dryRun, loc); err != nil {
						logger.Error("Prep cycle failed", "error", err)
					}
					select {
					case <-ctx.Done():
						return nil
					case <-ticker.C:
					}
				}
			}

			logger.Info("Running a single prep cycle.")
			if err := cycle(ctx, s, dryRun, loc); err != nil {
				return fmt.Errorf("single prep cycle failed: %w", err)
			}
			return nil
		},
	}
}

func scheduleCommand() *cli.Command {
	return &cli.Command{
		Name:  "schedule",
		Usage: "Run a prep cycle every day at the configured time.",
		Action: func(c *cli.Context) error {
			cfg, logger, err := loadConfig(c)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
			defer stop()

			rec := metrics.NewRecorder()
			s, loc, err := buildSyncer(ctx, logger, cfg, false, rec)
			if err != nil {
				return err
			}

			stopMetrics := serveMetrics(ctx, logger, cfg.Metrics.Addr, rec)
			defer stopMetrics()

			err = schedule.Run(ctx, logger, loc, schedule.Config{
				Hour:         cfg.Scheduler.RunHour,
				Minute:       cfg.Scheduler.RunMinute,
				WeekdaysOnly: cfg.Scheduler.WeekdaysOnly,
			}, func(ctx context.Context) error {
				return cycle(ctx, s, false, loc)
			})
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}
}

// cycle runs the syncer once and prints the digest.
func cycle(ctx context.Context, s *syncer.Syncer, dryRun bool, loc *time.Location) error {
	digest, err := s.Run(ctx)
	if digest != nil && (dryRun || err == nil) {
		syncer.PrintDigest(os.Stdout, digest, loc)
	}
	return err
}

// buildSyncer wires every enabled source, the processor and the publisher.
func buildSyncer(ctx context.Context, logger *slog.Logger, cfg *config.Config, dryRun bool, rec *metrics.Recorder) (*syncer.Syncer, *time.Location, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, nil, fmt.Errorf("invalid timezone '%s': %w", cfg.Timezone, err)
	}

	proc, err := processor.New(logger, cfg.Filters)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create processor: %w", err)
	}

	sources, err := buildSources(ctx, logger, cfg, loc)
	if err != nil {
		return nil, nil, err
	}
	logger.Info("Initialized calendar sources.", "count", len(sources))

	opts := []syncer.Option{syncer.WithRecorder(rec)}
	if dryRun {
		opts = append(opts, syncer.WithDryRun(cfg.PreviewPath))
	} else if cfg.ICloud.Enabled {
		client, err := newICloudClient(logger)
		if err != nil {
			return nil, nil, err
		}
		pub, err := icloud.NewPublisher(ctx, client, cfg.ICloud.PrepCalendar, cfg.ICloud.StatePath, loc)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create icloud publisher: %w", err)
		}
		opts = append(opts, syncer.WithPublisher(pub))
	}

	s, err := syncer.NewSyncer(logger, proc, sources, cfg.Lookahead(), loc, opts...)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create syncer: %w", err)
	}
	return s, loc, nil
}

// buildSources returns every configured source. A provider that cannot be
// initialized is logged and left out, so one missing token does not stop the run.
func buildSources(ctx context.Context, logger *slog.Logger, cfg *config.Config, loc *time.Location) ([]syncer.Source, error) {
	var sources []syncer.Source

	if cfg.Google.Enabled {
		accounts, err := google.GetTokenAccounts(cfg.Google.TokenDir)
		if err != nil || len(accounts) == 0 {
			logger.Warn("No google accounts found. Run the 'auth google' command first.", "tokenDir", cfg.Google.TokenDir)
		}
		for _, acc := range accounts {
			gClient, err := google.NewClient(ctx, logger, os.Getenv("GOOGLE_CLIENT_ID"), os.Getenv("GOOGLE_CLIENT_SECRET"),
				cfg.Google.TokenDir, acc, google.ClientConfig{
					CalendarIDs:      cfg.Google.CalendarIDs,
					Location:         loc,
					ExcludeCancelled: cfg.Filters.ExcludeCancelled,
				})
			if err != nil {
				logger.Error("Failed to create google client", "account", acc, "error", err)
				continue
			}
			sources = append(sources, gClient)
		}
	}

	if cfg.Outlook.Enabled {
		oauthCfg := outlook.OAuthConfig(os.Getenv("OUTLOOK_CLIENT_ID"), cfg.Outlook.Tenant)
		oClient, err := outlook.NewClient(ctx, logger, oauthCfg, cfg.Outlook.TokenPath,
			outlook.WithExcludeCancelled(cfg.Filters.ExcludeCancelled))
		if err != nil {
			logger.Error("Failed to create outlook client", "error", err)
		} else {
			sources = append(sources, oClient)
		}
	}

	if cfg.ICal.Enabled {
		for _, sub := range cfg.ICal.Subscriptions {
			if sub.URL == "" {
				continue
			}
			sources = append(sources, ics.NewFeed(logger, sub, loc, cfg.Filters.ExcludeCancelled))
		}
	}

	if cfg.ICloud.Enabled && cfg.ICloud.SourceCalendar != "" {
		client, err := newICloudClient(logger)
		if err != nil {
			return nil, err
		}
		src, err := icloud.NewSource(ctx, client, cfg.ICloud.SourceCalendar, loc, cfg.Filters.ExcludeCancelled)
		if err != nil {
			logger.Error("Failed to open icloud source calendar", "error", err)
		} else {
			sources = append(sources, src)
		}
	}

	st, err := store.New(logger, cfg.Store.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open meeting store: %w", err)
	}
	sources = append(sources, st)

	return sources, nil
}

func newICloudClient(logger *slog.Logger) (*icloud.Client, error) {
	client, err := icloud.NewClient(logger, os.Getenv("ICLOUD_USERNAME"), os.Getenv("ICLOUD_APP_SPECIFIC_PASSWORD"))
	if err != nil {
		return nil, fmt.Errorf("failed to create icloud client: %w", err)
	}
	return client, nil
}

// serveMetrics exposes /metrics on addr until ctx is done. It is a no-op
// when addr is empty. The returned func shuts the server down.
func serveMetrics(ctx context.Context, logger *slog.Logger, addr string, rec *metrics.Recorder) func() {
	if addr == "" {
		return func() {}
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", rec.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		logger.Info("Serving metrics.", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Metrics server failed", "error", err)
		}
	}()

	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}
}
