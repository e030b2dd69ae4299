package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/star/skywindow/internal/api"
	"github.com/star/skywindow/internal/auth"
	"github.com/star/skywindow/internal/catalog"
	"github.com/star/skywindow/internal/chart"
	"github.com/star/skywindow/internal/config"
	"github.com/star/skywindow/internal/lightpollution"
	"github.com/star/skywindow/internal/metrics"
	"github.com/star/skywindow/internal/notify"
	"github.com/star/skywindow/internal/report"
	"github.com/star/skywindow/internal/reportstore"
	"github.com/star/skywindow/internal/staticmap"
	"github.com/star/skywindow/internal/weather"
)

func main() {
	once := flag.Bool("once", false, "run report generation once and exit")
	user := flag.String("user", "", "restrict the run to one user id (implies -once)")
	envFile := flag.String("env", ".env", "optional dotenv file")
	flag.Parse()

	if err := godotenv.Load(*envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Error("reading env file", "path", *envFile, "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	level, _ := cfg.SlogLevel()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))

	holder := newCatalogHolder(cfg, logger)
	if err := holder.Reload(ctx); err != nil {
		logger.Error("loading catalogue", "path", cfg.CatalogPath, "error", err)
		os.Exit(1)
	}
	users, sites, objects, observations := holder.Get().Counts()
	logger.Info("catalogue loaded",
		"path", cfg.CatalogPath,
		"users", users,
		"sites", sites,
		"objects", objects,
		"observations", observations,
	)

	store := reportstore.NewFS(cfg.ReportDir, cfg.ReportKeep)
	gen := report.NewGenerator(report.Config{
		Workers:     cfg.Workers,
		SiteTimeout: cfg.SiteTimeout,
	}, newDeps(cfg, holder, store, logger), logger)

	workers := cfg.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	metrics.SetWorkers(workers)

	if *once || *user != "" {
		if err := runOnce(ctx, gen, *user, logger); err != nil {
			os.Exit(1)
		}
		return
	}

	srv := api.NewServer(cfg.HTTPAddr, logger, auth.Config{
		Enabled: cfg.AuthEnabled,
		Token:   cfg.AuthToken,
	}, cfg.TrustProxy, api.Deps{
		Runner:      gen,
		Catalogs:    holder,
		Reports:     store,
		BaseContext: ctx,
	})

	// Background goroutine to update the catalogue age gauge.
	go func() {
		ticker := time.NewTicker(10 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if age := holder.AgeSeconds(); age >= 0 {
					metrics.SetCatalogAge(age)
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	go schedule(ctx, gen, cfg.RunInterval, logger)

	go func() {
		logger.Info("starting server", "addr", cfg.HTTPAddr, "auth_enabled", cfg.AuthEnabled, "run_interval", cfg.RunInterval.String())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server listen error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.HTTPServer().Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}

func newCatalogHolder(cfg *config.Config, logger *slog.Logger) *catalog.Holder {
	loader := catalog.Loader{
		DefaultBortle: cfg.DefaultBortle,
		Logger:        logger.With("component", "catalog"),
	}
	if cfg.LightPollutionURL != "" {
		loader.Provider = lightpollution.NewHTTPProvider(cfg.LightPollutionURL, 10*time.Second)
	}
	return catalog.NewHolder(func(ctx context.Context) (*catalog.Catalog, error) {
		return loader.LoadFile(ctx, cfg.CatalogPath)
	})
}

func newDeps(cfg *config.Config, holder *catalog.Holder, store *reportstore.FS, logger *slog.Logger) report.Deps {
	if cfg.OWMAPIKey == "" {
		logger.Warn("SKYWINDOW_OWM_API_KEY is not set, forecast requests will be rejected")
	}
	var forecasts weather.Provider = weather.NewOpenWeatherMap(cfg.OWMURL, cfg.OWMAPIKey, cfg.SiteTimeout)
	forecasts = weather.NewRateLimited(forecasts, cfg.OWMRPS, 1)
	if cfg.ForecastCacheTTL > 0 {
		forecasts = weather.NewCached(forecasts, cfg.ForecastCacheTTL)
	}

	deps := report.Deps{
		Source:    holder,
		Forecasts: forecasts,
		Charts:    chart.NewAltitude(),
		Store:     store,
	}
	if cfg.MapURL != "" {
		deps.Maps = staticmap.NewClient(cfg.MapURL, cfg.MapAPIKey, cfg.SiteTimeout)
	}

	if cfg.MailEnabled() {
		deps.Sender = notify.NewSMTP(notify.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			From:     cfg.SMTPFrom,
		})
	} else {
		logger.Info("SMTP not configured, reports are logged instead of mailed")
		deps.Sender = notify.NewLog(logger)
	}
	return deps
}

func runOnce(ctx context.Context, gen *report.Generator, userID string, logger *slog.Logger) error {
	summary, err := gen.Run(ctx, time.Now().UTC(), userID)
	for _, f := range summary.Failed {
		logger.Warn("site failed", "user_id", f.UserID, "site_id", f.SiteID, "state", f.State.String(), "reason", f.Reason)
	}
	if err != nil {
		logger.Error("report run failed", "user_id", userID, "error", err)
	}
	return err
}

// schedule runs report generation every interval until ctx is done.
func schedule(ctx context.Context, gen *report.Generator, interval time.Duration, logger *slog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if _, err := gen.Run(ctx, time.Now().UTC(), ""); err != nil {
				logger.Warn("scheduled run failed", "error", err)
			}
		case <-ctx.Done():
			return
		}
	}
}
