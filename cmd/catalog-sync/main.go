package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/angelmondragon/storefront-api/internal/catalog"
	"github.com/angelmondragon/storefront-api/pkg/config"
	"github.com/angelmondragon/storefront-api/pkg/db"
	"github.com/angelmondragon/storefront-api/pkg/logger"
	"github.com/angelmondragon/storefront-api/pkg/migrate"
	"github.com/angelmondragon/storefront-api/pkg/sanity"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "catalog-sync"})

	_ = godotenv.Load()

	interval := flag.Duration("interval", 0, "re-run the sync on this interval; 0 runs once and exits")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "catalog-sync",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	if !cfg.Sanity.Enabled() {
		logg.Error(context.Background(), "catalog sync requires sanity", errors.New("STOREFRONT_SANITY_PROJECT_ID is not set"))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":     cfg.App.Env,
		"dataset": cfg.Sanity.Dataset,
	})

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer dbClient.Close()

	if err := migrate.AutoRun(ctx, cfg, logg, dbClient); err != nil {
		logg.Error(ctx, "failed to run startup migrations", err)
		os.Exit(1)
	}

	sanityClient, err := sanity.NewClient(sanity.Config{
		ProjectID:  cfg.Sanity.ProjectID,
		Dataset:    cfg.Sanity.Dataset,
		APIVersion: cfg.Sanity.APIVersion,
		Token:      cfg.Sanity.Token,
		UseCDN:     cfg.Sanity.UseCDN,
	})
	if err != nil {
		logg.Error(ctx, "failed to create sanity client", err)
		os.Exit(1)
	}

	syncer := catalog.NewSyncer(sanityClient, catalog.NewRepository(dbClient.DB()), logg, catalog.WithTransactions(dbClient))

	if *interval <= 0 {
		if err := runOnce(ctx, logg, syncer); err != nil {
			os.Exit(1)
		}
		return
	}

	logg.Info(logg.WithField(ctx, "interval", interval.String()), "starting catalog sync loop")
	ticker := time.NewTicker(*interval)
	defer ticker.Stop()
	for {
		_ = runOnce(ctx, logg, syncer)
		select {
		case <-ctx.Done():
			logg.Info(context.Background(), "catalog sync shutting down gracefully")
			return
		case <-ticker.C:
		}
	}
}

func runOnce(ctx context.Context, logg *logger.Logger, syncer *catalog.Syncer) error {
	result, err := syncer.Sync(ctx)
	if err != nil {
		logg.Error(ctx, "catalog sync failed", err)
		return err
	}
	if result.Invalid != nil {
		logg.Warn(logg.WithField(ctx, "error", result.Invalid.Error()), "catalog sync skipped invalid documents")
	}
	return nil
}
