package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/storefront-api/api/controllers"
	"github.com/angelmondragon/storefront-api/api/middleware"
	"github.com/angelmondragon/storefront-api/api/routes"
	"github.com/angelmondragon/storefront-api/internal/catalog"
	"github.com/angelmondragon/storefront-api/internal/search"
	"github.com/angelmondragon/storefront-api/internal/shipping"
	"github.com/angelmondragon/storefront-api/pkg/config"
	"github.com/angelmondragon/storefront-api/pkg/db"
	"github.com/angelmondragon/storefront-api/pkg/easypost"
	"github.com/angelmondragon/storefront-api/pkg/logger"
	"github.com/angelmondragon/storefront-api/pkg/metrics"
	"github.com/angelmondragon/storefront-api/pkg/migrate"
	"github.com/angelmondragon/storefront-api/pkg/redis"
	"github.com/angelmondragon/storefront-api/pkg/sanity"
)

const shutdownTimeout = 10 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.AutoRun(ctx, cfg, logg, dbClient); err != nil {
		logg.Error(ctx, "failed to run startup migrations", err)
		os.Exit(1)
	}

	readiness := []controllers.ReadinessCheck{{Name: "database", Pinger: dbClient}}

	// Quote rate limiting is skipped entirely when redis is not configured.
	var rateStore middleware.RateLimitStore
	if cfg.Redis.Enabled() {
		redisClient, err := redis.New(ctx, cfg.Redis, logg)
		if err != nil {
			logg.Error(ctx, "failed to bootstrap redis", err)
			os.Exit(1)
		}
		defer func() {
			if err := redisClient.Close(); err != nil {
				logg.Error(context.Background(), "error closing redis", err)
			}
		}()
		rateStore = redisClient
		readiness = append(readiness, controllers.ReadinessCheck{Name: "redis", Pinger: redisClient})
	} else {
		logg.Warn(ctx, "redis not configured, quote rate limiting disabled")
	}

	var cms shipping.RateQuerier
	if cfg.Sanity.Enabled() {
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
		cms = sanityClient
	}

	envRates, err := cfg.Shipping.FallbackRates()
	if err != nil {
		logg.Error(ctx, "invalid fallback rates", err)
		os.Exit(1)
	}
	fallback, fallbackSource := shipping.ResolveFallbackTable(ctx, cms, envRates, logg)
	logg.Info(logg.WithFields(ctx, map[string]any{
		"source":  fallbackSource,
		"entries": fallback.Len(),
	}), "shipping fallback table loaded")

	var live shipping.LiveRates
	if cfg.EasyPost.Enabled() {
		epClient, err := easypost.NewClient(cfg.EasyPost.APIKey, easypost.WithBaseURL(cfg.EasyPost.BaseURL))
		if err != nil {
			logg.Error(ctx, "failed to create easypost client", err)
			os.Exit(1)
		}
		live = shipping.NewEasyPostRates(epClient, shipping.Origin{
			Name:       cfg.Shipping.OriginName,
			Street1:    cfg.Shipping.OriginStreet1,
			City:       cfg.Shipping.OriginCity,
			State:      cfg.Shipping.OriginState,
			PostalCode: cfg.Shipping.OriginPostalCode,
			Country:    cfg.Shipping.OriginCountry,
		}, cfg.EasyPost.Carriers)
	} else {
		logg.Warn(ctx, "easypost not configured, quotes use fallback rates only")
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	shippingMetrics := metrics.NewShippingMetrics(registry)

	catalogRepo := catalog.NewRepository(dbClient.DB())

	shippingService, err := shipping.NewService(
		shipping.NewParcelBuilder(shipping.ParcelDefaults{
			ItemWeightOz: cfg.Shipping.DefaultItemWeightOz,
			LengthIn:     cfg.Shipping.DefaultLengthIn,
			WidthIn:      cfg.Shipping.DefaultWidthIn,
			HeightIn:     cfg.Shipping.DefaultHeightIn,
		}, catalogRepo, logg),
		shipping.NewRateSource(live, fallback, shipping.RateSourceOptions{
			Timeout:  cfg.Shipping.QuoteTimeout,
			Currency: cfg.Shipping.Currency,
			Metrics:  shippingMetrics,
			Logger:   logg,
		}),
		shipping.Rules{FreeShippingThresholdCents: cfg.Shipping.FreeShippingThresholdCents},
		shippingMetrics,
		logg,
	)
	if err != nil {
		logg.Error(ctx, "failed to create shipping service", err)
		os.Exit(1)
	}

	searchService, err := search.NewService(catalogRepo)
	if err != nil {
		logg.Error(ctx, "failed to create search service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx = logg.WithFields(ctx, map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(
			cfg,
			logg,
			readiness,
			rateStore,
			shippingService,
			searchService,
			promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(shutdownCtx, "api server shutdown failed", err)
		}
		logg.Info(shutdownCtx, "api server shut down gracefully")
	}
}
