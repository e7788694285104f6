package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/storefront-api/api/controllers"
	"github.com/angelmondragon/storefront-api/api/middleware"
	"github.com/angelmondragon/storefront-api/internal/search"
	"github.com/angelmondragon/storefront-api/internal/shipping"
	"github.com/angelmondragon/storefront-api/pkg/config"
	"github.com/angelmondragon/storefront-api/pkg/logger"
)

// NewRouter mounts the storefront API. rateStore may be nil, which disables quote
// rate limiting. metricsHandler may be nil, which leaves /metrics unmounted.
func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	readiness []controllers.ReadinessCheck,
	rateStore middleware.RateLimitStore,
	shippingService shipping.Service,
	searchService search.Service,
	metricsHandler http.Handler,
) http.Handler {
	r := chi.NewRouter()
	corsPolicy := middleware.NewCORSPolicy(cfg.CORS.AllowedOrigins, cfg.CORS.MaxAge)

	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(corsPolicy),
	)

	quotePolicy := middleware.NewRateLimitPolicy(
		"shipping_quote",
		cfg.RateLimit.QuoteWindow,
		cfg.RateLimit.QuoteLimit,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, readiness...))
	})

	if metricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", metricsHandler)
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/ping", controllers.Ping(cfg))

		r.Route("/shipping/quote", func(r chi.Router) {
			r.Options("/", middleware.Preflight(corsPolicy))
			r.With(middleware.RateLimit(quotePolicy, rateStore, logg)).Post("/", controllers.ShippingQuote(shippingService, logg))
		})

		r.Route("/search", func(r chi.Router) {
			r.Options("/", middleware.Preflight(corsPolicy))
			r.Get("/", controllers.SiteSearch(searchService, logg))
		})
	})

	return r
}
