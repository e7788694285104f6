package config

const EnvPrefix = "STOREFRONT"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	DBDriverPostgres = "postgres"
	DBDriverSQLite   = "sqlite"
)

const (
	EnvAppEnv                = "STOREFRONT_APP_ENV"
	EnvPort                  = "STOREFRONT_APP_PORT"
	EnvDBDriver              = "STOREFRONT_DB_DRIVER"
	EnvDBDSN                 = "STOREFRONT_DB_DSN"
	EnvRedisURL              = "STOREFRONT_REDIS_URL"
	EnvCORSAllowedOrigins    = "STOREFRONT_CORS_ALLOWED_ORIGINS"
	EnvShippingQuoteTimeout  = "STOREFRONT_SHIPPING_QUOTE_TIMEOUT"
	EnvShippingFreeThreshold = "STOREFRONT_SHIPPING_FREE_THRESHOLD_CENTS"
	EnvShippingFallbackRates = "STOREFRONT_SHIPPING_FALLBACK_RATES"
	EnvEasyPostAPIKey        = "STOREFRONT_EASYPOST_API_KEY"
	EnvEasyPostCarriers      = "STOREFRONT_EASYPOST_CARRIERS"
	EnvSanityProjectID       = "STOREFRONT_SANITY_PROJECT_ID"
)
