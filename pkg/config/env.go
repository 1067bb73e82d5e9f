package config

const (
	EnvPrefix = "SUNFLOWER"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	DBDriverPostgres = "postgres"
	DBDriverSQLite   = "sqlite"
)

// Environment variable names referenced outside struct tags.
const (
	EnvAppEnv                 = "SUNFLOWER_APP_ENV"
	EnvPort                   = "SUNFLOWER_APP_PORT"
	EnvDBDSN                  = "SUNFLOWER_DB_DSN"
	EnvDBDriver               = "SUNFLOWER_DB_DRIVER"
	EnvDBHost                 = "SUNFLOWER_DB_HOST"
	EnvDBUser                 = "SUNFLOWER_DB_USER"
	EnvDBName                 = "SUNFLOWER_DB_NAME"
	EnvDBPassword             = "SUNFLOWER_DB_PASSWORD"
	EnvRedisURL               = "SUNFLOWER_REDIS_URL"
	EnvJWTSecret              = "SUNFLOWER_JWT_SECRET"
	EnvJWTIssuer              = "SUNFLOWER_JWT_ISSUER"
	EnvJWTExpMins             = "SUNFLOWER_JWT_EXPIRATION_MINUTES"
	EnvRefreshTokenTTLMinutes = "SUNFLOWER_REFRESH_TOKEN_TTL_MINUTES"
	EnvGCPProjectID           = "SUNFLOWER_GCP_PROJECT_ID"
	EnvPubSubDomainTopic      = "SUNFLOWER_PUBSUB_DOMAIN_TOPIC"
	EnvPubSubAnalyticsSub     = "SUNFLOWER_PUBSUB_ANALYTICS_SUBSCRIPTION"
	EnvPayPackClientID        = "SUNFLOWER_PAYPACK_CLIENT_ID"
	EnvPayPackClientSecret    = "SUNFLOWER_PAYPACK_CLIENT_SECRET"
	EnvDefaultDeliveryDays    = "SUNFLOWER_DEFAULT_DELIVERY_DAYS"
	EnvMaxDeliveryDays        = "SUNFLOWER_MAX_DELIVERY_DAYS"
)
