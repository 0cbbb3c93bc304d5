package config

// EnvPrefix namespaces every environment variable this service reads.
const EnvPrefix = "PICKFLOW"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

// Canonical environment variable names, shared with tests and boot errors.
const (
	EnvAppEnv     = "PICKFLOW_APP_ENV"
	EnvPort       = "PICKFLOW_APP_PORT"
	EnvDBDSN      = "PICKFLOW_DB_DSN"
	EnvDBHost     = "PICKFLOW_DB_HOST"
	EnvDBUser     = "PICKFLOW_DB_USER"
	EnvDBName     = "PICKFLOW_DB_NAME"
	EnvRedisURL   = "PICKFLOW_REDIS_URL"
	EnvJWTSecret  = "PICKFLOW_JWT_SECRET"
	EnvJWTIssuer  = "PICKFLOW_JWT_ISSUER"
	EnvJWTExpMins = "PICKFLOW_JWT_EXPIRATION_MINUTES"

	EnvGCPProjectID = "PICKFLOW_GCP_PROJECT_ID"

	EnvPubSubDomainTopic  = "PICKFLOW_PUBSUB_DOMAIN_TOPIC"
	EnvPubSubDomainSub    = "PICKFLOW_PUBSUB_DOMAIN_SUBSCRIPTION"
	EnvPubSubAnalyticsTop = "PICKFLOW_PUBSUB_ANALYTICS_TOPIC"
	EnvPubSubAnalyticsSub = "PICKFLOW_PUBSUB_ANALYTICS_SUBSCRIPTION"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
