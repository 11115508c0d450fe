package config

const (
	EnvPrefix = "EVENTHUB"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvAppEnv   = "EVENTHUB_APP_ENV"
	EnvPort     = "EVENTHUB_APP_PORT"
	EnvLogLevel = "EVENTHUB_LOG_LEVEL"
	EnvTimezone = "EVENTHUB_TIMEZONE"

	EnvDBDSN  = "EVENTHUB_DB_DSN"
	EnvDBHost = "EVENTHUB_DB_HOST"
	EnvDBUser = "EVENTHUB_DB_USER"
	EnvDBName = "EVENTHUB_DB_NAME"

	EnvUseSQLite = "EVENTHUB_USE_SQLITE"

	EnvRedisURL = "EVENTHUB_REDIS_URL"

	EnvJWTSecret  = "EVENTHUB_JWT_SECRET"
	EnvJWTIssuer  = "EVENTHUB_JWT_ISSUER"
	EnvJWTExpMins = "EVENTHUB_JWT_EXPIRATION_MINUTES"

	EnvPlatformFeePercent = "EVENTHUB_PLATFORM_FEE_PERCENT"
	EnvGSTPercent         = "EVENTHUB_GST_PERCENT"
	EnvTokenPercent       = "EVENTHUB_TOKEN_PERCENT"

	EnvGatewayWebhookSecret = "EVENTHUB_GATEWAY_WEBHOOK_SECRET"
	EnvGatewayKeyID         = "EVENTHUB_GATEWAY_KEY_ID"

	EnvGCPProjectID        = "EVENTHUB_GCP_PROJECT_ID"
	EnvPubSubDomainTopic   = "EVENTHUB_PUBSUB_DOMAIN_TOPIC"
	EnvPubSubNotifyTopic   = "EVENTHUB_PUBSUB_NOTIFICATION_TOPIC"
	EnvOutboxRetentionDays = "EVENTHUB_OUTBOX_RETENTION_DAYS"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
