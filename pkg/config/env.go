package config

const EnvPrefix = "STOREFRONT"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	DBDriverPostgres = "postgres"
	DBDriverSQLite   = "sqlite"

	EventBusNone   = "none"
	EventBusPubSub = "pubsub"
	EventBusKafka  = "kafka"
)

const (
	EnvAppEnv    = "STOREFRONT_APP_ENV"
	EnvPort      = "STOREFRONT_APP_PORT"
	EnvDBDSN     = "STOREFRONT_DB_DSN"
	EnvDBDriver  = "STOREFRONT_DB_DRIVER"
	EnvDBHost    = "STOREFRONT_DB_HOST"
	EnvDBUser    = "STOREFRONT_DB_USER"
	EnvDBName    = "STOREFRONT_DB_NAME"
	EnvRedisURL  = "STOREFRONT_REDIS_URL"
	EnvJWTSecret = "STOREFRONT_JWT_SECRET"
	EnvJWTIssuer = "STOREFRONT_JWT_ISSUER"

	EnvPaymentCallbackToken = "STOREFRONT_PAYMENT_CALLBACK_TOKEN"
	EnvRestockThreshold     = "STOREFRONT_DEFAULT_RESTOCK_THRESHOLD"
	EnvNotificationsWorkers = "STOREFRONT_NOTIFICATIONS_WORKERS"
	EnvEventBus             = "STOREFRONT_EVENT_BUS"
	EnvGCPProjectID         = "STOREFRONT_GCP_PROJECT_ID"
	EnvKafkaBrokers         = "STOREFRONT_KAFKA_BROKERS"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
