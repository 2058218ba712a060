package config

const (
	// EnvPrefix is applied to every envconfig lookup.
	EnvPrefix = ""

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvAppEnv = "DBS_APP_ENV"
	EnvPort   = "DBS_APP_PORT"

	EnvDBDSN  = "DBS_DB_DSN"
	EnvDBHost = "DBS_DB_HOST"
	EnvDBUser = "DBS_DB_USER"
	EnvDBName = "DBS_DB_NAME"

	EnvRedisURL = "DBS_REDIS_URL"

	EnvShopURL              = "DBS_SHOP_URL"
	EnvShopifyAccessToken   = "DBS_SHOPIFY_ACCESS_TOKEN"
	EnvShopifyWebhookSecret = "DBS_SHOPIFY_WEBHOOK_SECRET"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
