package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App       AppConfig
	Service   ServiceConfig
	DB        DBConfig
	Redis     RedisConfig
	Shopify   ShopifyConfig
	Admin     AdminConfig
	Webhook   WebhookConfig
	Reconcile ReconcileConfig
	Flags     FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"DBS_APP_ENV" required:"true"`
	Port         string `envconfig:"DBS_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"DBS_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"DBS_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"DBS_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"DBS_DB_DSN"`
	Driver string `envconfig:"DBS_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"DBS_DB_HOST"`
	LegacyPort     int    `envconfig:"DBS_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"DBS_DB_USER"`
	LegacyPassword string `envconfig:"DBS_DB_PASSWORD"`
	LegacyName     string `envconfig:"DBS_DB_NAME"`
	LegacySSLMode  string `envconfig:"DBS_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"DBS_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"DBS_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"DBS_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"DBS_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"DBS_REDIS_URL" required:"true"`
	Address      string        `envconfig:"DBS_REDIS_ADDR"`
	Password     string        `envconfig:"DBS_REDIS_PASSWORD"`
	DB           int           `envconfig:"DBS_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"DBS_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"DBS_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"DBS_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"DBS_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"DBS_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type ShopifyConfig struct {
	ShopURL       string        `envconfig:"DBS_SHOP_URL" required:"true"`
	AccessToken   string        `envconfig:"DBS_SHOPIFY_ACCESS_TOKEN" required:"true"`
	WebhookSecret string        `envconfig:"DBS_SHOPIFY_WEBHOOK_SECRET" required:"true"`
	APIVersion    string        `envconfig:"DBS_SHOPIFY_API_VERSION" default:"2025-01"`
	Timeout       time.Duration `envconfig:"DBS_SHOPIFY_TIMEOUT" default:"10s"`
	MaxRetries    int           `envconfig:"DBS_SHOPIFY_MAX_RETRIES" default:"3"`
	RetryBaseWait time.Duration `envconfig:"DBS_SHOPIFY_RETRY_BASE_WAIT" default:"500ms"`
}

type AdminConfig struct {
	Token string `envconfig:"DBS_ADMIN_API_TOKEN"`
}

type WebhookConfig struct {
	IdempotencyTTL time.Duration `envconfig:"DBS_WEBHOOK_IDEMPOTENCY_TTL" default:"24h"`
}

type ReconcileConfig struct {
	Interval time.Duration `envconfig:"DBS_RECONCILE_INTERVAL" default:"24h"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"DBS_AUTO_MIGRATE" default:"false"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}

// BaseURL returns the Shopify admin API root for the configured shop/version.
func (s ShopifyConfig) BaseURL() string {
	shop := strings.TrimSuffix(strings.TrimSpace(s.ShopURL), "/")
	shop = strings.TrimPrefix(shop, "https://")
	return fmt.Sprintf("https://%s/admin/api/%s", shop, s.APIVersion)
}
