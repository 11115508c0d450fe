package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
)

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	FeatureFlags FeatureFlagsConfig
	Pricing      PricingConfig
	Gateway      GatewayConfig
	Scheduler    SchedulerConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Outbox       OutboxConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(cfg.FeatureFlags.UseSQLite); err != nil {
		return nil, err
	}
	if err := cfg.Pricing.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"EVENTHUB_APP_ENV" required:"true"`
	Port         string `envconfig:"EVENTHUB_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"EVENTHUB_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"EVENTHUB_LOG_WARN_STACK" default:"false"`
	// Timezone used to derive "today" for event-date comparisons.
	Timezone    string   `envconfig:"EVENTHUB_TIMEZONE" default:"UTC"`
	CORSOrigins []string `envconfig:"EVENTHUB_CORS_ORIGINS"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev) || strings.EqualFold(a.Env, "development")
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd) || strings.EqualFold(a.Env, "production")
}

// Location resolves Timezone, falling back to UTC.
func (a AppConfig) Location() *time.Location {
	if strings.TrimSpace(a.Timezone) == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(a.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

type ServiceConfig struct {
	Kind string `envconfig:"EVENTHUB_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"EVENTHUB_DB_DSN"`
	Driver string `envconfig:"EVENTHUB_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"EVENTHUB_DB_HOST"`
	LegacyPort     int    `envconfig:"EVENTHUB_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"EVENTHUB_DB_USER"`
	LegacyPassword string `envconfig:"EVENTHUB_DB_PASSWORD"`
	LegacyName     string `envconfig:"EVENTHUB_DB_NAME"`
	LegacySSLMode  string `envconfig:"EVENTHUB_DB_SSLMODE" default:"disable"`

	SQLitePath string `envconfig:"EVENTHUB_SQLITE_PATH" default:"eventhub.db"`

	MaxOpenConns    int           `envconfig:"EVENTHUB_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"EVENTHUB_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"EVENTHUB_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"EVENTHUB_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"EVENTHUB_REDIS_URL" required:"true"`
	Address      string        `envconfig:"EVENTHUB_REDIS_ADDR"`
	Password     string        `envconfig:"EVENTHUB_REDIS_PASSWORD"`
	DB           int           `envconfig:"EVENTHUB_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"EVENTHUB_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"EVENTHUB_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"EVENTHUB_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"EVENTHUB_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"EVENTHUB_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"EVENTHUB_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"EVENTHUB_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"EVENTHUB_JWT_EXPIRATION_MINUTES" default:"60"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"EVENTHUB_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"EVENTHUB_AUTO_MIGRATE" default:"false"`
}

// PricingConfig holds the percentages applied when an offer becomes an order.
type PricingConfig struct {
	PlatformFeePercent string `envconfig:"EVENTHUB_PLATFORM_FEE_PERCENT" default:"5"`
	GSTPercent         string `envconfig:"EVENTHUB_GST_PERCENT" default:"18"`
	TokenPercent       string `envconfig:"EVENTHUB_TOKEN_PERCENT" default:"25"`
}

// Rates returns the configured percentages as fractions (5 -> 0.05).
func (p PricingConfig) Rates() (fee, gst, token decimal.Decimal, err error) {
	hundred := decimal.NewFromInt(100)
	parse := func(name, raw string) (decimal.Decimal, error) {
		v, err := decimal.NewFromString(strings.TrimSpace(raw))
		if err != nil {
			return decimal.Zero, fmt.Errorf("invalid %s %q: %w", name, raw, err)
		}
		if v.IsNegative() || v.GreaterThan(hundred) {
			return decimal.Zero, fmt.Errorf("%s must be between 0 and 100", name)
		}
		return v.Div(hundred), nil
	}
	if fee, err = parse(EnvPlatformFeePercent, p.PlatformFeePercent); err != nil {
		return
	}
	if gst, err = parse(EnvGSTPercent, p.GSTPercent); err != nil {
		return
	}
	token, err = parse(EnvTokenPercent, p.TokenPercent)
	return
}

func (p PricingConfig) validate() error {
	_, _, _, err := p.Rates()
	return err
}

// GatewayConfig configures the mock payment gateway adapter.
type GatewayConfig struct {
	KeyID            string        `envconfig:"EVENTHUB_GATEWAY_KEY_ID" default:"rzp_test_mock"`
	WebhookSecret    string        `envconfig:"EVENTHUB_GATEWAY_WEBHOOK_SECRET" required:"true"`
	CheckoutURL      string        `envconfig:"EVENTHUB_GATEWAY_CHECKOUT_URL" default:"https://checkout.razorpay.com/v1/checkout.js"`
	WebhookDedupeTTL time.Duration `envconfig:"EVENTHUB_GATEWAY_WEBHOOK_DEDUPE_TTL" default:"168h"`
	DefaultMethod    string        `envconfig:"EVENTHUB_GATEWAY_DEFAULT_METHOD" default:"upi"`
}

type SchedulerConfig struct {
	Interval          time.Duration `envconfig:"EVENTHUB_SCHEDULER_INTERVAL" default:"1h"`
	LockTTL           time.Duration `envconfig:"EVENTHUB_SCHEDULER_LOCK_TTL" default:"15m"`
	ReminderDedupeTTL time.Duration `envconfig:"EVENTHUB_SCHEDULER_REMINDER_DEDUPE_TTL" default:"36h"`
	UnpaidOrderTTL    time.Duration `envconfig:"EVENTHUB_SCHEDULER_UNPAID_ORDER_TTL" default:"24h"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"EVENTHUB_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"EVENTHUB_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"EVENTHUB_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	DomainTopic       string `envconfig:"EVENTHUB_PUBSUB_DOMAIN_TOPIC" default:"eh-domain-events"`
	NotificationTopic string `envconfig:"EVENTHUB_PUBSUB_NOTIFICATION_TOPIC" default:"eh-notification-events"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"EVENTHUB_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"EVENTHUB_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"EVENTHUB_OUTBOX_MAX_ATTEMPTS" default:"10"`
	RetentionDays  int `envconfig:"EVENTHUB_OUTBOX_RETENTION_DAYS" default:"30"`
}

func (db *DBConfig) ensureDSN(useSQLite bool) error {
	if db.DSN != "" || useSQLite {
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
