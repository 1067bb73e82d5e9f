package config

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App           AppConfig
	Service       ServiceConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	AuthRateLimit AuthRateLimitConfig
	FeatureFlags  FeatureFlagsConfig
	Eventing      EventingConfig
	GCP           GCPConfig
	PubSub        PubSubConfig
	BigQuery      BigQueryConfig
	Outbox        OutboxConfig
	Cron          CronConfig
	PayPack       PayPackConfig
	Marketplace   MarketplaceConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.Marketplace.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"SUNFLOWER_APP_ENV" required:"true"`
	Port         string `envconfig:"SUNFLOWER_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"SUNFLOWER_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"SUNFLOWER_LOG_WARN_STACK" default:"false"`
	CORSOrigins  string `envconfig:"SUNFLOWER_CORS_ORIGINS" default:"*"`
	// MetricsPort exposes /metrics from background workers; empty disables it.
	MetricsPort  string `envconfig:"SUNFLOWER_METRICS_PORT"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

// AllowedOrigins splits the comma separated CORS origin list.
func (a AppConfig) AllowedOrigins() []string {
	origins := []string{}
	for _, part := range strings.Split(a.CORSOrigins, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	return origins
}

type ServiceConfig struct {
	Kind string `envconfig:"SUNFLOWER_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"SUNFLOWER_DB_DSN"`
	Driver string `envconfig:"SUNFLOWER_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"SUNFLOWER_DB_HOST"`
	LegacyPort     int    `envconfig:"SUNFLOWER_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"SUNFLOWER_DB_USER"`
	LegacyPassword string `envconfig:"SUNFLOWER_DB_PASSWORD"`
	LegacyName     string `envconfig:"SUNFLOWER_DB_NAME"`
	LegacySSLMode  string `envconfig:"SUNFLOWER_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"SUNFLOWER_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"SUNFLOWER_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"SUNFLOWER_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"SUNFLOWER_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

// IsSQLite reports whether the configured driver targets SQLite.
func (db DBConfig) IsSQLite() bool {
	return strings.EqualFold(strings.TrimSpace(db.Driver), DBDriverSQLite)
}

type RedisConfig struct {
	URL          string        `envconfig:"SUNFLOWER_REDIS_URL" required:"true"`
	Address      string        `envconfig:"SUNFLOWER_REDIS_ADDR"`
	Password     string        `envconfig:"SUNFLOWER_REDIS_PASSWORD"`
	DB           int           `envconfig:"SUNFLOWER_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"SUNFLOWER_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"SUNFLOWER_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"SUNFLOWER_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"SUNFLOWER_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"SUNFLOWER_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret                 string `envconfig:"SUNFLOWER_JWT_SECRET" required:"true"`
	Issuer                 string `envconfig:"SUNFLOWER_JWT_ISSUER" required:"true"`
	ExpirationMinutes      int    `envconfig:"SUNFLOWER_JWT_EXPIRATION_MINUTES" required:"true"`
	RefreshTokenTTLMinutes int    `envconfig:"SUNFLOWER_REFRESH_TOKEN_TTL_MINUTES" default:"43200"`
}

// RefreshTokenTTL returns the refresh token TTL configured in minutes.
func (j JWTConfig) RefreshTokenTTL() time.Duration {
	if j.RefreshTokenTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.RefreshTokenTTLMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"SUNFLOWER_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"SUNFLOWER_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"SUNFLOWER_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"SUNFLOWER_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"SUNFLOWER_ARGON_KEY_LEN" default:"32"`
}

type AuthRateLimitConfig struct {
	LoginWindow        time.Duration `envconfig:"SUNFLOWER_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginPhoneLimit    int           `envconfig:"SUNFLOWER_AUTH_RATE_LIMIT_LOGIN_PHONE_LIMIT" default:"5"`
	LoginIPLimit       int           `envconfig:"SUNFLOWER_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
	RegisterWindow     time.Duration `envconfig:"SUNFLOWER_AUTH_RATE_LIMIT_REGISTER_WINDOW" default:"5m"`
	RegisterPhoneLimit int           `envconfig:"SUNFLOWER_AUTH_RATE_LIMIT_REGISTER_PHONE_LIMIT" default:"3"`
	RegisterIPLimit    int           `envconfig:"SUNFLOWER_AUTH_RATE_LIMIT_REGISTER_IP_LIMIT" default:"20"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"SUNFLOWER_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"SUNFLOWER_AUTO_MIGRATE" default:"false"`
}

type EventingConfig struct {
	OutboxIdempotencyTTL time.Duration `envconfig:"SUNFLOWER_EVENTING_IDEMPOTENCY_TTL" default:"720h"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"SUNFLOWER_GCP_PROJECT_ID" required:"true"`
	CredentialsJSON        string `envconfig:"SUNFLOWER_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"SUNFLOWER_GOOGLE_APPLICATION_CREDENTIALS"`
	PubSubEmulatorHost     string `envconfig:"SUNFLOWER_PUBSUB_EMULATOR_HOST"`
}

type PubSubConfig struct {
	DomainTopic               string `envconfig:"SUNFLOWER_PUBSUB_DOMAIN_TOPIC" default:"sunflower-domain-events"`
	AnalyticsSubscription     string `envconfig:"SUNFLOWER_PUBSUB_ANALYTICS_SUBSCRIPTION" required:"true"`
	NotificationsSubscription string `envconfig:"SUNFLOWER_PUBSUB_NOTIFICATIONS_SUBSCRIPTION" default:"sunflower-notifications"`
}

type BigQueryConfig struct {
	Dataset                string        `envconfig:"SUNFLOWER_BIGQUERY_DATASET" default:"sunflower"`
	MarketplaceEventsTable string        `envconfig:"SUNFLOWER_BIGQUERY_MARKETPLACE_TABLE" default:"marketplace_events"`
	InsertBatchSize        int           `envconfig:"SUNFLOWER_BIGQUERY_INSERT_BATCH_SIZE" default:"1"`
	FlushInterval          time.Duration `envconfig:"SUNFLOWER_BIGQUERY_FLUSH_INTERVAL" default:"5s"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"SUNFLOWER_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"SUNFLOWER_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"SUNFLOWER_OUTBOX_MAX_ATTEMPTS" default:"10"`
	RetentionDays  int `envconfig:"SUNFLOWER_OUTBOX_RETENTION_DAYS" default:"30"`
}

// CronConfig sets the scheduler tick and how often each job may run.
type CronConfig struct {
	Interval       time.Duration `envconfig:"SUNFLOWER_CRON_INTERVAL" default:"1h"`
	OverdueEvery   time.Duration `envconfig:"SUNFLOWER_CRON_OVERDUE_EVERY" default:"1h"`
	RetentionEvery time.Duration `envconfig:"SUNFLOWER_CRON_RETENTION_EVERY" default:"24h"`
}

// PayPackConfig configures the mobile money cash-in gateway.
type PayPackConfig struct {
	BaseURL      string        `envconfig:"SUNFLOWER_PAYPACK_BASE_URL" default:"https://payments.paypack.rw/api"`
	ClientID     string        `envconfig:"SUNFLOWER_PAYPACK_CLIENT_ID"`
	ClientSecret string        `envconfig:"SUNFLOWER_PAYPACK_CLIENT_SECRET"`
	WebhookMode  string        `envconfig:"SUNFLOWER_PAYPACK_WEBHOOK_MODE" default:"development"`
	Timeout      time.Duration `envconfig:"SUNFLOWER_PAYPACK_TIMEOUT" default:"30s"`
}

// Enabled reports whether gateway credentials were supplied.
func (p PayPackConfig) Enabled() bool {
	return strings.TrimSpace(p.ClientID) != "" && strings.TrimSpace(p.ClientSecret) != ""
}

type MarketplaceConfig struct {
	DefaultDeliveryDays int `envconfig:"SUNFLOWER_DEFAULT_DELIVERY_DAYS" default:"7"`
	MaxDeliveryDays     int `envconfig:"SUNFLOWER_MAX_DELIVERY_DAYS" default:"365"`
}

func (m MarketplaceConfig) validate() error {
	if m.DefaultDeliveryDays < 1 {
		return fmt.Errorf("%s must be at least 1", EnvDefaultDeliveryDays)
	}
	if m.MaxDeliveryDays < m.DefaultDeliveryDays {
		return fmt.Errorf("%s must not be below %s", EnvMaxDeliveryDays, EnvDefaultDeliveryDays)
	}
	return nil
}

// ensureDSN builds a postgres URL from the discrete DB variables when no
// DSN was given.
func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}
	var missing []string
	for _, part := range []struct{ env, value string }{
		{EnvDBHost, db.LegacyHost},
		{EnvDBUser, db.LegacyUser},
		{EnvDBName, db.LegacyName},
	} {
		if strings.TrimSpace(part.value) == "" {
			missing = append(missing, part.env)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("set %s or provide %s", EnvDBDSN, strings.Join(missing, ", "))
	}

	dsn := url.URL{
		Scheme: DBDriverPostgres,
		User:   url.User(db.LegacyUser),
		Host:   net.JoinHostPort(db.LegacyHost, strconv.Itoa(db.LegacyPort)),
		Path:   db.LegacyName,
	}
	if db.LegacyPassword != "" {
		dsn.User = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}
	if db.LegacySSLMode != "" {
		dsn.RawQuery = url.Values{"sslmode": {db.LegacySSLMode}}.Encode()
	}
	db.DSN = dsn.String()
	return nil
}
