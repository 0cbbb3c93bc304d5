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
	App           AppConfig
	Service       ServiceConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	AuthRateLimit AuthRateLimitConfig
	Scanner       ScannerConfig
	Retention     RetentionConfig
	FeatureFlags  FeatureFlagsConfig
	Eventing      EventingConfig
	GCP           GCPConfig
	PubSub        PubSubConfig
	BigQuery      BigQueryConfig
	Outbox        OutboxConfig
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
	Env          string `envconfig:"PICKFLOW_APP_ENV" required:"true"`
	Port         string `envconfig:"PICKFLOW_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"PICKFLOW_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"PICKFLOW_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"PICKFLOW_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"PICKFLOW_DB_DSN"`
	Driver string `envconfig:"PICKFLOW_DB_DRIVER" default:"postgres"`

	// FallbackDSNs are probed in order when the primary DSN is unreachable.
	FallbackDSNs []string      `envconfig:"PICKFLOW_DB_FALLBACK_DSNS"`
	ProbeTimeout time.Duration `envconfig:"PICKFLOW_DB_PROBE_TIMEOUT" default:"3s"`

	LegacyHost     string `envconfig:"PICKFLOW_DB_HOST"`
	LegacyPort     int    `envconfig:"PICKFLOW_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"PICKFLOW_DB_USER"`
	LegacyPassword string `envconfig:"PICKFLOW_DB_PASSWORD"`
	LegacyName     string `envconfig:"PICKFLOW_DB_NAME"`
	LegacySSLMode  string `envconfig:"PICKFLOW_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"PICKFLOW_DB_MAX_OPEN_CONNS" default:"10"`
	MaxIdleConns    int           `envconfig:"PICKFLOW_DB_MAX_IDLE_CONNS" default:"2"`
	ConnMaxLifetime time.Duration `envconfig:"PICKFLOW_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"PICKFLOW_DB_CONN_MAX_IDLE_TIME" default:"10m"`
	BorrowTimeout   time.Duration `envconfig:"PICKFLOW_DB_BORROW_TIMEOUT" default:"30s"`
}

type RedisConfig struct {
	URL          string        `envconfig:"PICKFLOW_REDIS_URL" required:"true"`
	Address      string        `envconfig:"PICKFLOW_REDIS_ADDR"`
	Password     string        `envconfig:"PICKFLOW_REDIS_PASSWORD"`
	DB           int           `envconfig:"PICKFLOW_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"PICKFLOW_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"PICKFLOW_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"PICKFLOW_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"PICKFLOW_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"PICKFLOW_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"PICKFLOW_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"PICKFLOW_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"PICKFLOW_JWT_EXPIRATION_MINUTES" required:"true"`
	RefreshTTLHours   int    `envconfig:"PICKFLOW_JWT_REFRESH_TTL_HOURS" default:"24"`
}

// RefreshTokenTTL is the lifetime of the refresh token a station receives at
// login; it must exceed the access token lifetime.
func (j JWTConfig) RefreshTokenTTL() time.Duration {
	return time.Duration(j.RefreshTTLHours) * time.Hour
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"PICKFLOW_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"PICKFLOW_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"PICKFLOW_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"PICKFLOW_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"PICKFLOW_ARGON_KEY_LEN" default:"32"`
}

type AuthRateLimitConfig struct {
	LoginWindow       time.Duration `envconfig:"PICKFLOW_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginStationLimit int           `envconfig:"PICKFLOW_AUTH_RATE_LIMIT_LOGIN_STATION_LIMIT" default:"5"`
	LoginIPLimit      int           `envconfig:"PICKFLOW_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
}

// ScannerConfig carries the floor-facing knobs for scan handling.
type ScannerConfig struct {
	// WarehousePrefixes maps a barcode prefix to the warehouse it implies.
	WarehousePrefixes map[string]string `envconfig:"PICKFLOW_SCANNER_PREFIXES" default:"D1-:0,D3-:1,D4-:2,D5-:3"`
	OverScanTolerance decimal.Decimal   `envconfig:"PICKFLOW_SCANNER_OVERSCAN_TOLERANCE" default:"0"`
	LockTimeout       time.Duration     `envconfig:"PICKFLOW_SCANNER_LOCK_TIMEOUT" default:"5s"`
	MinCodeLength     int               `envconfig:"PICKFLOW_SCANNER_MIN_CODE_LENGTH" default:"2"`
	ResolveCacheTTL   time.Duration     `envconfig:"PICKFLOW_SCANNER_RESOLVE_CACHE_TTL" default:"12h"`
}

type RetentionConfig struct {
	AuditWindow  time.Duration `envconfig:"PICKFLOW_RETENTION_AUDIT_WINDOW" default:"4320h"`
	OutboxWindow time.Duration `envconfig:"PICKFLOW_RETENTION_OUTBOX_WINDOW" default:"720h"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"PICKFLOW_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"PICKFLOW_AUTO_MIGRATE" default:"false"`
}

type EventingConfig struct {
	OutboxIdempotencyTTL time.Duration `envconfig:"PICKFLOW_EVENTING_IDEMPOTENCY_TTL" default:"720h"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"PICKFLOW_GCP_PROJECT_ID" required:"true"`
	CredentialsJSON        string `envconfig:"PICKFLOW_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"PICKFLOW_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	DomainTopic           string `envconfig:"PICKFLOW_PUBSUB_DOMAIN_TOPIC" required:"true"`
	DomainSubscription    string `envconfig:"PICKFLOW_PUBSUB_DOMAIN_SUBSCRIPTION" required:"true"`
	AnalyticsTopic        string `envconfig:"PICKFLOW_PUBSUB_ANALYTICS_TOPIC" required:"true"`
	AnalyticsSubscription string `envconfig:"PICKFLOW_PUBSUB_ANALYTICS_SUBSCRIPTION" required:"true"`
}

type BigQueryConfig struct {
	Dataset                string `envconfig:"PICKFLOW_BIGQUERY_DATASET" default:"pickflow"`
	ScanEventsTable        string `envconfig:"PICKFLOW_BIGQUERY_SCAN_TABLE" default:"scan_events"`
	FulfillmentEventsTable string `envconfig:"PICKFLOW_BIGQUERY_FULFILLMENT_TABLE" default:"fulfillment_events"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"PICKFLOW_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"PICKFLOW_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"PICKFLOW_OUTBOX_MAX_ATTEMPTS" default:"10"`
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
