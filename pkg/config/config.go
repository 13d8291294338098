package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = "hatid"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvDBDSN  = "HATID_DB_DSN"
	EnvDBHost = "HATID_DB_HOST"
	EnvDBUser = "HATID_DB_USER"
	EnvDBName = "HATID_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Gateway      GatewayConfig
	Dispatch     DispatchConfig
	SLA          SLAConfig
	Outbox       OutboxConfig
	Cron         CronConfig
	FeatureFlags FeatureFlagsConfig
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
	Env          string `envconfig:"HATID_APP_ENV" required:"true"`
	Port         string `envconfig:"HATID_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"HATID_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"HATID_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"HATID_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"HATID_DB_DSN"`
	Driver string `envconfig:"HATID_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"HATID_DB_HOST"`
	LegacyPort     int    `envconfig:"HATID_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"HATID_DB_USER"`
	LegacyPassword string `envconfig:"HATID_DB_PASSWORD"`
	LegacyName     string `envconfig:"HATID_DB_NAME"`
	LegacySSLMode  string `envconfig:"HATID_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"HATID_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"HATID_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"HATID_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"HATID_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"HATID_REDIS_URL" required:"true"`
	Address      string        `envconfig:"HATID_REDIS_ADDR"`
	Password     string        `envconfig:"HATID_REDIS_PASSWORD"`
	DB           int           `envconfig:"HATID_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"HATID_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"HATID_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"HATID_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"HATID_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"HATID_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"HATID_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"HATID_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"HATID_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	OrdersTopic           string `envconfig:"HATID_PUBSUB_ORDERS_TOPIC" default:"hatid-order-events"`
	DispatchTopic         string `envconfig:"HATID_PUBSUB_DISPATCH_TOPIC" default:"hatid-dispatch-events"`
	NotificationTopic     string `envconfig:"HATID_PUBSUB_NOTIFICATION_TOPIC" default:"hatid-notification-events"`
	OrdersSubscription    string `envconfig:"HATID_PUBSUB_ORDERS_SUBSCRIPTION"`
	DispatchSubscription  string `envconfig:"HATID_PUBSUB_DISPATCH_SUBSCRIPTION"`
	NotificationsEmission bool   `envconfig:"HATID_PUBSUB_EMIT_NOTIFICATIONS" default:"true"`
}

type GatewayConfig struct {
	AccessToken   string `envconfig:"HATID_SQUARE_ACCESS_TOKEN"`
	WebhookSecret string `envconfig:"HATID_SQUARE_WEBHOOK_SECRET"`
	Env           string `envconfig:"HATID_SQUARE_ENV" default:"sandbox"`
}

// Environment returns the normalized gateway environment (sandbox/production).
func (g GatewayConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(g.Env))
	if env == "" {
		return "sandbox"
	}
	return env
}

type DispatchConfig struct {
	RadiusMeters   float64       `envconfig:"HATID_DISPATCH_RADIUS_METERS" default:"5000"`
	OfferTTL       time.Duration `envconfig:"HATID_DISPATCH_OFFER_TTL" default:"30s"`
	MaxAttempts    int           `envconfig:"HATID_DISPATCH_MAX_ATTEMPTS" default:"5"`
	RatingWeight   float64       `envconfig:"HATID_DISPATCH_RATING_WEIGHT" default:"1.0"`
	DistanceWeight float64       `envconfig:"HATID_DISPATCH_DISTANCE_WEIGHT" default:"0.5"`
	LoadWeight     float64       `envconfig:"HATID_DISPATCH_LOAD_WEIGHT" default:"0.8"`
}

type SLAConfig struct {
	AcceptanceBudget      time.Duration `envconfig:"HATID_SLA_ACCEPTANCE_BUDGET" default:"5m"`
	PreparationBudget     time.Duration `envconfig:"HATID_SLA_PREPARATION_BUDGET" default:"20m"`
	PickupBudget          time.Duration `envconfig:"HATID_SLA_PICKUP_BUDGET" default:"10m"`
	DeliveryBudget        time.Duration `envconfig:"HATID_SLA_DELIVERY_BUDGET" default:"45m"`
	NonFoodDeliveryBudget time.Duration `envconfig:"HATID_SLA_NONFOOD_DELIVERY_BUDGET" default:"60m"`
}

type CronConfig struct {
	Interval time.Duration `envconfig:"HATID_CRON_INTERVAL" default:"15s"`
	LockTTL  time.Duration `envconfig:"HATID_CRON_LOCK_TTL" default:"1m"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"HATID_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"HATID_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"HATID_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"HATID_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"HATID_AUTO_MIGRATE" default:"false"`
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
