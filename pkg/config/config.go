package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = "mirabelle"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	CartToken    CartTokenConfig
	Cart         CartConfig
	RateLimit    RateLimitConfig
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
	Env          string `envconfig:"MIRABELLE_APP_ENV" required:"true"`
	Port         string `envconfig:"MIRABELLE_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"MIRABELLE_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"MIRABELLE_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"MIRABELLE_DB_DSN"`
	Driver string `envconfig:"MIRABELLE_DB_DRIVER" default:"postgres"`

	Host     string `envconfig:"MIRABELLE_DB_HOST"`
	Port     int    `envconfig:"MIRABELLE_DB_PORT" default:"5432"`
	User     string `envconfig:"MIRABELLE_DB_USER"`
	Password string `envconfig:"MIRABELLE_DB_PASSWORD"`
	Name     string `envconfig:"MIRABELLE_DB_NAME"`
	SSLMode  string `envconfig:"MIRABELLE_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"MIRABELLE_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"MIRABELLE_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"MIRABELLE_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"MIRABELLE_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

// ensureDSN assembles a DSN from discrete fields when one was not provided.
func (d *DBConfig) ensureDSN() error {
	if d.DSN != "" {
		return nil
	}
	if d.Host == "" || d.User == "" || d.Name == "" {
		return fmt.Errorf("either MIRABELLE_DB_DSN or host/user/name fields are required")
	}
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.User, d.Password),
		Host:   fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:   d.Name,
	}
	q := u.Query()
	q.Set("sslmode", d.SSLMode)
	u.RawQuery = q.Encode()
	d.DSN = u.String()
	return nil
}

type RedisConfig struct {
	URL          string        `envconfig:"MIRABELLE_REDIS_URL" required:"true"`
	Address      string        `envconfig:"MIRABELLE_REDIS_ADDR"`
	Password     string        `envconfig:"MIRABELLE_REDIS_PASSWORD"`
	DB           int           `envconfig:"MIRABELLE_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"MIRABELLE_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"MIRABELLE_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"MIRABELLE_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"MIRABELLE_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"MIRABELLE_REDIS_WRITE_TIMEOUT" default:"5s"`
	SessionTTL   time.Duration `envconfig:"MIRABELLE_REDIS_SESSION_TTL" default:"720h"`
}

// CartTokenConfig signs and verifies guest cart session tokens.
type CartTokenConfig struct {
	Secret string `envconfig:"MIRABELLE_CART_TOKEN_SECRET" required:"true"`
	Issuer string `envconfig:"MIRABELLE_CART_TOKEN_ISSUER" default:"mirabelle"`
}

type CartConfig struct {
	CurrencyCode           string `envconfig:"MIRABELLE_CART_CURRENCY" default:"usd"`
	GiftWrapFeeCents       int64  `envconfig:"MIRABELLE_CART_GIFT_WRAP_FEE_CENTS" default:"500"`
	DefaultShippingOption  string `envconfig:"MIRABELLE_CART_DEFAULT_SHIPPING_OPTION"`
	ClubDiscountPercentage float64 `envconfig:"MIRABELLE_CART_CLUB_DISCOUNT_PCT" default:"0"`
}

type RateLimitConfig struct {
	MutationWindow time.Duration `envconfig:"MIRABELLE_RATE_LIMIT_MUTATION_WINDOW" default:"1m"`
	MutationLimit  int           `envconfig:"MIRABELLE_RATE_LIMIT_MUTATION_LIMIT" default:"120"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"MIRABELLE_FEATURE_AUTO_MIGRATE" default:"false"`
}
