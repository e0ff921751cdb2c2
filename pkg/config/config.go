package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const EnvPrefix = "BLINDBOX"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

type Config struct {
	App           AppConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	Owner         OwnerConfig
	Payout        PayoutConfig
	AuthRateLimit AuthRateLimitConfig
	FeatureFlags  FeatureFlagsConfig
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
	Env          string `envconfig:"BLINDBOX_APP_ENV" required:"true"`
	Port         string `envconfig:"BLINDBOX_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"BLINDBOX_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"BLINDBOX_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"BLINDBOX_DB_DSN"`
	Driver string `envconfig:"BLINDBOX_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"BLINDBOX_DB_HOST"`
	LegacyPort     int    `envconfig:"BLINDBOX_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"BLINDBOX_DB_USER"`
	LegacyPassword string `envconfig:"BLINDBOX_DB_PASSWORD"`
	LegacyName     string `envconfig:"BLINDBOX_DB_NAME"`
	LegacySSLMode  string `envconfig:"BLINDBOX_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"BLINDBOX_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"BLINDBOX_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"BLINDBOX_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"BLINDBOX_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

func (d *DBConfig) ensureDSN() error {
	if d.DSN != "" {
		return nil
	}
	if d.LegacyHost == "" || d.LegacyUser == "" || d.LegacyName == "" {
		return fmt.Errorf("either BLINDBOX_DB_DSN or host/user/name settings are required")
	}
	d.DSN = fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		url.QueryEscape(d.LegacyUser),
		url.QueryEscape(d.LegacyPassword),
		d.LegacyHost,
		d.LegacyPort,
		d.LegacyName,
		d.LegacySSLMode,
	)
	return nil
}

type RedisConfig struct {
	URL          string        `envconfig:"BLINDBOX_REDIS_URL" required:"true"`
	Address      string        `envconfig:"BLINDBOX_REDIS_ADDR"`
	Password     string        `envconfig:"BLINDBOX_REDIS_PASSWORD"`
	DB           int           `envconfig:"BLINDBOX_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"BLINDBOX_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"BLINDBOX_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"BLINDBOX_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"BLINDBOX_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"BLINDBOX_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret                 string `envconfig:"BLINDBOX_JWT_SECRET" required:"true"`
	Issuer                 string `envconfig:"BLINDBOX_JWT_ISSUER" required:"true"`
	ExpirationMinutes      int    `envconfig:"BLINDBOX_JWT_EXPIRATION_MINUTES" default:"30"`
	RefreshTokenTTLMinutes int    `envconfig:"BLINDBOX_REFRESH_TOKEN_TTL_MINUTES" default:"43200"`
}

// RefreshTokenTTL returns the refresh token TTL configured in minutes.
func (j JWTConfig) RefreshTokenTTL() time.Duration {
	if j.RefreshTokenTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.RefreshTokenTTLMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"BLINDBOX_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"BLINDBOX_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"BLINDBOX_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"BLINDBOX_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"BLINDBOX_ARGON_KEY_LEN" default:"32"`
}

// OwnerConfig identifies the single privileged deployer account. The owner is
// seeded at startup and is the only caller allowed to grant the admin role.
type OwnerConfig struct {
	Email    string `envconfig:"BLINDBOX_OWNER_EMAIL" required:"true"`
	Password string `envconfig:"BLINDBOX_OWNER_PASSWORD"`
}

// PayoutConfig tunes the simulated fund transfer used by refund payouts.
type PayoutConfig struct {
	Mode    string        `envconfig:"BLINDBOX_PAYOUT_MODE" default:"simulate"`
	Latency time.Duration `envconfig:"BLINDBOX_PAYOUT_LATENCY" default:"0s"`
}

// AuthRateLimitConfig throttles credential endpoints per IP and per email.
type AuthRateLimitConfig struct {
	LoginWindow        time.Duration `envconfig:"BLINDBOX_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit    int           `envconfig:"BLINDBOX_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit       int           `envconfig:"BLINDBOX_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
	RegisterWindow     time.Duration `envconfig:"BLINDBOX_AUTH_RATE_LIMIT_REGISTER_WINDOW" default:"5m"`
	RegisterEmailLimit int           `envconfig:"BLINDBOX_AUTH_RATE_LIMIT_REGISTER_EMAIL_LIMIT" default:"3"`
	RegisterIPLimit    int           `envconfig:"BLINDBOX_AUTH_RATE_LIMIT_REGISTER_IP_LIMIT" default:"20"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"BLINDBOX_AUTO_MIGRATE" default:"false"`
}
