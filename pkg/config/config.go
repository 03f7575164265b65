package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = ""

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvDBDSN  = "RECICAR_DB_DSN"
	EnvDBHost = "RECICAR_DB_HOST"
	EnvDBUser = "RECICAR_DB_USER"
	EnvDBName = "RECICAR_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App           AppConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	Rates         RatesConfig
	Notifications NotificationsConfig
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
	Env          string `envconfig:"RECICAR_APP_ENV" required:"true"`
	Port         string `envconfig:"RECICAR_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"RECICAR_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"RECICAR_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"RECICAR_DB_DSN"`
	Driver string `envconfig:"RECICAR_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"RECICAR_DB_HOST"`
	LegacyPort     int    `envconfig:"RECICAR_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"RECICAR_DB_USER"`
	LegacyPassword string `envconfig:"RECICAR_DB_PASSWORD"`
	LegacyName     string `envconfig:"RECICAR_DB_NAME"`
	LegacySSLMode  string `envconfig:"RECICAR_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"RECICAR_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"RECICAR_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"RECICAR_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"RECICAR_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"RECICAR_REDIS_URL"`
	Address      string        `envconfig:"RECICAR_REDIS_ADDR"`
	Password     string        `envconfig:"RECICAR_REDIS_PASSWORD"`
	DB           int           `envconfig:"RECICAR_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"RECICAR_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"RECICAR_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"RECICAR_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"RECICAR_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"RECICAR_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"RECICAR_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"RECICAR_JWT_ISSUER" default:"recicar"`
	ExpirationMinutes int    `envconfig:"RECICAR_JWT_EXPIRATION_MINUTES" default:"60"`
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"RECICAR_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"RECICAR_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"RECICAR_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"RECICAR_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"RECICAR_ARGON_KEY_LEN" default:"32"`
}

// RatesConfig carries the pricing hooks. The cart quote ships by a step
// function of the subtotal; the order written at checkout charges the flat
// order fee, which defaults to zero.
type RatesConfig struct {
	TaxRate               string `envconfig:"RECICAR_TAX_RATE" default:"0"`
	ShippingFlatFee       string `envconfig:"RECICAR_SHIPPING_FLAT_FEE" default:"10.00"`
	FreeShippingThreshold string `envconfig:"RECICAR_FREE_SHIPPING_THRESHOLD" default:"100.00"`
	OrderShippingFee      string `envconfig:"RECICAR_ORDER_SHIPPING_FEE" default:"0"`
}

type NotificationsConfig struct {
	QueueSize int `envconfig:"RECICAR_NOTIFICATION_QUEUE_SIZE" default:"256"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"RECICAR_AUTO_MIGRATE" default:"false"`
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
