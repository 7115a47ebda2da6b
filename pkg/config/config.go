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
)

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	S3           S3Config
	Shopify      ShopifyConfig
	Mail         MailConfig
	Thumbnails   ThumbnailConfig
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
	Env          string `envconfig:"ORDERDESK_APP_ENV" required:"true"`
	Port         string `envconfig:"ORDERDESK_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"ORDERDESK_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"ORDERDESK_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"ORDERDESK_DB_DSN"`
	Driver string `envconfig:"ORDERDESK_DB_DRIVER" default:"postgres"`

	Host     string `envconfig:"ORDERDESK_DB_HOST"`
	Port     int    `envconfig:"ORDERDESK_DB_PORT" default:"5432"`
	User     string `envconfig:"ORDERDESK_DB_USER"`
	Password string `envconfig:"ORDERDESK_DB_PASSWORD"`
	Name     string `envconfig:"ORDERDESK_DB_NAME"`
	SSLMode  string `envconfig:"ORDERDESK_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"ORDERDESK_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"ORDERDESK_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"ORDERDESK_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"ORDERDESK_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

// ensureDSN builds a DSN from the discrete host fields when one is not set.
func (d *DBConfig) ensureDSN() error {
	if d.DSN != "" {
		return nil
	}
	if d.Host == "" || d.User == "" || d.Name == "" {
		return fmt.Errorf("database DSN or host/user/name settings are required")
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
	URL          string        `envconfig:"ORDERDESK_REDIS_URL"`
	Address      string        `envconfig:"ORDERDESK_REDIS_ADDR"`
	Password     string        `envconfig:"ORDERDESK_REDIS_PASSWORD"`
	DB           int           `envconfig:"ORDERDESK_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"ORDERDESK_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"ORDERDESK_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"ORDERDESK_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"ORDERDESK_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"ORDERDESK_REDIS_WRITE_TIMEOUT" default:"5s"`
	SizeCacheTTL time.Duration `envconfig:"ORDERDESK_REDIS_SIZE_CACHE_TTL" default:"12h"`
}

type S3Config struct {
	Bucket         string `envconfig:"ORDERDESK_S3_BUCKET" required:"true"`
	Region         string `envconfig:"ORDERDESK_S3_REGION" default:"us-east-1"`
	Endpoint       string `envconfig:"ORDERDESK_S3_ENDPOINT"`
	ForcePathStyle bool   `envconfig:"ORDERDESK_S3_FORCE_PATH_STYLE" default:"false"`
}

type ShopifyConfig struct {
	ShopDomain  string        `envconfig:"ORDERDESK_SHOPIFY_SHOP_DOMAIN"`
	AccessToken string        `envconfig:"ORDERDESK_SHOPIFY_ACCESS_TOKEN"`
	APIVersion  string        `envconfig:"ORDERDESK_SHOPIFY_API_VERSION" default:"2024-10"`
	Timeout     time.Duration `envconfig:"ORDERDESK_SHOPIFY_TIMEOUT" default:"10s"`
}

// Enabled reports whether fulfillment sync should be attempted at all.
func (s ShopifyConfig) Enabled() bool {
	return s.ShopDomain != "" && s.AccessToken != ""
}

type MailConfig struct {
	APIBaseURL string        `envconfig:"ORDERDESK_MAIL_API_BASE_URL" default:"https://api.sendgrid.com"`
	APIKey     string        `envconfig:"ORDERDESK_MAIL_API_KEY"`
	FromEmail  string        `envconfig:"ORDERDESK_MAIL_FROM_EMAIL" default:"orders@orderdesk.example"`
	FromName   string        `envconfig:"ORDERDESK_MAIL_FROM_NAME" default:"OrderDesk"`
	Timeout    time.Duration `envconfig:"ORDERDESK_MAIL_TIMEOUT" default:"10s"`
}

func (m MailConfig) Enabled() bool {
	return m.APIKey != ""
}

type ThumbnailConfig struct {
	Version   int `envconfig:"ORDERDESK_THUMBNAIL_VERSION" default:"1"`
	MaxWidth  int `envconfig:"ORDERDESK_THUMBNAIL_MAX_WIDTH" default:"320"`
	MaxHeight int `envconfig:"ORDERDESK_THUMBNAIL_MAX_HEIGHT" default:"320"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"ORDERDESK_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"ORDERDESK_AUTO_MIGRATE" default:"false"`
}
