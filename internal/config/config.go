package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

type Config struct {
	HTTPPort        string
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration

	DB DBConfig

	MongoURI    string
	MongoDBName string

	RedisAddr     string
	RedisPassword string

	KafkaBrokers []string
	NotifyTopic  string

	CatalogDBPath         string
	CatalogMigrationsPath string

	Stock    StockConfig
	Shipping ShippingConfig
	Currency string

	LogLevel  string
	LogPretty bool
}

type DBConfig struct {
	Host           string
	Port           int
	User           string
	Password       string
	Name           string
	MigrationsPath string
}

type StockConfig struct {
	MaxAttempts  int
	RetryBackoff time.Duration
}

type ShippingConfig struct {
	FreeShippingThreshold decimal.Decimal
	FlatFee               decimal.Decimal
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("HTTP_PORT", "8080")
	v.SetDefault("REQUEST_TIMEOUT", "10s")
	v.SetDefault("SHUTDOWN_TIMEOUT", "10s")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "marketplace")
	v.SetDefault("MIGRATIONS_PATH", "./internal/repository/migrations")

	v.SetDefault("MONGO_URI", "mongodb://localhost:27017")
	v.SetDefault("MONGO_DB_NAME", "cartdb")
	v.SetDefault("REDIS_ADDR", "localhost:6379")
	v.SetDefault("REDIS_PASSWORD", "")

	v.SetDefault("KAFKA_BROKERS", "localhost:9092")
	v.SetDefault("NOTIFY_TOPIC", "marketplace-notifications")

	v.SetDefault("CATALOG_DB_PATH", "./data/catalog.db")
	v.SetDefault("CATALOG_MIGRATIONS_PATH", "./internal/catalog/migrations")

	v.SetDefault("STOCK_MAX_ATTEMPTS", 3)
	v.SetDefault("STOCK_RETRY_BACKOFF", "5ms")
	v.SetDefault("FREE_SHIPPING_THRESHOLD", "500")
	v.SetDefault("FLAT_SHIPPING_FEE", "30")
	v.SetDefault("CURRENCY", "USD")

	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_PRETTY", false)
}

// Load reads defaults, then an optional marketplace.yaml, then the environment.
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("marketplace")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("/etc/marketplace")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}
	v.AutomaticEnv()

	return fromViper(v)
}

func fromViper(v *viper.Viper) (*Config, error) {
	threshold, err := decimal.NewFromString(v.GetString("FREE_SHIPPING_THRESHOLD"))
	if err != nil {
		return nil, fmt.Errorf("invalid FREE_SHIPPING_THRESHOLD: %w", err)
	}
	flatFee, err := decimal.NewFromString(v.GetString("FLAT_SHIPPING_FEE"))
	if err != nil {
		return nil, fmt.Errorf("invalid FLAT_SHIPPING_FEE: %w", err)
	}
	if threshold.IsNegative() || flatFee.IsNegative() {
		return nil, errors.New("shipping amounts must not be negative")
	}

	attempts := v.GetInt("STOCK_MAX_ATTEMPTS")
	if attempts < 1 {
		return nil, fmt.Errorf("STOCK_MAX_ATTEMPTS must be at least 1, got %d", attempts)
	}

	port := v.GetInt("DB_PORT")
	if port <= 0 {
		return nil, fmt.Errorf("invalid DB_PORT: %q", v.GetString("DB_PORT"))
	}

	cfg := &Config{
		HTTPPort:        v.GetString("HTTP_PORT"),
		RequestTimeout:  v.GetDuration("REQUEST_TIMEOUT"),
		ShutdownTimeout: v.GetDuration("SHUTDOWN_TIMEOUT"),
		DB: DBConfig{
			Host:           v.GetString("DB_HOST"),
			Port:           port,
			User:           v.GetString("DB_USER"),
			Password:       v.GetString("DB_PASSWORD"),
			Name:           v.GetString("DB_NAME"),
			MigrationsPath: v.GetString("MIGRATIONS_PATH"),
		},
		MongoURI:              v.GetString("MONGO_URI"),
		MongoDBName:           v.GetString("MONGO_DB_NAME"),
		RedisAddr:             v.GetString("REDIS_ADDR"),
		RedisPassword:         v.GetString("REDIS_PASSWORD"),
		KafkaBrokers:          splitList(v.GetString("KAFKA_BROKERS")),
		NotifyTopic:           v.GetString("NOTIFY_TOPIC"),
		CatalogDBPath:         v.GetString("CATALOG_DB_PATH"),
		CatalogMigrationsPath: v.GetString("CATALOG_MIGRATIONS_PATH"),
		Stock: StockConfig{
			MaxAttempts:  attempts,
			RetryBackoff: v.GetDuration("STOCK_RETRY_BACKOFF"),
		},
		Shipping: ShippingConfig{
			FreeShippingThreshold: threshold,
			FlatFee:               flatFee,
		},
		Currency:  v.GetString("CURRENCY"),
		LogLevel:  v.GetString("LOG_LEVEL"),
		LogPretty: v.GetBool("LOG_PRETTY"),
	}
	return cfg, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
