package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server   ServerConfig
	MySQL    MySQLConfig
	Redis    RedisConfig
	RabbitMQ RabbitMQConfig
	Stripe   StripeConfig
	Auth     AuthConfig
	Backfill BackfillConfig
	LogLevel string
}

type ServerConfig struct {
	HTTPAddr        string
	GRPCAddr        string
	FrontendURL     string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

type MySQLConfig struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	PoolSize int
}

type RabbitMQConfig struct {
	URL string // empty disables order event publishing
}

type StripeConfig struct {
	APIKey        string
	WebhookSecret string
}

type AuthConfig struct {
	JWTSecret string
	Issuer    string
	Audience  string
}

type BackfillConfig struct {
	Workers   int
	QueueSize int
}

// Load reads configuration from the environment, after merging a .env file if present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var errs []error
	cfg := &Config{
		Server: ServerConfig{
			HTTPAddr:        getEnv("HTTP_ADDR", ":7000"),
			GRPCAddr:        getEnv("GRPC_ADDR", ":50051"),
			FrontendURL:     getEnv("FRONTEND_URL", ""),
			ReadTimeout:     getDuration("HTTP_READ_TIMEOUT", 10*time.Second, &errs),
			WriteTimeout:    getDuration("HTTP_WRITE_TIMEOUT", 10*time.Second, &errs),
			ShutdownTimeout: getDuration("SHUTDOWN_TIMEOUT", 5*time.Second, &errs),
		},
		MySQL: MySQLConfig{
			DSN:             getEnv("MYSQL_DSN", "root:root@tcp(localhost:3306)/foodorder?parseTime=true"),
			MaxOpenConns:    getInt("MYSQL_MAX_OPEN_CONNS", 50, &errs),
			MaxIdleConns:    getInt("MYSQL_MAX_IDLE_CONNS", 25, &errs),
			ConnMaxLifetime: getDuration("MYSQL_CONN_MAX_LIFETIME", 5*time.Minute, &errs),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getInt("REDIS_DB", 0, &errs),
			PoolSize: getInt("REDIS_POOL_SIZE", 100, &errs),
		},
		RabbitMQ: RabbitMQConfig{
			URL: getEnv("RABBITMQ_URL", ""),
		},
		Stripe: StripeConfig{
			APIKey:        getEnv("STRIPE_API_KEY", ""),
			WebhookSecret: getEnv("STRIPE_WEBHOOK_SECRET", ""),
		},
		Auth: AuthConfig{
			JWTSecret: getEnv("JWT_SECRET", ""),
			Issuer:    getEnv("JWT_ISSUER", ""),
			Audience:  getEnv("JWT_AUDIENCE", ""),
		},
		Backfill: BackfillConfig{
			Workers:   getInt("BACKFILL_WORKERS", 4, &errs),
			QueueSize: getInt("BACKFILL_QUEUE_SIZE", 1000, &errs),
		},
		LogLevel: getEnv("LOG_LEVEL", "info"),
	}

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports every required setting that is missing.
func (c *Config) Validate() error {
	var errs []error
	required := []struct{ key, value string }{
		{"FRONTEND_URL", c.Server.FrontendURL},
		{"STRIPE_API_KEY", c.Stripe.APIKey},
		{"STRIPE_WEBHOOK_SECRET", c.Stripe.WebhookSecret},
		{"JWT_SECRET", c.Auth.JWTSecret},
	}
	for _, r := range required {
		if r.value == "" {
			errs = append(errs, fmt.Errorf("%s is required", r.key))
		}
	}
	if c.Backfill.Workers < 1 {
		errs = append(errs, errors.New("BACKFILL_WORKERS must be at least 1"))
	}
	if c.Backfill.QueueSize < 1 {
		errs = append(errs, errors.New("BACKFILL_QUEUE_SIZE must be at least 1"))
	}
	return errors.Join(errs...)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getInt(key string, defaultValue int, errs *[]error) int {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: invalid integer %q", key, raw))
		return defaultValue
	}
	return value
}

func getDuration(key string, defaultValue time.Duration, errs *[]error) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(raw)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: invalid duration %q", key, raw))
		return defaultValue
	}
	return value
}
