package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Environment string
	Server      ServerConfig
	Logging     LoggingConfig
	Redis       RedisConfig
	Scylla      ScyllaConfig
	Kafka       KafkaConfig
	Clickhouse  ClickhouseConfig
	OTP         OTPConfig
	SMS         SMSConfig
	Session     SessionConfig
	RateLimit   RateLimitConfig
	Bucketing   BucketingConfig
}

type ServerConfig struct {
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type LoggingConfig struct {
	Level  string
	Format string
}

type RedisConfig struct {
	URL      string
	Password string
	DB       int
	PoolSize int
}

type ScyllaConfig struct {
	Nodes    []string
	Keyspace string
	Username string
	Password string
}

type KafkaConfig struct {
	Brokers []string
	Topic   string
}

type ClickhouseConfig struct {
	URL      string
	Database string
	Username string
	Password string
}

type OTPConfig struct {
	ExpireMinutes int
	MaxAttempts   int
	SweepInterval time.Duration
}

type SMSConfig struct {
	BaseURL   string
	AccountID string
	Secret    string
	Sender    string
	Timeout   time.Duration
}

type SessionConfig struct {
	SigningKey string
	TTL        time.Duration
}

type RateLimitConfig struct {
	RequestsPerWindow int
	Window            time.Duration
}

type BucketingConfig struct {
	PhoneBuckets int
}

// Load reads configuration from the environment. In non-production a .env
// file next to the binary is honored first.
func Load() (*Config, error) {
	env := getEnv("APP_ENV", "development")
	if env != "production" {
		_ = godotenv.Load()
		env = getEnv("APP_ENV", env)
	}

	cfg := &Config{
		Environment: env,
		Server: ServerConfig{
			Port:         getEnvAsInt("PORT", 8080),
			ReadTimeout:  getEnvAsDuration("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout: getEnvAsDuration("SERVER_WRITE_TIMEOUT", 15*time.Second),
			IdleTimeout:  getEnvAsDuration("SERVER_IDLE_TIMEOUT", 60*time.Second),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		Redis: RedisConfig{
			URL:      getEnv("REDIS_URL", "redis://localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			PoolSize: getEnvAsInt("REDIS_POOL_SIZE", 50),
		},
		Scylla: ScyllaConfig{
			Nodes:    getEnvAsSlice("SCYLLA_NODES", []string{"localhost:9042"}),
			Keyspace: getEnv("SCYLLA_KEYSPACE", "hfl_auth"),
			Username: getEnv("SCYLLA_USERNAME", ""),
			Password: getEnv("SCYLLA_PASSWORD", ""),
		},
		Kafka: KafkaConfig{
			Brokers: getEnvAsSlice("KAFKA_BROKERS", nil),
			Topic:   getEnv("KAFKA_AUTH_TOPIC", "hfl.auth.events"),
		},
		Clickhouse: ClickhouseConfig{
			URL:      getEnv("CLICKHOUSE_URL", ""),
			Database: getEnv("CLICKHOUSE_DATABASE", "hfl_audit"),
			Username: getEnv("CLICKHOUSE_USERNAME", "default"),
			Password: getEnv("CLICKHOUSE_PASSWORD", ""),
		},
		OTP: OTPConfig{
			ExpireMinutes: getEnvAsInt("OTP_EXPIRE_MINUTES", 5),
			MaxAttempts:   getEnvAsInt("MAX_OTP_ATTEMPTS", 3),
			SweepInterval: getEnvAsDuration("OTP_SWEEP_INTERVAL", 10*time.Minute),
		},
		SMS: SMSConfig{
			BaseURL:   getEnv("SMS_BASE_URL", "https://notify.eskiz.uz/api"),
			AccountID: getEnv("SMS_ACCOUNT_ID", ""),
			Secret:    getEnv("SMS_SECRET", ""),
			Sender:    getEnv("SMS_SENDER", "HFL"),
			Timeout:   getEnvAsDuration("SMS_TIMEOUT", 10*time.Second),
		},
		Session: SessionConfig{
			SigningKey: getEnv("SESSION_SIGNING_KEY", ""),
			TTL:        getEnvAsDuration("SESSION_TTL", 24*time.Hour),
		},
		RateLimit: RateLimitConfig{
			RequestsPerWindow: getEnvAsInt("RATE_LIMIT_REQUESTS", 10),
			Window:            getEnvAsDuration("RATE_LIMIT_WINDOW", time.Minute),
		},
		Bucketing: BucketingConfig{
			PhoneBuckets: getEnvAsInt("PHONE_BUCKETS", 64),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.OTP.ExpireMinutes <= 0 {
		return fmt.Errorf("OTP_EXPIRE_MINUTES must be positive, got %d", c.OTP.ExpireMinutes)
	}
	if c.OTP.MaxAttempts <= 0 {
		return fmt.Errorf("MAX_OTP_ATTEMPTS must be positive, got %d", c.OTP.MaxAttempts)
	}
	if c.IsProduction() {
		if c.SMS.AccountID == "" || c.SMS.Secret == "" {
			return fmt.Errorf("SMS_ACCOUNT_ID and SMS_SECRET are required in production")
		}
		if len(c.Session.SigningKey) < 32 {
			return fmt.Errorf("SESSION_SIGNING_KEY must be at least 32 bytes in production")
		}
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

func (c *Config) GetServerAddress() string {
	return fmt.Sprintf(":%d", c.Server.Port)
}

// OTPTTL returns the configured code lifetime as a duration.
func (c *Config) OTPTTL() time.Duration {
	return time.Duration(c.OTP.ExpireMinutes) * time.Minute
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvAsSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return defaultValue
}
