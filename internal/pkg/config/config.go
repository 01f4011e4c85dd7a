package config

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/sethvargo/go-envconfig"
)

type Config struct {
	Port      string `env:"PORT,      default=8080"`
	Env       string `env:"ENV,       default=development"`
	JWTSecret string `env:"JWT_SECRET"`
	LogLevel  string `env:"LOG_LEVEL, default=info"`

	SessionTTL       time.Duration `env:"SESSION_TTL,        default=24h"`
	MinPasswordLen   int           `env:"MIN_PASSWORD_LEN,   default=8"`
	StoreCallTimeout time.Duration `env:"STORE_CALL_TIMEOUT, default=5s"`
	AuditInterval    time.Duration `env:"AUDIT_INTERVAL,     default=0s"`

	Mongo    MongoConfig
	Postgres PostgresConfig
	Redis    RedisConfig
	Notify   NotifyConfig
	RabbitMQ RabbitMQConfig
	PubSub   PubSubConfig
}

// MongoConfig points at the identity store. An empty URI selects the in-memory store.
type MongoConfig struct {
	URI      string `env:"MONGO_URI"`
	Database string `env:"MONGO_DB, default=coaching_core"`
}

// PostgresConfig points at the profile store. An empty URL selects the in-memory store.
type PostgresConfig struct {
	URL      string `env:"POSTGRES_URL"`
	MaxConns int32  `env:"POSTGRES_MAX_CONNS, default=25"`
}

// RedisConfig enables notification dedup when Addr is set.
type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB, default=0"`
}

type NotifyConfig struct {
	Backend string `env:"NOTIFY_BACKEND, default=log"`
	Topic   string `env:"NOTIFY_TOPIC,   default=lifecycle-notifications"`
	Workers int    `env:"NOTIFY_WORKERS, default=4"`
}

type RabbitMQConfig struct {
	URL             string `env:"RABBITMQ_URL"`
	QueueDurable    bool   `env:"RABBITMQ_QUEUE_DURABLE,     default=true"`
	QueueAutoDelete bool   `env:"RABBITMQ_QUEUE_AUTO_DELETE, default=false"`
}

type PubSubConfig struct {
	ProjectID       string `env:"PUBSUB_PROJECT_ID"`
	CredentialsFile string `env:"PUBSUB_CREDENTIALS_FILE"`
}

// IsDevelopment reports whether the service runs with developer conveniences.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development" || c.Env == "dev"
}

// Load reads configuration from environment variables using go-envconfig. In
// development a local .env file is loaded first when present.
func Load() *Config {
	cfg, err := LoadContext(context.Background())
	if err != nil {
		panic(fmt.Sprintf("config: failed to load configuration: %v", err))
	}
	return cfg
}

// LoadContext is Load without the panic.
func LoadContext(ctx context.Context) (*Config, error) {
	if env := os.Getenv("ENV"); env == "" || env == "development" || env == "dev" {
		_ = godotenv.Load()
	}

	var cfg Config
	if err := envconfig.Process(ctx, &cfg); err != nil {
		return nil, err
	}
	if cfg.JWTSecret == "" && !cfg.IsDevelopment() {
		return nil, fmt.Errorf("JWT_SECRET is required when ENV=%s", cfg.Env)
	}
	return &cfg, nil
}
