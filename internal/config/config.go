package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

func init() {
	// Load .env file if it exists (silent fail if not)
	_ = godotenv.Load()
}

// Config holds all application configuration loaded from environment variables.
type Config struct {
	Server       ServerConfig
	App          AppConfig
	Log          LogConfig
	Redis        RedisConfig
	Session      SessionConfig
	Rank         RankConfig
	RowCache     RowCacheConfig
	Market       MarketConfig
	RequestCache RequestCacheConfig
	BackingDB    BackingDBConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string        `envconfig:"SERVER_HOST" default:"0.0.0.0"`
	Port            int           `envconfig:"SERVER_PORT" default:"8080"`
	ReadTimeout     time.Duration `envconfig:"SERVER_READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `envconfig:"SERVER_WRITE_TIMEOUT" default:"30s"`
	ShutdownTimeout time.Duration `envconfig:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`
}

// AppConfig holds application-level settings.
type AppConfig struct {
	Name        string `envconfig:"APP_NAME" default:"storefront-api"`
	Environment string `envconfig:"APP_ENV" default:"development"`
	Version     string `envconfig:"APP_VERSION" default:"1.0.0"`
	LoginKey    string `envconfig:"LOGIN_KEY" default:""` // Admin endpoints key
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level  string `envconfig:"LOG_LEVEL" default:"info"`
	Format string `envconfig:"LOG_FORMAT" default:"text"` // text or json
}

// RedisConfig holds connection settings for the shared key-value store.
type RedisConfig struct {
	Host         string        `envconfig:"REDIS_HOST" default:"localhost"`
	Port         int           `envconfig:"REDIS_PORT" default:"6379"`
	Password     string        `envconfig:"REDIS_PASSWORD" default:""`
	DB           int           `envconfig:"REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"REDIS_POOL_SIZE" default:"20"`
	MinIdleConns int           `envconfig:"REDIS_MIN_IDLE_CONNS" default:"5"`
	ReadTimeout  time.Duration `envconfig:"REDIS_READ_TIMEOUT" default:"10s"`
	WriteTimeout time.Duration `envconfig:"REDIS_WRITE_TIMEOUT" default:"10s"`
}

// SessionConfig controls the session registry and its reaper.
type SessionConfig struct {
	Limit          int64         `envconfig:"SESSION_LIMIT" default:"10000000"`
	ReaperInterval time.Duration `envconfig:"SESSION_REAPER_INTERVAL" default:"1s"`
	ReaperBatch    int64         `envconfig:"SESSION_REAPER_BATCH" default:"100"`
	HistorySize    int64         `envconfig:"SESSION_HISTORY_SIZE" default:"25"`
}

// RankConfig controls the view ranking and its rescale loop.
type RankConfig struct {
	RescaleInterval time.Duration `envconfig:"RANK_RESCALE_INTERVAL" default:"5s"`
	MaxTracked      int64         `envconfig:"RANK_MAX_TRACKED" default:"20000"`
	CacheableRank   int64         `envconfig:"RANK_CACHEABLE" default:"10000"`
	Decay           float64       `envconfig:"RANK_DECAY" default:"0.5"`
}

// RowCacheConfig controls the scheduled row refresher.
type RowCacheConfig struct {
	PollInterval time.Duration `envconfig:"ROW_CACHE_POLL_INTERVAL" default:"50ms"`
}

// MarketConfig holds the transaction deadlines for market operations.
type MarketConfig struct {
	ListTimeout     time.Duration `envconfig:"MARKET_LIST_TIMEOUT" default:"5s"`
	PurchaseTimeout time.Duration `envconfig:"MARKET_PURCHASE_TIMEOUT" default:"10s"`
}

// RequestCacheConfig holds response cache settings.
type RequestCacheConfig struct {
	Type string        `envconfig:"CACHE_TYPE" default:"redis"` // redis or memory
	TTL  time.Duration `envconfig:"CACHE_TTL" default:"300s"`
}

// BackingDBConfig holds settings for the database that backs cached rows.
type BackingDBConfig struct {
	Type string `envconfig:"BACKING_DB_TYPE" default:"sqlite"` // sqlite, postgres, mysql or mongodb
	Path string `envconfig:"BACKING_DB_PATH" default:"./data/rows.db"`
	// PostgreSQL / MySQL settings
	Host     string `envconfig:"BACKING_DB_HOST" default:"localhost"`
	Port     int    `envconfig:"BACKING_DB_PORT" default:"5432"`
	Name     string `envconfig:"BACKING_DB_NAME" default:"storefront"`
	User     string `envconfig:"BACKING_DB_USER" default:"postgres"`
	Password string `envconfig:"BACKING_DB_PASS" default:""`
	SSLMode  string `envconfig:"BACKING_DB_SSLMODE" default:"disable"`
	// MongoDB settings
	MongoURI        string `envconfig:"MONGODB_URI" default:""`
	MongoDatabase   string `envconfig:"MONGODB_DATABASE" default:"storefront"`
	MongoCollection string `envconfig:"MONGODB_COLLECTION" default:"rows"`
}

// PostgresDSN returns the PostgreSQL connection string.
func (b *BackingDBConfig) PostgresDSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		b.User, b.Password, b.Host, b.Port, b.Name, b.SSLMode)
}

// MySQLDSN returns the MySQL data source name.
func (b *BackingDBConfig) MySQLDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true",
		b.User, b.Password, b.Host, b.Port, b.Name)
}

// Address returns the server address in host:port format.
func (s *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// Address returns the Redis address in host:port format.
func (r *RedisConfig) Address() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// IsDevelopment returns true if running in development mode.
func (a *AppConfig) IsDevelopment() bool {
	return a.Environment == "development"
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config

	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return &cfg, nil
}

// MustLoad loads configuration or panics on error.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}
