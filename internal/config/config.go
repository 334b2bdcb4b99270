package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type PostgresConfig struct {
	Host            string
	Port            string
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
	MigrationsPath  string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type Config struct {
	App struct {
		Port    string
		StoreID int64
	}
	Client struct {
		// BackendURL empty switches the cart client into mock mode.
		BackendURL  string
		MockLatency time.Duration
	}
	Session struct {
		FileDir string
	}
	Redis    RedisConfig
	Postgres PostgresConfig
	JWT      struct {
		Secret     string
		Expiration time.Duration
	}
}

// Load reads configuration from the environment, optionally seeding it from
// a .env file first. Postgres is optional: an empty DB_HOST selects the
// in-memory store.
func Load(path string) (*Config, error) {
	if path != "" {
		if err := godotenv.Load(path); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("config: failed to load %s: %w", path, err)
		}
	}

	cfg := &Config{}

	cfg.App.Port = getEnv("APP_PORT", "8080")
	storeID, err := getEnvInt64("STORE_ID", 1)
	if err != nil {
		return nil, err
	}
	cfg.App.StoreID = storeID

	cfg.Client.BackendURL = os.Getenv("BACKEND_URL")
	latencyMs, err := getEnvInt64("MOCK_LATENCY_MS", 350)
	if err != nil {
		return nil, err
	}
	cfg.Client.MockLatency = time.Duration(latencyMs) * time.Millisecond

	cfg.Session.FileDir = getEnv("SESSION_DIR", defaultSessionDir())

	cfg.Redis.Addr = os.Getenv("REDIS_ADDR")
	cfg.Redis.Password = os.Getenv("REDIS_PASSWORD")
	redisDB, err := getEnvInt64("REDIS_DB", 0)
	if err != nil {
		return nil, err
	}
	cfg.Redis.DB = int(redisDB)

	cfg.Postgres.Host = os.Getenv("DB_HOST")
	if cfg.Postgres.Host != "" {
		cfg.Postgres.Port = getEnv("DB_PORT", "5432")
		cfg.Postgres.User = os.Getenv("DB_USER")
		if cfg.Postgres.User == "" {
			return nil, fmt.Errorf("config: DB_USER is required when DB_HOST is set")
		}
		cfg.Postgres.Password = os.Getenv("DB_PASSWORD")
		cfg.Postgres.DBName = os.Getenv("DB_NAME")
		if cfg.Postgres.DBName == "" {
			return nil, fmt.Errorf("config: DB_NAME is required when DB_HOST is set")
		}
		cfg.Postgres.SSLMode = getEnv("DB_SSLMODE", "disable")
		cfg.Postgres.MaxConns = 10
		cfg.Postgres.MinConns = 2
		cfg.Postgres.MaxConnLifetime = 30 * time.Minute
		cfg.Postgres.MigrationsPath = getEnv("DB_MIGRATIONS_PATH", "migrations")
	}

	cfg.JWT.Secret = getEnv("JWT_SECRET", "dev-secret-change-me")
	jwtHours, err := getEnvInt64("JWT_EXPIRATION_HOURS", 24)
	if err != nil {
		return nil, err
	}
	cfg.JWT.Expiration = time.Duration(jwtHours) * time.Hour

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt64(key string, fallback int64) (int64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("config: %s must be an integer, got %q", key, v)
	}
	return n, nil
}

func defaultSessionDir() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		return ".storefront"
	}
	return dir + string(os.PathSeparator) + "storefront"
}
