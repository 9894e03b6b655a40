package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server   ServerConfig
	Postgres PostgresConfig
	Redis    RedisConfig
	Holds    HoldsConfig
	Sweep    SweepConfig
	Rules    RulesConfig
	Rate     RateConfig
}

type ServerConfig struct {
	Host string
	Port int
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type PostgresConfig struct {
	User     string
	Password string
	Name     string
	Host     string
	Port     int
	SSLMode  string
}

type HoldsConfig struct {
	MinTTL time.Duration
	MaxTTL time.Duration
}

type SweepConfig struct {
	Interval time.Duration
	Batch    int
}

type RulesConfig struct {
	MaxSeatsPerHolder  int
	DisableOrphanCheck bool
}

type RateConfig struct {
	Limit  int
	Window time.Duration
}

func New() (*Config, error) {
	const op = "config.New"

	_ = godotenv.Load()

	serverPort, err := envInt("SERVER_PORT", 8080)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	postgresPort, err := envInt("POSTGRES_PORT", 5432)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	postgresUser := os.Getenv("POSTGRES_USER")
	if postgresUser == "" {
		return nil, fmt.Errorf("%s: missing POSTGRES_USER", op)
	}

	postgresPassword := os.Getenv("POSTGRES_PASSWORD")
	if postgresPassword == "" {
		return nil, fmt.Errorf("%s: missing POSTGRES_PASSWORD", op)
	}

	postgresDB := os.Getenv("POSTGRES_DB")
	if postgresDB == "" {
		return nil, fmt.Errorf("%s: missing POSTGRES_DB", op)
	}

	holdMinSec, err := envInt("HOLD_MIN_TTL_SEC", 15)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	holdMaxSec, err := envInt("HOLD_MAX_TTL_SEC", 300)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	sweepIntervalMS, err := envInt("SWEEP_INTERVAL_MS", 1000)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	sweepBatch, err := envInt("SWEEP_BATCH", 200)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	maxSeats, err := envInt("MAX_SEATS_PER_HOLDER", 8)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	rateLimit, err := envInt("RATE_LIMIT", 10)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	rateWindowSec, err := envInt("RATE_WINDOW_SEC", 60)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &Config{
		Server: ServerConfig{
			Host: envStr("SERVER_HOST", "localhost"),
			Port: serverPort,
		},
		Postgres: PostgresConfig{
			User:     postgresUser,
			Password: postgresPassword,
			Name:     postgresDB,
			Host:     envStr("POSTGRES_HOST", "localhost"),
			Port:     postgresPort,
			SSLMode:  envStr("POSTGRES_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Addr:     envStr("REDIS_ADDR", "localhost:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       0,
		},
		Holds: HoldsConfig{
			MinTTL: time.Duration(holdMinSec) * time.Second,
			MaxTTL: time.Duration(holdMaxSec) * time.Second,
		},
		Sweep: SweepConfig{
			Interval: time.Duration(sweepIntervalMS) * time.Millisecond,
			Batch:    sweepBatch,
		},
		Rules: RulesConfig{
			MaxSeatsPerHolder:  maxSeats,
			DisableOrphanCheck: os.Getenv("DISABLE_ORPHAN_CHECK") == "true",
		},
		Rate: RateConfig{
			Limit:  rateLimit,
			Window: time.Duration(rateWindowSec) * time.Second,
		},
	}, nil
}

func envStr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}

	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}

	return v, nil
}
