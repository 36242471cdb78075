package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type Config struct {
	AppEnv            string
	Addr              string
	DbDriver          string
	DbDsn             string
	DbDebug           bool
	JwtSecret         string
	JwtAccessMinutes  int
	JwtRefreshHours   int
	AllowedOriginsRaw string
	SeedDemoData      bool
	Timezone          string
}

func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		AppEnv:            getEnv("APP_ENV", "local"),
		Addr:              getEnv("APP_ADDR", ":8080"),
		DbDriver:          strings.ToLower(getEnv("DB_DRIVER", DriverMySQL)),
		DbDsn:             os.Getenv("DB_DSN"),
		DbDebug:           getEnvBool("DB_DEBUG", false),
		JwtSecret:         os.Getenv("JWT_SECRET"),
		JwtAccessMinutes:  getEnvInt("JWT_ACCESS_MINUTES", 1440),
		JwtRefreshHours:   getEnvInt("JWT_REFRESH_HOURS", 168),
		AllowedOriginsRaw: getEnv("ALLOWED_ORIGINS", ""),
		SeedDemoData:      getEnvBool("SEED_DEMO_DATA", true),
		Timezone:          getEnv("APP_TIMEZONE", "Local"),
	}

	missing := []string{}
	if cfg.DbDsn == "" {
		missing = append(missing, "DB_DSN")
	}
	if cfg.JwtSecret == "" {
		missing = append(missing, "JWT_SECRET")
	}
	if len(missing) > 0 {
		return cfg, errors.New("missing env: " + strings.Join(missing, ", "))
	}

	switch cfg.DbDriver {
	case DriverMySQL, DriverPostgres, DriverSQLite:
	default:
		return cfg, fmt.Errorf("unsupported DB_DRIVER %q", cfg.DbDriver)
	}

	if _, err := cfg.Location(); err != nil {
		return cfg, fmt.Errorf("invalid APP_TIMEZONE: %w", err)
	}

	return cfg, nil
}

// Location is the timezone used to cut invoice reports into calendar days.
func (c Config) Location() (*time.Location, error) {
	if c.Timezone == "" || strings.EqualFold(c.Timezone, "Local") {
		return time.Local, nil
	}
	return time.LoadLocation(c.Timezone)
}

func getEnv(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getEnvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvBool(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}
