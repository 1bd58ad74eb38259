package config

import (
	"errors"
	"math"
	"os"
	"strconv"

	constants "github.com/thesisreg/backend/internal/constants"
)

type Config struct {
	DatabaseURL string
	LogLevel    string
	DBMaxConns  int // 0 keeps the pgxpool default
}

func Load() *Config {
	return &Config{
		DatabaseURL: getEnv(constants.DATABASE_URL, ""),
		LogLevel:    getEnv(constants.LOG_LEVEL, "info"),
		DBMaxConns:  getEnvAsInt(constants.DB_MAX_CONNS, 0),
	}
}

// Validate reports settings that make the process unable to start.
func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return errors.New(constants.DATABASE_URL + " environment variable is not set")
	}
	if c.DBMaxConns < 0 || c.DBMaxConns > math.MaxInt32 {
		return errors.New(constants.DB_MAX_CONNS + " must be between 0 and 2147483647")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
