package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Environment variables recognized by parseEnv.
const (
	envDatabaseDSN   = "DATABASE_DSN"
	envConsoleUserID = "CONSOLE_USER_ID"
	envLogLevel      = "LOG_LEVEL"
)

// parseEnv overlays cfg with values from the process environment. A .env
// file in the working directory is loaded first when present; variables
// already set on the process win over the file.
func parseEnv(cfg *Config) {
	_ = godotenv.Load()

	if v := os.Getenv(envDatabaseDSN); v != "" {
		cfg.DatabaseDSN = v
	}
	if v := os.Getenv(envConsoleUserID); v != "" {
		if id, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.ConsoleUserID = id
		}
	}
	if v := os.Getenv(envLogLevel); v != "" {
		cfg.LogLevel = v
	}
}
