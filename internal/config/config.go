// Package config handles runtime configuration for the bot: development
// defaults, an optional .env overlay, process environment variables, and
// command-line flags, in that order of precedence.
package config

// Config holds runtime settings for the Card Keeper bot.
//
// Fields:
//   - DatabaseDSN: a sqlite file DSN, or a postgres:// URL.
//   - ConsoleUserID: the user id the console transport acts as.
//   - LogLevel: minimum log level (debug, info, warn, error).
type Config struct {
	DatabaseDSN   string
	ConsoleUserID int64
	LogLevel      string
}

// LoadDefaults populates c with development defaults.
func (c *Config) LoadDefaults() {
	c.DatabaseDSN = "file:cardkeeper.db"
	c.ConsoleUserID = 1
	c.LogLevel = "info"
}

// LoadConfig builds a Config by applying defaults, then overlaying the
// environment (including an optional .env file) and finally command-line
// flags. Later sources take precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseEnv(cfg)
	parseFlags(cfg)
	return cfg
}
