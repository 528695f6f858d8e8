package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds the process-level configuration of the CLI
type Config struct {
	// Home is the directory holding user config and per-server storage
	Home string

	// Keyring enables the OS keychain for session tokens
	Keyring bool

	// Credentials used by login/register in non-interactive mode
	Credentials CredentialsConfig

	// Logging Configuration
	Logging LoggingConfig
}

// CredentialsConfig holds credentials supplied through the environment
type CredentialsConfig struct {
	Username string
	Password string
}

// LoggingConfig holds logging-related configuration
type LoggingConfig struct {
	Level  string
	Format string // json, console
	File   string // rotating log file; empty logs to stderr
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env files (fails silently if files don't exist)
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	home := os.Getenv("REASONED_HOME")
	if home == "" {
		userHome, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get user home directory: %w", err)
		}
		home = filepath.Join(userHome, ".config", "reasoned")
	}

	useKeyring := true
	if v := os.Getenv("REASONED_NO_KEYRING"); v != "" {
		disabled, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("invalid REASONED_NO_KEYRING value %q: %w", v, err)
		}
		useKeyring = !disabled
	}

	// Logging configuration - a CLI stays quiet unless asked
	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "warn"
	}

	logFormat := os.Getenv("LOG_FORMAT")
	if logFormat == "" {
		logFormat = "console"
	}

	return &Config{
		Home:    home,
		Keyring: useKeyring,
		Credentials: CredentialsConfig{
			Username: os.Getenv("REASONED_USERNAME"),
			Password: os.Getenv("REASONED_PASSWORD"),
		},
		Logging: LoggingConfig{
			Level:  logLevel,
			Format: logFormat,
			File:   os.Getenv("LOG_FILE"),
		},
	}, nil
}

// StorageDir returns the directory holding per-server session storage
func (c *Config) StorageDir() string {
	return filepath.Join(c.Home, "storage")
}

// UserConfigPath returns the path of the user config file
func (c *Config) UserConfigPath() string {
	return filepath.Join(c.Home, "config.json")
}
