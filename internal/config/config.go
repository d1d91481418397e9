// Package config reads engine settings from the environment.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Server ServerConfig
	Parse  ParseConfig
	Log    LogConfig
}

type ServerConfig struct {
	Host        string
	Port        int
	MaxUploadMB int
}

type ParseConfig struct {
	MaxPages        int
	Timeout         time.Duration
	DisabledParsers []string
	PDFPassword     string
}

type LogConfig struct {
	Level slog.Level
}

// Addr is the listen address for the HTTP server.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// MaxUploadBytes converts MaxUploadMB to bytes.
func (s ServerConfig) MaxUploadBytes() int {
	return s.MaxUploadMB << 20
}

// Load reads .env from the working directory, when present, then the
// environment. Variables already set in the environment win over .env.
func Load() (*Config, error) {
	return LoadFrom(".env")
}

// LoadFrom is Load with explicit dotenv files. Missing files are skipped.
func LoadFrom(envFiles ...string) (*Config, error) {
	for _, f := range envFiles {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", f, err)
		}
	}

	level, err := parseLevel(getEnv("LOG_LEVEL", "info"))
	if err != nil {
		return nil, err
	}
	timeout, err := time.ParseDuration(getEnv("PARSE_TIMEOUT", "30s"))
	if err != nil {
		return nil, fmt.Errorf("invalid PARSE_TIMEOUT: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Host:        getEnv("SERVER_HOST", "localhost"),
			Port:        getEnvAsInt("SERVER_PORT", 8080),
			MaxUploadMB: getEnvAsInt("MAX_UPLOAD_MB", 32),
		},
		Parse: ParseConfig{
			MaxPages:        getEnvAsInt("MAX_PAGES", 200),
			Timeout:         timeout,
			DisabledParsers: getEnvAsList("DISABLED_PARSERS"),
			PDFPassword:     os.Getenv("PDF_PASSWORD"),
		},
		Log: LogConfig{Level: level},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	var errs []error
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("SERVER_PORT must be 1-65535, got %d", c.Server.Port))
	}
	if c.Server.MaxUploadMB < 1 {
		errs = append(errs, fmt.Errorf("MAX_UPLOAD_MB must be positive, got %d", c.Server.MaxUploadMB))
	}
	if c.Parse.MaxPages < 0 {
		errs = append(errs, fmt.Errorf("MAX_PAGES must not be negative, got %d", c.Parse.MaxPages))
	}
	if c.Parse.Timeout < 0 {
		errs = append(errs, errors.New("PARSE_TIMEOUT must not be negative"))
	}
	return errors.Join(errs...)
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("invalid LOG_LEVEL %q: %w", s, err)
	}
	return level, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsList splits a comma-separated variable, dropping blanks.
func getEnvAsList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
