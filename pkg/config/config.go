// Package config holds the server configuration
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/tecu23/chess-clock/pkg/tick"
)

// Config is the runtime configuration of the server
type Config struct {
	Debug bool
	Port  string

	TickInterval time.Duration

	APIKeys        []string
	FrontendOrigin string

	PresetsPath string // YAML presets file, the embedded defaults when empty

	StatsView bool
}

// Default returns the configuration used when nothing is set
func Default() *Config {
	return &Config{
		Port:         "8080",
		TickInterval: tick.DefaultInterval,
	}
}

// LoadEnv loads the given .env files (".env" when none is given) into the
// process environment, then applies the environment to c. A missing .env
// file is not an error.
func (c *Config) LoadEnv(files ...string) error {
	if err := godotenv.Load(files...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("loading env file: %w", err)
	}

	return c.ApplyEnv()
}

// ApplyEnv reads API_KEYS, FRONTEND_PATH, TICK_INTERVAL and PRESETS_PATH
func (c *Config) ApplyEnv() error {
	if envAPIKeys := os.Getenv("API_KEYS"); envAPIKeys != "" {
		c.APIKeys = splitKeys(envAPIKeys)
	}

	if origin := os.Getenv("FRONTEND_PATH"); origin != "" {
		c.FrontendOrigin = origin
	}

	if path := os.Getenv("PRESETS_PATH"); path != "" {
		c.PresetsPath = path
	}

	if interval := os.Getenv("TICK_INTERVAL"); interval != "" {
		d, err := time.ParseDuration(interval)
		if err != nil {
			return fmt.Errorf("parsing TICK_INTERVAL: %w", err)
		}
		c.TickInterval = d
	}

	return c.Validate()
}

// Validate checks the values that have a legal range
func (c *Config) Validate() error {
	if c.TickInterval < time.Millisecond || c.TickInterval > time.Second {
		return fmt.Errorf("tick interval %s out of range [1ms, 1s]", c.TickInterval)
	}
	if c.Port == "" {
		return errors.New("port must not be empty")
	}

	return nil
}

// splitKeys splits a comma-separated list of API keys
func splitKeys(s string) []string {
	var keys []string
	for _, key := range strings.Split(s, ",") {
		if key = strings.TrimSpace(key); key != "" {
			keys = append(keys, key)
		}
	}

	return keys
}
