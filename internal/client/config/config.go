// Package config loads runtime configuration for the tokenauth CLI.
//
// Sources, in order of precedence (later wins):
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file selected with -c or -config.
//  3. Command-line flags.
//
// Supported flags
//
//	-a string   base URL of the tokenauth server
//	-s string   path of the local session database
//	-t int      request timeout (seconds)
//	-l string   log level
//
// The JSON loader uses timex.Duration, so the timeout can be either a
// string like "10s" or integer nanoseconds:
//
//	{
//	  "server_endpoint_addr": "http://127.0.0.1:8080",
//	  "session_db_path": "/home/me/.config/tokenauth/session.db",
//	  "request_timeout": "10s",
//	  "log_level": "warn"
//	}
package config

import (
	"os"
	"path/filepath"
	"time"
)

// Config holds runtime settings for the tokenauth CLI.
type Config struct {
	ServerEndpointAddr string
	SessionDBPath      string
	RequestTimeout     time.Duration
	LogLevel           string
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerEndpointAddr = "http://127.0.0.1:8080"
	c.SessionDBPath = defaultSessionDBPath()
	c.RequestTimeout = 10 * time.Second
	c.LogLevel = "warn"
}

func defaultSessionDBPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "tokenauth-session.db"
	}
	return filepath.Join(dir, "tokenauth", "session.db")
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if present) and command-line flags (if present).
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
