// Package config holds the settings of the obixctl and obix-sim binaries.
// Values come from built-in defaults, then environment variables, then the
// YAML config file when one exists, then command line flags.
package config

import (
	"flag"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	commoncfg "github.com/gaspardpetit/obix/core/config"
)

// ClientConfig holds configuration for obixctl.
type ClientConfig struct {
	LobbyURL           string        `yaml:"lobby_url"`
	Username           string        `yaml:"username"`
	Password           string        `yaml:"password"`
	Timeout            time.Duration `yaml:"timeout"`
	InsecureSkipVerify bool          `yaml:"insecure_skip_verify"`
	SignUpPath         string        `yaml:"sign_up_path"`
	ErrorCapacity      int           `yaml:"error_capacity"`
	MetricsAddr        string        `yaml:"metrics_addr"`
	LogLevel           string        `yaml:"log_level"`
	ConfigFile         string        `yaml:"-"`
}

// SetDefaults initializes c with built-in defaults.
func (c *ClientConfig) SetDefaults() {
	if c.LobbyURL == "" {
		c.LobbyURL = "http://localhost:8080/obix/"
	}
	if c.Timeout == 0 {
		c.Timeout = 30 * time.Second
	}
	if c.ErrorCapacity == 0 {
		c.ErrorCapacity = 100
	}
	if c.LogLevel == "" {
		c.LogLevel = "warn"
	}
	if c.ConfigFile == "" {
		c.ConfigFile = commoncfg.DefaultConfigPath("obixctl.yaml")
	}
}

// ApplyEnv overlays environment variables onto the current config values.
func (c *ClientConfig) ApplyEnv() {
	if v := commoncfg.GetEnv("CONFIG_FILE", ""); v != "" {
		c.ConfigFile = v
	}
	if v := commoncfg.GetEnv("LOG_LEVEL", ""); v != "" {
		c.LogLevel = v
	}
	if v := commoncfg.GetEnv("OBIX_LOBBY_URL", ""); v != "" {
		c.LobbyURL = v
	}
	if v := commoncfg.GetEnv("OBIX_USERNAME", ""); v != "" {
		c.Username = v
	}
	if v := commoncfg.GetEnv("OBIX_PASSWORD", ""); v != "" {
		c.Password = v
	}
	if v := commoncfg.GetEnv("OBIX_TIMEOUT", ""); v != "" {
		if d, err := parseTimeout(v); err == nil {
			c.Timeout = d
		}
	}
	if v := commoncfg.GetEnv("OBIX_SIGN_UP_PATH", ""); v != "" {
		c.SignUpPath = v
	}
	if v := commoncfg.GetEnv("OBIX_INSECURE", ""); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.InsecureSkipVerify = b
		}
	}
	if v := commoncfg.GetEnv("METRICS_ADDR", ""); v != "" {
		c.MetricsAddr = metricsAddr(v)
	}
}

// BindFlags binds command line flags on fs using the current values as
// defaults.
func (c *ClientConfig) BindFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.ConfigFile, "config", c.ConfigFile, "client config file path")
	fs.StringVar(&c.LogLevel, "log-level", c.LogLevel, "log verbosity (all, debug, info, warn, error, fatal, none)")
	fs.StringVar(&c.LobbyURL, "lobby", c.LobbyURL, "absolute URL of the oBIX Lobby")
	fs.StringVar(&c.Username, "username", c.Username, "HTTP basic auth user name")
	fs.StringVar(&c.Password, "password", c.Password, "HTTP basic auth password")
	fs.Func("timeout", "request timeout, as a duration or a number of seconds", func(v string) error {
		d, err := parseTimeout(v)
		if err != nil {
			return err
		}
		c.Timeout = d
		return nil
	})
	fs.BoolVar(&c.InsecureSkipVerify, "insecure", c.InsecureSkipVerify, "skip TLS certificate verification")
	fs.StringVar(&c.SignUpPath, "sign-up", c.SignUpPath, "href of the sign-up operation, relative to the Lobby")
	fs.IntVar(&c.ErrorCapacity, "error-capacity", c.ErrorCapacity, "number of errors kept in the history")
	fs.Func("metrics-addr", "serve Prometheus metrics on this address or port while the command runs", func(v string) error {
		c.MetricsAddr = metricsAddr(v)
		return nil
	})
}

// LoadFile populates the config from a YAML file.
func (c *ClientConfig) LoadFile(path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(b, c)
}

// parseTimeout accepts a Go duration or a plain number of seconds.
func parseTimeout(v string) (time.Duration, error) {
	if f, err := strconv.ParseFloat(v, 64); err == nil {
		return time.Duration(f * float64(time.Second)), nil
	}
	return time.ParseDuration(v)
}

func metricsAddr(v string) string {
	if v == "" || strings.Contains(v, ":") {
		return v
	}
	return ":" + v
}
