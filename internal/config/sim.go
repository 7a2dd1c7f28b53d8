package config

import (
	"flag"
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	commoncfg "github.com/gaspardpetit/obix/core/config"
)

// SimConfig holds configuration for the obix-sim server.
type SimConfig struct {
	Port           int      `yaml:"port"`
	Prefix         string   `yaml:"prefix"`
	MetricsAddr    string   `yaml:"metrics_addr"`
	AllowedOrigins []string `yaml:"allowed_origins"`
	RedisAddr      string   `yaml:"redis_addr"`
	SeedFile       string   `yaml:"seed_file"`
	ServerName     string   `yaml:"server_name"`
	DisableAbout   bool     `yaml:"disable_about"`
	DisableWatch   bool     `yaml:"disable_watch"`
	DisableBatch   bool     `yaml:"disable_batch"`
	LogLevel       string   `yaml:"log_level"`
	ConfigFile     string   `yaml:"-"`
}

// SetDefaults initializes c with built-in defaults.
func (c *SimConfig) SetDefaults() {
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.Port == 0 {
		c.Port = 8080
	}
	if c.Prefix == "" {
		c.Prefix = "/obix"
	}
	if c.MetricsAddr == "" {
		c.MetricsAddr = fmt.Sprintf(":%d", c.Port)
	}
	if c.ServerName == "" {
		c.ServerName = "obix-sim"
	}
	if c.ConfigFile == "" {
		c.ConfigFile = commoncfg.DefaultConfigPath("sim.yaml")
	}
}

// ApplyEnv overlays environment variables onto the current config values.
func (c *SimConfig) ApplyEnv() {
	if v := commoncfg.GetEnv("CONFIG_FILE", ""); v != "" {
		c.ConfigFile = v
	}
	if v := commoncfg.GetEnv("LOG_LEVEL", ""); v != "" {
		c.LogLevel = v
	}
	if v := commoncfg.GetEnv("PORT", ""); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Port = n
			c.MetricsAddr = fmt.Sprintf(":%d", n)
		}
	}
	if v := commoncfg.GetEnv("METRICS_ADDR", ""); v != "" {
		c.MetricsAddr = metricsAddr(v)
	}
	if v := commoncfg.GetEnv("OBIX_PREFIX", ""); v != "" {
		c.Prefix = v
	}
	if v := commoncfg.GetEnv("REDIS_ADDR", ""); v != "" {
		c.RedisAddr = v
	}
	if v := commoncfg.GetEnv("SEED_FILE", ""); v != "" {
		c.SeedFile = v
	}
	if v := commoncfg.GetEnv("ALLOWED_ORIGINS", ""); v != "" {
		c.AllowedOrigins = commoncfg.SplitComma(v)
	}
}

// BindFlags binds command line flags on fs using the current values as
// defaults.
func (c *SimConfig) BindFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.ConfigFile, "config", c.ConfigFile, "simulator config file path")
	fs.StringVar(&c.LogLevel, "log-level", c.LogLevel, "log verbosity (all, debug, info, warn, error, fatal, none)")
	fs.IntVar(&c.Port, "port", c.Port, "HTTP listen port")
	fs.StringVar(&c.Prefix, "prefix", c.Prefix, "path of the Lobby")
	fs.Func("metrics-addr", "Prometheus metrics listen address or port; defaults to the value of --port", func(v string) error {
		c.MetricsAddr = metricsAddr(v)
		return nil
	})
	fs.StringVar(&c.RedisAddr, "redis-addr", c.RedisAddr, "redis connection URL for point storage")
	fs.StringVar(&c.SeedFile, "seed", c.SeedFile, "YAML file of points to create at startup")
	fs.StringVar(&c.ServerName, "server-name", c.ServerName, "server name published in obix:About")
	fs.BoolVar(&c.DisableAbout, "no-about", c.DisableAbout, "do not publish obix:About")
	fs.BoolVar(&c.DisableWatch, "no-watch", c.DisableWatch, "do not publish obix:WatchService")
	fs.BoolVar(&c.DisableBatch, "no-batch", c.DisableBatch, "do not publish the batch operation")
	fs.Func("allowed-origins", "comma separated list of allowed CORS origins", func(v string) error {
		c.AllowedOrigins = commoncfg.SplitComma(v)
		return nil
	})
}

// LoadFile populates the config from a YAML file.
func (c *SimConfig) LoadFile(path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(b, c)
}
