// Package config provides runtime configuration values for the agent.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// ConfigFileName is the default name of the config file.
const ConfigFileName = "hubsync.yaml"

// Config holds configuration knobs for the HTTP server, the Hub link,
// and the propagation pipeline.
type Config struct {
	HTTPAddr        string        `koanf:"http_addr"`
	NodeID          string        `koanf:"node_id"`
	HubURL          string        `koanf:"hub_url"`
	HubAdminKey     string        `koanf:"hub_admin_key"`
	Staging         bool          `koanf:"staging"`
	DebounceTTL     time.Duration `koanf:"debounce_ttl"`
	NotifyTimeout   time.Duration `koanf:"notify_timeout"`
	NotifyQueueSize int           `koanf:"notify_queue_size"`
	NotifySenders   int           `koanf:"notify_senders"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	LogPretty       bool          `koanf:"log_pretty"`
}

// HubConfigured reports whether an outbound propagation target is set.
func (c Config) HubConfigured() bool {
	return strings.TrimSpace(c.HubURL) != ""
}

func defaults() map[string]interface{} {
	return map[string]interface{}{
		"http_addr":         ":8080",
		"node_id":           "node.local",
		"hub_url":           "",
		"hub_admin_key":     "",
		"staging":           false,
		"debounce_ttl":      "60s",
		"notify_timeout":    "3s",
		"notify_queue_size": 128,
		"notify_senders":    2,
		"shutdown_timeout":  "15s",
		"log_pretty":        false,
	}
}

// Load builds the configuration from defaults, an optional YAML file,
// HUBSYNC_-prefixed environment variables, and explicitly set flags,
// in increasing order of precedence.
func Load(cfgFile string, flags *pflag.FlagSet) (Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return Config{}, fmt.Errorf("failed to load defaults: %w", err)
	}

	if cfgFile == "" {
		if _, err := os.Stat(ConfigFileName); err == nil {
			cfgFile = ConfigFileName
		}
	}
	if cfgFile != "" {
		if err := k.Load(file.Provider(cfgFile), yaml.Parser()); err != nil {
			return Config{}, fmt.Errorf("error reading config file %s: %w", cfgFile, err)
		}
	}

	// Transform: HUBSYNC_HUB_URL -> hub_url
	if err := k.Load(env.Provider("HUBSYNC_", ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, "HUBSYNC_"))
	}), nil); err != nil {
		return Config{}, fmt.Errorf("failed to load env vars: %w", err)
	}

	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			if !f.Changed {
				return "", nil
			}
			key := strings.ReplaceAll(f.Name, "-", "_")
			return key, posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return Config{}, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("unable to decode config: %w", err)
	}
	if cfg.NotifyQueueSize <= 0 {
		cfg.NotifyQueueSize = 128
	}
	if cfg.NotifySenders <= 0 {
		cfg.NotifySenders = 2
	}
	return cfg, nil
}
