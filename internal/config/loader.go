package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// envPrefix is the environment variable prefix for every setting.
const envPrefix = "RISKOVERLAY"

// newViper builds a Viper instance with YAML file type, the RISKOVERLAY_ env
// prefix and a "." → "_" key replacer, so "feed.timeout" resolves to
// RISKOVERLAY_FEED_TIMEOUT.
func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	registerDefaults(v)
	return v
}

// LoadDotEnv loads KEY=VALUE files into the process environment before viper
// reads it. Missing files are skipped; variables already set are kept. With
// no arguments ".env" in the working directory is tried.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	var existing []string
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			existing = append(existing, p)
		}
	}
	if len(existing) == 0 {
		return nil
	}
	if err := godotenv.Load(existing...); err != nil {
		return fmt.Errorf("config: failed to load env file: %w", err)
	}
	return nil
}

// Load reads the YAML file at configPath, merges RISKOVERLAY_* overrides,
// applies defaults and validates the result.
func Load(configPath string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(configPath)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("config: failed to read config file %q: %w", configPath, err)
	}
	return unmarshalAndFinalize(v)
}

// LoadFromEnv builds a Config from RISKOVERLAY_* variables and defaults only.
// Datasets cannot be expressed as environment variables, so this suits
// feed-only deployments and tests.
//
//	RISKOVERLAY_<SECTION>_<FIELD>   e.g. RISKOVERLAY_FEED_URL
func LoadFromEnv() (*Config, error) {
	return unmarshalAndFinalize(newViper())
}

func unmarshalAndFinalize(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config: failed to unmarshal configuration: %w", err)
	}

	ApplyDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: validation failed: %w", err)
	}
	return cfg, nil
}

// Watch re-reads configPath whenever it changes on disk and calls onChange
// with the new Config. A change that fails to parse or validate is passed to
// onError (when non-nil) and onChange is skipped. Watch does not block.
func Watch(configPath string, onChange func(*Config), onError func(error)) {
	v := newViper()
	v.SetConfigFile(configPath)
	_ = v.ReadInConfig()

	v.OnConfigChange(func(e fsnotify.Event) {
		cfg, err := unmarshalAndFinalize(v)
		if err != nil {
			if onError != nil {
				onError(fmt.Errorf("config: reload after %s: %w", e.Op, err))
			}
			return
		}
		onChange(cfg)
	})
	v.WatchConfig()
}
