package config

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Store backends.
const (
	StoreMemory   = "memory"
	StorePebble   = "pebble"
	StorePostgres = "postgres"
)

// Config holds the settings shared by every command.
type Config struct {
	Store       string
	PebblePath  string
	PGDSN       string
	CacheSize   int
	Events      string
	Journal     string
	LogLevel    string
	MetricsAddr string
}

// Load merges config file, environment variables, and flags into Config.
func Load(cfgFile string, flags *pflag.FlagSet) (Config, error) {
	v, err := newViper(cfgFile, flags)
	if err != nil {
		return Config{}, err
	}
	return fromViper(v)
}

func fromViper(v *viper.Viper) (Config, error) {
	cfg := Config{
		Store:       strings.ToLower(strings.TrimSpace(v.GetString("store"))),
		PebblePath:  v.GetString("pebble-path"),
		PGDSN:       v.GetString("pg-dsn"),
		CacheSize:   v.GetInt("cache-size"),
		Events:      v.GetString("events"),
		Journal:     v.GetString("journal"),
		LogLevel:    v.GetString("log-level"),
		MetricsAddr: v.GetString("metrics-addr"),
	}

	switch cfg.Store {
	case StoreMemory:
	case StorePebble:
		if cfg.PebblePath == "" {
			return Config{}, fmt.Errorf("pebble-path is required for the pebble store")
		}
	case StorePostgres:
		if cfg.PGDSN == "" {
			return Config{}, fmt.Errorf("pg-dsn is required for the postgres store")
		}
	default:
		return Config{}, fmt.Errorf("unknown store %q", cfg.Store)
	}
	if cfg.CacheSize < 0 {
		return Config{}, fmt.Errorf("cache-size must not be negative")
	}

	return cfg, nil
}

func newViper(cfgFile string, flags *pflag.FlagSet) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix("SWAPV3")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("store", StorePebble)
	v.SetDefault("pebble-path", "./data/ledger")
	v.SetDefault("cache-size", 4096)
	v.SetDefault("events", "./data/events.jsonl")
	v.SetDefault("journal", "./data/journal.jsonl")
	v.SetDefault("log-level", "info")

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return nil, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	return v, nil
}
