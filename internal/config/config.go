package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	// DefaultCacheTTL is the production resolution-cache freshness window.
	DefaultCacheTTL = time.Minute

	// DevCacheTTL suits edit-refresh loops where stale resolutions are
	// more annoying than the extra filesystem probes.
	DevCacheTTL = 2 * time.Second
)

// Config holds all runtime configuration for loom.
type Config struct {
	// SiteRoot is the directory containing the themes/ tree.
	SiteRoot string         `mapstructure:"site_root"`
	Store    StoreConfig    `mapstructure:"store"`
	Resolver ResolverConfig `mapstructure:"resolver"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// StoreConfig selects and locates the graph store backend.
type StoreConfig struct {
	// Driver is "sqlite" or "memory".
	Driver string `mapstructure:"driver"`
	// Path is the sqlite database file. Ignored by the memory driver.
	Path string `mapstructure:"path"`
}

// ResolverConfig tunes file resolution.
type ResolverConfig struct {
	// CacheTTL is how long a successful resolution stays fresh. Kept as
	// runtime configuration rather than a build-profile switch: the
	// dev/prod difference is an environment policy.
	CacheTTL time.Duration `mapstructure:"cache_ttl"`
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Default returns the configuration used when no file or environment
// overrides are present.
func Default() Config {
	return Config{
		SiteRoot: ".",
		Store: StoreConfig{
			Driver: "sqlite",
			Path:   "loom.db",
		},
		Resolver: ResolverConfig{
			CacheTTL: DefaultCacheTTL,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads configuration from the given file (optional), layered under
// LOOM_* environment overrides and the defaults above.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix("LOOM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	def := Default()
	v.SetDefault("site_root", def.SiteRoot)
	v.SetDefault("store.driver", def.Store.Driver)
	v.SetDefault("store.path", def.Store.Path)
	v.SetDefault("resolver.cache_ttl", def.Resolver.CacheTTL)
	v.SetDefault("logging.level", def.Logging.Level)
	v.SetDefault("logging.format", def.Logging.Format)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	} else {
		v.SetConfigName("loom")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.loom")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects configurations the components cannot run with.
func (c Config) Validate() error {
	switch c.Store.Driver {
	case "sqlite", "memory":
	default:
		return fmt.Errorf("unknown store driver %q", c.Store.Driver)
	}
	if c.Store.Driver == "sqlite" && c.Store.Path == "" {
		return fmt.Errorf("store.path is required for the sqlite driver")
	}
	if c.Resolver.CacheTTL < 0 {
		return fmt.Errorf("resolver.cache_ttl must not be negative")
	}
	return nil
}
