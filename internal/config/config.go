// Package config loads the runtime configuration.
//
// Precedence, lowest first: built-in defaults, config.yaml (in the user
// config dir or the working directory), then HIANIME_* environment
// variables, which may also come from a .env file.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	appName   = "hianime"
	envPrefix = "HIANIME"
)

// Config holds all application configuration
type Config struct {
	Site      SiteConfig      `mapstructure:"site"`
	HTTP      HTTPConfig      `mapstructure:"http"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

type SiteConfig struct {
	BaseURL string `mapstructure:"base_url"`
}

type HTTPConfig struct {
	Timeout time.Duration `mapstructure:"timeout"`
}

// CacheConfig holds the result cache windows
type CacheConfig struct {
	Freshness time.Duration `mapstructure:"freshness"` // served by Get
	Staleness time.Duration `mapstructure:"staleness"` // evicted by the sweep
}

type SchedulerConfig struct {
	SweepInterval        time.Duration `mapstructure:"sweep_interval"`
	EpisodeCheckInterval time.Duration `mapstructure:"episode_check_interval"`
}

type StorageConfig struct {
	DataDir string `mapstructure:"data_dir"`
}

type LoggingConfig struct {
	Debug bool `mapstructure:"debug"`
}

// LibraryPath is the SQLite file of the local library
func (c *Config) LibraryPath() string {
	return filepath.Join(c.Storage.DataDir, "library.db")
}

// SettingsPath is the bbolt file of the user preferences
func (c *Config) SettingsPath() string {
	return filepath.Join(c.Storage.DataDir, "settings.db")
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("site.base_url", "https://hianime.to")
	v.SetDefault("http.timeout", 30*time.Second)
	v.SetDefault("cache.freshness", 5*time.Minute)
	v.SetDefault("cache.staleness", 30*time.Minute)
	v.SetDefault("scheduler.sweep_interval", time.Hour)
	v.SetDefault("scheduler.episode_check_interval", 30*time.Minute)
	v.SetDefault("storage.data_dir", defaultDataDir())
	v.SetDefault("logging.debug", false)
}

// defaultDataDir returns the default data directory for the current OS
func defaultDataDir() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), appName)
	default:
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".local", "share", appName)
	}
}

// defaultConfigDir returns the default config directory for the current OS
func defaultConfigDir() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), appName)
	default:
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".config", appName)
	}
}

// Load reads the configuration. A non-empty configFile must exist; without
// one a missing config.yaml just means defaults.
func Load(configFile string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(defaultConfigDir())
		v.AddConfigPath(".")
	}

	// HIANIME_CACHE_FRESHNESS overrides cache.freshness
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || configFile != "" {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("error parsing config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if strings.TrimSpace(c.Site.BaseURL) == "" {
		return fmt.Errorf("site.base_url must not be empty")
	}
	if c.Cache.Freshness <= 0 || c.Cache.Staleness <= 0 {
		return fmt.Errorf("cache windows must be positive")
	}
	if c.Cache.Staleness < c.Cache.Freshness {
		return fmt.Errorf("cache.staleness (%s) must not be shorter than cache.freshness (%s)",
			c.Cache.Staleness, c.Cache.Freshness)
	}
	return nil
}
