package config

import (
	"errors"
	"log"
	"strings"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// AnalyticsConfig controls the snapshot refresh loop.
type AnalyticsConfig struct {
	RefreshInterval time.Duration `mapstructure:"refreshInterval"`
	RunTimeout      time.Duration `mapstructure:"runTimeout"`
}

func DefaultAnalyticsConfig() AnalyticsConfig {
	return AnalyticsConfig{
		RefreshInterval: 5 * time.Minute,
		RunTimeout:      time.Minute,
	}
}

// AnalyticsConfigHolder exposes the current analytics config with hot reload.
type AnalyticsConfigHolder struct {
	current atomic.Value // holds AnalyticsConfig
}

func NewAnalyticsConfigHolder() (*AnalyticsConfigHolder, error) {
	v := viper.New()

	v.SetConfigName("analytics")
	v.SetConfigType("yml")
	v.AddConfigPath("/var/lib/agentdesk/config")
	v.AddConfigPath("/etc/agentdesk")
	v.AddConfigPath(".")

	v.SetEnvPrefix("AGENTDESK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults apply whether or not a config file exists, so a file that
	// sets only one key inherits the rest.
	defaults := DefaultAnalyticsConfig()
	v.SetDefault("analytics.refreshInterval", defaults.RefreshInterval)
	v.SetDefault("analytics.runTimeout", defaults.RunTimeout)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var cfg AnalyticsConfig
	if err := v.UnmarshalKey("analytics", &cfg); err != nil {
		return nil, err
	}
	if err := validateAnalyticsConfig(cfg); err != nil {
		return nil, err
	}

	holder := &AnalyticsConfigHolder{}
	holder.current.Store(cfg)

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated AnalyticsConfig
		if err := v.UnmarshalKey("analytics", &updated); err != nil {
			log.Printf("[analytics-config] reload failed: %v", err)
			return
		}
		if err := validateAnalyticsConfig(updated); err != nil {
			log.Printf("[analytics-config] invalid config ignored: %v", err)
			return
		}
		holder.current.Store(updated)
		log.Printf("[analytics-config] reloaded from %s", e.Name)
	})

	return holder, nil
}

func (h *AnalyticsConfigHolder) Get() AnalyticsConfig {
	return h.current.Load().(AnalyticsConfig)
}

func validateAnalyticsConfig(cfg AnalyticsConfig) error {
	if cfg.RefreshInterval <= 0 {
		return errors.New("analytics.refreshInterval must be positive")
	}
	if cfg.RunTimeout <= 0 {
		return errors.New("analytics.runTimeout must be positive")
	}
	return nil
}
