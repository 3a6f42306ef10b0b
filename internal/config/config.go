// Package config provides configuration management for PageForge hosts
// using Viper for flexible configuration loading from files, environment
// variables, and command-line flags.
//
// The configuration system supports YAML files and environment variable
// overrides with a PAGEFORGE_ prefix. It manages server settings, page
// and plugin sources, locale defaults, feature flags, experiment
// bucketing, and plugin allowlisting.
package config

import (
	"strings"

	"github.com/spf13/viper"

	"github.com/pageforge/pageforge/internal/errors"
)

type Config struct {
	Server      ServerConfig     `yaml:"server"`
	Pages       PagesConfig      `yaml:"pages"`
	Plugins     PluginsConfig    `yaml:"plugins"`
	Locale      LocaleConfig     `yaml:"locale"`
	Flags       map[string]bool  `yaml:"flags"`
	Experiments ExperimentConfig `yaml:"experiments"`
	Log         LogConfig        `yaml:"log"`
}

type ServerConfig struct {
	Host        string `yaml:"host"`
	Port        int    `yaml:"port"`
	Environment string `yaml:"environment"`
}

type PagesConfig struct {
	// Dir holds the page definition files served by slug.
	Dir string `yaml:"dir"`
	// Watch enables live reload when definitions change on disk.
	Watch bool `yaml:"watch"`
}

type PluginsConfig struct {
	// Manifest is the plugin definitions file driving the allowlist.
	Manifest string `yaml:"manifest"`
	// Allowed is an inline allowlist; empty means every registered
	// plugin is usable.
	Allowed []string `yaml:"allowed"`
}

type LocaleConfig struct {
	Default string `yaml:"default"`
}

type ExperimentConfig struct {
	Salt    string   `yaml:"salt"`
	Buckets []string `yaml:"buckets"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

func Load() (*Config, error) {
	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, errors.NewConfigError(errors.ErrCodeConfigInvalid, "failed to parse configuration").WithCause(err)
	}

	// Handle slice and map keys set via viper (workaround for viper
	// env/flag handling of non-scalar values)
	if viper.IsSet("plugins.allowed") && len(config.Plugins.Allowed) == 0 {
		config.Plugins.Allowed = viper.GetStringSlice("plugins.allowed")
	}
	if viper.IsSet("experiments.buckets") && len(config.Experiments.Buckets) == 0 {
		config.Experiments.Buckets = viper.GetStringSlice("experiments.buckets")
	}
	if viper.IsSet("flags") && len(config.Flags) == 0 {
		config.Flags = map[string]bool{}
		for name, value := range viper.GetStringMap("flags") {
			if enabled, ok := value.(bool); ok {
				config.Flags[name] = enabled
			}
		}
	}

	applyDefaults(&config)

	if err := validateConfig(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

func applyDefaults(config *Config) {
	if config.Server.Host == "" {
		config.Server.Host = "localhost"
	}
	if config.Server.Port == 0 {
		config.Server.Port = 8080
	}
	if config.Server.Environment == "" {
		config.Server.Environment = "development"
	}
	if config.Pages.Dir == "" {
		config.Pages.Dir = "./pages"
	}
	if config.Locale.Default == "" {
		config.Locale.Default = "en"
	}
	if config.Experiments.Salt == "" {
		config.Experiments.Salt = "pageforge"
	}
	if len(config.Experiments.Buckets) == 0 {
		config.Experiments.Buckets = []string{"A", "B"}
	}
	if config.Log.Level == "" {
		config.Log.Level = "info"
	}
	if config.Log.Format == "" {
		config.Log.Format = "text"
	}
}

// SetDefaults seeds viper with the default configuration values so
// that flag binding and config files layer on top of them.
func SetDefaults() {
	viper.SetDefault("server.host", "localhost")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.environment", "development")
	viper.SetDefault("pages.dir", "./pages")
	viper.SetDefault("pages.watch", true)
	viper.SetDefault("locale.default", "en")
	viper.SetDefault("experiments.salt", "pageforge")
	viper.SetDefault("experiments.buckets", []string{"A", "B"})
	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.format", "text")
}

// SetupEnvironment wires the PAGEFORGE_ environment variable prefix,
// mapping nested keys with underscores, e.g. PAGEFORGE_SERVER_PORT.
func SetupEnvironment() {
	viper.SetEnvPrefix("PAGEFORGE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
}
