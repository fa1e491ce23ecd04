// Package config loads keyprops settings from flags, environment and an
// optional .keyprops.yaml file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override, e.g. KEYPROPS_STRICT
const EnvPrefix = "KEYPROPS"

// Config is the resolved CLI configuration
type Config struct {
	// ProjectDir is where project discovery starts
	ProjectDir string `mapstructure:"project_dir"`

	// File points at a signing properties file and skips discovery
	File string `mapstructure:"file"`

	// Strict treats an incomplete key set as a read error
	Strict bool `mapstructure:"strict"`

	// Policy is an optional Rego module replacing the built-in lint rules
	Policy string `mapstructure:"policy"`

	Log LogConfig `mapstructure:"log"`
}

// LogConfig defines logger settings
type LogConfig struct {
	// Level: debug, info, warn, error
	Level string `mapstructure:"level"`
	// Format: console or json
	Format string `mapstructure:"format"`
	// File optionally duplicates log output into a file
	File string `mapstructure:"file"`

	Rotation RotationConfig `mapstructure:"rotation"`
}

// RotationConfig controls rotation of the log file
type RotationConfig struct {
	Enable     bool `mapstructure:"enable"`
	MaxSizeMB  int  `mapstructure:"max_size_mb"`
	MaxBackups int  `mapstructure:"max_backups"`
	MaxAgeDays int  `mapstructure:"max_age_days"`
	Compress   bool `mapstructure:"compress"`
}

// SetDefaults registers every key so environment overrides are picked up
func SetDefaults(v *viper.Viper) {
	v.SetDefault("project_dir", ".")
	v.SetDefault("file", "")
	v.SetDefault("strict", false)
	v.SetDefault("policy", "")
	v.SetDefault("log.level", "warn")
	v.SetDefault("log.format", "console")
	v.SetDefault("log.file", "")
	v.SetDefault("log.rotation.enable", false)
	v.SetDefault("log.rotation.max_size_mb", 10)
	v.SetDefault("log.rotation.max_backups", 3)
	v.SetDefault("log.rotation.max_age_days", 28)
	v.SetDefault("log.rotation.compress", true)
}

// Load reads configuration into a Config. When configFile is empty,
// .keyprops.yaml is looked up in the working directory and then in the home
// directory; its absence is not an error.
func Load(v *viper.Viper, configFile string) (*Config, error) {
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName(".keyprops")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(home)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate checks enumerated settings
func (c *Config) Validate() error {
	if _, err := ValidateLogLevel(c.Log.Level); err != nil {
		return err
	}
	if _, err := ValidateLogFormat(c.Log.Format); err != nil {
		return err
	}
	return nil
}
