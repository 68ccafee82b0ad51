package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	csdl "github.com/agentflare-ai/go-csdl"
)

const keyDelimiter = "::"

// Config represents the edmx2csdl configuration
type Config struct {
	Target         string         `mapstructure:"target"`
	OmitStringType bool           `mapstructure:"omit_string_type"`
	Format         string         `mapstructure:"format"`
	Output         string         `mapstructure:"output"`
	Metadata       MetadataConfig `mapstructure:"metadata"`
	Ignore         []string       `mapstructure:"ignore"`
	Workers        int            `mapstructure:"workers"`
}

// MetadataConfig tells the loader where referenced documents live
type MetadataConfig struct {
	BaseDir     string            `mapstructure:"base_dir"`
	AllowRemote bool              `mapstructure:"allow_remote"`
	Locations   map[string]string `mapstructure:"locations"`
}

// Load reads edmx2csdl.yaml from the working directory, or file when given.
// Environment variables prefixed EDMX2CSDL_ override the file.
func Load(file string) (*Config, error) {
	// Namespaces used as location keys contain dots
	v := viper.NewWithOptions(viper.KeyDelimiter(keyDelimiter))

	v.SetDefault("target", string(csdl.TargetPlain))
	v.SetDefault("omit_string_type", true)
	v.SetDefault("format", "json")
	v.SetDefault("output", "")
	v.SetDefault("metadata"+keyDelimiter+"base_dir", "")
	v.SetDefault("metadata"+keyDelimiter+"allow_remote", false)
	v.SetDefault("metadata"+keyDelimiter+"locations", map[string]string{})
	v.SetDefault("ignore", []string{})
	v.SetDefault("workers", 4)

	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("edmx2csdl")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("EDMX2CSDL")
	v.SetEnvKeyReplacer(strings.NewReplacer(keyDelimiter, "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validateConfig(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// validateConfig validates the configuration
func validateConfig(cfg *Config) error {
	if _, err := csdl.ParseTarget(cfg.Target); err != nil {
		return err
	}
	switch cfg.Format {
	case "json", "yaml":
	default:
		return fmt.Errorf("format must be 'json' or 'yaml', got: %s", cfg.Format)
	}
	if cfg.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got: %d", cfg.Workers)
	}
	return nil
}

// Options builds the conversion options. The metadata factory and logger are left to the caller.
func (c *Config) Options() (csdl.Options, error) {
	target, err := csdl.ParseTarget(c.Target)
	if err != nil {
		return csdl.Options{}, err
	}
	opts := csdl.DefaultOptions()
	opts.Target = target
	opts.OmitDefaultStringType = c.OmitStringType
	opts.Ignore = append([]string(nil), c.Ignore...)
	return opts, nil
}

// Loader creates the metadata loader described by the configuration
func (c *Config) Loader() *csdl.MetadataLoader {
	loader := csdl.NewMetadataLoader(c.Metadata.BaseDir)
	loader.AllowRemote = c.Metadata.AllowRemote
	for namespace, location := range c.Metadata.Locations {
		loader.Locations[namespace] = location
	}
	return loader
}
