package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// configName is the config file name without extension.
const configName = ".docarena"

// configType is the config file format.
const configType = "yaml"

// envPrefix is the environment variable prefix for docarena settings.
const envPrefix = "DOCARENA"

// envKeySeparator is the nested key separator in environment variable names.
const envKeySeparator = "_"

// Load reads configuration from file, env vars, and defaults.
// If configPath is non-empty, it is used as the explicit config file path.
// Otherwise, the config file is searched in CWD and $HOME.
// Missing config file is not an error; defaults are used.
func Load(configPath string) (*Config, error) {
	viperCfg := viper.New()

	applyDefaults(viperCfg)

	viperCfg.SetConfigType(configType)
	viperCfg.SetEnvPrefix(envPrefix)
	viperCfg.SetEnvKeyReplacer(strings.NewReplacer(".", envKeySeparator))
	viperCfg.AutomaticEnv()

	if configPath != "" {
		viperCfg.SetConfigFile(configPath)
	} else {
		viperCfg.SetConfigName(configName)
		viperCfg.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viperCfg.AddConfigPath(home)
		}
	}

	readErr := viperCfg.ReadInConfig()
	if readErr != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(readErr, &notFound) {
			return nil, fmt.Errorf("read config: %w", readErr)
		}
	}

	var cfg Config

	unmarshalErr := viperCfg.Unmarshal(&cfg)
	if unmarshalErr != nil {
		return nil, fmt.Errorf("unmarshal config: %w", unmarshalErr)
	}

	validateErr := cfg.Validate()
	if validateErr != nil {
		return nil, fmt.Errorf("validate config: %w", validateErr)
	}

	return &cfg, nil
}

func applyDefaults(viperCfg *viper.Viper) {
	viperCfg.SetDefault("output_dir", DefaultOutputDir)
	viperCfg.SetDefault("extensions", []string{".pdf"})

	viperCfg.SetDefault("strategy.approach", "default")
	viperCfg.SetDefault("strategy.mode", DefaultMode)
	viperCfg.SetDefault("strategy.max_files_per_group", DefaultMaxFilesPerGroup)
	viperCfg.SetDefault("strategy.max_retry_rounds", DefaultMaxRetryRounds)
	viperCfg.SetDefault("strategy.max_attempts", DefaultMaxAttempts)
	viperCfg.SetDefault("strategy.retry_delay", DefaultRetryDelay)
	viperCfg.SetDefault("strategy.call_timeout", DefaultCallTimeout)
	viperCfg.SetDefault("strategy.workers", DefaultWorkers)
}
