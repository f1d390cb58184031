package main

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/viper"

	"procodus.dev/plant-processor/pkg/logger"
)

const serviceName = "plant-processor"

// InitConfig initializes Viper configuration.
// It supports reading from config files (config.yaml) and environment variables
// prefixed with PLANT_PROCESSOR, e.g. PLANT_PROCESSOR_PROCESSOR_DB_HOST.
func InitConfig(cfgFile string) error {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.AddConfigPath("/etc/plant-processor/")
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	viper.SetEnvPrefix("PLANT_PROCESSOR")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		var configNotFoundErr viper.ConfigFileNotFoundError
		if errors.As(err, &configNotFoundErr) {
			// Config file not found; rely on env vars and defaults
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}

	return nil
}

// GetLogger creates the service logger from the log.level and log.source settings.
func GetLogger() *slog.Logger {
	return logger.New(&logger.Config{
		Service:   serviceName,
		Level:     logger.ParseLevel(viper.GetString("log.level")),
		AddSource: viper.GetBool("log.source"),
	})
}
