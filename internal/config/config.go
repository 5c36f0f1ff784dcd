package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
// Values are read by viper from a config file or environment variables.
type Config struct {
	TelegramBotToken string `mapstructure:"TELEGRAM_BOT_TOKEN"`
	BadgerDBPath     string `mapstructure:"BADGERDB_PATH"`
	ScreenshotDir    string `mapstructure:"SCREENSHOT_DIR"`

	// ScrapeTimeoutSeconds bounds metadata fetches and screenshot
	// captures. Expiry degrades the result, it never fails the save.
	ScrapeTimeoutSeconds int `mapstructure:"SCRAPE_TIMEOUT_SECONDS"`

	// SimulatedLatencyMS delays every service call by this many
	// milliseconds. Development aid; zero disables it.
	SimulatedLatencyMS int `mapstructure:"SIMULATED_LATENCY_MS"`

	LogLevel string `mapstructure:"LOG_LEVEL"`
}

// LoadConfig reads configuration from file or environment variables.
func LoadConfig(path string) (config Config, err error) {
	viper.AddConfigPath(path)
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	err = viper.ReadInConfig()
	if err != nil {
		// A missing file is fine, env vars may carry everything.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return Config{}, fmt.Errorf("error reading config file: %w", err)
		}
	}

	err = viper.Unmarshal(&config)
	if err != nil {
		return Config{}, fmt.Errorf("unable to decode into struct: %w", err)
	}

	if config.TelegramBotToken == "" {
		return Config{}, fmt.Errorf("TELEGRAM_BOT_TOKEN is not set")
	}
	if config.BadgerDBPath == "" {
		config.BadgerDBPath = "./badger_data"
	}
	if config.ScreenshotDir == "" {
		config.ScreenshotDir = "./screenshots"
	}
	if config.ScrapeTimeoutSeconds <= 0 {
		config.ScrapeTimeoutSeconds = 30
	}
	if config.SimulatedLatencyMS < 0 {
		config.SimulatedLatencyMS = 0
	}
	if config.LogLevel == "" {
		config.LogLevel = "info"
	}

	return config, nil
}
