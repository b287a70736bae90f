package config

import (
	"fmt"

	"github.com/spf13/viper"
)

type AppConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	LogLevel string `mapstructure:"log_level"`

	// RedisAddr selects the shared document store. Empty keeps snapshots
	// in process memory.
	RedisAddr     string `mapstructure:"redis_addr"`
	RedisPassword string `mapstructure:"redis_password"`

	// GeneratorURL points at the answer generation service. Empty means
	// every generated answer comes from the local fallback.
	GeneratorURL        string `mapstructure:"generator_url"`
	GeneratorTimeoutSec int    `mapstructure:"generator_timeout_sec"`

	// VoteTieBreak decides split votes: "generated" or "human".
	VoteTieBreak string `mapstructure:"vote_tie_break"`
}

var cfg *AppConfig

func GetConfig() *AppConfig {
	if cfg == nil {
		cfg = InitConfig()
	}

	return cfg
}

func InitConfig() *AppConfig {
	v := viper.New()

	v.SetConfigFile("app_config")
	v.SetConfigType("json")
	v.AddConfigPath(".")

	v.SetDefault("host", "0.0.0.0")
	v.SetDefault("port", 8080)
	v.SetDefault("log_level", "info")
	v.SetDefault("generator_timeout_sec", 5)
	v.SetDefault("vote_tie_break", "generated")

	if err := v.ReadInConfig(); err != nil {
		panic(fmt.Errorf("failed to load config: %w", err))
	}

	var config AppConfig

	if err := v.Unmarshal(&config); err != nil {
		panic(fmt.Errorf("failed to parse config: %w", err))
	}

	return &config
}
