package configuration

import (
	"os"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
)

// Users cannot be checked more often than the scheduler ticks, so the
// effective minimum schedulable check interval is
// max(CheckTickInterval, 1 minute) regardless of what a user configures.
type Config struct {
	TelegramToken        string
	ServerAddress        string
	DatabaseURI          string
	RedisAddress         string
	DefaultCheckInterval int
	CheckTickInterval    time.Duration
	LogToFile            bool
	LogDebug             bool
	LogInfo              bool
	LogError             bool
}

type tomlConfig struct {
	TelegramToken        string `toml:"telegram_token"`
	ServerAddress        string `toml:"server_address"`
	DatabaseURI          string `toml:"database_uri"`
	RedisAddress         string `toml:"redis_address"`
	DefaultCheckInterval int    `toml:"default_check_interval"`
	CheckTickInterval    string `toml:"check_tick_interval"`
	LogToFile            bool   `toml:"log_to_file"`
	LogDebug             bool   `toml:"log_debug"`
	LogInfo              bool   `toml:"log_info"`
	LogError             bool   `toml:"log_error"`
}

func GetConfig(path string) (*Config, error) {
	var tc tomlConfig
	_, err := toml.DecodeFile(path, &tc)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to decode toml file with path: %s", path)
	}

	if tc.TelegramToken == "" {
		_ = godotenv.Load()
		tc.TelegramToken = os.Getenv("TELEGRAM_TOKEN")
	}
	if tc.TelegramToken == "" {
		return nil, errors.New("telegram_token is not set in config or TELEGRAM_TOKEN env")
	}

	if tc.ServerAddress == "" {
		tc.ServerAddress = "localhost:8888"
	}

	if tc.DatabaseURI == "" {
		tc.DatabaseURI = "mongodb://localhost:27017"
	}

	if tc.RedisAddress == "" {
		tc.RedisAddress = "localhost:6379"
	}

	if tc.DefaultCheckInterval == 0 {
		tc.DefaultCheckInterval = 180
	}
	if tc.DefaultCheckInterval < 1 {
		return nil, errors.Errorf("default_check_interval too short (%d), minimum: 1 minute", tc.DefaultCheckInterval)
	}

	if tc.CheckTickInterval == "" {
		tc.CheckTickInterval = "1m"
	}
	checkTickInterval, err := time.ParseDuration(tc.CheckTickInterval)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to parse check_tick_interval: %s", tc.CheckTickInterval)
	}
	if checkTickInterval < 15*time.Second {
		return nil, errors.Errorf("check_tick_interval too short (%v), minimum interval: 15s", checkTickInterval)
	}

	return &Config{
		TelegramToken:        tc.TelegramToken,
		ServerAddress:        tc.ServerAddress,
		DatabaseURI:          tc.DatabaseURI,
		RedisAddress:         tc.RedisAddress,
		DefaultCheckInterval: tc.DefaultCheckInterval,
		CheckTickInterval:    checkTickInterval,
		LogToFile:            tc.LogToFile,
		LogDebug:             tc.LogDebug,
		LogInfo:              tc.LogInfo,
		LogError:             tc.LogError,
	}, nil
}
