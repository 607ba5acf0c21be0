package configuration

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Error writing test config: %v", err)
	}
	return path
}

func TestGetConfig_Defaults(t *testing.T) {
	path := writeConfig(t, `telegram_token = "test-token"`)

	config, err := GetConfig(path)
	if err != nil {
		t.Fatalf("GetConfig() returned unexpected error: %v", err)
	}

	if config.TelegramToken != "test-token" {
		t.Errorf("Expected test-token, got %s", config.TelegramToken)
	}
	if config.ServerAddress != "localhost:8888" {
		t.Errorf("Expected default server address, got %s", config.ServerAddress)
	}
	if config.DatabaseURI != "mongodb://localhost:27017" {
		t.Errorf("Expected default database URI, got %s", config.DatabaseURI)
	}
	if config.RedisAddress != "localhost:6379" {
		t.Errorf("Expected default Redis address, got %s", config.RedisAddress)
	}
	if config.DefaultCheckInterval != 180 {
		t.Errorf("Expected default check interval 180, got %d", config.DefaultCheckInterval)
	}
	if config.CheckTickInterval != time.Minute {
		t.Errorf("Expected default tick interval 1m, got %s", config.CheckTickInterval)
	}
}

func TestGetConfig_TokenFromEnv(t *testing.T) {
	t.Setenv("TELEGRAM_TOKEN", "env-token")
	path := writeConfig(t, `server_address = "localhost:9999"`)

	config, err := GetConfig(path)
	if err != nil {
		t.Fatalf("GetConfig() returned unexpected error: %v", err)
	}
	if config.TelegramToken != "env-token" {
		t.Errorf("Expected token from env, got %s", config.TelegramToken)
	}
}

func TestGetConfig_MissingToken(t *testing.T) {
	t.Setenv("TELEGRAM_TOKEN", "")
	path := writeConfig(t, `server_address = "localhost:9999"`)

	if _, err := GetConfig(path); err == nil {
		t.Error("GetConfig() should return an error when no token is configured")
	}
}

func TestGetConfig_TickIntervalTooShort(t *testing.T) {
	path := writeConfig(t, `
telegram_token = "test-token"
check_tick_interval = "5s"
`)

	if _, err := GetConfig(path); err == nil {
		t.Error("GetConfig() should reject a tick interval below 15s")
	}
}

func TestGetConfig_InvalidDefaultInterval(t *testing.T) {
	path := writeConfig(t, `
telegram_token = "test-token"
default_check_interval = -5
`)

	if _, err := GetConfig(path); err == nil {
		t.Error("GetConfig() should reject a default check interval below 1 minute")
	}
}

func TestGetConfig_CustomValues(t *testing.T) {
	path := writeConfig(t, `
telegram_token = "test-token"
database_uri = "mongodb://db:27017"
default_check_interval = 60
check_tick_interval = "30s"
`)

	config, err := GetConfig(path)
	if err != nil {
		t.Fatalf("GetConfig() returned unexpected error: %v", err)
	}
	if config.DatabaseURI != "mongodb://db:27017" {
		t.Errorf("Expected custom database URI, got %s", config.DatabaseURI)
	}
	if config.DefaultCheckInterval != 60 {
		t.Errorf("Expected check interval 60, got %d", config.DefaultCheckInterval)
	}
	if config.CheckTickInterval != 30*time.Second {
		t.Errorf("Expected tick interval 30s, got %s", config.CheckTickInterval)
	}
}
