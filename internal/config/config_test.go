package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"PICTURE_CONFIG", "APP_ENV", "PICTURE_BASE_URL", "PICTURE_TIMEOUT", "PICTURE_CHAT_ID_PARAM",
		"PICTURE_LOCATION", "PICTURE_STORAGE", "PICTURE_STORAGE_PATH", "REDIS_ADDR", "REDIS_DB",
		"PORT", "LOG_LEVEL", "LOG_PRETTY",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, EnvDevelopment, cfg.Client.Env)
	require.Equal(t, DevBaseURL, cfg.Client.BaseURL)
	require.Equal(t, 60*time.Second, cfg.Client.Timeout)
	require.Equal(t, "chatId", cfg.Client.ChatIDParam)
	require.Equal(t, "/", cfg.Client.Location)
	require.Equal(t, "file", cfg.Storage.Driver)
	require.Equal(t, ":8123", cfg.Server.Addr)
	require.Equal(t, "info", cfg.Log.Level)
}

func TestLoadProductionBaseURL(t *testing.T) {
	clearEnv(t)
	t.Setenv("APP_ENV", "prod")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, EnvProduction, cfg.Client.Env)
	require.Equal(t, ProdBaseURL, cfg.Client.BaseURL)
	require.False(t, cfg.Client.IsDevelopment())
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := map[string]string{
		"APP_ENV":               "staging",
		"PICTURE_TIMEOUT":       "0",
		"PICTURE_CHAT_ID_PARAM": "conversation",
		"LOG_PRETTY":            "maybe",
		"PORT":                  "81 23",
	}
	for key, value := range cases {
		t.Run(key, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(key, value)
			_, err := Load()
			require.Error(t, err)
		})
	}
}

func TestLoadYAMLLayerWithEnvOverride(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "picture.yaml")
	data := []byte(`client:
  base_url: http://files.example:9000/
  timeout: 5
  chat_id_param: memoryId
storage:
  driver: sqlite
  path: /tmp/picture.db
server:
  addr: 127.0.0.1:9999
log:
  level: debug
`)
	require.NoError(t, os.WriteFile(path, data, 0o600))
	t.Setenv("PICTURE_CONFIG", path)
	t.Setenv("PICTURE_TIMEOUT", "7")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "http://files.example:9000", cfg.Client.BaseURL)
	require.Equal(t, 7*time.Second, cfg.Client.Timeout)
	require.Equal(t, "memoryId", cfg.Client.ChatIDParam)
	require.Equal(t, "sqlite", cfg.Storage.Driver)
	require.Equal(t, "/tmp/picture.db", cfg.Storage.Path)
	require.Equal(t, "127.0.0.1:9999", cfg.Server.Addr)
	require.Equal(t, "debug", cfg.Log.Level)
}

func TestLoadMissingConfigFile(t *testing.T) {
	clearEnv(t)
	t.Setenv("PICTURE_CONFIG", filepath.Join(t.TempDir(), "missing.yaml"))

	_, err := Load()
	require.Error(t, err)
}

func TestAIConfigEnabled(t *testing.T) {
	require.False(t, AIConfig{}.Enabled())
	require.False(t, AIConfig{APIKey: "k"}.Enabled())
	require.True(t, AIConfig{APIKey: "k", Model: "m"}.Enabled())
	require.True(t, AIConfig{AccessKey: "a", SecretKey: "s", Model: "m"}.Enabled())
}
