package config_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vaulth-auth/vaulth/internal/config"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "vaulth.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func validConfigJSON(t *testing.T, extra map[string]any) string {
	t.Helper()
	cfg := map[string]any{
		"port":        8080,
		"databaseUrl": "postgres://localhost/vaulth",
		"rootUri":     "https://auth.example.com",
		"token": map[string]any{
			"publicKey":  "public.pem",
			"privateKey": "private.pem",
			"duration":   60,
		},
		"clients": map[string]any{
			"app": map[string]any{
				"clientSecret": "s3cr3t",
				"redirectUrls": []string{"https://app.example.com/callback"},
			},
		},
	}
	for k, v := range extra {
		cfg[k] = v
	}
	raw, err := json.Marshal(cfg)
	require.NoError(t, err)
	return string(raw)
}

func TestLoadValidConfig(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, validConfigJSON(t, nil))
	cfg, err := config.Load(path)
	require.NoError(t, err)
	require.EqualValues(t, 8080, cfg.Port)
	require.Equal(t, int64(60), cfg.Token.Duration)
	require.Contains(t, cfg.Clients, "app")
}

func TestLoadMissingFile(t *testing.T) {
	t.Parallel()

	_, err := config.Load(filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)
}

func TestLoadRejectsMissingRequiredField(t *testing.T) {
	t.Parallel()

	body := validConfigJSON(t, map[string]any{"rootUri": ""})
	path := writeConfig(t, body)

	_, err := config.Load(path)
	require.Error(t, err)
}

func TestLoadRejectsConflictingTLSBlock(t *testing.T) {
	t.Parallel()

	body := validConfigJSON(t, map[string]any{
		"tls": map[string]any{
			"cert": "cert.pem",
			"key":  "key.pem",
			"autoCert": map[string]any{
				"domain":   "auth.example.com",
				"email":    "ops@example.com",
				"cacheDir": "/tmp/acme",
			},
		},
	})
	path := writeConfig(t, body)

	_, err := config.Load(path)
	require.Error(t, err)
}

func TestEnvOverrideAppliesLogLevel(t *testing.T) {
	t.Setenv("VAULTH_LOG", "debug")

	body := validConfigJSON(t, map[string]any{"logLevel": "info"})
	path := writeConfig(t, body)

	cfg, err := config.Load(path)
	require.NoError(t, err)
	require.Equal(t, "debug", cfg.LogLevel)
}

func TestPathUsesDefaultWhenNoArgs(t *testing.T) {
	t.Parallel()

	require.Equal(t, config.DefaultPath, config.Path(nil))
	require.Equal(t, "custom.json", config.Path([]string{"custom.json"}))
}
