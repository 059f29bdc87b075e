package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, int64(16<<20), cfg.Server.MaxUploadBytes)
	assert.Equal(t, 1000, cfg.Batch.MaxRows)
	assert.Equal(t, 8, cfg.Batch.Concurrency)
	assert.Equal(t, 15*time.Minute, cfg.Batch.ResultTTL)
	assert.Equal(t, 10*time.Second, cfg.Providers.NumVerify.Timeout)
	assert.False(t, cfg.Providers.NumVerify.Enabled())
	assert.False(t, cfg.Providers.Twilio.Enabled())
	assert.False(t, cfg.Redis.Enabled)
	assert.False(t, cfg.Telemetry.Enabled)
}

func TestLoad_FileOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
server:
  port: 9090
batch:
  max_rows: 50
providers:
  numverify:
    api_key: file-key
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 50, cfg.Batch.MaxRows)
	assert.True(t, cfg.Providers.NumVerify.Enabled())
	// Untouched keys keep their defaults.
	assert.Equal(t, 8, cfg.Batch.Concurrency)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: 9090\n"), 0o644))

	t.Setenv("PVS_SERVER__PORT", "7070")
	t.Setenv("PVS_PROVIDERS__TWILIO__ACCOUNT_SID", "ACxxxx")
	t.Setenv("PVS_PROVIDERS__TWILIO__AUTH_TOKEN", "secret")
	t.Setenv("PVS_BATCH__MAX_ROWS", "2")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, 2, cfg.Batch.MaxRows)
	assert.True(t, cfg.Providers.Twilio.Enabled())
}

func TestLoad_MalformedFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server: [not a map"), 0o644))

	_, err := Load(path)
	require.Error(t, err)
}

func TestTwilioConfig_Enabled(t *testing.T) {
	tests := []struct {
		name  string
		sid   string
		token string
		want  bool
	}{
		{name: "both present", sid: "AC123", token: "tok", want: true},
		{name: "missing token", sid: "AC123", token: "", want: false},
		{name: "missing sid", sid: "", token: "tok", want: false},
		{name: "neither", sid: "", token: "", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := TwilioConfig{AccountSID: tt.sid, AuthToken: tt.token}
			assert.Equal(t, tt.want, cfg.Enabled())
		})
	}
}

func TestConfig_SecretsRedactedInString(t *testing.T) {
	nv := NumVerifyConfig{BaseURL: "http://apilayer.net", APIKey: "super-secret"}
	tw := TwilioConfig{AccountSID: "AC123", AuthToken: "super-secret"}

	assert.NotContains(t, nv.String(), "super-secret")
	assert.NotContains(t, tw.String(), "super-secret")
	assert.NotContains(t, tw.String(), "AC123")
	assert.Contains(t, nv.String(), "<redacted>")
}
