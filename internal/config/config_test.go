package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- Schema Tests ---

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, 115200, cfg.Serial.Trigger.Baud)
	assert.Equal(t, 115200, cfg.Serial.Display.Baud)
	assert.Equal(t, 3*time.Second, cfg.Serial.ReconnectInterval.Std())
	assert.Equal(t, 10*time.Second, cfg.Collaborators.ResolveTimeout.Std())
	assert.Equal(t, 3, cfg.Collaborators.RetryAttempts)
	assert.Equal(t, 8090, cfg.HTTP.Port)
	assert.Equal(t, 64, cfg.Bus.Buffer)
}

func TestConfig_CamelCaseJSON(t *testing.T) {
	jsonStr := `{
		"serial": {
			"trigger": {"port": "/dev/ttyUSB0", "baud": 9600},
			"display": {"port": "/dev/ttyUSB1"},
			"reconnectInterval": "5s"
		},
		"collaborators": {"approvalUrl": "http://seller:8002", "resolveTimeout": "2s"},
		"http": {"port": 9090}
	}`

	var cfg Config
	err := json.Unmarshal([]byte(jsonStr), &cfg)
	require.NoError(t, err)

	assert.Equal(t, "/dev/ttyUSB0", cfg.Serial.Trigger.Port)
	assert.Equal(t, 9600, cfg.Serial.Trigger.Baud)
	assert.Equal(t, "/dev/ttyUSB1", cfg.Serial.Display.Port)
	assert.Equal(t, 5*time.Second, cfg.Serial.ReconnectInterval.Std())
	assert.Equal(t, "http://seller:8002", cfg.Collaborators.ApprovalURL)
	assert.Equal(t, 2*time.Second, cfg.Collaborators.ResolveTimeout.Std())
	assert.Equal(t, 9090, cfg.HTTP.Port)
}

func TestDuration_RoundTrip(t *testing.T) {
	d := Duration(1500 * time.Millisecond)
	data, err := json.Marshal(d)
	require.NoError(t, err)
	assert.Equal(t, `"1.5s"`, string(data))

	var decoded Duration
	err = json.Unmarshal(data, &decoded)
	require.NoError(t, err)
	assert.Equal(t, d, decoded)
}

func TestDuration_AcceptsNanoseconds(t *testing.T) {
	var d Duration
	err := json.Unmarshal([]byte("3000000000"), &d)
	require.NoError(t, err)
	assert.Equal(t, 3*time.Second, d.Std())
}

func TestDuration_RejectsGarbage(t *testing.T) {
	var d Duration
	err := json.Unmarshal([]byte(`"soon"`), &d)
	assert.Error(t, err)
}

// --- Loader Tests ---

func TestLoad_FileNotExist(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nonexistent.json"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoad_ValidFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	content := `{"serial": {"trigger": {"port": "/dev/ttyACM0"}}}`
	err := os.WriteFile(path, []byte(content), 0644)
	require.NoError(t, err)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/dev/ttyACM0", cfg.Serial.Trigger.Port)
	// Defaults should be preserved for unset fields
	assert.Equal(t, 10*time.Second, cfg.Collaborators.ResolveTimeout.Std())
}

func TestLoad_InvalidJSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.json")
	err := os.WriteFile(path, []byte("{invalid json}"), 0644)
	require.NoError(t, err)

	cfg, err := Load(path)
	assert.Error(t, err)
	// Should return defaults on error
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestSave_And_Load_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sub", "config.json")

	cfg := DefaultConfig()
	cfg.Serial.Trigger.Port = "/dev/ttyUSB7"
	cfg.Collaborators.PaymentURL = "http://payments:8000"

	err := Save(cfg, path)
	require.NoError(t, err)

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/dev/ttyUSB7", loaded.Serial.Trigger.Port)
	assert.Equal(t, "http://payments:8000", loaded.Collaborators.PaymentURL)
}
