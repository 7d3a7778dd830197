package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "checkpoint-capture", cfg.App.Name)
	assert.Equal(t, "/dev/serial0", cfg.Serial.Device)
	assert.Equal(t, 57600, cfg.Serial.Baud)
	assert.Equal(t, "/dev/ttyUSB0", cfg.Reader.Device)
	assert.Equal(t, 9600, cfg.Reader.Baud)
	assert.Equal(t, 500*time.Millisecond, cfg.Capture.PollInterval())
	assert.Equal(t, 30*time.Second, cfg.Capture.DefaultTimeout())
	assert.Equal(t, 2*time.Second, cfg.Capture.EnrollPause())
	assert.Equal(t, 40.0, cfg.Capture.MatchThreshold)
	assert.Equal(t, "capture-events", cfg.Audit.RedisChannel)
	assert.Equal(t, "0.0.0.0:8080", cfg.API.Addr())
	assert.Equal(t, 120*time.Second, cfg.API.RequestTimeout())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("CHECKPOINT_NAME", "gate-7")
	t.Setenv("POLL_INTERVAL_MS", "250")
	t.Setenv("DEFAULT_TIMEOUT_SECONDS", "10")
	t.Setenv("FP_SERIAL_DEVICE", "/dev/ttyAMA0")
	t.Setenv("AUDIT_REDIS_ADDR", "localhost:6379")
	t.Setenv("AUDIT_REDIS_DB", "3")
	t.Setenv("API_PORT", "9090")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "gate-7", cfg.App.Checkpoint)
	assert.Equal(t, 250*time.Millisecond, cfg.Capture.PollInterval())
	assert.Equal(t, 10*time.Second, cfg.Capture.DefaultTimeout())
	assert.Equal(t, "/dev/ttyAMA0", cfg.Serial.Device)
	assert.Equal(t, "localhost:6379", cfg.Audit.RedisAddr)
	assert.Equal(t, 3, cfg.Audit.RedisDB)
	assert.Equal(t, "0.0.0.0:9090", cfg.API.Addr())
}

func TestLoadRejectsNonPositivePollInterval(t *testing.T) {
	t.Setenv("POLL_INTERVAL_MS", "-5")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoadRejectsMalformedRedisDB(t *testing.T) {
	t.Setenv("AUDIT_REDIS_DB", "not-a-number")

	_, err := Load()
	assert.Error(t, err)
}

func TestMalformedIntFallsBackToDefault(t *testing.T) {
	t.Setenv("FP_SERIAL_BAUD", "fast")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 57600, cfg.Serial.Baud)
}
