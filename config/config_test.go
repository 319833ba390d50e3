package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	require.Equal(t, ":8080", cfg.HTTPAddr)
	require.Equal(t, "tcp://127.0.0.1:1883", cfg.MQTTBroker)
	require.Equal(t, 15*time.Second, cfg.AckTimeout)
	require.Equal(t, 5*time.Second, cfg.SweepInterval)
	require.Equal(t, 10*time.Minute, cfg.TrackRetention)
	require.Equal(t, "pcm", cfg.AudioFormat)
	require.Equal(t, 16000, cfg.AudioSampleRate)
	require.Equal(t, "greetfm", cfg.DBName)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("MQTT_BROKER", "tcp://broker.fleet:1883")
	t.Setenv("ACK_TIMEOUT", "30s")
	t.Setenv("MQTT_QOS", "2")
	t.Setenv("MINIO_USE_SSL", "true")

	cfg := Load()
	require.Equal(t, "tcp://broker.fleet:1883", cfg.MQTTBroker)
	require.Equal(t, 30*time.Second, cfg.AckTimeout)
	require.Equal(t, 2, cfg.MQTTQoS)
	require.True(t, cfg.MinioUseSSL)
}

func TestLoadBadValuesFallBack(t *testing.T) {
	t.Setenv("ACK_TIMEOUT", "soon")
	t.Setenv("MQTT_QOS", "lots")

	cfg := Load()
	require.Equal(t, 15*time.Second, cfg.AckTimeout)
	require.Equal(t, 1, cfg.MQTTQoS)
}
