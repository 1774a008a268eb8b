package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "spoofwatch_config.txt")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadAppliesFileOverDefaults(t *testing.T) {
	path := writeConfig(t, `
# comment
MQTT_BROKER=tcp://broker:1883
GPS_SOURCE=replay
GPS_REPLAY_FILE=/tmp/drive.nmea
SPOOF_CV_WARN_LOW=4.5
SPOOF_RECOVERY_FIXES=3
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "tcp://broker:1883", cfg.MQTTBroker)
	assert.Equal(t, SourceReplay, cfg.GPSSource)
	assert.Equal(t, "/tmp/drive.nmea", cfg.GPSReplayFile)
	assert.Equal(t, "spoofwatch/spoof/status", cfg.TopicSpoofStatus)

	p := cfg.Policy()
	assert.Equal(t, 5, p.WarmupFixes)
	assert.Equal(t, 4.5, p.WarnLowCV)
	assert.Equal(t, 10.0, p.WarnHighCV)
	assert.Equal(t, 3, p.RecoveryFixes)
}

func TestLoadEnvironmentOverridesFile(t *testing.T) {
	path := writeConfig(t, "GPS_SOURCE=serial\nWEB_SERVER_PORT=8080\n")
	t.Setenv("WEB_SERVER_PORT", "9090")
	t.Setenv("GPS_SOURCE", "mock")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.WebServerPort)
	assert.Equal(t, SourceMock, cfg.GPSSource)
}

func TestLoadRejectsBadInput(t *testing.T) {
	cases := map[string]string{
		"unknown key":                  "NOT_A_KEY=1\n",
		"bad int":                      "GPS_BAUD_RATE=fast\n",
		"bad source":                   "GPS_SOURCE=bluetooth\n",
		"replay w/o file":              "GPS_SOURCE=replay\n",
		"empty band":                   "SPOOF_CV_WARN_LOW=10\nSPOOF_CV_WARN_HIGH=5\n",
		"no recovery fixes":            "SPOOF_RECOVERY_FIXES=0\n",
		"zero mock interval on serial": "GPS_SOURCE=serial\nMOCK_INTERVAL=0\n",
		"negative mock period":         "MOCK_PERIOD=-5\n",
	}

	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeConfig(t, body))
			assert.Error(t, err)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.txt"))
	assert.Error(t, err)
}
