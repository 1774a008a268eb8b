package app

import (
	"bytes"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/relabs-tech/spoofwatch/internal/config"
	"github.com/relabs-tech/spoofwatch/internal/spoof"
)

func TestPrintVerdict(t *testing.T) {
	d := spoof.NewDetector(spoof.DefaultPolicy())
	at := time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)

	var v spoof.Verdict
	for i := 0; i < 6; i++ {
		v = d.Process(warnSnapshot().Readings(), at)
	}

	var buf bytes.Buffer
	printVerdict(&buf, v)
	assert.Equal(t,
		"[SPOOF] seq=6 cv=8.18% gps=3 state=warning recovery=0  Warning: Your location might be fake!\n",
		buf.String())

	buf.Reset()
	printVerdict(&buf, spoof.Verdict{
		Seq:     7,
		Stats:   spoof.FixStatistics{CoefficientOfVariation: math.NaN()},
		Message: spoof.Normal.Message(),
	})
	assert.Contains(t, buf.String(), "cv=n/a")
	assert.Contains(t, buf.String(), "state=normal")
}

func TestPrintSky(t *testing.T) {
	var buf bytes.Buffer
	printSky(&buf, newSkyView(warnSnapshot()))
	assert.Equal(t, "[SATS]  in_view=4 in_use=3 1:40* 2:44* 3:36 70:20*\n", buf.String())
}

func TestMockSettingsFallBackToDefaults(t *testing.T) {
	policy, interval, period := mockSettings(nil)
	assert.Equal(t, spoof.DefaultPolicy(), policy)
	assert.Equal(t, time.Second, interval)
	assert.Equal(t, time.Minute, period)

	cfg := config.Default()
	cfg.MockInterval = 0
	cfg.MockPeriod = -1
	cfg.SpoofRecoveryFixes = 3
	policy, interval, period = mockSettings(cfg)
	assert.Equal(t, 3, policy.RecoveryFixes)
	assert.Equal(t, time.Second, interval)
	assert.Equal(t, time.Minute, period)

	cfg.MockInterval = 250
	cfg.MockPeriod = 30
	_, interval, period = mockSettings(cfg)
	assert.Equal(t, 250*time.Millisecond, interval)
	assert.Equal(t, 30*time.Second, period)
}
