package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/spoofwatch/internal/spoof"
)

func TestObserveVerdict(t *testing.T) {
	reg := prometheus.NewRegistry()
	c, err := NewCollector(reg)
	require.NoError(t, err)

	d := spoof.NewDetector(spoof.DefaultPolicy())
	sky := []spoof.SatelliteReading{{PRN: 1, SNR: 40}, {PRN: 2, SNR: 44}, {PRN: 3, SNR: 36}}
	at := time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)

	for i := 0; i < 6; i++ {
		c.ObserveVerdict(d.Process(sky, at))
	}
	c.ObserveVerdict(d.Process(nil, at))

	assert.Equal(t, 6.0, testutil.ToFloat64(c.Fixes.WithLabelValues("normal")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.Fixes.WithLabelValues("warning")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.InsufficientFixes))
	assert.Equal(t, 8.18, testutil.ToFloat64(c.CV))
	assert.Equal(t, 0.0, testutil.ToFloat64(c.RecoveryCount))

	m := &dto.Metric{}
	require.NoError(t, c.CVHistogram.Write(m))
	assert.Equal(t, uint64(6), m.GetHistogram().GetSampleCount())
}

func TestObserveSkyAndHandler(t *testing.T) {
	reg := prometheus.NewRegistry()
	c, err := NewCollector(reg)
	require.NoError(t, err)

	c.ObserveSky(10, 7)
	assert.Equal(t, 10.0, testutil.ToFloat64(c.SatellitesInView))
	assert.Equal(t, 7.0, testutil.ToFloat64(c.SatellitesUsed))

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(body), "spoofwatch_satellites_in_view 10"))
}

func TestNewCollectorReusesRegisteredMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	first, err := NewCollector(reg)
	require.NoError(t, err)
	second, err := NewCollector(reg)
	require.NoError(t, err)

	first.ObserveSky(3, 2)
	assert.Equal(t, 3.0, testutil.ToFloat64(second.SatellitesInView))
}

func TestNilCollectorIsNoop(t *testing.T) {
	var c *Collector
	assert.NotPanics(t, func() {
		c.ObserveSky(1, 1)
		c.ObserveVerdict(spoof.Verdict{})
	})
}
