package gps

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/spoofwatch/internal/spoof"
)

var epoch = []string{
	"$GPGSV,2,1,08,02,61,045,42,05,35,120,40,07,72,300,45,13,18,210,38*77",
	"$GPGSV,2,2,08,15,50,090,44,20,27,160,41,24,22,250,,30,44,010,43*78",
	"$GLGSV,1,1,02,06,55,080,48,17,31,330,47*62",
	"$GPGSA,A,3,02,05,07,15,20,30,,,,,,,1.8,0.9,1.5*33",
	"$GLGSA,A,3,70,,,,,,,,,,,,1.8,0.9,1.5*2D",
	"$GPGGA,092750.000,5321.6802,N,00630.3372,W,1,07,0.9,545.4,M,46.9,M,,*4B",
	"$GPGST,092750.000,1.5,2.1,1.3,45.0,3.0,4.0,6.2*59",
	"$GPRMC,092750.000,A,5321.6802,N,00630.3372,W,0.02,31.66,280511,,,A*43",
}

func feedAll(t *testing.T, a *Assembler, lines []string) (Snapshot, bool) {
	t.Helper()
	var (
		snap Snapshot
		ok   bool
	)
	parser := newSentenceParser()
	for _, line := range lines {
		s, err := parser.Parse(line)
		require.NoError(t, err, line)
		snap, ok = a.Feed(s)
	}
	return snap, ok
}

func TestAssemblerBuildsSnapshotOnRMC(t *testing.T) {
	a := NewAssembler()

	_, ok := feedAll(t, a, epoch[:len(epoch)-1])
	assert.False(t, ok)

	snap, ok := feedAll(t, a, epoch[len(epoch)-1:])
	require.True(t, ok)

	prns := make([]int, 0, len(snap.Satellites))
	for _, s := range snap.Satellites {
		prns = append(prns, s.PRN)
	}
	assert.Equal(t, []int{2, 5, 7, 13, 15, 20, 24, 30, 70, 81}, prns)
	assert.Equal(t, 10, snap.InView())
	assert.Equal(t, 7, snap.InUse())

	byPRN := map[int]Satellite{}
	for _, s := range snap.Satellites {
		byPRN[s.PRN] = s
	}
	assert.Equal(t, 0.0, byPRN[24].SNR)
	assert.Equal(t, "GL", byPRN[70].Talker)
	assert.True(t, byPRN[70].Used)
	assert.False(t, byPRN[81].Used)
	assert.Equal(t, 72, byPRN[7].Elevation)
	assert.Equal(t, 300, byPRN[7].Azimuth)

	fix := snap.Fix
	assert.Equal(t, "A", fix.Validity)
	assert.Equal(t, "28/05/11", fix.Date)
	assert.Equal(t, "1", fix.FixQuality)
	assert.Equal(t, 7, fix.SatellitesUsed)
	assert.Equal(t, 0.9, fix.HDOP)
	assert.Equal(t, 545.4, fix.Altitude)
	assert.InDelta(t, 53.361336, fix.Latitude, 1e-5)
	assert.InDelta(t, -6.505620, fix.Longitude, 1e-5)
	assert.InDelta(t, 5.0, fix.Accuracy, 1e-9)
	assert.Equal(t, "Good", fix.Grade)

	stats := spoof.ComputeStatistics(snap.Readings())
	assert.Equal(t, 8, stats.SatelliteCount)
	assert.Equal(t, 6, stats.UsedCount)
}

func TestAssemblerAccuracyFromHDOPWithoutGST(t *testing.T) {
	a := NewAssembler()
	lines := []string{epoch[0], epoch[1], epoch[3], epoch[5], epoch[7]}

	snap, ok := feedAll(t, a, lines)
	require.True(t, ok)
	assert.InDelta(t, 4.5, snap.Fix.Accuracy, 1e-9)
	assert.Equal(t, "Good", snap.Fix.Grade)
	assert.Equal(t, 8, snap.InView())
}

func TestParseGST(t *testing.T) {
	s, err := newSentenceParser().Parse(epoch[6])
	require.NoError(t, err)
	require.Equal(t, TypeGST, s.DataType())

	gst, ok := s.(GST)
	require.True(t, ok)
	assert.Equal(t, "GP", gst.TalkerID())
	assert.Equal(t, 1.5, gst.RangeRMS)
	assert.Equal(t, 3.0, gst.LatitudeError)
	assert.Equal(t, 4.0, gst.LongitudeError)
	assert.Equal(t, 6.2, gst.AltitudeError)
}

func TestAssemblerGSTAppliesToOneFix(t *testing.T) {
	a := NewAssembler()

	snap, ok := feedAll(t, a, epoch)
	require.True(t, ok)
	assert.InDelta(t, 5.0, snap.Fix.Accuracy, 1e-9)

	// next epoch without GST falls back to HDOP
	snap, ok = feedAll(t, a, []string{epoch[5], epoch[7]})
	require.True(t, ok)
	assert.InDelta(t, 4.5, snap.Fix.Accuracy, 1e-9)
}

func TestAssemblerDropsStaleConstellation(t *testing.T) {
	a := NewAssembler()

	snap, ok := feedAll(t, a, epoch)
	require.True(t, ok)
	require.Equal(t, 10, snap.InView())

	// GLONASS stops reporting; GPS keeps sending its GSV group every fix
	gpsOnly := []string{epoch[0], epoch[1], epoch[7]}
	for i := 1; i < viewTTL; i++ {
		snap, ok = feedAll(t, a, gpsOnly)
		require.True(t, ok)
		assert.Equal(t, 10, snap.InView(), "fix %d", i+1)
	}

	snap, ok = feedAll(t, a, gpsOnly)
	require.True(t, ok)
	assert.Equal(t, 8, snap.InView())
	for _, sat := range snap.Satellites {
		assert.Equal(t, "GP", sat.Talker)
	}
}

func TestAssemblerIgnoresIncompleteGSVGroup(t *testing.T) {
	a := NewAssembler()

	snap, ok := feedAll(t, a, []string{epoch[0], epoch[7]})
	require.True(t, ok)
	assert.Empty(t, snap.Satellites)
	assert.Equal(t, 0.0, snap.Fix.Accuracy)
	assert.Equal(t, "", snap.Fix.Grade)

	stats := spoof.ComputeStatistics(snap.Readings())
	assert.False(t, stats.Sufficient())
}

func TestNormalizePRN(t *testing.T) {
	assert.Equal(t, 12, normalizePRN("GP", 12))
	assert.Equal(t, 70, normalizePRN("GL", 6))
	assert.Equal(t, 70, normalizePRN("GL", 70))
	assert.Equal(t, 305, normalizePRN("GA", 5))
	assert.Equal(t, 411, normalizePRN("GB", 11))
	assert.Equal(t, 40, normalizePRN("GN", 40))
}
