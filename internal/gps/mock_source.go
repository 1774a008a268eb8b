// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package gps

import (
	"math"
	"time"

	"gonum.org/v1/gonum/floats"

	"github.com/relabs-tech/spoofwatch/internal/spoof"
)

type mockSat struct {
	talker    string
	prn       int
	snr       float64
	elevation int
	azimuth   int
	used      bool
}

// A plausible open-sky constellation. The GLONASS entries carry strong
// signals and are there to check they stay out of the statistics.
var mockSky = []mockSat{
	{"GP", 2, 42, 61, 45, true},
	{"GP", 5, 40, 35, 120, true},
	{"GP", 7, 45, 72, 300, true},
	{"GP", 13, 38, 18, 210, false},
	{"GP", 15, 44, 50, 90, true},
	{"GP", 20, 41, 27, 160, true},
	{"GP", 24, 39, 22, 250, false},
	{"GP", 30, 43, 44, 10, true},
	{"GL", 70, 48, 55, 80, true},
	{"GL", 81, 47, 31, 330, false},
}

type mockSource struct {
	start  time.Time
	now    func() time.Time
	period time.Duration
}

// NewMockSource creates a mock GPS source whose GPS SNR spread swells and
// shrinks over period, sweeping the coefficient of variation from about
// 2% to about 14% so every classification is reachable.
func NewMockSource(period time.Duration) Source {
	return newMockSource(time.Now, period)
}

func newMockSource(now func() time.Time, period time.Duration) *mockSource {
	if period <= 0 {
		period = time.Minute
	}
	return &mockSource{start: now(), now: now, period: period}
}

func (m *mockSource) Next() (Snapshot, error) {
	t := m.now()
	phase := 2 * math.Pi * t.Sub(m.start).Seconds() / m.period.Seconds()
	// spread factor in [0.3, 2.5]
	k := 1.4 - 1.1*math.Cos(phase)

	var gpsSNR []float64
	for _, s := range mockSky {
		if s.prn >= spoof.MinGPSPRN && s.prn <= spoof.MaxGPSPRN {
			gpsSNR = append(gpsSNR, s.snr)
		}
	}
	mean := floats.Sum(gpsSNR) / float64(len(gpsSNR))
	floats.AddConst(-mean, gpsSNR)
	floats.Scale(k, gpsSNR)
	floats.AddConst(mean, gpsSNR)

	sats := make([]Satellite, 0, len(mockSky))
	i := 0
	for _, s := range mockSky {
		snr := s.snr
		if s.prn >= spoof.MinGPSPRN && s.prn <= spoof.MaxGPSPRN {
			snr = math.Round(gpsSNR[i])
			i++
		}
		sats = append(sats, Satellite{
			Talker:    s.talker,
			PRN:       s.prn,
			SNR:       snr,
			Elevation: s.elevation,
			Azimuth:   s.azimuth,
			Used:      s.used,
		})
	}

	used := 0
	for _, s := range sats {
		if s.Used {
			used++
		}
	}

	elapsed := t.Sub(m.start).Seconds()
	fix := Fix{
		Time:           t.UTC().Format("15:04:05.0000"),
		Date:           t.UTC().Format("02/01/06"),
		Latitude:       48.1173 + 0.0001*math.Sin(elapsed/30),
		Longitude:      11.5167 + 0.0001*math.Cos(elapsed/30),
		Altitude:       545.4,
		SpeedKnots:     0.2,
		CourseDeg:      math.Mod(elapsed*3, 360),
		Validity:       "A",
		FixQuality:     "1",
		SatellitesUsed: used,
		HDOP:           0.9,
		Accuracy:       0.9 * uereMeters,
	}
	fix.Grade = string(spoof.GradeAccuracy(fix.Accuracy))

	return Snapshot{Fix: fix, Satellites: sats}, nil
}
