// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package spoof

import (
	"encoding/json"
	"math"
	"strconv"

	"gonum.org/v1/gonum/floats"
)

// GPS PRN range. Anything outside it (SBAS, GLONASS, Galileo, ...) is not
// part of the SNR statistics.
const (
	MinGPSPRN = 1
	MaxGPSPRN = 32
)

// SatelliteReading is one visible satellite in one fix.
type SatelliteReading struct {
	PRN       int     `json:"prn"`
	SNR       float64 `json:"snr"` // dB-Hz
	UsedInFix bool    `json:"used_in_fix"`
}

// IsGPS reports whether the reading belongs to the GPS constellation.
func (r SatelliteReading) IsGPS() bool {
	return r.PRN >= MinGPSPRN && r.PRN <= MaxGPSPRN
}

// FixStatistics describes the SNR spread of the GPS satellites of one fix.
// Mean, Variance, StdDev and CoefficientOfVariation are NaN when the fix
// carries no usable data (no GPS satellites, or a zero mean SNR).
type FixStatistics struct {
	SatelliteCount         int     `json:"satellite_count"`
	UsedCount              int     `json:"used_count"`
	Mean                   float64 `json:"mean"`
	Variance               float64 `json:"variance"`
	StdDev                 float64 `json:"stddev"`
	CoefficientOfVariation float64 `json:"cv"` // percent
}

// Sufficient reports whether the derived statistics are defined.
func (s FixStatistics) Sufficient() bool {
	return s.SatelliteCount > 0 && s.Mean != 0 && !math.IsNaN(s.Mean)
}

// MarshalJSON encodes undefined statistics as null.
func (s FixStatistics) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		SatelliteCount         int      `json:"satellite_count"`
		UsedCount              int      `json:"used_count"`
		Mean                   *float64 `json:"mean"`
		Variance               *float64 `json:"variance"`
		StdDev                 *float64 `json:"stddev"`
		CoefficientOfVariation *float64 `json:"cv"`
		Sufficient             bool     `json:"sufficient"`
	}{
		SatelliteCount:         s.SatelliteCount,
		UsedCount:              s.UsedCount,
		Mean:                   finiteOrNil(s.Mean),
		Variance:               finiteOrNil(s.Variance),
		StdDev:                 finiteOrNil(s.StdDev),
		CoefficientOfVariation: finiteOrNil(s.CoefficientOfVariation),
		Sufficient:             s.Sufficient(),
	})
}

// UnmarshalJSON restores NaN for fields encoded as null.
func (s *FixStatistics) UnmarshalJSON(data []byte) error {
	var raw struct {
		SatelliteCount         int      `json:"satellite_count"`
		UsedCount              int      `json:"used_count"`
		Mean                   *float64 `json:"mean"`
		Variance               *float64 `json:"variance"`
		StdDev                 *float64 `json:"stddev"`
		CoefficientOfVariation *float64 `json:"cv"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	s.SatelliteCount = raw.SatelliteCount
	s.UsedCount = raw.UsedCount
	s.Mean = nilToNaN(raw.Mean)
	s.Variance = nilToNaN(raw.Variance)
	s.StdDev = nilToNaN(raw.StdDev)
	s.CoefficientOfVariation = nilToNaN(raw.CoefficientOfVariation)
	return nil
}

// ComputeStatistics filters readings to GPS PRNs and computes population
// statistics over their SNR values. Every intermediate result is rounded to
// two decimals before it feeds the next step, so the output matches a
// format-then-parse pipeline digit for digit.
func ComputeStatistics(readings []SatelliteReading) FixStatistics {
	stats := FixStatistics{
		Mean:                   math.NaN(),
		Variance:               math.NaN(),
		StdDev:                 math.NaN(),
		CoefficientOfVariation: math.NaN(),
	}

	snrs := make([]float64, 0, len(readings))
	for _, r := range readings {
		if !r.IsGPS() {
			continue
		}
		snrs = append(snrs, r.SNR)
		if r.UsedInFix {
			stats.UsedCount++
		}
	}
	stats.SatelliteCount = len(snrs)
	if stats.SatelliteCount == 0 {
		return stats
	}

	n := float64(stats.SatelliteCount)
	mean := Round2(Round2(floats.Sum(snrs)) / n)
	if mean == 0 {
		return stats
	}
	stats.Mean = mean

	var squares float64
	for _, snr := range snrs {
		squares += Round2(math.Pow(snr-mean, 2))
	}
	stats.Variance = Round2(squares / n)
	stats.StdDev = Round2(math.Sqrt(stats.Variance))
	stats.CoefficientOfVariation = Round2(stats.StdDev / mean * 100)

	return stats
}

// Round2 rounds x to two decimal places by formatting and re-parsing it.
// NaN and infinities pass through unchanged.
func Round2(x float64) float64 {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return x
	}
	v, err := strconv.ParseFloat(strconv.FormatFloat(x, 'f', 2, 64), 64)
	if err != nil {
		return x
	}
	return v
}

func finiteOrNil(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

func nilToNaN(v *float64) float64 {
	if v == nil {
		return math.NaN()
	}
	return *v
}
