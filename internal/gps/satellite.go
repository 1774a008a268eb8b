// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package gps

import (
	"github.com/relabs-tech/spoofwatch/internal/spoof"
)

// Satellite is one entry of a GSV sky view.
type Satellite struct {
	Talker    string  `json:"talker"`
	PRN       int     `json:"prn"` // NMEA id, see normalizePRN
	SNR       float64 `json:"snr"` // dB-Hz, 0 when not tracked
	Elevation int     `json:"elevation"`
	Azimuth   int     `json:"azimuth"`
	Used      bool    `json:"used"`
}

// Snapshot is the sky as known when a fix was reported.
type Snapshot struct {
	Fix        Fix         `json:"fix"`
	Satellites []Satellite `json:"satellites"`
}

// Readings converts the sky view into detector input.
func (s Snapshot) Readings() []spoof.SatelliteReading {
	out := make([]spoof.SatelliteReading, 0, len(s.Satellites))
	for _, sat := range s.Satellites {
		out = append(out, spoof.SatelliteReading{
			PRN:       sat.PRN,
			SNR:       sat.SNR,
			UsedInFix: sat.Used,
		})
	}
	return out
}

// InView and InUse count satellites across all constellations.
func (s Snapshot) InView() int { return len(s.Satellites) }

func (s Snapshot) InUse() int {
	n := 0
	for _, sat := range s.Satellites {
		if sat.Used {
			n++
		}
	}
	return n
}

// normalizePRN maps talker-local satellite numbers onto one id space so
// that only GPS satellites end up in 1..32: GLONASS 65..96, Galileo 301+,
// BeiDou 401+. GP and GN ids are already NMEA ids.
func normalizePRN(talker string, prn int) int {
	switch talker {
	case "GL":
		if prn > 0 && prn < 65 {
			return prn + 64
		}
	case "GA":
		return prn + 300
	case "GB", "BD":
		return prn + 400
	}
	return prn
}
