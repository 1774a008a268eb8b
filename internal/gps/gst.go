// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package gps

import (
	nmea "github.com/adrianmo/go-nmea"
)

// TypeGST is the pseudorange error statistics sentence, which go-nmea
// does not parse on its own.
const TypeGST = "GST"

// GST reports the receiver's 1-sigma position error estimates in meters.
type GST struct {
	nmea.BaseSentence
	Time           nmea.Time
	RangeRMS       float64
	SemiMajor      float64
	SemiMinor      float64
	Orientation    float64
	LatitudeError  float64
	LongitudeError float64
	AltitudeError  float64
}

func parseGST(s nmea.BaseSentence) (nmea.Sentence, error) {
	p := nmea.NewParser(s)
	p.AssertType(TypeGST)
	return GST{
		BaseSentence:   s,
		Time:           p.Time(0, "time"),
		RangeRMS:       p.Float64(1, "range rms"),
		SemiMajor:      p.Float64(2, "semi-major error"),
		SemiMinor:      p.Float64(3, "semi-minor error"),
		Orientation:    p.Float64(4, "orientation"),
		LatitudeError:  p.Float64(5, "latitude error"),
		LongitudeError: p.Float64(6, "longitude error"),
		AltitudeError:  p.Float64(7, "altitude error"),
	}, p.Err()
}

// newSentenceParser returns a go-nmea parser that also understands GST.
// A SentenceParser is not safe for concurrent use, so each source owns one.
func newSentenceParser() *nmea.SentenceParser {
	return &nmea.SentenceParser{
		CustomParsers: map[string]nmea.ParserFunc{
			TypeGST: parseGST,
		},
	}
}
