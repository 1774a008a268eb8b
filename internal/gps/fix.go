// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package gps

// Fix represents a single combined GPS fix suitable for JSON and MQTT.
type Fix struct {
	Time       string  `json:"time"`        // e.g. "12:34:56"
	Date       string  `json:"date"`        // e.g. "23/03/94"
	Latitude   float64 `json:"lat"`         // decimal degrees
	Longitude  float64 `json:"lon"`         // decimal degrees
	Altitude   float64 `json:"alt"`         // meters above MSL, from GGA
	SpeedKnots float64 `json:"speed_knots"` // speed over ground
	CourseDeg  float64 `json:"course_deg"`  // course over ground
	Validity   string  `json:"validity"`    // "A" (valid) / "V" (void), etc.

	FixQuality     string  `json:"fix_quality"`     // GGA quality, "" until seen
	SatellitesUsed int     `json:"satellites_used"` // GGA count
	HDOP           float64 `json:"hdop"`
	Accuracy       float64 `json:"accuracy_m"` // horizontal, meters
	Grade          string  `json:"grade"`      // accuracy grade label
}
