// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package spoof

// Grade is a coarse label for the horizontal accuracy of a fix.
type Grade string

const (
	GradeGood  Grade = "Good"
	GradeFair  Grade = "Fair"
	GradeWorst Grade = "Worst"
)

// GradeAccuracy maps a horizontal accuracy in meters to a Grade.
// Both the <=10 m and the 30-100 m bands map to Good; the display has
// always shown it that way. NaN grades Worst.
func GradeAccuracy(meters float64) Grade {
	switch {
	case meters <= 10:
		return GradeGood
	case meters <= 30:
		return GradeFair
	case meters <= 100:
		return GradeGood
	default:
		return GradeWorst
	}
}
