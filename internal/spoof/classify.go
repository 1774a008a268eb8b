// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package spoof

import (
	"fmt"
	"math"
)

// Classification is the per-fix spoofing verdict.
type Classification int

const (
	Normal Classification = iota
	Warning
	ConfirmedRecovered
)

var classificationNames = map[Classification]string{
	Normal:             "normal",
	Warning:            "warning",
	ConfirmedRecovered: "confirmed_recovered",
}

var classificationMessages = map[Classification]string{
	Normal:             "Your location is original!",
	Warning:            "Warning: Your location might be fake!",
	ConfirmedRecovered: "Your location is back to original!",
}

func (c Classification) String() string {
	if n, ok := classificationNames[c]; ok {
		return n
	}
	return "unknown"
}

// Message is the notification text shown to the user for c.
func (c Classification) Message() string {
	return classificationMessages[c]
}

// ParseClassification is the inverse of String.
func ParseClassification(s string) (Classification, error) {
	for c, n := range classificationNames {
		if n == s {
			return c, nil
		}
	}
	return Normal, fmt.Errorf("unknown classification %q", s)
}

func (c Classification) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

func (c *Classification) UnmarshalText(text []byte) error {
	v, err := ParseClassification(string(text))
	if err != nil {
		return err
	}
	*c = v
	return nil
}

// State is the escalation state carried from one fix to the next.
//
// ConsecutiveLowCVCount gates the policy: below WarmupFixes every fix is
// Normal. It is fed by the caller's fix counter and is never reset.
// PostSpoofRecoveryCount only ever grows.
type State struct {
	ConsecutiveLowCVCount  int            `json:"consecutive_low_cv_count"`
	PostSpoofRecoveryCount int            `json:"post_spoof_recovery_count"`
	Current                Classification `json:"current"`
	// LastSteady is the most recent non-warning classification.
	LastSteady Classification `json:"last_steady"`
}

// Policy holds the thresholds of the escalation state machine.
type Policy struct {
	WarmupFixes   int     // fixes of history required before escalating
	WarnLowCV     float64 // lower bound of the warning band, inclusive
	WarnHighCV    float64 // upper bound of the warning band, exclusive
	RecoveryFixes int     // out-of-band fixes needed to confirm recovery
}

// DefaultPolicy returns the thresholds the detector ships with.
func DefaultPolicy() Policy {
	return Policy{
		WarmupFixes:   5,
		WarnLowCV:     5,
		WarnHighCV:    10,
		RecoveryFixes: 10,
	}
}

// Validate checks that the thresholds describe a usable policy.
func (p Policy) Validate() error {
	if p.WarmupFixes < 0 {
		return fmt.Errorf("warm-up fixes must be >= 0, got %d", p.WarmupFixes)
	}
	if p.RecoveryFixes < 1 {
		return fmt.Errorf("recovery fixes must be >= 1, got %d", p.RecoveryFixes)
	}
	if !(p.WarnLowCV < p.WarnHighCV) {
		return fmt.Errorf("warning band [%.2f, %.2f) is empty", p.WarnLowCV, p.WarnHighCV)
	}
	return nil
}

// Classify runs one step of the state machine with the default policy.
func Classify(cv float64, st State) (State, Classification) {
	return DefaultPolicy().Classify(cv, st)
}

// Classify evaluates one fix with coefficient of variation cv (percent).
// A NaN cv means the fix had insufficient data: the result is Normal and
// st is returned untouched.
func (p Policy) Classify(cv float64, st State) (State, Classification) {
	if math.IsNaN(cv) {
		return st, Normal
	}

	var c Classification
	switch {
	case st.ConsecutiveLowCVCount < p.WarmupFixes:
		c = Normal
	case cv >= p.WarnLowCV && cv < p.WarnHighCV:
		c = Warning
	default:
		// cv <= WarnLowCV || cv >= WarnHighCV; the WarnLowCV edge is already
		// taken by the warning band above.
		st.PostSpoofRecoveryCount++
		c = st.LastSteady
	}

	if st.PostSpoofRecoveryCount >= p.RecoveryFixes {
		c = ConfirmedRecovered
	}

	st.Current = c
	if c != Warning {
		st.LastSteady = c
	}
	return st, c
}
