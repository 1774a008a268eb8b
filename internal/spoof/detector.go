// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package spoof

import (
	"time"
)

// Verdict is everything the detector derives from one fix.
type Verdict struct {
	Seq            uint64         `json:"seq"`
	Stats          FixStatistics  `json:"stats"`
	Classification Classification `json:"classification"`
	Message        string         `json:"message"`
	State          State          `json:"state"`
	Record         CVRecord       `json:"record"`
}

// Detector owns the escalation state of one receiver. It is not safe for
// concurrent use; fixes must be processed one at a time.
type Detector struct {
	policy Policy
	state  State
	fixes  int
	seq    uint64
}

// NewDetector returns a detector in the initial Normal state.
func NewDetector(policy Policy) *Detector {
	return &Detector{policy: policy}
}

// Process classifies one fix taken at time at.
func (d *Detector) Process(readings []SatelliteReading, at time.Time) Verdict {
	stats := ComputeStatistics(readings)

	cv := stats.CoefficientOfVariation
	st := d.state
	st.ConsecutiveLowCVCount = d.fixes

	next, c := d.policy.Classify(cv, st)
	if stats.Sufficient() {
		d.state = next
		d.fixes++
	}
	d.seq++

	return Verdict{
		Seq:            d.seq,
		Stats:          stats,
		Classification: c,
		Message:        c.Message(),
		State:          d.state,
		Record:         CVRecord{CoefficientOfVariation: cv, Time: at},
	}
}

// State returns a copy of the current escalation state.
func (d *Detector) State() State {
	return d.state
}

// Fixes is the number of fixes with sufficient data seen so far.
func (d *Detector) Fixes() int {
	return d.fixes
}
