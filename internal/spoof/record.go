// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package spoof

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// TimestampLayout is the wall-clock format of CV records.
const TimestampLayout = "15:04:05"

// CVRecord is the per-fix line handed to the CV log.
type CVRecord struct {
	CoefficientOfVariation float64   `json:"cv"`
	Time                   time.Time `json:"-"`
}

// Timestamp renders the record time as HH:MM:SS.
func (r CVRecord) Timestamp() string {
	return r.Time.Format(TimestampLayout)
}

// Fields returns the comma-separated columns of the record. A fix without
// enough data leaves the CV column empty.
func (r CVRecord) Fields() []string {
	cv := ""
	if !math.IsNaN(r.CoefficientOfVariation) && !math.IsInf(r.CoefficientOfVariation, 0) {
		cv = strconv.FormatFloat(r.CoefficientOfVariation, 'f', -1, 64)
	}
	return []string{cv, r.Timestamp()}
}

// Line renders the record as a newline-terminated CSV line.
func (r CVRecord) Line() string {
	return strings.Join(r.Fields(), ",") + "\n"
}

func (r CVRecord) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		CV        *float64 `json:"cv"`
		Timestamp string   `json:"timestamp"`
	}{
		CV:        finiteOrNil(r.CoefficientOfVariation),
		Timestamp: r.Timestamp(),
	})
}

func (r *CVRecord) UnmarshalJSON(data []byte) error {
	var raw struct {
		CV        *float64 `json:"cv"`
		Timestamp string   `json:"timestamp"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	r.CoefficientOfVariation = nilToNaN(raw.CV)
	if raw.Timestamp == "" {
		r.Time = time.Time{}
		return nil
	}
	t, err := time.Parse(TimestampLayout, raw.Timestamp)
	if err != nil {
		return fmt.Errorf("cv record timestamp: %w", err)
	}
	r.Time = t
	return nil
}
