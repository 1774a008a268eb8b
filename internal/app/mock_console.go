// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"fmt"
	"os"
	"time"

	"github.com/relabs-tech/spoofwatch/internal/config"
	"github.com/relabs-tech/spoofwatch/internal/gps"
	"github.com/relabs-tech/spoofwatch/internal/spoof"
)

// RunMockConsole runs the mock sky through the detector and prints each
// fix, its sky and the verdict. No broker is needed.
func RunMockConsole() error {
	policy, interval, period := mockSettings(config.Get())

	src := gps.NewMockSource(period)
	detector := spoof.NewDetector(policy)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for range ticker.C {
		snap, err := src.Next()
		if err != nil {
			return err
		}

		v := detector.Process(snap.Readings(), time.Now())
		printFix(os.Stdout, snap.Fix)
		printSky(os.Stdout, newSkyView(snap))
		printVerdict(os.Stdout, v)
		fmt.Println()
	}
	return nil
}

// mockSettings falls back to the defaults for anything cfg leaves unset.
func mockSettings(cfg *config.Config) (spoof.Policy, time.Duration, time.Duration) {
	policy := spoof.DefaultPolicy()
	interval := time.Second
	period := time.Minute
	if cfg == nil {
		return policy, interval, period
	}

	policy = cfg.Policy()
	if cfg.MockInterval > 0 {
		interval = time.Duration(cfg.MockInterval) * time.Millisecond
	}
	if cfg.MockPeriod > 0 {
		period = time.Duration(cfg.MockPeriod) * time.Second
	}
	return policy, interval, period
}
