// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package metrics

import (
	"fmt"
	"math"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/relabs-tech/spoofwatch/internal/spoof"
)

// Collector bundles the Prometheus metrics fed by detector verdicts and the
// satellite view.
type Collector struct {
	gatherer prometheus.Gatherer

	Fixes             *prometheus.CounterVec
	InsufficientFixes prometheus.Counter
	CV                prometheus.Gauge
	CVHistogram       prometheus.Histogram
	RecoveryCount     prometheus.Gauge
	SatellitesInView  prometheus.Gauge
	SatellitesUsed    prometheus.Gauge
}

// NewCollector registers the metrics against reg, defaulting to the global
// Prometheus registry when nil.
func NewCollector(reg prometheus.Registerer) (*Collector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	fixes, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "spoofwatch_fixes_total",
		Help: "Fixes classified, labeled by classification.",
	}, []string{"classification"}), "spoofwatch_fixes_total")
	if err != nil {
		return nil, err
	}

	insufficient, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "spoofwatch_insufficient_fixes_total",
		Help: "Fixes with no GPS satellites in view or zero mean SNR.",
	}), "spoofwatch_insufficient_fixes_total")
	if err != nil {
		return nil, err
	}

	cv, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "spoofwatch_cv_percent",
		Help: "Coefficient of variation of GPS SNR for the latest fix, in percent.",
	}), "spoofwatch_cv_percent")
	if err != nil {
		return nil, err
	}

	cvHist, err := registerHistogram(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "spoofwatch_cv_distribution_percent",
		Help:    "Distribution of the per-fix coefficient of variation.",
		Buckets: []float64{1, 2, 3, 4, 5, 7.5, 10, 15, 20, 30},
	}), "spoofwatch_cv_distribution_percent")
	if err != nil {
		return nil, err
	}

	recovery, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "spoofwatch_recovery_count",
		Help: "Fixes observed outside the warning band since start.",
	}), "spoofwatch_recovery_count")
	if err != nil {
		return nil, err
	}

	inView, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "spoofwatch_satellites_in_view",
		Help: "Satellites in view across all constellations.",
	}), "spoofwatch_satellites_in_view")
	if err != nil {
		return nil, err
	}
	used, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "spoofwatch_satellites_used",
		Help: "Satellites used in the current fix.",
	}), "spoofwatch_satellites_used")
	if err != nil {
		return nil, err
	}

	return &Collector{
		gatherer:          gatherer,
		Fixes:             fixes,
		InsufficientFixes: insufficient,
		CV:                cv,
		CVHistogram:       cvHist,
		RecoveryCount:     recovery,
		SatellitesInView:  inView,
		SatellitesUsed:    used,
	}, nil
}

// ObserveVerdict records one detector verdict.
func (c *Collector) ObserveVerdict(v spoof.Verdict) {
	if c == nil {
		return
	}
	c.Fixes.WithLabelValues(v.Classification.String()).Inc()
	c.RecoveryCount.Set(float64(v.State.PostSpoofRecoveryCount))

	cv := v.Stats.CoefficientOfVariation
	if math.IsNaN(cv) {
		c.InsufficientFixes.Inc()
		return
	}
	c.CV.Set(cv)
	c.CVHistogram.Observe(cv)
}

// ObserveSky records the satellite counts of the latest snapshot.
func (c *Collector) ObserveSky(inView, used int) {
	if c == nil {
		return
	}
	c.SatellitesInView.Set(float64(inView))
	c.SatellitesUsed.Set(float64(used))
}

// Handler exposes a ready-to-use /metrics handler.
func (c *Collector) Handler() http.Handler {
	gatherer := c.gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

func registerCounterVec(reg prometheus.Registerer, vec *prometheus.CounterVec, name string) (*prometheus.CounterVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerCounter(reg prometheus.Registerer, counter prometheus.Counter, name string) (prometheus.Counter, error) {
	if err := reg.Register(counter); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Counter); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return counter, nil
}

func registerHistogram(reg prometheus.Registerer, hist prometheus.Histogram, name string) (prometheus.Histogram, error) {
	if err := reg.Register(hist); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Histogram); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return hist, nil
}

func registerGauge(reg prometheus.Registerer, gauge prometheus.Gauge, name string) (prometheus.Gauge, error) {
	if err := reg.Register(gauge); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Gauge); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return gauge, nil
}
