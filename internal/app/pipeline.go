// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/relabs-tech/spoofwatch/internal/gps"
	"github.com/relabs-tech/spoofwatch/internal/logx"
	"github.com/relabs-tech/spoofwatch/internal/spoof"
)

// Publisher sends one payload to a topic.
type Publisher interface {
	Publish(topic string, payload []byte) error
}

// RecordSink receives the per-fix CV record.
type RecordSink interface {
	Append(rec spoof.CVRecord) error
}

// Topics are the MQTT topics the detector publishes on.
type Topics struct {
	Fix        string
	Satellites string
	Status     string
}

// SkyView is the satellites payload.
type SkyView struct {
	Time       string          `json:"time"`
	InView     int             `json:"in_view"`
	InUse      int             `json:"in_use"`
	Satellites []gps.Satellite `json:"satellites"`
}

func newSkyView(snap gps.Snapshot) SkyView {
	sats := snap.Satellites
	if sats == nil {
		sats = []gps.Satellite{}
	}
	return SkyView{
		Time:       snap.Fix.Time,
		InView:     snap.InView(),
		InUse:      snap.InUse(),
		Satellites: sats,
	}
}

// mqttPublisher publishes retained messages at QoS 0 so late subscribers
// see the latest value.
type mqttPublisher struct {
	client mqtt.Client
}

func (p mqttPublisher) Publish(topic string, payload []byte) error {
	token := p.client.Publish(topic, 0, true, payload)
	token.Wait()
	return token.Error()
}

// Pipeline runs snapshots through the detector and fans the results out to
// the CV log and the broker.
type Pipeline struct {
	detector *spoof.Detector
	topics   Topics
	pub      Publisher
	sink     RecordSink
	logger   *logx.Logger
	now      func() time.Time
}

// NewPipeline wires a pipeline. pub and sink may be nil.
func NewPipeline(detector *spoof.Detector, topics Topics, pub Publisher, sink RecordSink, logger *logx.Logger) *Pipeline {
	return &Pipeline{
		detector: detector,
		topics:   topics,
		pub:      pub,
		sink:     sink,
		logger:   logger,
		now:      time.Now,
	}
}

// Handle classifies one snapshot. Only a CV log failure is returned;
// publish failures are logged and the fix is dropped from the broker.
func (p *Pipeline) Handle(snap gps.Snapshot) (spoof.Verdict, error) {
	v := p.detector.Process(snap.Readings(), p.now())

	if p.sink != nil {
		if err := p.sink.Append(v.Record); err != nil {
			return v, fmt.Errorf("cv log: %w", err)
		}
	}

	if p.pub != nil {
		p.publishJSON(p.topics.Fix, snap.Fix)
		p.publishJSON(p.topics.Satellites, newSkyView(snap))
		p.publishJSON(p.topics.Status, v)
	}

	p.logVerdict(v, snap)
	return v, nil
}

func (p *Pipeline) publishJSON(topic string, v interface{}) {
	if topic == "" {
		return
	}
	payload, err := json.Marshal(v)
	if err != nil {
		p.logger.Error("json_marshal_failed", "topic", topic, "error", err)
		return
	}
	if err := p.pub.Publish(topic, payload); err != nil {
		p.logger.Error("mqtt_publish_failed", "topic", topic, "error", err)
	}
}

func (p *Pipeline) logVerdict(v spoof.Verdict, snap gps.Snapshot) {
	if !v.Stats.Sufficient() {
		p.logger.Debug("insufficient_data", "seq", v.Seq, "in_view", snap.InView())
		return
	}
	kv := []interface{}{
		"seq", v.Seq,
		"cv", v.Stats.CoefficientOfVariation,
		"gps_satellites", v.Stats.SatelliteCount,
		"classification", v.Classification.String(),
		"recovery_count", v.State.PostSpoofRecoveryCount,
		"accuracy_m", snap.Fix.Accuracy,
	}
	if v.Classification == spoof.Warning {
		p.logger.Warn("fix_classified", kv...)
		return
	}
	p.logger.Info("fix_classified", kv...)
}

// Run pulls snapshots from src until it is exhausted or ctx is cancelled.
// A positive pace throttles the loop to one snapshot per tick.
func (p *Pipeline) Run(ctx context.Context, src gps.Source, pace time.Duration) error {
	var tick <-chan time.Time
	if pace > 0 {
		ticker := time.NewTicker(pace)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		if tick != nil {
			select {
			case <-ctx.Done():
				return nil
			case <-tick:
			}
		} else if ctx.Err() != nil {
			return nil
		}

		snap, err := src.Next()
		if errors.Is(err, gps.ErrSourceClosed) {
			return nil
		}
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}

		if _, err := p.Handle(snap); err != nil {
			return err
		}
	}
}
