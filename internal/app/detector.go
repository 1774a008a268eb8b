// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/relabs-tech/spoofwatch/internal/config"
	"github.com/relabs-tech/spoofwatch/internal/cvlog"
	"github.com/relabs-tech/spoofwatch/internal/gps"
	"github.com/relabs-tech/spoofwatch/internal/logx"
	"github.com/relabs-tech/spoofwatch/internal/spoof"
)

// RunDetector reads fixes from the configured GPS source, classifies each
// one, appends the CV log and publishes fix, satellites and verdict to MQTT.
func RunDetector() error {
	cfg := config.Get()
	if cfg == nil {
		return fmt.Errorf("config not initialized")
	}
	logger := logx.NewLogger(cfg.LogLevel, cfg.LogFormat).With("component", "detector")

	// ---- 1) Connect to MQTT broker ----
	opts := mqtt.NewClientOptions().
		AddBroker(cfg.MQTTBroker).
		SetClientID(cfg.MQTTClientIDDetector)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	defer client.Disconnect(250)
	logger.Info("mqtt_connected", "broker", cfg.MQTTBroker)

	// ---- 2) Open GPS source ----
	src, closeSrc, pace, err := openSource(cfg)
	if err != nil {
		return err
	}
	defer closeSrc()
	logger.Info("gps_source_opened", "source", cfg.GPSSource)

	// ---- 3) CV log ----
	cv, err := cvlog.Open(cfg.CVLogPath)
	if err != nil {
		return err
	}
	defer cv.Close()
	logger.Info("cv_log_opened", "path", cfg.CVLogPath)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// A blocked serial read only returns once the port is closed.
	go func() {
		<-ctx.Done()
		closeSrc()
	}()

	detector := spoof.NewDetector(cfg.Policy())
	topics := Topics{
		Fix:        cfg.TopicGPSFix,
		Satellites: cfg.TopicGPSSatellites,
		Status:     cfg.TopicSpoofStatus,
	}
	pipeline := NewPipeline(detector, topics, mqttPublisher{client: client}, cv, logger)

	err = pipeline.Run(ctx, src, pace)
	logger.Info("detector_stopped",
		"fixes", detector.Fixes(),
		"recovery_count", detector.State().PostSpoofRecoveryCount,
		"cv_rows", cv.Rows(),
	)
	return err
}

// openSource builds the configured GPS source. The returned close func is
// safe to call more than once.
func openSource(cfg *config.Config) (gps.Source, func(), time.Duration, error) {
	switch cfg.GPSSource {
	case config.SourceMock:
		period := time.Duration(cfg.MockPeriod) * time.Second
		return gps.NewMockSource(period), func() {}, time.Duration(cfg.MockInterval) * time.Millisecond, nil

	case config.SourceReplay:
		src, err := gps.OpenReplay(cfg.GPSReplayFile)
		if err != nil {
			return nil, nil, 0, err
		}
		return src, closeOnce(src), 0, nil

	default:
		src, err := gps.OpenSerial(cfg.GPSSerialPort, cfg.GPSBaudRate)
		if err != nil {
			return nil, nil, 0, err
		}
		return src, closeOnce(src), 0, nil
	}
}

func closeOnce(src *gps.NMEASource) func() {
	var once sync.Once
	return func() {
		once.Do(func() { src.Close() })
	}
}
