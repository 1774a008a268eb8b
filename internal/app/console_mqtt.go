// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"math"
	"os"
	"os/signal"
	"syscall"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/relabs-tech/spoofwatch/internal/config"
	"github.com/relabs-tech/spoofwatch/internal/gps"
	"github.com/relabs-tech/spoofwatch/internal/spoof"
)

func RunConsoleMQTT() error {
	cfg := config.Get()
	if cfg == nil {
		return fmt.Errorf("config not initialized")
	}

	opts := mqtt.NewClientOptions().
		AddBroker(cfg.MQTTBroker).
		SetClientID(cfg.MQTTClientIDConsole)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	log.Printf("console: connected to MQTT broker at %s", cfg.MQTTBroker)

	// Subscribe to GPS fixes
	gpsToken := client.Subscribe(cfg.TopicGPSFix, 0, func(_ mqtt.Client, msg mqtt.Message) {
		var f gps.Fix
		if err := json.Unmarshal(msg.Payload(), &f); err != nil {
			log.Printf("console: gps unmarshal error: %v", err)
			return
		}
		printFix(os.Stdout, f)
	})
	gpsToken.Wait()
	if gpsToken.Error() != nil {
		return gpsToken.Error()
	}
	log.Printf("console: subscribed to %s", cfg.TopicGPSFix)

	// Subscribe to the satellite view
	satsToken := client.Subscribe(cfg.TopicGPSSatellites, 0, func(_ mqtt.Client, msg mqtt.Message) {
		var sky SkyView
		if err := json.Unmarshal(msg.Payload(), &sky); err != nil {
			log.Printf("console: satellites unmarshal error: %v", err)
			return
		}
		printSky(os.Stdout, sky)
	})
	satsToken.Wait()
	if satsToken.Error() != nil {
		return satsToken.Error()
	}
	log.Printf("console: subscribed to %s", cfg.TopicGPSSatellites)

	// Subscribe to spoof status
	spoofToken := client.Subscribe(cfg.TopicSpoofStatus, 0, func(_ mqtt.Client, msg mqtt.Message) {
		var v spoof.Verdict
		if err := json.Unmarshal(msg.Payload(), &v); err != nil {
			log.Printf("console: spoof status unmarshal error: %v", err)
			return
		}
		printVerdict(os.Stdout, v)
	})
	spoofToken.Wait()
	if spoofToken.Error() != nil {
		return spoofToken.Error()
	}
	log.Printf("console: subscribed to %s", cfg.TopicSpoofStatus)

	// Wait for Ctrl+C
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	log.Println("console: shutting down")
	client.Disconnect(250)
	return nil
}

func printFix(w io.Writer, f gps.Fix) {
	fmt.Fprintf(w,
		"[GPS ]  time=%s date=%s lat=%.6f lon=%.6f alt=%.1fm speed=%.1fkn course=%.1f° validity=%s acc=%.1fm %s\n",
		f.Time, f.Date, f.Latitude, f.Longitude, f.Altitude, f.SpeedKnots, f.CourseDeg, f.Validity, f.Accuracy, f.Grade,
	)
}

func printSky(w io.Writer, sky SkyView) {
	fmt.Fprintf(w, "[SATS]  in_view=%d in_use=%d", sky.InView, sky.InUse)
	for _, s := range sky.Satellites {
		mark := ""
		if s.Used {
			mark = "*"
		}
		fmt.Fprintf(w, " %d:%.0f%s", s.PRN, s.SNR, mark)
	}
	fmt.Fprintln(w)
}

func printVerdict(w io.Writer, v spoof.Verdict) {
	cv := "n/a"
	if !math.IsNaN(v.Stats.CoefficientOfVariation) {
		cv = fmt.Sprintf("%.2f%%", v.Stats.CoefficientOfVariation)
	}
	fmt.Fprintf(w,
		"[SPOOF] seq=%d cv=%s gps=%d state=%s recovery=%d  %s\n",
		v.Seq, cv, v.Stats.SatelliteCount, v.Classification, v.State.PostSpoofRecoveryCount, v.Message,
	)
}
