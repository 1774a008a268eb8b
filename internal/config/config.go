// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package config

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"sync"

	"github.com/joho/godotenv"

	"github.com/relabs-tech/spoofwatch/internal/spoof"
)

// GPS input kinds accepted by GPS_SOURCE.
const (
	SourceSerial = "serial"
	SourceReplay = "replay"
	SourceMock   = "mock"
)

// Config holds all application configuration values.
type Config struct {
	// MQTT
	MQTTBroker           string
	MQTTClientIDDetector string
	MQTTClientIDConsole  string
	MQTTClientIDWeb      string

	// Topics
	TopicGPSFix        string
	TopicGPSSatellites string
	TopicSpoofStatus   string

	// GPS input
	GPSSource     string
	GPSSerialPort string
	GPSBaudRate   int
	GPSReplayFile string
	MockInterval  int // milliseconds between mock fixes
	MockPeriod    int // seconds for one mock CV sweep

	// Outputs
	CVLogPath         string
	HistoryDBPath     string
	HistoryMaxRecords int

	// Web Server
	WebServerPort int

	// Logging
	LogLevel  string
	LogFormat string

	// Spoof policy
	SpoofWarmupFixes   int
	SpoofCVWarnLow     float64
	SpoofCVWarnHigh    float64
	SpoofRecoveryFixes int
}

// Package-level unexported variables for singleton pattern:
//   - globalConfig: only reachable through Get, so nothing outside this
//     package can swap it without the lock.
//   - configOnce: ensures InitGlobal() only runs once, even if called multiple times.
//   - configMu: RWMutex; write lock for initialization, read lock for Get().
var (
	globalConfig *Config
	configOnce   sync.Once
	configMu     sync.RWMutex
)

// Default returns a configuration with every optional key filled in.
func Default() *Config {
	p := spoof.DefaultPolicy()
	return &Config{
		MQTTBroker:           "tcp://localhost:1883",
		MQTTClientIDDetector: "spoofwatch-detector",
		MQTTClientIDConsole:  "spoofwatch-console",
		MQTTClientIDWeb:      "spoofwatch-web",

		TopicGPSFix:        "spoofwatch/gps/fix",
		TopicGPSSatellites: "spoofwatch/gps/satellites",
		TopicSpoofStatus:   "spoofwatch/spoof/status",

		GPSSource:     SourceSerial,
		GPSSerialPort: "/dev/serial0",
		GPSBaudRate:   9600,
		MockInterval:  1000,
		MockPeriod:    60,

		CVLogPath:         "SNR_PRN_VALUE.csv",
		HistoryDBPath:     "spoofwatch_history.db",
		HistoryMaxRecords: 10000,

		WebServerPort: 8080,

		LogLevel:  "info",
		LogFormat: "text",

		SpoofWarmupFixes:   p.WarmupFixes,
		SpoofCVWarnLow:     p.WarnLowCV,
		SpoofCVWarnHigh:    p.WarnHighCV,
		SpoofRecoveryFixes: p.RecoveryFixes,
	}
}

// Load reads the KEY=VALUE configuration file on top of Default(). A key set
// in the process environment wins over the file.
func Load(configPath string) (*Config, error) {
	values, err := godotenv.Read(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()

	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		if err := cfg.setValue(key, values[key]); err != nil {
			return nil, fmt.Errorf("config %s: %w", configPath, err)
		}
	}

	for _, key := range knownKeys {
		if value, ok := os.LookupEnv(key); ok {
			if err := cfg.setValue(key, value); err != nil {
				return nil, fmt.Errorf("environment: %w", err)
			}
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

var knownKeys = []string{
	"MQTT_BROKER", "MQTT_CLIENT_ID_DETECTOR", "MQTT_CLIENT_ID_CONSOLE", "MQTT_CLIENT_ID_WEB",
	"TOPIC_GPS_FIX", "TOPIC_GPS_SATELLITES", "TOPIC_SPOOF_STATUS",
	"GPS_SOURCE", "GPS_SERIAL_PORT", "GPS_BAUD_RATE", "GPS_REPLAY_FILE", "MOCK_INTERVAL", "MOCK_PERIOD",
	"CV_LOG_PATH", "HISTORY_DB_PATH", "HISTORY_MAX_RECORDS",
	"WEB_SERVER_PORT",
	"LOG_LEVEL", "LOG_FORMAT",
	"SPOOF_WARMUP_FIXES", "SPOOF_CV_WARN_LOW", "SPOOF_CV_WARN_HIGH", "SPOOF_RECOVERY_FIXES",
}

// setValue sets a config value based on the key.
func (c *Config) setValue(key, value string) error {
	switch key {
	// MQTT
	case "MQTT_BROKER":
		c.MQTTBroker = value
	case "MQTT_CLIENT_ID_DETECTOR":
		c.MQTTClientIDDetector = value
	case "MQTT_CLIENT_ID_CONSOLE":
		c.MQTTClientIDConsole = value
	case "MQTT_CLIENT_ID_WEB":
		c.MQTTClientIDWeb = value

	// Topics
	case "TOPIC_GPS_FIX":
		c.TopicGPSFix = value
	case "TOPIC_GPS_SATELLITES":
		c.TopicGPSSatellites = value
	case "TOPIC_SPOOF_STATUS":
		c.TopicSpoofStatus = value

	// GPS
	case "GPS_SOURCE":
		switch value {
		case SourceSerial, SourceReplay, SourceMock:
			c.GPSSource = value
		default:
			return fmt.Errorf("GPS_SOURCE must be one of serial, replay, mock, got %q", value)
		}
	case "GPS_SERIAL_PORT":
		c.GPSSerialPort = value
	case "GPS_BAUD_RATE":
		rate, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid GPS_BAUD_RATE %q: %w", value, err)
		}
		c.GPSBaudRate = rate
	case "GPS_REPLAY_FILE":
		c.GPSReplayFile = value
	case "MOCK_INTERVAL":
		interval, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid MOCK_INTERVAL %q: %w", value, err)
		}
		c.MockInterval = interval
	case "MOCK_PERIOD":
		period, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid MOCK_PERIOD %q: %w", value, err)
		}
		c.MockPeriod = period

	// Outputs
	case "CV_LOG_PATH":
		c.CVLogPath = value
	case "HISTORY_DB_PATH":
		c.HistoryDBPath = value
	case "HISTORY_MAX_RECORDS":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid HISTORY_MAX_RECORDS %q: %w", value, err)
		}
		c.HistoryMaxRecords = n

	// Web Server
	case "WEB_SERVER_PORT":
		port, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid WEB_SERVER_PORT %q: %w", value, err)
		}
		c.WebServerPort = port

	// Logging
	case "LOG_LEVEL":
		c.LogLevel = value
	case "LOG_FORMAT":
		c.LogFormat = value

	// Spoof policy
	case "SPOOF_WARMUP_FIXES":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid SPOOF_WARMUP_FIXES %q: %w", value, err)
		}
		c.SpoofWarmupFixes = n
	case "SPOOF_CV_WARN_LOW":
		v, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid SPOOF_CV_WARN_LOW %q: %w", value, err)
		}
		c.SpoofCVWarnLow = v
	case "SPOOF_CV_WARN_HIGH":
		v, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid SPOOF_CV_WARN_HIGH %q: %w", value, err)
		}
		c.SpoofCVWarnHigh = v
	case "SPOOF_RECOVERY_FIXES":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid SPOOF_RECOVERY_FIXES %q: %w", value, err)
		}
		c.SpoofRecoveryFixes = n

	default:
		return fmt.Errorf("unknown config key: %q", key)
	}

	return nil
}

// validate checks that all required fields are set.
func (c *Config) validate() error {
	if c.MQTTBroker == "" {
		return fmt.Errorf("MQTT_BROKER is required")
	}
	if c.TopicSpoofStatus == "" {
		return fmt.Errorf("TOPIC_SPOOF_STATUS is required")
	}
	switch c.GPSSource {
	case SourceSerial:
		if c.GPSSerialPort == "" {
			return fmt.Errorf("GPS_SERIAL_PORT is required")
		}
		if c.GPSBaudRate <= 0 {
			return fmt.Errorf("GPS_BAUD_RATE must be positive")
		}
	case SourceReplay:
		if c.GPSReplayFile == "" {
			return fmt.Errorf("GPS_REPLAY_FILE is required when GPS_SOURCE=replay")
		}
	}
	// the mock console reads these whatever GPS_SOURCE says
	if c.MockInterval <= 0 {
		return fmt.Errorf("MOCK_INTERVAL must be positive")
	}
	if c.MockPeriod <= 0 {
		return fmt.Errorf("MOCK_PERIOD must be positive")
	}
	if c.HistoryMaxRecords < 0 {
		return fmt.Errorf("HISTORY_MAX_RECORDS must be >= 0")
	}
	if err := c.Policy().Validate(); err != nil {
		return fmt.Errorf("spoof policy: %w", err)
	}
	return nil
}

// Policy returns the spoof escalation thresholds.
func (c *Config) Policy() spoof.Policy {
	return spoof.Policy{
		WarmupFixes:   c.SpoofWarmupFixes,
		WarnLowCV:     c.SpoofCVWarnLow,
		WarnHighCV:    c.SpoofCVWarnHigh,
		RecoveryFixes: c.SpoofRecoveryFixes,
	}
}

// InitGlobal initializes the global configuration from file.
// Uses sync.Once to ensure this only runs once, even if called multiple times.
func InitGlobal(configPath string) error {
	var err error
	configOnce.Do(func() {
		configMu.Lock()
		defer configMu.Unlock()
		globalConfig, err = Load(configPath)
	})
	return err
}

// Get returns the global configuration instance.
// InitGlobal must be called first, or this will return nil.
func Get() *Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return globalConfig
}
