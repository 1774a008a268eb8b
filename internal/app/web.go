// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/gorilla/websocket"

	"github.com/relabs-tech/spoofwatch/internal/config"
	"github.com/relabs-tech/spoofwatch/internal/gps"
	"github.com/relabs-tech/spoofwatch/internal/history"
	"github.com/relabs-tech/spoofwatch/internal/logx"
	"github.com/relabs-tech/spoofwatch/internal/metrics"
	"github.com/relabs-tech/spoofwatch/internal/spoof"
)

const (
	defaultHistoryLimit = 100
	maxHistoryLimit     = 1000
)

// WebServer serves the latest detector output received over MQTT.
type WebServer struct {
	mu          sync.RWMutex
	verdict     spoof.Verdict
	haveVerdict bool
	fix         gps.Fix
	haveFix     bool
	sky         SkyView
	haveSky     bool

	history *history.Store
	metrics *metrics.Collector
	hub     *statusHub
	logger  *logx.Logger
	now     func() time.Time
	static  string
}

// NewWebServer builds a server. store and collector may be nil.
func NewWebServer(store *history.Store, collector *metrics.Collector, logger *logx.Logger, staticDir string) *WebServer {
	return &WebServer{
		history: store,
		metrics: collector,
		hub:     newStatusHub(),
		logger:  logger,
		now:     time.Now,
		static:  staticDir,
	}
}

// HandleVerdict consumes one status payload.
func (s *WebServer) HandleVerdict(payload []byte) {
	var v spoof.Verdict
	if err := json.Unmarshal(payload, &v); err != nil {
		s.logger.Error("verdict_unmarshal_failed", "error", err)
		return
	}

	s.mu.Lock()
	s.verdict = v
	s.haveVerdict = true
	s.mu.Unlock()

	s.metrics.ObserveVerdict(v)
	if s.history != nil {
		if _, err := s.history.Append(v, s.now()); err != nil {
			s.logger.Error("history_append_failed", "seq", v.Seq, "error", err)
		}
	}
	s.hub.broadcast(StatusMessage{Type: "verdict", Verdict: &v})
}

// HandleFix consumes one fix payload.
func (s *WebServer) HandleFix(payload []byte) {
	var f gps.Fix
	if err := json.Unmarshal(payload, &f); err != nil {
		s.logger.Error("fix_unmarshal_failed", "error", err)
		return
	}
	s.mu.Lock()
	s.fix = f
	s.haveFix = true
	s.mu.Unlock()
}

// HandleSky consumes one satellites payload.
func (s *WebServer) HandleSky(payload []byte) {
	var sky SkyView
	if err := json.Unmarshal(payload, &sky); err != nil {
		s.logger.Error("satellites_unmarshal_failed", "error", err)
		return
	}
	s.mu.Lock()
	s.sky = sky
	s.haveSky = true
	s.mu.Unlock()

	s.metrics.ObserveSky(sky.InView, sky.InUse)
}

// Routes returns the HTTP handler tree.
func (s *WebServer) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/status", func(w http.ResponseWriter, r *http.Request) {
		s.mu.RLock()
		v, ok := s.verdict, s.haveVerdict
		s.mu.RUnlock()
		if !ok {
			http.Error(w, "no data yet", http.StatusServiceUnavailable)
			return
		}
		s.writeJSON(w, v)
	})

	mux.HandleFunc("/api/fix", func(w http.ResponseWriter, r *http.Request) {
		s.mu.RLock()
		f, ok := s.fix, s.haveFix
		s.mu.RUnlock()
		if !ok {
			http.Error(w, "no data yet", http.StatusServiceUnavailable)
			return
		}
		s.writeJSON(w, f)
	})

	mux.HandleFunc("/api/satellites", func(w http.ResponseWriter, r *http.Request) {
		s.mu.RLock()
		sky, ok := s.sky, s.haveSky
		s.mu.RUnlock()
		if !ok {
			http.Error(w, "no data yet", http.StatusServiceUnavailable)
			return
		}
		s.writeJSON(w, sky)
	})

	mux.HandleFunc("/api/history", func(w http.ResponseWriter, r *http.Request) {
		if s.history == nil {
			http.Error(w, "history disabled", http.StatusNotFound)
			return
		}
		limit, err := parseLimit(r.URL.Query().Get("limit"))
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		entries, err := s.history.Recent(limit)
		if err != nil {
			s.logger.Error("history_read_failed", "error", err)
			http.Error(w, "history read failed", http.StatusInternalServerError)
			return
		}
		if entries == nil {
			entries = []history.Entry{}
		}
		s.writeJSON(w, entries)
	})

	mux.HandleFunc("/ws/status", s.handleStatusWS)

	if s.metrics != nil {
		mux.Handle("/metrics", s.metrics.Handler())
	}

	if s.static != "" {
		mux.Handle("/", http.FileServer(http.Dir(s.static)))
	}

	return mux
}

func (s *WebServer) writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("json_encode_failed", "error", err)
	}
}

func parseLimit(raw string) (int, error) {
	if raw == "" {
		return defaultHistoryLimit, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid limit %q", raw)
	}
	if n > maxHistoryLimit {
		n = maxHistoryLimit
	}
	return n, nil
}

// handleStatusWS pushes every verdict to the client and answers its
// get_status and get_history requests.
func (s *WebServer) handleStatusWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket_upgrade_failed", "error", err)
		return
	}
	defer conn.Close()

	session := &statusSession{conn: conn}
	s.hub.add(session)
	defer s.hub.remove(session)

	s.sendStatus(session)

	for {
		var cmd StatusCmd
		if err := conn.ReadJSON(&cmd); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Warn("websocket_read_failed", "error", err)
			}
			return
		}

		switch cmd.Action {
		case "get_status":
			s.sendStatus(session)
		case "get_history":
			if s.history == nil {
				session.sendError("history disabled")
				continue
			}
			limit := cmd.Limit
			if limit <= 0 {
				limit = defaultHistoryLimit
			}
			if limit > maxHistoryLimit {
				limit = maxHistoryLimit
			}
			entries, err := s.history.Recent(limit)
			if err != nil {
				session.sendError(fmt.Sprintf("history read error: %v", err))
				continue
			}
			session.send(StatusMessage{Type: "history", History: entries})
		default:
			session.sendError(fmt.Sprintf("unknown action: %s", cmd.Action))
		}
	}
}

func (s *WebServer) sendStatus(session *statusSession) {
	s.mu.RLock()
	v, ok := s.verdict, s.haveVerdict
	s.mu.RUnlock()
	if !ok {
		session.sendError("no data yet")
		return
	}
	session.send(StatusMessage{Type: "verdict", Verdict: &v})
}

// RunWeb subscribes to the detector topics, keeps the verdict history and
// metrics, and serves the dashboard API.
func RunWeb() error {
	cfg := config.Get()
	if cfg == nil {
		return fmt.Errorf("config not initialized")
	}
	logger := logx.NewLogger(cfg.LogLevel, cfg.LogFormat).With("component", "web")

	store, err := history.Open(cfg.HistoryDBPath, cfg.HistoryMaxRecords)
	if err != nil {
		return err
	}
	defer store.Close()
	logger.Info("history_opened", "path", cfg.HistoryDBPath, "max_records", cfg.HistoryMaxRecords)

	collector, err := metrics.NewCollector(nil)
	if err != nil {
		return err
	}

	server := NewWebServer(store, collector, logger, "web")

	// 1) Connect to MQTT broker
	opts := mqtt.NewClientOptions().
		AddBroker(cfg.MQTTBroker).
		SetClientID(cfg.MQTTClientIDWeb)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	defer client.Disconnect(250)
	logger.Info("mqtt_connected", "broker", cfg.MQTTBroker)

	// 2) Subscribe to detector output
	subs := map[string]func([]byte){
		cfg.TopicSpoofStatus:   server.HandleVerdict,
		cfg.TopicGPSFix:        server.HandleFix,
		cfg.TopicGPSSatellites: server.HandleSky,
	}
	for topic, handle := range subs {
		if topic == "" {
			continue
		}
		handle := handle
		token := client.Subscribe(topic, 0, func(_ mqtt.Client, msg mqtt.Message) {
			handle(msg.Payload())
		})
		token.Wait()
		if token.Error() != nil {
			return token.Error()
		}
		logger.Info("mqtt_subscribed", "topic", topic)
	}

	// 3) Serve
	addr := fmt.Sprintf(":%d", cfg.WebServerPort)
	logger.Info("web_listening", "addr", addr)
	return http.ListenAndServe(addr, server.Routes())
}
