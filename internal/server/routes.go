package server

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/zsiec/arq/internal/errors"
	"github.com/zsiec/arq/internal/gbn"
	"github.com/zsiec/arq/internal/health"
	"github.com/zsiec/arq/pkg/version"
)

// StatsResponse combines the counters of whichever endpoint roles this process
// runs.
type StatsResponse struct {
	Sender   *SenderStatsBody   `json:"sender,omitempty"`
	Receiver *ReceiverStatsBody `json:"receiver,omitempty"`
}

// SenderStatsBody is the sender half of the stats API.
type SenderStatsBody struct {
	SessionID  string          `json:"session_id"`
	Stats      gbn.SenderStats `json:"stats"`
	Efficiency float64         `json:"efficiency"`
}

// ReceiverStatsBody is the receiver half of the stats API.
type ReceiverStatsBody struct {
	SessionID      string            `json:"session_id"`
	Stats          gbn.ReceiverStats `json:"stats"`
	AcceptanceRate float64           `json:"acceptance_rate"`
}

func (s *Server) setupRoutes() {
	s.routesOnce.Do(func() {
		s.router.Use(s.requestIDMiddleware)
		s.router.Use(s.errorHandler.Middleware)
		s.router.Use(s.metricsMiddleware)

		healthHandler := health.NewHandler(s.healthMgr)
		s.router.HandleFunc("/health", healthHandler.HandleHealth).Methods("GET")
		s.router.HandleFunc("/ready", healthHandler.HandleReady).Methods("GET")
		s.router.HandleFunc("/live", healthHandler.HandleLive).Methods("GET")

		s.router.HandleFunc("/version", s.handleVersion).Methods("GET")
		s.router.Handle("/metrics", promhttp.Handler()).Methods("GET")

		api := s.router.PathPrefix("/api/v1").Subrouter()
		api.HandleFunc("/stats", s.handleStats).Methods("GET")
		api.HandleFunc("/messages", s.handleMessages).Methods("GET")
		api.HandleFunc("/sessions", s.handleSessions).Methods("GET")
		api.HandleFunc("/sessions/{id}", s.handleSession).Methods("GET")

		s.router.NotFoundHandler = http.HandlerFunc(s.errorHandler.HandleNotFound)
		s.router.MethodNotAllowedHandler = http.HandlerFunc(s.errorHandler.HandleMethodNotAllowed)
	})
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, version.GetInfo())
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if s.sender == nil && s.receiver == nil {
		s.errorHandler.HandleError(w, r, errors.NewNotFoundError("session"))
		return
	}

	resp := StatsResponse{}
	if s.sender != nil {
		stats := s.sender.Stats()
		resp.Sender = &SenderStatsBody{
			SessionID:  s.sender.ID(),
			Stats:      stats,
			Efficiency: stats.Efficiency(),
		}
	}
	if s.receiver != nil {
		stats := s.receiver.Stats()
		resp.Receiver = &ReceiverStatsBody{
			SessionID:      s.receiver.ID(),
			Stats:          stats,
			AcceptanceRate: stats.AcceptanceRate(),
		}
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleMessages(w http.ResponseWriter, r *http.Request) {
	if s.receiver == nil {
		s.errorHandler.HandleError(w, r, errors.NewNotFoundError("receiver session"))
		return
	}

	messages := s.receiver.Messages()
	s.writeJSON(w, http.StatusOK, struct {
		SessionID string                 `json:"session_id"`
		Count     int                    `json:"count"`
		Messages  []gbn.DeliveredMessage `json:"messages"`
	}{s.receiver.ID(), len(messages), messages})
}

func (s *Server) handleSessions(w http.ResponseWriter, r *http.Request) {
	if s.registry == nil {
		s.errorHandler.HandleError(w, r, errors.NewNotFoundError("registry"))
		return
	}

	sessions, err := s.registry.List(r.Context())
	if err != nil {
		s.errorHandler.HandleError(w, r, errors.WrapInternalError(err, "failed to list sessions"))
		return
	}
	s.writeJSON(w, http.StatusOK, sessions)
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	if s.registry == nil {
		s.errorHandler.HandleError(w, r, errors.NewNotFoundError("registry"))
		return
	}

	id := mux.Vars(r)["id"]
	session, err := s.registry.Get(r.Context(), id)
	if err != nil {
		s.errorHandler.HandleError(w, r, errors.NewNotFoundError("session"))
		return
	}
	s.writeJSON(w, http.StatusOK, session)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.WithError(err).Error("Failed to encode response")
	}
}
