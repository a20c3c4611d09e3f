package gateway

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/agromesh/realtime-gateway/internal/bridge"
	"github.com/agromesh/realtime-gateway/internal/dispatch"
	"github.com/agromesh/realtime-gateway/internal/session"
	"github.com/agromesh/realtime-gateway/internal/topic"
	"github.com/agromesh/realtime-gateway/internal/version"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Debug("encode admin response", "error", err)
	}
}

// handleHealthz reports process liveness. It succeeds whenever the
// listener is up, regardless of bus state.
func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"service":   "realtime-gateway",
		"version":   version.Version,
		"timestamp": time.Now().UTC(),
	})
}

// handleReadyz reports readiness to take traffic: the bus must be
// connected and subscriptions installed.
func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	ready := s.bus.Connected()
	status := http.StatusOK
	state := "ok"
	if !ready {
		status = http.StatusServiceUnavailable
		state = "degraded"
	}
	writeJSON(w, status, map[string]any{
		"status":      state,
		"bus":         ready,
		"connections": s.registry.Stats().TotalSessions,
	})
}

type statsResponse struct {
	Service       string         `json:"service"`
	Version       string         `json:"version"`
	UptimeSeconds int64          `json:"uptime_seconds"`
	Sessions      session.Stats  `json:"sessions"`
	Dispatch      dispatch.Stats `json:"dispatch"`
	Bus           bridge.Stats   `json:"bus"`
	Frames        frameCounters  `json:"frames"`
}

type frameCounters struct {
	InboundTotal  int64 `json:"inbound_total"`
	OutboundTotal int64 `json:"outbound_total"`
	AuthFailures  int64 `json:"auth_failures"`
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, statsResponse{
		Service:       "realtime-gateway",
		Version:       version.Version,
		UptimeSeconds: int64(time.Since(s.started).Seconds()),
		Sessions:      s.registry.Stats(),
		Dispatch:      s.dispatcher.Stats(),
		Bus:           s.bus.Stats(),
		Frames: frameCounters{
			InboundTotal:  s.inboundFrames.Load(),
			OutboundTotal: s.outboundFrames.Load(),
			AuthFailures:  s.authFailures.Load(),
		},
	})
}

type tenantSessionInfo struct {
	SessionID     string    `json:"session_id"`
	Subject       string    `json:"subject"`
	State         string    `json:"state"`
	Subscriptions []string  `json:"subscriptions"`
	QueueDepth    int       `json:"queue_depth"`
	Drops         int64     `json:"drops"`
	LastActivity  time.Time `json:"last_activity"`
}

func (s *Server) handleTenantStats(w http.ResponseWriter, r *http.Request) {
	tenant := r.PathValue("id")
	sessions := s.registry.ByTenant(tenant)

	infos := make([]tenantSessionInfo, 0, len(sessions))
	for _, sess := range sessions {
		infos = append(infos, tenantSessionInfo{
			SessionID:     sess.ID,
			Subject:       sess.Identity.Subject,
			State:         sess.State().String(),
			Subscriptions: s.index.TopicsOf(sess.ID),
			QueueDepth:    sess.Queue.Len(),
			Drops:         sess.Drops(),
			LastActivity:  sess.LastActivity().UTC(),
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"tenant":      tenant,
		"connections": len(infos),
		"sessions":    infos,
	})
}

type broadcastRequest struct {
	TenantID string          `json:"tenant_id"`
	Room     string          `json:"room"`
	UserID   string          `json:"user_id"`
	FieldID  string          `json:"field_id"`
	Message  json.RawMessage `json:"message"`
}

// handleAdminBroadcast injects an event targeting exactly one of a
// tenant, a room, a user, or a field. The fan-out is synchronous so the
// recipient count in the response is exact.
func (s *Server) handleAdminBroadcast(w http.ResponseWriter, r *http.Request) {
	var req broadcastRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"status": "error", "error": "invalid JSON body",
		})
		return
	}
	if len(req.Message) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"status": "error", "error": "message is required",
		})
		return
	}

	var target string
	targets := 0
	if req.TenantID != "" {
		target = topic.TenantTopic(req.TenantID)
		targets++
	}
	if req.UserID != "" {
		target = topic.UserTopic(req.UserID)
		targets++
	}
	if req.FieldID != "" {
		target = "field." + req.FieldID + ".broadcast"
		targets++
	}
	if req.Room != "" {
		if err := topic.Validate(req.Room, false); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]any{
				"status": "error", "error": "invalid room: " + err.Error(),
			})
			return
		}
		target = req.Room
		targets++
	}
	if targets != 1 {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"status": "error",
			"error":  "exactly one of tenant_id, room, user_id, field_id is required",
		})
		return
	}

	recipients := s.dispatcher.Dispatch(dispatch.Event{
		Topic:      target,
		EventType:  "admin.broadcast",
		Payload:    req.Message,
		Priority:   topic.PriorityHigh,
		IngestTime: time.Now().UTC(),
	})

	s.logger.Info("admin broadcast",
		"target", target,
		"recipients", recipients,
	)
	writeJSON(w, http.StatusOK, map[string]any{
		"status":     "ok",
		"recipients": recipients,
		"timestamp":  time.Now().UTC(),
	})
}

// handleDisconnect force-closes one session by id.
func (s *Server) handleDisconnect(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	sess, ok := s.registry.Lookup(id)
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]any{
			"status": "not_found", "session_id": id,
		})
		return
	}

	sess.BeginClose(CloseForcedDisconnect, "forced disconnect")
	s.logger.Info("session force-closed",
		"session_id", id,
		"tenant", sess.Identity.Tenant,
	)
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok", "session_id": id,
	})
}
