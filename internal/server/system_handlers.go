package server

import (
	"net/http"
	"time"

	"github.com/stockfolio/backend/internal/api"
)

// handleHealth is the liveness endpoint
// GET /health
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	api.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleSystemStatus reports process-level status
// GET /api/system/status
func (s *Server) handleSystemStatus(w http.ResponseWriter, r *http.Request) {
	now := time.Now().UTC()

	api.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"status":         "ok",
		"started_at":     s.startedAt.Format(time.RFC3339),
		"uptime_seconds": int64(now.Sub(s.startedAt).Seconds()),
		"dev_mode":       s.devMode,
		"time":           now.Format(time.RFC3339),
	})
}
