package handlers

import (
	"net/http"

	"parley/observability"
)

type HealthHandler struct {
	monitor     *observability.Monitor
	onlineCount func() int
}

func NewHealthHandler(monitor *observability.Monitor, onlineCount func() int) *HealthHandler {
	return &HealthHandler{monitor: monitor, onlineCount: onlineCount}
}

func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.monitor.Snapshot(h.onlineCount()))
}
