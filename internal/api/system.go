package api

import (
	"net/http"
	"time"
)

var startTime = time.Now()

const version = "1.0.0"

// HealthCheck reports the session state and free space on the destination.
// A failed session answers 503.
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	snap := h.controller.Snapshot()

	health := map[string]interface{}{
		"status":     "healthy",
		"session":    snap.State,
		"session_id": snap.SessionID,
		"timestamp":  time.Now().UTC(),
		"uptime":     time.Since(startTime).String(),
		"version":    version,
	}
	if snap.Error != "" {
		health["session_error"] = snap.Error
	}

	statusCode := http.StatusOK
	message := "Service is healthy"

	if h.resources != nil {
		resourceStatus := h.resources.GetResourceStatus()
		health["resources"] = resourceStatus
		if !resourceStatus.DiskSpaceAvailable {
			health["status"] = "degraded"
			message = "Destination is low on space"
		}
	}

	if snap.State == "failed" {
		health["status"] = "unhealthy"
		statusCode = http.StatusServiceUnavailable
		message = "Transfer session has failed"
	}

	h.writeSuccess(w, statusCode, health, message)
}

func (h *Handlers) GetStatus(w http.ResponseWriter, r *http.Request) {
	status := map[string]interface{}{
		"service":   "seedpull",
		"version":   version,
		"timestamp": time.Now().UTC(),
		"uptime":    time.Since(startTime).String(),
		"session":   h.controller.Snapshot().State,
		"clients":   h.hub.clientCount(),
	}

	if summary, err := h.controller.Summary(); err == nil {
		status["jobs"] = summary
	}

	if h.resources != nil {
		status["resources"] = h.resources.GetResourceStatus()
	}

	h.writeSuccess(w, http.StatusOK, status, "")
}
