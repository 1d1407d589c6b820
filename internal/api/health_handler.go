package api

import (
	"net/http"

	"github.com/phrazzld/posting-api/internal/api/shared"
)

// HealthHandler reports liveness and the posting queue depth.
type HealthHandler struct {
	queueDepth func() int
}

// NewHealthHandler creates a HealthHandler. queueDepth may be nil.
func NewHealthHandler(queueDepth func() int) *HealthHandler {
	return &HealthHandler{queueDepth: queueDepth}
}

// Health handles GET /health requests.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{Status: "ok"}
	if h.queueDepth != nil {
		resp.QueueDepth = h.queueDepth()
	}
	shared.RespondWithJSON(w, r, http.StatusOK, resp)
}
