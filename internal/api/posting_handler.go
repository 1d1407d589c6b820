package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/phrazzld/posting-api/internal/api/shared"
	"github.com/phrazzld/posting-api/internal/platform/logger"
	"github.com/phrazzld/posting-api/internal/service"
)

// PostingHandler handles posting job requests
type PostingHandler struct {
	postingService service.PostingService
	logger         *slog.Logger
}

// NewPostingHandler creates a new PostingHandler
func NewPostingHandler(postingService service.PostingService, logger *slog.Logger) *PostingHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostingHandler{
		postingService: postingService,
		logger:         logger.With("handler", "posting"),
	}
}

// RequestPosting handles POST /api/tenants/{tenant}/posting-jobs requests.
// The job runs in the background; the response only acknowledges it.
func (h *PostingHandler) RequestPosting(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	tenantID, err := getTenantID(r)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	var req PostingJobRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		// An empty body requests a run with all defaults
		if !errors.Is(err, shared.ErrEmptyBody) {
			HandleValidationError(w, r, err)
			return
		}
	}
	if err := shared.ValidateRequest(&req); err != nil {
		HandleValidationError(w, r, err)
		return
	}

	// Zero is passed through: the runner resolves the configured default.
	batchSize := req.BatchSize
	if err := h.postingService.RequestPosting(r.Context(), tenantID, req.RequestedBy, batchSize); err != nil {
		HandleAPIError(w, r, err, "Failed to request posting")
		return
	}

	log.Debug("posting job accepted", "tenant_id", tenantID, "batch_size", batchSize)
	shared.RespondWithJSON(w, r, http.StatusAccepted, PostingJobResponse{
		TenantID:  tenantID,
		Status:    "queued",
		BatchSize: batchSize,
	})
}
