package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/phrazzld/posting-api/internal/api/shared"
	"github.com/phrazzld/posting-api/internal/platform/logger"
	"github.com/phrazzld/posting-api/internal/service"
)

// RecordHandler handles versioned record requests
type RecordHandler struct {
	policyService service.PolicyService
	logger        *slog.Logger
}

// NewRecordHandler creates a new RecordHandler
func NewRecordHandler(policyService service.PolicyService, logger *slog.Logger) *RecordHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &RecordHandler{
		policyService: policyService,
		logger:        logger.With("handler", "record"),
	}
}

// UpsertRecord handles PUT /api/tenants/{tenant}/records/{class} requests.
// It responds 201 when a new version was created and 200 when an existing
// record was patched.
func (h *RecordHandler) UpsertRecord(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	tenantID, err := getTenantID(r)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	class := chi.URLParam(r, classParam)

	var req UpsertRecordRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		HandleValidationError(w, r, err)
		return
	}
	if err := shared.ValidateRequest(&req); err != nil {
		HandleValidationError(w, r, err)
		return
	}

	record, created, err := h.policyService.Upsert(r.Context(), class, tenantID, req.toInput())
	if err != nil {
		HandleAPIError(w, r, err, "Failed to save record")
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	log.Debug("record saved",
		"tenant_id", tenantID,
		"record_class", class,
		"record_id", record.ID,
		"created", created)
	shared.RespondWithJSON(w, r, status, recordToResponse(record))
}

// ListRecords handles GET /api/tenants/{tenant}/records/{class} requests.
func (h *RecordHandler) ListRecords(w http.ResponseWriter, r *http.Request) {
	tenantID, err := getTenantID(r)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	records, err := h.policyService.List(r.Context(), chi.URLParam(r, classParam), tenantID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to list records")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, recordsToResponse(records))
}

// GetActiveRecord handles GET /api/tenants/{tenant}/records/{class}/active
// requests: the active record, else the newest.
func (h *RecordHandler) GetActiveRecord(w http.ResponseWriter, r *http.Request) {
	tenantID, err := getTenantID(r)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	record, err := h.policyService.GetActive(r.Context(), chi.URLParam(r, classParam), tenantID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to retrieve record")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, recordToResponse(record))
}

// GetRecord handles GET /api/tenants/{tenant}/records/{class}/{id} requests.
func (h *RecordHandler) GetRecord(w http.ResponseWriter, r *http.Request) {
	tenantID, err := getTenantID(r)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	id, err := getPathUUID(r, idParam)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	record, err := h.policyService.Get(r.Context(), chi.URLParam(r, classParam), tenantID, id)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to retrieve record")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, recordToResponse(record))
}
