package api

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/phrazzld/posting-api/internal/domain"
)

// Route parameter names
const (
	tenantParam = "tenant"
	classParam  = "class"
	idParam     = "id"
)

// getTenantID extracts the tenant scope from the URL path. It returns
// domain.ErrEmptyTenant when the parameter is blank.
func getTenantID(r *http.Request) (string, error) {
	tenantID := strings.TrimSpace(chi.URLParam(r, tenantParam))
	if tenantID == "" {
		return "", domain.ErrEmptyTenant
	}
	return tenantID, nil
}

// getPathUUID extracts a UUID from the URL path parameters.
func getPathUUID(r *http.Request, paramName string) (uuid.UUID, error) {
	pathParam := chi.URLParam(r, paramName)
	if pathParam == "" {
		return uuid.Nil, domain.ErrValidation
	}

	id, err := uuid.Parse(pathParam)
	if err != nil {
		return uuid.Nil, domain.ErrInvalidFormat
	}
	return id, nil
}
