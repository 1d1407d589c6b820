package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// VersionLayout is the time layout of generated version labels
// (yyyyMMdd-HHmmss).
const VersionLayout = "20060102-150405"

// CodePrefix is prepended to the version label to build a default code.
const CodePrefix = "POL"

// VersionLabel returns the version label generated for a record created at t.
// t is formatted as given, so callers pass the store's local wall-clock time.
func VersionLabel(t time.Time) string {
	return t.Format(VersionLayout)
}

// CodeLabel returns the default code for a version label.
func CodeLabel(version string) string {
	return CodePrefix + version
}

// VersionedRecord is one version of a tenant-scoped document belonging to a
// record class (for example a payroll policy). Within a tenant at most one
// record of a class is active at a time, and only the newest versions are
// retained.
//
// The version, code and isActive labels live inside Document; the accessor
// methods read them from there.
type VersionedRecord struct {
	ID        uuid.UUID `json:"id"`
	TenantID  string    `json:"tenant_id"`
	Class     string    `json:"class"`
	Document  Document  `json:"document"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Version returns the record's version label.
func (r *VersionedRecord) Version() string {
	s, _ := r.Document.StringField(FieldVersion)
	return s
}

// Code returns the record's code label.
func (r *VersionedRecord) Code() string {
	s, _ := r.Document.StringField(FieldCode)
	return s
}

// IsActive reports whether the record is the tenant's active version.
func (r *VersionedRecord) IsActive() bool {
	return r.Document.IsActive()
}

// Validate checks if the record has valid data.
func (r *VersionedRecord) Validate() error {
	if r.ID == uuid.Nil {
		return fmt.Errorf("%w: record ID cannot be empty", ErrValidation)
	}
	if strings.TrimSpace(r.TenantID) == "" {
		return fmt.Errorf("%w: %w", ErrValidation, ErrEmptyTenant)
	}
	return nil
}

// UpsertInput carries a create-or-update request for a versioned record.
// A nil (or nil-UUID) ID selects create mode; any other ID selects update
// mode. Blank Version and Code values count as not supplied.
type UpsertInput struct {
	ID       *uuid.UUID
	Document Document
	Version  *string
	Code     *string
}

// IsUpdate reports whether the input targets an existing record.
func (in UpsertInput) IsUpdate() bool {
	return in.ID != nil && *in.ID != uuid.Nil
}

// ExplicitVersion returns the caller-supplied version, if any.
func (in UpsertInput) ExplicitVersion() (string, bool) {
	return nonBlank(in.Version)
}

// ExplicitCode returns the caller-supplied code, if any.
func (in UpsertInput) ExplicitCode() (string, bool) {
	return nonBlank(in.Code)
}

// CreateLabels resolves the version and code of a new record. The explicit
// argument wins, then the document's own field, then the label generated
// from now. A default code always derives from the generated version, even
// when a version was supplied.
func (in UpsertInput) CreateLabels(now time.Time) (version, code string) {
	version = firstLabel(in.ExplicitVersion, docLabel(in.Document, FieldVersion))
	if version == "" {
		version = VersionLabel(now)
	}
	code = firstLabel(in.ExplicitCode, docLabel(in.Document, FieldCode))
	if code == "" {
		code = CodeLabel(VersionLabel(now))
	}
	return version, code
}

// UpdateLabels resolves the version and code of a patched record. The
// explicit argument wins, then the incoming document, then the stored
// record. A stored record without labels falls back to generated ones, and
// a generated code always derives from now.
func (in UpsertInput) UpdateLabels(existing Document, now time.Time) (version, code string) {
	version = firstLabel(in.ExplicitVersion, docLabel(in.Document, FieldVersion), docLabel(existing, FieldVersion))
	if version == "" {
		version = VersionLabel(now)
	}
	code = firstLabel(in.ExplicitCode, docLabel(in.Document, FieldCode), docLabel(existing, FieldCode))
	if code == "" {
		code = CodeLabel(VersionLabel(now))
	}
	return version, code
}

func nonBlank(s *string) (string, bool) {
	if s == nil || strings.TrimSpace(*s) == "" {
		return "", false
	}
	return *s, true
}

func docLabel(d Document, name string) func() (string, bool) {
	return func() (string, bool) { return d.StringField(name) }
}

func firstLabel(sources ...func() (string, bool)) string {
	for _, src := range sources {
		if s, ok := src(); ok {
			return s
		}
	}
	return ""
}
