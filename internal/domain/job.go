package domain

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// SystemIdentity is the acting identity of jobs submitted without a user.
const SystemIdentity = "posting-bot"

// DefaultBatchSize is the batch size producers use when none is requested.
const DefaultBatchSize = 50

// ErrInvalidJob is returned when a posting job fails validation.
var ErrInvalidJob = errors.New("invalid posting job")

var jobValidator = validator.New()

// Job is a unit of deferred posting work: run the posting process for a
// tenant with the given batch size. Jobs are values; the queue holds copies.
type Job struct {
	TenantID    string `json:"tenant_id"    validate:"required"`
	RequestedBy string `json:"requested_by"`
	BatchSize   int    `json:"batch_size"   validate:"gt=0,lte=10000"`
}

// NewJob creates a validated job. Whitespace around the tenant and the
// requester is dropped; an empty requester resolves to SystemIdentity.
func NewJob(tenantID, requestedBy string, batchSize int) (Job, error) {
	job := Job{
		TenantID:    strings.TrimSpace(tenantID),
		RequestedBy: strings.TrimSpace(requestedBy),
		BatchSize:   batchSize,
	}
	if err := job.Validate(); err != nil {
		return Job{}, err
	}
	return job, nil
}

// Validate checks the job's fields.
func (j Job) Validate() error {
	if err := jobValidator.Struct(j); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fmt.Sprintf("%s failed on %s", fe.Field(), fe.Tag()))
			}
			return fmt.Errorf("%w: %s", ErrInvalidJob, strings.Join(fields, ", "))
		}
		return fmt.Errorf("%w: %w", ErrInvalidJob, err)
	}
	return nil
}

// ActingIdentity returns the identity the posting process runs as.
func (j Job) ActingIdentity() string {
	if j.RequestedBy == "" {
		return SystemIdentity
	}
	return j.RequestedBy
}
