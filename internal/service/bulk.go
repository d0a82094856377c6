package service

import (
	"go-fund-admin/internal/apperror"

	"github.com/google/uuid"
)

type BulkOutcome string

const (
	BulkSucceeded BulkOutcome = "SUCCEEDED"
	BulkFailed    BulkOutcome = "FAILED"
	BulkPartial   BulkOutcome = "PARTIAL"
)

type BulkFailure struct {
	ID    uuid.UUID `json:"id"`
	Error string    `json:"error"`
}

// BulkResult summarises a batch whose items were applied independently
type BulkResult struct {
	SuccessCount int           `json:"success_count"`
	FailureCount int           `json:"failure_count"`
	Failures     []BulkFailure `json:"failures"`
}

func newBulkResult() *BulkResult {
	return &BulkResult{Failures: []BulkFailure{}}
}

func (r *BulkResult) Outcome() BulkOutcome {
	switch {
	case r.FailureCount == 0:
		return BulkSucceeded
	case r.SuccessCount == 0:
		return BulkFailed
	default:
		return BulkPartial
	}
}

func (r *BulkResult) record(id uuid.UUID, err error) {
	if err == nil {
		r.SuccessCount++
		return
	}
	r.FailureCount++
	r.Failures = append(r.Failures, BulkFailure{ID: id, Error: apperror.Message(err)})
}

func checkBatch(size, max int) error {
	if size == 0 {
		return apperror.BadRequest("no items given")
	}
	if max > 0 && size > max {
		return apperror.BadRequest("batch of %d items exceeds the limit of %d", size, max)
	}
	return nil
}
