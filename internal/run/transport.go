package run

import (
	"github.com/google/uuid"

	"github.com/ahmethakanbesel/fx-etl/internal/apperror"
)

const (
	DefaultListLimit = 20
	MaxListLimit     = 500
)

type GetRunRequest struct {
	ID string
}

func (r GetRunRequest) Validate() *apperror.AppError {
	if _, err := uuid.Parse(r.ID); err != nil {
		return apperror.New(apperror.BadRequest, "invalid run id")
	}
	return nil
}

type ListRunsRequest struct {
	Status Status
	Limit  int
}

func (r ListRunsRequest) Validate() *apperror.AppError {
	if r.Status != "" && !r.Status.Valid() {
		return apperror.New(apperror.BadRequest, "unknown run status")
	}
	if r.Limit < 0 || r.Limit > MaxListLimit {
		return apperror.New(apperror.BadRequest, "limit must be between 0 and 500")
	}
	return nil
}
