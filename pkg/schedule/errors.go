package schedule

import (
	"fmt"
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
)

// ValidationError is a recoverable failure of a sequencing operation: the
// requested change conflicts with a guard rail and the document was left
// unmodified. It is never fatal.
type ValidationError struct {
	Op      string
	DayID   string
	StageID string
	Message string
}

func NewValidationError(op, msg string) *ValidationError {
	return &ValidationError{
		Op:      op,
		Message: msg,
	}
}

func NewValidationErrorf(op, format string, args ...any) *ValidationError {
	return &ValidationError{
		Op:      op,
		Message: fmt.Sprintf(format, args...),
	}
}

func (e *ValidationError) Error() string {
	if e.Op == "" {
		return e.Message
	}
	return e.Op + ": " + e.Message
}

func (e *ValidationError) AddDay(dayID string) *ValidationError {
	e.DayID = dayID
	return e
}

func (e *ValidationError) AddStage(stageID string) *ValidationError {
	e.StageID = stageID
	return e
}

func (e *ValidationError) ToHTTPError() *httperror.HTTPError {
	return httperror.NewHTTPError(http.StatusUnprocessableEntity, e.Error()).AddMetaValue("op", e.Op).AddMetaValue("day_id", e.DayID).AddMetaValue("stage_id", e.StageID)
}

func IsValidationError(err error) bool {
	_, ok := err.(*ValidationError)
	return ok
}
