package residence

import "fmt"

// TransitionErrorCode classifies why a stage or custody update was rejected.
type TransitionErrorCode string

const (
	ErrCodeCaseTerminal         TransitionErrorCode = "CASE_TERMINAL"
	ErrCodeCaseOnHold           TransitionErrorCode = "CASE_ON_HOLD"
	ErrCodePriorStageIncomplete TransitionErrorCode = "PRIOR_STAGE_INCOMPLETE"
	ErrCodeMissingField         TransitionErrorCode = "MISSING_FIELD"
	ErrCodeMissingChargeOption  TransitionErrorCode = "MISSING_CHARGE_OPTION"
	ErrCodeMissingAttachment    TransitionErrorCode = "MISSING_ATTACHMENT"
	ErrCodeInvalidChargeEntity  TransitionErrorCode = "INVALID_CHARGE_ENTITY"
)

// TransitionError is a validation rejection from the workflow engine. All
// variants are recoverable by the caller; transport failures are never
// wrapped in a TransitionError so the two cannot be confused.
type TransitionError struct {
	Code TransitionErrorCode

	// Field is set for MISSING_FIELD so the caller can highlight exactly
	// which input is missing.
	Field FieldName
}

func (e *TransitionError) Error() string {
	if e.Code == ErrCodeMissingField && e.Field != "" {
		return fmt.Sprintf("transition rejected: missing required field %q", string(e.Field))
	}
	return "transition rejected: " + string(e.Code)
}

// Is matches any TransitionError with the same code, so
// errors.Is(err, ErrMissingField) holds regardless of which field is named.
func (e *TransitionError) Is(target error) bool {
	t, ok := target.(*TransitionError)
	return ok && t.Code == e.Code
}

// Sentinel values for errors.Is checks.
var (
	ErrCaseTerminal         = &TransitionError{Code: ErrCodeCaseTerminal}
	ErrCaseOnHold           = &TransitionError{Code: ErrCodeCaseOnHold}
	ErrPriorStageIncomplete = &TransitionError{Code: ErrCodePriorStageIncomplete}
	ErrMissingField         = &TransitionError{Code: ErrCodeMissingField}
	ErrMissingChargeOption  = &TransitionError{Code: ErrCodeMissingChargeOption}
	ErrMissingAttachment    = &TransitionError{Code: ErrCodeMissingAttachment}
	ErrInvalidChargeEntity  = &TransitionError{Code: ErrCodeInvalidChargeEntity}
)

// NewMissingFieldError reports a missing required field by name.
func NewMissingFieldError(f FieldName) *TransitionError {
	return &TransitionError{Code: ErrCodeMissingField, Field: f}
}
