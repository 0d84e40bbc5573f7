package errs

import (
	"errors"
	"fmt"
)

// Machine readable codes carried by ValidationError and ConflictError.
const (
	CodeInvalidInput               = "invalid_input"
	CodeAllocationExceedsRemaining = "allocation_exceeds_remaining"
	CodeEnvelopeWouldGoNegative    = "envelope_would_go_negative"
	CodeInvalidAmountSign          = "invalid_amount_sign"
	CodeEnvelopeNotEmpty           = "envelope_not_empty"
	CodeAlreadyFullyAllocated      = "already_fully_allocated"
	CodeMustAllocateOldestFirst    = "must_allocate_oldest_first"
)

type ErrorMessage struct {
	Message string
}

func (e *ErrorMessage) Error() string { return e.Message }

type NotFoundError struct {
	ErrorMessage
}

type AlreadyExistsError struct {
	ErrorMessage
}

// ValidationError is returned before any mutation when the caller's input is rejected.
type ValidationError struct {
	ErrorMessage
	Code    string
	Details map[string]any
}

// ConflictError reports a request that is well formed but incompatible with current ledger state.
type ConflictError struct {
	ErrorMessage
	Code    string
	Details map[string]any
}

type DatabaseError struct {
	ErrorMessage
	Operation string
	Err       error
}

func (e *DatabaseError) Unwrap() error { return e.Err }

// ExternalServiceError wraps a failed call to a third party such as Plaid.
// Transient errors are safe to retry.
type ExternalServiceError struct {
	ErrorMessage
	Service   string
	Transient bool
	Err       error
}

func (e *ExternalServiceError) Unwrap() error { return e.Err }

type EncryptionError struct {
	ErrorMessage
	Err error
}

func (e *EncryptionError) Unwrap() error { return e.Err }

func NewNotFoundError(message string) *NotFoundError {
	return &NotFoundError{
		ErrorMessage: ErrorMessage{Message: message},
	}
}

func NewAlreadyExistsError(message string) *AlreadyExistsError {
	return &AlreadyExistsError{
		ErrorMessage: ErrorMessage{Message: message},
	}
}

func NewValidationError(message string) *ValidationError {
	return &ValidationError{
		ErrorMessage: ErrorMessage{Message: message},
		Code:         CodeInvalidInput,
	}
}

func NewValidationErrorWithDetails(code, message string, details map[string]any) *ValidationError {
	return &ValidationError{
		ErrorMessage: ErrorMessage{Message: message},
		Code:         code,
		Details:      details,
	}
}

func NewConflictError(code, message string, details map[string]any) *ConflictError {
	return &ConflictError{
		ErrorMessage: ErrorMessage{Message: message},
		Code:         code,
		Details:      details,
	}
}

func NewDatabaseError(operation, message string, err error) *DatabaseError {
	if err != nil {
		message = fmt.Sprintf("%s: %v", message, err)
	}
	return &DatabaseError{
		ErrorMessage: ErrorMessage{Message: message},
		Operation:    operation,
		Err:          err,
	}
}

func NewExternalServiceError(service, message string, transient bool, err error) *ExternalServiceError {
	if err != nil {
		message = fmt.Sprintf("%s: %v", message, err)
	}
	return &ExternalServiceError{
		ErrorMessage: ErrorMessage{Message: message},
		Service:      service,
		Transient:    transient,
		Err:          err,
	}
}

func NewEncryptionError(message string, err error) *EncryptionError {
	if err != nil {
		message = fmt.Sprintf("%s: %v", message, err)
	}
	return &EncryptionError{
		ErrorMessage: ErrorMessage{Message: message},
		Err:          err,
	}
}

// IsDomain reports whether err already belongs to the taxonomy above and
// should be passed through without further wrapping.
func IsDomain(err error) bool {
	var (
		notFound   *NotFoundError
		exists     *AlreadyExistsError
		validation *ValidationError
		conflict   *ConflictError
		database   *DatabaseError
		external   *ExternalServiceError
		encryption *EncryptionError
	)
	return errors.As(err, &notFound) ||
		errors.As(err, &exists) ||
		errors.As(err, &validation) ||
		errors.As(err, &conflict) ||
		errors.As(err, &database) ||
		errors.As(err, &external) ||
		errors.As(err, &encryption)
}
