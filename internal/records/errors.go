package records

import (
	"errors"
	"fmt"
)

// ErrorKind classifies service failures so callers can map them to transport
// responses without matching on error strings.
type ErrorKind int

const (
	// ErrorKindStorage marks failures of the underlying store.
	ErrorKindStorage ErrorKind = iota
	// ErrorKindValidation marks rejected input; the whole batch is refused.
	ErrorKindValidation
	// ErrorKindNotFound marks a missing row on the read path.
	ErrorKindNotFound
)

// ServiceError carries a stable operation.reason code alongside the cause.
type ServiceError struct {
	code string
	kind ErrorKind
	err  error
}

func (e *ServiceError) Error() string {
	if e.err == nil {
		return e.code
	}
	return fmt.Sprintf("%s: %v", e.code, e.err)
}

func (e *ServiceError) Unwrap() error {
	return e.err
}

// Code returns the stable operation.reason identifier.
func (e *ServiceError) Code() string {
	return e.code
}

// Kind returns the failure classification.
func (e *ServiceError) Kind() ErrorKind {
	return e.kind
}

func newServiceError(kind ErrorKind, operation, reason string, cause error) error {
	code := fmt.Sprintf("%s.%s", operation, reason)
	return &ServiceError{code: code, kind: kind, err: cause}
}

func newValidationError(operation, reason string, cause error) error {
	return newServiceError(ErrorKindValidation, operation, reason, cause)
}

func newStorageError(operation, reason string, cause error) error {
	return newServiceError(ErrorKindStorage, operation, reason, cause)
}

func newNotFoundError(operation, reason string, cause error) error {
	return newServiceError(ErrorKindNotFound, operation, reason, cause)
}

// KindOf extracts the classification from a service error, defaulting to
// storage for anything unrecognized.
func KindOf(err error) ErrorKind {
	var serviceErr *ServiceError
	if errors.As(err, &serviceErr) {
		return serviceErr.Kind()
	}
	return ErrorKindStorage
}
