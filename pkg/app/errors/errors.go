// Package errors maps relayer failures onto HTTP-facing service errors
package errors

import (
	"errors"
	"net/http"

	"github.com/chainsafe/stacks-relayer/pkg/bridge"
	"github.com/chainsafe/stacks-relayer/pkg/ethereum"
)

// Category defines error category
type Category int

const (
	// CategoryGeneralError The service failed in an unexpected way
	CategoryGeneralError Category = iota
	// CategoryDataError The client sent invalid data in the request
	CategoryDataError
	// CategoryResourceNotFound The requested resource does not exist
	CategoryResourceNotFound
	// CategoryDataConflict The request conflicts with existing state, e.g. an already relayed message
	CategoryDataConflict
	// CategoryDependencyFailure A chain endpoint or store is failing
	CategoryDependencyFailure
	// CategoryUnavailable The relayer refuses work in its current state
	CategoryUnavailable
)

func (c Category) String() string {
	switch c {
	case CategoryDataError:
		return "CategoryDataError"
	case CategoryResourceNotFound:
		return "CategoryResourceNotFound"
	case CategoryDataConflict:
		return "CategoryDataConflict"
	case CategoryDependencyFailure:
		return "CategoryDependencyFailure"
	case CategoryUnavailable:
		return "CategoryUnavailable"
	default:
		return "CategoryGeneralError"
	}
}

// ServiceError carries a client-facing message and the underlying cause
type ServiceError struct {
	Category Category
	Message  string
	Err      error
}

// Error method to comply with error interface
func (err ServiceError) Error() string {
	if err.Err != nil {
		return err.Err.Error()
	}
	return err.Message
}

// Unwrap returns the underlying error
func (err ServiceError) Unwrap() error {
	return err.Err
}

// StatusCode returns the HTTP status code for the error category
func (err ServiceError) StatusCode() int {
	switch err.Category {
	case CategoryDataError:
		return http.StatusBadRequest
	case CategoryResourceNotFound:
		return http.StatusNotFound
	case CategoryDataConflict:
		return http.StatusConflict
	case CategoryDependencyFailure:
		return http.StatusBadGateway
	case CategoryUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Is checks that provided error is a ServiceError with desired Category
func Is(err error, cat Category) bool {
	var svcErr *ServiceError
	return errors.As(err, &svcErr) && svcErr.Category == cat
}

func newError(cat Category, err error, message string) error {
	if err == nil {
		err = errors.New(message)
	}
	return &ServiceError{Category: cat, Message: message, Err: err}
}

// GeneralError hides err behind "Internal Server Error"
func GeneralError(err error) error {
	return newError(CategoryGeneralError, err, "Internal Server Error")
}

// BadRequestError returns an error with category DataError
func BadRequestError(err error, message string) error {
	return newError(CategoryDataError, err, message)
}

// ResourceNotFoundError returns an error with category ResourceNotFound
func ResourceNotFoundError(err error, message string) error {
	return newError(CategoryResourceNotFound, err, message)
}

// ConflictError returns an error with category DataConflict
func ConflictError(err error, message string) error {
	return newError(CategoryDataConflict, err, message)
}

// DependencyError returns an error with category DependencyFailure
func DependencyError(err error, message string) error {
	return newError(CategoryDependencyFailure, err, message)
}

// UnavailableError returns an error with category Unavailable
func UnavailableError(err error, message string) error {
	return newError(CategoryUnavailable, err, message)
}

// FromRelayer classifies an error returned by the relayer core.
// The message keeps the cause text since it never carries secrets.
func FromRelayer(err error) error {
	if err == nil {
		return nil
	}
	var svcErr *ServiceError
	if errors.As(err, &svcErr) {
		return err
	}

	switch {
	case errors.Is(err, bridge.ErrValidation):
		return BadRequestError(err, err.Error())
	case errors.Is(err, ethereum.ErrAlreadyProcessed):
		return ConflictError(err, err.Error())
	case errors.Is(err, bridge.ErrPreflight):
		return UnavailableError(err, err.Error())
	case errors.Is(err, bridge.ErrFatalStartup),
		errors.Is(err, bridge.ErrTransientNetwork),
		errors.Is(err, bridge.ErrSubmission):
		return DependencyError(err, err.Error())
	default:
		return GeneralError(err)
	}
}
