package errs

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a domain error so callers can branch without parsing messages
type Kind string

const (
	KindInvalidDraw         Kind = "invalid_draw"
	KindNotFound            Kind = "not_found"
	KindEmptyArchive        Kind = "empty_archive"
	KindInsufficientData    Kind = "insufficient_data"
	KindInsufficientHistory Kind = "insufficient_history"
	KindModelNotTrained     Kind = "model_not_trained"
	KindTrainingInProgress  Kind = "training_in_progress"
	KindGenerationTimeout   Kind = "generation_timeout"
	KindSimulationOverflow  Kind = "simulation_overflow"
	KindValidation          Kind = "validation"
	KindUnauthorized        Kind = "unauthorized"
	KindRateLimited         Kind = "rate_limited"
	KindInternal            Kind = "internal"
)

// Sentinels for errors.Is comparisons. Any *Error with the same Kind matches.
var (
	ErrInvalidDraw         = &Error{Kind: KindInvalidDraw, Message: "invalid draw"}
	ErrNotFound            = &Error{Kind: KindNotFound, Message: "not found"}
	ErrEmptyArchive        = &Error{Kind: KindEmptyArchive, Message: "no draws in archive"}
	ErrInsufficientData    = &Error{Kind: KindInsufficientData, Message: "not enough data"}
	ErrInsufficientHistory = &Error{Kind: KindInsufficientHistory, Message: "not enough history"}
	ErrModelNotTrained     = &Error{Kind: KindModelNotTrained, Message: "models are not trained"}
	ErrTrainingInProgress  = &Error{Kind: KindTrainingInProgress, Message: "training already in progress"}
	ErrGenerationTimeout   = &Error{Kind: KindGenerationTimeout, Message: "generation attempts exhausted"}
	ErrSimulationOverflow  = &Error{Kind: KindSimulationOverflow, Message: "trial count exceeds limit"}
	ErrValidation          = &Error{Kind: KindValidation, Message: "validation failed"}
	ErrUnauthorized        = &Error{Kind: KindUnauthorized, Message: "unauthorized"}
	ErrRateLimited         = &Error{Kind: KindRateLimited, Message: "too many requests"}
	ErrInternal            = &Error{Kind: KindInternal, Message: "internal error"}
)

// Error is a domain error carrying a Kind and a human-readable message
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports kind equality so wrapped domain errors match the package sentinels
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// New creates an error of the given kind
func New(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates an error of the given kind around a cause
func Wrap(kind Kind, err error, message string) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf returns the kind of the first *Error in err's chain, or KindInternal
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Detail returns the message meant for API callers. Non-domain errors are hidden.
func Detail(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return "An unexpected error occurred"
}

// HTTPStatus maps an error to the status code reported at the API boundary
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindValidation, KindInvalidDraw, KindInsufficientData, KindInsufficientHistory,
		KindModelNotTrained, KindSimulationOverflow:
		return http.StatusBadRequest
	case KindNotFound, KindEmptyArchive:
		return http.StatusNotFound
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindTrainingInProgress:
		return http.StatusConflict
	case KindRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}
