package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Error represents a typed domain error with HTTP awareness.
type Error struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Status  int         `json:"status"`
	Details interface{} `json:"details,omitempty"`
	Err     error       `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is matches errors sharing the same code so cloned sentinels still satisfy errors.Is.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) || e == nil || t == nil {
		return false
	}
	return e.Code == t.Code
}

// New creates a new Error instance.
func New(code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message}
}

// Wrap attaches context to an existing error.
func Wrap(err error, code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message, Err: err}
}

// Predefined errors for common scenarios.
var (
	ErrNotFound           = New("NOT_FOUND", http.StatusNotFound, "resource not found")
	ErrForbidden          = New("FORBIDDEN", http.StatusForbidden, "forbidden")
	ErrUnauthorized       = New("UNAUTHORIZED", http.StatusUnauthorized, "unauthorized")
	ErrConflict           = New("CONFLICT", http.StatusConflict, "conflict")
	ErrPreconditionFailed = New("PRECONDITION_FAILED", http.StatusPreconditionFailed, "precondition failed")
	ErrValidation         = New("VALIDATION_ERROR", http.StatusBadRequest, "validation failed")
	ErrInternal           = New("INTERNAL_ERROR", http.StatusInternalServerError, "internal server error")
	ErrCacheMiss          = New("CACHE_MISS", http.StatusNotFound, "cache miss")
)

// Scheduling errors.
var (
	ErrNoSections             = New("NO_SECTIONS", http.StatusNotFound, "no active sections found for term")
	ErrNoClassrooms           = New("NO_CLASSROOMS", http.StatusNotFound, "no active classrooms available")
	ErrUnsatisfiable          = New("UNSATISFIABLE_CONSTRAINTS", http.StatusConflict, "Unable to generate schedule — constraints cannot be satisfied")
	ErrSearchBudgetExceeded   = New("SEARCH_BUDGET_EXCEEDED", http.StatusServiceUnavailable, "schedule search budget exceeded")
	ErrInvalidTimeFormat      = New("INVALID_TIME_FORMAT", http.StatusBadRequest, "invalid time format")
	ErrScheduleGenerationBusy = New("SCHEDULE_GENERATION_BUSY", http.StatusConflict, "schedule generation already running for term")
)

// Enrollment errors.
var (
	ErrSectionNotFound      = New("SECTION_NOT_FOUND", http.StatusNotFound, "section not found")
	ErrAlreadyEnrolled      = New("ALREADY_ENROLLED", http.StatusConflict, "student already enrolled in section")
	ErrSectionFull          = New("SECTION_FULL", http.StatusConflict, "section is full")
	ErrPrerequisitesNotMet  = New("PREREQUISITES_NOT_MET", http.StatusPreconditionFailed, "prerequisites not met")
	ErrScheduleConflict     = New("SCHEDULE_CONFLICT", http.StatusConflict, "schedule conflict")
	ErrDropPeriodEnded      = New("DROP_PERIOD_ENDED", http.StatusPreconditionFailed, "drop period has ended")
	ErrInvalidStatus        = New("INVALID_STATUS", http.StatusPreconditionFailed, "enrollment status does not allow this action")
	ErrNotEnrollmentOwner   = New("NOT_ENROLLMENT_OWNER", http.StatusForbidden, "enrollment does not belong to student")
	ErrEnrollmentNotFound   = New("NOT_FOUND", http.StatusNotFound, "enrollment not found")
	ErrSectionInactive      = New("SECTION_INACTIVE", http.StatusPreconditionFailed, "section is not active")
	ErrUnsupportedExportFmt = New("UNSUPPORTED_FORMAT", http.StatusBadRequest, "unsupported export format")
)

// FromError normalises any error into an *Error.
func FromError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Wrap(err, ErrInternal.Code, ErrInternal.Status, ErrInternal.Message)
}

// Clone returns a copy of the error allowing for message overrides.
func Clone(err *Error, message string) *Error {
	if err == nil {
		return nil
	}
	clone := *err
	if message != "" {
		clone.Message = message
	}
	return &clone
}

// WithDetails returns a copy carrying structured details for the caller.
func WithDetails(err *Error, message string, details interface{}) *Error {
	clone := Clone(err, message)
	if clone != nil {
		clone.Details = details
	}
	return clone
}
