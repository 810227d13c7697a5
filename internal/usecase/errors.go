package usecase

import (
	"errors"
	"fmt"
)

type ErrorCode string

const (
	ErrorInvalidInput       ErrorCode = "INVALID_INPUT"
	ErrorInvalidQuestion    ErrorCode = "INVALID_QUESTION"
	ErrorNotFound           ErrorCode = "NOT_FOUND"
	ErrorConflict           ErrorCode = "CONFLICT"
	ErrorUpstream           ErrorCode = "UPSTREAM_ERROR"
	ErrorServiceUnavailable ErrorCode = "SERVICE_UNAVAILABLE"
	ErrorInternal           ErrorCode = "INTERNAL_ERROR"
)

// Reasons attached to service errors. The handler keys user-facing bodies on
// these, so they are part of the package contract.
const (
	ReasonBothUnavailable  = "both_providers_unavailable"
	ReasonNoProvider       = "no_provider_configured"
	ReasonProviderFailed   = "provider_failed"
	ReasonCredentialLoad   = "credential_load_error"
	ReasonEmptyMessage     = "empty_message"
	ReasonMessagesRequired = "messages_required"
	ReasonTurnInFlight     = "turn_in_flight"
	ReasonSessionNotFound  = "session_not_found"
)

type Error struct {
	Code   ErrorCode
	Reason string
	Err    error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err == nil {
		return fmt.Sprintf("usecase: %s (%s)", e.Code, e.Reason)
	}
	return fmt.Sprintf("usecase: %s (%s): %v", e.Code, e.Reason, e.Err)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func newError(code ErrorCode, reason string, err error) *Error {
	return &Error{Code: code, Reason: reason, Err: err}
}

// AsError extracts the classified error from err, if there is one.
func AsError(err error) (*Error, bool) {
	var ue *Error
	if !errors.As(err, &ue) {
		return nil, false
	}
	return ue, true
}

// Cause returns the wrapped error's message, or the code when nothing is
// wrapped.
func (e *Error) Cause() string {
	if e == nil {
		return ""
	}
	if e.Err == nil {
		return string(e.Code)
	}
	return e.Err.Error()
}
