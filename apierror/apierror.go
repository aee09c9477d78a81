// Package apierror provides the structured error envelope shared by the
// access-control middleware.
//
// Errors are Stripe-style: a stable type, a machine-readable code, a
// human-readable message, and optional per-field errors. Responses are
// written as {"error": {...}} so clients can branch on code without parsing
// messages. The sentinel set below is the full taxonomy for this module:
// clients distinguish "log in" (unauthenticated) from "purchase"
// (no_active_grant), and operators can tell a config miss (unknown_app) from
// an infrastructure miss (lookup_failed).
package apierror

import (
	"bytes"
	"encoding/json"
	"net/http"
)

// Error represents a structured API error response.
type Error struct {
	Type    string       `json:"type"`
	Code    string       `json:"code,omitempty"`
	Message string       `json:"message"`
	Param   string       `json:"param,omitempty"`
	Errors  []FieldError `json:"errors,omitempty"`
	Status  int          `json:"-"`
}

// FieldError represents a validation error for a specific field.
type FieldError struct {
	Param   string `json:"param"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type envelope struct {
	Error *Error `json:"error"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	return e.Message
}

// Is implements errors.Is for comparing error types by type and code.
func (e *Error) Is(target error) bool {
	if e == nil {
		return target == nil
	}
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Type == t.Type && e.Code == t.Code
}

// With returns a copy of the error with a custom message.
func (e *Error) With(message string) *Error {
	if e == nil {
		return nil
	}
	dup := *e
	dup.Message = message
	return &dup
}

// WithParam returns a copy of the error with a custom message and parameter.
func (e *Error) WithParam(message, param string) *Error {
	if e == nil {
		return nil
	}
	dup := *e
	dup.Message = message
	dup.Param = param
	return &dup
}

// Sentinel errors covering the module's full error taxonomy.
var (
	ErrBadRequest       = &Error{Type: "request_error", Code: "bad_request", Message: "Bad request", Status: http.StatusBadRequest}
	ErrUnauthenticated  = &Error{Type: "auth_error", Code: "unauthenticated", Message: "Sign in to continue", Status: http.StatusUnauthorized}
	ErrNoActiveGrant    = &Error{Type: "access_error", Code: "no_active_grant", Message: "Purchase required for this app", Status: http.StatusPaymentRequired}
	ErrAdminIPDenied    = &Error{Type: "auth_error", Code: "admin_ip_denied", Message: "Admin access is not allowed from this address", Status: http.StatusForbidden}
	ErrUnknownApp       = &Error{Type: "config_error", Code: "unknown_app", Message: "Unknown app", Status: http.StatusNotFound}
	ErrMethodNotAllowed = &Error{Type: "request_error", Code: "method_not_allowed", Message: "Method not allowed", Status: http.StatusMethodNotAllowed}
	ErrFreeAppPayment   = &Error{Type: "request_error", Code: "free_app_payment", Message: "This app is free and does not accept payments", Status: http.StatusBadRequest}
	ErrRateLimited      = &Error{Type: "rate_limit_error", Code: "limit_exceeded", Message: "Too many requests", Status: http.StatusTooManyRequests}
	ErrLookupFailed     = &Error{Type: "infra_error", Code: "lookup_failed", Message: "Access check unavailable, try again", Status: http.StatusServiceUnavailable}
	ErrInternal         = &Error{Type: "internal_error", Code: "internal", Message: "Internal server error", Status: http.StatusInternalServerError}
)

// NewValidationError creates a validation error with per-field details.
func NewValidationError(errs []FieldError) *Error {
	return &Error{
		Type:    "validation_error",
		Code:    "invalid_request",
		Message: "Validation failed",
		Errors:  errs,
		Status:  http.StatusBadRequest,
	}
}

// Write writes the error as a JSON envelope with the error's status code.
func Write(w http.ResponseWriter, e *Error) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(envelope{Error: e}); err != nil {
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("Internal server error"))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(e.Status)
	w.Write(buf.Bytes())
}
