package eduapi

import (
	"errors"
	"fmt"
)

// Sentinel errors. They appear in the Cause chain of mapped errors and can
// be matched with errors.Is.
var (
	// ErrSessionExpired marks a terminal refresh failure: the credential
	// has been cleared and the user must sign in again.
	ErrSessionExpired = errors.New("session expired")
	// ErrMalformedCredential is reported when the refresh endpoint answers
	// 200 without a usable accessToken.
	ErrMalformedCredential = errors.New("refresh response did not contain an access token")
	// ErrBodyTooLarge is reported when a response body exceeds the
	// transport's size limit.
	ErrBodyTooLarge = errors.New("response body too large")
)

// ErrorCode is the stable, machine-readable class of an AppError.
type ErrorCode string

const (
	CodeServerError ErrorCode = "SERVER_ERROR"
	CodeDomainError ErrorCode = "DOMAIN_ERROR"
)

// ErrorContext carries optional HTTP details of a failure.
type ErrorContext struct {
	StatusCode int    `json:"statusCode,omitempty"`
	Path       string `json:"path,omitempty"`
}

// AppError is the root of the error taxonomy. Callers normally receive one
// of its two concrete forms, *DomainError or *ServerError, and should use
// errors.As to tell them apart.
type AppError struct {
	Message string
	Code    ErrorCode
	Context *ErrorContext // nil when the failure had no HTTP context
	Cause   error
}

func (e *AppError) Error() string {
	if e.Message == "" {
		return string(e.Code)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// StatusCode returns the HTTP status recorded in the context, or 0.
func (e *AppError) StatusCode() int {
	if e.Context == nil {
		return 0
	}
	return e.Context.StatusCode
}

func (e *AppError) appError() *AppError { return e }

// mappedError is implemented by *DomainError and *ServerError only.
type mappedError interface {
	error
	appError() *AppError
}

// DomainError is a client-correctable validation failure: the server
// rejected one or more fields of the request.
type DomainError struct {
	AppError
	// Details maps each offending field to its validation messages.
	Details map[string][]string
	// Fields lists the keys of Details in the order the server sent them.
	Fields []string
}

// NewDomainError builds a DomainError. The first entry of fields becomes
// the message.
func NewDomainError(fields []string, details map[string][]string, ctx *ErrorContext, cause error) *DomainError {
	msg := ""
	if len(fields) > 0 {
		msg = fields[0]
	}
	return &DomainError{
		AppError: AppError{Message: msg, Code: CodeDomainError, Context: ctx, Cause: cause},
		Details:  details,
		Fields:   fields,
	}
}

// ServerError covers everything that is not a field validation failure:
// unreachable network, 5xx, problem responses, unparseable payloads and
// refresh failures.
type ServerError struct {
	AppError
}

// NewServerError builds a ServerError.
func NewServerError(message string, ctx *ErrorContext, cause error) *ServerError {
	return &ServerError{AppError: AppError{Message: message, Code: CodeServerError, Context: ctx, Cause: cause}}
}

// TransportError is a failure that produced no HTTP response at all.
type TransportError struct {
	Request *PendingRequest
	Err     error
}

func (e *TransportError) Error() string {
	if e.Request == nil {
		return fmt.Sprintf("transport failure: %v", e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Request.Method, e.Request.URL, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// ResponseError wraps a response whose status the pipeline does not accept.
// Err optionally carries the reason the response was rejected.
type ResponseError struct {
	Response *Response
	Err      error
}

func (e *ResponseError) Error() string {
	status := 0
	url := ""
	if e.Response != nil {
		status = e.Response.Status
		url = e.Response.URL()
	}
	if e.Err != nil {
		return fmt.Sprintf("request to %s failed with status %d: %v", url, status, e.Err)
	}
	return fmt.Sprintf("request to %s failed with status %d", url, status)
}

func (e *ResponseError) Unwrap() error {
	return e.Err
}
