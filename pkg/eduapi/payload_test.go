package eduapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func responseFailure(status int, body string) *ResponseError {
	req := NewRequest(http.MethodPost, "https://api.example.test/api/courses", nil)
	return &ResponseError{Response: &Response{Status: status, Data: []byte(body), Request: req}}
}

func TestMapFailureValidationPayload(t *testing.T) {
	raw := responseFailure(400, `{
		"type": "https://tools.ietf.org/html/rfc9110#section-15.5.1",
		"title": "One or more validation errors occurred.",
		"status": 400,
		"errors": {
			"Title": ["The Title field is required."],
			"Capacity": ["Must be positive.", "Must be below 500."]
		},
		"traceId": "00-4bf92f3577b34da6-00"
	}`)

	err := MapFailure(raw)

	var de *DomainError
	require.True(t, errors.As(err, &de), "expected *DomainError, got %T", err)
	assert.Equal(t, CodeDomainError, de.Code)
	assert.Equal(t, "Title", de.Message)
	assert.Equal(t, map[string][]string{
		"Title":    {"The Title field is required."},
		"Capacity": {"Must be positive.", "Must be below 500."},
	}, de.Details)
	assert.Equal(t, []string{"Title", "Capacity"}, de.Fields)
	require.NotNil(t, de.Context)
	assert.Equal(t, "https://api.example.test/api/courses", de.Context.Path)
	assert.Equal(t, 400, de.Context.StatusCode)
	assert.Same(t, raw, de.Cause)
}

func TestMapFailureValidationMessageFollowsDocumentOrder(t *testing.T) {
	err := MapFailure(responseFailure(422, `{"type":"t","title":"Invalid","status":422,
		"errors":{"zeta":["z"],"alpha":["a"],"mid":[]}}`))

	var de *DomainError
	require.True(t, errors.As(err, &de))
	assert.Equal(t, "zeta", de.Message)
	assert.Equal(t, []string{"zeta", "alpha", "mid"}, de.Fields)
	assert.Empty(t, de.Details["mid"])
}

func TestMapFailureValidationWithEmptyErrorsUsesTitle(t *testing.T) {
	err := MapFailure(responseFailure(400, `{"type":"t","title":"Invalid request","status":400,"errors":{}}`))

	var de *DomainError
	require.True(t, errors.As(err, &de))
	assert.Equal(t, "Invalid request", de.Message)
	assert.Empty(t, de.Details)
}

func TestMapFailureValidationContextUsesResponseStatus(t *testing.T) {
	err := MapFailure(responseFailure(422, `{"type":"t","title":"Invalid","status":400,"errors":{"name":["bad"]}}`))

	var de *DomainError
	require.True(t, errors.As(err, &de))
	require.NotNil(t, de.Context)
	assert.Equal(t, 422, de.Context.StatusCode)
}

func TestMapFailureRepeatedKeyKeepsLastValue(t *testing.T) {
	err := MapFailure(responseFailure(500, `{"title":"T","status":500,"detail":"first","instance":"/i","detail":"last"}`))

	var se *ServerError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, "last", se.Message)
}

func TestMapFailureProblemDetails(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		message string
	}{
		{
			name:    "detail wins",
			body:    `{"title":"Not Found","status":404,"detail":"Course 42 does not exist.","instance":"/api/courses/42"}`,
			message: "Course 42 does not exist.",
		},
		{
			name:    "empty detail falls back to title",
			body:    `{"title":"Not Found","status":404,"detail":"","instance":"/api/courses/42"}`,
			message: "Not Found",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := MapFailure(responseFailure(404, tt.body))

			var se *ServerError
			require.True(t, errors.As(err, &se), "expected *ServerError, got %T", err)
			assert.Equal(t, CodeServerError, se.Code)
			assert.Equal(t, tt.message, se.Message)
			require.NotNil(t, se.Context)
			assert.Equal(t, 404, se.Context.StatusCode)
			assert.Equal(t, "/api/courses/42", se.Context.Path)
		})
	}
}

func TestMapFailureFallbacks(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"unknown object", 502, `{"message":"bad gateway"}`},
		{"html body", 500, `<html><body>Internal Server Error</body></html>`},
		{"empty body", 503, ``},
		{"errors value not a string list", 400, `{"type":"t","title":"x","status":400,"errors":{"name":[1,2]}}`},
		{"status is a string", 400, `{"type":"t","title":"x","status":"400","errors":{"name":["bad"]}}`},
		{"problem missing instance", 409, `{"title":"Conflict","status":409,"detail":"Already enrolled"}`},
		{"truncated problem", 500, `{"title":"T","status":500,"detail":"D","instance":"/i"`},
		{"truncated validation", 400, `{"type":"t","title":"x","status":400,"errors":{"name":["bad"]}`},
		{"top-level array", 400, `[{"title":"T","status":500,"detail":"D","instance":"/i"}]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := responseFailure(tt.status, tt.body)
			err := MapFailure(raw)

			var se *ServerError
			require.True(t, errors.As(err, &se), "expected *ServerError, got %T", err)
			assert.Equal(t, raw.Error(), se.Message)
			require.NotNil(t, se.Context)
			assert.Equal(t, tt.status, se.Context.StatusCode)
			assert.Empty(t, se.Context.Path)
		})
	}
}

func TestMapFailureTransportError(t *testing.T) {
	cause := errors.New("dial tcp 127.0.0.1:1: connect: connection refused")
	raw := &TransportError{Request: NewRequest(http.MethodGet, "http://127.0.0.1:1/", nil), Err: cause}

	err := MapFailure(raw)

	var se *ServerError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, MessageNetworkError, se.Message)
	assert.Nil(t, se.Context)
	assert.ErrorIs(t, err, cause)
}

func TestMapFailureIsIdempotent(t *testing.T) {
	first := MapFailure(responseFailure(400, `{"type":"t","title":"x","status":400,"errors":{"email":["taken"]}}`))

	assert.Same(t, first, MapFailure(first))
	assert.Same(t, first, MapFailure(fmt.Errorf("enrolling: %w", first)))

	server := NewServerError("boom", nil, nil)
	assert.Same(t, server, MapFailure(server))
}

func TestMapFailureGenericErrors(t *testing.T) {
	err := MapFailure(nil)
	var se *ServerError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, MessageUnexpected, se.Message)
	assert.Nil(t, se.Context)

	err = MapFailure(context.Canceled)
	require.True(t, errors.As(err, &se))
	assert.Equal(t, "context canceled", se.Message)
	assert.Nil(t, se.Context)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestAsAppError(t *testing.T) {
	app, ok := AsAppError(fmt.Errorf("wrapped: %w", NewServerError("boom", &ErrorContext{StatusCode: 500}, nil)))
	require.True(t, ok)
	assert.Equal(t, CodeServerError, app.Code)
	assert.Equal(t, 500, app.StatusCode())

	_, ok = AsAppError(errors.New("plain"))
	assert.False(t, ok)
}

func TestAppErrorFormatting(t *testing.T) {
	assert.Equal(t, "SERVER_ERROR", (&AppError{Code: CodeServerError}).Error())
	assert.Equal(t, 0, (&AppError{}).StatusCode())

	de := NewDomainError([]string{"email"}, map[string][]string{"email": {"taken"}}, nil, nil)
	assert.Equal(t, "email", de.Error())
}
