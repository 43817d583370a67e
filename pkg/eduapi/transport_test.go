package eduapi

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPTransportSend(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/courses", r.URL.Path)
		assert.Equal(t, "Bearer abc", r.Header.Get(HeaderAuthorization))
		body, _ := io.ReadAll(r.Body)
		assert.JSONEq(t, `{"title":"Go 101"}`, string(body))

		w.Header().Set("X-Echo", "yes")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":7}`))
	}))
	defer server.Close()

	req, err := NewJSONRequest(http.MethodPost, server.URL+"/api/courses", map[string]string{"title": "Go 101"})
	require.NoError(t, err)
	req.Header.Set(HeaderAuthorization, "Bearer abc")

	res, err := NewHTTPTransport(server.Client(), 0).Send(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, res.Status)
	assert.Equal(t, "yes", res.Header.Get("X-Echo"))
	assert.JSONEq(t, `{"id":7}`, string(res.Data))
	assert.Same(t, req, res.Request)
	assert.True(t, res.OK())
}

func TestHTTPTransportErrorStatusIsNotAnError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	res, err := NewHTTPTransport(nil, 0).Send(context.Background(), NewRequest(http.MethodGet, server.URL, nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusInternalServerError, res.Status)
	assert.False(t, res.OK())
}

func TestHTTPTransportRejectsOversizedBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"items":["` + strings.Repeat("x", 64) + `"]}`))
	}))
	defer server.Close()

	res, err := NewHTTPTransport(server.Client(), 32).Send(context.Background(), NewRequest(http.MethodGet, server.URL, nil))
	assert.Nil(t, res)
	require.ErrorIs(t, err, ErrBodyTooLarge)

	var re *ResponseError
	require.True(t, errors.As(err, &re), "expected *ResponseError, got %T", err)
	assert.Equal(t, http.StatusOK, re.Response.Status)
	assert.Empty(t, re.Response.Data)

	var se *ServerError
	require.True(t, errors.As(MapFailure(err), &se))
	assert.Equal(t, http.StatusOK, se.StatusCode())
	assert.ErrorIs(t, se, ErrBodyTooLarge)
}

func TestHTTPTransportAcceptsBodyAtLimit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(strings.Repeat("x", 16)))
	}))
	defer server.Close()

	res, err := NewHTTPTransport(server.Client(), 16).Send(context.Background(), NewRequest(http.MethodGet, server.URL, nil))
	require.NoError(t, err)
	assert.Len(t, res.Data, 16)
}

func TestHTTPTransportUnreachableServer(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	req := NewRequest(http.MethodGet, url, nil)
	_, err := NewHTTPTransport(nil, 0).Send(context.Background(), req)

	var te *TransportError
	require.True(t, errors.As(err, &te), "expected *TransportError, got %T", err)
	assert.Same(t, req, te.Request)

	mapped := MapFailure(err)
	assert.EqualError(t, mapped, MessageNetworkError)
}

func TestHTTPTransportInvalidRequest(t *testing.T) {
	_, err := NewHTTPTransport(nil, 0).Send(context.Background(), NewRequest("BAD METHOD", "http://example.test", nil))

	var te *TransportError
	require.True(t, errors.As(err, &te))
	assert.Contains(t, te.Error(), "creating request")
}

func TestResponseDecode(t *testing.T) {
	var out struct {
		ID int `json:"id"`
	}
	require.NoError(t, (&Response{Data: []byte(`{"id":3}`)}).Decode(&out))
	assert.Equal(t, 3, out.ID)

	assert.Error(t, (&Response{}).Decode(&out))
	assert.Error(t, (&Response{Data: []byte(`<html>`)}).Decode(&out))
	assert.Empty(t, (*Response)(nil).URL())
}

func TestClientGetReportsOversizedBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"items":["` + strings.Repeat("x", 64) + `"]}`))
	}))
	defer server.Close()

	client := NewClient(Options{BaseURL: server.URL, HTTPClient: server.Client(), MaxBodyBytes: 32})

	var out map[string]any
	err := client.Get(context.Background(), "/api/courses", &out)

	assert.ErrorIs(t, err, ErrBodyTooLarge)
	assert.NotContains(t, err.Error(), "decoding response")
	assert.Nil(t, out)
}
