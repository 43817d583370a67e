package eduapi

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/google/uuid"
)

// PendingRequest describes one outbound call. It is owned by the caller and
// may be replayed once by the refresh coordinator.
type PendingRequest struct {
	ID     string
	Method string
	URL    string
	Header http.Header
	Body   []byte

	// Retried is set once the request has been replayed after a credential
	// refresh. A retried request that fails with 401 is not replayed again.
	Retried bool
}

// NewRequest builds a PendingRequest with a fresh request ID.
func NewRequest(method, url string, body []byte) *PendingRequest {
	return &PendingRequest{
		ID:     uuid.NewString(),
		Method: method,
		URL:    url,
		Header: make(http.Header),
		Body:   body,
	}
}

// NewJSONRequest marshals payload and builds a request carrying it.
// A nil payload produces a request without a body.
func NewJSONRequest(method, url string, payload any) (*PendingRequest, error) {
	var body []byte
	if payload != nil {
		var err error
		body, err = json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("marshalling request body: %w", err)
		}
	}
	req := NewRequest(method, url, body)
	req.Header.Set(HeaderAccept, contentTypeJSON)
	if body != nil {
		req.Header.Set(HeaderContentType, contentTypeJSON)
	}
	return req, nil
}

// Response is the transport's view of a completed HTTP exchange.
type Response struct {
	Status  int
	Header  http.Header
	Data    []byte
	Request *PendingRequest
}

// URL returns the URL of the request that produced the response.
func (r *Response) URL() string {
	if r == nil || r.Request == nil {
		return ""
	}
	return r.Request.URL
}

// OK reports whether the status is 2xx.
func (r *Response) OK() bool {
	return r != nil && r.Status >= 200 && r.Status < 300
}

// Decode unmarshals the response body into v.
func (r *Response) Decode(v any) error {
	if len(r.Data) == 0 {
		return fmt.Errorf("decoding response: empty body")
	}
	if err := json.Unmarshal(r.Data, v); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}
