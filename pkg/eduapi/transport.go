package eduapi

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
)

// Transport performs the actual network call. Implementations return a
// *TransportError when no response was received; any HTTP status,
// including 4xx and 5xx, is a successful Send. A response that cannot be
// read in full is returned as a *ResponseError.
type Transport interface {
	Send(ctx context.Context, req *PendingRequest) (*Response, error)
}

// HTTPTransport is the net/http implementation of Transport.
type HTTPTransport struct {
	client       *http.Client
	maxBodyBytes int64
}

// NewHTTPTransport wraps client. A nil client gets DefaultTimeout; a
// non-positive maxBodyBytes gets DefaultMaxBodyBytes.
func NewHTTPTransport(client *http.Client, maxBodyBytes int64) *HTTPTransport {
	if client == nil {
		client = &http.Client{Timeout: DefaultTimeout}
	}
	if maxBodyBytes <= 0 {
		maxBodyBytes = DefaultMaxBodyBytes
	}
	return &HTTPTransport{client: client, maxBodyBytes: maxBodyBytes}
}

// Send issues req and reads the whole (bounded) response body.
func (t *HTTPTransport) Send(ctx context.Context, req *PendingRequest) (*Response, error) {
	var body io.Reader
	if len(req.Body) > 0 {
		body = bytes.NewReader(req.Body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.URL, body)
	if err != nil {
		return nil, &TransportError{Request: req, Err: fmt.Errorf("creating request: %w", err)}
	}
	for name, values := range req.Header {
		for _, v := range values {
			httpReq.Header.Add(name, v)
		}
	}

	res, err := t.client.Do(httpReq)
	if err != nil {
		return nil, &TransportError{Request: req, Err: err}
	}
	defer res.Body.Close()

	data, err := io.ReadAll(io.LimitReader(res.Body, t.maxBodyBytes+1))
	if err != nil {
		return nil, &TransportError{Request: req, Err: fmt.Errorf("reading response body: %w", err)}
	}

	response := &Response{
		Status:  res.StatusCode,
		Header:  res.Header,
		Data:    data,
		Request: req,
	}
	if int64(len(data)) > t.maxBodyBytes {
		response.Data = nil
		return nil, &ResponseError{Response: response, Err: fmt.Errorf("%w (limit %d bytes)", ErrBodyTooLarge, t.maxBodyBytes)}
	}
	return response, nil
}
