package eduapi

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/buger/jsonparser"
	"github.com/google/uuid"
	"github.com/tonimelisma/eduapi-client/internal/logger"
)

// Options configures a Client. Only BaseURL is required.
type Options struct {
	BaseURL     string
	RefreshPath string // defaults to DefaultRefreshPath
	LoginPath   string // defaults to DefaultLoginPath

	// Transport performs the network calls. When nil an HTTPTransport is
	// built from HTTPClient and MaxBodyBytes.
	Transport    Transport
	HTTPClient   *http.Client
	MaxBodyBytes int64

	// Store holds the credential. Defaults to an empty MemoryStore.
	Store CredentialStore
	// StrictCredentials fails requests whose credential cannot be read
	// instead of sending them unauthenticated.
	StrictCredentials bool

	// OnSessionExpired is invoked once per terminal refresh failure, e.g.
	// to send the user back to sign-in.
	OnSessionExpired func()

	Logger logger.Logger
}

// Client is a stateful client for the platform's REST API. It attaches the
// stored credential to every request, refreshes it when the server answers
// 401 and maps every failure to a *DomainError or *ServerError.
type Client struct {
	baseURL     string
	loginURL    string
	transport   Transport
	store       CredentialStore
	augmenter   *Augmenter
	coordinator *RefreshCoordinator
	logger      logger.Logger

	mu      sync.RWMutex // guards headers
	headers http.Header
}

// NewClient creates a Client from opts.
func NewClient(opts Options) *Client {
	l := opts.Logger
	if l == nil {
		l = logger.NoopLogger{}
	}
	store := opts.Store
	if store == nil {
		store = NewMemoryStore("")
	}
	transport := opts.Transport
	if transport == nil {
		transport = NewHTTPTransport(opts.HTTPClient, opts.MaxBodyBytes)
	}
	refreshPath := opts.RefreshPath
	if refreshPath == "" {
		refreshPath = DefaultRefreshPath
	}
	loginPath := opts.LoginPath
	if loginPath == "" {
		loginPath = DefaultLoginPath
	}

	c := &Client{
		baseURL:   strings.TrimRight(opts.BaseURL, "/"),
		transport: transport,
		store:     store,
		logger:    l,
		headers:   make(http.Header),
	}
	c.loginURL = c.URL(loginPath)

	c.augmenter = NewAugmenter(store, l)
	c.augmenter.Strict = opts.StrictCredentials

	c.coordinator = NewRefreshCoordinator(CoordinatorConfig{
		Transport:  transport,
		Store:      store,
		RefreshURL: c.URL(refreshPath),
		Dispatch:   c.Do,
		OnRefreshed: func(credential string) {
			c.SetDefaultHeader(HeaderAuthorization, bearer(credential))
		},
		OnCleared: func() {
			c.DeleteDefaultHeader(HeaderAuthorization)
		},
		OnSessionExpired: opts.OnSessionExpired,
		Logger:           l,
	})
	return c
}

// Coordinator exposes the client's refresh coordinator.
func (c *Client) Coordinator() *RefreshCoordinator {
	return c.coordinator
}

// URL resolves path against the base URL. Absolute URLs are returned as is.
func (c *Client) URL(path string) string {
	if u, err := url.Parse(path); err == nil && u.IsAbs() {
		return path
	}
	return c.baseURL + "/" + strings.TrimLeft(path, "/")
}

// SetDefaultHeader sets a header sent with every future request that does
// not set it itself.
func (c *Client) SetDefaultHeader(name, value string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.headers.Set(name, value)
}

// DeleteDefaultHeader removes a default header.
func (c *Client) DeleteDefaultHeader(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.headers.Del(name)
}

// DefaultHeader returns the current value of a default header.
func (c *Client) DefaultHeader(name string) string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.headers.Get(name)
}

func (c *Client) applyDefaults(req *PendingRequest) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for name, values := range c.headers {
		if req.Header.Get(name) == "" && len(values) > 0 {
			req.Header.Set(name, values[0])
		}
	}
}

// Do sends req through the pipeline: default headers, credential
// augmentation, transport, and 401 handling. Errors are always a
// *DomainError or *ServerError.
func (c *Client) Do(ctx context.Context, req *PendingRequest) (*Response, error) {
	if req.Header == nil {
		req.Header = make(http.Header)
	}
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	req.Header.Set(HeaderRequestID, req.ID)
	c.applyDefaults(req)

	if err := c.augmenter.Augment(req); err != nil {
		return nil, err
	}

	log := c.logger.With("request_id", req.ID)
	log.Debug("dispatching request", "method", req.Method, "url", req.URL, "retried", req.Retried)

	res, err := c.transport.Send(ctx, req)
	if err != nil {
		mapped := MapFailure(err)
		log.Debug("request failed", "error", err)
		return nil, mapped
	}
	log.Debug("received response", "status", res.Status)

	switch {
	case res.OK():
		return res, nil
	case res.Status == http.StatusUnauthorized:
		return c.coordinator.HandleUnauthorized(ctx, req, res)
	default:
		return nil, MapFailure(&ResponseError{Response: res})
	}
}

// Get fetches path and decodes the JSON body into out, which may be nil.
func (c *Client) Get(ctx context.Context, path string, out any) error {
	return c.doJSON(ctx, http.MethodGet, path, nil, out)
}

// Post sends in as JSON and decodes the response into out.
func (c *Client) Post(ctx context.Context, path string, in, out any) error {
	return c.doJSON(ctx, http.MethodPost, path, in, out)
}

// Put sends in as JSON and decodes the response into out.
func (c *Client) Put(ctx context.Context, path string, in, out any) error {
	return c.doJSON(ctx, http.MethodPut, path, in, out)
}

// Patch sends in as JSON and decodes the response into out.
func (c *Client) Patch(ctx context.Context, path string, in, out any) error {
	return c.doJSON(ctx, http.MethodPatch, path, in, out)
}

// Delete removes the resource at path.
func (c *Client) Delete(ctx context.Context, path string) error {
	return c.doJSON(ctx, http.MethodDelete, path, nil, nil)
}

func (c *Client) doJSON(ctx context.Context, method, path string, in, out any) error {
	req, err := NewJSONRequest(method, c.URL(path), in)
	if err != nil {
		return MapFailure(err)
	}
	res, err := c.Do(ctx, req)
	if err != nil {
		return err
	}
	if out == nil || len(res.Data) == 0 {
		return nil
	}
	if err := res.Decode(out); err != nil {
		return MapFailure(&ResponseError{Response: res, Err: err})
	}
	return nil
}

type signInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SignIn exchanges email and password for a credential and stores it. The
// call bypasses credential augmentation and refresh: a 401 here means bad
// credentials, not an expired session.
func (c *Client) SignIn(ctx context.Context, email, password string) error {
	req, err := NewJSONRequest(http.MethodPost, c.loginURL, signInRequest{Email: email, Password: password})
	if err != nil {
		return MapFailure(err)
	}
	req.Header.Set(HeaderRequestID, req.ID)

	res, err := c.transport.Send(ctx, req)
	if err != nil {
		return MapFailure(err)
	}
	if !res.OK() {
		return MapFailure(&ResponseError{Response: res})
	}

	credential, err := jsonparser.GetString(res.Data, "accessToken")
	if err != nil || credential == "" {
		return MapFailure(&ResponseError{Response: res, Err: ErrMalformedCredential})
	}
	if err := c.store.Set(credential); err != nil {
		return MapFailure(err)
	}
	c.SetDefaultHeader(HeaderAuthorization, bearer(credential))
	c.logger.Info("signed in", "request_id", req.ID)
	return nil
}

// SignOut clears the stored credential.
func (c *Client) SignOut() error {
	c.DeleteDefaultHeader(HeaderAuthorization)
	if err := c.store.Clear(); err != nil {
		return MapFailure(err)
	}
	return nil
}
