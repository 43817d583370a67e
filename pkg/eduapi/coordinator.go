package eduapi

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"sync/atomic"

	"github.com/buger/jsonparser"
	"github.com/tonimelisma/eduapi-client/internal/logger"
)

// RefreshState is the coordinator's single-flight state.
type RefreshState int

const (
	StateIdle RefreshState = iota
	StateRefreshing
)

func (s RefreshState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRefreshing:
		return "refreshing"
	default:
		return fmt.Sprintf("RefreshState(%d)", int(s))
	}
}

// DispatchFunc sends a request through the full pipeline. The coordinator
// uses it to replay requests once a new credential is available.
type DispatchFunc func(ctx context.Context, req *PendingRequest) (*Response, error)

// CoordinatorConfig wires a RefreshCoordinator to its collaborators.
type CoordinatorConfig struct {
	Transport  Transport
	Store      CredentialStore
	RefreshURL string
	Dispatch   DispatchFunc

	// OnRefreshed runs after a new credential has been stored, before any
	// request is replayed.
	OnRefreshed func(credential string)
	// OnCleared runs right after the credential is cleared on terminal
	// failure.
	OnCleared func()
	// OnSessionExpired runs once per terminal failure, after the credential
	// has been cleared and every waiter has been rejected.
	OnSessionExpired func()

	Logger logger.Logger
}

// RefreshCoordinator reacts to 401 responses. It lets at most one refresh
// call be in flight, parks every other unauthorized request until that call
// settles, then replays them all with the new credential or fails them all
// with the same terminal error.
type RefreshCoordinator struct {
	cfg    CoordinatorConfig
	logger logger.Logger

	mu         sync.Mutex // guards refreshing and waiters
	refreshing bool
	waiters    []*waiter

	refreshes atomic.Int64
}

type waiter struct {
	requestID string
	done      chan refreshOutcome // buffered, receives exactly one outcome
}

type refreshOutcome struct {
	credential string
	err        error
}

type refreshRequest struct {
	Token string `json:"token"`
}

// NewRefreshCoordinator creates a coordinator in the Idle state.
func NewRefreshCoordinator(cfg CoordinatorConfig) *RefreshCoordinator {
	l := cfg.Logger
	if l == nil {
		l = logger.NoopLogger{}
	}
	return &RefreshCoordinator{cfg: cfg, logger: l.With("component", "refresh")}
}

// State reports whether a refresh call is currently in flight.
func (c *RefreshCoordinator) State() RefreshState {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.refreshing {
		return StateRefreshing
	}
	return StateIdle
}

// Refreshes returns the number of refresh calls issued so far.
func (c *RefreshCoordinator) Refreshes() int64 {
	return c.refreshes.Load()
}

// Pending returns the number of requests parked behind the in-flight
// refresh.
func (c *RefreshCoordinator) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.waiters)
}

// HandleUnauthorized resolves a 401 response for req. It returns either the
// replayed request's outcome or a mapped error.
func (c *RefreshCoordinator) HandleUnauthorized(ctx context.Context, req *PendingRequest, res *Response) (*Response, error) {
	log := c.logger.With("request_id", req.ID)

	if c.isRefreshEndpoint(req.URL) {
		log.Warn("refresh endpoint rejected the credential")
		err := MapFailure(&ResponseError{Response: res, Err: ErrSessionExpired})
		c.mu.Lock()
		waiters := c.takeWaitersLocked()
		c.mu.Unlock()
		c.terminate(waiters, err)
		return nil, err
	}

	if req.Retried {
		log.Debug("request already replayed once, not refreshing again")
		return nil, MapFailure(&ResponseError{Response: res})
	}

	c.mu.Lock()
	if c.refreshing {
		w := &waiter{requestID: req.ID, done: make(chan refreshOutcome, 1)}
		c.waiters = append(c.waiters, w)
		c.mu.Unlock()
		log.Debug("queued behind in-flight refresh")
		return c.await(ctx, req, w)
	}
	c.refreshing = true
	c.mu.Unlock()

	req.Retried = true
	credential, err := c.refresh(ctx)

	c.mu.Lock()
	waiters := c.takeWaitersLocked()
	c.refreshing = false
	c.mu.Unlock()

	if err != nil {
		log.Warn("credential refresh failed", "error", err, "waiters", len(waiters))
		c.terminate(waiters, err)
		return nil, err
	}

	log.Info("credential refreshed", "waiters", len(waiters))
	req.Header.Set(HeaderAuthorization, bearer(credential))
	for _, w := range waiters {
		c.logger.Debug("replaying queued request", "request_id", w.requestID)
		w.done <- refreshOutcome{credential: credential}
	}
	return c.cfg.Dispatch(ctx, req)
}

// takeWaitersLocked empties the queue. c.mu must be held.
func (c *RefreshCoordinator) takeWaitersLocked() []*waiter {
	waiters := c.waiters
	c.waiters = nil
	return waiters
}

func (c *RefreshCoordinator) await(ctx context.Context, req *PendingRequest, w *waiter) (*Response, error) {
	select {
	case out := <-w.done:
		if out.err != nil {
			return nil, out.err
		}
		req.Retried = true
		req.Header.Set(HeaderAuthorization, bearer(out.credential))
		return c.cfg.Dispatch(ctx, req)
	case <-ctx.Done():
		return nil, MapFailure(fmt.Errorf("waiting for credential refresh: %w", ctx.Err()))
	}
}

// refresh performs the single refresh call and stores its credential.
// Every returned error is mapped and wraps ErrSessionExpired.
func (c *RefreshCoordinator) refresh(ctx context.Context) (string, error) {
	// The refresh outcome is shared by every waiter, so one caller giving up
	// must not abort it.
	ctx = context.WithoutCancel(ctx)

	current, err := c.cfg.Store.Get()
	if err != nil {
		c.logger.Warn("reading credential for refresh failed", "error", err)
		current = ""
	}

	req, err := NewJSONRequest(http.MethodPost, c.cfg.RefreshURL, refreshRequest{Token: current})
	if err != nil {
		return "", MapFailure(fmt.Errorf("%w: %w", ErrSessionExpired, err))
	}

	c.refreshes.Add(1)
	c.logger.Info("refreshing credential", "request_id", req.ID)

	res, err := c.cfg.Transport.Send(ctx, req)
	if err != nil {
		return "", MapFailure(&TransportError{Request: req, Err: fmt.Errorf("%w: %w", ErrSessionExpired, err)})
	}
	if res.Status != http.StatusOK {
		return "", MapFailure(&ResponseError{Response: res, Err: ErrSessionExpired})
	}

	credential, err := jsonparser.GetString(res.Data, "accessToken")
	if err != nil || credential == "" {
		return "", MapFailure(&ResponseError{Response: res, Err: fmt.Errorf("%w: %w", ErrSessionExpired, ErrMalformedCredential)})
	}

	if err := c.cfg.Store.Set(credential); err != nil {
		return "", MapFailure(fmt.Errorf("%w: storing refreshed credential: %w", ErrSessionExpired, err))
	}
	if c.cfg.OnRefreshed != nil {
		c.cfg.OnRefreshed(credential)
	}
	return credential, nil
}

// terminate ends the session: clear, reject waiters in order, then signal.
func (c *RefreshCoordinator) terminate(waiters []*waiter, err error) {
	if clearErr := c.cfg.Store.Clear(); clearErr != nil {
		c.logger.Error("clearing credential failed", "error", clearErr)
	}
	if c.cfg.OnCleared != nil {
		c.cfg.OnCleared()
	}
	for _, w := range waiters {
		c.logger.Debug("rejecting queued request", "request_id", w.requestID)
		w.done <- refreshOutcome{err: err}
	}
	if c.cfg.OnSessionExpired != nil {
		c.cfg.OnSessionExpired()
	}
}

func (c *RefreshCoordinator) isRefreshEndpoint(raw string) bool {
	target, err := url.Parse(raw)
	if err != nil {
		return false
	}
	refresh, err := url.Parse(c.cfg.RefreshURL)
	if err != nil {
		return false
	}
	if refresh.Host != "" && target.Host != "" && refresh.Host != target.Host {
		return false
	}
	return target.Path == refresh.Path
}
