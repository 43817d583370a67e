// Package eduapi is a client for the education platform's REST API.
//
// A Client attaches the stored bearer credential to every request. When the
// server answers 401 the client's RefreshCoordinator performs a single
// refresh call, parks every other unauthorized request until it settles and
// then replays them with the new credential. All failures surface as a
// *DomainError (field validation) or a *ServerError (everything else).
package eduapi

import "time"

// Default endpoint paths, relative to the client's base URL.
const (
	DefaultRefreshPath = "/api/auth/refresh-token"
	DefaultLoginPath   = "/api/auth/login"
)

// Default HTTP configuration.
const (
	DefaultTimeout      = 30 * time.Second
	DefaultMaxBodyBytes = 10 << 20
)

// Header names set by the pipeline.
const (
	HeaderAuthorization = "Authorization"
	HeaderRequestID     = "X-Request-ID"
	HeaderContentType   = "Content-Type"
	HeaderAccept        = "Accept"

	contentTypeJSON = "application/json"
)

// User-facing messages produced by the failure mapper.
const (
	MessageNetworkError = "Network error. Please check your connection and try again."
	MessageUnexpected   = "An unexpected error occurred."
)
