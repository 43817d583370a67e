package eduapi

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/tonimelisma/eduapi-client/internal/logger"
	"golang.org/x/oauth2"
)

// Augmenter attaches the stored credential to outbound requests.
type Augmenter struct {
	source oauth2.TokenSource
	logger logger.Logger

	// Strict makes a credential store read failure fail the request instead
	// of letting it proceed unauthenticated.
	Strict bool
}

// NewAugmenter returns an Augmenter reading from store.
func NewAugmenter(store CredentialStore, l logger.Logger) *Augmenter {
	if l == nil {
		l = logger.NoopLogger{}
	}
	a := &Augmenter{logger: l}
	if store != nil {
		a.source = StoreTokenSource(store)
	}
	return a
}

// Augment sets "Authorization: Bearer <credential>" when a credential is
// stored and leaves req untouched otherwise. The returned error, if any, is
// already mapped.
func (a *Augmenter) Augment(req *PendingRequest) error {
	if a.source == nil {
		return nil
	}

	tok, err := a.source.Token()
	if errors.Is(err, ErrNoCredential) {
		return nil
	}
	if err != nil {
		if a.Strict {
			return MapFailure(fmt.Errorf("reading credential: %w", err))
		}
		a.logger.Warn("credential store unavailable, sending request without credential",
			"request_id", req.ID, "error", err)
		return nil
	}

	if req.Header == nil {
		req.Header = make(http.Header)
	}
	req.Header.Set(HeaderAuthorization, tok.Type()+" "+tok.AccessToken)
	return nil
}
