package eduapi

import (
	"errors"
	"sync"

	"golang.org/x/oauth2"
)

// ErrNoCredential is returned by StoreTokenSource when the store is empty.
var ErrNoCredential = errors.New("no credential stored")

// CredentialStore holds the current access credential. An empty string from
// Get means no credential is available.
type CredentialStore interface {
	Get() (string, error)
	Set(credential string) error
	Clear() error
}

// MemoryStore is an in-process CredentialStore.
type MemoryStore struct {
	mu         sync.RWMutex
	credential string
}

// NewMemoryStore returns a store seeded with credential, which may be empty.
func NewMemoryStore(credential string) *MemoryStore {
	return &MemoryStore{credential: credential}
}

func (s *MemoryStore) Get() (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.credential, nil
}

func (s *MemoryStore) Set(credential string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.credential = credential
	return nil
}

func (s *MemoryStore) Clear() error {
	return s.Set("")
}

// StoreTokenSource exposes a CredentialStore as an oauth2.TokenSource. The
// Augmenter reads every credential through it. It never refreshes; refresh
// is driven by the RefreshCoordinator. An empty store yields
// ErrNoCredential.
func StoreTokenSource(store CredentialStore) oauth2.TokenSource {
	return storeTokenSource{store: store}
}

type storeTokenSource struct {
	store CredentialStore
}

func (s storeTokenSource) Token() (*oauth2.Token, error) {
	credential, err := s.store.Get()
	if err != nil {
		return nil, err
	}
	if credential == "" {
		return nil, ErrNoCredential
	}
	return &oauth2.Token{AccessToken: credential, TokenType: "Bearer"}, nil
}

// bearer formats the Authorization header value for credential.
func bearer(credential string) string {
	return "Bearer " + credential
}
