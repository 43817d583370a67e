package app

import (
	"sync"

	"github.com/tonimelisma/eduapi-client/internal/logger"
	"github.com/tonimelisma/eduapi-client/pkg/eduapi"
)

// cachingStore keeps the credential in memory and writes changes through to
// a persistent store. Reads after the first never touch the base store, so
// concurrent requests do not contend on the credentials file lock.
type cachingStore struct {
	base   eduapi.CredentialStore
	logger logger.Logger

	mu     sync.Mutex
	loaded bool
	cached string

	onNewCredential func(credential string)
}

func newCachingStore(base eduapi.CredentialStore, l logger.Logger, onNew func(credential string)) *cachingStore {
	return &cachingStore{base: base, logger: l, onNewCredential: onNew}
}

func (s *cachingStore) Get() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.loaded {
		return s.cached, nil
	}
	credential, err := s.base.Get()
	if err != nil {
		return "", err
	}
	s.cached, s.loaded = credential, true
	return credential, nil
}

// Set persists credential before caching it. A failed write leaves the
// cache untouched so the caller sees the store as it is on disk.
func (s *cachingStore) Set(credential string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.base.Set(credential); err != nil {
		return err
	}
	changed := !s.loaded || s.cached != credential
	s.cached, s.loaded = credential, true
	if changed {
		s.logger.Debug("credential persisted")
		if s.onNewCredential != nil {
			s.onNewCredential(credential)
		}
	}
	return nil
}

// Clear drops the cached credential even if the base store fails, so a
// terminated session is never resurrected from memory.
func (s *cachingStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cached, s.loaded = "", true
	return s.base.Clear()
}
