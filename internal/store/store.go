// Package store persists the access credential between CLI invocations.
// The credential lives in a small JSON file guarded by a lock file so that
// concurrently running CLI instances never observe a half-written file.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"github.com/tonimelisma/eduapi-client/pkg/eduapi"
)

// ErrLocked is returned when another process holds the credentials lock
// for longer than the store's lock timeout.
var ErrLocked = errors.New("credentials file is locked by another process")

const (
	// DefaultLockTimeout bounds how long a store operation waits for
	// another process to release the credentials lock.
	DefaultLockTimeout = 5 * time.Second
	lockRetryDelay     = 50 * time.Millisecond
)

// State is the on-disk shape of the credentials file.
type State struct {
	AccessToken string    `json:"access_token"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// FileStore is an eduapi.CredentialStore backed by a JSON file.
type FileStore struct {
	path        string
	lockTimeout time.Duration
	mu          sync.Mutex
}

var _ eduapi.CredentialStore = (*FileStore)(nil)

// NewFileStore returns a store reading and writing path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path, lockTimeout: DefaultLockTimeout}
}

// SetLockTimeout changes how long operations wait for the credentials lock.
func (s *FileStore) SetLockTimeout(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lockTimeout = d
}

// Path returns the credentials file location.
func (s *FileStore) Path() string {
	return s.path
}

func (s *FileStore) lock() (*flock.Flock, error) {
	if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		return nil, fmt.Errorf("creating credentials directory: %w", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), s.lockTimeout)
	defer cancel()

	fileLock := flock.New(s.path + ".lock")
	locked, err := fileLock.TryLockContext(ctx, lockRetryDelay)
	if errors.Is(err, context.DeadlineExceeded) {
		return nil, ErrLocked
	}
	if err != nil {
		return nil, fmt.Errorf("acquiring credentials lock: %w", err)
	}
	if !locked {
		return nil, ErrLocked
	}
	return fileLock, nil
}

// Get returns the stored credential, or "" when none is stored.
func (s *FileStore) Get() (string, error) {
	state, err := s.Load()
	if err != nil || state == nil {
		return "", err
	}
	return state.AccessToken, nil
}

// Load returns the full stored state, or nil when the file does not exist.
func (s *FileStore) Load() (*State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	fileLock, err := s.lock()
	if err != nil {
		return nil, err
	}
	defer fileLock.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading credentials file: %w", err)
	}

	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("unmarshalling credentials file %s: %w", s.path, err)
	}
	return &state, nil
}

// Set replaces the stored credential.
func (s *FileStore) Set(credential string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	fileLock, err := s.lock()
	if err != nil {
		return err
	}
	defer fileLock.Unlock()

	data, err := json.MarshalIndent(State{AccessToken: credential, UpdatedAt: time.Now().UTC()}, "", "  ")
	if err != nil {
		return fmt.Errorf("marshalling credentials: %w", err)
	}

	// Write then rename so readers never see a truncated file.
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return fmt.Errorf("writing credentials file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replacing credentials file: %w", err)
	}
	return nil
}

// Clear removes the credentials file. Clearing an empty store is a no-op.
func (s *FileStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	fileLock, err := s.lock()
	if err != nil {
		return err
	}
	defer fileLock.Unlock()

	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("deleting credentials file: %w", err)
	}
	return nil
}
