package app

import (
	"context"

	"github.com/tonimelisma/eduapi-client/pkg/eduapi"
)

// SDK defines the subset of *eduapi.Client the commands use.
// This allows for mocking in tests.
type SDK interface {
	Do(ctx context.Context, req *eduapi.PendingRequest) (*eduapi.Response, error)
	URL(path string) string
	SignIn(ctx context.Context, email, password string) error
	SignOut() error
}

var _ SDK = (*eduapi.Client)(nil)
