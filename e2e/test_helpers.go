//go:build e2e

package e2e

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/tonimelisma/eduapi-client/internal/app"
	"github.com/tonimelisma/eduapi-client/internal/config"
	"github.com/tonimelisma/eduapi-client/internal/logger"
)

// E2ETestHelper provides utilities for E2E testing
type E2ETestHelper struct {
	App    *app.App
	Config *Config
}

// NewE2ETestHelper signs in against the live API with a throwaway config
// directory. Tests are skipped when the EDUAPI_E2E_* variables are unset.
func NewE2ETestHelper(t *testing.T) *E2ETestHelper {
	t.Helper()

	e2eCfg := LoadConfig()
	if !e2eCfg.Complete() {
		t.Skip("EDUAPI_E2E_BASE_URL, EDUAPI_E2E_EMAIL and EDUAPI_E2E_PASSWORD must be set")
	}

	t.Setenv(config.EnvConfigPath, filepath.Join(t.TempDir(), "config.toml"))
	cfg := config.Default()
	cfg.BaseURL = e2eCfg.BaseURL
	cfg.SignInURL = e2eCfg.SignInURL
	cfg.HTTP.Timeout = e2eCfg.Timeout

	a, err := app.New(cfg, logger.NewDefaultLogger(testing.Verbose()))
	if err != nil {
		t.Fatalf("Failed to create app: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), e2eCfg.Timeout)
	defer cancel()
	if err := a.Login(ctx, e2eCfg.Email, e2eCfg.Password); err != nil {
		t.Fatalf("Failed to sign in: %v", err)
	}

	t.Cleanup(func() {
		if err := a.Logout(); err != nil {
			t.Logf("Logout failed: %v", err)
		}
	})

	return &E2ETestHelper{App: a, Config: e2eCfg}
}
