package cmd

import (
	"context"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
	"github.com/tonimelisma/eduapi-client/internal/app"
	"github.com/tonimelisma/eduapi-client/internal/config"
	"github.com/tonimelisma/eduapi-client/pkg/eduapi"
)

// fakeAPI is an httptest handler standing in for the platform API.
type fakeAPI struct {
	mu        sync.Mutex
	valid     string
	refreshes atomic.Int32
	denyAll   bool
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	switch r.URL.Path {
	case eduapi.DefaultLoginPath:
		f.valid = "login-token"
		_, _ = w.Write([]byte(`{"accessToken":"login-token"}`))
		return
	case eduapi.DefaultRefreshPath:
		f.refreshes.Add(1)
		if f.denyAll {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		f.valid = "refreshed-token"
		_, _ = w.Write([]byte(`{"accessToken":"refreshed-token"}`))
		return
	}

	if f.denyAll || r.Header.Get(eduapi.HeaderAuthorization) != "Bearer "+f.valid {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	switch r.URL.Path {
	case "/api/courses":
		if r.Method == http.MethodPost {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"type":"validation","title":"Invalid","status":400,"errors":{"Title":["The Title field is required."]}}`))
			return
		}
		_, _ = w.Write([]byte(`[{"id":1,"title":"Go 101"}]`))
	case "/api/me":
		_, _ = w.Write([]byte(`{"name":"Ada"}`))
	default:
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"title":"Not Found","status":404,"detail":"Nothing at ` + r.URL.Path + `","instance":"` + r.URL.Path + `"}`))
	}
}

// newTestApp starts a fake API and returns an App pointed at it with its
// config directory in a temp dir.
func newTestApp(t *testing.T, api *fakeAPI) *app.App {
	t.Helper()
	server := httptest.NewServer(api)
	t.Cleanup(server.Close)
	t.Setenv(config.EnvConfigPath, filepath.Join(t.TempDir(), "config.toml"))

	cfg := config.Default()
	cfg.BaseURL = server.URL
	cfg.SignInURL = "https://school.test/sign-in"
	a, err := app.New(cfg, nil)
	require.NoError(t, err)
	return a
}

// useTestApp makes commands run through rootCmd use a.
func useTestApp(t *testing.T, a *app.App) {
	t.Helper()
	original := newApp
	newApp = func(*cobra.Command) (*app.App, error) { return a, nil }
	t.Cleanup(func() { newApp = original })
}

// newTestCommand returns a command with a context, as cobra provides at
// runtime.
func newTestCommand() *cobra.Command {
	cmd := &cobra.Command{}
	cmd.SetContext(context.Background())
	return cmd
}

// captureOutput captures stdout and stderr, returning them as a string.
// This version doesn't mutate global log state.
func captureOutput(t *testing.T, f func()) string {
	t.Helper()

	originalLogOutput := log.Writer()

	oldStdout := os.Stdout
	r, w, _ := os.Pipe()
	os.Stdout = w

	oldStderr := os.Stderr
	r2, w2, _ := os.Pipe()
	os.Stderr = w2
	log.SetOutput(w2)

	// Drain concurrently so large outputs cannot block on a full pipe.
	var stdout, stderr []byte
	var wg sync.WaitGroup
	wg.Add(2)
	go func() { defer wg.Done(); stdout, _ = io.ReadAll(r) }()
	go func() { defer wg.Done(); stderr, _ = io.ReadAll(r2) }()

	f()

	w.Close()
	w2.Close()
	wg.Wait()
	os.Stdout = oldStdout
	os.Stderr = oldStderr
	log.SetOutput(originalLogOutput)

	return string(stdout) + string(stderr)
}
