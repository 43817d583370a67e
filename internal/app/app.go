package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"sync/atomic"

	"github.com/spf13/cobra"
	"github.com/tonimelisma/eduapi-client/internal/config"
	"github.com/tonimelisma/eduapi-client/internal/logger"
	"github.com/tonimelisma/eduapi-client/internal/store"
	"github.com/tonimelisma/eduapi-client/internal/ui"
	"github.com/tonimelisma/eduapi-client/pkg/eduapi"
)

// App bundles the configuration, credential store and API client shared
// by every command.
type App struct {
	Config *config.Configuration
	Logger logger.Logger
	Store  *store.FileStore
	Client *eduapi.Client
	SDK    SDK

	credentials eduapi.CredentialStore
	expired     atomic.Bool
}

// NewApp loads the configuration, honouring the --config and --debug flags
// of cmd, and builds an App from it.
func NewApp(cmd *cobra.Command) (*App, error) {
	if path, _ := cmd.Flags().GetString("config"); path != "" {
		if err := os.Setenv(config.EnvConfigPath, path); err != nil {
			return nil, fmt.Errorf("setting config path: %w", err)
		}
	}

	cfg, err := config.LoadOrCreate()
	if err != nil {
		return nil, fmt.Errorf("loading configuration: %w", err)
	}
	if debug, _ := cmd.Flags().GetBool("debug"); debug {
		cfg.Debug = true
	}

	level := cfg.LogLevel
	if cfg.Debug {
		level = "debug"
	}
	return New(cfg, logger.New(logger.Options{Level: level}))
}

// New builds an App from an already loaded configuration.
func New(cfg *config.Configuration, l logger.Logger) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if l == nil {
		l = logger.NoopLogger{}
	}

	credentialsPath, err := config.CredentialsPath()
	if err != nil {
		return nil, err
	}

	a := &App{
		Config: cfg,
		Logger: l,
		Store:  store.NewFileStore(credentialsPath),
	}
	a.credentials = newCachingStore(a.Store, l, func(string) {
		l.Debug("credential saved", "path", credentialsPath)
	})

	a.Client = eduapi.NewClient(eduapi.Options{
		BaseURL:      cfg.BaseURL,
		RefreshPath:  cfg.RefreshPath,
		LoginPath:    cfg.LoginPath,
		HTTPClient:   &http.Client{Timeout: cfg.HTTP.Timeout},
		MaxBodyBytes: cfg.HTTP.MaxBodyBytes,
		Store:        a.credentials,
		OnSessionExpired: func() {
			a.expired.Store(true)
			ui.SessionExpired(cfg.SignInURL)
		},
		Logger: l,
	})
	a.SDK = a.Client
	return a, nil
}

// SessionExpired reports whether a refresh failed terminally during this
// run.
func (a *App) SessionExpired() bool {
	return a.expired.Load()
}

// Credential returns the stored credential, or "" when logged out.
func (a *App) Credential() (string, error) {
	return a.credentials.Get()
}

// Login signs in with email and password and stores the credential.
func (a *App) Login(ctx context.Context, email, password string) error {
	if email == "" || password == "" {
		return errors.New("both email and password are required")
	}
	return a.SDK.SignIn(ctx, email, password)
}

// ImportToken stores an existing credential without contacting the server.
func (a *App) ImportToken(token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return errors.New("token must not be empty")
	}
	if err := a.credentials.Set(token); err != nil {
		return fmt.Errorf("saving credential: %w", err)
	}
	return nil
}

// Logout clears the stored credential.
func (a *App) Logout() error {
	return a.SDK.SignOut()
}

// Request sends one call through the pipeline. data, when not empty, must
// be a JSON document and is sent as the request body.
func (a *App) Request(ctx context.Context, method, path, data string) (*eduapi.Response, error) {
	method = strings.ToUpper(method)

	var body []byte
	if data != "" {
		if !json.Valid([]byte(data)) {
			return nil, fmt.Errorf("request body is not valid JSON")
		}
		body = []byte(data)
	}

	req := eduapi.NewRequest(method, a.SDK.URL(path), body)
	req.Header.Set(eduapi.HeaderAccept, "application/json")
	if body != nil {
		req.Header.Set(eduapi.HeaderContentType, "application/json")
	}
	return a.SDK.Do(ctx, req)
}
