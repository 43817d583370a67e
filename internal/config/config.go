// Package config loads and persists the CLI's settings. Settings come from
// built-in defaults, then the TOML config file, then EDUAPI_* environment
// variables, each layer overriding the previous one.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/tonimelisma/eduapi-client/pkg/eduapi"
)

const (
	configDirName   = "eduapi"
	configFile      = "config.toml"
	credentialsFile = "credentials.json"

	// EnvConfigPath overrides the location of the config file.
	EnvConfigPath = "EDUAPI_CONFIG_PATH"
	EnvBaseURL    = "EDUAPI_BASE_URL"
	EnvLogLevel   = "EDUAPI_LOG_LEVEL"
	EnvDebug      = "EDUAPI_DEBUG"

	DefaultBaseURL     = "http://localhost:5000"
	DefaultConcurrency = 4
)

// HTTPConfig tunes the HTTP transport.
type HTTPConfig struct {
	Timeout      time.Duration `toml:"timeout"`
	MaxBodyBytes int64         `toml:"max_body_bytes"`
}

// FetchConfig tunes the batch fetch command.
type FetchConfig struct {
	Concurrency int `toml:"concurrency"`
}

// Configuration holds all persisted settings.
type Configuration struct {
	BaseURL     string      `toml:"base_url"`
	RefreshPath string      `toml:"refresh_path"`
	LoginPath   string      `toml:"login_path"`
	SignInURL   string      `toml:"sign_in_url"`
	LogLevel    string      `toml:"log_level"`
	Debug       bool        `toml:"debug"`
	HTTP        HTTPConfig  `toml:"http"`
	Fetch       FetchConfig `toml:"fetch"`

	mu sync.RWMutex
}

// Default returns a configuration with every field set to its default.
func Default() *Configuration {
	return &Configuration{
		BaseURL:     DefaultBaseURL,
		RefreshPath: eduapi.DefaultRefreshPath,
		LoginPath:   eduapi.DefaultLoginPath,
		LogLevel:    "info",
		HTTP: HTTPConfig{
			Timeout:      eduapi.DefaultTimeout,
			MaxBodyBytes: eduapi.DefaultMaxBodyBytes,
		},
		Fetch: FetchConfig{Concurrency: DefaultConcurrency},
	}
}

// GetConfigDir returns the directory holding the config and credentials
// files. When EDUAPI_CONFIG_PATH is set its parent directory is used.
func GetConfigDir() (string, error) {
	if p := os.Getenv(EnvConfigPath); p != "" {
		return filepath.Dir(p), nil
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("getting user config directory: %w", err)
	}
	return filepath.Join(dir, configDirName), nil
}

// ConfigPath returns the path of the TOML config file.
func ConfigPath() (string, error) {
	if p := os.Getenv(EnvConfigPath); p != "" {
		return p, nil
	}
	dir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, configFile), nil
}

// CredentialsPath returns the path of the credentials file.
func CredentialsPath() (string, error) {
	dir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, credentialsFile), nil
}

// Load reads the config file over the defaults and applies environment
// overrides. A missing file yields an error satisfying os.IsNotExist.
func Load() (*Configuration, error) {
	path, err := ConfigPath()
	if err != nil {
		return nil, err
	}
	return LoadFrom(path)
}

// LoadFrom is Load with an explicit file path.
func LoadFrom(path string) (*Configuration, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if _, err := toml.Decode(string(data), cfg); err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", path, err)
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadOrCreate is Load, falling back to defaults when the file does not exist.
func LoadOrCreate() (*Configuration, error) {
	cfg, err := Load()
	if err == nil {
		return cfg, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}
	cfg = Default()
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Configuration) applyEnv() error {
	if v := os.Getenv(EnvBaseURL); v != "" {
		c.BaseURL = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv(EnvDebug); v != "" {
		debug, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("parsing %s=%q: %w", EnvDebug, v, err)
		}
		c.Debug = debug
	}
	return nil
}

// Validate reports the first invalid setting.
func (c *Configuration) Validate() error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if strings.TrimSpace(c.BaseURL) == "" {
		return errors.New("base_url must not be empty")
	}
	if c.HTTP.Timeout <= 0 {
		return fmt.Errorf("http.timeout must be positive, got %s", c.HTTP.Timeout)
	}
	if c.Fetch.Concurrency <= 0 {
		return fmt.Errorf("fetch.concurrency must be positive, got %d", c.Fetch.Concurrency)
	}
	return nil
}

// Save writes the configuration as TOML to ConfigPath, creating the
// directory if needed.
func (c *Configuration) Save() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	path, err := ConfigPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("opening config file: %w", err)
	}
	if err := toml.NewEncoder(f).Encode(c); err != nil {
		f.Close()
		return fmt.Errorf("encoding config: %w", err)
	}
	return f.Close()
}
