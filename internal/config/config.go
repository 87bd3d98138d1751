// Package config handles the XDG configuration directory, file paths and
// the optional config.toml settings file.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

const (
	// AppName is the application directory name.
	AppName = "fluxtodo"

	// OAuthClientFile is the OAuth client credentials filename.
	OAuthClientFile = "oauth_client.json"

	// TokenFile is the stored OAuth token filename.
	TokenFile = "token.json"

	// SettingsFile is the optional settings filename.
	SettingsFile = "config.toml"

	// DatabaseFile is the default SQLite database filename.
	DatabaseFile = "fluxtodo.db"
)

// Backend names accepted in the backend setting.
const (
	BackendGoogle = "google"
	BackendHTTP   = "http"
	BackendSQLite = "sqlite"
)

const (
	defaultUser            = "me"
	defaultAPITimeout      = 10
	defaultLogLevel        = "info"
	defaultLogMaxSizeMB    = 10
	defaultLogMaxBackups   = 3
	defaultPageSize        = 20
	defaultBulkConcurrency = 8
	defaultServerAddr      = "127.0.0.1:8080"
	defaultListLimit       = 10
)

// Config holds configuration paths and settings.
type Config struct {
	// Dir is the configuration directory path.
	Dir string

	// Debug enables debug logging.
	Debug bool

	// Quiet suppresses informational output.
	Quiet bool

	Settings
}

// Settings mirrors config.toml.
type Settings struct {
	Backend  string           `toml:"backend"`
	User     string           `toml:"user"`
	API      APISettings      `toml:"api"`
	Database DatabaseSettings `toml:"database"`
	Log      LogSettings      `toml:"log"`
	Store    StoreSettings    `toml:"store"`
	Server   ServerSettings   `toml:"server"`
}

// APISettings configures the http backend.
type APISettings struct {
	URL            string `toml:"url"`
	Token          string `toml:"token"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// DatabaseSettings configures the sqlite backend.
type DatabaseSettings struct {
	Path      string `toml:"path"`
	ListLimit int    `toml:"list_limit"`
}

// LogSettings configures the log file. An empty File discards logs unless
// --debug is given.
type LogSettings struct {
	File       string `toml:"file"`
	Level      string `toml:"level"`
	MaxSizeMB  int    `toml:"max_size_mb"`
	MaxBackups int    `toml:"max_backups"`
}

// StoreSettings tunes the optimistic stores.
type StoreSettings struct {
	PageSize        int `toml:"page_size"`
	BulkConcurrency int `toml:"bulk_concurrency"`
}

// ServerSettings configures `fluxtodo serve`. Tokens maps bearer tokens to
// user ids.
type ServerSettings struct {
	Addr   string            `toml:"addr"`
	Tokens map[string]string `toml:"tokens"`
}

// New creates a new Config with the default or specified config directory
// and default settings. If configDir is empty, uses XDG_CONFIG_HOME/fluxtodo
// or $HOME/.config/fluxtodo.
func New(configDir string) (*Config, error) {
	dir := configDir
	if dir == "" {
		dir = DefaultConfigDir()
	}
	dir, err := expandPath(dir)
	if err != nil {
		return nil, err
	}
	cfg := &Config{Dir: dir}
	cfg.applyDefaults()
	return cfg, nil
}

// Load is New followed by reading config.toml from the directory, if present.
func Load(configDir string) (*Config, error) {
	cfg, err := New(configDir)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(cfg.SettingsPath())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := toml.Unmarshal(data, &cfg.Settings); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	s := &c.Settings
	s.Backend = strings.ToLower(strings.TrimSpace(s.Backend))
	if s.Backend == "" {
		s.Backend = BackendGoogle
	}
	s.User = strings.TrimSpace(s.User)
	s.API.URL = strings.TrimRight(strings.TrimSpace(s.API.URL), "/")
	if s.API.TimeoutSeconds <= 0 {
		s.API.TimeoutSeconds = defaultAPITimeout
	}
	if strings.TrimSpace(s.Database.Path) == "" {
		s.Database.Path = filepath.Join(c.Dir, DatabaseFile)
	} else {
		s.Database.Path = mustExpand(s.Database.Path)
	}
	if s.Database.ListLimit <= 0 {
		s.Database.ListLimit = defaultListLimit
	}
	if f := strings.TrimSpace(s.Log.File); f != "" {
		s.Log.File = mustExpand(f)
	}
	if strings.TrimSpace(s.Log.Level) == "" {
		s.Log.Level = defaultLogLevel
	}
	if s.Log.MaxSizeMB <= 0 {
		s.Log.MaxSizeMB = defaultLogMaxSizeMB
	}
	if s.Log.MaxBackups <= 0 {
		s.Log.MaxBackups = defaultLogMaxBackups
	}
	if s.Store.PageSize <= 0 {
		s.Store.PageSize = defaultPageSize
	}
	if s.Store.BulkConcurrency <= 0 {
		s.Store.BulkConcurrency = defaultBulkConcurrency
	}
	if strings.TrimSpace(s.Server.Addr) == "" {
		s.Server.Addr = defaultServerAddr
	}
}

func (c *Config) validate() error {
	switch c.Backend {
	case BackendGoogle, BackendSQLite:
	case BackendHTTP:
		if c.API.URL == "" {
			return fmt.Errorf("config: backend %q requires api.url", BackendHTTP)
		}
	default:
		return fmt.Errorf("config: unknown backend %q (want %s, %s or %s)", c.Backend, BackendGoogle, BackendHTTP, BackendSQLite)
	}
	return nil
}

// DefaultConfigDir returns the default configuration directory.
// Uses XDG_CONFIG_HOME if set, otherwise $HOME/.config.
func DefaultConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, AppName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		// Fallback to current directory if home can't be determined
		return AppName
	}
	return filepath.Join(home, ".config", AppName)
}

// UserID returns the configured user id, or "me" when unset.
func (c *Config) UserID() string {
	if c.User == "" {
		return defaultUser
	}
	return c.User
}

// APITimeout returns the http backend request timeout.
func (c *Config) APITimeout() time.Duration {
	return time.Duration(c.API.TimeoutSeconds) * time.Second
}

// SettingsPath returns the path to config.toml.
func (c *Config) SettingsPath() string {
	return filepath.Join(c.Dir, SettingsFile)
}

// OAuthClientPath returns the path to the OAuth client credentials file.
func (c *Config) OAuthClientPath() string {
	return filepath.Join(c.Dir, OAuthClientFile)
}

// TokenPath returns the path to the stored OAuth token file.
func (c *Config) TokenPath() string {
	return filepath.Join(c.Dir, TokenFile)
}

// EnsureDir creates the config directory if it doesn't exist.
// Directory is created with mode 0700.
func (c *Config) EnsureDir() error {
	return os.MkdirAll(c.Dir, 0700)
}

// HasOAuthClient checks if the OAuth client credentials file exists.
func (c *Config) HasOAuthClient() bool {
	_, err := os.Stat(c.OAuthClientPath())
	return err == nil
}

// HasToken checks if the token file exists.
func (c *Config) HasToken() bool {
	_, err := os.Stat(c.TokenPath())
	return err == nil
}

// RemoveToken deletes the token file.
func (c *Config) RemoveToken() error {
	return os.Remove(c.TokenPath())
}

func mustExpand(path string) string {
	expanded, err := expandPath(path)
	if err != nil {
		return path
	}
	return expanded
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("path is empty")
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}
