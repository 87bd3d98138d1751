// Package backend opens the service.Service named by the backend setting.
package backend

import (
	"context"
	"errors"
	"fmt"

	"fluxtodo/internal/auth"
	"fluxtodo/internal/backend/googletasks"
	"fluxtodo/internal/backend/httpapi"
	"fluxtodo/internal/backend/sqlite"
	"fluxtodo/internal/config"
	"fluxtodo/internal/service"
)

var (
	// ErrNoOAuthClient is returned when the google backend has no
	// oauth_client.json.
	ErrNoOAuthClient = errors.New("oauth client not configured")

	// ErrNotLoggedIn is returned when the google backend has no token.
	ErrNotLoggedIn = errors.New("not logged in")
)

// Backend is an opened service together with the identity the stores
// should use.
type Backend struct {
	Service  service.Service
	Identity auth.Identity

	closer func() error
}

// Close releases backend resources.
func (b *Backend) Close() error {
	if b == nil || b.closer == nil {
		return nil
	}
	return b.closer()
}

// Open opens the configured backend.
func Open(ctx context.Context, cfg *config.Config) (*Backend, error) {
	switch cfg.Backend {
	case config.BackendGoogle:
		if !cfg.HasOAuthClient() {
			return nil, ErrNoOAuthClient
		}
		if !cfg.HasToken() {
			return nil, ErrNotLoggedIn
		}
		c, err := googletasks.New(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return &Backend{Service: c, Identity: auth.Static(cfg.UserID())}, nil

	case config.BackendHTTP:
		c, err := httpapi.NewClient(cfg.API.URL, cfg.API.Token, httpapi.WithTimeout(cfg.APITimeout()))
		if err != nil {
			return nil, err
		}
		id := auth.Anonymous
		if cfg.API.Token != "" {
			id = auth.Static(cfg.UserID())
		}
		return &Backend{Service: c, Identity: id}, nil

	case config.BackendSQLite:
		db, err := sqlite.Open(cfg.Database.Path, auth.Static(cfg.UserID()),
			sqlite.WithListLimit(cfg.Database.ListLimit))
		if err != nil {
			return nil, err
		}
		return &Backend{Service: db, Identity: auth.Static(cfg.UserID()), closer: db.Close}, nil

	default:
		return nil, fmt.Errorf("unknown backend %q", cfg.Backend)
	}
}

// OpenServerDB opens the database served by `fluxtodo serve`. Each request
// is scoped to the user its bearer token maps to.
func OpenServerDB(cfg *config.Config) (*sqlite.DB, error) {
	return sqlite.Open(cfg.Database.Path, auth.FromContext, sqlite.WithListLimit(cfg.Database.ListLimit))
}
