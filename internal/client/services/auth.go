// Package services contains application services for the tokenauth CLI.
// AuthService drives the account and token API and keeps the current
// session in the local metadata store.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/dmitrijs2005/tokenauth/internal/client/client"
	"github.com/dmitrijs2005/tokenauth/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/tokenauth/internal/common"
	"github.com/dmitrijs2005/tokenauth/internal/dbx"
	"github.com/dmitrijs2005/tokenauth/internal/logging"
)

const (
	keyUsername     = "username"
	keyAccessToken  = "access_token"
	keyRefreshToken = "refresh_token"
	keyExpiresAt    = "expires_at"
)

// Session is the locally stored login. Tokens are kept in wire form.
type Session struct {
	Username     string
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}

// AuthService defines the account operations of the CLI. Every method that
// needs a session reports common.ErrNotLoggedIn when none is stored.
type AuthService interface {
	Register(ctx context.Context, username, name string, password []byte) (*Session, error)
	Login(ctx context.Context, username string, password []byte) (*Session, error)
	Refresh(ctx context.Context) (*Session, error)
	Logout(ctx context.Context) error
	WhoAmI(ctx context.Context) (*client.User, error)
	UpdateProfile(ctx context.Context, name *string, password []byte) (*client.User, error)
	Current(ctx context.Context) (*Session, error)
	Ping(ctx context.Context) error
}

type authService struct {
	client client.Client
	db     *sql.DB
	logger logging.Logger
}

func NewAuthService(c client.Client, db *sql.DB, l logging.Logger) AuthService {
	return &authService{client: c, db: db, logger: l.With("module", "auth_service")}
}

// Register creates the account and stores the session the server opens
// for it.
func (a *authService) Register(ctx context.Context, username, name string, password []byte) (*Session, error) {
	creds, err := a.client.Register(ctx, username, name, password)
	if err != nil {
		return nil, err
	}
	return a.saveSession(ctx, username, creds)
}

func (a *authService) Login(ctx context.Context, username string, password []byte) (*Session, error) {
	creds, err := a.client.Login(ctx, username, password)
	if err != nil {
		return nil, err
	}
	return a.saveSession(ctx, username, creds)
}

// Refresh rotates the stored token pair. A rejected refresh ends the
// session, so the local copy is dropped.
func (a *authService) Refresh(ctx context.Context) (*Session, error) {
	s, err := a.Current(ctx)
	if err != nil {
		return nil, err
	}

	creds, err := a.client.Refresh(ctx, s.AccessToken, s.RefreshToken)
	if err != nil {
		if errors.Is(err, client.ErrUnauthorized) {
			a.logger.Info(ctx, "refresh rejected, dropping local session", "error", err)
			if clearErr := a.clearSession(ctx); clearErr != nil {
				return nil, clearErr
			}
		}
		return nil, err
	}

	a.logger.Debug(ctx, "token pair rotated", "expires_at", creds.ExpiresAt)
	return a.saveSession(ctx, s.Username, creds)
}

// Logout deletes the token on the server and forgets the local session.
// A server that no longer knows the token still counts as logged out.
func (a *authService) Logout(ctx context.Context) error {
	err := a.withAccessToken(ctx, func(token string) error {
		return a.client.Logout(ctx, token)
	})
	if err != nil && !errors.Is(err, client.ErrUnauthorized) {
		return err
	}
	return a.clearSession(ctx)
}

func (a *authService) WhoAmI(ctx context.Context) (*client.User, error) {
	var u *client.User
	err := a.withAccessToken(ctx, func(token string) error {
		var err error
		u, err = a.client.CurrentUser(ctx, token)
		return err
	})
	return u, err
}

func (a *authService) UpdateProfile(ctx context.Context, name *string, password []byte) (*client.User, error) {
	var u *client.User
	err := a.withAccessToken(ctx, func(token string) error {
		var err error
		u, err = a.client.UpdateProfile(ctx, token, name, password)
		return err
	})
	return u, err
}

func (a *authService) Ping(ctx context.Context) error {
	return a.client.Ping(ctx)
}

// Current returns the stored session.
func (a *authService) Current(ctx context.Context) (*Session, error) {
	repo := metadata.NewSQLiteRepository(a.db)

	values := make(map[string]string, 4)
	for _, k := range []string{keyUsername, keyAccessToken, keyRefreshToken, keyExpiresAt} {
		v, err := repo.Get(ctx, k)
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrNotLoggedIn
		}
		if err != nil {
			return nil, err
		}
		values[k] = string(v)
	}

	expiresAt, err := time.Parse(time.RFC3339, values[keyExpiresAt])
	if err != nil {
		return nil, fmt.Errorf("corrupt session expiry: %w", err)
	}

	return &Session{
		Username:     values[keyUsername],
		AccessToken:  values[keyAccessToken],
		RefreshToken: values[keyRefreshToken],
		ExpiresAt:    expiresAt,
	}, nil
}

// withAccessToken calls fn with the stored access token. When the server
// reports the token as expired (401), the pair is refreshed once and fn is
// retried with the new token.
func (a *authService) withAccessToken(ctx context.Context, fn func(token string) error) error {
	s, err := a.Current(ctx)
	if err != nil {
		return err
	}

	err = fn(s.AccessToken)

	var apiErr *client.APIError
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusUnauthorized {
		return err
	}

	a.logger.Debug(ctx, "access token expired, refreshing")
	s, err = a.Refresh(ctx)
	if err != nil {
		return err
	}
	return fn(s.AccessToken)
}

func (a *authService) saveSession(ctx context.Context, username string, creds *client.Credentials) (*Session, error) {
	s := &Session{
		Username:     username,
		AccessToken:  creds.AccessToken,
		RefreshToken: creds.RefreshToken,
		ExpiresAt:    creds.ExpiresAt,
	}

	err := dbx.WithTx(ctx, a.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := metadata.NewSQLiteRepository(tx)
		values := map[string]string{
			keyUsername:     s.Username,
			keyAccessToken:  s.AccessToken,
			keyRefreshToken: s.RefreshToken,
			keyExpiresAt:    s.ExpiresAt.UTC().Format(time.RFC3339),
		}
		for k, v := range values {
			if err := repo.Set(ctx, k, []byte(v)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("session saving error: %w", err)
	}
	return s, nil
}

func (a *authService) clearSession(ctx context.Context) error {
	return metadata.NewSQLiteRepository(a.db).Clear(ctx)
}
