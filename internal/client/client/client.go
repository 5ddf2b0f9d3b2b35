package client

import (
	"context"
	"time"
)

// Credentials are the tokens in their wire (base64) form, as handed out by
// the server.
type Credentials struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}

type User struct {
	ID    string
	Email string
	Name  string
	Roles []string
}

// Client is the tokenauth API contract used by the CLI services.
type Client interface {
	Register(ctx context.Context, username, name string, password []byte) (*Credentials, error)
	Login(ctx context.Context, username string, password []byte) (*Credentials, error)
	Refresh(ctx context.Context, accessToken, refreshToken string) (*Credentials, error)
	Logout(ctx context.Context, accessToken string) error
	CurrentUser(ctx context.Context, accessToken string) (*User, error)
	UpdateProfile(ctx context.Context, accessToken string, name *string, password []byte) (*User, error)
	Ping(ctx context.Context) error
}
