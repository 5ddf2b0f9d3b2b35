// Package services contains server-side business logic. AuthService drives
// the token lifecycle: issue on register/login, validate per request, rotate
// on refresh and delete on logout.
package services

import (
	"context"
	"crypto/subtle"
	"database/sql"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/dmitrijs2005/tokenauth/internal/common"
	"github.com/dmitrijs2005/tokenauth/internal/dbx"
	"github.com/dmitrijs2005/tokenauth/internal/server/auth"
	"github.com/dmitrijs2005/tokenauth/internal/server/models"
	"github.com/dmitrijs2005/tokenauth/internal/server/repositories/repomanager"
)

const (
	msgNotBlank     = "This value should not be blank."
	msgInvalidEmail = "This value is not a valid email address."
	msgEmailTaken   = "This email is already registered."
)

// PasswordHasher hashes and checks passwords with a per-user salt.
type PasswordHasher interface {
	NewSalt() (string, error)
	Hash(password, salt string) string
	Verify(password, salt, hash string) bool
}

// Credentials is an issued token pair. Values are raw; transports encode
// them.
type Credentials struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}

// Session is an authenticated request: the caller and the token it
// presented.
type Session struct {
	User  *models.User
	Token *models.Token
}

// UserView is the public projection of a user.
type UserView struct {
	ID    string
	Email string
	Name  string
	Roles []string
}

type RegisterInput struct {
	Username string
	Name     string
	Password string
}

// UpdateProfileInput carries optional changes; nil fields stay as they are.
type UpdateProfileInput struct {
	Name     *string
	Password *string
}

type AuthService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	tokens      *auth.TokenFactory
	passwords   PasswordHasher
}

func NewAuthService(db *sql.DB, m repomanager.RepositoryManager, tokens *auth.TokenFactory, passwords PasswordHasher) *AuthService {
	return &AuthService{db: db, repomanager: m, tokens: tokens, passwords: passwords}
}

// Register creates the account and logs it in within one transaction.
// Field problems, including a taken email, come back as a
// *common.ValidationError.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*Credentials, error) {
	email := normalizeEmail(in.Username)
	name := strings.TrimSpace(in.Name)

	verr := &common.ValidationError{}
	if !isEmail(email) {
		verr.Add("username", msgInvalidEmail)
	}
	if strings.TrimSpace(in.Password) == "" {
		verr.Add("password", msgNotBlank)
	}
	if name == "" {
		verr.Add("name", msgNotBlank)
	}
	if verr.HasErrors() {
		return nil, verr
	}

	salt, err := s.passwords.NewSalt()
	if err != nil {
		return nil, fmt.Errorf("%w: salt: %v", common.ErrorInternal, err)
	}

	now := s.tokens.Now()
	user := &models.User{
		Email:        email,
		Name:         name,
		PasswordHash: s.passwords.Hash(in.Password, salt),
		Salt:         salt,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	var creds *Credentials
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if _, err := s.repomanager.Users(tx).Create(ctx, user); err != nil {
			if errors.Is(err, common.ErrorAlreadyExists) {
				return common.NewValidationError("username", msgEmailTaken)
			}
			return fmt.Errorf("create user: %w", err)
		}
		var err error
		creds, err = s.issue(ctx, tx, user)
		return err
	})
	if err != nil {
		return nil, err
	}
	return creds, nil
}

// Login checks the password and issues a new token row. Every failure the
// caller could act on collapses into common.ErrInvalidCredentials.
func (s *AuthService) Login(ctx context.Context, username, password string) (*Credentials, error) {
	email := normalizeEmail(username)
	if email == "" || password == "" {
		return nil, common.ErrInvalidCredentials
	}

	var creds *Credentials
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		user, err := s.repomanager.Users(tx).GetByEmail(ctx, email)
		if err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				// keep timing close to the wrong-password path
				s.passwords.Hash(password, email)
				return common.ErrInvalidCredentials
			}
			return fmt.Errorf("find user: %w", err)
		}
		if !s.passwords.Verify(password, user.Salt, user.PasswordHash) {
			return common.ErrInvalidCredentials
		}
		creds, err = s.issue(ctx, tx, user)
		return err
	})
	if err != nil {
		return nil, err
	}
	return creds, nil
}

// RefreshToken rotates the session's token row in place. The access token
// may already be expired; only the refresh lifetime is checked.
func (s *AuthService) RefreshToken(ctx context.Context, session *Session, submitted string) (*Credentials, error) {
	if session == nil || session.Token == nil {
		return nil, common.ErrAuthRequired
	}
	if submitted == "" {
		return nil, common.ErrMissingRefreshToken
	}

	raw, err := auth.DecodeToken(submitted)
	if err != nil {
		return nil, common.ErrInvalidRefreshToken
	}

	current := session.Token
	if subtle.ConstantTimeCompare([]byte(raw), []byte(current.RefreshToken)) != 1 {
		return nil, common.ErrInvalidRefreshToken
	}
	if s.tokens.RefreshTokenIsExpired(current.UpdatedAt) {
		return nil, common.ErrRefreshTokenExpired
	}

	email := ""
	if session.User != nil {
		email = session.User.Email
	}
	access, refresh, err := s.newValues(email)
	if err != nil {
		return nil, err
	}

	now := s.tokens.Now()
	rotated := *current
	rotated.AccessToken = access
	rotated.RefreshToken = refresh
	rotated.ExpiresAt = s.tokens.AccessTokenExpiry(now)
	rotated.UpdatedAt = now

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		return s.repomanager.Tokens(tx).Rotate(ctx, &rotated, current.RefreshToken)
	})
	if err != nil {
		if errors.Is(err, common.ErrVersionConflict) {
			return nil, common.ErrInvalidRefreshToken
		}
		return nil, fmt.Errorf("rotate token: %w", err)
	}

	*session.Token = rotated
	return credentialsFor(&rotated), nil
}

// Logout deletes the session's token row.
func (s *AuthService) Logout(ctx context.Context, session *Session) error {
	if session == nil || session.Token == nil {
		return common.ErrNotLoggedIn
	}

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		return s.repomanager.Tokens(tx).Delete(ctx, session.Token.ID)
	})
	if err != nil {
		return fmt.Errorf("delete token: %w", err)
	}

	session.Token = nil
	return nil
}

// UpdateProfile applies the non-nil fields of in. A new password gets a
// fresh salt.
func (s *AuthService) UpdateProfile(ctx context.Context, session *Session, in UpdateProfileInput) (*UserView, error) {
	if session == nil || session.User == nil {
		return nil, common.ErrAuthRequired
	}

	verr := &common.ValidationError{}
	if in.Name != nil && strings.TrimSpace(*in.Name) == "" {
		verr.Add("name", msgNotBlank)
	}
	if in.Password != nil && strings.TrimSpace(*in.Password) == "" {
		verr.Add("password", msgNotBlank)
	}
	if verr.HasErrors() {
		return nil, verr
	}

	updated := *session.User
	if in.Name != nil {
		updated.Name = strings.TrimSpace(*in.Name)
	}
	if in.Password != nil {
		salt, err := s.passwords.NewSalt()
		if err != nil {
			return nil, fmt.Errorf("%w: salt: %v", common.ErrorInternal, err)
		}
		updated.Salt = salt
		updated.PasswordHash = s.passwords.Hash(*in.Password, salt)
	}
	updated.UpdatedAt = s.tokens.Now()

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		return s.repomanager.Users(tx).Update(ctx, &updated)
	})
	if err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}

	*session.User = updated
	return viewOf(&updated), nil
}

func (s *AuthService) CurrentUser(_ context.Context, session *Session) (*UserView, error) {
	if session == nil || session.User == nil {
		return nil, common.ErrAuthRequired
	}
	return viewOf(session.User), nil
}

// Authenticate resolves the base64 header value to a Session. An empty value
// is common.ErrAuthRequired. Expired access tokens are rejected unless
// allowExpired is set, which only the refresh route does.
func (s *AuthService) Authenticate(ctx context.Context, encoded string, allowExpired bool) (*Session, error) {
	if encoded == "" {
		return nil, common.ErrAuthRequired
	}
	raw, err := auth.DecodeToken(encoded)
	if err != nil {
		return nil, common.ErrInvalidToken
	}

	var session *Session
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		token, err := s.repomanager.Tokens(tx).FindByAccessToken(ctx, raw)
		if err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return common.ErrInvalidToken
			}
			return fmt.Errorf("find token: %w", err)
		}
		if !allowExpired && s.tokens.AccessTokenIsExpired(token.ExpiresAt) {
			return common.ErrTokenExpired
		}

		user, err := s.repomanager.Users(tx).GetByID(ctx, token.UserID)
		if err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return common.ErrInvalidToken
			}
			return fmt.Errorf("find token owner: %w", err)
		}

		session = &Session{User: user, Token: token}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return session, nil
}

// --- helpers below ---

func (s *AuthService) issue(ctx context.Context, tx dbx.DBTX, user *models.User) (*Credentials, error) {
	access, refresh, err := s.newValues(user.Email)
	if err != nil {
		return nil, err
	}

	now := s.tokens.Now()
	token := &models.Token{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresAt:    s.tokens.AccessTokenExpiry(now),
		UserID:       user.ID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repomanager.Tokens(tx).Create(ctx, token); err != nil {
		return nil, fmt.Errorf("create token: %w", err)
	}
	return credentialsFor(token), nil
}

func (s *AuthService) newValues(email string) (access, refresh string, err error) {
	access, err = s.tokens.GenerateTokenValue(email)
	if err != nil {
		return "", "", fmt.Errorf("%w: %v", common.ErrorInternal, err)
	}
	refresh, err = s.tokens.GenerateTokenValue(email)
	if err != nil {
		return "", "", fmt.Errorf("%w: %v", common.ErrorInternal, err)
	}
	return access, refresh, nil
}

func credentialsFor(t *models.Token) *Credentials {
	return &Credentials{AccessToken: t.AccessToken, RefreshToken: t.RefreshToken, ExpiresAt: t.ExpiresAt}
}

func viewOf(u *models.User) *UserView {
	return &UserView{ID: u.ID, Email: u.Email, Name: u.Name, Roles: u.AllRoles()}
}

func normalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// isEmail accepts a bare addr-spec: no display name, no angle brackets.
func isEmail(s string) bool {
	if s == "" {
		return false
	}
	addr, err := mail.ParseAddress(s)
	return err == nil && addr.Address == s
}
