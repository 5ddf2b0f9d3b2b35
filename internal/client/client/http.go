package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dmitrijs2005/tokenauth/internal/common"
)

type credentialsDTO struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiredAt    string `json:"expired_at"`
}

type userDTO struct {
	ID    string   `json:"id"`
	Email string   `json:"email"`
	Name  string   `json:"name"`
	Roles []string `json:"roles"`
}

type errorDTO struct {
	Error struct {
		Message string            `json:"message"`
		Code    int               `json:"code"`
		Fields  map[string]string `json:"fields"`
	} `json:"error"`
}

// HTTPClient talks to the tokenauth HTTP/JSON API.
type HTTPClient struct {
	baseURL string
	http    *http.Client
}

func NewHTTPClient(baseURL string, timeout time.Duration) (*HTTPClient, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid server address: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid server address %q: scheme must be http or https", baseURL)
	}

	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}, nil
}

func (c *HTTPClient) Register(ctx context.Context, username, name string, password []byte) (*Credentials, error) {
	body := map[string]string{"username": username, "name": name, "password": string(password)}
	return c.credentials(ctx, http.MethodPut, "/account", "", body)
}

func (c *HTTPClient) Login(ctx context.Context, username string, password []byte) (*Credentials, error) {
	body := map[string]string{"username": username, "password": string(password)}
	return c.credentials(ctx, http.MethodPut, "/token", "", body)
}

func (c *HTTPClient) Refresh(ctx context.Context, accessToken, refreshToken string) (*Credentials, error) {
	body := map[string]string{"refresh_token": refreshToken}
	return c.credentials(ctx, http.MethodPost, "/token", accessToken, body)
}

func (c *HTTPClient) Logout(ctx context.Context, accessToken string) error {
	return c.do(ctx, http.MethodDelete, "/token", accessToken, nil, nil)
}

func (c *HTTPClient) CurrentUser(ctx context.Context, accessToken string) (*User, error) {
	var dto userDTO
	if err := c.do(ctx, http.MethodGet, "/account", accessToken, nil, &dto); err != nil {
		return nil, err
	}
	return toUser(dto), nil
}

// UpdateProfile sends only the fields that are set.
func (c *HTTPClient) UpdateProfile(ctx context.Context, accessToken string, name *string, password []byte) (*User, error) {
	body := map[string]string{}
	if name != nil {
		body["name"] = *name
	}
	if password != nil {
		body["password"] = string(password)
	}

	var dto userDTO
	if err := c.do(ctx, http.MethodPost, "/account", accessToken, body, &dto); err != nil {
		return nil, err
	}
	return toUser(dto), nil
}

func (c *HTTPClient) Ping(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/ping", "", nil, nil)
}

func (c *HTTPClient) credentials(ctx context.Context, method, path, token string, body any) (*Credentials, error) {
	var dto credentialsDTO
	if err := c.do(ctx, method, path, token, body, &dto); err != nil {
		return nil, err
	}

	expiresAt, err := time.Parse(time.RFC3339, dto.ExpiredAt)
	if err != nil {
		return nil, fmt.Errorf("invalid expired_at %q: %w", dto.ExpiredAt, err)
	}
	return &Credentials{AccessToken: dto.AccessToken, RefreshToken: dto.RefreshToken, ExpiresAt: expiresAt}, nil
}

func (c *HTTPClient) do(ctx context.Context, method, path, token string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set(common.AccessTokenHeaderName, token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return decodeAPIError(resp)
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("invalid response body: %w", err)
	}
	return nil
}

func decodeAPIError(resp *http.Response) error {
	apiErr := &APIError{Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}

	var dto errorDTO
	if err := json.NewDecoder(resp.Body).Decode(&dto); err == nil && dto.Error.Message != "" {
		apiErr.Message = dto.Error.Message
		apiErr.Fields = dto.Error.Fields
	}
	return apiErr
}

func toUser(dto userDTO) *User {
	return &User{ID: dto.ID, Email: dto.Email, Name: dto.Name, Roles: dto.Roles}
}
