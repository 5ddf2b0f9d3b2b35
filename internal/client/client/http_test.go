package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dmitrijs2005/tokenauth/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorded struct {
	method string
	path   string
	token  string
	body   map[string]string
}

func newServer(t *testing.T, status int, response string) (*HTTPClient, *recorded) {
	t.Helper()
	rec := &recorded{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec.method = r.Method
		rec.path = r.URL.Path
		rec.token = r.Header.Get(common.AccessTokenHeaderName)
		_ = json.NewDecoder(r.Body).Decode(&rec.body)

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(response))
	}))
	t.Cleanup(srv.Close)

	c, err := NewHTTPClient(srv.URL+"/", time.Second)
	require.NoError(t, err)
	return c, rec
}

const credentialsJSON = `{"access_token":"YWNj","refresh_token":"cmVm","expired_at":"2026-04-01T10:00:00Z"}`

func TestNewHTTPClient_RejectsBadAddress(t *testing.T) {
	_, err := NewHTTPClient("127.0.0.1:8080", time.Second)
	require.Error(t, err)

	_, err = NewHTTPClient("://nope", time.Second)
	require.Error(t, err)
}

func TestRegister(t *testing.T) {
	c, rec := newServer(t, http.StatusOK, credentialsJSON)

	creds, err := c.Register(context.Background(), "a@x.com", "Alice", []byte("pw123"))
	require.NoError(t, err)

	assert.Equal(t, http.MethodPut, rec.method)
	assert.Equal(t, "/account", rec.path)
	assert.Empty(t, rec.token)
	assert.Equal(t, map[string]string{"username": "a@x.com", "name": "Alice", "password": "pw123"}, rec.body)

	assert.Equal(t, "YWNj", creds.AccessToken)
	assert.Equal(t, "cmVm", creds.RefreshToken)
	assert.True(t, creds.ExpiresAt.Equal(time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC)))
}

func TestLogin(t *testing.T) {
	c, rec := newServer(t, http.StatusOK, credentialsJSON)

	_, err := c.Login(context.Background(), "a@x.com", []byte("pw123"))
	require.NoError(t, err)
	assert.Equal(t, http.MethodPut, rec.method)
	assert.Equal(t, "/token", rec.path)
	assert.Equal(t, map[string]string{"username": "a@x.com", "password": "pw123"}, rec.body)
}

func TestRefresh_SendsHeaderAndBody(t *testing.T) {
	c, rec := newServer(t, http.StatusOK, credentialsJSON)

	_, err := c.Refresh(context.Background(), "YWNj", "cmVm")
	require.NoError(t, err)
	assert.Equal(t, http.MethodPost, rec.method)
	assert.Equal(t, "/token", rec.path)
	assert.Equal(t, "YWNj", rec.token)
	assert.Equal(t, map[string]string{"refresh_token": "cmVm"}, rec.body)
}

func TestLogout(t *testing.T) {
	c, rec := newServer(t, http.StatusOK, `"OK"`)

	require.NoError(t, c.Logout(context.Background(), "YWNj"))
	assert.Equal(t, http.MethodDelete, rec.method)
	assert.Equal(t, "YWNj", rec.token)
}

func TestCurrentUser(t *testing.T) {
	c, rec := newServer(t, http.StatusOK, `{"id":"u1","email":"a@x.com","name":"Alice","roles":["ROLE_USER"]}`)

	u, err := c.CurrentUser(context.Background(), "YWNj")
	require.NoError(t, err)
	assert.Equal(t, http.MethodGet, rec.method)
	assert.Equal(t, &User{ID: "u1", Email: "a@x.com", Name: "Alice", Roles: []string{"ROLE_USER"}}, u)
}

func TestUpdateProfile_OnlySetFields(t *testing.T) {
	c, rec := newServer(t, http.StatusOK, `{"id":"u1","email":"a@x.com","name":"Bob","roles":["ROLE_USER"]}`)

	name := "Bob"
	u, err := c.UpdateProfile(context.Background(), "YWNj", &name, nil)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"name": "Bob"}, rec.body)
	assert.Equal(t, "Bob", u.Name)
}

func TestErrorEnvelope(t *testing.T) {
	tests := []struct {
		name         string
		status       int
		body         string
		message      string
		unauthorized bool
	}{
		{"validation", http.StatusBadRequest,
			`{"error":{"message":"validation failed","code":400,"context":{"file":"h.go","line":1},"fields":{"username":"taken"}}}`,
			"validation failed", false},
		{"expired", http.StatusUnauthorized, `{"error":{"message":"token expired","code":401}}`, "token expired", true},
		{"invalid", http.StatusForbidden, `{"error":{"message":"invalid token","code":403}}`, "invalid token", true},
		{"not json", http.StatusBadGateway, `<html>bad gateway</html>`, "Bad Gateway", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := newServer(t, tt.status, tt.body)

			_, err := c.Login(context.Background(), "a@x.com", []byte("x"))

			var apiErr *APIError
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, tt.status, apiErr.Status)
			assert.Equal(t, tt.message, apiErr.Message)
			assert.Equal(t, tt.unauthorized, errors.Is(err, ErrUnauthorized))
		})
	}
}

func TestAPIError_MessageIncludesFields(t *testing.T) {
	err := &APIError{Status: 400, Message: "validation failed", Fields: map[string]string{"name": "blank", "password": "blank"}}
	assert.Equal(t, "validation failed (400): name: blank; password: blank", err.Error())
}

func TestPing_Unavailable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c, err := NewHTTPClient(url, time.Second)
	require.NoError(t, err)

	require.ErrorIs(t, c.Ping(context.Background()), ErrUnavailable)
}

func TestPing_OK(t *testing.T) {
	c, rec := newServer(t, http.StatusOK, `{"status":"OK"}`)

	require.NoError(t, c.Ping(context.Background()))
	assert.Equal(t, "/ping", rec.path)
}
