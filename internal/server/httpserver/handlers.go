package httpserver

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/dmitrijs2005/tokenauth/internal/common"
	"github.com/dmitrijs2005/tokenauth/internal/server/auth"
	"github.com/dmitrijs2005/tokenauth/internal/server/services"
)

type registerRequest struct {
	Username string `json:"username"`
	Name     string `json:"name"`
	Password string `json:"password"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type updateProfileRequest struct {
	Name     *string `json:"name"`
	Password *string `json:"password"`
}

type credentialsResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiredAt    string `json:"expired_at"`
}

type userResponse struct {
	ID    string   `json:"id"`
	Email string   `json:"email"`
	Name  string   `json:"name"`
	Roles []string `json:"roles"`
}

func toCredentialsResponse(c *services.Credentials) credentialsResponse {
	return credentialsResponse{
		AccessToken:  auth.EncodeToken(c.AccessToken),
		RefreshToken: auth.EncodeToken(c.RefreshToken),
		ExpiredAt:    c.ExpiresAt.UTC().Format(time.RFC3339),
	}
}

func toUserResponse(v *services.UserView) userResponse {
	return userResponse{ID: v.ID, Email: v.Email, Name: v.Name, Roles: v.Roles}
}

// decodeJSON reads the body into dst. An empty body leaves dst untouched.
func decodeJSON(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		return common.NewValidationError("body", "Malformed JSON body.")
	}
	return nil
}

func (s *HTTPServer) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	creds, err := s.auth.Register(r.Context(), services.RegisterInput{
		Username: req.Username,
		Name:     req.Name,
		Password: req.Password,
	})
	s.metrics.ObserveOperation("register", err)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toCredentialsResponse(creds))
}

func (s *HTTPServer) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	creds, err := s.auth.Login(r.Context(), req.Username, req.Password)
	s.metrics.ObserveOperation("login", err)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toCredentialsResponse(creds))
}

func (s *HTTPServer) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	creds, err := s.auth.RefreshToken(r.Context(), SessionFrom(r.Context()), req.RefreshToken)
	s.metrics.ObserveOperation("refresh", err)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toCredentialsResponse(creds))
}

func (s *HTTPServer) handleLogout(w http.ResponseWriter, r *http.Request) {
	err := s.auth.Logout(r.Context(), SessionFrom(r.Context()))
	s.metrics.ObserveOperation("logout", err)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, "OK")
}

func (s *HTTPServer) handleCurrentUser(w http.ResponseWriter, r *http.Request) {
	v, err := s.auth.CurrentUser(r.Context(), SessionFrom(r.Context()))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toUserResponse(v))
}

func (s *HTTPServer) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	session := SessionFrom(r.Context())
	if session == nil {
		s.writeError(w, r, common.ErrAuthRequired)
		return
	}

	var req updateProfileRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	v, err := s.auth.UpdateProfile(r.Context(), session, services.UpdateProfileInput{
		Name:     req.Name,
		Password: req.Password,
	})
	s.metrics.ObserveOperation("update_profile", err)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toUserResponse(v))
}

func (s *HTTPServer) handlePing(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "OK"})
}
