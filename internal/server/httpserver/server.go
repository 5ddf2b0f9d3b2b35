// Package httpserver exposes the auth service over HTTP/JSON using
// gorilla/mux.
package httpserver

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/dmitrijs2005/tokenauth/internal/logging"
	"github.com/dmitrijs2005/tokenauth/internal/server/metrics"
	"github.com/dmitrijs2005/tokenauth/internal/server/services"
	"github.com/gorilla/mux"
)

// AuthService is what the handlers need from services.AuthService.
type AuthService interface {
	Register(ctx context.Context, in services.RegisterInput) (*services.Credentials, error)
	Login(ctx context.Context, username, password string) (*services.Credentials, error)
	RefreshToken(ctx context.Context, session *services.Session, submitted string) (*services.Credentials, error)
	Logout(ctx context.Context, session *services.Session) error
	UpdateProfile(ctx context.Context, session *services.Session, in services.UpdateProfileInput) (*services.UserView, error)
	CurrentUser(ctx context.Context, session *services.Session) (*services.UserView, error)
	Authenticate(ctx context.Context, encoded string, allowExpired bool) (*services.Session, error)
}

const maxBodyBytes = 1 << 20

type HTTPServer struct {
	address         string
	auth            AuthService
	metrics         *metrics.Metrics
	logger          logging.Logger
	shutdownTimeout time.Duration
}

func NewHTTPServer(address string, l logging.Logger, svc AuthService, m *metrics.Metrics, shutdownTimeout time.Duration) *HTTPServer {
	if m == nil {
		m = metrics.New(nil)
	}
	return &HTTPServer{
		address:         address,
		auth:            svc,
		metrics:         m,
		logger:          l.With("module", "http_server"),
		shutdownTimeout: shutdownTimeout,
	}
}

// Handler builds the full middleware chain around the router.
func (s *HTTPServer) Handler() http.Handler {
	return chain(s.requestID, s.logRequests, s.recoverPanics)(s.router())
}

func (s *HTTPServer) router() *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/account", s.handleRegister).Methods(http.MethodPut).Name(RouteAccountCreate)
	r.HandleFunc("/account", s.handleCurrentUser).Methods(http.MethodGet).Name(RouteAccountShow)
	r.HandleFunc("/account", s.handleUpdateProfile).Methods(http.MethodPost).Name(RouteAccountUpdate)

	r.HandleFunc("/token", s.handleLogin).Methods(http.MethodPut).Name(RouteTokenCreate)
	r.HandleFunc("/token", s.handleRefresh).Methods(http.MethodPost).Name(RouteTokenRefresh)
	r.HandleFunc("/token", s.handleLogout).Methods(http.MethodDelete).Name(RouteTokenDelete)

	r.HandleFunc("/ping", s.handlePing).Methods(http.MethodGet).Name(RoutePing)
	r.Handle("/metrics", s.metrics.Handler()).Methods(http.MethodGet).Name(RouteMetrics)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.writeErrorMessage(w, r, http.StatusNotFound, "not found", nil)
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.writeErrorMessage(w, r, http.StatusMethodNotAllowed, "method not allowed", nil)
	})

	r.Use(s.observeRequests, s.authenticate)
	return r
}

// Run serves until ctx is done, then shuts down gracefully within the
// configured timeout.
func (s *HTTPServer) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(listen)
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", listen.Addr().String())

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.logger.Info(ctx, "Stopping HTTP server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
