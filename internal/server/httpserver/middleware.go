package httpserver

import (
	"net/http"
	"runtime/debug"
	"time"

	"github.com/dmitrijs2005/tokenauth/internal/common"
	"github.com/google/uuid"
)

const requestIDHeader = "X-Request-ID"

type middleware func(http.Handler) http.Handler

// chain applies middlewares so that the first one is outermost.
func chain(middlewares ...middleware) middleware {
	return func(final http.Handler) http.Handler {
		for i := len(middlewares) - 1; i >= 0; i-- {
			final = middlewares[i](final)
		}
		return final
	}
}

// statusRecorder captures the status code written by the handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (rw *statusRecorder) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

func (s *HTTPServer) requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(withRequestID(r.Context(), id)))
	})
}

func (s *HTTPServer) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rw, r)

		s.logger.Info(r.Context(), "request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rw.status,
			"duration", time.Since(start),
			"request_id", RequestIDFrom(r.Context()),
		)
	})
}

func (s *HTTPServer) recoverPanics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if p := recover(); p != nil {
				s.logger.Error(r.Context(), "panic in handler", "panic", p, "stack", string(debug.Stack()))
				s.writeError(w, r, common.ErrorInternal)
			}
		}()
		r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
		next.ServeHTTP(w, r)
	})
}

// observeRequests runs inside the router so the matched route name is known.
func (s *HTTPServer) observeRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rw, r)

		s.metrics.ObserveRequest(r.Method, routeName(r), rw.status, time.Since(start))
	})
}

// authenticate resolves the access token header into a Session. Public
// routes are skipped. A request without the header continues anonymously
// and protected handlers reject it. Only the refresh route accepts an
// expired access token.
func (s *HTTPServer) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		name := routeName(r)
		if _, ok := publicRoutes[name]; ok {
			next.ServeHTTP(w, r)
			return
		}

		header := r.Header.Get(common.AccessTokenHeaderName)
		if header == "" {
			next.ServeHTTP(w, r)
			return
		}

		session, err := s.auth.Authenticate(r.Context(), header, name == RouteTokenRefresh)
		if err != nil {
			s.metrics.ObserveOperation("authenticate", err)
			s.writeError(w, r, err)
			return
		}

		next.ServeHTTP(w, r.WithContext(withSession(r.Context(), session)))
	})
}
