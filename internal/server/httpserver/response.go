package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"
	"path/filepath"
	"runtime"

	"github.com/dmitrijs2005/tokenauth/internal/common"
)

type errorContext struct {
	File string `json:"file"`
	Line int    `json:"line"`
}

type errorDetail struct {
	Message string            `json:"message"`
	Code    int               `json:"code"`
	Context errorContext      `json:"context"`
	Fields  map[string]string `json:"fields,omitempty"`
}

type errorResponse struct {
	Error errorDetail `json:"error"`
}

// clientErrors are safe to echo back verbatim.
var clientErrors = []error{
	common.ErrAuthRequired,
	common.ErrInvalidCredentials,
	common.ErrInvalidToken,
	common.ErrNotLoggedIn,
	common.ErrTokenExpired,
	common.ErrMissingRefreshToken,
	common.ErrInvalidRefreshToken,
	common.ErrRefreshTokenExpired,
	common.ErrValidationFailed,
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeError maps err to a status and the error envelope. Server errors are
// logged with their cause and answered with a generic message.
func (s *HTTPServer) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := common.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error(r.Context(), "request failed", "error", err, "request_id", RequestIDFrom(r.Context()))
		s.writeErrorMessage(w, r, status, common.ErrorInternal.Error(), nil)
		return
	}

	var fields map[string]string
	var verr *common.ValidationError
	if errors.As(err, &verr) {
		fields = verr.Fields
	}
	s.writeErrorMessage(w, r, status, publicMessage(err), fields)
}

func (s *HTTPServer) writeErrorMessage(w http.ResponseWriter, _ *http.Request, status int, msg string, fields map[string]string) {
	ctx := errorContext{}
	if _, file, line, ok := runtime.Caller(1); ok {
		ctx.File = filepath.Base(file)
		ctx.Line = line
	}

	writeJSON(w, status, errorResponse{Error: errorDetail{
		Message: msg,
		Code:    status,
		Context: ctx,
		Fields:  fields,
	}})
}

func publicMessage(err error) string {
	for _, known := range clientErrors {
		if errors.Is(err, known) {
			return known.Error()
		}
	}
	return err.Error()
}
