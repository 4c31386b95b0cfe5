package web

// errors.go provides unified error response handling for the web layer.
//
// Every error is:
//   - Logged with full technical details and the request ID
//   - Mapped to a status code by its core error kind
//   - Returned as {"success":false,"message","error","code"} JSON
//
// The "error" member carries the technical text only in development; in
// production it repeats the support code so clients never see SQL or
// driver detail.

import (
	"errors"
	"net/http"

	"github.com/JonMunkholm/catalog/internal/core"
	"github.com/JonMunkholm/catalog/internal/logging"
)

// ErrorResponse is the JSON body of every failed request.
type ErrorResponse struct {
	Success bool              `json:"success"`
	Message string            `json:"message"`
	Error   string            `json:"error,omitempty"`
	Code    string            `json:"code,omitempty"`
	Action  string            `json:"action,omitempty"`
	Errors  []core.FieldError `json:"errors,omitempty"`
}

// statusFor maps a service error to its HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, core.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, core.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, core.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, core.ErrTooManyExports):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// respondError logs err and writes the matching JSON error response.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	s.writeError(w, r, err, status, s.errorResponse(err, status))
}

// errorResponse builds the client body for err.
func (s *Server) errorResponse(err error, status int) ErrorResponse {
	userMsg := core.MapError(err)
	resp := ErrorResponse{Code: userMsg.Code}

	var verr *core.ValidationError
	var derr *core.Error
	switch {
	case errors.As(err, &verr):
		resp.Message = verr.Message()
		resp.Errors = verr.Fields
	case errors.As(err, &derr):
		resp.Message = derr.Message
	case status < http.StatusInternalServerError || status == http.StatusServiceUnavailable:
		resp.Message = userMsg.Message
		resp.Action = userMsg.Action
	default:
		resp.Message = "Internal server error"
		resp.Action = userMsg.Action
	}

	if s.cfg.App.IsDevelopment() {
		resp.Error = err.Error()
	} else {
		resp.Error = userMsg.Code
	}
	return resp
}

// writeError logs and sends resp with status.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error, status int, resp ErrorResponse) {
	logger := logging.FromContext(r.Context())
	args := []any{
		"path", r.URL.Path,
		"method", r.Method,
		"status", status,
		"code", resp.Code,
	}
	if err != nil {
		args = append(args, "error", err.Error())
	}

	if status >= http.StatusInternalServerError {
		logger.Error("request error", args...)
	} else {
		logger.Warn("request rejected", args...)
	}

	writeJSONStatus(w, status, resp)
}

// respondMessage writes an error response that has no underlying error,
// such as an unknown route or a rate limit.
func (s *Server) respondMessage(w http.ResponseWriter, r *http.Request, status int, message, code string) {
	s.writeError(w, r, nil, status, ErrorResponse{Message: message, Error: message, Code: code})
}
