package web

// errors.go is the single exit for failed requests. The technical error is
// logged with the request id and the client receives the mapped operator
// message, as JSON for API callers and as a page otherwise.

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/a-h/templ"

	"github.com/JonMunkholm/etl/internal/core"
	"github.com/JonMunkholm/etl/internal/logging"
	"github.com/JonMunkholm/etl/internal/view"
)

// ErrorResponse is the JSON body of a failed API request.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Action  string `json:"action,omitempty"`
	Code    string `json:"code"`
}

// respondError logs err and answers with its mapped message.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error, status int) {
	msg := core.MapError(err)

	logging.FromContext(r.Context()).Error("request error",
		"path", r.URL.Path,
		"method", r.Method,
		"status", status,
		"error", err.Error(),
		"code", msg.Code,
	)

	if wantsJSON(r) {
		writeJSON(w, r, status, ErrorResponse{
			Error:   err.Error(),
			Message: msg.Message,
			Action:  msg.Action,
			Code:    msg.Code,
		})
		return
	}

	s.renderPage(w, r, status, []string{s.errorPartial(core.FormatUserError(err))})
}

// errorPartial renders the error view for one message, falling back to
// plain escaped text when the view itself fails.
func (s *Server) errorPartial(message string) string {
	out, err := s.views.Load(view.CSVImportError, map[string]any{"errors": []string{message}})
	if err != nil {
		return "<p>" + templ.EscapeString(message) + "</p>"
	}
	return out
}

// writeError answers with a bare JSON error for failures that happen
// before a handler runs.
func writeError(w http.ResponseWriter, r *http.Request, status int, message string) {
	logging.FromContext(r.Context()).Warn("request rejected",
		"path", r.URL.Path,
		"status", status,
		"reason", message,
	)
	writeJSON(w, r, status, map[string]string{"error": message})
}

// writeJSON encodes v. Encoding errors are only logged since the header is sent.
func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.FromContext(r.Context()).Error("json encode error", "error", err)
	}
}

// wantsJSON reports whether the client expects JSON.
func wantsJSON(r *http.Request) bool {
	if strings.Contains(r.Header.Get("Accept"), "application/json") {
		return true
	}
	return strings.HasPrefix(r.URL.Path, "/api/")
}

// statusFor picks the status of a failed import.
func statusFor(err error) int {
	var maxBytes *http.MaxBytesError
	switch {
	case errors.As(err, &maxBytes):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, core.ErrTooManyImports):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
