package http

import (
	"net/http"

	"github.com/hiredeck/hiredeck/pkg/httpx"
)

// ErrorResponse is the uniform error body for every failure.
type ErrorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
}

func writeError(w http.ResponseWriter, code int, errCode, description string) {
	httpx.WriteJSON(w, code, ErrorResponse{
		Error:            errCode,
		ErrorDescription: description,
	})
}

// writeInvalidCredentials is the single 401 for bad email, bad password,
// and every invalid-token condition. Distinct bodies here would hand an
// attacker an enumeration oracle.
func writeInvalidCredentials(w http.ResponseWriter) {
	writeError(w, http.StatusUnauthorized, "invalid_credentials", "Invalid credentials")
}

func writeInvalidSession(w http.ResponseWriter) {
	writeError(w, http.StatusUnauthorized, "invalid_session", "Authentication required")
}

func writeServerError(w http.ResponseWriter) {
	writeError(w, http.StatusInternalServerError, "server_error", "Internal error")
}
