// Package responder writes the JSON response envelope every handler uses.
package responder

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"
)

// Logger receives encode failures and error causes; main replaces it at
// startup
var Logger = zap.NewNop()

type response struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

// New writes a 200 response wrapping the given payload
func New(w http.ResponseWriter, data any) {
	write(w, http.StatusOK, response{Success: true, Data: data})
}

// Status writes a response with an explicit status code
func Status(w http.ResponseWriter, status int, data any) {
	write(w, status, response{Success: status < http.StatusBadRequest, Data: data})
}

// Error writes an error response with the given status and message
func Error(w http.ResponseWriter, status int, message string) {
	write(w, status, response{Success: false, Error: message})
}

// ErrorWithCause logs the underlying cause and writes the public message
func ErrorWithCause(w http.ResponseWriter, status int, message string, cause error) {
	Logger.Error(message, zap.Error(cause))
	write(w, status, response{Success: false, Error: message})
}

func write(w http.ResponseWriter, status int, body response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		Logger.Error("failed to encode response", zap.Error(err))
	}
}
