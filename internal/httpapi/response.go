package httpapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/leavedesk/leavedesk/internal/leave"
)

type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type Envelope struct {
	Success   bool   `json:"success"`
	Data      any    `json:"data,omitempty"`
	Error     *Error `json:"error,omitempty"`
	RequestID string `json:"requestId,omitempty"`
}

func WriteJSON(w http.ResponseWriter, status int, payload Envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Warn("write json failed", "err", err)
	}
}

func Success(w http.ResponseWriter, data any, requestID string) {
	WriteJSON(w, http.StatusOK, Envelope{Success: true, Data: data, RequestID: requestID})
}

func Created(w http.ResponseWriter, data any, requestID string) {
	WriteJSON(w, http.StatusCreated, Envelope{Success: true, Data: data, RequestID: requestID})
}

func Fail(w http.ResponseWriter, status int, code, message, requestID string) {
	WriteJSON(w, status, Envelope{Success: false, Error: &Error{Code: code, Message: message}, RequestID: requestID})
}

// errorResponse maps an operation error onto a status, code and message.
// Messages of server-side failures are not exposed.
func errorResponse(err error) (int, string, string) {
	var mbe *http.MaxBytesError
	if errors.As(err, &mbe) {
		return http.StatusRequestEntityTooLarge, "payload_too_large", "request body too large"
	}
	switch leave.KindOf(err) {
	case leave.NotFound:
		return http.StatusNotFound, "not_found", err.Error()
	case leave.InvalidInput:
		return http.StatusBadRequest, "invalid_input", err.Error()
	case leave.Serialization:
		return http.StatusUnprocessableEntity, "serialization_error", "record exceeds the maximum stored size"
	case leave.Deserialization:
		return http.StatusInternalServerError, "deserialization_error", "stored record is corrupted"
	default:
		return http.StatusInternalServerError, "internal_error", "internal error"
	}
}
