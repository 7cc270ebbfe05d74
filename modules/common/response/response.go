package response

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"buyershow-server/modules/common/model"
)

// ErrorBody - client-facing error payload
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type envelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *ErrorBody  `json:"error,omitempty"`
}

// WriteJSON - success envelope
func WriteJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(envelope{Success: true, Data: data}); err != nil {
		log.Printf("❌ [HTTP] Failed to encode response: %v", err)
	}
}

// WriteError - failure envelope with a coded error
func WriteError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(envelope{Success: false, Error: &ErrorBody{Code: code, Message: message}})
}

// WriteServiceError - map a service error onto the wire. Internal errors
// are logged and their detail suppressed outside development.
func WriteServiceError(w http.ResponseWriter, err error, development bool) {
	var appErr *model.AppError
	if errors.As(err, &appErr) {
		WriteError(w, StatusForCode(appErr.Code), appErr.Code, appErr.Message)
		return
	}

	log.Printf("❌ [HTTP] Internal error: %v", err)
	message := "Internal server error"
	if development {
		message = err.Error()
	}
	WriteError(w, http.StatusInternalServerError, model.ErrCodeInternal, message)
}

// StatusForCode - HTTP status for an application error code
func StatusForCode(code string) int {
	switch code {
	case model.ErrCodeValidation, model.ErrCodeInvalidRequest:
		return http.StatusBadRequest
	case model.ErrCodeNotFound:
		return http.StatusNotFound
	case model.ErrCodeFileTooLarge:
		return http.StatusRequestEntityTooLarge
	case model.ErrCodeInvalidFileType:
		return http.StatusUnsupportedMediaType
	case model.ErrCodeInvalidAPIKey:
		return http.StatusBadGateway
	case model.ErrCodeRateLimit:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// Unauthorized - canonical missing-identity reply
func Unauthorized(w http.ResponseWriter) {
	WriteError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
}
