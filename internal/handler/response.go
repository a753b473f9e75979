package handler

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
)

type APIResponse struct {
	Success bool      `json:"success"`
	Data    any       `json:"data"`
	Error   *APIError `json:"error"`
}

type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

func NewSuccess(data any) APIResponse {
	return APIResponse{Success: true, Data: data}
}

func NewFailure(appErr *AppError, details any) APIResponse {
	return APIResponse{
		Success: false,
		Error: &APIError{
			Code:    appErr.Code,
			Message: appErr.Message,
			Details: details,
		},
	}
}

// WriteJSON encodes payload as indented JSON. Used by the CLI, which shares
// the response envelope with the HTTP surface.
func WriteJSON(w io.Writer, payload any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(payload)
}

func RespondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func RespondSuccess(w http.ResponseWriter, status int, data any) {
	RespondJSON(w, status, NewSuccess(data))
}

func RespondAppError(w http.ResponseWriter, appErr *AppError, details any) {
	RespondJSON(w, appErr.Status, NewFailure(appErr, details))
}

func RespondDomainError(w http.ResponseWriter, err error) {
	RespondAppError(w, AppErrorFor(err), nil)
}
