// Package api provides HTTP handlers and routing for the swathpoint service.
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// ErrorResponse is the body of every error reply.
type ErrorResponse struct {
	Code        string `json:"code"`
	Description string `json:"description"`
	RequestID   string `json:"request_id,omitempty"`
}

// Error codes.
const (
	ErrCodeBadRequest       = "BadRequest"
	ErrCodeNotFound         = "NotFound"
	ErrCodeInvalidParameter = "InvalidParameterValue"
	ErrCodeServerError      = "ServerError"
	ErrCodeUpstreamError    = "UpstreamServiceError"
	ErrCodeUnavailable      = "ServiceUnavailable"
)

// statusCodes is the error code used for a status when none is given.
var statusCodes = map[int]string{
	http.StatusBadRequest:          ErrCodeBadRequest,
	http.StatusNotFound:            ErrCodeNotFound,
	http.StatusInternalServerError: ErrCodeServerError,
	http.StatusBadGateway:          ErrCodeUpstreamError,
	http.StatusServiceUnavailable:  ErrCodeUnavailable,
	http.StatusGatewayTimeout:      ErrCodeUpstreamError,
}

// WriteJSON writes v as application/json with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) error {
	return encode(w, status, "application/json", v)
}

// WriteGeoJSON writes v as application/geo+json.
func WriteGeoJSON(w http.ResponseWriter, status int, v any) error {
	return encode(w, status, "application/geo+json", v)
}

func encode(w http.ResponseWriter, status int, mediaType string, v any) error {
	w.Header().Set("Content-Type", mediaType)
	w.WriteHeader(status)

	// Headers are gone by now, so a failed encode can only be logged.
	err := json.NewEncoder(w).Encode(v)
	if err != nil {
		slog.Error("failed to encode response",
			slog.Int("status", status),
			slog.String("content_type", mediaType),
			slog.String("error", err.Error()),
		)
	}
	return err
}

// WriteError writes an error body. An empty code is derived from status.
func WriteError(w http.ResponseWriter, status int, code, message string) {
	if code == "" {
		code = statusCodes[status]
	}
	encode(w, status, "application/json", ErrorResponse{Code: code, Description: message})
}

func WriteBadRequest(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusBadRequest, "", message)
}

func WriteNotFound(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusNotFound, "", message)
}

// WriteInvalidParameter is a 400 naming a query or body parameter.
func WriteInvalidParameter(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusBadRequest, ErrCodeInvalidParameter, message)
}

func WriteInternalError(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusInternalServerError, "", message)
}

// WriteInternalErrorWithRequestID echoes the request ID so users can quote it.
func WriteInternalErrorWithRequestID(w http.ResponseWriter, message, requestID string) {
	encode(w, http.StatusInternalServerError, "application/json", ErrorResponse{
		Code:        ErrCodeServerError,
		Description: message,
		RequestID:   requestID,
	})
}

// WriteUpstreamError is a 502 for CMR, Earthdata or Open-Meteo failures.
func WriteUpstreamError(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusBadGateway, "", message)
}

// WriteUnavailable is a 503 for features the server was started without.
func WriteUnavailable(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusServiceUnavailable, "", message)
}
