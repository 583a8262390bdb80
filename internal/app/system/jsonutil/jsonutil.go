// Package jsonutil provides helper functions for JSON API responses.
//
// Every handler in the API answers with JSON; errors always use the body
// {"error": message} so clients see one shape regardless of endpoint.
package jsonutil

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dalemusser/filesmanager/internal/app/system/apperr"
	"go.uber.org/zap"
)

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

// OK writes a 200 OK JSON response.
func OK(w http.ResponseWriter, data any) {
	JSON(w, http.StatusOK, data)
}

// Created writes a 201 Created JSON response.
func Created(w http.ResponseWriter, data any) {
	JSON(w, http.StatusCreated, data)
}

// NoContent writes a 204 No Content response (no body).
func NoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

// Error writes an error response with the given status code.
// The response body is {"error": message}.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}

// BadRequest writes a 400 Bad Request error response.
func BadRequest(w http.ResponseWriter, message string) {
	Error(w, http.StatusBadRequest, message)
}

// Unauthorized writes the 401 response used for every authentication failure.
func Unauthorized(w http.ResponseWriter) {
	Error(w, http.StatusUnauthorized, "Unauthorized")
}

// NotFound writes the 404 response used for every missing or hidden resource.
func NotFound(w http.ResponseWriter) {
	Error(w, http.StatusNotFound, "Not found")
}

// InternalError writes a 500 Internal Server Error response.
// Do not expose internal details to clients - log the actual error separately.
func InternalError(w http.ResponseWriter, message string) {
	Error(w, http.StatusInternalServerError, message)
}

// StatusFor maps an error to the HTTP status code of its apperr kind.
// Errors without a known kind map to 500.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, apperr.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, apperr.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, apperr.ErrMissingField),
		errors.Is(err, apperr.ErrInvalidType),
		errors.Is(err, apperr.ErrInvalidParent),
		errors.Is(err, apperr.ErrConflict),
		errors.Is(err, apperr.ErrInvalidOperation):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// FromError writes the response for err. Domain errors use their own message;
// anything else is logged and answered with a generic 500.
func FromError(w http.ResponseWriter, r *http.Request, err error, logger *zap.Logger) {
	status := StatusFor(err)
	if status == http.StatusInternalServerError {
		logger.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err))
		InternalError(w, "Internal server error")
		return
	}
	msg, ok := apperr.Message(err)
	if !ok {
		msg = http.StatusText(status)
	}
	Error(w, status, msg)
}

// MaxBodyBytes bounds the request bodies Decode reads. File uploads travel
// base64 encoded inside the JSON body.
const MaxBodyBytes int64 = 32 << 20

// Decode reads and decodes JSON from the request body into v, reading at most
// MaxBodyBytes.
func Decode(w http.ResponseWriter, r *http.Request, v any) error {
	return DecodeLimit(w, r, v, MaxBodyBytes)
}

// DecodeLimit is Decode with a caller-chosen body limit.
func DecodeLimit(w http.ResponseWriter, r *http.Request, v any, limit int64) error {
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	return json.NewDecoder(r.Body).Decode(v)
}

// IsTooLarge reports whether err comes from a body over the Decode limit.
func IsTooLarge(err error) bool {
	var tooLarge *http.MaxBytesError
	return errors.As(err, &tooLarge)
}

// TooLarge writes the 413 response for an oversized request body.
func TooLarge(w http.ResponseWriter) {
	Error(w, http.StatusRequestEntityTooLarge, "Request body too large")
}
