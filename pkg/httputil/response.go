// Package httputil provides HTTP handler utilities for consistent error
// handling, JSON encoding, and request middleware.
package httputil

import (
	"encoding/json"
	"net/http"
)

// Error kinds returned to callers. Collaborator-facing endpoints always
// answer failures with a structured (kind, message) body.
const (
	KindInvalidArgument  = "invalid-argument"
	KindUnauthenticated  = "unauthenticated"
	KindPermissionDenied = "permission-denied"
	KindNotFound         = "not-found"
	KindConflict         = "conflict"
	KindInternal         = "internal"
)

// ErrorResponse is the standardized error envelope
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// WriteJSON writes a JSON response with the given status code
func WriteJSON(w http.ResponseWriter, status int, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(data)
}

// WriteErrorKind writes a structured error response
func WriteErrorKind(w http.ResponseWriter, status int, kind, message string) {
	WriteJSON(w, status, ErrorResponse{Error: kind, Message: message})
}

// WriteInvalidArgument writes a 400 with the invalid-argument kind
func WriteInvalidArgument(w http.ResponseWriter, message string) {
	WriteErrorKind(w, http.StatusBadRequest, KindInvalidArgument, message)
}

// WriteUnauthenticated writes a 401 with the unauthenticated kind
func WriteUnauthenticated(w http.ResponseWriter, message string) {
	WriteErrorKind(w, http.StatusUnauthorized, KindUnauthenticated, message)
}

// WritePermissionDenied writes a 403 with the permission-denied kind
func WritePermissionDenied(w http.ResponseWriter, message string) {
	WriteErrorKind(w, http.StatusForbidden, KindPermissionDenied, message)
}

// WriteNotFound writes a 404 with the not-found kind
func WriteNotFound(w http.ResponseWriter, message string) {
	WriteErrorKind(w, http.StatusNotFound, KindNotFound, message)
}

// WriteConflict writes a 409 with the conflict kind
func WriteConflict(w http.ResponseWriter, message string) {
	WriteErrorKind(w, http.StatusConflict, KindConflict, message)
}

// WriteInternalError writes a 500 with the internal kind
func WriteInternalError(w http.ResponseWriter, err error) {
	WriteErrorKind(w, http.StatusInternalServerError, KindInternal, err.Error())
}

// WriteSuccess writes a successful response (200 OK) with JSON data
func WriteSuccess(w http.ResponseWriter, data interface{}) error {
	return WriteJSON(w, http.StatusOK, data)
}

// WriteCreated writes a successful creation response (201 Created)
func WriteCreated(w http.ResponseWriter, data interface{}) error {
	return WriteJSON(w, http.StatusCreated, data)
}

// ParseJSONOrError decodes the request body into dst and writes a 400 on
// failure. Returns false when an error response was already written.
func ParseJSONOrError(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		WriteInvalidArgument(w, "invalid request body")
		return false
	}
	return true
}
