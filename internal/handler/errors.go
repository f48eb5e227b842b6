package handler

import (
	"errors"
	"net/http"

	"github.com/oapi-codegen/runtime/types"
)

// apiError is the body of every error response.
type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type apiErrorResponse struct {
	Error apiError `json:"error"`
}

// newErrorResponse creates an apiErrorResponse with the given code and message
func newErrorResponse(code, message string) apiErrorResponse {
	return apiErrorResponse{Error: apiError{Code: code, Message: message}}
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, newErrorResponse(code, message))
}

func unauthorized(w http.ResponseWriter) {
	writeError(w, http.StatusUnauthorized, ErrCodeNotAuthenticated, "Not authenticated")
}

func notFound(w http.ResponseWriter, message string) {
	writeError(w, http.StatusNotFound, ErrCodeNotFound, message)
}

func validationError(w http.ResponseWriter, message string) {
	writeError(w, http.StatusBadRequest, ErrCodeValidationError, message)
}

func isEmailValidationError(err error) bool {
	return errors.Is(err, types.ErrValidationEmail)
}

// Common error codes
const (
	ErrCodeInvalidJSON      = "INVALID_JSON"
	ErrCodeInternalError    = "INTERNAL_ERROR"
	ErrCodeNotAuthenticated = "NOT_AUTHENTICATED"
	ErrCodeNotFound         = "NOT_FOUND"
	ErrCodePermissionDenied = "PERMISSION_DENIED"
	ErrCodeValidationError  = "VALIDATION_ERROR"
	ErrCodeConflict         = "CONFLICT"
)
