package apierror

import (
	"fmt"
	"net/http"
	"strings"
)

type APIError struct {
	Code       string   `json:"code"`
	Message    string   `json:"message"`
	Details    []string `json:"details,omitempty"`
	HTTPStatus int      `json:"status"`
}

func (e *APIError) Error() string {
	if e == nil {
		return ""
	}

	if len(e.Details) > 0 {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, strings.Join(e.Details, "; "))
	}

	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func New(code string, message string, status int, details ...string) *APIError {
	return &APIError{Code: code, Message: message, Details: details, HTTPStatus: status}
}

// WrongCredentials is returned by login for both unknown accounts and bad
// passwords so callers cannot tell them apart.
func WrongCredentials() *APIError {
	return New("BAD_REQUEST", "Wrong credentials", http.StatusBadRequest)
}

func Forbidden() *APIError {
	return New("FORBIDDEN", "Forbidden", http.StatusForbidden)
}

func RouteNotFound() *APIError {
	return New("NOT_FOUND", "Route not found", http.StatusNotFound)
}

func Validation(details []string) *APIError {
	return New("VALIDATION_FAILED", "Validation failed", http.StatusBadRequest, details...)
}
