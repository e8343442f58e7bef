package handlers

import (
	"encoding/json"
	stderrors "errors"
	"io"
	"net/http"

	"github.com/abrezinsky/hackportal/internal/errors"
	"github.com/abrezinsky/hackportal/internal/services"
	"github.com/abrezinsky/hackportal/internal/stagegate"
)

// Error codes for standardized API error responses
const (
	ErrCodeBadRequest     = "BAD_REQUEST"
	ErrCodeNotFound       = "NOT_FOUND"
	ErrCodeConflict       = "CONFLICT"
	ErrCodeValidation     = "VALIDATION_ERROR"
	ErrCodeInternalServer = "INTERNAL_SERVER_ERROR"
	ErrCodeNoSession      = "NO_SESSION"
	ErrCodeNoDownload     = "NO_DOWNLOAD"
	ErrCodePortalDown     = "PORTAL_UNREACHABLE"
	ErrCodePortalRejected = "PORTAL_REJECTED"
)

// APIError represents an error with an HTTP status code and error code
type APIError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"error"`
}

func (e *APIError) Error() string {
	return e.Message
}

// BadRequest creates a 400 error with custom message
func BadRequest(message string) *APIError {
	return &APIError{Status: http.StatusBadRequest, Code: ErrCodeBadRequest, Message: message}
}

// NotFound creates a 404 error with custom message
func NotFound(message string) *APIError {
	return &APIError{Status: http.StatusNotFound, Code: ErrCodeNotFound, Message: message}
}

// respondJSON writes a JSON response with the given status code
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// respondOK writes a 200 OK JSON response
func respondOK(w http.ResponseWriter, data interface{}) {
	respondJSON(w, http.StatusOK, data)
}

// respondError writes an error response
func (h *Handlers) respondError(w http.ResponseWriter, err error) {
	apiErr := h.ToAPIError(err)
	respondJSON(w, apiErr.Status, apiErr)
}

// decodeJSON decodes JSON from request body into the target
func decodeJSON(r *http.Request, target interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(target); err != nil {
		if err == io.EOF {
			return BadRequest("Request body is empty")
		}
		return BadRequest("Invalid JSON: " + err.Error())
	}
	return nil
}

// ToAPIError converts service and portal errors to API errors. Portal
// failures keep the message the terminal would show.
func (h *Handlers) ToAPIError(err error) *APIError {
	var apiErr *APIError
	if stderrors.As(err, &apiErr) {
		return apiErr
	}

	if stderrors.Is(err, services.ErrNoSession) {
		return &APIError{Status: http.StatusNotFound, Code: ErrCodeNoSession, Message: services.ErrNoSession.Message}
	}
	if stderrors.Is(err, stagegate.ErrNoDownload) || stderrors.Is(err, stagegate.ErrNoCredentials) {
		return &APIError{Status: http.StatusConflict, Code: ErrCodeNoDownload, Message: err.Error()}
	}

	var appErr *errors.Error
	if stderrors.As(err, &appErr) {
		switch appErr.Kind {
		case errors.ErrNotFound:
			return NotFound(appErr.Message)
		case errors.ErrValidation:
			return &APIError{Status: http.StatusBadRequest, Code: ErrCodeValidation, Message: errors.UserMessage(err, appErr.Message)}
		case errors.ErrTransport:
			return &APIError{Status: http.StatusBadGateway, Code: ErrCodePortalDown, Message: errors.UserMessage(err, "")}
		case errors.ErrRejected:
			return &APIError{Status: http.StatusBadGateway, Code: ErrCodePortalRejected, Message: errors.UserMessage(err, "The portal rejected the request")}
		}
	}

	h.Log.Error("Internal error", "error", err)
	return &APIError{Status: http.StatusInternalServerError, Code: ErrCodeInternalServer, Message: "Internal server error"}
}
