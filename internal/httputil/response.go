package httputil

import (
	"errors"
	"net/http"

	"github.com/goccy/go-json"

	"socialmedia_api/internal/logging"
	"socialmedia_api/internal/model"
	"socialmedia_api/internal/validation"
)

// Error codes returned in the error envelope.
const (
	ErrCodeBadRequest   = "BAD_REQUEST"
	ErrCodeValidation   = "VALIDATION_ERROR"
	ErrCodeSelfFollow   = "SELF_FOLLOW"
	ErrCodeNotLiked     = "NOT_LIKED"
	ErrCodeUnauthorized = "UNAUTHORIZED"
	ErrCodeForbidden    = "FORBIDDEN"
	ErrCodeNotFound     = "NOT_FOUND"
	ErrCodeConflict     = "CONFLICT"
	ErrCodeInternal     = "INTERNAL_ERROR"

	ErrCodeFileTooLarge     = "FILE_TOO_LARGE"
	ErrCodeInvalidImageType = "INVALID_IMAGE_TYPE"
)

// ErrorResponse represents the standard error response format
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains the error code and message
type ErrorDetail struct {
	Code    string                  `json:"code"`
	Message string                  `json:"message"`
	Fields  []validation.FieldError `json:"fields,omitempty"`
}

// WriteJSON writes a JSON response with the given status code
func WriteJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			logging.Warn().Err(err).Msg("encode response body")
		}
	}
}

// WriteError writes {"error": {"code": "ERROR_CODE", "message": "..."}}.
func WriteError(w http.ResponseWriter, status int, code string, message string) {
	WriteJSON(w, status, ErrorResponse{Error: ErrorDetail{Code: code, Message: message}})
}

// DecodeJSON decodes the request body into dst and validates it.
func DecodeJSON(r *http.Request, dst interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return model.NewValidationError("invalid request body")
	}
	return validation.ValidateStruct(dst)
}

// WriteServiceError maps an error kind to its HTTP status and code. Errors of
// no known kind are logged and reported as 500 without leaking the message.
func WriteServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var ve *validation.RequestValidationError
	switch {
	case errors.As(err, &ve):
		WriteJSON(w, http.StatusBadRequest, ErrorResponse{Error: ErrorDetail{
			Code:    ErrCodeValidation,
			Message: ve.Error(),
			Fields:  ve.Fields,
		}})
	case errors.Is(err, model.ErrNotLiked):
		WriteError(w, http.StatusBadRequest, ErrCodeNotLiked, err.Error())
	case errors.Is(err, model.ErrFileTooLarge):
		WriteError(w, http.StatusBadRequest, ErrCodeFileTooLarge, "avatar exceeds 5MB limit")
	case errors.Is(err, model.ErrInvalidImageType):
		WriteError(w, http.StatusBadRequest, ErrCodeInvalidImageType, "unsupported image type, allowed: jpeg, png, gif, webp")
	case errors.Is(err, model.ErrRefreshTokenExpired):
		WriteError(w, http.StatusUnauthorized, model.CodeTokenExpired, err.Error())
	case errors.Is(err, model.ErrRefreshTokenReused):
		WriteError(w, http.StatusUnauthorized, model.CodeTokenReused, "refresh token reuse detected, please login again")
	case errors.Is(err, model.ErrNotFound):
		WriteError(w, http.StatusNotFound, ErrCodeNotFound, err.Error())
	case errors.Is(err, model.ErrSelfFollow):
		WriteError(w, http.StatusBadRequest, ErrCodeSelfFollow, err.Error())
	case errors.Is(err, model.ErrUnauthorized):
		WriteError(w, http.StatusUnauthorized, ErrCodeUnauthorized, err.Error())
	case errors.Is(err, model.ErrForbidden):
		WriteError(w, http.StatusForbidden, ErrCodeForbidden, err.Error())
	case errors.Is(err, model.ErrValidation):
		WriteError(w, http.StatusBadRequest, ErrCodeValidation, err.Error())
	case errors.Is(err, model.ErrConflict):
		WriteError(w, http.StatusConflict, ErrCodeConflict, err.Error())
	default:
		logging.Ctx(r.Context()).Error().Err(err).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Msg("unhandled service error")
		WriteError(w, http.StatusInternalServerError, ErrCodeInternal, "internal server error")
	}
}

// WriteBadRequest writes a 400 Bad Request error
func WriteBadRequest(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusBadRequest, ErrCodeBadRequest, message)
}

// WriteUnauthorized writes a 401 Unauthorized error
func WriteUnauthorized(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusUnauthorized, ErrCodeUnauthorized, message)
}

// WriteUnauthorizedWithCode writes a 401 Unauthorized error with a custom code
func WriteUnauthorizedWithCode(w http.ResponseWriter, code string, message string) {
	WriteError(w, http.StatusUnauthorized, code, message)
}

// WriteInternalError writes a 500 Internal Server Error
func WriteInternalError(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusInternalServerError, ErrCodeInternal, message)
}
