package errors

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/yukikurage/team-task-api/internal/logger"
)

// Kind classifies an application error.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindAuthentication
	KindAuthorization
	KindNotFound
	KindConflict
)

// Error codes
const (
	// Authentication errors
	ErrCodeUnauthorized       = "UNAUTHORIZED"
	ErrCodeInvalidCredentials = "INVALID_CREDENTIALS"
	ErrCodeTokenMissing       = "TOKEN_MISSING"
	ErrCodeTokenExpired       = "TOKEN_EXPIRED"
	ErrCodeTokenInvalid       = "TOKEN_INVALID"

	// Authorization errors
	ErrCodeForbidden = "FORBIDDEN"

	// Validation errors
	ErrCodeValidation   = "VALIDATION_ERROR"
	ErrCodeInvalidInput = "INVALID_INPUT"

	// Resource errors
	ErrCodeNotFound = "NOT_FOUND"
	ErrCodeConflict = "CONFLICT"

	// Service errors
	ErrCodeInternalError = "INTERNAL_ERROR"
)

// FieldError describes a single invalid input field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Error is the application error type rendered by Respond.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Fields  []FieldError
}

// Error implements the error interface
func (e *Error) Error() string {
	return e.Message
}

// Status maps the error kind to an HTTP status code.
func (e *Error) Status() int {
	switch e.Kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindAuthentication:
		return http.StatusUnauthorized
	case KindAuthorization:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func New(kind Kind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

func Validation(message string, fields ...FieldError) *Error {
	return &Error{Kind: KindValidation, Code: ErrCodeValidation, Message: message, Fields: fields}
}

func Authentication(code, message string) *Error {
	return New(KindAuthentication, code, message)
}

func Forbidden(message string) *Error {
	return New(KindAuthorization, ErrCodeForbidden, message)
}

func NotFound(message string) *Error {
	return New(KindNotFound, ErrCodeNotFound, message)
}

func Conflict(message string) *Error {
	return New(KindConflict, ErrCodeConflict, message)
}

// KindOf returns the kind of err, or KindInternal when err is not an *Error.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

// Response is the error body returned to clients.
type Response struct {
	Success bool         `json:"success"`
	Code    string       `json:"code"`
	Message string       `json:"message"`
	Errors  []FieldError `json:"errors,omitempty"`
}

// Predefined errors
var (
	ErrUnauthorized  = Authentication(ErrCodeUnauthorized, "Authentication required")
	ErrForbidden     = Forbidden("Access denied")
	ErrInvalidInput  = Validation("Invalid request body")
	ErrInternalError = New(KindInternal, ErrCodeInternalError, "Internal server error")
)

// Respond writes err using the standard error shape and aborts the chain.
// Errors outside the taxonomy are logged and reported as a generic 500.
func Respond(c *gin.Context, err error) {
	var appErr *Error
	if !errors.As(err, &appErr) || appErr.Kind == KindInternal {
		logger.FromContext(c).Error("unhandled error",
			zap.Error(err),
			zap.String("path", c.Request.URL.Path),
		)
		appErr = ErrInternalError
	}

	c.AbortWithStatusJSON(appErr.Status(), Response{
		Success: false,
		Code:    appErr.Code,
		Message: appErr.Message,
		Errors:  appErr.Fields,
	})
}
