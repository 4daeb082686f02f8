package contract

import (
	"fmt"

	"github.com/gofiber/fiber/v2"
)

type ErrorCode string

const (
	ErrorCode_BAD_REQUEST             ErrorCode = "BAD_REQUEST"
	ErrorCode_INVALID_PARAMETER_VALUE ErrorCode = "INVALID_PARAMETER_VALUE"
	ErrorCode_INVALID_FILE_TYPE       ErrorCode = "INVALID_FILE_TYPE"
	ErrorCode_MALFORMED_INPUT         ErrorCode = "MALFORMED_INPUT"
	ErrorCode_MISSING_COLUMNS         ErrorCode = "MISSING_COLUMNS"
	ErrorCode_UNAUTHENTICATED         ErrorCode = "UNAUTHENTICATED"
	ErrorCode_PERMISSION_DENIED       ErrorCode = "PERMISSION_DENIED"
	ErrorCode_RESOURCE_DOES_NOT_EXIST ErrorCode = "RESOURCE_DOES_NOT_EXIST"
	ErrorCode_ENDPOINT_NOT_FOUND      ErrorCode = "ENDPOINT_NOT_FOUND"
	ErrorCode_DUPLICATE_TITLE         ErrorCode = "DUPLICATE_TITLE"
	ErrorCode_EVICTION_FAILURE        ErrorCode = "EVICTION_FAILURE"
	ErrorCode_DELETE_FAILURE          ErrorCode = "DELETE_FAILURE"
	ErrorCode_INTERNAL_ERROR          ErrorCode = "INTERNAL_ERROR"
)

// Error is the structured failure returned by every layer and rendered as the
// response body. The wrapped cause is only ever logged.
type Error struct {
	Code           ErrorCode `json:"error_code"`
	Message        string    `json:"message"`
	MissingColumns []string  `json:"missing_columns,omitempty"`
	inner          error
}

func NewError(code ErrorCode, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
	}
}

func NewErrorWith(code ErrorCode, message string, err error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		inner:   err,
	}
}

func NewMissingColumnsError(columns []string) *Error {
	return &Error{
		Code:           ErrorCode_MISSING_COLUMNS,
		Message:        fmt.Sprintf("Missing required columns: %v", columns),
		MissingColumns: columns,
	}
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("[%s] %s", e.Code, e.Message)
	if e.inner != nil {
		return fmt.Sprintf("%s: %v", msg, e.inner)
	}

	return msg
}

func (e *Error) Unwrap() error {
	return e.inner
}

// IsInternal reports whether the error stems from infrastructure rather than from
// the request itself.
func (e *Error) IsInternal() bool {
	return e.StatusCode() >= fiber.StatusInternalServerError
}

//nolint:cyclop
func (e *Error) StatusCode() int {
	switch e.Code {
	case ErrorCode_BAD_REQUEST,
		ErrorCode_INVALID_PARAMETER_VALUE,
		ErrorCode_INVALID_FILE_TYPE,
		ErrorCode_MALFORMED_INPUT,
		ErrorCode_MISSING_COLUMNS:
		return fiber.StatusBadRequest
	case ErrorCode_UNAUTHENTICATED:
		return fiber.StatusUnauthorized
	case ErrorCode_PERMISSION_DENIED:
		return fiber.StatusForbidden
	case ErrorCode_RESOURCE_DOES_NOT_EXIST, ErrorCode_ENDPOINT_NOT_FOUND:
		return fiber.StatusNotFound
	case ErrorCode_DUPLICATE_TITLE:
		return fiber.StatusConflict
	case ErrorCode_EVICTION_FAILURE, ErrorCode_DELETE_FAILURE, ErrorCode_INTERNAL_ERROR:
		return fiber.StatusInternalServerError
	default:
		return fiber.StatusInternalServerError
	}
}
