package error

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
)

type CustomError struct {
	Message  string `json:"message"`
	Code     string `json:"code"`
	HTTPCode int    `json:"httpCode"`
	Details  any    `json:"details,omitempty"`
}

func (err *CustomError) Error() string {
	if err.Code != "" {
		return fmt.Sprintf("[%s] %s", err.Code, err.Message)
	}
	return err.Message
}

func (err *CustomError) StatusCode() int {
	return err.HTTPCode
}

// Is matches on Code only, so a sentinel matches a copy carrying a
// different message or details.
func (err *CustomError) Is(target error) bool {
	if targetErr, ok := target.(*CustomError); ok {
		return err.Code == targetErr.Code && err.HTTPCode == targetErr.HTTPCode
	}
	return false
}

func NewCustomError(httpCode int, code, message string, details ...any) *CustomError {
	err := &CustomError{
		HTTPCode: httpCode,
		Code:     code,
		Message:  message,
	}
	if len(details) > 0 {
		err.Details = details[0]
	}
	return err
}

// WithDetails returns a copy of err carrying details.
func (err *CustomError) WithDetails(details any) *CustomError {
	return NewCustomError(err.HTTPCode, err.Code, err.Message, details)
}

// WithMessage returns a copy of err with a different message.
func (err *CustomError) WithMessage(message string) *CustomError {
	return &CustomError{HTTPCode: err.HTTPCode, Code: err.Code, Message: message, Details: err.Details}
}

var (
	ErrRequestBodyRequired  = NewCustomError(400, "INGEST_1001", "Request body is required")
	ErrInvalidRequestBody   = NewCustomError(400, "INGEST_1002", "Invalid request body")
	ErrMissingRequiredField = NewCustomError(400, "INGEST_1003", "Missing required fields: id, name")
	ErrRequestBodyTooLarge  = NewCustomError(413, "INGEST_1004", "Request body too large")
	ErrIngestionFailed      = NewCustomError(500, "INGEST_1005", "Internal server error")

	ErrRecordNotFound  = NewCustomError(404, "CATALOG_2001", "Record not found")
	ErrCatalogFailed   = NewCustomError(500, "CATALOG_2002", "Catalog query failed")
	ErrStoreLookupFail = NewCustomError(500, "STORE_3001", "Object store lookup failed")

	ErrHTTPBadRequest     = NewCustomError(400, "HTTP_400", "Bad Request")
	ErrHTTPNotFound       = NewCustomError(404, "HTTP_404", "Not Found")
	ErrHTTPInternalServer = NewCustomError(500, "HTTP_500", "Internal server error")
)

func ErrorHandler() fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		customErr := toCustomError(err)

		response := fiber.Map{
			"error": customErr.Message,
			"code":  customErr.Code,
		}
		if customErr.Details != nil {
			response["details"] = customErr.Details
		}
		if requestID := c.Locals("request_id"); requestID != nil {
			response["request_id"] = requestID
		}
		return c.Status(customErr.HTTPCode).JSON(response)
	}
}

// toCustomError maps framework and unknown errors onto the catalogue.
func toCustomError(err error) *CustomError {
	var customErr *CustomError
	if errors.As(err, &customErr) {
		return customErr
	}

	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		switch fiberErr.Code {
		case fiber.StatusRequestEntityTooLarge:
			return ErrRequestBodyTooLarge
		case fiber.StatusBadRequest:
			return ErrHTTPBadRequest.WithMessage(fiberErr.Message)
		case fiber.StatusNotFound:
			return ErrHTTPNotFound.WithMessage(fiberErr.Message)
		case fiber.StatusInternalServerError:
			return ErrHTTPInternalServer
		default:
			return NewCustomError(fiberErr.Code, fmt.Sprintf("HTTP_%d", fiberErr.Code), fiberErr.Message)
		}
	}

	return ErrHTTPInternalServer
}
