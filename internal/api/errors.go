package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/cpa03/basefly-sub001/internal/policy"
	"github.com/cpa03/basefly-sub001/internal/schema"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// ErrorResponse represents a standard API error response
type ErrorResponse struct {
	Error   string                   `json:"error"`
	Message string                   `json:"message,omitempty"`
	Details []map[string]interface{} `json:"details,omitempty"`
}

// NewErrorResponse creates a new error response
func NewErrorResponse(error, message string) *ErrorResponse {
	return &ErrorResponse{
		Error:   error,
		Message: message,
	}
}

// WithDetails adds details to an error response
func (e *ErrorResponse) WithDetails(details []map[string]interface{}) *ErrorResponse {
	e.Details = details
	return e
}

// ErrorBadRequest returns a 400 Bad Request error
func ErrorBadRequest(c echo.Context, message string) error {
	return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", message))
}

// ErrorForbidden returns a 403 Forbidden error
func ErrorForbidden(c echo.Context, message string) error {
	return c.JSON(http.StatusForbidden, NewErrorResponse("forbidden", message))
}

// ErrorNotFound returns a 404 Not Found error
func ErrorNotFound(c echo.Context, message string) error {
	return c.JSON(http.StatusNotFound, NewErrorResponse("not_found", message))
}

// ErrorConflict returns a 409 Conflict error
func ErrorConflict(c echo.Context, message string) error {
	return c.JSON(http.StatusConflict, NewErrorResponse("conflict", message))
}

// ErrorTooManyRequests returns a 429 Too Many Requests error
func ErrorTooManyRequests(c echo.Context, message string) error {
	return c.JSON(http.StatusTooManyRequests, NewErrorResponse("rate_limited", message))
}

// ErrorValidation returns a 400 Bad Request error listing every violated rule
func ErrorValidation(c echo.Context, result *schema.Result) error {
	details := make([]map[string]interface{}, len(result.Errors))
	for i, err := range result.Errors {
		details[i] = map[string]interface{}{
			"field":   err.Field,
			"rule":    err.Rule,
			"message": err.Message,
		}
	}

	return c.JSON(http.StatusBadRequest, NewErrorResponse(
		"validation_failed",
		"Request validation failed",
	).WithDetails(details))
}

// ErrorQuota returns a 403 Forbidden error describing an exceeded plan limit
func ErrorQuota(c echo.Context, result *policy.ValidationResult) error {
	details := make([]map[string]interface{}, len(result.Errors))
	for i, err := range result.Errors {
		details[i] = map[string]interface{}{
			"field":   err.Field,
			"message": err.Message,
			"plan":    result.Plan,
			"limit":   result.Limit,
			"used":    result.Used,
		}
	}

	return c.JSON(http.StatusForbidden, NewErrorResponse(
		"quota_exceeded",
		result.FirstError(),
	).WithDetails(details))
}

// ErrorInternal returns a 500 Internal Server Error
func ErrorInternal(c echo.Context, message string) error {
	return c.JSON(http.StatusInternalServerError, NewErrorResponse("internal_error", message))
}

// ErrorServiceUnavailable returns a 503 Service Unavailable error
func ErrorServiceUnavailable(c echo.Context, message string) error {
	return c.JSON(http.StatusServiceUnavailable, NewErrorResponse("service_unavailable", message))
}

// errorCodes maps HTTP status codes to ErrorResponse.Error values
var errorCodes = map[int]string{
	http.StatusBadRequest:            "bad_request",
	http.StatusUnauthorized:          "unauthorized",
	http.StatusForbidden:             "forbidden",
	http.StatusNotFound:              "not_found",
	http.StatusMethodNotAllowed:      "method_not_allowed",
	http.StatusConflict:              "conflict",
	http.StatusRequestEntityTooLarge: "payload_too_large",
	http.StatusTooManyRequests:       "rate_limited",
	http.StatusInternalServerError:   "internal_error",
	http.StatusServiceUnavailable:    "service_unavailable",
}

// errorHandler renders errors returned by handlers and middleware in the
// ErrorResponse envelope
func (s *Server) errorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	code := http.StatusInternalServerError
	message := "Internal server error"

	var he *echo.HTTPError
	if errors.As(err, &he) {
		code = he.Code
		if code < http.StatusInternalServerError {
			message = fmt.Sprint(he.Message)
		}
	}

	if code >= http.StatusInternalServerError {
		s.logger.Error("request failed",
			zap.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)),
			zap.String("path", c.Path()),
			zap.Error(err),
		)
	}

	name, ok := errorCodes[code]
	if !ok {
		name = strings.ReplaceAll(strings.ToLower(http.StatusText(code)), " ", "_")
		if name == "" {
			name = "internal_error"
		}
	}

	var respErr error
	if c.Request().Method == http.MethodHead {
		respErr = c.NoContent(code)
	} else {
		respErr = c.JSON(code, NewErrorResponse(name, message))
	}
	if respErr != nil {
		s.logger.Warn("write error response", zap.Error(respErr))
	}
}
