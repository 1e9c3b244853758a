package middleware

import (
	"net/http"
	"strings"

	"github.com/cpa03/basefly-sub001/internal/logging"
	"github.com/cpa03/basefly-sub001/pkg/types"
	"github.com/labstack/echo/v4"
)

const (
	// RequestIDHeader is the HTTP header carrying the correlation id
	RequestIDHeader = echo.HeaderXRequestID

	// RequestIDContextKey is the echo context key holding the correlation id
	RequestIDContextKey = "request_id"
)

// ResolveRequestID returns the caller's X-Request-ID when it is present and
// non-blank, otherwise a newly generated id. It never fails.
func ResolveRequestID(header http.Header) string {
	if header != nil {
		if id := strings.TrimSpace(header.Get(RequestIDHeader)); id != "" {
			return id
		}
	}
	return types.GenerateRequestID()
}

// RequestID resolves the correlation id for each request and writes it to
// the response header, the echo context and the request context.
func RequestID() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			id := ResolveRequestID(req.Header)

			// Downstream proxies and handlers see the resolved id
			req.Header.Set(RequestIDHeader, id)
			c.Response().Header().Set(RequestIDHeader, id)
			c.Set(RequestIDContextKey, id)
			c.SetRequest(req.WithContext(logging.SetRequestID(req.Context(), id)))

			return next(c)
		}
	}
}

// GetRequestID returns the correlation id assigned by RequestID
func GetRequestID(c echo.Context) string {
	if id, ok := c.Get(RequestIDContextKey).(string); ok {
		return id
	}
	return logging.GetRequestID(c.Request().Context())
}
