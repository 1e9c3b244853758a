package auth

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

// ContextKey is the type for context keys
type ContextKey string

const (
	// ClaimsContextKey is the key for storing claims in context
	ClaimsContextKey ContextKey = "claims"
	// AdminContextKey is the key for the caller's admin flag
	AdminContextKey ContextKey = "admin"
)

// AdminList decides which callers get admin access
type AdminList interface {
	IsAdmin(email string) bool
}

// RequireAuth is middleware that requires a valid bearer token
func RequireAuth(auth *Auth, admins AdminList) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			tokenString, err := bearerToken(c.Request().Header.Get("Authorization"))
			if err != nil {
				return err
			}

			claims, err := auth.ValidateToken(tokenString)
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid or expired token")
			}

			c.Set(string(ClaimsContextKey), claims)
			c.Set(string(AdminContextKey), admins != nil && admins.IsAdmin(claims.Email))

			return next(c)
		}
	}
}

// RequireAdmin is middleware that requires the caller to be on the admin allowlist.
// It must run after RequireAuth.
func RequireAdmin() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if _, err := GetClaims(c); err != nil {
				return err
			}
			if !IsAdmin(c) {
				return echo.NewHTTPError(http.StatusForbidden, "insufficient permissions")
			}
			return next(c)
		}
	}
}

func bearerToken(header string) (string, error) {
	if header == "" {
		return "", echo.NewHTTPError(http.StatusUnauthorized, "missing authorization header")
	}

	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
		return "", echo.NewHTTPError(http.StatusUnauthorized, "invalid authorization header format")
	}

	return strings.TrimSpace(parts[1]), nil
}

// GetClaims retrieves claims from echo context
func GetClaims(c echo.Context) (*Claims, error) {
	claims, ok := c.Get(string(ClaimsContextKey)).(*Claims)
	if !ok {
		return nil, echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}
	return claims, nil
}

// GetUserID retrieves the current user ID from context
func GetUserID(c echo.Context) (string, error) {
	claims, err := GetClaims(c)
	if err != nil {
		return "", err
	}
	return claims.UserID, nil
}

// IsAdmin checks if the current user is an admin
func IsAdmin(c echo.Context) bool {
	admin, _ := c.Get(string(AdminContextKey)).(bool)
	return admin
}
