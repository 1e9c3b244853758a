package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/cpa03/basefly-sub001/pkg/types"
	"github.com/golang-jwt/jwt/v5"
)

// Claims represents JWT claims with custom fields
type Claims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

// Auth issues and verifies HS256 session tokens
type Auth struct {
	jwtSecret []byte
	issuer    string
	ttl       time.Duration
}

// NewAuth creates a new Auth instance
func NewAuth(jwtSecret, issuer string, ttl time.Duration) *Auth {
	return &Auth{
		jwtSecret: []byte(jwtSecret),
		issuer:    issuer,
		ttl:       ttl,
	}
}

// GenerateToken generates a session token for user
func (a *Auth) GenerateToken(user *types.User) (string, error) {
	if user == nil || user.ID == "" {
		return "", errors.New("user id is required")
	}

	now := time.Now()
	claims := &Claims{
		UserID: user.ID,
		Email:  user.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(a.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    a.issuer,
			Subject:   user.ID,
			ID:        types.GenerateID(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(a.jwtSecret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}

	return tokenString, nil
}

// ValidateToken validates and parses a session token
func (a *Auth) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		// Verify signing method
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return a.jwtSecret, nil
	}, jwt.WithIssuer(a.issuer))

	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}

	if claims, ok := token.Claims.(*Claims); ok && token.Valid && claims.UserID != "" {
		return claims, nil
	}

	return nil, fmt.Errorf("invalid token")
}

// TTL returns the session token lifetime
func (a *Auth) TTL() time.Duration {
	return a.ttl
}
