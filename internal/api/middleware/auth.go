package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/phrazzld/tasknotify/internal/api/shared"
	"github.com/phrazzld/tasknotify/internal/platform/logger"
)

// OperatorRole is the role claim required on admin routes.
const OperatorRole = "operator"

// DefaultClockSkew is the leeway allowed when validating time claims.
const DefaultClockSkew = 2 * time.Minute

var (
	// ErrInvalidToken is returned for malformed, unsigned or wrongly signed tokens.
	ErrInvalidToken = errors.New("invalid token")

	// ErrExpiredToken is returned for tokens past their expiry.
	ErrExpiredToken = errors.New("token expired")

	// ErrNotOperator is returned for valid tokens without the operator role.
	ErrNotOperator = errors.New("operator role required")
)

// OperatorClaims are the JWT claims accepted on admin routes.
type OperatorClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// AuthMiddleware authenticates operator requests with HS256 bearer tokens.
type AuthMiddleware struct {
	signingKey []byte
	clockSkew  time.Duration
	timeFunc   func() time.Time
}

// NewAuthMiddleware creates an AuthMiddleware verifying tokens with secret.
func NewAuthMiddleware(secret string) (*AuthMiddleware, error) {
	if len(secret) < 32 {
		return nil, fmt.Errorf("jwt secret must be at least 32 characters")
	}
	return &AuthMiddleware{
		signingKey: []byte(secret),
		clockSkew:  DefaultClockSkew,
		timeFunc:   time.Now,
	}, nil
}

// IssueOperatorToken signs a token carrying the operator role.
func IssueOperatorToken(secret, subject string, lifetime time.Duration, now time.Time) (string, error) {
	claims := OperatorClaims{
		Role: OperatorRole,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(lifetime)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("failed to sign operator token: %w", err)
	}
	return signed, nil
}

// ValidateToken parses the token and checks its signature, expiry and role.
func (m *AuthMiddleware) ValidateToken(tokenString string) (*OperatorClaims, error) {
	now := m.timeFunc()

	token, err := jwt.ParseWithClaims(
		tokenString,
		&OperatorClaims{},
		func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return m.signingKey, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}),
		jwt.WithLeeway(m.clockSkew),
		jwt.WithTimeFunc(func() time.Time { return now }),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*OperatorClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Role != OperatorRole {
		return nil, ErrNotOperator
	}
	return claims, nil
}

// Authenticate rejects requests without a valid operator bearer token and
// stores the token subject in the request context.
func (m *AuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			shared.RespondWithError(w, r, http.StatusUnauthorized, "Authorization header required")
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			shared.RespondWithError(w, r, http.StatusUnauthorized, "Invalid authorization format")
			return
		}

		claims, err := m.ValidateToken(parts[1])
		switch {
		case err == nil:
		case errors.Is(err, ErrExpiredToken):
			shared.RespondWithError(w, r, http.StatusUnauthorized, "Token expired")
			return
		case errors.Is(err, ErrNotOperator):
			shared.RespondWithErrorAndLog(w, r, http.StatusForbidden, "Operator role required", err,
				shared.WithElevatedLogLevel())
			return
		default:
			shared.RespondWithErrorAndLog(w, r, http.StatusUnauthorized, "Invalid token", err,
				shared.WithElevatedLogLevel())
			return
		}

		ctx := shared.SetOperator(r.Context(), claims.Subject)
		logger.FromContext(ctx).Debug("operator authenticated", "operator", claims.Subject)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
