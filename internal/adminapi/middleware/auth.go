// Package middleware contains HTTP middleware for the admin API:
// operator auth via a static bearer secret (constant-time compare) or
// a JWT bearer token.
package middleware

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

type operatorKey struct{}

// Operator is the authenticated caller's identity.
type Operator struct {
	Subject string
	Source  string // "secret" | "jwt"
}

// OperatorFromContext extracts the Operator set by RequireOperatorAuth.
func OperatorFromContext(ctx context.Context) (Operator, bool) {
	op, ok := ctx.Value(operatorKey{}).(Operator)
	return op, ok
}

// RequireOperatorAuth accepts either a static bearer secret (system-wide
// operator access) or an HS256 JWT with a non-empty subject claim. Empty
// jwtSecret disables JWT auth; empty staticSecret disables static-secret
// auth. Both empty means no request can authenticate.
func RequireOperatorAuth(staticSecret, jwtSecret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				http.Error(w, "missing authorization header", http.StatusUnauthorized)
				return
			}
			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || parts[0] != "Bearer" {
				http.Error(w, "invalid authorization header", http.StatusUnauthorized)
				return
			}
			token := parts[1]

			if staticSecret != "" && subtle.ConstantTimeCompare([]byte(token), []byte(staticSecret)) == 1 {
				ctx := context.WithValue(r.Context(), operatorKey{}, Operator{Subject: "system", Source: "secret"})
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}

			if jwtSecret != "" {
				if op, err := authenticateJWT(token, jwtSecret); err == nil {
					ctx := context.WithValue(r.Context(), operatorKey{}, op)
					next.ServeHTTP(w, r.WithContext(ctx))
					return
				}
			}

			http.Error(w, "invalid authorization token", http.StatusUnauthorized)
		})
	}
}

func authenticateJWT(token, secret string) (Operator, error) {
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	claims := &jwt.RegisteredClaims{}
	parsed, err := parser.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return []byte(secret), nil
	})
	if err != nil {
		return Operator{}, err
	}
	if !parsed.Valid || claims.Subject == "" {
		return Operator{}, jwt.ErrTokenInvalidClaims
	}
	return Operator{Subject: claims.Subject, Source: "jwt"}, nil
}
