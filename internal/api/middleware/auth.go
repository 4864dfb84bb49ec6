package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"corebank/internal/config"
	"corebank/internal/domain/identity"

	"github.com/golang-jwt/jwt/v5"
)

type contextKey string

const principalContextKey contextKey = "principal"

// IssueToken signs a bearer token carrying the caller's identity. Remember-me
// logins get the longer TTL from config.
func IssueToken(cfg config.AuthConfig, user *identity.User, rememberMe bool) (string, time.Time, error) {
	ttl := cfg.TokenTTL
	if rememberMe {
		ttl = cfg.RememberMeTTL
	}
	expiresAt := time.Now().Add(ttl)

	claims := jwt.MapClaims{
		"sub":     user.Email,
		"user_id": user.ID,
		"code":    user.Code,
		"name":    user.FullName(),
		"role":    string(user.Role),
		"exp":     expiresAt.Unix(),
		"iat":     time.Now().Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signed, err := token.SignedString([]byte(cfg.JWTSecret))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, expiresAt, nil
}

func AuthMiddleware(cfg config.AuthConfig, logger *slog.Logger) func(http.Handler) http.Handler {
	if !cfg.Enabled {
		logger.Warn("Authentication is disabled, all requests run as a local SuperAdmin")
		devPrincipal := identity.Principal{
			UserID: 1,
			Code:   "SRU0001",
			Email:  "dev@localhost",
			Name:   "Local SuperAdmin",
			Role:   identity.RoleSuperAdmin,
		}
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				next.ServeHTTP(w, r.WithContext(ContextWithPrincipal(r.Context(), devPrincipal)))
			})
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, ok := principalFromRequest(r, cfg.JWTSecret, logger)
			if !ok {
				http.Error(w, `{"error":{"message":"Unauthorized"}}`, http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r.WithContext(ContextWithPrincipal(r.Context(), principal)))
		})
	}
}

// ContextWithPrincipal attaches the authenticated caller to the context.
func ContextWithPrincipal(ctx context.Context, principal identity.Principal) context.Context {
	return context.WithValue(ctx, principalContextKey, principal)
}

// PrincipalFromContext returns the authenticated caller placed there by
// AuthMiddleware.
func PrincipalFromContext(ctx context.Context) (identity.Principal, bool) {
	principal, ok := ctx.Value(principalContextKey).(identity.Principal)
	return principal, ok
}

func principalFromRequest(r *http.Request, secret string, logger *slog.Logger) (identity.Principal, bool) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		logger.Warn("AuthMiddleware: Missing Authorization header")
		return identity.Principal{}, false
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		logger.Warn("AuthMiddleware: Invalid Authorization header format")
		return identity.Principal{}, false
	}

	claims := jwt.MapClaims{}
	token, err := jwt.ParseWithClaims(parts[1], claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			logger.Warn("AuthMiddleware: Unexpected signing method")
			return nil, http.ErrAbortHandler
		}
		return []byte(secret), nil
	})
	if err != nil || !token.Valid {
		logger.Warn("AuthMiddleware: Invalid token", "error", err)
		return identity.Principal{}, false
	}

	role, err := identity.ParseRole(claimString(claims, "role"))
	if err != nil {
		logger.Warn("AuthMiddleware: Token carries unknown role", "error", err)
		return identity.Principal{}, false
	}

	userID, ok := claims["user_id"].(float64)
	if !ok || userID <= 0 {
		logger.Warn("AuthMiddleware: Token missing user_id claim")
		return identity.Principal{}, false
	}

	return identity.Principal{
		UserID: int64(userID),
		Code:   claimString(claims, "code"),
		Email:  claimString(claims, "sub"),
		Name:   claimString(claims, "name"),
		Role:   role,
	}, true
}

func claimString(claims jwt.MapClaims, key string) string {
	s, _ := claims[key].(string)
	return s
}
