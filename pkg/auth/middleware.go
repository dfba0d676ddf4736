// pkg/auth/middleware.go
package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/athebyme/gomarket-platform/catalog-sync/pkg/interfaces"
)

type principalKeyType struct{}

var principalKey = principalKeyType{}

// ContextWithPrincipal кладет данные вызывающей стороны в контекст
func ContextWithPrincipal(ctx context.Context, p *interfaces.Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

// PrincipalFromContext извлекает данные вызывающей стороны
func PrincipalFromContext(ctx context.Context) (*interfaces.Principal, bool) {
	p, ok := ctx.Value(principalKey).(*interfaces.Principal)
	return p, ok && p != nil
}

// AuthMiddleware промежуточное ПО для проверки bearer-токенов
func AuthMiddleware(verifier interfaces.AuthPort, logger interfaces.LoggerPort) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				http.Error(w, "Authorization header is required", http.StatusUnauthorized)
				return
			}

			// Проверяем формат токена
			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
				http.Error(w, "Invalid authorization format", http.StatusUnauthorized)
				return
			}

			principal, err := verifier.VerifyToken(r.Context(), parts[1])
			if err != nil {
				logger.WarnWithContext(r.Context(), "Invalid JWT token",
					interfaces.LogField{Key: "error", Value: err.Error()})
				http.Error(w, "Invalid token", http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r.WithContext(ContextWithPrincipal(r.Context(), principal)))
		})
	}
}

// RequireRole проверяет наличие определенной роли
func RequireRole(role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, ok := PrincipalFromContext(r.Context())
			if !ok {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			if !principal.HasRole(role) {
				http.Error(w, "Forbidden", http.StatusForbidden)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
