// internal/auth/middleware.go
package auth

import (
	"context"
	"net/http"
	"strings"

	"libranexus/internal/apperror"
	"libranexus/internal/httpx"
)

type principalKey struct{}

// WithPrincipal stores the authenticated caller on ctx.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFrom returns the caller stored by Authenticate.
func PrincipalFrom(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok
}

// Authenticate validates the Bearer token and stores the principal on the
// request context.
func Authenticate(svc Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				httpx.WriteError(w, r, apperror.Unauthorized("authorization header required"))
				return
			}
			scheme, token, ok := strings.Cut(header, " ")
			token = strings.TrimSpace(token)
			if !ok || !strings.EqualFold(scheme, "Bearer") || token == "" {
				httpx.WriteError(w, r, apperror.Unauthorized("expected format: Bearer <token>"))
				return
			}

			p, err := svc.Authenticate(r.Context(), token)
			if err != nil {
				httpx.WriteError(w, r, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), *p)))
		})
	}
}

// RequireRole rejects callers that hold none of roles. It must run after
// Authenticate.
func RequireRole(roles ...Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := PrincipalFrom(r.Context())
			if !ok {
				httpx.WriteError(w, r, apperror.Unauthorized("authentication required"))
				return
			}
			if !p.HasRole(roles...) {
				httpx.WriteError(w, r, apperror.Forbidden("access denied"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
