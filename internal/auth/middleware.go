package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/HerbHall/assetscout/internal/problem"
)

// claimsKey is a context key for the validated token claims.
type claimsKey struct{}

// ClaimsFromContext returns the validated claims from the request context,
// or nil when the request was not authenticated.
func ClaimsFromContext(ctx context.Context) *Claims {
	if c, ok := ctx.Value(claimsKey{}).(*Claims); ok {
		return c
	}
	return nil
}

// Public API paths that don't require authentication.
var publicPaths = map[string]bool{
	"/api/v1/health": true,
}

// AuthMiddleware validates bearer tokens on API routes. Non-API paths
// (healthz, readyz, metrics) and public paths are skipped. WebSocket
// upgrades may pass the token as the "token" query parameter since
// browsers cannot set headers on them.
func AuthMiddleware(tokens *TokenService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !strings.HasPrefix(r.URL.Path, "/api/") || publicPaths[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}

			tokenString := bearerToken(r)
			if tokenString == "" {
				writeAuthError(w, r, "missing or invalid authorization header")
				return
			}

			claims, err := tokens.Validate(tokenString)
			if err != nil {
				writeAuthError(w, r, "invalid or expired access token")
				return
			}

			ctx := context.WithValue(r.Context(), claimsKey{}, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	if strings.EqualFold(r.Header.Get("Upgrade"), "websocket") {
		return r.URL.Query().Get("token")
	}
	return ""
}

// writeAuthError writes a 401 problem with a bearer challenge.
func writeAuthError(w http.ResponseWriter, r *http.Request, detail string) {
	w.Header().Set("WWW-Authenticate", `Bearer realm="assetscout"`)
	problem.Write(w, r, http.StatusUnauthorized, detail)
}
