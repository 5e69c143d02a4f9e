package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/appetiteclub/apt"
)

type claimsKey struct{}

// RequireStaff rejects requests without a valid staff bearer token.
func RequireStaff(verifier TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := BearerToken(r)
			if !ok {
				apt.RespondError(w, http.StatusUnauthorized, "missing authorization header")
				return
			}

			claims, err := verifier.Verify(token)
			if err != nil {
				apt.RespondError(w, http.StatusUnauthorized, err.Error())
				return
			}
			if claims.Role != RoleStaff {
				apt.RespondError(w, http.StatusForbidden, "staff role required")
				return
			}

			ctx := context.WithValue(r.Context(), claimsKey{}, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func BearerToken(r *http.Request) (string, bool) {
	parts := strings.Fields(r.Header.Get("Authorization"))
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", false
	}
	return parts[1], true
}

func ClaimsFrom(ctx context.Context) *Claims {
	claims, _ := ctx.Value(claimsKey{}).(*Claims)
	return claims
}
