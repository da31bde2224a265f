package auth

import (
	"errors"
	"net/http"
	"strings"

	apperrors "aptbook/pkg/errors"
	httputil "aptbook/pkg/http"
	"aptbook/pkg/logger"
)

// Authenticate resolves a bearer access token into an Identity on the request
// context. Requests without an Authorization header pass through anonymously;
// a present but invalid token is rejected with 401.
func Authenticate(tokens *TokenManager, log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				next.ServeHTTP(w, r)
				return
			}

			scheme, raw, ok := strings.Cut(header, " ")
			if !ok || !strings.EqualFold(scheme, "Bearer") || raw == "" {
				_ = httputil.WriteError(w, apperrors.Unauthorized("Authorization header must be 'Bearer <token>'"))
				return
			}

			claims, err := tokens.Parse(strings.TrimSpace(raw), TokenTypeAccess)
			if err != nil {
				msg := "Invalid token"
				if errors.Is(err, ErrExpiredToken) {
					msg = "Token expired"
				}
				log.Warn("Rejected bearer token", "path", r.URL.Path, "error", err)
				_ = httputil.WriteError(w, apperrors.Unauthorized(msg))
				return
			}

			id := &Identity{
				UserID:   claims.Subject,
				Email:    claims.Email,
				UserType: claims.UserType,
			}
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
		})
	}
}
