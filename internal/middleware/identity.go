package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"photorestore/internal/auth"
	"photorestore/internal/domain"
)

type identityKey struct{}

// IdentityResolver resolves the caller of a request.
type IdentityResolver interface {
	Resolve(ctx context.Context, r *http.Request) (*auth.Resolution, error)
}

// RequireIdentity rejects unauthenticated requests with 401 and stores the
// resolved identity in the request context. Refreshed session cookies are
// written before the handler runs.
func RequireIdentity(resolver IdentityResolver, l zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			res, err := resolver.Resolve(r.Context(), r)
			if err != nil {
				event := l.Info()
				if errors.Is(err, domain.ErrIdentityUnavailable) {
					event = l.Error()
				}
				event.Err(err).Str("request_id", RequestIDFromContext(r.Context())).Msg("authentication failed")
				writeError(w, http.StatusUnauthorized, "Unauthorized")
				return
			}
			for _, ck := range res.Cookies {
				http.SetCookie(w, ck)
			}
			next.ServeHTTP(w, r.WithContext(ContextWithIdentity(r.Context(), res.Identity)))
		})
	}
}

func IdentityFromContext(ctx context.Context) (domain.Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(domain.Identity)
	return id, ok && id.Subject != ""
}

func ContextWithIdentity(ctx context.Context, id domain.Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
