package auth

import (
	"context"
	"errors"
	"net/http"
	"time"

	"photorestore/internal/domain"
	"photorestore/internal/infra"
	"photorestore/internal/providers/supabase"
)

// refreshLeeway is how close to expiry a cookie session is refreshed.
const refreshLeeway = 60 * time.Second

// SessionRefresher exchanges a refresh token for a new session.
type SessionRefresher interface {
	RefreshSession(ctx context.Context, refreshToken string) (*supabase.Session, error)
}

// CookieStrategy validates the session cookie. Sessions close to expiry are
// refreshed best-effort; a failed refresh falls back to the stored access token.
func CookieStrategy(validator TokenValidator, refresher SessionRefresher, codec *SessionCodec, logger *infra.Logger) Strategy {
	if logger == nil {
		logger = infra.DiscardLogger()
	}
	now := time.Now
	return Strategy{
		Name: string(domain.ProvenanceCookie),
		Run: func(ctx context.Context, r *http.Request) Attempt {
			session, ok := codec.Read(r)
			if !ok {
				return skipped()
			}
			var cookies []*http.Cookie
			if refresher != nil && session.RefreshToken != "" && session.ExpiresAt > 0 &&
				now().Add(refreshLeeway).Unix() >= session.ExpiresAt {
				refreshed, err := refresher.RefreshSession(ctx, session.RefreshToken)
				if err == nil && refreshed.AccessToken == "" {
					err = errors.New("refresh returned empty access token")
				}
				if err != nil {
					logger.Warn().Err(err).Msg("auth: session refresh failed, using stored access token")
				} else {
					session = domain.Session{
						AccessToken:  refreshed.AccessToken,
						RefreshToken: refreshed.RefreshToken,
						ExpiresAt:    refreshed.ExpiresAt,
					}
					cookies = codec.ReplaceCookies(r, session)
				}
			}
			id, err := validator.ValidateToken(ctx, session.AccessToken)
			if err != nil {
				return failed(err)
			}
			id.Provenance = domain.ProvenanceCookie
			return Attempt{Identity: id, Cookies: cookies}
		},
	}
}

var _ SessionRefresher = (*supabase.Client)(nil)
