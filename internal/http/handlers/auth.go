package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"photorestore/internal/auth"
	"photorestore/internal/domain"
)

const (
	accessCookieMaxAge = time.Hour
	identityTimeout    = 10 * time.Second
)

type verifyTokenRequest struct {
	AccessToken string `json:"access_token"`
}

type verifyTokenUser struct {
	ID           string         `json:"id"`
	Email        string         `json:"email"`
	UserMetadata map[string]any `json:"user_metadata"`
	AppMetadata  map[string]any `json:"app_metadata"`
}

type verifyTokenResponse struct {
	Success bool             `json:"success"`
	User    *verifyTokenUser `json:"user,omitempty"`
	Error   string           `json:"error,omitempty"`
}

// VerifyToken validates a client-held access token and pins it in an httpOnly
// cookie so later requests can authenticate without a bearer header.
func (a *App) VerifyToken(w http.ResponseWriter, r *http.Request) {
	var req verifyTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		a.json(w, http.StatusBadRequest, verifyTokenResponse{Error: "Invalid request body"})
		return
	}
	token := strings.TrimSpace(req.AccessToken)
	if token == "" {
		a.json(w, http.StatusBadRequest, verifyTokenResponse{Error: "No access token provided"})
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), identityTimeout)
	defer cancel()
	id, err := a.Validator.ValidateToken(ctx, token)
	if err != nil {
		a.Logger.Info().Err(err).Msg("verify token rejected")
		a.json(w, http.StatusUnauthorized, verifyTokenResponse{Error: "Invalid token"})
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     auth.LegacyAccessCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   int(accessCookieMaxAge / time.Second),
		HttpOnly: true,
		Secure:   a.Config.IsProduction(),
		SameSite: http.SameSiteLaxMode,
	})
	a.Logger.Info().Str("subject", id.Subject).Msg("token verified")
	a.json(w, http.StatusOK, verifyTokenResponse{
		Success: true,
		User: &verifyTokenUser{
			ID:           id.Subject,
			Email:        id.Email,
			UserMetadata: id.UserMetadata,
			AppMetadata:  id.AppMetadata,
		},
	})
}

// AuthCallback completes an OAuth sign-in: the code is exchanged for a session
// which is stored in the session cookie before redirecting.
func (a *App) AuthCallback(w http.ResponseWriter, r *http.Request) {
	code := strings.TrimSpace(r.URL.Query().Get("code"))
	if code == "" {
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}
	redirect := safeRedirect(r.URL.Query().Get("redirect"))

	var verifier string
	if ck, err := r.Cookie(a.Sessions.Name + "-code-verifier"); err == nil {
		verifier = ck.Value
	}
	ctx, cancel := context.WithTimeout(r.Context(), identityTimeout)
	defer cancel()
	session, err := a.Identity.ExchangeCode(ctx, code, verifier)
	if err != nil {
		a.Logger.Error().Err(err).Msg("auth callback: code exchange failed")
		http.Redirect(w, r, "/login?error=auth_failed", http.StatusFound)
		return
	}
	if session == nil || session.AccessToken == "" {
		a.Logger.Error().Msg("auth callback: exchange returned no session")
		http.Redirect(w, r, "/login?error=unexpected_error", http.StatusFound)
		return
	}
	for _, ck := range a.Sessions.ReplaceCookies(r, domain.Session{
		AccessToken:  session.AccessToken,
		RefreshToken: session.RefreshToken,
		ExpiresAt:    session.ExpiresAt,
	}) {
		http.SetCookie(w, ck)
	}
	http.SetCookie(w, &http.Cookie{Name: a.Sessions.Name + "-code-verifier", Path: "/", MaxAge: -1})
	a.Logger.Info().Str("subject", session.User.ID).Msg("auth callback: signed in")
	http.Redirect(w, r, redirect, http.StatusFound)
}

// safeRedirect only allows same-origin absolute paths.
func safeRedirect(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" || !strings.HasPrefix(raw, "/") || strings.HasPrefix(raw, "//") || strings.HasPrefix(raw, "/\\") {
		return "/"
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host != "" || u.Scheme != "" {
		return "/"
	}
	return raw
}
