package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"

	"photorestore/internal/auth"
	"photorestore/internal/infra"
	"photorestore/internal/providers/supabase"
	"photorestore/internal/restore"
	"photorestore/internal/usage"
)

// IdentityBackend is the identity provider surface used by the auth routes.
type IdentityBackend interface {
	ExchangeCode(ctx context.Context, code, verifier string) (*supabase.Session, error)
}

type App struct {
	Config    *infra.Config
	Logger    zerolog.Logger
	Restorer  *restore.Service
	Quota     *usage.Quota
	Validator auth.TokenValidator
	Identity  IdentityBackend
	Sessions  *auth.SessionCodec
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, code int, msg string) {
	a.json(w, code, map[string]string{"error": msg})
}
