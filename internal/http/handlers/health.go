package handlers

import (
	"net/http"
)

func (a *App) Health(w http.ResponseWriter, r *http.Request) {
	a.json(w, http.StatusOK, map[string]string{"status": "ok"})
}

type envReport struct {
	ReplicateToken string `json:"replicateToken"`
	SupabaseURL    string `json:"supabaseUrl"`
	NodeEnv        string `json:"nodeEnv"`
}

// TestEnv reports which credentials are configured without revealing them.
func (a *App) TestEnv(w http.ResponseWriter, r *http.Request) {
	found := func(ok bool) string {
		if ok {
			return "Found"
		}
		return "Not found"
	}
	a.json(w, http.StatusOK, envReport{
		ReplicateToken: found(a.Restorer != nil && a.Restorer.Configured()),
		SupabaseURL:    found(a.Config.Identity.BaseURL != ""),
		NodeEnv:        a.Config.AppEnv,
	})
}
