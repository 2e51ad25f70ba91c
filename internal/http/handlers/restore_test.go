package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"photorestore/internal/domain"
	"photorestore/internal/infra"
	"photorestore/internal/middleware"
	"photorestore/internal/providers/replicate"
	"photorestore/internal/restore"
	"photorestore/internal/sqlinline"
	"photorestore/internal/usage"
)

func newRestoreApp(quota *usage.Quota) *App {
	cfg := &infra.Config{Restore: infra.RestoreConfig{
		MaxUploadBytes:  10 << 20,
		TypePrefix:      "image/",
		PollInterval:    time.Second,
		MaxPollAttempts: 3,
	}}
	// No API token: any provider call would surface as misconfiguration.
	provider := replicate.NewClient(replicate.Options{})
	return &App{
		Config:   cfg,
		Logger:   zerolog.Nop(),
		Restorer: restore.NewService(restore.Options{Provider: provider, Config: cfg.Restore, Sleep: func(time.Duration) {}}),
		Quota:    quota,
	}
}

func multipartImage(t *testing.T) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("image", "a.jpg")
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	_, _ = part.Write([]byte("jpeg"))
	_ = mw.Close()
	return &buf, mw.FormDataContentType()
}

func withIdentity(req *http.Request, subject string) *http.Request {
	return req.WithContext(middleware.ContextWithIdentity(req.Context(), domain.Identity{Subject: subject}))
}

func TestRestoreQuotaExceeded(t *testing.T) {
	sql := &countSQL{n: 5}
	app := newRestoreApp(usage.NewQuota(usage.NewLedger(sql), 5, nil))
	body, ct := multipartImage(t)
	req := httptest.NewRequest(http.MethodPost, "/api/restore", body)
	req.Header.Set("Content-Type", ct)
	rr := httptest.NewRecorder()

	app.Restore(rr, withIdentity(req, "user-1"))

	if rr.Code != http.StatusForbidden {
		t.Fatalf("unexpected status code: got %d, want 403", rr.Code)
	}
	var payload map[string]string
	_ = json.NewDecoder(rr.Body).Decode(&payload)
	if payload["error"] != "Daily quota exceeded" {
		t.Fatalf("error = %q", payload["error"])
	}
	if len(sql.queries) != 1 || sql.queries[0] != sqlinline.QReserveDailyRestore {
		t.Fatalf("unexpected queries: %v", sql.queries)
	}
	if sql.n != 5 {
		t.Fatalf("rejected request must not consume a slot, count = %d", sql.n)
	}
}

func TestRestoreReleasesSlotOnFailure(t *testing.T) {
	sql := &countSQL{n: 4}
	// The upload is declared application/octet-stream, so validation rejects
	// it after the slot is taken.
	app := newRestoreApp(usage.NewQuota(usage.NewLedger(sql), 5, nil))
	body, ct := multipartImage(t)
	req := httptest.NewRequest(http.MethodPost, "/api/restore", body)
	req.Header.Set("Content-Type", ct)
	rr := httptest.NewRecorder()

	app.Restore(rr, withIdentity(req, "user-1"))

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("unexpected status code: got %d, want 400", rr.Code)
	}
	want := []string{sqlinline.QReserveDailyRestore, sqlinline.QReleaseDailyRestore}
	if len(sql.queries) != 2 || sql.queries[0] != want[0] || sql.queries[1] != want[1] {
		t.Fatalf("unexpected queries: %v", sql.queries)
	}
	if sql.n != 4 {
		t.Fatalf("failed restoration must hand its slot back, count = %d", sql.n)
	}
}

func TestRestoreWithoutIdentity(t *testing.T) {
	rr := httptest.NewRecorder()
	newRestoreApp(nil).Restore(rr, httptest.NewRequest(http.MethodPost, "/api/restore", nil))
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("unexpected status code: got %d, want 401", rr.Code)
	}
}

func TestRestoreRejectsOctetStream(t *testing.T) {
	app := newRestoreApp(nil)
	body, ct := multipartImage(t)
	req := httptest.NewRequest(http.MethodPost, "/api/restore", body)
	req.Header.Set("Content-Type", ct)
	rr := httptest.NewRecorder()

	// CreateFormFile declares application/octet-stream, so type validation fails first.
	app.Restore(rr, withIdentity(req, "user-1"))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("unexpected status code: got %d, want 400", rr.Code)
	}
}

func TestCancelRestore(t *testing.T) {
	app := newRestoreApp(nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	app.Restorer.Tracker().Track("pred-1", "owner", cancel)

	do := func(subject string) int {
		req := httptest.NewRequest(http.MethodPost, "/api/restore/pred-1/cancel", nil)
		rctx := chi.NewRouteContext()
		rctx.URLParams.Add("predictionID", "pred-1")
		req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
		rr := httptest.NewRecorder()
		app.CancelRestore(rr, withIdentity(req, subject))
		return rr.Code
	}

	if got := do("intruder"); got != http.StatusNotFound {
		t.Fatalf("foreign cancel = %d, want 404", got)
	}
	if got := do("owner"); got != http.StatusAccepted {
		t.Fatalf("owner cancel = %d, want 202", got)
	}
	if ctx.Err() == nil {
		t.Fatalf("poll context should be canceled")
	}
}
