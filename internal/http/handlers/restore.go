package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"photorestore/internal/domain"
	"photorestore/internal/middleware"
	"photorestore/internal/restore"
)

const (
	msgNotConfigured = "AI service not configured. Please contact support."
	msgInternal      = "Internal server error"
	msgUnauthorized  = "Unauthorized"
	msgQuotaExceeded = "Daily quota exceeded"

	// multipartOverhead leaves room for the form envelope around the image.
	multipartOverhead = 1 << 20
)

type restoreResponse struct {
	Success          bool   `json:"success"`
	Message          string `json:"message"`
	RestoredImageURL string `json:"restoredImageUrl"`
	ProcessingTime   string `json:"processingTime"`
	PredictionID     string `json:"predictionId"`
}

// Restore handles POST /api/restore. The response is held open until the
// prediction finishes or the poll budget runs out.
func (a *App) Restore(w http.ResponseWriter, r *http.Request) {
	id, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		a.error(w, http.StatusUnauthorized, msgUnauthorized)
		return
	}
	slot, err := a.Quota.Reserve(r.Context(), id.Subject)
	if err != nil {
		if errors.Is(err, domain.ErrQuotaExceeded) {
			a.error(w, http.StatusForbidden, msgQuotaExceeded)
			return
		}
		a.Logger.Error().Err(err).Str("subject", id.Subject).Msg("quota reservation failed")
		a.error(w, http.StatusInternalServerError, msgInternal)
		return
	}
	// Only a successful restoration keeps the slot.
	defer slot.Release(context.WithoutCancel(r.Context()))

	img, err := a.readUpload(w, r)
	if err != nil {
		a.restoreError(w, id.Subject, err)
		return
	}

	res, err := a.Restorer.Restore(r.Context(), id.Subject, img)
	if err != nil {
		a.restoreError(w, id.Subject, err)
		return
	}
	if !res.Succeeded() {
		a.error(w, http.StatusInternalServerError, "AI processing failed: "+res.Failure.Message)
		return
	}
	slot.Commit()

	a.json(w, http.StatusOK, restoreResponse{
		Success:          true,
		Message:          "Photo restoration completed successfully",
		RestoredImageURL: res.OutputURL,
		ProcessingTime:   fmt.Sprintf("%d seconds", int(res.Elapsed/time.Second)),
		PredictionID:     res.JobID,
	})
}

// readUpload returns the "image" form file, or nil when the request carries none.
func (a *App) readUpload(w http.ResponseWriter, r *http.Request) (*domain.UploadedImage, error) {
	maxBytes := a.Config.Restore.MaxUploadBytes
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes+multipartOverhead)
	if err := r.ParseMultipartForm(maxBytes + multipartOverhead); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			return nil, restore.SizeLimitError(maxBytes)
		}
		return nil, nil
	}
	file, header, err := r.FormFile("image")
	if err != nil {
		return nil, nil
	}
	defer file.Close()
	// One extra byte is enough for the validator to see the overrun.
	data, err := io.ReadAll(io.LimitReader(file, maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	return &domain.UploadedImage{
		Filename:  header.Filename,
		MediaType: strings.TrimSpace(header.Header.Get("Content-Type")),
		Data:      data,
	}, nil
}

func (a *App) restoreError(w http.ResponseWriter, subject string, err error) {
	var inputErr *restore.InputError
	var providerErr *restore.ProviderError
	switch {
	case errors.As(err, &inputErr):
		a.error(w, http.StatusBadRequest, inputErr.Message)
	case errors.Is(err, domain.ErrMisconfigured):
		a.Logger.Error().Err(err).Msg("inference provider credential not configured")
		a.error(w, http.StatusInternalServerError, msgNotConfigured)
	case errors.As(err, &providerErr):
		a.error(w, http.StatusInternalServerError, "AI processing failed: "+providerErr.Message)
	default:
		a.Logger.Error().Err(err).Str("subject", subject).Msg("restore failed")
		a.error(w, http.StatusInternalServerError, msgInternal)
	}
}

// CancelRestore handles POST /api/restore/{predictionID}/cancel for the
// owner of an in-flight restoration.
func (a *App) CancelRestore(w http.ResponseWriter, r *http.Request) {
	id, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		a.error(w, http.StatusUnauthorized, msgUnauthorized)
		return
	}
	predictionID := chi.URLParam(r, "predictionID")
	if !a.Restorer.Tracker().Cancel(predictionID, id.Subject) {
		a.error(w, http.StatusNotFound, "Prediction not found")
		return
	}
	a.Logger.Info().Str("prediction_id", predictionID).Str("subject", id.Subject).Msg("restoration canceled by caller")
	a.json(w, http.StatusAccepted, map[string]any{"success": true, "predictionId": predictionID})
}
