package restore

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"photorestore/internal/domain"
	"photorestore/internal/infra"
	"photorestore/internal/providers/replicate"
)

// Provider is the inference provider surface used by a restoration.
type Provider interface {
	HasCredentials() bool
	CreatePrediction(ctx context.Context, req replicate.CreateRequest) (*replicate.Prediction, error)
	GetPrediction(ctx context.Context, statusURL string) (*replicate.Prediction, error)
	CancelPrediction(ctx context.Context, cancelURL string) error
}

var _ Provider = (*replicate.Client)(nil)

// ErrNotConfigured is returned before any provider call when no credential is set.
var ErrNotConfigured = fmt.Errorf("%w: inference provider credential missing", domain.ErrMisconfigured)

// ProviderError is a failed submission. Message is the user-facing text.
type ProviderError struct {
	Message string
	Err     error
}

func (e *ProviderError) Error() string { return e.Message }

func (e *ProviderError) Unwrap() error { return e.Err }

// Model input; the model version is configured separately.
const (
	gfpganVersion = "v1.4"
	upscale       = 2
)

// Submitter issues exactly one create-prediction call per restoration.
type Submitter struct {
	provider     Provider
	modelVersion string
	logger       *infra.Logger
}

func NewSubmitter(provider Provider, modelVersion string, logger *infra.Logger) *Submitter {
	if logger == nil {
		logger = infra.DiscardLogger()
	}
	return &Submitter{provider: provider, modelVersion: modelVersion, logger: logger}
}

// Submit encodes the image inline and creates a prediction. Provider rejections
// are not retried.
func (s *Submitter) Submit(ctx context.Context, img *domain.UploadedImage) (domain.JobHandle, error) {
	if s.provider == nil || !s.provider.HasCredentials() {
		return domain.JobHandle{}, ErrNotConfigured
	}
	pred, err := s.provider.CreatePrediction(ctx, replicate.CreateRequest{
		Version: s.modelVersion,
		Input: map[string]any{
			"img":     DataURL(img),
			"version": gfpganVersion,
			"scale":   upscale,
		},
	})
	if err != nil {
		return domain.JobHandle{}, classifySubmitError(err)
	}
	return domain.JobHandle{ID: pred.ID, StatusURL: pred.URLs.Get, CancelURL: pred.URLs.Cancel}, nil
}

func classifySubmitError(err error) error {
	var apiErr *replicate.APIError
	switch {
	case errors.As(err, &apiErr):
		detail := strings.TrimSpace(apiErr.Detail)
		if detail == "" {
			detail = "Unknown error"
		}
		return &ProviderError{
			Message: "AI service error: " + detail,
			Err:     fmt.Errorf("%w: %w", domain.ErrProviderRejected, err),
		}
	case errors.Is(err, replicate.ErrMissingAPIToken):
		return ErrNotConfigured
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return &ProviderError{Message: "AI processing canceled", Err: err}
	default:
		return &ProviderError{
			Message: "AI service error: service unreachable",
			Err:     fmt.Errorf("%w: %w", domain.ErrProviderRejected, err),
		}
	}
}

// DataURL renders the image as data:<type>;base64,<payload>.
func DataURL(img *domain.UploadedImage) string {
	var b strings.Builder
	b.WriteString("data:")
	b.WriteString(img.MediaType)
	b.WriteString(";base64,")
	b.WriteString(base64.StdEncoding.EncodeToString(img.Data))
	return b.String()
}
