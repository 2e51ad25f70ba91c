package restore

import (
	"context"
	"time"

	"photorestore/internal/domain"
	"photorestore/internal/infra"
)

const (
	providerCancelTimeout = 10 * time.Second
	// DefaultPollSlack is added to the poll budget to form the hard deadline
	// of one poll loop, covering the duration of the status calls themselves.
	DefaultPollSlack = 15 * time.Second
)

// Options configures a restoration Service.
type Options struct {
	Provider     Provider
	ModelVersion string
	Config       infra.RestoreConfig
	Tracker      *Tracker
	Logger       *infra.Logger
	// Sleep replaces the poll tick wait (tests).
	Sleep func(time.Duration)
	// PollSlack overrides DefaultPollSlack.
	PollSlack time.Duration
}

// Service runs validate, submit, poll and map for one request.
type Service struct {
	cfg       infra.RestoreConfig
	provider  Provider
	submitter *Submitter
	poller    *Poller
	tracker   *Tracker
	logger    *infra.Logger
	deadline  time.Duration
}

func NewService(opts Options) *Service {
	logger := opts.Logger
	if logger == nil {
		logger = infra.DiscardLogger()
	}
	tracker := opts.Tracker
	if tracker == nil {
		tracker = NewTracker()
	}
	poller := NewPoller(opts.Provider, opts.Config.PollInterval, opts.Config.MaxPollAttempts, logger)
	poller.Sleep = opts.Sleep
	slack := opts.PollSlack
	if slack <= 0 {
		slack = DefaultPollSlack
	}
	return &Service{
		cfg:       opts.Config,
		provider:  opts.Provider,
		submitter: NewSubmitter(opts.Provider, opts.ModelVersion, logger),
		poller:    poller,
		tracker:   tracker,
		logger:    logger,
		deadline:  opts.Config.PollBudget() + slack,
	}
}

// Configured reports whether the provider credential is present.
func (s *Service) Configured() bool {
	return s.provider != nil && s.provider.HasCredentials()
}

// PollDeadline is the wall-clock bound on one poll loop.
func (s *Service) PollDeadline() time.Duration { return s.deadline }

// Tracker exposes the in-flight poll index.
func (s *Service) Tracker() *Tracker { return s.tracker }

// Restore returns an error for rejected input, missing configuration or a
// failed submission. Once a job is submitted, every outcome is reported in
// the result.
func (s *Service) Restore(ctx context.Context, subject string, img *domain.UploadedImage) (domain.RestorationResult, error) {
	if err := ValidateUpload(img, s.cfg.MaxUploadBytes, s.cfg.TypePrefix); err != nil {
		return domain.RestorationResult{}, err
	}
	log := s.logger.With().Str("subject", subject).Logger()
	log.Info().
		Str("filename", img.Filename).
		Int64("size", img.Size()).
		Str("media_type", img.MediaType).
		Msg("restore: processing image")

	handle, err := s.submitter.Submit(ctx, img)
	if err != nil {
		log.Error().Err(err).Msg("restore: submission failed")
		return domain.RestorationResult{}, err
	}
	log = log.With().Str("prediction_id", handle.ID).Logger()
	log.Info().Msg("restore: prediction started")

	pollCtx, cancel := context.WithTimeout(ctx, s.deadline)
	defer cancel()
	s.tracker.Track(handle.ID, subject, cancel)
	defer s.tracker.Release(handle.ID)

	out := s.poller.Poll(pollCtx, handle)
	if out.Interrupted {
		s.cancelUpstream(ctx, handle)
	}
	res := MapOutcome(handle, out)

	event := log.Info()
	if !res.Succeeded() {
		event = log.Warn().Str("reason", string(res.Failure.Reason)).Str("diagnostic", out.Status.Diagnostic)
	}
	event.Int("attempts", res.Attempts).
		Int("fetch_failures", out.FetchFailures).
		Dur("elapsed", res.Elapsed).
		Msg("restore: finished")
	return res, nil
}

func (s *Service) cancelUpstream(ctx context.Context, handle domain.JobHandle) {
	if handle.CancelURL == "" {
		return
	}
	cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), providerCancelTimeout)
	defer cancel()
	if err := s.provider.CancelPrediction(cctx, handle.CancelURL); err != nil {
		s.logger.Warn().Err(err).Str("prediction_id", handle.ID).Msg("restore: provider cancel failed")
	}
}
