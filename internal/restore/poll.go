package restore

import (
	"context"
	"errors"
	"time"

	"photorestore/internal/domain"
	"photorestore/internal/infra"
	"photorestore/internal/providers/replicate"
)

// Outcome is the terminal result of one polling loop.
type Outcome struct {
	Status        domain.JobStatus
	Attempts      int
	Elapsed       time.Duration
	FetchFailures int
	LastErr       error
	// Interrupted is set when the context ended the loop, leaving the
	// prediction running upstream.
	Interrupted bool
}

// Poller waits for a job to reach a terminal state with a fixed tick.
type Poller struct {
	Interval    time.Duration
	MaxAttempts int
	// Sleep overrides how ticks are waited for (tests).
	Sleep  func(time.Duration)
	Logger *infra.Logger

	provider Provider
}

func NewPoller(provider Provider, interval time.Duration, maxAttempts int, logger *infra.Logger) *Poller {
	if logger == nil {
		logger = infra.DiscardLogger()
	}
	return &Poller{Interval: interval, MaxAttempts: maxAttempts, Logger: logger, provider: provider}
}

// Poll sleeps one interval before every fetch, so the sleep never overlaps a
// status call. Fetch failures count as attempts. Context cancellation stops
// the loop with state canceled; an expired context deadline stops it with
// state timed-out.
func (p *Poller) Poll(ctx context.Context, handle domain.JobHandle) Outcome {
	out := Outcome{Status: domain.JobStatus{State: domain.JobStateQueued}}
	for out.Attempts < p.MaxAttempts {
		if err := p.sleep(ctx); err != nil {
			return p.interrupted(out, err)
		}
		out.Attempts++
		out.Elapsed = time.Duration(out.Attempts) * p.Interval

		pred, err := p.provider.GetPrediction(ctx, handle.StatusURL)
		if err != nil {
			if ctx.Err() != nil {
				return p.interrupted(out, ctx.Err())
			}
			out.FetchFailures++
			out.LastErr = err
			p.Logger.Warn().Err(err).
				Str("prediction_id", handle.ID).
				Int("attempt", out.Attempts).
				Msg("restore: status fetch failed")
			continue
		}
		out.Status = statusFromPrediction(pred)
		p.Logger.Debug().
			Str("prediction_id", handle.ID).
			Int("attempt", out.Attempts).
			Str("state", string(out.Status.State)).
			Msg("restore: status polled")
		if out.Status.State.IsTerminal() {
			return out
		}
	}
	out.Status = domain.JobStatus{State: domain.JobStateTimedOut, Diagnostic: out.Status.Diagnostic}
	return out
}

func (p *Poller) interrupted(out Outcome, err error) Outcome {
	state := domain.JobStateCanceled
	if errors.Is(err, context.DeadlineExceeded) {
		state = domain.JobStateTimedOut
	}
	out.Status = domain.JobStatus{State: state, Diagnostic: err.Error()}
	out.LastErr = err
	out.Interrupted = true
	return out
}

func (p *Poller) sleep(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if p.Interval <= 0 {
		return nil
	}
	if p.Sleep != nil {
		p.Sleep(p.Interval)
		return ctx.Err()
	}
	timer := time.NewTimer(p.Interval)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// statusFromPrediction translates provider states. Unknown states are treated
// as still running.
func statusFromPrediction(pred *replicate.Prediction) domain.JobStatus {
	switch pred.Status {
	case replicate.StatusStarting:
		return domain.JobStatus{State: domain.JobStateQueued}
	case replicate.StatusSucceeded:
		return domain.JobStatus{State: domain.JobStateSucceeded, Output: pred.OutputURL()}
	case replicate.StatusFailed:
		return domain.JobStatus{State: domain.JobStateFailed, Diagnostic: pred.ErrorMessage()}
	case replicate.StatusCanceled:
		return domain.JobStatus{State: domain.JobStateFailed, Diagnostic: "prediction canceled"}
	default:
		return domain.JobStatus{State: domain.JobStateRunning}
	}
}
