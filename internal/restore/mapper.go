package restore

import "photorestore/internal/domain"

// User-facing failure messages.
const (
	msgProviderFailed = "AI processing failed"
	msgTimeout        = "AI processing timeout"
	msgCanceled       = "AI processing canceled"
)

// MapOutcome converts a poll outcome into a result. Only an explicit succeeded
// state with a non-empty output yields success.
func MapOutcome(handle domain.JobHandle, out Outcome) domain.RestorationResult {
	res := domain.RestorationResult{
		JobID:    handle.ID,
		Attempts: out.Attempts,
		Elapsed:  out.Elapsed,
	}
	fail := func(reason domain.FailureReason, msg string) domain.RestorationResult {
		res.Failure = &domain.Failure{Reason: reason, Message: msg}
		return res
	}
	switch out.Status.State {
	case domain.JobStateSucceeded:
		if out.Status.Output == "" {
			return fail(domain.ReasonProviderFailure, msgProviderFailed)
		}
		res.OutputURL = out.Status.Output
		return res
	case domain.JobStateFailed:
		return fail(domain.ReasonProviderFailure, msgProviderFailed)
	case domain.JobStateCanceled:
		return fail(domain.ReasonCanceled, msgCanceled)
	case domain.JobStateTimedOut:
		if out.Attempts > 0 && out.FetchFailures >= out.Attempts {
			return fail(domain.ReasonFetchExhausted, msgTimeout)
		}
		return fail(domain.ReasonTimeout, msgTimeout)
	default:
		return fail(domain.ReasonTimeout, msgTimeout)
	}
}
