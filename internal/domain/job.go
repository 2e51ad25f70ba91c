package domain

import "time"

// JobState enumerates restoration job lifecycle states.
type JobState string

const (
	JobStateQueued    JobState = "queued"
	JobStateRunning   JobState = "running"
	JobStateSucceeded JobState = "succeeded"
	JobStateFailed    JobState = "failed"
	JobStateTimedOut  JobState = "timed-out"
	JobStateCanceled  JobState = "canceled"
)

// IsTerminal reports whether no further transition can occur from s.
func (s JobState) IsTerminal() bool {
	switch s {
	case JobStateSucceeded, JobStateFailed, JobStateTimedOut, JobStateCanceled:
		return true
	default:
		return false
	}
}

// JobHandle identifies one in-flight provider job and where to poll it.
type JobHandle struct {
	ID        string
	StatusURL string
	CancelURL string
}

// JobStatus is a single status observation. It is replaced on every poll.
type JobStatus struct {
	State      JobState
	Output     string
	Diagnostic string
}

// FailureReason classifies why a restoration did not produce an output.
type FailureReason string

const (
	ReasonProviderFailure FailureReason = "provider-reported-failure"
	ReasonTimeout         FailureReason = "timeout"
	ReasonFetchExhausted  FailureReason = "transient-fetch-exhausted"
	ReasonCanceled        FailureReason = "canceled"
)

// Failure describes an unsuccessful restoration.
type Failure struct {
	Reason  FailureReason
	Message string
}

// RestorationResult is the terminal artifact of one restoration request.
// Exactly one of OutputURL and Failure is set.
type RestorationResult struct {
	JobID     string
	OutputURL string
	Attempts  int
	Elapsed   time.Duration
	Failure   *Failure
}

// Succeeded reports whether the result carries an output locator.
func (r RestorationResult) Succeeded() bool {
	return r.Failure == nil && r.OutputURL != ""
}
