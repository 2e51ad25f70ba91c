package restore

import (
	"context"
	"sync"
)

type trackedJob struct {
	subject string
	cancel  context.CancelFunc
}

// Tracker indexes in-flight polls by prediction id so they can be canceled
// by their owner.
type Tracker struct {
	mu   sync.Mutex
	jobs map[string]trackedJob
}

func NewTracker() *Tracker {
	return &Tracker{jobs: make(map[string]trackedJob)}
}

// Track registers the cancel func of a running poll.
func (t *Tracker) Track(id, subject string, cancel context.CancelFunc) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.jobs[id] = trackedJob{subject: subject, cancel: cancel}
}

// Cancel stops the poll for id when subject owns it.
func (t *Tracker) Cancel(id, subject string) bool {
	t.mu.Lock()
	job, ok := t.jobs[id]
	if ok && job.subject == subject {
		delete(t.jobs, id)
	}
	t.mu.Unlock()
	if !ok || job.subject != subject {
		return false
	}
	job.cancel()
	return true
}

// Release forgets id once its poll has returned.
func (t *Tracker) Release(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.jobs, id)
}

// Len returns the number of in-flight polls.
func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.jobs)
}
