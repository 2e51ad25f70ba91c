package restore

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"photorestore/internal/domain"
	"photorestore/internal/providers/replicate"
)

var testHandle = domain.JobHandle{ID: "pred-1", StatusURL: "https://provider.test/v1/predictions/pred-1"}

func newTestPoller(fp *fakeProvider, max int) *Poller {
	p := NewPoller(fp, 5*time.Second, max, nil)
	p.Sleep = fp.sleep
	return p
}

func TestPollSucceedsOnFirstAttempt(t *testing.T) {
	fp := &fakeProvider{steps: []step{{status: replicate.StatusSucceeded, output: "https://cdn.test/out.png"}}}
	out := newTestPoller(fp, 60).Poll(context.Background(), testHandle)

	if out.Status.State != domain.JobStateSucceeded || out.Status.Output != "https://cdn.test/out.png" {
		t.Fatalf("unexpected status: %+v", out.Status)
	}
	if out.Attempts != 1 || out.Elapsed != 5*time.Second {
		t.Fatalf("attempts=%d elapsed=%s", out.Attempts, out.Elapsed)
	}
	if !reflect.DeepEqual(fp.events, []string{"sleep", "get"}) {
		t.Fatalf("sleep must precede each fetch, events = %v", fp.events)
	}
}

func TestPollTimesOutAtExactlyMaxAttempts(t *testing.T) {
	for _, max := range []int{1, 3, 60} {
		fp := &fakeProvider{steps: []step{{status: replicate.StatusStarting}, {status: replicate.StatusProcessing}}}
		out := newTestPoller(fp, max).Poll(context.Background(), testHandle)
		if out.Status.State != domain.JobStateTimedOut {
			t.Fatalf("max=%d: state = %s", max, out.Status.State)
		}
		if out.Attempts != max || fp.gets != max || fp.count("sleep") != max {
			t.Fatalf("max=%d: attempts=%d gets=%d sleeps=%d", max, out.Attempts, fp.gets, fp.count("sleep"))
		}
		if out.Elapsed != time.Duration(max)*5*time.Second {
			t.Fatalf("max=%d: elapsed = %s", max, out.Elapsed)
		}
	}
}

func TestPollFailedStopsImmediately(t *testing.T) {
	fp := &fakeProvider{steps: []step{
		{status: replicate.StatusProcessing},
		{status: replicate.StatusFailed, errMsg: "CUDA out of memory"},
		{status: replicate.StatusSucceeded, output: "never"},
	}}
	out := newTestPoller(fp, 60).Poll(context.Background(), testHandle)
	if out.Status.State != domain.JobStateFailed || out.Status.Diagnostic != "CUDA out of memory" {
		t.Fatalf("unexpected status: %+v", out.Status)
	}
	if out.Attempts != 2 || fp.gets != 2 {
		t.Fatalf("attempts=%d gets=%d", out.Attempts, fp.gets)
	}
}

func TestPollProviderCanceledIsFailure(t *testing.T) {
	fp := &fakeProvider{steps: []step{{status: replicate.StatusCanceled}}}
	out := newTestPoller(fp, 60).Poll(context.Background(), testHandle)
	if out.Status.State != domain.JobStateFailed {
		t.Fatalf("state = %s", out.Status.State)
	}
}

func TestPollTransientFailuresCountTowardCeiling(t *testing.T) {
	flaky := errors.New("replicate: status 502")
	fp := &fakeProvider{steps: []step{
		{err: flaky},
		{status: replicate.StatusProcessing},
		{err: flaky},
		{status: replicate.StatusSucceeded, output: "https://cdn.test/out.png"},
	}}
	out := newTestPoller(fp, 60).Poll(context.Background(), testHandle)
	if out.Status.State != domain.JobStateSucceeded {
		t.Fatalf("state = %s", out.Status.State)
	}
	if out.Attempts != 4 || out.FetchFailures != 2 {
		t.Fatalf("attempts=%d failures=%d", out.Attempts, out.FetchFailures)
	}
}

func TestPollAllFetchesFail(t *testing.T) {
	fp := &fakeProvider{steps: []step{{err: errors.New("connection reset")}}}
	out := newTestPoller(fp, 4).Poll(context.Background(), testHandle)
	if out.Status.State != domain.JobStateTimedOut || out.FetchFailures != 4 || out.Attempts != 4 {
		t.Fatalf("unexpected outcome: %+v", out)
	}
	if res := MapOutcome(testHandle, out); res.Failure.Reason != domain.ReasonFetchExhausted {
		t.Fatalf("reason = %s", res.Failure.Reason)
	}
}

func TestPollContextCancelStopsEarly(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	fp := &fakeProvider{}
	p := newTestPoller(fp, 60)
	ticks := 0
	p.Sleep = func(time.Duration) {
		ticks++
		if ticks == 3 {
			cancel()
		}
	}
	out := p.Poll(ctx, testHandle)
	if out.Status.State != domain.JobStateCanceled {
		t.Fatalf("state = %s", out.Status.State)
	}
	if out.Attempts != 2 || fp.gets != 2 {
		t.Fatalf("attempts=%d gets=%d", out.Attempts, fp.gets)
	}
}

func TestPollRealTimerHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(20*time.Millisecond, cancel)
	defer cancel()
	fp := &fakeProvider{}
	p := NewPoller(fp, time.Hour, 2, nil)
	start := time.Now()
	out := p.Poll(ctx, testHandle)
	if out.Status.State != domain.JobStateCanceled || !out.Interrupted || fp.gets != 0 {
		t.Fatalf("unexpected outcome: %+v gets=%d", out, fp.gets)
	}
	if time.Since(start) > 5*time.Second {
		t.Fatalf("poll did not abort on context deadline")
	}
}

func TestPollDeadlineIsTimeout(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	fp := &fakeProvider{}
	out := NewPoller(fp, time.Hour, 2, nil).Poll(ctx, testHandle)
	if out.Status.State != domain.JobStateTimedOut || !out.Interrupted || fp.gets != 0 {
		t.Fatalf("unexpected outcome: %+v gets=%d", out, fp.gets)
	}
	if !errors.Is(out.LastErr, context.DeadlineExceeded) {
		t.Fatalf("LastErr = %v", out.LastErr)
	}
	if res := MapOutcome(testHandle, out); res.Failure.Reason != domain.ReasonTimeout {
		t.Fatalf("reason = %s", res.Failure.Reason)
	}
}

func TestPollDeadlineInterruptsSlowFetch(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	fp := &fakeProvider{delay: time.Minute}
	p := newTestPoller(fp, 60)
	start := time.Now()
	out := p.Poll(ctx, testHandle)
	if out.Status.State != domain.JobStateTimedOut || out.Attempts != 1 || out.FetchFailures != 0 {
		t.Fatalf("unexpected outcome: %+v", out)
	}
	if time.Since(start) > 5*time.Second {
		t.Fatalf("slow status fetch outlived the deadline")
	}
}
