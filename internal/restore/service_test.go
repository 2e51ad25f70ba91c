package restore

import (
	"context"
	"errors"
	"testing"
	"time"

	"photorestore/internal/domain"
	"photorestore/internal/infra"
	"photorestore/internal/providers/replicate"
)

func testConfig() infra.RestoreConfig {
	return infra.RestoreConfig{
		MaxUploadBytes:  10 << 20,
		TypePrefix:      "image/",
		PollInterval:    5 * time.Second,
		MaxPollAttempts: 60,
	}
}

func newTestService(fp *fakeProvider, tracker *Tracker) *Service {
	return NewService(Options{
		Provider:     fp,
		ModelVersion: infra.DefaultModelVersion,
		Config:       testConfig(),
		Tracker:      tracker,
		Sleep:        fp.sleep,
	})
}

func TestServiceRestoreSuccess(t *testing.T) {
	fp := &fakeProvider{steps: []step{{status: replicate.StatusSucceeded, output: "https://cdn.test/out.png"}}}
	svc := newTestService(fp, nil)
	img := &domain.UploadedImage{Filename: "a.jpg", MediaType: "image/jpeg", Data: make([]byte, 2<<20)}

	res, err := svc.Restore(context.Background(), "user-1", img)
	if err != nil {
		t.Fatalf("Restore error: %v", err)
	}
	if !res.Succeeded() || res.OutputURL != "https://cdn.test/out.png" || res.JobID != "pred-1" {
		t.Fatalf("unexpected result: %+v", res)
	}
	if res.Elapsed != 5*time.Second {
		t.Fatalf("elapsed = %s", res.Elapsed)
	}
	if svc.Tracker().Len() != 0 {
		t.Fatalf("tracker must be released after poll")
	}
}

func TestServiceRestoreStopsOnInvalidInput(t *testing.T) {
	fp := &fakeProvider{}
	_, err := newTestService(fp, nil).Restore(context.Background(), "user-1",
		&domain.UploadedImage{MediaType: "image/png", Data: make([]byte, 12<<20)})
	if !errors.Is(err, ErrImageTooLarge) {
		t.Fatalf("expected ErrImageTooLarge, got %v", err)
	}
	if len(fp.events) != 0 {
		t.Fatalf("provider must not be touched, events = %v", fp.events)
	}
}

func TestServiceRestoreMissingCredential(t *testing.T) {
	fp := &fakeProvider{missing: true}
	svc := newTestService(fp, nil)
	if svc.Configured() {
		t.Fatalf("Configured() should be false")
	}
	_, err := svc.Restore(context.Background(), "user-1", testImage())
	if !errors.Is(err, domain.ErrMisconfigured) || len(fp.events) != 0 {
		t.Fatalf("err=%v events=%v", err, fp.events)
	}
}

func TestServiceRestoreTimeout(t *testing.T) {
	fp := &fakeProvider{}
	res, err := newTestService(fp, nil).Restore(context.Background(), "user-1", testImage())
	if err != nil {
		t.Fatalf("Restore error: %v", err)
	}
	if res.Failure == nil || res.Failure.Reason != domain.ReasonTimeout || res.Attempts != 60 {
		t.Fatalf("unexpected result: %+v", res)
	}
	if len(fp.cancels) != 0 {
		t.Fatalf("timeouts do not cancel upstream")
	}
}

func TestServiceCancelThroughTracker(t *testing.T) {
	fp := &fakeProvider{}
	tracker := NewTracker()
	svc := newTestService(fp, tracker)
	ticks := 0
	svc.poller.Sleep = func(time.Duration) {
		ticks++
		if ticks == 2 {
			if tracker.Cancel("pred-1", "someone-else") {
				t.Errorf("non-owner cancel must be refused")
			}
			if !tracker.Cancel("pred-1", "user-1") {
				t.Errorf("owner cancel must succeed")
			}
		}
	}

	res, err := svc.Restore(context.Background(), "user-1", testImage())
	if err != nil {
		t.Fatalf("Restore error: %v", err)
	}
	if res.Failure == nil || res.Failure.Reason != domain.ReasonCanceled {
		t.Fatalf("unexpected result: %+v", res)
	}
	if len(fp.cancels) != 1 || fp.cancels[0] != "https://provider.test/v1/predictions/pred-1/cancel" {
		t.Fatalf("provider cancel calls = %v", fp.cancels)
	}
}

func TestServiceRestoreBoundsSlowStatusCalls(t *testing.T) {
	fp := &fakeProvider{delay: time.Minute}
	cfg := testConfig()
	cfg.PollInterval = 10 * time.Millisecond
	cfg.MaxPollAttempts = 5
	svc := NewService(Options{
		Provider:     fp,
		ModelVersion: infra.DefaultModelVersion,
		Config:       cfg,
		PollSlack:    20 * time.Millisecond,
	})
	if svc.PollDeadline() != 70*time.Millisecond {
		t.Fatalf("PollDeadline() = %s", svc.PollDeadline())
	}

	start := time.Now()
	res, err := svc.Restore(context.Background(), "user-1", testImage())
	wall := time.Since(start)
	if err != nil {
		t.Fatalf("Restore error: %v", err)
	}
	if res.Failure == nil || res.Failure.Reason != domain.ReasonTimeout || res.Failure.Message != "AI processing timeout" {
		t.Fatalf("unexpected result: %+v", res)
	}
	if wall > 5*time.Second {
		t.Fatalf("restore took %s, deadline is %s", wall, svc.PollDeadline())
	}
	if len(fp.cancels) != 1 {
		t.Fatalf("abandoned prediction must be canceled upstream, cancels = %v", fp.cancels)
	}
}
