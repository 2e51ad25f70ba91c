package restore

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"photorestore/internal/providers/replicate"
)

type step struct {
	status string
	output string
	errMsg string
	err    error
}

// fakeProvider replays scripted status steps; the last step repeats.
type fakeProvider struct {
	mu        sync.Mutex
	missing   bool
	createErr error
	// delay holds every status fetch until it passes or ctx ends.
	delay     time.Duration
	steps     []step
	events    []string
	created   []replicate.CreateRequest
	gets      int
	cancels   []string
}

func (f *fakeProvider) HasCredentials() bool { return !f.missing }

func (f *fakeProvider) CreatePrediction(_ context.Context, req replicate.CreateRequest) (*replicate.Prediction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, "create")
	f.created = append(f.created, req)
	if f.createErr != nil {
		return nil, f.createErr
	}
	p := &replicate.Prediction{ID: "pred-1", Status: replicate.StatusStarting}
	p.URLs.Get = "https://provider.test/v1/predictions/pred-1"
	p.URLs.Cancel = "https://provider.test/v1/predictions/pred-1/cancel"
	return p, nil
}

func (f *fakeProvider) GetPrediction(ctx context.Context, statusURL string) (*replicate.Prediction, error) {
	if f.delay > 0 {
		timer := time.NewTimer(f.delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, "get")
	idx := f.gets
	f.gets++
	if len(f.steps) == 0 {
		return &replicate.Prediction{ID: "pred-1", Status: replicate.StatusProcessing}, nil
	}
	if idx >= len(f.steps) {
		idx = len(f.steps) - 1
	}
	s := f.steps[idx]
	if s.err != nil {
		return nil, s.err
	}
	p := &replicate.Prediction{ID: "pred-1", Status: s.status}
	if s.output != "" {
		p.Output, _ = json.Marshal(s.output)
	}
	if s.errMsg != "" {
		p.Error, _ = json.Marshal(s.errMsg)
	}
	return p, nil
}

func (f *fakeProvider) CancelPrediction(_ context.Context, cancelURL string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cancels = append(f.cancels, cancelURL)
	return nil
}

// sleep records ticks instead of waiting.
func (f *fakeProvider) sleep(time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, "sleep")
}

func (f *fakeProvider) count(event string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, e := range f.events {
		if e == event {
			n++
		}
	}
	return n
}
