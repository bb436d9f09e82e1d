package scheduler

import (
	"sort"
	"sync"
	"time"

	"prisradar/offerworker/internal/domain"
)

// healthTracker keeps the rolling per-provider health state. Success resets
// the consecutive-error counter; failure increments it.
type healthTracker struct {
	mu     sync.Mutex
	states map[string]domain.HealthCheck
	now    func() time.Time
}

func newHealthTracker(now func() time.Time) *healthTracker {
	return &healthTracker{
		states: make(map[string]domain.HealthCheck),
		now:    now,
	}
}

func (h *healthTracker) recordSuccess(provider string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.states[provider] = domain.HealthCheck{
		Provider:          provider,
		LastUpdated:       h.now(),
		Healthy:           true,
		ConsecutiveErrors: 0,
	}
}

func (h *healthTracker) recordFailure(provider string, err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	state := h.states[provider]
	state.Provider = provider
	state.LastUpdated = h.now()
	state.Healthy = false
	state.ConsecutiveErrors++
	if err != nil {
		state.LastError = err.Error()
	}
	h.states[provider] = state
}

// snapshot returns a copy of all provider states, sorted by provider name
// for stable output.
func (h *healthTracker) snapshot() []domain.HealthCheck {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]domain.HealthCheck, 0, len(h.states))
	for _, state := range h.states {
		out = append(out, state)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Provider < out[j].Provider })
	return out
}
