package tracker

import (
	"sync"
	"time"
)

// Watchdog flags sessions that stay silent past a quiet interval. It is
// advisory only: on fire it re-checks the registry and reports, it never
// closes or mutates a session. At most one pending timer exists per user.
type Watchdog struct {
	registry *Registry
	onSilent func(s *Session)

	mu     sync.Mutex
	gen    uint64
	timers map[string]pendingTimer
}

// pendingTimer pairs a timer with the generation it was armed under, so a
// stale firing can be told apart from the currently armed one.
type pendingTimer struct {
	timer *time.Timer
	gen   uint64
}

func NewWatchdog(registry *Registry, onSilent func(s *Session)) *Watchdog {
	return &Watchdog{
		registry: registry,
		onSilent: onSilent,
		timers:   make(map[string]pendingTimer),
	}
}

// Arm installs a one-shot timer for the user, replacing any pending one.
func (w *Watchdog) Arm(userID string, quiet time.Duration) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if p, ok := w.timers[userID]; ok {
		p.timer.Stop()
	}
	w.gen++
	gen := w.gen
	w.timers[userID] = pendingTimer{
		timer: time.AfterFunc(quiet, func() { w.fire(userID, gen) }),
		gen:   gen,
	}
}

// Disarm cancels the user's pending timer. No-op without one.
func (w *Watchdog) Disarm(userID string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if p, ok := w.timers[userID]; ok {
		p.timer.Stop()
		delete(w.timers, userID)
	}
}

func (w *Watchdog) armed(userID string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	_, ok := w.timers[userID]
	return ok
}

func (w *Watchdog) fire(userID string, gen uint64) {
	w.mu.Lock()
	p, ok := w.timers[userID]
	if !ok || p.gen != gen {
		// Replaced or disarmed while this firing was in flight.
		w.mu.Unlock()
		return
	}
	delete(w.timers, userID)
	w.mu.Unlock()

	s, ok := w.registry.Get(userID)
	if !ok || s.SpeakingAtOpen {
		return
	}
	w.onSilent(s)
}
