package watchdog

import (
	"sync"
	"testing"
	"time"
)

// ─── Helpers ─────────────────────────────────────────────────────────────────

// fakeClock provides a controllable time source.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func newTestWatchdog() (*Watchdog, *fakeClock) {
	clock := &fakeClock{t: time.Date(2026, 3, 1, 2, 0, 0, 0, time.UTC)}
	w := New()
	w.now = clock.now
	return w, clock
}

// captureChanges records state changes under a mutex.
type captureChanges struct {
	mu      sync.Mutex
	changes []StateChange
}

func (c *captureChanges) record(change StateChange) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.changes = append(c.changes, change)
}

func (c *captureChanges) all() []StateChange {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]StateChange(nil), c.changes...)
}

func stateOf(t *testing.T, w *Watchdog, name string) State {
	t.Helper()
	for _, s := range w.Status() {
		if s.Name == name {
			return s.State
		}
	}
	t.Fatalf("service %q not in Status()", name)
	return ""
}

// ─── Lifecycle ───────────────────────────────────────────────────────────────

func TestRegisterStartsUnknown(t *testing.T) {
	w, _ := newTestWatchdog()
	w.Register("weather", ServiceConfig{Timeout: 2 * time.Minute, Critical: true})

	if got := stateOf(t, w, "weather"); got != StateUnknown {
		t.Errorf("state = %q, want unknown", got)
	}
}

func TestHeartbeatMarksHealthy(t *testing.T) {
	w, _ := newTestWatchdog()
	w.Register("weather", ServiceConfig{Timeout: 2 * time.Minute})

	w.Heartbeat("weather")

	if got := stateOf(t, w, "weather"); got != StateHealthy {
		t.Errorf("state = %q, want healthy", got)
	}
}

func TestHeartbeatUnregisteredIgnored(t *testing.T) {
	w, _ := newTestWatchdog()

	// Must not panic or create an entry.
	w.Heartbeat("seismometer")

	if len(w.Status()) != 0 {
		t.Error("unregistered heartbeat created a service entry")
	}
}

// ─── Degradation ─────────────────────────────────────────────────────────────

func TestCheckDegradesThenFails(t *testing.T) {
	w, clock := newTestWatchdog()
	w.Register("power", ServiceConfig{Timeout: time.Minute, Critical: true})
	w.Heartbeat("power")

	// Within the window: still healthy.
	clock.advance(59 * time.Second)
	w.Check()
	if got := stateOf(t, w, "power"); got != StateHealthy {
		t.Errorf("at 59s: state = %q, want healthy", got)
	}

	// Past one timeout: degraded.
	clock.advance(2 * time.Second)
	w.Check()
	if got := stateOf(t, w, "power"); got != StateDegraded {
		t.Errorf("at 61s: state = %q, want degraded", got)
	}

	// Past two timeouts: failed.
	clock.advance(60 * time.Second)
	w.Check()
	if got := stateOf(t, w, "power"); got != StateFailed {
		t.Errorf("at 121s: state = %q, want failed", got)
	}
}

func TestUnknownServiceNeverDegrades(t *testing.T) {
	w, clock := newTestWatchdog()
	w.Register("scheduler", ServiceConfig{Timeout: time.Minute})

	clock.advance(time.Hour)
	w.Check()

	if got := stateOf(t, w, "scheduler"); got != StateUnknown {
		t.Errorf("state = %q, want unknown (never beat)", got)
	}
}

func TestHeartbeatRecoversFailedService(t *testing.T) {
	w, clock := newTestWatchdog()
	w.Register("enclosure", ServiceConfig{Timeout: time.Minute})
	w.Heartbeat("enclosure")

	clock.advance(5 * time.Minute)
	w.Check()
	if got := stateOf(t, w, "enclosure"); got != StateFailed {
		t.Fatalf("state = %q, want failed", got)
	}

	w.Heartbeat("enclosure")
	if got := stateOf(t, w, "enclosure"); got != StateHealthy {
		t.Errorf("state after recovery beat = %q, want healthy", got)
	}
}

// ─── Callbacks ───────────────────────────────────────────────────────────────

func TestStateChangeCallbacks(t *testing.T) {
	w, clock := newTestWatchdog()
	capture := &captureChanges{}
	w.SetOnStateChange(capture.record)

	w.Register("weather", ServiceConfig{Timeout: time.Minute, Critical: true})
	w.Heartbeat("weather")
	clock.advance(61 * time.Second)
	w.Check()
	// Re-checking without movement must not refire.
	w.Check()

	changes := capture.all()
	if len(changes) != 2 {
		t.Fatalf("got %d changes, want 2: %+v", len(changes), changes)
	}
	if changes[0].From != StateUnknown || changes[0].To != StateHealthy {
		t.Errorf("changes[0] = %+v, want unknown→healthy", changes[0])
	}
	if changes[1].From != StateHealthy || changes[1].To != StateDegraded {
		t.Errorf("changes[1] = %+v, want healthy→degraded", changes[1])
	}
	if !changes[1].Critical {
		t.Error("changes[1].Critical = false, want true")
	}
}

// ─── Healthy ─────────────────────────────────────────────────────────────────

func TestHealthyConsidersOnlyCriticalServices(t *testing.T) {
	w, clock := newTestWatchdog()
	w.Register("weather", ServiceConfig{Timeout: time.Minute, Critical: true})
	w.Register("scheduler", ServiceConfig{Timeout: time.Minute, Critical: false})
	w.Heartbeat("weather")
	w.Heartbeat("scheduler")

	if !w.Healthy() {
		t.Error("Healthy() = false with all services beating, want true")
	}

	clock.advance(2 * time.Minute)
	w.Check()

	// Both degraded/failed, but only weather is critical.
	if w.Healthy() {
		t.Error("Healthy() = true with critical service overdue, want false")
	}

	w.Heartbeat("weather")
	if !w.Healthy() {
		t.Error("Healthy() = false after critical service recovered, want true")
	}
}

func TestStatusReportsLastHeartbeat(t *testing.T) {
	w, clock := newTestWatchdog()
	w.Register("power", ServiceConfig{Timeout: time.Minute})
	w.Heartbeat("power")
	beatTime := clock.now()

	clock.advance(30 * time.Second)

	statuses := w.Status()
	if len(statuses) != 1 {
		t.Fatalf("len(Status()) = %d, want 1", len(statuses))
	}
	s := statuses[0]
	if s.LastHeartbeat == nil || !s.LastHeartbeat.Equal(beatTime) {
		t.Errorf("LastHeartbeat = %v, want %v", s.LastHeartbeat, beatTime)
	}
	if s.SinceLastBeat != 30*time.Second {
		t.Errorf("SinceLastBeat = %v, want 30s", s.SinceLastBeat)
	}
}
