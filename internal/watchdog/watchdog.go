package watchdog

import (
	"context"
	"sync"
	"time"
)

// State describes the liveness of one monitored service.
type State string

// Service liveness states.
const (
	// StateUnknown means no heartbeat has been seen yet.
	StateUnknown State = "unknown"

	// StateHealthy means the last heartbeat arrived within the timeout.
	StateHealthy State = "healthy"

	// StateDegraded means one timeout window has elapsed without a beat.
	StateDegraded State = "degraded"

	// StateFailed means two timeout windows have elapsed without a beat.
	StateFailed State = "failed"
)

// failureMultiplier is how many timeout windows elapse before degraded
// becomes failed.
const failureMultiplier = 2

// ServiceConfig configures one monitored service.
type ServiceConfig struct {
	// Timeout is the maximum gap between heartbeats before degradation.
	Timeout time.Duration

	// Critical marks services whose failure warrants a critical event.
	Critical bool
}

// ServiceStatus is a point-in-time view of one service.
type ServiceStatus struct {
	Name          string        `json:"name"`
	State         State         `json:"state"`
	Critical      bool          `json:"critical"`
	LastHeartbeat *time.Time    `json:"last_heartbeat,omitempty"`
	SinceLastBeat time.Duration `json:"-"`
}

// StateChange describes one service transition, delivered via the
// OnStateChange callback.
type StateChange struct {
	Service  string
	From     State
	To       State
	Critical bool
}

// service is the tracked state for one registered service.
type service struct {
	cfg      ServiceConfig
	state    State
	lastBeat *time.Time
}

// Watchdog tracks heartbeats for a set of named services.
//
// Thread Safety: all methods are safe for concurrent use.
type Watchdog struct {
	mu       sync.Mutex
	services map[string]*service

	onStateChange func(StateChange)

	// now is injectable for tests.
	now func() time.Time
}

// New creates an empty watchdog. Services are added with Register.
func New() *Watchdog {
	return &Watchdog{
		services: make(map[string]*service),
		now:      time.Now,
	}
}

// Register adds a service to track. Registering an existing name replaces
// its configuration and resets its state to unknown.
func (w *Watchdog) Register(name string, cfg ServiceConfig) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.services[name] = &service{
		cfg:   cfg,
		state: StateUnknown,
	}
}

// SetOnStateChange sets a callback invoked for every service transition.
// The callback runs synchronously; it must not call back into the watchdog.
func (w *Watchdog) SetOnStateChange(callback func(StateChange)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onStateChange = callback
}

// Heartbeat records a beat for the named service. Beats for unregistered
// names are ignored; only configured services are tracked.
func (w *Watchdog) Heartbeat(name string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	svc, ok := w.services[name]
	if !ok {
		return
	}

	t := w.now()
	svc.lastBeat = &t
	w.transition(name, svc, StateHealthy)
}

// Run checks all services on the given interval until ctx is cancelled.
//
// Parameters:
//   - ctx: Cancelling stops the loop
//   - interval: How often to sweep for missed heartbeats
func (w *Watchdog) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.Check()
		}
	}
}

// Check sweeps all services once, degrading or failing any whose
// heartbeat is overdue. Exposed for tests and manual sweeps.
func (w *Watchdog) Check() {
	w.mu.Lock()
	defer w.mu.Unlock()

	now := w.now()
	for name, svc := range w.services {
		// Services that never beat stay unknown; the operator sees that
		// distinctly from a service that was alive and went quiet.
		if svc.lastBeat == nil {
			continue
		}

		gap := now.Sub(*svc.lastBeat)
		switch {
		case gap > time.Duration(failureMultiplier)*svc.cfg.Timeout:
			w.transition(name, svc, StateFailed)
		case gap > svc.cfg.Timeout:
			w.transition(name, svc, StateDegraded)
		default:
			w.transition(name, svc, StateHealthy)
		}
	}
}

// transition moves a service to a new state, firing the callback on change.
// Caller must hold w.mu.
func (w *Watchdog) transition(name string, svc *service, to State) {
	if svc.state == to {
		return
	}
	from := svc.state
	svc.state = to

	if w.onStateChange != nil {
		w.onStateChange(StateChange{
			Service:  name,
			From:     from,
			To:       to,
			Critical: svc.cfg.Critical,
		})
	}
}

// Status returns a snapshot of every registered service. Order is not
// guaranteed; callers needing stable output should sort.
func (w *Watchdog) Status() []ServiceStatus {
	w.mu.Lock()
	defer w.mu.Unlock()

	now := w.now()
	statuses := make([]ServiceStatus, 0, len(w.services))
	for name, svc := range w.services {
		s := ServiceStatus{
			Name:     name,
			State:    svc.state,
			Critical: svc.cfg.Critical,
		}
		if svc.lastBeat != nil {
			t := *svc.lastBeat
			s.LastHeartbeat = &t
			s.SinceLastBeat = now.Sub(t)
		}
		statuses = append(statuses, s)
	}
	return statuses
}

// Healthy reports whether every critical service is in a healthy or
// unknown state. Degraded or failed critical services make this false.
func (w *Watchdog) Healthy() bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	for _, svc := range w.services {
		if !svc.cfg.Critical {
			continue
		}
		if svc.state == StateDegraded || svc.state == StateFailed {
			return false
		}
	}
	return true
}
