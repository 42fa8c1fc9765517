package dispatch

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"time"

	"github.com/nightwatch-obs/nightwatch-core/internal/events"
	"github.com/nightwatch-obs/nightwatch-core/internal/infrastructure/mqtt"
	"github.com/nightwatch-obs/nightwatch-core/internal/safety"
	"github.com/nightwatch-obs/nightwatch-core/internal/watchdog"
)

// Evaluator is the slice of safety.Monitor the dispatcher needs.
type Evaluator interface {
	Evaluate() safety.Status
}

// Publisher is the slice of mqtt.Client the dispatcher needs.
type Publisher interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
}

// Recorder persists events to the audit trail.
// Satisfied by events.SQLiteRepository.
type Recorder interface {
	Create(ctx context.Context, event *events.Event) error
}

// Telemetry receives per-cycle decision points. Satisfied by influxdb.Client.
type Telemetry interface {
	WriteSafetyDecision(siteID, action, alertLevel string, isSafe bool, reasonCount int)
}

// Health reports service liveness. Satisfied by watchdog.Watchdog.
type Health interface {
	Healthy() bool
	Status() []watchdog.ServiceStatus
}

// Logger interface for structured logging.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger discards all log output.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Config holds dispatcher tuning.
type Config struct {
	// SiteID tags telemetry and events.
	SiteID string

	// QoS for all published messages.
	QoS byte

	// PollInterval is how often the monitor is evaluated.
	PollInterval time.Duration

	// UnsafeDurationToPark is how long conditions must stay unsafe before
	// a park is commanded. Emergencies bypass this.
	UnsafeDurationToPark time.Duration

	// SafeDurationToResume is how long conditions must stay safe before
	// resumption is announced.
	SafeDurationToResume time.Duration

	// AlertMinInterval rate-limits repeated alert events while unsafe.
	AlertMinInterval time.Duration
}

// Dispatcher runs the evaluate-publish-act loop.
//
// All mutation happens on the Run goroutine except HandleWatchdogChange,
// which only touches the recorder and publisher (both thread-safe).
type Dispatcher struct {
	cfg       Config
	evaluator Evaluator
	publisher Publisher
	recorder  Recorder
	telemetry Telemetry
	health    Health
	logger    Logger

	// Debounce tracking, owned by the Run goroutine.
	unsafeSince *time.Time
	safeSince   *time.Time
	lastIssued  safety.Action
	lastAlertAt *time.Time

	// now is injectable for tests.
	now func() time.Time
}

// New creates a dispatcher. Telemetry may be nil when InfluxDB is disabled.
func New(cfg Config, evaluator Evaluator, publisher Publisher, recorder Recorder) *Dispatcher {
	return &Dispatcher{
		cfg:       cfg,
		evaluator: evaluator,
		publisher: publisher,
		recorder:  recorder,
		logger:    noopLogger{},
		now:       time.Now,
	}
}

// SetLogger sets the logger for dispatch decisions.
func (d *Dispatcher) SetLogger(logger Logger) {
	if logger != nil {
		d.logger = logger
	}
}

// SetTelemetry wires an optional telemetry sink.
func (d *Dispatcher) SetTelemetry(t Telemetry) {
	d.telemetry = t
}

// SetHealth wires a service-liveness source. Each cycle publishes its
// summary as a retained message on the system health topic.
func (d *Dispatcher) SetHealth(h Health) {
	d.health = h
}

// Run evaluates the monitor on the configured interval until ctx is
// cancelled. The first evaluation happens immediately so a restart during
// bad weather doesn't wait a full poll interval to react.
func (d *Dispatcher) Run(ctx context.Context) {
	ticker := time.NewTicker(d.cfg.PollInterval)
	defer ticker.Stop()

	d.step(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.step(ctx)
		}
	}
}

// step runs one evaluate-publish-act cycle.
func (d *Dispatcher) step(ctx context.Context) {
	status := d.evaluator.Evaluate()

	d.publishStatus(status)

	if d.health != nil {
		d.publishHealth()
	}

	if d.telemetry != nil {
		d.telemetry.WriteSafetyDecision(
			d.cfg.SiteID,
			string(status.Action),
			string(status.AlertLevel),
			status.IsSafe,
			len(status.Reasons),
		)
	}

	switch {
	case status.Action == safety.ActionEmergencyClose:
		d.handleEmergency(ctx, status)
	case !status.IsSafe:
		d.handleUnsafe(ctx, status)
	default:
		d.handleSafe(ctx, status)
	}
}

// handleEmergency commands a close immediately. No debounce: by the time
// rain is detected the optics are already wet.
func (d *Dispatcher) handleEmergency(ctx context.Context, status safety.Status) {
	d.safeSince = nil
	d.markUnsafe()

	if d.lastIssued == safety.ActionEmergencyClose {
		d.recordAlert(ctx, status)
		return
	}

	reason := joinReasons(status.Reasons)
	d.logger.Warn("emergency close", "reasons", reason)

	d.issueCommands(emergencyCloseCommands(), reason)
	d.lastIssued = safety.ActionEmergencyClose
	d.recordTransition(ctx, status)
	d.publishEvent(status)
}

// handleUnsafe parks once conditions have stayed unsafe past the debounce.
func (d *Dispatcher) handleUnsafe(ctx context.Context, status safety.Status) {
	d.safeSince = nil
	d.markUnsafe()

	// Already parked or closed; nothing further until conditions clear.
	if d.lastIssued == safety.ActionParkAndWait || d.lastIssued == safety.ActionEmergencyClose {
		d.recordAlert(ctx, status)
		return
	}

	elapsed := d.now().Sub(*d.unsafeSince)
	if elapsed < d.cfg.UnsafeDurationToPark {
		d.logger.Debug("unsafe conditions, waiting out debounce",
			"elapsed", elapsed,
			"required", d.cfg.UnsafeDurationToPark,
		)
		d.recordAlert(ctx, status)
		return
	}

	reason := joinReasons(status.Reasons)
	d.logger.Warn("parking for unsafe conditions", "reasons", reason)

	d.issueCommands(parkCommands(), reason)
	d.lastIssued = safety.ActionParkAndWait
	d.recordTransition(ctx, status)
	d.publishEvent(status)
}

// handleSafe announces resumption once conditions have stayed safe past
// the resume debounce.
func (d *Dispatcher) handleSafe(ctx context.Context, status safety.Status) {
	d.unsafeSince = nil
	d.lastAlertAt = nil

	if d.lastIssued == safety.ActionSafeToObserve {
		return
	}

	if d.safeSince == nil {
		t := d.now()
		d.safeSince = &t
	}

	elapsed := d.now().Sub(*d.safeSince)
	if elapsed < d.cfg.SafeDurationToResume {
		d.logger.Debug("safe conditions, waiting out resume debounce",
			"elapsed", elapsed,
			"required", d.cfg.SafeDurationToResume,
		)
		return
	}

	d.logger.Info("conditions safe, observing may resume")

	d.lastIssued = safety.ActionSafeToObserve
	d.recordTransition(ctx, status)
	d.publishEvent(status)
}

// markUnsafe starts the unsafe debounce clock if not already running.
func (d *Dispatcher) markUnsafe() {
	if d.unsafeSince == nil {
		t := d.now()
		d.unsafeSince = &t
	}
}

// publishStatus publishes the full status as a retained message so any
// subscriber (scheduler, dashboard) sees the current verdict immediately.
func (d *Dispatcher) publishStatus(status safety.Status) {
	body, err := json.Marshal(status)
	if err != nil {
		d.logger.Error("marshalling safety status", "error", err)
		return
	}

	topic := mqtt.Topics{}.SafetyStatus()
	if err := d.publisher.Publish(topic, body, d.cfg.QoS, true); err != nil {
		d.logger.Error("publishing safety status", "error", err)
	}
}

// healthServicePayload is one service entry in the health summary.
type healthServicePayload struct {
	Name          string     `json:"name"`
	State         string     `json:"state"`
	Critical      bool       `json:"critical"`
	LastHeartbeat *time.Time `json:"last_heartbeat,omitempty"`
}

// publishHealth publishes the service-liveness summary as a retained
// message so a dashboard sees the current picture immediately.
func (d *Dispatcher) publishHealth() {
	statuses := d.health.Status()
	services := make([]healthServicePayload, 0, len(statuses))
	for _, s := range statuses {
		services = append(services, healthServicePayload{
			Name:          s.Name,
			State:         string(s.State),
			Critical:      s.Critical,
			LastHeartbeat: s.LastHeartbeat,
		})
	}
	sort.Slice(services, func(i, j int) bool {
		return services[i].Name < services[j].Name
	})

	body, err := json.Marshal(map[string]any{
		"healthy":    d.health.Healthy(),
		"services":   services,
		"updated_at": d.now().UTC(),
	})
	if err != nil {
		d.logger.Error("marshalling health summary", "error", err)
		return
	}

	topic := mqtt.Topics{}.SystemHealth()
	if err := d.publisher.Publish(topic, body, d.cfg.QoS, true); err != nil {
		d.logger.Error("publishing health summary", "error", err)
	}
}

// publishEvent announces a transition on the event topic.
func (d *Dispatcher) publishEvent(status safety.Status) {
	body, err := json.Marshal(status)
	if err != nil {
		d.logger.Error("marshalling safety event", "error", err)
		return
	}

	topic := mqtt.Topics{}.SafetyEvent(string(status.Action))
	if err := d.publisher.Publish(topic, body, d.cfg.QoS, false); err != nil {
		d.logger.Error("publishing safety event", "error", err)
	}
}

// recordTransition persists a transition to the audit trail.
func (d *Dispatcher) recordTransition(ctx context.Context, status safety.Status) {
	isSafe := status.IsSafe
	event := &events.Event{
		Category:   events.CategorySafety,
		Action:     string(status.Action),
		AlertLevel: string(status.AlertLevel),
		IsSafe:     &isSafe,
		Reasons:    status.Reasons,
		CreatedAt:  d.now().UTC(),
	}
	if err := d.recorder.Create(ctx, event); err != nil {
		d.logger.Error("recording safety transition", "error", err)
	}
}

// recordAlert persists an alert for ongoing unsafe conditions, rate-limited
// so a stuck sensor doesn't flood the audit trail.
func (d *Dispatcher) recordAlert(ctx context.Context, status safety.Status) {
	if len(status.Reasons) == 0 {
		return
	}

	now := d.now()
	if d.lastAlertAt != nil && now.Sub(*d.lastAlertAt) < d.cfg.AlertMinInterval {
		return
	}
	d.lastAlertAt = &now

	isSafe := status.IsSafe
	event := &events.Event{
		Category:   events.CategorySafety,
		Action:     "alert",
		AlertLevel: string(status.AlertLevel),
		IsSafe:     &isSafe,
		Reasons:    status.Reasons,
		CreatedAt:  now.UTC(),
	}
	if err := d.recorder.Create(ctx, event); err != nil {
		d.logger.Error("recording safety alert", "error", err)
	}
}

// HandleWatchdogChange records and publishes a service liveness transition.
// Wire it via watchdog.SetOnStateChange. Safe to call from the watchdog
// goroutine.
func (d *Dispatcher) HandleWatchdogChange(change watchdog.StateChange) {
	level := "warning"
	if change.Critical && change.To == watchdog.StateFailed {
		level = "critical"
	}
	if change.To == watchdog.StateHealthy {
		level = "info"
	}

	d.logger.Warn("service liveness changed",
		"service", change.Service,
		"from", string(change.From),
		"to", string(change.To),
	)

	event := &events.Event{
		Category:   events.CategoryWatchdog,
		Action:     "service_" + string(change.To),
		AlertLevel: level,
		Details: map[string]any{
			"service":  change.Service,
			"from":     string(change.From),
			"critical": change.Critical,
		},
		CreatedAt: d.now().UTC(),
	}
	if err := d.recorder.Create(context.Background(), event); err != nil {
		d.logger.Error("recording watchdog event", "error", err)
	}

	body, err := json.Marshal(map[string]any{
		"service":  change.Service,
		"from":     string(change.From),
		"to":       string(change.To),
		"critical": change.Critical,
	})
	if err != nil {
		return
	}
	topic := mqtt.Topics{}.SystemWatchdog()
	if err := d.publisher.Publish(topic, body, d.cfg.QoS, false); err != nil {
		d.logger.Error("publishing watchdog event", "error", err)
	}
}

// joinReasons flattens reasons into one command-payload string.
func joinReasons(reasons []string) string {
	if len(reasons) == 0 {
		return ""
	}
	return strings.Join(reasons, "; ")
}
