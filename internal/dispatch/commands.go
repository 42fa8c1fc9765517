package dispatch

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nightwatch-obs/nightwatch-core/internal/infrastructure/mqtt"
)

// Actuator names and command verbs.
const (
	actuatorMount     = "mount"
	actuatorEnclosure = "enclosure"
	actuatorCamera    = "camera"

	verbPark  = "park"
	verbStop  = "stop"
	verbClose = "close"
	verbAbort = "abort"
)

// commandSource identifies the issuer in command payloads so actuator logs
// distinguish safety commands from scheduler commands.
const commandSource = "safety"

// commandPayload is the wire format for actuator commands.
type commandPayload struct {
	ID       string `json:"id"`
	Command  string `json:"command"`
	Source   string `json:"source"`
	Reason   string `json:"reason"`
	IssuedAt string `json:"issued_at"`
}

// command is one actuator instruction ready to publish.
type command struct {
	actuator string
	verb     string
}

// issueCommands publishes a set of actuator commands in parallel.
//
// Emergency closes fan out to several actuators; publishing concurrently
// keeps one slow or disconnected actuator from delaying the rest. Publish
// failures are logged and do not stop the remaining commands.
func (d *Dispatcher) issueCommands(commands []command, reason string) {
	issuedAt := d.now().UTC().Format(time.RFC3339)

	var wg sync.WaitGroup
	for _, cmd := range commands {
		wg.Add(1)
		go func(cmd command) {
			defer wg.Done()
			d.publishCommand(cmd, reason, issuedAt)
		}(cmd)
	}
	wg.Wait()
}

// publishCommand sends one actuator command.
func (d *Dispatcher) publishCommand(cmd command, reason, issuedAt string) {
	payload := commandPayload{
		ID:       "cmd-" + uuid.NewString()[:8],
		Command:  cmd.verb,
		Source:   commandSource,
		Reason:   reason,
		IssuedAt: issuedAt,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		d.logger.Error("marshalling command payload", "actuator", cmd.actuator, "error", err)
		return
	}

	topic := mqtt.Topics{}.Command(cmd.actuator, cmd.verb)
	if err := d.publisher.Publish(topic, body, d.cfg.QoS, false); err != nil {
		d.logger.Error("publishing actuator command",
			"topic", topic,
			"command", cmd.verb,
			"error", err,
		)
		return
	}

	d.logger.Info("actuator command issued",
		"actuator", cmd.actuator,
		"command", cmd.verb,
		"reason", reason,
	)
}

// emergencyCloseCommands is the full shutdown fan-out: abort the exposure,
// halt any slew, park the mount, and close the enclosure.
func emergencyCloseCommands() []command {
	return []command{
		{actuatorCamera, verbAbort},
		{actuatorMount, verbStop},
		{actuatorMount, verbPark},
		{actuatorEnclosure, verbClose},
	}
}

// parkCommands parks the mount and leaves the enclosure open.
func parkCommands() []command {
	return []command{
		{actuatorMount, verbPark},
	}
}
