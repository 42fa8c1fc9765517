package influxdb

import (
	"errors"
	"testing"

	"github.com/nightwatch-obs/nightwatch-core/internal/infrastructure/config"
)

// Connection round-trips require a live InfluxDB instance; these tests
// cover the paths that don't.

func TestConnectDisabled(t *testing.T) {
	_, err := Connect(config.InfluxDBConfig{Enabled: false})
	if !errors.Is(err, ErrDisabled) {
		t.Errorf("Connect() error = %v, want ErrDisabled", err)
	}
}

func TestCloseNil(t *testing.T) {
	c := &Client{}
	if err := c.Close(); err != nil {
		t.Errorf("Close() on zero client error = %v, want nil", err)
	}
}

func TestFlushDisconnected(t *testing.T) {
	c := &Client{}
	// Must not panic with no write API.
	c.Flush()
}

func TestWriteWhenDisconnected(t *testing.T) {
	c := &Client{}
	// Writes on a disconnected client are dropped, not panics.
	c.WriteWeather("site-001", 10, 15, 50, 40, 0, false)
	c.WriteUPS("site-001", 100, false)
	c.WriteSafetyDecision("site-001", "safe_to_observe", "info", true, 0)
	c.WritePoint("custom", nil, map[string]interface{}{"v": 1})
}
