// Package mqtt provides MQTT client connectivity for NIGHTWATCH Core.
//
// This package manages:
//   - Connection to the site broker with auto-reconnect
//   - Message publishing with QoS guarantees
//   - Topic subscriptions with wildcard support
//   - Last Will and Testament (LWT) for offline detection
//   - Connection health monitoring
//
// # Architecture
//
// NIGHTWATCH uses MQTT as the internal message bus connecting the Core to
// the sensor services (weather station, UPS monitor, enclosure controller,
// ephemeris) and the actuator services (mount, enclosure, camera). The
// broker decouples Core from device-specific implementations.
//
//	Sensor Services → MQTT Broker → NIGHTWATCH Core → MQTT Broker → Actuators
//
// # Security Considerations
//
//   - TLS is required for production deployments (cfg.Broker.TLS=true)
//   - Credentials are validated against broker ACL
//   - Anonymous access is only for local development
//   - Message payloads are not encrypted beyond TLS transport
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	// Subscribe to all sensor readings
//	err = client.Subscribe(mqtt.Topics{}.AllSensors(), 1,
//	    func(topic string, payload []byte) error {
//	        log.Printf("Received: %s = %s", topic, payload)
//	        return nil
//	    })
//
//	// Publish the retained safety status
//	client.Publish(mqtt.Topics{}.SafetyStatus(), statusJSON, 1, true)
package mqtt
