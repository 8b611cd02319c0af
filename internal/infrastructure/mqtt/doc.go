// Package mqtt provides MQTT client connectivity for Verdant Core.
//
// This package manages:
//   - Connection to the broker with auto-reconnect
//   - Message publishing with QoS guarantees
//   - Topic subscriptions with wildcard support
//   - Last Will and Testament (LWT) for offline detection
//   - Connection health monitoring
//
// # Architecture
//
// Verdant uses MQTT as the message bus between Core and the garden nodes
// in the field. Nodes announce themselves on verdant/provision/{mac} when
// first powered, publish telemetry on verdant/heartbeat/{mac}, and Core
// publishes claim events on verdant/event/claimed.
//
//	Garden Nodes ↔ MQTT Broker ↔ Verdant Core
//
// # Security Considerations
//
//   - TLS is required for production deployments (cfg.Broker.TLS=true)
//   - Credentials are validated against broker ACL
//   - Anonymous access is only for local development
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	err = client.Subscribe(mqtt.Topics{}.AllProvisions(), 1,
//	    func(topic string, payload []byte) error {
//	        log.Printf("Received: %s = %s", topic, payload)
//	        return nil
//	    })
package mqtt
