// Package influxdb provides InfluxDB connectivity for Verdant Core.
//
// It wraps the official influxdb-client-go v2 library with Verdant-specific
// patterns for connection management, telemetry writing, and health
// monitoring.
//
// # Purpose
//
// This package handles time-series storage for:
//   - Garden node sensor telemetry (soil moisture, temperature)
//   - Node heartbeat health (signal strength, battery, uptime)
//
// # Usage
//
//	cfg := config.InfluxDBConfig{
//	    URL:    "http://localhost:8086",
//	    Token:  "your-token",
//	    Org:    "verdant",
//	    Bucket: "telemetry",
//	}
//
//	client, err := influxdb.Connect(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	client.WriteNodeMetric("AA:BB:CC:DD:EE:FF", "soil_moisture_pct", 41.5)
//
// # Error Handling
//
// Write operations are non-blocking and batch errors are delivered via a
// callback. Connection and health check errors are returned directly.
//
// # Performance
//
// Writes are batched according to config settings (batch_size,
// flush_interval). This reduces network overhead for high-frequency
// heartbeat data.
package influxdb
