package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// WriteNodeMetric writes a single node measurement to InfluxDB.
//
// This is the primary method for recording garden node telemetry.
// The write is non-blocking; data is batched and sent asynchronously.
//
// Example:
//
//	client.WriteNodeMetric("AA:BB:CC:DD:EE:FF", "soil_moisture_pct", 41.5)
//	client.WriteNodeMetric("AA:BB:CC:DD:EE:FF", "temperature_c", 23.0)
func (c *Client) WriteNodeMetric(deviceID string, measurement string, value float64) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"node_metrics",
		map[string]string{
			"device_id":   deviceID,
			"measurement": measurement,
		},
		map[string]interface{}{
			"value": value,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WriteHeartbeat records a node heartbeat with link and power health.
//
// Battery level and signal strength arrive with every heartbeat; either
// may be zero when the node does not report it.
func (c *Client) WriteHeartbeat(deviceID string, rssiDBm float64, batteryPct float64, uptimeSeconds float64) {
	if !c.IsConnected() {
		return
	}

	fields := map[string]interface{}{
		"uptime_seconds": uptimeSeconds,
	}
	if rssiDBm != 0 {
		fields["rssi_dbm"] = rssiDBm
	}
	if batteryPct > 0 {
		fields["battery_pct"] = batteryPct
	}

	point := write.NewPoint(
		"heartbeat",
		map[string]string{
			"device_id": deviceID,
		},
		fields,
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WritePoint writes a custom point with full control over tags and fields.
//
// Use this for measurements that don't fit the helper methods.
//
// Example:
//
//	client.WritePoint("system_stats",
//	    map[string]string{"host": "core-01"},
//	    map[string]interface{}{"cpu_percent": 45.2, "memory_mb": 512})
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]interface{}) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, time.Now())
	c.writeAPI.WritePoint(point)
}

// WritePointWithTime writes a custom point with a specific timestamp.
//
// Use this when the timestamp is not "now" (e.g., buffered node data
// delivered after a connectivity gap).
func (c *Client) WritePointWithTime(measurement string, tags map[string]string, fields map[string]interface{}, timestamp time.Time) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, timestamp)
	c.writeAPI.WritePoint(point)
}
