package provision

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/verdantgrid/verdant-core/internal/device"
	"github.com/verdantgrid/verdant-core/internal/infrastructure/mqtt"
)

// memoryRepo is a minimal in-memory device.Repository.
type memoryRepo struct {
	mu      sync.Mutex
	devices map[string]*device.Device
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{devices: make(map[string]*device.Device)}
}

func (r *memoryRepo) GetByID(_ context.Context, id string) (*device.Device, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.devices[id]
	if !ok {
		return nil, device.ErrDeviceNotFound
	}
	return d.DeepCopy(), nil
}

func (r *memoryRepo) List(context.Context) ([]device.Device, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]device.Device, 0, len(r.devices))
	for _, d := range r.devices {
		out = append(out, *d.DeepCopy())
	}
	return out, nil
}

func (r *memoryRepo) ListUnclaimed(context.Context) ([]device.Device, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []device.Device
	for _, d := range r.devices {
		if !d.IsClaimed() {
			out = append(out, *d.DeepCopy())
		}
	}
	return out, nil
}

func (r *memoryRepo) ListByOwner(context.Context, string) ([]device.Device, error) {
	return nil, nil
}

func (r *memoryRepo) Create(_ context.Context, d *device.Device) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.devices[d.ID]; ok {
		return device.ErrDeviceExists
	}
	r.devices[d.ID] = d.DeepCopy()
	return nil
}

func (r *memoryRepo) Update(_ context.Context, d *device.Device) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.devices[d.ID] = d.DeepCopy()
	return nil
}

func (r *memoryRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.devices, id)
	return nil
}

func (r *memoryRepo) Claim(context.Context, string, string, string, time.Time) error {
	return nil
}

// fakeSubscriber records subscriptions without a broker.
type fakeSubscriber struct {
	handlers map[string]mqtt.MessageHandler
	removed  []string
}

func newFakeSubscriber() *fakeSubscriber {
	return &fakeSubscriber{handlers: make(map[string]mqtt.MessageHandler)}
}

func (s *fakeSubscriber) Subscribe(topic string, _ byte, handler mqtt.MessageHandler) error {
	s.handlers[topic] = handler
	return nil
}

func (s *fakeSubscriber) Unsubscribe(topic string) error {
	s.removed = append(s.removed, topic)
	delete(s.handlers, topic)
	return nil
}

// recordingTelemetry captures writes for assertions.
type recordingTelemetry struct {
	heartbeats []heartbeatWrite
	metrics    []metricWrite
}

type heartbeatWrite struct {
	deviceID              string
	rssi, battery, uptime float64
}

type metricWrite struct {
	deviceID, measurement string
	value                 float64
}

func (t *recordingTelemetry) WriteHeartbeat(deviceID string, rssi, battery, uptime float64) {
	t.heartbeats = append(t.heartbeats, heartbeatWrite{deviceID, rssi, battery, uptime})
}

func (t *recordingTelemetry) WriteNodeMetric(deviceID, measurement string, value float64) {
	t.metrics = append(t.metrics, metricWrite{deviceID, measurement, value})
}

func TestListener_StartSubscribesAndStopUnsubscribes(t *testing.T) {
	inv := device.NewInventory(newMemoryRepo())
	l := NewListener(inv, nil)
	sub := newFakeSubscriber()

	if err := l.Start(context.Background(), sub, 1); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	var topics mqtt.Topics
	for _, want := range []string{topics.AllProvisions(), topics.AllHeartbeats()} {
		if _, ok := sub.handlers[want]; !ok {
			t.Errorf("missing subscription for %s", want)
		}
	}

	if err := l.Stop(sub); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if len(sub.handlers) != 0 {
		t.Errorf("subscriptions remain after Stop: %v", sub.handlers)
	}
}

func TestHandleProvision(t *testing.T) {
	ctx := context.Background()
	var topics mqtt.Topics

	t.Run("creates an unclaimed device", func(t *testing.T) {
		inv := device.NewInventory(newMemoryRepo())
		l := NewListener(inv, nil)

		topic := topics.NodeProvision("aa:bb:cc:dd:ee:ff")
		payload := []byte(`{"deviceName":"Soil Probe","firmware":"1.4.2"}`)
		if err := l.handleProvision(ctx, topic, payload); err != nil {
			t.Fatalf("handleProvision() error = %v", err)
		}

		dev, err := inv.GetDevice(ctx, "AA:BB:CC:DD:EE:FF")
		if err != nil {
			t.Fatalf("GetDevice() error = %v", err)
		}
		if dev.IsClaimed() {
			t.Error("provisioned device should be unclaimed")
		}
		if dev.Status != device.StatusUnclaimed {
			t.Errorf("status = %q, want %q", dev.Status, device.StatusUnclaimed)
		}
		if dev.Name != "Soil Probe" {
			t.Errorf("name = %q, want Soil Probe", dev.Name)
		}
	})

	t.Run("re-announcement is a no-op", func(t *testing.T) {
		inv := device.NewInventory(newMemoryRepo())
		l := NewListener(inv, nil)

		topic := topics.NodeProvision("AA:BB:CC:DD:EE:FF")
		if err := l.handleProvision(ctx, topic, nil); err != nil {
			t.Fatalf("first handleProvision() error = %v", err)
		}
		if err := l.handleProvision(ctx, topic, nil); err != nil {
			t.Fatalf("second handleProvision() error = %v", err)
		}

		devices, err := inv.ListUnclaimed(ctx)
		if err != nil {
			t.Fatalf("ListUnclaimed() error = %v", err)
		}
		if len(devices) != 1 {
			t.Errorf("device count = %d, want 1", len(devices))
		}
	})

	t.Run("bad MAC is dropped without error", func(t *testing.T) {
		inv := device.NewInventory(newMemoryRepo())
		l := NewListener(inv, nil)

		if err := l.handleProvision(ctx, "verdant/provision/not-a-mac", nil); err != nil {
			t.Fatalf("handleProvision() error = %v", err)
		}

		devices, err := inv.ListUnclaimed(ctx)
		if err != nil {
			t.Fatalf("ListUnclaimed() error = %v", err)
		}
		if len(devices) != 0 {
			t.Errorf("device count = %d, want 0", len(devices))
		}
	})

	t.Run("malformed payload is dropped without error", func(t *testing.T) {
		inv := device.NewInventory(newMemoryRepo())
		l := NewListener(inv, nil)

		topic := topics.NodeProvision("AA:BB:CC:DD:EE:FF")
		if err := l.handleProvision(ctx, topic, []byte("{not json")); err != nil {
			t.Fatalf("handleProvision() error = %v", err)
		}

		devices, err := inv.ListUnclaimed(ctx)
		if err != nil {
			t.Fatalf("ListUnclaimed() error = %v", err)
		}
		if len(devices) != 0 {
			t.Errorf("device count = %d, want 0", len(devices))
		}
	})
}

func TestHandleHeartbeat(t *testing.T) {
	var topics mqtt.Topics

	t.Run("forwards health and metrics", func(t *testing.T) {
		telemetry := &recordingTelemetry{}
		l := NewListener(device.NewInventory(newMemoryRepo()), telemetry)

		topic := topics.NodeHeartbeat("aa-bb-cc-dd-ee-ff")
		payload := []byte(`{
			"uptimeSeconds": 3600,
			"rssiDbm": -67,
			"batteryPct": 84.5,
			"metrics": {"soil_moisture_pct": 41.5}
		}`)
		if err := l.handleHeartbeat(topic, payload); err != nil {
			t.Fatalf("handleHeartbeat() error = %v", err)
		}

		if len(telemetry.heartbeats) != 1 {
			t.Fatalf("heartbeat writes = %d, want 1", len(telemetry.heartbeats))
		}
		hb := telemetry.heartbeats[0]
		if hb.deviceID != "AA:BB:CC:DD:EE:FF" {
			t.Errorf("device = %q, want AA:BB:CC:DD:EE:FF", hb.deviceID)
		}
		if hb.uptime != 3600 || hb.rssi != -67 || hb.battery != 84.5 {
			t.Errorf("heartbeat = %+v", hb)
		}

		if len(telemetry.metrics) != 1 {
			t.Fatalf("metric writes = %d, want 1", len(telemetry.metrics))
		}
		m := telemetry.metrics[0]
		if m.measurement != "soil_moisture_pct" || m.value != 41.5 {
			t.Errorf("metric = %+v", m)
		}
	})

	t.Run("nil telemetry is a no-op", func(t *testing.T) {
		l := NewListener(device.NewInventory(newMemoryRepo()), nil)

		topic := topics.NodeHeartbeat("AA:BB:CC:DD:EE:FF")
		if err := l.handleHeartbeat(topic, []byte(`{"uptimeSeconds": 1}`)); err != nil {
			t.Fatalf("handleHeartbeat() error = %v", err)
		}
	})

	t.Run("malformed payload is dropped without error", func(t *testing.T) {
		telemetry := &recordingTelemetry{}
		l := NewListener(device.NewInventory(newMemoryRepo()), telemetry)

		topic := topics.NodeHeartbeat("AA:BB:CC:DD:EE:FF")
		if err := l.handleHeartbeat(topic, []byte("garbage")); err != nil {
			t.Fatalf("handleHeartbeat() error = %v", err)
		}
		if len(telemetry.heartbeats) != 0 {
			t.Errorf("heartbeat writes = %d, want 0", len(telemetry.heartbeats))
		}
	})
}
