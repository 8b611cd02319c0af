package device

import (
	"context"
	"fmt"
	"sync"
)

// Logger defines the logging interface used by the Inventory.
// This allows different logging implementations to be used.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Inventory provides device management with caching and change
// notification. It wraps a Repository and adds an in-memory cache for
// fast lookups plus a subscription mechanism that wakes watchers when
// the device population changes (a node is provisioned or claimed).
//
// The cache is populated on startup via RefreshCache() and kept in sync
// by cache-updating operations. All public methods are thread-safe.
type Inventory struct {
	repo    Repository
	cache   map[string]*Device // Cached devices by ID
	cacheMu sync.RWMutex       // Protects cache
	logger  Logger

	subs    map[int]chan struct{}
	nextSub int
	subMu   sync.Mutex
}

// NewInventory creates a new device inventory.
// The repository is used for persistence; the inventory adds caching
// and change notification.
func NewInventory(repo Repository) *Inventory {
	return &Inventory{
		repo:   repo,
		cache:  make(map[string]*Device),
		logger: noopLogger{},
		subs:   make(map[int]chan struct{}),
	}
}

// SetLogger sets the logger for the inventory.
func (inv *Inventory) SetLogger(logger Logger) {
	inv.logger = logger
}

// RefreshCache reloads all devices from the repository into the cache.
// This should be called on application startup.
func (inv *Inventory) RefreshCache(ctx context.Context) error {
	devices, err := inv.repo.List(ctx)
	if err != nil {
		return fmt.Errorf("loading devices: %w", err)
	}

	inv.cacheMu.Lock()
	defer inv.cacheMu.Unlock()

	// Clear and rebuild cache with deep copies
	inv.cache = make(map[string]*Device, len(devices))
	for i := range devices {
		d := devices[i]
		inv.cache[d.ID] = d.DeepCopy()
	}

	inv.logger.Info("device cache refreshed", "count", len(devices))
	return nil
}

// GetDevice retrieves a device by ID.
// Returns ErrDeviceNotFound if the device does not exist.
// The returned device is a deep copy; callers can safely modify it.
func (inv *Inventory) GetDevice(ctx context.Context, id string) (*Device, error) {
	// Try cache first
	inv.cacheMu.RLock()
	cached, ok := inv.cache[id]
	inv.cacheMu.RUnlock()

	if ok {
		// Return a deep copy to prevent external mutation of cache
		return cached.DeepCopy(), nil
	}

	// Fall back to repository (might be a new device not yet cached)
	dev, err := inv.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	// Cache for future lookups (store a deep copy)
	inv.cacheMu.Lock()
	inv.cache[id] = dev.DeepCopy()
	inv.cacheMu.Unlock()

	return dev, nil
}

// ListDevices retrieves all devices.
// The returned devices are deep copies; callers can safely modify them.
func (inv *Inventory) ListDevices(ctx context.Context) ([]Device, error) {
	inv.cacheMu.RLock()
	defer inv.cacheMu.RUnlock()

	// Return from cache if populated
	if len(inv.cache) > 0 {
		devices := make([]Device, 0, len(inv.cache))
		for _, d := range inv.cache {
			devices = append(devices, *d.DeepCopy())
		}
		return devices, nil
	}

	// Fall back to repository
	return inv.repo.List(ctx)
}

// ListUnclaimed retrieves all devices without an owner.
// The returned devices are deep copies; callers can safely modify them.
func (inv *Inventory) ListUnclaimed(ctx context.Context) ([]Device, error) {
	inv.cacheMu.RLock()
	defer inv.cacheMu.RUnlock()

	if len(inv.cache) > 0 {
		var devices []Device
		for _, d := range inv.cache {
			if !d.IsClaimed() {
				devices = append(devices, *d.DeepCopy())
			}
		}
		return devices, nil
	}

	return inv.repo.ListUnclaimed(ctx)
}

// ListByOwner retrieves all devices claimed by a specific owner.
func (inv *Inventory) ListByOwner(ctx context.Context, ownerID string) ([]Device, error) {
	inv.cacheMu.RLock()
	defer inv.cacheMu.RUnlock()

	if len(inv.cache) > 0 {
		var devices []Device
		for _, d := range inv.cache {
			if d.OwnerID != nil && *d.OwnerID == ownerID {
				devices = append(devices, *d.DeepCopy())
			}
		}
		return devices, nil
	}

	return inv.repo.ListByOwner(ctx, ownerID)
}

// CreateDevice validates and persists a new device, updates the cache,
// and notifies subscribers.
func (inv *Inventory) CreateDevice(ctx context.Context, dev *Device) error {
	if err := inv.repo.Create(ctx, dev); err != nil {
		return err
	}

	inv.cacheMu.Lock()
	inv.cache[dev.ID] = dev.DeepCopy()
	inv.cacheMu.Unlock()

	inv.logger.Info("device created", "device_id", dev.ID, "status", dev.Status)
	inv.notify()
	return nil
}

// ApplyUpdate replaces the cached copy of a device after an external
// write (such as a committed claim transaction) and notifies subscribers.
func (inv *Inventory) ApplyUpdate(dev *Device) {
	inv.cacheMu.Lock()
	inv.cache[dev.ID] = dev.DeepCopy()
	inv.cacheMu.Unlock()

	inv.notify()
}

// Subscribe registers for change notifications.
//
// The returned channel receives a signal whenever the device population
// changes. Notifications are coalesced: a slow consumer sees at least
// one signal for any burst of changes. The cancel function is
// idempotent and releases the subscription.
func (inv *Inventory) Subscribe() (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)

	inv.subMu.Lock()
	id := inv.nextSub
	inv.nextSub++
	inv.subs[id] = ch
	inv.subMu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			inv.subMu.Lock()
			delete(inv.subs, id)
			inv.subMu.Unlock()
		})
	}

	return ch, cancel
}

// notify wakes all subscribers without blocking.
func (inv *Inventory) notify() {
	inv.subMu.Lock()
	defer inv.subMu.Unlock()

	for _, ch := range inv.subs {
		select {
		case ch <- struct{}{}:
		default:
			// Subscriber already has a pending signal
		}
	}
}
