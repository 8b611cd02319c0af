package discovery

import (
	"context"
	"sync"

	"github.com/verdantgrid/verdant-core/internal/device"
)

// Logger defines the logging interface used by the Watcher.
type Logger interface {
	Debug(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Error(string, ...any) {}

// Snapshot is one state of the unclaimed-device list.
//
// Consumers receive a Loading snapshot first, then a loaded snapshot
// once the initial read completes, then a fresh snapshot after every
// inventory change. A snapshot with Err set is terminal: the stream is
// closed right after it and the watcher must be recreated to resume.
type Snapshot struct {
	Devices []device.Device
	Loading bool
	Err     error
}

// Watcher streams snapshots of unclaimed devices to a single consumer.
//
// Snapshots are latest-wins: if the consumer is slow the stale snapshot
// is dropped, never queued. Stop is safe to call any number of times
// and from any goroutine.
type Watcher struct {
	inventory *device.Inventory
	logger    Logger

	out      chan Snapshot
	stopOnce sync.Once
	stopped  chan struct{}
}

// NewWatcher creates a watcher over the inventory. Call Start to begin
// streaming.
func NewWatcher(inv *device.Inventory) *Watcher {
	return &Watcher{
		inventory: inv,
		logger:    noopLogger{},
		out:       make(chan Snapshot, 1),
		stopped:   make(chan struct{}),
	}
}

// SetLogger sets the logger for the watcher.
func (w *Watcher) SetLogger(logger Logger) {
	w.logger = logger
}

// Snapshots returns the stream. The channel is closed when the watcher
// stops, whether by Stop, context cancellation, or a terminal error.
func (w *Watcher) Snapshots() <-chan Snapshot {
	return w.out
}

// Start begins streaming in a background goroutine. The first snapshot
// carries Loading until the initial inventory read completes.
func (w *Watcher) Start(ctx context.Context) {
	go w.run(ctx)
}

// Stop ends the stream. Idempotent; notifications arriving after Stop
// are discarded.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.stopped)
	})
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.out)

	notify, cancel := w.inventory.Subscribe()
	defer cancel()

	w.emit(Snapshot{Loading: true})

	if !w.publishCurrent(ctx) {
		return
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopped:
			return
		case <-notify:
			if !w.publishCurrent(ctx) {
				return
			}
		}
	}
}

// publishCurrent reads the unclaimed list and emits it. A read failure
// is terminal: the error snapshot is emitted and false is returned.
func (w *Watcher) publishCurrent(ctx context.Context) bool {
	devices, err := w.inventory.ListUnclaimed(ctx)
	if err != nil {
		w.logger.Error("reading unclaimed devices failed", "error", err)
		w.emit(Snapshot{Err: err})
		return false
	}

	w.logger.Debug("publishing discovery snapshot", "unclaimed", len(devices))
	w.emit(Snapshot{Devices: devices})

	return true
}

// emit delivers a snapshot, replacing any undelivered one. The buffer
// holds exactly one snapshot so a slow consumer only ever sees the
// newest state.
func (w *Watcher) emit(s Snapshot) {
	for {
		select {
		case w.out <- s:
			return
		default:
		}
		select {
		case <-w.out:
		default:
		}
	}
}
