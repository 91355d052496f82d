package connectivity

import (
	"context"
	"log/slog"
	"net"
	"sync"
	"time"
)

// Config holds connectivity probe settings.
type Config struct {
	// ProbeAddr is a host:port dialed to determine reachability. Empty
	// disables probing and the monitor reports optimistically connected.
	ProbeAddr string        `yaml:"probe_addr"`
	Interval  time.Duration `yaml:"interval"`
	Timeout   time.Duration `yaml:"timeout"`
}

// ProbeFunc checks reachability once. Must be cheap and bounded.
type ProbeFunc func(ctx context.Context) bool

// Monitor caches network reachability so IsConnected never blocks on I/O.
// A background loop refreshes the cached state and notifies observers on
// every transition.
type Monitor struct {
	probe    ProbeFunc
	interval time.Duration

	mu        sync.RWMutex
	connected bool
	observers []chan bool
}

// NewMonitor creates a monitor from config. The initial state is connected:
// if the probe facility is unavailable a real network failure will still be
// classified and retried on the attempt path.
func NewMonitor(cfg Config) *Monitor {
	interval := cfg.Interval
	if interval <= 0 {
		interval = 5 * time.Second
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Second
	}

	var probe ProbeFunc
	if cfg.ProbeAddr != "" {
		addr := cfg.ProbeAddr
		probe = func(ctx context.Context) bool {
			dialer := net.Dialer{Timeout: timeout}
			conn, err := dialer.DialContext(ctx, "tcp", addr)
			if err != nil {
				return false
			}
			_ = conn.Close()
			return true
		}
	}

	return &Monitor{
		probe:     probe,
		interval:  interval,
		connected: true,
	}
}

// NewMonitorWithProbe creates a monitor with a custom probe. Used by tests
// and by callers with their own reachability source.
func NewMonitorWithProbe(probe ProbeFunc, interval time.Duration) *Monitor {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &Monitor{probe: probe, interval: interval, connected: true}
}

// IsConnected returns the cached reachability state. Never blocks on I/O.
func (m *Monitor) IsConnected() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.connected
}

// Observe returns a channel receiving the new state on every transition.
// The channel is buffered; a slow observer misses intermediate transitions
// but always sees the latest state eventually.
func (m *Monitor) Observe() <-chan bool {
	ch := make(chan bool, 1)
	m.mu.Lock()
	m.observers = append(m.observers, ch)
	m.mu.Unlock()
	return ch
}

// Start runs the probe loop until ctx is cancelled. No-op when probing is
// disabled.
func (m *Monitor) Start(ctx context.Context) {
	if m.probe == nil {
		slog.Info("Connectivity probing disabled, assuming connected")
		return
	}

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.refresh(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.refresh(ctx)
		}
	}
}

func (m *Monitor) refresh(ctx context.Context) {
	state := m.probe(ctx)

	m.mu.Lock()
	changed := state != m.connected
	m.connected = state
	observers := m.observers
	m.mu.Unlock()

	if !changed {
		return
	}

	slog.Info("Connectivity changed", "connected", state)
	for _, ch := range observers {
		select {
		case ch <- state:
		default:
			// Drop the stale value so the latest state can be delivered.
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- state:
			default:
			}
		}
	}
}
