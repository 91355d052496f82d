package connectivity

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

func TestMonitor_OptimisticDefault(t *testing.T) {
	m := NewMonitor(Config{}) // no probe configured
	if !m.IsConnected() {
		t.Error("monitor without a probe should report connected")
	}
}

func TestMonitor_IsConnectedFast(t *testing.T) {
	m := NewMonitor(Config{})
	start := time.Now()
	for i := 0; i < 1000; i++ {
		m.IsConnected()
	}
	if elapsed := time.Since(start); elapsed > 50*time.Millisecond {
		t.Errorf("1000 IsConnected calls took %v", elapsed)
	}
}

func TestMonitor_Transitions(t *testing.T) {
	var up atomic.Bool
	up.Store(true)

	m := NewMonitorWithProbe(func(ctx context.Context) bool {
		return up.Load()
	}, 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	obs := m.Observe()
	go m.Start(ctx)

	// Drop the link and expect a false transition.
	up.Store(false)
	select {
	case state := <-obs:
		if state {
			t.Error("expected disconnected transition")
		}
	case <-time.After(time.Second):
		t.Fatal("no transition observed")
	}
	if m.IsConnected() {
		t.Error("IsConnected should reflect the probe")
	}

	// Restore and expect a true transition.
	up.Store(true)
	select {
	case state := <-obs:
		if !state {
			t.Error("expected connected transition")
		}
	case <-time.After(time.Second):
		t.Fatal("no transition observed")
	}
}

func TestMonitor_SlowObserverSeesLatest(t *testing.T) {
	var up atomic.Bool

	m := NewMonitorWithProbe(func(ctx context.Context) bool {
		return up.Load()
	}, time.Hour)

	obs := m.Observe()

	// Drive transitions directly without draining the observer.
	up.Store(false)
	m.refresh(context.Background())
	up.Store(true)
	m.refresh(context.Background())
	up.Store(false)
	m.refresh(context.Background())

	select {
	case state := <-obs:
		if state {
			t.Error("slow observer should see the latest state (disconnected)")
		}
	default:
		t.Fatal("observer channel empty")
	}
}
