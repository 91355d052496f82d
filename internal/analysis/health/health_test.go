package health

import (
	"context"
	"errors"
	"testing"
)

type stubChecker struct{ err error }

func (c stubChecker) Health(ctx context.Context) error { return c.err }

type stubConn struct{ connected bool }

func (c stubConn) IsConnected() bool { return c.connected }

func TestCheckHealth_AllHealthy(t *testing.T) {
	m := NewMonitor(map[string]Checker{
		"redis":    stubChecker{},
		"postgres": stubChecker{},
	}, stubConn{connected: true}, func(ctx context.Context) (int64, error) { return 3, nil })

	report := m.CheckHealth(context.Background())
	if report.Status != StatusHealthy {
		t.Errorf("status = %v, want healthy", report.Status)
	}
	if report.QueueDepth != 3 {
		t.Errorf("queue depth = %d", report.QueueDepth)
	}
}

func TestCheckHealth_DependencyFailureIsCritical(t *testing.T) {
	m := NewMonitor(map[string]Checker{
		"redis": stubChecker{err: errors.New("connection refused")},
	}, nil, nil)

	report := m.CheckHealth(context.Background())
	if report.Status != StatusCritical {
		t.Errorf("status = %v, want critical", report.Status)
	}
	if report.Components["redis"] == "ok" {
		t.Error("failing component should carry its error")
	}
}

func TestCheckHealth_OfflineIsOnlyDegraded(t *testing.T) {
	m := NewMonitor(map[string]Checker{
		"redis": stubChecker{},
	}, stubConn{connected: false}, nil)

	report := m.CheckHealth(context.Background())
	if report.Status != StatusDegraded {
		t.Errorf("status = %v, want degraded", report.Status)
	}
}
