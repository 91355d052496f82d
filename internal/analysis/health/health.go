package health

import (
	"context"
	"time"
)

// Status is the aggregate health level.
type Status string

const (
	StatusHealthy  Status = "healthy"
	StatusDegraded Status = "degraded"
	StatusCritical Status = "critical"
)

// Checker is any dependency that can report its own health.
type Checker interface {
	Health(ctx context.Context) error
}

// ConnectivitySource reports the cached reachability state.
type ConnectivitySource interface {
	IsConnected() bool
}

// QueueDepthSource reports how many jobs are waiting.
type QueueDepthSource func(ctx context.Context) (int64, error)

// Report is the detailed health snapshot served over HTTP.
type Report struct {
	Status     Status            `json:"status"`
	Components map[string]string `json:"components"`
	Connected  bool              `json:"connected"`
	QueueDepth int64             `json:"queue_depth"`
	CheckedAt  time.Time         `json:"checked_at"`
}

// Monitor aggregates dependency health into one report.
type Monitor struct {
	checkers     map[string]Checker
	connectivity ConnectivitySource
	queueDepth   QueueDepthSource
}

// NewMonitor creates a monitor. connectivity and queueDepth may be nil.
func NewMonitor(checkers map[string]Checker, connectivity ConnectivitySource, queueDepth QueueDepthSource) *Monitor {
	return &Monitor{
		checkers:     checkers,
		connectivity: connectivity,
		queueDepth:   queueDepth,
	}
}

// CheckHealth probes every dependency. A failing storage or queue
// dependency is critical; being offline is only degraded, the pipeline
// reschedules around it.
func (m *Monitor) CheckHealth(ctx context.Context) Report {
	report := Report{
		Status:     StatusHealthy,
		Components: make(map[string]string),
		Connected:  true,
		CheckedAt:  time.Now().UTC(),
	}

	for name, checker := range m.checkers {
		if err := checker.Health(ctx); err != nil {
			report.Components[name] = err.Error()
			report.Status = StatusCritical
		} else {
			report.Components[name] = "ok"
		}
	}

	if m.connectivity != nil {
		report.Connected = m.connectivity.IsConnected()
		if !report.Connected && report.Status == StatusHealthy {
			report.Status = StatusDegraded
		}
	}

	if m.queueDepth != nil {
		if depth, err := m.queueDepth(ctx); err == nil {
			report.QueueDepth = depth
		}
	}

	return report
}
