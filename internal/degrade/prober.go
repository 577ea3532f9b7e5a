package degrade

import (
	"context"
	"log/slog"
	"time"

	"gdpgate/internal/degrade/metrics"
)

// Check probes one dependency. It should respect ctx and return a
// human-readable description of the outcome alongside the error.
type Check func(ctx context.Context) (description string, err error)

// Prober runs the configured checks on a fixed cadence and publishes the
// combined snapshot.
type Prober struct {
	health       *Health
	checks       map[Dependency]Check
	period       time.Duration
	initialDelay time.Duration
	timeout      time.Duration
	logger       *slog.Logger
	metrics      *metrics.Metrics
}

type ProberOption func(*Prober)

func WithProbeLogger(l *slog.Logger) ProberOption {
	return func(p *Prober) { p.logger = l }
}

func WithProbeMetrics(m *metrics.Metrics) ProberOption {
	return func(p *Prober) { p.metrics = m }
}

// WithProbeTimeout bounds each individual check.
func WithProbeTimeout(d time.Duration) ProberOption {
	return func(p *Prober) { p.timeout = d }
}

func NewProber(health *Health, checks map[Dependency]Check, period, initialDelay time.Duration, opts ...ProberOption) *Prober {
	p := &Prober{
		health:       health,
		checks:       checks,
		period:       period,
		initialDelay: initialDelay,
		timeout:      5 * time.Second,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run probes until ctx is cancelled. The first probe waits for the initial
// delay so dependencies starting alongside the service get a grace window.
func (p *Prober) Run(ctx context.Context) {
	select {
	case <-ctx.Done():
		return
	case <-time.After(p.initialDelay):
	}
	p.probeOnce(ctx)

	ticker := time.NewTicker(p.period)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.probeOnce(ctx)
		}
	}
}

func (p *Prober) probeOnce(ctx context.Context) {
	now := time.Now()
	statuses := make(map[Dependency]DependencyStatus, len(p.checks))
	for dep, check := range p.checks {
		statuses[dep] = p.runCheck(ctx, dep, check)
	}
	snapshot := Snapshot{Dependencies: statuses, UpdatedAt: now}
	p.health.Publish(snapshot)

	if !snapshot.CoreHealthy() {
		p.logger.WarnContext(ctx, "core dependencies degraded",
			"master_data", snapshot.healthy(DependencyMasterData),
			"erp", snapshot.healthy(DependencyERP),
		)
	}
}

func (p *Prober) runCheck(ctx context.Context, dep Dependency, check Check) DependencyStatus {
	checkCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	start := time.Now()
	description, err := check(checkCtx)
	elapsed := time.Since(start)

	status := DependencyStatus{
		Healthy:     err == nil,
		Duration:    elapsed,
		Description: description,
		CheckedAt:   start,
	}
	if err != nil {
		status.Description = err.Error()
		p.logger.WarnContext(ctx, "dependency probe failed",
			"dependency", string(dep),
			"duration", elapsed,
			"error", err,
		)
	}
	p.metrics.ObserveProbe(string(dep), status.Healthy, elapsed)
	return status
}
