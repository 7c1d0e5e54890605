package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/relaymail/relaymail/internal/config"
	"github.com/relaymail/relaymail/internal/port"
)

// RunnerFactory builds a fresh worker for a tenant; the supervisor calls it
// once at startup and again on every restart.
type RunnerFactory func(tenant config.Tenant) port.Runner

// Supervisor owns the tenant worker lifecycles: it starts one worker per
// tenant, polls their health on a fixed interval, and replaces any worker
// whose task has terminated for any reason, including panics.
type Supervisor struct {
	tenants  []config.Tenant
	factory  RunnerFactory
	interval time.Duration
	log      *slog.Logger
}

func NewSupervisor(tenants []config.Tenant, factory RunnerFactory, interval time.Duration, log *slog.Logger) *Supervisor {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Supervisor{tenants: tenants, factory: factory, interval: interval, log: log}
}

// handle tracks one running worker task. done is closed after Run returns;
// err then holds its termination cause.
type handle struct {
	tenant config.Tenant
	done   chan struct{}
	err    error
}

// Run supervises until ctx is cancelled, then waits for every worker to wind
// down. In-flight sends finish; workers notice cancellation between events.
func (s *Supervisor) Run(ctx context.Context) error {
	handles := make([]*handle, len(s.tenants))
	for i, tenant := range s.tenants {
		handles[i] = s.spawn(ctx, tenant)
		s.log.Info("worker started", slog.String("tenant", tenant.Label))
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			for _, h := range handles {
				<-h.done
			}
			s.log.Info("all workers stopped")
			return nil
		case <-ticker.C:
			for i, h := range handles {
				select {
				case <-h.done:
					workerRestartsTotal.WithLabelValues(h.tenant.Label).Inc()
					s.log.Warn("worker terminated, restarting",
						slog.String("tenant", h.tenant.Label),
						slog.Any("error", h.err),
					)
					handles[i] = s.spawn(ctx, h.tenant)
				default:
				}
			}
		}
	}
}

func (s *Supervisor) spawn(ctx context.Context, tenant config.Tenant) *handle {
	h := &handle{tenant: tenant, done: make(chan struct{})}
	runner := s.factory(tenant)
	go func() {
		defer close(h.done)
		defer func() {
			if r := recover(); r != nil {
				h.err = fmt.Errorf("worker panic: %v", r)
			}
		}()
		h.err = runner.Run(ctx)
	}()
	return h
}
