package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/relaymail/relaymail/internal/config"
	"github.com/relaymail/relaymail/internal/domain"
	"github.com/relaymail/relaymail/internal/pkg/backoff"
	"github.com/relaymail/relaymail/internal/pkg/logger"
	"github.com/relaymail/relaymail/internal/port"
)

// Worker drives one tenant's pipeline: hold the subscription, read the event
// stream, resolve → normalize → notify per event. It cycles DISCONNECTED →
// CONNECTING → SUBSCRIBED indefinitely; per-event failures are contained and
// only context cancellation ends Run.
type Worker struct {
	tenant   config.Tenant
	dialer   port.StreamDialer
	resolver port.RecordResolver
	notifier port.Notifier
	policy   *backoff.Policy
	log      *slog.Logger

	// waitTimeout bounds each blocking wait; an idle window doubles as the
	// liveness-check trigger.
	waitTimeout time.Duration
	// errorPause is how long the loop rests after a non-connection error
	// before resuming in place.
	errorPause time.Duration
}

type WorkerOptions struct {
	WaitTimeout time.Duration
	ErrorPause  time.Duration
}

func NewWorker(tenant config.Tenant, dialer port.StreamDialer, resolver port.RecordResolver, notifier port.Notifier, log *slog.Logger, opts WorkerOptions) *Worker {
	if opts.WaitTimeout <= 0 {
		opts.WaitTimeout = 60 * time.Second
	}
	if opts.ErrorPause <= 0 {
		opts.ErrorPause = 5 * time.Second
	}
	return &Worker{
		tenant:      tenant,
		dialer:      dialer,
		resolver:    resolver,
		notifier:    notifier,
		policy:      backoff.NewPolicy(),
		log:         logger.ForTenant(log, tenant.Label),
		waitTimeout: opts.WaitTimeout,
		errorPause:  opts.ErrorPause,
	}
}

// Run blocks until ctx is cancelled. Connection loss is absorbed by the
// reconnect loop and is never returned as an error.
func (w *Worker) Run(ctx context.Context) error {
	for {
		stream, err := w.connect(ctx)
		if err != nil {
			return err
		}
		w.log.Info("subscribed", slog.String("channel", w.tenant.Channel))

		err = w.consume(ctx, stream)

		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		_ = stream.Close(closeCtx)
		cancel()

		if ctx.Err() != nil {
			return ctx.Err()
		}
		reconnectsTotal.WithLabelValues(w.tenant.Label).Inc()
		w.log.Warn("connection lost, reconnecting", slog.Any("error", err))
	}
}

// connect retries until a subscription is established or ctx is cancelled.
// Connection failure is never fatal, only delayed.
func (w *Worker) connect(ctx context.Context) (port.EventStream, error) {
	attempt := 0
	for {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		stream, err := w.dialer.Dial(ctx, w.tenant)
		if err == nil {
			w.policy.Reset()
			return stream, nil
		}

		attempt++
		delay, exceeded := w.policy.Next(attempt)
		if exceeded {
			attempt = 0
		}
		w.log.Warn("connect failed",
			slog.Int("attempt", attempt),
			slog.Duration("retry_in", delay),
			slog.Any("error", err),
		)
		if err := backoff.Sleep(ctx, delay); err != nil {
			return nil, err
		}
	}
}

// consume reads the stream until the connection is lost (returns the causing
// error) or ctx is cancelled (returns ctx.Err()).
func (w *Worker) consume(ctx context.Context, stream port.EventStream) error {
	for {
		payload, err := stream.WaitNext(ctx, w.waitTimeout)
		switch {
		case errors.Is(err, domain.ErrStreamIdle):
			if pingErr := stream.Ping(ctx); pingErr != nil {
				return pingErr
			}
			continue
		case err != nil:
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if domain.IsConnectionError(err) {
				return err
			}
			// Unclassified failure: rest briefly and resume the same
			// subscription.
			w.log.Error("event wait failed", slog.Any("error", err))
			if sleepErr := backoff.Sleep(ctx, w.errorPause); sleepErr != nil {
				return sleepErr
			}
			continue
		}

		w.handleEvent(ctx, payload)

		// Liveness check each iteration; a dead connection can otherwise
		// block the next wait for its full window.
		if pingErr := stream.Ping(ctx); pingErr != nil {
			return pingErr
		}
	}
}

// handleEvent processes one notification end to end. Every failure here is
// logged and dropped; the loop always proceeds to the next event.
func (w *Worker) handleEvent(ctx context.Context, payload []byte) {
	log := logger.ForTenant(logger.From(ctx), w.tenant.Label).With(slog.String("delivery_id", uuid.NewString()))

	event, err := domain.DecodeEvent(payload)
	if err != nil {
		eventsTotal.WithLabelValues(w.tenant.Label, outcomeDecodeError).Inc()
		log.Error("dropping undecodable event", slog.Any("error", err), slog.String("payload", string(payload)))
		return
	}

	record := event.Record
	if event.IsReference() {
		id := event.ID()
		if id == "" {
			eventsTotal.WithLabelValues(w.tenant.Label, outcomeDecodeError).Inc()
			log.Error("dropping reference event without a usable id", slog.String("payload", string(payload)))
			return
		}
		record, err = w.resolver.Resolve(ctx, w.tenant, id)
		if errors.Is(err, domain.ErrNotFound) {
			eventsTotal.WithLabelValues(w.tenant.Label, outcomeNotFound).Inc()
			log.Warn("no matching record, skipping", slog.String("record_id", id))
			return
		}
		if err != nil {
			eventsTotal.WithLabelValues(w.tenant.Label, outcomeResolveError).Inc()
			log.Error("resolve failed, dropping event", slog.String("record_id", id), slog.Any("error", err))
			return
		}
	}

	doc := Normalize(record)
	if err := w.notifier.Notify(ctx, w.tenant, doc); err != nil {
		eventsTotal.WithLabelValues(w.tenant.Label, outcomeSendError).Inc()
		log.Error("notification failed, dropping event",
			slog.String("record_id", event.ID()),
			slog.String("category", string(doc.Category)),
			slog.Any("error", err),
		)
		return
	}

	eventsTotal.WithLabelValues(w.tenant.Label, outcomeSent).Inc()
	log.Info("notification sent",
		slog.String("record_id", event.ID()),
		slog.String("category", string(doc.Category)),
		slog.String("to", w.tenant.ToEmail),
	)
}

var _ port.Runner = (*Worker)(nil)
