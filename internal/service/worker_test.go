package service

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relaymail/relaymail/internal/config"
	"github.com/relaymail/relaymail/internal/domain"
	"github.com/relaymail/relaymail/internal/port"
)

// fakeStream serves queued payloads, then invokes onDrained (typically the
// test's context cancel) and reports cancellation.
type fakeStream struct {
	mu        sync.Mutex
	payloads  [][]byte
	preErr    error // returned once, before any payloads are served
	failAfter error // returned once the queue is drained, instead of cancelling
	pingErr   error
	onDrained func()
	pings     int
	closed    bool
}

func (s *fakeStream) WaitNext(ctx context.Context, timeout time.Duration) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.preErr != nil {
		err := s.preErr
		s.preErr = nil
		return nil, err
	}
	if len(s.payloads) > 0 {
		p := s.payloads[0]
		s.payloads = s.payloads[1:]
		return p, nil
	}
	if s.failAfter != nil {
		err := s.failAfter
		s.failAfter = nil
		return nil, err
	}
	if s.onDrained != nil {
		s.onDrained()
	}
	return nil, context.Canceled
}

func (s *fakeStream) Ping(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pings++
	return s.pingErr
}

func (s *fakeStream) Close(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

type fakeDialer struct {
	t       *testing.T
	mu      sync.Mutex
	streams []*fakeStream
	dials   int
}

func (d *fakeDialer) Dial(ctx context.Context, tenant config.Tenant) (port.EventStream, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	require.Less(d.t, d.dials, len(d.streams), "unexpected extra dial")
	s := d.streams[d.dials]
	d.dials++
	return s, nil
}

type fakeResolver struct {
	mu     sync.Mutex
	ids    []string
	record domain.RawRecord
	err    error
}

func (r *fakeResolver) Resolve(ctx context.Context, tenant config.Tenant, id string) (domain.RawRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ids = append(r.ids, id)
	if r.err != nil {
		return domain.RawRecord{}, r.err
	}
	return r.record, nil
}

type fakeNotifier struct {
	mu    sync.Mutex
	docs  []domain.NotificationDocument
	errs  []error // popped per call; nil entries mean success
	calls int
}

func (n *fakeNotifier) Notify(ctx context.Context, tenant config.Tenant, doc domain.NotificationDocument) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls++
	n.docs = append(n.docs, doc)
	if len(n.errs) > 0 {
		err := n.errs[0]
		n.errs = n.errs[1:]
		return err
	}
	return nil
}

func testTenant() config.Tenant {
	return config.Tenant{
		Label:        "Tenant-1",
		Channel:      "new_record_channel",
		Category:     domain.CategoryInquiry,
		ConnString:   "host=localhost dbname=test user=test password=test",
		TenantID:     "tenant-1-id",
		ClientID:     "client",
		ClientSecret: "secret",
		FromEmail:    "a@x.com",
		ToEmail:      "b@x.com",
	}
}

func runWorker(t *testing.T, ctx context.Context, dialer port.StreamDialer, resolver port.RecordResolver, notifier port.Notifier) error {
	t.Helper()
	w := NewWorker(testTenant(), dialer, resolver, notifier, slog.Default(), WorkerOptions{
		WaitTimeout: 50 * time.Millisecond,
		ErrorPause:  time.Millisecond,
	})
	return w.Run(ctx)
}

func TestWorkerReferenceEventResolvesBeforeNotify(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var rec domain.RawRecord
	rec.Set("name", "Jane")
	rec.Set("email", "jane@y.com")

	stream := &fakeStream{payloads: [][]byte{[]byte(`{"id": "42"}`)}, onDrained: cancel}
	dialer := &fakeDialer{t: t, streams: []*fakeStream{stream}}
	resolver := &fakeResolver{record: rec}
	notifier := &fakeNotifier{}

	err := runWorker(t, ctx, dialer, resolver, notifier)
	assert.ErrorIs(t, err, context.Canceled)

	assert.Equal(t, []string{"42"}, resolver.ids)
	require.Equal(t, 1, notifier.calls)
	assert.Equal(t, "Jane", notifier.docs[0].Name)
	assert.True(t, stream.closed)
}

func TestWorkerLegacyEventSkipsResolver(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stream := &fakeStream{
		payloads:  [][]byte{[]byte(`{"id": "42", "name": "X"}`)},
		onDrained: cancel,
	}
	dialer := &fakeDialer{t: t, streams: []*fakeStream{stream}}
	resolver := &fakeResolver{}
	notifier := &fakeNotifier{}

	_ = runWorker(t, ctx, dialer, resolver, notifier)

	assert.Empty(t, resolver.ids, "legacy records must not be resolved")
	require.Equal(t, 1, notifier.calls)
	assert.Equal(t, "X", notifier.docs[0].Name)
}

func TestWorkerNotFoundSkipsNotify(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stream := &fakeStream{payloads: [][]byte{[]byte(`{"id": "7"}`)}, onDrained: cancel}
	dialer := &fakeDialer{t: t, streams: []*fakeStream{stream}}
	resolver := &fakeResolver{err: domain.ErrNotFound}
	notifier := &fakeNotifier{}

	err := runWorker(t, ctx, dialer, resolver, notifier)
	assert.ErrorIs(t, err, context.Canceled, "not-found must not crash the loop")
	assert.Equal(t, []string{"7"}, resolver.ids)
	assert.Zero(t, notifier.calls)
}

func TestWorkerContinuesAfterSendError(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stream := &fakeStream{
		payloads: [][]byte{
			[]byte(`{"id": "1", "name": "First"}`),
			[]byte(`{"id": "2", "name": "Second"}`),
		},
		onDrained: cancel,
	}
	dialer := &fakeDialer{t: t, streams: []*fakeStream{stream}}
	notifier := &fakeNotifier{errs: []error{&domain.SendError{Status: 500, Body: "boom"}}}

	_ = runWorker(t, ctx, dialer, &fakeResolver{}, notifier)

	require.Equal(t, 2, notifier.calls, "worker must continue past a send failure")
	assert.Equal(t, "Second", notifier.docs[1].Name)
}

func TestWorkerDropsUndecodableEvent(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stream := &fakeStream{
		payloads:  [][]byte{[]byte(`not json`), []byte(`{"id": "9", "name": "OK"}`)},
		onDrained: cancel,
	}
	dialer := &fakeDialer{t: t, streams: []*fakeStream{stream}}
	notifier := &fakeNotifier{}

	_ = runWorker(t, ctx, dialer, &fakeResolver{}, notifier)

	require.Equal(t, 1, notifier.calls)
	assert.Equal(t, "OK", notifier.docs[0].Name)
}

func TestWorkerReconnectsOnConnectionError(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	first := &fakeStream{
		payloads:  [][]byte{[]byte(`{"id": "1", "name": "Before"}`)},
		failAfter: errors.New("conn closed"),
	}
	second := &fakeStream{
		payloads:  [][]byte{[]byte(`{"id": "2", "name": "After"}`)},
		onDrained: cancel,
	}
	dialer := &fakeDialer{t: t, streams: []*fakeStream{first, second}}
	notifier := &fakeNotifier{}

	err := runWorker(t, ctx, dialer, &fakeResolver{}, notifier)
	assert.ErrorIs(t, err, context.Canceled)

	assert.Equal(t, 2, dialer.dials, "connection loss must redial")
	assert.True(t, first.closed)
	require.Equal(t, 2, notifier.calls)
	assert.Equal(t, "After", notifier.docs[1].Name)
}

func TestWorkerIdlePingFailureForcesReconnect(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	first := &fakeStream{
		failAfter: domain.ErrStreamIdle,
		pingErr:   errors.New("connection lost"),
	}
	second := &fakeStream{
		payloads:  [][]byte{[]byte(`{"id": "1", "name": "After"}`)},
		onDrained: cancel,
	}
	dialer := &fakeDialer{t: t, streams: []*fakeStream{first, second}}
	notifier := &fakeNotifier{}

	err := runWorker(t, ctx, dialer, &fakeResolver{}, notifier)
	assert.ErrorIs(t, err, context.Canceled)

	assert.Equal(t, 2, dialer.dials, "a failed liveness check on an idle stream must redial")
	assert.True(t, first.closed)
	require.Equal(t, 1, notifier.calls)
	assert.Equal(t, "After", notifier.docs[0].Name)
}

func TestWorkerPostEventPingFailureForcesReconnect(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	first := &fakeStream{
		payloads: [][]byte{[]byte(`{"id": "1", "name": "Before"}`)},
		pingErr:  errors.New("conn closed"),
	}
	second := &fakeStream{
		payloads:  [][]byte{[]byte(`{"id": "2", "name": "After"}`)},
		onDrained: cancel,
	}
	dialer := &fakeDialer{t: t, streams: []*fakeStream{first, second}}
	notifier := &fakeNotifier{}

	_ = runWorker(t, ctx, dialer, &fakeResolver{}, notifier)

	assert.Equal(t, 2, dialer.dials, "a failed liveness check after an event must redial")
	assert.True(t, first.closed)
	require.Equal(t, 2, notifier.calls, "the event preceding the failed check still goes out")
	assert.Equal(t, "After", notifier.docs[1].Name)
}

func TestWorkerResumesSameStreamAfterUnclassifiedError(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stream := &fakeStream{
		preErr:    errors.New("syntax error at end of input"),
		payloads:  [][]byte{[]byte(`{"id": "1", "name": "Still here"}`)},
		onDrained: cancel,
	}
	dialer := &fakeDialer{t: t, streams: []*fakeStream{stream}}
	notifier := &fakeNotifier{}

	_ = runWorker(t, ctx, dialer, &fakeResolver{}, notifier)

	assert.Equal(t, 1, dialer.dials, "an unclassified wait error must not redial")
	require.Equal(t, 1, notifier.calls)
	assert.Equal(t, "Still here", notifier.docs[0].Name)
}

func TestWorkerDropsReferenceWithNullID(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var rec domain.RawRecord
	rec.Set("name", "Jane")

	stream := &fakeStream{
		payloads:  [][]byte{[]byte(`{"id": null}`), []byte(`{"id": "9"}`)},
		onDrained: cancel,
	}
	dialer := &fakeDialer{t: t, streams: []*fakeStream{stream}}
	resolver := &fakeResolver{record: rec}
	notifier := &fakeNotifier{}

	_ = runWorker(t, ctx, dialer, resolver, notifier)

	assert.Equal(t, []string{"9"}, resolver.ids, "a null id must never reach the resolver")
	require.Equal(t, 1, notifier.calls)
}

func TestWorkerPingsEachIteration(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stream := &fakeStream{
		payloads:  [][]byte{[]byte(`{"id": "1", "name": "A"}`)},
		onDrained: cancel,
	}
	dialer := &fakeDialer{t: t, streams: []*fakeStream{stream}}

	_ = runWorker(t, ctx, dialer, &fakeResolver{}, &fakeNotifier{})
	assert.GreaterOrEqual(t, stream.pings, 1)
}
