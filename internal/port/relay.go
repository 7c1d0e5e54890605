package port

import (
	"context"
	"time"

	"github.com/relaymail/relaymail/internal/config"
	"github.com/relaymail/relaymail/internal/domain"
)

// EventStream is a live subscription to one tenant's notification channel.
// A stream is connection-affine: it must be used only by the goroutine that
// dialed it.
type EventStream interface {
	// WaitNext blocks until the next notification payload arrives, the wait
	// window elapses (domain.ErrStreamIdle), or the connection fails.
	WaitNext(ctx context.Context, timeout time.Duration) ([]byte, error)
	// Ping issues a trivial liveness query on the subscription connection.
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}

// StreamDialer opens a subscribed EventStream for a tenant.
type StreamDialer interface {
	Dial(ctx context.Context, tenant config.Tenant) (EventStream, error)
}

// RecordResolver fetches the full record behind a reference event using an
// independent short-lived connection. Returns domain.ErrNotFound when no row
// matches.
type RecordResolver interface {
	Resolve(ctx context.Context, tenant config.Tenant, id string) (domain.RawRecord, error)
}

// TokenSource performs one client-credentials grant against the identity
// provider. Callers cache the result; the source itself is stateless.
type TokenSource interface {
	Grant(ctx context.Context, tenantID, clientID, clientSecret string) (domain.Token, error)
}

// TokenProvider hands out a usable bearer token for an identity tenant,
// refreshing as needed.
type TokenProvider interface {
	Token(ctx context.Context, tenantID, clientID, clientSecret string) (string, error)
}

// MailSender submits one composed message to the mail API. A non-success
// status yields a *domain.SendError; there are no internal retries.
type MailSender interface {
	Send(ctx context.Context, token, from, to, subject, body string) error
}

// Notifier turns a canonical document into one outbound message for a tenant.
type Notifier interface {
	Notify(ctx context.Context, tenant config.Tenant, doc domain.NotificationDocument) error
}

// Runner is a supervisable unit of work; the supervisor restarts any Runner
// whose Run has returned.
type Runner interface {
	Run(ctx context.Context) error
}
