package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/relaymail/relaymail/internal/config"
	"github.com/relaymail/relaymail/internal/domain"
	"github.com/relaymail/relaymail/internal/pkg/circuitbreaker"
	"github.com/relaymail/relaymail/internal/port"
)

// Notifier composes and dispatches one outbound message per canonical
// document. It owns the token lookup; retry policy belongs to the caller.
type Notifier struct {
	tokens  port.TokenProvider
	sender  port.MailSender
	breaker *circuitbreaker.Breaker
	log     *slog.Logger
}

func NewNotifier(tokens port.TokenProvider, sender port.MailSender, breaker *circuitbreaker.Breaker, log *slog.Logger) *Notifier {
	return &Notifier{tokens: tokens, sender: sender, breaker: breaker, log: log}
}

func (n *Notifier) Notify(ctx context.Context, tenant config.Tenant, doc domain.NotificationDocument) error {
	token, err := n.tokens.Token(ctx, tenant.TenantID, tenant.ClientID, tenant.ClientSecret)
	if err != nil {
		sendsTotal.WithLabelValues(tenant.Label, "auth_error").Inc()
		return err
	}

	body := doc.RenderBody()
	err = n.breaker.Do(func() error {
		return n.sender.Send(ctx, token, tenant.FromEmail, tenant.ToEmail, doc.Subject, body)
	})
	switch {
	case err == nil:
		sendsTotal.WithLabelValues(tenant.Label, "accepted").Inc()
		return nil
	case errors.Is(err, circuitbreaker.ErrOpen):
		sendsTotal.WithLabelValues(tenant.Label, "rejected").Inc()
		n.log.Warn("mail API circuit open, dropping send", slog.String("tenant", tenant.Label))
		return &domain.SendError{Err: fmt.Errorf("mail API unavailable: %w", err)}
	default:
		sendsTotal.WithLabelValues(tenant.Label, "rejected").Inc()
		return err
	}
}

var _ port.Notifier = (*Notifier)(nil)
