// Package postgres adapts the relay's stream and resolver ports onto
// LISTEN/NOTIFY and plain row queries via pgx.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/relaymail/relaymail/internal/config"
	"github.com/relaymail/relaymail/internal/domain"
	"github.com/relaymail/relaymail/internal/port"
)

// StreamDialer opens subscription connections. The subscription connection is
// dedicated to LISTEN/NOTIFY; ordinary queries besides the liveness ping are
// never issued on it.
type StreamDialer struct {
	ConnectTimeout time.Duration
}

func NewStreamDialer(connectTimeout time.Duration) *StreamDialer {
	return &StreamDialer{ConnectTimeout: connectTimeout}
}

func (d *StreamDialer) Dial(ctx context.Context, tenant config.Tenant) (port.EventStream, error) {
	conn, err := connect(ctx, tenant.ConnString, d.ConnectTimeout)
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", tenant.Label, err)
	}

	if _, err := conn.Exec(ctx, "LISTEN "+pgx.Identifier{tenant.Channel}.Sanitize()); err != nil {
		_ = conn.Close(ctx)
		return nil, fmt.Errorf("listen on %s: %w", tenant.Channel, err)
	}

	return &stream{conn: conn}, nil
}

// connect opens one connection with a bounded connect timeout and TCP
// keep-alives. Neon-hosted databases require TLS, so locators pointing at
// neon.tech get sslmode=require unless the caller already chose a mode.
func connect(ctx context.Context, connString string, connectTimeout time.Duration) (*pgx.Conn, error) {
	cfg, err := pgx.ParseConfig(withTransportOptions(connString))
	if err != nil {
		return nil, err
	}
	cfg.ConnectTimeout = connectTimeout
	dialer := &net.Dialer{Timeout: connectTimeout, KeepAlive: 30 * time.Second}
	cfg.DialFunc = dialer.DialContext
	return pgx.ConnectConfig(ctx, cfg)
}

func withTransportOptions(connString string) string {
	if !strings.Contains(connString, "neon.tech") || strings.Contains(connString, "sslmode=") {
		return connString
	}
	if strings.HasPrefix(connString, "postgres://") || strings.HasPrefix(connString, "postgresql://") {
		sep := "?"
		if strings.Contains(connString, "?") {
			sep = "&"
		}
		return connString + sep + "sslmode=require"
	}
	return connString + " sslmode=require"
}

type stream struct {
	conn *pgx.Conn
}

func (s *stream) WaitNext(ctx context.Context, timeout time.Duration) ([]byte, error) {
	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	n, err := s.conn.WaitForNotification(waitCtx)
	if err != nil {
		// The wait window elapsing is idleness, not failure; the parent
		// context expiring is a real cancellation.
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			return nil, domain.ErrStreamIdle
		}
		return nil, err
	}
	return []byte(n.Payload), nil
}

func (s *stream) Ping(ctx context.Context) error {
	var one int
	if err := s.conn.QueryRow(ctx, "SELECT 1").Scan(&one); err != nil {
		return fmt.Errorf("liveness query: %w", err)
	}
	return nil
}

func (s *stream) Close(ctx context.Context) error {
	return s.conn.Close(ctx)
}

var _ port.StreamDialer = (*StreamDialer)(nil)
