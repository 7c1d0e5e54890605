package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/relaymail/relaymail/internal/config"
	"github.com/relaymail/relaymail/internal/domain"
	"github.com/relaymail/relaymail/internal/port"
)

// Resolver fetches full records behind reference events. Every Resolve opens
// its own short-lived connection: interleaving request/response queries with
// asynchronous notification delivery on the subscription connection is
// unsafe.
type Resolver struct {
	ConnectTimeout time.Duration
}

func NewResolver(connectTimeout time.Duration) *Resolver {
	return &Resolver{ConnectTimeout: connectTimeout}
}

func tableFor(category domain.Category) string {
	switch category {
	case domain.CategoryQuoteRequest:
		return "quote_requests"
	case domain.CategoryContactSubmission:
		return "contact_submissions"
	default:
		return "inquiries"
	}
}

func (r *Resolver) Resolve(ctx context.Context, tenant config.Tenant, id string) (domain.RawRecord, error) {
	var rec domain.RawRecord

	conn, err := connect(ctx, tenant.ConnString, r.ConnectTimeout)
	if err != nil {
		return rec, fmt.Errorf("resolver connect %s: %w", tenant.Label, err)
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = conn.Close(closeCtx)
	}()

	table := tableFor(tenant.Category)
	query := fmt.Sprintf("SELECT * FROM %s WHERE id = $1", pgx.Identifier{table}.Sanitize())

	rows, err := conn.Query(ctx, query, id)
	if err != nil {
		return rec, fmt.Errorf("query %s: %w", table, err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return rec, fmt.Errorf("query %s: %w", table, err)
		}
		return rec, domain.ErrNotFound
	}

	values, err := rows.Values()
	if err != nil {
		return rec, fmt.Errorf("read row from %s: %w", table, err)
	}
	for i, fd := range rows.FieldDescriptions() {
		rec.Set(string(fd.Name), values[i])
	}
	return rec, nil
}

var _ port.RecordResolver = (*Resolver)(nil)
