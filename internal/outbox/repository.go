package outbox

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// Repository persists outbox events.
type Repository struct {
	db *sqlx.DB
}

// NewRepository creates an outbox repository.
func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

// Insert writes evt using exec, normally the business transaction, capturing the caller's trace context.
func (r *Repository) Insert(ctx context.Context, exec sqlx.ExtContext, evt Event) error {
	traceparent, tracestate := traceContextStrings(ctx)
	const query = `INSERT INTO outbox_events (id, aggregate_type, aggregate_id, event_type, payload, traceparent, tracestate, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	if _, err := exec.ExecContext(ctx, query, uuid.NewString(), evt.AggregateType, evt.AggregateID, evt.EventType, evt.Payload, traceparent, tracestate, time.Now().UTC()); err != nil {
		return fmt.Errorf("insert outbox event %s: %w", evt.EventType, err)
	}
	return nil
}

// Claim leases up to limit unpublished events for lease. Rows leased by another publisher are skipped.
func (r *Repository) Claim(ctx context.Context, limit int, lease time.Duration) ([]Record, error) {
	const query = `UPDATE outbox_events SET locked_until = now() + make_interval(secs => $2)
		WHERE id IN (
			SELECT id FROM outbox_events
			WHERE published_at IS NULL AND (locked_until IS NULL OR locked_until < now())
			ORDER BY created_at
			LIMIT $1
			FOR UPDATE SKIP LOCKED
		)
		RETURNING id, aggregate_type, aggregate_id, event_type, payload, traceparent, tracestate, created_at`
	var records []Record
	if err := r.db.SelectContext(ctx, &records, query, limit, lease.Seconds()); err != nil {
		return nil, fmt.Errorf("claim outbox events: %w", err)
	}
	return records, nil
}

// MarkPublished stamps the given events as delivered.
func (r *Repository) MarkPublished(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	const query = `UPDATE outbox_events SET published_at = now(), locked_until = NULL WHERE id = ANY($1)`
	if _, err := r.db.ExecContext(ctx, query, pq.Array(ids)); err != nil {
		return fmt.Errorf("mark outbox events published: %w", err)
	}
	return nil
}

// DeletePublishedBefore prunes delivered events older than cutoff.
func (r *Repository) DeletePublishedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	const query = `DELETE FROM outbox_events WHERE published_at IS NOT NULL AND published_at < $1`
	res, err := r.db.ExecContext(ctx, query, cutoff)
	if err != nil {
		return 0, fmt.Errorf("prune outbox events: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}
