package outbox

import (
	"context"
	"fmt"
	"time"

	"github.com/skillswap/sessionengine/internal/shared/apperr"
	"github.com/skillswap/sessionengine/internal/shared/infrastructure/database"
)

// GenericRepository implements Repository on the driver-agnostic
// database.Connection abstraction, so it participates in
// database.GenericUnitOfWork's transaction context: SaveBatch staged
// inside an orchestrator command commits or rolls back with the
// aggregate write it accompanies.
type GenericRepository struct {
	conn database.Connection
}

// NewGenericRepository constructs a GenericRepository.
func NewGenericRepository(conn database.Connection) *GenericRepository {
	return &GenericRepository{conn: conn}
}

const messageColumns = `
	id, event_id, aggregate_type, aggregate_id, event_type, routing_key,
	payload, metadata, created_at, published_at, next_retry_at, retry_count,
	last_error, dead_lettered_at, dead_letter_reason
`

// Save stores a new outbox message.
func (r *GenericRepository) Save(ctx context.Context, msg *Message) error {
	return r.saveBatch(ctx, database.ExecutorFromContext(ctx, r.conn), []*Message{msg})
}

// SaveBatch stores multiple outbox messages. When called within a
// transaction opened by the orchestrator's UnitOfWork, it executes on that
// same transaction, so the outbox insert and the aggregate write it
// accompanies commit or roll back together.
func (r *GenericRepository) SaveBatch(ctx context.Context, msgs []*Message) error {
	if len(msgs) == 0 {
		return nil
	}
	return r.saveBatch(ctx, database.ExecutorFromContext(ctx, r.conn), msgs)
}

func (r *GenericRepository) saveBatch(ctx context.Context, exec database.Executor, msgs []*Message) error {
	d := r.conn.Driver()
	query := fmt.Sprintf(`
		INSERT INTO outbox (
			event_id, aggregate_type, aggregate_id, event_type, routing_key,
			payload, metadata, created_at, next_retry_at, dead_lettered_at, dead_letter_reason
		) VALUES (%s)
	`, database.ValuesClause(d, 11))
	queryReturningID := query + " RETURNING id"

	for _, msg := range msgs {
		row := exec.QueryRow(ctx, queryReturningID,
			msg.EventID, msg.AggregateType, msg.AggregateID, msg.EventType, msg.RoutingKey,
			msg.Payload, msg.Metadata, msg.CreatedAt, msg.NextRetryAt, msg.DeadLetteredAt, msg.DeadLetterReason,
		)
		if err := row.Scan(&msg.ID); err != nil {
			return apperr.Wrap(apperr.KindTransient, "failed to save outbox message", err)
		}
	}
	return nil
}

// GetUnpublished retrieves unpublished messages ordered by creation time.
func (r *GenericRepository) GetUnpublished(ctx context.Context, limit int) ([]*Message, error) {
	d := r.conn.Driver()
	query := fmt.Sprintf(`
		SELECT %s FROM outbox
		WHERE published_at IS NULL
		  AND dead_lettered_at IS NULL
		  AND (next_retry_at IS NULL OR next_retry_at <= %s)
		ORDER BY created_at
		LIMIT %s
	`, messageColumns, nowExpr(d), database.Placeholder(d, 1))

	exec := database.ExecutorFromContext(ctx, r.conn)
	rows, err := exec.Query(ctx, query, limit)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindTransient, "failed to query unpublished outbox messages", err)
	}
	defer rows.Close()
	return scanMessages(rows)
}

// MarkPublished marks a message as successfully published.
func (r *GenericRepository) MarkPublished(ctx context.Context, id int64) error {
	d := r.conn.Driver()
	query := fmt.Sprintf(`UPDATE outbox SET published_at = %s, dead_lettered_at = NULL WHERE id = %s`,
		nowExpr(d), database.Placeholder(d, 1))
	exec := database.ExecutorFromContext(ctx, r.conn)
	_, err := exec.Exec(ctx, query, id)
	if err != nil {
		return apperr.Wrap(apperr.KindTransient, "failed to mark outbox message published", err)
	}
	return nil
}

// MarkFailed records a publish failure with error message.
func (r *GenericRepository) MarkFailed(ctx context.Context, id int64, errMsg string, nextRetryAt time.Time) error {
	d := r.conn.Driver()
	query := fmt.Sprintf(`
		UPDATE outbox
		SET retry_count = retry_count + 1, last_error = %s, next_retry_at = %s
		WHERE id = %s
	`, database.Placeholder(d, 1), database.Placeholder(d, 2), database.Placeholder(d, 3))
	exec := database.ExecutorFromContext(ctx, r.conn)
	_, err := exec.Exec(ctx, query, errMsg, nextRetryAt, id)
	if err != nil {
		return apperr.Wrap(apperr.KindTransient, "failed to mark outbox message failed", err)
	}
	return nil
}

// MarkDead marks a message as dead-lettered.
func (r *GenericRepository) MarkDead(ctx context.Context, id int64, reason string) error {
	d := r.conn.Driver()
	query := fmt.Sprintf(`
		UPDATE outbox SET dead_lettered_at = %s, dead_letter_reason = %s WHERE id = %s
	`, nowExpr(d), database.Placeholder(d, 1), database.Placeholder(d, 2))
	exec := database.ExecutorFromContext(ctx, r.conn)
	_, err := exec.Exec(ctx, query, reason, id)
	if err != nil {
		return apperr.Wrap(apperr.KindTransient, "failed to mark outbox message dead", err)
	}
	return nil
}

// GetFailed retrieves failed messages eligible for retry.
func (r *GenericRepository) GetFailed(ctx context.Context, maxRetries, limit int) ([]*Message, error) {
	d := r.conn.Driver()
	query := fmt.Sprintf(`
		SELECT %s FROM outbox
		WHERE published_at IS NULL
		  AND dead_lettered_at IS NULL
		  AND retry_count > 0
		  AND retry_count < %s
		  AND (next_retry_at IS NULL OR next_retry_at <= %s)
		ORDER BY created_at
		LIMIT %s
	`, messageColumns, database.Placeholder(d, 1), nowExpr(d), database.Placeholder(d, 2))

	exec := database.ExecutorFromContext(ctx, r.conn)
	rows, err := exec.Query(ctx, query, maxRetries, limit)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindTransient, "failed to query failed outbox messages", err)
	}
	defer rows.Close()
	return scanMessages(rows)
}

// DeleteOld removes successfully published messages older than the
// retention period.
func (r *GenericRepository) DeleteOld(ctx context.Context, olderThanDays int) (int64, error) {
	d := r.conn.Driver()
	var query string
	if d == database.DriverPostgres {
		query = `DELETE FROM outbox WHERE published_at IS NOT NULL AND published_at < NOW() - INTERVAL '1 day' * $1`
	} else {
		query = `DELETE FROM outbox WHERE published_at IS NOT NULL AND published_at < datetime('now', '-' || ? || ' days')`
	}
	exec := database.ExecutorFromContext(ctx, r.conn)
	res, err := exec.Exec(ctx, query, olderThanDays)
	if err != nil {
		return 0, apperr.Wrap(apperr.KindTransient, "failed to delete old outbox messages", err)
	}
	return res.RowsAffected()
}

func nowExpr(d database.Driver) string {
	if d == database.DriverPostgres {
		return "NOW()"
	}
	return "datetime('now')"
}

func scanMessages(rows database.Rows) ([]*Message, error) {
	var messages []*Message
	for rows.Next() {
		var msg Message
		err := rows.Scan(
			&msg.ID, &msg.EventID, &msg.AggregateType, &msg.AggregateID, &msg.EventType, &msg.RoutingKey,
			&msg.Payload, &msg.Metadata, &msg.CreatedAt, &msg.PublishedAt, &msg.NextRetryAt, &msg.RetryCount,
			&msg.LastError, &msg.DeadLetteredAt, &msg.DeadLetterReason,
		)
		if err != nil {
			return nil, apperr.Wrap(apperr.KindTransient, "failed to scan outbox message", err)
		}
		messages = append(messages, &msg)
	}
	return messages, rows.Err()
}
