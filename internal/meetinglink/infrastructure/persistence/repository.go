// Package persistence implements the meeting-link bounded context's
// repository on the driver-agnostic database.Connection abstraction.
package persistence

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	domain "github.com/skillswap/sessionengine/internal/meetinglink/domain"
	"github.com/skillswap/sessionengine/internal/shared/apperr"
	"github.com/skillswap/sessionengine/internal/shared/infrastructure/database"
)

// Repository persists PendingLink rows.
type Repository struct {
	conn database.Connection
}

// NewRepository constructs a meeting-link Repository.
func NewRepository(conn database.Connection) *Repository {
	return &Repository{conn: conn}
}

// Save upserts a PendingLink by id.
func (r *Repository) Save(ctx context.Context, link *domain.PendingLink) error {
	query := fmt.Sprintf(`
		INSERT INTO pending_links (
			id, appointment_id, status, attempts, next_attempt_at, last_error,
			created_at, updated_at
		) VALUES (%s)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			attempts = EXCLUDED.attempts,
			next_attempt_at = EXCLUDED.next_attempt_at,
			last_error = EXCLUDED.last_error,
			updated_at = EXCLUDED.updated_at
	`, database.ValuesClause(r.conn.Driver(), 8))

	exec := database.ExecutorFromContext(ctx, r.conn)
	_, err := exec.Exec(ctx, query,
		link.ID(), link.AppointmentID(), string(link.Status()), link.Attempts(), link.NextAttemptAt(), link.LastError(),
		time.Now().UTC(), time.Now().UTC(),
	)
	if err != nil {
		return apperr.Wrap(apperr.KindTransient, "failed to save pending link", err)
	}
	return nil
}

const pendingLinkColumns = `
	id, appointment_id, status, attempts, next_attempt_at, last_error, created_at, updated_at
`

// ClaimDue returns up to limit Queued rows with nextAttemptAt <= asOf,
// ordered by nextAttemptAt ascending. Unlike ScheduledReminder.ClaimDue,
// this read does not flip a status column: the RetryWorker runs as a
// single active instance per deployment, so a plain select is sufficient
// and avoids an extra round trip per batch.
func (r *Repository) ClaimDue(ctx context.Context, asOf time.Time, limit int) ([]*domain.PendingLink, error) {
	d := r.conn.Driver()
	query := fmt.Sprintf(`
		SELECT %s FROM pending_links
		WHERE status = 'Queued' AND next_attempt_at <= %s
		ORDER BY next_attempt_at ASC
		LIMIT %s
	`, pendingLinkColumns, database.Placeholder(d, 1), database.Placeholder(d, 2))

	exec := database.ExecutorFromContext(ctx, r.conn)
	rows, err := exec.Query(ctx, query, asOf, limit)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindTransient, "failed to query due pending links", err)
	}
	defer rows.Close()

	var out []*domain.PendingLink
	for rows.Next() {
		link, err := scanPendingLink(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, link)
	}
	return out, rows.Err()
}

// FindByAppointmentID returns the PendingLink for an appointment, if any.
func (r *Repository) FindByAppointmentID(ctx context.Context, appointmentID uuid.UUID) (*domain.PendingLink, error) {
	p := database.Placeholder(r.conn.Driver(), 1)
	query := "SELECT " + pendingLinkColumns + " FROM pending_links WHERE appointment_id = " + p
	exec := database.ExecutorFromContext(ctx, r.conn)
	return scanPendingLink(exec.QueryRow(ctx, query, appointmentID))
}

func scanPendingLink(row database.Row) (*domain.PendingLink, error) {
	var (
		id, appointmentID     uuid.UUID
		status                string
		attempts              int
		nextAttemptAt         time.Time
		lastError             string
		createdAt, updatedAt  time.Time
	)
	err := row.Scan(&id, &appointmentID, &status, &attempts, &nextAttemptAt, &lastError, &createdAt, &updatedAt)
	if err != nil {
		if database.IsNoRows(err) {
			return nil, apperr.NotFound("pending link not found")
		}
		return nil, apperr.Wrap(apperr.KindTransient, "failed to scan pending link", err)
	}
	return domain.RehydratePendingLink(id, appointmentID, domain.PendingLinkStatus(status), attempts, nextAttemptAt, lastError, createdAt, updatedAt), nil
}
