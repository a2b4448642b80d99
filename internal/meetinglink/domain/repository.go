package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository persists PendingLink rows.
type Repository interface {
	Save(ctx context.Context, link *PendingLink) error
	// ClaimDue returns up to limit Queued rows with nextAttemptAt <= asOf,
	// ordered by nextAttemptAt ascending.
	ClaimDue(ctx context.Context, asOf time.Time, limit int) ([]*PendingLink, error)
	FindByAppointmentID(ctx context.Context, appointmentID uuid.UUID) (*PendingLink, error)
}
