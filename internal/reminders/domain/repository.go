package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ReminderSettingsRepository persists per-user ReminderSettings.
type ReminderSettingsRepository interface {
	Save(ctx context.Context, s *ReminderSettings) error
	FindByUserID(ctx context.Context, userID uuid.UUID) (*ReminderSettings, error)
}

// ScheduledReminderRepository persists ScheduledReminders.
type ScheduledReminderRepository interface {
	Save(ctx context.Context, r *ScheduledReminder) error
	FindByID(ctx context.Context, id uuid.UUID) (*ScheduledReminder, error)
	FindByAppointmentID(ctx context.Context, appointmentID uuid.UUID) ([]*ScheduledReminder, error)
	// ClaimDue atomically transitions up to limit Pending rows with
	// scheduledFor <= asOf (ordered by scheduledFor ascending) to
	// Dispatching, tagging them with workerID, and returns the claimed rows.
	// The claim itself is the idempotence gate: only rows still Pending at
	// update time are returned.
	ClaimDue(ctx context.Context, asOf time.Time, limit int, workerID string) ([]*ScheduledReminder, error)
	// CountDue reports how many Pending rows are due as of asOf, used for
	// the processor's backlog-batching decision.
	CountDue(ctx context.Context, asOf time.Time) (int, error)
}
