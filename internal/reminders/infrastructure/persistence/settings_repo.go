// Package persistence implements the reminders bounded context's
// repositories on the driver-agnostic database.Connection abstraction.
package persistence

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	domain "github.com/skillswap/sessionengine/internal/reminders/domain"
	"github.com/skillswap/sessionengine/internal/shared/apperr"
	"github.com/skillswap/sessionengine/internal/shared/infrastructure/database"
)

// ReminderSettingsRepository persists ReminderSettings aggregates.
type ReminderSettingsRepository struct {
	conn database.Connection
}

// NewReminderSettingsRepository constructs a ReminderSettingsRepository.
func NewReminderSettingsRepository(conn database.Connection) *ReminderSettingsRepository {
	return &ReminderSettingsRepository{conn: conn}
}

// Save upserts ReminderSettings keyed by userID (one row per user).
func (r *ReminderSettingsRepository) Save(ctx context.Context, s *domain.ReminderSettings) error {
	minutesJSON, err := json.Marshal(s.MinutesBefore())
	if err != nil {
		return apperr.Wrap(apperr.KindFatal, "failed to marshal minutesBefore", err)
	}

	query := fmt.Sprintf(`
		INSERT INTO reminder_settings (
			id, user_id, minutes_before, email_enabled, push_enabled, sms_enabled,
			created_at, updated_at
		) VALUES (%s)
		ON CONFLICT (user_id) DO UPDATE SET
			minutes_before = EXCLUDED.minutes_before,
			email_enabled = EXCLUDED.email_enabled,
			push_enabled = EXCLUDED.push_enabled,
			sms_enabled = EXCLUDED.sms_enabled,
			updated_at = EXCLUDED.updated_at
	`, database.ValuesClause(r.conn.Driver(), 8))

	exec := database.ExecutorFromContext(ctx, r.conn)
	_, err = exec.Exec(ctx, query,
		s.ID(), s.UserID(), string(minutesJSON), s.EmailEnabled(), s.PushEnabled(), s.SMSEnabled(),
		s.CreatedAt(), time.Now().UTC(),
	)
	if err != nil {
		return apperr.Wrap(apperr.KindTransient, "failed to save reminder settings", err)
	}
	return nil
}

// FindByUserID returns a user's ReminderSettings, or NotFound if they have
// never configured any (the orchestrator then schedules no reminders for
// that user).
func (r *ReminderSettingsRepository) FindByUserID(ctx context.Context, userID uuid.UUID) (*domain.ReminderSettings, error) {
	p := database.Placeholder(r.conn.Driver(), 1)
	query := fmt.Sprintf(`
		SELECT id, user_id, minutes_before, email_enabled, push_enabled, sms_enabled,
		       created_at, updated_at
		FROM reminder_settings
		WHERE user_id = %s
	`, p)

	exec := database.ExecutorFromContext(ctx, r.conn)
	row := exec.QueryRow(ctx, query, userID)

	var (
		id, uid                         uuid.UUID
		minutesJSON                     string
		email, push, sms                bool
		createdAt, updatedAt            time.Time
	)
	if err := row.Scan(&id, &uid, &minutesJSON, &email, &push, &sms, &createdAt, &updatedAt); err != nil {
		if database.IsNoRows(err) {
			return nil, apperr.NotFound("reminder settings not found")
		}
		return nil, apperr.Wrap(apperr.KindTransient, "failed to scan reminder settings", err)
	}

	var minutesBefore []int
	if err := json.Unmarshal([]byte(minutesJSON), &minutesBefore); err != nil {
		return nil, apperr.Wrap(apperr.KindFatal, "failed to unmarshal minutesBefore", err)
	}

	return domain.RehydrateReminderSettings(id, uid, minutesBefore, email, push, sms, createdAt, updatedAt, 0), nil
}
