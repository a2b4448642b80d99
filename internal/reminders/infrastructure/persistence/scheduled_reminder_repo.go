package persistence

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	domain "github.com/skillswap/sessionengine/internal/reminders/domain"
	"github.com/skillswap/sessionengine/internal/shared/apperr"
	"github.com/skillswap/sessionengine/internal/shared/infrastructure/database"
)

// ScheduledReminderRepository persists ScheduledReminder aggregates.
type ScheduledReminderRepository struct {
	conn database.Connection
}

// NewScheduledReminderRepository constructs a ScheduledReminderRepository.
func NewScheduledReminderRepository(conn database.Connection) *ScheduledReminderRepository {
	return &ScheduledReminderRepository{conn: conn}
}

// Save upserts a ScheduledReminder by id.
func (r *ScheduledReminderRepository) Save(ctx context.Context, rem *domain.ScheduledReminder) error {
	snap := rem.Snapshot()
	query := fmt.Sprintf(`
		INSERT INTO scheduled_reminders (
			id, appointment_id, user_id, reminder_type, minutes_before, scheduled_for,
			status, partner_name, skill_name, appointment_time, meeting_link,
			sent_at, error_message, claimed_by, created_at, updated_at
		) VALUES (%s)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			sent_at = EXCLUDED.sent_at,
			error_message = EXCLUDED.error_message,
			claimed_by = EXCLUDED.claimed_by,
			updated_at = EXCLUDED.updated_at
	`, database.ValuesClause(r.conn.Driver(), 16))

	exec := database.ExecutorFromContext(ctx, r.conn)
	_, err := exec.Exec(ctx, query,
		rem.ID(), rem.AppointmentID(), rem.UserID(), string(rem.ReminderType()), rem.MinutesBefore(), rem.ScheduledFor(),
		string(rem.Status()), snap.PartnerName, snap.SkillName, snap.AppointmentTime, snap.MeetingLink,
		rem.SentAt(), rem.ErrorMessage(), rem.ClaimedBy(), rem.CreatedAt(), time.Now().UTC(),
	)
	if err != nil {
		return apperr.Wrap(apperr.KindTransient, "failed to save scheduled reminder", err)
	}
	return nil
}

const reminderColumns = `
	id, appointment_id, user_id, reminder_type, minutes_before, scheduled_for,
	status, partner_name, skill_name, appointment_time, meeting_link,
	sent_at, error_message, claimed_by, created_at, updated_at
`

// FindByID returns the ScheduledReminder by id.
func (r *ScheduledReminderRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.ScheduledReminder, error) {
	p := database.Placeholder(r.conn.Driver(), 1)
	query := "SELECT " + reminderColumns + " FROM scheduled_reminders WHERE id = " + p
	exec := database.ExecutorFromContext(ctx, r.conn)
	row := exec.QueryRow(ctx, query, id)
	return scanReminder(row)
}

// FindByAppointmentID returns every ScheduledReminder for an appointment.
func (r *ScheduledReminderRepository) FindByAppointmentID(ctx context.Context, appointmentID uuid.UUID) ([]*domain.ScheduledReminder, error) {
	p := database.Placeholder(r.conn.Driver(), 1)
	query := "SELECT " + reminderColumns + " FROM scheduled_reminders WHERE appointment_id = " + p
	exec := database.ExecutorFromContext(ctx, r.conn)
	rows, err := exec.Query(ctx, query, appointmentID)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindTransient, "failed to query scheduled reminders", err)
	}
	defer rows.Close()

	var out []*domain.ScheduledReminder
	for rows.Next() {
		rem, err := scanReminder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rem)
	}
	return out, rows.Err()
}

// ClaimDue atomically transitions up to limit due Pending rows to
// Dispatching. Each candidate is claimed with a conditional
// "WHERE status = 'Pending'" update so concurrent workers never double-claim
// the same row; only rows whose update actually matched are returned.
func (r *ScheduledReminderRepository) ClaimDue(ctx context.Context, asOf time.Time, limit int, workerID string) ([]*domain.ScheduledReminder, error) {
	d := r.conn.Driver()
	exec := database.ExecutorFromContext(ctx, r.conn)

	selectQuery := fmt.Sprintf(`
		SELECT id FROM scheduled_reminders
		WHERE status = 'Pending' AND scheduled_for <= %s
		ORDER BY scheduled_for ASC
		LIMIT %s
	`, database.Placeholder(d, 1), database.Placeholder(d, 2))

	rows, err := exec.Query(ctx, selectQuery, asOf, limit)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindTransient, "failed to select due reminders", err)
	}
	var candidateIDs []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, apperr.Wrap(apperr.KindTransient, "failed to scan due reminder id", err)
		}
		candidateIDs = append(candidateIDs, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, apperr.Wrap(apperr.KindTransient, "failed to iterate due reminders", err)
	}

	updateQuery := fmt.Sprintf(`
		UPDATE scheduled_reminders
		SET status = 'Dispatching', claimed_by = %s, updated_at = %s
		WHERE id = %s AND status = 'Pending'
	`, database.Placeholder(d, 1), database.Placeholder(d, 2), database.Placeholder(d, 3))

	var claimed []*domain.ScheduledReminder
	now := time.Now().UTC()
	for _, id := range candidateIDs {
		res, err := exec.Exec(ctx, updateQuery, workerID, now, id)
		if err != nil {
			return nil, apperr.Wrap(apperr.KindTransient, "failed to claim reminder", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return nil, apperr.Wrap(apperr.KindTransient, "failed to read claim result", err)
		}
		if n == 0 {
			continue
		}
		rem, err := r.FindByID(ctx, id)
		if err != nil {
			return nil, err
		}
		claimed = append(claimed, rem)
	}
	return claimed, nil
}

// CountDue reports how many Pending rows are due as of asOf.
func (r *ScheduledReminderRepository) CountDue(ctx context.Context, asOf time.Time) (int, error) {
	p := database.Placeholder(r.conn.Driver(), 1)
	query := "SELECT COUNT(*) FROM scheduled_reminders WHERE status = 'Pending' AND scheduled_for <= " + p
	exec := database.ExecutorFromContext(ctx, r.conn)
	var count int
	if err := exec.QueryRow(ctx, query, asOf).Scan(&count); err != nil {
		return 0, apperr.Wrap(apperr.KindTransient, "failed to count due reminders", err)
	}
	return count, nil
}

func scanReminder(row database.Row) (*domain.ScheduledReminder, error) {
	var (
		id, appointmentID, userID uuid.UUID
		reminderType              string
		minutesBefore             int
		scheduledFor              time.Time
		status                    string
		partnerName, skillName    string
		appointmentTime           time.Time
		meetingLink               string
		sentAt                    *time.Time
		errorMessage, claimedBy   string
		createdAt, updatedAt      time.Time
	)
	err := row.Scan(
		&id, &appointmentID, &userID, &reminderType, &minutesBefore, &scheduledFor,
		&status, &partnerName, &skillName, &appointmentTime, &meetingLink,
		&sentAt, &errorMessage, &claimedBy, &createdAt, &updatedAt,
	)
	if err != nil {
		if database.IsNoRows(err) {
			return nil, apperr.NotFound("scheduled reminder not found")
		}
		return nil, apperr.Wrap(apperr.KindTransient, "failed to scan scheduled reminder", err)
	}
	return domain.RehydrateScheduledReminder(
		id, appointmentID, userID, domain.ReminderType(reminderType), minutesBefore, scheduledFor,
		domain.ReminderStatus(status),
		domain.Snapshot{PartnerName: partnerName, SkillName: skillName, AppointmentTime: appointmentTime, MeetingLink: meetingLink},
		sentAt, errorMessage, claimedBy, createdAt, updatedAt, 0,
	), nil
}
