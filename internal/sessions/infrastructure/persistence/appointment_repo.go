package persistence

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	domain "github.com/skillswap/sessionengine/internal/sessions/domain"
	"github.com/skillswap/sessionengine/internal/shared/apperr"
	"github.com/skillswap/sessionengine/internal/shared/infrastructure/database"
)

// AppointmentRepository persists SessionAppointment aggregates.
type AppointmentRepository struct {
	conn database.Connection
}

// NewAppointmentRepository constructs an AppointmentRepository.
func NewAppointmentRepository(conn database.Connection) *AppointmentRepository {
	return &AppointmentRepository{conn: conn}
}

// Save upserts a SessionAppointment by id.
func (r *AppointmentRepository) Save(ctx context.Context, a *domain.SessionAppointment) error {
	noShow, err := json.Marshal(a.NoShowUserIDs())
	if err != nil {
		return apperr.Wrap(apperr.KindFatal, "failed to marshal no-show users", err)
	}

	query := fmt.Sprintf(`
		INSERT INTO session_appointments (
			id, session_series_id, session_number, title, scheduled_date,
			duration_minutes, organizer_user_id, participant_user_id, meeting_link,
			status, prior_status, cancelled_by, cancel_reason,
			reschedule_requested_by, proposed_date, proposed_duration, reschedule_reason,
			no_show_user_ids, is_auto_created, is_late_cancellation,
			is_deleted, deleted_at, created_at, updated_at
		) VALUES (%s)
		ON CONFLICT (id) DO UPDATE SET
			scheduled_date = EXCLUDED.scheduled_date,
			duration_minutes = EXCLUDED.duration_minutes,
			meeting_link = EXCLUDED.meeting_link,
			status = EXCLUDED.status,
			prior_status = EXCLUDED.prior_status,
			cancelled_by = EXCLUDED.cancelled_by,
			cancel_reason = EXCLUDED.cancel_reason,
			reschedule_requested_by = EXCLUDED.reschedule_requested_by,
			proposed_date = EXCLUDED.proposed_date,
			proposed_duration = EXCLUDED.proposed_duration,
			reschedule_reason = EXCLUDED.reschedule_reason,
			no_show_user_ids = EXCLUDED.no_show_user_ids,
			is_late_cancellation = EXCLUDED.is_late_cancellation,
			is_deleted = EXCLUDED.is_deleted,
			deleted_at = EXCLUDED.deleted_at,
			updated_at = EXCLUDED.updated_at
	`, database.ValuesClause(r.conn.Driver(), 24))

	exec := database.ExecutorFromContext(ctx, r.conn)
	_, err = exec.Exec(ctx, query,
		a.ID(), a.SessionSeriesID(), a.SessionNumber(), a.Title(), a.ScheduledDate(),
		a.DurationMinutes(), a.OrganizerUserID(), a.ParticipantUserID(), a.MeetingLink(),
		string(a.Status()), string(a.PriorStatus()), a.CancelledBy(), a.CancelReason(),
		a.RescheduleRequestedBy(), a.ProposedDate(), a.ProposedDuration(), a.RescheduleReason(),
		string(noShow), a.IsAutoCreated(), a.IsLateCancellation(),
		a.IsDeleted(), (*time.Time)(nil), a.CreatedAt(), time.Now().UTC(),
	)
	if err != nil {
		return apperr.Wrap(apperr.KindTransient, "failed to save appointment", err)
	}
	return nil
}

const appointmentColumns = `
	id, session_series_id, session_number, title, scheduled_date,
	duration_minutes, organizer_user_id, participant_user_id, meeting_link,
	status, prior_status, cancelled_by, cancel_reason,
	reschedule_requested_by, proposed_date, proposed_duration, reschedule_reason,
	no_show_user_ids, is_auto_created, is_late_cancellation,
	is_deleted, deleted_at, created_at, updated_at
`

// FindByID returns the SessionAppointment by id.
func (r *AppointmentRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.SessionAppointment, error) {
	p := database.Placeholder(r.conn.Driver(), 1)
	query := "SELECT " + appointmentColumns + " FROM session_appointments WHERE id = " + p
	exec := database.ExecutorFromContext(ctx, r.conn)
	row := exec.QueryRow(ctx, query, id)
	return scanAppointment(row)
}

// FindBySeriesID returns every SessionAppointment owned by a SessionSeries.
func (r *AppointmentRepository) FindBySeriesID(ctx context.Context, seriesID uuid.UUID) ([]*domain.SessionAppointment, error) {
	p := database.Placeholder(r.conn.Driver(), 1)
	query := "SELECT " + appointmentColumns + " FROM session_appointments WHERE session_series_id = " + p + " ORDER BY session_number ASC"
	exec := database.ExecutorFromContext(ctx, r.conn)
	rows, err := exec.Query(ctx, query, seriesID)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindTransient, "failed to query appointments", err)
	}
	defer rows.Close()

	var out []*domain.SessionAppointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// MaxSessionNumber returns the highest sessionNumber recorded for a series,
// or 0 when none exist.
func (r *AppointmentRepository) MaxSessionNumber(ctx context.Context, seriesID uuid.UUID) (int, error) {
	p := database.Placeholder(r.conn.Driver(), 1)
	query := "SELECT COALESCE(MAX(session_number), 0) FROM session_appointments WHERE session_series_id = " + p
	exec := database.ExecutorFromContext(ctx, r.conn)
	var max int
	if err := exec.QueryRow(ctx, query, seriesID).Scan(&max); err != nil {
		return 0, apperr.Wrap(apperr.KindTransient, "failed to read max session number", err)
	}
	return max, nil
}

// FindBusyIntervals returns the [scheduledDate, endTime) window of every
// non-cancelled, non-no-show, non-deleted appointment for userID whose
// scheduledDate falls in [from, to); an appointment that starts before from
// is not returned even if it runs into the range.
func (r *AppointmentRepository) FindBusyIntervals(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]domain.BusyInterval, error) {
	d := r.conn.Driver()
	p1, p3, p4 := database.Placeholder(d, 1), database.Placeholder(d, 3), database.Placeholder(d, 4)
	query := fmt.Sprintf(`
		SELECT scheduled_date, duration_minutes
		FROM session_appointments
		WHERE (organizer_user_id = %s OR participant_user_id = %s)
		  AND status NOT IN ('Cancelled', 'NoShow')
		  AND is_deleted = false
		  AND scheduled_date < %s
		  AND scheduled_date >= %s
	`, p1, p1, p3, p4)

	exec := database.ExecutorFromContext(ctx, r.conn)
	rows, err := exec.Query(ctx, query, userID, userID, to, from)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindTransient, "failed to query busy intervals", err)
	}
	defer rows.Close()

	var out []domain.BusyInterval
	for rows.Next() {
		var scheduledDate time.Time
		var durationMinutes int
		if err := rows.Scan(&scheduledDate, &durationMinutes); err != nil {
			return nil, apperr.Wrap(apperr.KindTransient, "failed to scan busy interval", err)
		}
		out = append(out, domain.BusyInterval{
			Start: scheduledDate,
			End:   scheduledDate.Add(time.Duration(durationMinutes) * time.Minute),
		})
	}
	return out, rows.Err()
}

func scanAppointment(row database.Row) (*domain.SessionAppointment, error) {
	var (
		id, sessionSeriesID                     uuid.UUID
		sessionNumber                            int
		title                                    string
		scheduledDate                            time.Time
		durationMinutes                          int
		organizerUserID, participantUserID       uuid.UUID
		meetingLink                              string
		status, priorStatus                      string
		cancelledBy                              *uuid.UUID
		cancelReason                             string
		rescheduleRequestedBy                    *uuid.UUID
		proposedDate                             *time.Time
		proposedDuration                         *int
		rescheduleReason                         string
		noShowJSON                               string
		isAutoCreated, isLateCancellation, isDeleted bool
		deletedAt                                *time.Time
		createdAt, updatedAt                     time.Time
	)
	err := row.Scan(
		&id, &sessionSeriesID, &sessionNumber, &title, &scheduledDate,
		&durationMinutes, &organizerUserID, &participantUserID, &meetingLink,
		&status, &priorStatus, &cancelledBy, &cancelReason,
		&rescheduleRequestedBy, &proposedDate, &proposedDuration, &rescheduleReason,
		&noShowJSON, &isAutoCreated, &isLateCancellation,
		&isDeleted, &deletedAt, &createdAt, &updatedAt,
	)
	if err != nil {
		if database.IsNoRows(err) {
			return nil, apperr.NotFound("appointment not found")
		}
		return nil, apperr.Wrap(apperr.KindTransient, "failed to scan appointment", err)
	}

	var noShowUserIDs []uuid.UUID
	if noShowJSON != "" {
		if err := json.Unmarshal([]byte(noShowJSON), &noShowUserIDs); err != nil {
			return nil, apperr.Wrap(apperr.KindFatal, "failed to unmarshal no-show users", err)
		}
	}

	return domain.RehydrateAppointment(
		id, sessionSeriesID, sessionNumber, title, scheduledDate, durationMinutes,
		organizerUserID, participantUserID, meetingLink,
		domain.Status(status), domain.Status(priorStatus),
		cancelledBy, cancelReason,
		rescheduleRequestedBy, proposedDate, proposedDuration, rescheduleReason,
		noShowUserIDs, isAutoCreated, isLateCancellation, isDeleted, deletedAt,
		createdAt, updatedAt, 0,
	), nil
}
