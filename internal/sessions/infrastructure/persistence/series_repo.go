package persistence

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	domain "github.com/skillswap/sessionengine/internal/sessions/domain"
	"github.com/skillswap/sessionengine/internal/shared/apperr"
	"github.com/skillswap/sessionengine/internal/shared/infrastructure/database"
)

// SessionSeriesRepository persists SessionSeries aggregates.
type SessionSeriesRepository struct {
	conn database.Connection
}

// NewSessionSeriesRepository constructs a SessionSeriesRepository.
func NewSessionSeriesRepository(conn database.Connection) *SessionSeriesRepository {
	return &SessionSeriesRepository{conn: conn}
}

// Save upserts a SessionSeries by id.
func (r *SessionSeriesRepository) Save(ctx context.Context, s *domain.SessionSeries) error {
	query := fmt.Sprintf(`
		INSERT INTO session_series (
			id, connection_id, teacher_user_id, learner_user_id, skill_id,
			total_sessions, completed_sessions, default_duration_minutes,
			title, description, is_deleted, created_at, updated_at
		) VALUES (%s)
		ON CONFLICT (id) DO UPDATE SET
			completed_sessions = EXCLUDED.completed_sessions,
			is_deleted = EXCLUDED.is_deleted,
			updated_at = EXCLUDED.updated_at
	`, database.ValuesClause(r.conn.Driver(), 13))

	exec := database.ExecutorFromContext(ctx, r.conn)
	_, err := exec.Exec(ctx, query,
		s.ID(), s.ConnectionID(), s.TeacherUserID(), s.LearnerUserID(), s.SkillID(),
		s.TotalSessions(), s.CompletedSessions(), s.DefaultDurationMinutes(),
		s.Title(), s.Description(), s.IsDeleted(), s.CreatedAt(), time.Now().UTC(),
	)
	if err != nil {
		return apperr.Wrap(apperr.KindTransient, "failed to save session series", err)
	}
	return nil
}

// FindByID returns the SessionSeries by id.
func (r *SessionSeriesRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.SessionSeries, error) {
	p := database.Placeholder(r.conn.Driver(), 1)
	query := fmt.Sprintf(`
		SELECT id, connection_id, teacher_user_id, learner_user_id, skill_id,
		       total_sessions, completed_sessions, default_duration_minutes,
		       title, description, is_deleted, created_at, updated_at
		FROM session_series
		WHERE id = %s
	`, p)
	exec := database.ExecutorFromContext(ctx, r.conn)
	row := exec.QueryRow(ctx, query, id)
	return scanSeries(row)
}

// FindByConnectionID returns every SessionSeries owned by a Connection.
func (r *SessionSeriesRepository) FindByConnectionID(ctx context.Context, connectionID uuid.UUID) ([]*domain.SessionSeries, error) {
	p := database.Placeholder(r.conn.Driver(), 1)
	query := fmt.Sprintf(`
		SELECT id, connection_id, teacher_user_id, learner_user_id, skill_id,
		       total_sessions, completed_sessions, default_duration_minutes,
		       title, description, is_deleted, created_at, updated_at
		FROM session_series
		WHERE connection_id = %s
		ORDER BY created_at ASC
	`, p)
	exec := database.ExecutorFromContext(ctx, r.conn)
	rows, err := exec.Query(ctx, query, connectionID)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindTransient, "failed to query session series", err)
	}
	defer rows.Close()

	var out []*domain.SessionSeries
	for rows.Next() {
		s, err := scanSeries(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func scanSeries(row database.Row) (*domain.SessionSeries, error) {
	var (
		id, connectionID, teacherUserID, learnerUserID uuid.UUID
		skillID, title, description                    string
		totalSessions, completedSessions, defaultDurationMinutes int
		isDeleted                                       bool
		createdAt, updatedAt                            time.Time
	)
	err := row.Scan(
		&id, &connectionID, &teacherUserID, &learnerUserID, &skillID,
		&totalSessions, &completedSessions, &defaultDurationMinutes,
		&title, &description, &isDeleted, &createdAt, &updatedAt,
	)
	if err != nil {
		if database.IsNoRows(err) {
			return nil, apperr.NotFound("session series not found")
		}
		return nil, apperr.Wrap(apperr.KindTransient, "failed to scan session series", err)
	}
	return domain.RehydrateSessionSeries(
		id, connectionID, teacherUserID, learnerUserID, skillID,
		totalSessions, completedSessions, defaultDurationMinutes,
		title, description, isDeleted, nil, createdAt, updatedAt, 0,
	), nil
}
