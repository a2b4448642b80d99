package domain

import (
	"time"

	sharedDomain "github.com/skillswap/sessionengine/internal/shared/domain"
	"github.com/skillswap/sessionengine/internal/shared/apperr"
	"github.com/google/uuid"
)

// SessionSeries is a stream of teachings of one skill by one party to the
// other inside a Connection. Owned by its parent Connection.
type SessionSeries struct {
	sharedDomain.BaseAggregateRoot

	connectionID           uuid.UUID
	teacherUserID          uuid.UUID
	learnerUserID          uuid.UUID
	skillID                string
	totalSessions          int
	completedSessions      int
	defaultDurationMinutes int
	title                  string
	description            string
	isDeleted              bool
	deletedAt              *time.Time
}

// NewSessionSeriesParams bundles the fields required to materialize a Series.
type NewSessionSeriesParams struct {
	ConnectionID           uuid.UUID
	TeacherUserID          uuid.UUID
	LearnerUserID          uuid.UUID
	SkillID                string
	TotalSessions          int
	DefaultDurationMinutes int
	Title                  string
	Description            string
}

// NewSessionSeries validates and constructs a SessionSeries.
func NewSessionSeries(p NewSessionSeriesParams) (*SessionSeries, error) {
	if p.ConnectionID == uuid.Nil {
		return nil, apperr.InvalidInput("connectionId is required")
	}
	if p.TeacherUserID == uuid.Nil || p.LearnerUserID == uuid.Nil || p.TeacherUserID == p.LearnerUserID {
		return nil, apperr.InvalidInput("teacherUserId and learnerUserId must be distinct and set")
	}
	if p.TotalSessions < 1 {
		return nil, apperr.InvalidInput("totalSessions must be >= 1")
	}
	if p.DefaultDurationMinutes < 15 || p.DefaultDurationMinutes > 480 {
		return nil, apperr.InvalidInput("defaultDurationMinutes must be in [15, 480]")
	}

	return &SessionSeries{
		BaseAggregateRoot:      sharedDomain.NewBaseAggregateRoot(),
		connectionID:           p.ConnectionID,
		teacherUserID:          p.TeacherUserID,
		learnerUserID:          p.LearnerUserID,
		skillID:                p.SkillID,
		totalSessions:          p.TotalSessions,
		defaultDurationMinutes: p.DefaultDurationMinutes,
		title:                  p.Title,
		description:            p.Description,
	}, nil
}

func (s *SessionSeries) ConnectionID() uuid.UUID    { return s.connectionID }
func (s *SessionSeries) TeacherUserID() uuid.UUID   { return s.teacherUserID }
func (s *SessionSeries) LearnerUserID() uuid.UUID   { return s.learnerUserID }
func (s *SessionSeries) SkillID() string            { return s.skillID }
func (s *SessionSeries) TotalSessions() int         { return s.totalSessions }
func (s *SessionSeries) CompletedSessions() int     { return s.completedSessions }
func (s *SessionSeries) DefaultDurationMinutes() int { return s.defaultDurationMinutes }
func (s *SessionSeries) Title() string              { return s.title }
func (s *SessionSeries) Description() string        { return s.description }
func (s *SessionSeries) IsComplete() bool           { return s.completedSessions >= s.totalSessions }
func (s *SessionSeries) IsDeleted() bool            { return s.isDeleted }

// RecordCompletion increments the completed-session counter.
func (s *SessionSeries) RecordCompletion() {
	s.completedSessions++
	s.Touch()
}

// RehydrateSessionSeries reconstructs a SessionSeries from persisted state.
func RehydrateSessionSeries(
	id, connectionID, teacherUserID, learnerUserID uuid.UUID,
	skillID string,
	totalSessions, completedSessions, defaultDurationMinutes int,
	title, description string,
	isDeleted bool,
	deletedAt *time.Time,
	createdAt, updatedAt time.Time,
	version int,
) *SessionSeries {
	baseEntity := sharedDomain.RehydrateBaseEntity(id, createdAt, updatedAt)
	return &SessionSeries{
		BaseAggregateRoot:      sharedDomain.RehydrateBaseAggregateRoot(baseEntity, version),
		connectionID:           connectionID,
		teacherUserID:          teacherUserID,
		learnerUserID:          learnerUserID,
		skillID:                skillID,
		totalSessions:          totalSessions,
		completedSessions:      completedSessions,
		defaultDurationMinutes: defaultDurationMinutes,
		title:                  title,
		description:            description,
		isDeleted:              isDeleted,
		deletedAt:              deletedAt,
	}
}
