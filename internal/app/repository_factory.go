package app

import (
	calendarDomain "github.com/skillswap/sessionengine/internal/calendar/domain"
	calendarPersistence "github.com/skillswap/sessionengine/internal/calendar/infrastructure/persistence"
	meetinglinkDomain "github.com/skillswap/sessionengine/internal/meetinglink/domain"
	meetinglinkPersistence "github.com/skillswap/sessionengine/internal/meetinglink/infrastructure/persistence"
	remindersDomain "github.com/skillswap/sessionengine/internal/reminders/domain"
	remindersPersistence "github.com/skillswap/sessionengine/internal/reminders/infrastructure/persistence"
	sessionsDomain "github.com/skillswap/sessionengine/internal/sessions/domain"
	sessionsPersistence "github.com/skillswap/sessionengine/internal/sessions/infrastructure/persistence"
	"github.com/skillswap/sessionengine/internal/shared/infrastructure/database"
	"github.com/skillswap/sessionengine/internal/shared/infrastructure/idempotency"
	"github.com/skillswap/sessionengine/internal/shared/infrastructure/outbox"
)

// RepositoryFactory builds every bounded context's repository against one
// driver-agnostic database.Connection. Unlike the teacher's factory, it
// needs no per-driver branching: every repository in this module is written
// directly against database.Connection, not a raw *pgxpool.Pool/*sql.DB, so
// the same repository value serves both Postgres and SQLite.
type RepositoryFactory struct {
	conn database.Connection
}

// NewRepositoryFactory creates a new repository factory.
func NewRepositoryFactory(conn database.Connection) *RepositoryFactory {
	return &RepositoryFactory{conn: conn}
}

// ConnectionRepository builds the sessions bounded context's Connection repository.
func (f *RepositoryFactory) ConnectionRepository() sessionsDomain.ConnectionRepository {
	return sessionsPersistence.NewConnectionRepository(f.conn)
}

// SessionSeriesRepository builds the sessions bounded context's SessionSeries repository.
func (f *RepositoryFactory) SessionSeriesRepository() sessionsDomain.SessionSeriesRepository {
	return sessionsPersistence.NewSessionSeriesRepository(f.conn)
}

// AppointmentRepository builds the sessions bounded context's SessionAppointment repository.
func (f *RepositoryFactory) AppointmentRepository() sessionsDomain.AppointmentRepository {
	return sessionsPersistence.NewAppointmentRepository(f.conn)
}

// ReminderSettingsRepository builds the reminders bounded context's settings repository.
func (f *RepositoryFactory) ReminderSettingsRepository() remindersDomain.ReminderSettingsRepository {
	return remindersPersistence.NewReminderSettingsRepository(f.conn)
}

// ScheduledReminderRepository builds the reminders bounded context's scheduled reminder repository.
func (f *RepositoryFactory) ScheduledReminderRepository() remindersDomain.ScheduledReminderRepository {
	return remindersPersistence.NewScheduledReminderRepository(f.conn)
}

// CalendarIntegrationRepository builds the calendar bounded context's repository.
func (f *RepositoryFactory) CalendarIntegrationRepository() calendarDomain.Repository {
	return calendarPersistence.NewRepository(f.conn)
}

// MeetingLinkRepository builds the meeting-link bounded context's PendingLink repository.
func (f *RepositoryFactory) MeetingLinkRepository() meetinglinkDomain.Repository {
	return meetinglinkPersistence.NewRepository(f.conn)
}

// OutboxRepository builds the shared transactional outbox repository.
func (f *RepositoryFactory) OutboxRepository() outbox.Repository {
	return outbox.NewGenericRepository(f.conn)
}

// IdempotencyStore builds the shared idempotency-key store.
func (f *RepositoryFactory) IdempotencyStore() *idempotency.Store {
	return idempotency.NewStore(f.conn)
}

// Driver returns the database driver type.
func (f *RepositoryFactory) Driver() database.Driver {
	return f.conn.Driver()
}

// Connection returns the underlying database connection.
func (f *RepositoryFactory) Connection() database.Connection {
	return f.conn
}
