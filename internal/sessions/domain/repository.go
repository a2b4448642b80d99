package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ConnectionRepository persists Connections. FindByID applies the implicit
// soft-delete predicate; FindByIDWithDeleted does not, for audit reads.
type ConnectionRepository interface {
	Save(ctx context.Context, c *Connection) error
	FindByID(ctx context.Context, id uuid.UUID) (*Connection, error)
	FindByIDWithDeleted(ctx context.Context, id uuid.UUID) (*Connection, error)
	FindByMatchRequestID(ctx context.Context, matchRequestID string) (*Connection, error)
}

// SessionSeriesRepository persists SessionSeries, owned by a Connection.
type SessionSeriesRepository interface {
	Save(ctx context.Context, s *SessionSeries) error
	FindByID(ctx context.Context, id uuid.UUID) (*SessionSeries, error)
	FindByConnectionID(ctx context.Context, connectionID uuid.UUID) ([]*SessionSeries, error)
}

// AppointmentRepository persists SessionAppointments, owned by a SessionSeries.
type AppointmentRepository interface {
	Save(ctx context.Context, a *SessionAppointment) error
	FindByID(ctx context.Context, id uuid.UUID) (*SessionAppointment, error)
	FindBySeriesID(ctx context.Context, seriesID uuid.UUID) ([]*SessionAppointment, error)
	MaxSessionNumber(ctx context.Context, seriesID uuid.UUID) (int, error)
	// FindBusyIntervals returns [start,end) windows already occupied by
	// non-cancelled appointments for userID within [from, to).
	FindBusyIntervals(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]BusyInterval, error)
}

// BusyInterval is a half-open [Start, End) unavailable window.
type BusyInterval struct {
	Start time.Time
	End   time.Time
}
