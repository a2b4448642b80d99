package domain

import (
	"time"

	"github.com/google/uuid"
)

// PendingLinkStatus is the retry state of a queued meeting-link generation.
type PendingLinkStatus string

const (
	PendingLinkStatusQueued  PendingLinkStatus = "Queued"
	PendingLinkStatusDone    PendingLinkStatus = "Done"
	PendingLinkStatusFailed  PendingLinkStatus = "Failed"
)

// PendingLink is one appointment waiting for a meeting-link provider call to
// succeed, retried with backoff until it does or is abandoned.
type PendingLink struct {
	id            uuid.UUID
	appointmentID uuid.UUID
	status        PendingLinkStatus
	attempts      int
	nextAttemptAt time.Time
	lastError     string
	createdAt     time.Time
	updatedAt     time.Time
}

// NewPendingLink queues a first attempt for immediate processing.
func NewPendingLink(appointmentID uuid.UUID, now time.Time) *PendingLink {
	return &PendingLink{
		id:            uuid.New(),
		appointmentID: appointmentID,
		status:        PendingLinkStatusQueued,
		attempts:      0,
		nextAttemptAt: now,
		createdAt:     now,
		updatedAt:     now,
	}
}

func (p *PendingLink) ID() uuid.UUID                   { return p.id }
func (p *PendingLink) AppointmentID() uuid.UUID        { return p.appointmentID }
func (p *PendingLink) Status() PendingLinkStatus       { return p.status }
func (p *PendingLink) Attempts() int                   { return p.attempts }
func (p *PendingLink) NextAttemptAt() time.Time        { return p.nextAttemptAt }
func (p *PendingLink) LastError() string               { return p.lastError }

// MarkDone records a successful link generation.
func (p *PendingLink) MarkDone(now time.Time) {
	p.status = PendingLinkStatusDone
	p.updatedAt = now
}

// ScheduleRetry records a failed attempt and sets the next attempt time.
// backoff is computed by the caller (RetryWorker) since it depends on the
// worker's configured base/cap/jitter, not on domain state.
func (p *PendingLink) ScheduleRetry(err error, nextAttemptAt, now time.Time) {
	p.attempts++
	p.lastError = err.Error()
	p.nextAttemptAt = nextAttemptAt
	p.updatedAt = now
}

// MarkFailed abandons retries (e.g. after an unrecoverable provider error).
func (p *PendingLink) MarkFailed(err error, now time.Time) {
	p.status = PendingLinkStatusFailed
	p.lastError = err.Error()
	p.updatedAt = now
}

// RehydratePendingLink reconstructs a PendingLink from persisted state.
func RehydratePendingLink(
	id, appointmentID uuid.UUID,
	status PendingLinkStatus,
	attempts int,
	nextAttemptAt time.Time,
	lastError string,
	createdAt, updatedAt time.Time,
) *PendingLink {
	return &PendingLink{
		id:            id,
		appointmentID: appointmentID,
		status:        status,
		attempts:      attempts,
		nextAttemptAt: nextAttemptAt,
		lastError:     lastError,
		createdAt:     createdAt,
		updatedAt:     updatedAt,
	}
}
