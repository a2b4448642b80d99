package domain

import (
	"time"

	sharedDomain "github.com/skillswap/sessionengine/internal/shared/domain"
	"github.com/skillswap/sessionengine/internal/shared/apperr"
	"github.com/google/uuid"
)

// ReminderType is the delivery channel of a ScheduledReminder.
type ReminderType string

const (
	ReminderTypeEmail ReminderType = "Email"
	ReminderTypePush  ReminderType = "Push"
	ReminderTypeSMS   ReminderType = "SMS"
)

// ReminderStatus is the dispatch state of a ScheduledReminder.
type ReminderStatus string

const (
	ReminderStatusPending     ReminderStatus = "Pending"
	ReminderStatusDispatching ReminderStatus = "Dispatching"
	ReminderStatusSent        ReminderStatus = "Sent"
	ReminderStatusFailed      ReminderStatus = "Failed"
	ReminderStatusCancelled   ReminderStatus = "Cancelled"
)

// Snapshot is the denormalized appointment data captured at scheduling time
// so delivery stays stable under later appointment edits. See spec note on
// reminder snapshot vs re-fetch.
type Snapshot struct {
	PartnerName     string
	SkillName       string
	AppointmentTime time.Time
	MeetingLink     string
}

// ScheduledReminder is one time-triggered notification for one appointment
// and one recipient.
type ScheduledReminder struct {
	sharedDomain.BaseAggregateRoot

	appointmentID uuid.UUID
	userID        uuid.UUID
	reminderType  ReminderType
	minutesBefore int
	scheduledFor  time.Time
	status        ReminderStatus
	snapshot      Snapshot
	sentAt        *time.Time
	errorMessage  string
	claimedBy     string
}

// NewScheduledReminderParams bundles the fields required to schedule a reminder.
type NewScheduledReminderParams struct {
	AppointmentID uuid.UUID
	UserID        uuid.UUID
	ReminderType  ReminderType
	MinutesBefore int
	ScheduledFor  time.Time
	Snapshot      Snapshot
}

// NewScheduledReminder constructs a Pending ScheduledReminder.
func NewScheduledReminder(p NewScheduledReminderParams) (*ScheduledReminder, error) {
	if p.AppointmentID == uuid.Nil || p.UserID == uuid.Nil {
		return nil, apperr.InvalidInput("appointmentId and userId are required")
	}
	if p.MinutesBefore <= 0 {
		return nil, apperr.InvalidInput("minutesBefore must be > 0")
	}

	return &ScheduledReminder{
		BaseAggregateRoot: sharedDomain.NewBaseAggregateRoot(),
		appointmentID:     p.AppointmentID,
		userID:            p.UserID,
		reminderType:      p.ReminderType,
		minutesBefore:     p.MinutesBefore,
		scheduledFor:      p.ScheduledFor,
		status:            ReminderStatusPending,
		snapshot:          p.Snapshot,
	}, nil
}

func (r *ScheduledReminder) AppointmentID() uuid.UUID { return r.appointmentID }
func (r *ScheduledReminder) UserID() uuid.UUID        { return r.userID }
func (r *ScheduledReminder) ReminderType() ReminderType { return r.reminderType }
func (r *ScheduledReminder) MinutesBefore() int       { return r.minutesBefore }
func (r *ScheduledReminder) ScheduledFor() time.Time  { return r.scheduledFor }
func (r *ScheduledReminder) Status() ReminderStatus   { return r.status }
func (r *ScheduledReminder) Snapshot() Snapshot        { return r.snapshot }
func (r *ScheduledReminder) SentAt() *time.Time        { return r.sentAt }
func (r *ScheduledReminder) ErrorMessage() string      { return r.errorMessage }
func (r *ScheduledReminder) ClaimedBy() string         { return r.claimedBy }

// Claim transitions Pending -> Dispatching and records the worker identity.
// Callers must perform this as a conditional SQL update (WHERE status =
// 'Pending') so concurrent processors never double-claim the same row.
func (r *ScheduledReminder) Claim(workerID string) error {
	if r.status != ReminderStatusPending {
		return apperr.IllegalTransition("reminder is not Pending")
	}
	r.status = ReminderStatusDispatching
	r.claimedBy = workerID
	r.Touch()
	return nil
}

// MarkSent records successful dispatch.
func (r *ScheduledReminder) MarkSent(sentAt time.Time) {
	r.status = ReminderStatusSent
	r.sentAt = &sentAt
	r.Touch()
}

// MarkFailed records a delivery failure; the processor does not retry
// automatically.
func (r *ScheduledReminder) MarkFailed(message string) {
	r.status = ReminderStatusFailed
	r.errorMessage = message
	r.Touch()
}

// Cancel transitions any non-terminal status to Cancelled, used when the
// owning appointment is cancelled/rescheduled/no-showed before dispatch.
func (r *ScheduledReminder) Cancel() {
	if r.status == ReminderStatusSent || r.status == ReminderStatusCancelled {
		return
	}
	r.status = ReminderStatusCancelled
	r.Touch()
}

// RehydrateScheduledReminder reconstructs a ScheduledReminder from persisted state.
func RehydrateScheduledReminder(
	id, appointmentID, userID uuid.UUID,
	reminderType ReminderType,
	minutesBefore int,
	scheduledFor time.Time,
	status ReminderStatus,
	snapshot Snapshot,
	sentAt *time.Time,
	errorMessage, claimedBy string,
	createdAt, updatedAt time.Time,
	version int,
) *ScheduledReminder {
	baseEntity := sharedDomain.RehydrateBaseEntity(id, createdAt, updatedAt)
	return &ScheduledReminder{
		BaseAggregateRoot: sharedDomain.RehydrateBaseAggregateRoot(baseEntity, version),
		appointmentID:     appointmentID,
		userID:            userID,
		reminderType:      reminderType,
		minutesBefore:     minutesBefore,
		scheduledFor:      scheduledFor,
		status:            status,
		snapshot:          snapshot,
		sentAt:            sentAt,
		errorMessage:      errorMessage,
		claimedBy:         claimedBy,
	}
}
