package domain

import (
	"time"

	sharedDomain "github.com/skillswap/sessionengine/internal/shared/domain"
	"github.com/skillswap/sessionengine/internal/shared/apperr"
	"github.com/google/uuid"
)

// LateCancellationWindow is how close to scheduledDate a cancel must land to
// be flagged isLateCancellation.
const LateCancellationWindow = 24 * time.Hour

// MinRescheduleLeadTime is the minimum lead time a reschedule proposal must
// have over now.
const MinRescheduleLeadTime = 1 * time.Hour

// SessionAppointment is one scheduled meeting within a SessionSeries.
type SessionAppointment struct {
	sharedDomain.BaseAggregateRoot

	sessionSeriesID       uuid.UUID
	sessionNumber         int
	title                 string
	scheduledDate         time.Time
	durationMinutes       int
	organizerUserID       uuid.UUID
	participantUserID     uuid.UUID
	meetingLink           string
	status                Status
	priorStatus           Status
	cancelledBy           *uuid.UUID
	cancelReason          string
	rescheduleRequestedBy *uuid.UUID
	proposedDate          *time.Time
	proposedDuration      *int
	rescheduleReason      string
	noShowUserIDs         []uuid.UUID
	isAutoCreated         bool
	isLateCancellation    bool
	isDeleted             bool
	deletedAt             *time.Time
}

// NewAppointmentParams bundles the fields required to schedule an Appointment.
type NewAppointmentParams struct {
	SessionSeriesID   uuid.UUID
	SessionNumber     int
	Title             string
	ScheduledDate     time.Time
	DurationMinutes   int
	OrganizerUserID   uuid.UUID
	ParticipantUserID uuid.UUID
	IsAutoCreated     bool
}

// NewAppointment validates and constructs a SessionAppointment, emitting
// SessionScheduled.
func NewAppointment(p NewAppointmentParams) (*SessionAppointment, error) {
	if p.SessionSeriesID == uuid.Nil {
		return nil, apperr.InvalidInput("sessionSeriesId is required")
	}
	if p.SessionNumber < 1 {
		return nil, apperr.InvalidInput("sessionNumber must be >= 1")
	}
	if p.DurationMinutes <= 0 {
		return nil, apperr.InvalidInput("durationMinutes must be > 0")
	}
	if p.OrganizerUserID == uuid.Nil || p.ParticipantUserID == uuid.Nil || p.OrganizerUserID == p.ParticipantUserID {
		return nil, apperr.InvalidInput("organizerUserId and participantUserId must be distinct and set")
	}

	a := &SessionAppointment{
		BaseAggregateRoot: sharedDomain.NewBaseAggregateRoot(),
		sessionSeriesID:   p.SessionSeriesID,
		sessionNumber:     p.SessionNumber,
		title:             p.Title,
		scheduledDate:     p.ScheduledDate,
		durationMinutes:   p.DurationMinutes,
		organizerUserID:   p.OrganizerUserID,
		participantUserID: p.ParticipantUserID,
		status:            StatusScheduled,
		isAutoCreated:     p.IsAutoCreated,
	}

	a.AddDomainEvent(NewSessionScheduledEvent(a.ID(), p.SessionSeriesID, p.ScheduledDate, p.OrganizerUserID, p.ParticipantUserID))

	return a, nil
}

func (a *SessionAppointment) SessionSeriesID() uuid.UUID       { return a.sessionSeriesID }
func (a *SessionAppointment) SessionNumber() int                { return a.sessionNumber }
func (a *SessionAppointment) Title() string                     { return a.title }
func (a *SessionAppointment) ScheduledDate() time.Time          { return a.scheduledDate }
func (a *SessionAppointment) DurationMinutes() int              { return a.durationMinutes }
func (a *SessionAppointment) OrganizerUserID() uuid.UUID        { return a.organizerUserID }
func (a *SessionAppointment) ParticipantUserID() uuid.UUID      { return a.participantUserID }
func (a *SessionAppointment) MeetingLink() string                { return a.meetingLink }
func (a *SessionAppointment) Status() Status                    { return a.status }
func (a *SessionAppointment) PriorStatus() Status                { return a.priorStatus }
func (a *SessionAppointment) CancelledBy() *uuid.UUID            { return a.cancelledBy }
func (a *SessionAppointment) CancelReason() string               { return a.cancelReason }
func (a *SessionAppointment) RescheduleRequestedBy() *uuid.UUID  { return a.rescheduleRequestedBy }
func (a *SessionAppointment) ProposedDate() *time.Time           { return a.proposedDate }
func (a *SessionAppointment) ProposedDuration() *int             { return a.proposedDuration }
func (a *SessionAppointment) RescheduleReason() string           { return a.rescheduleReason }
func (a *SessionAppointment) NoShowUserIDs() []uuid.UUID         { return a.noShowUserIDs }
func (a *SessionAppointment) IsAutoCreated() bool                { return a.isAutoCreated }
func (a *SessionAppointment) IsLateCancellation() bool           { return a.isLateCancellation }
func (a *SessionAppointment) IsDeleted() bool                    { return a.isDeleted }

// EndTime returns scheduledDate + durationMinutes.
func (a *SessionAppointment) EndTime() time.Time {
	return a.scheduledDate.Add(time.Duration(a.durationMinutes) * time.Minute)
}

// IsParty reports whether userID is the organizer or participant.
func (a *SessionAppointment) IsParty(userID uuid.UUID) bool {
	return a.organizerUserID == userID || a.participantUserID == userID
}

// SetMeetingLink records a successfully generated meeting link.
func (a *SessionAppointment) SetMeetingLink(link string) {
	a.meetingLink = link
	a.Touch()
}

// Confirm transitions Scheduled -> Confirmed.
func (a *SessionAppointment) Confirm() error {
	return a.applyTransition("confirm")
}

// Start transitions Scheduled/Confirmed -> InProgress.
func (a *SessionAppointment) Start() error {
	return a.applyTransition("start")
}

// Complete transitions InProgress -> Completed, emitting SessionCompleted.
func (a *SessionAppointment) Complete() error {
	if err := a.applyTransition("finish"); err != nil {
		return err
	}
	a.AddDomainEvent(NewSessionCompletedEvent(a.ID(), a.sessionSeriesID, a.durationMinutes))
	return nil
}

// Cancel transitions Scheduled/Confirmed/InProgress -> Cancelled, flagging
// isLateCancellation when scheduledDate is within LateCancellationWindow of
// now, and emitting SessionCancelled.
func (a *SessionAppointment) Cancel(cancelledBy uuid.UUID, reason string, now time.Time) error {
	if a.status.IsTerminal() {
		return apperr.IllegalTransition("appointment is already in a terminal state")
	}
	if _, ok := canTransition(a.status, "cancel"); !ok {
		return apperr.IllegalTransition("no transition 'cancel' from status '" + string(a.status) + "'")
	}
	a.status = StatusCancelled
	a.cancelledBy = &cancelledBy
	a.cancelReason = reason
	a.isLateCancellation = a.scheduledDate.Sub(now) < LateCancellationWindow
	a.Touch()
	a.AddDomainEvent(NewSessionCancelledEvent(a.ID(), a.sessionSeriesID, cancelledBy, reason, a.isLateCancellation))
	return nil
}

// RequestReschedule transitions Scheduled/Confirmed -> RescheduleRequested.
func (a *SessionAppointment) RequestReschedule(requestedBy uuid.UUID, proposedDate time.Time, proposedDuration int, reason string, now time.Time) error {
	if !a.IsParty(requestedBy) {
		return apperr.Unauthorized("requestedBy is not a party to this appointment")
	}
	if proposedDate.Sub(now) <= MinRescheduleLeadTime {
		return apperr.InvalidInput("proposedDate must be more than 1 hour from now")
	}
	if err := a.applyTransition("requestReschedule"); err != nil {
		return err
	}
	a.rescheduleRequestedBy = &requestedBy
	a.proposedDate = &proposedDate
	a.proposedDuration = &proposedDuration
	a.rescheduleReason = reason
	a.AddDomainEvent(NewSessionRescheduleRequestedEvent(a.ID(), a.sessionSeriesID, proposedDate, proposedDuration, reason))
	return nil
}

// ApproveReschedule moves scheduledDate/duration to the proposed values and
// returns the appointment to Scheduled, emitting SessionRescheduled. Clearing
// and regenerating reminders is the orchestrator's responsibility.
func (a *SessionAppointment) ApproveReschedule(approvedBy uuid.UUID) error {
	if a.status != StatusRescheduleRequested {
		return apperr.IllegalTransition("appointment has no pending reschedule request")
	}
	if a.rescheduleRequestedBy != nil && *a.rescheduleRequestedBy == approvedBy {
		return apperr.IllegalTransition("approver must not be the requester (self-approval)")
	}

	oldDate := a.scheduledDate
	newDate := *a.proposedDate
	a.scheduledDate = newDate
	if a.proposedDuration != nil {
		a.durationMinutes = *a.proposedDuration
	}
	a.status = StatusScheduled
	a.rescheduleRequestedBy = nil
	a.proposedDate = nil
	a.proposedDuration = nil
	a.rescheduleReason = ""
	a.Touch()

	a.AddDomainEvent(NewSessionRescheduledEvent(a.ID(), a.sessionSeriesID, oldDate, newDate, approvedBy))
	return nil
}

// RejectReschedule clears the pending proposal and returns to priorStatus.
func (a *SessionAppointment) RejectReschedule(approvedBy uuid.UUID) error {
	if a.status != StatusRescheduleRequested {
		return apperr.IllegalTransition("appointment has no pending reschedule request")
	}
	if a.rescheduleRequestedBy != nil && *a.rescheduleRequestedBy == approvedBy {
		return apperr.IllegalTransition("approver must not be the requester (self-approval)")
	}

	a.status = a.priorStatus
	a.rescheduleRequestedBy = nil
	a.proposedDate = nil
	a.proposedDuration = nil
	a.rescheduleReason = ""
	a.Touch()
	return nil
}

// MarkAsNoShow transitions a past-end, non-terminal appointment to NoShow.
func (a *SessionAppointment) MarkAsNoShow(reportedBy uuid.UUID, noShowUserIDs []uuid.UUID, now time.Time) error {
	if a.status.IsTerminal() {
		return apperr.IllegalTransition("appointment is already in a terminal state")
	}
	if now.Before(a.EndTime()) {
		return apperr.New(apperr.KindInvalidInput, "appointment has not yet ended")
	}
	a.status = StatusNoShow
	a.noShowUserIDs = noShowUserIDs
	a.Touch()
	a.AddDomainEvent(NewSessionNoShowEvent(a.ID(), a.sessionSeriesID, noShowUserIDs, reportedBy))
	return nil
}

func (a *SessionAppointment) applyTransition(event string) error {
	to, ok := canTransition(a.status, event)
	if !ok {
		return apperr.IllegalTransition("no transition '" + event + "' from status '" + string(a.status) + "'")
	}
	if event == "requestReschedule" {
		a.priorStatus = a.status
	}
	a.status = to
	a.Touch()
	return nil
}

// RehydrateAppointment reconstructs a SessionAppointment from persisted state.
func RehydrateAppointment(
	id, sessionSeriesID uuid.UUID,
	sessionNumber int,
	title string,
	scheduledDate time.Time,
	durationMinutes int,
	organizerUserID, participantUserID uuid.UUID,
	meetingLink string,
	status, priorStatus Status,
	cancelledBy *uuid.UUID,
	cancelReason string,
	rescheduleRequestedBy *uuid.UUID,
	proposedDate *time.Time,
	proposedDuration *int,
	rescheduleReason string,
	noShowUserIDs []uuid.UUID,
	isAutoCreated, isLateCancellation, isDeleted bool,
	deletedAt *time.Time,
	createdAt, updatedAt time.Time,
	version int,
) *SessionAppointment {
	baseEntity := sharedDomain.RehydrateBaseEntity(id, createdAt, updatedAt)
	return &SessionAppointment{
		BaseAggregateRoot:     sharedDomain.RehydrateBaseAggregateRoot(baseEntity, version),
		sessionSeriesID:       sessionSeriesID,
		sessionNumber:         sessionNumber,
		title:                 title,
		scheduledDate:         scheduledDate,
		durationMinutes:       durationMinutes,
		organizerUserID:       organizerUserID,
		participantUserID:     participantUserID,
		meetingLink:           meetingLink,
		status:                status,
		priorStatus:           priorStatus,
		cancelledBy:           cancelledBy,
		cancelReason:          cancelReason,
		rescheduleRequestedBy: rescheduleRequestedBy,
		proposedDate:          proposedDate,
		proposedDuration:      proposedDuration,
		rescheduleReason:      rescheduleReason,
		noShowUserIDs:         noShowUserIDs,
		isAutoCreated:         isAutoCreated,
		isLateCancellation:    isLateCancellation,
		isDeleted:             isDeleted,
		deletedAt:             deletedAt,
	}
}
