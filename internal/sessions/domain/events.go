package domain

import (
	"time"

	sharedDomain "github.com/skillswap/sessionengine/internal/shared/domain"
	"github.com/google/uuid"
)

const (
	AggregateTypeConnection  = "connection"
	AggregateTypeAppointment = "session_appointment"

	RoutingKeyConnectionCreated           = "session.connection_created"
	RoutingKeySessionScheduled            = "session.scheduled"
	RoutingKeySessionCompleted            = "session.completed"
	RoutingKeySessionCancelled            = "session.cancelled"
	RoutingKeySessionRescheduleRequested  = "session.reschedule_requested"
	RoutingKeySessionRescheduled          = "session.rescheduled"
	RoutingKeySessionNoShow               = "session.no_show"
	RoutingKeyMeetingLinkGenerationFailed = "session.meeting_link_generation_failed"
)

// ConnectionCreatedEvent is emitted once per materialized match.
type ConnectionCreatedEvent struct {
	sharedDomain.BaseEvent
	RequesterID          uuid.UUID      `json:"requesterId"`
	TargetUserID         uuid.UUID      `json:"targetUserId"`
	ConnectionType       ConnectionType `json:"connectionType"`
	SkillID              string         `json:"skillId"`
	TotalSessionsPlanned int            `json:"totalSessionsPlanned"`
}

func NewConnectionCreatedEvent(connectionID, requesterID, targetUserID uuid.UUID, connectionType ConnectionType, skillID string, totalSessionsPlanned int) ConnectionCreatedEvent {
	return ConnectionCreatedEvent{
		BaseEvent:            sharedDomain.NewBaseEvent(connectionID, AggregateTypeConnection, RoutingKeyConnectionCreated),
		RequesterID:          requesterID,
		TargetUserID:         targetUserID,
		ConnectionType:       connectionType,
		SkillID:              skillID,
		TotalSessionsPlanned: totalSessionsPlanned,
	}
}

// SessionScheduledEvent is emitted whenever an Appointment is created.
type SessionScheduledEvent struct {
	sharedDomain.BaseEvent
	SessionSeriesID  uuid.UUID `json:"sessionSeriesId"`
	ScheduledDate    time.Time `json:"scheduledDate"`
	OrganizerUserID  uuid.UUID `json:"organizerUserId"`
	ParticipantUserID uuid.UUID `json:"participantUserId"`
}

func NewSessionScheduledEvent(appointmentID, sessionSeriesID uuid.UUID, scheduledDate time.Time, organizerUserID, participantUserID uuid.UUID) SessionScheduledEvent {
	return SessionScheduledEvent{
		BaseEvent:         sharedDomain.NewBaseEvent(appointmentID, AggregateTypeAppointment, RoutingKeySessionScheduled),
		SessionSeriesID:   sessionSeriesID,
		ScheduledDate:     scheduledDate,
		OrganizerUserID:   organizerUserID,
		ParticipantUserID: participantUserID,
	}
}

// SessionCompletedEvent is emitted on CompleteSession.
type SessionCompletedEvent struct {
	sharedDomain.BaseEvent
	SessionSeriesID uuid.UUID `json:"sessionSeriesId"`
	DurationMinutes int       `json:"durationMinutes"`
}

func NewSessionCompletedEvent(appointmentID, sessionSeriesID uuid.UUID, durationMinutes int) SessionCompletedEvent {
	return SessionCompletedEvent{
		BaseEvent:       sharedDomain.NewBaseEvent(appointmentID, AggregateTypeAppointment, RoutingKeySessionCompleted),
		SessionSeriesID: sessionSeriesID,
		DurationMinutes: durationMinutes,
	}
}

// SessionCancelledEvent is emitted on CancelSession.
type SessionCancelledEvent struct {
	sharedDomain.BaseEvent
	SessionSeriesID   uuid.UUID `json:"sessionSeriesId"`
	CancelledBy       uuid.UUID `json:"cancelledBy"`
	Reason            string    `json:"reason"`
	IsLateCancellation bool     `json:"isLateCancellation"`
}

func NewSessionCancelledEvent(appointmentID, sessionSeriesID, cancelledBy uuid.UUID, reason string, isLate bool) SessionCancelledEvent {
	return SessionCancelledEvent{
		BaseEvent:          sharedDomain.NewBaseEvent(appointmentID, AggregateTypeAppointment, RoutingKeySessionCancelled),
		SessionSeriesID:    sessionSeriesID,
		CancelledBy:        cancelledBy,
		Reason:             reason,
		IsLateCancellation: isLate,
	}
}

// SessionRescheduleRequestedEvent is emitted on RequestReschedule.
type SessionRescheduleRequestedEvent struct {
	sharedDomain.BaseEvent
	SessionSeriesID  uuid.UUID `json:"sessionSeriesId"`
	ProposedDate     time.Time `json:"proposedDate"`
	ProposedDuration int       `json:"proposedDuration"`
	Reason           string    `json:"reason"`
}

func NewSessionRescheduleRequestedEvent(appointmentID, sessionSeriesID uuid.UUID, proposedDate time.Time, proposedDuration int, reason string) SessionRescheduleRequestedEvent {
	return SessionRescheduleRequestedEvent{
		BaseEvent:        sharedDomain.NewBaseEvent(appointmentID, AggregateTypeAppointment, RoutingKeySessionRescheduleRequested),
		SessionSeriesID:  sessionSeriesID,
		ProposedDate:     proposedDate,
		ProposedDuration: proposedDuration,
		Reason:           reason,
	}
}

// SessionRescheduledEvent is emitted on ApproveReschedule.
type SessionRescheduledEvent struct {
	sharedDomain.BaseEvent
	SessionSeriesID uuid.UUID `json:"sessionSeriesId"`
	OldDate         time.Time `json:"oldDate"`
	NewDate         time.Time `json:"newDate"`
	ApprovedBy      uuid.UUID `json:"approvedBy"`
}

func NewSessionRescheduledEvent(appointmentID, sessionSeriesID uuid.UUID, oldDate, newDate time.Time, approvedBy uuid.UUID) SessionRescheduledEvent {
	return SessionRescheduledEvent{
		BaseEvent:       sharedDomain.NewBaseEvent(appointmentID, AggregateTypeAppointment, RoutingKeySessionRescheduled),
		SessionSeriesID: sessionSeriesID,
		OldDate:         oldDate,
		NewDate:         newDate,
		ApprovedBy:      approvedBy,
	}
}

// SessionNoShowEvent is emitted on MarkAsNoShow.
type SessionNoShowEvent struct {
	sharedDomain.BaseEvent
	SessionSeriesID uuid.UUID   `json:"sessionSeriesId"`
	NoShowUserIDs   []uuid.UUID `json:"noShowUserIds"`
	ReportedBy      uuid.UUID   `json:"reportedBy"`
}

func NewSessionNoShowEvent(appointmentID, sessionSeriesID uuid.UUID, noShowUserIDs []uuid.UUID, reportedBy uuid.UUID) SessionNoShowEvent {
	return SessionNoShowEvent{
		BaseEvent:       sharedDomain.NewBaseEvent(appointmentID, AggregateTypeAppointment, RoutingKeySessionNoShow),
		SessionSeriesID: sessionSeriesID,
		NoShowUserIDs:   noShowUserIDs,
		ReportedBy:      reportedBy,
	}
}

// MeetingLinkGenerationFailedEvent reports a failed meeting-link generation
// for an appointment. No code path in this module constructs or emits it.
type MeetingLinkGenerationFailedEvent struct {
	sharedDomain.BaseEvent
	Reason string `json:"reason"`
}

func NewMeetingLinkGenerationFailedEvent(appointmentID uuid.UUID, reason string) MeetingLinkGenerationFailedEvent {
	return MeetingLinkGenerationFailedEvent{
		BaseEvent: sharedDomain.NewBaseEvent(appointmentID, AggregateTypeAppointment, RoutingKeyMeetingLinkGenerationFailed),
		Reason:    reason,
	}
}
