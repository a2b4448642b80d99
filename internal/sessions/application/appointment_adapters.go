// Package application adapts the sessions AppointmentRepository to the
// narrow collaborator contracts the reminders Processor and meeting-link
// RetryWorker depend on, so neither package needs to know about
// SessionAppointment's full aggregate shape.
package application

import (
	"context"

	"github.com/google/uuid"
	domain "github.com/skillswap/sessionengine/internal/sessions/domain"
)

// StatusChecker adapts an AppointmentRepository to
// reminders/application.AppointmentStatusChecker.
type StatusChecker struct {
	appointments domain.AppointmentRepository
}

// NewStatusChecker constructs a StatusChecker.
func NewStatusChecker(appointments domain.AppointmentRepository) *StatusChecker {
	return &StatusChecker{appointments: appointments}
}

// IsTerminal reports whether the appointment has reached Completed,
// Cancelled, or NoShow.
func (c *StatusChecker) IsTerminal(ctx context.Context, appointmentID uuid.UUID) (bool, error) {
	a, err := c.appointments.FindByID(ctx, appointmentID)
	if err != nil {
		return false, err
	}
	return a.Status().IsTerminal(), nil
}

// LinkSetter adapts an AppointmentRepository to
// meetinglink/application.AppointmentLinkSetter. Each call loads, mutates,
// and saves the appointment without opening a transaction (each statement
// commits on its own): the RetryWorker that calls this runs outside the
// orchestrator's command transactions.
type LinkSetter struct {
	appointments domain.AppointmentRepository
}

// NewLinkSetter constructs a LinkSetter.
func NewLinkSetter(appointments domain.AppointmentRepository) *LinkSetter {
	return &LinkSetter{appointments: appointments}
}

// SetMeetingLink records a successfully generated link on its appointment.
func (s *LinkSetter) SetMeetingLink(ctx context.Context, appointmentID uuid.UUID, link string) error {
	a, err := s.appointments.FindByID(ctx, appointmentID)
	if err != nil {
		return err
	}
	a.SetMeetingLink(link)
	return s.appointments.Save(ctx, a)
}

// MarkMeetingLinkFailed is a no-op beyond what the RetryWorker already
// persists on the PendingLink itself: the appointment keeps its empty
// meetingLink and participants are expected to coordinate out of band once
// MaxAttempts is exhausted.
func (s *LinkSetter) MarkMeetingLinkFailed(ctx context.Context, appointmentID uuid.UUID, reason string) error {
	return nil
}
