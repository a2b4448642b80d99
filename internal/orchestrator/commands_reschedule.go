package orchestrator

import (
	"context"
	"time"

	"github.com/google/uuid"
	remindersDomain "github.com/skillswap/sessionengine/internal/reminders/domain"
	"github.com/skillswap/sessionengine/internal/shared/apperr"
	sharedDomain "github.com/skillswap/sessionengine/internal/shared/domain"
)

// RequestRescheduleInput proposes a new date/duration for an appointment.
type RequestRescheduleInput struct {
	IdempotencyKey   string
	AppointmentID    uuid.UUID
	RequestedBy      uuid.UUID
	ProposedDate     time.Time
	ProposedDuration int
	Reason           string
}

// RequestReschedule moves an appointment to RescheduleRequested.
func (o *Orchestrator) RequestReschedule(ctx context.Context, in RequestRescheduleInput) error {
	return o.withTx(ctx, in.IdempotencyKey, func(txCtx context.Context) ([]sharedDomain.DomainEvent, error) {
		appointment, err := o.appointments.FindByID(txCtx, in.AppointmentID)
		if err != nil {
			return nil, apperr.NotFound("appointment not found")
		}
		if err := appointment.RequestReschedule(in.RequestedBy, in.ProposedDate, in.ProposedDuration, in.Reason, now()); err != nil {
			return nil, err
		}
		if err := o.appointments.Save(txCtx, appointment); err != nil {
			return nil, apperr.Wrap(apperr.KindTransient, "failed to save appointment", err)
		}
		return appointment.DomainEvents(), nil
	})
}

// ApproveRescheduleInput identifies the appointment and the counterparty
// approving the pending reschedule proposal.
type ApproveRescheduleInput struct {
	IdempotencyKey string
	AppointmentID  uuid.UUID
	ApprovedBy     uuid.UUID
	// ReminderSnapshot refreshes the denormalized data carried by reminders
	// regenerated for the new date; callers build it from the current
	// appointment/partner/skill state.
	ReminderSnapshot remindersDomain.Snapshot
}

// ApproveReschedule commits the proposed date/duration and regenerates
// reminders against the new schedule, since the old ones are now stale.
func (o *Orchestrator) ApproveReschedule(ctx context.Context, in ApproveRescheduleInput) error {
	return o.withTx(ctx, in.IdempotencyKey, func(txCtx context.Context) ([]sharedDomain.DomainEvent, error) {
		appointment, err := o.appointments.FindByID(txCtx, in.AppointmentID)
		if err != nil {
			return nil, apperr.NotFound("appointment not found")
		}
		if !appointment.IsParty(in.ApprovedBy) {
			return nil, apperr.Unauthorized("approvedBy is not a party to this appointment")
		}
		if err := appointment.ApproveReschedule(in.ApprovedBy); err != nil {
			return nil, err
		}
		if err := o.appointments.Save(txCtx, appointment); err != nil {
			return nil, apperr.Wrap(apperr.KindTransient, "failed to save appointment", err)
		}

		if err := o.regenerateReminders(txCtx, appointment.ID(), appointment.OrganizerUserID(), in.ReminderSnapshot); err != nil {
			return nil, err
		}
		if err := o.regenerateReminders(txCtx, appointment.ID(), appointment.ParticipantUserID(), in.ReminderSnapshot); err != nil {
			return nil, err
		}

		return appointment.DomainEvents(), nil
	})
}

// RejectRescheduleInput identifies the appointment and the counterparty
// rejecting the pending reschedule proposal.
type RejectRescheduleInput struct {
	IdempotencyKey string
	AppointmentID  uuid.UUID
	ApprovedBy     uuid.UUID
}

// RejectReschedule clears the pending proposal and restores the prior status.
func (o *Orchestrator) RejectReschedule(ctx context.Context, in RejectRescheduleInput) error {
	return o.withTx(ctx, in.IdempotencyKey, func(txCtx context.Context) ([]sharedDomain.DomainEvent, error) {
		appointment, err := o.appointments.FindByID(txCtx, in.AppointmentID)
		if err != nil {
			return nil, apperr.NotFound("appointment not found")
		}
		if !appointment.IsParty(in.ApprovedBy) {
			return nil, apperr.Unauthorized("approvedBy is not a party to this appointment")
		}
		if err := appointment.RejectReschedule(in.ApprovedBy); err != nil {
			return nil, err
		}
		if err := o.appointments.Save(txCtx, appointment); err != nil {
			return nil, apperr.Wrap(apperr.KindTransient, "failed to save appointment", err)
		}
		return appointment.DomainEvents(), nil
	})
}
