package orchestrator

import (
	"context"

	"github.com/google/uuid"
	remindersApp "github.com/skillswap/sessionengine/internal/reminders/application"
	remindersDomain "github.com/skillswap/sessionengine/internal/reminders/domain"
	"github.com/skillswap/sessionengine/internal/shared/apperr"
	sharedDomain "github.com/skillswap/sessionengine/internal/shared/domain"
)

// CompleteSessionInput identifies the appointment to complete.
type CompleteSessionInput struct {
	IdempotencyKey string
	AppointmentID  uuid.UUID
}

// CompleteSession transitions an appointment to Completed, rolls the
// completion into its Connection's balance/counters, and closes the
// Connection once every planned session has completed.
func (o *Orchestrator) CompleteSession(ctx context.Context, in CompleteSessionInput) error {
	return o.withTx(ctx, in.IdempotencyKey, func(txCtx context.Context) ([]sharedDomain.DomainEvent, error) {
		appointment, err := o.appointments.FindByID(txCtx, in.AppointmentID)
		if err != nil {
			return nil, apperr.NotFound("appointment not found")
		}
		if err := appointment.Complete(); err != nil {
			return nil, err
		}
		if err := o.appointments.Save(txCtx, appointment); err != nil {
			return nil, apperr.Wrap(apperr.KindTransient, "failed to save appointment", err)
		}

		series, err := o.series.FindByID(txCtx, appointment.SessionSeriesID())
		if err != nil {
			return nil, apperr.NotFound("session series not found")
		}
		series.RecordCompletion()
		if err := o.series.Save(txCtx, series); err != nil {
			return nil, apperr.Wrap(apperr.KindTransient, "failed to save session series", err)
		}

		connection, err := o.connections.FindByID(txCtx, series.ConnectionID())
		if err != nil {
			return nil, apperr.NotFound("connection not found")
		}
		teacherIsRequester := series.TeacherUserID() == connection.RequesterID()
		connection.RecordSessionCompletion(teacherIsRequester, appointment.DurationMinutes())
		if err := o.connections.Save(txCtx, connection); err != nil {
			return nil, apperr.Wrap(apperr.KindTransient, "failed to save connection", err)
		}

		return appointment.DomainEvents(), nil
	})
}

// CancelSessionInput identifies the appointment to cancel and who requested it.
type CancelSessionInput struct {
	IdempotencyKey string
	AppointmentID  uuid.UUID
	CancelledBy    uuid.UUID
	Reason         string
}

// CancelSession transitions an appointment to Cancelled and cancels any
// reminders still pending dispatch for it.
func (o *Orchestrator) CancelSession(ctx context.Context, in CancelSessionInput) error {
	return o.withTx(ctx, in.IdempotencyKey, func(txCtx context.Context) ([]sharedDomain.DomainEvent, error) {
		appointment, err := o.appointments.FindByID(txCtx, in.AppointmentID)
		if err != nil {
			return nil, apperr.NotFound("appointment not found")
		}
		if !appointment.IsParty(in.CancelledBy) {
			return nil, apperr.Unauthorized("cancelledBy is not a party to this appointment")
		}
		if err := appointment.Cancel(in.CancelledBy, in.Reason, now()); err != nil {
			return nil, err
		}
		if err := o.appointments.Save(txCtx, appointment); err != nil {
			return nil, apperr.Wrap(apperr.KindTransient, "failed to save appointment", err)
		}

		if err := o.cancelPendingReminders(txCtx, appointment.ID()); err != nil {
			return nil, err
		}

		return appointment.DomainEvents(), nil
	})
}

// MarkAsNoShowInput identifies a past appointment and who did not attend.
type MarkAsNoShowInput struct {
	IdempotencyKey string
	AppointmentID  uuid.UUID
	ReportedBy     uuid.UUID
	NoShowUserIDs  []uuid.UUID
}

// MarkAsNoShow transitions a past-end appointment to NoShow.
func (o *Orchestrator) MarkAsNoShow(ctx context.Context, in MarkAsNoShowInput) error {
	return o.withTx(ctx, in.IdempotencyKey, func(txCtx context.Context) ([]sharedDomain.DomainEvent, error) {
		appointment, err := o.appointments.FindByID(txCtx, in.AppointmentID)
		if err != nil {
			return nil, apperr.NotFound("appointment not found")
		}
		if !appointment.IsParty(in.ReportedBy) {
			return nil, apperr.Unauthorized("reportedBy is not a party to this appointment")
		}
		if err := appointment.MarkAsNoShow(in.ReportedBy, in.NoShowUserIDs, now()); err != nil {
			return nil, err
		}
		if err := o.appointments.Save(txCtx, appointment); err != nil {
			return nil, apperr.Wrap(apperr.KindTransient, "failed to save appointment", err)
		}
		return appointment.DomainEvents(), nil
	})
}

// cancelPendingReminders cancels every non-terminal ScheduledReminder for an
// appointment, used whenever a command removes or moves its trigger time.
func (o *Orchestrator) cancelPendingReminders(ctx context.Context, appointmentID uuid.UUID) error {
	if o.reminders == nil {
		return nil
	}
	reminders, err := o.reminders.FindByAppointmentID(ctx, appointmentID)
	if err != nil {
		return apperr.Wrap(apperr.KindTransient, "failed to load scheduled reminders", err)
	}
	for _, r := range reminders {
		r.Cancel()
		if err := o.reminders.Save(ctx, r); err != nil {
			return apperr.Wrap(apperr.KindTransient, "failed to cancel scheduled reminder", err)
		}
	}
	return nil
}

// regenerateReminders cancels any pending reminders for an appointment and
// schedules a fresh set against the user's current settings, used after a
// reschedule moves the appointment's time.
func (o *Orchestrator) regenerateReminders(ctx context.Context, appointmentID, userID uuid.UUID, snapshot remindersDomain.Snapshot) error {
	if o.reminders == nil || o.reminderSettings == nil {
		return nil
	}
	if err := o.cancelPendingReminders(ctx, appointmentID); err != nil {
		return err
	}
	settings, err := o.reminderSettings.FindByUserID(ctx, userID)
	if err != nil {
		return nil // no configured settings: nothing to schedule
	}
	fresh, err := remindersApp.GenerateForAppointment(appointmentID, userID, settings, snapshot, now())
	if err != nil {
		return err
	}
	for _, r := range fresh {
		if err := o.reminders.Save(ctx, r); err != nil {
			return apperr.Wrap(apperr.KindTransient, "failed to save scheduled reminder", err)
		}
	}
	return nil
}
