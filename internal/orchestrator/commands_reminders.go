package orchestrator

import (
	"context"

	"github.com/google/uuid"
	remindersDomain "github.com/skillswap/sessionengine/internal/reminders/domain"
	"github.com/skillswap/sessionengine/internal/shared/apperr"
	sharedDomain "github.com/skillswap/sessionengine/internal/shared/domain"
)

// SetReminderSettingsInput is an idempotent upsert of a user's reminder
// preferences.
type SetReminderSettingsInput struct {
	IdempotencyKey string
	UserID         uuid.UUID
	MinutesBefore  []int
	EmailEnabled   bool
	PushEnabled    bool
	SMSEnabled     bool
}

// SetReminderSettings creates or updates a user's ReminderSettings.
// ReminderSettings emits no domain events, so this command stages nothing
// to the outbox beyond the idempotency reservation.
func (o *Orchestrator) SetReminderSettings(ctx context.Context, in SetReminderSettingsInput) error {
	return o.withTx(ctx, in.IdempotencyKey, func(txCtx context.Context) ([]sharedDomain.DomainEvent, error) {
		existing, err := o.reminderSettings.FindByUserID(txCtx, in.UserID)
		if err != nil {
			settings, err := remindersDomain.NewReminderSettings(in.UserID, in.MinutesBefore, in.EmailEnabled, in.PushEnabled, in.SMSEnabled)
			if err != nil {
				return nil, err
			}
			if err := o.reminderSettings.Save(txCtx, settings); err != nil {
				return nil, apperr.Wrap(apperr.KindTransient, "failed to save reminder settings", err)
			}
			return nil, nil
		}

		existing.Update(in.MinutesBefore, in.EmailEnabled, in.PushEnabled, in.SMSEnabled)
		if err := o.reminderSettings.Save(txCtx, existing); err != nil {
			return nil, apperr.Wrap(apperr.KindTransient, "failed to save reminder settings", err)
		}
		return nil, nil
	})
}
