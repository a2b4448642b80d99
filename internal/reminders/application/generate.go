package application

import (
	"time"

	"github.com/google/uuid"
	"github.com/skillswap/sessionengine/internal/reminders/domain"
)

// GenerateForAppointment builds one ScheduledReminder per (minutesBefore,
// enabled channel) pair in settings, anchored to appointmentTime. Reminders
// whose fire time has already passed are skipped.
func GenerateForAppointment(appointmentID, userID uuid.UUID, settings *domain.ReminderSettings, snapshot domain.Snapshot, now time.Time) ([]*domain.ScheduledReminder, error) {
	var out []*domain.ScheduledReminder
	channels := settings.EnabledChannels()

	for _, minutesBefore := range settings.MinutesBefore() {
		fireAt := snapshot.AppointmentTime.Add(-time.Duration(minutesBefore) * time.Minute)
		if fireAt.Before(now) {
			continue
		}
		for _, channel := range channels {
			reminder, err := domain.NewScheduledReminder(domain.NewScheduledReminderParams{
				AppointmentID: appointmentID,
				UserID:        userID,
				ReminderType:  channel,
				MinutesBefore: minutesBefore,
				ScheduledFor:  fireAt,
				Snapshot:      snapshot,
			})
			if err != nil {
				return nil, err
			}
			out = append(out, reminder)
		}
	}
	return out, nil
}
