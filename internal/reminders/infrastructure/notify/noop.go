// Package notify provides development-mode implementations of the
// reminders Processor's ContactLookup and Notifier collaborator contracts.
// The identity service and the real notification subsystem are both
// external collaborators outside this module's scope; production wiring
// replaces these with real clients.
package notify

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/skillswap/sessionengine/internal/reminders/application"
	"github.com/skillswap/sessionengine/internal/reminders/domain"
)

// NoopContactLookup returns an empty ContactInfo for every user. Useful for
// local/dev wiring where no identity service is reachable.
type NoopContactLookup struct {
	logger *slog.Logger
}

// NewNoopContactLookup constructs a NoopContactLookup.
func NewNoopContactLookup(logger *slog.Logger) *NoopContactLookup {
	if logger == nil {
		logger = slog.Default()
	}
	return &NoopContactLookup{logger: logger}
}

// Lookup logs the request and returns an empty ContactInfo.
func (l *NoopContactLookup) Lookup(ctx context.Context, userID uuid.UUID) (application.ContactInfo, error) {
	l.logger.Debug("noop contact lookup", "user_id", userID)
	return application.ContactInfo{}, nil
}

// NoopNotifier logs every reminder instead of dispatching it.
type NoopNotifier struct {
	logger *slog.Logger
}

// NewNoopNotifier constructs a NoopNotifier.
func NewNoopNotifier(logger *slog.Logger) *NoopNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &NoopNotifier{logger: logger}
}

// Notify logs the reminder but doesn't actually dispatch it.
func (n *NoopNotifier) Notify(ctx context.Context, reminderType domain.ReminderType, contact application.ContactInfo, snapshot domain.Snapshot) error {
	n.logger.Debug("noop notify",
		"reminder_type", reminderType,
		"partner_name", snapshot.PartnerName,
		"appointment_time", snapshot.AppointmentTime,
	)
	return nil
}
