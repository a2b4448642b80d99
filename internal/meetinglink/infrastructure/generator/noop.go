// Package generator provides a development-mode implementation of the
// meeting-link RetryWorker's Generator contract. The real meeting-link
// provider (Zoom, Meet, etc.) is an external collaborator outside this
// module's scope; production wiring replaces this with a real client.
package generator

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
)

// NoopGenerator synthesizes a deterministic placeholder link instead of
// calling out to a real meeting provider.
type NoopGenerator struct {
	logger *slog.Logger
}

// NewNoopGenerator constructs a NoopGenerator.
func NewNoopGenerator(logger *slog.Logger) *NoopGenerator {
	if logger == nil {
		logger = slog.Default()
	}
	return &NoopGenerator{logger: logger}
}

// GenerateMeetingLink returns a placeholder link keyed by appointmentID.
func (g *NoopGenerator) GenerateMeetingLink(ctx context.Context, appointmentID uuid.UUID) (string, error) {
	g.logger.Debug("noop meeting link generation", "appointment_id", appointmentID)
	return fmt.Sprintf("https://meet.example.invalid/%s", appointmentID), nil
}
