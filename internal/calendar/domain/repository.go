package domain

import (
	"context"

	"github.com/google/uuid"
)

// Repository persists CalendarIntegration aggregates.
type Repository interface {
	Save(ctx context.Context, integration *CalendarIntegration) error
	FindByID(ctx context.Context, id uuid.UUID) (*CalendarIntegration, error)
	FindByUserID(ctx context.Context, userID uuid.UUID) ([]*CalendarIntegration, error)
	FindByUserAndProvider(ctx context.Context, userID uuid.UUID, provider ProviderType) (*CalendarIntegration, error)
	Delete(ctx context.Context, id uuid.UUID) error
}
