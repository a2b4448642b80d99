package domain

import (
	"time"

	"github.com/google/uuid"
	sharedDomain "github.com/skillswap/sessionengine/internal/shared/domain"
)

const (
	RoutingKeyCalendarConnected     = "calendar.connected"
	RoutingKeyCalendarDisconnected  = "calendar.disconnected"
	RoutingKeyCalendarTokenExpired  = "calendar.token_expired"
)

// CalendarConnectedEvent fires when a user finishes the OAuth2/CalDAV
// handshake for a provider.
type CalendarConnectedEvent struct {
	sharedDomain.BaseEvent
	UserID   uuid.UUID    `json:"userId"`
	Provider ProviderType `json:"provider"`
	Email    string       `json:"email"`
}

func NewCalendarConnectedEvent(integrationID, userID uuid.UUID, provider ProviderType, email string) *CalendarConnectedEvent {
	return &CalendarConnectedEvent{
		BaseEvent: sharedDomain.NewBaseEvent(integrationID, "CalendarIntegration", RoutingKeyCalendarConnected),
		UserID:    userID,
		Provider:  provider,
		Email:     email,
	}
}

// CalendarDisconnectedEvent fires when a user revokes a calendar integration.
type CalendarDisconnectedEvent struct {
	sharedDomain.BaseEvent
	UserID   uuid.UUID    `json:"userId"`
	Provider ProviderType `json:"provider"`
}

func NewCalendarDisconnectedEvent(integrationID, userID uuid.UUID, provider ProviderType) *CalendarDisconnectedEvent {
	return &CalendarDisconnectedEvent{
		BaseEvent: sharedDomain.NewBaseEvent(integrationID, "CalendarIntegration", RoutingKeyCalendarDisconnected),
		UserID:    userID,
		Provider:  provider,
	}
}

// CalendarTokenExpiredEvent fires when a refresh attempt fails with an
// unrecoverable grant error, requiring the user to reconnect.
type CalendarTokenExpiredEvent struct {
	sharedDomain.BaseEvent
	UserID    uuid.UUID    `json:"userId"`
	Provider  ProviderType `json:"provider"`
	ExpiredAt time.Time    `json:"expiredAt"`
}

func NewCalendarTokenExpiredEvent(integrationID, userID uuid.UUID, provider ProviderType, expiredAt time.Time) *CalendarTokenExpiredEvent {
	return &CalendarTokenExpiredEvent{
		BaseEvent: sharedDomain.NewBaseEvent(integrationID, "CalendarIntegration", RoutingKeyCalendarTokenExpired),
		UserID:    userID,
		Provider:  provider,
		ExpiredAt: expiredAt,
	}
}
