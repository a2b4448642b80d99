package domain

import (
	"context"
	"time"
)

// EventInput is a calendar event to create or update on a remote provider.
type EventInput struct {
	Title       string
	Description string
	Start       time.Time
	End         time.Time
	Attendees   []string
	MeetingLink string
}

// BusyPeriod is one opaque interval reported by a provider's free/busy query.
type BusyPeriod struct {
	Start time.Time
	End   time.Time
}

// Adapter is the capability surface every calendar provider implements,
// whether reached via OAuth2 (Google, Microsoft) or CalDAV (Apple, generic
// CalDAV). The orchestrator depends only on this interface; each
// infrastructure package supplies one concrete implementation.
type Adapter interface {
	// AuthorizationURL returns the URL the user is redirected to to grant
	// access. CalDAV adapters return apperr.InvalidInput: they authenticate
	// with a stored credential instead of a redirect flow.
	AuthorizationURL(state string) (string, error)

	// ExchangeCode trades an OAuth2 authorization code for a token pair.
	// Returns the plaintext accessToken, refreshToken and expiresAt; callers
	// encrypt the tokens before storing them.
	ExchangeCode(ctx context.Context, code string) (accessToken, refreshToken string, expiresAt time.Time, err error)

	// RefreshAccessToken exchanges a refresh token for a new access token.
	RefreshAccessToken(ctx context.Context, refreshToken string) (accessToken string, expiresAt time.Time, err error)

	// Revoke invalidates the integration's tokens at the provider.
	Revoke(ctx context.Context, accessToken string) error

	// CreateEvent creates a remote calendar event and returns its provider-assigned ID.
	CreateEvent(ctx context.Context, accessToken string, calendarID string, event EventInput) (providerEventID string, err error)

	// UpdateEvent updates an existing remote calendar event.
	UpdateEvent(ctx context.Context, accessToken string, calendarID, providerEventID string, event EventInput) error

	// DeleteEvent removes a remote calendar event.
	DeleteEvent(ctx context.Context, accessToken string, calendarID, providerEventID string) error

	// Busy reports the user's busy periods over [from, to) on the connected calendar.
	Busy(ctx context.Context, accessToken string, calendarID string, from, to time.Time) ([]BusyPeriod, error)

	// UserEmail returns the account email associated with accessToken, used
	// to populate CalendarIntegration.Email at connect time.
	UserEmail(ctx context.Context, accessToken string) (string, error)
}
