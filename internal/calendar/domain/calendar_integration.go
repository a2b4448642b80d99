package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/skillswap/sessionengine/internal/shared/apperr"
	sharedDomain "github.com/skillswap/sessionengine/internal/shared/domain"
)

// Status is the connection state of a CalendarIntegration.
type Status string

const (
	StatusActive       Status = "Active"
	StatusTokenExpired Status = "TokenExpired"
	StatusRevoked      Status = "Revoked"
)

// CalendarIntegration is one user's connection to one external calendar
// provider. Access and refresh tokens are stored already-encrypted by the
// caller (see crypto.Encrypter) so the aggregate never holds plaintext
// secrets in memory any longer than the request that needs them.
type CalendarIntegration struct {
	sharedDomain.BaseAggregateRoot

	userID              uuid.UUID
	provider            ProviderType
	encryptedAccessToken  string
	encryptedRefreshToken string
	tokenExpiresAt      time.Time
	calendarID          string
	caldavURL           string
	email               string
	status              Status
}

// NewCalendarIntegrationParams bundles the fields required to connect a calendar.
type NewCalendarIntegrationParams struct {
	UserID                uuid.UUID
	Provider              ProviderType
	EncryptedAccessToken  string
	EncryptedRefreshToken string
	TokenExpiresAt        time.Time
	CalendarID            string
	CalDAVURL             string
	Email                 string
}

// NewCalendarIntegration constructs an Active CalendarIntegration.
func NewCalendarIntegration(p NewCalendarIntegrationParams) (*CalendarIntegration, error) {
	if p.UserID == uuid.Nil {
		return nil, apperr.InvalidInput("userId is required")
	}
	if !p.Provider.IsValid() {
		return nil, apperr.InvalidInput("provider is not recognized")
	}
	if p.Provider.RequiresOAuth() && p.EncryptedAccessToken == "" {
		return nil, apperr.InvalidInput("accessToken is required for oauth providers")
	}
	if p.Provider.RequiresCalDAV() && p.CalDAVURL == "" {
		return nil, apperr.InvalidInput("caldavUrl is required for caldav providers")
	}

	return &CalendarIntegration{
		BaseAggregateRoot:     sharedDomain.NewBaseAggregateRoot(),
		userID:                p.UserID,
		provider:              p.Provider,
		encryptedAccessToken:  p.EncryptedAccessToken,
		encryptedRefreshToken: p.EncryptedRefreshToken,
		tokenExpiresAt:        p.TokenExpiresAt,
		calendarID:            p.CalendarID,
		caldavURL:             p.CalDAVURL,
		email:                 p.Email,
		status:                StatusActive,
	}, nil
}

func (c *CalendarIntegration) UserID() uuid.UUID             { return c.userID }
func (c *CalendarIntegration) Provider() ProviderType         { return c.provider }
func (c *CalendarIntegration) EncryptedAccessToken() string  { return c.encryptedAccessToken }
func (c *CalendarIntegration) EncryptedRefreshToken() string { return c.encryptedRefreshToken }
func (c *CalendarIntegration) TokenExpiresAt() time.Time      { return c.tokenExpiresAt }
func (c *CalendarIntegration) CalendarID() string             { return c.calendarID }
func (c *CalendarIntegration) CalDAVURL() string              { return c.caldavURL }
func (c *CalendarIntegration) Email() string                  { return c.email }
func (c *CalendarIntegration) Status() Status                 { return c.status }
func (c *CalendarIntegration) IsExpired(now time.Time) bool {
	return !c.tokenExpiresAt.IsZero() && now.After(c.tokenExpiresAt)
}

// RefreshTokens records a new access/refresh token pair after a successful
// OAuth2 refresh and clears any TokenExpired status.
func (c *CalendarIntegration) RefreshTokens(encryptedAccessToken, encryptedRefreshToken string, expiresAt time.Time) {
	c.encryptedAccessToken = encryptedAccessToken
	if encryptedRefreshToken != "" {
		c.encryptedRefreshToken = encryptedRefreshToken
	}
	c.tokenExpiresAt = expiresAt
	if c.status == StatusTokenExpired {
		c.status = StatusActive
	}
	c.Touch()
}

// MarkTokenExpired records that a refresh attempt failed with an
// unrecoverable grant error, requiring the user to reconnect.
func (c *CalendarIntegration) MarkTokenExpired() {
	c.status = StatusTokenExpired
	c.Touch()
}

// Revoke marks the integration Revoked. Callers must still call the
// provider's revoke endpoint before persisting this.
func (c *CalendarIntegration) Revoke() error {
	if c.status == StatusRevoked {
		return apperr.IllegalTransition("integration is already revoked")
	}
	c.status = StatusRevoked
	c.Touch()
	return nil
}

// RehydrateCalendarIntegration reconstructs a CalendarIntegration from persisted state.
func RehydrateCalendarIntegration(
	id, userID uuid.UUID,
	provider ProviderType,
	encryptedAccessToken, encryptedRefreshToken string,
	tokenExpiresAt time.Time,
	calendarID, caldavURL, email string,
	status Status,
	createdAt, updatedAt time.Time,
	version int,
) *CalendarIntegration {
	baseEntity := sharedDomain.RehydrateBaseEntity(id, createdAt, updatedAt)
	return &CalendarIntegration{
		BaseAggregateRoot:     sharedDomain.RehydrateBaseAggregateRoot(baseEntity, version),
		userID:                userID,
		provider:              provider,
		encryptedAccessToken:  encryptedAccessToken,
		encryptedRefreshToken: encryptedRefreshToken,
		tokenExpiresAt:        tokenExpiresAt,
		calendarID:            calendarID,
		caldavURL:             caldavURL,
		email:                 email,
		status:                status,
	}
}
