package orchestrator

import (
	"context"
	"encoding/base64"

	"github.com/google/uuid"
	calendarDomain "github.com/skillswap/sessionengine/internal/calendar/domain"
	"github.com/skillswap/sessionengine/internal/shared/apperr"
	sharedDomain "github.com/skillswap/sessionengine/internal/shared/domain"
)

// ConnectCalendarInput carries the OAuth2 authorization code (Google/Microsoft)
// or stored CalDAV credentials needed to finish a calendar connection.
type ConnectCalendarInput struct {
	IdempotencyKey string
	UserID         uuid.UUID
	Provider       calendarDomain.ProviderType

	// AuthorizationCode is set for OAuth2 providers; for CalDAV providers it
	// instead carries the app-specific password, paired with CalDAVUsername.
	AuthorizationCode string
	CalDAVUsername    string
	CalDAVURL         string
	CalendarID        string
}

// ConnectCalendar finishes the provider handshake, encrypts the resulting
// credentials at rest, and persists a new Active CalendarIntegration.
// Grounded on the teacher's connect_service.go transactional shape: mutate,
// stage event, commit as one unit.
func (o *Orchestrator) ConnectCalendar(ctx context.Context, in ConnectCalendarInput) (*calendarDomain.CalendarIntegration, error) {
	var result *calendarDomain.CalendarIntegration

	err := o.withTx(ctx, in.IdempotencyKey, func(txCtx context.Context) ([]sharedDomain.DomainEvent, error) {
		adapter, err := o.adapterFor(in.Provider)
		if err != nil {
			return nil, err
		}

		params := calendarDomain.NewCalendarIntegrationParams{
			UserID:     in.UserID,
			Provider:   in.Provider,
			CalendarID: in.CalendarID,
			CalDAVURL:  in.CalDAVURL,
		}

		if in.Provider.RequiresOAuth() {
			accessToken, refreshToken, expiresAt, err := adapter.ExchangeCode(txCtx, in.AuthorizationCode)
			if err != nil {
				return nil, apperr.Wrap(apperr.KindTransient, "failed to exchange authorization code", err)
			}
			email, err := adapter.UserEmail(txCtx, accessToken)
			if err != nil {
				return nil, apperr.Wrap(apperr.KindTransient, "failed to resolve account email", err)
			}
			encAccess, err := o.encryptToken(accessToken)
			if err != nil {
				return nil, err
			}
			encRefresh, err := o.encryptToken(refreshToken)
			if err != nil {
				return nil, err
			}
			params.EncryptedAccessToken = encAccess
			params.EncryptedRefreshToken = encRefresh
			params.TokenExpiresAt = expiresAt
			params.Email = email
		} else {
			// CalDAV: AuthorizationCode carries the app-specific password and
			// CalDAVUsername the account name; encode the pair into the base64
			// access-token form the adapter expects and store it encrypted like
			// any other credential.
			rawToken := calendarDomain.EncodeCredentials(in.CalDAVUsername, in.AuthorizationCode)
			email, err := adapter.UserEmail(txCtx, rawToken)
			if err != nil {
				return nil, apperr.Wrap(apperr.KindTransient, "failed to resolve caldav account", err)
			}
			encAccess, err := o.encryptToken(rawToken)
			if err != nil {
				return nil, err
			}
			params.EncryptedAccessToken = encAccess
			params.Email = email
		}

		integration, err := calendarDomain.NewCalendarIntegration(params)
		if err != nil {
			return nil, err
		}
		if err := o.calendars.Save(txCtx, integration); err != nil {
			return nil, apperr.Wrap(apperr.KindTransient, "failed to save calendar integration", err)
		}

		result = integration
		event := calendarDomain.NewCalendarConnectedEvent(integration.ID(), integration.UserID(), integration.Provider(), integration.Email())
		return []sharedDomain.DomainEvent{event}, nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// DisconnectCalendarInput identifies the integration to revoke.
type DisconnectCalendarInput struct {
	IdempotencyKey string
	IntegrationID  uuid.UUID
}

// DisconnectCalendar revokes the provider token (where supported) and marks
// the integration Revoked.
func (o *Orchestrator) DisconnectCalendar(ctx context.Context, in DisconnectCalendarInput) error {
	return o.withTx(ctx, in.IdempotencyKey, func(txCtx context.Context) ([]sharedDomain.DomainEvent, error) {
		integration, err := o.calendars.FindByID(txCtx, in.IntegrationID)
		if err != nil {
			return nil, apperr.NotFound("calendar integration not found")
		}

		if adapter, adapterErr := o.adapterFor(integration.Provider()); adapterErr == nil && integration.EncryptedAccessToken() != "" {
			accessToken, decErr := o.decryptToken(integration.EncryptedAccessToken())
			if decErr == nil {
				if err := adapter.Revoke(txCtx, accessToken); err != nil {
					o.logger.Warn("provider revoke failed, proceeding with local revoke", "error", err, "provider", integration.Provider())
				}
			}
		}

		if err := integration.Revoke(); err != nil {
			return nil, err
		}
		if err := o.calendars.Save(txCtx, integration); err != nil {
			return nil, apperr.Wrap(apperr.KindTransient, "failed to save calendar integration", err)
		}

		event := calendarDomain.NewCalendarDisconnectedEvent(integration.ID(), integration.UserID(), integration.Provider())
		return []sharedDomain.DomainEvent{event}, nil
	})
}

func (o *Orchestrator) encryptToken(plaintext string) (string, error) {
	if plaintext == "" {
		return "", nil
	}
	if o.encrypter == nil {
		return "", apperr.Fatal("no token encrypter configured", nil)
	}
	ciphertext, err := o.encrypter.Encrypt([]byte(plaintext))
	if err != nil {
		return "", apperr.Wrap(apperr.KindFatal, "failed to encrypt token", err)
	}
	return base64.StdEncoding.EncodeToString(ciphertext), nil
}

func (o *Orchestrator) decryptToken(encoded string) (string, error) {
	if encoded == "" || o.encrypter == nil {
		return "", apperr.InvalidInput("no token to decrypt")
	}
	ciphertext, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", apperr.Wrap(apperr.KindInvalidInput, "failed to decode stored token", err)
	}
	plaintext, err := o.encrypter.Decrypt(ciphertext)
	if err != nil {
		return "", apperr.Wrap(apperr.KindFatal, "failed to decrypt token", err)
	}
	return string(plaintext), nil
}
