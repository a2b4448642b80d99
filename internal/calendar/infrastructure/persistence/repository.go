// Package persistence implements the calendar bounded context's repository
// on the driver-agnostic database.Connection abstraction. Tokens are stored
// already-encrypted by the caller; this layer never sees plaintext secrets.
package persistence

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	domain "github.com/skillswap/sessionengine/internal/calendar/domain"
	"github.com/skillswap/sessionengine/internal/shared/apperr"
	"github.com/skillswap/sessionengine/internal/shared/infrastructure/database"
)

// Repository persists CalendarIntegration aggregates.
type Repository struct {
	conn database.Connection
}

// NewRepository constructs a calendar Repository.
func NewRepository(conn database.Connection) *Repository {
	return &Repository{conn: conn}
}

// Save upserts a CalendarIntegration by id.
func (r *Repository) Save(ctx context.Context, c *domain.CalendarIntegration) error {
	query := fmt.Sprintf(`
		INSERT INTO calendar_integrations (
			id, user_id, provider, encrypted_access_token, encrypted_refresh_token,
			token_expires_at, calendar_id, caldav_url, email, status, created_at, updated_at
		) VALUES (%s)
		ON CONFLICT (id) DO UPDATE SET
			encrypted_access_token = EXCLUDED.encrypted_access_token,
			encrypted_refresh_token = EXCLUDED.encrypted_refresh_token,
			token_expires_at = EXCLUDED.token_expires_at,
			status = EXCLUDED.status,
			updated_at = EXCLUDED.updated_at
	`, database.ValuesClause(r.conn.Driver(), 12))

	exec := database.ExecutorFromContext(ctx, r.conn)
	_, err := exec.Exec(ctx, query,
		c.ID(), c.UserID(), string(c.Provider()), c.EncryptedAccessToken(), c.EncryptedRefreshToken(),
		c.TokenExpiresAt(), c.CalendarID(), c.CalDAVURL(), c.Email(), string(c.Status()), c.CreatedAt(), time.Now().UTC(),
	)
	if err != nil {
		return apperr.Wrap(apperr.KindTransient, "failed to save calendar integration", err)
	}
	return nil
}

const calendarColumns = `
	id, user_id, provider, encrypted_access_token, encrypted_refresh_token,
	token_expires_at, calendar_id, caldav_url, email, status, created_at, updated_at
`

// FindByID returns the CalendarIntegration by id.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*domain.CalendarIntegration, error) {
	p := database.Placeholder(r.conn.Driver(), 1)
	query := "SELECT " + calendarColumns + " FROM calendar_integrations WHERE id = " + p
	exec := database.ExecutorFromContext(ctx, r.conn)
	return scanIntegration(exec.QueryRow(ctx, query, id))
}

// FindByUserID returns every CalendarIntegration owned by a user.
func (r *Repository) FindByUserID(ctx context.Context, userID uuid.UUID) ([]*domain.CalendarIntegration, error) {
	p := database.Placeholder(r.conn.Driver(), 1)
	query := "SELECT " + calendarColumns + " FROM calendar_integrations WHERE user_id = " + p
	exec := database.ExecutorFromContext(ctx, r.conn)
	rows, err := exec.Query(ctx, query, userID)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindTransient, "failed to query calendar integrations", err)
	}
	defer rows.Close()

	var out []*domain.CalendarIntegration
	for rows.Next() {
		c, err := scanIntegration(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// FindByUserAndProvider returns a user's integration for one provider.
func (r *Repository) FindByUserAndProvider(ctx context.Context, userID uuid.UUID, provider domain.ProviderType) (*domain.CalendarIntegration, error) {
	d := r.conn.Driver()
	query := fmt.Sprintf("SELECT %s FROM calendar_integrations WHERE user_id = %s AND provider = %s",
		calendarColumns, database.Placeholder(d, 1), database.Placeholder(d, 2))
	exec := database.ExecutorFromContext(ctx, r.conn)
	return scanIntegration(exec.QueryRow(ctx, query, userID, string(provider)))
}

// Delete removes a CalendarIntegration permanently (hard delete: revoked
// tokens have no audit value once the provider connection is gone).
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	p := database.Placeholder(r.conn.Driver(), 1)
	query := "DELETE FROM calendar_integrations WHERE id = " + p
	exec := database.ExecutorFromContext(ctx, r.conn)
	if _, err := exec.Exec(ctx, query, id); err != nil {
		return apperr.Wrap(apperr.KindTransient, "failed to delete calendar integration", err)
	}
	return nil
}

func scanIntegration(row database.Row) (*domain.CalendarIntegration, error) {
	var (
		id, userID                              uuid.UUID
		provider                                 string
		encryptedAccessToken, encryptedRefreshToken string
		tokenExpiresAt                            time.Time
		calendarID, caldavURL, email              string
		status                                    string
		createdAt, updatedAt                      time.Time
	)
	err := row.Scan(
		&id, &userID, &provider, &encryptedAccessToken, &encryptedRefreshToken,
		&tokenExpiresAt, &calendarID, &caldavURL, &email, &status, &createdAt, &updatedAt,
	)
	if err != nil {
		if database.IsNoRows(err) {
			return nil, apperr.NotFound("calendar integration not found")
		}
		return nil, apperr.Wrap(apperr.KindTransient, "failed to scan calendar integration", err)
	}
	return domain.RehydrateCalendarIntegration(
		id, userID, domain.ProviderType(provider),
		encryptedAccessToken, encryptedRefreshToken, tokenExpiresAt,
		calendarID, caldavURL, email, domain.Status(status), createdAt, updatedAt, 0,
	), nil
}
