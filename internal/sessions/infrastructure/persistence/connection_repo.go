// Package persistence implements the sessions bounded context's repositories
// on top of the driver-agnostic database.Connection, so the same query
// templates run against both PostgreSQL and SQLite.
package persistence

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	domain "github.com/skillswap/sessionengine/internal/sessions/domain"
	"github.com/skillswap/sessionengine/internal/shared/apperr"
	"github.com/skillswap/sessionengine/internal/shared/infrastructure/database"
)

// ConnectionRepository persists Connection aggregates.
type ConnectionRepository struct {
	conn database.Connection
}

// NewConnectionRepository constructs a ConnectionRepository.
func NewConnectionRepository(conn database.Connection) *ConnectionRepository {
	return &ConnectionRepository{conn: conn}
}

// Save upserts a Connection by id.
func (r *ConnectionRepository) Save(ctx context.Context, c *domain.Connection) error {
	query := fmt.Sprintf(`
		INSERT INTO connections (
			id, match_request_id, requester_id, target_user_id, connection_type,
			skill_id, exchange_skill_id, payment_rate_per_hour, currency,
			total_sessions_planned, total_sessions_completed, balance_minutes,
			closed_at, is_deleted, deleted_at, created_at, updated_at
		) VALUES (%s)
		ON CONFLICT (id) DO UPDATE SET
			total_sessions_completed = EXCLUDED.total_sessions_completed,
			balance_minutes = EXCLUDED.balance_minutes,
			closed_at = EXCLUDED.closed_at,
			is_deleted = EXCLUDED.is_deleted,
			deleted_at = EXCLUDED.deleted_at,
			updated_at = EXCLUDED.updated_at
	`, database.ValuesClause(r.conn.Driver(), 17))

	exec := database.ExecutorFromContext(ctx, r.conn)
	_, err := exec.Exec(ctx, query,
		c.ID(), c.MatchRequestID(), c.RequesterID(), c.TargetUserID(), string(c.ConnectionType()),
		c.SkillID(), c.ExchangeSkillID(), c.PaymentRatePerHour(), c.Currency(),
		c.TotalSessionsPlanned(), c.TotalSessionsCompleted(), c.BalanceMinutes(),
		c.ClosedAt(), c.IsDeleted(), c.DeletedAt(), c.CreatedAt(), time.Now().UTC(),
	)
	if err != nil {
		return apperr.Wrap(apperr.KindTransient, "failed to save connection", err)
	}
	return nil
}

func (r *ConnectionRepository) findOne(ctx context.Context, where string, arg any) (*domain.Connection, error) {
	query := fmt.Sprintf(`
		SELECT id, match_request_id, requester_id, target_user_id, connection_type,
		       skill_id, exchange_skill_id, payment_rate_per_hour, currency,
		       total_sessions_planned, total_sessions_completed, balance_minutes,
		       closed_at, is_deleted, deleted_at, created_at, updated_at
		FROM connections
		WHERE %s
	`, where)

	exec := database.ExecutorFromContext(ctx, r.conn)
	row := exec.QueryRow(ctx, query, arg)
	return scanConnection(row)
}

// FindByID returns the Connection unless it has been soft-deleted.
func (r *ConnectionRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Connection, error) {
	p := database.Placeholder(r.conn.Driver(), 1)
	c, err := r.findOne(ctx, fmt.Sprintf("id = %s AND is_deleted = false", p), id)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// FindByIDWithDeleted returns the Connection regardless of soft-delete state.
func (r *ConnectionRepository) FindByIDWithDeleted(ctx context.Context, id uuid.UUID) (*domain.Connection, error) {
	p := database.Placeholder(r.conn.Driver(), 1)
	return r.findOne(ctx, fmt.Sprintf("id = %s", p), id)
}

// FindByMatchRequestID supports the idempotent-create check in
// CreateSessionHierarchyFromMatch.
func (r *ConnectionRepository) FindByMatchRequestID(ctx context.Context, matchRequestID string) (*domain.Connection, error) {
	p := database.Placeholder(r.conn.Driver(), 1)
	return r.findOne(ctx, fmt.Sprintf("match_request_id = %s", p), matchRequestID)
}

func scanConnection(row database.Row) (*domain.Connection, error) {
	var (
		id, requesterID, targetUserID                        uuid.UUID
		matchRequestID, connectionType, skillID, exchangeSkillID, currency string
		paymentRatePerHour                                    float64
		totalSessionsPlanned, totalSessionsCompleted, balanceMinutes int
		closedAt, deletedAt                                   *time.Time
		isDeleted                                             bool
		createdAt, updatedAt                                  time.Time
	)
	err := row.Scan(
		&id, &matchRequestID, &requesterID, &targetUserID, &connectionType,
		&skillID, &exchangeSkillID, &paymentRatePerHour, &currency,
		&totalSessionsPlanned, &totalSessionsCompleted, &balanceMinutes,
		&closedAt, &isDeleted, &deletedAt, &createdAt, &updatedAt,
	)
	if err != nil {
		if database.IsNoRows(err) {
			return nil, apperr.NotFound("connection not found")
		}
		return nil, apperr.Wrap(apperr.KindTransient, "failed to scan connection", err)
	}
	return domain.RehydrateConnection(
		id, matchRequestID, requesterID, targetUserID, domain.ConnectionType(connectionType),
		skillID, exchangeSkillID, paymentRatePerHour, currency,
		totalSessionsPlanned, totalSessionsCompleted, balanceMinutes,
		closedAt, isDeleted, deletedAt, createdAt, updatedAt, 0,
	), nil
}
