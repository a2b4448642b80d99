package domain

import (
	"time"

	sharedDomain "github.com/skillswap/sessionengine/internal/shared/domain"
	"github.com/skillswap/sessionengine/internal/shared/apperr"
	"github.com/google/uuid"
)

// ConnectionType identifies how two parties compensate each other.
type ConnectionType string

const (
	ConnectionTypeSkillExchange ConnectionType = "SkillExchange"
	ConnectionTypePayment       ConnectionType = "Payment"
	ConnectionTypeFree          ConnectionType = "Free"
)

// Connection is the agreement between two users to run a bounded course of
// tutoring sessions. It owns one or two SessionSeries.
type Connection struct {
	sharedDomain.BaseAggregateRoot

	matchRequestID       string
	requesterID          uuid.UUID
	targetUserID         uuid.UUID
	connectionType       ConnectionType
	skillID              string
	exchangeSkillID      string
	paymentRatePerHour   float64
	currency             string
	totalSessionsPlanned int
	totalSessionsCompleted int
	balanceMinutes       int
	closedAt             *time.Time
	isDeleted            bool
	deletedAt            *time.Time
}

// NewConnectionParams bundles the fields required to materialize a Connection.
type NewConnectionParams struct {
	MatchRequestID       string
	RequesterID          uuid.UUID
	TargetUserID         uuid.UUID
	ConnectionType       ConnectionType
	SkillID              string
	ExchangeSkillID      string
	PaymentRatePerHour   float64
	Currency             string
	TotalSessionsPlanned int
}

// NewConnection validates and constructs a Connection, emitting ConnectionCreated.
func NewConnection(p NewConnectionParams) (*Connection, error) {
	if p.MatchRequestID == "" {
		return nil, apperr.InvalidInput("matchRequestId is required")
	}
	if p.RequesterID == uuid.Nil || p.TargetUserID == uuid.Nil {
		return nil, apperr.InvalidInput("requesterId and targetUserId are required")
	}
	if p.RequesterID == p.TargetUserID {
		return nil, apperr.InvalidInput("requesterId and targetUserId must be distinct")
	}
	if p.TotalSessionsPlanned < 1 || p.TotalSessionsPlanned > 52 {
		return nil, apperr.InvalidInput("totalSessions must be in [1, 52]")
	}
	switch p.ConnectionType {
	case ConnectionTypeSkillExchange:
		if p.ExchangeSkillID == "" {
			return nil, apperr.InvalidInput("exchangeSkillId is required for SkillExchange connections")
		}
	case ConnectionTypePayment:
		if p.PaymentRatePerHour <= 0 || p.Currency == "" {
			return nil, apperr.InvalidInput("paymentRatePerHour and currency are required for Payment connections")
		}
	case ConnectionTypeFree:
		// no additional fields required
	default:
		return nil, apperr.InvalidInput("unknown connection type")
	}

	c := &Connection{
		BaseAggregateRoot:    sharedDomain.NewBaseAggregateRoot(),
		matchRequestID:       p.MatchRequestID,
		requesterID:          p.RequesterID,
		targetUserID:         p.TargetUserID,
		connectionType:       p.ConnectionType,
		skillID:              p.SkillID,
		exchangeSkillID:      p.ExchangeSkillID,
		paymentRatePerHour:   p.PaymentRatePerHour,
		currency:             p.Currency,
		totalSessionsPlanned: p.TotalSessionsPlanned,
	}

	c.AddDomainEvent(NewConnectionCreatedEvent(
		c.ID(), p.RequesterID, p.TargetUserID, p.ConnectionType, p.SkillID, p.TotalSessionsPlanned,
	))

	return c, nil
}

func (c *Connection) MatchRequestID() string           { return c.matchRequestID }
func (c *Connection) RequesterID() uuid.UUID           { return c.requesterID }
func (c *Connection) TargetUserID() uuid.UUID          { return c.targetUserID }
func (c *Connection) ConnectionType() ConnectionType   { return c.connectionType }
func (c *Connection) SkillID() string                  { return c.skillID }
func (c *Connection) ExchangeSkillID() string          { return c.exchangeSkillID }
func (c *Connection) PaymentRatePerHour() float64      { return c.paymentRatePerHour }
func (c *Connection) Currency() string                 { return c.currency }
func (c *Connection) TotalSessionsPlanned() int        { return c.totalSessionsPlanned }
func (c *Connection) TotalSessionsCompleted() int      { return c.totalSessionsCompleted }
func (c *Connection) BalanceMinutes() int              { return c.balanceMinutes }
func (c *Connection) ClosedAt() *time.Time             { return c.closedAt }
func (c *Connection) IsClosed() bool                   { return c.closedAt != nil }
func (c *Connection) IsDeleted() bool                  { return c.isDeleted }
func (c *Connection) DeletedAt() *time.Time            { return c.deletedAt }

// RecordSessionCompletion increments the completion counter, adjusts the
// teaching balance for SkillExchange connections and closes the Connection
// once every planned session has completed.
func (c *Connection) RecordSessionCompletion(teacherIsRequester bool, durationMinutes int) {
	c.totalSessionsCompleted++
	if c.connectionType == ConnectionTypeSkillExchange {
		if teacherIsRequester {
			c.balanceMinutes += durationMinutes
		} else {
			c.balanceMinutes -= durationMinutes
		}
	}
	if c.totalSessionsCompleted >= c.totalSessionsPlanned {
		now := time.Now().UTC()
		c.closedAt = &now
	}
	c.Touch()
}

// Close marks the Connection closed outside the normal completion count,
// e.g. an administrative close.
func (c *Connection) Close() {
	if c.closedAt == nil {
		now := time.Now().UTC()
		c.closedAt = &now
		c.Touch()
	}
}

// RehydrateConnection reconstructs a Connection from persisted state without
// emitting domain events.
func RehydrateConnection(
	id uuid.UUID,
	matchRequestID string,
	requesterID, targetUserID uuid.UUID,
	connectionType ConnectionType,
	skillID, exchangeSkillID string,
	paymentRatePerHour float64,
	currency string,
	totalSessionsPlanned, totalSessionsCompleted, balanceMinutes int,
	closedAt *time.Time,
	isDeleted bool,
	deletedAt *time.Time,
	createdAt, updatedAt time.Time,
	version int,
) *Connection {
	baseEntity := sharedDomain.RehydrateBaseEntity(id, createdAt, updatedAt)
	return &Connection{
		BaseAggregateRoot:      sharedDomain.RehydrateBaseAggregateRoot(baseEntity, version),
		matchRequestID:         matchRequestID,
		requesterID:            requesterID,
		targetUserID:           targetUserID,
		connectionType:         connectionType,
		skillID:                skillID,
		exchangeSkillID:        exchangeSkillID,
		paymentRatePerHour:     paymentRatePerHour,
		currency:               currency,
		totalSessionsPlanned:   totalSessionsPlanned,
		totalSessionsCompleted: totalSessionsCompleted,
		balanceMinutes:         balanceMinutes,
		closedAt:               closedAt,
		isDeleted:              isDeleted,
		deletedAt:               deletedAt,
	}
}
