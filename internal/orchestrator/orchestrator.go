// Package orchestrator implements the Session Orchestrator: the
// transactional, idempotent command surface described in SPEC_FULL.md §4.1,
// composing the sessions/scheduling/reminders/calendar/meetinglink bounded
// contexts. Every command runs inside a single UnitOfWork, writes its
// aggregate(s) and its domain events to the outbox in the same transaction,
// and is guarded by an idempotency key so a retried command is a no-op.
package orchestrator

import (
	"context"
	"log/slog"
	"time"

	calendarDomain "github.com/skillswap/sessionengine/internal/calendar/domain"
	meetinglinkDomain "github.com/skillswap/sessionengine/internal/meetinglink/domain"
	remindersDomain "github.com/skillswap/sessionengine/internal/reminders/domain"
	sessionsDomain "github.com/skillswap/sessionengine/internal/sessions/domain"
	sharedApp "github.com/skillswap/sessionengine/internal/shared/application"
	"github.com/skillswap/sessionengine/internal/shared/apperr"
	sharedDomain "github.com/skillswap/sessionengine/internal/shared/domain"
	"github.com/skillswap/sessionengine/internal/shared/infrastructure/crypto"
	"github.com/skillswap/sessionengine/internal/shared/infrastructure/outbox"
)

// IdempotencyStore guards commands against duplicate execution. Reserve
// must be implemented as an atomic insert-or-conflict against a unique key
// column within the caller's transaction: a duplicate key means another
// invocation with the same idempotency key already ran (or is running) and
// this call should be treated as a no-op success.
type IdempotencyStore interface {
	Reserve(ctx context.Context, key string) (alreadyReserved bool, err error)
}

// Orchestrator wires the bounded contexts behind SPEC_FULL.md's command
// table. Every method begins a UnitOfWork, mutates aggregates, stages
// domain events to the outbox, and commits as one atomic unit.
type Orchestrator struct {
	uow sharedApp.UnitOfWork

	connections sessionsDomain.ConnectionRepository
	series      sessionsDomain.SessionSeriesRepository
	appointments sessionsDomain.AppointmentRepository

	reminderSettings remindersDomain.ReminderSettingsRepository
	reminders        remindersDomain.ScheduledReminderRepository

	calendars calendarDomain.Repository
	adapters  map[calendarDomain.ProviderType]calendarDomain.Adapter

	pendingLinks meetinglinkDomain.Repository

	outboxRepo  outbox.Repository
	idempotency IdempotencyStore
	encrypter   crypto.Encrypter

	logger *slog.Logger
}

// Deps bundles every collaborator the Orchestrator needs.
type Deps struct {
	UnitOfWork       sharedApp.UnitOfWork
	Connections      sessionsDomain.ConnectionRepository
	Series           sessionsDomain.SessionSeriesRepository
	Appointments     sessionsDomain.AppointmentRepository
	ReminderSettings remindersDomain.ReminderSettingsRepository
	Reminders        remindersDomain.ScheduledReminderRepository
	Calendars        calendarDomain.Repository
	Adapters         map[calendarDomain.ProviderType]calendarDomain.Adapter
	PendingLinks     meetinglinkDomain.Repository
	Outbox           outbox.Repository
	Idempotency      IdempotencyStore
	Encrypter        crypto.Encrypter
	Logger           *slog.Logger
}

// New constructs an Orchestrator.
func New(d Deps) *Orchestrator {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		uow:              d.UnitOfWork,
		connections:      d.Connections,
		series:           d.Series,
		appointments:     d.Appointments,
		reminderSettings: d.ReminderSettings,
		reminders:        d.Reminders,
		calendars:        d.Calendars,
		adapters:         d.Adapters,
		pendingLinks:     d.PendingLinks,
		outboxRepo:       d.Outbox,
		idempotency:      d.Idempotency,
		encrypter:        d.Encrypter,
		logger:           logger,
	}
}

// withTx reserves the idempotency key, runs fn inside a UnitOfWork, and
// stages every event fn returns onto the outbox in the same transaction.
// A reserved-already key short-circuits to a no-op success, matching
// SPEC_FULL.md's "retried command is a no-op" requirement.
func (o *Orchestrator) withTx(ctx context.Context, idempotencyKey string, fn func(ctx context.Context) ([]sharedDomain.DomainEvent, error)) error {
	return sharedApp.WithUnitOfWork(ctx, o.uow, func(txCtx context.Context) error {
		if o.idempotency != nil && idempotencyKey != "" {
			already, err := o.idempotency.Reserve(txCtx, idempotencyKey)
			if err != nil {
				return apperr.Wrap(apperr.KindTransient, "failed to reserve idempotency key", err)
			}
			if already {
				return nil
			}
		}

		events, err := fn(txCtx)
		if err != nil {
			return err
		}
		return o.stageEvents(txCtx, events)
	})
}

func (o *Orchestrator) stageEvents(ctx context.Context, events []sharedDomain.DomainEvent) error {
	if len(events) == 0 || o.outboxRepo == nil {
		return nil
	}
	msgs := make([]*outbox.Message, 0, len(events))
	for _, event := range events {
		msg, err := outbox.NewMessage(event)
		if err != nil {
			return apperr.Wrap(apperr.KindFatal, "failed to marshal domain event", err)
		}
		msgs = append(msgs, msg)
	}
	if err := o.outboxRepo.SaveBatch(ctx, msgs); err != nil {
		return apperr.Wrap(apperr.KindTransient, "failed to stage outbox messages", err)
	}
	return nil
}

// adapterFor looks up the connected Adapter for a user's provider, or
// apperr.NotFound if nothing is wired for it.
func (o *Orchestrator) adapterFor(provider calendarDomain.ProviderType) (calendarDomain.Adapter, error) {
	a, ok := o.adapters[provider]
	if !ok {
		return nil, apperr.NotFound("no calendar adapter configured for provider " + string(provider))
	}
	return a, nil
}

func now() time.Time { return time.Now().UTC() }
