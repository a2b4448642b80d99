// Package application runs the Reminder Processor: a single cooperative
// loop that claims due ScheduledReminders and dispatches them, grounded on
// the shape of the outbox processor's own poll/backoff/stats loop.
package application

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/skillswap/sessionengine/internal/reminders/domain"
)

// TickInterval is the processor's fixed poll cadence.
const TickInterval = 30 * time.Second

// BacklogThreshold triggers batch processing with an immediate follow-up
// tick instead of waiting for the next scheduled tick.
const BacklogThreshold = 1000

// BatchSize is how many rows are claimed per processing pass once the
// backlog threshold is crossed.
const BatchSize = 100

// ContactInfo is the recipient data resolved from the external user service.
type ContactInfo struct {
	Email string
	Phone string
	Push  string
}

// ContactLookup resolves a recipient's contact info. Collaborator contract
// only; the identity service lives outside this module's scope.
type ContactLookup interface {
	Lookup(ctx context.Context, userID uuid.UUID) (ContactInfo, error)
}

// Notifier dispatches a formatted reminder on its channel. Collaborator
// contract only; the notification subsystem lives outside this module's
// scope.
type Notifier interface {
	Notify(ctx context.Context, reminderType domain.ReminderType, contact ContactInfo, snapshot domain.Snapshot) error
}

// AppointmentStatusChecker reports whether an appointment has already
// reached a terminal state, guarding the race between dispatch and
// cancel/reschedule/no-show.
type AppointmentStatusChecker interface {
	IsTerminal(ctx context.Context, appointmentID uuid.UUID) (bool, error)
}

// Processor is the Reminder Processor described in the component design.
type Processor struct {
	repo     domain.ScheduledReminderRepository
	contacts ContactLookup
	notifier Notifier
	statuses AppointmentStatusChecker
	workerID string
	logger   *slog.Logger

	wg       sync.WaitGroup
	stopChan chan struct{}
	running  bool
	mu       sync.Mutex

	statsMu sync.Mutex
	stats   Stats
}

// Stats mirrors the outbox processor's observability surface.
type Stats struct {
	IsRunning       bool
	SentCount       uint64
	FailedCount     uint64
	CancelledCount  uint64
	LastError       string
	LastErrorAt     *time.Time
	LastProcessedAt *time.Time
}

// NewProcessor constructs a Processor. workerID identifies this process for
// the claim's conditional update audit trail.
func NewProcessor(repo domain.ScheduledReminderRepository, contacts ContactLookup, notifier Notifier, statuses AppointmentStatusChecker, workerID string, logger *slog.Logger) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{
		repo:     repo,
		contacts: contacts,
		notifier: notifier,
		statuses: statuses,
		workerID: workerID,
		logger:   logger,
		stopChan: make(chan struct{}),
	}
}

// Start begins the polling loop in a goroutine.
func (p *Processor) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return nil
	}
	p.running = true
	p.stopChan = make(chan struct{})
	p.mu.Unlock()

	p.wg.Add(1)
	go p.run(ctx)

	p.logger.Info("reminder processor started", "tick_interval", TickInterval)
	return nil
}

// Stop gracefully stops the processor.
func (p *Processor) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.running = false
	close(p.stopChan)
	p.mu.Unlock()

	p.wg.Wait()
	p.logger.Info("reminder processor stopped")
}

// IsRunning reports whether the processor's loop is active.
func (p *Processor) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

func (p *Processor) run(ctx context.Context) {
	defer p.wg.Done()

	ticker := time.NewTicker(TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-p.stopChan:
			return
		case <-ticker.C:
			p.tick(ctx)
		}
	}
}

// tick processes one pass. If the backlog exceeds BacklogThreshold it keeps
// processing BatchSize-sized batches back-to-back instead of sleeping until
// the next ticker fire.
func (p *Processor) tick(ctx context.Context) {
	now := time.Now().UTC()

	due, err := p.repo.CountDue(ctx, now)
	if err != nil {
		p.recordError(err)
		p.logger.Error("failed to count due reminders", "error", err)
		return
	}
	if due == 0 {
		return
	}

	batchSize := due
	if due > BacklogThreshold {
		batchSize = BatchSize
	}

	for {
		claimed, err := p.repo.ClaimDue(ctx, now, batchSize, p.workerID)
		if err != nil {
			p.recordError(err)
			p.logger.Error("failed to claim due reminders", "error", err)
			return
		}
		if len(claimed) == 0 {
			return
		}

		p.dispatchBatch(ctx, claimed)

		if due <= BacklogThreshold {
			return
		}
		// Backlog was large: immediately re-tick rather than sleeping.
		remaining, err := p.repo.CountDue(ctx, now)
		if err != nil || remaining == 0 {
			return
		}
		due = remaining
	}
}

func (p *Processor) dispatchBatch(ctx context.Context, reminders []*domain.ScheduledReminder) {
	p.statsMu.Lock()
	now := time.Now()
	p.stats.LastProcessedAt = &now
	p.statsMu.Unlock()

	for _, r := range reminders {
		p.dispatchOne(ctx, r)
	}
}

func (p *Processor) dispatchOne(ctx context.Context, r *domain.ScheduledReminder) {
	if p.statuses != nil {
		terminal, err := p.statuses.IsTerminal(ctx, r.AppointmentID())
		if err == nil && terminal {
			r.Cancel()
			if saveErr := p.repo.Save(ctx, r); saveErr != nil {
				p.logger.Error("failed to persist cancelled reminder", "reminder_id", r.ID(), "error", saveErr)
			}
			p.recordCancelled()
			return
		}
	}

	contact, err := p.contacts.Lookup(ctx, r.UserID())
	if err != nil {
		r.MarkFailed(err.Error())
		p.saveFailed(ctx, r)
		return
	}

	snapshot := r.Snapshot()
	if err := p.notifier.Notify(ctx, r.ReminderType(), contact, snapshot); err != nil {
		r.MarkFailed(err.Error())
		p.saveFailed(ctx, r)
		return
	}

	r.MarkSent(time.Now().UTC())
	if err := p.repo.Save(ctx, r); err != nil {
		p.logger.Error("failed to persist sent reminder", "reminder_id", r.ID(), "error", err)
		return
	}
	p.recordSent()
}

func (p *Processor) saveFailed(ctx context.Context, r *domain.ScheduledReminder) {
	if err := p.repo.Save(ctx, r); err != nil {
		p.logger.Error("failed to persist failed reminder", "reminder_id", r.ID(), "error", err)
	}
	p.recordFailed(r.ErrorMessage())
}

// ProcessOnce runs a single tick synchronously (useful for testing).
func (p *Processor) ProcessOnce(ctx context.Context) {
	p.tick(ctx)
}

// GetStats returns current processor statistics.
func (p *Processor) GetStats() Stats {
	p.statsMu.Lock()
	defer p.statsMu.Unlock()
	return Stats{
		IsRunning:       p.IsRunning(),
		SentCount:       p.stats.SentCount,
		FailedCount:     p.stats.FailedCount,
		CancelledCount:  p.stats.CancelledCount,
		LastError:       p.stats.LastError,
		LastErrorAt:     p.stats.LastErrorAt,
		LastProcessedAt: p.stats.LastProcessedAt,
	}
}

func (p *Processor) recordSent() {
	p.statsMu.Lock()
	defer p.statsMu.Unlock()
	p.stats.SentCount++
}

func (p *Processor) recordFailed(msg string) {
	p.statsMu.Lock()
	defer p.statsMu.Unlock()
	p.stats.FailedCount++
	now := time.Now()
	p.stats.LastError = msg
	p.stats.LastErrorAt = &now
}

func (p *Processor) recordCancelled() {
	p.statsMu.Lock()
	defer p.statsMu.Unlock()
	p.stats.CancelledCount++
}

func (p *Processor) recordError(err error) {
	p.statsMu.Lock()
	defer p.statsMu.Unlock()
	now := time.Now()
	p.stats.LastError = err.Error()
	p.stats.LastErrorAt = &now
}
