// Package application runs the meeting-link Retry Worker: a cooperative
// poll loop grounded on outbox.Processor's own Start/Stop/backoff shape,
// retrying meeting-link generation with a geometric backoff and jitter
// instead of the outbox's fixed retry schedule.
package application

import (
	"context"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/skillswap/sessionengine/internal/meetinglink/domain"
	"github.com/skillswap/sessionengine/internal/shared/infrastructure/convert"
)

// PollInterval is the worker's fixed poll cadence.
const PollInterval = 10 * time.Second

// RetryBackoffBase and RetryBackoffMax bound the geometric backoff applied
// between failed attempts, per SPEC_FULL.md's 30s base / 30min cap.
const (
	RetryBackoffBase = 30 * time.Second
	RetryBackoffMax  = 30 * time.Minute
	jitterFraction   = 0.20
)

// BatchSize is how many due links are claimed per poll.
const BatchSize = 50

// MaxAttempts abandons a link after this many failed attempts: the
// PendingLink is marked Failed and AppointmentLinkSetter.MarkMeetingLinkFailed
// is called instead of scheduling another retry.
const MaxAttempts = 10

// Generator calls out to a meeting-link provider (e.g. Zoom/Meet) for one
// appointment. Collaborator contract only; the provider integration lives
// outside this module's scope.
type Generator interface {
	GenerateMeetingLink(ctx context.Context, appointmentID uuid.UUID) (string, error)
}

// AppointmentLinkSetter records a successfully generated link on its
// appointment. The RetryWorker calls it after saving the PendingLink as
// done; the two writes do not share a transaction.
type AppointmentLinkSetter interface {
	SetMeetingLink(ctx context.Context, appointmentID uuid.UUID, link string) error
	MarkMeetingLinkFailed(ctx context.Context, appointmentID uuid.UUID, reason string) error
}

// RetryWorker is the Meeting Link retry loop described in SPEC_FULL.md §4.4.
type RetryWorker struct {
	repo      domain.Repository
	generator Generator
	setter    AppointmentLinkSetter
	logger    *slog.Logger

	wg       sync.WaitGroup
	stopChan chan struct{}
	running  bool
	mu       sync.Mutex
}

// NewRetryWorker constructs a RetryWorker.
func NewRetryWorker(repo domain.Repository, generator Generator, setter AppointmentLinkSetter, logger *slog.Logger) *RetryWorker {
	if logger == nil {
		logger = slog.Default()
	}
	return &RetryWorker{
		repo:      repo,
		generator: generator,
		setter:    setter,
		logger:    logger,
		stopChan:  make(chan struct{}),
	}
}

// Start begins the polling loop in a goroutine.
func (w *RetryWorker) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.stopChan = make(chan struct{})
	w.mu.Unlock()

	w.wg.Add(1)
	go w.run(ctx)

	w.logger.Info("meeting link retry worker started", "poll_interval", PollInterval)
	return nil
}

// Stop gracefully stops the worker.
func (w *RetryWorker) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	close(w.stopChan)
	w.mu.Unlock()

	w.wg.Wait()
	w.logger.Info("meeting link retry worker stopped")
}

// IsRunning reports whether the worker's loop is active.
func (w *RetryWorker) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

func (w *RetryWorker) run(ctx context.Context) {
	defer w.wg.Done()

	ticker := time.NewTicker(PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopChan:
			return
		case <-ticker.C:
			w.ProcessOnce(ctx)
		}
	}
}

// ProcessOnce runs a single poll pass synchronously (useful for testing).
func (w *RetryWorker) ProcessOnce(ctx context.Context) {
	now := time.Now().UTC()
	due, err := w.repo.ClaimDue(ctx, now, BatchSize)
	if err != nil {
		w.logger.Error("failed to claim due meeting links", "error", err)
		return
	}
	for _, link := range due {
		w.attempt(ctx, link, now)
	}
}

func (w *RetryWorker) attempt(ctx context.Context, link *domain.PendingLink, now time.Time) {
	url, err := w.generator.GenerateMeetingLink(ctx, link.AppointmentID())
	if err != nil {
		if link.Attempts()+1 >= MaxAttempts {
			link.MarkFailed(err, now)
			if saveErr := w.repo.Save(ctx, link); saveErr != nil {
				w.logger.Error("failed to persist abandoned meeting link", "error", saveErr)
			}
			if setErr := w.setter.MarkMeetingLinkFailed(ctx, link.AppointmentID(), err.Error()); setErr != nil {
				w.logger.Error("failed to record meeting link failure", "error", setErr)
			}
			return
		}
		link.ScheduleRetry(err, now.Add(w.backoff(link.Attempts()+1)), now)
		if saveErr := w.repo.Save(ctx, link); saveErr != nil {
			w.logger.Error("failed to persist meeting link retry", "error", saveErr)
		}
		return
	}

	link.MarkDone(now)
	if err := w.repo.Save(ctx, link); err != nil {
		w.logger.Error("failed to persist completed meeting link", "error", err)
		return
	}
	if err := w.setter.SetMeetingLink(ctx, link.AppointmentID(), url); err != nil {
		w.logger.Error("failed to set appointment meeting link", "error", err)
	}
}

// backoff computes a geometric delay capped at RetryBackoffMax, with ±20%
// jitter, matching outbox.Processor.retryBackoff's shape.
func (w *RetryWorker) backoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	backoff := RetryBackoffBase * time.Duration(1<<convert.IntToUintSafe(attempt-1))
	if backoff > RetryBackoffMax {
		backoff = RetryBackoffMax
	}
	jitter := float64(backoff) * jitterFraction * (2*rand.Float64() - 1)
	return backoff + time.Duration(jitter)
}
