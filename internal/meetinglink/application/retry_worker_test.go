package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/skillswap/sessionengine/internal/meetinglink/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRepo struct {
	links map[uuid.UUID]*domain.PendingLink
}

func newFakeRepo() *fakeRepo { return &fakeRepo{links: map[uuid.UUID]*domain.PendingLink{}} }

func (f *fakeRepo) Save(ctx context.Context, link *domain.PendingLink) error {
	f.links[link.ID()] = link
	return nil
}

func (f *fakeRepo) ClaimDue(ctx context.Context, asOf time.Time, limit int) ([]*domain.PendingLink, error) {
	var out []*domain.PendingLink
	for _, l := range f.links {
		if l.Status() == domain.PendingLinkStatusQueued && !l.NextAttemptAt().After(asOf) {
			out = append(out, l)
			if len(out) >= limit {
				break
			}
		}
	}
	return out, nil
}

func (f *fakeRepo) FindByAppointmentID(ctx context.Context, appointmentID uuid.UUID) (*domain.PendingLink, error) {
	for _, l := range f.links {
		if l.AppointmentID() == appointmentID {
			return l, nil
		}
	}
	return nil, errors.New("not found")
}

type fakeGenerator struct {
	fail bool
	url  string
}

func (g *fakeGenerator) GenerateMeetingLink(ctx context.Context, appointmentID uuid.UUID) (string, error) {
	if g.fail {
		return "", errors.New("provider unavailable")
	}
	return g.url, nil
}

type fakeSetter struct {
	set    map[uuid.UUID]string
	failed map[uuid.UUID]string
}

func newFakeSetter() *fakeSetter {
	return &fakeSetter{set: map[uuid.UUID]string{}, failed: map[uuid.UUID]string{}}
}

func (s *fakeSetter) SetMeetingLink(ctx context.Context, appointmentID uuid.UUID, link string) error {
	s.set[appointmentID] = link
	return nil
}

func (s *fakeSetter) MarkMeetingLinkFailed(ctx context.Context, appointmentID uuid.UUID, reason string) error {
	s.failed[appointmentID] = reason
	return nil
}

func TestRetryWorker_ProcessOnce_SuccessSetsLink(t *testing.T) {
	repo := newFakeRepo()
	appointmentID := uuid.New()
	link := domain.NewPendingLink(appointmentID, time.Now().UTC())
	require.NoError(t, repo.Save(context.Background(), link))

	setter := newFakeSetter()
	worker := NewRetryWorker(repo, &fakeGenerator{url: "https://meet.example/abc"}, setter, nil)

	worker.ProcessOnce(context.Background())

	assert.Equal(t, domain.PendingLinkStatusDone, repo.links[link.ID()].Status())
	assert.Equal(t, "https://meet.example/abc", setter.set[appointmentID])
}

func TestRetryWorker_ProcessOnce_FailureSchedulesRetry(t *testing.T) {
	repo := newFakeRepo()
	appointmentID := uuid.New()
	link := domain.NewPendingLink(appointmentID, time.Now().UTC())
	require.NoError(t, repo.Save(context.Background(), link))

	worker := NewRetryWorker(repo, &fakeGenerator{fail: true}, newFakeSetter(), nil)
	worker.ProcessOnce(context.Background())

	stored := repo.links[link.ID()]
	assert.Equal(t, domain.PendingLinkStatusQueued, stored.Status())
	assert.Equal(t, 1, stored.Attempts())
	assert.True(t, stored.NextAttemptAt().After(time.Now().UTC()))
}

func TestRetryWorker_ProcessOnce_AbandonsAfterMaxAttempts(t *testing.T) {
	repo := newFakeRepo()
	appointmentID := uuid.New()
	link := domain.NewPendingLink(appointmentID, time.Now().UTC())
	for i := 0; i < MaxAttempts-1; i++ {
		link.ScheduleRetry(errors.New("boom"), time.Now().UTC(), time.Now().UTC())
	}
	require.NoError(t, repo.Save(context.Background(), link))

	setter := newFakeSetter()
	worker := NewRetryWorker(repo, &fakeGenerator{fail: true}, setter, nil)
	worker.ProcessOnce(context.Background())

	stored := repo.links[link.ID()]
	assert.Equal(t, domain.PendingLinkStatusFailed, stored.Status())
	assert.NotEmpty(t, setter.failed[appointmentID])
}

func TestRetryWorker_Backoff_CapsAtMax(t *testing.T) {
	w := NewRetryWorker(nil, nil, nil, nil)
	d := w.backoff(20)
	assert.LessOrEqual(t, d, RetryBackoffMax+time.Duration(float64(RetryBackoffMax)*jitterFraction))
}
