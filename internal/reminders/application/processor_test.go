package application_test

import (
	"context"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skillswap/sessionengine/internal/reminders/application"
	"github.com/skillswap/sessionengine/internal/reminders/domain"
	"github.com/skillswap/sessionengine/internal/reminders/infrastructure/persistence"
	"github.com/skillswap/sessionengine/internal/shared/infrastructure/database"
	_ "github.com/skillswap/sessionengine/internal/shared/infrastructure/database/sqlite"
	"github.com/skillswap/sessionengine/internal/shared/infrastructure/migrations"
)

// countingNotifier records which reminder/recipient pairs it was asked to
// notify, so a test can assert every pending reminder was dispatched exactly
// once even when claimed by more than one Processor.
type countingNotifier struct {
	mu    sync.Mutex
	calls int
}

func (n *countingNotifier) Notify(ctx context.Context, reminderType domain.ReminderType, contact application.ContactInfo, snapshot domain.Snapshot) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls++
	return nil
}

type noopContactLookup struct{}

func (noopContactLookup) Lookup(ctx context.Context, userID uuid.UUID) (application.ContactInfo, error) {
	return application.ContactInfo{}, nil
}

// neverTerminalChecker reports every appointment as still active, so claimed
// reminders always proceed to dispatch in this test.
type neverTerminalChecker struct{}

func (neverTerminalChecker) IsTerminal(ctx context.Context, appointmentID uuid.UUID) (bool, error) {
	return false, nil
}

// S6: two Processor instances sharing one underlying store each poll
// concurrently; ClaimDue's conditional "WHERE status = 'Pending'" update
// must ensure every due reminder is claimed, and therefore notified,
// exactly once.
func TestProcessor_ConcurrentClaimIsExactlyOnce(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	conn, err := database.NewConnection(ctx, database.Config{
		Driver:     database.DriverSQLite,
		SQLitePath: filepath.Join(dir, "test.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	require.NoError(t, migrations.Run(ctx, conn))

	repo := persistence.NewScheduledReminderRepository(conn)

	const reminderCount = 10
	now := time.Now().UTC()
	for i := 0; i < reminderCount; i++ {
		reminder, err := domain.NewScheduledReminder(domain.NewScheduledReminderParams{
			AppointmentID: uuid.New(),
			UserID:        uuid.New(),
			ReminderType:  domain.ReminderTypeEmail,
			MinutesBefore: 30,
			ScheduledFor:  now.Add(-time.Minute),
			Snapshot:      domain.Snapshot{},
		})
		require.NoError(t, err)
		require.NoError(t, repo.Save(ctx, reminder))
	}

	notifier := &countingNotifier{}
	checker := neverTerminalChecker{}

	procA := application.NewProcessor(repo, noopContactLookup{}, notifier, checker, "worker-a", nil)
	procB := application.NewProcessor(repo, noopContactLookup{}, notifier, checker, "worker-b", nil)

	var wg sync.WaitGroup
	var claimedTotal int64
	wg.Add(2)
	for _, p := range []*application.Processor{procA, procB} {
		p := p
		go func() {
			defer wg.Done()
			p.ProcessOnce(ctx)
			atomic.AddInt64(&claimedTotal, int64(p.GetStats().SentCount))
		}()
	}
	wg.Wait()

	remaining, err := repo.CountDue(ctx, now)
	require.NoError(t, err)
	assert.Zero(t, remaining, "every due reminder should have been claimed by one of the two processors")

	assert.Equal(t, reminderCount, notifier.calls, "each reminder must be notified exactly once across both processors")
	assert.EqualValues(t, reminderCount, claimedTotal, "the sent counts across both processors must sum to the seeded reminder count")
}
