package orchestrator_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	calendarDomain "github.com/skillswap/sessionengine/internal/calendar/domain"
	meetinglinkDomain "github.com/skillswap/sessionengine/internal/meetinglink/domain"
	"github.com/skillswap/sessionengine/internal/orchestrator"
	remindersDomain "github.com/skillswap/sessionengine/internal/reminders/domain"
	remindersPersistence "github.com/skillswap/sessionengine/internal/reminders/infrastructure/persistence"
	sessionsDomain "github.com/skillswap/sessionengine/internal/sessions/domain"
	sessionsPersistence "github.com/skillswap/sessionengine/internal/sessions/infrastructure/persistence"
	"github.com/skillswap/sessionengine/internal/shared/apperr"
	"github.com/skillswap/sessionengine/internal/shared/infrastructure/crypto"
	"github.com/skillswap/sessionengine/internal/shared/infrastructure/database"
	_ "github.com/skillswap/sessionengine/internal/shared/infrastructure/database/sqlite"
	"github.com/skillswap/sessionengine/internal/shared/infrastructure/idempotency"
	"github.com/skillswap/sessionengine/internal/shared/infrastructure/migrations"
	"github.com/skillswap/sessionengine/internal/shared/infrastructure/outbox"
)

// testHarness wires a real SQLite-backed Orchestrator, the same repositories
// the worker uses in production, so these tests exercise the actual
// persistence/transaction path rather than hand-rolled fakes.
type testHarness struct {
	orch         *orchestrator.Orchestrator
	conn         database.Connection
	connections  sessionsDomain.ConnectionRepository
	series       sessionsDomain.SessionSeriesRepository
	appointments sessionsDomain.AppointmentRepository
	reminders    remindersDomain.ScheduledReminderRepository
	outboxRepo   outbox.Repository
}

func newTestHarness(t *testing.T) *testHarness {
	t.Helper()

	dir := t.TempDir()
	ctx := context.Background()

	conn, err := database.NewConnection(ctx, database.Config{
		Driver:     database.DriverSQLite,
		SQLitePath: filepath.Join(dir, "test.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	require.NoError(t, migrations.Run(ctx, conn))

	connections := sessionsPersistence.NewConnectionRepository(conn)
	series := sessionsPersistence.NewSessionSeriesRepository(conn)
	appointments := sessionsPersistence.NewAppointmentRepository(conn)
	reminderSettings := remindersPersistence.NewReminderSettingsRepository(conn)
	reminders := remindersPersistence.NewScheduledReminderRepository(conn)
	outboxRepo := outbox.NewGenericRepository(conn)
	idempotencyStore := idempotency.NewStore(conn)

	encrypter, err := crypto.NewAESGCMFromSecret("test-harness-secret")
	require.NoError(t, err)

	adapters := map[calendarDomain.ProviderType]calendarDomain.Adapter{}
	var pendingLinks meetinglinkDomain.Repository
	var calendars calendarDomain.Repository

	orch := orchestrator.New(orchestrator.Deps{
		UnitOfWork:       database.NewUnitOfWork(conn),
		Connections:      connections,
		Series:           series,
		Appointments:     appointments,
		ReminderSettings: reminderSettings,
		Reminders:        reminders,
		Calendars:        calendars,
		Adapters:         adapters,
		PendingLinks:     pendingLinks,
		Outbox:           outboxRepo,
		Idempotency:      idempotencyStore,
		Encrypter:        encrypter,
	})

	return &testHarness{
		orch:         orch,
		conn:         conn,
		connections:  connections,
		series:       series,
		appointments: appointments,
		reminders:    reminders,
		outboxRepo:   outboxRepo,
	}
}

// S1: SkillExchange split — one Connection, two Series (3/2 split), five
// appointments alternating organizer starting with the requester, first slot
// on the next Monday at 18:00 UTC.
func TestCreateSessionHierarchyFromMatch_SkillExchangeSplit(t *testing.T) {
	h := newTestHarness(t)
	ctx := context.Background()

	requester := uuid.New()
	target := uuid.New()

	// Start the search window at midnight UTC of the coming Monday.
	today := time.Now().UTC().Truncate(24 * time.Hour)
	comingMonday := today.AddDate(0, 0, 7-(int(today.Weekday())+6)%7)

	result, err := h.orch.CreateSessionHierarchyFromMatch(ctx, orchestrator.CreateSessionHierarchyInput{
		IdempotencyKey:         "s1",
		MatchRequestID:         "m-1",
		RequesterID:            requester,
		TargetUserID:           target,
		ConnectionType:         sessionsDomain.ConnectionTypeSkillExchange,
		SkillID:                "s-A",
		ExchangeSkillID:        "s-B",
		TotalSessionsPlanned:   5,
		SessionDurationMinutes: 60,
		PreferredDays:          []time.Weekday{time.Monday, time.Wednesday},
		PreferredTimes:         []string{"18:00"},
		EarliestStartDate:      comingMonday,
		MinimumDaysBetween:     1,
		MaximumDaysBetween:     14,
		DistributeEvenly:       true,
	})
	require.NoError(t, err)
	require.Empty(t, result.Warning)

	assert.Equal(t, 5, result.Connection.TotalSessionsPlanned())
	require.Len(t, result.Series, 2)
	assert.Equal(t, requester, result.Series[0].TeacherUserID())
	assert.Equal(t, 3, result.Series[0].TotalSessions())
	assert.Equal(t, target, result.Series[1].TeacherUserID())
	assert.Equal(t, 2, result.Series[1].TotalSessions())

	var allAppts []*sessionsDomain.SessionAppointment
	for _, s := range result.Series {
		appts, err := h.appointments.FindBySeriesID(ctx, s.ID())
		require.NoError(t, err)
		allAppts = append(allAppts, appts...)
	}
	require.Len(t, allAppts, 5)

	// Find the earliest-scheduled appointment and confirm it lands on the
	// expected Monday slot with the requester organizing.
	earliest := allAppts[0]
	for _, a := range allAppts {
		if a.ScheduledDate().Before(earliest.ScheduledDate()) {
			earliest = a
		}
	}
	assert.Equal(t, 18, earliest.ScheduledDate().Hour())
	assert.Equal(t, time.Monday, earliest.ScheduledDate().Weekday())
	assert.Equal(t, requester, earliest.OrganizerUserID())
}

// S5: infeasible schedule still commits the Connection and empty Series,
// returns success with a NoFeasibleSchedule warning, and creates zero
// appointments.
func TestCreateSessionHierarchyFromMatch_InfeasibleSchedule(t *testing.T) {
	h := newTestHarness(t)
	ctx := context.Background()

	requester := uuid.New()
	target := uuid.New()
	earliest := time.Now().UTC()

	// Both parties are busy every Sunday 02:00-04:00 UTC across the whole
	// search window, so the only preferred slot (Sunday 03:00) never fits.
	busyConn, err := sessionsDomain.NewConnection(sessionsDomain.NewConnectionParams{
		MatchRequestID:       "m-5-busy",
		RequesterID:          requester,
		TargetUserID:         target,
		ConnectionType:       sessionsDomain.ConnectionTypeFree,
		SkillID:              "s-B",
		TotalSessionsPlanned: 1,
	})
	require.NoError(t, err)
	require.NoError(t, h.connections.Save(ctx, busyConn))
	busySeries, err := sessionsDomain.NewSessionSeries(sessionsDomain.NewSessionSeriesParams{
		ConnectionID:           busyConn.ID(),
		TeacherUserID:          requester,
		LearnerUserID:          target,
		SkillID:                "s-B",
		TotalSessions:          1,
		DefaultDurationMinutes: 120,
	})
	require.NoError(t, err)
	require.NoError(t, h.series.Save(ctx, busySeries))
	firstSunday := time.Date(earliest.Year(), earliest.Month(), earliest.Day()-int(earliest.Weekday()), 2, 0, 0, 0, time.UTC)
	for i, d := 0, firstSunday; d.Before(earliest.AddDate(1, 0, 0)); i, d = i+1, d.AddDate(0, 0, 7) {
		busy, err := sessionsDomain.NewAppointment(sessionsDomain.NewAppointmentParams{
			SessionSeriesID:   busySeries.ID(),
			SessionNumber:     i + 1,
			ScheduledDate:     d,
			DurationMinutes:   120,
			OrganizerUserID:   requester,
			ParticipantUserID: target,
		})
		require.NoError(t, err)
		require.NoError(t, h.appointments.Save(ctx, busy))
	}

	result, err := h.orch.CreateSessionHierarchyFromMatch(ctx, orchestrator.CreateSessionHierarchyInput{
		IdempotencyKey:         "s5",
		MatchRequestID:         "m-5",
		RequesterID:            requester,
		TargetUserID:           target,
		ConnectionType:         sessionsDomain.ConnectionTypeFree,
		SkillID:                "s-A",
		TotalSessionsPlanned:   20,
		SessionDurationMinutes: 60,
		PreferredDays:          []time.Weekday{time.Sunday},
		PreferredTimes:         []string{"03:00"},
		EarliestStartDate:      earliest,
		MinimumDaysBetween:     1,
		MaximumDaysBetween:     7,
	})
	require.NoError(t, err)
	assert.Equal(t, string(apperr.KindNoFeasibleSchedule), result.Warning)
	require.Len(t, result.Series, 1)

	appts, err := h.appointments.FindBySeriesID(ctx, result.Series[0].ID())
	require.NoError(t, err)
	assert.Empty(t, appts)

	persisted, err := h.connections.FindByMatchRequestID(ctx, "m-5")
	require.NoError(t, err)
	require.NotNil(t, persisted)
}

// Idempotent retry: calling CreateSessionHierarchyFromMatch twice with the
// same idempotency key must not create a second Connection.
func TestCreateSessionHierarchyFromMatch_IdempotentRetry(t *testing.T) {
	h := newTestHarness(t)
	ctx := context.Background()

	in := orchestrator.CreateSessionHierarchyInput{
		IdempotencyKey:         "dup-key",
		MatchRequestID:         "m-dup",
		RequesterID:            uuid.New(),
		TargetUserID:           uuid.New(),
		ConnectionType:         sessionsDomain.ConnectionTypeFree,
		SkillID:                "s-A",
		TotalSessionsPlanned:   2,
		SessionDurationMinutes: 30,
		PreferredDays:          []time.Weekday{time.Monday},
		PreferredTimes:         []string{"10:00"},
		EarliestStartDate:      time.Now().UTC(),
		MinimumDaysBetween:     1,
		MaximumDaysBetween:     7,
	}

	_, err := h.orch.CreateSessionHierarchyFromMatch(ctx, in)
	require.NoError(t, err)

	_, err = h.orch.CreateSessionHierarchyFromMatch(ctx, in)
	require.NoError(t, err)

	msgs, err := h.outboxRepo.GetUnpublished(ctx, 100)
	require.NoError(t, err)
	connectionCreatedCount := 0
	for _, m := range msgs {
		if m.EventType == sessionsDomain.RoutingKeyConnectionCreated {
			connectionCreatedCount++
		}
	}
	assert.Equal(t, 1, connectionCreatedCount, "retrying with the same idempotency key must not duplicate the staged event")
}

// S2: cancelling within 24h flags isLateCancellation and cancels pending
// reminders for that appointment.
func TestCancelSession_WithinLateWindowFlagsLateCancellation(t *testing.T) {
	h := newTestHarness(t)
	ctx := context.Background()

	appt := newScheduledAppointment(t, ctx, h, time.Now().UTC().Add(6*time.Hour))

	reminder, err := remindersDomain.NewScheduledReminder(remindersDomain.NewScheduledReminderParams{
		AppointmentID: appt.ID(),
		UserID:        appt.OrganizerUserID(),
		ReminderType:  remindersDomain.ReminderTypeEmail,
		MinutesBefore: 30,
		ScheduledFor:  appt.ScheduledDate().Add(-30 * time.Minute),
		Snapshot:      remindersDomain.Snapshot{},
	})
	require.NoError(t, err)
	require.NoError(t, h.reminders.Save(ctx, reminder))

	err = h.orch.CancelSession(ctx, orchestrator.CancelSessionInput{
		IdempotencyKey: "cancel-1",
		AppointmentID:  appt.ID(),
		CancelledBy:    appt.OrganizerUserID(),
		Reason:         "schedule conflict",
	})
	require.NoError(t, err)

	reloaded, err := h.appointments.FindByID(ctx, appt.ID())
	require.NoError(t, err)
	assert.Equal(t, sessionsDomain.StatusCancelled, reloaded.Status())
	assert.True(t, reloaded.IsLateCancellation())

	reloadedReminders, err := h.reminders.FindByAppointmentID(ctx, appt.ID())
	require.NoError(t, err)
	require.Len(t, reloadedReminders, 1)
	assert.Equal(t, remindersDomain.ReminderStatusCancelled, reloadedReminders[0].Status())
}

// S3: a reschedule proposal approved by the counterparty returns the
// appointment to Scheduled with the new date.
func TestReschedule_ApproveByCounterparty(t *testing.T) {
	h := newTestHarness(t)
	ctx := context.Background()

	original := time.Now().UTC().Add(72 * time.Hour)
	appt := newScheduledAppointment(t, ctx, h, original)
	proposed := original.AddDate(0, 0, 3)

	err := h.orch.RequestReschedule(ctx, orchestrator.RequestRescheduleInput{
		IdempotencyKey:   "resched-req",
		AppointmentID:    appt.ID(),
		RequestedBy:      appt.OrganizerUserID(),
		ProposedDate:     proposed,
		ProposedDuration: 60,
		Reason:           "conflict",
	})
	require.NoError(t, err)

	err = h.orch.ApproveReschedule(ctx, orchestrator.ApproveRescheduleInput{
		IdempotencyKey: "resched-approve",
		AppointmentID:  appt.ID(),
		ApprovedBy:     appt.ParticipantUserID(),
	})
	require.NoError(t, err)

	reloaded, err := h.appointments.FindByID(ctx, appt.ID())
	require.NoError(t, err)
	assert.Equal(t, sessionsDomain.StatusScheduled, reloaded.Status())
	assert.True(t, reloaded.ScheduledDate().Equal(proposed))
}

// S4: the requester approving their own reschedule proposal is blocked with
// IllegalTransition, leaving the appointment's state untouched.
func TestReschedule_SelfApprovalBlocked(t *testing.T) {
	h := newTestHarness(t)
	ctx := context.Background()

	original := time.Now().UTC().Add(72 * time.Hour)
	appt := newScheduledAppointment(t, ctx, h, original)
	proposed := original.AddDate(0, 0, 3)

	err := h.orch.RequestReschedule(ctx, orchestrator.RequestRescheduleInput{
		IdempotencyKey:   "resched-req-2",
		AppointmentID:    appt.ID(),
		RequestedBy:      appt.OrganizerUserID(),
		ProposedDate:     proposed,
		ProposedDuration: 60,
		Reason:           "conflict",
	})
	require.NoError(t, err)

	err = h.orch.ApproveReschedule(ctx, orchestrator.ApproveRescheduleInput{
		IdempotencyKey: "resched-approve-2",
		AppointmentID:  appt.ID(),
		ApprovedBy:     appt.OrganizerUserID(),
	})
	require.Error(t, err)
	assert.Equal(t, apperr.KindIllegalTransition, apperr.KindOf(err))

	reloaded, err := h.appointments.FindByID(ctx, appt.ID())
	require.NoError(t, err)
	assert.Equal(t, sessionsDomain.StatusRescheduleRequested, reloaded.Status())
	assert.True(t, reloaded.ScheduledDate().Equal(original))
}

// newScheduledAppointment seeds one Connection/Series/Appointment pair
// directly through the repositories, bypassing the scheduling algorithm, so
// lifecycle-command tests can start from a known Scheduled appointment.
func newScheduledAppointment(t *testing.T, ctx context.Context, h *testHarness, scheduledDate time.Time) *sessionsDomain.SessionAppointment {
	t.Helper()

	requester := uuid.New()
	target := uuid.New()

	connection, err := sessionsDomain.NewConnection(sessionsDomain.NewConnectionParams{
		MatchRequestID:       uuid.New().String(),
		RequesterID:          requester,
		TargetUserID:         target,
		ConnectionType:       sessionsDomain.ConnectionTypeFree,
		SkillID:              "s-A",
		TotalSessionsPlanned: 1,
	})
	require.NoError(t, err)
	require.NoError(t, h.connections.Save(ctx, connection))

	series, err := sessionsDomain.NewSessionSeries(sessionsDomain.NewSessionSeriesParams{
		ConnectionID:           connection.ID(),
		TeacherUserID:          requester,
		LearnerUserID:          target,
		SkillID:                "s-A",
		TotalSessions:          1,
		DefaultDurationMinutes: 60,
	})
	require.NoError(t, err)
	require.NoError(t, h.series.Save(ctx, series))

	appointment, err := sessionsDomain.NewAppointment(sessionsDomain.NewAppointmentParams{
		SessionSeriesID:   series.ID(),
		SessionNumber:     1,
		Title:             series.Title(),
		ScheduledDate:     scheduledDate,
		DurationMinutes:   60,
		OrganizerUserID:   requester,
		ParticipantUserID: target,
		IsAutoCreated:     false,
	})
	require.NoError(t, err)
	require.NoError(t, h.appointments.Save(ctx, appointment))

	return appointment
}
