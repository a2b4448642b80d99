package app_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skillswap/sessionengine/internal/app"
	"github.com/skillswap/sessionengine/pkg/config"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		AppEnv:                 "development",
		LogLevel:               "error",
		DatabaseDriver:         "sqlite",
		SQLitePath:             filepath.Join(t.TempDir(), "test.db"),
		DatabaseMaxConns:       5,
		EventBusEnabled:        false,
		CalendarEncryptionKey:  "container-smoke-test-secret",
		MicrosoftTenant:        "common",
		CalDAVBaseURL:          "https://caldav.icloud.com",
		OutboxPollInterval:     20 * time.Millisecond,
		OutboxBatchSize:        10,
		OutboxMaxRetries:       3,
		OutboxRetryBackoffBase: 10 * time.Millisecond,
		OutboxRetryBackoffMax:  100 * time.Millisecond,
		WorkerHealthAddr:       "",
		WorkerID:               "container-test-worker",
	}
}

// Smoke test: NewContainer wires every collaborator (migrations, repositories,
// calendar adapters, orchestrator, background processors, metrics/health)
// without error, Start begins all three background loops, and Stop tears
// everything down cleanly.
func TestContainer_StartStopRoundTrip(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)

	container, err := app.NewContainer(ctx, cfg, nil)
	require.NoError(t, err)
	require.NotNil(t, container.Orchestrator)
	require.NotNil(t, container.Metrics)
	require.NotNil(t, container.Health)

	require.NoError(t, container.Start(ctx))
	assert.True(t, container.OutboxProcessor.IsRunning())
	assert.True(t, container.ReminderProcessor.IsRunning())
	assert.True(t, container.MeetingLinkRetry.IsRunning())

	health := container.Health.GetOverallHealth(ctx)
	assert.NotEmpty(t, health.Checks)

	container.Stop()
	assert.False(t, container.OutboxProcessor.IsRunning())
	assert.False(t, container.ReminderProcessor.IsRunning())
	assert.False(t, container.MeetingLinkRetry.IsRunning())
}
