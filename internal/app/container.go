// Package app wires every bounded context into a single Container, the way
// the teacher's own composition root assembles its repositories,
// background processors, and application services from one Config.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/skillswap/sessionengine/internal/calendar/infrastructure/caldav"
	"github.com/skillswap/sessionengine/internal/calendar/infrastructure/google"
	"github.com/skillswap/sessionengine/internal/calendar/infrastructure/microsoft"
	meetinglinkApp "github.com/skillswap/sessionengine/internal/meetinglink/application"
	"github.com/skillswap/sessionengine/internal/meetinglink/infrastructure/generator"
	"github.com/skillswap/sessionengine/internal/orchestrator"
	remindersApp "github.com/skillswap/sessionengine/internal/reminders/application"
	"github.com/skillswap/sessionengine/internal/reminders/infrastructure/notify"
	sessionsApp "github.com/skillswap/sessionengine/internal/sessions/application"
	calendarDomain "github.com/skillswap/sessionengine/internal/calendar/domain"
	"github.com/skillswap/sessionengine/internal/shared/infrastructure/crypto"
	"github.com/skillswap/sessionengine/internal/shared/infrastructure/database"
	_ "github.com/skillswap/sessionengine/internal/shared/infrastructure/database/postgres"
	_ "github.com/skillswap/sessionengine/internal/shared/infrastructure/database/sqlite"
	"github.com/skillswap/sessionengine/internal/shared/infrastructure/eventbus"
	"github.com/skillswap/sessionengine/internal/shared/infrastructure/migrations"
	"github.com/skillswap/sessionengine/internal/shared/infrastructure/outbox"
	"github.com/skillswap/sessionengine/pkg/config"
	"github.com/skillswap/sessionengine/pkg/observability"
)

// statsPushInterval is how often the background loops' Stats are sampled
// into Metrics gauges.
const statsPushInterval = 15 * time.Second

// Container holds every collaborator the worker process runs, built once at
// startup from a Config and torn down together on shutdown.
type Container struct {
	Config *config.Config
	Logger *slog.Logger

	Conn         database.Connection
	Repos        *RepositoryFactory
	Orchestrator *orchestrator.Orchestrator

	Publisher eventbus.Publisher

	OutboxProcessor   *outbox.Processor
	ReminderProcessor *remindersApp.Processor
	MeetingLinkRetry  *meetinglinkApp.RetryWorker

	Metrics observability.Metrics
	Health  *observability.HealthRegistry

	statsDone chan struct{}
}

// NewContainer connects to the database, builds every repository and
// background processor, and returns a Container ready to Start.
func NewContainer(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Container, error) {
	if logger == nil {
		logger = slog.Default()
	}

	conn, err := database.NewConnection(ctx, database.Config{
		Driver:     database.Driver(cfg.DatabaseDriver),
		URL:        cfg.DatabaseURL,
		SQLitePath: cfg.SQLitePath,
		MaxConns:   cfg.DatabaseMaxConns,
	})
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	logger.Info("running schema migrations", "driver", conn.Driver())
	if err := migrations.Run(ctx, conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	repos := NewRepositoryFactory(conn)

	encrypter, err := crypto.NewAESGCMFromSecret(cfg.CalendarEncryptionKey)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("build token encrypter: %w", err)
	}

	publisher, err := buildPublisher(cfg, logger)
	if err != nil {
		conn.Close()
		return nil, err
	}

	orch := orchestrator.New(orchestrator.Deps{
		UnitOfWork:       database.NewUnitOfWork(conn),
		Connections:      repos.ConnectionRepository(),
		Series:           repos.SessionSeriesRepository(),
		Appointments:     repos.AppointmentRepository(),
		ReminderSettings: repos.ReminderSettingsRepository(),
		Reminders:        repos.ScheduledReminderRepository(),
		Calendars:        repos.CalendarIntegrationRepository(),
		Adapters:         buildCalendarAdapters(cfg, logger),
		PendingLinks:     repos.MeetingLinkRepository(),
		Outbox:           repos.OutboxRepository(),
		Idempotency:      repos.IdempotencyStore(),
		Encrypter:        encrypter,
		Logger:           logger,
	})

	outboxProcessor := outbox.NewProcessor(repos.OutboxRepository(), publisher, outbox.ProcessorConfig{
		PollInterval:     cfg.OutboxPollInterval,
		BatchSize:        cfg.OutboxBatchSize,
		MaxRetries:       cfg.OutboxMaxRetries,
		RetryBackoffBase: cfg.OutboxRetryBackoffBase,
		RetryBackoffMax:  cfg.OutboxRetryBackoffMax,
	}, logger)

	appointments := repos.AppointmentRepository()
	reminderProcessor := remindersApp.NewProcessor(
		repos.ScheduledReminderRepository(),
		notify.NewNoopContactLookup(logger),
		notify.NewNoopNotifier(logger),
		sessionsApp.NewStatusChecker(appointments),
		cfg.WorkerID,
		logger,
	)

	meetingLinkRetry := meetinglinkApp.NewRetryWorker(
		repos.MeetingLinkRepository(),
		generator.NewNoopGenerator(logger),
		sessionsApp.NewLinkSetter(appointments),
		logger,
	)

	metrics := observability.Metrics(observability.NoopMetrics{})
	if cfg.IsDevelopment() {
		metrics = observability.NewInMemoryMetrics()
	}

	health := observability.NewHealthRegistry()
	health.Register("database", observability.DatabaseHealthChecker(conn.Ping))
	if healthChecker, ok := publisher.(interface{ IsHealthy() bool }); ok {
		health.Register("eventbus", observability.RabbitMQHealthChecker(func(ctx context.Context) error {
			if healthChecker.IsHealthy() {
				return nil
			}
			return fmt.Errorf("publisher connection is closed")
		}))
	}

	return &Container{
		Config:            cfg,
		Logger:            logger,
		Conn:              conn,
		Repos:             repos,
		Orchestrator:      orch,
		Publisher:         publisher,
		OutboxProcessor:   outboxProcessor,
		ReminderProcessor: reminderProcessor,
		MeetingLinkRetry:  meetingLinkRetry,
		Metrics:           metrics,
		Health:            health,
		statsDone:         make(chan struct{}),
	}, nil
}

// buildPublisher connects to RabbitMQ when configured, otherwise returns a
// no-op publisher (also used in development when RabbitMQ is unreachable).
func buildPublisher(cfg *config.Config, logger *slog.Logger) (eventbus.Publisher, error) {
	if !cfg.EventBusEnabled {
		return eventbus.NewNoopPublisher(logger), nil
	}
	publisher, err := eventbus.NewRabbitMQPublisher(cfg.RabbitMQURL, logger)
	if err != nil {
		if cfg.IsDevelopment() {
			logger.Warn("rabbitmq unavailable, falling back to noop publisher", "error", err)
			return eventbus.NewNoopPublisher(logger), nil
		}
		return nil, fmt.Errorf("connect to rabbitmq: %w", err)
	}
	return publisher, nil
}

// buildCalendarAdapters wires one Adapter per provider SPEC_FULL.md names.
// Providers with no configured credentials still get an adapter: ConnectCalendar
// for that provider will simply fail at ExchangeCode/the credential check,
// which is the correct behavior for a provider operators haven't set up.
func buildCalendarAdapters(cfg *config.Config, logger *slog.Logger) map[calendarDomain.ProviderType]calendarDomain.Adapter {
	adapters := map[calendarDomain.ProviderType]calendarDomain.Adapter{
		calendarDomain.ProviderGoogle: google.NewAdapter(
			cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.GoogleRedirectURL, logger,
		),
		calendarDomain.ProviderMicrosoft: microsoft.NewAdapter(
			cfg.MicrosoftClientID, cfg.MicrosoftClientSecret, cfg.MicrosoftRedirectURL, cfg.MicrosoftTenant, logger,
		),
	}
	caldavAdapter := caldav.NewAdapter(cfg.CalDAVBaseURL, logger)
	adapters[calendarDomain.ProviderApple] = caldavAdapter
	adapters[calendarDomain.ProviderCalDAV] = caldavAdapter
	return adapters
}

// Start begins every background loop (outbox processor, reminder
// processor, meeting-link retry worker).
func (c *Container) Start(ctx context.Context) error {
	if err := c.OutboxProcessor.Start(ctx); err != nil {
		return fmt.Errorf("start outbox processor: %w", err)
	}
	if err := c.ReminderProcessor.Start(ctx); err != nil {
		c.OutboxProcessor.Stop()
		return fmt.Errorf("start reminder processor: %w", err)
	}
	if err := c.MeetingLinkRetry.Start(ctx); err != nil {
		c.OutboxProcessor.Stop()
		c.ReminderProcessor.Stop()
		return fmt.Errorf("start meeting-link retry worker: %w", err)
	}

	go c.pushStatsLoop(ctx)
	return nil
}

// pushStatsLoop samples each background processor's Stats into Metrics
// gauges on a fixed interval, so the Metrics surface reflects live state
// rather than only being defined and never fed.
func (c *Container) pushStatsLoop(ctx context.Context) {
	ticker := time.NewTicker(statsPushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-c.statsDone:
			return
		case <-ticker.C:
			outboxStats := c.OutboxProcessor.GetStats()
			c.Metrics.Gauge(observability.MetricOutboxPublished, float64(outboxStats.PublishedCount))
			c.Metrics.Gauge(observability.MetricOutboxDead, float64(outboxStats.DeadCount))

			reminderStats := c.ReminderProcessor.GetStats()
			c.Metrics.Gauge(observability.MetricRemindersSent, float64(reminderStats.SentCount))
			c.Metrics.Gauge(observability.MetricRemindersFailed, float64(reminderStats.FailedCount))
			c.Metrics.Gauge(observability.MetricRemindersCancelled, float64(reminderStats.CancelledCount))
		}
	}
}

// Stop gracefully stops every background loop and releases the database
// connection and publisher.
func (c *Container) Stop() {
	close(c.statsDone)

	c.MeetingLinkRetry.Stop()
	c.ReminderProcessor.Stop()
	c.OutboxProcessor.Stop()

	if err := c.Publisher.Close(); err != nil {
		c.Logger.Warn("publisher close error", "error", err)
	}
	if err := c.Conn.Close(); err != nil {
		c.Logger.Warn("database close error", "error", err)
	}
}
