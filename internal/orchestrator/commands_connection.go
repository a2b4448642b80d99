package orchestrator

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/skillswap/sessionengine/internal/scheduling"
	sessionsDomain "github.com/skillswap/sessionengine/internal/sessions/domain"
	"github.com/skillswap/sessionengine/internal/shared/apperr"
	sharedDomain "github.com/skillswap/sessionengine/internal/shared/domain"
)

// CreateSessionHierarchyInput bundles an accepted match plus the scheduling
// preferences needed to materialize Connection -> SessionSeries ->
// SessionAppointment in one transaction.
type CreateSessionHierarchyInput struct {
	IdempotencyKey string

	MatchRequestID     string
	RequesterID        uuid.UUID
	TargetUserID       uuid.UUID
	ConnectionType     sessionsDomain.ConnectionType
	SkillID            string
	ExchangeSkillID    string
	PaymentRatePerHour float64
	Currency           string
	// RequesterIsTeacher is ignored for SkillExchange connections (both
	// directions are scheduled); for Payment/Free it decides who teaches.
	RequesterIsTeacher bool

	TotalSessionsPlanned   int
	SessionDurationMinutes int
	PreferredDays          []time.Weekday
	PreferredTimes         []string
	EarliestStartDate      time.Time
	MinimumDaysBetween     int
	MaximumDaysBetween     int
	DistributeEvenly       bool
}

// CreateSessionHierarchyResult is the outcome of materializing a match into
// a Connection. Warning is non-empty (currently only "NoFeasibleSchedule")
// when the scheduling algorithm could not place any appointment: per
// SPEC_FULL.md §8 S5, the Connection and its (empty) Series still commit —
// this is a degraded-success outcome, not a failure.
type CreateSessionHierarchyResult struct {
	Connection *sessionsDomain.Connection
	Series     []*sessionsDomain.SessionSeries
	Warning    string
}

// plannedSeriesCounts splits totalSessions the same way scheduling.assignSeries
// alternates slots between series: even-indexed sessions (0-based) to series
// 0, odd-indexed to series 1. Computed independently of the scheduler's
// actual output so series sizing is stable even when no slot is found.
func plannedSeriesCounts(totalSessions int, isExchange bool) (count0, count1 int) {
	if !isExchange {
		return totalSessions, 0
	}
	count0 = (totalSessions + 1) / 2
	count1 = totalSessions / 2
	return count0, count1
}

// CreateSessionHierarchyFromMatch is the first command in the lifecycle: it
// turns an accepted match into a persisted Connection, one or two
// SessionSeries, and every SessionAppointment the scheduling algorithm can
// place in the [earliestStartDate, earliestStartDate+365d) window. When the
// scheduler finds no feasible placement, the Connection and its Series
// still commit with zero Appointments and Warning="NoFeasibleSchedule".
func (o *Orchestrator) CreateSessionHierarchyFromMatch(ctx context.Context, in CreateSessionHierarchyInput) (*CreateSessionHierarchyResult, error) {
	var result *CreateSessionHierarchyResult

	err := o.withTx(ctx, in.IdempotencyKey, func(txCtx context.Context) ([]sharedDomain.DomainEvent, error) {
		if existing, err := o.connections.FindByMatchRequestID(txCtx, in.MatchRequestID); err == nil && existing != nil {
			existingSeries, _ := o.series.FindByConnectionID(txCtx, existing.ID())
			result = &CreateSessionHierarchyResult{Connection: existing, Series: existingSeries}
			return nil, nil
		}

		connection, err := sessionsDomain.NewConnection(sessionsDomain.NewConnectionParams{
			MatchRequestID:       in.MatchRequestID,
			RequesterID:          in.RequesterID,
			TargetUserID:         in.TargetUserID,
			ConnectionType:       in.ConnectionType,
			SkillID:              in.SkillID,
			ExchangeSkillID:      in.ExchangeSkillID,
			PaymentRatePerHour:   in.PaymentRatePerHour,
			Currency:             in.Currency,
			TotalSessionsPlanned: in.TotalSessionsPlanned,
		})
		if err != nil {
			return nil, err
		}
		if err := o.connections.Save(txCtx, connection); err != nil {
			return nil, apperr.Wrap(apperr.KindTransient, "failed to save connection", err)
		}

		var events []sharedDomain.DomainEvent
		events = append(events, connection.DomainEvents()...)

		isExchange := in.ConnectionType == sessionsDomain.ConnectionTypeSkillExchange
		count0, count1 := plannedSeriesCounts(in.TotalSessionsPlanned, isExchange)

		series := make([]*sessionsDomain.SessionSeries, 0, 2)
		s0, err := sessionsDomain.NewSessionSeries(sessionsDomain.NewSessionSeriesParams{
			ConnectionID:           connection.ID(),
			TeacherUserID:          in.RequesterID,
			LearnerUserID:          in.TargetUserID,
			SkillID:                in.SkillID,
			TotalSessions:          count0,
			DefaultDurationMinutes: in.SessionDurationMinutes,
		})
		if err != nil {
			return nil, err
		}
		if err := o.series.Save(txCtx, s0); err != nil {
			return nil, apperr.Wrap(apperr.KindTransient, "failed to save session series", err)
		}
		series = append(series, s0)

		var s1 *sessionsDomain.SessionSeries
		if isExchange && count1 > 0 {
			s1, err = sessionsDomain.NewSessionSeries(sessionsDomain.NewSessionSeriesParams{
				ConnectionID:           connection.ID(),
				TeacherUserID:          in.TargetUserID,
				LearnerUserID:          in.RequesterID,
				SkillID:                in.ExchangeSkillID,
				TotalSessions:          count1,
				DefaultDurationMinutes: in.SessionDurationMinutes,
			})
			if err != nil {
				return nil, err
			}
			if err := o.series.Save(txCtx, s1); err != nil {
				return nil, apperr.Wrap(apperr.KindTransient, "failed to save session series", err)
			}
			series = append(series, s1)
		}

		windowEnd := in.EarliestStartDate.AddDate(1, 0, 0)
		organizerBusy, err := o.appointments.FindBusyIntervals(txCtx, in.RequesterID, in.EarliestStartDate, windowEnd)
		if err != nil {
			return nil, apperr.Wrap(apperr.KindTransient, "failed to load requester availability", err)
		}
		participantBusy, err := o.appointments.FindBusyIntervals(txCtx, in.TargetUserID, in.EarliestStartDate, windowEnd)
		if err != nil {
			return nil, apperr.Wrap(apperr.KindTransient, "failed to load target availability", err)
		}

		slots, genErr := scheduling.Generate(scheduling.Request{
			PreferredDays:          in.PreferredDays,
			PreferredTimes:         in.PreferredTimes,
			TotalSessions:          in.TotalSessionsPlanned,
			SessionDurationMinutes: in.SessionDurationMinutes,
			EarliestStartDate:      in.EarliestStartDate,
			MinimumDaysBetween:     in.MinimumDaysBetween,
			MaximumDaysBetween:     in.MaximumDaysBetween,
			DistributeEvenly:       in.DistributeEvenly,
			PrimaryOrganizerID:     in.RequesterID,
			PrimaryParticipantID:   in.TargetUserID,
			IsSkillExchange:        isExchange,
			OrganizerBusy:          toSchedulingBusy(organizerBusy),
			ParticipantBusy:        toSchedulingBusy(participantBusy),
		})
		if genErr != nil {
			// No feasible schedule: commit the Connection and its Series with
			// zero Appointments rather than rolling the whole command back.
			result = &CreateSessionHierarchyResult{Connection: connection, Series: series, Warning: string(apperr.KindNoFeasibleSchedule)}
			return events, nil
		}

		seriesByIndex := map[int]*sessionsDomain.SessionSeries{0: s0}
		if s1 != nil {
			seriesByIndex[1] = s1
		}
		seriesSessionCount := map[int]int{}

		for _, slot := range slots {
			series, ok := seriesByIndex[slot.SeriesIndex]
			if !ok {
				return nil, apperr.Fatal("scheduler produced a series index with no materialized series", nil)
			}

			seriesSessionCount[slot.SeriesIndex]++
			appointment, err := sessionsDomain.NewAppointment(sessionsDomain.NewAppointmentParams{
				SessionSeriesID:   series.ID(),
				SessionNumber:     seriesSessionCount[slot.SeriesIndex],
				Title:             series.Title(),
				ScheduledDate:     slot.ScheduledDate,
				DurationMinutes:   slot.DurationMinutes,
				OrganizerUserID:   slot.OrganizerUserID,
				ParticipantUserID: slot.ParticipantUserID,
				IsAutoCreated:     true,
			})
			if err != nil {
				return nil, err
			}
			if err := o.appointments.Save(txCtx, appointment); err != nil {
				return nil, apperr.Wrap(apperr.KindTransient, "failed to save appointment", err)
			}
			events = append(events, appointment.DomainEvents()...)
		}

		result = &CreateSessionHierarchyResult{Connection: connection, Series: series}
		return events, nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func toSchedulingBusy(in []sessionsDomain.BusyInterval) []scheduling.BusyInterval {
	out := make([]scheduling.BusyInterval, len(in))
	for i, b := range in {
		out[i] = scheduling.BusyInterval{Start: b.Start, End: b.End}
	}
	return out
}

