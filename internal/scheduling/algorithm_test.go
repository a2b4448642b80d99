package scheduling_test

import (
	"testing"
	"time"

	"github.com/skillswap/sessionengine/internal/scheduling"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerate_SkillExchangeAlternatesOrganizerAndSeries(t *testing.T) {
	requester := uuid.New()
	target := uuid.New()

	// earliestStartDate is a Monday so the next Monday 18:00 is itself.
	earliest := time.Date(2026, 8, 3, 0, 0, 0, 0, time.UTC)
	require.Equal(t, time.Monday, earliest.Weekday())

	req := scheduling.Request{
		PreferredDays:          []time.Weekday{time.Monday, time.Wednesday},
		PreferredTimes:         []string{"18:00"},
		TotalSessions:          5,
		SessionDurationMinutes: 60,
		EarliestStartDate:      earliest,
		MinimumDaysBetween:     1,
		MaximumDaysBetween:     14,
		PrimaryOrganizerID:     requester,
		PrimaryParticipantID:   target,
		IsSkillExchange:        true,
	}

	slots, err := scheduling.Generate(req)
	require.NoError(t, err)
	require.Len(t, slots, 5)

	assert.Equal(t, earliest.Add(18*time.Hour), slots[0].ScheduledDate)
	assert.Equal(t, requester, slots[0].OrganizerUserID)
	assert.Equal(t, 0, slots[0].SeriesIndex)
	assert.Equal(t, target, slots[1].OrganizerUserID)
	assert.Equal(t, 1, slots[1].SeriesIndex)
	assert.Equal(t, requester, slots[2].OrganizerUserID)
	assert.Equal(t, 0, slots[2].SeriesIndex)

	for i := 1; i < len(slots); i++ {
		gapDays := slots[i].ScheduledDate.Sub(slots[i-1].ScheduledDate).Hours() / 24
		assert.GreaterOrEqual(t, gapDays, float64(req.MinimumDaysBetween))
		assert.LessOrEqual(t, gapDays, float64(req.MaximumDaysBetween))
	}
}

func TestGenerate_DeterministicForIdenticalInputs(t *testing.T) {
	req := scheduling.Request{
		PreferredDays:          []time.Weekday{time.Tuesday},
		PreferredTimes:         []string{"09:00", "14:00"},
		TotalSessions:          3,
		SessionDurationMinutes: 30,
		EarliestStartDate:      time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC),
		MinimumDaysBetween:     7,
		MaximumDaysBetween:     14,
		PrimaryOrganizerID:     uuid.New(),
		PrimaryParticipantID:   uuid.New(),
	}

	first, err := scheduling.Generate(req)
	require.NoError(t, err)
	second, err := scheduling.Generate(req)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestGenerate_ReturnsNoFeasibleScheduleWhenBusyEveryOccurrence(t *testing.T) {
	organizer := uuid.New()
	participant := uuid.New()
	earliest := time.Date(2026, 1, 4, 0, 0, 0, 0, time.UTC) // a Sunday

	var busy []scheduling.BusyInterval
	for d := earliest; d.Before(earliest.AddDate(1, 0, 0)); d = d.AddDate(0, 0, 7) {
		busy = append(busy, scheduling.BusyInterval{
			Start: d.Add(2 * time.Hour),
			End:   d.Add(4 * time.Hour),
		})
	}

	req := scheduling.Request{
		PreferredDays:          []time.Weekday{time.Sunday},
		PreferredTimes:         []string{"03:00"},
		TotalSessions:          20,
		SessionDurationMinutes: 60,
		EarliestStartDate:      earliest,
		PrimaryOrganizerID:     organizer,
		PrimaryParticipantID:   participant,
		OrganizerBusy:          busy,
		ParticipantBusy:        busy,
	}

	_, err := scheduling.Generate(req)
	require.Error(t, err)
	assert.ErrorAs(t, err, &scheduling.ErrNoFeasibleSchedule{})
}
