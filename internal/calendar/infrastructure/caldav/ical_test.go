package caldav

import (
	"bytes"
	"testing"
	"time"

	"github.com/emersion/go-ical"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skillswap/sessionengine/internal/calendar/domain"
)

// S7: a title containing comma, semicolon, and newline characters must come
// out of the encoder with those reserved TEXT characters backslash-escaped
// (RFC 5545 §3.3.11), or an Apple/CalDAV client would misparse the VEVENT.
func TestToICalendar_EscapesReservedSummaryCharacters(t *testing.T) {
	start := time.Date(2026, 8, 3, 18, 0, 0, 0, time.UTC)
	cal := toICalendar("evt-escape-1", domain.EventInput{
		Title: "A, B; C\nD",
		Start: start,
		End:   start.Add(time.Hour),
	})

	var buf bytes.Buffer
	require.NoError(t, ical.NewEncoder(&buf).Encode(cal))

	assert.Contains(t, buf.String(), `A\, B\; C\nD`)
}

func TestToICalendar_SetsCoreVEventFields(t *testing.T) {
	start := time.Date(2026, 8, 3, 18, 0, 0, 0, time.UTC)
	end := start.Add(45 * time.Minute)
	cal := toICalendar("evt-2", domain.EventInput{
		Title:       "Go basics",
		Description: "intro session",
		MeetingLink: "https://meet.example/abc",
		Attendees:   []string{"teacher@example.com", "learner@example.com"},
		Start:       start,
		End:         end,
	})

	var buf bytes.Buffer
	require.NoError(t, ical.NewEncoder(&buf).Encode(cal))
	raw := buf.String()

	assert.Contains(t, raw, "PRODID:-//SkillSwap//Calendar//EN")
	assert.Contains(t, raw, "UID:evt-2")
	assert.Contains(t, raw, "SUMMARY:Go basics")
	assert.Contains(t, raw, "DESCRIPTION:intro session")
	assert.Contains(t, raw, "URL:https://meet.example/abc")
	assert.Contains(t, raw, "ATTENDEE:mailto:teacher@example.com")
	assert.Contains(t, raw, "ATTENDEE:mailto:learner@example.com")
	assert.Contains(t, raw, "X-SKILLSWAP:1")
}
