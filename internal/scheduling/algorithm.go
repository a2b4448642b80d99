// Package scheduling implements the pure constraint-satisfaction slot
// generator: (preferences, busy intervals) -> ordered candidate slots. It
// performs no I/O and depends on nothing outside the standard library and
// uuid, so it stays trivially unit-testable and deterministic.
package scheduling

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"
)

// BusyInterval is a half-open [Start, End) unavailable window.
type BusyInterval struct {
	Start time.Time
	End   time.Time
}

func (b BusyInterval) overlaps(start, end time.Time) bool {
	return start.Before(b.End) && end.After(b.Start)
}

// Request bundles every input the algorithm needs to produce a schedule.
type Request struct {
	PreferredDays          []time.Weekday
	PreferredTimes         []string // "HH:MM", ascending preference order
	TotalSessions          int
	SessionDurationMinutes int
	EarliestStartDate      time.Time
	MinimumDaysBetween     int
	MaximumDaysBetween     int
	DistributeEvenly       bool

	// PrimaryOrganizerID/PrimaryParticipantID are the organizer/participant
	// of session 1. For SkillExchange connections IsSkillExchange alternates
	// them per session and tags SeriesIndex 0/1; otherwise every slot keeps
	// the same organizer/participant and SeriesIndex 0.
	PrimaryOrganizerID   uuid.UUID
	PrimaryParticipantID uuid.UUID
	IsSkillExchange      bool

	OrganizerBusy   []BusyInterval
	ParticipantBusy []BusyInterval
}

// Slot is one accepted candidate in the output sequence.
type Slot struct {
	ScheduledDate     time.Time
	DurationMinutes   int
	OrganizerUserID   uuid.UUID
	ParticipantUserID uuid.UUID
	SeriesIndex       int
}

const (
	initialWindowDays = 60
	maxWindowDays     = 365
)

// ErrNoFeasibleSchedule is returned when the window grows to its maximum
// without accepting TotalSessions candidates.
type ErrNoFeasibleSchedule struct{}

func (ErrNoFeasibleSchedule) Error() string { return "scheduling window exhausted" }

// Generate runs the algorithm described in the scheduling component design:
// enumerate candidates in a growing rolling window, filter by busy overlap,
// sort by week/day-preference/time-preference, then greedily accept slots
// respecting the min/max day gap (and, if requested, an even-distribution
// bound).
func Generate(req Request) ([]Slot, error) {
	if req.TotalSessions < 1 {
		return nil, fmt.Errorf("totalSessions must be >= 1")
	}
	if req.MinimumDaysBetween <= 0 {
		req.MinimumDaysBetween = 1
	}
	if req.MaximumDaysBetween <= 0 {
		req.MaximumDaysBetween = 14
	}

	window := initialWindowDays
	for {
		candidates := enumerateCandidates(req, window)
		candidates = filterBusy(candidates, req)
		sortCandidates(candidates, req)

		accepted := greedySelect(candidates, req)
		if len(accepted) >= req.TotalSessions {
			return assignSeries(accepted[:req.TotalSessions], req), nil
		}

		if window >= maxWindowDays {
			return nil, ErrNoFeasibleSchedule{}
		}
		window = int(math.Min(float64(window*2), maxWindowDays))
	}
}

type candidate struct {
	start     time.Time
	dayIndex  int // index into req.PreferredDays
	timeIndex int // index into req.PreferredTimes
}

func enumerateCandidates(req Request, windowDays int) []candidate {
	dayRank := make(map[time.Weekday]int, len(req.PreferredDays))
	for i, d := range req.PreferredDays {
		dayRank[d] = i
	}

	var out []candidate
	end := req.EarliestStartDate.AddDate(0, 0, windowDays)
	for d := req.EarliestStartDate; d.Before(end); d = d.AddDate(0, 0, 1) {
		dayIdx, ok := dayRank[d.Weekday()]
		if !ok {
			continue
		}
		for ti, hhmm := range req.PreferredTimes {
			start, err := atTimeOfDay(d, hhmm)
			if err != nil {
				continue
			}
			if start.Before(req.EarliestStartDate) {
				continue
			}
			out = append(out, candidate{start: start, dayIndex: dayIdx, timeIndex: ti})
		}
	}
	return out
}

func atTimeOfDay(day time.Time, hhmm string) (time.Time, error) {
	var hour, minute int
	if _, err := fmt.Sscanf(hhmm, "%d:%d", &hour, &minute); err != nil {
		return time.Time{}, err
	}
	y, m, d := day.Date()
	return time.Date(y, m, d, hour, minute, 0, 0, day.Location()), nil
}

func filterBusy(candidates []candidate, req Request) []candidate {
	dur := time.Duration(req.SessionDurationMinutes) * time.Minute
	out := make([]candidate, 0, len(candidates))
	for _, c := range candidates {
		end := c.start.Add(dur)
		if intervalsOverlap(req.OrganizerBusy, c.start, end) || intervalsOverlap(req.ParticipantBusy, c.start, end) {
			continue
		}
		out = append(out, c)
	}
	return out
}

func intervalsOverlap(busy []BusyInterval, start, end time.Time) bool {
	for _, b := range busy {
		if b.overlaps(start, end) {
			return true
		}
	}
	return false
}

func isoWeek(t time.Time) (year, week int) {
	return t.ISOWeek()
}

func sortCandidates(candidates []candidate, req Request) {
	sort.SliceStable(candidates, func(i, j int) bool {
		yi, wi := isoWeek(candidates[i].start)
		yj, wj := isoWeek(candidates[j].start)
		if yi != yj {
			return yi < yj
		}
		if wi != wj {
			return wi < wj
		}
		if candidates[i].dayIndex != candidates[j].dayIndex {
			return candidates[i].dayIndex < candidates[j].dayIndex
		}
		if candidates[i].timeIndex != candidates[j].timeIndex {
			return candidates[i].timeIndex < candidates[j].timeIndex
		}
		return candidates[i].start.Before(candidates[j].start)
	})
}

func greedySelect(candidates []candidate, req Request) []candidate {
	var accepted []candidate
	var gapSum float64
	targetMeanGap := 0.0
	if req.TotalSessions > 1 {
		// total span estimate isn't known up front; distributeEvenly is
		// enforced relative to the running mean of accepted gaps instead.
		targetMeanGap = (float64(req.MinimumDaysBetween) + float64(req.MaximumDaysBetween)) / 2
	}

	for _, c := range candidates {
		if len(accepted) == 0 {
			accepted = append(accepted, c)
			continue
		}
		last := accepted[len(accepted)-1]
		gapDays := c.start.Sub(last.start).Hours() / 24
		if gapDays < float64(req.MinimumDaysBetween) || gapDays > float64(req.MaximumDaysBetween) {
			continue
		}
		if req.DistributeEvenly && len(accepted) > 0 {
			newMean := (gapSum + gapDays) / float64(len(accepted))
			if math.Abs(newMean-targetMeanGap) > 1.0 {
				continue
			}
		}
		gapSum += gapDays
		accepted = append(accepted, c)
		if len(accepted) >= req.TotalSessions {
			break
		}
	}
	return accepted
}

func assignSeries(accepted []candidate, req Request) []Slot {
	slots := make([]Slot, len(accepted))
	for i, c := range accepted {
		organizer := req.PrimaryOrganizerID
		participant := req.PrimaryParticipantID
		series := 0
		if req.IsSkillExchange && i%2 == 1 {
			organizer, participant = participant, organizer
			series = 1
		}
		slots[i] = Slot{
			ScheduledDate:     c.start,
			DurationMinutes:   req.SessionDurationMinutes,
			OrganizerUserID:   organizer,
			ParticipantUserID: participant,
			SeriesIndex:       series,
		}
	}
	return slots
}
