package domain

import (
	"sort"
	"time"

	sharedDomain "github.com/skillswap/sessionengine/internal/shared/domain"
	"github.com/skillswap/sessionengine/internal/shared/apperr"
	"github.com/google/uuid"
)

// DefaultMinutesBefore is applied when NewReminderSettings receives no
// positive minutesBefore value.
var DefaultMinutesBefore = []int{15, 60, 1440}

// ReminderSettings is a per-user configuration of when and how reminders fire.
type ReminderSettings struct {
	sharedDomain.BaseAggregateRoot

	userID         uuid.UUID
	minutesBefore  []int
	emailEnabled   bool
	pushEnabled    bool
	smsEnabled     bool
}

// NewReminderSettings constructs ReminderSettings with the given defaults.
func NewReminderSettings(userID uuid.UUID, minutesBefore []int, email, push, sms bool) (*ReminderSettings, error) {
	if userID == uuid.Nil {
		return nil, apperr.InvalidInput("userId is required")
	}
	sorted := normalizeMinutesBefore(minutesBefore)
	if len(sorted) == 0 {
		sorted = normalizeMinutesBefore(DefaultMinutesBefore)
	}

	return &ReminderSettings{
		BaseAggregateRoot: sharedDomain.NewBaseAggregateRoot(),
		userID:            userID,
		minutesBefore:     sorted,
		emailEnabled:      email,
		pushEnabled:       push,
		smsEnabled:        sms,
	}, nil
}

func normalizeMinutesBefore(in []int) []int {
	seen := make(map[int]struct{}, len(in))
	out := make([]int, 0, len(in))
	for _, m := range in {
		if m <= 0 {
			continue
		}
		if _, dup := seen[m]; dup {
			continue
		}
		seen[m] = struct{}{}
		out = append(out, m)
	}
	sort.Ints(out)
	return out
}

func (r *ReminderSettings) UserID() uuid.UUID      { return r.userID }
func (r *ReminderSettings) MinutesBefore() []int   { return append([]int(nil), r.minutesBefore...) }
func (r *ReminderSettings) EmailEnabled() bool      { return r.emailEnabled }
func (r *ReminderSettings) PushEnabled() bool       { return r.pushEnabled }
func (r *ReminderSettings) SMSEnabled() bool        { return r.smsEnabled }

// Update replaces the configured minutesBefore set and channel toggles.
func (r *ReminderSettings) Update(minutesBefore []int, email, push, sms bool) {
	sorted := normalizeMinutesBefore(minutesBefore)
	if len(sorted) > 0 {
		r.minutesBefore = sorted
	}
	r.emailEnabled = email
	r.pushEnabled = push
	r.smsEnabled = sms
	r.Touch()
}

// EnabledChannels returns the ReminderType values the user currently accepts.
func (r *ReminderSettings) EnabledChannels() []ReminderType {
	var out []ReminderType
	if r.emailEnabled {
		out = append(out, ReminderTypeEmail)
	}
	if r.pushEnabled {
		out = append(out, ReminderTypePush)
	}
	if r.smsEnabled {
		out = append(out, ReminderTypeSMS)
	}
	return out
}

// RehydrateReminderSettings reconstructs ReminderSettings from persisted state.
func RehydrateReminderSettings(
	id, userID uuid.UUID,
	minutesBefore []int,
	email, push, sms bool,
	createdAt, updatedAt time.Time,
	version int,
) *ReminderSettings {
	baseEntity := sharedDomain.RehydrateBaseEntity(id, createdAt, updatedAt)
	return &ReminderSettings{
		BaseAggregateRoot: sharedDomain.RehydrateBaseAggregateRoot(baseEntity, version),
		userID:            userID,
		minutesBefore:     minutesBefore,
		emailEnabled:      email,
		pushEnabled:       push,
		smsEnabled:        sms,
	}
}
