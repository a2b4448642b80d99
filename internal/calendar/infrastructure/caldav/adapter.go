// Package caldav implements the calendar Adapter against CalDAV servers
// (Apple Calendar, Fastmail, Nextcloud, self-hosted), grounded on the
// teacher's go-webdav/caldav-based syncer.
package caldav

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/emersion/go-ical"
	"github.com/emersion/go-webdav"
	"github.com/emersion/go-webdav/caldav"
	"github.com/skillswap/sessionengine/internal/calendar/domain"
	"github.com/skillswap/sessionengine/internal/shared/apperr"
)

// Well-known CalDAV server base URLs.
const (
	AppleCalDAVURL    = "https://caldav.icloud.com"
	FastmailCalDAVURL = "https://caldav.fastmail.com"
)

// PropXSkillSwap marks events this module created, so a later Busy/delete
// pass can distinguish its own events from the user's unrelated ones.
const PropXSkillSwap = "X-SKILLSWAP"

// Adapter implements domain.Adapter against a CalDAV server using HTTP
// basic auth (an app-specific password for Apple). It authenticates with a
// stored credential rather than an OAuth2 redirect, so AuthorizationURL,
// ExchangeCode, RefreshAccessToken and Revoke are not meaningful here.
type Adapter struct {
	baseURL string
	logger  *slog.Logger
}

// NewAdapter constructs a CalDAV adapter bound to one server. The
// accessToken passed to every Adapter method is base64(username:password),
// per SPEC_FULL.md's "access token is base64(appleId:appPassword)" — it is
// decoded fresh on each call rather than fixed at construction, since one
// Adapter instance serves every user connected to that provider.
func NewAdapter(baseURL string, logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Adapter{baseURL: baseURL, logger: logger}
}

func (a *Adapter) AuthorizationURL(state string) (string, error) {
	return "", apperr.InvalidInput("caldav providers authenticate via stored credentials, not an authorization redirect")
}

func (a *Adapter) ExchangeCode(ctx context.Context, code string) (string, string, time.Time, error) {
	return "", "", time.Time{}, apperr.InvalidInput("caldav providers do not use an oauth code exchange")
}

func (a *Adapter) RefreshAccessToken(ctx context.Context, refreshToken string) (string, time.Time, error) {
	return "", time.Time{}, apperr.InvalidInput("caldav providers do not issue refreshable tokens")
}

// Revoke is a no-op for CalDAV: the credential lives with the user's
// account, not with this adapter.
func (a *Adapter) Revoke(ctx context.Context, accessToken string) error {
	return nil
}

func (a *Adapter) client(accessToken string) (*caldav.Client, error) {
	username, password, err := domain.DecodeCredentials(accessToken)
	if err != nil {
		return nil, err
	}
	httpClient := &http.Client{Timeout: 15 * time.Second}
	client, err := caldav.NewClient(webdav.HTTPClientWithBasicAuth(httpClient, username, password), a.baseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create caldav client: %w", err)
	}
	return client, nil
}

// resolveCalendarPath walks the spec's probe chain: current-user-principal
// -> calendar-home-set -> first child resource whose resourcetype includes
// calendar. If the home set contains no calendar resource, the home set
// path itself is used as a fallback so writes still land somewhere the
// server will accept them.
func (a *Adapter) resolveCalendarPath(ctx context.Context, client *caldav.Client, requested string) (string, error) {
	if requested != "" {
		return requested, nil
	}

	principal, err := client.FindCurrentUserPrincipal(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to find principal: %w", err)
	}

	homeSet, err := client.FindCalendarHomeSet(ctx, principal)
	if err != nil {
		return "", fmt.Errorf("failed to find calendar home set: %w", err)
	}

	cals, err := client.FindCalendars(ctx, homeSet)
	if err != nil {
		return "", fmt.Errorf("failed to find calendars: %w", err)
	}
	if len(cals) == 0 {
		return homeSet, nil
	}
	return cals[0].Path, nil
}

func (a *Adapter) CreateEvent(ctx context.Context, accessToken, calendarID string, event domain.EventInput) (string, error) {
	client, err := a.client(accessToken)
	if err != nil {
		return "", err
	}
	calPath, err := a.resolveCalendarPath(ctx, client, calendarID)
	if err != nil {
		return "", err
	}

	uid := fmt.Sprintf("%d-skillswap", time.Now().UnixNano())
	eventPath := calPath + uid + ".ics"
	cal := toICalendar(uid, event)
	if _, err := client.PutCalendarObject(ctx, eventPath, cal); err != nil {
		return "", err
	}
	return eventPath, nil
}

func (a *Adapter) UpdateEvent(ctx context.Context, accessToken, calendarID, providerEventID string, event domain.EventInput) error {
	client, err := a.client(accessToken)
	if err != nil {
		return err
	}
	cal := toICalendar(providerEventID, event)
	_, err = client.PutCalendarObject(ctx, providerEventID, cal)
	return err
}

func (a *Adapter) DeleteEvent(ctx context.Context, accessToken, calendarID, providerEventID string) error {
	client, err := a.client(accessToken)
	if err != nil {
		return err
	}
	return client.RemoveAll(ctx, providerEventID)
}

func (a *Adapter) Busy(ctx context.Context, accessToken, calendarID string, from, to time.Time) ([]domain.BusyPeriod, error) {
	client, err := a.client(accessToken)
	if err != nil {
		return nil, err
	}
	calPath, err := a.resolveCalendarPath(ctx, client, calendarID)
	if err != nil {
		return nil, err
	}

	query := &caldav.CalendarQuery{
		CompRequest: caldav.CalendarCompRequest{
			Name: "VCALENDAR",
			Comps: []caldav.CalendarCompRequest{
				{Name: "VEVENT", Props: []string{"DTSTART", "DTEND", "UID"}},
			},
		},
		CompFilter: caldav.CompFilter{
			Name: "VCALENDAR",
			Comps: []caldav.CompFilter{
				{Name: "VEVENT", Start: from, End: to},
			},
		},
	}

	objects, err := client.QueryCalendar(ctx, calPath, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query calendar: %w", err)
	}

	var out []domain.BusyPeriod
	for _, obj := range objects {
		for _, child := range obj.Data.Children {
			if child.Name != ical.CompEvent {
				continue
			}
			icalEvent := &ical.Event{Component: child}
			start, err := icalEvent.DateTimeStart(time.UTC)
			if err != nil {
				continue
			}
			end, err := icalEvent.DateTimeEnd(time.UTC)
			if err != nil {
				continue
			}
			out = append(out, domain.BusyPeriod{Start: start, End: end})
		}
	}
	return out, nil
}

// UserEmail has no generic CalDAV equivalent; it returns the username half
// of the decoded access token.
func (a *Adapter) UserEmail(ctx context.Context, accessToken string) (string, error) {
	username, _, err := domain.DecodeCredentials(accessToken)
	if err != nil {
		return "", err
	}
	return username, nil
}

func toICalendar(uid string, e domain.EventInput) *ical.Calendar {
	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, "-//SkillSwap//Calendar//EN")

	event := ical.NewEvent()
	event.Props.SetText(ical.PropUID, uid)
	event.Props.SetDateTime(ical.PropDateTimeStamp, time.Now().UTC())
	event.Props.SetDateTime(ical.PropDateTimeStart, e.Start.UTC())
	event.Props.SetDateTime(ical.PropDateTimeEnd, e.End.UTC())
	event.Props.SetText(ical.PropSummary, e.Title)
	if e.Description != "" {
		event.Props.SetText(ical.PropDescription, e.Description)
	}
	if e.MeetingLink != "" {
		event.Props.SetText(ical.PropURL, e.MeetingLink)
	}
	for _, attendee := range e.Attendees {
		attendeeProp := ical.NewProp(ical.PropAttendee)
		attendeeProp.Value = "mailto:" + attendee
		event.Props[ical.PropAttendee] = append(event.Props[ical.PropAttendee], *attendeeProp)
	}

	marker := ical.NewProp(PropXSkillSwap)
	marker.Value = "1"
	event.Props[PropXSkillSwap] = []ical.Prop{*marker}

	cal.Children = append(cal.Children, event.Component)
	return cal
}

var _ domain.Adapter = (*Adapter)(nil)
