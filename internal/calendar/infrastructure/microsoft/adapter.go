// Package microsoft implements the calendar Adapter against the Microsoft
// Graph API, grounded on the same oauthTransport/REST-call idiom the
// teacher used for its Google and Microsoft bidirectional syncers.
package microsoft

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/skillswap/sessionengine/internal/calendar/domain"
	"github.com/sony/gobreaker/v2"
	"golang.org/x/oauth2"
)

const (
	graphBaseURL = "https://graph.microsoft.com/v1.0"
	authURLFmt   = "https://login.microsoftonline.com/%s/oauth2/v2.0/authorize"
	tokenURLFmt  = "https://login.microsoftonline.com/%s/oauth2/v2.0/token"
)

// Adapter implements domain.Adapter against Microsoft Graph's calendar API.
type Adapter struct {
	oauthConfig *oauth2.Config
	httpClient  *http.Client
	baseURL     string
	logger      *slog.Logger
	breaker     *gobreaker.CircuitBreaker[*http.Response]
}

// NewAdapter constructs a Microsoft Graph calendar adapter. tenant is the
// Azure AD tenant ID (CALENDAR_MICROSOFT_TENANT), or "common" for multi-tenant apps.
func NewAdapter(clientID, clientSecret, redirectURL, tenant string, logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.Default()
	}
	if tenant == "" {
		tenant = "common"
	}
	return &Adapter{
		oauthConfig: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Scopes:       []string{"offline_access", "Calendars.ReadWrite", "User.Read"},
			Endpoint: oauth2.Endpoint{
				AuthURL:  fmt.Sprintf(authURLFmt, tenant),
				TokenURL: fmt.Sprintf(tokenURLFmt, tenant),
			},
		},
		httpClient: &http.Client{Timeout: 10 * time.Second},
		baseURL:    graphBaseURL,
		logger:     logger,
		breaker: gobreaker.NewCircuitBreaker[*http.Response](gobreaker.Settings{
			Name:    "microsoft-graph-calendar",
			Timeout: 30 * time.Second,
		}),
	}
}

func (a *Adapter) AuthorizationURL(state string) (string, error) {
	return a.oauthConfig.AuthCodeURL(state), nil
}

func (a *Adapter) ExchangeCode(ctx context.Context, code string) (string, string, time.Time, error) {
	tok, err := a.oauthConfig.Exchange(ctx, code)
	if err != nil {
		return "", "", time.Time{}, fmt.Errorf("microsoft token exchange: %w", err)
	}
	return tok.AccessToken, tok.RefreshToken, tok.Expiry, nil
}

func (a *Adapter) RefreshAccessToken(ctx context.Context, refreshToken string) (string, time.Time, error) {
	tokenSource := a.oauthConfig.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken})
	tok, err := tokenSource.Token()
	if err != nil {
		return "", time.Time{}, fmt.Errorf("microsoft token refresh: %w", err)
	}
	return tok.AccessToken, tok.Expiry, nil
}

// Revoke is a no-op: Microsoft Graph has no token revocation endpoint for
// this flow. The caller must still drop the stored tokens locally.
func (a *Adapter) Revoke(ctx context.Context, accessToken string) error {
	return nil
}

func (a *Adapter) do(req *http.Request) (*http.Response, error) {
	return a.breaker.Execute(func() (*http.Response, error) {
		return a.httpClient.Do(req)
	})
}

type graphDateTime struct {
	DateTime string `json:"dateTime"`
	TimeZone string `json:"timeZone"`
}

type graphEvent struct {
	Subject string `json:"subject"`
	Body    struct {
		ContentType string `json:"contentType"`
		Content     string `json:"content"`
	} `json:"body"`
	Start           graphDateTime `json:"start"`
	End             graphDateTime `json:"end"`
	Location        *struct {
		DisplayName string `json:"displayName"`
	} `json:"location,omitempty"`
	Attendees []struct {
		EmailAddress struct {
			Address string `json:"address"`
		} `json:"emailAddress"`
	} `json:"attendees,omitempty"`
}

func toGraphEvent(e domain.EventInput) graphEvent {
	ev := graphEvent{Subject: e.Title}
	ev.Body.ContentType = "text"
	ev.Body.Content = e.Description
	ev.Start = graphDateTime{DateTime: e.Start.Format("2006-01-02T15:04:05.0000000"), TimeZone: "UTC"}
	ev.End = graphDateTime{DateTime: e.End.Format("2006-01-02T15:04:05.0000000"), TimeZone: "UTC"}
	if e.MeetingLink != "" {
		ev.Location = &struct {
			DisplayName string `json:"displayName"`
		}{DisplayName: e.MeetingLink}
	}
	for _, email := range e.Attendees {
		if email == "" {
			continue
		}
		a := struct {
			EmailAddress struct {
				Address string `json:"address"`
			} `json:"emailAddress"`
		}{}
		a.EmailAddress.Address = email
		ev.Attendees = append(ev.Attendees, a)
	}
	return ev
}

func (a *Adapter) CreateEvent(ctx context.Context, accessToken, calendarID string, event domain.EventInput) (string, error) {
	body, err := json.Marshal(toGraphEvent(event))
	if err != nil {
		return "", err
	}
	url := a.eventsURL(calendarID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	a.authorize(req, accessToken)
	resp, err := a.do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", responseError(resp)
	}
	var created struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		return "", err
	}
	return created.ID, nil
}

func (a *Adapter) UpdateEvent(ctx context.Context, accessToken, calendarID, providerEventID string, event domain.EventInput) error {
	body, err := json.Marshal(toGraphEvent(event))
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPatch, a.eventsURL(calendarID)+"/"+providerEventID, bytes.NewReader(body))
	if err != nil {
		return err
	}
	a.authorize(req, accessToken)
	resp, err := a.do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return responseError(resp)
	}
	return nil
}

func (a *Adapter) DeleteEvent(ctx context.Context, accessToken, calendarID, providerEventID string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, a.eventsURL(calendarID)+"/"+providerEventID, nil)
	if err != nil {
		return err
	}
	a.authorize(req, accessToken)
	resp, err := a.do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 && resp.StatusCode != http.StatusNotFound {
		return responseError(resp)
	}
	return nil
}

func (a *Adapter) Busy(ctx context.Context, accessToken, calendarID string, from, to time.Time) ([]domain.BusyPeriod, error) {
	payload := map[string]interface{}{
		"schedules":             []string{calendarID},
		"startTime":             graphDateTime{DateTime: from.Format("2006-01-02T15:04:05"), TimeZone: "UTC"},
		"endTime":               graphDateTime{DateTime: to.Format("2006-01-02T15:04:05"), TimeZone: "UTC"},
		"availabilityViewInterval": 30,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/me/calendar/getSchedule", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	a.authorize(req, accessToken)
	resp, err := a.do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, responseError(resp)
	}

	var parsed struct {
		Value []struct {
			ScheduleItems []struct {
				Start graphDateTime `json:"start"`
				End   graphDateTime `json:"end"`
			} `json:"scheduleItems"`
		} `json:"value"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, err
	}

	var out []domain.BusyPeriod
	for _, sched := range parsed.Value {
		for _, item := range sched.ScheduleItems {
			start, err := time.Parse("2006-01-02T15:04:05.0000000", item.Start.DateTime)
			if err != nil {
				continue
			}
			end, err := time.Parse("2006-01-02T15:04:05.0000000", item.End.DateTime)
			if err != nil {
				continue
			}
			out = append(out, domain.BusyPeriod{Start: start, End: end})
		}
	}
	return out, nil
}

func (a *Adapter) UserEmail(ctx context.Context, accessToken string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.baseURL+"/me", nil)
	if err != nil {
		return "", err
	}
	a.authorize(req, accessToken)
	resp, err := a.do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", responseError(resp)
	}
	var info struct {
		Mail              string `json:"mail"`
		UserPrincipalName string `json:"userPrincipalName"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return "", err
	}
	if info.Mail != "" {
		return info.Mail, nil
	}
	return info.UserPrincipalName, nil
}

func (a *Adapter) eventsURL(calendarID string) string {
	if calendarID == "" || calendarID == "primary" {
		return a.baseURL + "/me/events"
	}
	return fmt.Sprintf("%s/me/calendars/%s/events", a.baseURL, calendarID)
}

func (a *Adapter) authorize(req *http.Request, accessToken string) {
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Content-Type", "application/json")
}

func responseError(resp *http.Response) error {
	body, _ := io.ReadAll(resp.Body)
	return fmt.Errorf("microsoft graph request failed: status=%d body=%s", resp.StatusCode, string(body))
}

var _ domain.Adapter = (*Adapter)(nil)
