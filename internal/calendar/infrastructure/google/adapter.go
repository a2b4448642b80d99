// Package google implements the calendar Adapter against the Google
// Calendar v3 REST API, grounded on the teacher's oauthTransport/REST-call
// idiom from its original bidirectional syncer.
package google

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
	googleoauth "golang.org/x/oauth2/google"
)

const defaultBaseURL = "https://www.googleapis.com/calendar/v3"

// Adapter implements domain.Adapter against the Google Calendar REST API.
type Adapter struct {
	oauthConfig *oauth2.Config
	httpClient  *http.Client
	baseURL     string
	logger      *slog.Logger
	breaker     *gobreaker.CircuitBreaker[*http.Response]
}

// NewAdapter constructs a Google Calendar adapter. clientID/clientSecret are
// the OAuth2 app credentials (CALENDAR_GOOGLE_CLIENT_ID/SECRET), redirectURL
// is the callback registered with Google.
func NewAdapter(clientID, clientSecret, redirectURL string, logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Adapter{
		oauthConfig: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Scopes:       []string{"https://www.googleapis.com/auth/calendar"},
			Endpoint:     googleoauth.Endpoint,
		},
		httpClient: &http.Client{Timeout: 10 * time.Second},
		baseURL:    defaultBaseURL,
		logger:     logger,
		breaker: gobreaker.NewCircuitBreaker[*http.Response](gobreaker.Settings{
			Name:    "google-calendar",
			Timeout: 30 * time.Second,
		}),
	}
}

func (a *Adapter) AuthorizationURL(state string) (string, error) {
	return a.oauthConfig.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce), nil
}

func (a *Adapter) ExchangeCode(ctx context.Context, code string) (string, string, time.Time, error) {
	tok, err := a.oauthConfig.Exchange(ctx, code)
	if err != nil {
		return "", "", time.Time{}, fmt.Errorf("google token exchange: %w", err)
	}
	return tok.AccessToken, tok.RefreshToken, tok.Expiry, nil
}

func (a *Adapter) RefreshAccessToken(ctx context.Context, refreshToken string) (string, time.Time, error) {
	tokenSource := a.oauthConfig.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken})
	tok, err := tokenSource.Token()
	if err != nil {
		return "", time.Time{}, fmt.Errorf("google token refresh: %w", err)
	}
	return tok.AccessToken, tok.Expiry, nil
}

func (a *Adapter) Revoke(ctx context.Context, accessToken string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		"https://oauth2.googleapis.com/revoke?token="+accessToken, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp, err := a.do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return responseError(resp)
	}
	return nil
}

func (a *Adapter) do(req *http.Request) (*http.Response, error) {
	return a.breaker.Execute(func() (*http.Response, error) {
		return a.httpClient.Do(req)
	})
}

type googleEvent struct {
	ID          string `json:"id,omitempty"`
	Summary     string `json:"summary"`
	Description string `json:"description,omitempty"`
	Location    string `json:"location,omitempty"`
	Attendees   []struct {
		Email string `json:"email"`
	} `json:"attendees,omitempty"`
	Start struct {
		DateTime string `json:"dateTime"`
	} `json:"start"`
	End struct {
		DateTime string `json:"dateTime"`
	} `json:"end"`
}

func toGoogleEvent(e domain.EventInput) googleEvent {
	event := googleEvent{
		Summary:     e.Title,
		Description: e.Description,
		Location:    e.MeetingLink,
	}
	event.Start.DateTime = e.Start.Format(time.RFC3339)
	event.End.DateTime = e.End.Format(time.RFC3339)
	for _, email := range e.Attendees {
		if email == "" {
			continue
		}
		event.Attendees = append(event.Attendees, struct {
			Email string `json:"email"`
		}{Email: email})
	}
	return event
}

func (a *Adapter) CreateEvent(ctx context.Context, accessToken, calendarID string, event domain.EventInput) (string, error) {
	body, err := json.Marshal(toGoogleEvent(event))
	if err != nil {
		return "", err
	}
	url := fmt.Sprintf("%s/calendars/%s/events", a.baseURL, calendarID)
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
	body, err := json.Marshal(toGoogleEvent(event))
	if err != nil {
		return err
	}
	url := fmt.Sprintf("%s/calendars/%s/events/%s", a.baseURL, calendarID, providerEventID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(body))
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
	url := fmt.Sprintf("%s/calendars/%s/events/%s", a.baseURL, calendarID, providerEventID)
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, url, nil)
	if err != nil {
		return err
	}
	a.authorize(req, accessToken)
	resp, err := a.do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 && resp.StatusCode != http.StatusGone && resp.StatusCode != http.StatusNotFound {
		return responseError(resp)
	}
	return nil
}

func (a *Adapter) Busy(ctx context.Context, accessToken, calendarID string, from, to time.Time) ([]domain.BusyPeriod, error) {
	payload := map[string]interface{}{
		"timeMin": from.Format(time.RFC3339),
		"timeMax": to.Format(time.RFC3339),
		"items":   []map[string]string{{"id": calendarID}},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/freeBusy", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	a.authorize(req, accessToken)
	req.Header.Set("Content-Type", "application/json")
	resp, err := a.do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, responseError(resp)
	}

	var parsed struct {
		Calendars map[string]struct {
			Busy []struct {
				Start string `json:"start"`
				End   string `json:"end"`
			} `json:"busy"`
		} `json:"calendars"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, err
	}

	var out []domain.BusyPeriod
	for _, cal := range parsed.Calendars {
		for _, b := range cal.Busy {
			start, err := time.Parse(time.RFC3339, b.Start)
			if err != nil {
				continue
			}
			end, err := time.Parse(time.RFC3339, b.End)
			if err != nil {
				continue
			}
			out = append(out, domain.BusyPeriod{Start: start, End: end})
		}
	}
	return out, nil
}

func (a *Adapter) UserEmail(ctx context.Context, accessToken string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, "https://www.googleapis.com/oauth2/v2/userinfo", nil)
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
		Email string `json:"email"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return "", err
	}
	return info.Email, nil
}

func (a *Adapter) authorize(req *http.Request, accessToken string) {
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Content-Type", "application/json")
}

func responseError(resp *http.Response) error {
	body, _ := io.ReadAll(resp.Body)
	return fmt.Errorf("google calendar request failed: status=%d body=%s", resp.StatusCode, string(body))
}

var _ domain.Adapter = (*Adapter)(nil)
