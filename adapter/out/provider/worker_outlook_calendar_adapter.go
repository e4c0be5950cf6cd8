package provider

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"exchange_calendar/core/domain"
	"exchange_calendar/core/port/out"
	"exchange_calendar/pkg/httputil"
	"exchange_calendar/pkg/resilience"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

const (
	msGraphBaseURL    = "https://graph.microsoft.com/v1.0"
	msGraphScope      = "https://graph.microsoft.com/.default"
	outlookTimeFormat = "2006-01-02T15:04:05"
	eventSelectFields = "subject,start,end,location,body,isAllDay,iCalUId"
	maxEventPages     = 100
)

var (
	ErrGraphUnauthorized  = errors.New("graph: unauthorized")
	ErrMissingGraphConfig = errors.New("graph: tenant_id, client_id, client_secret and mailbox are required")
)

// OutlookCalendarConfig holds Microsoft Graph application credentials.
type OutlookCalendarConfig struct {
	TenantID     string
	ClientID     string
	ClientSecret string
	Mailbox      string
	Location     *time.Location
	BaseURL      string // overrides msGraphBaseURL
	TokenURL     string // overrides the Azure AD token endpoint
	PageSize     int
}

// OutlookCalendarAdapter reads an Exchange Online calendar through Microsoft Graph.
type OutlookCalendarAdapter struct {
	cfg OutlookCalendarConfig
	cb  *gobreaker.CircuitBreaker
	log zerolog.Logger

	// HTTPClient overrides the client used for token and API requests.
	HTTPClient *http.Client
}

var _ out.MailboxConnector = (*OutlookCalendarAdapter)(nil)

// NewOutlookCalendarAdapter creates a new Outlook Calendar adapter.
func NewOutlookCalendarAdapter(cfg OutlookCalendarConfig, log zerolog.Logger) *OutlookCalendarAdapter {
	if cfg.BaseURL == "" {
		cfg.BaseURL = msGraphBaseURL
	}
	if cfg.TokenURL == "" {
		cfg.TokenURL = fmt.Sprintf("https://login.microsoftonline.com/%s/oauth2/v2.0/token", cfg.TenantID)
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}

	l := log.With().Str("component", "graph").Logger()
	return &OutlookCalendarAdapter{
		cfg: cfg,
		cb:  resilience.NewCircuitBreaker(resilience.DefaultCircuitBreakerConfig("graph-api"), l),
		log: l,
	}
}

// getClient creates an HTTP client authorized with client credentials.
func (a *OutlookCalendarAdapter) getClient() *http.Client {
	base := a.HTTPClient
	if base == nil {
		base = httputil.NewClient(httputil.GraphClientConfig(), nil)
	}

	oauthCfg := clientcredentials.Config{
		ClientID:     a.cfg.ClientID,
		ClientSecret: a.cfg.ClientSecret,
		TokenURL:     a.cfg.TokenURL,
		Scopes:       []string{msGraphScope},
	}
	ctx := context.WithValue(context.Background(), oauth2.HTTPClient, base)
	client := oauthCfg.Client(ctx)
	client.Timeout = base.Timeout
	return client
}

// Breaker exposes the circuit breaker for health output.
func (a *OutlookCalendarAdapter) Breaker() *gobreaker.CircuitBreaker {
	return a.cb
}

// =============================================================================
// Calendar Operations
// =============================================================================

// Connect resolves the mailbox's default calendar.
func (a *OutlookCalendarAdapter) Connect(ctx context.Context) (out.CalendarFolder, error) {
	if a.cfg.TenantID == "" || a.cfg.ClientID == "" || a.cfg.ClientSecret == "" || a.cfg.Mailbox == "" {
		return nil, ErrMissingGraphConfig
	}

	client := a.getClient()
	endpoint := a.cfg.BaseURL + "/users/" + url.PathEscape(a.cfg.Mailbox) + "/calendar"

	var cal struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}
	if err := a.getJSON(ctx, client, endpoint, &cal); err != nil {
		return nil, fmt.Errorf("failed to get calendar: %w", err)
	}

	a.log.Info().Str("mailbox", a.cfg.Mailbox).Str("calendar", cal.Name).Msg("connected to graph calendar")
	return &outlookCalendar{adapter: a, client: client, id: cal.ID, name: cal.Name}, nil
}

// outlookCalendar is the resolved default calendar of one mailbox.
type outlookCalendar struct {
	adapter *OutlookCalendarAdapter
	client  *http.Client
	id      string
	name    string
}

func (c *outlookCalendar) Name() string { return c.name }

// Filter lists events matching every bound of q, following @odata.nextLink.
func (c *outlookCalendar) Filter(ctx context.Context, q out.CalendarQuery) ([]*domain.CandidateEvent, error) {
	a := c.adapter

	params := url.Values{}
	params.Set("$select", eventSelectFields)
	if a.cfg.PageSize > 0 {
		params.Set("$top", fmt.Sprintf("%d", a.cfg.PageSize))
	}
	if filter := buildEventFilter(q); filter != "" {
		params.Set("$filter", filter)
	}

	endpoint := a.cfg.BaseURL + "/users/" + url.PathEscape(a.cfg.Mailbox) + "/calendar/events?" + params.Encode()

	var events []*domain.CandidateEvent
	for page := 0; endpoint != "" && page < maxEventPages; page++ {
		var result struct {
			Value    []outlookEvent `json:"value"`
			NextLink string         `json:"@odata.nextLink"`
		}
		if err := a.getJSON(ctx, c.client, endpoint, &result); err != nil {
			return nil, fmt.Errorf("failed to list events: %w", err)
		}

		for i := range result.Value {
			ev, err := a.convertEvent(&result.Value[i])
			if err != nil {
				return nil, err
			}
			events = append(events, ev)
		}
		endpoint = result.NextLink
	}

	if events == nil {
		events = []*domain.CandidateEvent{}
	}
	return events, nil
}

func (a *OutlookCalendarAdapter) getJSON(ctx context.Context, client *http.Client, endpoint string, dst any) error {
	_, err := resilience.Execute(a.cb, func() (struct{}, error) {
		err := a.doGet(ctx, client, endpoint, dst)
		if err != nil && ctx.Err() != nil {
			return struct{}{}, resilience.NotCounted(err)
		}
		return struct{}{}, err
	})
	return err
}

func (a *OutlookCalendarAdapter) doGet(ctx context.Context, client *http.Client, endpoint string, dst any) error {
	req, err := http.NewRequest(http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Prefer", `outlook.timezone="UTC", outlook.body-content-type="text"`)
	req.Header.Set("Accept", "application/json")

	resp, err := httputil.DoWithContext(ctx, client, req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("%w: status %d", ErrGraphUnauthorized, resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("request failed with status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// buildEventFilter renders q as an OData $filter over UTC date-times.
func buildEventFilter(q out.CalendarQuery) string {
	var clauses []string
	if q.StartBefore != nil {
		clauses = append(clauses, fmt.Sprintf("start/dateTime lt '%s'", q.StartBefore.UTC().Format(outlookTimeFormat)))
	}
	if q.EndAfter != nil {
		clauses = append(clauses, fmt.Sprintf("end/dateTime gt '%s'", q.EndAfter.UTC().Format(outlookTimeFormat)))
	}
	if q.EndBefore != nil {
		clauses = append(clauses, fmt.Sprintf("end/dateTime lt '%s'", q.EndBefore.UTC().Format(outlookTimeFormat)))
	}
	return strings.Join(clauses, " and ")
}

// =============================================================================
// Types
// =============================================================================

type outlookEvent struct {
	ID      string `json:"id"`
	ICalUID string `json:"iCalUId"`
	Subject string `json:"subject"`
	Body    struct {
		ContentType string `json:"contentType"`
		Content     string `json:"content"`
	} `json:"body"`
	Start    outlookDateTime `json:"start"`
	End      outlookDateTime `json:"end"`
	Location struct {
		DisplayName string `json:"displayName"`
	} `json:"location"`
	IsAllDay bool `json:"isAllDay"`
}

type outlookDateTime struct {
	DateTime string `json:"dateTime"`
	TimeZone string `json:"timeZone"`
}

func (a *OutlookCalendarAdapter) convertEvent(ev *outlookEvent) (*domain.CandidateEvent, error) {
	event := &domain.CandidateEvent{
		UID:      ev.ICalUID,
		Subject:  ev.Subject,
		Location: ev.Location.DisplayName,
		TextBody: ev.Body.Content,
		IsAllDay: ev.IsAllDay,
	}
	if event.UID == "" {
		event.UID = ev.ID
	}

	start, err := a.parseTime(ev.Start, ev.IsAllDay)
	if err != nil {
		return nil, err
	}
	end, err := a.parseTime(ev.End, ev.IsAllDay)
	if err != nil {
		return nil, err
	}
	event.Start, event.End = start, end
	return event, nil
}

// parseTime reads a Graph dateTimeTimeZone. All-day values carry the date
// as written; timed values are UTC per the Prefer header.
func (a *OutlookCalendarAdapter) parseTime(v outlookDateTime, allDay bool) (domain.EventTime, error) {
	if allDay {
		if len(v.DateTime) < 10 {
			return domain.EventTime{}, fmt.Errorf("invalid all-day date %q", v.DateTime)
		}
		d, err := time.ParseInLocation("2006-01-02", v.DateTime[:10], a.cfg.Location)
		if err != nil {
			return domain.EventTime{}, fmt.Errorf("invalid all-day date %q: %w", v.DateTime, err)
		}
		return domain.DateOf(d), nil
	}

	t, err := time.Parse(outlookTimeFormat, v.DateTime)
	if err != nil {
		return domain.EventTime{}, fmt.Errorf("invalid date-time %q: %w", v.DateTime, err)
	}
	return domain.DateTimeOf(t.In(a.cfg.Location)), nil
}
