package agents

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/presentos/presentos/internal/config"
	"github.com/presentos/presentos/internal/temporal"
	"github.com/presentos/presentos/pkg/models"
)

// defaultReminderMinutes is the popup lead time stamped on timed events.
// All-day events get no reminder.
const defaultReminderMinutes = 10

// CalendarService creates and lists calendar events. Scheduling language in
// the event text is resolved by the temporal parser. With no external
// calendar configured, events are kept in process memory.
type CalendarService struct {
	cfg    config.CalendarConfig
	parser *temporal.Parser
	client *http.Client

	mu     sync.Mutex
	events []models.Event
}

// NewCalendarService creates the calendar collaborator.
func NewCalendarService(cfg config.CalendarConfig, parser *temporal.Parser) *CalendarService {
	return &CalendarService{
		cfg:    cfg,
		parser: parser,
		client: &http.Client{Timeout: 15 * time.Second},
	}
}

func (c *CalendarService) external() bool {
	return c.cfg.Endpoint != "" && c.cfg.Token != ""
}

// CreateEventFromText parses the scheduling language in text and creates the
// event. All-day events span exactly one day.
func (c *CalendarService) CreateEventFromText(ctx context.Context, title, text string) *models.EventResult {
	if title == "" {
		title = "Meeting"
	}

	parsed := c.parser.Parse(text, time.Now())

	event := models.Event{
		ID:       uuid.New().String(),
		Title:    title,
		IsAllDay: parsed.AllDay,
	}
	if parsed.AllDay {
		event.Start = parsed.Date
		event.End = parsed.Date.AddDate(0, 0, 1)
	} else {
		event.Start = parsed.Start
		event.End = parsed.End
		event.ReminderMinutes = defaultReminderMinutes
	}

	if c.external() {
		if err := c.pushExternal(ctx, &event); err != nil {
			log.Error().Err(err).Str("title", title).Msg("Event creation failed")
			return &models.EventResult{Success: false, Title: title, Error: err.Error()}
		}
	} else {
		c.mu.Lock()
		c.events = append(c.events, event)
		c.mu.Unlock()
	}

	log.Info().
		Str("title", title).
		Time("start", event.Start).
		Bool("all_day", event.IsAllDay).
		Msg("Event created")

	return &models.EventResult{
		Success:  true,
		EventID:  event.ID,
		Title:    title,
		Start:    event.Start,
		End:      event.End,
		IsAllDay: event.IsAllDay,
		Link:     event.Link,
	}
}

// Events lists events overlapping the [start, end) window.
func (c *CalendarService) Events(ctx context.Context, start, end time.Time) ([]models.Event, error) {
	if c.external() {
		return c.queryExternal(ctx, start, end)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	var out []models.Event
	for _, e := range c.events {
		if e.Start.Before(end) && e.End.After(start) {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out, nil
}

// TodayEvents lists today's events in the parser's timezone.
func (c *CalendarService) TodayEvents(ctx context.Context) ([]models.Event, error) {
	now := time.Now().In(c.parser.Location())
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, c.parser.Location())
	return c.Events(ctx, start, start.AddDate(0, 0, 1))
}

// Summary builds today's agenda with the next upcoming event.
func (c *CalendarService) Summary(ctx context.Context) (*models.CalendarSummary, error) {
	events, err := c.TodayEvents(ctx)
	if err != nil {
		return nil, err
	}

	summary := &models.CalendarSummary{
		TodayCount:  len(events),
		TodayEvents: events,
	}
	now := time.Now()
	for i := range events {
		if events[i].Start.After(now) {
			summary.NextEvent = &events[i]
			break
		}
	}
	return summary, nil
}

// ── External calendar ───────────────────────────────────────

type externalEvent struct {
	ID              string `json:"id"`
	Title           string `json:"title"`
	Start           string `json:"start"`
	End             string `json:"end"`
	IsAllDay        bool   `json:"is_all_day"`
	ReminderMinutes int    `json:"reminder_minutes,omitempty"`
	Link            string `json:"link,omitempty"`
}

func (c *CalendarService) pushExternal(ctx context.Context, event *models.Event) error {
	body, _ := json.Marshal(externalEvent{
		Title:           event.Title,
		Start:           event.Start.Format(time.RFC3339),
		End:             event.End.Format(time.RFC3339),
		IsAllDay:        event.IsAllDay,
		ReminderMinutes: event.ReminderMinutes,
	})
	url := fmt.Sprintf("%s/calendars/%s/events", c.cfg.Endpoint, c.cfg.CalendarID)

	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.Token)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("calendar: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("calendar: status %d: %s", resp.StatusCode, string(respBody))
	}

	var created externalEvent
	if err := json.NewDecoder(resp.Body).Decode(&created); err == nil && created.ID != "" {
		event.ID = created.ID
		event.Link = created.Link
	}
	return nil
}

func (c *CalendarService) queryExternal(ctx context.Context, start, end time.Time) ([]models.Event, error) {
	url := fmt.Sprintf("%s/calendars/%s/events?start=%s&end=%s",
		c.cfg.Endpoint, c.cfg.CalendarID,
		start.Format(time.RFC3339), end.Format(time.RFC3339))

	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.Token)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calendar: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("calendar: status %d", resp.StatusCode)
	}

	var payload struct {
		Events []externalEvent `json:"events"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("calendar: decode response: %w", err)
	}

	out := make([]models.Event, 0, len(payload.Events))
	for _, ee := range payload.Events {
		e := models.Event{ID: ee.ID, Title: ee.Title, IsAllDay: ee.IsAllDay, Link: ee.Link}
		if ts, err := time.Parse(time.RFC3339, ee.Start); err == nil {
			e.Start = ts
		}
		if ts, err := time.Parse(time.RFC3339, ee.End); err == nil {
			e.End = ts
		}
		out = append(out, e)
	}
	return out, nil
}
