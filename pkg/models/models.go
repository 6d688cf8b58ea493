// Package models defines the shared domain types for the Present OS backend:
// intents, routing results, tasks, contacts, gamification state, weather, and
// the execution-trace shapes produced by the orchestrator.
package models

import (
	"time"
)

// ── Intent ───────────────────────────────────────────────────

// IntentType is the closed set of actions a user request can resolve to.
type IntentType string

const (
	IntentTask        IntentType = "task"
	IntentSchedule    IntentType = "schedule"
	IntentEmail       IntentType = "email"
	IntentSearch      IntentType = "search"
	IntentChat        IntentType = "chat"
	IntentContact     IntentType = "contact"
	IntentContactList IntentType = "contact_list"
	IntentReport      IntentType = "report"
	IntentWeather     IntentType = "weather"
	IntentFocus       IntentType = "focus"
	IntentXP          IntentType = "xp"
)

// Valid reports whether t is a member of the closed intent set.
func (t IntentType) Valid() bool {
	switch t {
	case IntentTask, IntentSchedule, IntentEmail, IntentSearch, IntentChat,
		IntentContact, IntentContactList, IntentReport, IntentWeather,
		IntentFocus, IntentXP:
		return true
	}
	return false
}

// Priority is the P1–P4 urgency scale. P1 is most urgent.
type Priority string

const (
	PriorityP1 Priority = "P1"
	PriorityP2 Priority = "P2"
	PriorityP3 Priority = "P3"
	PriorityP4 Priority = "P4"
)

// Valid reports whether p is one of P1–P4.
func (p Priority) Valid() bool {
	switch p {
	case PriorityP1, PriorityP2, PriorityP3, PriorityP4:
		return true
	}
	return false
}

// Avatar is one of the four PAEI productivity personas.
type Avatar string

const (
	AvatarProducer      Avatar = "Producer"
	AvatarAdministrator Avatar = "Administrator"
	AvatarEntrepreneur  Avatar = "Entrepreneur"
	AvatarIntegrator    Avatar = "Integrator"
)

// Avatars lists all four personas in canonical order.
func Avatars() []Avatar {
	return []Avatar{AvatarProducer, AvatarAdministrator, AvatarEntrepreneur, AvatarIntegrator}
}

// Valid reports whether a is a known persona.
func (a Avatar) Valid() bool {
	switch a {
	case AvatarProducer, AvatarAdministrator, AvatarEntrepreneur, AvatarIntegrator:
		return true
	}
	return false
}

// Entities holds the raw strings the classifier extracted from the input.
type Entities struct {
	Dates  []string `json:"dates,omitempty"`
	Times  []string `json:"times,omitempty"`
	Emails []string `json:"emails,omitempty"`
	Names  []string `json:"names,omitempty"`
	Topics []string `json:"topics,omitempty"`
}

// Intent is a classified user request. Params is a tagged union: exactly the
// variant matching Type is populated (or nil for intents with no parameters,
// e.g. weather/report/xp).
type Intent struct {
	Type          IntentType `json:"intent_type"`
	Entities      Entities   `json:"entities"`
	Priority      Priority   `json:"priority"`
	Avatar        Avatar     `json:"avatar"`
	Params        Params     `json:"params,omitempty"`
	OriginalInput string     `json:"original_input"`
}

// Params is the tagged union of per-intent parameters. Concrete variants:
// TaskParams, ScheduleParams, EmailParams, QueryParams, ContactParams,
// FocusParams.
type Params interface {
	intentParams()
}

// TaskParams carries task-creation parameters.
type TaskParams struct {
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	DueDate     string `json:"due_date,omitempty"` // YYYY-MM-DD
}

// ScheduleParams carries calendar-event parameters. The temporal details live
// in the original input text; the calendar agent parses them itself.
type ScheduleParams struct {
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
}

// EmailParams carries outbound email parameters. To must be present before
// the email agent will attempt a send.
type EmailParams struct {
	To      string `json:"to_email,omitempty"`
	Subject string `json:"subject,omitempty"`
	Body    string `json:"body,omitempty"`
}

// QueryParams carries the free-text query for search and chat intents.
type QueryParams struct {
	Query string `json:"query"`
}

// ContactParams carries contact add/list parameters.
type ContactParams struct {
	Action  string   `json:"action,omitempty"` // "list" or "add"
	Name    string   `json:"contact_name,omitempty"`
	Email   string   `json:"email,omitempty"`
	Phone   string   `json:"phone,omitempty"`
	Company string   `json:"company,omitempty"`
	Role    string   `json:"role,omitempty"`
	Tags    []string `json:"tags,omitempty"`
}

// FocusParams carries focus-session parameters.
type FocusParams struct {
	Action          string `json:"action,omitempty"` // "start" or "status"
	DurationMinutes int    `json:"duration_minutes,omitempty"`
}

func (*TaskParams) intentParams()     {}
func (*ScheduleParams) intentParams() {}
func (*EmailParams) intentParams()    {}
func (*QueryParams) intentParams()    {}
func (*ContactParams) intentParams()  {}
func (*FocusParams) intentParams()    {}

// ── Orchestration trace ──────────────────────────────────────

// AgentResult records one collaborator invocation. Err is set when the
// collaborator failed outright; some collaborators additionally return
// soft-failure payloads inside Result.
type AgentResult struct {
	Agent  string         `json:"agent"`
	Action string         `json:"action"`
	Result map[string]any `json:"result,omitempty"`
	Err    string         `json:"error,omitempty"`
}

// Error returns the first error carried by this result, or "".
func (r AgentResult) Error() string {
	if r.Err != "" {
		return r.Err
	}
	if r.Result != nil {
		if e, ok := r.Result["error"].(string); ok && e != "" {
			return e
		}
	}
	return ""
}

// ProcessResult is the full trace returned by Orchestrator.Process.
type ProcessResult struct {
	Response string        `json:"response"`
	Intent   *Intent       `json:"intent,omitempty"`
	Agents   []string      `json:"agents,omitempty"`
	Actions  []AgentResult `json:"actions,omitempty"`
	Success  bool          `json:"success"`
}

// SystemContext is the ambient state used to prime the chat collaborator.
// Sub-fetch failures are swallowed by the orchestrator, so every field always
// holds a usable value.
type SystemContext struct {
	CurrentTime time.Time `json:"current_time"`
	EnergyLevel int       `json:"energy_level"`
	TaskBacklog int       `json:"task_backlog"`
	Weather     string    `json:"weather"`
}

// ── Tasks ────────────────────────────────────────────────────

// TaskStatus values mirror the task database columns.
const (
	TaskStatusInbox      = "Inbox"
	TaskStatusScheduled  = "Scheduled"
	TaskStatusInProgress = "In Progress"
	TaskStatusDone       = "Done"
)

// Task is one row from the task database.
type Task struct {
	ID       string    `json:"id"`
	Title    string    `json:"title"`
	Status   string    `json:"status"`
	Avatar   Avatar    `json:"avatar"`
	Priority Priority  `json:"priority"`
	DueDate  string    `json:"due_date,omitempty"` // YYYY-MM-DD
	XPValue  int       `json:"xp_value"`
	Created  time.Time `json:"created"`
	URL      string    `json:"url,omitempty"`
}

// TaskFilter narrows task listings. Zero values mean "no filter".
type TaskFilter struct {
	Status   string
	Avatar   Avatar
	Priority Priority
	Limit    int
}

// TaskCreateResult is the outcome of a task creation.
type TaskCreateResult struct {
	Success  bool     `json:"success"`
	TaskID   string   `json:"task_id,omitempty"`
	Title    string   `json:"title"`
	Avatar   Avatar   `json:"avatar,omitempty"`
	Priority Priority `json:"priority,omitempty"`
	Status   string   `json:"status,omitempty"`
	XPValue  int      `json:"xp_value,omitempty"`
	URL      string   `json:"url,omitempty"`
	Error    string   `json:"error,omitempty"`
}

// ── Calendar ─────────────────────────────────────────────────

// Event is one calendar entry.
type Event struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
	IsAllDay    bool      `json:"is_all_day"`
	Description string    `json:"description,omitempty"`
	Location    string    `json:"location,omitempty"`
	Link        string    `json:"link,omitempty"`

	// ReminderMinutes is the popup lead time. Zero for all-day events.
	ReminderMinutes int `json:"reminder_minutes,omitempty"`
}

// EventResult is the outcome of an event creation.
type EventResult struct {
	Success  bool      `json:"success"`
	EventID  string    `json:"event_id,omitempty"`
	Title    string    `json:"title"`
	Start    time.Time `json:"start,omitempty"`
	End      time.Time `json:"end,omitempty"`
	IsAllDay bool      `json:"is_all_day"`
	Link     string    `json:"link,omitempty"`
	Error    string    `json:"error,omitempty"`
}

// CalendarSummary is today's agenda at a glance.
type CalendarSummary struct {
	TodayCount  int     `json:"today_count"`
	TodayEvents []Event `json:"today_events"`
	NextEvent   *Event  `json:"next_event,omitempty"`
}

// ── Email ────────────────────────────────────────────────────

// SendResult is the outcome of an email send.
type SendResult struct {
	Success   bool   `json:"success"`
	MessageID string `json:"message_id,omitempty"`
	To        string `json:"to,omitempty"`
	Subject   string `json:"subject,omitempty"`
	Error     string `json:"error,omitempty"`
}

// EmailSummary is one inbox entry, used by the daily report.
type EmailSummary struct {
	ID      string `json:"id"`
	From    string `json:"from"`
	Subject string `json:"subject"`
	Date    string `json:"date"`
	Snippet string `json:"snippet,omitempty"`
}

// ── Weather ──────────────────────────────────────────────────

// WeatherReport holds current conditions.
type WeatherReport struct {
	Location    string  `json:"location"`
	TempC       float64 `json:"temp"`
	FeelsLikeC  float64 `json:"feels_like"`
	Condition   string  `json:"condition"`
	Humidity    int     `json:"humidity"`
	WindKPH     float64 `json:"wind_kph"`
	UVIndex     float64 `json:"uv_index"`
	LastUpdated string  `json:"last_updated"`
}

// ForecastDay is one day of forecast data.
type ForecastDay struct {
	Date         string  `json:"date"`
	MaxTempC     float64 `json:"max_temp"`
	MinTempC     float64 `json:"min_temp"`
	Condition    string  `json:"condition"`
	ChanceOfRain int     `json:"chance_of_rain"`
	Sunrise      string  `json:"sunrise"`
	Sunset       string  `json:"sunset"`
}

// OutdoorRecommendation says whether conditions suit outdoor scheduling.
type OutdoorRecommendation struct {
	Recommended bool   `json:"recommended"`
	Reason      string `json:"reason"`
}

// ── Gamification ─────────────────────────────────────────────

// XPPerLevel is the flat XP cost of each avatar level.
const XPPerLevel = 100

// AvatarState is the persisted ledger entry for one avatar.
type AvatarState struct {
	Avatar Avatar `json:"avatar"`
	Level  int    `json:"level"`
	XP     int    `json:"xp"`
	Color  string `json:"color"`
}

// AvatarStatus is the derived, presentation-ready view of an avatar.
type AvatarStatus struct {
	Avatar          Avatar  `json:"avatar"`
	Level           int     `json:"level"`
	TotalXP         int     `json:"total_xp"`
	XPInLevel       int     `json:"xp_in_level"`
	XPToNextLevel   int     `json:"xp_to_next_level"`
	ProgressPercent float64 `json:"progress_percent"`
	Color           string  `json:"color"`
}

// Achievement records a level-up.
type Achievement struct {
	Avatar      Avatar    `json:"avatar"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Timestamp   time.Time `json:"timestamp"`
	Icon        string    `json:"icon"`
}

// AwardResult is the outcome of an XP award.
type AwardResult struct {
	Avatar        Avatar `json:"avatar"`
	XPAwarded     int    `json:"xp_awarded"`
	Reason        string `json:"reason"`
	NewXP         int    `json:"new_xp"`
	NewLevel      int    `json:"new_level"`
	LeveledUp     bool   `json:"leveled_up"`
	XPToNextLevel int    `json:"xp_to_next_level"`
}

// ── Contacts ─────────────────────────────────────────────────

// Contact is one entry in the personal network.
type Contact struct {
	ID      string    `json:"id"`
	Name    string    `json:"name"`
	Email   string    `json:"email,omitempty"`
	Phone   string    `json:"phone,omitempty"`
	Company string    `json:"company,omitempty"`
	Role    string    `json:"role,omitempty"`
	Tags    []string  `json:"tags,omitempty"`
	Created time.Time `json:"created"`
}

// ContactResult is the outcome of a contact add.
type ContactResult struct {
	Success bool     `json:"success"`
	Contact *Contact `json:"contact,omitempty"`
	Error   string   `json:"error,omitempty"`
}

// ── Chat ─────────────────────────────────────────────────────

// ChatMessage is one turn in a model conversation.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatResult is the outcome of a chat-model call.
type ChatResult struct {
	Success    bool   `json:"success"`
	Response   string `json:"response"`
	Model      string `json:"model,omitempty"`
	TokensUsed int64  `json:"tokens_used,omitempty"`
	Error      string `json:"error,omitempty"`
}

// ── Reports ──────────────────────────────────────────────────

// ReportSummary is the headline numbers of a daily report.
type ReportSummary struct {
	TasksCompleted    int `json:"total_tasks_completed"`
	EventsAttended    int `json:"events_attended"`
	EmailsProcessed   int `json:"emails_processed"`
	ProductivityScore int `json:"productivity_score"`
	TotalXP           int `json:"total_xp"`
}

// DailyReport aggregates the day's activity across collaborators.
type DailyReport struct {
	Date              string           `json:"date"`
	Type              string           `json:"type"`
	GeneratedAt       time.Time        `json:"generated_at"`
	Summary           ReportSummary    `json:"summary"`
	PriorityBreakdown map[Priority]int `json:"priority_breakdown"`
	AvatarBreakdown   map[Avatar]int   `json:"avatar_breakdown"`
	Insights          []string         `json:"insights"`
	Tasks             []Task           `json:"tasks_detail"`
	Events            []Event          `json:"events_detail"`
	XPStatus          []AvatarStatus   `json:"xp_status"`
	Recommendations   []string         `json:"recommendations"`
}

// ── Traces ───────────────────────────────────────────────────

// CommandTrace is a persisted record of one processed command.
type CommandTrace struct {
	ID         string    `json:"id"`
	Input      string    `json:"input"`
	IntentType string    `json:"intent_type"`
	Agents     []string  `json:"agents"`
	Success    bool      `json:"success"`
	DurationMs int64     `json:"duration_ms"`
	CreatedAt  time.Time `json:"created_at"`
}

// ── Notifications ────────────────────────────────────────────

// NotificationAction is the admission decision for a notification.
type NotificationAction string

const (
	ActionInterrupt NotificationAction = "interrupt"
	ActionQueue     NotificationAction = "queue"
)

// Notification is one incoming event evaluated by the admission policy.
type Notification struct {
	ID           string             `json:"id"`
	Type         string             `json:"type"`
	Priority     Priority           `json:"priority"`
	Content      map[string]any     `json:"content,omitempty"`
	Source       string             `json:"source"`
	Timestamp    time.Time          `json:"timestamp"`
	Interrupted  bool               `json:"interrupted"`
	SnoozedUntil *time.Time         `json:"snoozed_until,omitempty"`
}

// AdmissionDecision records why a notification was delivered or queued.
type AdmissionDecision struct {
	Action       NotificationAction `json:"action"`
	Notification Notification       `json:"notification"`
	Reason       string             `json:"reason"`
	QueuedCount  int                `json:"queued_count,omitempty"`
}

// FocusSession describes a started focus block.
type FocusSession struct {
	Active          bool      `json:"active"`
	TaskName        string    `json:"task_name,omitempty"`
	DurationMinutes int       `json:"duration_minutes"`
	StartTime       time.Time `json:"start_time"`
	EndTime         time.Time `json:"end_time"`
	Restarted       bool      `json:"restarted,omitempty"`
}

// FocusStatus is a read-only snapshot of the focus state machine.
type FocusStatus struct {
	Active           bool    `json:"active"`
	StartTime        string  `json:"start_time,omitempty"`
	ElapsedMinutes   float64 `json:"elapsed_minutes,omitempty"`
	RemainingMinutes float64 `json:"remaining_minutes,omitempty"`
	ProgressPercent  float64 `json:"progress_percent,omitempty"`
	QueuedCount      int     `json:"queued_notifications"`
}

// FocusEndResult reports a finished focus session with whatever queued up
// while it ran.
type FocusEndResult struct {
	DurationMinutes float64        `json:"duration_minutes"`
	Queued          []Notification `json:"queued_notifications"`
	Message         string         `json:"message"`
}

// InterruptStats summarizes the notification queue by priority.
type InterruptStats struct {
	TotalQueued       int              `json:"total_queued"`
	PriorityBreakdown map[Priority]int `json:"priority_breakdown"`
	FocusActive       bool             `json:"focus_mode_active"`
	DeepWorkWindow    string           `json:"deep_work_window"`
}
