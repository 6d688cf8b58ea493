package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/presentos/presentos/internal/agents"
	"github.com/presentos/presentos/internal/intent"
	"github.com/presentos/presentos/internal/interrupt"
	"github.com/presentos/presentos/internal/store"
	"github.com/presentos/presentos/pkg/models"
)

// defaultEnergyLevel stands in until a real energy model exists.
const defaultEnergyLevel = 70

// ── Collaborator contracts ──────────────────────────────────

type taskAgent interface {
	CreateTask(ctx context.Context, title string, avatar models.Avatar, priority models.Priority, dueDate string) *models.TaskCreateResult
	Tasks(ctx context.Context, filter models.TaskFilter) ([]models.Task, error)
	Backlog(ctx context.Context) (int, error)
}

type calendarAgent interface {
	CreateEventFromText(ctx context.Context, title, text string) *models.EventResult
}

type emailAgent interface {
	Send(ctx context.Context, to, subject, body string) *models.SendResult
}

type weatherAgent interface {
	Current(ctx context.Context) (*models.WeatherReport, error)
	OutdoorRecommendation(ctx context.Context) *models.OutdoorRecommendation
}

type xpAgent interface {
	AwardXP(ctx context.Context, avatar models.Avatar, amount int, reason string) (*models.AwardResult, error)
	AllAvatars(ctx context.Context) ([]models.AvatarStatus, error)
}

type contactAgent interface {
	Add(ctx context.Context, contact models.Contact, rawText string) *models.ContactResult
	List(ctx context.Context, tags []string) ([]models.Contact, error)
	Search(ctx context.Context, query string) ([]models.Contact, error)
}

type chatAgent interface {
	Chat(ctx context.Context, message string, sysCtx models.SystemContext) *models.ChatResult
}

type reportAgent interface {
	DailyReport(ctx context.Context) *models.DailyReport
}

type focusAgent interface {
	StartFocus(durationMinutes int, taskName string) models.FocusSession
	EndFocus() (*models.FocusEndResult, error)
	Status() models.FocusStatus
}

// ── Orchestrator ────────────────────────────────────────────

// Deps bundles the orchestrator's collaborators. Nil entries are simply not
// registered with the router.
type Deps struct {
	Classifier intent.Classifier
	Tasks      taskAgent
	Calendar   calendarAgent
	Email      emailAgent
	Weather    weatherAgent
	XP         xpAgent
	Contacts   contactAgent
	Chat       chatAgent
	Reports    reportAgent
	Focus      focusAgent
	Traces     store.TraceStore
}

// Orchestrator is the single entry point for natural-language commands.
type Orchestrator struct {
	deps   Deps
	router *Router
}

// New wires an orchestrator from its collaborators.
func New(deps Deps) *Orchestrator {
	var available []string
	if deps.Tasks != nil {
		available = append(available, AgentTask)
	}
	if deps.Calendar != nil {
		available = append(available, AgentCalendar)
	}
	if deps.Email != nil {
		available = append(available, AgentEmail)
	}
	if deps.Weather != nil {
		available = append(available, AgentWeather)
	}
	if deps.XP != nil {
		available = append(available, AgentXP)
	}
	if deps.Contacts != nil {
		available = append(available, AgentContact)
	}
	if deps.Chat != nil {
		available = append(available, AgentChat)
	}
	if deps.Reports != nil {
		available = append(available, AgentReport)
	}
	if deps.Focus != nil {
		available = append(available, AgentInterrupt)
	}

	return &Orchestrator{
		deps:   deps,
		router: NewRouter(available),
	}
}

// FetchContext gathers the ambient state for chat priming. Sub-fetch
// failures degrade to defaults; it never fails.
func (o *Orchestrator) FetchContext(ctx context.Context) models.SystemContext {
	sysCtx := models.SystemContext{
		CurrentTime: time.Now(),
		EnergyLevel: defaultEnergyLevel,
		Weather:     "Clear",
	}

	if o.deps.Tasks != nil {
		if backlog, err := o.deps.Tasks.Backlog(ctx); err == nil {
			sysCtx.TaskBacklog = backlog
		} else {
			log.Warn().Err(err).Msg("Context backlog fetch failed")
		}
	}
	if o.deps.Weather != nil {
		if report, err := o.deps.Weather.Current(ctx); err == nil {
			sysCtx.Weather = fmt.Sprintf("%s, %.0f°C", report.Condition, report.TempC)
		} else {
			log.Warn().Err(err).Msg("Context weather fetch failed")
		}
	}
	return sysCtx
}

// Process classifies the input, routes it, runs each collaborator in order,
// and synthesizes one response. Collaborator failures are captured in the
// trace rather than aborting the run.
func (o *Orchestrator) Process(ctx context.Context, input string) *models.ProcessResult {
	started := time.Now()

	classified := o.deps.Classifier.Classify(ctx, input)
	agentNames := o.router.Route(classified)

	log.Info().
		Str("intent", string(classified.Type)).
		Strs("agents", agentNames).
		Msg("Command routed")

	result := &models.ProcessResult{
		Intent: classified,
		Agents: agentNames,
	}
	for _, name := range agentNames {
		action := o.invoke(ctx, name, classified, agentNames)
		result.Actions = append(result.Actions, action)
	}

	result.Success = true
	for _, action := range result.Actions {
		if action.Error() != "" {
			result.Success = false
			break
		}
	}
	result.Response = o.synthesize(classified, result)

	o.trace(ctx, input, classified, result, time.Since(started))
	return result
}

func (o *Orchestrator) trace(ctx context.Context, input string, classified *models.Intent, result *models.ProcessResult, elapsed time.Duration) {
	if o.deps.Traces == nil {
		return
	}
	err := o.deps.Traces.CreateTrace(ctx, &models.CommandTrace{
		ID:         uuid.New().String(),
		Input:      input,
		IntentType: string(classified.Type),
		Agents:     result.Agents,
		Success:    result.Success,
		DurationMs: elapsed.Milliseconds(),
		CreatedAt:  time.Now(),
	})
	if err != nil {
		log.Warn().Err(err).Msg("Trace persist failed")
	}
}

// ── Per-collaborator invocation ─────────────────────────────

func (o *Orchestrator) invoke(ctx context.Context, name string, classified *models.Intent, plan []string) models.AgentResult {
	switch name {
	case AgentTask:
		return o.invokeTask(ctx, classified)
	case AgentCalendar:
		return o.invokeCalendar(ctx, classified)
	case AgentEmail:
		return o.invokeEmail(ctx, classified)
	case AgentWeather:
		return o.invokeWeather(ctx)
	case AgentXP:
		return o.invokeXP(ctx, classified, plan)
	case AgentContact:
		return o.invokeContact(ctx, classified)
	case AgentChat:
		return o.invokeChat(ctx, classified)
	case AgentReport:
		return o.invokeReport(ctx)
	case AgentInterrupt:
		return o.invokeFocus(classified)
	}
	return models.AgentResult{Agent: name, Err: "unknown collaborator"}
}

func (o *Orchestrator) invokeTask(ctx context.Context, classified *models.Intent) models.AgentResult {
	// Reports read the backlog; everything else creates.
	if classified.Type == models.IntentReport {
		tasks, err := o.deps.Tasks.Tasks(ctx, models.TaskFilter{})
		if err != nil {
			return models.AgentResult{Agent: AgentTask, Action: "list", Err: err.Error()}
		}
		return models.AgentResult{
			Agent:  AgentTask,
			Action: "list",
			Result: map[string]any{"count": len(tasks), "tasks": tasks},
		}
	}

	title := classified.OriginalInput
	var dueDate string
	if p, ok := classified.Params.(*models.TaskParams); ok {
		if p.Title != "" {
			title = p.Title
		}
		dueDate = p.DueDate
	}

	res := o.deps.Tasks.CreateTask(ctx, title, classified.Avatar, classified.Priority, dueDate)
	out := models.AgentResult{
		Agent:  AgentTask,
		Action: "create",
		Result: map[string]any{
			"success":  res.Success,
			"task_id":  res.TaskID,
			"title":    res.Title,
			"xp_value": res.XPValue,
		},
	}
	if res.Error != "" {
		out.Result["error"] = res.Error
	}
	return out
}

func (o *Orchestrator) invokeCalendar(ctx context.Context, classified *models.Intent) models.AgentResult {
	var title string
	if p, ok := classified.Params.(*models.ScheduleParams); ok {
		title = p.Title
	}

	res := o.deps.Calendar.CreateEventFromText(ctx, title, classified.OriginalInput)
	out := models.AgentResult{
		Agent:  AgentCalendar,
		Action: "create_event",
		Result: map[string]any{
			"success":    res.Success,
			"event_id":   res.EventID,
			"title":      res.Title,
			"start":      res.Start,
			"is_all_day": res.IsAllDay,
		},
	}
	if res.Error != "" {
		out.Result["error"] = res.Error
	}
	return out
}

func (o *Orchestrator) invokeEmail(ctx context.Context, classified *models.Intent) models.AgentResult {
	p, _ := classified.Params.(*models.EmailParams)
	if p == nil || p.To == "" {
		return models.AgentResult{
			Agent:  AgentEmail,
			Action: "send",
			Result: map[string]any{
				"success": false,
				"error":   "no recipient email address specified",
			},
		}
	}

	res := o.deps.Email.Send(ctx, p.To, p.Subject, p.Body)
	out := models.AgentResult{
		Agent:  AgentEmail,
		Action: "send",
		Result: map[string]any{
			"success": res.Success,
			"to":      p.To,
			"subject": p.Subject,
		},
	}
	if res.Error != "" {
		out.Result["error"] = res.Error
	}
	return out
}

func (o *Orchestrator) invokeWeather(ctx context.Context) models.AgentResult {
	report, err := o.deps.Weather.Current(ctx)
	if err != nil {
		return models.AgentResult{Agent: AgentWeather, Action: "current", Err: err.Error()}
	}
	rec := o.deps.Weather.OutdoorRecommendation(ctx)
	return models.AgentResult{
		Agent:  AgentWeather,
		Action: "current",
		Result: map[string]any{
			"location":  report.Location,
			"temp":      report.TempC,
			"condition": report.Condition,
			"outdoor":   rec.Recommended,
			"reason":    rec.Reason,
		},
	}
}

// invokeXP always reports avatar standings; when the plan routed the task or
// calendar collaborator it additionally awards the priority-table XP.
func (o *Orchestrator) invokeXP(ctx context.Context, classified *models.Intent, plan []string) models.AgentResult {
	statuses, err := o.deps.XP.AllAvatars(ctx)
	if err != nil {
		return models.AgentResult{Agent: AgentXP, Action: "status", Err: err.Error()}
	}
	byAvatar := make(map[string]any, len(statuses))
	for _, s := range statuses {
		byAvatar[string(s.Avatar)] = map[string]any{"level": s.Level, "xp": s.TotalXP}
	}
	out := models.AgentResult{
		Agent:  AgentXP,
		Action: "status",
		Result: map[string]any{"avatars": byAvatar},
	}

	if slices.Contains(plan, AgentTask) || slices.Contains(plan, AgentCalendar) {
		amount := agents.CalculateTaskXP(classified.Priority, "low")
		res, err := o.deps.XP.AwardXP(ctx, classified.Avatar, amount, "command handled: "+string(classified.Type))
		if err != nil {
			out.Err = err.Error()
			return out
		}
		out.Result["xp_awarded"] = res.XPAwarded
		out.Result["new_level"] = res.NewLevel
		out.Result["leveled_up"] = res.LeveledUp
	}
	return out
}

func (o *Orchestrator) invokeContact(ctx context.Context, classified *models.Intent) models.AgentResult {
	p, _ := classified.Params.(*models.ContactParams)

	if classified.Type == models.IntentContactList || (p != nil && p.Action == "list") {
		contacts, err := o.deps.Contacts.List(ctx, nil)
		if err != nil {
			return models.AgentResult{Agent: AgentContact, Action: "list", Err: err.Error()}
		}
		return models.AgentResult{
			Agent:  AgentContact,
			Action: "list",
			Result: map[string]any{"count": len(contacts), "contacts": contacts},
		}
	}

	var contact models.Contact
	if p != nil {
		contact = models.Contact{
			Name: p.Name, Email: p.Email, Phone: p.Phone,
			Company: p.Company, Role: p.Role, Tags: p.Tags,
		}
	}
	res := o.deps.Contacts.Add(ctx, contact, classified.OriginalInput)
	out := models.AgentResult{
		Agent:  AgentContact,
		Action: "add",
		Result: map[string]any{"success": res.Success},
	}
	if res.Contact != nil {
		out.Result["name"] = res.Contact.Name
	}
	if res.Error != "" {
		out.Result["error"] = res.Error
	}
	return out
}

func (o *Orchestrator) invokeChat(ctx context.Context, classified *models.Intent) models.AgentResult {
	message := classified.OriginalInput
	if p, ok := classified.Params.(*models.QueryParams); ok && p.Query != "" {
		message = p.Query
	}

	res := o.deps.Chat.Chat(ctx, message, o.FetchContext(ctx))
	out := models.AgentResult{
		Agent:  AgentChat,
		Action: "chat",
		Result: map[string]any{
			"success":  res.Success,
			"response": res.Response,
		},
	}
	if res.Error != "" {
		out.Result["error"] = res.Error
	}
	return out
}

func (o *Orchestrator) invokeReport(ctx context.Context) models.AgentResult {
	report := o.deps.Reports.DailyReport(ctx)
	return models.AgentResult{
		Agent:  AgentReport,
		Action: "daily",
		Result: map[string]any{
			"date":               report.Date,
			"tasks_completed":    report.Summary.TasksCompleted,
			"productivity_score": report.Summary.ProductivityScore,
			"insights":           report.Insights,
			"recommendations":    report.Recommendations,
		},
	}
}

func (o *Orchestrator) invokeFocus(classified *models.Intent) models.AgentResult {
	p, _ := classified.Params.(*models.FocusParams)

	if p != nil && p.Action == "status" {
		status := o.deps.Focus.Status()
		return models.AgentResult{
			Agent:  AgentInterrupt,
			Action: "status",
			Result: map[string]any{
				"active":            status.Active,
				"remaining_minutes": status.RemainingMinutes,
				"queued":            status.QueuedCount,
			},
		}
	}
	if p != nil && p.Action == "end" {
		res, err := o.deps.Focus.EndFocus()
		if err != nil {
			if errors.Is(err, interrupt.ErrNotFocused) {
				return models.AgentResult{
					Agent:  AgentInterrupt,
					Action: "end",
					Result: map[string]any{"active": false, "message": "No focus session is running."},
				}
			}
			return models.AgentResult{Agent: AgentInterrupt, Action: "end", Err: err.Error()}
		}
		return models.AgentResult{
			Agent:  AgentInterrupt,
			Action: "end",
			Result: map[string]any{
				"duration_minutes": res.DurationMinutes,
				"queued":           len(res.Queued),
				"message":          res.Message,
			},
		}
	}

	minutes := 0
	task := ""
	if p != nil {
		minutes = p.DurationMinutes
	}
	session := o.deps.Focus.StartFocus(minutes, task)
	return models.AgentResult{
		Agent:  AgentInterrupt,
		Action: "start",
		Result: map[string]any{
			"duration_minutes": session.DurationMinutes,
			"restarted":        session.Restarted,
		},
	}
}

// ── Response synthesis ──────────────────────────────────────

// synthesize builds the user-facing reply from the collected results. The
// first failing collaborator owns the message.
func (o *Orchestrator) synthesize(classified *models.Intent, result *models.ProcessResult) string {
	for _, action := range result.Actions {
		if msg := action.Error(); msg != "" {
			return fmt.Sprintf("Something went wrong: %s", msg)
		}
	}
	if len(result.Actions) == 0 {
		return "I couldn't find anything to do with that. Try rephrasing?"
	}

	first := result.Actions[0]
	switch classified.Type {
	case models.IntentTask:
		title, _ := first.Result["title"].(string)
		xp, _ := first.Result["xp_value"].(int)
		return fmt.Sprintf("Task created: %q (worth %d XP on completion)", title, xp)

	case models.IntentSchedule:
		title, _ := first.Result["title"].(string)
		if allDay, _ := first.Result["is_all_day"].(bool); allDay {
			if start, ok := first.Result["start"].(time.Time); ok {
				return fmt.Sprintf("Scheduled %q for %s (all day)", title, start.Format("Mon, Jan 2"))
			}
		}
		if start, ok := first.Result["start"].(time.Time); ok {
			return fmt.Sprintf("Scheduled %q for %s", title, start.Format("Mon, Jan 2 at 3:04 PM"))
		}
		return fmt.Sprintf("Scheduled %q", title)

	case models.IntentEmail:
		to, _ := first.Result["to"].(string)
		return fmt.Sprintf("Email sent to %s", to)

	case models.IntentWeather:
		condition, _ := first.Result["condition"].(string)
		temp, _ := first.Result["temp"].(float64)
		reason, _ := first.Result["reason"].(string)
		return fmt.Sprintf("It's %.0f°C and %s. %s", temp, strings.ToLower(condition), reason)

	case models.IntentContact:
		if name, ok := first.Result["name"].(string); ok {
			return fmt.Sprintf("Saved contact %s", name)
		}
		return "Contact saved"

	case models.IntentContactList:
		count, _ := first.Result["count"].(int)
		return fmt.Sprintf("You have %d contacts", count)

	case models.IntentReport:
		score, _ := first.Result["productivity_score"].(int)
		tasks, _ := first.Result["tasks_completed"].(int)
		return fmt.Sprintf("Today: %d tasks completed, productivity score %d/100", tasks, score)

	case models.IntentFocus:
		switch first.Action {
		case "status":
			if active, _ := first.Result["active"].(bool); active {
				remaining, _ := first.Result["remaining_minutes"].(float64)
				return fmt.Sprintf("Focus session running, %.0f minutes remaining", remaining)
			}
			return "No focus session is running"
		case "end":
			if msg, ok := first.Result["message"].(string); ok {
				return msg
			}
			return "Focus session ended"
		default:
			minutes, _ := first.Result["duration_minutes"].(int)
			return fmt.Sprintf("Focus mode on for %d minutes. Only emergencies get through.", minutes)
		}

	case models.IntentXP:
		return "Here's where your avatars stand."
	}

	// Chat and search: the model's reply is the response.
	if resp, ok := first.Result["response"].(string); ok && resp != "" {
		return resp
	}
	return "Done."
}
