// Package handlers implements the HTTP handlers for the Present OS backend.
// Every handler delegates to a collaborator service; nothing here holds
// state beyond the dependency wiring.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/presentos/presentos/internal/agents"
	"github.com/presentos/presentos/internal/interrupt"
	"github.com/presentos/presentos/internal/notify"
	"github.com/presentos/presentos/internal/orchestrator"
	"github.com/presentos/presentos/internal/store"
	"github.com/presentos/presentos/pkg/models"
)

// Handlers holds all handler dependencies.
type Handlers struct {
	Orchestrator *orchestrator.Orchestrator
	Tasks        *agents.TaskService
	Calendar     *agents.CalendarService
	Email        *agents.EmailService
	Weather      *agents.WeatherService
	XP           *agents.XPService
	Contacts     *agents.ContactService
	Chat         *agents.ChatService
	Reports      *agents.ReportService
	Focus        *interrupt.Policy
	Notify       *notify.Service
	Store        store.Store
}

// ── Command ──────────────────────────────────────────────────

type commandRequest struct {
	Input string `json:"input"`
}

// ProcessCommand is the single natural-language entry point.
func (h *Handlers) ProcessCommand(w http.ResponseWriter, r *http.Request) {
	var req commandRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Input == "" {
		respondError(w, http.StatusBadRequest, "input is required")
		return
	}

	result := h.Orchestrator.Process(r.Context(), req.Input)
	respondJSON(w, http.StatusOK, result)
}

func (h *Handlers) ListTraces(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 50)
	traces, err := h.Store.ListTraces(r.Context(), limit)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if traces == nil {
		traces = []models.CommandTrace{}
	}
	respondJSON(w, http.StatusOK, traces)
}

// ── Tasks ────────────────────────────────────────────────────

type taskRequest struct {
	Title    string          `json:"title"`
	Avatar   models.Avatar   `json:"avatar"`
	Priority models.Priority `json:"priority"`
	DueDate  string          `json:"due_date"`
}

func (h *Handlers) CreateTask(w http.ResponseWriter, r *http.Request) {
	var req taskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Title == "" {
		respondError(w, http.StatusBadRequest, "title is required")
		return
	}

	res := h.Tasks.CreateTask(r.Context(), req.Title, req.Avatar, req.Priority, req.DueDate)
	status := http.StatusCreated
	if !res.Success {
		status = http.StatusBadGateway
	}
	respondJSON(w, status, res)
}

func (h *Handlers) ListTasks(w http.ResponseWriter, r *http.Request) {
	filter := models.TaskFilter{
		Status:   r.URL.Query().Get("status"),
		Avatar:   models.Avatar(r.URL.Query().Get("avatar")),
		Priority: models.Priority(r.URL.Query().Get("priority")),
		Limit:    queryInt(r, "limit", 0),
	}

	tasks, err := h.Tasks.Tasks(r.Context(), filter)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if tasks == nil {
		tasks = []models.Task{}
	}
	respondJSON(w, http.StatusOK, tasks)
}

func (h *Handlers) TodayTasks(w http.ResponseWriter, r *http.Request) {
	tasks, err := h.Tasks.TodayTasks(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if tasks == nil {
		tasks = []models.Task{}
	}
	respondJSON(w, http.StatusOK, tasks)
}

func (h *Handlers) OverdueTasks(w http.ResponseWriter, r *http.Request) {
	tasks, err := h.Tasks.OverdueTasks(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if tasks == nil {
		tasks = []models.Task{}
	}
	respondJSON(w, http.StatusOK, tasks)
}

func (h *Handlers) CompleteTask(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "taskId")
	if err := h.Tasks.CompleteTask(r.Context(), id); err != nil {
		var notFound *store.ErrNotFound
		if errors.As(err, &notFound) {
			respondError(w, http.StatusNotFound, err.Error())
			return
		}
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"task_id": id, "status": models.TaskStatusDone})
}

// ── Calendar ─────────────────────────────────────────────────

type eventRequest struct {
	Title string `json:"title"`
	When  string `json:"when"`
}

func (h *Handlers) CreateEvent(w http.ResponseWriter, r *http.Request) {
	var req eventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.When == "" {
		respondError(w, http.StatusBadRequest, "when is required")
		return
	}

	res := h.Calendar.CreateEventFromText(r.Context(), req.Title, req.When)
	status := http.StatusCreated
	if !res.Success {
		status = http.StatusBadGateway
	}
	respondJSON(w, status, res)
}

func (h *Handlers) TodayEvents(w http.ResponseWriter, r *http.Request) {
	events, err := h.Calendar.TodayEvents(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if events == nil {
		events = []models.Event{}
	}
	respondJSON(w, http.StatusOK, events)
}

func (h *Handlers) CalendarSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.Calendar.Summary(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, summary)
}

// ── Email ────────────────────────────────────────────────────

type emailRequest struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

func (h *Handlers) SendEmail(w http.ResponseWriter, r *http.Request) {
	var req emailRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.To == "" {
		respondError(w, http.StatusBadRequest, "to is required")
		return
	}

	res := h.Email.Send(r.Context(), req.To, req.Subject, req.Body)
	status := http.StatusOK
	if !res.Success {
		status = http.StatusBadGateway
	}
	respondJSON(w, status, res)
}

func (h *Handlers) RecentEmails(w http.ResponseWriter, r *http.Request) {
	emails, err := h.Email.Recent(r.Context(), queryInt(r, "max", 10), r.URL.Query().Get("q"))
	if err != nil {
		respondError(w, http.StatusBadGateway, err.Error())
		return
	}
	if emails == nil {
		emails = []models.EmailSummary{}
	}
	respondJSON(w, http.StatusOK, emails)
}

// ── Weather ──────────────────────────────────────────────────

func (h *Handlers) CurrentWeather(w http.ResponseWriter, r *http.Request) {
	report, err := h.Weather.Current(r.Context())
	if err != nil {
		respondError(w, http.StatusBadGateway, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, report)
}

func (h *Handlers) WeatherForecast(w http.ResponseWriter, r *http.Request) {
	days, err := h.Weather.Forecast(r.Context(), queryInt(r, "days", 3))
	if err != nil {
		respondError(w, http.StatusBadGateway, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, days)
}

func (h *Handlers) OutdoorRecommendation(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.Weather.OutdoorRecommendation(r.Context()))
}

// ── XP ───────────────────────────────────────────────────────

func (h *Handlers) ListAvatars(w http.ResponseWriter, r *http.Request) {
	statuses, err := h.XP.AllAvatars(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, statuses)
}

func (h *Handlers) Leaderboard(w http.ResponseWriter, r *http.Request) {
	board, err := h.XP.Leaderboard(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, board)
}

func (h *Handlers) ListAchievements(w http.ResponseWriter, r *http.Request) {
	achievements, err := h.XP.Achievements(r.Context(), queryInt(r, "limit", 10))
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if achievements == nil {
		achievements = []models.Achievement{}
	}
	respondJSON(w, http.StatusOK, achievements)
}

func (h *Handlers) XPSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.XP.Summary(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, summary)
}

// ── Contacts ─────────────────────────────────────────────────

type contactRequest struct {
	models.Contact
	RawText string `json:"raw_text,omitempty"`
}

func (h *Handlers) AddContact(w http.ResponseWriter, r *http.Request) {
	var req contactRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	res := h.Contacts.Add(r.Context(), req.Contact, req.RawText)
	if !res.Success {
		respondJSON(w, http.StatusBadRequest, res)
		return
	}
	respondJSON(w, http.StatusCreated, res)
}

func (h *Handlers) ListContacts(w http.ResponseWriter, r *http.Request) {
	var tags []string
	if tag := r.URL.Query().Get("tag"); tag != "" {
		tags = []string{tag}
	}

	contacts, err := h.Contacts.List(r.Context(), tags)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if contacts == nil {
		contacts = []models.Contact{}
	}
	respondJSON(w, http.StatusOK, contacts)
}

func (h *Handlers) SearchContacts(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		respondError(w, http.StatusBadRequest, "q is required")
		return
	}

	contacts, err := h.Contacts.Search(r.Context(), query)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if contacts == nil {
		contacts = []models.Contact{}
	}
	respondJSON(w, http.StatusOK, contacts)
}

func (h *Handlers) DeleteContact(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if err := h.Contacts.Delete(r.Context(), name); err != nil {
		var notFound *store.ErrNotFound
		if errors.As(err, &notFound) {
			respondError(w, http.StatusNotFound, err.Error())
			return
		}
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ── Chat ─────────────────────────────────────────────────────

type chatRequest struct {
	Message string `json:"message"`
}

func (h *Handlers) ChatMessage(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Message == "" {
		respondError(w, http.StatusBadRequest, "message is required")
		return
	}

	sysCtx := h.Orchestrator.FetchContext(r.Context())
	res := h.Chat.Chat(r.Context(), req.Message, sysCtx)
	respondJSON(w, http.StatusOK, res)
}

func (h *Handlers) ClearChatHistory(w http.ResponseWriter, r *http.Request) {
	h.Chat.ClearHistory()
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) ChatSuggestions(w http.ResponseWriter, r *http.Request) {
	sysCtx := h.Orchestrator.FetchContext(r.Context())
	actions := h.Chat.SuggestActions(r.Context(), sysCtx)
	if actions == nil {
		actions = []string{}
	}
	respondJSON(w, http.StatusOK, map[string]any{"suggestions": actions})
}

// ── Reports ──────────────────────────────────────────────────

func (h *Handlers) DailyReport(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.Reports.DailyReport(r.Context()))
}

func (h *Handlers) WeeklyReport(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.Reports.WeeklyReport(r.Context()))
}

// ── Focus & notifications ────────────────────────────────────

type focusStartRequest struct {
	DurationMinutes int    `json:"duration_minutes"`
	TaskName        string `json:"task_name"`
}

func (h *Handlers) StartFocus(w http.ResponseWriter, r *http.Request) {
	var req focusStartRequest
	if r.Body != nil {
		json.NewDecoder(r.Body).Decode(&req)
	}

	session := h.Focus.StartFocus(req.DurationMinutes, req.TaskName)
	log.Info().Int("minutes", session.DurationMinutes).Bool("restarted", session.Restarted).Msg("Focus session started")
	respondJSON(w, http.StatusOK, session)
}

func (h *Handlers) EndFocus(w http.ResponseWriter, r *http.Request) {
	res, err := h.Focus.EndFocus()
	if err != nil {
		respondError(w, http.StatusConflict, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, res)
}

func (h *Handlers) FocusStatus(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.Focus.Status())
}

type notificationRequest struct {
	Type     string          `json:"type"`
	Priority models.Priority `json:"priority"`
	Content  map[string]any  `json:"content"`
	Source   string          `json:"source"`
}

func (h *Handlers) EvaluateNotification(w http.ResponseWriter, r *http.Request) {
	var req notificationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if !req.Priority.Valid() {
		respondError(w, http.StatusBadRequest, "priority must be P1-P4")
		return
	}

	decision := h.Focus.Evaluate(req.Type, req.Priority, req.Content, req.Source)

	// Admitted notifications go out to the delivery channels. Delivery is
	// best-effort and must not block the admission response.
	if decision.Action == models.ActionInterrupt && h.Notify != nil {
		n := decision.Notification
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			h.Notify.Dispatch(ctx, n)
		}()
	}

	respondJSON(w, http.StatusOK, decision)
}

func (h *Handlers) ListChannels(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.Notify.Channels())
}

func (h *Handlers) AddChannel(w http.ResponseWriter, r *http.Request) {
	var ch notify.Channel
	if err := json.NewDecoder(r.Body).Decode(&ch); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if ch.Kind == "" {
		ch.Kind = notify.ChannelWebhook
	}

	if err := h.Notify.AddChannel(ch); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	respondJSON(w, http.StatusCreated, map[string]string{"name": ch.Name})
}

func (h *Handlers) NotificationQueue(w http.ResponseWriter, r *http.Request) {
	drain := r.URL.Query().Get("clear") == "true"
	queued := h.Focus.Queued(drain)
	if queued == nil {
		queued = []models.Notification{}
	}
	respondJSON(w, http.StatusOK, map[string]any{"count": len(queued), "notifications": queued})
}

type snoozeRequest struct {
	Minutes int `json:"minutes"`
}

func (h *Handlers) SnoozeNotification(w http.ResponseWriter, r *http.Request) {
	var req snoozeRequest
	if r.Body != nil {
		json.NewDecoder(r.Body).Decode(&req)
	}

	until, err := h.Focus.Snooze(chi.URLParam(r, "notificationId"), req.Minutes)
	if err != nil {
		respondError(w, http.StatusNotFound, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"snoozed_until": until})
}

func (h *Handlers) InterruptStats(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.Focus.Stats())
}

type ruleRequest struct {
	Name       string `json:"name"`
	Expression string `json:"expression"`
	Reason     string `json:"reason"`
}

func (h *Handlers) AddNotificationRule(w http.ResponseWriter, r *http.Request) {
	var req ruleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Name == "" || req.Expression == "" {
		respondError(w, http.StatusBadRequest, "name and expression are required")
		return
	}

	if err := h.Focus.AddRule(req.Name, req.Expression, req.Reason); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	log.Info().Str("rule", req.Name).Msg("Notification rule added")
	respondJSON(w, http.StatusCreated, map[string]string{"name": req.Name})
}

type windowRequest struct {
	StartHour int `json:"start_hour"`
	EndHour   int `json:"end_hour"`
}

func (h *Handlers) SetDeepWorkWindow(w http.ResponseWriter, r *http.Request) {
	var req windowRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := h.Focus.SetDeepWorkWindow(req.StartHour, req.EndHour); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]int{"start_hour": req.StartHour, "end_hour": req.EndHour})
}

// ── Helpers ──────────────────────────────────────────────────

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

func queryInt(r *http.Request, key string, fallback int) int {
	if raw := r.URL.Query().Get(key); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			return n
		}
	}
	return fallback
}
