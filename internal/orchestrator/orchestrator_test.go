package orchestrator

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/presentos/presentos/pkg/models"
)

// ── Fakes ───────────────────────────────────────────────────

type fakeClassifier struct{ intent *models.Intent }

func (f *fakeClassifier) Classify(ctx context.Context, text string) *models.Intent {
	f.intent.OriginalInput = text
	return f.intent
}

type fakeTasks struct {
	created []string
	backlog int
	fail    bool
}

func (f *fakeTasks) CreateTask(ctx context.Context, title string, avatar models.Avatar, priority models.Priority, dueDate string) *models.TaskCreateResult {
	if f.fail {
		return &models.TaskCreateResult{Success: false, Title: title, Error: "task store unreachable"}
	}
	f.created = append(f.created, title)
	return &models.TaskCreateResult{Success: true, TaskID: "t1", Title: title, XPValue: 20}
}

func (f *fakeTasks) Tasks(ctx context.Context, filter models.TaskFilter) ([]models.Task, error) {
	out := make([]models.Task, f.backlog)
	for i := range out {
		out[i] = models.Task{ID: "t", Title: "open task", Status: models.TaskStatusInbox}
	}
	return out, nil
}

func (f *fakeTasks) Backlog(ctx context.Context) (int, error) { return f.backlog, nil }

type fakeXP struct {
	awards  int
	awarded []int
}

func (f *fakeXP) AwardXP(ctx context.Context, avatar models.Avatar, amount int, reason string) (*models.AwardResult, error) {
	f.awards++
	f.awarded = append(f.awarded, amount)
	return &models.AwardResult{Avatar: avatar, XPAwarded: amount, NewLevel: 1}, nil
}

func (f *fakeXP) AllAvatars(ctx context.Context) ([]models.AvatarStatus, error) {
	return []models.AvatarStatus{{Avatar: models.AvatarProducer, Level: 2, TotalXP: 150}}, nil
}

type fakeEmail struct{ sentTo string }

func (f *fakeEmail) Send(ctx context.Context, to, subject, body string) *models.SendResult {
	f.sentTo = to
	return &models.SendResult{Success: true, To: to}
}

type fakeWeather struct{ err error }

func (f *fakeWeather) Current(ctx context.Context) (*models.WeatherReport, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &models.WeatherReport{Location: "Mumbai, India", TempC: 28, Condition: "Partly Cloudy"}, nil
}

func (f *fakeWeather) OutdoorRecommendation(ctx context.Context) *models.OutdoorRecommendation {
	return &models.OutdoorRecommendation{Recommended: true, Reason: "Perfect weather! 28°C and Partly Cloudy"}
}

type fakeChat struct{ gotCtx models.SystemContext }

func (f *fakeChat) Chat(ctx context.Context, message string, sysCtx models.SystemContext) *models.ChatResult {
	f.gotCtx = sysCtx
	return &models.ChatResult{Success: true, Response: "You have a light afternoon."}
}

type fakeFocus struct{ started int }

func (f *fakeFocus) StartFocus(durationMinutes int, taskName string) models.FocusSession {
	f.started++
	if durationMinutes == 0 {
		durationMinutes = 25
	}
	return models.FocusSession{Active: true, DurationMinutes: durationMinutes, StartTime: time.Now()}
}

func (f *fakeFocus) EndFocus() (*models.FocusEndResult, error) {
	return &models.FocusEndResult{DurationMinutes: 20, Message: "Focus session complete! 20.0 minutes of deep work."}, nil
}

func (f *fakeFocus) Status() models.FocusStatus {
	return models.FocusStatus{Active: true, RemainingMinutes: 12, QueuedCount: 2}
}

type fakeTraces struct{ traces []*models.CommandTrace }

func (f *fakeTraces) CreateTrace(ctx context.Context, trace *models.CommandTrace) error {
	f.traces = append(f.traces, trace)
	return nil
}

func (f *fakeTraces) ListTraces(ctx context.Context, limit int) ([]models.CommandTrace, error) {
	out := make([]models.CommandTrace, 0, len(f.traces))
	for _, tr := range f.traces {
		out = append(out, *tr)
	}
	return out, nil
}

func (f *fakeTraces) DeleteTracesBefore(ctx context.Context, cutoff time.Time) (int, error) {
	return 0, nil
}

// ── Tests ───────────────────────────────────────────────────

func TestProcessTaskAwardsXP(t *testing.T) {
	tasks := &fakeTasks{}
	xp := &fakeXP{}
	traces := &fakeTraces{}
	o := New(Deps{
		Classifier: &fakeClassifier{intent: &models.Intent{
			Type: models.IntentTask, Priority: models.PriorityP2, Avatar: models.AvatarProducer,
			Params: &models.TaskParams{Title: "Ship the release"},
		}},
		Tasks:  tasks,
		XP:     xp,
		Traces: traces,
	})

	res := o.Process(context.Background(), "create a task to ship the release")

	require.True(t, res.Success)
	assert.Equal(t, []string{AgentTask, AgentXP}, res.Agents)
	assert.Equal(t, []string{"Ship the release"}, tasks.created)
	assert.Equal(t, 1, xp.awards)
	assert.Equal(t, []int{30}, xp.awarded) // P2 from the priority table
	assert.Contains(t, res.Response, "Ship the release")

	require.Len(t, traces.traces, 1)
	assert.Equal(t, "task", traces.traces[0].IntentType)
	assert.True(t, traces.traces[0].Success)
}

func TestProcessTaskFailureCaptured(t *testing.T) {
	traces := &fakeTraces{}
	o := New(Deps{
		Classifier: &fakeClassifier{intent: &models.Intent{Type: models.IntentTask}},
		Tasks:      &fakeTasks{fail: true},
		XP:         &fakeXP{},
		Traces:     traces,
	})

	res := o.Process(context.Background(), "create a task")

	assert.False(t, res.Success)
	assert.Contains(t, res.Response, "task store unreachable")
	require.Len(t, traces.traces, 1)
	assert.False(t, traces.traces[0].Success)
}

func TestProcessEmailWithoutRecipient(t *testing.T) {
	email := &fakeEmail{}
	o := New(Deps{
		Classifier: &fakeClassifier{intent: &models.Intent{
			Type:   models.IntentEmail,
			Params: &models.EmailParams{Subject: "Update"},
		}},
		Email: email,
	})

	res := o.Process(context.Background(), "send an email about the update")

	assert.Empty(t, email.sentTo)
	assert.False(t, res.Success)
	assert.Contains(t, res.Response, "recipient")
	require.Len(t, res.Actions, 1)
	assert.Equal(t, "no recipient email address specified", res.Actions[0].Error())
}

func TestProcessEmailSend(t *testing.T) {
	email := &fakeEmail{}
	o := New(Deps{
		Classifier: &fakeClassifier{intent: &models.Intent{
			Type:   models.IntentEmail,
			Params: &models.EmailParams{To: "a@b.com", Subject: "Update", Body: "hi"},
		}},
		Email: email,
	})

	res := o.Process(context.Background(), "send an email to a@b.com")

	assert.Equal(t, "a@b.com", email.sentTo)
	assert.Contains(t, res.Response, "a@b.com")
}

func TestProcessWeather(t *testing.T) {
	o := New(Deps{
		Classifier: &fakeClassifier{intent: &models.Intent{Type: models.IntentWeather}},
		Weather:    &fakeWeather{},
	})

	res := o.Process(context.Background(), "what's the weather")

	require.True(t, res.Success)
	assert.Contains(t, res.Response, "28")
	assert.Contains(t, res.Response, "partly cloudy")
}

func TestProcessChatPrimedWithContext(t *testing.T) {
	chat := &fakeChat{}
	o := New(Deps{
		Classifier: &fakeClassifier{intent: &models.Intent{
			Type:   models.IntentChat,
			Params: &models.QueryParams{Query: "how is my day looking"},
		}},
		Tasks:   &fakeTasks{backlog: 4},
		Weather: &fakeWeather{},
		Chat:    chat,
	})

	res := o.Process(context.Background(), "how is my day looking")

	assert.Equal(t, "You have a light afternoon.", res.Response)
	assert.Equal(t, 4, chat.gotCtx.TaskBacklog)
	assert.Contains(t, chat.gotCtx.Weather, "Partly Cloudy")
}

func TestProcessFocusStart(t *testing.T) {
	focus := &fakeFocus{}
	o := New(Deps{
		Classifier: &fakeClassifier{intent: &models.Intent{
			Type:   models.IntentFocus,
			Params: &models.FocusParams{Action: "start", DurationMinutes: 45},
		}},
		Focus: focus,
	})

	res := o.Process(context.Background(), "focus mode for 45 minutes")

	assert.Equal(t, 1, focus.started)
	assert.Contains(t, res.Response, "45 minutes")
}

func TestProcessFocusStatus(t *testing.T) {
	o := New(Deps{
		Classifier: &fakeClassifier{intent: &models.Intent{
			Type:   models.IntentFocus,
			Params: &models.FocusParams{Action: "status"},
		}},
		Focus: &fakeFocus{},
	})

	res := o.Process(context.Background(), "how is my focus session going")
	assert.Contains(t, res.Response, "12 minutes remaining")
}

func TestFetchContextDegradesOnWeatherFailure(t *testing.T) {
	o := New(Deps{
		Classifier: &fakeClassifier{intent: &models.Intent{Type: models.IntentChat}},
		Tasks:      &fakeTasks{backlog: 2},
		Weather:    &fakeWeather{err: fmt.Errorf("upstream down")},
	})

	sysCtx := o.FetchContext(context.Background())

	assert.Equal(t, 2, sysCtx.TaskBacklog)
	assert.Equal(t, "Clear", sysCtx.Weather)
	assert.Equal(t, 70, sysCtx.EnergyLevel)
	assert.False(t, sysCtx.CurrentTime.IsZero())
}

func TestProcessXPStatus(t *testing.T) {
	o := New(Deps{
		Classifier: &fakeClassifier{intent: &models.Intent{Type: models.IntentXP}},
		XP:         &fakeXP{},
	})

	res := o.Process(context.Background(), "show my xp")
	require.True(t, res.Success)
	require.Len(t, res.Actions, 1)
	assert.Equal(t, "status", res.Actions[0].Action)
}

func TestProcessTaskP1AwardsFullTableValue(t *testing.T) {
	xp := &fakeXP{}
	o := New(Deps{
		Classifier: &fakeClassifier{intent: &models.Intent{
			Type: models.IntentTask, Priority: models.PriorityP1, Avatar: models.AvatarProducer,
			Params: &models.TaskParams{Title: "Fix the outage"},
		}},
		Tasks: &fakeTasks{},
		XP:    xp,
	})

	res := o.Process(context.Background(), "urgent: fix the outage")

	require.True(t, res.Success)
	assert.Equal(t, []int{50}, xp.awarded)
}

type fakeReports struct{}

func (f *fakeReports) DailyReport(ctx context.Context) *models.DailyReport {
	return &models.DailyReport{
		Date:    "2026-08-31",
		Summary: models.ReportSummary{TasksCompleted: 3, ProductivityScore: 55},
	}
}

func TestProcessReportRoutesTaskAndXP(t *testing.T) {
	tasks := &fakeTasks{backlog: 4}
	xp := &fakeXP{}
	o := New(Deps{
		Classifier: &fakeClassifier{intent: &models.Intent{Type: models.IntentReport, Priority: models.PriorityP3}},
		Reports:    &fakeReports{},
		Tasks:      tasks,
		XP:         xp,
	})

	res := o.Process(context.Background(), "daily report please")

	require.True(t, res.Success)
	assert.Equal(t, []string{AgentReport, AgentTask, AgentXP}, res.Agents)
	assert.Empty(t, tasks.created)
	assert.Equal(t, "list", res.Actions[1].Action)
	assert.Equal(t, 4, res.Actions[1].Result["count"])
	// Task was in the plan, so the award fires with the P3 table value.
	assert.Equal(t, []int{20}, xp.awarded)
	assert.Contains(t, res.Response, "3 tasks completed")
}
