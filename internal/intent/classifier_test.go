package intent_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/presentos/presentos/internal/intent"
	"github.com/presentos/presentos/pkg/models"
)

// stubCompleter returns a canned response or error.
type stubCompleter struct {
	response string
	err      error
}

func (s *stubCompleter) Complete(_ context.Context, _ string) (string, error) {
	return s.response, s.err
}

func TestLLMClassifierParsesModelJSON(t *testing.T) {
	c := intent.NewLLMClassifier(&stubCompleter{response: `{
		"intent_type": "schedule",
		"entities": {"dates": ["tomorrow"], "times": ["3pm"]},
		"priority": "P2",
		"avatar": "Administrator",
		"params": {"title": "Dentist", "description": "checkup"}
	}`})

	got := c.Classify(context.Background(), "dentist tomorrow at 3pm")
	require.NotNil(t, got)
	assert.Equal(t, models.IntentSchedule, got.Type)
	assert.Equal(t, models.PriorityP2, got.Priority)
	assert.Equal(t, models.AvatarAdministrator, got.Avatar)
	assert.Equal(t, "dentist tomorrow at 3pm", got.OriginalInput)

	params, ok := got.Params.(*models.ScheduleParams)
	require.True(t, ok)
	assert.Equal(t, "Dentist", params.Title)
}

func TestLLMClassifierStripsCodeFences(t *testing.T) {
	c := intent.NewLLMClassifier(&stubCompleter{response: "```json\n" + `{
		"intent_type": "task",
		"priority": "P1",
		"avatar": "Producer",
		"params": {"title": "File taxes", "due_date": "2025-04-15"}
	}` + "\n```"})

	got := c.Classify(context.Background(), "file taxes by april 15, urgent")
	require.Equal(t, models.IntentTask, got.Type)

	params, ok := got.Params.(*models.TaskParams)
	require.True(t, ok)
	assert.Equal(t, "File taxes", params.Title)
	assert.Equal(t, "2025-04-15", params.DueDate)
}

func TestLLMClassifierBackfillsEmailRecipient(t *testing.T) {
	// Model classified correctly but dropped the address.
	c := intent.NewLLMClassifier(&stubCompleter{response: `{
		"intent_type": "email",
		"priority": "P3",
		"avatar": "Producer",
		"params": {"subject": "Invoice", "body": "About the invoice"}
	}`})

	got := c.Classify(context.Background(), "send email to a@b.com about the invoice")
	params, ok := got.Params.(*models.EmailParams)
	require.True(t, ok)
	assert.Equal(t, "a@b.com", params.To)
	assert.NotEmpty(t, params.Body)
	assert.Contains(t, got.Entities.Emails, "a@b.com")
}

func TestLLMClassifierUnknownTypeBecomesChat(t *testing.T) {
	c := intent.NewLLMClassifier(&stubCompleter{response: `{
		"intent_type": "banana",
		"priority": "P9",
		"avatar": "Wizard",
		"params": {}
	}`})

	got := c.Classify(context.Background(), "hello there")
	assert.Equal(t, models.IntentChat, got.Type)
	assert.Equal(t, models.PriorityP3, got.Priority)
	assert.Equal(t, models.AvatarProducer, got.Avatar)
}

func TestLLMClassifierFallsBackOnModelError(t *testing.T) {
	c := intent.NewLLMClassifier(&stubCompleter{err: errors.New("model offline")})

	got := c.Classify(context.Background(), "add task buy milk")
	require.NotNil(t, got)
	assert.Equal(t, models.IntentTask, got.Type)
}

func TestLLMClassifierFallsBackOnGarbage(t *testing.T) {
	c := intent.NewLLMClassifier(&stubCompleter{response: "I cannot help with that."})

	got := c.Classify(context.Background(), "what's the weather today")
	require.NotNil(t, got)
	assert.Equal(t, models.IntentWeather, got.Type)
}

func TestLLMClassifierNilCompleterUsesRules(t *testing.T) {
	c := intent.NewLLMClassifier(nil)

	got := c.Classify(context.Background(), "search for golang generics")
	assert.Equal(t, models.IntentSearch, got.Type)
}

func TestRuleClassifierEmailRoundTrip(t *testing.T) {
	rc := intent.NewRuleClassifier()

	got := rc.Classify("send email to a@b.com about the invoice")
	require.Equal(t, models.IntentEmail, got.Type)

	params, ok := got.Params.(*models.EmailParams)
	require.True(t, ok)
	assert.Equal(t, "a@b.com", params.To)
	assert.NotEmpty(t, params.Body)
}

func TestRuleClassifierCascade(t *testing.T) {
	rc := intent.NewRuleClassifier()

	cases := []struct {
		text string
		want models.IntentType
	}{
		{"search for best go books", models.IntentSearch},
		{"show all contacts", models.IntentContactList},
		{"add contact John Smith", models.IntentContact},
		{"remind me to buy milk", models.IntentTask},
		{"schedule a meeting tomorrow at 2pm", models.IntentSchedule},
		{"what is the forecast for today", models.IntentWeather},
		{"daily report please", models.IntentReport},
		{"how are you doing", models.IntentChat},
	}
	for _, tc := range cases {
		got := rc.Classify(tc.text)
		assert.Equal(t, tc.want, got.Type, "input %q", tc.text)
	}
}

func TestRuleClassifierContactNameExtraction(t *testing.T) {
	rc := intent.NewRuleClassifier()

	got := rc.Classify("add contact Jane Doe")
	require.Equal(t, models.IntentContact, got.Type)

	params, ok := got.Params.(*models.ContactParams)
	require.True(t, ok)
	assert.Equal(t, "add", params.Action)
	assert.Equal(t, "Jane Doe", params.Name)
}

func TestRuleClassifierPriority(t *testing.T) {
	rc := intent.NewRuleClassifier()

	assert.Equal(t, models.PriorityP1, rc.Classify("urgent: fix the outage").Priority)
	assert.Equal(t, models.PriorityP2, rc.Classify("important review for the task").Priority)
	assert.Equal(t, models.PriorityP3, rc.Classify("buy a task list app").Priority)
}

func TestRuleClassifierDefaultChatCarriesQuery(t *testing.T) {
	rc := intent.NewRuleClassifier()

	got := rc.Classify("tell me a joke")
	require.Equal(t, models.IntentChat, got.Type)

	params, ok := got.Params.(*models.QueryParams)
	require.True(t, ok)
	assert.Equal(t, "tell me a joke", params.Query)
}
