package orchestrator

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/presentos/presentos/pkg/models"
)

func TestRouteTable(t *testing.T) {
	r := NewRouter([]string{
		AgentTask, AgentCalendar, AgentEmail, AgentWeather, AgentXP,
		AgentContact, AgentChat, AgentReport, AgentInterrupt,
	})

	cases := []struct {
		intent models.IntentType
		want   []string
	}{
		{models.IntentTask, []string{AgentTask, AgentXP}},
		{models.IntentSchedule, []string{AgentCalendar, AgentXP}},
		{models.IntentEmail, []string{AgentEmail}},
		{models.IntentWeather, []string{AgentWeather}},
		{models.IntentSearch, []string{AgentChat}},
		{models.IntentChat, []string{AgentChat}},
		{models.IntentContact, []string{AgentContact}},
		{models.IntentContactList, []string{AgentContact}},
		{models.IntentReport, []string{AgentReport, AgentTask, AgentXP}},
		{models.IntentFocus, []string{AgentInterrupt}},
		{models.IntentXP, []string{AgentXP}},
	}

	for _, tc := range cases {
		got := r.Route(&models.Intent{Type: tc.intent})
		assert.Equal(t, tc.want, got, "intent %s", tc.intent)
	}
}

func TestRouteSkipsUnregistered(t *testing.T) {
	r := NewRouter([]string{AgentTask, AgentChat})

	got := r.Route(&models.Intent{Type: models.IntentTask})
	assert.Equal(t, []string{AgentTask}, got)
}

func TestRouteUnknownIntentFallsBackToChat(t *testing.T) {
	r := NewRouter([]string{AgentChat})

	got := r.Route(&models.Intent{Type: models.IntentType("banana")})
	assert.Equal(t, []string{AgentChat}, got)
}

func TestRouteEmptyWhenNothingRegistered(t *testing.T) {
	r := NewRouter(nil)

	got := r.Route(&models.Intent{Type: models.IntentWeather})
	assert.Empty(t, got)
}
