// Package orchestrator turns a classified intent into collaborator calls and
// a single synthesized response.
package orchestrator

import (
	"github.com/rs/zerolog/log"

	"github.com/presentos/presentos/pkg/models"
)

// Collaborator names used in routes and traces.
const (
	AgentTask      = "task"
	AgentCalendar  = "calendar"
	AgentEmail     = "email"
	AgentWeather   = "weather"
	AgentXP        = "xp"
	AgentContact   = "contact"
	AgentChat      = "chat"
	AgentReport    = "report"
	AgentInterrupt = "interrupt"
)

// routes is the static dispatch table. Order within a route is execution
// order: XP always awards after the work that earned it.
var routes = map[models.IntentType][]string{
	models.IntentTask:        {AgentTask, AgentXP},
	models.IntentSchedule:    {AgentCalendar, AgentXP},
	models.IntentEmail:       {AgentEmail},
	models.IntentWeather:     {AgentWeather},
	models.IntentSearch:      {AgentChat},
	models.IntentChat:        {AgentChat},
	models.IntentContact:     {AgentContact},
	models.IntentContactList: {AgentContact},
	models.IntentReport:      {AgentReport, AgentTask, AgentXP},
	models.IntentFocus:       {AgentInterrupt},
	models.IntentXP:          {AgentXP},
}

// Router resolves intents to the collaborators that will handle them.
// Registered names gate the routes: an unregistered collaborator is skipped
// rather than failed.
type Router struct {
	registered map[string]bool
}

// NewRouter creates a router over the given collaborator names.
func NewRouter(available []string) *Router {
	registered := make(map[string]bool, len(available))
	for _, name := range available {
		registered[name] = true
	}
	return &Router{registered: registered}
}

// Route returns the ordered, deduplicated collaborators for the intent.
// Unknown intents fall through to chat.
func (r *Router) Route(intent *models.Intent) []string {
	names, ok := routes[intent.Type]
	if !ok {
		log.Warn().Str("intent", string(intent.Type)).Msg("No route for intent, using chat")
		names = []string{AgentChat}
	}

	seen := make(map[string]bool, len(names))
	out := make([]string, 0, len(names))
	for _, name := range names {
		if seen[name] || !r.registered[name] {
			continue
		}
		seen[name] = true
		out = append(out, name)
	}

	if len(out) == 0 && r.registered[AgentChat] {
		out = append(out, AgentChat)
	}
	return out
}
