// Package intent classifies natural-language requests into structured
// intents.
//
// Two classifiers share one output shape:
//   - LLMClassifier asks the chat model for a structured JSON analysis.
//   - RuleClassifier is a deterministic keyword cascade.
//
// The LLM path degrades to the rule path on any model or parse failure, so
// classification is always available and never returns an error to callers.
package intent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/presentos/presentos/pkg/models"
)

// TextCompleter produces one completion for a prompt. Implemented by
// llm.Client.
type TextCompleter interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Classifier maps raw user text to an Intent.
type Classifier interface {
	Classify(ctx context.Context, text string) *models.Intent
}

// LLMClassifier is the primary classifier. A nil completer is allowed and
// routes everything through the fallback.
type LLMClassifier struct {
	completer TextCompleter
	fallback  *RuleClassifier
}

// NewLLMClassifier creates the primary classifier with its deterministic
// fallback.
func NewLLMClassifier(completer TextCompleter) *LLMClassifier {
	return &LLMClassifier{
		completer: completer,
		fallback:  NewRuleClassifier(),
	}
}

const classifyPromptTemplate = `Analyze this user input and extract information.

User input: %q

Provide JSON with:
1. intent_type: Main action (schedule, task, email, search, chat, contact, contact_list, report, weather, focus, xp)
2. entities: {"dates": [...], "times": [...], "emails": [...], "names": [...], "topics": [...]}
3. priority: P1/P2/P3/P4
4. avatar: Producer/Administrator/Entrepreneur/Integrator
5. params: {"title": "...", "description": "...", "due_date": "YYYY-MM-DD", "query": "...", "to_email": "...", "subject": "...", "body": "...", "contact_name": "...", "action": "list/add"}

CRITICAL for emails: put the address in BOTH entities.emails AND params.to_email, the message content in params.body, and generate an appropriate subject line.

Respond ONLY with valid JSON.`

// Classify asks the model for a structured analysis of text. Model errors and
// unparseable output are logged and silently handed to the rule classifier.
func (c *LLMClassifier) Classify(ctx context.Context, text string) *models.Intent {
	if c.completer == nil {
		return c.fallback.Classify(text)
	}

	raw, err := c.completer.Complete(ctx, fmt.Sprintf(classifyPromptTemplate, text))
	if err != nil {
		log.Warn().Err(err).Msg("Intent model call failed, using rule classifier")
		return c.fallback.Classify(text)
	}

	intent, err := parseModelIntent(raw, text)
	if err != nil {
		log.Warn().Err(err).Msg("Intent model output unparseable, using rule classifier")
		return c.fallback.Classify(text)
	}
	return intent
}

// modelIntent is the wire shape the model is asked to produce. Params arrive
// as a flat string map and are decoded into the typed union afterwards.
type modelIntent struct {
	IntentType string            `json:"intent_type"`
	Entities   models.Entities   `json:"entities"`
	Priority   string            `json:"priority"`
	Avatar     string            `json:"avatar"`
	Params     map[string]string `json:"params"`
}

func parseModelIntent(raw, original string) (*models.Intent, error) {
	cleaned := stripCodeFences(raw)

	var mi modelIntent
	if err := json.Unmarshal([]byte(cleaned), &mi); err != nil {
		return nil, fmt.Errorf("decode intent JSON: %w", err)
	}

	intentType := models.IntentType(strings.ToLower(mi.IntentType))
	if !intentType.Valid() {
		intentType = models.IntentChat
	}

	priority := models.Priority(strings.ToUpper(mi.Priority))
	if !priority.Valid() {
		priority = models.PriorityP3
	}

	avatar := models.Avatar(mi.Avatar)
	if !avatar.Valid() {
		avatar = models.AvatarProducer
	}

	intent := &models.Intent{
		Type:          intentType,
		Entities:      mi.Entities,
		Priority:      priority,
		Avatar:        avatar,
		Params:        decodeParams(intentType, mi.Params, original),
		OriginalInput: original,
	}

	// Email recipient backfill: always re-scan the raw input when the model
	// classified an email but produced no recipient. This is not a failure
	// path.
	if intentType == models.IntentEmail {
		ep, _ := intent.Params.(*models.EmailParams)
		if ep == nil {
			ep = &models.EmailParams{Subject: DefaultEmailSubject, Body: original}
			intent.Params = ep
		}
		if ep.To == "" {
			if emails := reEmailAddress.FindAllString(original, -1); len(emails) > 0 {
				ep.To = emails[0]
				intent.Entities.Emails = emails
				log.Info().Str("to", ep.To).Msg("Backfilled email recipient by regex")
			}
		}
	}

	return intent, nil
}

// decodeParams converts the model's flat params map into the typed variant
// for the intent type. Intents with no parameters return nil.
func decodeParams(t models.IntentType, m map[string]string, original string) models.Params {
	get := func(key string) string { return m[key] }

	switch t {
	case models.IntentTask:
		return &models.TaskParams{
			Title:       get("title"),
			Description: get("description"),
			DueDate:     get("due_date"),
		}
	case models.IntentSchedule:
		return &models.ScheduleParams{
			Title:       get("title"),
			Description: get("description"),
		}
	case models.IntentEmail:
		subject := get("subject")
		if subject == "" {
			subject = DefaultEmailSubject
		}
		body := get("body")
		if body == "" {
			body = original
		}
		return &models.EmailParams{To: get("to_email"), Subject: subject, Body: body}
	case models.IntentSearch, models.IntentChat:
		query := get("query")
		if query == "" {
			query = original
		}
		return &models.QueryParams{Query: query}
	case models.IntentContact, models.IntentContactList:
		action := get("action")
		if action == "" && t == models.IntentContactList {
			action = "list"
		}
		return &models.ContactParams{
			Action:  action,
			Name:    get("contact_name"),
			Email:   get("email"),
			Phone:   get("phone"),
			Company: get("company"),
			Role:    get("role"),
		}
	case models.IntentFocus:
		return &models.FocusParams{Action: get("action")}
	}
	return nil
}

// stripCodeFences removes markdown fence markers the model sometimes wraps
// around its JSON answer.
func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```json") {
		s = strings.ReplaceAll(s, "```json", "")
		s = strings.ReplaceAll(s, "```", "")
	} else if strings.HasPrefix(s, "```") {
		s = strings.ReplaceAll(s, "```", "")
	}
	return strings.TrimSpace(s)
}
