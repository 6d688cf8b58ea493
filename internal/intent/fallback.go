package intent

import (
	"regexp"
	"strings"

	"github.com/presentos/presentos/pkg/models"
)

// DefaultEmailSubject is used when the rule classifier cannot derive one.
const DefaultEmailSubject = "Message from Present OS"

var reEmailAddress = regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`)

var (
	reContactName   = regexp.MustCompile(`contact\s+([A-Z][a-z]+(?:\s+[A-Z][a-z]+)*)`)
	reTaskTitle     = regexp.MustCompile(`(?:task|todo|create)\s+(?:to\s+)?(.+)`)
	reScheduleTitle = regexp.MustCompile(`(?:schedule|meeting|event)\s+(?:a\s+)?(.+?)(?:\s+(?:at|on|for|tomorrow|today)\s+|$)`)
)

var (
	searchTriggers      = []string{"search for", "find information about", "look up", "google"}
	searchStripTriggers = []string{"search for", "find information about", "look up", "google", "search"}
	contactListPhrases  = []string{"show all contacts", "view all contacts", "list contacts", "all my contacts", "show contacts"}
	contactAddPhrases   = []string{"add contact", "new contact", "save contact", "create contact"}
	emailKeywords       = []string{"email", "mail", "send", "write to", "message"}
	bodyTriggers        = []string{"tell him", "tell her", "tell them", "asking", "ask him", "ask her"}
	taskKeywords        = []string{"task", "todo", "remind", "create task"}
	scheduleKeywords    = []string{"schedule", "calendar", "meeting", "event", "book"}
	weatherKeywords     = []string{"weather", "temperature", "forecast"}
	reportKeywords      = []string{"report", "summary", "stats", "performance"}

	urgentKeywords    = []string{"urgent", "asap", "immediately", "critical"}
	importantKeywords = []string{"important", "high priority"}
)

// RuleClassifier is the deterministic fallback classifier. It is a pure
// keyword cascade over the lower-cased input and is always available, with or
// without the chat model.
type RuleClassifier struct{}

// NewRuleClassifier creates the fallback classifier.
func NewRuleClassifier() *RuleClassifier { return &RuleClassifier{} }

// Classify maps text to an Intent. The first matching branch wins; anything
// unmatched becomes a chat intent carrying the full input as query.
func (c *RuleClassifier) Classify(text string) *models.Intent {
	lower := strings.ToLower(text)
	emails := reEmailAddress.FindAllString(text, -1)

	intent := &models.Intent{
		Type:          models.IntentChat,
		Priority:      scanPriority(lower),
		Avatar:        models.AvatarProducer,
		OriginalInput: text,
	}
	if len(emails) > 0 {
		intent.Entities.Emails = emails
	}

	switch {
	case containsAny(lower, searchTriggers):
		intent.Type = models.IntentSearch
		intent.Params = &models.QueryParams{Query: stripSearchTriggers(lower)}

	case containsAny(lower, contactListPhrases):
		intent.Type = models.IntentContactList
		intent.Params = &models.ContactParams{Action: "list"}

	case containsAny(lower, contactAddPhrases):
		intent.Type = models.IntentContact
		params := &models.ContactParams{Action: "add"}
		if m := reContactName.FindStringSubmatch(text); m != nil {
			params.Name = m[1]
			intent.Entities.Names = []string{m[1]}
		}
		if len(emails) > 0 {
			params.Email = emails[0]
		}
		intent.Params = params

	case containsAny(lower, emailKeywords) || len(emails) > 0:
		intent.Type = models.IntentEmail
		params := &models.EmailParams{
			Subject: DefaultEmailSubject,
			Body:    extractEmailBody(text, lower, emails),
		}
		if len(emails) > 0 {
			params.To = emails[0]
		}
		intent.Params = params

	case containsAny(lower, taskKeywords):
		intent.Type = models.IntentTask
		params := &models.TaskParams{}
		if m := reTaskTitle.FindStringSubmatch(lower); m != nil {
			params.Title = strings.TrimSpace(m[1])
		}
		intent.Params = params

	case containsAny(lower, scheduleKeywords):
		intent.Type = models.IntentSchedule
		params := &models.ScheduleParams{Title: "Meeting"}
		if m := reScheduleTitle.FindStringSubmatch(lower); m != nil && strings.TrimSpace(m[1]) != "" {
			params.Title = strings.TrimSpace(m[1])
		}
		intent.Params = params

	case containsAny(lower, weatherKeywords):
		intent.Type = models.IntentWeather

	case containsAny(lower, reportKeywords):
		intent.Type = models.IntentReport

	default:
		intent.Params = &models.QueryParams{Query: text}
	}

	return intent
}

// extractEmailBody derives the message body: a narrative trigger phrase wins,
// then everything after the first email address, then the whole input.
func extractEmailBody(text, lower string, emails []string) string {
	for _, trigger := range bodyTriggers {
		if idx := strings.Index(lower, trigger); idx >= 0 {
			return strings.TrimSpace(lower[idx+len(trigger):])
		}
	}
	if len(emails) > 0 {
		if idx := strings.Index(text, emails[0]); idx >= 0 {
			return strings.TrimSpace(text[idx+len(emails[0]):])
		}
	}
	return text
}

func stripSearchTriggers(lower string) string {
	query := lower
	for _, trigger := range searchStripTriggers {
		if idx := strings.Index(query, trigger); idx >= 0 {
			query = strings.TrimSpace(query[idx+len(trigger):])
		}
	}
	return query
}

// scanPriority assigns urgency from keywords, independent of intent type.
// P4 is never auto-assigned.
func scanPriority(lower string) models.Priority {
	if containsAny(lower, urgentKeywords) {
		return models.PriorityP1
	}
	if containsAny(lower, importantKeywords) {
		return models.PriorityP2
	}
	return models.PriorityP3
}

func containsAny(s string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}
