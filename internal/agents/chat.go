package agents

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/presentos/presentos/internal/llm"
	"github.com/presentos/presentos/pkg/models"
)

const chatMaxHistoryTurns = 10

const chatPersona = `You are Martin, a sharp and slightly witty personal chief of staff.
You help your user run their day: tasks, schedule, email, energy, focus.
Be concise and concrete. Prefer one clear suggestion over three vague ones.
When the user seems overloaded, say so and propose what to drop.
Never invent tasks, events, or emails that are not in the context below.`

// Completer is the slice of the model client chat needs.
type Completer interface {
	Configured() bool
	Chat(ctx context.Context, messages []models.ChatMessage) (*llm.Response, error)
}

// ChatService holds a rolling conversation with the model.
type ChatService struct {
	client Completer

	mu      sync.Mutex
	history []models.ChatMessage
}

// NewChatService creates the conversational collaborator.
func NewChatService(client Completer) *ChatService {
	return &ChatService{client: client}
}

func buildSystemPrompt(sysCtx models.SystemContext) string {
	when := sysCtx.CurrentTime
	if when.IsZero() {
		when = time.Now()
	}

	var b strings.Builder
	b.WriteString(chatPersona)
	b.WriteString("\n\nCurrent context:\n")
	fmt.Fprintf(&b, "- task_backlog: %d open tasks\n", sysCtx.TaskBacklog)
	fmt.Fprintf(&b, "- energy_level: %d/100\n", sysCtx.EnergyLevel)
	if sysCtx.Weather != "" {
		fmt.Fprintf(&b, "- weather: %s\n", sysCtx.Weather)
	}
	fmt.Fprintf(&b, "- current_time: %s\n", when.Format("Mon 2 Jan 15:04"))
	return b.String()
}

// Chat sends a message along with recent history and the live context.
func (c *ChatService) Chat(ctx context.Context, message string, sysCtx models.SystemContext) *models.ChatResult {
	if c.client == nil || !c.client.Configured() {
		return &models.ChatResult{
			Success:  false,
			Response: "I'm unable to connect to the AI service right now. Core commands still work.",
			Error:    "no model provider configured",
		}
	}

	c.mu.Lock()
	messages := make([]models.ChatMessage, 0, len(c.history)+2)
	messages = append(messages, models.ChatMessage{Role: "system", Content: buildSystemPrompt(sysCtx)})
	messages = append(messages, c.history...)
	messages = append(messages, models.ChatMessage{Role: "user", Content: message})
	c.mu.Unlock()

	resp, err := c.client.Chat(ctx, messages)
	if err != nil {
		log.Warn().Err(err).Msg("Chat completion failed")
		return &models.ChatResult{
			Success:  false,
			Response: "I'm unable to connect to the AI service right now. Core commands still work.",
			Error:    err.Error(),
		}
	}

	c.mu.Lock()
	c.history = append(c.history,
		models.ChatMessage{Role: "user", Content: message},
		models.ChatMessage{Role: "assistant", Content: resp.Content},
	)
	// Keep the last N turns, a turn being a user/assistant pair.
	if max := chatMaxHistoryTurns * 2; len(c.history) > max {
		c.history = c.history[len(c.history)-max:]
	}
	c.mu.Unlock()

	return &models.ChatResult{
		Success:    true,
		Response:   resp.Content,
		Model:      resp.Model,
		TokensUsed: resp.Tokens,
	}
}

// ClearHistory drops the conversation.
func (c *ChatService) ClearHistory() {
	c.mu.Lock()
	c.history = nil
	c.mu.Unlock()
}

// HistoryLen reports how many messages are retained.
func (c *ChatService) HistoryLen() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.history)
}

// SuggestActions asks the model for up to three next actions given the
// current context. Failures degrade to an empty list.
func (c *ChatService) SuggestActions(ctx context.Context, sysCtx models.SystemContext) []string {
	if c.client == nil || !c.client.Configured() {
		return nil
	}

	prompt := fmt.Sprintf(
		"Given %d open tasks and energy %d/100, suggest up to 3 short next actions. One per line, no numbering.",
		sysCtx.TaskBacklog, sysCtx.EnergyLevel,
	)
	resp, err := c.client.Chat(ctx, []models.ChatMessage{
		{Role: "system", Content: chatPersona},
		{Role: "user", Content: prompt},
	})
	if err != nil {
		log.Warn().Err(err).Msg("Action suggestion failed")
		return nil
	}

	var actions []string
	for _, line := range strings.Split(resp.Content, "\n") {
		line = strings.TrimSpace(strings.TrimLeft(line, "-*0123456789. "))
		if line != "" {
			actions = append(actions, line)
		}
		if len(actions) == 3 {
			break
		}
	}
	return actions
}
