// Package interrupt decides whether an incoming notification should reach
// the user now or wait.
//
// The policy is a small state machine: Idle or Focused. While Focused, only
// P1 and P2 notifications get through. Outside focus sessions, configured
// deep-work and low-energy windows still queue non-urgent notifications.
// Custom queue rules can be added as expressions evaluated against each
// notification.
package interrupt

import (
	"fmt"
	"sync"
	"time"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/presentos/presentos/internal/config"
	"github.com/presentos/presentos/pkg/models"
)

// ErrNotFocused is returned by EndFocus when no session is running.
var ErrNotFocused = fmt.Errorf("focus mode not active")

// RuleEnv is the expression environment a custom rule is evaluated against.
type RuleEnv struct {
	Type     string `expr:"type"`
	Priority string `expr:"priority"`
	Source   string `expr:"source"`
	Hour     int    `expr:"hour"`
	Focused  bool   `expr:"focused"`
}

type customRule struct {
	name    string
	program *vm.Program
	reason  string
}

// Policy owns the focus-session state machine and the notification queue.
// All methods are safe for concurrent use.
type Policy struct {
	mu sync.Mutex

	now func() time.Time
	loc *time.Location

	focused      bool
	focusStart   time.Time
	focusMinutes int
	taskName     string

	queue []models.Notification

	deepWorkStart  int
	deepWorkEnd    int
	lowEnergyStart int
	lowEnergyEnd   int
	defaultMinutes int

	rules []customRule
}

// Option configures a Policy.
type Option func(*Policy)

// WithClock overrides the time source. Used by tests.
func WithClock(now func() time.Time) Option {
	return func(p *Policy) { p.now = now }
}

// NewPolicy creates the admission policy with the configured windows.
func NewPolicy(cfg config.FocusConfig, loc *time.Location, opts ...Option) *Policy {
	if loc == nil {
		loc = time.Local
	}
	p := &Policy{
		now:            time.Now,
		loc:            loc,
		deepWorkStart:  cfg.DeepWorkStartHour,
		deepWorkEnd:    cfg.DeepWorkEndHour,
		lowEnergyStart: cfg.LowEnergyStartHour,
		lowEnergyEnd:   cfg.LowEnergyEndHour,
		defaultMinutes: cfg.DefaultMinutes,
	}
	if p.defaultMinutes <= 0 {
		p.defaultMinutes = 25
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ── Focus session ────────────────────────────────────────────

// StartFocus begins a focus session. Starting while one is already running
// overwrites it and marks the returned session as restarted. A non-positive
// duration uses the configured default.
func (p *Policy) StartFocus(durationMinutes int, taskName string) models.FocusSession {
	p.mu.Lock()
	defer p.mu.Unlock()

	if durationMinutes <= 0 {
		durationMinutes = p.defaultMinutes
	}

	restarted := p.focused
	now := p.now().In(p.loc)
	p.focused = true
	p.focusStart = now
	p.focusMinutes = durationMinutes
	p.taskName = taskName

	log.Info().
		Int("duration_minutes", durationMinutes).
		Str("task", taskName).
		Bool("restarted", restarted).
		Msg("Focus session started")

	return models.FocusSession{
		Active:          true,
		TaskName:        taskName,
		DurationMinutes: durationMinutes,
		StartTime:       now,
		EndTime:         now.Add(time.Duration(durationMinutes) * time.Minute),
		Restarted:       restarted,
	}
}

// EndFocus finishes the running session and reports what queued up during
// it. The queue itself is kept until drained with Queued(true).
func (p *Policy) EndFocus() (*models.FocusEndResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.focused {
		return nil, ErrNotFocused
	}

	elapsed := p.now().In(p.loc).Sub(p.focusStart).Minutes()
	p.focused = false

	queued := make([]models.Notification, len(p.queue))
	copy(queued, p.queue)

	log.Info().
		Float64("duration_minutes", elapsed).
		Int("queued", len(queued)).
		Msg("Focus session ended")

	return &models.FocusEndResult{
		DurationMinutes: round1(elapsed),
		Queued:          queued,
		Message:         fmt.Sprintf("Focus session complete! %d notifications queued", len(queued)),
	}, nil
}

// Status reports the current focus state without mutating it. An expired
// session still shows as active here; expiry only happens on the next
// admission evaluation.
func (p *Policy) Status() models.FocusStatus {
	p.mu.Lock()
	defer p.mu.Unlock()

	status := models.FocusStatus{QueuedCount: len(p.queue)}
	if !p.focused {
		return status
	}

	elapsed := p.now().In(p.loc).Sub(p.focusStart).Minutes()
	remaining := float64(p.focusMinutes) - elapsed
	if remaining < 0 {
		remaining = 0
	}
	progress := elapsed / float64(p.focusMinutes) * 100
	if progress > 100 {
		progress = 100
	}

	status.Active = true
	status.StartTime = p.focusStart.Format(time.RFC3339)
	status.ElapsedMinutes = round1(elapsed)
	status.RemainingMinutes = round1(remaining)
	status.ProgressPercent = round1(progress)
	return status
}

// ── Admission ────────────────────────────────────────────────

// Evaluate decides whether a notification interrupts now or joins the queue.
// A session past its duration is expired here as a side effect.
func (p *Policy) Evaluate(notifType string, priority models.Priority, content map[string]any, source string) models.AdmissionDecision {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.now().In(p.loc)
	admit, reason := p.decide(notifType, priority, source, now)

	n := models.Notification{
		ID:          uuid.New().String(),
		Type:        notifType,
		Priority:    priority,
		Content:     content,
		Source:      source,
		Timestamp:   now,
		Interrupted: admit,
	}

	if admit {
		log.Info().Str("type", notifType).Str("priority", string(priority)).Str("reason", reason).Msg("Notification delivered")
		return models.AdmissionDecision{
			Action:       models.ActionInterrupt,
			Notification: n,
			Reason:       reason,
		}
	}

	p.queue = append(p.queue, n)
	log.Info().Str("type", notifType).Str("priority", string(priority)).Str("reason", reason).Msg("Notification queued")
	return models.AdmissionDecision{
		Action:       models.ActionQueue,
		Notification: n,
		Reason:       reason,
		QueuedCount:  len(p.queue),
	}
}

// decide applies the admission rules in strict order. Caller holds the lock.
func (p *Policy) decide(notifType string, priority models.Priority, source string, now time.Time) (bool, string) {
	if priority == models.PriorityP1 {
		return true, "P1 emergency - always interrupt"
	}

	if p.focused {
		elapsed := now.Sub(p.focusStart).Minutes()
		if elapsed >= float64(p.focusMinutes) {
			p.focused = false
			return true, "Focus session complete"
		}
		if priority == models.PriorityP2 {
			return true, "P2 allowed in focus mode"
		}
		return false, "Focus mode active - queuing notification"
	}

	hour := now.Hour()
	if hour >= p.deepWorkStart && hour < p.deepWorkEnd {
		return false, "Deep work hours - queuing notification"
	}
	if hour >= p.lowEnergyStart && hour < p.lowEnergyEnd &&
		(priority == models.PriorityP3 || priority == models.PriorityP4) {
		return false, "Low energy period - reducing notifications"
	}

	env := RuleEnv{
		Type:     notifType,
		Priority: string(priority),
		Source:   source,
		Hour:     hour,
		Focused:  false,
	}
	for _, rule := range p.rules {
		out, err := expr.Run(rule.program, env)
		if err != nil {
			log.Warn().Str("rule", rule.name).Err(err).Msg("Custom admission rule failed, skipping")
			continue
		}
		if matched, ok := out.(bool); ok && matched {
			return false, rule.reason
		}
	}

	return true, "Normal mode - notification allowed"
}

// AddRule registers a custom queue rule. The expression is evaluated against
// RuleEnv and must yield a bool; a true result queues the notification with
// the given reason. Custom rules can only queue, never force delivery past
// the built-in rules.
func (p *Policy) AddRule(name, expression, reason string) error {
	program, err := expr.Compile(expression, expr.Env(RuleEnv{}), expr.AsBool())
	if err != nil {
		return fmt.Errorf("compile rule %q: %w", name, err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.rules = append(p.rules, customRule{name: name, program: program, reason: reason})
	return nil
}

// ── Queue ────────────────────────────────────────────────────

// Queued returns the queued notifications, optionally draining the queue.
func (p *Policy) Queued(clear bool) []models.Notification {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]models.Notification, len(p.queue))
	copy(out, p.queue)
	if clear {
		p.queue = nil
		log.Info().Int("count", len(out)).Msg("Cleared queued notifications")
	}
	return out
}

// Snooze stamps a queued notification with a snoozed-until time. The
// notification stays in the queue; nothing re-delivers it automatically.
func (p *Policy) Snooze(id string, minutes int) (time.Time, error) {
	if minutes <= 0 {
		minutes = 15
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	for i := range p.queue {
		if p.queue[i].ID == id {
			until := p.now().In(p.loc).Add(time.Duration(minutes) * time.Minute)
			p.queue[i].SnoozedUntil = &until
			return until, nil
		}
	}
	return time.Time{}, fmt.Errorf("notification %s not found", id)
}

// SetDeepWorkWindow replaces the deep-work hours.
func (p *Policy) SetDeepWorkWindow(startHour, endHour int) error {
	if startHour < 0 || startHour > 23 || endHour < 0 || endHour > 23 {
		return fmt.Errorf("hours must be between 0-23")
	}
	if startHour >= endHour {
		return fmt.Errorf("start hour must be before end hour")
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.deepWorkStart = startHour
	p.deepWorkEnd = endHour
	log.Info().Int("start", startHour).Int("end", endHour).Msg("Deep work window updated")
	return nil
}

// Stats summarizes the queue by priority.
func (p *Policy) Stats() models.InterruptStats {
	p.mu.Lock()
	defer p.mu.Unlock()

	breakdown := map[models.Priority]int{
		models.PriorityP1: 0,
		models.PriorityP2: 0,
		models.PriorityP3: 0,
		models.PriorityP4: 0,
	}
	for _, n := range p.queue {
		if _, ok := breakdown[n.Priority]; ok {
			breakdown[n.Priority]++
		}
	}

	return models.InterruptStats{
		TotalQueued:       len(p.queue),
		PriorityBreakdown: breakdown,
		FocusActive:       p.focused,
		DeepWorkWindow:    fmt.Sprintf("%d:00 - %d:00", p.deepWorkStart, p.deepWorkEnd),
	}
}

func round1(v float64) float64 {
	return float64(int(v*10+0.5)) / 10
}
