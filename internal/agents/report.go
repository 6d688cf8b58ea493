package agents

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/presentos/presentos/pkg/models"
)

// ReportService compiles daily and weekly productivity reports from the
// other collaborators. Each source degrades independently: a failing
// calendar still yields a report with tasks and XP.
type ReportService struct {
	tasks    *TaskService
	calendar *CalendarService
	email    *EmailService
	xp       *XPService
}

// NewReportService wires the report compiler to its sources.
func NewReportService(tasks *TaskService, calendar *CalendarService, email *EmailService, xp *XPService) *ReportService {
	return &ReportService{tasks: tasks, calendar: calendar, email: email, xp: xp}
}

// productivityScore weighs completed work, capped at 100. Emergencies and
// important work count extra.
func productivityScore(done []models.Task) int {
	score := len(done) * 10
	for _, t := range done {
		switch t.Priority {
		case models.PriorityP1:
			score += 15
		case models.PriorityP2:
			score += 10
		}
	}
	if score > 100 {
		score = 100
	}
	return score
}

// DailyReport builds today's report.
func (r *ReportService) DailyReport(ctx context.Context) *models.DailyReport {
	today := time.Now().Format("2006-01-02")
	report := &models.DailyReport{
		Date:              today,
		Type:              "daily",
		GeneratedAt:       time.Now(),
		PriorityBreakdown: map[models.Priority]int{},
		AvatarBreakdown:   map[models.Avatar]int{},
	}

	done, err := r.tasks.Tasks(ctx, models.TaskFilter{Status: models.TaskStatusDone})
	if err != nil {
		log.Warn().Err(err).Msg("Report task source failed")
	}
	var todaysDone []models.Task
	for _, t := range done {
		if t.Created.Format("2006-01-02") == today {
			todaysDone = append(todaysDone, t)
		}
	}
	report.Tasks = todaysDone
	report.Summary.TasksCompleted = len(todaysDone)
	for _, t := range todaysDone {
		report.PriorityBreakdown[t.Priority]++
		report.AvatarBreakdown[t.Avatar]++
	}
	report.Summary.ProductivityScore = productivityScore(todaysDone)

	if r.calendar != nil {
		if events, err := r.calendar.TodayEvents(ctx); err == nil {
			report.Events = events
			report.Summary.EventsAttended = len(events)
		} else {
			log.Warn().Err(err).Msg("Report calendar source failed")
		}
	}

	if r.email != nil && r.email.Connected() {
		report.Summary.EmailsProcessed = r.email.UnreadCount(ctx)
	}

	if r.xp != nil {
		if statuses, err := r.xp.AllAvatars(ctx); err == nil {
			report.XPStatus = statuses
			for _, s := range statuses {
				report.Summary.TotalXP += s.TotalXP
			}
		} else {
			log.Warn().Err(err).Msg("Report XP source failed")
		}
	}

	report.Insights = r.insights(ctx, report)
	report.Recommendations = r.recommendations(ctx, report)
	return report
}

// WeeklyReport aggregates the trailing seven days of completed tasks and
// flags the trend between the two halves of the week.
func (r *ReportService) WeeklyReport(ctx context.Context) *models.DailyReport {
	now := time.Now()
	weekAgo := now.AddDate(0, 0, -7)
	report := &models.DailyReport{
		Date:              fmt.Sprintf("%s to %s", weekAgo.Format("2006-01-02"), now.Format("2006-01-02")),
		Type:              "weekly",
		GeneratedAt:       now,
		PriorityBreakdown: map[models.Priority]int{},
		AvatarBreakdown:   map[models.Avatar]int{},
	}

	done, err := r.tasks.Tasks(ctx, models.TaskFilter{Status: models.TaskStatusDone})
	if err != nil {
		log.Warn().Err(err).Msg("Report task source failed")
	}
	var week []models.Task
	for _, t := range done {
		if t.Created.After(weekAgo) {
			week = append(week, t)
		}
	}
	report.Tasks = week
	report.Summary.TasksCompleted = len(week)
	for _, t := range week {
		report.PriorityBreakdown[t.Priority]++
		report.AvatarBreakdown[t.Avatar]++
	}
	report.Summary.ProductivityScore = productivityScore(week)

	if r.xp != nil {
		if statuses, err := r.xp.AllAvatars(ctx); err == nil {
			report.XPStatus = statuses
			for _, s := range statuses {
				report.Summary.TotalXP += s.TotalXP
			}
		}
	}

	report.Insights = append(report.Insights, weeklyTrend(week, weekAgo, now))
	report.Insights = append(report.Insights,
		fmt.Sprintf("Completed %d tasks this week (%.1f per day).", len(week), float64(len(week))/7))
	report.Recommendations = r.recommendations(ctx, report)
	return report
}

// weeklyTrend compares the first and second half of the window.
func weeklyTrend(tasks []models.Task, start, end time.Time) string {
	mid := start.Add(end.Sub(start) / 2)
	var first, second int
	for _, t := range tasks {
		if t.Created.Before(mid) {
			first++
		} else {
			second++
		}
	}
	switch {
	case float64(second) > float64(first)*1.1:
		return "Productivity is trending up through the week."
	case float64(second) < float64(first)*0.9:
		return "Productivity dipped in the second half of the week."
	default:
		return "Productivity held steady across the week."
	}
}

func (r *ReportService) insights(ctx context.Context, report *models.DailyReport) []string {
	var out []string

	if report.Summary.TasksCompleted == 0 {
		out = append(out, "No tasks completed yet today.")
	} else {
		out = append(out, fmt.Sprintf("Completed %d tasks today.", report.Summary.TasksCompleted))
	}
	if n := report.PriorityBreakdown[models.PriorityP1]; n > 0 {
		out = append(out, fmt.Sprintf("Handled %d emergency items. Strong crisis response.", n))
	}

	var topAvatar models.Avatar
	var topCount int
	for avatar, count := range report.AvatarBreakdown {
		if count > topCount {
			topAvatar, topCount = avatar, count
		}
	}
	if topCount > 0 {
		out = append(out, fmt.Sprintf("Most active persona: %s (%d tasks).", topAvatar, topCount))
	}

	switch {
	case report.Summary.ProductivityScore >= 80:
		out = append(out, "Excellent productivity score. Keep the momentum.")
	case report.Summary.ProductivityScore >= 50:
		out = append(out, "Solid day. A couple more completions would make it great.")
	}
	return out
}

func (r *ReportService) recommendations(ctx context.Context, report *models.DailyReport) []string {
	var out []string

	if overdue, err := r.tasks.OverdueTasks(ctx); err == nil && len(overdue) > 0 {
		out = append(out, fmt.Sprintf("You have %d overdue tasks. Clear or reschedule them first.", len(overdue)))
	}
	if backlog, err := r.tasks.Backlog(ctx); err == nil && backlog > 10 {
		out = append(out, fmt.Sprintf("Backlog is at %d items. Consider a triage session.", backlog))
	}
	if report.Summary.TasksCompleted > 0 && report.PriorityBreakdown[models.PriorityP1] == 0 &&
		report.PriorityBreakdown[models.PriorityP2] == 0 {
		out = append(out, "All completions were routine. Schedule time for high-impact work.")
	}
	if report.Summary.EmailsProcessed > 20 {
		out = append(out, "Inbox is heavy. Batch email into two windows instead of polling.")
	}
	if len(out) == 0 {
		out = append(out, "You're on track. No changes needed.")
	}
	return out
}
