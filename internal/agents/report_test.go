package agents

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/presentos/presentos/internal/config"
	"github.com/presentos/presentos/internal/store"
	"github.com/presentos/presentos/internal/temporal"
	"github.com/presentos/presentos/pkg/models"
)

func newReportFixture(t *testing.T) (*ReportService, *store.MemoryStore) {
	t.Helper()
	s := store.NewMemoryStore("")
	t.Cleanup(func() { s.Close() })

	loc, err := time.LoadLocation("Asia/Kolkata")
	require.NoError(t, err)

	tasks := NewTaskService(config.TasksConfig{}, s)
	calendar := NewCalendarService(config.CalendarConfig{}, temporal.NewParser(loc))
	email := NewEmailService(config.EmailConfig{})
	xp := NewXPService(s)
	return NewReportService(tasks, calendar, email, xp), s
}

func doneTask(id, title string, priority models.Priority, avatar models.Avatar, created time.Time) *models.Task {
	return &models.Task{
		ID: id, Title: title, Status: models.TaskStatusDone,
		Priority: priority, Avatar: avatar, Created: created,
	}
}

func TestDailyReportAggregates(t *testing.T) {
	r, s := newReportFixture(t)
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, s.CreateTask(ctx, doneTask("1", "Fix outage", models.PriorityP1, models.AvatarProducer, now)))
	require.NoError(t, s.CreateTask(ctx, doneTask("2", "Review budget", models.PriorityP2, models.AvatarAdministrator, now)))
	require.NoError(t, s.CreateTask(ctx, doneTask("3", "Tidy desk", models.PriorityP4, models.AvatarProducer, now)))
	// Yesterday's completion stays out of today's report.
	require.NoError(t, s.CreateTask(ctx, doneTask("4", "Old win", models.PriorityP2, models.AvatarProducer, now.AddDate(0, 0, -1))))

	_, err := r.xp.AwardXP(ctx, models.AvatarProducer, 60, "tasks")
	require.NoError(t, err)

	report := r.DailyReport(ctx)

	assert.Equal(t, "daily", report.Type)
	assert.Equal(t, 3, report.Summary.TasksCompleted)
	assert.Equal(t, 1, report.PriorityBreakdown[models.PriorityP1])
	assert.Equal(t, 1, report.PriorityBreakdown[models.PriorityP2])
	assert.Equal(t, 2, report.AvatarBreakdown[models.AvatarProducer])
	// 3 tasks * 10 + P1 bonus 15 + P2 bonus 10.
	assert.Equal(t, 55, report.Summary.ProductivityScore)
	assert.Equal(t, 60, report.Summary.TotalXP)
	assert.NotEmpty(t, report.Insights)
	assert.NotEmpty(t, report.Recommendations)
}

func TestProductivityScoreCapped(t *testing.T) {
	var done []models.Task
	for i := 0; i < 20; i++ {
		done = append(done, models.Task{Priority: models.PriorityP1})
	}
	assert.Equal(t, 100, productivityScore(done))
}

func TestDailyReportEmptyDay(t *testing.T) {
	r, _ := newReportFixture(t)

	report := r.DailyReport(context.Background())

	assert.Equal(t, 0, report.Summary.TasksCompleted)
	assert.Equal(t, 0, report.Summary.ProductivityScore)
	assert.Contains(t, report.Insights[0], "No tasks completed")
	assert.Contains(t, report.Recommendations[0], "on track")
}

func TestWeeklyReportTrend(t *testing.T) {
	r, s := newReportFixture(t)
	ctx := context.Background()
	now := time.Now()

	// One completion early in the week, four late: trending up.
	require.NoError(t, s.CreateTask(ctx, doneTask("a", "early", models.PriorityP3, models.AvatarProducer, now.AddDate(0, 0, -6))))
	for i, id := range []string{"b", "c", "d", "e"} {
		require.NoError(t, s.CreateTask(ctx, doneTask(id, "late", models.PriorityP3, models.AvatarProducer, now.Add(-time.Duration(i)*time.Hour))))
	}

	report := r.WeeklyReport(ctx)

	assert.Equal(t, "weekly", report.Type)
	assert.Equal(t, 5, report.Summary.TasksCompleted)
	assert.Contains(t, report.Insights[0], "trending up")
}

func TestOverdueRecommendation(t *testing.T) {
	r, s := newReportFixture(t)
	ctx := context.Background()

	yesterday := time.Now().AddDate(0, 0, -1).Format("2006-01-02")
	require.NoError(t, s.CreateTask(ctx, &models.Task{
		ID: "od", Title: "Slipping", Status: models.TaskStatusInbox,
		Priority: models.PriorityP2, Avatar: models.AvatarProducer,
		DueDate: yesterday, Created: time.Now(),
	}))

	report := r.DailyReport(ctx)
	require.NotEmpty(t, report.Recommendations)
	assert.Contains(t, report.Recommendations[0], "overdue")
}
