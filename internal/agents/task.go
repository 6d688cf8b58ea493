package agents

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/presentos/presentos/internal/config"
	"github.com/presentos/presentos/internal/store"
	"github.com/presentos/presentos/pkg/models"
)

// TaskService manages the task backlog. When an external task database is
// configured it is the system of record; otherwise tasks live in the local
// store.
type TaskService struct {
	cfg    config.TasksConfig
	local  store.TaskStore
	client *http.Client
}

// NewTaskService creates the task collaborator.
func NewTaskService(cfg config.TasksConfig, local store.TaskStore) *TaskService {
	return &TaskService{
		cfg:    cfg,
		local:  local,
		client: &http.Client{Timeout: 15 * time.Second},
	}
}

func (t *TaskService) external() bool {
	return t.cfg.Token != "" && t.cfg.DatabaseID != ""
}

// CreateTask creates a task with its XP value stamped from the priority.
func (t *TaskService) CreateTask(ctx context.Context, title string, avatar models.Avatar, priority models.Priority, dueDate string) *models.TaskCreateResult {
	if !avatar.Valid() {
		avatar = models.AvatarProducer
	}
	if !priority.Valid() {
		priority = models.PriorityP3
	}

	task := &models.Task{
		ID:       uuid.New().String(),
		Title:    title,
		Status:   models.TaskStatusInbox,
		Avatar:   avatar,
		Priority: priority,
		DueDate:  dueDate,
		XPValue:  CalculateTaskXP(priority, "low"),
		Created:  time.Now(),
	}

	if t.external() {
		if err := t.pushExternal(ctx, task); err != nil {
			log.Error().Err(err).Str("title", title).Msg("Task creation failed")
			return &models.TaskCreateResult{
				Success: false,
				Title:   title,
				Error:   err.Error(),
			}
		}
	} else if err := t.local.CreateTask(ctx, task); err != nil {
		return &models.TaskCreateResult{Success: false, Title: title, Error: err.Error()}
	}

	log.Info().Str("title", title).Str("priority", string(priority)).Msg("Task created")
	return &models.TaskCreateResult{
		Success:  true,
		TaskID:   task.ID,
		Title:    title,
		Avatar:   avatar,
		Priority: priority,
		Status:   task.Status,
		XPValue:  task.XPValue,
		URL:      task.URL,
	}
}

// Tasks lists tasks matching the filter.
func (t *TaskService) Tasks(ctx context.Context, filter models.TaskFilter) ([]models.Task, error) {
	if t.external() {
		return t.queryExternal(ctx, filter)
	}
	return t.local.ListTasks(ctx, filter)
}

// TodayTasks returns the inbox.
func (t *TaskService) TodayTasks(ctx context.Context) ([]models.Task, error) {
	return t.Tasks(ctx, models.TaskFilter{Status: models.TaskStatusInbox})
}

// OverdueTasks returns unfinished tasks whose due date has passed.
func (t *TaskService) OverdueTasks(ctx context.Context) ([]models.Task, error) {
	all, err := t.Tasks(ctx, models.TaskFilter{})
	if err != nil {
		return nil, err
	}

	today := time.Now().Format("2006-01-02")
	var overdue []models.Task
	for _, task := range all {
		if task.DueDate != "" && task.Status != models.TaskStatusDone && task.DueDate < today {
			overdue = append(overdue, task)
		}
	}
	return overdue, nil
}

// CompleteTask marks a task done. External databases are updated via their
// API; local tasks in the store.
func (t *TaskService) CompleteTask(ctx context.Context, id string) error {
	if t.external() {
		return t.updateExternal(ctx, id, map[string]string{"status": models.TaskStatusDone})
	}

	task, err := t.local.GetTask(ctx, id)
	if err != nil {
		return err
	}
	task.Status = models.TaskStatusDone
	return t.local.UpdateTask(ctx, task)
}

// Backlog counts open tasks for the context contract.
func (t *TaskService) Backlog(ctx context.Context) (int, error) {
	if t.external() {
		tasks, err := t.queryExternal(ctx, models.TaskFilter{Status: models.TaskStatusInbox})
		if err != nil {
			return 0, err
		}
		return len(tasks), nil
	}
	return t.local.CountTasks(ctx, models.TaskStatusInbox)
}

// ── External task database ──────────────────────────────────

type externalTask struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Status   string `json:"status"`
	Avatar   string `json:"avatar"`
	Priority string `json:"priority"`
	DueDate  string `json:"due_date,omitempty"`
	XPValue  int    `json:"xp_value"`
	Created  string `json:"created,omitempty"`
	URL      string `json:"url,omitempty"`
}

func (t *TaskService) pushExternal(ctx context.Context, task *models.Task) error {
	body, _ := json.Marshal(externalTask{
		ID:       task.ID,
		Title:    task.Title,
		Status:   task.Status,
		Avatar:   string(task.Avatar),
		Priority: string(task.Priority),
		DueDate:  task.DueDate,
		XPValue:  task.XPValue,
	})
	url := fmt.Sprintf("%s/databases/%s/tasks", t.cfg.Endpoint, t.cfg.DatabaseID)

	var created externalTask
	err := t.doRetry(ctx, "POST", url, body, &created)
	if err != nil {
		return err
	}
	if created.ID != "" {
		task.ID = created.ID
	}
	task.URL = created.URL
	return nil
}

func (t *TaskService) queryExternal(ctx context.Context, filter models.TaskFilter) ([]models.Task, error) {
	url := fmt.Sprintf("%s/databases/%s/tasks?status=%s&avatar=%s&priority=%s",
		t.cfg.Endpoint, t.cfg.DatabaseID, filter.Status, filter.Avatar, filter.Priority)

	var resp struct {
		Results []externalTask `json:"results"`
	}
	if err := t.doRetry(ctx, "GET", url, nil, &resp); err != nil {
		return nil, err
	}

	out := make([]models.Task, 0, len(resp.Results))
	for _, et := range resp.Results {
		task := models.Task{
			ID:       et.ID,
			Title:    et.Title,
			Status:   et.Status,
			Avatar:   models.Avatar(et.Avatar),
			Priority: models.Priority(et.Priority),
			DueDate:  et.DueDate,
			XPValue:  et.XPValue,
			URL:      et.URL,
		}
		if ts, err := time.Parse(time.RFC3339, et.Created); err == nil {
			task.Created = ts
		}
		out = append(out, task)
		if filter.Limit > 0 && len(out) >= filter.Limit {
			break
		}
	}
	return out, nil
}

func (t *TaskService) updateExternal(ctx context.Context, id string, updates map[string]string) error {
	body, _ := json.Marshal(updates)
	url := fmt.Sprintf("%s/databases/%s/tasks/%s", t.cfg.Endpoint, t.cfg.DatabaseID, id)
	return t.doRetry(ctx, "PATCH", url, body, nil)
}

// doRetry performs an authenticated request with a short exponential backoff
// on transient failures.
func (t *TaskService) doRetry(ctx context.Context, method, url string, body []byte, out any) error {
	bo := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 2), ctx)

	op := func() error {
		var reader io.Reader
		if body != nil {
			reader = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, url, reader)
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+t.cfg.Token)

		resp, err := t.client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 500 {
			return fmt.Errorf("task store: status %d", resp.StatusCode)
		}
		if resp.StatusCode >= 400 {
			respBody, _ := io.ReadAll(resp.Body)
			return backoff.Permanent(fmt.Errorf("task store: status %d: %s", resp.StatusCode, string(respBody)))
		}
		if out != nil {
			if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
				return backoff.Permanent(fmt.Errorf("task store: decode response: %w", err))
			}
		}
		return nil
	}
	return backoff.Retry(op, bo)
}
