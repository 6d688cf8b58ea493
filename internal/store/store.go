// Package store provides the storage interface and implementations for the
// Present OS backend. The in-memory store persists JSON snapshots; the SQLite
// store is for installs that want real durability.
package store

import (
	"context"
	"time"

	"github.com/presentos/presentos/pkg/models"
)

// Store is the primary storage interface. Handler and agent code depends on
// this interface so the in-memory (tests, local dev) and SQLite
// implementations are interchangeable.
type Store interface {
	ContactStore
	TaskStore
	XPStore
	TraceStore

	// Ping checks the backing storage is reachable.
	Ping(ctx context.Context) error

	// Close releases all resources held by the store.
	Close() error

	// Migrate prepares the backing schema.
	Migrate(ctx context.Context) error
}

// ── Contact Store ───────────────────────────────────────────

type ContactStore interface {
	ListContacts(ctx context.Context) ([]models.Contact, error)
	GetContact(ctx context.Context, name string) (*models.Contact, error)
	CreateContact(ctx context.Context, contact *models.Contact) error
	UpdateContact(ctx context.Context, contact *models.Contact) error
	DeleteContact(ctx context.Context, name string) error
}

// ── Task Store ──────────────────────────────────────────────

// TaskStore is the local task backlog, used directly and as the fallback
// when no external task service is configured.
type TaskStore interface {
	ListTasks(ctx context.Context, filter models.TaskFilter) ([]models.Task, error)
	GetTask(ctx context.Context, id string) (*models.Task, error)
	CreateTask(ctx context.Context, task *models.Task) error
	UpdateTask(ctx context.Context, task *models.Task) error
	CountTasks(ctx context.Context, status string) (int, error)
}

// ── XP Store ────────────────────────────────────────────────

// XPStore holds the gamification ledger: per-avatar XP state and the
// append-only achievement log.
type XPStore interface {
	GetAvatarState(ctx context.Context, avatar models.Avatar) (*models.AvatarState, error)
	UpsertAvatarState(ctx context.Context, state *models.AvatarState) error
	ListAvatarStates(ctx context.Context) ([]models.AvatarState, error)
	AppendAchievement(ctx context.Context, a *models.Achievement) error
	ListAchievements(ctx context.Context, limit int) ([]models.Achievement, error)
}

// ── Trace Store ─────────────────────────────────────────────

type TraceStore interface {
	CreateTrace(ctx context.Context, trace *models.CommandTrace) error
	ListTraces(ctx context.Context, limit int) ([]models.CommandTrace, error)

	// DeleteTracesBefore removes traces older than cutoff and reports how
	// many were deleted.
	DeleteTracesBefore(ctx context.Context, cutoff time.Time) (int, error)
}

// ── Errors ──────────────────────────────────────────────────

// ErrNotFound is returned when a requested entity does not exist.
type ErrNotFound struct {
	Entity string
	Key    string
}

func (e *ErrNotFound) Error() string {
	return e.Entity + " not found: " + e.Key
}
