// Package store — in-memory Store implementation.
// Used when SQLite is not configured (local dev, tests). Supports file-based
// snapshot persistence so data survives restarts.
package store

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/presentos/presentos/pkg/models"
)

// snapshot is the JSON-serializable shape written to disk.
type snapshot struct {
	Contacts     map[string]*models.Contact     `json:"contacts"`      // key: lower(name)
	Tasks        map[string]*models.Task        `json:"tasks"`         // key: id
	Avatars      map[string]*models.AvatarState `json:"avatars"`       // key: avatar
	Achievements []*models.Achievement          `json:"achievements"`  // append-only
	Traces       []*models.CommandTrace         `json:"traces"`        // newest last
}

// MemoryStore implements Store with in-memory maps.
type MemoryStore struct {
	mu           sync.RWMutex
	contacts     map[string]*models.Contact
	tasks        map[string]*models.Task
	avatars      map[string]*models.AvatarState
	achievements []*models.Achievement
	traces       []*models.CommandTrace

	// Persistence
	snapshotPath string        // empty = no persistence
	saveMu       sync.Mutex    // guards file writes
	saveCh       chan struct{} // debounce channel
	doneCh       chan struct{}
	closeOnce    sync.Once
}

// NewMemoryStore creates a new in-memory store. A non-empty dataDir enables
// JSON snapshot persistence under dataDir/data.json.
func NewMemoryStore(dataDir string) *MemoryStore {
	m := &MemoryStore{
		contacts: make(map[string]*models.Contact),
		tasks:    make(map[string]*models.Task),
		avatars:  make(map[string]*models.AvatarState),
		saveCh:   make(chan struct{}, 1),
		doneCh:   make(chan struct{}),
	}

	if dataDir != "" {
		m.snapshotPath = filepath.Join(dataDir, "data.json")
		if err := os.MkdirAll(dataDir, 0755); err != nil {
			log.Warn().Err(err).Str("dir", dataDir).Msg("Cannot create data dir, persistence disabled")
			m.snapshotPath = ""
		}
	}

	if m.snapshotPath != "" {
		m.loadSnapshot()
		go m.saveLoop()
	}

	log.Info().Str("snapshot", m.snapshotPath).Msg("Memory store configured")
	return m
}

// requestSave signals the background goroutine to persist data.
// Non-blocking: coalesces multiple rapid writes into one disk flush.
func (m *MemoryStore) requestSave() {
	if m.snapshotPath == "" {
		return
	}
	select {
	case m.saveCh <- struct{}{}:
	default:
		// Already pending
	}
}

// saveLoop runs in a goroutine, debouncing save requests (max 1 write per 500ms).
func (m *MemoryStore) saveLoop() {
	for {
		select {
		case <-m.doneCh:
			return
		case <-m.saveCh:
			time.Sleep(500 * time.Millisecond) // debounce
			m.saveSnapshot()
		}
	}
}

// saveSnapshot persists all data to disk as JSON.
func (m *MemoryStore) saveSnapshot() {
	m.mu.RLock()
	snap := snapshot{
		Contacts:     m.contacts,
		Tasks:        m.tasks,
		Avatars:      m.avatars,
		Achievements: m.achievements,
		Traces:       m.traces,
	}
	data, err := json.MarshalIndent(snap, "", "  ")
	m.mu.RUnlock()

	if err != nil {
		log.Error().Err(err).Msg("Failed to marshal snapshot")
		return
	}

	m.saveMu.Lock()
	defer m.saveMu.Unlock()

	// Write to temp file then rename for atomicity
	tmp := m.snapshotPath + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		log.Error().Err(err).Str("path", tmp).Msg("Failed to write snapshot tmp")
		return
	}
	if err := os.Rename(tmp, m.snapshotPath); err != nil {
		log.Error().Err(err).Str("path", m.snapshotPath).Msg("Failed to rename snapshot")
		return
	}
}

// loadSnapshot reads data from disk on startup.
func (m *MemoryStore) loadSnapshot() {
	data, err := os.ReadFile(m.snapshotPath)
	if err != nil {
		if os.IsNotExist(err) {
			log.Info().Str("path", m.snapshotPath).Msg("No snapshot file found, starting fresh")
			return
		}
		log.Warn().Err(err).Str("path", m.snapshotPath).Msg("Failed to read snapshot")
		return
	}

	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		log.Error().Err(err).Str("path", m.snapshotPath).Msg("Failed to parse snapshot, starting fresh")
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if snap.Contacts != nil {
		m.contacts = snap.Contacts
	}
	if snap.Tasks != nil {
		m.tasks = snap.Tasks
	}
	if snap.Avatars != nil {
		m.avatars = snap.Avatars
	}
	if snap.Achievements != nil {
		m.achievements = snap.Achievements
	}
	if snap.Traces != nil {
		m.traces = snap.Traces
	}

	log.Info().
		Int("contacts", len(m.contacts)).
		Int("tasks", len(m.tasks)).
		Int("avatars", len(m.avatars)).
		Str("path", m.snapshotPath).
		Msg("Snapshot loaded")
}

// Ping always succeeds for the in-memory store.
func (m *MemoryStore) Ping(ctx context.Context) error { return nil }

// Migrate is a no-op for the in-memory store.
func (m *MemoryStore) Migrate(ctx context.Context) error { return nil }

// Close flushes a final snapshot and stops the save loop.
func (m *MemoryStore) Close() error {
	m.closeOnce.Do(func() {
		close(m.doneCh)
		if m.snapshotPath != "" {
			m.saveSnapshot()
		}
	})
	return nil
}

// ── Contacts ────────────────────────────────────────────────

func contactKey(name string) string { return strings.ToLower(strings.TrimSpace(name)) }

func (m *MemoryStore) ListContacts(ctx context.Context) ([]models.Contact, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]models.Contact, 0, len(m.contacts))
	for _, c := range m.contacts {
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *MemoryStore) GetContact(ctx context.Context, name string) (*models.Contact, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	c, ok := m.contacts[contactKey(name)]
	if !ok {
		return nil, &ErrNotFound{Entity: "contact", Key: name}
	}
	cp := *c
	return &cp, nil
}

func (m *MemoryStore) CreateContact(ctx context.Context, contact *models.Contact) error {
	m.mu.Lock()
	m.contacts[contactKey(contact.Name)] = contact
	m.mu.Unlock()
	m.requestSave()
	return nil
}

func (m *MemoryStore) UpdateContact(ctx context.Context, contact *models.Contact) error {
	key := contactKey(contact.Name)

	m.mu.Lock()
	if _, ok := m.contacts[key]; !ok {
		m.mu.Unlock()
		return &ErrNotFound{Entity: "contact", Key: contact.Name}
	}
	m.contacts[key] = contact
	m.mu.Unlock()
	m.requestSave()
	return nil
}

func (m *MemoryStore) DeleteContact(ctx context.Context, name string) error {
	key := contactKey(name)

	m.mu.Lock()
	if _, ok := m.contacts[key]; !ok {
		m.mu.Unlock()
		return &ErrNotFound{Entity: "contact", Key: name}
	}
	delete(m.contacts, key)
	m.mu.Unlock()
	m.requestSave()
	return nil
}

// ── Tasks ───────────────────────────────────────────────────

func (m *MemoryStore) ListTasks(ctx context.Context, filter models.TaskFilter) ([]models.Task, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]models.Task, 0, len(m.tasks))
	for _, t := range m.tasks {
		if filter.Status != "" && t.Status != filter.Status {
			continue
		}
		if filter.Avatar != "" && t.Avatar != filter.Avatar {
			continue
		}
		if filter.Priority != "" && t.Priority != filter.Priority {
			continue
		}
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Created.After(out[j].Created) })
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (m *MemoryStore) GetTask(ctx context.Context, id string) (*models.Task, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	t, ok := m.tasks[id]
	if !ok {
		return nil, &ErrNotFound{Entity: "task", Key: id}
	}
	cp := *t
	return &cp, nil
}

func (m *MemoryStore) CreateTask(ctx context.Context, task *models.Task) error {
	m.mu.Lock()
	m.tasks[task.ID] = task
	m.mu.Unlock()
	m.requestSave()
	return nil
}

func (m *MemoryStore) UpdateTask(ctx context.Context, task *models.Task) error {
	m.mu.Lock()
	if _, ok := m.tasks[task.ID]; !ok {
		m.mu.Unlock()
		return &ErrNotFound{Entity: "task", Key: task.ID}
	}
	m.tasks[task.ID] = task
	m.mu.Unlock()
	m.requestSave()
	return nil
}

func (m *MemoryStore) CountTasks(ctx context.Context, status string) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if status == "" {
		return len(m.tasks), nil
	}
	count := 0
	for _, t := range m.tasks {
		if t.Status == status {
			count++
		}
	}
	return count, nil
}

// ── XP Ledger ───────────────────────────────────────────────

func (m *MemoryStore) GetAvatarState(ctx context.Context, avatar models.Avatar) (*models.AvatarState, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.avatars[string(avatar)]
	if !ok {
		return nil, &ErrNotFound{Entity: "avatar", Key: string(avatar)}
	}
	cp := *s
	return &cp, nil
}

func (m *MemoryStore) UpsertAvatarState(ctx context.Context, state *models.AvatarState) error {
	m.mu.Lock()
	m.avatars[string(state.Avatar)] = state
	m.mu.Unlock()
	m.requestSave()
	return nil
}

func (m *MemoryStore) ListAvatarStates(ctx context.Context) ([]models.AvatarState, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]models.AvatarState, 0, len(m.avatars))
	for _, s := range m.avatars {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Avatar < out[j].Avatar })
	return out, nil
}

func (m *MemoryStore) AppendAchievement(ctx context.Context, a *models.Achievement) error {
	m.mu.Lock()
	m.achievements = append(m.achievements, a)
	m.mu.Unlock()
	m.requestSave()
	return nil
}

func (m *MemoryStore) ListAchievements(ctx context.Context, limit int) ([]models.Achievement, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]models.Achievement, 0, len(m.achievements))
	for _, a := range m.achievements {
		out = append(out, *a)
	}
	// Newest first
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// ── Traces ──────────────────────────────────────────────────

func (m *MemoryStore) CreateTrace(ctx context.Context, trace *models.CommandTrace) error {
	m.mu.Lock()
	m.traces = append(m.traces, trace)
	m.mu.Unlock()
	m.requestSave()
	return nil
}

func (m *MemoryStore) ListTraces(ctx context.Context, limit int) ([]models.CommandTrace, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]models.CommandTrace, 0, len(m.traces))
	for i := len(m.traces) - 1; i >= 0; i-- {
		out = append(out, *m.traces[i])
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (m *MemoryStore) DeleteTracesBefore(ctx context.Context, cutoff time.Time) (int, error) {
	m.mu.Lock()
	kept := m.traces[:0]
	for _, t := range m.traces {
		if !t.CreatedAt.Before(cutoff) {
			kept = append(kept, t)
		}
	}
	deleted := len(m.traces) - len(kept)
	m.traces = kept
	m.mu.Unlock()

	if deleted > 0 {
		m.requestSave()
	}
	return deleted, nil
}
