// Package store — SQLite-backed Store implementation.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"

	"github.com/presentos/presentos/pkg/models"
)

const sqliteDBName = "presentos.db"

const schema = `
CREATE TABLE IF NOT EXISTS contacts (
	name_key   TEXT PRIMARY KEY,
	id         TEXT NOT NULL,
	name       TEXT NOT NULL,
	email      TEXT,
	phone      TEXT,
	company    TEXT,
	role       TEXT,
	tags       TEXT,
	created_at TIMESTAMP NOT NULL
);
CREATE TABLE IF NOT EXISTS tasks (
	id         TEXT PRIMARY KEY,
	title      TEXT NOT NULL,
	status     TEXT NOT NULL,
	avatar     TEXT NOT NULL,
	priority   TEXT NOT NULL,
	due_date   TEXT,
	xp_value   INTEGER NOT NULL DEFAULT 0,
	url        TEXT,
	created_at TIMESTAMP NOT NULL
);
CREATE TABLE IF NOT EXISTS avatars (
	avatar TEXT PRIMARY KEY,
	level  INTEGER NOT NULL,
	xp     INTEGER NOT NULL,
	color  TEXT
);
CREATE TABLE IF NOT EXISTS achievements (
	avatar      TEXT NOT NULL,
	title       TEXT NOT NULL,
	description TEXT,
	icon        TEXT,
	created_at  TIMESTAMP NOT NULL
);
CREATE TABLE IF NOT EXISTS traces (
	id          TEXT PRIMARY KEY,
	input       TEXT NOT NULL,
	intent_type TEXT NOT NULL,
	agents      TEXT,
	success     INTEGER NOT NULL,
	duration_ms INTEGER NOT NULL,
	created_at  TIMESTAMP NOT NULL
);
`

// SQLiteStore implements Store on a local SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (creating if needed) the database under dataDir.
func NewSQLiteStore(dataDir string) (*SQLiteStore, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	path := filepath.Join(dataDir, sqliteDBName)
	dsn := fmt.Sprintf("file:%s?cache=shared&_pragma=foreign_keys(1)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	log.Info().Str("path", path).Msg("SQLite store opened")
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

func (s *SQLiteStore) Close() error { return s.db.Close() }

// Migrate creates the schema if it does not exist yet.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// ── Contacts ────────────────────────────────────────────────

func scanContact(row interface{ Scan(...any) error }) (*models.Contact, error) {
	var c models.Contact
	var tags sql.NullString
	err := row.Scan(&c.ID, &c.Name, &c.Email, &c.Phone, &c.Company, &c.Role, &tags, &c.Created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, err
	}
	if tags.Valid && tags.String != "" {
		_ = json.Unmarshal([]byte(tags.String), &c.Tags)
	}
	return &c, nil
}

const contactColumns = `id, name, COALESCE(email,''), COALESCE(phone,''), COALESCE(company,''), COALESCE(role,''), tags, created_at`

func (s *SQLiteStore) ListContacts(ctx context.Context) ([]models.Contact, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+contactColumns+` FROM contacts ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Contact
	for rows.Next() {
		c, err := scanContact(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) GetContact(ctx context.Context, name string) (*models.Contact, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+contactColumns+` FROM contacts WHERE name_key=?`, contactKey(name))
	c, err := scanContact(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &ErrNotFound{Entity: "contact", Key: name}
	}
	return c, err
}

func (s *SQLiteStore) CreateContact(ctx context.Context, contact *models.Contact) error {
	tags, _ := json.Marshal(contact.Tags)
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO contacts(name_key,id,name,email,phone,company,role,tags,created_at) VALUES (?,?,?,?,?,?,?,?,?)`,
		contactKey(contact.Name), contact.ID, contact.Name, contact.Email, contact.Phone,
		contact.Company, contact.Role, string(tags), contact.Created)
	return err
}

func (s *SQLiteStore) UpdateContact(ctx context.Context, contact *models.Contact) error {
	tags, _ := json.Marshal(contact.Tags)
	res, err := s.db.ExecContext(ctx,
		`UPDATE contacts SET email=?, phone=?, company=?, role=?, tags=? WHERE name_key=?`,
		contact.Email, contact.Phone, contact.Company, contact.Role, string(tags), contactKey(contact.Name))
	if err != nil {
		return err
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return &ErrNotFound{Entity: "contact", Key: contact.Name}
	}
	return nil
}

func (s *SQLiteStore) DeleteContact(ctx context.Context, name string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM contacts WHERE name_key=?`, contactKey(name))
	if err != nil {
		return err
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return &ErrNotFound{Entity: "contact", Key: name}
	}
	return nil
}

// ── Tasks ───────────────────────────────────────────────────

const taskColumns = `id, title, status, avatar, priority, COALESCE(due_date,''), xp_value, COALESCE(url,''), created_at`

func scanTask(row interface{ Scan(...any) error }) (*models.Task, error) {
	var t models.Task
	err := row.Scan(&t.ID, &t.Title, &t.Status, &t.Avatar, &t.Priority, &t.DueDate, &t.XPValue, &t.URL, &t.Created)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *SQLiteStore) ListTasks(ctx context.Context, filter models.TaskFilter) ([]models.Task, error) {
	var (
		conds []string
		args  []any
	)
	if filter.Status != "" {
		conds = append(conds, "status=?")
		args = append(args, filter.Status)
	}
	if filter.Avatar != "" {
		conds = append(conds, "avatar=?")
		args = append(args, string(filter.Avatar))
	}
	if filter.Priority != "" {
		conds = append(conds, "priority=?")
		args = append(args, string(filter.Priority))
	}

	q := `SELECT ` + taskColumns + ` FROM tasks`
	if len(conds) > 0 {
		q += ` WHERE ` + strings.Join(conds, " AND ")
	}
	q += ` ORDER BY created_at DESC`
	if filter.Limit > 0 {
		q += fmt.Sprintf(` LIMIT %d`, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) GetTask(ctx context.Context, id string) (*models.Task, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id=?`, id)
	t, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &ErrNotFound{Entity: "task", Key: id}
	}
	return t, err
}

func (s *SQLiteStore) CreateTask(ctx context.Context, task *models.Task) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO tasks(id,title,status,avatar,priority,due_date,xp_value,url,created_at) VALUES (?,?,?,?,?,?,?,?,?)`,
		task.ID, task.Title, task.Status, string(task.Avatar), string(task.Priority),
		task.DueDate, task.XPValue, task.URL, task.Created)
	return err
}

func (s *SQLiteStore) UpdateTask(ctx context.Context, task *models.Task) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE tasks SET title=?, status=?, avatar=?, priority=?, due_date=?, xp_value=?, url=? WHERE id=?`,
		task.Title, task.Status, string(task.Avatar), string(task.Priority),
		task.DueDate, task.XPValue, task.URL, task.ID)
	if err != nil {
		return err
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return &ErrNotFound{Entity: "task", Key: task.ID}
	}
	return nil
}

func (s *SQLiteStore) CountTasks(ctx context.Context, status string) (int, error) {
	var count int
	var err error
	if status == "" {
		err = s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM tasks`).Scan(&count)
	} else {
		err = s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM tasks WHERE status=?`, status).Scan(&count)
	}
	return count, err
}

// ── XP Ledger ───────────────────────────────────────────────

func (s *SQLiteStore) GetAvatarState(ctx context.Context, avatar models.Avatar) (*models.AvatarState, error) {
	var st models.AvatarState
	err := s.db.QueryRowContext(ctx,
		`SELECT avatar, level, xp, COALESCE(color,'') FROM avatars WHERE avatar=?`, string(avatar)).
		Scan(&st.Avatar, &st.Level, &st.XP, &st.Color)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &ErrNotFound{Entity: "avatar", Key: string(avatar)}
	}
	if err != nil {
		return nil, err
	}
	return &st, nil
}

func (s *SQLiteStore) UpsertAvatarState(ctx context.Context, state *models.AvatarState) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO avatars(avatar,level,xp,color) VALUES (?,?,?,?)
		 ON CONFLICT(avatar) DO UPDATE SET level=excluded.level, xp=excluded.xp, color=excluded.color`,
		string(state.Avatar), state.Level, state.XP, state.Color)
	return err
}

func (s *SQLiteStore) ListAvatarStates(ctx context.Context) ([]models.AvatarState, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT avatar, level, xp, COALESCE(color,'') FROM avatars ORDER BY avatar`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.AvatarState
	for rows.Next() {
		var st models.AvatarState
		if err := rows.Scan(&st.Avatar, &st.Level, &st.XP, &st.Color); err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) AppendAchievement(ctx context.Context, a *models.Achievement) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO achievements(avatar,title,description,icon,created_at) VALUES (?,?,?,?,?)`,
		string(a.Avatar), a.Title, a.Description, a.Icon, a.Timestamp)
	return err
}

func (s *SQLiteStore) ListAchievements(ctx context.Context, limit int) ([]models.Achievement, error) {
	q := `SELECT avatar, title, COALESCE(description,''), COALESCE(icon,''), created_at FROM achievements ORDER BY created_at DESC`
	if limit > 0 {
		q += fmt.Sprintf(` LIMIT %d`, limit)
	}
	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Achievement
	for rows.Next() {
		var a models.Achievement
		if err := rows.Scan(&a.Avatar, &a.Title, &a.Description, &a.Icon, &a.Timestamp); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// ── Traces ──────────────────────────────────────────────────

func (s *SQLiteStore) CreateTrace(ctx context.Context, trace *models.CommandTrace) error {
	agents, _ := json.Marshal(trace.Agents)
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO traces(id,input,intent_type,agents,success,duration_ms,created_at) VALUES (?,?,?,?,?,?,?)`,
		trace.ID, trace.Input, trace.IntentType, string(agents), trace.Success, trace.DurationMs, trace.CreatedAt)
	return err
}

func (s *SQLiteStore) ListTraces(ctx context.Context, limit int) ([]models.CommandTrace, error) {
	q := `SELECT id, input, intent_type, agents, success, duration_ms, created_at FROM traces ORDER BY created_at DESC`
	if limit > 0 {
		q += fmt.Sprintf(` LIMIT %d`, limit)
	}
	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.CommandTrace
	for rows.Next() {
		var t models.CommandTrace
		var agents sql.NullString
		if err := rows.Scan(&t.ID, &t.Input, &t.IntentType, &agents, &t.Success, &t.DurationMs, &t.CreatedAt); err != nil {
			return nil, err
		}
		if agents.Valid && agents.String != "" {
			_ = json.Unmarshal([]byte(agents.String), &t.Agents)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) DeleteTracesBefore(ctx context.Context, cutoff time.Time) (int, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM traces WHERE created_at < ?`, cutoff)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}
