// Package sqlite implements service.Service on an embedded SQLite database.
// Every query is scoped to the user reported by the configured identity.
package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"fluxtodo/internal/auth"
	"fluxtodo/internal/service"
)

//go:embed schema.sql
var schema string

// DefaultListLimit is the number of lists a user may own.
const DefaultListLimit = 10

// timeLayout is fixed width so text order matches time order.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// DB implements service.Service.
type DB struct {
	db        *sql.DB
	identity  auth.Identity
	listLimit int
	now       func() time.Time
}

// Ensure DB implements service.Service at compile time.
var _ service.Service = (*DB)(nil)

// Option configures a DB.
type Option func(*DB)

// WithListLimit overrides DefaultListLimit.
func WithListLimit(n int) Option {
	return func(d *DB) {
		if n > 0 {
			d.listLimit = n
		}
	}
}

// WithClock overrides time.Now for record timestamps.
func WithClock(now func() time.Time) Option {
	return func(d *DB) { d.now = now }
}

// Open opens (creating if needed) the database at path and initializes the
// schema.
func Open(path string, identity auth.Identity, opts ...Option) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create database dir: %w", err)
	}
	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	d := &DB{db: db, identity: identity, listLimit: DefaultListLimit, now: time.Now}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// Close closes the database.
func (d *DB) Close() error {
	return d.db.Close()
}

func (d *DB) user(ctx context.Context) (string, error) {
	id, ok := d.identity.CurrentUser(ctx)
	if !ok {
		return "", service.Unauthorized()
	}
	return id, nil
}

func (d *DB) stamp() string {
	return d.now().UTC().Format(timeLayout)
}

// ListLists implements service.Service.
func (d *DB) ListLists(ctx context.Context, q service.ListQuery) (service.ListPage, error) {
	owner, err := d.user(ctx)
	if err != nil {
		return service.ListPage{}, err
	}
	q = q.Normalize()

	where := "owner_id = ?"
	args := []any{owner}
	if s := strings.TrimSpace(q.Search); s != "" {
		where += " AND title LIKE ? ESCAPE '\\'"
		args = append(args, likePattern(s))
	}

	var total int
	if err := d.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM lists WHERE "+where, args...).Scan(&total); err != nil {
		return service.ListPage{}, internal("count lists", err)
	}

	query := fmt.Sprintf(
		"SELECT id, title, owner_id, created_at, updated_at FROM lists WHERE %s ORDER BY %s LIMIT ? OFFSET ?",
		where, orderBy(q.SortBy, q.SortOrder, false))
	rows, err := d.db.QueryContext(ctx, query, append(args, q.Limit, (q.Page-1)*q.Limit)...)
	if err != nil {
		return service.ListPage{}, internal("query lists", err)
	}
	defer rows.Close()

	var lists []service.List
	for rows.Next() {
		l, err := scanList(rows)
		if err != nil {
			return service.ListPage{}, internal("scan list", err)
		}
		lists = append(lists, l)
	}
	if err := rows.Err(); err != nil {
		return service.ListPage{}, internal("query lists", err)
	}
	return service.ListPage{Items: lists, Meta: service.Meta(q.Page, q.Limit, total)}, nil
}

// ListListsWithTasks implements service.Service.
func (d *DB) ListListsWithTasks(ctx context.Context) ([]service.ListWithTasks, error) {
	owner, err := d.user(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := d.db.QueryContext(ctx,
		"SELECT id, title, owner_id, created_at, updated_at FROM lists WHERE owner_id = ? ORDER BY created_at DESC", owner)
	if err != nil {
		return nil, internal("query lists", err)
	}
	var out []service.ListWithTasks
	index := make(map[string]int)
	for rows.Next() {
		l, err := scanList(rows)
		if err != nil {
			rows.Close()
			return nil, internal("scan list", err)
		}
		index[l.ID] = len(out)
		out = append(out, service.ListWithTasks{List: l})
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, internal("query lists", err)
	}

	tasks, err := d.queryTasks(ctx,
		"SELECT t.id, t.title, t.description, t.completed, t.list_id, t.created_at, t.updated_at FROM tasks t JOIN lists l ON l.id = t.list_id WHERE l.owner_id = ? ORDER BY t.created_at DESC",
		owner)
	if err != nil {
		return nil, err
	}
	for _, t := range tasks {
		if i, ok := index[t.ListID]; ok {
			out[i].Tasks = append(out[i].Tasks, t)
		}
	}
	return out, nil
}

// CreateList implements service.Service.
func (d *DB) CreateList(ctx context.Context, req service.CreateListRequest) (service.List, error) {
	owner, err := d.user(ctx)
	if err != nil {
		return service.List{}, err
	}
	title := strings.TrimSpace(req.Title)
	if err := service.ValidateListTitle(title); err != nil {
		return service.List{}, err
	}

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return service.List{}, internal("begin", err)
	}
	defer func() { _ = tx.Rollback() }()

	var count int
	if err := tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM lists WHERE owner_id = ?", owner).Scan(&count); err != nil {
		return service.List{}, internal("count lists", err)
	}
	if count >= d.listLimit {
		return service.List{}, service.Validation(fmt.Sprintf(
			"You have reached the maximum limit of %d lists. Please delete some lists before creating new ones.", d.listLimit), "")
	}

	id, err := newID()
	if err != nil {
		return service.List{}, internal("generate id", err)
	}
	now := d.stamp()
	if _, err := tx.ExecContext(ctx,
		"INSERT INTO lists (id, title, owner_id, created_at, updated_at) VALUES (?, ?, ?, ?, ?)",
		id, title, owner, now, now); err != nil {
		return service.List{}, internal("insert list", err)
	}
	if err := tx.Commit(); err != nil {
		return service.List{}, internal("commit", err)
	}
	return d.getList(ctx, owner, id)
}

// UpdateList implements service.Service.
func (d *DB) UpdateList(ctx context.Context, id string, req service.UpdateListRequest) (service.List, error) {
	owner, err := d.user(ctx)
	if err != nil {
		return service.List{}, err
	}
	title := strings.TrimSpace(req.Title)
	if err := service.ValidateListTitle(title); err != nil {
		return service.List{}, err
	}
	res, err := d.db.ExecContext(ctx,
		"UPDATE lists SET title = ?, updated_at = ? WHERE id = ? AND owner_id = ?",
		title, d.stamp(), id, owner)
	if err := affectedOne(res, err, "List"); err != nil {
		return service.List{}, err
	}
	return d.getList(ctx, owner, id)
}

// DeleteList implements service.Service. Tasks are removed by the foreign
// key cascade.
func (d *DB) DeleteList(ctx context.Context, id string) error {
	owner, err := d.user(ctx)
	if err != nil {
		return err
	}
	res, err := d.db.ExecContext(ctx, "DELETE FROM lists WHERE id = ? AND owner_id = ?", id, owner)
	return affectedOne(res, err, "List")
}

// ListTasks implements service.Service.
func (d *DB) ListTasks(ctx context.Context, q service.TaskQuery) (service.TaskPage, error) {
	owner, err := d.user(ctx)
	if err != nil {
		return service.TaskPage{}, err
	}
	q = q.Normalize()

	where := "l.owner_id = ?"
	args := []any{owner}
	if q.ListID != "" {
		where += " AND t.list_id = ?"
		args = append(args, q.ListID)
	}
	if q.Completed != nil {
		where += " AND t.completed = ?"
		args = append(args, *q.Completed)
	}
	if s := strings.TrimSpace(q.Search); s != "" {
		where += " AND (t.title LIKE ? ESCAPE '\\' OR t.description LIKE ? ESCAPE '\\')"
		p := likePattern(s)
		args = append(args, p, p)
	}
	from := "FROM tasks t JOIN lists l ON l.id = t.list_id WHERE " + where

	var total int
	if err := d.db.QueryRowContext(ctx, "SELECT COUNT(*) "+from, args...).Scan(&total); err != nil {
		return service.TaskPage{}, internal("count tasks", err)
	}

	query := "SELECT t.id, t.title, t.description, t.completed, t.list_id, t.created_at, t.updated_at " +
		from + " ORDER BY " + orderBy(q.SortBy, q.SortOrder, true) + " LIMIT ? OFFSET ?"
	tasks, err := d.queryTasks(ctx, query, append(args, q.Limit, (q.Page-1)*q.Limit)...)
	if err != nil {
		return service.TaskPage{}, err
	}
	return service.TaskPage{Items: tasks, Meta: service.Meta(q.Page, q.Limit, total)}, nil
}

// CreateTask implements service.Service.
func (d *DB) CreateTask(ctx context.Context, req service.CreateTaskRequest) (service.Task, error) {
	owner, err := d.user(ctx)
	if err != nil {
		return service.Task{}, err
	}
	req.Title = strings.TrimSpace(req.Title)
	if err := service.ValidateCreateTask(req); err != nil {
		return service.Task{}, err
	}
	if err := d.ownsList(ctx, owner, req.ListID); err != nil {
		return service.Task{}, err
	}

	id, err := newID()
	if err != nil {
		return service.Task{}, internal("generate id", err)
	}
	now := d.stamp()
	if _, err := d.db.ExecContext(ctx,
		"INSERT INTO tasks (id, title, description, completed, list_id, created_at, updated_at) VALUES (?, ?, ?, 0, ?, ?, ?)",
		id, req.Title, nullString(req.Description), req.ListID, now, now); err != nil {
		return service.Task{}, internal("insert task", err)
	}
	return d.getTask(ctx, owner, id)
}

// UpdateTask implements service.Service.
func (d *DB) UpdateTask(ctx context.Context, id string, patch service.TaskPatch) (service.Task, error) {
	owner, err := d.user(ctx)
	if err != nil {
		return service.Task{}, err
	}
	if patch.Title != nil {
		title := strings.TrimSpace(*patch.Title)
		patch.Title = &title
	}
	if err := service.ValidateTaskPatch(patch); err != nil {
		return service.Task{}, err
	}
	current, err := d.getTask(ctx, owner, id)
	if err != nil {
		return service.Task{}, err
	}
	if patch.ListID != nil && *patch.ListID != current.ListID {
		if err := d.ownsList(ctx, owner, *patch.ListID); err != nil {
			return service.Task{}, err
		}
	}

	next := patch.Apply(current)
	res, err := d.db.ExecContext(ctx,
		"UPDATE tasks SET title = ?, description = ?, completed = ?, list_id = ?, updated_at = ? WHERE id = ?",
		next.Title, nullString(next.Description), next.Completed, next.ListID, d.stamp(), id)
	if err := affectedOne(res, err, "Task"); err != nil {
		return service.Task{}, err
	}
	return d.getTask(ctx, owner, id)
}

// DeleteTask implements service.Service.
func (d *DB) DeleteTask(ctx context.Context, id string) error {
	owner, err := d.user(ctx)
	if err != nil {
		return err
	}
	res, err := d.db.ExecContext(ctx,
		"DELETE FROM tasks WHERE id = ? AND list_id IN (SELECT id FROM lists WHERE owner_id = ?)", id, owner)
	return affectedOne(res, err, "Task")
}

func (d *DB) getList(ctx context.Context, owner, id string) (service.List, error) {
	row := d.db.QueryRowContext(ctx,
		"SELECT id, title, owner_id, created_at, updated_at FROM lists WHERE id = ? AND owner_id = ?", id, owner)
	l, err := scanList(row)
	if errors.Is(err, sql.ErrNoRows) {
		return service.List{}, service.NotFound("List")
	}
	if err != nil {
		return service.List{}, internal("get list", err)
	}
	return l, nil
}

func (d *DB) getTask(ctx context.Context, owner, id string) (service.Task, error) {
	tasks, err := d.queryTasks(ctx,
		"SELECT t.id, t.title, t.description, t.completed, t.list_id, t.created_at, t.updated_at FROM tasks t JOIN lists l ON l.id = t.list_id WHERE t.id = ? AND l.owner_id = ?",
		id, owner)
	if err != nil {
		return service.Task{}, err
	}
	if len(tasks) == 0 {
		return service.Task{}, service.NotFound("Task")
	}
	return tasks[0], nil
}

func (d *DB) ownsList(ctx context.Context, owner, id string) error {
	var n int
	if err := d.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM lists WHERE id = ? AND owner_id = ?", id, owner).Scan(&n); err != nil {
		return internal("check list", err)
	}
	if n == 0 {
		return service.NotFound("List")
	}
	return nil
}

func (d *DB) queryTasks(ctx context.Context, query string, args ...any) ([]service.Task, error) {
	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, internal("query tasks", err)
	}
	defer rows.Close()

	var out []service.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, internal("scan task", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, internal("query tasks", err)
	}
	return out, nil
}
