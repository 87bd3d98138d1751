package sqlite

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"fluxtodo/internal/service"
)

type scanner interface {
	Scan(dest ...any) error
}

func scanList(s scanner) (service.List, error) {
	var l service.List
	var created, updated string
	if err := s.Scan(&l.ID, &l.Title, &l.OwnerID, &created, &updated); err != nil {
		return service.List{}, err
	}
	var err error
	if l.CreatedAt, err = time.Parse(timeLayout, created); err != nil {
		return service.List{}, fmt.Errorf("parse created_at: %w", err)
	}
	if l.UpdatedAt, err = time.Parse(timeLayout, updated); err != nil {
		return service.List{}, fmt.Errorf("parse updated_at: %w", err)
	}
	return l, nil
}

func scanTask(s scanner) (service.Task, error) {
	var t service.Task
	var desc sql.NullString
	var created, updated string
	if err := s.Scan(&t.ID, &t.Title, &desc, &t.Completed, &t.ListID, &created, &updated); err != nil {
		return service.Task{}, err
	}
	if desc.Valid {
		t.Description = &desc.String
	}
	var err error
	if t.CreatedAt, err = time.Parse(timeLayout, created); err != nil {
		return service.Task{}, fmt.Errorf("parse created_at: %w", err)
	}
	if t.UpdatedAt, err = time.Parse(timeLayout, updated); err != nil {
		return service.Task{}, fmt.Errorf("parse updated_at: %w", err)
	}
	return t, nil
}

// orderBy maps a sort field to a whitelisted column. The id tiebreak keeps
// paging deterministic when keys are equal.
func orderBy(by service.SortField, order service.SortOrder, tasks bool) string {
	prefix := ""
	if tasks {
		prefix = "t."
	}
	col := "created_at"
	switch by {
	case service.SortUpdatedAt:
		col = "updated_at"
	case service.SortTitle:
		col = "title"
	case service.SortCompleted:
		if tasks {
			col = "completed"
		}
	}
	dir := "DESC"
	if order == service.SortAsc {
		dir = "ASC"
	}
	return fmt.Sprintf("%s%s %s, %sid %s", prefix, col, dir, prefix, dir)
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func likePattern(s string) string {
	return "%" + likeEscaper.Replace(s) + "%"
}

func nullString(p *string) sql.NullString {
	if p == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *p, Valid: true}
}

func newID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

func internal(op string, err error) error {
	e := service.Internal("")
	e.Details = fmt.Sprintf("%s: %v", op, err)
	return e
}

// affectedOne turns an exec result into NotFound(resource) when no row
// matched.
func affectedOne(res sql.Result, err error, resource string) error {
	if err != nil {
		return internal("exec", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return internal("rows affected", err)
	}
	if n == 0 {
		return service.NotFound(resource)
	}
	return nil
}
