package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"

	"tt-go/internal/model"
	"tt-go/internal/tt"
)

type scanner interface {
	Scan(dest ...any) error
}

// table maps one entity type to its table. columns[0] is the id column.
type table[E any] struct {
	name    string
	columns []string
	id      func(E) int64
	values  func(E) ([]any, error)
	scan    func(scanner) (E, error)
}

func (t *table[E]) selectSQL() string {
	return "SELECT " + strings.Join(t.columns, ", ") + " FROM " + t.name
}

func (t *table[E]) upsertSQL() string {
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(t.columns)), ", ")
	return "INSERT OR REPLACE INTO " + t.name + " (" + strings.Join(t.columns, ", ") + ") VALUES (" + placeholders + ")"
}

// collection implements tt.Collection for one table inside a transaction.
type collection[E any] struct {
	ctx   context.Context
	tx    *sql.Tx
	table *table[E]
}

func (c *collection[E]) Find(id int64) (E, bool, error) {
	var zero E
	row := c.tx.QueryRowContext(c.ctx, c.table.selectSQL()+" WHERE id = ?", id)
	e, err := c.table.scan(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return zero, false, nil
		}
		return zero, false, fmt.Errorf("finding %s %d: %w", c.table.name, id, err)
	}
	return e, true, nil
}

func (c *collection[E]) Put(e E) error {
	args, err := c.table.values(e)
	if err != nil {
		return fmt.Errorf("encoding %s %d: %w", c.table.name, c.table.id(e), err)
	}
	if _, err := c.tx.ExecContext(c.ctx, c.table.upsertSQL(), args...); err != nil {
		return fmt.Errorf("storing %s %d: %w", c.table.name, c.table.id(e), err)
	}
	return nil
}

func (c *collection[E]) Delete(id int64) error {
	if _, err := c.tx.ExecContext(c.ctx, "DELETE FROM "+c.table.name+" WHERE id = ?", id); err != nil {
		return fmt.Errorf("deleting %s %d: %w", c.table.name, id, err)
	}
	return nil
}

func (c *collection[E]) All() ([]E, error) {
	return c.where("1 = 1")
}

func (c *collection[E]) Pending() ([]E, error) {
	return c.where("sync_status = ?", int64(model.SyncNeeded))
}

func (c *collection[E]) NextTemporaryID() (int64, error) {
	var lowest int64
	err := c.tx.QueryRowContext(c.ctx, "SELECT COALESCE(MIN(id), 0) FROM "+c.table.name+" WHERE id < 0").Scan(&lowest)
	if err != nil {
		return 0, fmt.Errorf("finding lowest %s id: %w", c.table.name, err)
	}
	return lowest - 1, nil
}

func (c *collection[E]) where(clause string, args ...any) ([]E, error) {
	rows, err := c.tx.QueryContext(c.ctx, c.table.selectSQL()+" WHERE "+clause+" ORDER BY id", args...)
	if err != nil {
		return nil, fmt.Errorf("querying %s: %w", c.table.name, err)
	}
	defer rows.Close()

	var result []E
	for rows.Next() {
		e, err := c.table.scan(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning %s: %w", c.table.name, err)
		}
		result = append(result, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("querying %s: %w", c.table.name, err)
	}
	return result, nil
}

type taskCollection struct {
	*collection[*model.Task]
}

func (c taskCollection) ByProject(projectID int64) ([]*model.Task, error) {
	return c.where("project_id = ?", projectID)
}

type timeEntryCollection struct {
	*collection[*model.TimeEntry]
}

func (c timeEntryCollection) Running() ([]*model.TimeEntry, error) {
	running, err := c.where("duration_seconds IS NULL")
	if err != nil {
		return nil, err
	}
	sort.SliceStable(running, func(i, j int) bool {
		return running[i].Start.Before(running[j].Start)
	})
	return running, nil
}

var (
	_ tt.Collection[*model.Tag] = (*collection[*model.Tag])(nil)
	_ tt.TaskCollection         = taskCollection{}
	_ tt.TimeEntryCollection    = timeEntryCollection{}
)
