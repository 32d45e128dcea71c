package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"tt-go/internal/model"
	"tt-go/internal/tt"
)

// sqlTx implements tt.Tx on a SQL transaction.
type sqlTx struct {
	ctx context.Context
	tx  *sql.Tx
}

func (t *sqlTx) User() (*model.User, error) {
	row := t.tx.QueryRowContext(t.ctx, usersTable.selectSQL()+" ORDER BY id LIMIT 1")
	u, err := usersTable.scan(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("loading user: %w", err)
	}
	return u, nil
}

// PutUser stores the user, replacing any other user in the store.
func (t *sqlTx) PutUser(u *model.User) error {
	if _, err := t.tx.ExecContext(t.ctx, "DELETE FROM users WHERE id <> ?", u.ID); err != nil {
		return fmt.Errorf("replacing user: %w", err)
	}
	return t.users().Put(u)
}

func (t *sqlTx) Preferences() (*model.Preferences, error) {
	p, found, err := t.preferences().Find(model.PreferencesID)
	if err != nil || !found {
		return nil, err
	}
	return p, nil
}

func (t *sqlTx) PutPreferences(p *model.Preferences) error {
	return t.preferences().Put(p)
}

func (t *sqlTx) users() *collection[*model.User] {
	return &collection[*model.User]{ctx: t.ctx, tx: t.tx, table: usersTable}
}

func (t *sqlTx) preferences() *collection[*model.Preferences] {
	return &collection[*model.Preferences]{ctx: t.ctx, tx: t.tx, table: preferencesTable}
}

func (t *sqlTx) Workspaces() tt.Collection[*model.Workspace] {
	return &collection[*model.Workspace]{ctx: t.ctx, tx: t.tx, table: workspacesTable}
}

func (t *sqlTx) Tags() tt.Collection[*model.Tag] {
	return &collection[*model.Tag]{ctx: t.ctx, tx: t.tx, table: tagsTable}
}

func (t *sqlTx) Clients() tt.Collection[*model.Client] {
	return &collection[*model.Client]{ctx: t.ctx, tx: t.tx, table: clientsTable}
}

func (t *sqlTx) Projects() tt.Collection[*model.Project] {
	return &collection[*model.Project]{ctx: t.ctx, tx: t.tx, table: projectsTable}
}

func (t *sqlTx) Tasks() tt.TaskCollection {
	return taskCollection{&collection[*model.Task]{ctx: t.ctx, tx: t.tx, table: tasksTable}}
}

func (t *sqlTx) TimeEntries() tt.TimeEntryCollection {
	return timeEntryCollection{&collection[*model.TimeEntry]{ctx: t.ctx, tx: t.tx, table: timeEntriesTable}}
}

// Exists reports whether an entity is stored, including entities pending
// deletion and inaccessible workspaces.
func (t *sqlTx) Exists(kind model.Kind, id int64) (bool, error) {
	name, ok := tableNames[kind]
	if !ok {
		return false, fmt.Errorf("unknown kind %q", kind)
	}
	var exists bool
	err := t.tx.QueryRowContext(t.ctx, "SELECT EXISTS(SELECT 1 FROM "+name+" WHERE id = ?)", id).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("looking up %s %d: %w", kind, id, err)
	}
	return exists, nil
}

func (t *sqlTx) Checkpoints() (model.Checkpoints, error) {
	rows, err := t.tx.QueryContext(t.ctx, "SELECT kind, since FROM since_parameters")
	if err != nil {
		return nil, fmt.Errorf("loading checkpoints: %w", err)
	}
	defer rows.Close()

	checkpoints := model.Checkpoints{}
	for rows.Next() {
		var (
			kind  string
			since sql.NullTime
		)
		if err := rows.Scan(&kind, &since); err != nil {
			return nil, fmt.Errorf("scanning checkpoint: %w", err)
		}
		checkpoints[model.Kind(kind)] = timePtr(since)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("loading checkpoints: %w", err)
	}
	return checkpoints, nil
}

func (t *sqlTx) SetSince(kind model.Kind, at time.Time) error {
	_, err := t.tx.ExecContext(t.ctx,
		"INSERT OR REPLACE INTO since_parameters (kind, since) VALUES (?, ?)",
		string(kind), at.UTC(),
	)
	if err != nil {
		return fmt.Errorf("storing %s checkpoint: %w", kind, err)
	}
	return nil
}

var _ tt.Tx = (*sqlTx)(nil)
