package database

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"tt-go/internal/model"
)

var syncColumns = []string{"sync_status", "last_sync_error", "is_deleted"}

func withSync(columns ...string) []string {
	return append(columns, syncColumns...)
}

// syncFields are the scan targets of the bookkeeping columns.
type syncFields struct {
	status  int64
	lastErr string
	deleted bool
}

func (f *syncFields) targets() []any {
	return []any{&f.status, &f.lastErr, &f.deleted}
}

func (f *syncFields) state() model.SyncState {
	return model.SyncState{
		SyncStatus:           model.SyncStatus(f.status),
		LastSyncErrorMessage: f.lastErr,
		IsDeleted:            f.deleted,
	}
}

func syncValues(s model.SyncState) []any {
	return []any{int64(s.SyncStatus), s.LastSyncErrorMessage, s.IsDeleted}
}

// encodeSnapshot stores a backup snapshot as JSON. No snapshot is NULL.
func encodeSnapshot[T any](snap *T) (sql.NullString, error) {
	if snap == nil {
		return sql.NullString{}, nil
	}
	data, err := json.Marshal(snap)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("encoding backup: %w", err)
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}

func decodeSnapshot[T any](ns sql.NullString) (*T, error) {
	if !ns.Valid {
		return nil, nil
	}
	var snap T
	if err := json.Unmarshal([]byte(ns.String), &snap); err != nil {
		return nil, fmt.Errorf("decoding backup: %w", err)
	}
	return &snap, nil
}

func encodeIDs(ids []int64) (string, error) {
	if ids == nil {
		ids = []int64{}
	}
	data, err := json.Marshal(ids)
	if err != nil {
		return "", fmt.Errorf("encoding ids: %w", err)
	}
	return string(data), nil
}

func decodeIDs(s string) ([]int64, error) {
	ids := []int64{}
	if err := json.Unmarshal([]byte(s), &ids); err != nil {
		return nil, fmt.Errorf("decoding ids: %w", err)
	}
	return ids, nil
}

func nullInt64(p *int64) sql.NullInt64 {
	if p == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *p, Valid: true}
}

func int64Ptr(n sql.NullInt64) *int64 {
	if !n.Valid {
		return nil
	}
	v := n.Int64
	return &v
}

func utc(t time.Time) time.Time {
	return t.UTC()
}

var usersTable = &table[*model.User]{
	name: "users",
	columns: withSync("id", "at", "api_token", "email", "fullname", "image_url", "language", "timezone",
		"default_workspace_id", "beginning_of_week", "backup"),
	id: (*model.User).Identifier,
	values: func(u *model.User) ([]any, error) {
		backup, err := encodeSnapshot(u.Backup)
		if err != nil {
			return nil, err
		}
		args := []any{u.ID, utc(u.At), u.APIToken, u.Email, u.Fullname, u.ImageURL, u.Language, u.Timezone,
			nullInt64(u.DefaultWorkspaceID), int64(u.BeginningOfWeek), backup}
		return append(args, syncValues(u.SyncState)...), nil
	},
	scan: func(s scanner) (*model.User, error) {
		var (
			u           model.User
			workspaceID sql.NullInt64
			weekday     int64
			backup      sql.NullString
			sf          syncFields
		)
		dest := []any{&u.ID, &u.At, &u.APIToken, &u.Email, &u.Fullname, &u.ImageURL, &u.Language, &u.Timezone,
			&workspaceID, &weekday, &backup}
		if err := s.Scan(append(dest, sf.targets()...)...); err != nil {
			return nil, err
		}
		snap, err := decodeSnapshot[model.UserSnapshot](backup)
		if err != nil {
			return nil, err
		}
		u.DefaultWorkspaceID = int64Ptr(workspaceID)
		u.BeginningOfWeek = model.BeginningOfWeek(weekday)
		u.SyncState = sf.state()
		u.Backup = snap
		return &u, nil
	},
}

var preferencesTable = &table[*model.Preferences]{
	name:    "preferences",
	columns: withSync("id", "timeofday_format", "date_format", "duration_format", "collapse_time_entries", "backup"),
	id:      (*model.Preferences).Identifier,
	values: func(p *model.Preferences) ([]any, error) {
		backup, err := encodeSnapshot(p.Backup)
		if err != nil {
			return nil, err
		}
		args := []any{model.PreferencesID, p.TimeOfDayFormat, p.DateFormat, int64(p.DurationFormat), p.CollapseTimeEntries, backup}
		return append(args, syncValues(p.SyncState)...), nil
	},
	scan: func(s scanner) (*model.Preferences, error) {
		var (
			p      model.Preferences
			id     int64
			format int64
			backup sql.NullString
			sf     syncFields
		)
		dest := []any{&id, &p.TimeOfDayFormat, &p.DateFormat, &format, &p.CollapseTimeEntries, &backup}
		if err := s.Scan(append(dest, sf.targets()...)...); err != nil {
			return nil, err
		}
		snap, err := decodeSnapshot[model.PreferencesSnapshot](backup)
		if err != nil {
			return nil, err
		}
		p.DurationFormat = model.DurationFormat(format)
		p.SyncState = sf.state()
		p.Backup = snap
		return &p, nil
	},
}

var workspacesTable = &table[*model.Workspace]{
	name:    "workspaces",
	columns: withSync("id", "at", "server_deleted_at", "name", "admin", "is_inaccessible"),
	id:      (*model.Workspace).Identifier,
	values: func(w *model.Workspace) ([]any, error) {
		args := []any{w.ID, utc(w.At), nullTime(w.ServerDeletedAt), w.Name, w.Admin, w.IsInaccessible}
		return append(args, syncValues(w.SyncState)...), nil
	},
	scan: func(s scanner) (*model.Workspace, error) {
		var (
			w         model.Workspace
			deletedAt sql.NullTime
			sf        syncFields
		)
		dest := []any{&w.ID, &w.At, &deletedAt, &w.Name, &w.Admin, &w.IsInaccessible}
		if err := s.Scan(append(dest, sf.targets()...)...); err != nil {
			return nil, err
		}
		w.ServerDeletedAt = timePtr(deletedAt)
		w.SyncState = sf.state()
		return &w, nil
	},
}

var tagsTable = &table[*model.Tag]{
	name:    "tags",
	columns: withSync("id", "at", "server_deleted_at", "workspace_id", "name", "backup"),
	id:      (*model.Tag).Identifier,
	values: func(t *model.Tag) ([]any, error) {
		backup, err := encodeSnapshot(t.Backup)
		if err != nil {
			return nil, err
		}
		args := []any{t.ID, utc(t.At), nullTime(t.ServerDeletedAt), t.WorkspaceID, t.Name, backup}
		return append(args, syncValues(t.SyncState)...), nil
	},
	scan: func(s scanner) (*model.Tag, error) {
		var (
			t         model.Tag
			deletedAt sql.NullTime
			backup    sql.NullString
			sf        syncFields
		)
		dest := []any{&t.ID, &t.At, &deletedAt, &t.WorkspaceID, &t.Name, &backup}
		if err := s.Scan(append(dest, sf.targets()...)...); err != nil {
			return nil, err
		}
		snap, err := decodeSnapshot[model.TagSnapshot](backup)
		if err != nil {
			return nil, err
		}
		t.ServerDeletedAt = timePtr(deletedAt)
		t.SyncState = sf.state()
		t.Backup = snap
		return &t, nil
	},
}

var clientsTable = &table[*model.Client]{
	name:    "clients",
	columns: withSync("id", "at", "server_deleted_at", "workspace_id", "name", "backup"),
	id:      (*model.Client).Identifier,
	values: func(c *model.Client) ([]any, error) {
		backup, err := encodeSnapshot(c.Backup)
		if err != nil {
			return nil, err
		}
		args := []any{c.ID, utc(c.At), nullTime(c.ServerDeletedAt), c.WorkspaceID, c.Name, backup}
		return append(args, syncValues(c.SyncState)...), nil
	},
	scan: func(s scanner) (*model.Client, error) {
		var (
			c         model.Client
			deletedAt sql.NullTime
			backup    sql.NullString
			sf        syncFields
		)
		dest := []any{&c.ID, &c.At, &deletedAt, &c.WorkspaceID, &c.Name, &backup}
		if err := s.Scan(append(dest, sf.targets()...)...); err != nil {
			return nil, err
		}
		snap, err := decodeSnapshot[model.ClientSnapshot](backup)
		if err != nil {
			return nil, err
		}
		c.ServerDeletedAt = timePtr(deletedAt)
		c.SyncState = sf.state()
		c.Backup = snap
		return &c, nil
	},
}

var projectsTable = &table[*model.Project]{
	name:    "projects",
	columns: withSync("id", "at", "server_deleted_at", "workspace_id", "client_id", "name", "color", "active", "backup"),
	id:      (*model.Project).Identifier,
	values: func(p *model.Project) ([]any, error) {
		backup, err := encodeSnapshot(p.Backup)
		if err != nil {
			return nil, err
		}
		args := []any{p.ID, utc(p.At), nullTime(p.ServerDeletedAt), p.WorkspaceID, nullInt64(p.ClientID),
			p.Name, p.Color, p.Active, backup}
		return append(args, syncValues(p.SyncState)...), nil
	},
	scan: func(s scanner) (*model.Project, error) {
		var (
			p         model.Project
			deletedAt sql.NullTime
			clientID  sql.NullInt64
			backup    sql.NullString
			sf        syncFields
		)
		dest := []any{&p.ID, &p.At, &deletedAt, &p.WorkspaceID, &clientID, &p.Name, &p.Color, &p.Active, &backup}
		if err := s.Scan(append(dest, sf.targets()...)...); err != nil {
			return nil, err
		}
		snap, err := decodeSnapshot[model.ProjectSnapshot](backup)
		if err != nil {
			return nil, err
		}
		p.ServerDeletedAt = timePtr(deletedAt)
		p.ClientID = int64Ptr(clientID)
		p.SyncState = sf.state()
		p.Backup = snap
		return &p, nil
	},
}

var tasksTable = &table[*model.Task]{
	name:    "tasks",
	columns: withSync("id", "at", "server_deleted_at", "workspace_id", "project_id", "name", "active", "backup"),
	id:      (*model.Task).Identifier,
	values: func(t *model.Task) ([]any, error) {
		backup, err := encodeSnapshot(t.Backup)
		if err != nil {
			return nil, err
		}
		args := []any{t.ID, utc(t.At), nullTime(t.ServerDeletedAt), t.WorkspaceID, t.ProjectID, t.Name, t.Active, backup}
		return append(args, syncValues(t.SyncState)...), nil
	},
	scan: func(s scanner) (*model.Task, error) {
		var (
			t         model.Task
			deletedAt sql.NullTime
			backup    sql.NullString
			sf        syncFields
		)
		dest := []any{&t.ID, &t.At, &deletedAt, &t.WorkspaceID, &t.ProjectID, &t.Name, &t.Active, &backup}
		if err := s.Scan(append(dest, sf.targets()...)...); err != nil {
			return nil, err
		}
		snap, err := decodeSnapshot[model.TaskSnapshot](backup)
		if err != nil {
			return nil, err
		}
		t.ServerDeletedAt = timePtr(deletedAt)
		t.SyncState = sf.state()
		t.Backup = snap
		return &t, nil
	},
}

var timeEntriesTable = &table[*model.TimeEntry]{
	name: "time_entries",
	columns: withSync("id", "at", "server_deleted_at", "workspace_id", "user_id", "description", "project_id",
		"task_id", "billable", "started_at", "duration_seconds", "tag_ids", "backup"),
	id: (*model.TimeEntry).Identifier,
	values: func(te *model.TimeEntry) ([]any, error) {
		backup, err := encodeSnapshot(te.Backup)
		if err != nil {
			return nil, err
		}
		tagIDs, err := encodeIDs(te.TagIDs)
		if err != nil {
			return nil, err
		}
		args := []any{te.ID, utc(te.At), nullTime(te.ServerDeletedAt), te.WorkspaceID, te.UserID, te.Description,
			nullInt64(te.ProjectID), nullInt64(te.TaskID), te.Billable, utc(te.Start), nullInt64(te.Duration),
			tagIDs, backup}
		return append(args, syncValues(te.SyncState)...), nil
	},
	scan: func(s scanner) (*model.TimeEntry, error) {
		var (
			te        model.TimeEntry
			deletedAt sql.NullTime
			projectID sql.NullInt64
			taskID    sql.NullInt64
			duration  sql.NullInt64
			tagIDs    string
			backup    sql.NullString
			sf        syncFields
		)
		dest := []any{&te.ID, &te.At, &deletedAt, &te.WorkspaceID, &te.UserID, &te.Description, &projectID,
			&taskID, &te.Billable, &te.Start, &duration, &tagIDs, &backup}
		if err := s.Scan(append(dest, sf.targets()...)...); err != nil {
			return nil, err
		}
		ids, err := decodeIDs(tagIDs)
		if err != nil {
			return nil, err
		}
		snap, err := decodeSnapshot[model.TimeEntrySnapshot](backup)
		if err != nil {
			return nil, err
		}
		te.ServerDeletedAt = timePtr(deletedAt)
		te.ProjectID = int64Ptr(projectID)
		te.TaskID = int64Ptr(taskID)
		te.Duration = int64Ptr(duration)
		te.TagIDs = ids
		te.SyncState = sf.state()
		te.Backup = snap
		return &te, nil
	},
}

// tableNames maps each collection to its table for reference lookups.
var tableNames = map[model.Kind]string{
	model.KindUser:        usersTable.name,
	model.KindPreferences: preferencesTable.name,
	model.KindWorkspace:   workspacesTable.name,
	model.KindTag:         tagsTable.name,
	model.KindClient:      clientsTable.name,
	model.KindProject:     projectsTable.name,
	model.KindTask:        tasksTable.name,
	model.KindTimeEntry:   timeEntriesTable.name,
}
