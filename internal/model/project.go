package model

import (
	"time"

	"tt-go/internal/merge"
)

// Project groups time entries and owns tasks.
type Project struct {
	ID              int64      `json:"id"`
	At              time.Time  `json:"at"`
	ServerDeletedAt *time.Time `json:"server_deleted_at"`
	WorkspaceID     int64      `json:"workspace_id"`
	ClientID        *int64     `json:"client_id"`
	Name            string     `json:"name"`
	Color           string     `json:"color"`
	Active          bool       `json:"active"`

	SyncState
	Backup *ProjectSnapshot `json:"-"`
}

type ProjectSnapshot struct {
	ClientID *int64 `json:"client_id"`
	Name     string `json:"name"`
	Color    string `json:"color"`
	Active   bool   `json:"active"`
}

func (p *Project) Identifier() int64     { return p.ID }
func (p *Project) ServerAt() time.Time   { return p.At }
func (p *Project) DeletedAt() *time.Time { return p.ServerDeletedAt }
func (p *Project) ContainsBackup() bool  { return p.Backup != nil }

func (p *Project) BeginEdit() {
	if p.Backup == nil {
		p.Backup = &ProjectSnapshot{
			ClientID: copyInt64Ptr(p.ClientID),
			Name:     p.Name,
			Color:    p.Color,
			Active:   p.Active,
		}
	}
	p.SyncStatus = SyncNeeded
}

func (p *Project) Merge(server *Project) bool {
	p.At = server.At
	p.ServerDeletedAt = server.ServerDeletedAt
	p.WorkspaceID = server.WorkspaceID

	var b ProjectSnapshot
	if p.Backup != nil {
		b = *p.Backup
	}
	tr := merge.NewTracker(p.Backup != nil)

	p.ClientID = merge.Optional(tr, b.ClientID, p.ClientID, server.ClientID)
	p.Name = merge.Field(tr, b.Name, p.Name, server.Name)
	p.Color = merge.Field(tr, b.Color, p.Color, server.Color)
	p.Active = merge.Field(tr, b.Active, p.Active, server.Active)

	p.Backup = nil
	return tr.Differs()
}

func (p *Project) ResolveRefs(refs Refs) error {
	clientID, err := resolveOptional(refs, KindClient, p.ClientID)
	if err != nil {
		return err
	}
	p.ClientID = clientID
	return nil
}

// Task is a subdivision of a project. Tasks are removed together with their
// project.
type Task struct {
	ID              int64      `json:"id"`
	At              time.Time  `json:"at"`
	ServerDeletedAt *time.Time `json:"server_deleted_at"`
	WorkspaceID     int64      `json:"workspace_id"`
	ProjectID       int64      `json:"project_id"`
	Name            string     `json:"name"`
	Active          bool       `json:"active"`

	SyncState
	Backup *TaskSnapshot `json:"-"`
}

type TaskSnapshot struct {
	Name   string `json:"name"`
	Active bool   `json:"active"`
}

func (t *Task) Identifier() int64     { return t.ID }
func (t *Task) ServerAt() time.Time   { return t.At }
func (t *Task) DeletedAt() *time.Time { return t.ServerDeletedAt }
func (t *Task) ContainsBackup() bool  { return t.Backup != nil }

func (t *Task) BeginEdit() {
	if t.Backup == nil {
		t.Backup = &TaskSnapshot{Name: t.Name, Active: t.Active}
	}
	t.SyncStatus = SyncNeeded
}

func (t *Task) Merge(server *Task) bool {
	t.At = server.At
	t.ServerDeletedAt = server.ServerDeletedAt
	t.WorkspaceID = server.WorkspaceID
	t.ProjectID = server.ProjectID

	var b TaskSnapshot
	if t.Backup != nil {
		b = *t.Backup
	}
	tr := merge.NewTracker(t.Backup != nil)

	t.Name = merge.Field(tr, b.Name, t.Name, server.Name)
	t.Active = merge.Field(tr, b.Active, t.Active, server.Active)

	t.Backup = nil
	return tr.Differs()
}

func (t *Task) ResolveRefs(Refs) error { return nil }
