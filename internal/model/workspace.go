package model

import (
	"time"

	"tt-go/internal/merge"
)

// Workspace groups projects, clients and tags. Workspaces are never deleted
// locally; a workspace the server tombstones becomes inaccessible instead.
type Workspace struct {
	ID              int64      `json:"id"`
	At              time.Time  `json:"at"`
	ServerDeletedAt *time.Time `json:"server_deleted_at"`
	Name            string     `json:"name"`
	Admin           bool       `json:"admin"`
	IsInaccessible  bool       `json:"-"`

	SyncState
}

func (w *Workspace) Identifier() int64     { return w.ID }
func (w *Workspace) ServerAt() time.Time   { return w.At }
func (w *Workspace) ContainsBackup() bool  { return false }
func (w *Workspace) DeletedAt() *time.Time { return w.ServerDeletedAt }

// Merge adopts the server copy; a workspace has no locally editable fields.
func (w *Workspace) Merge(server *Workspace) bool {
	w.At = server.At
	w.ServerDeletedAt = server.ServerDeletedAt
	w.Name = server.Name
	w.Admin = server.Admin
	w.IsInaccessible = false
	return false
}

func (w *Workspace) ResolveRefs(Refs) error { return nil }

// Tag labels time entries.
type Tag struct {
	ID              int64      `json:"id"`
	At              time.Time  `json:"at"`
	ServerDeletedAt *time.Time `json:"server_deleted_at"`
	WorkspaceID     int64      `json:"workspace_id"`
	Name            string     `json:"name"`

	SyncState
	Backup *TagSnapshot `json:"-"`
}

type TagSnapshot struct {
	Name string `json:"name"`
}

func (t *Tag) Identifier() int64     { return t.ID }
func (t *Tag) ServerAt() time.Time   { return t.At }
func (t *Tag) DeletedAt() *time.Time { return t.ServerDeletedAt }
func (t *Tag) ContainsBackup() bool  { return t.Backup != nil }

func (t *Tag) BeginEdit() {
	if t.Backup == nil {
		t.Backup = &TagSnapshot{Name: t.Name}
	}
	t.SyncStatus = SyncNeeded
}

func (t *Tag) Merge(server *Tag) bool {
	t.At = server.At
	t.ServerDeletedAt = server.ServerDeletedAt
	t.WorkspaceID = server.WorkspaceID

	var b TagSnapshot
	if t.Backup != nil {
		b = *t.Backup
	}
	tr := merge.NewTracker(t.Backup != nil)
	t.Name = merge.Field(tr, b.Name, t.Name, server.Name)

	t.Backup = nil
	return tr.Differs()
}

func (t *Tag) ResolveRefs(Refs) error { return nil }

// Client is the customer a project is billed to.
type Client struct {
	ID              int64      `json:"id"`
	At              time.Time  `json:"at"`
	ServerDeletedAt *time.Time `json:"server_deleted_at"`
	WorkspaceID     int64      `json:"workspace_id"`
	Name            string     `json:"name"`

	SyncState
	Backup *ClientSnapshot `json:"-"`
}

type ClientSnapshot struct {
	Name string `json:"name"`
}

func (c *Client) Identifier() int64     { return c.ID }
func (c *Client) ServerAt() time.Time   { return c.At }
func (c *Client) DeletedAt() *time.Time { return c.ServerDeletedAt }
func (c *Client) ContainsBackup() bool  { return c.Backup != nil }

func (c *Client) BeginEdit() {
	if c.Backup == nil {
		c.Backup = &ClientSnapshot{Name: c.Name}
	}
	c.SyncStatus = SyncNeeded
}

func (c *Client) Merge(server *Client) bool {
	c.At = server.At
	c.ServerDeletedAt = server.ServerDeletedAt
	c.WorkspaceID = server.WorkspaceID

	var b ClientSnapshot
	if c.Backup != nil {
		b = *c.Backup
	}
	tr := merge.NewTracker(c.Backup != nil)
	c.Name = merge.Field(tr, b.Name, c.Name, server.Name)

	c.Backup = nil
	return tr.Differs()
}

func (c *Client) ResolveRefs(Refs) error { return nil }
