package model

import (
	"time"

	"tt-go/internal/merge"
)

// BeginningOfWeek is the first day of the week in reports and the calendar.
type BeginningOfWeek int

const (
	Sunday BeginningOfWeek = iota
	Monday
	Tuesday
	Wednesday
	Thursday
	Friday
	Saturday
)

// User is the signed-in user. There is exactly one per local store.
type User struct {
	ID       int64     `json:"id"`
	At       time.Time `json:"at"`
	APIToken string    `json:"api_token"`
	Email    string    `json:"email"`
	Fullname string    `json:"fullname"`
	ImageURL string    `json:"image_url"`
	Language string    `json:"language"`
	Timezone string    `json:"timezone"`

	DefaultWorkspaceID *int64          `json:"default_workspace_id"`
	BeginningOfWeek    BeginningOfWeek `json:"beginning_of_week"`

	SyncState
	Backup *UserSnapshot `json:"-"`
}

// UserSnapshot holds the mergeable user fields last known to be in sync.
type UserSnapshot struct {
	DefaultWorkspaceID *int64          `json:"default_workspace_id"`
	BeginningOfWeek    BeginningOfWeek `json:"beginning_of_week"`
}

func (u *User) Identifier() int64     { return u.ID }
func (u *User) ServerAt() time.Time   { return u.At }
func (u *User) DeletedAt() *time.Time { return nil }

// ContainsBackup reports whether the backup snapshot is valid.
func (u *User) ContainsBackup() bool { return u.Backup != nil }

// BeginEdit prepares the user for a local change.
func (u *User) BeginEdit() {
	if u.Backup == nil {
		u.Backup = &UserSnapshot{
			DefaultWorkspaceID: copyInt64Ptr(u.DefaultWorkspaceID),
			BeginningOfWeek:    u.BeginningOfWeek,
		}
	}
	u.SyncStatus = SyncNeeded
}

func (u *User) Merge(server *User) bool {
	u.At = server.At
	u.APIToken = server.APIToken
	u.Email = server.Email
	u.Fullname = server.Fullname
	u.ImageURL = server.ImageURL
	u.Language = server.Language
	u.Timezone = server.Timezone

	var b UserSnapshot
	if u.Backup != nil {
		b = *u.Backup
	}
	tr := merge.NewTracker(u.Backup != nil)

	u.DefaultWorkspaceID = merge.Optional(tr, b.DefaultWorkspaceID, u.DefaultWorkspaceID, server.DefaultWorkspaceID)
	u.BeginningOfWeek = merge.Field(tr, b.BeginningOfWeek, u.BeginningOfWeek, server.BeginningOfWeek)

	u.Backup = nil
	return tr.Differs()
}

// ResolveRefs keeps the default workspace id even when the workspace has not
// been pulled yet; it is only a preference.
func (u *User) ResolveRefs(Refs) error { return nil }
