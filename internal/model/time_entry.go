package model

import (
	"fmt"
	"time"

	"tt-go/internal/merge"
)

// TimeEntry is a tracked span of time. A nil Duration means the entry is
// running; at most one entry in the store may be running.
type TimeEntry struct {
	ID              int64      `json:"id"`
	At              time.Time  `json:"at"`
	ServerDeletedAt *time.Time `json:"server_deleted_at"`
	WorkspaceID     int64      `json:"workspace_id"`
	UserID          int64      `json:"user_id"`

	Description string    `json:"description"`
	ProjectID   *int64    `json:"project_id"`
	TaskID      *int64    `json:"task_id"`
	Billable    bool      `json:"billable"`
	Start       time.Time `json:"start"`
	// Duration in whole seconds.
	Duration *int64  `json:"duration"`
	TagIDs   []int64 `json:"tag_ids"`

	SyncState
	Backup *TimeEntrySnapshot `json:"-"`
}

type TimeEntrySnapshot struct {
	Description string    `json:"description"`
	ProjectID   *int64    `json:"project_id"`
	TaskID      *int64    `json:"task_id"`
	Billable    bool      `json:"billable"`
	Start       time.Time `json:"start"`
	Duration    *int64    `json:"duration"`
	TagIDs      []int64   `json:"tag_ids"`
}

func (te *TimeEntry) Identifier() int64     { return te.ID }
func (te *TimeEntry) ServerAt() time.Time   { return te.At }
func (te *TimeEntry) DeletedAt() *time.Time { return te.ServerDeletedAt }
func (te *TimeEntry) ContainsBackup() bool  { return te.Backup != nil }

// IsRunning reports whether the entry has no end yet.
func (te *TimeEntry) IsRunning() bool {
	return te.Duration == nil
}

func (te *TimeEntry) BeginEdit() {
	if te.Backup == nil {
		te.Backup = &TimeEntrySnapshot{
			Description: te.Description,
			ProjectID:   copyInt64Ptr(te.ProjectID),
			TaskID:      copyInt64Ptr(te.TaskID),
			Billable:    te.Billable,
			Start:       te.Start,
			Duration:    copyInt64Ptr(te.Duration),
			TagIDs:      append([]int64(nil), te.TagIDs...),
		}
	}
	te.SyncStatus = SyncNeeded
}

// Stop ends a running entry at the given time. The duration never goes
// negative, even if the clock is behind the start.
func (te *TimeEntry) Stop(at time.Time) error {
	if !te.IsRunning() {
		return fmt.Errorf("time entry %d is not running", te.ID)
	}
	seconds := int64(at.Sub(te.Start) / time.Second)
	if seconds < 0 {
		seconds = 0
	}
	te.BeginEdit()
	te.Duration = int64Ptr(seconds)
	return nil
}

func (te *TimeEntry) Merge(server *TimeEntry) bool {
	te.At = server.At
	te.ServerDeletedAt = server.ServerDeletedAt
	te.WorkspaceID = server.WorkspaceID
	te.UserID = server.UserID

	var b TimeEntrySnapshot
	if te.Backup != nil {
		b = *te.Backup
	}
	tr := merge.NewTracker(te.Backup != nil)

	te.Description = merge.Field(tr, b.Description, te.Description, server.Description)
	te.ProjectID = merge.Optional(tr, b.ProjectID, te.ProjectID, server.ProjectID)
	te.Billable = merge.Field(tr, b.Billable, te.Billable, server.Billable)
	te.Start = merge.FieldFunc(tr, b.Start, te.Start, server.Start, merge.TimeEqual)
	te.Duration = merge.Optional(tr, b.Duration, te.Duration, server.Duration)
	te.TaskID = merge.Optional(tr, b.TaskID, te.TaskID, server.TaskID)
	te.TagIDs = merge.Set(tr, b.TagIDs, te.TagIDs, server.TagIDs)

	te.Backup = nil
	return tr.Differs()
}

// ResolveRefs drops project, task and tag references the store cannot
// resolve.
func (te *TimeEntry) ResolveRefs(refs Refs) error {
	projectID, err := resolveOptional(refs, KindProject, te.ProjectID)
	if err != nil {
		return err
	}
	taskID, err := resolveOptional(refs, KindTask, te.TaskID)
	if err != nil {
		return err
	}

	tagIDs := make([]int64, 0, len(te.TagIDs))
	seen := make(map[int64]struct{}, len(te.TagIDs))
	for _, id := range te.TagIDs {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		ok, err := refs.Exists(KindTag, id)
		if err != nil {
			return fmt.Errorf("resolving %s %d: %w", KindTag, id, err)
		}
		if ok {
			tagIDs = append(tagIDs, id)
		}
	}

	te.ProjectID = projectID
	te.TaskID = taskID
	te.TagIDs = tagIDs
	return nil
}
