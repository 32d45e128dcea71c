package testutil

import (
	"time"

	"tt-go/internal/model"
)

// ServerTime is the "at" stamp fixtures carry unless a test sets another.
var ServerTime = time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC)

func Int64(v int64) *int64 { return &v }

func Time(t time.Time) *time.Time { return &t }

func User(id int64) *model.User {
	return &model.User{
		ID:                 id,
		At:                 ServerTime,
		Email:              "user@example.com",
		Fullname:           "Test User",
		Timezone:           "UTC",
		DefaultWorkspaceID: Int64(1),
		BeginningOfWeek:    model.Monday,
	}
}

func Preferences() *model.Preferences {
	return &model.Preferences{
		TimeOfDayFormat: "H:mm",
		DateFormat:      "YYYY-MM-DD",
		DurationFormat:  model.DurationImproved,
	}
}

func Workspace(id int64) *model.Workspace {
	return &model.Workspace{ID: id, At: ServerTime, Name: "Workspace", Admin: true}
}

func Tag(id, workspaceID int64, name string) *model.Tag {
	return &model.Tag{ID: id, At: ServerTime, WorkspaceID: workspaceID, Name: name}
}

func Client(id, workspaceID int64, name string) *model.Client {
	return &model.Client{ID: id, At: ServerTime, WorkspaceID: workspaceID, Name: name}
}

func Project(id, workspaceID int64, name string) *model.Project {
	return &model.Project{ID: id, At: ServerTime, WorkspaceID: workspaceID, Name: name, Color: "#06aaf5", Active: true}
}

func Task(id, projectID int64, name string) *model.Task {
	return &model.Task{ID: id, At: ServerTime, WorkspaceID: 1, ProjectID: projectID, Name: name, Active: true}
}

// RunningEntry returns a time entry started at start with no duration.
func RunningEntry(id int64, start time.Time) *model.TimeEntry {
	return &model.TimeEntry{
		ID:          id,
		At:          ServerTime,
		WorkspaceID: 1,
		UserID:      1,
		Description: "running",
		Start:       start,
	}
}

// StoppedEntry returns a time entry that ran for d from start.
func StoppedEntry(id int64, start time.Time, d time.Duration) *model.TimeEntry {
	te := RunningEntry(id, start)
	te.Description = "stopped"
	te.Duration = Int64(int64(d / time.Second))
	return te
}
