package tt

import (
	"context"
	"fmt"

	"tt-go/internal/model"
)

// StartParams describes a new timer.
type StartParams struct {
	WorkspaceID int64
	Description string
	ProjectID   *int64
	TaskID      *int64
	Billable    bool
	TagIDs      []int64
}

// StartTimeEntry stops the running timer, if any, and starts a new one. The
// new entry gets a temporary id and is pending creation.
func (s *TTService) StartTimeEntry(ctx context.Context, params StartParams) (*model.TimeEntry, error) {
	now := s.clock.Now()

	var started *model.TimeEntry
	err := s.database.Update(ctx, func(tx Tx) error {
		entries := tx.TimeEntries()

		running, err := entries.Running()
		if err != nil {
			return fmt.Errorf("finding running time entries: %w", err)
		}
		for _, te := range running {
			if err := te.Stop(now); err != nil {
				return err
			}
			if err := entries.Put(te); err != nil {
				return fmt.Errorf("stopping time entry %d: %w", te.ID, err)
			}
			s.logger.Info("time entry stopped", "id", te.ID)
		}

		id, err := entries.NextTemporaryID()
		if err != nil {
			return fmt.Errorf("allocating id: %w", err)
		}
		te := &model.TimeEntry{
			ID:          id,
			At:          now,
			WorkspaceID: params.WorkspaceID,
			Description: params.Description,
			ProjectID:   params.ProjectID,
			TaskID:      params.TaskID,
			Billable:    params.Billable,
			Start:       now,
			TagIDs:      params.TagIDs,
			SyncState:   model.SyncState{SyncStatus: model.SyncNeeded},
		}

		user, err := tx.User()
		if err != nil {
			return fmt.Errorf("loading user: %w", err)
		}
		if user != nil {
			te.UserID = user.ID
			if te.WorkspaceID == 0 && user.DefaultWorkspaceID != nil {
				te.WorkspaceID = *user.DefaultWorkspaceID
			}
		}

		if err := te.ResolveRefs(tx); err != nil {
			return err
		}
		if err := entries.Put(te); err != nil {
			return fmt.Errorf("storing time entry: %w", err)
		}
		started = te
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("starting time entry: %w", err)
	}

	s.logger.Info("time entry started", "id", started.ID, "description", started.Description)
	return started, nil
}

// StopTimeEntry stops the running timer.
func (s *TTService) StopTimeEntry(ctx context.Context) (*model.TimeEntry, error) {
	now := s.clock.Now()

	var stopped *model.TimeEntry
	err := s.database.Update(ctx, func(tx Tx) error {
		running, err := currentRunning(tx.TimeEntries())
		if err != nil {
			return err
		}
		if running == nil {
			return ErrNoRunningTimeEntry
		}
		if err := running.Stop(now); err != nil {
			return err
		}
		stopped = running
		return tx.TimeEntries().Put(running)
	})
	if err != nil {
		return nil, fmt.Errorf("stopping time entry: %w", err)
	}

	s.logger.Info("time entry stopped", "id", stopped.ID, "duration", *stopped.Duration)
	return stopped, nil
}

// EditTimeEntry applies edit to a time entry. The state before the first
// unsynced edit is kept as the merge base for the next pull.
func (s *TTService) EditTimeEntry(ctx context.Context, id int64, edit func(te *model.TimeEntry)) (*model.TimeEntry, error) {
	var edited *model.TimeEntry
	err := s.database.Update(ctx, func(tx Tx) error {
		te, found, err := tx.TimeEntries().Find(id)
		if err != nil {
			return err
		}
		if !found || te.IsDeleted {
			return fmt.Errorf("time entry %d: %w", id, ErrNotFound)
		}

		te.BeginEdit()
		edit(te)
		if err := te.ResolveRefs(tx); err != nil {
			return err
		}
		edited = te
		return tx.TimeEntries().Put(te)
	})
	if err != nil {
		return nil, fmt.Errorf("editing time entry: %w", err)
	}

	s.logger.Debug("time entry edited", "id", id)
	return edited, nil
}

// DeleteTimeEntry deletes a time entry locally. An entry the server has never
// seen is removed right away; any other entry is kept as a tombstone until
// the delete is pushed.
func (s *TTService) DeleteTimeEntry(ctx context.Context, id int64) error {
	err := s.database.Update(ctx, func(tx Tx) error {
		entries := tx.TimeEntries()
		te, found, err := entries.Find(id)
		if err != nil {
			return err
		}
		if !found {
			return fmt.Errorf("time entry %d: %w", id, ErrNotFound)
		}

		if model.IsTemporaryID(te.ID) {
			return entries.Delete(te.ID)
		}
		te.BeginEdit()
		te.IsDeleted = true
		return entries.Put(te)
	})
	if err != nil {
		return fmt.Errorf("deleting time entry: %w", err)
	}

	s.logger.Info("time entry deleted", "id", id)
	return nil
}

// RecordSyncError attaches the error the server reported for an entity. The
// message is cleared by the next successful reconciliation of that entity.
func (s *TTService) RecordSyncError(ctx context.Context, kind model.Kind, id int64, message string) error {
	err := s.database.Update(ctx, func(tx Tx) error {
		switch kind {
		case model.KindUser:
			u, err := tx.User()
			if err != nil {
				return err
			}
			if u == nil || u.ID != id {
				return fmt.Errorf("%s %d: %w", kind, id, ErrNotFound)
			}
			u.LastSyncErrorMessage = message
			return tx.PutUser(u)
		case model.KindPreferences:
			p, err := tx.Preferences()
			if err != nil {
				return err
			}
			if p == nil {
				return fmt.Errorf("%s: %w", kind, ErrNotFound)
			}
			p.LastSyncErrorMessage = message
			return tx.PutPreferences(p)
		case model.KindWorkspace:
			return recordError(tx.Workspaces(), kind, id, message)
		case model.KindTag:
			return recordError(tx.Tags(), kind, id, message)
		case model.KindClient:
			return recordError(tx.Clients(), kind, id, message)
		case model.KindProject:
			return recordError(tx.Projects(), kind, id, message)
		case model.KindTask:
			return recordError[*model.Task](tx.Tasks(), kind, id, message)
		case model.KindTimeEntry:
			return recordError[*model.TimeEntry](tx.TimeEntries(), kind, id, message)
		default:
			return fmt.Errorf("unknown kind %q", kind)
		}
	})
	if err != nil {
		return fmt.Errorf("recording sync error: %w", err)
	}

	s.logger.Warn("sync error recorded", "kind", string(kind), "id", id, "message", message)
	return nil
}

func recordError[E model.Syncable[E]](c Collection[E], kind model.Kind, id int64, message string) error {
	e, found, err := c.Find(id)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("%s %d: %w", kind, id, ErrNotFound)
	}
	e.State().LastSyncErrorMessage = message
	return c.Put(e)
}
