package tt

import (
	"context"
	"fmt"
	"time"

	"tt-go/internal/model"
)

// SyncResult describes one processed pull.
type SyncResult struct {
	ID    string
	Stats map[model.Kind]Stats
	// Stopped lists the local time entries stopped because the server
	// declared another entry running.
	Stopped []int64
	// Running is the id of the running time entry after the pull, or nil.
	Running *int64
}

// ProcessPullResult reconciles a pull result into the local replica in one
// transaction: either everything is applied or the store is left unchanged.
//
// Collections are reconciled in dependency order so relation lookups see the
// parents of this same pull. since supplies the time entry checkpoint used to
// skip stale running entries. Processing the same pull twice yields the same
// state as processing it once.
func (s *TTService) ProcessPullResult(ctx context.Context, pull *model.PullResult, since model.SinceRegistry) (*SyncResult, error) {
	if pull == nil {
		return nil, ErrNilPullResult
	}

	result := &SyncResult{
		ID:    s.idgen.New(),
		Stats: make(map[model.Kind]Stats, len(model.Kinds)),
	}
	now := s.clock.Now()
	s.logger.Info("processing pull result", "sync", result.ID, "time_entries", len(pull.TimeEntries))

	err := s.database.Update(ctx, func(tx Tx) error {
		result.Stats = make(map[model.Kind]Stats, len(model.Kinds))
		result.Stopped = nil
		result.Running = nil

		stats, err := reconcileUser(tx, pull.User)
		if err != nil {
			return err
		}
		result.Stats[model.KindUser] = stats

		if stats, err = reconcilePreferences(tx, pull.Preferences, pull.ServerTime, since); err != nil {
			return err
		}
		result.Stats[model.KindPreferences] = stats

		if err := s.reconcileCollections(tx, pull, since, result); err != nil {
			return err
		}

		stopped, err := stopOtherRunning(tx.TimeEntries(), serverRunningEntry(pull.TimeEntries), now)
		if err != nil {
			return err
		}
		result.Stopped = stopped

		running, err := currentRunning(tx.TimeEntries())
		if err != nil {
			return err
		}
		if running != nil {
			id := running.ID
			result.Running = &id
		}

		if pull.ServerTime != nil {
			return advanceCheckpoints(tx, *pull.ServerTime)
		}
		return nil
	})
	if err != nil {
		s.logger.Error("pull result rolled back", "sync", result.ID, "error", err)
		return nil, fmt.Errorf("processing pull result: %w", err)
	}

	for _, kind := range model.Kinds {
		if stats := result.Stats[kind]; stats.Total() > 0 {
			s.logger.Info("collection reconciled", "sync", result.ID, "kind", string(kind),
				"created", stats.Created, "updated", stats.Updated, "deleted", stats.Deleted, "skipped", stats.Skipped)
		}
	}
	for _, id := range result.Stopped {
		s.logger.Info("time entry stopped", "sync", result.ID, "id", id)
	}
	return result, nil
}

func (s *TTService) reconcileCollections(tx Tx, pull *model.PullResult, since model.SinceRegistry, result *SyncResult) error {
	workspaces := &Reconciler[*model.Workspace]{
		Kind:       model.KindWorkspace,
		Collection: tx.Workspaces(),
		Refs:       tx,
		OnDelete:   markInaccessible(tx.Workspaces()),
		Logger:     s.logger,
	}
	if err := record(result, model.KindWorkspace, workspaces, pull.Workspaces); err != nil {
		return err
	}

	tags := &Reconciler[*model.Tag]{Kind: model.KindTag, Collection: tx.Tags(), Refs: tx, Logger: s.logger}
	if err := record(result, model.KindTag, tags, pull.Tags); err != nil {
		return err
	}

	clients := &Reconciler[*model.Client]{Kind: model.KindClient, Collection: tx.Clients(), Refs: tx, Logger: s.logger}
	if err := record(result, model.KindClient, clients, pull.Clients); err != nil {
		return err
	}

	projects := &Reconciler[*model.Project]{
		Kind:       model.KindProject,
		Collection: tx.Projects(),
		Refs:       tx,
		OnDelete:   deleteWithTasks(tx.Projects(), tx.Tasks()),
		Logger:     s.logger,
	}
	if err := record(result, model.KindProject, projects, pull.Projects); err != nil {
		return err
	}

	tasks := &Reconciler[*model.Task]{Kind: model.KindTask, Collection: tx.Tasks(), Refs: tx, Logger: s.logger}
	if err := record(result, model.KindTask, tasks, pull.Tasks); err != nil {
		return err
	}

	timeEntries := &Reconciler[*model.TimeEntry]{
		Kind:       model.KindTimeEntry,
		Collection: tx.TimeEntries(),
		Refs:       tx,
		Relevant:   staleFilter(since),
		Logger:     s.logger,
	}
	return record(result, model.KindTimeEntry, timeEntries, pull.TimeEntries)
}

func record[E model.Syncable[E]](result *SyncResult, kind model.Kind, r *Reconciler[E], incoming []E) error {
	stats, err := r.Reconcile(incoming)
	if err != nil {
		return err
	}
	result.Stats[kind] = stats
	return nil
}

// markInaccessible keeps a tombstoned workspace but hides it.
func markInaccessible(workspaces Collection[*model.Workspace]) func(*model.Workspace) error {
	return func(w *model.Workspace) error {
		w.IsInaccessible = true
		return workspaces.Put(w)
	}
}

// deleteWithTasks removes a tombstoned project together with its tasks.
func deleteWithTasks(projects Collection[*model.Project], tasks TaskCollection) func(*model.Project) error {
	return func(p *model.Project) error {
		owned, err := tasks.ByProject(p.ID)
		if err != nil {
			return fmt.Errorf("finding tasks: %w", err)
		}
		for _, t := range owned {
			if err := tasks.Delete(t.ID); err != nil {
				return fmt.Errorf("deleting task %d: %w", t.ID, err)
			}
		}
		return projects.Delete(p.ID)
	}
}

func advanceCheckpoints(tx Tx, at time.Time) error {
	for _, kind := range model.Kinds {
		if err := tx.SetSince(kind, at); err != nil {
			return fmt.Errorf("advancing %s checkpoint: %w", kind, err)
		}
	}
	return nil
}
