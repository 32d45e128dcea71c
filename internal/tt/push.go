package tt

import (
	"context"
	"fmt"

	"tt-go/internal/model"
	"tt-go/internal/push"
)

// PendingPushActions enumerates every entity with local changes and maps it to
// a push action, collections in dependency order. Entities pending deletion
// become deletes, entities with a temporary id become creates and everything
// else becomes an update.
func (s *TTService) PendingPushActions(ctx context.Context) (*push.Batch, error) {
	batch := push.NewBatch()
	err := s.database.View(ctx, func(tx Tx) error {
		user, err := tx.User()
		if err != nil {
			return fmt.Errorf("loading user: %w", err)
		}
		if user != nil && user.IsDirty() {
			batch.Add(push.NewUpdate(model.KindUser, user))
		}

		prefs, err := tx.Preferences()
		if err != nil {
			return fmt.Errorf("loading preferences: %w", err)
		}
		if prefs != nil && prefs.IsDirty() {
			batch.Add(push.NewUpdate(model.KindPreferences, prefs))
		}

		if err := addPending(batch, model.KindWorkspace, tx.Workspaces()); err != nil {
			return err
		}
		if err := addPending(batch, model.KindTag, tx.Tags()); err != nil {
			return err
		}
		if err := addPending(batch, model.KindClient, tx.Clients()); err != nil {
			return err
		}
		if err := addPending(batch, model.KindProject, tx.Projects()); err != nil {
			return err
		}
		if err := addPending[*model.Task](batch, model.KindTask, tx.Tasks()); err != nil {
			return err
		}
		return addPending[*model.TimeEntry](batch, model.KindTimeEntry, tx.TimeEntries())
	})
	if err != nil {
		return nil, fmt.Errorf("enumerating pending changes: %w", err)
	}
	return batch, nil
}

func addPending[E model.Syncable[E]](batch *push.Batch, kind model.Kind, c Collection[E]) error {
	pending, err := c.Pending()
	if err != nil {
		return fmt.Errorf("finding pending %s entities: %w", kind, err)
	}
	for _, e := range pending {
		batch.Add(actionFor(kind, e))
	}
	return nil
}

func actionFor[E model.Syncable[E]](kind model.Kind, e E) push.Action {
	id := e.Identifier()
	switch {
	case e.State().IsDeleted:
		return push.NewDelete(kind, id)
	case model.IsTemporaryID(id):
		return push.NewCreate(kind, e)
	default:
		return push.NewUpdate(kind, e)
	}
}
