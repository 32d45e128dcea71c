package tt

import (
	"fmt"

	"tt-go/internal/merge"
	"tt-go/internal/model"
)

// Stats counts what reconciling one collection did.
type Stats struct {
	Created int
	Updated int
	Deleted int
	// Skipped counts stale or already merged payload items that were ignored.
	Skipped int
}

func (s Stats) Total() int {
	return s.Created + s.Updated + s.Deleted + s.Skipped
}

// Reconciler applies server entities of one collection to the local store.
type Reconciler[E model.Syncable[E]] struct {
	Kind       model.Kind
	Collection Collection[E]
	Refs       model.Refs

	// OnDelete handles a local entity the server tombstoned. When nil the
	// local entity is deleted.
	OnDelete func(local E) error

	// Relevant decides whether a server entity that exists locally is merged
	// at all. When nil every entity is merged.
	Relevant func(server E) (bool, error)

	Logger Logger
}

// Reconcile processes the server entities in order. Local entities the
// payload does not mention are left alone.
func (r *Reconciler[E]) Reconcile(incoming []E) (Stats, error) {
	var stats Stats
	for _, server := range incoming {
		id := server.Identifier()

		local, found, err := r.Collection.Find(id)
		if err != nil {
			return stats, fmt.Errorf("finding %s %d: %w", r.Kind, id, err)
		}

		tombstoned := server.DeletedAt() != nil
		switch {
		case !found && tombstoned:
			continue

		case !found:
			if err := r.insert(server); err != nil {
				return stats, err
			}
			stats.Created++

		case tombstoned:
			if err := r.delete(local); err != nil {
				return stats, err
			}
			stats.Deleted++

		default:
			if r.Relevant != nil {
				relevant, err := r.Relevant(server)
				if err != nil {
					return stats, err
				}
				if !relevant {
					r.log().Debug("stale entity skipped", "kind", string(r.Kind), "id", id)
					stats.Skipped++
					continue
				}
			}
			if model.AlreadyMerged(local, server) {
				r.log().Debug("entity already merged", "kind", string(r.Kind), "id", id)
				stats.Skipped++
				continue
			}
			if err := r.update(local, server); err != nil {
				return stats, err
			}
			stats.Updated++
		}
	}
	return stats, nil
}

func (r *Reconciler[E]) insert(server E) error {
	if err := server.ResolveRefs(r.Refs); err != nil {
		return fmt.Errorf("resolving references of %s %d: %w", r.Kind, server.Identifier(), err)
	}
	*server.State() = model.SyncState{SyncStatus: model.InSync}
	if err := r.Collection.Put(server); err != nil {
		return fmt.Errorf("inserting %s %d: %w", r.Kind, server.Identifier(), err)
	}
	return nil
}

func (r *Reconciler[E]) delete(local E) error {
	id := local.Identifier()
	if r.OnDelete != nil {
		if err := r.OnDelete(local); err != nil {
			return fmt.Errorf("deleting %s %d: %w", r.Kind, id, err)
		}
		return nil
	}
	if err := r.Collection.Delete(id); err != nil {
		return fmt.Errorf("deleting %s %d: %w", r.Kind, id, err)
	}
	return nil
}

func (r *Reconciler[E]) update(local, server E) error {
	state := local.State()
	wasDirty := state.IsDirty()

	differs := local.Merge(server)
	if err := local.ResolveRefs(r.Refs); err != nil {
		return fmt.Errorf("resolving references of %s %d: %w", r.Kind, local.Identifier(), err)
	}
	state.Resolve(wasDirty, merge.StayDirty(wasDirty, differs))

	if err := r.Collection.Put(local); err != nil {
		return fmt.Errorf("updating %s %d: %w", r.Kind, local.Identifier(), err)
	}
	if state.IsDirty() {
		r.log().Debug("local changes kept", "kind", string(r.Kind), "id", local.Identifier())
	}
	return nil
}

func (r *Reconciler[E]) log() Logger {
	if r.Logger == nil {
		return NewNopLogger()
	}
	return r.Logger
}
