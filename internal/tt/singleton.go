package tt

import (
	"fmt"
	"time"

	"tt-go/internal/merge"
	"tt-go/internal/model"
)

// reconcileUser merges the server's user into the store. The user is never
// deleted; a store without a user adopts the server copy.
func reconcileUser(tx Tx, server *model.User) (Stats, error) {
	var stats Stats
	if server == nil {
		return stats, nil
	}

	local, err := tx.User()
	if err != nil {
		return stats, fmt.Errorf("loading user: %w", err)
	}

	if local == nil {
		server.SyncState = model.SyncState{SyncStatus: model.InSync}
		server.Backup = nil
		if err := tx.PutUser(server); err != nil {
			return stats, fmt.Errorf("storing user: %w", err)
		}
		stats.Created++
		return stats, nil
	}

	if model.AlreadyMerged(local, server) {
		stats.Skipped++
		return stats, nil
	}

	wasDirty := local.IsDirty()
	differs := local.Merge(server)
	local.Resolve(wasDirty, merge.StayDirty(wasDirty, differs))
	if err := tx.PutUser(local); err != nil {
		return stats, fmt.Errorf("storing user: %w", err)
	}
	stats.Updated++
	return stats, nil
}

// reconcilePreferences merges the server's preferences, creating the record
// on the first pull. Preferences carry no modification time, so a pull that
// is not newer than the preferences checkpoint leaves locally kept changes
// alone.
func reconcilePreferences(tx Tx, server *model.Preferences, serverTime *time.Time, since model.SinceRegistry) (Stats, error) {
	var stats Stats
	if server == nil {
		return stats, nil
	}

	local, err := tx.Preferences()
	if err != nil {
		return stats, fmt.Errorf("loading preferences: %w", err)
	}

	if local == nil {
		server.SyncState = model.SyncState{SyncStatus: model.InSync}
		server.Backup = nil
		if err := tx.PutPreferences(server); err != nil {
			return stats, fmt.Errorf("storing preferences: %w", err)
		}
		stats.Created++
		return stats, nil
	}

	if local.IsDirty() && !local.ContainsBackup() && notNewer(serverTime, since, model.KindPreferences) {
		stats.Skipped++
		return stats, nil
	}

	wasDirty := local.IsDirty()
	differs := local.Merge(server)
	local.Resolve(wasDirty, merge.StayDirty(wasDirty, differs))
	if err := tx.PutPreferences(local); err != nil {
		return stats, fmt.Errorf("storing preferences: %w", err)
	}
	stats.Updated++
	return stats, nil
}

// notNewer reports whether a pull stamped serverTime is no newer than the
// checkpoint of kind.
func notNewer(serverTime *time.Time, since model.SinceRegistry, kind model.Kind) bool {
	if serverTime == nil || since == nil {
		return false
	}
	checkpoint, defined := since.Since(kind)
	return defined && checkpoint != nil && !serverTime.After(*checkpoint)
}
