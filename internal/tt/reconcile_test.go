package tt_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tt-go/internal/model"
	"tt-go/internal/testutil"
	"tt-go/internal/tt"
)

func reconcileTags(t *testing.T, db tt.Database, configure func(tx tt.Tx, r *tt.Reconciler[*model.Tag]), incoming ...*model.Tag) (tt.Stats, error) {
	t.Helper()
	var stats tt.Stats
	err := db.Update(context.Background(), func(tx tt.Tx) error {
		r := &tt.Reconciler[*model.Tag]{Kind: model.KindTag, Collection: tx.Tags(), Refs: tx}
		if configure != nil {
			configure(tx, r)
		}
		var err error
		stats, err = r.Reconcile(incoming)
		return err
	})
	return stats, err
}

func TestReconciler(t *testing.T) {
	clock := testutil.FixedClock()

	t.Run("inserts updates and deletes", func(t *testing.T) {
		db := testutil.NewTestDatabase(t, clock)

		stats, err := reconcileTags(t, db, nil,
			testutil.Tag(1, 1, "a"), testutil.Tag(2, 1, "b"), testutil.Tag(3, 1, "c"))
		require.NoError(t, err)
		assert.Equal(t, tt.Stats{Created: 3}, stats)

		renamed := testutil.Tag(1, 1, "renamed")
		gone := testutil.Tag(2, 1, "b")
		gone.ServerDeletedAt = testutil.Time(testutil.ServerTime)

		stats, err = reconcileTags(t, db, nil, renamed, gone)
		require.NoError(t, err)
		assert.Equal(t, tt.Stats{Updated: 1, Deleted: 1}, stats)

		require.NoError(t, db.View(context.Background(), func(tx tt.Tx) error {
			all, err := tx.Tags().All()
			require.NoError(t, err)
			require.Len(t, all, 2)
			assert.Equal(t, "renamed", all[0].Name)
			assert.Equal(t, int64(3), all[1].ID, "entities missing from the payload are kept")
			return nil
		}))
	})

	t.Run("new entities arrive clean", func(t *testing.T) {
		db := testutil.NewTestDatabase(t, clock)

		incoming := testutil.Tag(1, 1, "a")
		incoming.SyncState = model.SyncState{SyncStatus: model.SyncNeeded, LastSyncErrorMessage: "x", IsDeleted: true}

		_, err := reconcileTags(t, db, nil, incoming)
		require.NoError(t, err)

		require.NoError(t, db.View(context.Background(), func(tx tt.Tx) error {
			tag, _, err := tx.Tags().Find(1)
			require.NoError(t, err)
			assert.Equal(t, model.SyncState{SyncStatus: model.InSync}, tag.SyncState)
			return nil
		}))
	})

	t.Run("on delete hook replaces deletion", func(t *testing.T) {
		db := testutil.NewTestDatabase(t, clock)
		_, err := reconcileTags(t, db, nil, testutil.Tag(1, 1, "a"))
		require.NoError(t, err)

		var hooked []int64
		gone := testutil.Tag(1, 1, "a")
		gone.ServerDeletedAt = testutil.Time(testutil.ServerTime)
		_, err = reconcileTags(t, db, func(_ tt.Tx, r *tt.Reconciler[*model.Tag]) {
			r.OnDelete = func(local *model.Tag) error {
				hooked = append(hooked, local.ID)
				return nil
			}
		}, gone)
		require.NoError(t, err)

		assert.Equal(t, []int64{1}, hooked)
		assert.True(t, existsIn(t, db, model.KindTag, 1))
	})

	t.Run("irrelevant entities are skipped", func(t *testing.T) {
		db := testutil.NewTestDatabase(t, clock)
		_, err := reconcileTags(t, db, nil, testutil.Tag(1, 1, "a"))
		require.NoError(t, err)

		stats, err := reconcileTags(t, db, func(_ tt.Tx, r *tt.Reconciler[*model.Tag]) {
			r.Relevant = func(*model.Tag) (bool, error) { return false, nil }
		}, testutil.Tag(1, 1, "ignored"), testutil.Tag(2, 1, "new"))
		require.NoError(t, err)

		assert.Equal(t, tt.Stats{Created: 1, Skipped: 1}, stats)
	})

	t.Run("hook errors abort and roll back", func(t *testing.T) {
		db := testutil.NewTestDatabase(t, clock)
		_, err := reconcileTags(t, db, nil, testutil.Tag(1, 1, "a"))
		require.NoError(t, err)

		boom := errors.New("boom")
		_, err = reconcileTags(t, db, func(_ tt.Tx, r *tt.Reconciler[*model.Tag]) {
			r.Relevant = func(*model.Tag) (bool, error) { return false, boom }
		}, testutil.Tag(5, 1, "before"), testutil.Tag(1, 1, "a"))
		require.ErrorIs(t, err, boom)

		assert.False(t, existsIn(t, db, model.KindTag, 5))
	})
}

func existsIn(t *testing.T, db tt.Database, kind model.Kind, id int64) bool {
	t.Helper()
	var ok bool
	require.NoError(t, db.View(context.Background(), func(tx tt.Tx) error {
		var err error
		ok, err = tx.Exists(kind, id)
		return err
	}))
	return ok
}

func TestReconciler_AlreadyMergedCopy(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewTestDatabase(t, testutil.FixedClock())

	// A local change that survived an earlier merge: dirty, no backup.
	kept := testutil.Tag(1, 1, "local")
	kept.SyncStatus = model.SyncNeeded
	require.NoError(t, db.Update(ctx, func(tx tt.Tx) error { return tx.Tags().Put(kept) }))

	stats, err := reconcileTags(t, db, nil, testutil.Tag(1, 1, "server"))
	require.NoError(t, err)
	assert.Equal(t, tt.Stats{Skipped: 1}, stats)

	require.NoError(t, db.View(ctx, func(tx tt.Tx) error {
		tag, _, err := tx.Tags().Find(1)
		require.NoError(t, err)
		assert.Equal(t, "local", tag.Name)
		assert.Equal(t, model.SyncNeeded, tag.SyncStatus)
		return nil
	}))

	newer := testutil.Tag(1, 1, "server")
	newer.At = testutil.ServerTime.Add(time.Minute)
	stats, err = reconcileTags(t, db, nil, newer)
	require.NoError(t, err)
	assert.Equal(t, tt.Stats{Updated: 1}, stats)

	require.NoError(t, db.View(ctx, func(tx tt.Tx) error {
		tag, _, err := tx.Tags().Find(1)
		require.NoError(t, err)
		assert.Equal(t, "server", tag.Name)
		assert.Equal(t, model.InSync, tag.SyncStatus)
		return nil
	}))
}
