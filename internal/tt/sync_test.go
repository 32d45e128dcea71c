package tt_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tt-go/internal/model"
	"tt-go/internal/testutil"
	"tt-go/internal/tt"
)

func TestProcessPullResult_FirstPull(t *testing.T) {
	env := newTestEnv(t)

	result := env.pull(t, basePull())

	assert.Equal(t, "run-1", result.ID)
	for _, kind := range model.Kinds {
		assert.Equal(t, tt.Stats{Created: 1}, result.Stats[kind], "stats of %s", kind)
	}
	assert.Empty(t, result.Stopped)
	assert.Nil(t, result.Running)

	te := env.timeEntry(t, 100)
	assert.Equal(t, model.InSync, te.SyncStatus)
	assert.Equal(t, "design", te.Description)
	require.NotNil(t, te.ProjectID)
	assert.Equal(t, int64(20), *te.ProjectID)
	require.NotNil(t, te.TaskID)
	assert.Equal(t, int64(30), *te.TaskID)
	assert.Equal(t, []int64{10}, te.TagIDs)

	checkpoints, err := env.svc.Checkpoints(context.Background())
	require.NoError(t, err)
	for _, kind := range model.Kinds {
		since, defined := checkpoints.Since(kind)
		require.True(t, defined)
		require.NotNil(t, since, "checkpoint of %s", kind)
		assert.True(t, since.Equal(testutil.ServerTime), "checkpoint of %s = %v", kind, since)
	}
}

func TestProcessPullResult_NilPull(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.svc.ProcessPullResult(context.Background(), nil, model.Checkpoints{})
	require.ErrorIs(t, err, tt.ErrNilPullResult)
}

func TestProcessPullResult_DropsUnresolvableRelations(t *testing.T) {
	env := newTestEnv(t)

	p := basePull()
	te := p.TimeEntries[0]
	te.ProjectID = testutil.Int64(77)
	te.TaskID = testutil.Int64(88)
	te.TagIDs = []int64{10, 99, 10}

	env.pull(t, p)

	stored := env.timeEntry(t, 100)
	assert.Nil(t, stored.ProjectID)
	assert.Nil(t, stored.TaskID)
	assert.Equal(t, []int64{10}, stored.TagIDs)
}

func TestProcessPullResult_RelationsAcrossSamePull(t *testing.T) {
	env := newTestEnv(t)

	// The project arrives in the same pull as the entry referencing it.
	p := basePull()
	p.Projects = append(p.Projects, testutil.Project(21, 1, "New"))
	p.TimeEntries[0].ProjectID = testutil.Int64(21)
	p.TimeEntries[0].TaskID = nil

	env.pull(t, p)

	stored := env.timeEntry(t, 100)
	require.NotNil(t, stored.ProjectID)
	assert.Equal(t, int64(21), *stored.ProjectID)
}

func TestProcessPullResult_Merge(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name          string
		localEdit     func(te *model.TimeEntry)
		serverEdit    func(te *model.TimeEntry)
		wantDesc      string
		wantBillable  bool
		wantSyncState model.SyncStatus
	}{
		{
			name:          "clean entity takes server changes",
			serverEdit:    func(te *model.TimeEntry) { te.Description = "server" },
			wantDesc:      "server",
			wantSyncState: model.InSync,
		},
		{
			name:          "dirty edit survives unrelated server change",
			localEdit:     func(te *model.TimeEntry) { te.Description = "local" },
			serverEdit:    func(te *model.TimeEntry) { te.Billable = true },
			wantDesc:      "local",
			wantBillable:  true,
			wantSyncState: model.SyncNeeded,
		},
		{
			name:          "conflicting edit keeps local value",
			localEdit:     func(te *model.TimeEntry) { te.Description = "local" },
			serverEdit:    func(te *model.TimeEntry) { te.Description = "server" },
			wantDesc:      "local",
			wantSyncState: model.SyncNeeded,
		},
		{
			name:          "local edit already on the server becomes clean",
			localEdit:     func(te *model.TimeEntry) { te.Description = "agreed" },
			serverEdit:    func(te *model.TimeEntry) { te.Description = "agreed" },
			wantDesc:      "agreed",
			wantSyncState: model.InSync,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			env := newTestEnv(t)
			env.pull(t, basePull())

			if tc.localEdit != nil {
				_, err := env.svc.EditTimeEntry(ctx, 100, tc.localEdit)
				require.NoError(t, err)
			}

			p := basePull()
			tc.serverEdit(p.TimeEntries[0])
			result := env.pull(t, p)
			assert.Equal(t, 1, result.Stats[model.KindTimeEntry].Updated)

			te := env.timeEntry(t, 100)
			assert.Equal(t, tc.wantDesc, te.Description)
			assert.Equal(t, tc.wantBillable, te.Billable)
			assert.Equal(t, tc.wantSyncState, te.SyncStatus)
			assert.Nil(t, te.Backup)
		})
	}
}

func TestProcessPullResult_StaleRunningEntry(t *testing.T) {
	env := newTestEnv(t)

	first := basePull()
	first.TimeEntries[0].Duration = nil
	first.ServerTime = testutil.Time(testutil.ServerTime.Add(time.Hour))
	env.pull(t, first)

	t.Run("entry older than checkpoint is skipped", func(t *testing.T) {
		p := basePull()
		p.TimeEntries[0].Duration = nil
		p.TimeEntries[0].Description = "stale"
		p.ServerTime = nil

		result := env.pull(t, p)

		assert.Equal(t, tt.Stats{Skipped: 1}, result.Stats[model.KindTimeEntry])
		assert.Equal(t, "design", env.timeEntry(t, 100).Description)
		require.NotNil(t, result.Running)
		assert.Equal(t, int64(100), *result.Running)
	})

	t.Run("entry changed after checkpoint is merged", func(t *testing.T) {
		p := basePull()
		p.TimeEntries[0].Duration = nil
		p.TimeEntries[0].Description = "fresh"
		p.TimeEntries[0].At = testutil.ServerTime.Add(2 * time.Hour)
		p.ServerTime = nil

		result := env.pull(t, p)

		assert.Equal(t, tt.Stats{Updated: 1}, result.Stats[model.KindTimeEntry])
		assert.Equal(t, "fresh", env.timeEntry(t, 100).Description)
	})
}

func TestProcessPullResult_SinceUndefined(t *testing.T) {
	ctx := context.Background()

	t.Run("existing time entry without checkpoint rolls back", func(t *testing.T) {
		env := newTestEnv(t)
		env.pull(t, basePull())

		for name, since := range map[string]model.SinceRegistry{
			"empty registry": model.Checkpoints{},
			"nil registry":   nil,
		} {
			p := basePull()
			p.Tags = append(p.Tags, testutil.Tag(11, 1, "new"))
			p.TimeEntries[0].Description = "changed"

			_, err := env.svc.ProcessPullResult(ctx, p, since)
			require.ErrorIs(t, err, tt.ErrSinceUndefined, name)

			assert.False(t, env.exists(t, model.KindTag, 11), "%s: tag from failed pull was stored", name)
			assert.Equal(t, "design", env.timeEntry(t, 100).Description, name)
		}
	})

	t.Run("only new time entries need no checkpoint", func(t *testing.T) {
		env := newTestEnv(t)

		_, err := env.svc.ProcessPullResult(ctx, basePull(), nil)
		require.NoError(t, err)
		assert.True(t, env.exists(t, model.KindTimeEntry, 100))
	})
}

func TestProcessPullResult_StopsOtherRunningTimers(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.pull(t, basePull())

	local, err := env.svc.StartTimeEntry(ctx, tt.StartParams{Description: "local timer"})
	require.NoError(t, err)
	require.Equal(t, int64(-1), local.ID)

	env.clock.Advance(15 * time.Minute)

	p := basePull()
	remote := testutil.RunningEntry(200, testutil.FixedClock().Now().Add(10*time.Minute))
	remote.At = remote.Start
	p.TimeEntries = append(p.TimeEntries, remote)

	result := env.pull(t, p)

	assert.Equal(t, []int64{-1}, result.Stopped)
	require.NotNil(t, result.Running)
	assert.Equal(t, int64(200), *result.Running)

	stopped := env.timeEntry(t, -1)
	require.NotNil(t, stopped.Duration)
	assert.Equal(t, int64(15*60), *stopped.Duration)
	assert.Equal(t, model.SyncNeeded, stopped.SyncStatus)

	running, err := env.svc.CurrentRunningTimeEntry(ctx)
	require.NoError(t, err)
	require.NotNil(t, running)
	assert.Equal(t, int64(200), running.ID)
}

func TestProcessPullResult_KeepsLocalTimerWithoutServerTimer(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.pull(t, basePull())

	_, err := env.svc.StartTimeEntry(ctx, tt.StartParams{Description: "local timer"})
	require.NoError(t, err)

	result := env.pull(t, basePull())

	assert.Empty(t, result.Stopped)
	require.NotNil(t, result.Running)
	assert.Equal(t, int64(-1), *result.Running)
	assert.True(t, env.timeEntry(t, -1).IsRunning())
}

func TestProcessPullResult_Tombstones(t *testing.T) {
	t.Run("project deletion removes its tasks", func(t *testing.T) {
		env := newTestEnv(t)
		first := basePull()
		first.Tasks = append(first.Tasks, testutil.Task(31, 20, "Copy"))
		env.pull(t, first)

		p := basePull()
		p.Projects[0].ServerDeletedAt = testutil.Time(testutil.ServerTime)
		p.Tasks = nil
		p.TimeEntries = nil
		result := env.pull(t, p)

		assert.Equal(t, tt.Stats{Deleted: 1}, result.Stats[model.KindProject])
		assert.False(t, env.exists(t, model.KindProject, 20))
		assert.False(t, env.exists(t, model.KindTask, 30))
		assert.False(t, env.exists(t, model.KindTask, 31))
		assert.True(t, env.exists(t, model.KindTimeEntry, 100))
	})

	t.Run("tombstoned workspace becomes inaccessible", func(t *testing.T) {
		env := newTestEnv(t)
		env.pull(t, basePull())

		p := &model.PullResult{Workspaces: []*model.Workspace{testutil.Workspace(1)}}
		p.Workspaces[0].ServerDeletedAt = testutil.Time(testutil.ServerTime)
		env.pull(t, p)

		var ws *model.Workspace
		require.NoError(t, env.db.View(context.Background(), func(tx tt.Tx) error {
			var err error
			ws, _, err = tx.Workspaces().Find(1)
			return err
		}))
		require.NotNil(t, ws)
		assert.True(t, ws.IsInaccessible)
	})

	t.Run("unknown tombstone is ignored", func(t *testing.T) {
		env := newTestEnv(t)

		tag := testutil.Tag(12, 1, "gone")
		tag.ServerDeletedAt = testutil.Time(testutil.ServerTime)
		result := env.pull(t, &model.PullResult{Tags: []*model.Tag{tag}})

		assert.Zero(t, result.Stats[model.KindTag].Total())
		assert.False(t, env.exists(t, model.KindTag, 12))
	})

	t.Run("time entry tombstone deletes local entry", func(t *testing.T) {
		env := newTestEnv(t)
		env.pull(t, basePull())

		p := basePull()
		p.TimeEntries[0].ServerDeletedAt = testutil.Time(testutil.ServerTime)
		env.pull(t, p)

		assert.False(t, env.exists(t, model.KindTimeEntry, 100))
	})
}

func TestProcessPullResult_Idempotent(t *testing.T) {
	env := newTestEnv(t)

	env.pull(t, basePull())
	before := env.timeEntries(t)

	result := env.pull(t, basePull())
	after := env.timeEntries(t)

	assert.Equal(t, before, after)
	assert.Equal(t, tt.Stats{Updated: 1}, result.Stats[model.KindTimeEntry])
	for _, te := range after {
		assert.Equal(t, model.InSync, te.SyncStatus)
	}
}

func TestProcessPullResult_Singletons(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	p := basePull()
	p.User = nil
	p.Preferences = nil
	env.pull(t, p)

	require.NoError(t, env.db.View(ctx, func(tx tt.Tx) error {
		u, err := tx.User()
		require.NoError(t, err)
		assert.Nil(t, u)
		prefs, err := tx.Preferences()
		require.NoError(t, err)
		assert.Nil(t, prefs)
		return nil
	}))

	env.pull(t, &model.PullResult{User: testutil.User(1), Preferences: testutil.Preferences()})

	changed := testutil.Preferences()
	changed.DurationFormat = model.DurationDecimal
	result := env.pull(t, &model.PullResult{Preferences: changed})
	assert.Equal(t, tt.Stats{Updated: 1}, result.Stats[model.KindPreferences])

	require.NoError(t, env.db.View(ctx, func(tx tt.Tx) error {
		u, err := tx.User()
		require.NoError(t, err)
		require.NotNil(t, u)
		assert.Equal(t, "user@example.com", u.Email)

		prefs, err := tx.Preferences()
		require.NoError(t, err)
		require.NotNil(t, prefs)
		assert.Equal(t, model.DurationDecimal, prefs.DurationFormat)
		assert.Equal(t, model.InSync, prefs.SyncStatus)
		return nil
	}))
}

func TestProcessPullResult_ClearsSyncError(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.pull(t, basePull())

	require.NoError(t, env.svc.RecordSyncError(ctx, model.KindTag, 10, "name already taken"))

	var tag *model.Tag
	load := func() {
		require.NoError(t, env.db.View(ctx, func(tx tt.Tx) error {
			var err error
			tag, _, err = tx.Tags().Find(10)
			return err
		}))
	}
	load()
	assert.Equal(t, "name already taken", tag.LastSyncErrorMessage)

	env.pull(t, basePull())
	load()
	assert.Empty(t, tag.LastSyncErrorMessage)
}

func TestProcessPullResult_ReplayKeepsLocalEdits(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name  string
		kind  model.Kind
		edit  func(tx tt.Tx) error
		check func(t *testing.T, tx tt.Tx)
	}{
		{
			name: "time entry",
			kind: model.KindTimeEntry,
			edit: func(tx tt.Tx) error {
				te, _, err := tx.TimeEntries().Find(100)
				if err != nil {
					return err
				}
				te.BeginEdit()
				te.Description = "local"
				return tx.TimeEntries().Put(te)
			},
			check: func(t *testing.T, tx tt.Tx) {
				te, _, err := tx.TimeEntries().Find(100)
				require.NoError(t, err)
				assert.Equal(t, "local", te.Description)
				assert.Equal(t, model.SyncNeeded, te.SyncStatus)
			},
		},
		{
			name: "tag",
			kind: model.KindTag,
			edit: func(tx tt.Tx) error {
				tag, _, err := tx.Tags().Find(10)
				if err != nil {
					return err
				}
				tag.BeginEdit()
				tag.Name = "renamed"
				return tx.Tags().Put(tag)
			},
			check: func(t *testing.T, tx tt.Tx) {
				tag, _, err := tx.Tags().Find(10)
				require.NoError(t, err)
				assert.Equal(t, "renamed", tag.Name)
				assert.Equal(t, model.SyncNeeded, tag.SyncStatus)
			},
		},
		{
			name: "project",
			kind: model.KindProject,
			edit: func(tx tt.Tx) error {
				p, _, err := tx.Projects().Find(20)
				if err != nil {
					return err
				}
				p.BeginEdit()
				p.Name = "Relaunch"
				return tx.Projects().Put(p)
			},
			check: func(t *testing.T, tx tt.Tx) {
				p, _, err := tx.Projects().Find(20)
				require.NoError(t, err)
				assert.Equal(t, "Relaunch", p.Name)
				assert.Equal(t, model.SyncNeeded, p.SyncStatus)
			},
		},
		{
			name: "user",
			kind: model.KindUser,
			edit: func(tx tt.Tx) error {
				u, err := tx.User()
				if err != nil {
					return err
				}
				u.BeginEdit()
				u.BeginningOfWeek = model.Sunday
				return tx.PutUser(u)
			},
			check: func(t *testing.T, tx tt.Tx) {
				u, err := tx.User()
				require.NoError(t, err)
				assert.Equal(t, model.Sunday, u.BeginningOfWeek)
				assert.Equal(t, model.SyncNeeded, u.SyncStatus)
			},
		},
		{
			name: "preferences",
			kind: model.KindPreferences,
			edit: func(tx tt.Tx) error {
				prefs, err := tx.Preferences()
				if err != nil {
					return err
				}
				prefs.BeginEdit()
				prefs.CollapseTimeEntries = true
				return tx.PutPreferences(prefs)
			},
			check: func(t *testing.T, tx tt.Tx) {
				prefs, err := tx.Preferences()
				require.NoError(t, err)
				assert.True(t, prefs.CollapseTimeEntries)
				assert.Equal(t, model.SyncNeeded, prefs.SyncStatus)
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			env := newTestEnv(t)
			env.pull(t, basePull())
			require.NoError(t, env.db.Update(ctx, func(tx tt.Tx) error { return tc.edit(tx) }))

			env.pull(t, basePull())
			require.NoError(t, env.db.View(ctx, func(tx tt.Tx) error {
				tc.check(t, tx)
				return nil
			}))

			replay := env.pull(t, basePull())
			assert.Equal(t, tt.Stats{Skipped: 1}, replay.Stats[tc.kind])
			require.NoError(t, env.db.View(ctx, func(tx tt.Tx) error {
				tc.check(t, tx)
				return nil
			}))

			batch, err := env.svc.PendingPushActions(ctx)
			require.NoError(t, err)
			assert.Len(t, batch.ByKind(tc.kind), 1, "edit is still pushed")
		})
	}
}

func TestProcessPullResult_PayloadWithTwoRunningEntries(t *testing.T) {
	env := newTestEnv(t)
	now := env.clock.Now()

	p := basePull()
	earlier := testutil.RunningEntry(100, testutil.ServerTime.Add(-time.Hour))
	later := testutil.RunningEntry(200, testutil.ServerTime.Add(-30*time.Minute))
	p.TimeEntries = []*model.TimeEntry{earlier, later}

	result := env.pull(t, p)

	assert.Equal(t, []int64{100}, result.Stopped)
	require.NotNil(t, result.Running)
	assert.Equal(t, int64(200), *result.Running)

	stopped := env.timeEntry(t, 100)
	require.NotNil(t, stopped.Duration)
	assert.Equal(t, int64(now.Sub(testutil.ServerTime.Add(-time.Hour))/time.Second), *stopped.Duration)
	assert.Equal(t, model.SyncNeeded, stopped.SyncStatus)

	running := env.timeEntry(t, 200)
	assert.True(t, running.IsRunning())
	assert.Equal(t, model.InSync, running.SyncStatus)
}
