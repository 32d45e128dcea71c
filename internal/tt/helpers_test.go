package tt_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"tt-go/internal/model"
	"tt-go/internal/testutil"
	"tt-go/internal/tt"
)

type testEnv struct {
	svc   *tt.TTService
	db    tt.Database
	clock *testutil.StubClock
	vault tt.Vault
	enc   tt.Encryptor
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	clock := testutil.FixedClock()
	db := testutil.NewTestDatabase(t, clock)
	v := testutil.NewTestVault()
	enc := testutil.NewTestEncryptor()
	svc := tt.NewTTService(db, v, enc, tt.NewNopLogger(), clock, testutil.NewStubIDGenerator())
	return &testEnv{svc: svc, db: db, clock: clock, vault: v, enc: enc}
}

// pull processes p against the stored checkpoints, the way the CLI does.
func (e *testEnv) pull(t *testing.T, p *model.PullResult) *tt.SyncResult {
	t.Helper()
	ctx := context.Background()
	since, err := e.svc.Checkpoints(ctx)
	require.NoError(t, err)
	result, err := e.svc.ProcessPullResult(ctx, p, since)
	require.NoError(t, err)
	return result
}

func (e *testEnv) timeEntry(t *testing.T, id int64) *model.TimeEntry {
	t.Helper()
	var te *model.TimeEntry
	require.NoError(t, e.db.View(context.Background(), func(tx tt.Tx) error {
		var found bool
		var err error
		te, found, err = tx.TimeEntries().Find(id)
		require.True(t, found, "time entry %d not stored", id)
		return err
	}))
	return te
}

func (e *testEnv) timeEntries(t *testing.T) []*model.TimeEntry {
	t.Helper()
	var all []*model.TimeEntry
	require.NoError(t, e.db.View(context.Background(), func(tx tt.Tx) error {
		var err error
		all, err = tx.TimeEntries().All()
		return err
	}))
	return all
}

func (e *testEnv) exists(t *testing.T, kind model.Kind, id int64) bool {
	t.Helper()
	return existsIn(t, e.db, kind, id)
}

// basePull is a complete first pull: one workspace with a tag, a client, a
// project with a task and one stopped time entry.
func basePull() *model.PullResult {
	project := testutil.Project(20, 1, "Website")
	project.ClientID = testutil.Int64(40)

	entry := testutil.StoppedEntry(100, testutil.ServerTime.Add(-2*time.Hour), time.Hour)
	entry.Description = "design"
	entry.ProjectID = testutil.Int64(20)
	entry.TaskID = testutil.Int64(30)
	entry.TagIDs = []int64{10}

	return &model.PullResult{
		User:        testutil.User(1),
		Preferences: testutil.Preferences(),
		Workspaces:  []*model.Workspace{testutil.Workspace(1)},
		Tags:        []*model.Tag{testutil.Tag(10, 1, "urgent")},
		Clients:     []*model.Client{testutil.Client(40, 1, "ACME")},
		Projects:    []*model.Project{project},
		Tasks:       []*model.Task{testutil.Task(30, 20, "Mockups")},
		TimeEntries: []*model.TimeEntry{entry},
		ServerTime:  testutil.Time(testutil.ServerTime),
	}
}
