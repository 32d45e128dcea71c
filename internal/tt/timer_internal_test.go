package tt

import (
	"errors"
	"testing"
	"time"

	"tt-go/internal/model"
)

func TestServerRunningEntry(t *testing.T) {
	d := int64(60)
	deleted := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		entries []*model.TimeEntry
		want    int64
	}{
		{name: "none", entries: nil, want: 0},
		{name: "only stopped", entries: []*model.TimeEntry{{ID: 1, Duration: &d}}, want: 0},
		{name: "single running", entries: []*model.TimeEntry{{ID: 1, Duration: &d}, {ID: 2}}, want: 2},
		{name: "last running wins", entries: []*model.TimeEntry{{ID: 3}, {ID: 4}}, want: 4},
		{name: "tombstoned running ignored", entries: []*model.TimeEntry{{ID: 5}, {ID: 6, ServerDeletedAt: &deleted}}, want: 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := serverRunningEntry(tt.entries)
			var id int64
			if got != nil {
				id = got.ID
			}
			if id != tt.want {
				t.Errorf("serverRunningEntry() = %d, want %d", id, tt.want)
			}
		})
	}
}

type countingRegistry struct {
	since   *time.Time
	defined bool
	calls   int
}

func (r *countingRegistry) Since(kind model.Kind) (*time.Time, bool) {
	r.calls++
	return r.since, r.defined
}

func TestStaleFilter(t *testing.T) {
	checkpoint := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)

	t.Run("compares against checkpoint", func(t *testing.T) {
		registry := &countingRegistry{since: &checkpoint, defined: true}
		relevant := staleFilter(registry)

		for _, tc := range []struct {
			at   time.Time
			want bool
		}{
			{at: checkpoint.Add(-time.Second), want: false},
			{at: checkpoint, want: true},
			{at: checkpoint.Add(time.Second), want: true},
		} {
			got, err := relevant(&model.TimeEntry{At: tc.at})
			if err != nil {
				t.Fatalf("relevant() error = %v", err)
			}
			if got != tc.want {
				t.Errorf("relevant(at %v) = %v, want %v", tc.at, got, tc.want)
			}
		}
		if registry.calls != 1 {
			t.Errorf("registry consulted %d times, want 1", registry.calls)
		}
	})

	t.Run("never synced is always relevant", func(t *testing.T) {
		relevant := staleFilter(&countingRegistry{defined: true})
		got, err := relevant(&model.TimeEntry{})
		if err != nil || !got {
			t.Errorf("relevant() = %v, %v; want true, nil", got, err)
		}
	})

	t.Run("undefined checkpoint", func(t *testing.T) {
		for name, registry := range map[string]model.SinceRegistry{
			"undefined": &countingRegistry{},
			"nil":       nil,
		} {
			_, err := staleFilter(registry)(&model.TimeEntry{})
			if !errors.Is(err, ErrSinceUndefined) {
				t.Errorf("%s: error = %v, want ErrSinceUndefined", name, err)
			}
		}
	})
}
