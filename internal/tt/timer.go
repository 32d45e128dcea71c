package tt

import (
	"fmt"
	"time"

	"tt-go/internal/model"
)

// serverRunningEntry returns the running entry the server declared in a
// payload, or nil. When the payload carries more than one the last wins.
func serverRunningEntry(entries []*model.TimeEntry) *model.TimeEntry {
	var running *model.TimeEntry
	for _, te := range entries {
		if te.IsRunning() && te.DeletedAt() == nil {
			running = te
		}
	}
	return running
}

// stopOtherRunning stops every local running entry other than the one the
// server declared running. Stopped entries get a concrete duration measured
// up to now and are marked for push. Nothing happens when the server declared
// no running entry.
func stopOtherRunning(entries TimeEntryCollection, serverRunning *model.TimeEntry, now time.Time) ([]int64, error) {
	if serverRunning == nil {
		return nil, nil
	}

	running, err := entries.Running()
	if err != nil {
		return nil, fmt.Errorf("finding running time entries: %w", err)
	}

	var stopped []int64
	for _, te := range running {
		if te.ID == serverRunning.ID {
			continue
		}
		if err := te.Stop(now); err != nil {
			return nil, err
		}
		if err := entries.Put(te); err != nil {
			return nil, fmt.Errorf("stopping time entry %d: %w", te.ID, err)
		}
		stopped = append(stopped, te.ID)
	}
	return stopped, nil
}

// currentRunning returns the running entry that is not pending deletion. If
// the store somehow holds several, the one started last is returned.
func currentRunning(entries TimeEntryCollection) (*model.TimeEntry, error) {
	running, err := entries.Running()
	if err != nil {
		return nil, fmt.Errorf("finding running time entries: %w", err)
	}
	var current *model.TimeEntry
	for _, te := range running {
		if te.IsDeleted {
			continue
		}
		if current == nil || !te.Start.Before(current.Start) {
			current = te
		}
	}
	return current, nil
}
