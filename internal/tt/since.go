package tt

import (
	"errors"
	"fmt"
	"time"

	"tt-go/internal/model"
)

// ErrSinceUndefined is returned when stale time entries have to be filtered
// but the time entry collection has no since checkpoint at all.
var ErrSinceUndefined = errors.New("since checkpoint undefined")

// staleFilter returns the relevance check for time entries that already exist
// locally. The server always includes the running entry in its delta, even
// when it has not changed since the last sync; such an entry is older than
// the checkpoint and must not be merged again.
//
// The checkpoint is looked up on first use so a pull without local time entry
// updates does not require one.
func staleFilter(since model.SinceRegistry) func(*model.TimeEntry) (bool, error) {
	var (
		checkpoint *time.Time
		loaded     bool
	)
	return func(te *model.TimeEntry) (bool, error) {
		if !loaded {
			if since == nil {
				return false, fmt.Errorf("%s: %w", model.KindTimeEntry, ErrSinceUndefined)
			}
			cp, defined := since.Since(model.KindTimeEntry)
			if !defined {
				return false, fmt.Errorf("%s: %w", model.KindTimeEntry, ErrSinceUndefined)
			}
			checkpoint, loaded = cp, true
		}
		if checkpoint == nil {
			return true, nil
		}
		return !te.At.Before(*checkpoint), nil
	}
}
