package model

import (
	"encoding/json"
	"fmt"
	"io"
	"time"
)

// PullResult is the already deserialized delta the server returned for a
// pull. Slices preserve the server's order. A nil User or Preferences means
// the server sent none.
type PullResult struct {
	User        *User        `json:"user"`
	Preferences *Preferences `json:"preferences"`
	Workspaces  []*Workspace `json:"workspaces"`
	Tags        []*Tag       `json:"tags"`
	Clients     []*Client    `json:"clients"`
	Projects    []*Project   `json:"projects"`
	Tasks       []*Task      `json:"tasks"`
	TimeEntries []*TimeEntry `json:"time_entries"`

	// ServerTime is the server clock at the time of the pull. When present,
	// every collection's since checkpoint advances to it.
	ServerTime *time.Time `json:"server_time"`
}

// DecodePullResult reads a JSON encoded pull result.
func DecodePullResult(r io.Reader) (*PullResult, error) {
	var pull PullResult
	if err := json.NewDecoder(r).Decode(&pull); err != nil {
		return nil, fmt.Errorf("decoding pull result: %w", err)
	}
	return &pull, nil
}

// SinceRegistry gives the last successful sync time per collection.
type SinceRegistry interface {
	// Since returns the checkpoint of a collection. defined is false when the
	// collection has no checkpoint slot at all; a defined slot with a nil
	// time has never been synced.
	Since(kind Kind) (since *time.Time, defined bool)
}

// Checkpoints is a SinceRegistry backed by a map.
type Checkpoints map[Kind]*time.Time

func (c Checkpoints) Since(kind Kind) (*time.Time, bool) {
	since, ok := c[kind]
	return since, ok
}
