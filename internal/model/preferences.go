package model

import (
	"time"

	"tt-go/internal/merge"
)

// DurationFormat controls how durations are rendered.
type DurationFormat int

const (
	DurationClassic DurationFormat = iota
	DurationImproved
	DurationDecimal
)

// PreferencesID is the fixed id of the single preferences record.
const PreferencesID int64 = 0

// Preferences are the user's display preferences. There is at most one record
// per local store; it is created on the first pull.
type Preferences struct {
	TimeOfDayFormat     string         `json:"timeofday_format"`
	DateFormat          string         `json:"date_format"`
	DurationFormat      DurationFormat `json:"duration_format"`
	CollapseTimeEntries bool           `json:"collapse_time_entries"`

	SyncState
	Backup *PreferencesSnapshot `json:"-"`
}

type PreferencesSnapshot struct {
	TimeOfDayFormat     string         `json:"timeofday_format"`
	DateFormat          string         `json:"date_format"`
	DurationFormat      DurationFormat `json:"duration_format"`
	CollapseTimeEntries bool           `json:"collapse_time_entries"`
}

func (p *Preferences) Identifier() int64     { return PreferencesID }
func (p *Preferences) DeletedAt() *time.Time { return nil }
func (p *Preferences) ContainsBackup() bool  { return p.Backup != nil }

func (p *Preferences) BeginEdit() {
	if p.Backup == nil {
		p.Backup = &PreferencesSnapshot{
			TimeOfDayFormat:     p.TimeOfDayFormat,
			DateFormat:          p.DateFormat,
			DurationFormat:      p.DurationFormat,
			CollapseTimeEntries: p.CollapseTimeEntries,
		}
	}
	p.SyncStatus = SyncNeeded
}

func (p *Preferences) Merge(server *Preferences) bool {
	var b PreferencesSnapshot
	if p.Backup != nil {
		b = *p.Backup
	}
	tr := merge.NewTracker(p.Backup != nil)

	p.TimeOfDayFormat = merge.Field(tr, b.TimeOfDayFormat, p.TimeOfDayFormat, server.TimeOfDayFormat)
	p.DateFormat = merge.Field(tr, b.DateFormat, p.DateFormat, server.DateFormat)
	p.DurationFormat = merge.Field(tr, b.DurationFormat, p.DurationFormat, server.DurationFormat)
	p.CollapseTimeEntries = merge.Field(tr, b.CollapseTimeEntries, p.CollapseTimeEntries, server.CollapseTimeEntries)

	p.Backup = nil
	return tr.Differs()
}

func (p *Preferences) ResolveRefs(Refs) error { return nil }
