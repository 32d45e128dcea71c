// Package model defines the syncable entities of the local replica and the
// bookkeeping the reconciliation core keeps for each of them.
package model

import (
	"fmt"
	"time"
)

// Kind identifies an entity collection.
type Kind string

const (
	KindUser        Kind = "user"
	KindPreferences Kind = "preferences"
	KindWorkspace   Kind = "workspace"
	KindTag         Kind = "tag"
	KindClient      Kind = "client"
	KindProject     Kind = "project"
	KindTask        Kind = "task"
	KindTimeEntry   Kind = "time_entry"
)

// Kinds lists all collections in referential dependency order: a collection
// only references collections listed before it.
var Kinds = []Kind{
	KindUser,
	KindPreferences,
	KindWorkspace,
	KindTag,
	KindClient,
	KindProject,
	KindTask,
	KindTimeEntry,
}

// SyncStatus is the local dirty flag of an entity.
type SyncStatus int

const (
	// InSync means the entity matches the last state received from the server.
	InSync SyncStatus = iota
	// SyncNeeded means the entity carries local changes to push.
	SyncNeeded
)

func (s SyncStatus) String() string {
	switch s {
	case InSync:
		return "in_sync"
	case SyncNeeded:
		return "sync_needed"
	default:
		return fmt.Sprintf("sync_status(%d)", int(s))
	}
}

// SyncState is the local bookkeeping embedded in every syncable entity.
type SyncState struct {
	SyncStatus           SyncStatus `json:"-"`
	LastSyncErrorMessage string     `json:"-"`
	// IsDeleted marks a local delete that still has to be pushed.
	IsDeleted bool `json:"-"`
}

// State gives generic code access to the embedded bookkeeping.
func (s *SyncState) State() *SyncState {
	return s
}

// IsDirty reports whether the entity has local changes to push.
func (s *SyncState) IsDirty() bool {
	return s.SyncStatus == SyncNeeded
}

// Resolve records the outcome of a successful reconciliation. A dirty local
// tombstone keeps its pending delete regardless of the field merge.
func (s *SyncState) Resolve(wasDirty, stayDirty bool) {
	if stayDirty || (wasDirty && s.IsDeleted) {
		s.SyncStatus = SyncNeeded
	} else {
		s.SyncStatus = InSync
	}
	s.LastSyncErrorMessage = ""
}

// Identifiable is implemented by entities with a collection-unique id.
// Negative ids are temporary ids of entities not pushed yet.
type Identifiable interface {
	Identifier() int64
}

// Deletable is implemented by entities the server can tombstone.
type Deletable interface {
	DeletedAt() *time.Time
}

// Refs looks up referenced entities in the local store.
type Refs interface {
	Exists(kind Kind, id int64) (bool, error)
}

// Syncable is the capability set the generic reconciler works with.
// E is the entity pointer type itself, e.g. *Tag.
type Syncable[E any] interface {
	Identifiable
	Deletable
	State() *SyncState
	// ServerAt is the server's last modification time of the entity.
	ServerAt() time.Time
	ContainsBackup() bool
	// Merge three-way merges the server copy into the receiver, drops the
	// backup snapshot and reports whether any mergeable field still differs
	// from the server copy.
	Merge(server E) bool
	// ResolveRefs drops references to entities missing from the store.
	ResolveRefs(refs Refs) error
}

// AlreadyMerged reports whether server brings nothing newer than the copy
// local was last merged with while local still carries changes that merge
// kept. Merging such a copy again would overwrite those changes, since local
// no longer holds a backup to tell them apart from the server values.
func AlreadyMerged[E Syncable[E]](local, server E) bool {
	return local.State().IsDirty() && !local.ContainsBackup() && !server.ServerAt().After(local.ServerAt())
}

// IsTemporaryID reports whether id was assigned locally.
func IsTemporaryID(id int64) bool {
	return id < 0
}

func resolveOptional(refs Refs, kind Kind, id *int64) (*int64, error) {
	if id == nil {
		return nil, nil
	}
	ok, err := refs.Exists(kind, *id)
	if err != nil {
		return nil, fmt.Errorf("resolving %s %d: %w", kind, *id, err)
	}
	if !ok {
		return nil, nil
	}
	return id, nil
}

func int64Ptr(v int64) *int64 {
	return &v
}

func copyInt64Ptr(p *int64) *int64 {
	if p == nil {
		return nil
	}
	return int64Ptr(*p)
}
