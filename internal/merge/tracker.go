package merge

// Tracker holds the dirty-state bookkeeping for merging one entity.
//
// For every mergeable field the common ancestor is the backup value when the
// entity holds a backup snapshot, otherwise the current local value: with no
// pending local edit the local value is the agreed baseline and the server
// value is adopted. The tracker remembers whether any merged value ended up
// different from what the server sent.
type Tracker struct {
	hasBackup bool
	differs   bool
}

// NewTracker creates a tracker for an entity. containsBackup reports whether
// the entity's backup snapshot is valid.
func NewTracker(containsBackup bool) *Tracker {
	return &Tracker{hasBackup: containsBackup}
}

// Differs reports whether at least one merged field differs from the server.
func (t *Tracker) Differs() bool {
	return t.differs
}

// StayDirty decides whether an entity keeps its SyncNeeded flag. Only an
// entity that was already dirty and still differs from the server stays
// dirty; everything else converged with the server.
func StayDirty(wasDirty, differs bool) bool {
	return wasDirty && differs
}

// Field merges a comparable field.
func Field[T comparable](t *Tracker, backup, local, remote T) T {
	return FieldFunc(t, backup, local, remote, Equal[T])
}

// Optional merges a field whose absence is meaningful (nil pointer).
func Optional[T comparable](t *Tracker, backup, local, remote *T) *T {
	return FieldFunc(t, backup, local, remote, PtrEqual[T])
}

// Set merges a collection-valued field with set semantics.
func Set[T comparable](t *Tracker, backup, local, remote []T) []T {
	return FieldFunc(t, backup, local, remote, SetEqual[T])
}

// FieldFunc merges one field using eq for equality.
func FieldFunc[T any](t *Tracker, backup, local, remote T, eq func(a, b T) bool) T {
	common := local
	if t.hasBackup {
		common = backup
	}

	merged := ThreeWayFunc(common, local, remote, eq)
	if !eq(merged, remote) {
		t.differs = true
	}
	return merged
}
