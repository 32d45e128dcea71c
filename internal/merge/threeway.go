// Package merge implements the field-level three-way merge used to reconcile
// a locally edited entity with the copy the server sends back on pull.
//
// The merge is biased towards the local replica: whenever the local value has
// diverged from the last value known to be in sync, the local value is kept,
// even if the server changed it as well. The local edit is pushed again on the
// next sync and the server resolves it from there.
package merge

import "time"

// Base is the common ancestor of a three-way merge. Known is false when no
// ancestor is available.
type Base[T any] struct {
	Value T
	Known bool
}

// KnownBase wraps v as a known common ancestor.
func KnownBase[T any](v T) Base[T] {
	return Base[T]{Value: v, Known: true}
}

// ThreeWay merges scalar values using ==.
func ThreeWay[T comparable](common, local, remote T) T {
	return ThreeWayFunc(common, local, remote, Equal[T])
}

// ThreeWayFunc merges values using eq for all comparisons.
//
//	local == remote                -> local (converged)
//	local != common                -> local (local edit, also on conflict)
//	local == common, remote differs -> remote
func ThreeWayFunc[T any](common, local, remote T, eq func(a, b T) bool) T {
	return ThreeWayBase(KnownBase(common), local, remote, eq)
}

// ThreeWayBase merges values against a possibly unknown ancestor. Without an
// ancestor nothing can be attributed to the server, so local is kept.
func ThreeWayBase[T any](base Base[T], local, remote T, eq func(a, b T) bool) T {
	if eq(local, remote) {
		return local
	}
	if !base.Known {
		return local
	}
	if !eq(local, base.Value) {
		return local
	}
	return remote
}

// Equal compares two comparable values with ==.
func Equal[T comparable](a, b T) bool {
	return a == b
}

// PtrEqual compares two optional values by the value they point to.
func PtrEqual[T comparable](a, b *T) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// TimeEqual compares two instants regardless of location.
func TimeEqual(a, b time.Time) bool {
	return a.Equal(b)
}

// SetEqual reports whether a and b contain the same elements. Order and
// duplicates are ignored and a nil slice equals an empty one.
func SetEqual[T comparable](a, b []T) bool {
	as := make(map[T]struct{}, len(a))
	for _, v := range a {
		as[v] = struct{}{}
	}
	bs := make(map[T]struct{}, len(b))
	for _, v := range b {
		if _, ok := as[v]; !ok {
			return false
		}
		bs[v] = struct{}{}
	}
	return len(as) == len(bs)
}
