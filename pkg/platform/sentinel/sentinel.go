// Package sentinel holds the errors stores use to report facts about state.
//
// A store answers "was it there?" and "did a uniqueness rule block the
// write?"; it never speaks HTTP or domain-error codes. Services translate
// these at the boundary: ErrNotFound on a user lookup becomes CodeNotFound,
// ErrConflict on a second deletion request becomes CodeConflict, and so on.
// Validation failures never use these; they go straight to pkg/domain-errors.
package sentinel

import "errors"

var (
	// ErrNotFound: the entity does not exist in the store. Wrapped with
	// detail at the call site, matched with errors.Is.
	ErrNotFound = errors.New("not found")

	// ErrConflict: a uniqueness rule blocked the write, such as a second
	// pending deletion for the same user or a duplicate registration.
	ErrConflict = errors.New("conflict")
)
