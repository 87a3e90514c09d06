// Package common defines sentinel errors shared across repository and
// service layers. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// ErrNotFound is returned when a row does not exist or belongs to a
	// different user. The two cases are deliberately indistinguishable.
	ErrNotFound = errors.New("not found")

	// ErrDuplicate is returned when an insert violates the per-user
	// card-number uniqueness constraint.
	ErrDuplicate = errors.New("already exists")
)
