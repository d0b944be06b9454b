// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as handlers to
// distinguish between different failure scenarios without string matching.
package repository

import (
	"errors"
	"strings"
)

// ErrEmailExists is returned when an INSERT into users trips the unique email
// index. The index is the sole source of truth for duplicates; there is no
// check-then-act SELECT beforehand.
var ErrEmailExists = errors.New("email already exists")

// ErrNotFound is returned when a requested row does not exist. Handlers
// translate this into an HTTP 404 response.
var ErrNotFound = errors.New("not found")

// ErrConflict is returned when an operation cannot proceed because of
// dependent state, such as deleting a property that still has active
// maintenance requests. Handlers translate this into HTTP 409.
var ErrConflict = errors.New("conflict")

// isDuplicate reports whether err is the MySQL duplicate-key error (1062).
func isDuplicate(err error) bool {
	return err != nil && strings.Contains(err.Error(), "1062")
}
