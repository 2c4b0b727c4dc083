// Package storage holds the Postgres persistence layer. Each concern gets its
// own narrow store interface so consumers depend only on the queries they run.
package storage

import "errors"

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("storage: not found")
