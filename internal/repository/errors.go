package repository

import "errors"

var (
	// ErrNotFound is returned when a requested entity does not exist.
	ErrNotFound = errors.New("entity not found")

	// ErrVersionConflict is returned when an update was based on a stale read.
	ErrVersionConflict = errors.New("entity was modified concurrently")
)
