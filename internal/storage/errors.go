package storage

import "errors"

var (
	// ErrDuplicate is returned when attempting to create a spot whose ID already exists.
	ErrDuplicate = errors.New("spot already exists")

	// ErrNotFound is returned when a spot is not found.
	ErrNotFound = errors.New("spot not found")

	// ErrCorruptRecord is returned when a stored row cannot be decoded.
	ErrCorruptRecord = errors.New("stored spot is corrupt")
)
