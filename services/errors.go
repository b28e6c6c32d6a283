package services

import "errors"

var (
	// ErrValidation marks input that failed a required-field or range check.
	// Nothing was changed.
	ErrValidation = errors.New("validation failed")

	// ErrParentNotFound is returned by create operations whose parent goal or
	// key result does not exist. No orphan is inserted.
	ErrParentNotFound = errors.New("parent not found")

	// ErrPersistence means the mutation was applied in memory but the snapshot
	// could not be saved. Memory and storage stay diverged until the next
	// successful save or reload.
	ErrPersistence = errors.New("persistence failed")

	// ErrLoadIntegrity means no load has succeeded yet, so the session refuses
	// to mutate or save and cannot overwrite stored data with an empty state.
	ErrLoadIntegrity = errors.New("snapshot not loaded")
)
