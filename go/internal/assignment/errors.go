package assignment

import "errors"

// ErrNotFound is returned when the referenced assignment does not exist.
var ErrNotFound = errors.New("assignment not found")

// ErrDuplicateAssignment is returned when the referee already holds a
// non-terminal assignment for the same game.
var ErrDuplicateAssignment = errors.New("duplicate assignment for referee and game")

// ErrInvalidTransition is returned when an illegal status change is
// attempted, including losing a race against a concurrent actor.
var ErrInvalidTransition = errors.New("invalid assignment status transition")

// ErrNotNoteOwner is returned when a referee touches a note they do not own.
var ErrNotNoteOwner = errors.New("note does not belong to referee")
