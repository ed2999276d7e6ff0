package dispute

import "errors"

// ErrNotFound is returned when the referenced infraction or thread is absent.
var ErrNotFound = errors.New("infraction or thread not found")

// ErrNotAParticipant is returned when an identity outside the thread's bound
// participants tries to read or write it.
var ErrNotAParticipant = errors.New("not a thread participant")

// ErrThreadClosed is returned when a message is sent to a closed thread.
var ErrThreadClosed = errors.New("thread is closed")

// ErrNotLeague is returned when a non-league participant attempts a
// league-only action such as closing the thread.
var ErrNotLeague = errors.New("action requires league role")

// ErrInvalidTransition is returned on an illegal infraction status change.
var ErrInvalidTransition = errors.New("invalid infraction status transition")
