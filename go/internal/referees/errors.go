package referees

import "errors"

// ErrNotFound is returned when the referenced profile does not exist.
var ErrNotFound = errors.New("referee profile not found")

// ErrNotProfileOwner is returned when a non-owner edits a profile.
var ErrNotProfileOwner = errors.New("profile does not belong to principal")

// ErrNotAdmin is returned when verification is attempted by a non-admin.
var ErrNotAdmin = errors.New("verification requires admin role")
