package repositories

import "errors"

// ErrTermNotFound is returned when no term matches the given name.
var ErrTermNotFound = errors.New("term not found")

// ErrUserNotFound is returned when no user matches the given name.
// Callers use this to distinguish a bad username (a validation problem)
// from a storage failure.
var ErrUserNotFound = errors.New("user not found")
