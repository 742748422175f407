package repository

import "errors"

// ErrAlreadyExists indicates a record with the same identifier already exists.
// Storage implementations return it so callers can match with errors.Is.
var ErrAlreadyExists = errors.New("already exists")
