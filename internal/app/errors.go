package app

import "errors"

// ErrNotFound and related errors describe validation and runtime failures.
var (
	ErrNotFound      = errors.New("not found")
	ErrEmptyQuery    = errors.New("search query is required")
	ErrInvalidLimit  = errors.New("limit must be positive")
	ErrNotLoggedIn   = errors.New("not logged in")
	ErrMoveUnchanged = errors.New("card is already in that column")
	ErrColumnBusy    = errors.New("another column change is still saving")
)
