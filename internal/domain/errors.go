package domain

import "errors"

var (
	ErrInvalidID        = errors.New("invalid id")
	ErrInvalidLabel     = errors.New("invalid label")
	ErrInvalidColumnKey = errors.New("invalid column key")
	ErrInvalidPosition  = errors.New("invalid position")
	ErrInvalidPeriod    = errors.New("invalid statistics period")
	ErrInvalidSnooze    = errors.New("invalid snooze time")
	ErrNoRecipients     = errors.New("at least one recipient is required")
	ErrDefaultColumn    = errors.New("default columns cannot be deleted")
	ErrCardNotFound     = errors.New("card not found")
	ErrUnknownColumn    = errors.New("unknown column")

	ErrInvalidCredentials = errors.New("email and password are required")
)
