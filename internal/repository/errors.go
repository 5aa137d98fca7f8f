package repository

import "github.com/go-faster/errors"

var (
	ErrNotFound       = errors.New("record not found")
	ErrAlreadyExists  = errors.New("record already exists")
	ErrEmailTaken     = errors.New("email already registered")
	ErrEmailChange    = errors.New("email can only change through a full update")
	ErrUnknownCourse  = errors.New("unknown course")
	ErrUnknownCompany = errors.New("unknown company")
	ErrInvalid        = errors.New("invalid record")
	// ErrConflict is returned when a write keeps losing to concurrent writers.
	ErrConflict = errors.New("concurrent modification")
)
