package types

import "errors"

// Validation errors for poll creation and join requests.
var (
	ErrEmptyQuestion        = errors.New("poll question cannot be empty")
	ErrTooFewOptions        = errors.New("poll requires at least 2 options")
	ErrBlankOption          = errors.New("poll options cannot be blank")
	ErrDuplicateOption      = errors.New("poll options must be distinct")
	ErrInvalidCorrectAnswer = errors.New("correct answer must be one of the options")
	ErrInvalidDuration      = errors.New("poll duration must be a positive number of seconds")
	ErrInvalidStudentName   = errors.New("student name is required")
)
