package ledger

import "errors"

// Submission rejections. All leave the ledger unchanged.
var (
	ErrNoActivePoll    = errors.New("no active poll")
	ErrAlreadyAnswered = errors.New("participant has already answered this poll")
	ErrInvalidChoice   = errors.New("choice is not one of the poll options")
)
