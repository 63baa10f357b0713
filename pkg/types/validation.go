package types

import (
	"strings"
	"time"
)

// NewPoll validates a createPoll request and builds the active poll from it.
// A zero duration selects defaultDuration. Validation is all-or-nothing: no
// poll is produced on any error.
//
// The "exactly one correct answer" rule is a producer-side concern; the
// request arrives with the correct answer already resolved to a single value
// and only membership in the option list is checked here.
func NewPoll(req *CreatePollRequest, defaultDuration int, now time.Time) (*Poll, error) {
	if strings.TrimSpace(req.Question) == "" {
		return nil, ErrEmptyQuestion
	}

	if len(req.Options) < 2 {
		return nil, ErrTooFewOptions
	}

	seen := make(map[string]bool, len(req.Options))
	for _, option := range req.Options {
		if strings.TrimSpace(option) == "" {
			return nil, ErrBlankOption
		}
		// Exact duplicates rejected here; case-insensitive dedup belongs to
		// the option-authoring surface.
		if seen[option] {
			return nil, ErrDuplicateOption
		}
		seen[option] = true
	}

	if req.CorrectAnswer != "" && !seen[req.CorrectAnswer] {
		return nil, ErrInvalidCorrectAnswer
	}

	duration := req.Timer
	if duration == 0 {
		duration = defaultDuration
	}
	if duration <= 0 {
		return nil, ErrInvalidDuration
	}

	return &Poll{
		Question:      req.Question,
		Options:       append([]string(nil), req.Options...),
		CorrectAnswer: req.CorrectAnswer,
		Duration:      duration,
		CreatedAt:     now,
		Status:        PollStatusActive,
	}, nil
}

// ValidateStudentName checks a joinAsStudent display name.
func ValidateStudentName(name string) error {
	if strings.TrimSpace(name) == "" {
		return ErrInvalidStudentName
	}
	return nil
}
