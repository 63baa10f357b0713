package ledger

import (
	"livepoll/internal/common/clock"
	"livepoll/pkg/types"
)

// Ledger records one answer per participant for the lifetime of a single
// poll. Entries are keyed by participant connection id; a second submission
// from the same participant is rejected, never overwritten. Like the
// registry, the ledger is owned by the coordinator's event timeline and
// carries no locking of its own.
type Ledger struct {
	answers map[string]*types.Answer
	clock   clock.Clock
}

// New creates an empty ledger.
func New(clk clock.Clock) *Ledger {
	if clk == nil {
		clk = &clock.DefaultClock{}
	}
	return &Ledger{
		answers: make(map[string]*types.Answer),
		clock:   clk,
	}
}

// Reset clears all entries. Called exactly once per poll, at creation; the
// ledger is cleared, not merged.
func (l *Ledger) Reset() {
	l.answers = make(map[string]*types.Answer)
}

// Submit validates and records a participant's choice against the given
// poll. Validate-then-apply: nothing is recorded on any rejection.
func (l *Ledger) Submit(participantID, studentName, choice string, poll *types.Poll) error {
	if poll == nil || poll.Status != types.PollStatusActive {
		return ErrNoActivePoll
	}
	if l.Has(participantID) {
		return ErrAlreadyAnswered
	}
	if !poll.HasOption(choice) {
		return ErrInvalidChoice
	}

	l.answers[participantID] = &types.Answer{
		ParticipantID: participantID,
		StudentName:   studentName,
		Choice:        choice,
		SubmittedAt:   l.clock.Now(),
	}
	return nil
}

// Has reports whether the participant has answered the current poll.
func (l *Ledger) Has(participantID string) bool {
	_, ok := l.answers[participantID]
	return ok
}

// Size returns the number of recorded answers. This is the numerator of the
// completion check.
func (l *Ledger) Size() int {
	return len(l.answers)
}

// Remove purges the pending answer for a participant, if any. Called when a
// participant disconnects or is kicked so the completion check sees a
// consistent numerator and denominator.
func (l *Ledger) Remove(participantID string) {
	delete(l.answers, participantID)
}

// Answers returns a copy of all recorded answers for aggregation.
func (l *Ledger) Answers() []types.Answer {
	out := make([]types.Answer, 0, len(l.answers))
	for _, a := range l.answers {
		out = append(out, *a)
	}
	return out
}
