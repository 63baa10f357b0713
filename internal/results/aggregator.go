// Package results computes vote tallies. Compute is a pure function of its
// inputs: no side effects, safe to call from anywhere on any snapshot of
// poll and ledger state.
package results

import (
	"livepoll/pkg/types"
)

// Compute tallies answers against the poll's options. Every option appears
// in PerOption, zero-initialized, so clients can render a complete chart.
// Answers whose choice is not a current option are ignored rather than
// counted, guarding against stale ledger entries. A nil poll yields an empty
// snapshot.
func Compute(poll *types.Poll, answers []types.Answer, totalStudents int) types.ResultsSnapshot {
	snapshot := types.ResultsSnapshot{
		PerOption:     make(map[string]int),
		TotalStudents: totalStudents,
	}
	if poll == nil {
		return snapshot
	}

	for _, option := range poll.Options {
		snapshot.PerOption[option] = 0
	}

	for _, answer := range answers {
		if _, ok := snapshot.PerOption[answer.Choice]; ok {
			snapshot.PerOption[answer.Choice]++
		}
	}
	snapshot.TotalVotes = len(answers)

	return snapshot
}
