package entities

import "time"

type Outcome string

const (
	OutcomeTie     Outcome = "tie"
	OutcomeYesWins Outcome = "yes_wins"
	OutcomeNoWins  Outcome = "no_wins"
)

// Proposal is a named, time-boxed decision item. IDs are assigned in
// creation order starting at 0 and are never reused. Openness is always
// derived from the stored deadline, never cached as a flag.
type Proposal struct {
	ID          uint64
	Name        string
	Chairman    string
	Deadline    time.Time
	VotesForYes uint64
	VotesForNo  uint64
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Open reports whether voting is still allowed at the supplied instant.
// The deadline itself is closed: Open is false once now >= deadline.
func (p Proposal) Open(now time.Time) bool {
	return now.UTC().Before(p.Deadline.UTC())
}

// SecondsRemaining is deadline minus now in whole seconds. The value goes
// negative once the proposal is closed; callers use the sign to tell
// "seconds left" from "seconds past close".
func (p Proposal) SecondsRemaining(now time.Time) int64 {
	return int64(p.Deadline.UTC().Sub(now.UTC()) / time.Second)
}

// Outcome compares the accumulated tallies. A proposal with no votes at
// all is a tie by the same rule (0 == 0).
func (p Proposal) Outcome() Outcome {
	switch {
	case p.VotesForYes == p.VotesForNo:
		return OutcomeTie
	case p.VotesForYes > p.VotesForNo:
		return OutcomeYesWins
	default:
		return OutcomeNoWins
	}
}
