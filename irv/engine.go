// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package irv

import (
	"errors"
	"fmt"
	"sort"
)

var (
	// ErrMalformedBallot marks a ballot violating ranking integrity:
	// empty, duplicate entries, or a special value before the end.
	ErrMalformedBallot = errors.New("malformed ballot")

	// ErrUnknownOption marks a ballot entry naming an option outside the
	// poll's declared option set.
	ErrUnknownOption = errors.New("unknown option")

	// ErrDuplicateVoter marks more than one ballot for the same voter in
	// a single tabulation. Deduplication is the caller's job; the engine
	// refuses rather than guessing which ballot is current.
	ErrDuplicateVoter = errors.New("duplicate voter")

	// ErrInvalidElectorateSize marks an electorate that is negative or
	// smaller than the number of voters who cast ballots.
	ErrInvalidElectorateSize = errors.New("invalid electorate size")
)

// Round records one tally pass for callers that want to persist or display
// the round-by-round breakdown.
type Round struct {
	Number     int            `json:"number"`
	Tallies    map[Option]int `json:"tallies"`
	Abstain    int            `json:"abstain"`
	Exhausted  int            `json:"exhausted"`
	Withdrawn  int            `json:"withdrawn"`
	Eliminated []Option       `json:"eliminated,omitempty"`
}

// Outcome is the terminal result of a tabulation run: either a single
// winning option or no winner, plus the rounds that led there.
type Outcome struct {
	Winner    Option  `json:"winner,omitempty"`
	HasWinner bool    `json:"has_winner"`
	Rounds    []Round `json:"rounds"`
}

// Tabulate runs instant-runoff rounds over the supplied ballots until an
// option commands a strict majority of the effective electorate or no
// winner can exist. electorateSize is the total number of eligible voters;
// it may exceed the ballot count since non-voters still count toward the
// majority denominator.
//
// The input is validated up front and any invalid ballot fails the whole
// invocation; a NoWinner outcome is not an error.
func Tabulate(options []Option, ballots []*Ballot, electorateSize int) (Outcome, error) {
	states, err := checkInput(options, ballots, electorateSize)
	if err != nil {
		return Outcome{}, err
	}

	active := make(map[Option]bool, len(options))
	activeList := make([]Option, 0, len(options))
	for _, opt := range options {
		if !active[opt] {
			active[opt] = true
			activeList = append(activeList, opt)
		}
	}
	sort.Slice(activeList, func(i, j int) bool { return activeList[i] < activeList[j] })

	var outcome Outcome
	totalWithdrawn := 0

	for round := 1; ; round++ {
		tally := tallyRound(states, active)
		totalWithdrawn = tally.withdrawn

		record := Round{
			Number:    round,
			Tallies:   make(map[Option]int, len(activeList)),
			Abstain:   tally.abstain,
			Exhausted: tally.exhausted,
			Withdrawn: tally.withdrawn,
		}
		for _, opt := range activeList {
			record.Tallies[opt] = tally.counts[opt]
		}

		// Withdrawn voters have left the electorate; everyone else,
		// including abstainers and exhausted ballots, stays in the
		// denominator.
		effective := electorateSize - totalWithdrawn

		if winner, found := majority(tally, activeList, effective); found {
			outcome.Winner = winner
			outcome.HasWinner = true
			outcome.Rounds = append(outcome.Rounds, record)
			return outcome, nil
		}

		if len(activeList) <= 1 {
			outcome.Rounds = append(outcome.Rounds, record)
			return outcome, nil
		}

		eliminated := tally.lowest(activeList)
		if len(eliminated) == len(activeList) {
			// All remaining options tied at the lowest tally; refusing
			// to eliminate the whole field terminates with no winner.
			outcome.Rounds = append(outcome.Rounds, record)
			return outcome, nil
		}

		record.Eliminated = eliminated
		outcome.Rounds = append(outcome.Rounds, record)

		for _, opt := range eliminated {
			delete(active, opt)
		}
		remaining := activeList[:0]
		for _, opt := range activeList {
			if active[opt] {
				remaining = append(remaining, opt)
			}
		}
		activeList = remaining

		// A lone survivor does not get a redistribution round: it had its
		// majority chance while the field was still competitive. Reaching
		// here with one option left means nobody commanded the electorate.
		if len(activeList) <= 1 {
			return outcome, nil
		}
	}
}

// majority returns the option whose tally strictly exceeds half the
// effective electorate, if any. At most one option can qualify.
func majority(tally roundTally, active []Option, effective int) (Option, bool) {
	for _, opt := range active {
		if 2*tally.counts[opt] > effective {
			return opt, true
		}
	}
	return 0, false
}

// checkInput validates every precondition in one pass and builds the
// engine's per-ballot state.
func checkInput(options []Option, ballots []*Ballot, electorateSize int) ([]*ballotState, error) {
	if electorateSize < 0 {
		return nil, fmt.Errorf("%w: %d is negative", ErrInvalidElectorateSize, electorateSize)
	}

	declared := make(map[Option]bool, len(options))
	for _, opt := range options {
		declared[opt] = true
	}

	states := make([]*ballotState, 0, len(ballots))
	voters := make(map[string]bool, len(ballots))
	for _, ballot := range ballots {
		if err := ballot.validate(); err != nil {
			return nil, fmt.Errorf("voter %q: %w", ballot.voter, err)
		}
		if voters[ballot.voter] {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateVoter, ballot.voter)
		}
		voters[ballot.voter] = true

		for _, entry := range ballot.entries {
			if entry.IsOption() && !declared[entry.AsOption()] {
				return nil, fmt.Errorf("%w: voter %q ranked option %d", ErrUnknownOption, ballot.voter, entry.AsOption())
			}
		}

		states = append(states, &ballotState{ballot: ballot})
	}

	if electorateSize < len(voters) {
		return nil, fmt.Errorf("%w: %d is smaller than the %d voters who cast ballots",
			ErrInvalidElectorateSize, electorateSize, len(voters))
	}

	return states, nil
}
