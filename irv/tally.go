// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package irv

// ballotState is the engine's per-run view of one ballot: the read cursor
// into its first still-active entry, and whether the ballot has reached a
// withdrawal. Keeping this outside Ballot leaves ballots immutable across
// tabulation calls.
type ballotState struct {
	ballot    *Ballot
	cursor    int
	withdrawn bool
}

// roundTally is the result of counting every ballot's current effective
// choice for one round.
type roundTally struct {
	counts    map[Option]int
	abstain   int
	exhausted int
	withdrawn int
}

// tallyRound computes each ballot's current effective choice against the
// active option set and buckets it. Withdrawn ballots contribute nothing
// from the round they withdraw onward; abstaining ballots are counted in
// the informational abstain bucket every round they are current.
func tallyRound(states []*ballotState, active map[Option]bool) roundTally {
	tally := roundTally{counts: make(map[Option]int, len(active))}

	for _, state := range states {
		if state.withdrawn {
			tally.withdrawn++
			continue
		}

		choice, cursor, ok := state.ballot.nextActive(state.cursor, active)
		state.cursor = cursor
		if !ok {
			tally.exhausted++
			continue
		}

		switch {
		case choice == Withdrawn:
			state.withdrawn = true
			tally.withdrawn++
		case choice == Abstain:
			tally.abstain++
		default:
			tally.counts[choice.AsOption()]++
		}
	}

	return tally
}

// lowest returns every active option tied at the strictly lowest tally.
// Options nobody currently ranks count as zero.
func (t roundTally) lowest(active []Option) []Option {
	if len(active) == 0 {
		return nil
	}

	min := t.counts[active[0]]
	for _, opt := range active[1:] {
		if t.counts[opt] < min {
			min = t.counts[opt]
		}
	}

	var tied []Option
	for _, opt := range active {
		if t.counts[opt] == min {
			tied = append(tied, opt)
		}
	}
	return tied
}
