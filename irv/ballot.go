// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package irv

import "fmt"

// Ballot is one voter's ordered ranking of choices, most preferred first.
// Ballots are immutable after construction; the engine tracks its own read
// cursor per run so repeated tabulations over the same ballots are
// identical.
type Ballot struct {
	voter   string
	entries []Choice
}

// NewBallot validates and constructs a ballot. The ranking must be
// non-empty, entries must be pairwise distinct, and a special value may
// only appear once, in the final position.
func NewBallot(voter string, entries []Choice) (*Ballot, error) {
	b := &Ballot{voter: voter, entries: append([]Choice(nil), entries...)}
	if err := b.validate(); err != nil {
		return nil, err
	}
	return b, nil
}

// Voter returns the identifier of the voter who cast this ballot.
func (b *Ballot) Voter() string {
	return b.voter
}

// Entries returns a copy of the ballot's ranking.
func (b *Ballot) Entries() []Choice {
	return append([]Choice(nil), b.entries...)
}

func (b *Ballot) validate() error {
	if len(b.entries) == 0 {
		return fmt.Errorf("%w: ranking is empty", ErrMalformedBallot)
	}

	seen := make(map[Choice]bool, len(b.entries))
	for i, entry := range b.entries {
		if !entry.Valid() {
			return fmt.Errorf("%w: entry %d is not an option or special value", ErrMalformedBallot, i)
		}
		if seen[entry] {
			return fmt.Errorf("%w: duplicate ranking entry %s", ErrMalformedBallot, entry)
		}
		seen[entry] = true

		if entry.IsSpecial() && i != len(b.entries)-1 {
			return fmt.Errorf("%w: special value %s must be the final entry", ErrMalformedBallot, entry)
		}
	}

	return nil
}

// nextActive scans the ranking from cursor for the first entry that is
// either a still-active option or a special value, skipping entries for
// options eliminated in earlier rounds. It returns the effective choice,
// the cursor position it was found at, and false if the ballot is
// exhausted. The returned cursor never moves backward, so a ballot's
// influence only narrows across rounds.
func (b *Ballot) nextActive(cursor int, active map[Option]bool) (Choice, int, bool) {
	for ; cursor < len(b.entries); cursor++ {
		entry := b.entries[cursor]
		if entry.IsSpecial() || active[entry.AsOption()] {
			return entry, cursor, true
		}
	}
	return 0, cursor, false
}
