// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package irv implements instant-runoff (ranked-choice) tabulation.

The engine is a pure in-memory computation: it receives a snapshot of
validated ballots plus the size of the eligible electorate, runs tally
rounds until a winner emerges or the field is exhausted, and returns an
Outcome. It performs no I/O and holds no state across calls, so concurrent
tabulations need no locking.

# Choices

Every ranking entry is a Choice: a positive Option identifier, or one of
two reserved negative special values:

  - Abstain (textual "0"): the voter prefers none of the remaining options.
    Counted in an informational bucket each round it is current; stays in
    the majority denominator.
  - Withdrawn (textual "nil"): the voter removes themselves from the
    electorate. The ballot contributes nothing from that round on and the
    majority denominator shrinks by one.

# Tabulation

Each round counts every ballot's first still-active choice. An option wins
by strictly exceeding half of the effective electorate (eligible voters
minus withdrawn ballots), not merely half of the ballots still expressing
a preference. With no majority, all options tied at the lowest tally are
eliminated simultaneously and their ballots advance to their next active
choice. Eliminating the entire remaining field, or running out of options,
terminates with no winner.

	outcome, err := irv.Tabulate(options, ballots, electorateSize)
	if err != nil { ... }
	if outcome.HasWinner {
		fmt.Println("winner:", outcome.Winner)
	}

NoWinner is an expected result (a true tie, or nobody reaching a
majority), not an error. Errors are reserved for invalid input: malformed
ballots, unknown options, duplicate voters, or an electorate smaller than
the set of voters who cast ballots.
*/
package irv
