// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package irv

import (
	"errors"
	"reflect"
	"testing"
)

func mustBallot(t *testing.T, voter string, entries ...Choice) *Ballot {
	t.Helper()
	b, err := NewBallot(voter, entries)
	if err != nil {
		t.Fatalf("Failed to build ballot for %s: %v", voter, err)
	}
	return b
}

func TestTabulateImmediateMajority(t *testing.T) {
	// Two of three eligible voters rank option 1 first: 2*2 > 3
	options := []Option{1, 2}
	ballots := []*Ballot{
		mustBallot(t, "alice", 1),
		mustBallot(t, "bob", 1),
		mustBallot(t, "carol", 2),
	}

	outcome, err := Tabulate(options, ballots, 3)
	if err != nil {
		t.Fatalf("Tabulate failed: %v", err)
	}

	if !outcome.HasWinner {
		t.Fatal("Expected a winner")
	}
	if outcome.Winner != 1 {
		t.Errorf("Expected option 1 to win, got %d", outcome.Winner)
	}
	if len(outcome.Rounds) != 1 {
		t.Fatalf("Expected 1 round, got %d", len(outcome.Rounds))
	}

	round := outcome.Rounds[0]
	if round.Tallies[1] != 2 || round.Tallies[2] != 1 {
		t.Errorf("Unexpected round 1 tallies: %v", round.Tallies)
	}
}

func TestTabulateSimultaneousEliminationEndsWithoutWinner(t *testing.T) {
	// Round 1: option 1 has 2 votes (not a majority of 4), options 2 and
	// 3 are tied lowest at 1 and both go. The lone survivor does not get
	// a redistribution round, so the poll ends with no winner.
	options := []Option{1, 2, 3}
	ballots := []*Ballot{
		mustBallot(t, "alice", 1, 2, 3),
		mustBallot(t, "bob", 1, 2, 3),
		mustBallot(t, "carol", 2, 3, 1),
		mustBallot(t, "dave", 3, 1, 2),
	}

	outcome, err := Tabulate(options, ballots, 4)
	if err != nil {
		t.Fatalf("Tabulate failed: %v", err)
	}

	if outcome.HasWinner {
		t.Fatalf("Expected no winner, got option %d", outcome.Winner)
	}
	if len(outcome.Rounds) != 1 {
		t.Fatalf("Expected 1 round, got %d", len(outcome.Rounds))
	}

	eliminated := outcome.Rounds[0].Eliminated
	if len(eliminated) != 2 {
		t.Fatalf("Expected 2 simultaneous eliminations, got %v", eliminated)
	}
	if !(eliminated[0] == 2 && eliminated[1] == 3) {
		t.Errorf("Expected options 2 and 3 eliminated, got %v", eliminated)
	}
}

func TestTabulateMultiRoundRedistribution(t *testing.T) {
	// Round 1: 1=2, 2=2, 3=1; option 3 eliminated.
	// Round 2: eve's ballot falls through to option 1, giving it 3 of 5.
	options := []Option{1, 2, 3}
	ballots := []*Ballot{
		mustBallot(t, "alice", 1),
		mustBallot(t, "bob", 1),
		mustBallot(t, "carol", 2),
		mustBallot(t, "dave", 2),
		mustBallot(t, "eve", 3, 1),
	}

	outcome, err := Tabulate(options, ballots, 5)
	if err != nil {
		t.Fatalf("Tabulate failed: %v", err)
	}

	if !outcome.HasWinner || outcome.Winner != 1 {
		t.Fatalf("Expected option 1 to win, got %+v", outcome)
	}
	if len(outcome.Rounds) != 2 {
		t.Fatalf("Expected 2 rounds, got %d", len(outcome.Rounds))
	}

	first := outcome.Rounds[0]
	if !reflect.DeepEqual(first.Eliminated, []Option{3}) {
		t.Errorf("Expected option 3 eliminated in round 1, got %v", first.Eliminated)
	}

	second := outcome.Rounds[1]
	if second.Tallies[1] != 3 {
		t.Errorf("Expected redistributed tally of 3 for option 1, got %d", second.Tallies[1])
	}
	if _, present := second.Tallies[3]; present {
		t.Error("Eliminated option 3 should not appear in round 2 tallies")
	}
}

func TestTabulateFullFieldTieNoWinner(t *testing.T) {
	// Both options tied at the lowest tally: eliminating everyone is
	// refused, the run ends with no winner.
	options := []Option{1, 2}
	ballots := []*Ballot{
		mustBallot(t, "alice", 1),
		mustBallot(t, "bob", 2),
	}

	outcome, err := Tabulate(options, ballots, 2)
	if err != nil {
		t.Fatalf("Tabulate failed: %v", err)
	}

	if outcome.HasWinner {
		t.Fatalf("Expected no winner, got option %d", outcome.Winner)
	}
	if len(outcome.Rounds) != 1 {
		t.Fatalf("Expected 1 round, got %d", len(outcome.Rounds))
	}
	if len(outcome.Rounds[0].Eliminated) != 0 {
		t.Errorf("Wipe-out round should eliminate nobody, got %v", outcome.Rounds[0].Eliminated)
	}
}

func TestTabulateAbstainStaysInDenominator(t *testing.T) {
	// Alice's fallback is an abstention: after option 1 goes, her ballot
	// counts in the abstain bucket but never for an option, and she
	// still counts toward the majority denominator.
	options := []Option{1, 2, 3}
	ballots := []*Ballot{
		mustBallot(t, "alice", 1, Abstain),
		mustBallot(t, "bob", 2),
		mustBallot(t, "carol", 2),
		mustBallot(t, "dave", 3),
		mustBallot(t, "eve", 3),
	}

	outcome, err := Tabulate(options, ballots, 5)
	if err != nil {
		t.Fatalf("Tabulate failed: %v", err)
	}

	if outcome.HasWinner {
		t.Fatalf("Expected no winner, got option %d", outcome.Winner)
	}
	if len(outcome.Rounds) != 2 {
		t.Fatalf("Expected 2 rounds, got %d", len(outcome.Rounds))
	}

	second := outcome.Rounds[1]
	if second.Abstain != 1 {
		t.Errorf("Expected 1 abstention in round 2, got %d", second.Abstain)
	}
	// 2 votes each of an effective electorate of 5 is not a majority
	if second.Tallies[2] != 2 || second.Tallies[3] != 2 {
		t.Errorf("Unexpected round 2 tallies: %v", second.Tallies)
	}
}

func TestTabulateWithdrawnShrinksElectorate(t *testing.T) {
	// With carol withdrawn the effective electorate is 3, so option 1's
	// 2 votes clear the majority bar that 4 eligible voters would not.
	options := []Option{1, 2}
	ballots := []*Ballot{
		mustBallot(t, "alice", 1),
		mustBallot(t, "bob", 1),
		mustBallot(t, "carol", Withdrawn),
		mustBallot(t, "dave", 2),
	}

	outcome, err := Tabulate(options, ballots, 4)
	if err != nil {
		t.Fatalf("Tabulate failed: %v", err)
	}

	if !outcome.HasWinner || outcome.Winner != 1 {
		t.Fatalf("Expected option 1 to win, got %+v", outcome)
	}
	if outcome.Rounds[0].Withdrawn != 1 {
		t.Errorf("Expected 1 withdrawal, got %d", outcome.Rounds[0].Withdrawn)
	}
}

func TestTabulateWithdrawalAfterElimination(t *testing.T) {
	// Alice's fallback is a withdrawal: once option 1 is eliminated she
	// leaves the electorate, dropping the denominator to 5 in round 2.
	options := []Option{1, 2, 3}
	ballots := []*Ballot{
		mustBallot(t, "alice", 1, Withdrawn),
		mustBallot(t, "bob", 2),
		mustBallot(t, "carol", 2),
		mustBallot(t, "dave", 2),
		mustBallot(t, "eve", 3),
		mustBallot(t, "frank", 3),
	}

	outcome, err := Tabulate(options, ballots, 6)
	if err != nil {
		t.Fatalf("Tabulate failed: %v", err)
	}

	if !outcome.HasWinner || outcome.Winner != 2 {
		t.Fatalf("Expected option 2 to win, got %+v", outcome)
	}
	if len(outcome.Rounds) != 2 {
		t.Fatalf("Expected 2 rounds, got %d", len(outcome.Rounds))
	}
	if outcome.Rounds[0].Withdrawn != 0 {
		t.Errorf("Expected no withdrawals in round 1, got %d", outcome.Rounds[0].Withdrawn)
	}
	if outcome.Rounds[1].Withdrawn != 1 {
		t.Errorf("Expected 1 withdrawal in round 2, got %d", outcome.Rounds[1].Withdrawn)
	}
}

func TestTabulateZeroBallots(t *testing.T) {
	// Nobody voted: every option ties at zero, so the run ends with no
	// winner rather than an error.
	outcome, err := Tabulate([]Option{1, 2}, nil, 3)
	if err != nil {
		t.Fatalf("Tabulate failed: %v", err)
	}

	if outcome.HasWinner {
		t.Fatalf("Expected no winner, got option %d", outcome.Winner)
	}
}

func TestTabulateSingleOption(t *testing.T) {
	options := []Option{1}

	// Majority of the electorate: winner
	outcome, err := Tabulate(options, []*Ballot{
		mustBallot(t, "alice", 1),
		mustBallot(t, "bob", 1),
	}, 3)
	if err != nil {
		t.Fatalf("Tabulate failed: %v", err)
	}
	if !outcome.HasWinner || outcome.Winner != 1 {
		t.Fatalf("Expected option 1 to win, got %+v", outcome)
	}

	// One vote of three eligible is not a majority
	outcome, err = Tabulate(options, []*Ballot{
		mustBallot(t, "alice", 1),
	}, 3)
	if err != nil {
		t.Fatalf("Tabulate failed: %v", err)
	}
	if outcome.HasWinner {
		t.Fatalf("Expected no winner, got option %d", outcome.Winner)
	}
}

func TestTabulateIdempotent(t *testing.T) {
	// Repeated runs over the same ballots must agree: the engine keeps
	// no state in the ballots between invocations.
	options := []Option{1, 2, 3}
	ballots := []*Ballot{
		mustBallot(t, "alice", 1, 3),
		mustBallot(t, "bob", 2, 3),
		mustBallot(t, "carol", 3, 1),
		mustBallot(t, "dave", 1),
	}

	first, err := Tabulate(options, ballots, 5)
	if err != nil {
		t.Fatalf("First Tabulate failed: %v", err)
	}
	second, err := Tabulate(options, ballots, 5)
	if err != nil {
		t.Fatalf("Second Tabulate failed: %v", err)
	}

	if !reflect.DeepEqual(first, second) {
		t.Errorf("Outcomes differ between runs:\n%+v\n%+v", first, second)
	}
}

func TestTabulateInputErrors(t *testing.T) {
	options := []Option{1, 2}

	tests := []struct {
		name           string
		ballots        []*Ballot
		electorateSize int
		wantErr        error
	}{
		{
			name: "duplicate voter",
			ballots: []*Ballot{
				mustBallot(t, "alice", 1),
				mustBallot(t, "alice", 2),
			},
			electorateSize: 3,
			wantErr:        ErrDuplicateVoter,
		},
		{
			name: "unknown option",
			ballots: []*Ballot{
				mustBallot(t, "alice", 1, 7),
			},
			electorateSize: 3,
			wantErr:        ErrUnknownOption,
		},
		{
			name:           "negative electorate",
			ballots:        nil,
			electorateSize: -1,
			wantErr:        ErrInvalidElectorateSize,
		},
		{
			name: "electorate smaller than voters",
			ballots: []*Ballot{
				mustBallot(t, "alice", 1),
				mustBallot(t, "bob", 2),
			},
			electorateSize: 1,
			wantErr:        ErrInvalidElectorateSize,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Tabulate(options, tt.ballots, tt.electorateSize)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}
