// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"database/sql"
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"github.com/danielhkuo/ranked-pick/irv"
	"github.com/danielhkuo/ranked-pick/models"
)

// ComputeTallyResult loads a poll's ballot snapshot, runs the
// instant-runoff engine over it, and renders the outcome with option
// labels for storage and display. The engine sees option numbers; this is
// the only place numbers, database IDs, and labels are mapped onto each
// other.
func ComputeTallyResult(db *sql.DB, pollID string) (*models.TallyResult, error) {
	options, err := loadOptions(db, pollID)
	if err != nil {
		return nil, fmt.Errorf("failed to get options: %w", err)
	}

	numByID := make(map[string]int, len(options))
	labelByNum := make(map[irv.Option]string, len(options))
	idByNum := make(map[irv.Option]string, len(options))
	engineOptions := make([]irv.Option, 0, len(options))
	for _, opt := range options {
		numByID[opt.ID] = opt.Num
		labelByNum[irv.Option(opt.Num)] = opt.Label
		idByNum[irv.Option(opt.Num)] = opt.ID
		engineOptions = append(engineOptions, irv.Option(opt.Num))
	}

	var electorate int
	err = db.QueryRow(`
		SELECT COUNT(*) FROM poll_voter WHERE poll_id = $1
	`, pollID).Scan(&electorate)
	if err != nil {
		return nil, fmt.Errorf("failed to count electorate: %w", err)
	}

	ballots, err := loadBallots(db, pollID, numByID)
	if err != nil {
		return nil, fmt.Errorf("failed to load ballots: %w", err)
	}

	outcome, err := irv.Tabulate(engineOptions, ballots, electorate)
	if err != nil {
		return nil, err
	}

	result := &models.TallyResult{
		HasWinner:      outcome.HasWinner,
		ElectorateSize: electorate,
		BallotCount:    len(ballots),
		Rounds:         make([]models.RoundResult, 0, len(outcome.Rounds)),
	}

	for _, round := range outcome.Rounds {
		rendered := models.RoundResult{
			Number:    round.Number,
			Tallies:   make(map[string]int, len(round.Tallies)),
			Abstain:   round.Abstain,
			Exhausted: round.Exhausted,
			Withdrawn: round.Withdrawn,
		}
		for opt, count := range round.Tallies {
			rendered.Tallies[labelByNum[opt]] = count
		}
		for _, opt := range round.Eliminated {
			rendered.Eliminated = append(rendered.Eliminated, labelByNum[opt])
		}
		result.Rounds = append(result.Rounds, rendered)
	}

	finalRound := humanize.Ordinal(len(outcome.Rounds))
	if outcome.HasWinner {
		result.WinnerOptionID = idByNum[outcome.Winner]
		result.WinnerLabel = labelByNum[outcome.Winner]
		result.Summary = fmt.Sprintf("%s won in the %s round", result.WinnerLabel, finalRound)
	} else {
		result.Summary = fmt.Sprintf("no winner after the %s round", finalRound)
	}

	return result, nil
}

// loadBallots reads every ballot's ranking entries and converts them to
// engine choices: option references become the option's number, special
// rows keep their negative value.
func loadBallots(db *sql.DB, pollID string, numByID map[string]int) ([]*irv.Ballot, error) {
	rows, err := db.Query(`
		SELECT b.voter_token, e.option_id, e.special
		FROM ballot b
		JOIN ballot_entry e ON e.ballot_id = b.id
		WHERE b.poll_id = $1
		ORDER BY b.id, e.ranking
	`, pollID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make(map[string][]irv.Choice)
	order := []string{}
	for rows.Next() {
		var voterToken string
		var optionID sql.NullString
		var special sql.NullInt64
		if err := rows.Scan(&voterToken, &optionID, &special); err != nil {
			return nil, err
		}

		var choice irv.Choice
		switch {
		case optionID.Valid:
			num, ok := numByID[optionID.String]
			if !ok {
				return nil, fmt.Errorf("%w: %s", irv.ErrUnknownOption, optionID.String)
			}
			choice = irv.Choice(num)
		case special.Valid:
			choice = irv.Choice(special.Int64)
		default:
			return nil, fmt.Errorf("%w: entry with neither option nor special value", irv.ErrMalformedBallot)
		}

		if _, seen := entries[voterToken]; !seen {
			order = append(order, voterToken)
		}
		entries[voterToken] = append(entries[voterToken], choice)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	ballots := make([]*irv.Ballot, 0, len(order))
	for _, voterToken := range order {
		ballot, err := irv.NewBallot(voterToken, entries[voterToken])
		if err != nil {
			return nil, err
		}
		ballots = append(ballots, ballot)
	}

	return ballots, nil
}

// newSnapshotID returns a fresh identifier for a result snapshot.
func newSnapshotID() string {
	return uuid.NewString()
}
