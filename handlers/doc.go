// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package handlers contains HTTP request handlers for the Ranked Pick API.

# Handler Types

Each handler is a struct with database and config dependencies:

  - PollHandler: Poll lifecycle (create, add options, register voters, publish, close)
  - VotingHandler: Username claims and ballot submission
  - ResultsHandler: Poll info, turnout, and results retrieval

Handlers are created via constructor functions that accept *sql.DB and Config:

	pollHandler := handlers.NewPollHandler(db, cfg)

# Poll Lifecycle

Polls progress through three states: draft → open → closed

	POST /polls              → CreatePoll (returns admin_key)
	POST /polls/{id}/options → AddOption (draft only)
	POST /polls/{id}/voters  → AddVoters (draft or open; defines the electorate)
	POST /polls/{id}/publish → PublishPoll (generates share_slug)
	POST /polls/{id}/close   → ClosePoll (runs IRV tabulation, stores snapshot)

Admin operations require the X-Admin-Key header.

# Voting Flow

Voters interact via the share slug:

	POST /polls/{slug}/claim-username → ClaimUsername (returns voter_token)
	POST /polls/{slug}/ballots        → SubmitBallot (create or replace)

Voter operations require the X-Voter-Token header. Only usernames on the
poll's voter roster may claim a token; each username can be claimed once.

A ballot ranks option positions in preference order, optionally ending
with a special vote: "0" abstains (none of the acceptable options
remain), "nil" withdraws the ballot from the electorate. SubmitBallot
also accepts a raw text line in the chat grammar, e.g. "abc123: 1 > 3 > 0";
see package voteparse.

# Tabulation

ClosePoll calls the instant-runoff engine via tabulate.go:

	result, err := ComputeTallyResult(db, pollID)

The engine operates on option numbers; ComputeTallyResult maps numbers to
database IDs and labels, renders each round, and builds a human-readable
summary. The rendered result is stored as an immutable snapshot.
*/
package handlers
