// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package models defines request, response, and domain types for the API.

# Request Types

Types for parsing incoming JSON:

  - CreatePollRequest: question, description, creator_name
  - AddOptionRequest: label
  - AddVotersRequest: usernames (the eligible electorate)
  - ClaimUsernameRequest: username
  - SubmitBallotRequest: rankings (token list) or raw_text (/vote grammar)

# Response Types

Types for JSON responses:

  - CreatePollResponse: poll_id, admin_key
  - AddOptionResponse: option_id, option_num
  - AddVotersResponse: added, electorate
  - PublishPollResponse: share_slug
  - ClaimUsernameResponse: voter_token
  - SubmitBallotResponse: ballot_id, message
  - ClosePollResponse: closed_at, snapshot
  - PollVotersResponse: voted, not_voted
  - ErrorResponse: error, code, message

# Domain Types

Internal data structures:

  - Poll: poll metadata and lifecycle state
  - Option: poll choice with its 1-based option number
  - Ballot: voter submission metadata
  - RoundResult: one instant-runoff round (tallies, abstain, eliminated)
  - TallyResult: winner or no-winner plus the full round breakdown
  - ResultSnapshot: immutable result record

# Constants

Status values:

	StatusDraft  = "draft"
	StatusOpen   = "open"
	StatusClosed = "closed"

Voting method:

	MethodIRV = "irv"

Error codes mirror the tabulation engine's error kinds (malformed_ballot,
unknown_option, duplicate_voter, invalid_electorate_size) plus
bad_vote_format for the text grammar.
*/
package models
