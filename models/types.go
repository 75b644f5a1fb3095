// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package models

import "time"

// Poll status constants
const (
	StatusDraft  = "draft"
	StatusOpen   = "open"
	StatusClosed = "closed"
)

// Voting method constants
const (
	MethodIRV = "irv"
)

// Machine-readable error codes surfaced alongside HTTP statuses.
const (
	CodeMalformedBallot   = "malformed_ballot"
	CodeUnknownOption     = "unknown_option"
	CodeDuplicateVoter    = "duplicate_voter"
	CodeInvalidElectorate = "invalid_electorate_size"
	CodeBadVoteFormat     = "bad_vote_format"
)

// Request types

type CreatePollRequest struct {
	Question    string `json:"question"`
	Description string `json:"description"`
	CreatorName string `json:"creator_name"`
}

type AddOptionRequest struct {
	Label string `json:"label"`
}

type AddVotersRequest struct {
	Usernames []string `json:"usernames"`
}

type ClaimUsernameRequest struct {
	Username string `json:"username"`
}

// SubmitBallotRequest carries either a parsed ranking token list
// ("1", "2", "0") or a raw /vote-style text line; exactly one must be set.
type SubmitBallotRequest struct {
	Rankings []string `json:"rankings,omitempty"`
	RawText  string   `json:"raw_text,omitempty"`
}

// Response types

type CreatePollResponse struct {
	PollID   string `json:"poll_id"`
	AdminKey string `json:"admin_key"`
}

type AddOptionResponse struct {
	OptionID  string `json:"option_id"`
	OptionNum int    `json:"option_num"`
}

type AddVotersResponse struct {
	Added      int `json:"added"`
	Electorate int `json:"electorate"`
}

type PublishPollResponse struct {
	ShareSlug string `json:"share_slug"`
}

type ClaimUsernameResponse struct {
	VoterToken string `json:"voter_token"`
}

type SubmitBallotResponse struct {
	BallotID string `json:"ballot_id"`
	Message  string `json:"message"`
}

type MyBallotResponse struct {
	Rankings    []string  `json:"rankings"`
	SubmittedAt time.Time `json:"submitted_at"`
}

type ClosePollResponse struct {
	ClosedAt time.Time      `json:"closed_at"`
	Snapshot ResultSnapshot `json:"snapshot"`
}

type PollPreviewResponse struct {
	Question    string `json:"question"`
	Status      string `json:"status"`
	OptionCount int    `json:"option_count"`
	BallotCount int    `json:"ballot_count"`
	Electorate  int    `json:"electorate"`
}

type PollVotersResponse struct {
	Voted    []string `json:"voted"`
	NotVoted []string `json:"not_voted"`
}

// Domain types

type Poll struct {
	ID              string     `json:"id"`
	Question        string     `json:"question"`
	Description     string     `json:"description"`
	CreatorName     string     `json:"creator_name"`
	Method          string     `json:"method"`
	Status          string     `json:"status"`
	ShareSlug       *string    `json:"share_slug,omitempty"`
	ClosedAt        *time.Time `json:"closed_at,omitempty"`
	FinalSnapshotID *string    `json:"final_snapshot_id,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
}

// Option is one poll choice. Num is its 1-based position among the poll's
// options, assigned at creation and immutable once the poll leaves draft;
// vote text references options by Num.
type Option struct {
	ID     string `json:"id"`
	PollID string `json:"poll_id"`
	Num    int    `json:"num"`
	Label  string `json:"label"`
}

type PollWithOptions struct {
	Poll    Poll     `json:"poll"`
	Options []Option `json:"options"`
}

type Ballot struct {
	ID          string    `json:"id"`
	PollID      string    `json:"poll_id"`
	VoterToken  string    `json:"-"` // Never expose in JSON
	SubmittedAt time.Time `json:"submitted_at"`
	IPHash      *string   `json:"-"` // Never expose in JSON
	UserAgent   *string   `json:"-"` // Never expose in JSON
}

// IRV result types

// RoundResult is one tabulation round, tallies keyed by option label.
type RoundResult struct {
	Number     int            `json:"number"`
	Tallies    map[string]int `json:"tallies"`
	Abstain    int            `json:"abstain"`
	Exhausted  int            `json:"exhausted"`
	Withdrawn  int            `json:"withdrawn"`
	Eliminated []string       `json:"eliminated,omitempty"`
}

// TallyResult is the stored outcome of one tabulation run.
type TallyResult struct {
	HasWinner      bool          `json:"has_winner"`
	WinnerOptionID string        `json:"winner_option_id,omitempty"`
	WinnerLabel    string        `json:"winner_label,omitempty"`
	ElectorateSize int           `json:"electorate_size"`
	BallotCount    int           `json:"ballot_count"`
	Summary        string        `json:"summary"`
	Rounds         []RoundResult `json:"rounds"`
}

type ResultSnapshot struct {
	ID         string      `json:"id"`
	PollID     string      `json:"poll_id"`
	Method     string      `json:"method"`
	ComputedAt time.Time   `json:"computed_at"`
	Result     TallyResult `json:"result"`
}

// Error response

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}
