// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/danielhkuo/ranked-pick/auth"
	"github.com/danielhkuo/ranked-pick/cliparse"
	"github.com/danielhkuo/ranked-pick/irv"
	"github.com/danielhkuo/ranked-pick/middleware"
	"github.com/danielhkuo/ranked-pick/models"
	"github.com/danielhkuo/ranked-pick/voteparse"
)

type VotingHandler struct {
	db  *sql.DB
	cfg cliparse.Config
}

func NewVotingHandler(db *sql.DB, cfg cliparse.Config) *VotingHandler {
	return &VotingHandler{db: db, cfg: cfg}
}

// ClaimUsername handles POST /polls/:slug/claim-username
// Only usernames on the poll's voter roster may claim; claiming issues the
// voter token used to authenticate ballot submissions.
func (h *VotingHandler) ClaimUsername(w http.ResponseWriter, r *http.Request) {
	shareSlug := r.PathValue("slug")
	if shareSlug == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "slug is required")
		return
	}

	// Parse request
	var req models.ClaimUsernameRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	username := strings.TrimPrefix(strings.TrimSpace(req.Username), "@")
	if username == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "username is required")
		return
	}
	if len(username) < 2 || len(username) > maxUsernameLength {
		middleware.ErrorResponse(w, http.StatusBadRequest, "username must be 2-50 characters")
		return
	}

	// Find poll by share slug
	var pollID string
	var status string
	err := h.db.QueryRow(`
		SELECT id, status FROM poll WHERE share_slug = $1
	`, shareSlug).Scan(&pollID, &status)

	if err == sql.ErrNoRows {
		middleware.ErrorResponse(w, http.StatusNotFound, "Poll not found")
		return
	}
	if err != nil {
		slog.Error("failed to query poll", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	// Can only claim username for open polls
	if status != models.StatusOpen {
		middleware.ErrorResponse(w, http.StatusConflict, "Poll is not open for voting")
		return
	}

	// The username must be on the roster and not yet claimed
	var existingToken sql.NullString
	err = h.db.QueryRow(`
		SELECT voter_token FROM poll_voter
		WHERE poll_id = $1 AND username = $2
	`, pollID, username).Scan(&existingToken)

	if err == sql.ErrNoRows {
		middleware.ErrorResponse(w, http.StatusForbidden, "You're not a voter of this poll")
		return
	}
	if err != nil {
		slog.Error("failed to query voter", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	if existingToken.Valid {
		middleware.ErrorResponse(w, http.StatusConflict, "Username already claimed")
		return
	}

	// Generate voter token
	voterToken, err := auth.GenerateVoterToken()
	if err != nil {
		slog.Error("failed to generate voter token", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to claim username")
		return
	}

	res, err := h.db.Exec(`
		UPDATE poll_voter
		SET voter_token = $1, claimed_at = $2
		WHERE poll_id = $3 AND username = $4 AND voter_token IS NULL
	`, voterToken, time.Now(), pollID, username)

	if err != nil {
		slog.Error("failed to claim username", "error", err, "poll_id", pollID)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to claim username")
		return
	}
	if n, _ := res.RowsAffected(); n == 0 {
		// Lost a race with another claim for the same username
		middleware.ErrorResponse(w, http.StatusConflict, "Username already claimed")
		return
	}

	slog.Info("username claimed", "poll_id", pollID, "username", username)

	middleware.JSONResponse(w, http.StatusCreated, models.ClaimUsernameResponse{
		VoterToken: voterToken,
	})
}

// SubmitBallot handles POST /polls/:slug/ballots
// Accepts either a ranking token list or a raw /vote-style line. Revotes
// replace the previous ballot wholesale inside one transaction, so
// tabulation only ever sees each voter's latest complete ranking.
func (h *VotingHandler) SubmitBallot(w http.ResponseWriter, r *http.Request) {
	shareSlug := r.PathValue("slug")
	if shareSlug == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "slug is required")
		return
	}

	// Get voter token from header
	voterToken := r.Header.Get("X-Voter-Token")
	if voterToken == "" {
		middleware.ErrorResponse(w, http.StatusUnauthorized, "X-Voter-Token header required")
		return
	}

	// Parse request
	var req models.SubmitBallotRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	rankings, ok := h.parseRankings(w, req, shareSlug)
	if !ok {
		return
	}

	// Find poll by share slug
	var pollID string
	var status string
	err := h.db.QueryRow(`
		SELECT id, status FROM poll WHERE share_slug = $1
	`, shareSlug).Scan(&pollID, &status)

	if err == sql.ErrNoRows {
		middleware.ErrorResponse(w, http.StatusNotFound, "Poll not found")
		return
	}
	if err != nil {
		slog.Error("failed to query poll", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	// Can only vote on open polls
	if status != models.StatusOpen {
		middleware.ErrorResponse(w, http.StatusConflict, "Poll is not open for voting")
		return
	}

	// Verify voter token belongs to this poll's roster
	var exists bool
	err = h.db.QueryRow(`
		SELECT EXISTS(
			SELECT 1 FROM poll_voter
			WHERE poll_id = $1 AND voter_token = $2
		)
	`, pollID, voterToken).Scan(&exists)

	if err != nil {
		slog.Error("failed to verify voter token", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	if !exists {
		middleware.ErrorResponse(w, http.StatusUnauthorized, "Invalid voter token for this poll")
		return
	}

	// Resolve 1-based positions to option rows
	options, err := loadOptions(h.db, pollID)
	if err != nil {
		slog.Error("failed to query options", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	for _, choice := range rankings {
		if choice.IsOption() && int(choice.AsOption()) > len(options) {
			middleware.CodedErrorResponse(w, http.StatusBadRequest, models.CodeUnknownOption,
				"invalid vote number: "+choice.String())
			return
		}
	}

	// Run the engine's ballot validation up front so a malformed ranking
	// is rejected with a typed code before anything is written.
	if _, err := irv.NewBallot(voterToken, rankings); err != nil {
		middleware.CodedErrorResponse(w, http.StatusBadRequest, models.CodeMalformedBallot, err.Error())
		return
	}

	// Get IP hash for tracking
	clientIP := middleware.GetClientIP(r)
	ipHash := auth.HashIP(clientIP, h.cfg.AdminKeySalt) // Reuse admin salt for IP hashing
	userAgent := r.UserAgent()

	// Begin transaction for the replace-on-revote
	tx, err := h.db.Begin()
	if err != nil {
		slog.Error("failed to begin transaction", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	defer tx.Rollback()

	// Check if ballot already exists
	var existingBallotID string
	err = tx.QueryRow(`
		SELECT id FROM ballot WHERE poll_id = $1 AND voter_token = $2
	`, pollID, voterToken).Scan(&existingBallotID)
	if err != nil && err != sql.ErrNoRows {
		slog.Error("failed to look up existing ballot", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	isUpdate := err == nil
	var ballotID string

	if isUpdate {
		// Update existing ballot and clear its old ranking
		ballotID = existingBallotID
		_, err = tx.Exec(`
			UPDATE ballot
			SET submitted_at = $1, ip_hash = $2, user_agent = $3
			WHERE id = $4
		`, time.Now(), ipHash, userAgent, ballotID)

		if err != nil {
			slog.Error("failed to update ballot", "error", err)
			middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to update ballot")
			return
		}

		_, err = tx.Exec(`DELETE FROM ballot_entry WHERE ballot_id = $1`, ballotID)
		if err != nil {
			slog.Error("failed to delete old ranking", "error", err)
			middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to update ballot")
			return
		}
	} else {
		// Create new ballot
		ballotID = uuid.NewString()
		_, err = tx.Exec(`
			INSERT INTO ballot (id, poll_id, voter_token, submitted_at, ip_hash, user_agent)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, ballotID, pollID, voterToken, time.Now(), ipHash, userAgent)

		if err != nil {
			slog.Error("failed to insert ballot", "error", err)
			middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to submit ballot")
			return
		}
	}

	// Insert ranking entries: option reference or special value per row
	for i, choice := range rankings {
		var optionID *string
		var special *int64
		if choice.IsOption() {
			id := options[int(choice.AsOption())-1].ID
			optionID = &id
		} else {
			value := int64(choice)
			special = &value
		}

		_, err = tx.Exec(`
			INSERT INTO ballot_entry (ballot_id, ranking, option_id, special)
			VALUES ($1, $2, $3, $4)
		`, ballotID, i+1, optionID, special)

		if err != nil {
			slog.Error("failed to insert ranking entry", "error", err)
			middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to save ballot")
			return
		}
	}

	if err := tx.Commit(); err != nil {
		slog.Error("failed to commit transaction", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to submit ballot")
		return
	}

	message := "Ballot submitted successfully"
	if isUpdate {
		message = "Ballot updated successfully"
	}

	slog.Info("ballot submitted", "poll_id", pollID, "ballot_id", ballotID, "is_update", isUpdate)

	middleware.JSONResponse(w, http.StatusCreated, models.SubmitBallotResponse{
		BallotID: ballotID,
		Message:  message,
	})
}

// parseRankings extracts the ranking list from either request form,
// writing the error response itself when parsing fails.
func (h *VotingHandler) parseRankings(w http.ResponseWriter, req models.SubmitBallotRequest, shareSlug string) ([]irv.Choice, bool) {
	switch {
	case req.RawText != "" && len(req.Rankings) > 0:
		middleware.ErrorResponse(w, http.StatusBadRequest, "provide rankings or raw_text, not both")
		return nil, false

	case req.RawText != "":
		pollToken, rankings, err := voteparse.ParseVote(req.RawText)
		if err != nil {
			middleware.CodedErrorResponse(w, http.StatusBadRequest, models.CodeBadVoteFormat, err.Error())
			return nil, false
		}
		if pollToken != shareSlug {
			middleware.CodedErrorResponse(w, http.StatusBadRequest, models.CodeBadVoteFormat,
				"vote names a different poll")
			return nil, false
		}
		return rankings, true

	case len(req.Rankings) > 0:
		rankings := make([]irv.Choice, 0, len(req.Rankings))
		for _, token := range req.Rankings {
			choice, err := voteparse.ParseRanking(strings.TrimSpace(token))
			if err != nil {
				middleware.CodedErrorResponse(w, http.StatusBadRequest, models.CodeBadVoteFormat, err.Error())
				return nil, false
			}
			rankings = append(rankings, choice)
		}
		return rankings, true
	}

	middleware.ErrorResponse(w, http.StatusBadRequest, "rankings cannot be empty")
	return nil, false
}

// GetMyBallot handles GET /polls/:slug/my-ballot
// Echoes back the caller's current ranking as vote tokens.
func (h *VotingHandler) GetMyBallot(w http.ResponseWriter, r *http.Request) {
	shareSlug := r.PathValue("slug")
	if shareSlug == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "slug is required")
		return
	}

	voterToken := r.Header.Get("X-Voter-Token")
	if voterToken == "" {
		middleware.ErrorResponse(w, http.StatusUnauthorized, "X-Voter-Token header required")
		return
	}

	var pollID string
	err := h.db.QueryRow(`
		SELECT id FROM poll WHERE share_slug = $1
	`, shareSlug).Scan(&pollID)

	if err == sql.ErrNoRows {
		middleware.ErrorResponse(w, http.StatusNotFound, "Poll not found")
		return
	}
	if err != nil {
		slog.Error("failed to query poll", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	var ballotID string
	var submittedAt time.Time
	err = h.db.QueryRow(`
		SELECT id, submitted_at FROM ballot
		WHERE poll_id = $1 AND voter_token = $2
	`, pollID, voterToken).Scan(&ballotID, &submittedAt)

	if err == sql.ErrNoRows {
		middleware.ErrorResponse(w, http.StatusNotFound, "No ballot submitted")
		return
	}
	if err != nil {
		slog.Error("failed to query ballot", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	rows, err := h.db.Query(`
		SELECT o.option_num, e.special
		FROM ballot_entry e
		LEFT JOIN option o ON o.id = e.option_id
		WHERE e.ballot_id = $1
		ORDER BY e.ranking
	`, ballotID)
	if err != nil {
		slog.Error("failed to query ranking entries", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	defer rows.Close()

	rankings := []string{}
	for rows.Next() {
		var optionNum sql.NullInt64
		var special sql.NullInt64
		if err := rows.Scan(&optionNum, &special); err != nil {
			slog.Error("failed to scan ranking entry", "error", err)
			middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
			return
		}

		var choice irv.Choice
		if optionNum.Valid {
			choice = irv.Choice(optionNum.Int64)
		} else {
			choice = irv.Choice(special.Int64)
		}
		rankings = append(rankings, choice.String())
	}
	if err := rows.Err(); err != nil {
		slog.Error("failed to read ranking entries", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, models.MyBallotResponse{
		Rankings:    rankings,
		SubmittedAt: submittedAt,
	})
}

// engineErrorCode maps an engine error to its API error code.
func engineErrorCode(err error) string {
	switch {
	case errors.Is(err, irv.ErrMalformedBallot):
		return models.CodeMalformedBallot
	case errors.Is(err, irv.ErrUnknownOption):
		return models.CodeUnknownOption
	case errors.Is(err, irv.ErrDuplicateVoter):
		return models.CodeDuplicateVoter
	case errors.Is(err, irv.ErrInvalidElectorateSize):
		return models.CodeInvalidElectorate
	}
	return ""
}
