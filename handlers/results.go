// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/danielhkuo/ranked-pick/cliparse"
	"github.com/danielhkuo/ranked-pick/middleware"
	"github.com/danielhkuo/ranked-pick/models"
)

type ResultsHandler struct {
	db  *sql.DB
	cfg cliparse.Config
}

func NewResultsHandler(db *sql.DB, cfg cliparse.Config) *ResultsHandler {
	return &ResultsHandler{db: db, cfg: cfg}
}

// GetPoll handles GET /polls/:slug
// Returns poll details and options, but NOT results (results are sealed until closed)
func (h *ResultsHandler) GetPoll(w http.ResponseWriter, r *http.Request) {
	shareSlug := r.PathValue("slug")
	if shareSlug == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "slug is required")
		return
	}

	// Get poll by share slug
	var poll models.Poll
	err := h.db.QueryRow(`
		SELECT id, question, description, creator_name, method, status,
		       share_slug, closed_at, final_snapshot_id, created_at
		FROM poll
		WHERE share_slug = $1
	`, shareSlug).Scan(
		&poll.ID, &poll.Question, &poll.Description, &poll.CreatorName,
		&poll.Method, &poll.Status, &poll.ShareSlug,
		&poll.ClosedAt, &poll.FinalSnapshotID, &poll.CreatedAt,
	)

	if err == sql.ErrNoRows {
		middleware.ErrorResponse(w, http.StatusNotFound, "Poll not found")
		return
	}
	if err != nil {
		slog.Error("failed to query poll", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	options, err := loadOptions(h.db, poll.ID)
	if err != nil {
		slog.Error("failed to query options", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	response := models.PollWithOptions{
		Poll:    poll,
		Options: options,
	}

	middleware.JSONResponse(w, http.StatusOK, response)
}

// GetResults handles GET /polls/:slug/results
// Returns 403 if poll is open (results are sealed)
// Returns the final tabulation snapshot if poll is closed: winner or
// no-winner, plus the round-by-round breakdown.
func (h *ResultsHandler) GetResults(w http.ResponseWriter, r *http.Request) {
	shareSlug := r.PathValue("slug")
	if shareSlug == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "slug is required")
		return
	}

	// Get poll status and snapshot ID
	var pollID, status string
	var snapshotID sql.NullString
	err := h.db.QueryRow(`
		SELECT id, status, final_snapshot_id
		FROM poll
		WHERE share_slug = $1
	`, shareSlug).Scan(&pollID, &status, &snapshotID)

	if err == sql.ErrNoRows {
		middleware.ErrorResponse(w, http.StatusNotFound, "Poll not found")
		return
	}
	if err != nil {
		slog.Error("failed to query poll", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	// CRITICAL: Results are sealed while poll is open
	if status != models.StatusClosed {
		middleware.ErrorResponse(w, http.StatusForbidden, "Results are hidden until poll is closed")
		return
	}

	if !snapshotID.Valid {
		slog.Error("closed poll has no snapshot", "slug", shareSlug)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Results not available")
		return
	}

	// Get snapshot
	var snapshot models.ResultSnapshot
	var payloadJSON []byte
	err = h.db.QueryRow(`
		SELECT id, poll_id, method, computed_at, payload
		FROM result_snapshot
		WHERE id = $1
	`, snapshotID.String).Scan(
		&snapshot.ID, &snapshot.PollID, &snapshot.Method,
		&snapshot.ComputedAt, &payloadJSON,
	)

	if err != nil {
		slog.Error("failed to query snapshot", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	if err := json.Unmarshal(payloadJSON, &snapshot.Result); err != nil {
		slog.Error("failed to parse snapshot payload", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to parse results")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, snapshot)
}

// GetBallotCount handles GET /polls/:slug/ballot-count
// Returns the number of ballots submitted (visible even while open)
func (h *ResultsHandler) GetBallotCount(w http.ResponseWriter, r *http.Request) {
	shareSlug := r.PathValue("slug")
	if shareSlug == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "slug is required")
		return
	}

	// Get poll ID
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

	// Count ballots
	var count int
	err = h.db.QueryRow(`
		SELECT COUNT(*) FROM ballot WHERE poll_id = $1
	`, pollID).Scan(&count)

	if err != nil {
		slog.Error("failed to count ballots", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, map[string]int{
		"ballot_count": count,
	})
}

// GetPreview handles GET /polls/:slug/preview
// Returns compact poll data for chat bubble display
func (h *ResultsHandler) GetPreview(w http.ResponseWriter, r *http.Request) {
	shareSlug := r.PathValue("slug")
	if shareSlug == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "slug is required")
		return
	}

	var pollID, question, status string
	err := h.db.QueryRow(`
		SELECT id, question, status FROM poll WHERE share_slug = $1
	`, shareSlug).Scan(&pollID, &question, &status)

	if err == sql.ErrNoRows {
		middleware.ErrorResponse(w, http.StatusNotFound, "Poll not found")
		return
	}
	if err != nil {
		slog.Error("failed to query poll", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	var optionCount int
	err = h.db.QueryRow(`
		SELECT COUNT(*) FROM option WHERE poll_id = $1
	`, pollID).Scan(&optionCount)
	if err != nil {
		slog.Error("failed to count options", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	var ballotCount int
	err = h.db.QueryRow(`
		SELECT COUNT(*) FROM ballot WHERE poll_id = $1
	`, pollID).Scan(&ballotCount)
	if err != nil {
		slog.Error("failed to count ballots", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	var electorate int
	err = h.db.QueryRow(`
		SELECT COUNT(*) FROM poll_voter WHERE poll_id = $1
	`, pollID).Scan(&electorate)
	if err != nil {
		slog.Error("failed to count voters", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, models.PollPreviewResponse{
		Question:    question,
		Status:      status,
		OptionCount: optionCount,
		BallotCount: ballotCount,
		Electorate:  electorate,
	})
}

// GetVoters handles GET /polls/:slug/voters
// Splits the roster into who has voted and who hasn't. Requires a voter
// token for the poll, so only roster members can see turnout.
func (h *ResultsHandler) GetVoters(w http.ResponseWriter, r *http.Request) {
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

	var isVoter bool
	err = h.db.QueryRow(`
		SELECT EXISTS(
			SELECT 1 FROM poll_voter WHERE poll_id = $1 AND voter_token = $2
		)
	`, pollID, voterToken).Scan(&isVoter)
	if err != nil {
		slog.Error("failed to verify voter token", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	if !isVoter {
		middleware.ErrorResponse(w, http.StatusForbidden, "You have no access to this poll")
		return
	}

	rows, err := h.db.Query(`
		SELECT v.username, EXISTS(
			SELECT 1 FROM ballot b
			WHERE b.poll_id = v.poll_id AND b.voter_token = v.voter_token
		)
		FROM poll_voter v
		WHERE v.poll_id = $1
		ORDER BY v.username
	`, pollID)
	if err != nil {
		slog.Error("failed to query voters", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	defer rows.Close()

	response := models.PollVotersResponse{Voted: []string{}, NotVoted: []string{}}
	for rows.Next() {
		var username string
		var voted bool
		if err := rows.Scan(&username, &voted); err != nil {
			slog.Error("failed to scan voter", "error", err)
			middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
			return
		}
		if voted {
			response.Voted = append(response.Voted, username)
		} else {
			response.NotVoted = append(response.NotVoted, username)
		}
	}
	if err := rows.Err(); err != nil {
		slog.Error("failed to read voters", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, response)
}
