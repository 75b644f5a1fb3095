// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/danielhkuo/ranked-pick/auth"
	"github.com/danielhkuo/ranked-pick/cliparse"
	"github.com/danielhkuo/ranked-pick/middleware"
	"github.com/danielhkuo/ranked-pick/models"
)

// Limits carried over from the chat-bot era of the service.
const (
	maxPollOptions    = 20
	maxOptionLength   = 100
	maxUsernameLength = 50
)

type PollHandler struct {
	db  *sql.DB
	cfg cliparse.Config
}

func NewPollHandler(db *sql.DB, cfg cliparse.Config) *PollHandler {
	return &PollHandler{db: db, cfg: cfg}
}

// CreatePoll handles POST /polls
func (h *PollHandler) CreatePoll(w http.ResponseWriter, r *http.Request) {
	var req models.CreatePollRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	// Validate input
	if req.Question == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "question is required")
		return
	}
	if req.CreatorName == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "creator_name is required")
		return
	}

	// Generate poll ID
	pollID, err := auth.GenerateID(16)
	if err != nil {
		slog.Error("failed to generate poll ID", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to create poll")
		return
	}

	// Generate admin key
	adminKey := auth.GenerateAdminKey(pollID, h.cfg.AdminKeySalt)

	// Insert poll into database
	_, err = h.db.Exec(`
		INSERT INTO poll (id, question, description, creator_name, method, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, pollID, req.Question, req.Description, req.CreatorName, models.MethodIRV, models.StatusDraft, time.Now())

	if err != nil {
		slog.Error("failed to insert poll", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to create poll")
		return
	}

	slog.Info("poll created", "poll_id", pollID, "creator", req.CreatorName)

	middleware.JSONResponse(w, http.StatusCreated, models.CreatePollResponse{
		PollID:   pollID,
		AdminKey: adminKey,
	})
}

// AddOption handles POST /polls/:id/options
// Options can only be added while the poll is a draft; their insertion
// order fixes the 1-based option numbers that vote text refers to.
func (h *PollHandler) AddOption(w http.ResponseWriter, r *http.Request) {
	pollID := r.PathValue("id")
	if pollID == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "poll_id is required")
		return
	}

	// Validate admin key
	adminKey := r.Header.Get("X-Admin-Key")
	if err := auth.ValidateAdminKey(pollID, adminKey, h.cfg.AdminKeySalt); err != nil {
		middleware.ErrorResponse(w, http.StatusUnauthorized, "Invalid admin key")
		return
	}

	// Parse request
	var req models.AddOptionRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	if req.Label == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "label is required")
		return
	}
	if len(req.Label) > maxOptionLength {
		middleware.ErrorResponse(w, http.StatusBadRequest, "label exceeds 100 characters")
		return
	}

	// Check poll exists and is in draft status
	var status string
	var optionCount int
	err := h.db.QueryRow(`
		SELECT p.status, COUNT(o.id)
		FROM poll p
		LEFT JOIN option o ON p.id = o.poll_id
		WHERE p.id = $1
		GROUP BY p.status
	`, pollID).Scan(&status, &optionCount)

	if err == sql.ErrNoRows {
		middleware.ErrorResponse(w, http.StatusNotFound, "Poll not found")
		return
	}
	if err != nil {
		slog.Error("failed to query poll", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	if status != models.StatusDraft {
		middleware.ErrorResponse(w, http.StatusConflict, "Cannot add options to non-draft poll")
		return
	}

	if optionCount >= maxPollOptions {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Poll can have at most 20 options")
		return
	}

	// Generate option ID
	optionID, err := auth.GenerateID(12)
	if err != nil {
		slog.Error("failed to generate option ID", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to create option")
		return
	}

	optionNum := optionCount + 1

	// Insert option
	_, err = h.db.Exec(`
		INSERT INTO option (id, poll_id, option_num, label)
		VALUES ($1, $2, $3, $4)
	`, optionID, pollID, optionNum, req.Label)

	if err != nil {
		slog.Error("failed to insert option", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to create option")
		return
	}

	slog.Info("option added", "poll_id", pollID, "option_id", optionID, "option_num", optionNum)

	middleware.JSONResponse(w, http.StatusCreated, models.AddOptionResponse{
		OptionID:  optionID,
		OptionNum: optionNum,
	})
}

// AddVoters handles POST /polls/:id/voters
// Registers usernames as eligible voters. The roster size is the
// electorate: registered voters who never vote still count toward the
// majority denominator at tabulation time.
func (h *PollHandler) AddVoters(w http.ResponseWriter, r *http.Request) {
	pollID := r.PathValue("id")
	if pollID == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "poll_id is required")
		return
	}

	// Validate admin key
	adminKey := r.Header.Get("X-Admin-Key")
	if err := auth.ValidateAdminKey(pollID, adminKey, h.cfg.AdminKeySalt); err != nil {
		middleware.ErrorResponse(w, http.StatusUnauthorized, "Invalid admin key")
		return
	}

	var req models.AddVotersRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	if len(req.Usernames) == 0 {
		middleware.ErrorResponse(w, http.StatusBadRequest, "usernames cannot be empty")
		return
	}

	usernames := make([]string, 0, len(req.Usernames))
	for _, username := range req.Usernames {
		username = strings.TrimPrefix(strings.TrimSpace(username), "@")
		if len(username) < 2 || len(username) > maxUsernameLength {
			middleware.ErrorResponse(w, http.StatusBadRequest, "username must be 2-50 characters: "+username)
			return
		}
		usernames = append(usernames, username)
	}

	// Voters can join while the poll is draft or open, but not once the
	// electorate has been counted at close.
	var status string
	err := h.db.QueryRow("SELECT status FROM poll WHERE id = $1", pollID).Scan(&status)
	if err == sql.ErrNoRows {
		middleware.ErrorResponse(w, http.StatusNotFound, "Poll not found")
		return
	}
	if err != nil {
		slog.Error("failed to query poll", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	if status == models.StatusClosed {
		middleware.ErrorResponse(w, http.StatusConflict, "Cannot add voters to a closed poll")
		return
	}

	tx, err := h.db.Begin()
	if err != nil {
		slog.Error("failed to begin transaction", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	defer tx.Rollback()

	added := 0
	for _, username := range usernames {
		// Re-registering an existing voter is a no-op
		var exists bool
		err = tx.QueryRow(`
			SELECT EXISTS(
				SELECT 1 FROM poll_voter WHERE poll_id = $1 AND username = $2
			)
		`, pollID, username).Scan(&exists)
		if err != nil {
			slog.Error("failed to check voter", "error", err)
			middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
			return
		}
		if exists {
			continue
		}

		_, err = tx.Exec(`
			INSERT INTO poll_voter (poll_id, username)
			VALUES ($1, $2)
		`, pollID, username)
		if err != nil {
			slog.Error("failed to insert voter", "error", err, "poll_id", pollID)
			middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to add voters")
			return
		}
		added++
	}

	var electorate int
	err = tx.QueryRow(`
		SELECT COUNT(*) FROM poll_voter WHERE poll_id = $1
	`, pollID).Scan(&electorate)
	if err != nil {
		slog.Error("failed to count voters", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	if err := tx.Commit(); err != nil {
		slog.Error("failed to commit transaction", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to add voters")
		return
	}

	slog.Info("voters added", "poll_id", pollID, "added", added, "electorate", electorate)

	middleware.JSONResponse(w, http.StatusCreated, models.AddVotersResponse{
		Added:      added,
		Electorate: electorate,
	})
}

// PublishPoll handles POST /polls/:id/publish
func (h *PollHandler) PublishPoll(w http.ResponseWriter, r *http.Request) {
	pollID := r.PathValue("id")
	if pollID == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "poll_id is required")
		return
	}

	// Validate admin key
	adminKey := r.Header.Get("X-Admin-Key")
	if err := auth.ValidateAdminKey(pollID, adminKey, h.cfg.AdminKeySalt); err != nil {
		middleware.ErrorResponse(w, http.StatusUnauthorized, "Invalid admin key")
		return
	}

	// Check poll exists and is in draft status
	var status string
	var optionCount int
	err := h.db.QueryRow(`
		SELECT p.status, COUNT(o.id)
		FROM poll p
		LEFT JOIN option o ON p.id = o.poll_id
		WHERE p.id = $1
		GROUP BY p.status
	`, pollID).Scan(&status, &optionCount)

	if err == sql.ErrNoRows {
		middleware.ErrorResponse(w, http.StatusNotFound, "Poll not found")
		return
	}
	if err != nil {
		slog.Error("failed to query poll", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	if status != models.StatusDraft {
		middleware.ErrorResponse(w, http.StatusConflict, "Poll is not in draft status")
		return
	}

	if optionCount < 2 {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Poll must have at least 2 options")
		return
	}

	// Generate share slug
	shareSlug := auth.GenerateShareSlug(pollID, h.cfg.PollSlugSalt)

	// Update poll to open status
	_, err = h.db.Exec(`
		UPDATE poll
		SET status = $1, share_slug = $2
		WHERE id = $3
	`, models.StatusOpen, shareSlug, pollID)

	if err != nil {
		slog.Error("failed to publish poll", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to publish poll")
		return
	}

	slog.Info("poll published", "poll_id", pollID, "share_slug", shareSlug)

	middleware.JSONResponse(w, http.StatusOK, models.PublishPollResponse{
		ShareSlug: shareSlug,
	})
}

// GetPollAdmin handles GET /polls/:id/admin
// Returns poll details for admin access using poll ID and admin key
func (h *PollHandler) GetPollAdmin(w http.ResponseWriter, r *http.Request) {
	pollID := r.PathValue("id")
	if pollID == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "poll_id is required")
		return
	}

	// Validate admin key
	adminKey := r.Header.Get("X-Admin-Key")
	if err := auth.ValidateAdminKey(pollID, adminKey, h.cfg.AdminKeySalt); err != nil {
		middleware.ErrorResponse(w, http.StatusUnauthorized, "Invalid admin key")
		return
	}

	// Get poll by ID
	var poll models.Poll
	err := h.db.QueryRow(`
		SELECT id, question, description, creator_name, method, status,
		       share_slug, closed_at, final_snapshot_id, created_at
		FROM poll
		WHERE id = $1
	`, pollID).Scan(
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

// ClosePoll handles POST /polls/:id/close
// Tabulates the instant-runoff winner and stores the immutable result
// snapshot in the same transaction that flips the poll to closed.
func (h *PollHandler) ClosePoll(w http.ResponseWriter, r *http.Request) {
	pollID := r.PathValue("id")
	if pollID == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "poll_id is required")
		return
	}

	// Validate admin key
	adminKey := r.Header.Get("X-Admin-Key")
	if err := auth.ValidateAdminKey(pollID, adminKey, h.cfg.AdminKeySalt); err != nil {
		middleware.ErrorResponse(w, http.StatusUnauthorized, "Invalid admin key")
		return
	}

	// Check poll exists and is open
	var status string
	err := h.db.QueryRow("SELECT status FROM poll WHERE id = $1", pollID).Scan(&status)
	if err == sql.ErrNoRows {
		middleware.ErrorResponse(w, http.StatusNotFound, "Poll not found")
		return
	}
	if err != nil {
		slog.Error("failed to query poll", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	if status != models.StatusOpen {
		middleware.ErrorResponse(w, http.StatusConflict, "Poll is not open")
		return
	}

	// Tabulate over the final ballot snapshot
	result, err := ComputeTallyResult(h.db, pollID)
	if err != nil {
		slog.Error("tabulation failed", "error", err, "poll_id", pollID)
		if code := engineErrorCode(err); code != "" {
			// Stored data violating an engine precondition points at a
			// write-path bug; surface the specific ballot fault.
			middleware.CodedErrorResponse(w, http.StatusUnprocessableEntity, code, err.Error())
			return
		}
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to tabulate results")
		return
	}

	payload, err := json.Marshal(result)
	if err != nil {
		slog.Error("failed to marshal tally result", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to save results")
		return
	}

	snapshotID := newSnapshotID()
	closedAt := time.Now()

	// Begin transaction
	tx, err := h.db.Begin()
	if err != nil {
		slog.Error("failed to begin transaction", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	defer tx.Rollback()

	// Update poll to closed
	_, err = tx.Exec(`
		UPDATE poll
		SET status = $1, closed_at = $2, final_snapshot_id = $3
		WHERE id = $4
	`, models.StatusClosed, closedAt, snapshotID, pollID)

	if err != nil {
		slog.Error("failed to close poll", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to close poll")
		return
	}

	_, err = tx.Exec(`
		INSERT INTO result_snapshot (id, poll_id, method, computed_at, payload)
		VALUES ($1, $2, $3, $4, $5)
	`, snapshotID, pollID, models.MethodIRV, closedAt, string(payload))

	if err != nil {
		slog.Error("failed to insert snapshot", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to save results")
		return
	}

	if err := tx.Commit(); err != nil {
		slog.Error("failed to commit transaction", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to close poll")
		return
	}

	slog.Info("poll closed", "poll_id", pollID, "snapshot_id", snapshotID,
		"has_winner", result.HasWinner, "rounds", len(result.Rounds))

	middleware.JSONResponse(w, http.StatusOK, models.ClosePollResponse{
		ClosedAt: closedAt,
		Snapshot: models.ResultSnapshot{
			ID:         snapshotID,
			PollID:     pollID,
			Method:     models.MethodIRV,
			ComputedAt: closedAt,
			Result:     *result,
		},
	})
}

// loadOptions returns a poll's options in option_num order.
func loadOptions(db *sql.DB, pollID string) ([]models.Option, error) {
	rows, err := db.Query(`
		SELECT id, poll_id, option_num, label
		FROM option
		WHERE poll_id = $1
		ORDER BY option_num
	`, pollID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	options := []models.Option{}
	for rows.Next() {
		var opt models.Option
		if err := rows.Scan(&opt.ID, &opt.PollID, &opt.Num, &opt.Label); err != nil {
			return nil, err
		}
		options = append(options, opt)
	}

	return options, rows.Err()
}
