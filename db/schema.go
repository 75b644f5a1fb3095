// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package db

import (
	"database/sql"
	"fmt"
)

// CreateSchema creates all tables needed for the application.
// Safe to call multiple times - uses IF NOT EXISTS. The DDL is portable
// across postgres and sqlite: timestamps are written from Go rather than
// defaulted with NOW(), and the snapshot payload is stored as JSON text.
func CreateSchema(db *sql.DB) error {
	_, err := db.Exec(schema)
	if err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	return nil
}

const schema = `
-- Polls
CREATE TABLE IF NOT EXISTS poll (
    id TEXT PRIMARY KEY,
    question TEXT NOT NULL,
    description TEXT,
    creator_name TEXT NOT NULL,
    method TEXT NOT NULL DEFAULT 'irv',
    status TEXT NOT NULL DEFAULT 'draft' CHECK (status IN ('draft', 'open', 'closed')),
    share_slug TEXT UNIQUE,
    closed_at TIMESTAMP,
    final_snapshot_id TEXT,
    created_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_poll_share_slug ON poll(share_slug);
CREATE INDEX IF NOT EXISTS idx_poll_status ON poll(status);

-- Options; option_num is the 1-based position vote text refers to
CREATE TABLE IF NOT EXISTS option (
    id TEXT PRIMARY KEY,
    poll_id TEXT NOT NULL REFERENCES poll(id) ON DELETE CASCADE,
    option_num INTEGER NOT NULL,
    label TEXT NOT NULL,
    UNIQUE (poll_id, option_num)
);

CREATE INDEX IF NOT EXISTS idx_option_poll_id ON option(poll_id);

-- Eligible voters; the roster size is the electorate for tabulation.
-- voter_token stays NULL until the voter claims their username.
CREATE TABLE IF NOT EXISTS poll_voter (
    poll_id TEXT NOT NULL REFERENCES poll(id) ON DELETE CASCADE,
    username TEXT NOT NULL,
    voter_token TEXT UNIQUE,
    claimed_at TIMESTAMP,
    PRIMARY KEY (poll_id, username)
);

CREATE INDEX IF NOT EXISTS idx_poll_voter_poll_id ON poll_voter(poll_id);
CREATE INDEX IF NOT EXISTS idx_poll_voter_token ON poll_voter(poll_id, voter_token);

-- Ballots; one per voter per poll, replaced wholesale on revote
CREATE TABLE IF NOT EXISTS ballot (
    id TEXT PRIMARY KEY,
    poll_id TEXT NOT NULL REFERENCES poll(id) ON DELETE CASCADE,
    voter_token TEXT NOT NULL,
    submitted_at TIMESTAMP NOT NULL,
    ip_hash TEXT,
    user_agent TEXT,
    UNIQUE (poll_id, voter_token)
);

CREATE INDEX IF NOT EXISTS idx_ballot_poll_id ON ballot(poll_id);
CREATE INDEX IF NOT EXISTS idx_ballot_voter_token ON ballot(poll_id, voter_token);

-- Ranking entries; exactly one of option_id / special is set per row.
-- special holds the negative special vote value (-1 abstain, -2 withdraw).
CREATE TABLE IF NOT EXISTS ballot_entry (
    ballot_id TEXT NOT NULL REFERENCES ballot(id) ON DELETE CASCADE,
    ranking INTEGER NOT NULL,
    option_id TEXT REFERENCES option(id) ON DELETE CASCADE,
    special SMALLINT,
    PRIMARY KEY (ballot_id, ranking),
    CHECK ((option_id IS NULL) <> (special IS NULL))
);

CREATE INDEX IF NOT EXISTS idx_ballot_entry_option_id ON ballot_entry(option_id);

-- Result Snapshots
CREATE TABLE IF NOT EXISTS result_snapshot (
    id TEXT PRIMARY KEY,
    poll_id TEXT NOT NULL REFERENCES poll(id) ON DELETE CASCADE,
    method TEXT NOT NULL,
    computed_at TIMESTAMP NOT NULL,
    payload TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_result_snapshot_poll_id ON result_snapshot(poll_id);
`
