// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package db creates the database schema.

# Tables

  - poll: poll metadata and lifecycle state (draft/open/closed)
  - option: poll choices with their 1-based option numbers
  - poll_voter: the eligible-voter roster; its size is the electorate
  - ballot: one submission per voter per poll
  - ballot_entry: ranking entries, option reference or special vote value
  - result_snapshot: immutable tabulation results (JSON payload)

# Usage

	if err := db.CreateSchema(dbConn); err != nil {
		log.Fatal(err)
	}

CreateSchema is idempotent (IF NOT EXISTS) and the DDL runs unchanged on
both supported drivers (postgres and sqlite): column defaults avoid
NOW()-style vendor functions and timestamps are supplied by the
application.

# Vote storage

A ballot's ranking is stored one row per entry in ballot_entry. Each row
holds either an option reference or one of the negative special vote
values (-1 "none of the above", -2 withdraw), mirroring the engine's
choice sum type. Revotes replace the ballot's entries wholesale inside a
transaction, so tabulation always sees each voter's latest complete
ranking.
*/
package db
