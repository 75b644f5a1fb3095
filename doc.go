// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package main provides the entry point for the Ranked Pick API server.

Ranked Pick is a closed-electorate group polling service: voters rank the
poll's options in order of preference and the winner is tabulated with
instant-runoff voting (IRV). A ballot's final entry may be one of two
special votes: "0" (none of the above) or "nil" (withdraw from the
electorate).

# Starting the Server

The server requires environment variables or CLI flags for configuration
(.env files are loaded automatically):

	DATABASE_URL=postgres://... go run main.go

Or with flags:

	go run main.go -p 3318 -d "postgres://..." -t postgres

# Configuration

Required settings:

  - DATABASE_URL (-d): Database connection string
  - ADMIN_KEY_SALT (--admin-salt): Secret for admin key HMAC
  - POLL_SLUG_SALT (--slug-salt): Secret for share slug generation

Optional settings:

  - PORT (-p): Server port (default: 3318)
  - DATABASE_TYPE (-t): postgres (default) or sqlite

# Architecture

The server uses a handler-based architecture with dependency injection:

  - irv: the instant-runoff tabulation engine (pure, no I/O)
  - voteparse: the /vote-style raw ranking grammar
  - handlers: HTTP request handlers (polls, voting, results)
  - router: Route definitions using Go 1.22+ routing
  - middleware: CORS, logging, JSON helpers
  - models: Request/response types
  - auth: Token generation and validation
  - db: Schema creation
  - cliparse: Configuration parsing

See package documentation for each component.
*/
package main
