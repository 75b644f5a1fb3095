// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package router defines HTTP routes for the Ranked Pick API.

# Route Registration

NewRouter creates a configured http.ServeMux with all endpoints:

	mux := router.NewRouter(db, cfg)

# Endpoints

Health:

	GET /health

Poll management (admin, requires X-Admin-Key):

	POST /polls              - Create poll
	GET  /polls/{id}/admin   - Get poll details
	POST /polls/{id}/options - Add option
	POST /polls/{id}/voters  - Register voters on the roster
	POST /polls/{id}/publish - Open for voting
	POST /polls/{id}/close   - Tabulate and seal results

Voting (roster members, uses share slug and X-Voter-Token):

	POST /polls/{slug}/claim-username - Claim voter identity
	POST /polls/{slug}/ballots        - Submit/replace ranked ballot
	GET  /polls/{slug}/my-ballot      - View own ballot

Results (public):

	GET /polls/{slug}              - Poll info and options
	GET /polls/{slug}/results      - Final IRV results (closed only)
	GET /polls/{slug}/ballot-count - Vote count
	GET /polls/{slug}/preview      - Compact preview data
	GET /polls/{slug}/voters       - Turnout split (roster members only)

# Handler Initialization

The router creates handler instances with dependency injection:

	pollHandler := handlers.NewPollHandler(db, cfg)
	votingHandler := handlers.NewVotingHandler(db, cfg)
	resultsHandler := handlers.NewResultsHandler(db, cfg)

All handlers receive the database connection and configuration.
*/
package router
