// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package auth derives and checks the credentials the poll service runs on.

Three kinds of credential exist, matching the three roles in a poll's life:

  - Admin keys (X-Admin-Key) authorize lifecycle operations on a poll.
    They are HMAC-SHA256 of the poll ID under a server salt, encoded as
    unpadded URL-safe base64. Because the key is derived, not stored,
    validation is a recomputation plus a constant-time compare:

  	adminKey := auth.GenerateAdminKey(pollID, salt)
  	err := auth.ValidateAdminKey(pollID, adminKey, salt)

  - Voter tokens (X-Voter-Token) are issued once per roster username at
    claim time and identify the voter on every ballot submission and
    revote afterwards. They are 24 random bytes, so they cannot be
    derived or guessed:

  	token, err := auth.GenerateVoterToken()

  - Share slugs are the short public identifiers polls are reachable
    under once published. They are derived like admin keys but truncated
    and base62-encoded so they stay alphanumeric and URL-friendly:

  	slug := auth.GenerateShareSlug(pollID, slugSalt)

GenerateID supplies random hex identifiers for database rows, and HashIP
reduces a client address to a salted 16-hex-character digest so ballots can
carry an abuse-tracking fingerprint without storing the IP.
*/
package auth
