// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package auth

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
)

// ErrInvalidAdminKey is returned when a presented admin key does not match
// the key derived from the poll ID.
var ErrInvalidAdminKey = errors.New("invalid admin key")

const (
	voterTokenBytes = 24 // 192 bits of entropy per claimed roster seat
	slugHashBytes   = 8  // short shareable slugs, still 2^64 values
	ipHashBytes     = 8  // enough to spot repeat submitters
)

// hmacSum computes HMAC-SHA256 of msg under salt. Every derived credential
// in this package flows through it.
func hmacSum(salt, msg string) []byte {
	h := hmac.New(sha256.New, []byte(salt))
	h.Write([]byte(msg))
	return h.Sum(nil)
}

// GenerateID creates a random hex identifier from byteLen random bytes.
func GenerateID(byteLen int) (string, error) {
	b := make([]byte, byteLen)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate random ID: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// GenerateAdminKey derives the admin key for a poll. Keys are deterministic
// per poll ID and salt, so validation never needs a database lookup.
func GenerateAdminKey(pollID, salt string) string {
	return base64.RawURLEncoding.EncodeToString(hmacSum(salt, pollID))
}

// ValidateAdminKey checks a presented admin key against the derived one.
// The comparison is constant-time.
func ValidateAdminKey(pollID, adminKey, salt string) error {
	expected := GenerateAdminKey(pollID, salt)
	if !hmac.Equal([]byte(adminKey), []byte(expected)) {
		return ErrInvalidAdminKey
	}
	return nil
}

// GenerateVoterToken creates the random secret handed out when a roster
// username is claimed. The token is the voter's only credential for
// submitting and revising a ballot.
func GenerateVoterToken() (string, error) {
	b := make([]byte, voterTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate voter token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// GenerateShareSlug derives the short public slug a poll is shared under
// once published. Like admin keys, slugs are deterministic; base62 keeps
// them alphanumeric.
func GenerateShareSlug(pollID, salt string) string {
	return base62Encode(hmacSum(salt, pollID)[:slugHashBytes])
}

// HashIP one-way hashes a client IP for abuse tracking without storing the
// address itself.
func HashIP(ip, salt string) string {
	return hex.EncodeToString(hmacSum(salt, ip)[:ipHashBytes])
}

// base62Encode renders up to 8 bytes of data as 0-9a-zA-Z.
func base62Encode(data []byte) string {
	const alphabet = "0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"

	var num uint64
	for i := 0; i < len(data) && i < 8; i++ {
		num = num<<8 | uint64(data[i])
	}
	if num == 0 {
		return "0"
	}

	var buf [11]byte // ceil(64 / log2(62))
	i := len(buf)
	for num > 0 {
		i--
		buf[i] = alphabet[num%62]
		num /= 62
	}
	return string(buf[i:])
}
