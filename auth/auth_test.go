// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package auth

import (
	"encoding/hex"
	"strings"
	"testing"
)

func TestGenerateID(t *testing.T) {
	tests := []struct {
		name    string
		byteLen int
	}{
		{"option id length", 12},
		{"poll id length", 16},
		{"oversized", 32},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, err := GenerateID(tt.byteLen)
			if err != nil {
				t.Fatalf("GenerateID(%d) error = %v", tt.byteLen, err)
			}
			// Hex doubles the byte length
			if len(id) != tt.byteLen*2 {
				t.Errorf("GenerateID(%d) length = %d, want %d", tt.byteLen, len(id), tt.byteLen*2)
			}
			if _, err := hex.DecodeString(id); err != nil {
				t.Errorf("GenerateID(%d) = %q is not valid hex: %v", tt.byteLen, id, err)
			}
		})
	}

	// Collisions across draws would mean the randomness source is broken
	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		id, err := GenerateID(16)
		if err != nil {
			t.Fatalf("GenerateID() error on draw %d: %v", i, err)
		}
		if seen[id] {
			t.Fatalf("GenerateID() repeated %q", id)
		}
		seen[id] = true
	}
}

func TestAdminKeyRoundTrip(t *testing.T) {
	const pollID = "f3a9c2d8e1b04756"
	const salt = "admin-salt"
	key := GenerateAdminKey(pollID, salt)

	if key == "" {
		t.Fatal("GenerateAdminKey() returned empty string")
	}
	if strings.ContainsAny(key, "=+/") {
		t.Errorf("GenerateAdminKey() = %q is not unpadded URL-safe base64", key)
	}
	if err := ValidateAdminKey(pollID, key, salt); err != nil {
		t.Errorf("ValidateAdminKey() rejected its own key: %v", err)
	}

	tests := []struct {
		name     string
		pollID   string
		adminKey string
		salt     string
	}{
		{"garbage key", pollID, "not-a-key", salt},
		{"key for another poll", "0000000000000000", key, salt},
		{"key under another salt", pollID, key, "rotated-salt"},
		{"empty key", pollID, "", salt},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := ValidateAdminKey(tt.pollID, tt.adminKey, tt.salt); err != ErrInvalidAdminKey {
				t.Errorf("ValidateAdminKey() error = %v, want ErrInvalidAdminKey", err)
			}
		})
	}
}

func TestGenerateAdminKeyDeterministic(t *testing.T) {
	const salt = "admin-salt"

	if GenerateAdminKey("poll-a", salt) != GenerateAdminKey("poll-a", salt) {
		t.Error("GenerateAdminKey() is not deterministic")
	}
	if GenerateAdminKey("poll-a", salt) == GenerateAdminKey("poll-b", salt) {
		t.Error("GenerateAdminKey() collides across poll IDs")
	}
	if GenerateAdminKey("poll-a", "salt-1") == GenerateAdminKey("poll-a", "salt-2") {
		t.Error("GenerateAdminKey() collides across salts")
	}
}

func TestGenerateVoterToken(t *testing.T) {
	token, err := GenerateVoterToken()
	if err != nil {
		t.Fatalf("GenerateVoterToken() error = %v", err)
	}

	// 24 bytes encode to 32 base64 characters
	if len(token) != 32 {
		t.Errorf("GenerateVoterToken() length = %d, want 32", len(token))
	}
	if strings.ContainsAny(token, "=+/") {
		t.Errorf("GenerateVoterToken() = %q is not unpadded URL-safe base64", token)
	}

	// Tokens are the only ballot credential; duplicates would let one voter
	// overwrite another's ballot
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		token, err := GenerateVoterToken()
		if err != nil {
			t.Fatalf("GenerateVoterToken() error on draw %d: %v", i, err)
		}
		if seen[token] {
			t.Fatalf("GenerateVoterToken() repeated %q", token)
		}
		seen[token] = true
	}
}

func TestGenerateShareSlug(t *testing.T) {
	const salt = "slug-salt"
	slug := GenerateShareSlug("f3a9c2d8e1b04756", salt)

	if slug == "" {
		t.Fatal("GenerateShareSlug() returned empty string")
	}
	// 8 hash bytes encode to at most 11 base62 characters
	if len(slug) > 11 {
		t.Errorf("GenerateShareSlug() too long: %q (%d chars)", slug, len(slug))
	}
	for _, c := range slug {
		if !((c >= '0' && c <= '9') || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')) {
			t.Errorf("GenerateShareSlug() contains non-alphanumeric char %q", c)
		}
	}

	if GenerateShareSlug("f3a9c2d8e1b04756", salt) != slug {
		t.Error("GenerateShareSlug() is not deterministic")
	}
	if GenerateShareSlug("0000000000000000", salt) == slug {
		t.Error("GenerateShareSlug() collides across poll IDs")
	}
	if GenerateShareSlug("f3a9c2d8e1b04756", "rotated-salt") == slug {
		t.Error("GenerateShareSlug() collides across salts")
	}
}

func TestBase62Encode(t *testing.T) {
	tests := []struct {
		name  string
		input []byte
		want  string
	}{
		{"all zero", []byte{0, 0, 0, 0}, "0"},
		{"one", []byte{1}, "1"},
		{"last single digit", []byte{0, 61}, "Z"},
		{"first two-digit value", []byte{0, 62}, "10"},
		{"two digits", []byte{3, 3}, "cr"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := base62Encode(tt.input); got != tt.want {
				t.Errorf("base62Encode(%v) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}

	// Max input stays within the 11-character bound
	max := base62Encode([]byte{255, 255, 255, 255, 255, 255, 255, 255})
	if len(max) > 11 {
		t.Errorf("base62Encode(max) = %q exceeds 11 chars", max)
	}
}

func TestHashIP(t *testing.T) {
	const salt = "admin-salt"

	tests := []struct {
		name string
		ip   string
	}{
		{"IPv4", "203.0.113.50"},
		{"IPv6", "2001:db8::1"},
		{"loopback", "127.0.0.1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hash := HashIP(tt.ip, salt)

			// 8 digest bytes as hex
			if len(hash) != 16 {
				t.Errorf("HashIP() length = %d, want 16", len(hash))
			}
			if _, err := hex.DecodeString(hash); err != nil {
				t.Errorf("HashIP() = %q is not valid hex: %v", hash, err)
			}
			if HashIP(tt.ip, salt) != hash {
				t.Error("HashIP() is not deterministic")
			}
		})
	}

	if HashIP("203.0.113.50", salt) == HashIP("203.0.113.51", salt) {
		t.Error("HashIP() collides across addresses")
	}
	if HashIP("203.0.113.50", "salt-1") == HashIP("203.0.113.50", "salt-2") {
		t.Error("HashIP() collides across salts")
	}
}

func BenchmarkGenerateAdminKey(b *testing.B) {
	for i := 0; i < b.N; i++ {
		GenerateAdminKey("f3a9c2d8e1b04756", "admin-salt")
	}
}

func BenchmarkGenerateVoterToken(b *testing.B) {
	for i := 0; i < b.N; i++ {
		GenerateVoterToken()
	}
}

func BenchmarkGenerateShareSlug(b *testing.B) {
	for i := 0; i < b.N; i++ {
		GenerateShareSlug("f3a9c2d8e1b04756", "slug-salt")
	}
}
