// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package voteparse

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/danielhkuo/ranked-pick/irv"
)

var (
	// ErrFormat marks input matching neither accepted grammar form.
	ErrFormat = errors.New("vote format is invalid")

	// ErrDuplicateRanking marks a ranking token appearing more than once.
	ErrDuplicateRanking = errors.New("vote rankings must be unique")

	// ErrBadRanking marks a token that is neither a positive option
	// position nor a special literal in the final position.
	ErrBadRanking = errors.New("vote rankings must be positive non-zero numbers")
)

// Special vote literals, matched exactly and case-sensitively.
const (
	abstainLiteral  = "0"
	withdrawLiteral = "nil"
)

// Arrow form: {poll}: 1 > 2 > 0
// Whitespace form: {poll} 1 2 nil
// The colon after the poll identifier is optional in both.
var (
	arrowForm = regexp.MustCompile(`^[0-9a-zA-Z]+:?\s+([1-9][0-9]*\s*>\s*)*([0-9]+|nil)$`)
	spaceForm = regexp.MustCompile(`^[0-9a-zA-Z]+:?\s+([1-9][0-9]*\s+)*([0-9]+|nil)$`)
)

// ParseRanking maps one textual ranking token to a choice value. Positive
// integers parse to their 1-based option position; the literals "0" and
// "nil" parse to irv.Abstain and irv.Withdrawn.
func ParseRanking(token string) (irv.Choice, error) {
	switch token {
	case abstainLiteral:
		return irv.Abstain, nil
	case withdrawLiteral:
		return irv.Withdrawn, nil
	}

	n, err := strconv.ParseInt(token, 10, 64)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%w: %q", ErrBadRanking, token)
	}
	return irv.Choice(n), nil
}

// ParseVote unpacks a raw vote submission into the poll identifier and its
// ranking tokens. Positive choices are 1-based option positions, not
// durable option identifiers.
func ParseVote(raw string) (string, []irv.Choice, error) {
	raw = strings.TrimSpace(raw)

	var head string
	var tokens []string
	switch {
	case arrowForm.MatchString(raw):
		// The regex guarantees whitespace after the poll identifier; split
		// on the first whitespace rune so tabs work the same as spaces.
		cut := strings.IndexFunc(raw, unicode.IsSpace)
		head = raw[:cut]
		for _, token := range strings.Split(raw[cut:], ">") {
			tokens = append(tokens, strings.TrimSpace(token))
		}
	case spaceForm.MatchString(raw):
		fields := strings.Fields(raw)
		head, tokens = fields[0], fields[1:]
	default:
		return "", nil, ErrFormat
	}

	rankings, err := parseTokens(tokens)
	if err != nil {
		return "", nil, err
	}
	return strings.TrimSuffix(head, ":"), rankings, nil
}

// parseTokens is shared by both grammar forms; the regexes guarantee at
// least one token, so duplicate and placement checks are all that remain.
func parseTokens(tokens []string) ([]irv.Choice, error) {
	rankings := make([]irv.Choice, 0, len(tokens))
	seen := make(map[irv.Choice]bool, len(tokens))

	for i, token := range tokens {
		choice, err := ParseRanking(token)
		if err != nil {
			return nil, err
		}
		if choice.IsSpecial() && i != len(tokens)-1 {
			return nil, fmt.Errorf("%w: %q before the final position", ErrBadRanking, token)
		}
		if seen[choice] {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateRanking, token)
		}
		seen[choice] = true
		rankings = append(rankings, choice)
	}

	return rankings, nil
}
