// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package voteparse parses the textual vote submission grammar.

A raw vote names a poll followed by ranking tokens in either arrow or
whitespace form, with an optional colon after the poll identifier:

	{poll}: 1 > 2 > 3
	{poll} 1 > 2 > 3
	{poll} 1 2 3

Each token is a positive integer naming an option by its 1-based position
in the poll. The final token may instead be one of two special literals,
matched case-sensitively:

	0     abstain: none of the remaining options
	nil   withdraw: remove yourself from the electorate

Parsing fails if rankings repeat, if a non-final token is not a positive
integer, or if the input matches neither form. Positions are returned as
positive irv.Choice values; resolving them to durable option identifiers
is the caller's job.
*/
package voteparse
