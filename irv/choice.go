// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package irv

import "strconv"

// Option is the opaque positive identifier of one poll option. The engine
// never creates or deletes options, only marks them active or eliminated
// within a single tabulation run.
type Option int64

// Choice is a single ranking entry: either a positive Option identifier or
// one of the negative special values. The zero value is not a valid choice.
type Choice int64

const (
	// Abstain is an explicit "none of the above". Entered as the literal
	// "0" in vote text.
	Abstain Choice = -1

	// Withdrawn removes the voter from the electorate for the remainder of
	// the tabulation. Entered as the literal "nil" in vote text.
	Withdrawn Choice = -2
)

// IsOption reports whether c names an option rather than a special value.
func (c Choice) IsOption() bool {
	return c > 0
}

// IsSpecial reports whether c is one of the two reserved special values.
func (c Choice) IsSpecial() bool {
	return c == Abstain || c == Withdrawn
}

// Valid reports whether c is an option or a recognized special value.
func (c Choice) Valid() bool {
	return c.IsOption() || c.IsSpecial()
}

// AsOption returns the option named by c. Only meaningful when IsOption
// reports true.
func (c Choice) AsOption() Option {
	return Option(c)
}

// String renders c the way vote text spells it: the option identifier in
// decimal, "0" for an abstention, "nil" for a withdrawal.
func (c Choice) String() string {
	switch c {
	case Abstain:
		return "0"
	case Withdrawn:
		return "nil"
	default:
		return strconv.FormatInt(int64(c), 10)
	}
}
