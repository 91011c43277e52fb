package field

import (
	"strings"

	"github.com/pkg/errors"
)

// Rules selects how a field is rendered. Rules combine with bitwise OR.
type Rules uint8

const (
	Dec   Rules = 1 << iota // decimal value
	Hex                     // 0x-prefixed lowercase hex
	Char                    // raw bytes as characters
	Time                    // Unix timestamp in UTC
	Flag                    // whole value names a single flag
	Flags                   // each set bit names a flag
)

// Hidden fields are decoded and validated but never printed.
const Hidden Rules = 0

const (
	baseRules = Dec | Hex | Char
	allRules  = Dec | Hex | Char | Time | Flag | Flags
)

var ruleNames = []struct {
	rule Rules
	name string
}{
	{Dec, "Dec"},
	{Hex, "Hex"},
	{Char, "Char"},
	{Time, "Time"},
	{Flag, "Flag"},
	{Flags, "Flags"},
}

// Has reports whether every rule in want is set.
func (r Rules) Has(want Rules) bool {
	return r&want == want
}

func (r Rules) String() string {
	if r == Hidden {
		return "Hidden"
	}
	var parts []string
	for _, rn := range ruleNames {
		if r&rn.rule != 0 {
			parts = append(parts, rn.name)
		}
	}
	if rest := r &^ allRules; rest != 0 {
		parts = append(parts, hexValue(uint64(rest)))
	}
	return strings.Join(parts, "|")
}

// Check rejects rule sets that have no defined rendering.
func (r Rules) Check() error {
	if r&^allRules != 0 {
		return errors.Wrapf(ErrUnsupportedRules, "%s: unknown rule bits", r)
	}

	base := r & baseRules
	switch base {
	case Hidden, Dec, Hex, Char, Hex | Char, Dec | Hex:
	default:
		return errors.Wrapf(ErrUnsupportedRules, "%s", r)
	}

	if r&(Time|Flag|Flags) != 0 && base&(Dec|Hex) == 0 {
		return errors.Wrapf(ErrUnsupportedRules, "%s: needs a Dec or Hex base", r)
	}
	if r.Has(Flag | Flags) {
		return errors.Wrapf(ErrUnsupportedRules, "%s: Flag and Flags are exclusive", r)
	}
	return nil
}
