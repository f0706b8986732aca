package catalog

import (
	"regexp"
	"strings"
)

var (
	callsignPattern  = regexp.MustCompile(`^[A-Z0-9]{1,3}[0-9][A-Z0-9]*[A-Z]$`)
	strictRSTPattern = regexp.MustCompile(`^[1-5][1-9][1-9]$`)
	gridPattern      = regexp.MustCompile(`^[A-R]{2}[0-9]{2}[A-X]{2}$`)
)

// IsCallsign reports whether s, uppercased, has the shape of an amateur
// callsign: a prefix of one to three letters or digits, a digit, an optional
// run of letters or digits, and a final letter.
func IsCallsign(s string) bool {
	return callsignPattern.MatchString(strings.ToUpper(s))
}

// IsStrictRST reports whether s is a three digit RST report with
// readability 1-5 and strength and tone 1-9.
func IsStrictRST(s string) bool {
	return strictRSTPattern.MatchString(s)
}

// IsGrid reports whether s is a six character Maidenhead locator, ignoring case.
func IsGrid(s string) bool {
	return gridPattern.MatchString(strings.ToUpper(s))
}
