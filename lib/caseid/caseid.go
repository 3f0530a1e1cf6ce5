// Package caseid models the case numbers the Benchmark portal keys its
// records by: a two digit filing-year suffix followed by a six digit
// sequence, e.g. "21000123" for the 123rd case filed in 2021.
package caseid

import (
	"errors"
	"fmt"
	"strconv"
)

// MaxSequence is the largest sequence the six digit field can hold.
// Hitting it means the year's key space is exhausted.
const MaxSequence = 999999

var ErrSequenceOverflow = errors.New("sequence exceeds the portal's six digit field")

type ID struct {
	Year     int
	Sequence int
}

func New(year int, sequence int) (ID, error) {
	if sequence > MaxSequence {
		return ID{}, fmt.Errorf("case %d of %d: %w", sequence, year, ErrSequenceOverflow)
	}
	if sequence < 0 {
		return ID{}, fmt.Errorf("case %d of %d: negative sequence", sequence, year)
	}
	if year < 2000 || year > 2099 {
		return ID{}, fmt.Errorf("year %d cannot be rendered as a two digit suffix", year)
	}
	return ID{Year: year, Sequence: sequence}, nil
}

// String renders the portal form: zero padded year suffix then zero
// padded sequence.
func (id ID) String() string {
	return fmt.Sprintf("%02d%06d", id.Year-2000, id.Sequence)
}

// Parse accepts exactly the form String produces.
func Parse(raw string) (ID, error) {
	if len(raw) != 8 || !isDigits(raw) {
		return ID{}, fmt.Errorf("case number %q: want 8 digits", raw)
	}
	return parseDigits(raw)
}

// ParseLenient recovers an identifier from a case number the way the
// portal itself renders them. Listing keys and thus prior output may
// carry a trailing four character court-type suffix ("21000123CFMA"),
// so a string that isn't purely numeric has its last four characters
// stripped before parsing. The stripped flag reports that the
// heuristic fired; callers are expected to log it rather than trust
// the fixup silently.
func ParseLenient(raw string) (id ID, stripped bool, err error) {
	s := raw
	if !isDigits(s) {
		if len(s) <= 4 {
			return ID{}, false, fmt.Errorf("case number %q: too short to carry a suffix", raw)
		}
		s = s[:len(s)-4]
		stripped = true
	}
	if len(s) < 8 || !isDigits(s) {
		return ID{}, stripped, fmt.Errorf("case number %q: no 8 digit core", raw)
	}
	id, err = parseDigits(s)
	return id, stripped, err
}

func parseDigits(s string) (ID, error) {
	yy, err := strconv.Atoi(s[:2])
	if err != nil {
		return ID{}, fmt.Errorf("year suffix of %q: %w", s, err)
	}
	seq, err := strconv.Atoi(s[len(s)-6:])
	if err != nil {
		return ID{}, fmt.Errorf("sequence of %q: %w", s, err)
	}
	return ID{Year: 2000 + yy, Sequence: seq}, nil
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
