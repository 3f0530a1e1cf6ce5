package benchmark

import (
	"strconv"
	"strings"

	"github.com/antzucaro/matchr"
)

// parseAttorneys pulls attorney names out of docket assignment lines
// like "DEFENSE ATTORNEY: SMITH, JANE ASSIGNED". Lines that do not end
// in ASSIGNED are status noise (reassignments, withdrawals) and are
// skipped.
func parseAttorneys(lines []string) []string {
	var attorneys []string
	for _, line := range lines {
		name := strings.TrimSpace(line)
		if !strings.HasSuffix(name, "ASSIGNED") {
			continue
		}
		name = strings.TrimSpace(strings.TrimSuffix(name, "ASSIGNED"))
		_, after, found := strings.Cut(name, ":")
		if !found {
			continue
		}
		name = strings.TrimSpace(after)
		if name != "" {
			attorneys = append(attorneys, name)
		}
	}
	return attorneys
}

// Assignment lines repeat across a long docket with small formatting
// drift ("SMITH, JANE A" vs "SMITH, JANE A."), so anything this close
// to a name already kept is treated as the same person.
const nameSimilarityFloor = 0.95

func dedupeNames(names []string) []string {
	var out []string
	for _, name := range names {
		duplicate := false
		for _, kept := range out {
			if kept == name || matchr.JaroWinkler(kept, name, false) > nameSimilarityFloor {
				duplicate = true
				break
			}
		}
		if !duplicate {
			out = append(out, name)
		}
	}
	return out
}

// parsePleaKind maps a "PLEA OF ..." docket line to its plea. The NOT
// check runs first so "NOT GUILTY" is never read as "GUILTY".
func parsePleaKind(text string) string {
	switch {
	case strings.Contains(text, "NOT"):
		return "Not Guilty"
	case strings.Contains(text, "GUILTY"):
		return "Guilty"
	case strings.Contains(text, "NOLO"):
		return "Nolo Contendere"
	}
	return ""
}

// parsePleaCounts extracts the charge count numbers a plea line names
// in its trailing token, e.g. "... AS TO COUNTS 1,3". Numbers that do
// not match a real charge count are noise from dates or statutes. An
// empty result means the plea applies to every charge.
func parsePleaCounts(text string, validCounts []int) []int {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return nil
	}
	last := strings.Map(func(r rune) rune {
		if r == ',' || (r >= '0' && r <= '9') {
			return r
		}
		return -1
	}, fields[len(fields)-1])

	var counts []int
	for _, part := range strings.Split(last, ",") {
		if part == "" {
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil {
			continue
		}
		for _, valid := range validCounts {
			if n == valid {
				counts = append(counts, n)
				break
			}
		}
	}
	return counts
}

// splitChargeStatute splits a charges-grid description like
// "AGGRAVATED BATTERY (784.045(1)(a)1)" into the description and the
// statute reference. The statute is the last parenthesized group and
// may nest parentheses of its own.
func splitChargeStatute(text string) (description string, statute string) {
	text = strings.TrimSpace(text)
	end := strings.LastIndexByte(text, ')')
	if end == -1 {
		return text, ""
	}
	depth := 0
	for i := end; i >= 0; i-- {
		switch text[i] {
		case ')':
			depth++
		case '(':
			depth--
			if depth == 0 {
				return strings.TrimSpace(text[:i]), text[i+1 : end]
			}
		}
	}
	return text, ""
}

// parseName splits a party name in the portal's "LAST, FIRST MIDDLE"
// shape. Names without a comma are business entities; callers keep
// those whole instead.
func parseName(full string) (first string, middle string, last string) {
	before, after, found := strings.Cut(full, ",")
	if !found {
		return "", "", ""
	}
	last = strings.TrimSpace(before)
	fields := strings.Fields(after)
	if len(fields) == 0 {
		return "", "", last
	}
	return fields[0], strings.Join(fields[1:], " "), last
}
