// Package match implements the approximate plate search used by the reads
// listing: a plate matches a query when it contains it, shares its normalized
// form as a substring, or is within a length-scaled edit distance of it.
package match

import "strings"

// Normalize strips everything but letters and digits and uppercases, so
// "abc-123" and "ABC 123" compare equal.
func Normalize(raw string) string {
	var b strings.Builder
	for _, r := range raw {
		switch {
		case r >= 'a' && r <= 'z':
			b.WriteRune(r - 'a' + 'A')
		case (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9'):
			b.WriteRune(r)
		}
	}
	return b.String()
}

// MaxDistance is the edit-distance budget for a query: at least 2, growing
// with a quarter of the query length for long plates.
func MaxDistance(query string) int {
	d := (len(query) + 3) / 4
	if d < 2 {
		d = 2
	}
	return d
}

// Fuzzy reports whether plate matches query approximately.
func Fuzzy(plate, query string) bool {
	if query == "" {
		return true
	}
	normQuery := Normalize(query)
	if normQuery == "" {
		return false
	}
	if strings.Contains(strings.ToUpper(plate), strings.ToUpper(query)) {
		return true
	}
	normPlate := Normalize(plate)
	if strings.Contains(normPlate, normQuery) {
		return true
	}
	return Levenshtein(normPlate, normQuery) <= MaxDistance(normQuery)
}

// Levenshtein is the classic two-row dynamic-programming edit distance.
func Levenshtein(a, b string) int {
	if a == b {
		return 0
	}
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[j] = min3(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}

func min3(a, b, c int) int {
	if b < a {
		a = b
	}
	if c < a {
		a = c
	}
	return a
}
