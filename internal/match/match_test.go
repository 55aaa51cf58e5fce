package match

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLevenshtein(t *testing.T) {
	cases := []struct {
		a, b string
		want int
	}{
		{"", "", 0},
		{"ABC123", "ABC123", 0},
		{"ABC123", "", 6},
		{"ABC123", "ABC124", 1},
		{"ABC123", "AB123", 1},
		{"KITTEN", "SITTING", 3},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, Levenshtein(c.a, c.b), "%s vs %s", c.a, c.b)
	}
}

func TestFuzzy(t *testing.T) {
	assert.True(t, Fuzzy("ABC123", "abc"), "substring, case-insensitive")
	assert.True(t, Fuzzy("ABC123", "ab-c1"), "normalized substring")
	assert.True(t, Fuzzy("ABC123", "ABC128"), "one substitution")
	assert.True(t, Fuzzy("ABC123", "ABD124"), "two substitutions")
	assert.False(t, Fuzzy("ABC123", "ZZZ999"))
	assert.True(t, Fuzzy("ABC123", ""), "empty query matches everything")
	assert.False(t, Fuzzy("ABC123", "---"), "query with no alphanumerics")
}

func TestMaxDistance(t *testing.T) {
	assert.Equal(t, 2, MaxDistance("AB"))
	assert.Equal(t, 2, MaxDistance("ABC123"))
	assert.Equal(t, 3, MaxDistance("ABCDEFGHI"))
}
