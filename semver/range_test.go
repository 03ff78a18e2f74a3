package semver

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSatisfiesRange(t *testing.T) {
	testCases := []struct {
		name      string
		version   string
		rangeExpr string
		expected  bool
	}{
		{name: "empty range always satisfies", version: "1.2.3", rangeExpr: "", expected: true},
		{name: "latest range always satisfies", version: "1.2.3", rangeExpr: "latest", expected: true},
		{name: "wildcard range always satisfies", version: "1.2.3", rangeExpr: "*", expected: true},
		{name: "caret range matches within major", version: "1.4.0", rangeExpr: "^1.0.0", expected: true},
		{name: "caret range excludes next major", version: "2.0.0", rangeExpr: "^1.0.0", expected: false},
		{name: "tilde range matches within minor", version: "1.2.9", rangeExpr: "~1.2.0", expected: true},
		{name: "tilde range excludes next minor", version: "1.3.0", rangeExpr: "~1.2.0", expected: false},
		{name: "exact range matches only that version", version: "1.2.3", rangeExpr: "1.2.3", expected: true},
		{name: "exact range rejects other versions", version: "1.2.4", rangeExpr: "1.2.3", expected: false},
		{name: "prerelease included under matching caret range", version: "1.1.0-beta.0", rangeExpr: "^1.0.0", expected: true},
		{name: "comparator range gte", version: "2.0.0", rangeExpr: ">=1.5.0", expected: true},
		{name: "comparator range lt excludes", version: "2.0.0", rangeExpr: "<2.0.0", expected: false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			v := Normalize(tc.version)
			assert.Equal(t, tc.expected, SatisfiesRange(v, tc.rangeExpr))
		})
	}
}

func TestSatisfiesRange_TagAlwaysSatisfies(t *testing.T) {
	v := NormalizeWithTagCheck("latest")
	assert.True(t, SatisfiesRange(v, "^1.0.0"))
	assert.True(t, SatisfiesRange(v, "1.2.3"))
}

func TestSatisfiesRange_UnparsableRangeFallsBackToExactMatch(t *testing.T) {
	v := Normalize("1.2.3")
	assert.True(t, SatisfiesRange(v, "1.2.3"))
	assert.False(t, SatisfiesRange(v, "not-a-range"))
}
