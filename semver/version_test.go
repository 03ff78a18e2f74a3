package semver

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "full triple", input: "1.2.3", expected: "1.2.3"},
		{name: "missing patch defaults to 0", input: "1.2", expected: "1.2.0"},
		{name: "missing minor and patch default to 0", input: "1", expected: "1.0.0"},
		{name: "prerelease is preserved", input: "1.2.3-beta.0", expected: "1.2.3-beta.0"},
		{name: "malformed falls back to lower precision", input: "1.2.x", expected: "1.2.0"},
		{name: "completely malformed falls back to zero", input: "not-a-version", expected: "0.0.0"},
		{name: "empty string falls back to zero", input: "", expected: "0.0.0"},
		{name: "all zero candidate is rejected as not recognizable", input: "0.0.0", expected: "0.0.0"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, Normalize(tc.input).String())
		})
	}
}

func TestNormalizeWithTagCheck(t *testing.T) {
	assert.Equal(t, "latest", NormalizeWithTagCheck("latest").String())
	assert.True(t, NormalizeWithTagCheck("latest").IsTag())
	assert.Equal(t, "next", NormalizeWithTagCheck("next").String())
	assert.True(t, NormalizeWithTagCheck("next").IsTag())

	v := NormalizeWithTagCheck("16.0.0")
	assert.False(t, v.IsTag())
	assert.Equal(t, "16.0.0", v.String())
}

func TestGT(t *testing.T) {
	testCases := []struct {
		name     string
		a, b     string
		expected bool
	}{
		{name: "greater major", a: "2.0.0", b: "1.9.9", expected: true},
		{name: "equal versions", a: "1.0.0", b: "1.0.0", expected: false},
		{name: "lesser version", a: "1.0.0", b: "2.0.0", expected: false},
		{name: "prerelease is less than release", a: "1.0.0-beta.0", b: "1.0.0", expected: false},
		{name: "release is greater than its own prerelease", a: "1.0.0", b: "1.0.0-beta.0", expected: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			a := Normalize(tc.a)
			b := Normalize(tc.b)
			assert.Equal(t, tc.expected, GT(a, b))
		})
	}
}

func TestGT_TagsNeverCompareNumerically(t *testing.T) {
	assert.False(t, GT(NormalizeWithTagCheck("latest"), Normalize("1.0.0")))
	assert.False(t, GT(Normalize("1.0.0"), NormalizeWithTagCheck("latest")))
}

func TestLTE(t *testing.T) {
	assert.True(t, LTE(Normalize("1.0.0"), Normalize("1.0.0")))
	assert.True(t, LTE(Normalize("1.0.0"), Normalize("2.0.0")))
	assert.False(t, LTE(Normalize("2.0.0"), Normalize("1.0.0")))
}

func TestCleanSemver(t *testing.T) {
	assert.Equal(t, "1.2.3", CleanSemver("1.2.3"))
	assert.Equal(t, "1.2.3", CleanSemver("v1.2.3"))
	assert.Equal(t, "1.2.0", CleanSemver("1.2"))
}

// TestGT_UpgradeOnlySequenceConvergesOnMax exercises the property that repeated GT checks applied
// in addPackageJsonUpdate-style accumulation always converge on the max.
func TestGT_UpgradeOnlySequenceConvergesOnMax(t *testing.T) {
	versions := []string{"1.0.0", "1.5.0", "1.2.0", "2.0.0", "1.9.9"}
	current := Normalize(versions[0])
	for _, raw := range versions[1:] {
		candidate := Normalize(raw)
		if GT(candidate, current) {
			current = candidate
		}
	}
	assert.Equal(t, "2.0.0", current.String())
}
