// Package semver implements the normalizer described by the planner's data
// model: it canonicalizes arbitrary version strings into comparable triples
// while preserving the distinguished dist-tags "latest" and "next", and
// exposes the comparison and range-satisfaction primitives the planner and
// fetcher build on.
//
// Two real semver libraries back this package, each for the concern it
// actually covers: github.com/Masterminds/semver/v3 for triple parsing and
// ordering (mirrors the teacher's version.Info.GetVersion use of it), and
// deps.dev/util/semver for npm-grammar range matching (hyphen ranges, "||",
// x-ranges) including pre-release visibility, which Masterminds does not
// model the same way npm's own resolver does.
package semver

import (
	"strconv"
	"strings"

	mmsemver "github.com/Masterminds/semver/v3"
)

// Tag values that never compare numerically; callers must branch on
// IsTag before calling GT/LTE.
const (
	TagLatest = "latest"
	TagNext   = "next"
)

// Version is a canonical major.minor.patch[-prerelease] triple, or one of
// the literal tags "latest"/"next".
type Version struct {
	tag        string
	major      uint64
	minor      uint64
	patch      uint64
	prerelease string
}

// Tag returns the version's dist-tag, or "" if it is a concrete semver.
func (v Version) Tag() string { return v.tag }

// IsTag reports whether v is a distinguished tag rather than a concrete
// semver triple.
func (v Version) IsTag() bool { return v.tag != "" }

// String renders the canonical form: the tag verbatim, or "major.minor.patch"
// with an optional "-prerelease" suffix.
func (v Version) String() string {
	if v.IsTag() {
		return v.tag
	}
	s := strconv.FormatUint(v.major, 10) + "." + strconv.FormatUint(v.minor, 10) + "." + strconv.FormatUint(v.patch, 10)
	if v.prerelease != "" {
		s += "-" + v.prerelease
	}
	return s
}

// Zero is the fallback version used whenever nothing recognizable could be
// parsed out of the input.
var Zero = Version{major: 0, minor: 0, patch: 0}

// Normalize converts an arbitrary version string into a comparable triple.
// It splits on the first "-" into a semver part and a prerelease tag, splits
// the semver part into major.minor.patch defaulting missing components to
// 0, and tries four candidates in order of decreasing precision: the full
// string, the semver-only part, "x.y.0", and "x.0.0". The first candidate
// that parses as a strictly-greater-than-zero semver wins; otherwise Zero.
func Normalize(raw string) Version {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Zero
	}

	semverPart := raw
	prerelease := ""
	if idx := strings.Index(raw, "-"); idx >= 0 {
		semverPart = raw[:idx]
		prerelease = raw[idx+1:]
	}

	parts := strings.SplitN(semverPart, ".", 3)
	major, minor, patch := "0", "0", "0"
	if len(parts) > 0 && parts[0] != "" {
		major = parts[0]
	}
	if len(parts) > 1 && parts[1] != "" {
		minor = parts[1]
	}
	if len(parts) > 2 && parts[2] != "" {
		patch = parts[2]
	}

	candidates := []struct {
		major, minor, patch, prerelease string
	}{
		{major, minor, patch, prerelease},
		{major, minor, patch, ""},
		{major, minor, "0", ""},
		{major, "0", "0", ""},
	}

	for _, c := range candidates {
		candidate := joinTriple(c.major, c.minor, c.patch, c.prerelease)
		if _, err := mmsemver.NewVersion(candidate); err != nil {
			continue
		}

		ma, errMa := strconv.ParseUint(c.major, 10, 64)
		mi, errMi := strconv.ParseUint(c.minor, 10, 64)
		pa, errPa := strconv.ParseUint(c.patch, 10, 64)
		if errMa != nil || errMi != nil || errPa != nil {
			continue
		}
		if ma == 0 && mi == 0 && pa == 0 {
			continue
		}
		return Version{major: ma, minor: mi, patch: pa, prerelease: c.prerelease}
	}

	return Zero
}

func joinTriple(major, minor, patch, prerelease string) string {
	s := major + "." + minor + "." + patch
	if prerelease != "" {
		s += "-" + prerelease
	}
	return s
}

// NormalizeWithTagCheck passes "latest"/"next" through unchanged; any other
// input is normalized as a concrete semver.
func NormalizeWithTagCheck(raw string) Version {
	switch raw {
	case TagLatest, TagNext:
		return Version{tag: raw}
	default:
		return Normalize(raw)
	}
}

// compare orders two concrete (non-tag) versions. Tags are never compared
// numerically; callers branch on IsTag first. Both sides round-trip through
// Masterminds/semver so ordering (including pre-release precedence) follows
// the same semver.org rules the rest of the ecosystem uses.
func compare(a, b Version) int {
	// a and b were produced by Normalize/NormalizeWithTagCheck, so they are
	// always well-formed triples and these can't fail.
	av, _ := mmsemver.NewVersion(a.String())
	bv, _ := mmsemver.NewVersion(b.String())
	return av.Compare(bv)
}

// GT reports whether a is strictly greater than b after normalizing both.
func GT(a, b Version) bool {
	if a.IsTag() || b.IsTag() {
		return false
	}
	return compare(a, b) > 0
}

// LTE reports whether a is less than or equal to b after normalizing both.
func LTE(a, b Version) bool {
	if a.IsTag() || b.IsTag() {
		return false
	}
	return compare(a, b) <= 0
}

// CleanSemver returns the canonical semver form of raw, or a coerced
// best-effort triple when raw is not already well-formed.
func CleanSemver(raw string) string {
	if v, err := mmsemver.StrictNewVersion(raw); err == nil {
		return v.String()
	}
	if v, err := mmsemver.NewVersion(raw); err == nil {
		return v.String()
	}
	return Normalize(raw).String()
}
