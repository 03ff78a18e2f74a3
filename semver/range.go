package semver

import (
	depssemver "deps.dev/util/semver"
)

// SatisfiesRange reports whether v satisfies the npm-style range expression
// rangeExpr (caret/tilde/hyphen ranges, comparison operators, "||" unions,
// "x"/"*" wildcards). An empty range, "latest", or "*" is always satisfied.
// Pre-release versions are included in the match, per spec: a range like
// "^1.0.0" matching against "1.1.0-beta.0" is considered satisfied the way
// npm's own resolver treats it, which is why this delegates to
// deps.dev/util/semver's NPM system rather than Masterminds/semver (whose
// default comparator treats pre-releases as never satisfying a range unless
// the range itself carries a pre-release tag).
func SatisfiesRange(v Version, rangeExpr string) bool {
	if rangeExpr == "" || rangeExpr == TagLatest || rangeExpr == "*" {
		return true
	}
	if v.IsTag() {
		return true
	}

	constraint, err := depssemver.NPM.ParseConstraint(rangeExpr)
	if err != nil {
		// Not a valid npm range grammar; fall back to exact string match,
		// mirroring version.Info.SatisfiesConstraint's fallback.
		return v.String() == rangeExpr
	}

	return constraint.Match(v.String())
}
