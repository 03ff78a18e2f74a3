package planner

import "github.com/daem0ndev/migrate/semver"

// requirementsSatisfied implements §4.5.3: for every (pkg, range) pair in
// requires, at least one of (a) installed satisfies, (b) planned satisfies,
// (c) extraCheck satisfies must hold. An absent/empty requires is trivially
// satisfied.
func (p *Planner) requirementsSatisfied(requires map[string]string) bool {
	for pkg, rangeExpr := range requires {
		if p.requirementSatisfied(pkg, rangeExpr) {
			continue
		}
		return false
	}
	return true
}

func (p *Planner) requirementSatisfied(pkg, rangeExpr string) bool {
	if installed, ok := p.resolver.InstalledVersion(pkg, p.state.OverridesSnapshot()); ok {
		if semver.SatisfiesRange(semver.NormalizeWithTagCheck(installed), rangeExpr) {
			return true
		}
	}

	if planned, ok := p.state.PackageJsonUpdate(pkg); ok {
		if semver.SatisfiesRange(planned.Version, rangeExpr) {
			return true
		}
	}

	if extra, ok := p.extraCheck[pkg]; ok {
		cleaned := semver.CleanSemver(extra)
		if semver.SatisfiesRange(semver.NormalizeWithTagCheck(cleaned), rangeExpr) {
			return true
		}
	}

	return false
}
