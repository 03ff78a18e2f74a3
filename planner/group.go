package planner

import (
	"github.com/daem0ndev/migrate/migrations"
	"github.com/daem0ndev/migrate/semver"
)

// legacyWorkspacePackage is the pre-rename nx package name.
const legacyWorkspacePackage = "@nrwl/workspace"

// legacyNrwlGroupVersionCeiling is the nx version below which
// @nrwl/workspace's packageGroup is frozen to the hard-coded legacy list,
// regardless of what the fetched manifest declares.
const legacyNrwlGroupVersionCeiling = "14.0.0-beta.0"

// legacyNrwlGroup is the frozen backward-compatibility packageGroup for
// @nrwl/workspace releases that predate the per-package @nrwl/* split.
// Per the open question in the design notes, this list is not known to be
// extensible and is treated as frozen.
func legacyNrwlGroup() []migrations.GroupSpecEntry {
	names := []string{
		"@nrwl/angular",
		"@nrwl/cypress",
		"@nrwl/eslint-plugin-nx",
		"@nrwl/express",
		"@nrwl/jest",
		"@nrwl/linter",
		"@nrwl/nest",
		"@nrwl/next",
		"@nrwl/node",
		"@nrwl/nx-plugin",
		"@nrwl/react",
		"@nrwl/storybook",
		"@nrwl/web",
		"@nrwl/workspace",
	}

	entries := make([]migrations.GroupSpecEntry, 0, len(names)+1)
	for _, n := range names {
		entries = append(entries, migrations.GroupSpecEntry{Package: n, Version: "*"})
	}
	entries = append(entries, migrations.GroupSpecEntry{Package: "@nrwl/nx-cloud", Version: "latest"})
	return entries
}

// isLegacyNrwlGroupVersion reports whether targetVersion falls under the
// legacy-group freeze (strictly less than 14.0.0-beta.0). Dist-tags never
// trigger the legacy path, since they always resolve to a current release.
func isLegacyNrwlGroupVersion(targetVersion string) bool {
	v := semver.NormalizeWithTagCheck(targetVersion)
	if v.IsTag() {
		return false
	}
	ceiling := semver.Normalize(legacyNrwlGroupVersionCeiling)
	return semver.GT(ceiling, v)
}

// resolveGroupEntries applies the legacy-group substitution (§4.5.1,
// paragraph 1) ahead of override propagation.
func resolveGroupEntries(pkg, targetVersion string, group migrations.GroupSpec) []migrations.GroupSpecEntry {
	if pkg == legacyWorkspacePackage && isLegacyNrwlGroupVersion(targetVersion) {
		return legacyNrwlGroup()
	}
	return group.Entries
}

// normalizeGroupOrder computes the packageGroupOrder for pkg's traversal:
// the ordered list of group member names, after propagating "*"/bare-string
// overrides from pkg to each member that doesn't already have one.
func (p *Planner) normalizeGroupOrder(pkg, targetVersion string, group migrations.GroupSpec) []string {
	entries := resolveGroupEntries(pkg, targetVersion, group)

	order := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.Version == "" || e.Version == "*" {
			p.state.PropagateOverride(pkg, e.Package)
		}
		order = append(order, e.Package)
	}
	return order
}
