package planner

import (
	"github.com/daem0ndev/migrate/migrations"
	"github.com/daem0ndev/migrate/packagejson"
	"github.com/daem0ndev/migrate/semver"
)

// filterUpdates implements §4.5.2: drop update entries that don't apply at
// all, then rewrite the surviving entries' packages maps to drop members
// that don't apply, in canonical {version, addToPackageJson} form.
func (p *Planner) filterUpdates(updates migrations.UpdatesSpec, installed, targetVersion semver.Version) []migrations.PackageJsonUpdateEntry {
	var result []migrations.PackageJsonUpdateEntry

	for _, item := range updates.Items {
		entry := item.Entry

		if len(entry.Packages) == 0 {
			continue
		}
		if !semver.GT(entry.Version, installed) {
			continue
		}
		if semver.GT(entry.Version, targetVersion) {
			continue
		}

		newPackages := make(map[string]migrations.PackageJsonUpdateForPackage)
		for name, upd := range entry.Packages {
			if !p.memberApplies(name, upd) {
				continue
			}
			newPackages[name] = migrations.PackageJsonUpdateForPackage{
				Version:          upd.Version,
				RawVersion:       upd.RawVersion,
				AddToPackageJson: canonicalAddTarget(upd),
			}
		}

		if len(newPackages) == 0 {
			continue
		}
		entry.Packages = newPackages
		result = append(result, entry)
	}

	return result
}

func (p *Planner) memberApplies(name string, upd migrations.PackageJsonUpdateForPackage) bool {
	if upd.IfPackageInstalled != "" {
		if _, ok := p.resolver.InstalledVersion(upd.IfPackageInstalled, p.state.OverridesSnapshot()); !ok {
			return false
		}
	}

	beingAdded := upd.AlwaysAddToPackageJson || upd.AddToPackageJson != migrations.AddNone
	alreadyInManifest := p.rootManifest.Has(name, packagejson.Dependencies) || p.rootManifest.Has(name, packagejson.DevDependencies)
	if !beingAdded && !alreadyInManifest {
		return false
	}

	if collected, ok := p.state.CollectedVersion(name); ok {
		if !semver.GT(upd.Version, collected) {
			return false
		}
	}

	return true
}

func canonicalAddTarget(upd migrations.PackageJsonUpdateForPackage) migrations.AddTarget {
	if upd.AlwaysAddToPackageJson {
		return migrations.AddDependencies
	}
	return upd.AddToPackageJson
}
