package migrations

import (
	"encoding/json"
	"fmt"

	"github.com/daem0ndev/migrate/semver"
)

// Manifest is the as-fetched nx-migrations.json / ng-update migrations
// payload. An older shape uses the key "schematics" instead of "generators";
// that rename happens once, here, at unmarshal time, per the "normalize
// exactly once at the fetch boundary" rule.
type Manifest struct {
	Version            semver.Version `json:"-"`
	RawVersion         string         `json:"version"`
	PackageJsonUpdates UpdatesSpec    `json:"packageJsonUpdates,omitempty"`
	Generators         GeneratorsSpec `json:"generators,omitempty"`
	Schematics         GeneratorsSpec `json:"schematics,omitempty"`
	PackageGroup       GroupSpec      `json:"packageGroup,omitempty"`
}

// UnmarshalJSON resolves RawVersion and folds Schematics into Generators.
func (m *Manifest) UnmarshalJSON(data []byte) error {
	type alias Manifest
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	*m = Manifest(a)
	m.Version = semver.NormalizeWithTagCheck(m.RawVersion)

	if len(m.Schematics.Items) > 0 {
		for _, item := range m.Schematics.Items {
			m.Generators.Append(item.Key, item.Entry)
		}
		m.Schematics = GeneratorsSpec{}
	}
	return nil
}

// PackageGroupMember is one fully-resolved packageGroup entry: a package
// name paired with the version it should be updated to, after legacy-group
// substitution and "*"-propagation have been applied by the planner.
type PackageGroupMember struct {
	Package string
	Version string
}

// MigrationsFileMissing is raised by the fetcher when the registry-declared
// migrations file path cannot be read out of the downloaded tarball.
type MigrationsFileMissing struct {
	Package string
	Version string
	Path    string
}

func (e *MigrationsFileMissing) Error() string {
	return fmt.Sprintf("failed to find migrations file %s in %s@%s", e.Path, e.Package, e.Version)
}

// NoMatchingVersion is raised when the registry has no version satisfying a
// requested (package, versionOrTag) pair. The planner wraps this with a
// --to hint before re-raising; the fetcher itself just reports the fact.
type NoMatchingVersion struct {
	Package      string
	VersionOrTag string
}

func (e *NoMatchingVersion) Error() string {
	return fmt.Sprintf("no matching version found for %s@%s", e.Package, e.VersionOrTag)
}
