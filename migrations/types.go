// Package migrations defines the data model shared by the fetcher, planner
// and runner: the as-fetched manifest shape (which tolerates the npm
// ecosystem's historical variance in how a migration package declares its
// update graph) and the normalized forms the planner actually works with.
package migrations

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/daem0ndev/migrate/semver"
)

// AddTarget is the sum type `false | "dependencies" | "devDependencies"`
// describing whether and where a package should be written into the
// workspace manifest.
type AddTarget string

const (
	AddNone             AddTarget = ""
	AddDependencies     AddTarget = "dependencies"
	AddDevDependencies  AddTarget = "devDependencies"
)

// UnmarshalJSON accepts the literal `false` as AddNone, and a section name
// string otherwise.
func (a *AddTarget) UnmarshalJSON(data []byte) error {
	var asBool bool
	if err := json.Unmarshal(data, &asBool); err == nil {
		if asBool {
			return fmt.Errorf("addToPackageJson: true is not a valid value, expected false or a section name")
		}
		*a = AddNone
		return nil
	}

	var asString string
	if err := json.Unmarshal(data, &asString); err != nil {
		return fmt.Errorf("addToPackageJson: %w", err)
	}
	switch AddTarget(asString) {
	case AddDependencies, AddDevDependencies, AddNone:
		*a = AddTarget(asString)
		return nil
	default:
		return fmt.Errorf("addToPackageJson: unrecognized section %q", asString)
	}
}

// MarshalJSON renders AddNone as the literal false.
func (a AddTarget) MarshalJSON() ([]byte, error) {
	if a == AddNone {
		return []byte("false"), nil
	}
	return json.Marshal(string(a))
}

// PackageJsonUpdateForPackage is one package's slice of a PackageJsonUpdateEntry.
type PackageJsonUpdateForPackage struct {
	Version                semver.Version `json:"-"`
	RawVersion             string         `json:"version"`
	AddToPackageJson       AddTarget      `json:"addToPackageJson,omitempty"`
	AlwaysAddToPackageJson bool           `json:"alwaysAddToPackageJson,omitempty"`
	IfPackageInstalled     string         `json:"ifPackageInstalled,omitempty"`
}

// UnmarshalJSON resolves RawVersion into Version after the default decode.
func (u *PackageJsonUpdateForPackage) UnmarshalJSON(data []byte) error {
	type alias PackageJsonUpdateForPackage
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	*u = PackageJsonUpdateForPackage(a)
	u.Version = semver.NormalizeWithTagCheck(u.RawVersion)
	return nil
}

// PackageJsonUpdateEntry is one keyed entry in a manifest's
// packageJsonUpdates table.
type PackageJsonUpdateEntry struct {
	Version    semver.Version                         `json:"-"`
	RawVersion string                                 `json:"version"`
	Packages   map[string]PackageJsonUpdateForPackage `json:"packages"`
	Requires   map[string]string                       `json:"requires,omitempty"`
	XPrompt    string                                  `json:"x-prompt,omitempty"`
}

// UnmarshalJSON resolves RawVersion into Version after the default decode.
func (e *PackageJsonUpdateEntry) UnmarshalJSON(data []byte) error {
	type alias PackageJsonUpdateEntry
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	*e = PackageJsonUpdateEntry(a)
	e.Version = semver.NormalizeWithTagCheck(e.RawVersion)
	return nil
}

// Clone returns a deep copy of e, used when the planner splices the
// synthesized "<version>--PackageGroup" entry alongside the fetched ones
// without mutating the cached manifest.
func (e PackageJsonUpdateEntry) Clone() PackageJsonUpdateEntry {
	packages := make(map[string]PackageJsonUpdateForPackage, len(e.Packages))
	for k, v := range e.Packages {
		packages[k] = v
	}
	requires := make(map[string]string, len(e.Requires))
	for k, v := range e.Requires {
		requires[k] = v
	}
	e.Packages = packages
	e.Requires = requires
	return e
}

// MigrationGenerator is one named code-modifying unit a package declares.
type MigrationGenerator struct {
	Version        semver.Version    `json:"-"`
	RawVersion     string            `json:"version"`
	Description    string            `json:"description,omitempty"`
	Implementation string            `json:"implementation,omitempty"`
	Factory        string            `json:"factory,omitempty"`
	CLI            string            `json:"cli,omitempty"`
	Requires       map[string]string `json:"requires,omitempty"`
}

// UnmarshalJSON resolves RawVersion into Version after the default decode.
func (g *MigrationGenerator) UnmarshalJSON(data []byte) error {
	type alias MigrationGenerator
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	*g = MigrationGenerator(a)
	g.Version = semver.NormalizeWithTagCheck(g.RawVersion)
	if g.CLI == "" {
		g.CLI = "nx"
	}
	return nil
}

// Path returns whichever of implementation/factory is set, which is what
// resolves to a file relative to the package's own directory.
func (g MigrationGenerator) Path() string {
	if g.Implementation != "" {
		return g.Implementation
	}
	return g.Factory
}

// GroupSpecEntry is one member of an as-parsed packageGroup, prior to
// targetVersion/override resolution. Version is "" when the group declared
// only a bare package name (list form) and the parent's target version
// should be used.
type GroupSpecEntry struct {
	Package string
	Version string
}

// GroupSpec is the as-parsed packageGroup: either a map or an ordered list,
// both reduced to the same ordered-entries shape. Both representations
// round-trip through json.Decoder token-by-token so that map key order
// (which encoding/json does not otherwise preserve) survives, since the
// planner's group-propagation walk is order-sensitive.
type GroupSpec struct {
	Entries []GroupSpecEntry
}

// UnmarshalJSON accepts packageGroup as either a list of
// `string | {package, version}` or a map `{package: version}`.
func (g *GroupSpec) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}

	switch delim := tok.(type) {
	case json.Delim:
		switch delim {
		case '[':
			return g.unmarshalList(dec)
		case '{':
			return g.unmarshalMap(dec)
		default:
			return fmt.Errorf("packageGroup: unexpected delimiter %v", delim)
		}
	case nil:
		g.Entries = nil
		return nil
	default:
		return fmt.Errorf("packageGroup: unexpected token %v", tok)
	}
}

func (g *GroupSpec) unmarshalList(dec *json.Decoder) error {
	for dec.More() {
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return err
		}

		var asString string
		if err := json.Unmarshal(raw, &asString); err == nil {
			g.Entries = append(g.Entries, GroupSpecEntry{Package: asString})
			continue
		}

		var entry struct {
			Package string `json:"package"`
			Version string `json:"version"`
		}
		if err := json.Unmarshal(raw, &entry); err != nil {
			return fmt.Errorf("packageGroup: unexpected list element %s: %w", raw, err)
		}
		g.Entries = append(g.Entries, GroupSpecEntry{Package: entry.Package, Version: entry.Version})
	}
	// consume closing ']'
	_, err := dec.Token()
	return err
}

// UpdatesSpecItem is one keyed entry of a packageJsonUpdates table,
// preserving its position in declared order.
type UpdatesSpecItem struct {
	Key   string
	Entry PackageJsonUpdateEntry
}

// UpdatesSpec is a packageJsonUpdates table with declared key order
// preserved, since the planner's entry-filtering walk is order-sensitive
// (§4.5.2: requires referencing an earlier same-group addition must see it).
type UpdatesSpec struct {
	Items []UpdatesSpecItem
}

// UnmarshalJSON decodes a JSON object token-by-token to preserve key order,
// the same technique GroupSpec uses for its map form.
func (u *UpdatesSpec) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		u.Items = nil
		return nil
	}
	delim, ok := tok.(json.Delim)
	if !ok || delim != '{' {
		return fmt.Errorf("packageJsonUpdates: expected object, got %v", tok)
	}

	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("packageJsonUpdates: expected string key, got %v", keyTok)
		}

		var entry PackageJsonUpdateEntry
		if err := dec.Decode(&entry); err != nil {
			return fmt.Errorf("packageJsonUpdates: value for %q: %w", key, err)
		}
		u.Items = append(u.Items, UpdatesSpecItem{Key: key, Entry: entry})
	}

	_, err = dec.Token()
	return err
}

// Append adds a new keyed entry at the end, used to splice the synthesized
// "<version>--PackageGroup" entry in after the fetched ones.
func (u *UpdatesSpec) Append(key string, entry PackageJsonUpdateEntry) {
	u.Items = append(u.Items, UpdatesSpecItem{Key: key, Entry: entry})
}

// Clone returns a deep copy, since the planner mutates a manifest's
// updates list per target package without touching the fetcher's cache.
func (u UpdatesSpec) Clone() UpdatesSpec {
	items := make([]UpdatesSpecItem, len(u.Items))
	for i, item := range u.Items {
		items[i] = UpdatesSpecItem{Key: item.Key, Entry: item.Entry.Clone()}
	}
	return UpdatesSpec{Items: items}
}

// GeneratorsSpecItem is one keyed entry of a generators/schematics table,
// preserving its position in declared order.
type GeneratorsSpecItem struct {
	Key   string
	Entry MigrationGenerator
}

// GeneratorsSpec is a generators (or schematics) table with declared key
// order preserved, since migration-list assembly (§4.5.4) must flatten
// generators within a package in declared manifest order.
type GeneratorsSpec struct {
	Items []GeneratorsSpecItem
}

// UnmarshalJSON decodes a JSON object token-by-token to preserve key order,
// the same technique UpdatesSpec uses.
func (g *GeneratorsSpec) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		g.Items = nil
		return nil
	}
	delim, ok := tok.(json.Delim)
	if !ok || delim != '{' {
		return fmt.Errorf("generators: expected object, got %v", tok)
	}

	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("generators: expected string key, got %v", keyTok)
		}

		var entry MigrationGenerator
		if err := dec.Decode(&entry); err != nil {
			return fmt.Errorf("generators: value for %q: %w", key, err)
		}
		g.Items = append(g.Items, GeneratorsSpecItem{Key: key, Entry: entry})
	}

	_, err = dec.Token()
	return err
}

// Get returns the generator registered under name, if any.
func (g GeneratorsSpec) Get(name string) (MigrationGenerator, bool) {
	for _, item := range g.Items {
		if item.Key == name {
			return item.Entry, true
		}
	}
	return MigrationGenerator{}, false
}

// Append adds a new keyed entry at the end, used when folding a manifest's
// legacy "schematics" table into "generators".
func (g *GeneratorsSpec) Append(key string, entry MigrationGenerator) {
	g.Items = append(g.Items, GeneratorsSpecItem{Key: key, Entry: entry})
}

func (g *GroupSpec) unmarshalMap(dec *json.Decoder) error {
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("packageGroup: expected string key, got %v", keyTok)
		}

		var value string
		if err := dec.Decode(&value); err != nil {
			return fmt.Errorf("packageGroup: value for %q: %w", key, err)
		}
		g.Entries = append(g.Entries, GroupSpecEntry{Package: key, Version: value})
	}
	// consume closing '}'
	_, err := dec.Token()
	return err
}
