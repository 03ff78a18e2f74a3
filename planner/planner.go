// Package planner implements the migration Planner: the bounded,
// cycle-safe traversal that turns a root package/version target into the
// packageJsonUpdates map and ordered migration-generator list the Runner
// replays.
package planner

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/daem0ndev/migrate/fetcher"
	"github.com/daem0ndev/migrate/installedversion"
	"github.com/daem0ndev/migrate/migrations"
	"github.com/daem0ndev/migrate/packagejson"
	"github.com/daem0ndev/migrate/prompt"
	"github.com/daem0ndev/migrate/semver"
)

// Target is what populateAndGetPackagesToCheck propagates down a
// recursion: the version (or dist-tag) to resolve a package against, and
// how it should be written into the root manifest if it turns out to be a
// pure add.
type Target struct {
	VersionOrTag     string
	AddToPackageJson migrations.AddTarget
}

// CheckGroup is a package whose filtered updates could not be applied
// automatically (some entry carries an x-prompt or a requires clause) and
// must be walked by the outer loop instead of the inner recursion.
type CheckGroup struct {
	Package string
	Updates []migrations.PackageJsonUpdateEntry
}

// PlannedMigration is one generator to run, resolved against the final
// plan (§4.5.4).
type PlannedMigration struct {
	Package   string
	Name      string
	Generator migrations.MigrationGenerator
}

// Planner drives one plan computation. An instance is built fresh for
// every invocation and discarded afterward; its caches and accumulated
// state live only as long as the Plan call.
type Planner struct {
	fetcher      *fetcher.Fetcher
	resolver     *installedversion.Resolver
	rootManifest *packagejson.Manifest
	confirm      prompt.Confirmer
	interactive  bool
	extraCheck   map[string]string
	state        *State
}

// New builds a Planner. from/to are the user-supplied override maps
// (§4.4): from seeds installed-version overrides, to pins target versions
// regardless of what the traversal would otherwise compute.
func New(
	f *fetcher.Fetcher,
	resolver *installedversion.Resolver,
	rootManifest *packagejson.Manifest,
	confirm prompt.Confirmer,
	interactive bool,
	extraCheck map[string]string,
	from, to map[string]string,
) *Planner {
	return &Planner{
		fetcher:      f,
		resolver:     resolver,
		rootManifest: rootManifest,
		confirm:      confirm,
		interactive:  interactive,
		extraCheck:   extraCheck,
		state:        NewState(from, to),
	}
}

// Plan runs the full two-phase computation described in §4.5: build
// packageJsonUpdates starting from rootPkg@rootVersionOrTag, walking every
// check group the traversal surfaces along the way.
func (p *Planner) Plan(ctx context.Context, rootPkg, rootVersionOrTag string) error {
	groups, err := p.populateAndGetPackagesToCheck(ctx, rootPkg, Target{VersionOrTag: rootVersionOrTag})
	if err != nil {
		return err
	}
	return p.walkCheckGroups(ctx, groups)
}

// PackageJsonUpdates returns the final, flattened plan: package name to
// the version (and manifest placement) it should be bumped to.
func (p *Planner) PackageJsonUpdates() map[string]migrations.PackageJsonUpdateForPackage {
	return p.state.PackageJsonUpdates()
}

// populateAndGetPackagesToCheck implements Phase A's recursive step.
func (p *Planner) populateAndGetPackagesToCheck(ctx context.Context, pkg string, target Target) ([]CheckGroup, error) {
	versionOrTag := target.VersionOrTag
	if pinned, ok := p.state.To(pkg); ok {
		versionOrTag = pinned
	}

	overrides := p.state.OverridesSnapshot()
	installed, isInstalled := p.resolver.InstalledVersion(pkg, overrides)
	if !isInstalled {
		p.state.AddPackageJsonUpdate(pkg, migrations.PackageJsonUpdateForPackage{
			RawVersion:       versionOrTag,
			Version:          semver.NormalizeWithTagCheck(versionOrTag),
			AddToPackageJson: target.AddToPackageJson,
		})
		return nil, nil
	}

	manifest, err := p.fetcher.Fetch(ctx, pkg, versionOrTag)
	if err != nil {
		var noMatch *migrations.NoMatchingVersion
		if errors.As(err, &noMatch) {
			return nil, fmt.Errorf("no version of %s satisfies %q; pin an exact version with --to %s@<version>: %w", pkg, versionOrTag, pkg, err)
		}
		return nil, err
	}

	resolvedVersion := manifest.Version
	if collected, ok := p.state.CollectedVersion(pkg); ok && !semver.GT(resolvedVersion, collected) {
		return nil, nil
	}
	p.state.SetCollectedVersion(pkg, resolvedVersion)

	groupOrder := p.normalizeGroupOrder(pkg, resolvedVersion.String(), manifest.PackageGroup)
	updates := withGroupEntry(manifest.PackageJsonUpdates.Clone(), groupOrder, resolvedVersion)

	installedVersion := semver.NormalizeWithTagCheck(installed)
	filtered := p.filterUpdates(updates, installedVersion, resolvedVersion)

	p.state.AddPackageJsonUpdate(pkg, migrations.PackageJsonUpdateForPackage{
		RawVersion:       resolvedVersion.String(),
		Version:          resolvedVersion,
		AddToPackageJson: target.AddToPackageJson,
	})

	if len(filtered) == 0 {
		return nil, nil
	}

	if anyGated(filtered, p.interactive) {
		return []CheckGroup{{Package: pkg, Updates: filtered}}, nil
	}

	names, acc := mergeEntries(filtered)
	return p.recurseInto(ctx, names, acc, groupOrder)
}

// withGroupEntry synthesizes the "<resolvedVersion>--PackageGroup" pseudo
// update entry (step 7) and splices it in, when the package declared a
// non-empty group.
func withGroupEntry(updates migrations.UpdatesSpec, groupOrder []string, resolvedVersion semver.Version) migrations.UpdatesSpec {
	if len(groupOrder) == 0 {
		return updates
	}

	packages := make(map[string]migrations.PackageJsonUpdateForPackage, len(groupOrder))
	for _, member := range groupOrder {
		packages[member] = migrations.PackageJsonUpdateForPackage{
			RawVersion:             resolvedVersion.String(),
			Version:                resolvedVersion,
			AlwaysAddToPackageJson: false,
		}
	}

	updates.Append(resolvedVersion.String()+"--PackageGroup", migrations.PackageJsonUpdateEntry{
		RawVersion: resolvedVersion.String(),
		Version:    resolvedVersion,
		Packages:   packages,
	})
	return updates
}

// anyGated reports whether any entry requires manual walking: a
// non-empty requires, or an x-prompt that must actually be asked
// (irrelevant once the run is non-interactive).
func anyGated(entries []migrations.PackageJsonUpdateEntry, interactive bool) bool {
	for _, e := range entries {
		if len(e.Requires) > 0 {
			return true
		}
		if e.XPrompt != "" && interactive {
			return true
		}
	}
	return false
}

// mergeEntries merges every entry's packages map into one, returning the
// merge order (first-seen package wins position; later entries overwrite
// earlier values for the same package, matching object-spread semantics).
// Each entry's own members are visited in a sorted, deterministic order
// since a Go map does not preserve the original manifest's member order.
func mergeEntries(entries []migrations.PackageJsonUpdateEntry) ([]string, map[string]migrations.PackageJsonUpdateForPackage) {
	var order []string
	acc := make(map[string]migrations.PackageJsonUpdateForPackage)

	for _, e := range entries {
		names := make([]string, 0, len(e.Packages))
		for name := range e.Packages {
			names = append(names, name)
		}
		sort.Strings(names)

		for _, name := range names {
			if _, ok := acc[name]; !ok {
				order = append(order, name)
			}
			acc[name] = e.Packages[name]
		}
	}

	return order, acc
}

// recurseInto runs populateAndGetPackagesToCheck for every (name, update)
// in parallel, concatenates the returned check groups in names order, and
// sorts the concatenation by groupOrder (unlisted packages sort as if at
// index -1, ties preserving the concatenation's original order).
func (p *Planner) recurseInto(
	ctx context.Context,
	names []string,
	acc map[string]migrations.PackageJsonUpdateForPackage,
	groupOrder []string,
) ([]CheckGroup, error) {
	results := make([][]CheckGroup, len(names))

	g, gctx := errgroup.WithContext(ctx)
	for i, name := range names {
		i, name := i, name
		upd := acc[name]
		g.Go(func() error {
			groups, err := p.populateAndGetPackagesToCheck(gctx, name, Target{
				VersionOrTag:     upd.RawVersion,
				AddToPackageJson: upd.AddToPackageJson,
			})
			if err != nil {
				return err
			}
			results[i] = groups
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var merged []CheckGroup
	for _, r := range results {
		merged = append(merged, r...)
	}

	return sortByGroupOrder(merged, groupOrder), nil
}

// sortByGroupOrder stably sorts groups by the position of each group's
// Package within groupOrder, treating an absent package as index -1.
func sortByGroupOrder(groups []CheckGroup, groupOrder []string) []CheckGroup {
	if len(groupOrder) == 0 {
		return groups
	}

	index := make(map[string]int, len(groupOrder))
	for i, name := range groupOrder {
		index[name] = i
	}

	sort.SliceStable(groups, func(i, j int) bool {
		return indexOrDefault(index, groups[i].Package) < indexOrDefault(index, groups[j].Package)
	})
	return groups
}

func indexOrDefault(index map[string]int, name string) int {
	if i, ok := index[name]; ok {
		return i
	}
	return -1
}

// walkCheckGroups implements the outer walker described after step 11:
// for each check group, merge the entries whose requires/x-prompt gate
// passes, then recurse into the merged members, repeating against
// whatever further check groups that recursion surfaces.
func (p *Planner) walkCheckGroups(ctx context.Context, groups []CheckGroup) error {
	for _, group := range groups {
		names, acc, err := p.resolveCheckGroup(group)
		if err != nil {
			return err
		}
		if len(names) == 0 {
			continue
		}

		childGroups, err := p.recurseInto(ctx, names, acc, nil)
		if err != nil {
			return err
		}
		if err := p.walkCheckGroups(ctx, childGroups); err != nil {
			return err
		}
	}
	return nil
}

func (p *Planner) resolveCheckGroup(group CheckGroup) ([]string, map[string]migrations.PackageJsonUpdateForPackage, error) {
	var order []string
	acc := make(map[string]migrations.PackageJsonUpdateForPackage)

	for _, entry := range group.Updates {
		if !p.requirementsSatisfied(entry.Requires) {
			continue
		}
		if entry.XPrompt != "" && p.interactive {
			ok, err := p.confirm.Confirm(entry.XPrompt)
			if err != nil {
				return nil, nil, fmt.Errorf("prompt for %s failed: %w", group.Package, err)
			}
			if !ok {
				continue
			}
		}

		names := make([]string, 0, len(entry.Packages))
		for name := range entry.Packages {
			names = append(names, name)
		}
		sort.Strings(names)

		for _, name := range names {
			if _, ok := acc[name]; !ok {
				order = append(order, name)
			}
			acc[name] = entry.Packages[name]
		}
	}

	return order, acc, nil
}

// AssembleMigrations implements §4.5.4: for every planned package, fetch
// its manifest again (served from the Fetcher's cache) and keep every
// generator whose version falls in (installed, planned], with its
// requires satisfied against the final plan state. Declared manifest
// order is preserved within a package; packages appear in plan-insertion
// order.
func (p *Planner) AssembleMigrations(ctx context.Context) ([]PlannedMigration, error) {
	overrides := p.state.OverridesSnapshot()
	updates := p.state.PackageJsonUpdates()

	var result []PlannedMigration
	for _, pkg := range p.state.OrderedPackages() {
		planned, ok := updates[pkg]
		if !ok {
			continue
		}

		installedVersion := semver.Zero
		if installed, ok := p.resolver.InstalledVersion(pkg, overrides); ok {
			installedVersion = semver.NormalizeWithTagCheck(installed)
		}

		manifest, err := p.fetcher.Fetch(ctx, pkg, planned.RawVersion)
		if err != nil {
			// Never had a real manifest to begin with (e.g. a pure add for
			// a package that isn't installed); nothing to run for it.
			continue
		}

		for _, item := range manifest.Generators.Items {
			g := item.Entry
			if !semver.GT(g.Version, installedVersion) {
				continue
			}
			if semver.GT(g.Version, planned.Version) {
				continue
			}
			if !p.requirementsSatisfied(g.Requires) {
				continue
			}
			result = append(result, PlannedMigration{Package: pkg, Name: item.Key, Generator: g})
		}
	}

	return result, nil
}
