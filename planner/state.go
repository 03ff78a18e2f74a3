package planner

import (
	"sync"

	"github.com/daem0ndev/migrate/migrations"
	"github.com/daem0ndev/migrate/semver"
)

// State is the Planner's owned, mutable cross-recursion state: the plan
// being built, the highest version seen per package (for cycle pruning),
// and the user-supplied override maps. Every sub-recursion holds a pointer
// to the same State; unlike the single-threaded cooperative scheduler this
// was modeled on, real goroutines run genuinely concurrently here, so every
// mutation is guarded by a mutex instead of relying on suspension-point
// discipline.
type State struct {
	mu sync.Mutex

	packageJsonUpdates map[string]migrations.PackageJsonUpdateForPackage
	updateOrder        []string
	collectedVersions  map[string]semver.Version
	installedOverrides map[string]string
	to                 map[string]string
}

// NewState builds a State from the user-supplied `from` overrides and `to`
// pins. `from` is copied into a mutable overrides map (package-group
// propagation appends to it); `to` is copied but never mutated thereafter.
func NewState(from, to map[string]string) *State {
	overrides := make(map[string]string, len(from))
	for k, v := range from {
		overrides[k] = v
	}
	pins := make(map[string]string, len(to))
	for k, v := range to {
		pins[k] = v
	}

	return &State{
		packageJsonUpdates: make(map[string]migrations.PackageJsonUpdateForPackage),
		collectedVersions:  make(map[string]semver.Version),
		installedOverrides: overrides,
		to:                 pins,
	}
}

// To returns the user-pinned target version for pkg, if any.
func (s *State) To(pkg string) (string, bool) {
	v, ok := s.to[pkg]
	return v, ok
}

// Override returns the user-supplied `from` override for pkg, if any.
func (s *State) Override(pkg string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.installedOverrides[pkg]
	return v, ok
}

// PropagateOverride sets overrides[child] = overrides[parent] when parent
// has an override and child does not already have one. Returns whether it
// propagated anything.
func (s *State) PropagateOverride(parent, child string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	parentOverride, ok := s.installedOverrides[parent]
	if !ok {
		return false
	}
	if _, has := s.installedOverrides[child]; has {
		return false
	}
	s.installedOverrides[child] = parentOverride
	return true
}

// OverridesSnapshot returns a point-in-time copy of the installed-version
// override map, for passing into the Installed-Version Resolver.
func (s *State) OverridesSnapshot() map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	snapshot := make(map[string]string, len(s.installedOverrides))
	for k, v := range s.installedOverrides {
		snapshot[k] = v
	}
	return snapshot
}

// CollectedVersion returns the highest version already recorded for pkg
// during traversal.
func (s *State) CollectedVersion(pkg string) (semver.Version, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.collectedVersions[pkg]
	return v, ok
}

// SetCollectedVersion records v as the highest version seen for pkg so far.
func (s *State) SetCollectedVersion(pkg string, v semver.Version) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.collectedVersions[pkg] = v
}

// AddPackageJsonUpdate records upd for pkg, keeping whichever version is
// strictly greater (upgrade-only discipline). A first write always wins.
// Tag values never compare with numeric versions (semver.GT is unconditionally
// false whenever either side is a tag), so a concrete proposal always
// replaces an existing tag placeholder, and a tag proposal never displaces
// an existing concrete version.
func (s *State) AddPackageJsonUpdate(pkg string, upd migrations.PackageJsonUpdateForPackage) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.packageJsonUpdates[pkg]
	if ok {
		switch {
		case existing.Version.IsTag() && !upd.Version.IsTag():
			// concrete always supersedes a tag placeholder
		case !existing.Version.IsTag() && upd.Version.IsTag():
			return
		case !semver.GT(upd.Version, existing.Version):
			return
		}
	}
	if !ok {
		s.updateOrder = append(s.updateOrder, pkg)
	}
	s.packageJsonUpdates[pkg] = upd
}

// PackageJsonUpdate returns the currently planned update for pkg, if any.
func (s *State) PackageJsonUpdate(pkg string) (migrations.PackageJsonUpdateForPackage, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.packageJsonUpdates[pkg]
	return v, ok
}

// PackageJsonUpdates returns a snapshot of the full plan as a map, which
// carries no order; OrderedPackages gives the order packages were first
// added.
func (s *State) PackageJsonUpdates() map[string]migrations.PackageJsonUpdateForPackage {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := make(map[string]migrations.PackageJsonUpdateForPackage, len(s.packageJsonUpdates))
	for k, v := range s.packageJsonUpdates {
		result[k] = v
	}
	return result
}

// OrderedPackages returns the plan-insertion order of planned packages.
func (s *State) OrderedPackages() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	order := make([]string, len(s.updateOrder))
	copy(order, s.updateOrder)
	return order
}
