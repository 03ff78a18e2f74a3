// Package installedversion resolves the version of a package actually
// present in a workspace's node_modules tree, with a memoization cache and
// a legacy-name fallback for the nx / @nrwl/workspace rename.
package installedversion

import (
	"path/filepath"
	"sync"

	"github.com/tidwall/gjson"
)

// legacyWorkspacePackage is the name nx shipped under before it was renamed;
// workspaces that have not yet migrated still carry it in node_modules.
const legacyWorkspacePackage = "@nrwl/workspace"

// FileReader reads a file's bytes, or returns an error if it does not
// exist. Exists to let tests substitute an in-memory tree instead of a real
// node_modules directory.
type FileReader func(path string) ([]byte, error)

// Resolver answers "what version of this package is installed", consulting
// overrides first, then a root-relative node_modules lookup, cached for the
// lifetime of a single plan.
type Resolver struct {
	root string
	read FileReader

	mu    sync.Mutex
	cache map[string]string
}

// New builds a Resolver rooted at root, reading manifests with read.
func New(root string, read FileReader) *Resolver {
	return &Resolver{
		root:  root,
		read:  read,
		cache: make(map[string]string),
	}
}

// InstalledVersion returns the version of pkg present in the workspace, or
// ("", false) when it is not installed at all. overrides take precedence
// over any on-disk lookup; the Planner passes its `from` overrides here
// (including those propagated through package groups), never its `to` pins.
func (r *Resolver) InstalledVersion(pkg string, overrides map[string]string) (string, bool) {
	if v, ok := overrides[pkg]; ok {
		return v, true
	}

	if v, ok := r.lookup(pkg); ok {
		return v, true
	}

	if pkg == "nx" {
		if v, ok := overrides[legacyWorkspacePackage]; ok {
			return v, true
		}
		return r.lookup(legacyWorkspacePackage)
	}

	return "", false
}

func (r *Resolver) lookup(pkg string) (string, bool) {
	r.mu.Lock()
	if v, ok := r.cache[pkg]; ok {
		r.mu.Unlock()
		return v, true
	}
	r.mu.Unlock()

	manifestPath := filepath.Join(r.root, "node_modules", pkg, "package.json")
	content, err := r.read(manifestPath)
	if err != nil {
		return "", false
	}

	version := gjson.GetBytes(content, "version")
	if !version.Exists() || version.String() == "" {
		return "", false
	}

	r.mu.Lock()
	r.cache[pkg] = version.String()
	r.mu.Unlock()

	return version.String(), true
}
