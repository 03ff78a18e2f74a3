// Package fetcher resolves a (package, versionOrTag) request into a
// MigrationManifest, consulting the registry first and falling back to a
// temporary tarball extraction, with per-(name,resolved-version)
// memoization so concurrent planner sub-recursions requesting the same
// package coalesce onto one in-flight fetch.
package fetcher

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/daem0ndev/migrate/config"
	"github.com/daem0ndev/migrate/migrations"
	"github.com/daem0ndev/migrate/regmanifest"
	"github.com/daem0ndev/migrate/registry"
	"github.com/daem0ndev/migrate/semver"
)

// Fetcher is the Migration Fetcher: fetch(pkg, versionOrTag) -> Manifest.
type Fetcher struct {
	client registry.Client
	cfg    *config.Config

	mu            sync.Mutex
	manifestCache map[string]*migrations.Manifest
	resolvedCache map[string]string

	manifestGroup singleflight.Group
	resolvedGroup singleflight.Group
}

// New builds a Fetcher backed by client, caching extracted migration files
// under cfg's manifest directory.
func New(client registry.Client, cfg *config.Config) *Fetcher {
	return &Fetcher{
		client:        client,
		cfg:           cfg,
		manifestCache: make(map[string]*migrations.Manifest),
		resolvedCache: make(map[string]string),
	}
}

func cacheKey(pkg, versionOrTag string) string {
	return pkg + "-" + versionOrTag
}

// Fetch resolves pkg@versionOrTag into a Manifest.
func (f *Fetcher) Fetch(ctx context.Context, pkg, versionOrTag string) (*migrations.Manifest, error) {
	requestKey := cacheKey(pkg, versionOrTag)
	if m, ok := f.getManifest(requestKey); ok {
		return m, nil
	}

	resolved, err := f.resolveVersion(ctx, pkg, versionOrTag)
	if err != nil {
		return nil, err
	}

	resolvedKey := cacheKey(pkg, resolved)
	if m, ok := f.getManifest(resolvedKey); ok {
		f.setManifest(requestKey, m)
		return m, nil
	}

	v, err, _ := f.manifestGroup.Do(resolvedKey, func() (any, error) {
		return f.fetchManifest(ctx, pkg, resolved)
	})
	if err != nil {
		return nil, err
	}

	m := v.(*migrations.Manifest)
	f.setManifest(requestKey, m)
	f.setManifest(resolvedKey, m)
	return m, nil
}

func (f *Fetcher) resolveVersion(ctx context.Context, pkg, versionOrTag string) (string, error) {
	key := cacheKey(pkg, versionOrTag)

	f.mu.Lock()
	if v, ok := f.resolvedCache[key]; ok {
		f.mu.Unlock()
		return v, nil
	}
	f.mu.Unlock()

	v, err, _ := f.resolvedGroup.Do(key, func() (any, error) {
		resolved, err := f.client.ResolveVersion(ctx, pkg, versionOrTag)
		if err != nil {
			return "", &migrations.NoMatchingVersion{Package: pkg, VersionOrTag: versionOrTag}
		}
		return resolved, nil
	})
	if err != nil {
		return "", err
	}

	resolved := v.(string)
	f.mu.Lock()
	f.resolvedCache[key] = resolved
	f.mu.Unlock()
	return resolved, nil
}

func (f *Fetcher) getManifest(key string) (*migrations.Manifest, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.manifestCache[key]
	return m, ok
}

func (f *Fetcher) setManifest(key string, m *migrations.Manifest) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.manifestCache[key] = m
}

func (f *Fetcher) fetchManifest(ctx context.Context, pkg, resolved string) (*migrations.Manifest, error) {
	m, primaryErr := f.fetchViaRegistryMetadata(ctx, pkg, resolved)
	if primaryErr == nil {
		return m, nil
	}

	m, installErr := f.fetchViaTarballInstall(ctx, pkg, resolved)
	if installErr == nil {
		return m, nil
	}

	return nil, fmt.Errorf("%w (registry metadata path failed: %v, install fallback failed: %v)",
		primaryErr, primaryErr, installErr)
}

// fetchViaRegistryMetadata is step 3: consult the registry's per-version
// metadata for an nx-migrations/ng-update declaration.
func (f *Fetcher) fetchViaRegistryMetadata(ctx context.Context, pkg, resolved string) (*migrations.Manifest, error) {
	doc, err := f.client.ViewVersion(ctx, pkg, resolved)
	if err != nil {
		return nil, fmt.Errorf("failed to view %s@%s: %w", pkg, resolved, err)
	}

	decl, ok := regmanifest.Lookup(doc)
	if !ok {
		return &migrations.Manifest{Version: semver.NormalizeWithTagCheck(resolved)}, nil
	}
	if decl.MigrationsPath == "" {
		return withPackageGroup(&migrations.Manifest{Version: semver.NormalizeWithTagCheck(resolved)}, decl.PackageGroup)
	}

	tarballPath, err := f.client.Pack(ctx, pkg, resolved)
	if err != nil {
		return nil, fmt.Errorf("failed to pack %s@%s: %w", pkg, resolved, err)
	}

	return f.extractAndParse(tarballPath, pkg, resolved, decl)
}

// fetchViaTarballInstall is step 4: re-derive the declaration from the
// package's own packaged manifest rather than the registry's metadata
// document, representing the "temporary install" fallback.
func (f *Fetcher) fetchViaTarballInstall(ctx context.Context, pkg, resolved string) (*migrations.Manifest, error) {
	tarballPath, err := f.client.Pack(ctx, pkg, resolved)
	if err != nil {
		return nil, fmt.Errorf("failed to pack %s@%s for install fallback: %w", pkg, resolved, err)
	}

	manifestOut := filepath.Join(f.cfg.ManifestDir, sanitize(pkg)+"-"+resolved+"-package.json")
	extracted, err := f.client.ExtractFileFromTarball(tarballPath, "package.json", manifestOut)
	if err != nil {
		return nil, fmt.Errorf("failed to extract package.json for %s@%s: %w", pkg, resolved, err)
	}

	content, err := os.ReadFile(extracted)
	if err != nil {
		return nil, fmt.Errorf("failed to read extracted package.json for %s@%s: %w", pkg, resolved, err)
	}

	decl, ok := regmanifest.Lookup(content)
	if !ok {
		return &migrations.Manifest{Version: semver.NormalizeWithTagCheck(resolved)}, nil
	}
	if decl.MigrationsPath == "" {
		return withPackageGroup(&migrations.Manifest{Version: semver.NormalizeWithTagCheck(resolved)}, decl.PackageGroup)
	}

	return f.extractAndParse(tarballPath, pkg, resolved, decl)
}

func (f *Fetcher) extractAndParse(tarballPath, pkg, resolved string, decl regmanifest.Declaration) (*migrations.Manifest, error) {
	outPath := filepath.Join(f.cfg.ManifestDir, sanitize(pkg)+"-"+resolved+"-migrations.json")
	extracted, err := f.client.ExtractFileFromTarball(tarballPath, decl.MigrationsPath, outPath)
	if err != nil {
		return nil, &migrations.MigrationsFileMissing{Package: pkg, Version: resolved, Path: decl.MigrationsPath}
	}

	content, err := os.ReadFile(extracted)
	if err != nil {
		return nil, &migrations.MigrationsFileMissing{Package: pkg, Version: resolved, Path: decl.MigrationsPath}
	}

	var m migrations.Manifest
	if err := json.Unmarshal(content, &m); err != nil {
		return nil, fmt.Errorf("failed to parse migrations file for %s@%s: %w", pkg, resolved, err)
	}
	m.Version = semver.NormalizeWithTagCheck(resolved)

	if len(m.PackageGroup.Entries) == 0 && len(decl.PackageGroup) > 0 {
		return withPackageGroup(&m, decl.PackageGroup)
	}
	return &m, nil
}

func withPackageGroup(m *migrations.Manifest, raw json.RawMessage) (*migrations.Manifest, error) {
	if len(raw) == 0 {
		return m, nil
	}
	if err := json.Unmarshal(raw, &m.PackageGroup); err != nil {
		return nil, fmt.Errorf("failed to parse packageGroup: %w", err)
	}
	return m, nil
}

func sanitize(pkg string) string {
	return strings.ReplaceAll(strings.TrimPrefix(pkg, "@"), "/", "-")
}
