package fetcher

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/daem0ndev/migrate/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRegistry is an in-memory registry.Client used to exercise the
// fetcher's fallback and coalescing behavior without a network dependency.
type fakeRegistry struct {
	mu sync.Mutex

	resolvedVersions map[string]string
	viewVersionDocs  map[string]json.RawMessage
	viewVersionErr   map[string]error
	tarballContents  map[string]map[string]string // tarballKey -> entryPath -> content

	viewVersionCalls atomic.Int32
	packCalls        atomic.Int32
}

func newFakeRegistry() *fakeRegistry {
	return &fakeRegistry{
		resolvedVersions: map[string]string{},
		viewVersionDocs:  map[string]json.RawMessage{},
		viewVersionErr:   map[string]error{},
		tarballContents:  map[string]map[string]string{},
	}
}

func (f *fakeRegistry) View(ctx context.Context, pkg string) (json.RawMessage, error) {
	return nil, fmt.Errorf("not implemented in fake")
}

func (f *fakeRegistry) ViewVersion(ctx context.Context, pkg, version string) (json.RawMessage, error) {
	f.viewVersionCalls.Add(1)
	key := pkg + "@" + version
	if err, ok := f.viewVersionErr[key]; ok {
		return nil, err
	}
	return f.viewVersionDocs[key], nil
}

func (f *fakeRegistry) ResolveVersion(ctx context.Context, pkg, versionOrRange string) (string, error) {
	key := pkg + "@" + versionOrRange
	v, ok := f.resolvedVersions[key]
	if !ok {
		return "", fmt.Errorf("no resolution configured for %s", key)
	}
	return v, nil
}

func (f *fakeRegistry) Pack(ctx context.Context, pkg, version string) (string, error) {
	f.packCalls.Add(1)
	return pkg + "@" + version + ".tgz", nil
}

func (f *fakeRegistry) ExtractFileFromTarball(tarballPath, entryPath, outPath string) (string, error) {
	entries, ok := f.tarballContents[tarballPath]
	if !ok {
		return "", fmt.Errorf("no tarball %s configured", tarballPath)
	}
	content, ok := entries[entryPath]
	if !ok {
		return "", fmt.Errorf("entry %s not found in %s", entryPath, tarballPath)
	}
	return outPath, writeFile(outPath, content)
}

func TestFetch_NoDeclaration_ReturnsNoOpManifest(t *testing.T) {
	reg := newFakeRegistry()
	reg.resolvedVersions["nx@latest"] = "16.0.0"
	reg.viewVersionDocs["nx@16.0.0"] = json.RawMessage(`{"name":"nx"}`)

	f := New(reg, &config.Config{ManifestDir: t.TempDir(), TarballDir: t.TempDir()})
	m, err := f.Fetch(context.Background(), "nx", "latest")
	require.NoError(t, err)
	assert.Equal(t, "16.0.0", m.Version.String())
	assert.Empty(t, m.Generators.Items)
}

func TestFetch_WithMigrationsFile_ParsesGenerators(t *testing.T) {
	reg := newFakeRegistry()
	reg.resolvedVersions["nx@latest"] = "16.0.0"
	reg.viewVersionDocs["nx@16.0.0"] = json.RawMessage(`{"nx-migrations":{"migrations":"./migrations.json"}}`)
	reg.tarballContents["nx@16.0.0.tgz"] = map[string]string{
		"./migrations.json": `{"version":"16.0.0","generators":{"update-1":{"version":"16.0.0","implementation":"./u1"}}}`,
	}

	f := New(reg, &config.Config{ManifestDir: t.TempDir(), TarballDir: t.TempDir()})
	m, err := f.Fetch(context.Background(), "nx", "latest")
	require.NoError(t, err)
	g, ok := m.Generators.Get("update-1")
	require.True(t, ok)
	assert.Equal(t, "./u1", g.Implementation)
}

func TestFetch_FallsBackToInstallWhenRegistryMetadataFails(t *testing.T) {
	reg := newFakeRegistry()
	reg.resolvedVersions["nx@latest"] = "16.0.0"
	reg.viewVersionErr["nx@16.0.0"] = fmt.Errorf("registry hiccup")
	reg.tarballContents["nx@16.0.0.tgz"] = map[string]string{
		"package.json":       `{"nx-migrations":{"migrations":"./migrations.json"}}`,
		"./migrations.json": `{"version":"16.0.0"}`,
	}

	f := New(reg, &config.Config{ManifestDir: t.TempDir(), TarballDir: t.TempDir()})
	m, err := f.Fetch(context.Background(), "nx", "latest")
	require.NoError(t, err)
	assert.Equal(t, "16.0.0", m.Version.String())
}

func TestFetch_BothPathsFail_ReturnsError(t *testing.T) {
	reg := newFakeRegistry()
	reg.resolvedVersions["nx@latest"] = "16.0.0"
	reg.viewVersionErr["nx@16.0.0"] = fmt.Errorf("registry hiccup")
	// No tarball contents registered: the fake Pack still succeeds, but
	// ExtractFileFromTarball has no configured tarball, so the install
	// fallback fails after the registry metadata path already did.

	f := New(reg, &config.Config{ManifestDir: t.TempDir(), TarballDir: t.TempDir()})
	_, err := f.Fetch(context.Background(), "nx", "latest")
	assert.Error(t, err)
}

func TestFetch_CachesByRequestAndResolvedKey(t *testing.T) {
	reg := newFakeRegistry()
	reg.resolvedVersions["nx@latest"] = "16.0.0"
	reg.viewVersionDocs["nx@16.0.0"] = json.RawMessage(`{"name":"nx"}`)

	f := New(reg, &config.Config{ManifestDir: t.TempDir(), TarballDir: t.TempDir()})

	_, err := f.Fetch(context.Background(), "nx", "latest")
	require.NoError(t, err)
	_, err = f.Fetch(context.Background(), "nx", "latest")
	require.NoError(t, err)
	_, err = f.Fetch(context.Background(), "nx", "16.0.0")
	require.NoError(t, err)

	assert.Equal(t, int32(1), reg.viewVersionCalls.Load())
}

func TestFetch_PackageGroupIsParsed(t *testing.T) {
	reg := newFakeRegistry()
	reg.resolvedVersions["nx@latest"] = "16.0.0"
	reg.viewVersionDocs["nx@16.0.0"] = json.RawMessage(`{"nx-migrations":{"packageGroup":["@nrwl/jest","@nrwl/cypress"]}}`)

	f := New(reg, &config.Config{ManifestDir: t.TempDir(), TarballDir: t.TempDir()})
	m, err := f.Fetch(context.Background(), "nx", "latest")
	require.NoError(t, err)
	require.Len(t, m.PackageGroup.Entries, 2)
	assert.Equal(t, "@nrwl/jest", m.PackageGroup.Entries[0].Package)
}

func writeFile(path, content string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(content), 0644)
}
