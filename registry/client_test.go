package registry

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/daem0ndev/migrate/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.Handler) *HTTPClient {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	cfg := &config.Config{TarballDir: t.TempDir(), ManifestDir: t.TempDir()}
	return &HTTPClient{RegistryURL: server.URL + "/", Cfg: cfg, HTTP: server.Client()}
}

func TestResolveVersion_DistTag(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"dist-tags": map[string]string{"latest": "16.0.0"},
			"versions":  map[string]any{"15.0.0": map[string]any{}, "16.0.0": map[string]any{}},
		})
	}))

	v, err := c.ResolveVersion(context.Background(), "nx", "latest")
	require.NoError(t, err)
	assert.Equal(t, "16.0.0", v)
}

func TestResolveVersion_Range(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"dist-tags": map[string]string{"latest": "16.0.0"},
			"versions": map[string]any{
				"15.0.0": map[string]any{}, "15.5.0": map[string]any{}, "16.0.0": map[string]any{},
			},
		})
	}))

	v, err := c.ResolveVersion(context.Background(), "nx", "^15.0.0")
	require.NoError(t, err)
	assert.Equal(t, "15.5.0", v)
}

func TestResolveVersion_NoMatch(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"dist-tags": map[string]string{"latest": "16.0.0"},
			"versions":  map[string]any{"16.0.0": map[string]any{}},
		})
	}))

	_, err := c.ResolveVersion(context.Background(), "nx", "^99.0.0")
	assert.Error(t, err)
}

func TestPack_DownloadsTarball(t *testing.T) {
	tarballBytes := buildTestTarball(t, map[string]string{"package/migrations.json": `{"migrations":{}}`})

	mux := http.NewServeMux()
	mux.HandleFunc("/nx/16.0.0", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"dist": map[string]any{"tarball": "http://" + r.Host + "/tarball.tgz"},
		})
	})
	mux.HandleFunc("/tarball.tgz", func(w http.ResponseWriter, r *http.Request) {
		w.Write(tarballBytes)
	})

	c := newTestClient(t, mux)
	tarballPath, err := c.Pack(context.Background(), "nx", "16.0.0")
	require.NoError(t, err)

	content, err := os.ReadFile(tarballPath)
	require.NoError(t, err)
	assert.Equal(t, tarballBytes, content)
}

func TestExtractFileFromTarball(t *testing.T) {
	tarballBytes := buildTestTarball(t, map[string]string{
		"package/migrations.json": `{"migrations":{"a":1}}`,
	})

	tarballPath := filepath.Join(t.TempDir(), "nx-16.0.0.tgz")
	require.NoError(t, os.WriteFile(tarballPath, tarballBytes, 0644))

	c := &HTTPClient{}
	outPath := filepath.Join(t.TempDir(), "extracted.json")
	got, err := c.ExtractFileFromTarball(tarballPath, "migrations.json", outPath)
	require.NoError(t, err)
	assert.Equal(t, outPath, got)

	content, err := os.ReadFile(outPath)
	require.NoError(t, err)
	assert.JSONEq(t, `{"migrations":{"a":1}}`, string(content))
}

func TestExtractFileFromTarball_MissingEntry(t *testing.T) {
	tarballBytes := buildTestTarball(t, map[string]string{"package/other.json": `{}`})
	tarballPath := filepath.Join(t.TempDir(), "nx-16.0.0.tgz")
	require.NoError(t, os.WriteFile(tarballPath, tarballBytes, 0644))

	c := &HTTPClient{}
	_, err := c.ExtractFileFromTarball(tarballPath, "migrations.json", filepath.Join(t.TempDir(), "out.json"))
	assert.Error(t, err)
}

func buildTestTarball(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	gzw := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gzw)

	for name, content := range files {
		hdr := &tar.Header{Name: name, Mode: 0644, Size: int64(len(content))}
		require.NoError(t, tw.WriteHeader(hdr))
		_, err := tw.Write([]byte(content))
		require.NoError(t, err)
	}

	require.NoError(t, tw.Close())
	require.NoError(t, gzw.Close())
	return buf.Bytes()
}
