// Package registry is the npm registry client: it resolves package
// metadata and versions, downloads tarballs, and extracts single files out
// of them. This is the registry contract the fetcher consumes; specified
// externally, implemented here against the real npm registry HTTP API.
package registry

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/daem0ndev/migrate/config"
	"github.com/daem0ndev/migrate/integrity"
	ownsemver "github.com/daem0ndev/migrate/semver"
	"github.com/daem0ndev/migrate/utils"
)

// Client is the registry contract the fetcher depends on.
type Client interface {
	// View returns the npm registry's packument for pkg (the full
	// document covering every published version and its dist-tags).
	View(ctx context.Context, pkg string) (json.RawMessage, error)
	// ViewVersion returns the registry metadata for one resolved version
	// of pkg.
	ViewVersion(ctx context.Context, pkg, version string) (json.RawMessage, error)
	// ResolveVersion resolves a dist-tag or semver range to a concrete
	// published version.
	ResolveVersion(ctx context.Context, pkg, versionOrRange string) (string, error)
	// Pack downloads pkg@version's tarball and returns its local path.
	Pack(ctx context.Context, pkg, version string) (string, error)
	// ExtractFileFromTarball extracts entryPath out of the tarball at
	// tarballPath into outPath, returning outPath.
	ExtractFileFromTarball(tarballPath, entryPath, outPath string) (string, error)
}

// HTTPClient is the real npm registry client.
type HTTPClient struct {
	RegistryURL string
	Cfg         *config.Config
	HTTP        *http.Client
	validator   *integrity.Validator
}

// New builds an HTTPClient against the npm registry, scoped to cfg's
// tarball/manifest cache directories.
func New(cfg *config.Config) *HTTPClient {
	return &HTTPClient{
		RegistryURL: config.NPMRegistryURL,
		Cfg:         cfg,
		HTTP:        &http.Client{},
		validator:   integrity.New(),
	}
}

func (c *HTTPClient) get(ctx context.Context, url string) (json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request for %s: %w", url, err)
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("registry returned %d for %s", resp.StatusCode, url)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response from %s: %w", url, err)
	}
	return json.RawMessage(body), nil
}

// View implements Client.
func (c *HTTPClient) View(ctx context.Context, pkg string) (json.RawMessage, error) {
	return c.get(ctx, c.RegistryURL+encodeScope(pkg))
}

// ViewVersion implements Client.
func (c *HTTPClient) ViewVersion(ctx context.Context, pkg, version string) (json.RawMessage, error) {
	return c.get(ctx, c.RegistryURL+encodeScope(pkg)+"/"+version)
}

// ResolveVersion implements Client.
func (c *HTTPClient) ResolveVersion(ctx context.Context, pkg, versionOrRange string) (string, error) {
	doc, err := c.View(ctx, pkg)
	if err != nil {
		return "", err
	}

	var packument struct {
		DistTags map[string]string        `json:"dist-tags"`
		Versions map[string]json.RawMessage `json:"versions"`
	}
	if err := json.Unmarshal(doc, &packument); err != nil {
		return "", fmt.Errorf("failed to parse packument for %s: %w", pkg, err)
	}

	if tagged, ok := packument.DistTags[versionOrRange]; ok {
		return tagged, nil
	}

	versions := make([]string, 0, len(packument.Versions))
	for v := range packument.Versions {
		versions = append(versions, v)
	}

	resolved := resolveHighestSatisfying(versions, versionOrRange)
	if resolved == "" {
		return "", fmt.Errorf("no matching version found for %s@%s", pkg, versionOrRange)
	}
	return resolved, nil
}

// resolveHighestSatisfying returns the highest published version matching
// rangeExpr, or "" if none match.
func resolveHighestSatisfying(versions []string, rangeExpr string) string {
	var best ownsemver.Version
	found := false

	for _, raw := range versions {
		v := ownsemver.Normalize(raw)
		if !ownsemver.SatisfiesRange(v, rangeExpr) {
			continue
		}
		if !found || ownsemver.GT(v, best) {
			best = v
			found = true
		}
	}

	if !found {
		return ""
	}
	return best.String()
}

// Pack implements Client.
func (c *HTTPClient) Pack(ctx context.Context, pkg, version string) (string, error) {
	doc, err := c.ViewVersion(ctx, pkg, version)
	if err != nil {
		return "", err
	}

	var meta struct {
		Dist struct {
			Tarball   string `json:"tarball"`
			Integrity string `json:"integrity"`
		} `json:"dist"`
	}
	if err := json.Unmarshal(doc, &meta); err != nil {
		return "", fmt.Errorf("failed to parse dist metadata for %s@%s: %w", pkg, version, err)
	}
	if meta.Dist.Tarball == "" {
		return "", fmt.Errorf("no tarball URL published for %s@%s", pkg, version)
	}

	filename := sanitizePackageName(pkg) + "-" + version + ".tgz"
	tarballPath := filepath.Join(c.Cfg.TarballDir, filename)

	if utils.ValidateTarball(tarballPath) {
		return tarballPath, nil
	}

	if _, _, err := utils.DownloadFile(meta.Dist.Tarball, tarballPath, ""); err != nil {
		return "", fmt.Errorf("failed to download tarball for %s@%s: %w", pkg, version, err)
	}

	if err := c.validator.ValidateFileStrict(tarballPath, meta.Dist.Integrity); err != nil && err != integrity.ErrNoIntegrity {
		os.Remove(tarballPath)
		return "", fmt.Errorf("integrity check failed for %s@%s: %w", pkg, version, err)
	}

	return tarballPath, nil
}

// ExtractFileFromTarball implements Client. npm tarballs wrap their content
// under a single top-level "package/" directory; entryPath is accepted
// either with or without that prefix.
func (c *HTTPClient) ExtractFileFromTarball(tarballPath, entryPath, outPath string) (string, error) {
	f, err := os.Open(tarballPath)
	if err != nil {
		return "", fmt.Errorf("failed to open tarball %s: %w", tarballPath, err)
	}
	defer f.Close()

	gzr, err := gzip.NewReader(f)
	if err != nil {
		return "", fmt.Errorf("failed to read gzip stream for %s: %w", tarballPath, err)
	}
	defer gzr.Close()

	wanted := strings.TrimPrefix(strings.TrimPrefix(entryPath, "./"), "/")
	wanted = strings.TrimPrefix(wanted, "package/")
	tr := tar.NewReader(gzr)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return "", fmt.Errorf("entry %s not found in %s", entryPath, tarballPath)
		}
		if err != nil {
			return "", fmt.Errorf("failed to read tar entry in %s: %w", tarballPath, err)
		}

		name := strings.TrimPrefix(hdr.Name, "package/")
		if name != wanted {
			continue
		}

		if err := os.MkdirAll(filepath.Dir(outPath), 0755); err != nil {
			return "", fmt.Errorf("failed to create directory for %s: %w", outPath, err)
		}
		out, err := os.Create(outPath)
		if err != nil {
			return "", fmt.Errorf("failed to create %s: %w", outPath, err)
		}
		defer out.Close()

		if _, err := io.Copy(out, tr); err != nil {
			return "", fmt.Errorf("failed to extract %s: %w", entryPath, err)
		}
		return outPath, nil
	}
}

func sanitizePackageName(pkg string) string {
	return strings.ReplaceAll(strings.TrimPrefix(pkg, "@"), "/", "-")
}

func encodeScope(pkg string) string {
	if strings.HasPrefix(pkg, "@") {
		return strings.Replace(pkg, "/", "%2F", 1)
	}
	return pkg
}
