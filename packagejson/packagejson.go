// Package packagejson reads and surgically rewrites the workspace manifest
// (package.json), preserving byte-for-byte formatting of everything it does
// not touch.
package packagejson

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// Section names a dependency bucket a package can live in.
type Section string

const (
	Dependencies    Section = "dependencies"
	DevDependencies Section = "devDependencies"
	PeerDependencies Section = "peerDependencies"
)

// Manifest is the parsed root package.json together with its original bytes,
// so writes can be done in place with gjson/sjson instead of a full
// marshal/unmarshal round-trip that would reflow formatting.
type Manifest struct {
	Path    string
	raw     []byte
	Name    string
	Version string

	Dependencies    map[string]string
	DevDependencies map[string]string
	PeerDependencies map[string]string
}

type rawManifest struct {
	Name            string            `json:"name"`
	Version         string            `json:"version"`
	Dependencies    map[string]string `json:"dependencies"`
	DevDependencies map[string]string `json:"devDependencies"`
	PeerDependencies map[string]string `json:"peerDependencies"`
}

// Load reads and parses the manifest at path.
func Load(path string) (*Manifest, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	var rm rawManifest
	if err := json.Unmarshal(content, &rm); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	return &Manifest{
		Path:             path,
		raw:              content,
		Name:             rm.Name,
		Version:          rm.Version,
		Dependencies:     nonNil(rm.Dependencies),
		DevDependencies:  nonNil(rm.DevDependencies),
		PeerDependencies: nonNil(rm.PeerDependencies),
	}, nil
}

func nonNil(m map[string]string) map[string]string {
	if m == nil {
		return map[string]string{}
	}
	return m
}

// InstalledVersion returns the version recorded for name in dependencies or
// devDependencies, and whether it was found at all.
func (m *Manifest) InstalledVersion(name string) (string, bool) {
	if v, ok := m.Dependencies[name]; ok {
		return v, true
	}
	if v, ok := m.DevDependencies[name]; ok {
		return v, true
	}
	return "", false
}

// DependencySnapshot renders dependencies and devDependencies as a single
// stable string, used by the runner to detect whether an install is needed
// before/after running migrations.
func (m *Manifest) DependencySnapshot() string {
	depsJSON, _ := json.Marshal(m.Dependencies)
	devDepsJSON, _ := json.Marshal(m.DevDependencies)
	return string(depsJSON) + "|" + string(devDepsJSON)
}

// SetVersion rewrites name's version in section, preserving the file's
// existing formatting. It inserts a new key when name is absent from that
// section. The in-memory Manifest and on-disk file are both updated.
func (m *Manifest) SetVersion(name, version string, section Section) error {
	jsonStr := string(m.raw)

	path := string(section) + "." + name
	jsonStr, err := sjson.Set(jsonStr, path, version)
	if err != nil {
		return fmt.Errorf("failed to set %s: %w", path, err)
	}

	if err := os.WriteFile(m.Path, []byte(jsonStr), 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", m.Path, err)
	}

	m.raw = []byte(jsonStr)
	switch section {
	case Dependencies:
		if m.Dependencies == nil {
			m.Dependencies = map[string]string{}
		}
		m.Dependencies[name] = version
	case DevDependencies:
		if m.DevDependencies == nil {
			m.DevDependencies = map[string]string{}
		}
		m.DevDependencies[name] = version
	case PeerDependencies:
		if m.PeerDependencies == nil {
			m.PeerDependencies = map[string]string{}
		}
		m.PeerDependencies[name] = version
	}

	return nil
}

// Has reports whether name currently has a recorded path in section.
func (m *Manifest) Has(name string, section Section) bool {
	switch section {
	case Dependencies:
		_, ok := m.Dependencies[name]
		return ok
	case DevDependencies:
		_, ok := m.DevDependencies[name]
		return ok
	case PeerDependencies:
		_, ok := m.PeerDependencies[name]
		return ok
	}
	return false
}

// RawGet exposes a gjson lookup against the manifest's live raw bytes, used
// by callers that need a one-off field that Manifest doesn't model.
func (m *Manifest) RawGet(path string) gjson.Result {
	return gjson.GetBytes(m.raw, path)
}
