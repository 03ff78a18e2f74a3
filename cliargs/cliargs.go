// Package cliargs normalizes the raw command-line input for the plan
// command into one of two parsed shapes: replay an existing migration
// list, or generate a new plan.
package cliargs

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/Masterminds/semver/v3"

	"github.com/daem0ndev/migrate/migrations"
)

// legacyWorkspacePackage is the pre-rename nx package name.
const legacyWorkspacePackage = "@nrwl/workspace"

// nxRenameVersionString is the first nx version published under the "nx"
// name; versions below it (or the legacy package name itself) still mean
// @nrwl/workspace.
const nxRenameVersionString = "14.0.0-beta.0"

// RawInput is the unprocessed option bag the command surface supplies.
type RawInput struct {
	PackageAndVersion string
	From              string
	To                string
	Interactive       bool
	// RunMigrationsFile is nil when --run-migrations was not passed at
	// all, a pointer to "" when it was passed with no value (defaults to
	// migrations.json), and a pointer to a path otherwise.
	RunMigrationsFile *string
	Verbose           bool
	CreateCommits     bool
	CommitPrefix      string
}

// RunMigrations selects replay mode: execute an already-generated list.
type RunMigrations struct {
	File string
}

// GenerateMigrations selects plan mode: compute a new migration list.
type GenerateMigrations struct {
	TargetPackage string
	TargetVersion string
	From          map[string]string
	To            map[string]string
	Interactive   bool
}

// Options is the parsed form of the plan command's input. Exactly one of
// Run / Generate is non-nil.
type Options struct {
	Run           *RunMigrations
	Generate      *GenerateMigrations
	Verbose       bool
	CreateCommits bool
	CommitPrefix  string
}

// InputError is raised for malformed from/to/packageAndVersion input.
type InputError struct {
	Parameter string
	Reason    string
}

func (e *InputError) Error() string {
	return fmt.Sprintf("%s: %s", e.Parameter, e.Reason)
}

// Parse normalizes raw into Options.
func Parse(raw RawInput) (*Options, error) {
	opts := &Options{
		Verbose:       raw.Verbose,
		CreateCommits: raw.CreateCommits,
		CommitPrefix:  raw.CommitPrefix,
	}

	if raw.RunMigrationsFile != nil {
		file := *raw.RunMigrationsFile
		if file == "" {
			file = migrations.DefaultFileName
		}
		opts.Run = &RunMigrations{File: file}
		return opts, nil
	}

	from, err := parseVersionList("from", raw.From)
	if err != nil {
		return nil, err
	}
	to, err := parseVersionList("to", raw.To)
	if err != nil {
		return nil, err
	}

	pkg, version := disambiguate(raw.PackageAndVersion)

	opts.Generate = &GenerateMigrations{
		TargetPackage: pkg,
		TargetVersion: version,
		From:          from,
		To:            to,
		Interactive:   raw.Interactive,
	}
	return opts, nil
}

// parseVersionList parses "pkg1@v1,pkg2@v2" into an override map. Each
// entry must contain "@" at an index greater than 0.
func parseVersionList(paramName, raw string) (map[string]string, error) {
	result := map[string]string{}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return result, nil
	}

	for _, entry := range strings.Split(raw, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}

		idx := strings.Index(entry, "@")
		if idx <= 0 {
			return nil, &InputError{
				Parameter: paramName,
				Reason:    fmt.Sprintf("%q must be of the form pkg@version", entry),
			}
		}

		name := normalizePackageName(entry[:idx])
		version := entry[idx+1:]
		result[name] = version
	}

	return result, nil
}

// disambiguate implements the packageAndVersion branching from §4.4.
func disambiguate(raw string) (pkg string, version string) {
	if idx := strings.LastIndex(raw, "@"); idx > 0 {
		return normalizePackageName(raw[:idx]), raw[idx+1:]
	}

	if looksLikeBareVersion(raw) {
		if targetsModernNx(raw) {
			return "nx", raw
		}
		return legacyWorkspacePackage, raw
	}

	return normalizePackageName(raw), "latest"
}

// looksLikeBareVersion reports whether raw is a dist-tag, a valid semver,
// or a numeric shorthand like "16", "16.0", "16.0.0".
func looksLikeBareVersion(raw string) bool {
	if raw == "latest" || raw == "next" {
		return true
	}
	if _, err := semver.NewVersion(raw); err == nil {
		return true
	}
	return isNumericShorthand(raw)
}

func isNumericShorthand(raw string) bool {
	parts := strings.SplitN(raw, ".", 3)
	if len(parts) == 0 || len(parts) > 3 {
		return false
	}
	for _, p := range parts {
		if p == "" {
			return false
		}
		if _, err := strconv.ParseUint(p, 10, 64); err != nil {
			return false
		}
	}
	return true
}

// targetsModernNx reports whether raw (a dist-tag or version) should
// resolve to the "nx" package rather than the legacy "@nrwl/workspace".
func targetsModernNx(raw string) bool {
	if raw == "latest" || raw == "next" {
		return true
	}

	v, err := semver.NewVersion(normalizeShorthand(raw))
	if err != nil {
		return true
	}
	threshold, err := semver.NewVersion(nxRenameVersionString)
	if err != nil {
		return true
	}
	return !v.LessThan(threshold)
}

func normalizeShorthand(raw string) string {
	parts := strings.SplitN(raw, ".", 3)
	for len(parts) < 3 {
		parts = append(parts, "0")
	}
	return strings.Join(parts, ".")
}

// normalizePackageName converts Windows-style path separators that can
// leak into a package spec into forward-slash form.
func normalizePackageName(name string) string {
	return strings.ReplaceAll(name, `\`, "/")
}
