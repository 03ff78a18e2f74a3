package cliargs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_BareLegacyVersion(t *testing.T) {
	opts, err := Parse(RawInput{PackageAndVersion: "13.9.0"})
	require.NoError(t, err)
	require.NotNil(t, opts.Generate)
	assert.Equal(t, "@nrwl/workspace", opts.Generate.TargetPackage)
	assert.Equal(t, "13.9.0", opts.Generate.TargetVersion)
}

func TestParse_BareModernVersion(t *testing.T) {
	opts, err := Parse(RawInput{PackageAndVersion: "16.0.0"})
	require.NoError(t, err)
	assert.Equal(t, "nx", opts.Generate.TargetPackage)
	assert.Equal(t, "16.0.0", opts.Generate.TargetVersion)
}

func TestParse_LatestTag(t *testing.T) {
	opts, err := Parse(RawInput{PackageAndVersion: "latest"})
	require.NoError(t, err)
	assert.Equal(t, "nx", opts.Generate.TargetPackage)
	assert.Equal(t, "latest", opts.Generate.TargetVersion)
}

func TestParse_ExplicitPackageAtVersion(t *testing.T) {
	opts, err := Parse(RawInput{PackageAndVersion: "@nx/jest@16.0.0"})
	require.NoError(t, err)
	assert.Equal(t, "@nx/jest", opts.Generate.TargetPackage)
	assert.Equal(t, "16.0.0", opts.Generate.TargetVersion)
}

func TestParse_BarePackageNameDefaultsToLatest(t *testing.T) {
	opts, err := Parse(RawInput{PackageAndVersion: "@nx/cypress"})
	require.NoError(t, err)
	assert.Equal(t, "@nx/cypress", opts.Generate.TargetPackage)
	assert.Equal(t, "latest", opts.Generate.TargetVersion)
}

func TestParse_FromList(t *testing.T) {
	opts, err := Parse(RawInput{PackageAndVersion: "latest", From: "a@1.2.3,b@2.0.0"})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"a": "1.2.3", "b": "2.0.0"}, opts.Generate.From)
}

func TestParse_FromList_Malformed(t *testing.T) {
	_, err := Parse(RawInput{PackageAndVersion: "latest", From: "bad"})
	require.Error(t, err)
	var inputErr *InputError
	require.ErrorAs(t, err, &inputErr)
	assert.Equal(t, "from", inputErr.Parameter)
}

func TestParse_ToList_Malformed(t *testing.T) {
	_, err := Parse(RawInput{PackageAndVersion: "latest", To: "@leading-at"})
	require.Error(t, err)
	var inputErr *InputError
	require.ErrorAs(t, err, &inputErr)
	assert.Equal(t, "to", inputErr.Parameter)
}

func TestParse_RunMigrations_DefaultsFileName(t *testing.T) {
	empty := ""
	opts, err := Parse(RawInput{RunMigrationsFile: &empty})
	require.NoError(t, err)
	require.NotNil(t, opts.Run)
	assert.Equal(t, "migrations.json", opts.Run.File)
	assert.Nil(t, opts.Generate)
}

func TestParse_RunMigrations_ExplicitFile(t *testing.T) {
	file := "custom-migrations.json"
	opts, err := Parse(RawInput{RunMigrationsFile: &file})
	require.NoError(t, err)
	assert.Equal(t, "custom-migrations.json", opts.Run.File)
}
