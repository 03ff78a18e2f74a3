package migrations

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteFile_SkipsWriteWhenEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "migrations.json")
	require.NoError(t, WriteFile(path, nil))

	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestWriteFile_ThenReadFile_RoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "migrations.json")
	entries := []Entry{
		{Package: "nx", Name: "update-16-0-0", Version: "16.0.0", Implementation: "./update-16-0-0"},
		{Package: "@nx/jest", Name: "update-config", Version: "16.0.0"},
	}

	require.NoError(t, WriteFile(path, entries))

	got, err := ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, entries, got)
}
