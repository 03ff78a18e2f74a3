package scripts

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExecute(t *testing.T) {
	testCases := []struct {
		name     string
		command  string
		validate func(t *testing.T, err error)
	}{
		{
			name:    "empty command returns nil",
			command: "",
			validate: func(t *testing.T, err error) {
				assert.NoError(t, err)
			},
		},
		{
			name:    "simple echo succeeds",
			command: "echo hello",
			validate: func(t *testing.T, err error) {
				assert.NoError(t, err)
			},
		},
		{
			name:    "failing command returns error",
			command: "exit 1",
			validate: func(t *testing.T, err error) {
				assert.Error(t, err)
				assert.Contains(t, err.Error(), "install failed")
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			dir := t.TempDir()
			executor := NewExecutor()
			err := executor.Execute(context.Background(), tc.command, dir)
			tc.validate(t, err)
		})
	}
}

func TestExecute_CreatesFile(t *testing.T) {
	dir := t.TempDir()
	markerFile := filepath.Join(dir, "marker.txt")
	executor := NewExecutor()

	err := executor.Execute(context.Background(), "echo test > "+markerFile, dir)
	assert.NoError(t, err)

	_, statErr := os.Stat(markerFile)
	assert.NoError(t, statErr, "marker file should exist")
}

func TestExecute_RunsInWorkDir(t *testing.T) {
	dir := t.TempDir()
	executor := NewExecutor()

	err := executor.Execute(context.Background(), "echo hi > relative.txt", dir)
	assert.NoError(t, err)

	_, statErr := os.Stat(filepath.Join(dir, "relative.txt"))
	assert.NoError(t, statErr, "command should have run with workDir as its cwd")
}
