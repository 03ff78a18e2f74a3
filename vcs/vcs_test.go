package vcs

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/go-git/go-git/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func initRepo(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	_, err := git.PlainInit(root, false)
	require.NoError(t, err)
	return root
}

func TestOpen_NotARepository(t *testing.T) {
	_, err := Open(t.TempDir())
	assert.Error(t, err)
}

func TestOpen_DetectsDotGitInParent(t *testing.T) {
	root := initRepo(t)
	nested := filepath.Join(root, "nested", "dir")
	require.NoError(t, os.MkdirAll(nested, 0755))

	c, err := Open(nested)
	require.NoError(t, err)
	assert.NotNil(t, c)
}

func TestCommit_StagesAndCommitsChanges(t *testing.T) {
	root := initRepo(t)
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.txt"), []byte("hello"), 0644))

	c, err := Open(root)
	require.NoError(t, err)

	sha, err := c.Commit("chore: migrate nx to 16.0.0")
	require.NoError(t, err)
	assert.NotEmpty(t, sha)
	assert.Len(t, sha, 40)
}

func TestCommit_SecondCommitProducesDifferentSha(t *testing.T) {
	root := initRepo(t)
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.txt"), []byte("v1"), 0644))

	c, err := Open(root)
	require.NoError(t, err)

	first, err := c.Commit("chore: first")
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(root, "a.txt"), []byte("v2"), 0644))
	second, err := c.Commit("chore: second")
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
}
