package checkpoint_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docarena/docarena/internal/checkpoint"
)

func TestSaveLoadRoundTrip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "run.checkpoint")

	set := checkpoint.NewSet()
	set.Add("/in/a.pdf")
	set.Add("/in/b.pdf")

	require.NoError(t, set.Save(path))

	loaded, err := checkpoint.Load(path)
	require.NoError(t, err)

	assert.Equal(t, 2, loaded.Len())
	assert.True(t, loaded.Has("/in/a.pdf"))
	assert.False(t, loaded.Has("/in/c.pdf"))
}

func TestLoadMissingFileYieldsEmptySet(t *testing.T) {
	t.Parallel()

	set, err := checkpoint.Load(filepath.Join(t.TempDir(), "absent"))
	require.NoError(t, err)
	assert.Zero(t, set.Len())
}

func TestLoadCorruptFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "bad")
	require.NoError(t, os.WriteFile(path, []byte("not a checkpoint"), 0o600))

	_, err := checkpoint.Load(path)
	assert.Error(t, err)
}

func TestSaveCreatesParentDir(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "nested", "dir", "run.checkpoint")

	set := checkpoint.NewSet()
	set.Add("/in/a.pdf")

	require.NoError(t, set.Save(path))

	loaded, err := checkpoint.Load(path)
	require.NoError(t, err)
	assert.Equal(t, 1, loaded.Len())
}

func TestSaveOverwritesPrevious(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "run.checkpoint")

	first := checkpoint.NewSet()
	first.Add("/in/a.pdf")
	require.NoError(t, first.Save(path))

	second := checkpoint.NewSet()
	second.Add("/in/a.pdf")
	second.Add("/in/b.pdf")
	require.NoError(t, second.Save(path))

	loaded, err := checkpoint.Load(path)
	require.NoError(t, err)
	assert.Equal(t, 2, loaded.Len())

	paths := loaded.Paths()
	assert.Equal(t, []string{"/in/a.pdf", "/in/b.pdf"}, paths)
}
