package assets

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileName(t *testing.T) {
	assert.Equal(t, "001.png", FileName(1))
	assert.Equal(t, "025.png", FileName(25))
	assert.Equal(t, "151.png", FileName(151))
	assert.Equal(t, "1000.png", FileName(1000))
}

func TestStore(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "004.png"), []byte("png"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "005.png"), 0o755))
	store := NewStore(dir)

	data, err := store.Read(4)
	require.NoError(t, err)
	assert.Equal(t, []byte("png"), data)

	for _, id := range []int{5, 6} {
		_, err := store.Path(id)
		var missing *AssetMissingError
		require.True(t, errors.As(err, &missing), "id %d: %v", id, err)
		assert.Equal(t, id, missing.ID)
		assert.Equal(t, filepath.Join(dir, FileName(id)), missing.Path)
	}
}
