// Package assets finds creature images on disk.
package assets

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// Placeholder is shown wherever an image cannot be displayed.
const Placeholder = "Image not available."

// AssetMissingError reports an image file that does not exist.
type AssetMissingError struct {
	ID   int
	Path string
}

func (e *AssetMissingError) Error() string {
	return fmt.Sprintf("image for pokemon %d not found at %s", e.ID, e.Path)
}

// Store resolves images inside one directory, named by zero-padded pokedex number.
type Store struct {
	dir string
}

// NewStore returns a store rooted at dir. The directory is not checked until lookup.
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// FileName returns the image file name for a pokedex number, e.g. 7 -> "007.png".
func FileName(id int) string {
	return fmt.Sprintf("%03d.png", id)
}

// Path returns the image path of a creature, or *AssetMissingError when no regular file
// exists there.
func (s *Store) Path(id int) (string, error) {
	path := filepath.Join(s.dir, FileName(id))
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) || (err == nil && !info.Mode().IsRegular()) {
		return "", &AssetMissingError{ID: id, Path: path}
	}
	if err != nil {
		return "", fmt.Errorf("checking image %s: %w", path, err)
	}
	return path, nil
}

// Read returns the image bytes of a creature.
func (s *Store) Read(id int) ([]byte, error) {
	path, err := s.Path(id)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading image %s: %w", path, err)
	}
	return data, nil
}
