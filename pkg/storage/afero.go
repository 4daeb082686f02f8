package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"

	"github.com/spf13/afero"
)

type aferoStorage struct {
	fs afero.Fs
}

func NewLocalStorage(root string) (FileStorage, error) {
	if root == "" {
		return nil, errors.New("local storage root must not be empty")
	}
	if err := os.MkdirAll(root, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create storage root %q: %w", root, err)
	}

	return &aferoStorage{fs: afero.NewBasePathFs(afero.NewOsFs(), root)}, nil
}

func NewMemoryStorage() FileStorage {
	return &aferoStorage{fs: afero.NewMemMapFs()}
}

func (s *aferoStorage) Save(_ context.Context, owner, filename string, content []byte) (string, error) {
	key := objectKey(owner, filename)

	if err := s.fs.MkdirAll(path.Dir(key), 0o750); err != nil {
		return "", fmt.Errorf("failed to create directory for %q: %w", key, err)
	}
	if err := afero.WriteFile(s.fs, key, content, 0o640); err != nil {
		return "", fmt.Errorf("failed to write %q: %w", key, err)
	}

	return key, nil
}

func (s *aferoStorage) Release(_ context.Context, location string) error {
	if err := s.fs.Remove(location); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to remove %q: %w", location, err)
	}

	return nil
}

func (s *aferoStorage) Close() error {
	return nil
}
