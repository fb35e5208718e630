package session

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

const defaultDirName = ".eyoklama"

// FileBackend stores each slot as its own file under <dir>/<namespace>.
type FileBackend struct {
	dir string
}

// NewFileBackend creates the namespace directory (0700) and returns a backend rooted there.
// An empty dir selects ~/.eyoklama.
func NewFileBackend(dir, namespace string) (*FileBackend, error) {
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get user home directory: %w", err)
		}
		dir = filepath.Join(home, defaultDirName)
	}
	if namespace == "" {
		return nil, errors.New("namespace empty")
	}
	root := filepath.Join(dir, namespace)
	if err := os.MkdirAll(root, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create credential directory: %w", err)
	}
	return &FileBackend{dir: root}, nil
}

// Dir returns the directory holding the slot files.
func (f *FileBackend) Dir() string {
	return f.dir
}

func (f *FileBackend) path(slot Slot) string {
	return filepath.Join(f.dir, string(slot))
}

func (f *FileBackend) Get(_ context.Context, slot Slot) ([]byte, error) {
	data, err := os.ReadFile(f.path(slot))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrSlotNotFound
		}
		return nil, fmt.Errorf("failed to read credential slot: %w", err)
	}
	return data, nil
}

// Set writes to a temp file in the same directory and renames it over the slot, so a
// reader sees either the old or the new value.
func (f *FileBackend) Set(_ context.Context, slot Slot, value []byte) error {
	tmp, err := os.CreateTemp(f.dir, "."+string(slot)+".*")
	if err != nil {
		return fmt.Errorf("failed to create temp credential file: %w", err)
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		cleanup()
		return fmt.Errorf("failed to chmod credential file: %w", err)
	}
	if _, err := tmp.Write(value); err != nil {
		tmp.Close()
		cleanup()
		return fmt.Errorf("failed to write credential file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		cleanup()
		return fmt.Errorf("failed to sync credential file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("failed to close credential file: %w", err)
	}
	if err := os.Rename(tmpName, f.path(slot)); err != nil {
		cleanup()
		return fmt.Errorf("failed to replace credential file: %w", err)
	}
	return nil
}

func (f *FileBackend) Delete(_ context.Context, slots ...Slot) error {
	var errs []error
	for _, slot := range slots {
		if err := os.Remove(f.path(slot)); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
