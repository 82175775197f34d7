package local

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sync"

	"studio_site/internal/storage"
)

var keyRe = regexp.MustCompile(`^[A-Za-z0-9_.-]+$`)

type KV interface {
	Get(key string) ([]byte, error)
	Set(key string, data []byte) error
	Delete(key string) error
}

// Store keeps one file per key under folderPath. It plays the role a
// browser's local storage plays for the site: a cache that survives restarts.
type Store struct {
	folderPath string
	mu         sync.RWMutex
}

func New(folderPath string) (*Store, error) {
	const op = "storage.local.New"

	if folderPath == "" {
		return nil, fmt.Errorf("%s: folder path is empty", op)
	}

	s := &Store{folderPath: filepath.Clean(folderPath)}

	if err := s.ensureFolderExists(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return s, nil
}

func (s *Store) ensureFolderExists() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := os.Stat(s.folderPath); os.IsNotExist(err) {
		if err := os.MkdirAll(s.folderPath, 0o755); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) path(key string) (string, error) {
	if !keyRe.MatchString(key) {
		return "", storage.ErrInvalidKey
	}
	return filepath.Join(s.folderPath, key+".json"), nil
}

func (s *Store) Get(key string) ([]byte, error) {
	const op = "storage.local.Get"

	fullPath, err := s.path(key)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := os.ReadFile(fullPath)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%s: %s: %w", op, key, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return data, nil
}

// Set replaces the value atomically: readers see the old or the new file,
// never a partial one.
func (s *Store) Set(key string, data []byte) error {
	const op = "storage.local.Set"

	fullPath, err := s.path(key)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tempPath := fullPath + ".tmp"
	file, err := os.Create(tempPath)
	if err != nil {
		return fmt.Errorf("%s: failed to create temp file: %w", op, err)
	}

	if _, err := file.Write(data); err != nil {
		file.Close()
		os.Remove(tempPath)
		return fmt.Errorf("%s: failed to write data: %w", op, err)
	}

	if err := file.Close(); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := os.Rename(tempPath, fullPath); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("%s: failed to rename temp file: %w", op, err)
	}

	return nil
}

func (s *Store) Delete(key string) error {
	const op = "storage.local.Delete"

	fullPath, err := s.path(key)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(fullPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}
