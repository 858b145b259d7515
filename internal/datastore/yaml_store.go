// Package datastore persists whole documents as YAML files.
package datastore

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"
)

// YAMLStore loads and saves a single document of type T from one file.
// Access from one process is serialized; concurrent writers in different
// processes overwrite each other.
type YAMLStore[T any] struct {
	path string
	mu   sync.Mutex
}

// NewYAMLStore creates a store backed by path. The file does not need to exist.
func NewYAMLStore[T any](path string) *YAMLStore[T] {
	return &YAMLStore[T]{path: path}
}

// Path returns the backing file path.
func (s *YAMLStore[T]) Path() string {
	return s.path
}

// Load reads the document. A missing file yields the zero value of T.
func (s *YAMLStore[T]) Load() (*T, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

// Save writes doc atomically, creating parent directories as needed.
func (s *YAMLStore[T]) Save(doc *T) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save(doc)
}

// Update loads the document, applies fn and saves the result. When fn returns
// an error nothing is written.
func (s *YAMLStore[T]) Update(fn func(doc *T) error) (*T, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return nil, err
	}
	if err := fn(doc); err != nil {
		return nil, err
	}
	if err := s.save(doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// Delete removes the backing file. A missing file is not an error.
func (s *YAMLStore[T]) Delete() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to delete %s: %w", s.path, err)
	}
	return nil
}

func (s *YAMLStore[T]) load() (*T, error) {
	doc := new(T)

	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return doc, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", s.path, err)
	}

	if err := yaml.Unmarshal(data, doc); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", s.path, err)
	}
	return doc, nil
}

func (s *YAMLStore[T]) save(doc *T) error {
	data, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to encode document: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace %s: %w", s.path, err)
	}
	return nil
}
