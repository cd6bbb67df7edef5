package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const fileSnapshotVersion = 1

type fileRecord[T any] struct {
	Version  int  `json:"version"`
	Snapshot T    `json:"snapshot"`
	Meta     Meta `json:"meta"`
}

// FileStore persists one JSON document per key under a root directory.
// Writes go through a temp file and rename so a crash mid-save never leaves
// a half-written snapshot behind.
type FileStore[T any] struct {
	root string
}

// NewFileStore builds a store rooted at dir.
func NewFileStore[T any](dir string) (*FileStore[T], error) {
	if dir == "" {
		return nil, fmt.Errorf("store: file store root must be provided")
	}
	return &FileStore[T]{root: dir}, nil
}

func (s *FileStore[T]) Load(_ context.Context, key string) (T, Meta, bool, error) {
	var zero T
	path, err := s.path(key)
	if err != nil {
		return zero, Meta{}, false, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return zero, Meta{}, false, nil
		}
		return zero, Meta{}, false, err
	}

	var record fileRecord[T]
	if err := json.Unmarshal(data, &record); err != nil {
		return zero, Meta{}, false, fmt.Errorf("%w: %s: %v", ErrDecode, key, err)
	}
	if record.Version != fileSnapshotVersion {
		return zero, Meta{}, false, fmt.Errorf("%w: %s: unsupported version %d", ErrDecode, key, record.Version)
	}
	return record.Snapshot, cloneMeta(record.Meta), true, nil
}

func (s *FileStore[T]) Save(_ context.Context, key string, snapshot T, meta Meta) (Meta, error) {
	path, err := s.path(key)
	if err != nil {
		return Meta{}, err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return Meta{}, err
	}

	record := fileRecord[T]{
		Version:  fileSnapshotVersion,
		Snapshot: snapshot,
		Meta:     cloneMeta(meta),
	}
	data, err := json.Marshal(record)
	if err != nil {
		return Meta{}, err
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return Meta{}, err
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return Meta{}, err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return Meta{}, err
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return Meta{}, err
	}
	return cloneMeta(meta), nil
}

func (s *FileStore[T]) Delete(_ context.Context, key string) error {
	path, err := s.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// path maps a storage key onto the filesystem, keeping the key's segment
// structure as directories. Segments outside the identifier charset are
// rejected rather than rewritten: rewriting could collapse two distinct keys
// onto one file and silently break per-key isolation.
func (s *FileStore[T]) path(key string) (string, error) {
	if key == "" {
		return "", ErrKeyRequired
	}
	segments := strings.Split(key, "/")
	for _, segment := range segments {
		if !validSegment(segment) {
			return "", fmt.Errorf("store: invalid key %q", key)
		}
	}
	cleaned := append([]string(nil), segments...)
	cleaned[len(cleaned)-1] += ".json"
	return filepath.Join(append([]string{s.root}, cleaned...)...), nil
}

func validSegment(segment string) bool {
	if segment == "" || segment == "." || segment == ".." {
		return false
	}
	for _, r := range segment {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '-' || r == '_' || r == '.':
		default:
			return false
		}
	}
	return true
}
