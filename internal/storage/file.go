package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"tinydoc/internal/record"
)

// FileBackend stores one collection as a JSON document at Path.
// Writes go to a temp file in the same directory and are renamed into place.
type FileBackend struct {
	Schema record.Schema
	Path   string
}

func NewFileBackend(dir string, s record.Schema) *FileBackend {
	return &FileBackend{Schema: s, Path: filepath.Join(dir, s.File)}
}

func (b *FileBackend) Load(_ context.Context) (*record.Collection, error) {
	data, err := os.ReadFile(b.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, record.ErrNoState
		}
		return nil, fmt.Errorf("file load %s: %w", b.Path, err)
	}
	return record.Decode(b.Schema, data)
}

func (b *FileBackend) Save(_ context.Context, c *record.Collection) error {
	doc, err := record.Encode(b.Schema, c)
	if err != nil {
		return err
	}

	dir := filepath.Dir(b.Path)
	tmp, err := os.CreateTemp(dir, ".tmp-"+b.Schema.Name+"-*")
	if err != nil {
		return fmt.Errorf("file save %s: %w", b.Path, err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(doc); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("file save %s: %w", b.Path, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("file save %s: %w", b.Path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("file save %s: %w", b.Path, err)
	}
	if err := os.Rename(tmpName, b.Path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("file save %s: %w", b.Path, err)
	}
	return nil
}
