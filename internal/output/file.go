package output

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/MeKo-Tech/celltraj/internal/features"
)

// FileStore writes units to <Dir>/ii=<cell>.<ext> atomically: a temp file in
// the same directory is renamed over the destination.
type FileStore struct {
	dir string
	enc features.Encoding
}

// NewFileStore creates the output directory if needed.
func NewFileStore(dir string, enc features.Encoding) (*FileStore, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("output directory is required")
	}
	if _, err := features.ParseFormat(string(enc.Format)); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}
	return &FileStore{dir: dir, enc: enc}, nil
}

// Name returns the file name of a cell's unit.
func (s *FileStore) Name(cell int) string {
	return UnitName(cell, s.enc.Format)
}

// Path returns the full path of a cell's unit.
func (s *FileStore) Path(cell int) string {
	return filepath.Join(s.dir, s.Name(cell))
}

// Exists reports whether the unit file is present.
func (s *FileStore) Exists(_ context.Context, cell int) (bool, error) {
	_, err := os.Stat(s.Path(cell))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return false, err
}

// Write encodes records and replaces the unit file.
func (s *FileStore) Write(ctx context.Context, cell int, records []features.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := encode(s.enc, records)
	if err != nil {
		return err
	}

	dest := s.Path(cell)
	tmp, err := os.CreateTemp(s.dir, ".tmp-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	if err := os.Rename(tmpPath, dest); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("replace %s: %w", dest, err)
	}
	return nil
}
