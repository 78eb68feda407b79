package workbook

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"

	"github.com/spf13/afero"
	"github.com/xuri/excelize/v2"
)

// Store loads and persists a workbook file on a filesystem.
type Store struct {
	fs   afero.Fs
	path string
}

// NewStore creates a store for the workbook at path on fsys.
func NewStore(fsys afero.Fs, path string) *Store {
	return &Store{fs: fsys, path: path}
}

// Path is the workbook location.
func (s *Store) Path() string { return s.path }

// Exists reports whether the workbook file is present.
func (s *Store) Exists() (bool, error) {
	return afero.Exists(s.fs, s.path)
}

// Open reads the workbook and binds it to sheet.
func (s *Store) Open(sheet string) (*Workbook, error) {
	f, err := s.fs.Open(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("workbook %s does not exist, run setup first: %w", s.path, err)
		}
		return nil, fmt.Errorf("failed to open workbook %s: %w", s.path, err)
	}
	defer f.Close()

	x, err := excelize.OpenReader(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read workbook %s: %w", s.path, err)
	}

	idx, err := x.GetSheetIndex(sheet)
	if err != nil || idx < 0 {
		x.Close()
		return nil, fmt.Errorf("%w: %q in %s", ErrSheetNotFound, sheet, s.path)
	}
	return wrap(x, sheet), nil
}

// Save writes the workbook to a temporary file next to the target and
// renames it into place, so a failed save never leaves a truncated workbook.
func (s *Store) Save(w *Workbook) error {
	dir := filepath.Dir(s.path)
	if err := s.fs.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", dir, err)
	}

	tmp, err := afero.TempFile(s.fs, dir, "."+filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temporary workbook: %w", err)
	}
	tmpName := tmp.Name()

	if err := w.file.Write(tmp); err != nil {
		tmp.Close()
		s.fs.Remove(tmpName)
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	if err := tmp.Close(); err != nil {
		s.fs.Remove(tmpName)
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	if err := s.fs.Rename(tmpName, s.path); err != nil {
		s.fs.Remove(tmpName)
		return fmt.Errorf("failed to replace %s: %w", s.path, err)
	}
	return nil
}
