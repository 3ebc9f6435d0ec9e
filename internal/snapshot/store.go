package snapshot

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Fixed artifact names. The baseline pair is distinguished from the
// current pair only by its filename suffix; both live in the same dir.
const (
	CurrentDoc    = "current.json"
	CurrentImage  = "current.png"
	BaselineDoc   = "baseline.json"
	BaselineImage = "baseline.png"
	DiffImage     = "diff.png"
)

// ErrNoBaseline is returned when a baseline document is required but
// none has been saved yet.
var ErrNoBaseline = errors.New("snapshot: no baseline saved")

// Store persists snapshot documents and screenshots under a single
// artifact directory.
type Store struct {
	dir string
}

// NewStore creates the artifact directory if needed.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("snapshot: mkdir %s: %w", dir, err)
	}
	return &Store{dir: dir}, nil
}

// Dir returns the artifact directory.
func (s *Store) Dir() string { return s.dir }

// CurrentImagePath returns the path screenshots should be written to.
func (s *Store) CurrentImagePath() string { return filepath.Join(s.dir, CurrentImage) }

// BaselineImagePath returns the baseline screenshot path.
func (s *Store) BaselineImagePath() string { return filepath.Join(s.dir, BaselineImage) }

// DiffImagePath returns the path the pixel-diff visualization is written to.
func (s *Store) DiffImagePath() string { return filepath.Join(s.dir, DiffImage) }

// SaveCurrent writes the snapshot document as the current capture.
func (s *Store) SaveCurrent(snap *Snapshot) error {
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("snapshot: marshal: %w", err)
	}
	path := filepath.Join(s.dir, CurrentDoc)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("snapshot: write %s: %w", path, err)
	}
	return nil
}

// LoadCurrent reads the current snapshot document, or nil if none exists.
func (s *Store) LoadCurrent() (*Snapshot, error) {
	return s.load(CurrentDoc)
}

// LoadBaseline reads the baseline snapshot document. Returns
// ErrNoBaseline when no baseline has been saved.
func (s *Store) LoadBaseline() (*Snapshot, error) {
	snap, err := s.load(BaselineDoc)
	if err != nil {
		return nil, err
	}
	if snap == nil {
		return nil, ErrNoBaseline
	}
	return snap, nil
}

// SaveBaseline copies the current document and screenshot byte-for-byte
// to their baseline names. The baseline is overwritten wholesale, never
// merged. A missing current document is an error; a missing current
// screenshot is tolerated (structural-only baseline).
func (s *Store) SaveBaseline() error {
	cur := filepath.Join(s.dir, CurrentDoc)
	if _, err := os.Stat(cur); err != nil {
		return fmt.Errorf("snapshot: no current capture to baseline: %w", err)
	}
	if err := copyFile(cur, filepath.Join(s.dir, BaselineDoc)); err != nil {
		return fmt.Errorf("snapshot: baseline doc: %w", err)
	}
	img := s.CurrentImagePath()
	if _, err := os.Stat(img); err == nil {
		if err := copyFile(img, s.BaselineImagePath()); err != nil {
			return fmt.Errorf("snapshot: baseline image: %w", err)
		}
	}
	return nil
}

// HasBaseline reports whether a baseline document exists.
func (s *Store) HasBaseline() bool {
	_, err := os.Stat(filepath.Join(s.dir, BaselineDoc))
	return err == nil
}

func (s *Store) load(name string) (*Snapshot, error) {
	path := filepath.Join(s.dir, name)
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("snapshot: read %s: %w", path, err)
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("snapshot: parse %s: %w", path, err)
	}
	return &snap, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
