package filestorage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"doc-domains-be/internal/apperrors"
)

// FileInfo describes one stored source file.
type FileInfo struct {
	Filename   string    `json:"filename"`
	Size       int64     `json:"size"`
	ModifiedAt time.Time `json:"modified_at"`
}

// Storage keeps uploaded source files on disk, one subdirectory per domain.
// Filenames are flattened to their base name so a crafted name can never
// escape the domain directory.
type Storage struct {
	root string
}

func NewStorage(root string) (*Storage, error) {
	if root == "" {
		return nil, apperrors.ConfigurationError("filestorage: root directory is required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create upload root %s: %w", root, err)
	}
	return &Storage{root: root}, nil
}

// Path returns the on-disk location of a stored file without touching disk.
func (s *Storage) Path(domain, filename string) string {
	return filepath.Join(s.root, domain, filepath.Base(filename))
}

// Save streams r into the domain directory, replacing any previous file of
// the same name.
func (s *Storage) Save(domain, filename string, r io.Reader) (*FileInfo, error) {
	dir := filepath.Join(s.root, domain)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create domain dir %s: %w", dir, err)
	}

	path := s.Path(domain, filename)
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", path, err)
	}
	size, err := io.Copy(f, r)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(path)
		return nil, fmt.Errorf("write %s: %w", path, err)
	}

	return &FileInfo{
		Filename:   filepath.Base(filename),
		Size:       size,
		ModifiedAt: time.Now(),
	}, nil
}

// Delete removes a stored file. A missing file is NotFound so callers can
// distinguish "never uploaded" from an IO failure.
func (s *Storage) Delete(domain, filename string) error {
	path := s.Path(domain, filename)
	err := os.Remove(path)
	if err != nil {
		if os.IsNotExist(err) {
			return apperrors.NotFound("file %q not stored for domain %q", filepath.Base(filename), domain)
		}
		return fmt.Errorf("remove %s: %w", path, err)
	}
	return nil
}

// DeleteDomain removes the whole domain directory and everything in it.
// Removing a directory that was never created is success.
func (s *Storage) DeleteDomain(domain string) error {
	dir := filepath.Join(s.root, domain)
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("remove domain dir %s: %w", dir, err)
	}
	return nil
}

// List returns the stored files of a domain sorted by name. A domain with no
// uploads yet lists as empty.
func (s *Storage) List(domain string) ([]FileInfo, error) {
	dir := filepath.Join(s.root, domain)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read domain dir %s: %w", dir, err)
	}

	infos := make([]FileInfo, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		fi, err := e.Info()
		if err != nil {
			continue
		}
		infos = append(infos, FileInfo{
			Filename:   e.Name(),
			Size:       fi.Size(),
			ModifiedAt: fi.ModTime(),
		})
	}
	return infos, nil
}
