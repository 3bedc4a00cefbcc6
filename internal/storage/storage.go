// Package storage keeps the raw uploaded PDFs on disk. Files are named
// {documentID}_{originalFilename} so everything belonging to one upload
// batch shares a prefix.
package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

type Store struct {
	dir string
}

func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create storage dir failed: %w", err)
	}
	return &Store{dir: dir}, nil
}

func (s *Store) Dir() string {
	return s.dir
}

// Path returns where the file for this document id and filename lives,
// whether or not it exists.
func (s *Store) Path(documentID, filename string) string {
	return filepath.Join(s.dir, documentID+"_"+filepath.Base(filename))
}

// Save writes the file and returns its path and size in bytes.
func (s *Store) Save(documentID, filename string, r io.Reader) (string, int64, error) {
	path := s.Path(documentID, filename)
	out, err := os.Create(path)
	if err != nil {
		return "", 0, fmt.Errorf("create file failed: %w", err)
	}
	defer out.Close()

	size, err := io.Copy(out, r)
	if err != nil {
		return "", 0, fmt.Errorf("write file failed: %w", err)
	}
	return path, size, nil
}

func (s *Store) Exists(documentID, filename string) bool {
	_, err := os.Stat(s.Path(documentID, filename))
	return err == nil
}

// FirstMatch returns the path of the first stored file whose name carries
// the document id prefix, or "" when nothing matches.
func (s *Store) FirstMatch(documentID string) (string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return "", fmt.Errorf("read storage dir failed: %w", err)
	}
	prefix := documentID + "_"
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasPrefix(entry.Name(), prefix) {
			return filepath.Join(s.dir, entry.Name()), nil
		}
	}
	return "", nil
}

// RemoveAll deletes every file with the document id prefix. Failures do not
// stop the sweep; each is reported as a warning so callers can surface the
// partial result.
func (s *Store) RemoveAll(documentID string) []string {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return []string{fmt.Sprintf("read storage dir failed: %v", err)}
	}

	var warnings []string
	prefix := documentID + "_"
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasPrefix(entry.Name(), prefix) {
			continue
		}
		if err := os.Remove(filepath.Join(s.dir, entry.Name())); err != nil && !os.IsNotExist(err) {
			warnings = append(warnings, fmt.Sprintf("remove %s failed: %v", entry.Name(), err))
		}
	}
	return warnings
}
