// Package blobstore persists uploaded file bytes on the local filesystem,
// partitioned into {root}/{year}/{month} directories. Paths handed out to
// callers are always relative to the root and use forward slashes, so they
// can be stored verbatim in the catalog and served over HTTP.
package blobstore

import (
	"fmt"
	"io"
	"math/rand"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	tempDirName = ".tmp"

	// maxBaseLength bounds the sanitized base name; the uniqueness
	// suffix and extension are appended on top of it.
	maxBaseLength = 50

	dirMode  os.FileMode = 0o755
	fileMode os.FileMode = 0o644
)

// Store is a filesystem-backed blob store rooted at a single directory.
// All methods are safe for concurrent use; concurrent writers may race on
// directory creation, which MkdirAll tolerates.
type Store struct {
	root string
}

// New creates the store root and its temp staging directory if absent.
func New(root string) (*Store, error) {
	root = filepath.Clean(root)

	if err := os.MkdirAll(root, dirMode); err != nil {
		return nil, fmt.Errorf("create storage root: %w", err)
	}

	if err := os.MkdirAll(filepath.Join(root, tempDirName), dirMode); err != nil {
		return nil, fmt.Errorf("create temp directory: %w", err)
	}

	return &Store{root: root}, nil
}

// Root returns the storage root directory.
func (s *Store) Root() string {
	return s.root
}

// DestinationFor returns the relative directory for files uploaded at the
// given time: "{year}/{zero-padded month}".
func (s *Store) DestinationFor(now time.Time) string {
	return fmt.Sprintf("%d/%02d", now.Year(), int(now.Month()))
}

// SanitizeName strips the extension, replaces every non-alphanumeric rune
// of the base name with '_' and truncates it to 50 characters.
func SanitizeName(original string) string {
	ext := path.Ext(original)
	base := strings.TrimSuffix(path.Base(original), ext)

	var b strings.Builder
	for _, r := range base {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}

	sanitized := b.String()
	if len(sanitized) > maxBaseLength {
		sanitized = sanitized[:maxBaseLength]
	}
	return sanitized
}

// NameFor builds the on-disk filename for an upload: the sanitized base,
// a millisecond timestamp, a random token and the original extension.
// Collisions are possible in principle but treated as negligible; there is
// no retry.
func (s *Store) NameFor(original string, now time.Time) string {
	ext := path.Ext(original)
	return fmt.Sprintf("%s-%d-%d%s",
		SanitizeName(original),
		now.UnixMilli(),
		rand.Int63n(1_000_000_000),
		ext,
	)
}

// Write persists the reader's bytes at relPath under the root, creating
// parent directories as needed. The bytes are staged into the temp
// directory first and renamed into place so a failed write never leaves a
// partial blob at its final path. Returns the number of bytes written.
func (s *Store) Write(r io.Reader, relPath string) (int64, error) {
	dst := s.Abs(relPath)

	if err := os.MkdirAll(filepath.Dir(dst), dirMode); err != nil {
		return 0, fmt.Errorf("create destination directory: %w", err)
	}

	tmpPath := filepath.Join(s.root, tempDirName, uuid.NewString())
	tmp, err := os.OpenFile(tmpPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, fileMode)
	if err != nil {
		return 0, fmt.Errorf("create temp file: %w", err)
	}

	n, err := io.Copy(tmp, r)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(tmpPath)
		return 0, fmt.Errorf("write blob: %w", err)
	}

	if err := os.Rename(tmpPath, dst); err != nil {
		os.Remove(tmpPath)
		return 0, fmt.Errorf("move blob into place: %w", err)
	}

	return n, nil
}

// Open opens the blob at relPath for reading. A missing blob surfaces as
// an fs.ErrNotExist-wrapping error.
func (s *Store) Open(relPath string) (*os.File, error) {
	f, err := os.Open(s.Abs(relPath))
	if err != nil {
		return nil, fmt.Errorf("open blob: %w", err)
	}
	return f, nil
}

// Exists reports whether a blob is present at relPath.
func (s *Store) Exists(relPath string) bool {
	info, err := os.Stat(s.Abs(relPath))
	return err == nil && !info.IsDir()
}

// Remove deletes the blob at relPath. Removing an absent blob is not an
// error; callers treat removal as best-effort.
func (s *Store) Remove(relPath string) error {
	if !s.Exists(relPath) {
		return nil
	}
	if err := os.Remove(s.Abs(relPath)); err != nil {
		return fmt.Errorf("remove blob: %w", err)
	}
	return nil
}

// Abs converts a slash-form relative path into an absolute host path under
// the root.
func (s *Store) Abs(relPath string) string {
	return filepath.Join(s.root, filepath.FromSlash(relPath))
}

// Join composes a relative blob path from a destination directory and a
// filename, always in slash form.
func Join(dir, name string) string {
	return path.Join(dir, name)
}
