package attach

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// BlobStore holds attachment binaries on the local file system, one file per
// attachment id under a fixed root.
type BlobStore struct {
	root string // absolute path to the blobs directory
}

// NewBlobStore creates a blob store rooted at the given directory, creating
// it if needed.
func NewBlobStore(root string) (*BlobStore, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("attach: resolve root: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("attach: create root: %w", err)
	}
	return &BlobStore{root: abs}, nil
}

// safePath validates that id is a plain name (no separators, no traversal)
// and returns the absolute blob path.
func (b *BlobStore) safePath(id string) (string, error) {
	if id == "" {
		return "", fmt.Errorf("attach: blob id is required")
	}
	cleaned := filepath.Clean(id)
	if cleaned != filepath.Base(cleaned) || strings.Contains(cleaned, "..") {
		return "", fmt.Errorf("attach: invalid blob id: %s", id)
	}
	abs := filepath.Join(b.root, cleaned)
	if !strings.HasPrefix(abs, b.root+string(os.PathSeparator)) {
		return "", fmt.Errorf("attach: blob path escapes root")
	}
	return abs, nil
}

// Write atomically stores the blob: tmp file, fsync, rename. Returns the
// number of bytes written.
func (b *BlobStore) Write(id string, r io.Reader) (int64, error) {
	abs, err := b.safePath(id)
	if err != nil {
		return 0, err
	}

	tmp, err := os.CreateTemp(b.root, ".algiz-tmp-*")
	if err != nil {
		return 0, fmt.Errorf("attach: create temp: %w", err)
	}
	tmpName := tmp.Name()

	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	written, err := io.Copy(tmp, r)
	if err != nil {
		return 0, fmt.Errorf("attach: write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return 0, fmt.Errorf("attach: fsync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return 0, fmt.Errorf("attach: close temp: %w", err)
	}
	if err := os.Rename(tmpName, abs); err != nil {
		return 0, fmt.Errorf("attach: rename: %w", err)
	}
	success = true
	return written, nil
}

// Open returns a reader over the stored blob.
func (b *BlobStore) Open(id string) (io.ReadCloser, error) {
	abs, err := b.safePath(id)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(abs)
	if err != nil {
		return nil, fmt.Errorf("attach: open blob %s: %w", id, err)
	}
	return f, nil
}

// CopyTo writes the blob into dst (used for the extraction spool handoff).
func (b *BlobStore) CopyTo(id, dst string) error {
	src, err := b.Open(id)
	if err != nil {
		return err
	}
	defer src.Close()

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("attach: create spool file: %w", err)
	}
	if _, err := io.Copy(out, src); err != nil {
		out.Close()
		_ = os.Remove(dst)
		return fmt.Errorf("attach: copy to spool: %w", err)
	}
	return out.Close()
}

// Delete removes the stored blob. A missing blob is not an error: the
// registry row is authoritative.
func (b *BlobStore) Delete(id string) error {
	abs, err := b.safePath(id)
	if err != nil {
		return err
	}
	if err := os.Remove(abs); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("attach: delete blob %s: %w", id, err)
	}
	return nil
}
