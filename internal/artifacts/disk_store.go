package artifacts

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/ideaforge/ideaforge/internal/zerrors"
)

var kindDirs = map[Kind]string{
	KindSketch: "sketches",
	KindImage:  "images",
	KindModel:  "models",
}

// DiskStore implements BlobStore interface with local filesystem storage.
// Blobs live under <baseDir>/{sketches,images,models}.
type DiskStore struct {
	baseDir string
}

// NewDiskStore creates a disk store rooted at baseDir, creating the
// per-kind subdirectories if needed
func NewDiskStore(baseDir string) (*DiskStore, error) {
	abs, err := filepath.Abs(baseDir)
	if err != nil {
		return nil, zerrors.NewStorageError("resolve assets dir", err)
	}

	for _, dir := range kindDirs {
		if err := os.MkdirAll(filepath.Join(abs, dir), 0o755); err != nil {
			return nil, zerrors.NewStorageError("create assets dir", err)
		}
	}

	return &DiskStore{baseDir: abs}, nil
}

// BaseDir returns the root directory blobs are stored under
func (s *DiskStore) BaseDir() string {
	return s.baseDir
}

// Save writes data to a new file under the kind's subdirectory and
// returns its absolute path
func (s *DiskStore) Save(kind Kind, sessionID uuid.UUID, ext string, data []byte) (string, error) {
	dir, ok := kindDirs[kind]
	if !ok {
		return "", zerrors.NewValidationError("unknown artifact kind: "+string(kind), nil)
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}

	name := fmt.Sprintf("%s_%s%s", sessionID.String(), uuid.New().String()[:8], ext)
	path := filepath.Join(s.baseDir, dir, name)

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", zerrors.NewStorageError("write blob", err)
	}

	return path, nil
}

// Read returns the contents of a stored blob
func (s *DiskStore) Read(path string) ([]byte, error) {
	if err := s.checkPath(path); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, zerrors.NewNotFoundError("blob", path)
		}
		return nil, zerrors.NewStorageError("read blob", err)
	}

	return data, nil
}

// Remove deletes a stored blob. Missing files are not an error so that
// cleanup after a partial failure is idempotent.
func (s *DiskStore) Remove(path string) error {
	if err := s.checkPath(path); err != nil {
		return err
	}

	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return zerrors.NewStorageError("remove blob", err)
	}

	return nil
}

// checkPath rejects paths outside the store's base directory
func (s *DiskStore) checkPath(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return zerrors.NewValidationError("invalid blob path", err)
	}
	if !strings.HasPrefix(abs, s.baseDir+string(filepath.Separator)) {
		return zerrors.NewValidationError("blob path outside assets dir", nil)
	}
	return nil
}
