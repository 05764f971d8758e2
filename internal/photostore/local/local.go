package local

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/vbonduro/vistoria/internal/photostore"
)

var errInvalidKey = errors.New("invalid storage key")

// LocalPhotoStore keeps photos as files below a directory. Keys are slash
// separated paths, for example property/environment/observation/photo.jpg,
// and every file operation goes through an os.Root so no key can reach
// outside the directory.
type LocalPhotoStore struct {
	root *os.Root
}

func NewLocalPhotoStore(dir string) (*LocalPhotoStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create photo directory: %w", err)
	}
	root, err := os.OpenRoot(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to open photo directory: %w", err)
	}
	return &LocalPhotoStore{root: root}, nil
}

// Close releases the photo directory.
func (s *LocalPhotoStore) Close() error {
	return s.root.Close()
}

// Save writes the photo to a temporary file next to its final name and
// renames it into place, so a reader never sees a partial image.
func (s *LocalPhotoStore) Save(ctx context.Context, prefix, mimeType string, r io.Reader) (string, error) {
	key := photostore.NewKey(prefix, mimeType)
	name, err := localName(key)
	if err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	dir := filepath.Dir(name)
	if err := s.root.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create photo directory: %w", err)
	}

	tmp := filepath.Join(dir, ".upload-"+uuid.NewString())
	if err := s.writeFile(tmp, r); err != nil {
		s.remove(tmp)
		return "", err
	}
	if err := s.root.Rename(tmp, name); err != nil {
		s.remove(tmp)
		return "", fmt.Errorf("failed to store photo: %w", err)
	}
	return key, nil
}

func (s *LocalPhotoStore) writeFile(name string, r io.Reader) error {
	f, err := s.root.OpenFile(name, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	if _, err := io.Copy(f, r); err != nil {
		if cerr := f.Close(); cerr != nil {
			slog.Error("failed to close file after write error", "error", cerr)
		}
		return fmt.Errorf("failed to write file: %w", err)
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to sync file: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close file: %w", err)
	}
	return nil
}

func (s *LocalPhotoStore) remove(name string) {
	if err := s.root.Remove(name); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Error("failed to remove temporary photo", "name", name, "error", err)
	}
}

func (s *LocalPhotoStore) Get(ctx context.Context, storageKey string) (io.ReadCloser, string, error) {
	name, err := localName(storageKey)
	if err != nil {
		return nil, "", err
	}

	f, err := s.root.Open(name)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, "", photostore.ErrNotFound
		}
		return nil, "", fmt.Errorf("failed to open file: %w", err)
	}
	return f, photostore.MIMEForKey(storageKey), nil
}

// Delete removes a photo and then every directory of its key left empty.
func (s *LocalPhotoStore) Delete(ctx context.Context, storageKey string) error {
	name, err := localName(storageKey)
	if err != nil {
		return err
	}

	if err := s.root.Remove(name); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return photostore.ErrNotFound
		}
		return fmt.Errorf("failed to delete file: %w", err)
	}
	s.prune(filepath.Dir(name))
	return nil
}

// prune removes dir and its parents up to the store root while they are
// empty. Remove fails on the first directory that still holds entries.
func (s *LocalPhotoStore) prune(dir string) {
	for dir != "." {
		if err := s.root.Remove(dir); err != nil {
			return
		}
		dir = filepath.Dir(dir)
	}
}

// localName converts a storage key to a path relative to the store root.
// Absolute keys and keys leaving the root are rejected.
func localName(storageKey string) (string, error) {
	clean := path.Clean(storageKey)
	name := filepath.FromSlash(clean)
	if clean != storageKey || !filepath.IsLocal(name) {
		return "", fmt.Errorf("%w: %q", errInvalidKey, storageKey)
	}
	return name, nil
}
