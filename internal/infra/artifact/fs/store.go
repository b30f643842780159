// Package fs stores exported artifacts in a local directory tree.
package fs

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"dormcore/internal/infra/artifact"
)

// DefaultRoot is the directory used when none is configured.
const DefaultRoot = "reports"

const tempPrefix = ".tmp-"

// Store implements artifact.Store on the local filesystem. Keys map to
// relative paths under the root.
type Store struct {
	root string
}

// New returns a store rooted at root, creating it if needed.
func New(root string) (*Store, error) {
	if root == "" {
		root = DefaultRoot
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create artifact root: %w", err)
	}
	return &Store{root: root}, nil
}

// Root returns the base directory.
func (s *Store) Root() string { return s.root }

func (s *Store) Driver() artifact.Driver { return artifact.DriverFilesystem }

// sanitizeKey forbids traversal and absolute keys.
func sanitizeKey(key string) (string, error) {
	if strings.TrimSpace(key) == "" {
		return "", fmt.Errorf("empty key")
	}
	if strings.Contains(key, "..") {
		return "", fmt.Errorf("invalid key contains '..'")
	}
	if strings.HasPrefix(key, "/") || filepath.IsAbs(key) {
		return "", fmt.Errorf("invalid absolute key")
	}
	return filepath.ToSlash(filepath.Clean(key)), nil
}

func (s *Store) pathFor(key string) (string, error) {
	k, err := sanitizeKey(key)
	if err != nil {
		return "", err
	}
	return filepath.Join(s.root, filepath.FromSlash(k)), nil
}

// Location returns the file path of key.
func (s *Store) Location(key string) string {
	p, err := s.pathFor(key)
	if err != nil {
		return ""
	}
	return filepath.ToSlash(p)
}

// Put streams r into a temp file and renames it over the target.
func (s *Store) Put(_ context.Context, key string, r io.Reader, opts artifact.PutOptions) (artifact.Info, error) {
	dataPath, err := s.pathFor(key)
	if err != nil {
		return artifact.Info{}, err
	}
	if err := os.MkdirAll(filepath.Dir(dataPath), 0o755); err != nil {
		return artifact.Info{}, err
	}
	tmp, err := os.CreateTemp(filepath.Dir(dataPath), tempPrefix+"*")
	if err != nil {
		return artifact.Info{}, err
	}
	defer func() { _ = os.Remove(tmp.Name()) }()
	h := sha256.New()
	size, err := io.Copy(io.MultiWriter(tmp, h), r)
	if err != nil {
		_ = tmp.Close()
		return artifact.Info{}, err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return artifact.Info{}, err
	}
	if err := tmp.Close(); err != nil {
		return artifact.Info{}, err
	}
	if err := os.Rename(tmp.Name(), dataPath); err != nil {
		return artifact.Info{}, err
	}
	st, err := os.Stat(dataPath)
	if err != nil {
		return artifact.Info{}, err
	}
	return artifact.Info{
		Key:          key,
		Size:         size,
		ContentType:  opts.ContentType,
		ETag:         hex.EncodeToString(h.Sum(nil)),
		Metadata:     artifact.CloneMetadata(opts.Metadata),
		LastModified: st.ModTime().UTC(),
		Location:     filepath.ToSlash(dataPath),
	}, nil
}

func (s *Store) info(key, path string, st fs.FileInfo) artifact.Info {
	return artifact.Info{Key: key, Size: st.Size(), LastModified: st.ModTime().UTC(), Location: filepath.ToSlash(path)}
}

// Get opens the file stored at key.
func (s *Store) Get(_ context.Context, key string) (artifact.Info, io.ReadCloser, error) {
	dataPath, err := s.pathFor(key)
	if err != nil {
		return artifact.Info{}, nil, err
	}
	file, err := os.Open(dataPath)
	if errors.Is(err, fs.ErrNotExist) {
		return artifact.Info{}, nil, fmt.Errorf("%s: %w", key, artifact.ErrNotFound)
	}
	if err != nil {
		return artifact.Info{}, nil, err
	}
	st, err := file.Stat()
	if err != nil {
		_ = file.Close()
		return artifact.Info{}, nil, err
	}
	return s.info(key, dataPath, st), file, nil
}

// Delete removes the file stored at key.
func (s *Store) Delete(_ context.Context, key string) (bool, error) {
	dataPath, err := s.pathFor(key)
	if err != nil {
		return false, err
	}
	if err := os.Remove(dataPath); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// List walks the root and returns files whose key starts with prefix.
func (s *Store) List(_ context.Context, prefix string) ([]artifact.Info, error) {
	var infos []artifact.Info
	err := filepath.WalkDir(s.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || strings.HasPrefix(d.Name(), tempPrefix) {
			return nil
		}
		rel, err := filepath.Rel(s.root, path)
		if err != nil {
			return err
		}
		key := filepath.ToSlash(rel)
		if prefix != "" && !strings.HasPrefix(key, prefix) {
			return nil
		}
		st, err := d.Info()
		if err != nil {
			return err
		}
		infos = append(infos, s.info(key, path, st))
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Key < infos[j].Key })
	return infos, nil
}
