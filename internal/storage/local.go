// Package storage keeps uploaded document bytes keyed by an opaque storage path.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/tradedocs/internal/common"
)

// Store is the byte-retrieval capability the pipeline reads documents through.
type Store interface {
	Put(ctx context.Context, key string, data []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
}

// LocalStore writes objects below a root directory on local disk.
type LocalStore struct {
	root   string
	logger *slog.Logger
}

func NewLocalStore(root string, logger *slog.Logger) (*LocalStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if root == "" {
		return nil, fmt.Errorf("storage root is empty")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("create storage root: %w", err)
	}
	return &LocalStore{root: abs, logger: logger}, nil
}

// Root returns the absolute directory objects are stored under.
func (s *LocalStore) Root() string { return s.root }

func (s *LocalStore) Put(ctx context.Context, key string, data []byte) error {
	p, err := s.resolve(key)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return fmt.Errorf("create object directory: %w", err)
	}
	tmp := p + ".part"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write object: %w", err)
	}
	if err := os.Rename(tmp, p); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("commit object: %w", err)
	}
	s.logger.Debug("storage.put", "key", key, "bytes", len(data))
	return nil
}

func (s *LocalStore) Get(ctx context.Context, key string) ([]byte, error) {
	p, err := s.resolve(key)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(p)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, common.NotFoundf("stored object %q", key)
	}
	return data, err
}

func (s *LocalStore) Delete(ctx context.Context, key string) error {
	p, err := s.resolve(key)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// resolve maps a slash separated key to a path under root and refuses keys
// that would escape it.
func (s *LocalStore) resolve(key string) (string, error) {
	for _, seg := range strings.Split(key, "/") {
		if seg == ".." {
			return "", common.InvalidInputf("invalid storage key %q", key)
		}
	}
	clean := path.Clean("/" + key)
	if clean == "/" {
		return "", common.InvalidInputf("invalid storage key %q", key)
	}
	return filepath.Join(s.root, filepath.FromSlash(strings.TrimPrefix(clean, "/"))), nil
}

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// SanitizeFilename strips directories and replaces characters that are not
// safe in a storage key.
func SanitizeFilename(name string) string {
	base := filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	base = unsafeChars.ReplaceAllString(base, "_")
	base = strings.Trim(base, "._")
	if base == "" {
		return "document"
	}
	return base
}

// DocumentKey is the storage path of a document: cases/{case}/{document}/{filename}.
func DocumentKey(caseID, documentID uuid.UUID, filename string) string {
	return path.Join("cases", caseID.String(), documentID.String(), SanitizeFilename(filename))
}
