// Package repository persists determinism baselines.
package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/okian/fairness/internal/domain/types"
)

const (
	filePrefix = "baseline-"
	fileSuffix = ".json"
)

var validKey = regexp.MustCompile(`^[A-Za-z0-9_]+(-[A-Za-z0-9_]+)*$`) //nolint:gochecknoglobals // compiled once

// Store provides read/write access to stored baselines keyed by
// architecture, e.g. "linux-amd64".
type Store interface {
	// Save replaces the baseline under key.
	Save(ctx context.Context, key string, r types.Report) error

	// Load returns the baseline under key.
	// Returns ErrNotFound if none was saved.
	Load(ctx context.Context, key string) (types.Report, error)

	// List returns the stored keys in ascending order.
	List(ctx context.Context) ([]string, error)
}

// FileStore keeps one JSON file per key in a directory.
type FileStore struct {
	dir  string
	mode os.FileMode
}

var _ Store = (*FileStore)(nil)

// NewFileStore creates a store rooted at dir.
func NewFileStore(dir string, opts ...Option) *FileStore {
	s := &FileStore{dir: dir, mode: 0o644}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Dir returns the store's directory.
func (s *FileStore) Dir() string {
	return s.dir
}

// Path returns the file that holds key.
func (s *FileStore) Path(key string) string {
	return filepath.Join(s.dir, filePrefix+key+fileSuffix)
}

// Save writes the baseline through a temporary file and a rename, so a
// reader never observes a partial baseline.
func (s *FileStore) Save(ctx context.Context, key string, r types.Report) error { //nolint:gocritic // hugeParam: report is a value
	if err := checkKey(key); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("encode baseline: %w", err)
	}
	data = append(data, '\n')

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create baseline dir: %w", err)
	}
	tmp, err := os.CreateTemp(s.dir, ".baseline-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp baseline: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write baseline: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync baseline: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close baseline: %w", err)
	}
	if err := os.Chmod(tmpName, s.mode); err != nil {
		return fmt.Errorf("chmod baseline: %w", err)
	}
	if err := os.Rename(tmpName, s.Path(key)); err != nil {
		return fmt.Errorf("publish baseline: %w", err)
	}
	return nil
}

// Load reads the baseline under key.
func (s *FileStore) Load(ctx context.Context, key string) (types.Report, error) {
	if err := checkKey(key); err != nil {
		return types.Report{}, err
	}
	if err := ctx.Err(); err != nil {
		return types.Report{}, err
	}
	data, err := os.ReadFile(s.Path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return types.Report{}, fmt.Errorf("%w: %s", ErrNotFound, s.Path(key))
	}
	if err != nil {
		return types.Report{}, fmt.Errorf("read baseline: %w", err)
	}
	var r types.Report
	if err := json.Unmarshal(data, &r); err != nil {
		return types.Report{}, fmt.Errorf("decode baseline %s: %w", s.Path(key), err)
	}
	return r, nil
}

// List returns the stored keys in ascending order.
func (s *FileStore) List(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(s.dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("list baselines: %w", err)
	}
	var keys []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, filePrefix) || !strings.HasSuffix(name, fileSuffix) {
			continue
		}
		key := strings.TrimSuffix(strings.TrimPrefix(name, filePrefix), fileSuffix)
		if checkKey(key) == nil {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

func checkKey(key string) error {
	if !validKey.MatchString(key) {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return nil
}
