// Package fileshare provides the contract file adapter: documents
// written to a mounted share directory, visible to every process with
// the same mount.
package fileshare

import (
	"context"
	stderrors "errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/c360/retailstore/errors"
)

// ErrInvalidName marks a contract name that would escape the share
// root.
var ErrInvalidName = stderrors.New("invalid contract name")

// Share is a rooted directory holding contract documents. All paths
// are confined to the root; a name that escapes it is rejected.
type Share struct {
	root   string
	logger *slog.Logger
}

// NewShare creates the share, making the root directory if needed.
func NewShare(root string, logger *slog.Logger) (*Share, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if root == "" {
		return nil, errors.WrapInvalid(errors.ErrMissingConfig,
			"fileshare", "NewShare", "resolve share root")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, errors.WrapUnavailable(err, "fileshare", "NewShare", "create share root")
	}
	return &Share{root: root, logger: logger}, nil
}

// path resolves a contract name inside the root, rejecting separators
// and traversal.
func (s *Share) path(name string) (string, error) {
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		return "", errors.WrapInvalid(ErrInvalidName,
			"fileshare", "path", "resolve contract name "+name)
	}
	return filepath.Join(s.root, name), nil
}

// UploadContract writes a contract document. Uploading the same name
// again overwrites the previous content.
func (s *Share) UploadContract(ctx context.Context, name string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p, err := s.path(name)
	if err != nil {
		return err
	}
	if err := os.WriteFile(p, data, 0o644); err != nil {
		return errors.Wrap(err, "fileshare", "UploadContract", "write "+name)
	}
	s.logger.Debug("contract uploaded", "name", name, "bytes", len(data))
	return nil
}

// Contract returns the bytes of one stored document.
func (s *Share) Contract(ctx context.Context, name string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p, err := s.path(name)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(p)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.WrapNotFound(errors.ErrShareNotFound,
				"fileshare", "Contract", "read "+name)
		}
		return nil, errors.Wrap(err, "fileshare", "Contract", "read "+name)
	}
	return data, nil
}

// Contracts lists stored document names, sorted. A missing root yields
// an empty slice; the share may not have been mounted yet.
func (s *Share) Contracts(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(s.root)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, errors.Wrap(err, "fileshare", "Contracts", "list share root")
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !entry.Type().IsRegular() {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)
	return names, nil
}

// Walk visits every stored document. Used by maintenance tooling.
func (s *Share) Walk(ctx context.Context, fn func(name string, info fs.FileInfo) error) error {
	names, err := s.Contracts(ctx)
	if err != nil {
		return err
	}
	for _, name := range names {
		info, err := os.Stat(filepath.Join(s.root, name))
		if err != nil {
			continue
		}
		if err := fn(name, info); err != nil {
			return err
		}
	}
	return nil
}
