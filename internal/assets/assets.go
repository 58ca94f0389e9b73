// Package assets turns the logical source paths stored on segments into
// readable local files.
package assets

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

var (
	// ErrMissingSourceAsset reports a source that cannot be read.
	ErrMissingSourceAsset = errors.New("source asset missing")

	// errNotHandled tells a Chain to try the next resolver.
	errNotHandled = errors.New("scheme not handled")
)

// Resolver maps a logical source to a local path.
type Resolver interface {
	Resolve(ctx context.Context, logical string) (string, error)
}

// LocalResolver serves plain and file:// paths. With a root, relative paths
// are joined under it and nothing may escape it.
type LocalResolver struct {
	root string
}

func NewLocalResolver(root string) *LocalResolver {
	if root != "" {
		root = filepath.Clean(root)
	}
	return &LocalResolver{root: root}
}

func (r *LocalResolver) Resolve(ctx context.Context, logical string) (string, error) {
	p := logical
	if strings.HasPrefix(p, "file://") {
		p = strings.TrimPrefix(p, "file://")
	} else if strings.Contains(p, "://") {
		return "", errNotHandled
	}
	if strings.TrimSpace(p) == "" {
		return "", fmt.Errorf("%w: empty path", ErrMissingSourceAsset)
	}

	if r.root != "" {
		if !filepath.IsAbs(p) {
			p = filepath.Join(r.root, p)
		}
		p = filepath.Clean(p)
		rel, err := filepath.Rel(r.root, p)
		if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return "", fmt.Errorf("%w: %s is outside the media root", ErrMissingSourceAsset, logical)
		}
	}

	info, err := os.Stat(p)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrMissingSourceAsset, logical)
	}
	if info.IsDir() {
		return "", fmt.Errorf("%w: %s is a directory", ErrMissingSourceAsset, logical)
	}
	return p, nil
}

// Chain tries each resolver in order until one handles the path.
type Chain []Resolver

func (c Chain) Resolve(ctx context.Context, logical string) (string, error) {
	for _, r := range c {
		p, err := r.Resolve(ctx, logical)
		if errors.Is(err, errNotHandled) {
			continue
		}
		return p, err
	}
	return "", fmt.Errorf("%w: no resolver for %s", ErrMissingSourceAsset, logical)
}
