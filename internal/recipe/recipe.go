// Package recipe fetches build recipes into scratch workspaces. A
// workspace is exclusively owned by one fetch: it is removed and
// recreated on every call so no generated file survives between builds.
package recipe

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	git "github.com/go-git/go-git/v5"
	"github.com/pkg/errors"

	"github.com/frederic-klein/repoforge/internal/pkgspec"
)

// ErrFetch marks failures to materialize a recipe from its source.
var ErrFetch = errors.New("recipe fetch failed")

// Workspace is a scratch directory holding one fetched recipe.
type Workspace struct {
	Dir string
	Pkg *pkgspec.PackageSpec
}

// BuildRoot resolves the effective build root for the workspace. Every
// downstream component goes through this one rule; nested recipe layouts
// are never special-cased elsewhere.
func (w *Workspace) BuildRoot() string {
	if w.Pkg.Strategy().NestedRoot {
		return filepath.Join(w.Dir, w.Pkg.Name)
	}
	return w.Dir
}

// Source fetches recipes into per-package workspaces under Root.
type Source struct {
	Root   string
	Logger *slog.Logger
}

// NewSource creates a recipe source rooted at dir.
func NewSource(dir string, logger *slog.Logger) *Source {
	return &Source{Root: dir, Logger: logger}
}

// Fetch materializes pkg's recipe in a fresh workspace. Any existing
// workspace for the package is destroyed first; fetching twice yields two
// independent workspaces in sequence. The package name is validated
// before anything touches the filesystem or an external source.
func (s *Source) Fetch(ctx context.Context, pkg *pkgspec.PackageSpec) (*Workspace, error) {
	if err := pkg.Validate(); err != nil {
		return nil, err
	}

	dir := filepath.Join(s.Root, pkg.Name)
	if err := os.RemoveAll(dir); err != nil {
		return nil, errors.Wrapf(ErrFetch, "resetting workspace for %s: %v", pkg.Name, err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrapf(ErrFetch, "creating workspace for %s: %v", pkg.Name, err)
	}

	s.Logger.Debug("fetching recipe", "package", pkg.Name, "source", pkg.Source)
	if IsGitSource(pkg.Source) {
		if err := cloneRecipe(ctx, pkg.Source, dir); err != nil {
			return nil, errors.Wrapf(ErrFetch, "cloning %s: %v", pkg.Name, err)
		}
	} else {
		if err := copyRecipe(pkg.Source, dir); err != nil {
			return nil, errors.Wrapf(ErrFetch, "copying %s: %v", pkg.Name, err)
		}
	}
	return &Workspace{Dir: dir, Pkg: pkg}, nil
}

// IsGitSource reports whether locator names a git remote rather than a
// local directory.
func IsGitSource(locator string) bool {
	return strings.Contains(locator, "://") ||
		strings.HasPrefix(locator, "git@") ||
		strings.HasSuffix(locator, ".git")
}

func cloneRecipe(ctx context.Context, url, dir string) error {
	// Recipes are always built from the tip of the default branch, so a
	// shallow clone is enough.
	_, err := git.PlainCloneContext(ctx, dir, false, &git.CloneOptions{
		URL:      url,
		Depth:    1,
		Progress: io.Discard,
	})
	return err
}

func copyRecipe(src, dir string) error {
	info, err := os.Stat(src)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return errors.Errorf("recipe source %s is not a directory", src)
	}
	return os.CopyFS(dir, os.DirFS(src))
}
