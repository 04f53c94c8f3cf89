// Package overlay applies variant configuration files to fetched
// recipe workspaces.
package overlay

import (
	"io"
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/frederic-klein/repoforge/internal/recipe"
)

// ErrConfigMissing marks a variant whose overlay file does not exist.
// This is a configuration bug in the package table, never a build
// problem, so callers record it and move on.
var ErrConfigMissing = errors.New("variant overlay missing")

// Apply copies the overlay file into the workspace's build root at the
// location the build tool reads for customization.
func Apply(ws *recipe.Workspace, overlayPath string) error {
	src, err := os.Open(overlayPath)
	if err != nil {
		if os.IsNotExist(err) {
			return errors.Wrapf(ErrConfigMissing, "%s", overlayPath)
		}
		return errors.Wrapf(err, "opening overlay %s", overlayPath)
	}
	defer src.Close()

	target := filepath.Join(ws.BuildRoot(), ws.Pkg.Strategy().OverlayTarget)
	dst, err := os.Create(target)
	if err != nil {
		return errors.Wrapf(err, "writing overlay to %s", target)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return errors.Wrapf(err, "copying overlay to %s", target)
	}
	return nil
}
