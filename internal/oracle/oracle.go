// Package oracle answers the one question the pipeline turns on: is the
// upstream recipe newer than what the repository already holds? Local
// versions come from artifact filenames; upstream versions from a partial
// evaluation of the fetched recipe. Both lookups fail soft: an
// undeterminable version is an absent value, never an error.
package oracle

import (
	"bufio"
	"bytes"
	"context"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/frederic-klein/repoforge/internal/artifact"
	"github.com/frederic-klein/repoforge/internal/buildexec"
	"github.com/frederic-klein/repoforge/internal/pkgspec"
	"github.com/frederic-klein/repoforge/internal/recipe"
	"github.com/frederic-klein/repoforge/internal/version"
)

// Oracle derives and compares package versions.
type Oracle struct {
	Exec         *buildexec.Executor
	ProbeTimeout time.Duration
	Logger       *slog.Logger
}

// New creates an oracle probing recipes through exec.
func New(exec *buildexec.Executor, logger *slog.Logger) *Oracle {
	return &Oracle{Exec: exec, ProbeTimeout: buildexec.DefaultProbeTimeout, Logger: logger}
}

// LocalVersion scans repoDir for an artifact belonging to pkg and returns
// its version. When variant is non-empty, an artifact named
// <pkg>-<variant> is preferred; the plain package name is the fallback.
// Matching is by exact record name, so sibling packages whose names share
// a prefix (bigkernel vs bigkernel-headers) never shadow each other.
// Collection appends and the index never prunes, so several versions of
// one package routinely coexist; the newest one is the local version.
// Returns nil when the repository holds nothing for the package.
func (o *Oracle) LocalVersion(repoDir string, pkg *pkgspec.PackageSpec, variant string) *version.Version {
	records, err := artifact.Scan(repoDir)
	if err != nil {
		o.Logger.Warn("scanning repository failed", "dir", repoDir, "err", err)
		return nil
	}

	if variant != "" {
		if v := newestNamed(records, pkg.Name+"-"+variant); v != nil {
			return v
		}
	}
	return newestNamed(records, pkg.Name)
}

// newestNamed returns the highest version among records whose name is
// exactly name, or nil when none match.
func newestNamed(records []artifact.Record, name string) *version.Version {
	var newest *version.Version
	for _, r := range records {
		if r.Name != name {
			continue
		}
		if newest == nil || version.Compare(r.Version, newest) > 0 {
			newest = r.Version
		}
	}
	return newest
}

// UpstreamVersion partially evaluates the fetched (and, when a variant is
// in play, already configured) recipe in ws and returns its declared
// version. Timeouts, tool failures and unparsable metadata all yield nil.
func (o *Oracle) UpstreamVersion(ctx context.Context, ws *recipe.Workspace) *version.Version {
	out, err := o.Exec.Probe(ctx, ws.BuildRoot(), o.ProbeTimeout)
	if err != nil {
		o.Logger.Warn("upstream version unknown", "package", ws.Pkg.Name, "err", err)
		return nil
	}
	v := ParseSrcinfo(out)
	if v == nil {
		o.Logger.Warn("recipe metadata has no version", "package", ws.Pkg.Name)
	}
	return v
}

// ParseSrcinfo extracts the declared version from .SRCINFO-style output:
// "key = value" lines, of which pkgver, pkgrel and epoch are relevant.
// Returns nil when no pkgver is present.
func ParseSrcinfo(data []byte) *version.Version {
	v := &version.Version{}
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		key, value, ok := strings.Cut(scanner.Text(), "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)
		switch key {
		case "pkgver":
			v.Ver = value
		case "pkgrel":
			v.Rel = value
		case "epoch":
			if epoch, err := strconv.Atoi(value); err == nil {
				v.Epoch = epoch
			}
		}
	}
	if v.Ver == "" {
		return nil
	}
	return v
}
