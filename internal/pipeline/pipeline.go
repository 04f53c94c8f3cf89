// Package pipeline orchestrates the per-package build cycle: fetch the
// recipe, decide whether upstream is newer, build, collect artifacts,
// and regenerate the repository index once at the end.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os/exec"

	"github.com/pkg/errors"

	"github.com/frederic-klein/repoforge/internal/artifact"
	"github.com/frederic-klein/repoforge/internal/buildexec"
	"github.com/frederic-klein/repoforge/internal/oracle"
	"github.com/frederic-klein/repoforge/internal/overlay"
	"github.com/frederic-klein/repoforge/internal/pkgspec"
	"github.com/frederic-klein/repoforge/internal/recipe"
	"github.com/frederic-klein/repoforge/internal/repoindex"
	"github.com/frederic-klein/repoforge/internal/version"
)

// Pipeline wires the components for one run. Execution is strictly
// sequential: one package, one variant, one build at a time.
type Pipeline struct {
	Cfg     *pkgspec.Config
	Source  *recipe.Source
	Oracle  *oracle.Oracle
	Exec    *buildexec.Executor
	Indexer *repoindex.Indexer
	Logger  *slog.Logger
	// Force bypasses the version check and builds every configured
	// variant.
	Force bool
}

// New assembles a pipeline from configuration. Tool output and log
// records both go to output, which the caller points at the combined
// terminal/log-file sink.
func New(cfg *pkgspec.Config, output io.Writer, logger *slog.Logger) *Pipeline {
	ex := buildexec.New(cfg.Tools.Build, output, logger)
	return &Pipeline{
		Cfg:     cfg,
		Source:  recipe.NewSource(cfg.BuildRoot, logger),
		Oracle:  oracle.New(ex, logger),
		Exec:    ex,
		Indexer: repoindex.New(cfg.Tools.Index, cfg.RepoName, cfg.IndexOwner, output, logger),
		Logger:  logger,
	}
}

// Preflight verifies the external tools exist before any package is
// touched. A missing tool is the only error fatal to a whole run.
func (p *Pipeline) Preflight() error {
	for _, tool := range []string{p.Cfg.Tools.Build, p.Cfg.Tools.Index} {
		if _, err := exec.LookPath(tool); err != nil {
			return errors.Wrapf(err, "required tool %q not available", tool)
		}
	}
	return nil
}

// Run executes the pipeline over every configured package and returns
// the run report. Per-package and per-variant errors are recorded and
// never abort the run; the index update happens exactly once after the
// package loop, whatever the individual outcomes were. A pre-flight
// failure returns an error before any package is touched, together with
// an empty report so callers can still emit the end-of-run summary.
func (p *Pipeline) Run(ctx context.Context, logPath string) (*Report, error) {
	rep := newReport(logPath)
	if err := p.Preflight(); err != nil {
		return rep, err
	}
	defer func() {
		if err := p.Indexer.Reindex(ctx, p.Cfg.RepoDir); err != nil {
			p.Logger.Error("index update failed", "err", err)
			rep.IndexErr = err
		}
	}()

	for i := range p.Cfg.Packages {
		p.syncPackage(ctx, &p.Cfg.Packages[i], rep)
	}
	return rep, nil
}

// syncPackage runs the state machine once per variant. The workspace is
// re-fetched from scratch between variants regardless of the previous
// variant's outcome, so no generated file leaks across builds.
func (p *Pipeline) syncPackage(ctx context.Context, pkg *pkgspec.PackageSpec, rep *Report) {
	for _, v := range pkg.EffectiveVariants() {
		out := p.runVariant(ctx, pkg, v)
		rep.record(pkg.Name, v.Name, out)
		p.Logger.Info("variant finished",
			"package", pkg.Name, "variant", v.Name,
			"status", out.Status.String(), "reason", out.Reason)
	}
}

func (p *Pipeline) runVariant(ctx context.Context, pkg *pkgspec.PackageSpec, v pkgspec.VariantSpec) Outcome {
	ws, err := p.Source.Fetch(ctx, pkg)
	if err != nil {
		return Outcome{Status: StatusFailed, Reason: err.Error()}
	}

	// The overlay goes in before the version probe: a recipe's declared
	// version may depend on its configuration.
	if v.Overlay != "" {
		if err := overlay.Apply(ws, v.Overlay); err != nil {
			return Outcome{Status: StatusFailed, Reason: err.Error()}
		}
	}

	if !p.Force {
		upstream := p.Oracle.UpstreamVersion(ctx, ws)
		local := p.Oracle.LocalVersion(p.Cfg.RepoDir, pkg, v.Name)
		if !version.IsNewer(upstream, local, pkg.UnknownPolicy()) {
			return Outcome{Status: StatusSkipped, Reason: skipReason(upstream, local)}
		}
	}

	if err := p.Exec.Build(ctx, ws.BuildRoot()); err != nil {
		return Outcome{Status: StatusFailed, Reason: err.Error()}
	}

	n, err := artifact.Collect(ws.BuildRoot(), p.Cfg.RepoDir, pkg.Strategy().ArtifactPattern)
	if err != nil {
		return Outcome{Status: StatusFailed, Reason: err.Error()}
	}
	return Outcome{Status: StatusSucceeded, Artifacts: n}
}

func skipReason(upstream, local *version.Version) string {
	if upstream == nil {
		return "upstream version unknown"
	}
	return fmt.Sprintf("up to date (local %s, upstream %s)", local, upstream)
}

// VersionStatus is one row of a dry-run comparison.
type VersionStatus struct {
	Package    string
	Variant    string
	Local      *version.Version
	Upstream   *version.Version
	WouldBuild bool
}

// Status fetches every configured package and reports local versus
// upstream versions without building or touching the index. Fetch
// failures surface as rows with an unknown upstream version.
func (p *Pipeline) Status(ctx context.Context) []VersionStatus {
	var rows []VersionStatus
	for i := range p.Cfg.Packages {
		pkg := &p.Cfg.Packages[i]
		for _, v := range pkg.EffectiveVariants() {
			row := VersionStatus{Package: pkg.Name, Variant: v.Name}
			row.Local = p.Oracle.LocalVersion(p.Cfg.RepoDir, pkg, v.Name)
			if ws, err := p.Source.Fetch(ctx, pkg); err == nil {
				if v.Overlay != "" {
					// Overlay trouble reads as unknown upstream here.
					_ = overlay.Apply(ws, v.Overlay)
				}
				row.Upstream = p.Oracle.UpstreamVersion(ctx, ws)
			} else {
				p.Logger.Warn("fetch failed during status", "package", pkg.Name, "err", err)
			}
			row.WouldBuild = version.IsNewer(row.Upstream, row.Local, pkg.UnknownPolicy())
			rows = append(rows, row)
		}
	}
	return rows
}
