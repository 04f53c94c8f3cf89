// Package buildexec drives the external packaging tool.
package buildexec

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os/exec"
	"time"

	"github.com/pkg/errors"
)

// ErrBuild marks a packaging-tool run that exited non-zero.
var ErrBuild = errors.New("build failed")

// DefaultBuildArgs resolves build dependencies without prompting, builds
// in a clean tree, overwrites existing output and skips source signature
// checks, as an unattended repository build needs.
var DefaultBuildArgs = []string{"-s", "--noconfirm", "-C", "-f", "--skippgpcheck"}

// DefaultProbeArgs makes the packaging tool print its parsed recipe
// metadata without building anything.
var DefaultProbeArgs = []string{"--printsrcinfo"}

// DefaultProbeTimeout bounds recipe metadata evaluation. Builds
// themselves are never subject to a timeout.
const DefaultProbeTimeout = 2 * time.Minute

// Executor invokes the packaging tool inside recipe build roots.
type Executor struct {
	Tool      string
	BuildArgs []string
	ProbeArgs []string
	// Output receives the tool's combined stdout and stderr as it runs,
	// so long builds stay observable.
	Output io.Writer
	Logger *slog.Logger
}

// New creates an executor for tool with the default argument sets.
func New(tool string, output io.Writer, logger *slog.Logger) *Executor {
	return &Executor{
		Tool:      tool,
		BuildArgs: DefaultBuildArgs,
		ProbeArgs: DefaultProbeArgs,
		Output:    output,
		Logger:    logger,
	}
}

// Build runs the packaging tool in buildRoot, streaming its output. A
// non-zero exit is reported as ErrBuild, never as a panic or abort; the
// caller decides whether the run continues. Builds have no timeout.
func (e *Executor) Build(ctx context.Context, buildRoot string) error {
	e.Logger.Info("starting build", "tool", e.Tool, "dir", buildRoot)
	cmd := exec.CommandContext(ctx, e.Tool, e.BuildArgs...)
	cmd.Dir = buildRoot
	cmd.Stdout = e.Output
	cmd.Stderr = e.Output
	if err := cmd.Run(); err != nil {
		return errors.Wrapf(ErrBuild, "%s in %s: %v", e.Tool, buildRoot, err)
	}
	return nil
}

// Probe partially evaluates the recipe in buildRoot and returns the
// tool's stdout, bounded by timeout. Probe failures are ordinary errors;
// callers treat them as "version unknown".
func (e *Executor) Probe(ctx context.Context, buildRoot string, timeout time.Duration) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var out bytes.Buffer
	cmd := exec.CommandContext(ctx, e.Tool, e.ProbeArgs...)
	cmd.Dir = buildRoot
	cmd.Stdout = &out
	cmd.Stderr = io.Discard
	if err := cmd.Run(); err != nil {
		return nil, errors.Wrapf(err, "probing %s", buildRoot)
	}
	return out.Bytes(), nil
}
