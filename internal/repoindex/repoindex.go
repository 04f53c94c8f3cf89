// Package repoindex regenerates the repository's package database from
// the artifacts currently on disk.
package repoindex

import (
	"context"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"os/user"
	"path/filepath"
	"strconv"
	"syscall"

	"github.com/pkg/errors"

	"github.com/frederic-klein/repoforge/internal/artifact"
)

// ErrIndex marks an index regeneration failure. Collected artifacts are
// never rolled back on it; the repository stays transiently inconsistent
// until the next successful run.
var ErrIndex = errors.New("repository index update failed")

// Indexer drives the external repository-indexing tool.
type Indexer struct {
	Tool     string
	RepoName string
	// Owner is the non-privileged identity the tool runs under when the
	// process itself is privileged. Empty means the current identity.
	Owner  string
	Output io.Writer
	Logger *slog.Logger
}

// New creates an indexer for the named repository.
func New(tool, repoName, owner string, output io.Writer, logger *slog.Logger) *Indexer {
	return &Indexer{Tool: tool, RepoName: repoName, Owner: owner, Output: output, Logger: logger}
}

// DBPath returns the index database file for repoDir.
func (ix *Indexer) DBPath(repoDir string) string {
	return filepath.Join(repoDir, ix.RepoName+".db.tar.gz")
}

// Reindex updates the index from every artifact currently in repoDir.
// The tool is additive: existing entries are updated or extended, never
// pruned, so entries for removed artifacts persist until a manual full
// rebuild. When the index file does not exist yet the same invocation
// performs the full rebuild. Re-running against an unchanged directory
// yields an index describing the same artifact set.
func (ix *Indexer) Reindex(ctx context.Context, repoDir string) error {
	records, err := artifact.Scan(repoDir)
	if err != nil {
		return errors.Wrapf(ErrIndex, "%v", err)
	}
	if len(records) == 0 {
		ix.Logger.Info("no artifacts to index", "dir", repoDir)
		return nil
	}

	args := []string{ix.DBPath(repoDir)}
	for _, r := range records {
		args = append(args, r.Path)
	}

	cmd := exec.CommandContext(ctx, ix.Tool, args...)
	cmd.Dir = repoDir
	cmd.Stdout = ix.Output
	cmd.Stderr = ix.Output
	if err := ix.dropPrivileges(cmd); err != nil {
		return errors.Wrapf(ErrIndex, "%v", err)
	}

	ix.Logger.Info("updating repository index", "db", ix.DBPath(repoDir), "artifacts", len(records))
	if err := cmd.Run(); err != nil {
		return errors.Wrapf(ErrIndex, "%s: %v", ix.Tool, err)
	}
	return nil
}

// dropPrivileges arranges for cmd to run as Owner. Only a privileged
// process can switch identity; otherwise the setting is noted and
// ignored.
func (ix *Indexer) dropPrivileges(cmd *exec.Cmd) error {
	if ix.Owner == "" {
		return nil
	}
	if os.Geteuid() != 0 {
		ix.Logger.Debug("not privileged, running index tool as current user", "owner", ix.Owner)
		return nil
	}
	u, err := user.Lookup(ix.Owner)
	if err != nil {
		return errors.Wrapf(err, "looking up index owner %q", ix.Owner)
	}
	uid, err := strconv.ParseUint(u.Uid, 10, 32)
	if err != nil {
		return errors.Wrapf(err, "uid of %q", ix.Owner)
	}
	gid, err := strconv.ParseUint(u.Gid, 10, 32)
	if err != nil {
		return errors.Wrapf(err, "gid of %q", ix.Owner)
	}
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Credential: &syscall.Credential{Uid: uint32(uid), Gid: uint32(gid)},
	}
	return nil
}
