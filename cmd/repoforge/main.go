package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/frederic-klein/repoforge/internal/pipeline"
	"github.com/frederic-klein/repoforge/internal/pkgspec"
	"github.com/frederic-klein/repoforge/internal/repoindex"
	"github.com/frederic-klein/repoforge/internal/version"
)

var (
	configPath string
	force      bool
	verbose    bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "repoforge",
		Short: "Keeps a local package repository in sync with upstream build recipes",
		Long: "Repoforge fetches upstream build recipes, rebuilds packages whose upstream " +
			"version is newer than the local repository's, and regenerates the repository index.",
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "./repoforge.yaml", "Configuration file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")

	syncCmd := &cobra.Command{
		Use:   "sync",
		Short: "Fetch, build and index every outdated package",
		RunE:  runSync,
	}
	syncCmd.Flags().BoolVarP(&force, "force", "f", false, "Build every package regardless of versions")

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Compare local and upstream versions without building",
		RunE:  runStatus,
	}

	indexCmd := &cobra.Command{
		Use:   "index",
		Short: "Regenerate the repository index from the artifacts on disk",
		RunE:  runIndex,
	}

	rootCmd.AddCommand(syncCmd, statusCmd, indexCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// openRunLog creates the per-run log file and returns a sink writing to
// both the file and the terminal.
func openRunLog(cfg *pkgspec.Config) (io.Writer, string, func(), error) {
	if err := os.MkdirAll(cfg.LogDir, 0o755); err != nil {
		return nil, "", nil, fmt.Errorf("creating log dir: %w", err)
	}
	logPath := filepath.Join(cfg.LogDir, "repoforge-"+time.Now().Format("20060102-150405")+".log")
	f, err := os.Create(logPath)
	if err != nil {
		return nil, "", nil, fmt.Errorf("creating log file: %w", err)
	}
	return io.MultiWriter(os.Stderr, f), logPath, func() { f.Close() }, nil
}

func newLogger(sink io.Writer) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(sink, &slog.HandlerOptions{Level: level}))
}

func runSync(cmd *cobra.Command, args []string) error {
	cfg, err := pkgspec.Load(configPath)
	if err != nil {
		return err
	}
	sink, logPath, closeLog, err := openRunLog(cfg)
	if err != nil {
		return err
	}
	defer closeLog()

	p := pipeline.New(cfg, sink, newLogger(sink))
	p.Force = force

	rep, err := p.Run(context.Background(), logPath)
	if rep != nil {
		rep.WriteSummary(os.Stdout)
	}
	// Only a failed pre-flight yields an error; individual package
	// failures are inside the report and do not fail the process.
	return err
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := pkgspec.Load(configPath)
	if err != nil {
		return err
	}
	logger := newLogger(os.Stderr)
	p := pipeline.New(cfg, io.Discard, logger)

	if err := p.Preflight(); err != nil {
		return err
	}

	bold := color.New(color.Bold).SprintFunc()
	fmt.Printf("%-24s %-16s %-16s %s\n", bold("package"), bold("local"), bold("upstream"), bold("action"))
	for _, row := range p.Status(context.Background()) {
		unit := row.Package
		if row.Variant != "" {
			unit += "/" + row.Variant
		}
		action := "skip"
		if row.WouldBuild {
			action = "build"
		}
		fmt.Printf("%-24s %-16s %-16s %s\n", unit, versionOrDash(row.Local), versionOrDash(row.Upstream), action)
	}
	return nil
}

func runIndex(cmd *cobra.Command, args []string) error {
	cfg, err := pkgspec.Load(configPath)
	if err != nil {
		return err
	}
	sink, logPath, closeLog, err := openRunLog(cfg)
	if err != nil {
		return err
	}
	defer closeLog()
	logger := newLogger(sink)

	ix := repoindex.New(cfg.Tools.Index, cfg.RepoName, cfg.IndexOwner, sink, logger)
	if err := ix.Reindex(context.Background(), cfg.RepoDir); err != nil {
		return err
	}
	fmt.Printf("index updated: %s (log: %s)\n", ix.DBPath(cfg.RepoDir), logPath)
	return nil
}

func versionOrDash(v *version.Version) string {
	if v == nil {
		return "-"
	}
	return v.String()
}
