// Package artifact models built package files in the output repository.
// Artifact filenames follow the name-[epoch:]pkgver-pkgrel-arch.pkg.tar.*
// convention; they are parsed once into structured records so that all
// matching happens on fields, not on substring tests.
package artifact

import (
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/pkg/errors"

	"github.com/frederic-klein/repoforge/internal/version"
)

const suffixMarker = ".pkg.tar."

// Record is one artifact file, parsed from its filename.
type Record struct {
	Name    string
	Version *version.Version
	Arch    string
	Path    string
}

// ParseFilename parses a pacman-style artifact filename. The boolean is
// false for files that do not follow the artifact naming convention.
func ParseFilename(path string) (Record, bool) {
	base := filepath.Base(path)
	idx := strings.Index(base, suffixMarker)
	if idx <= 0 {
		return Record{}, false
	}
	stem := base[:idx]

	// Fields are fixed from the right: arch, pkgrel, pkgver. The name
	// itself may contain hyphens.
	parts := strings.Split(stem, "-")
	if len(parts) < 4 {
		return Record{}, false
	}
	arch := parts[len(parts)-1]
	rel := parts[len(parts)-2]
	ver := parts[len(parts)-3]
	name := strings.Join(parts[:len(parts)-3], "-")

	v, err := version.Parse(ver + "-" + rel)
	if err != nil {
		return Record{}, false
	}
	return Record{Name: name, Version: v, Arch: arch, Path: path}, true
}

// Scan reads dir and returns a record for every artifact file in it,
// sorted by filename. The directory is re-read on every call; no state
// is cached, so the result always reflects what is actually on disk.
func Scan(dir string) ([]Record, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.Wrapf(err, "scanning %s", dir)
	}
	var records []Record
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if r, ok := ParseFilename(filepath.Join(dir, e.Name())); ok {
			records = append(records, r)
		}
	}
	sort.Slice(records, func(i, j int) bool {
		return filepath.Base(records[i].Path) < filepath.Base(records[j].Path)
	})
	return records, nil
}

// Collect moves every file directly inside buildRoot whose name matches
// pattern into outputDir. Subdirectories and non-matching files stay
// where they are. Zero matches is a legitimate result, not an error.
func Collect(buildRoot, outputDir, pattern string) (int, error) {
	entries, err := os.ReadDir(buildRoot)
	if err != nil {
		return 0, errors.Wrapf(err, "reading build root %s", buildRoot)
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return 0, errors.Wrapf(err, "creating output dir %s", outputDir)
	}

	moved := 0
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ok, err := doublestar.Match(pattern, e.Name())
		if err != nil {
			return moved, errors.Wrapf(err, "bad artifact pattern %q", pattern)
		}
		if !ok {
			continue
		}
		src := filepath.Join(buildRoot, e.Name())
		dst := filepath.Join(outputDir, e.Name())
		if err := moveFile(src, dst); err != nil {
			return moved, errors.Wrapf(err, "collecting %s", e.Name())
		}
		moved++
	}
	return moved, nil
}

// moveFile renames where possible and falls back to copy-and-remove when
// the output directory is on a different filesystem.
func moveFile(src, dst string) error {
	if err := os.Rename(src, dst); err == nil {
		return nil
	}
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dst)
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	return os.Remove(src)
}
