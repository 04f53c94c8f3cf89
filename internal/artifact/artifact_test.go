package artifact

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParseFilename(t *testing.T) {
	tests := []struct {
		file string
		name string
		ver  string
		arch string
		ok   bool
	}{
		{"tinytool-1.2-1-x86_64.pkg.tar.zst", "tinytool", "1.2-1", "x86_64", true},
		{"linux-ck-5.15.2-2-x86_64.pkg.tar.xz", "linux-ck", "5.15.2-2", "x86_64", true},
		{"linux-ck-headers-5.15.2-2-x86_64.pkg.tar.zst", "linux-ck-headers", "5.15.2-2", "x86_64", true},
		{"pkg-2:1.0-1-any.pkg.tar.gz", "pkg", "2:1.0-1", "any", true},
		{"notanartifact.txt", "", "", "", false},
		{"short-1.0.pkg.tar.zst", "", "", "", false},
		{"repoforge.db.tar.gz", "", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.file, func(t *testing.T) {
			r, ok := ParseFilename(tt.file)
			if ok != tt.ok {
				t.Fatalf("ParseFilename(%q) ok = %v, want %v", tt.file, ok, tt.ok)
			}
			if !ok {
				return
			}
			if r.Name != tt.name || r.Version.String() != tt.ver || r.Arch != tt.arch {
				t.Errorf("ParseFilename(%q) = {%s %s %s}, want {%s %s %s}",
					tt.file, r.Name, r.Version, r.Arch, tt.name, tt.ver, tt.arch)
			}
		})
	}
}

func TestScan(t *testing.T) {
	dir := t.TempDir()
	files := []string{
		"tinytool-1.2-1-x86_64.pkg.tar.zst",
		"bigkernel-5.15-1-x86_64.pkg.tar.zst",
		"README",
		"repoforge.db.tar.gz",
	}
	for _, f := range files {
		if err := os.WriteFile(filepath.Join(dir, f), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.Mkdir(filepath.Join(dir, "subdir"), 0o755); err != nil {
		t.Fatal(err)
	}

	records, err := Scan(dir)
	if err != nil {
		t.Fatalf("Scan(): %v", err)
	}
	var names []string
	for _, r := range records {
		names = append(names, r.Name)
	}
	want := []string{"bigkernel", "tinytool"}
	if diff := cmp.Diff(want, names); diff != "" {
		t.Errorf("scanned names mismatch (-want +got):\n%s", diff)
	}
}

func TestScanMissingDir(t *testing.T) {
	records, err := Scan(filepath.Join(t.TempDir(), "absent"))
	if err != nil {
		t.Fatalf("Scan() on a missing dir: %v", err)
	}
	if len(records) != 0 {
		t.Errorf("Scan() = %v, want empty", records)
	}
}

func TestCollect(t *testing.T) {
	buildRoot := t.TempDir()
	outputDir := t.TempDir()
	keep := []string{"PKGBUILD", "notes.txt"}
	move := []string{
		"tinytool-1.2-1-x86_64.pkg.tar.zst",
		"tinytool-docs-1.2-1-any.pkg.tar.xz",
	}
	for _, f := range append(append([]string{}, keep...), move...) {
		if err := os.WriteFile(filepath.Join(buildRoot, f), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	// Artifacts inside subdirectories must not be collected.
	sub := filepath.Join(buildRoot, "src")
	if err := os.Mkdir(sub, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(sub, "nested-1.0-1-any.pkg.tar.zst"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	n, err := Collect(buildRoot, outputDir, "*.pkg.tar.*")
	if err != nil {
		t.Fatalf("Collect(): %v", err)
	}
	if n != 2 {
		t.Errorf("Collect() = %d, want 2", n)
	}
	for _, f := range move {
		if _, err := os.Stat(filepath.Join(outputDir, f)); err != nil {
			t.Errorf("artifact %s not moved: %v", f, err)
		}
		if _, err := os.Stat(filepath.Join(buildRoot, f)); !os.IsNotExist(err) {
			t.Errorf("artifact %s still in build root", f)
		}
	}
	for _, f := range keep {
		if _, err := os.Stat(filepath.Join(buildRoot, f)); err != nil {
			t.Errorf("non-artifact %s disturbed: %v", f, err)
		}
	}
}

func TestCollectZeroMatches(t *testing.T) {
	buildRoot := t.TempDir()
	if err := os.WriteFile(filepath.Join(buildRoot, "PKGBUILD"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	n, err := Collect(buildRoot, t.TempDir(), "*.pkg.tar.*")
	if err != nil {
		t.Fatalf("Collect(): %v", err)
	}
	if n != 0 {
		t.Errorf("Collect() = %d, want 0", n)
	}
}
