// Package pkgspec holds the static configuration model: which packages to
// track, where their build recipes live, and the per-kind rules for
// locating build roots and artifacts.
package pkgspec

import (
	"regexp"

	"github.com/pkg/errors"

	"github.com/frederic-klein/repoforge/internal/version"
)

// ErrValidation marks configuration values that must never reach an
// external process, such as malformed package names.
var ErrValidation = errors.New("invalid package specification")

// namePattern is deliberately restrictive: package names feed into
// filesystem paths and tool invocations.
var namePattern = regexp.MustCompile(`^[A-Za-z0-9._-]+$`)

// Kind selects the layout rules for a package's recipe.
type Kind string

const (
	// KindDefault builds at the workspace root.
	KindDefault Kind = "default"
	// KindNested builds one directory below the workspace root, in a
	// subdirectory named after the package. Some upstreams ship their
	// recipe wrapped this way.
	KindNested Kind = "nested"
)

// Strategy is the per-kind rule set. Adding a package layout means adding
// a table entry, not a code branch.
type Strategy struct {
	// NestedRoot places the effective build root in a subdirectory
	// named after the package.
	NestedRoot bool
	// ArtifactPattern is a doublestar glob matched against filenames in
	// the build root when collecting artifacts.
	ArtifactPattern string
	// OverlayTarget is the filename a variant overlay is written to
	// inside the build root.
	OverlayTarget string
}

var strategies = map[Kind]Strategy{
	KindDefault: {NestedRoot: false, ArtifactPattern: "*.pkg.tar.*", OverlayTarget: "config"},
	KindNested:  {NestedRoot: true, ArtifactPattern: "*.pkg.tar.*", OverlayTarget: "config"},
}

// StrategyFor returns the layout rules for a kind. Unknown kinds fall
// back to the default layout.
func StrategyFor(k Kind) Strategy {
	if s, ok := strategies[k]; ok {
		return s
	}
	return strategies[KindDefault]
}

// KnownKind reports whether k has a strategy table entry.
func KnownKind(k Kind) bool {
	_, ok := strategies[k]
	return ok
}

// VariantSpec names one configuration overlay for a package. An empty
// Name denotes the package's single default variant.
type VariantSpec struct {
	Name    string `yaml:"name"`
	Overlay string `yaml:"overlay"`
}

// PackageSpec identifies one upstream package to track. Immutable after
// configuration load.
type PackageSpec struct {
	Name              string        `yaml:"name"`
	Source            string        `yaml:"source"`
	Kind              Kind          `yaml:"kind"`
	OnUnknownUpstream string        `yaml:"on_unknown_upstream"`
	OverlayTarget     string        `yaml:"overlay_target"`
	Variants          []VariantSpec `yaml:"variants"`
}

// ValidName reports whether name is safe to pass to the filesystem and
// external tools.
func ValidName(name string) bool {
	return namePattern.MatchString(name)
}

// Validate checks the spec's fields against the rules that must hold
// before any external process is invoked.
func (p *PackageSpec) Validate() error {
	if !ValidName(p.Name) {
		return errors.Wrapf(ErrValidation, "package name %q", p.Name)
	}
	if p.Source == "" {
		return errors.Wrapf(ErrValidation, "package %s has no source", p.Name)
	}
	if p.Kind != "" && !KnownKind(p.Kind) {
		return errors.Wrapf(ErrValidation, "package %s has unknown kind %q", p.Name, p.Kind)
	}
	switch p.OnUnknownUpstream {
	case "", "build", "skip":
	default:
		return errors.Wrapf(ErrValidation,
			"package %s: on_unknown_upstream must be build or skip, got %q", p.Name, p.OnUnknownUpstream)
	}
	for _, v := range p.Variants {
		if v.Overlay == "" {
			return errors.Wrapf(ErrValidation, "package %s variant %q has no overlay", p.Name, v.Name)
		}
		if v.Name != "" && !ValidName(v.Name) {
			return errors.Wrapf(ErrValidation, "package %s variant name %q", p.Name, v.Name)
		}
	}
	return nil
}

// Strategy returns the layout rules for this package, with per-package
// overrides applied.
func (p *PackageSpec) Strategy() Strategy {
	s := StrategyFor(p.Kind)
	if p.OverlayTarget != "" {
		s.OverlayTarget = p.OverlayTarget
	}
	return s
}

// UnknownPolicy maps the configured on_unknown_upstream value onto the
// version comparison policy. The default is to build.
func (p *PackageSpec) UnknownPolicy() version.UnknownPolicy {
	if p.OnUnknownUpstream == "skip" {
		return version.SkipOnUnknown
	}
	return version.BuildOnUnknown
}

// EffectiveVariants returns the variant list to iterate over: the
// configured variants, or a single unnamed variant with no overlay when
// none are configured.
func (p *PackageSpec) EffectiveVariants() []VariantSpec {
	if len(p.Variants) == 0 {
		return []VariantSpec{{}}
	}
	return p.Variants
}
