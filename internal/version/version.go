// Package version implements pacman-style package version parsing and
// ordering. Versions follow the [epoch:]pkgver[-pkgrel] convention and
// compare segment-wise with numeric awareness, matching the behavior of
// the vercmp tool rather than plain string ordering.
package version

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Version is a parsed package version.
type Version struct {
	Epoch int
	Ver   string
	Rel   string // empty when the version carries no release number
}

// UnknownPolicy decides what IsNewer reports when the upstream version
// could not be determined. The original tooling disagreed between call
// sites, so the policy is explicit per package.
type UnknownPolicy int

const (
	// BuildOnUnknown treats an undeterminable upstream version as newer,
	// forcing a rebuild. This is the default.
	BuildOnUnknown UnknownPolicy = iota
	// SkipOnUnknown treats an undeterminable upstream version as not
	// newer, leaving the local artifact in place.
	SkipOnUnknown
)

// Parse parses a version string of the form [epoch:]pkgver[-pkgrel].
func Parse(s string) (*Version, error) {
	if s == "" {
		return nil, errors.New("empty version string")
	}
	v := &Version{}
	if idx := strings.IndexByte(s, ':'); idx >= 0 {
		epoch, err := strconv.Atoi(s[:idx])
		if err != nil {
			return nil, errors.Wrapf(err, "parsing epoch in %q", s)
		}
		v.Epoch = epoch
		s = s[idx+1:]
	}
	if idx := strings.LastIndexByte(s, '-'); idx >= 0 {
		v.Ver = s[:idx]
		v.Rel = s[idx+1:]
	} else {
		v.Ver = s
	}
	if v.Ver == "" {
		return nil, errors.Errorf("version %q has no pkgver component", s)
	}
	return v, nil
}

// String renders the version back into [epoch:]pkgver[-pkgrel] form.
func (v *Version) String() string {
	var b strings.Builder
	if v.Epoch > 0 {
		fmt.Fprintf(&b, "%d:", v.Epoch)
	}
	b.WriteString(v.Ver)
	if v.Rel != "" {
		b.WriteByte('-')
		b.WriteString(v.Rel)
	}
	return b.String()
}

// Compare returns -1, 0 or 1 as a orders before, equal to, or after b.
// Epochs dominate; then pkgver, then pkgrel. A missing pkgrel on either
// side makes the pkgrel comparison a tie, matching vercmp.
func Compare(a, b *Version) int {
	if a.Epoch != b.Epoch {
		if a.Epoch < b.Epoch {
			return -1
		}
		return 1
	}
	if c := compareSegments(a.Ver, b.Ver); c != 0 {
		return c
	}
	if a.Rel == "" || b.Rel == "" {
		return 0
	}
	return compareSegments(a.Rel, b.Rel)
}

// IsNewer reports whether upstream orders strictly after local. An absent
// local version is always older than anything. An absent upstream version
// resolves per policy.
func IsNewer(upstream, local *Version, policy UnknownPolicy) bool {
	if local == nil {
		return true
	}
	if upstream == nil {
		return policy == BuildOnUnknown
	}
	return Compare(upstream, local) > 0
}

// compareSegments is the vercmp segment walk: runs of digits and runs of
// letters are compared as blocks, digit blocks numerically, with any
// non-alphanumeric bytes acting as separators.
func compareSegments(a, b string) int {
	ia, ib := 0, 0
	for ia < len(a) || ib < len(b) {
		for ia < len(a) && !isAlnum(a[ia]) {
			ia++
		}
		for ib < len(b) && !isAlnum(b[ib]) {
			ib++
		}
		if ia >= len(a) && ib >= len(b) {
			return 0
		}
		// One side ran out of segments. The longer version is newer
		// unless the extra segment is alphabetic (1.5a orders before
		// 1.5, matching vercmp).
		if ia >= len(a) {
			if isDigit(b[ib]) {
				return -1
			}
			return 1
		}
		if ib >= len(b) {
			if isDigit(a[ia]) {
				return 1
			}
			return -1
		}

		segA, nextA := takeSegment(a, ia)
		segB, nextB := takeSegment(b, ib)
		ia, ib = nextA, nextB

		digitsA := isDigit(segA[0])
		digitsB := isDigit(segB[0])
		if digitsA != digitsB {
			// A numeric segment always orders after an alphabetic one.
			if digitsA {
				return 1
			}
			return -1
		}
		var c int
		if digitsA {
			c = compareNumeric(segA, segB)
		} else {
			c = strings.Compare(segA, segB)
		}
		if c != 0 {
			return c
		}
	}
	return 0
}

// takeSegment returns the maximal run of digits or letters starting at i.
func takeSegment(s string, i int) (string, int) {
	j := i
	if isDigit(s[i]) {
		for j < len(s) && isDigit(s[j]) {
			j++
		}
	} else {
		for j < len(s) && isAlpha(s[j]) {
			j++
		}
	}
	return s[i:j], j
}

func compareNumeric(a, b string) int {
	a = strings.TrimLeft(a, "0")
	b = strings.TrimLeft(b, "0")
	if len(a) != len(b) {
		if len(a) < len(b) {
			return -1
		}
		return 1
	}
	return strings.Compare(a, b)
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isAlpha(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isAlnum(c byte) bool { return isDigit(c) || isAlpha(c) }
