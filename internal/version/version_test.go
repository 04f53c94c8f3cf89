package version

import "testing"

func TestParse(t *testing.T) {
	tests := []struct {
		in    string
		epoch int
		ver   string
		rel   string
		err   bool
	}{
		{"1.2", 0, "1.2", "", false},
		{"1.2-1", 0, "1.2", "1", false},
		{"1.2.3-10", 0, "1.2.3", "10", false},
		{"2:1.0-1", 2, "1.0", "1", false},
		{"5.15.2.arch1-1", 0, "5.15.2.arch1", "1", false},
		{"1.0_beta-2", 0, "1.0_beta", "2", false},
		{"", 0, "", "", true},
		{"x:1.0", 0, "", "", true},
		{"-1", 0, "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			v, err := Parse(tt.in)
			if tt.err {
				if err == nil {
					t.Fatalf("Parse(%q) succeeded, want error", tt.in)
				}
				return
			}
			if err != nil {
				t.Fatalf("Parse(%q): %v", tt.in, err)
			}
			if v.Epoch != tt.epoch || v.Ver != tt.ver || v.Rel != tt.rel {
				t.Errorf("Parse(%q) = {%d %q %q}, want {%d %q %q}",
					tt.in, v.Epoch, v.Ver, v.Rel, tt.epoch, tt.ver, tt.rel)
			}
		})
	}
}

func TestString(t *testing.T) {
	for _, s := range []string{"1.2", "1.2-1", "2:1.0-1", "1.0_beta-2"} {
		v, err := Parse(s)
		if err != nil {
			t.Fatalf("Parse(%q): %v", s, err)
		}
		if got := v.String(); got != s {
			t.Errorf("Parse(%q).String() = %q", s, got)
		}
	}
}

func TestCompare(t *testing.T) {
	tests := []struct {
		a    string
		b    string
		want int
	}{
		{"1.0", "1.0", 0},
		{"1.0", "2.0", -1},
		{"2.0", "1.0", 1},
		// Numeric, not lexicographic: "10" orders after "9" even though
		// it sorts before it as a string.
		{"10", "9", 1},
		{"9", "10", -1},
		{"1.10", "1.9", 1},
		{"1.010", "1.9", 1},
		{"1.2.3", "1.2.4", -1},
		{"1.2", "1.2.1", -1},
		// Trailing alphabetic segments order before the bare version.
		{"1.5a", "1.5", -1},
		{"1.5", "1.5a", 1},
		// A numeric segment beats an alphabetic one in the same position.
		{"1.0", "1.a", 1},
		{"1.a", "1.b", -1},
		{"1.0alpha", "1.0beta", -1},
		// Separators are not significant by themselves.
		{"1_2", "1.2", 0},
		// Release numbers break pkgver ties.
		{"1.2-1", "1.2-2", -1},
		{"1.2-2", "1.2-1", 1},
		{"1.2-10", "1.2-9", 1},
		// A missing release number compares equal to any release.
		{"1.2", "1.2-5", 0},
		{"1.2-5", "1.2", 0},
		// Epoch dominates everything else.
		{"1:0.1", "0.9", 1},
		{"0.9", "1:0.1", -1},
		{"2:1.0", "1:9.9", 1},
	}

	for _, tt := range tests {
		t.Run(tt.a+"_vs_"+tt.b, func(t *testing.T) {
			a, err := Parse(tt.a)
			if err != nil {
				t.Fatalf("Parse(%q): %v", tt.a, err)
			}
			b, err := Parse(tt.b)
			if err != nil {
				t.Fatalf("Parse(%q): %v", tt.b, err)
			}
			if got := Compare(a, b); got != tt.want {
				t.Errorf("Compare(%q, %q) = %d, want %d", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestIsNewer(t *testing.T) {
	v12 := mustParse(t, "1.2-1")
	v13 := mustParse(t, "1.3-1")

	tests := []struct {
		name     string
		upstream *Version
		local    *Version
		policy   UnknownPolicy
		want     bool
	}{
		{"absent local always builds", v12, nil, BuildOnUnknown, true},
		{"absent local builds under skip policy too", v12, nil, SkipOnUnknown, true},
		{"absent upstream builds by default", nil, v12, BuildOnUnknown, true},
		{"absent upstream skips when configured", nil, v12, SkipOnUnknown, false},
		{"both absent builds by default", nil, nil, BuildOnUnknown, true},
		{"newer upstream builds", v13, v12, BuildOnUnknown, true},
		{"equal versions skip", v12, v12, BuildOnUnknown, false},
		{"older upstream skips", v12, v13, BuildOnUnknown, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsNewer(tt.upstream, tt.local, tt.policy); got != tt.want {
				t.Errorf("IsNewer() = %v, want %v", got, tt.want)
			}
		})
	}
}

func mustParse(t *testing.T, s string) *Version {
	t.Helper()
	v, err := Parse(s)
	if err != nil {
		t.Fatalf("Parse(%q): %v", s, err)
	}
	return v
}
