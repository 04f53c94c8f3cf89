package pkgspec

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Tools names the external programs the pipeline drives.
type Tools struct {
	Build string `yaml:"build"`
	Index string `yaml:"index"`
}

// Config is the full static configuration for one run.
type Config struct {
	RepoDir    string        `yaml:"repo_dir"`
	RepoName   string        `yaml:"repo_name"`
	BuildRoot  string        `yaml:"build_root"`
	LogDir     string        `yaml:"log_dir"`
	IndexOwner string        `yaml:"index_owner"`
	Tools      Tools         `yaml:"tools"`
	Packages   []PackageSpec `yaml:"packages"`
}

// Load reads and validates a configuration file. Paths in the file are
// resolved relative to the file's directory so a config tree can be
// checked out anywhere.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "reading config")
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Wrap(err, "parsing config")
	}
	cfg.applyDefaults()

	base := filepath.Dir(path)
	cfg.RepoDir = resolve(base, cfg.RepoDir)
	cfg.BuildRoot = resolve(base, cfg.BuildRoot)
	cfg.LogDir = resolve(base, cfg.LogDir)
	for i := range cfg.Packages {
		for j, v := range cfg.Packages[i].Variants {
			cfg.Packages[i].Variants[j].Overlay = resolve(base, v.Overlay)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.RepoName == "" {
		c.RepoName = "repoforge"
	}
	if c.Tools.Build == "" {
		c.Tools.Build = "makepkg"
	}
	if c.Tools.Index == "" {
		c.Tools.Index = "repo-add"
	}
	if c.LogDir == "" {
		if home, err := os.UserHomeDir(); err == nil {
			c.LogDir = filepath.Join(home, ".repoforge", "logs")
		} else {
			c.LogDir = filepath.Join(os.TempDir(), "repoforge-logs")
		}
	}
}

// Validate checks the whole configuration, including every package spec.
func (c *Config) Validate() error {
	if c.RepoDir == "" {
		return errors.Wrap(ErrValidation, "repo_dir is required")
	}
	if c.BuildRoot == "" {
		return errors.Wrap(ErrValidation, "build_root is required")
	}
	if !ValidName(c.RepoName) {
		return errors.Wrapf(ErrValidation, "repo_name %q", c.RepoName)
	}
	seen := make(map[string]bool, len(c.Packages))
	for i := range c.Packages {
		p := &c.Packages[i]
		if err := p.Validate(); err != nil {
			return err
		}
		if seen[p.Name] {
			return errors.Wrapf(ErrValidation, "duplicate package %s", p.Name)
		}
		seen[p.Name] = true
	}
	return nil
}

func resolve(base, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(base, p)
}
