// Package config loads the project view of a workspace.
//
// A project view is a TOML file at the workspace root naming the
// directories and targets to import, how projects are provisioned for them,
// and how the aspect build is run:
//
//	bazel = "bazelisk"
//	directories = ["java/...", "-java/experimental"]
//	targets = ["//tools/codegen:all"]
//	provisioning = "package"
//	build_flags = ["--config=ci"]
//
//	[project_mappings]
//	"@maven//:com_google_guava_guava" = "project:/guava"
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/bazelbuild/bazel-gazelle/label"

	"github.com/stackb/bazel-classpath/pkg/classpath"
	"github.com/stackb/bazel-classpath/pkg/collections"
	"github.com/stackb/bazel-classpath/pkg/procutil"
)

// FileName is the name of the project view file at the workspace root.
const FileName = ".bazelclasspath.toml"

const (
	// BazelEnvVar overrides the bazel executable.
	BazelEnvVar procutil.EnvVar = "BAZEL_CLASSPATH_BAZEL"
	// DebugEnvVar turns on debug logging.
	DebugEnvVar procutil.EnvVar = "BAZEL_CLASSPATH_DEBUG"
	// ParallelismEnvVar overrides the number of classpaths computed
	// concurrently.
	ParallelismEnvVar procutil.EnvVar = "BAZEL_CLASSPATH_PARALLELISM"
)

// Provisioning names a provisioning strategy.
type Provisioning string

const (
	// ProvisionPerPackage creates one project per package.
	ProvisionPerPackage Provisioning = "package"
	// ProvisionPerTarget creates one project per target.
	ProvisionPerTarget Provisioning = "target"
)

// Config is a project view.
type Config struct {
	// Bazel is the bazel executable.
	Bazel string `toml:"bazel"`
	// Debug turns on debug logging.
	Debug bool `toml:"debug"`
	// Directories are workspace-relative directory patterns, "-" prefixed
	// for exclusions.  A trailing "/..." includes subdirectories.
	Directories []string `toml:"directories"`
	// Targets are labels imported in addition to the discovered ones.
	Targets []string `toml:"targets"`
	// Provisioning is "package" (default) or "target".
	Provisioning Provisioning `toml:"provisioning"`
	// BuildFlags are passed to the aspect build.
	BuildFlags []string `toml:"build_flags"`
	// Aspect overrides the classpath aspect.
	Aspect string `toml:"aspect"`
	// OutputGroup overrides the aspect output group.
	OutputGroup string `toml:"output_group"`
	// CacheSize bounds the number of cached element infos.
	CacheSize int `toml:"cache_size"`
	// Parallelism bounds the number of classpaths computed concurrently.
	Parallelism int `toml:"parallelism"`
	// ProjectMappings maps labels to project URIs.
	ProjectMappings map[string]string `toml:"project_mappings"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Bazel:        "bazel",
		Directories:  []string{"..."},
		Provisioning: ProvisionPerPackage,
		CacheSize:    10000,
		Parallelism:  4,
	}
}

// Load reads the project view at filename over the defaults and applies
// environment overrides.  A missing file yields the defaults.
func Load(filename string) (*Config, error) {
	c := Default()
	data, err := os.ReadFile(filename)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("reading config file %s: %w", filename, err)
	}
	if err == nil {
		if err := c.Parse(data); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", filename, err)
		}
	}
	c.applyEnv()
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}
	return c, nil
}

// LoadWorkspace loads the project view of the workspace rooted at root.
func LoadWorkspace(root string) (*Config, error) {
	return Load(filepath.Join(root, FileName))
}

// Parse decodes TOML data into c.  Keys not known to Config are an error.
func (c *Config) Parse(data []byte) error {
	md, err := toml.Decode(string(data), c)
	if err != nil {
		return err
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return fmt.Errorf("unknown keys: %s", strings.Join(keys, ", "))
	}
	return nil
}

func (c *Config) applyEnv() {
	if bazel, ok := procutil.LookupEnv(BazelEnvVar); ok && bazel != "" {
		c.Bazel = bazel
	}
	c.Debug = procutil.LookupBoolEnv(DebugEnvVar, c.Debug)
	c.Parallelism = procutil.LookupIntEnv(ParallelismEnvVar, c.Parallelism)
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	switch c.Provisioning {
	case ProvisionPerPackage, ProvisionPerTarget:
	default:
		return fmt.Errorf("invalid provisioning %q (want %q or %q)", c.Provisioning, ProvisionPerPackage, ProvisionPerTarget)
	}
	if c.Parallelism < 1 {
		return fmt.Errorf("parallelism must be positive (got %d)", c.Parallelism)
	}
	if _, err := c.TargetLabels(); err != nil {
		return err
	}
	if _, err := c.Mappings(); err != nil {
		return err
	}
	return nil
}

// DirectoryIntents returns the parsed directory patterns.
func (c *Config) DirectoryIntents() []*collections.Intent {
	return collections.ParseIntents(c.Directories)
}

// TargetLabels parses the configured targets.
func (c *Config) TargetLabels() ([]label.Label, error) {
	labels := make([]label.Label, 0, len(c.Targets))
	for _, t := range c.Targets {
		l, err := label.Parse(t)
		if err != nil {
			return nil, fmt.Errorf("invalid target %q: %w", t, err)
		}
		labels = append(labels, l)
	}
	return labels, nil
}

// Mapping is a parsed project mapping.
type Mapping struct {
	Label label.Label
	URI   string
}

// Mappings parses the project mappings, sorted by label.
func (c *Config) Mappings() ([]Mapping, error) {
	mappings := make([]Mapping, 0, len(c.ProjectMappings))
	for k, uri := range c.ProjectMappings {
		l, err := label.Parse(k)
		if err != nil {
			return nil, fmt.Errorf("invalid project mapping label %q: %w", k, err)
		}
		if _, err := classpath.ParseProjectMapping(uri); err != nil {
			return nil, err
		}
		mappings = append(mappings, Mapping{Label: l, URI: uri})
	}
	sort.Slice(mappings, func(i, j int) bool {
		return mappings[i].Label.String() < mappings[j].Label.String()
	})
	return mappings, nil
}
