// Package discovery finds the targets of a workspace to import and
// provisions IDE projects for them.
package discovery

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/bazelbuild/bazel-gazelle/label"
	"github.com/bmatcuk/doublestar/v4"
	"github.com/rs/zerolog"

	"github.com/stackb/bazel-classpath/pkg/collections"
	"github.com/stackb/bazel-classpath/pkg/model"
)

// JavaRuleKinds are the rule classes imported by default.
var JavaRuleKinds = []string{
	"java_binary",
	"java_import",
	"java_library",
	"java_plugin",
	"java_proto_library",
	"java_lite_proto_library",
	"java_test",
}

// TargetDiscoveryStrategy selects the targets of a workspace to import.
type TargetDiscoveryStrategy interface {
	DiscoverTargets(ctx context.Context, ws model.Workspace) ([]model.Target, error)
}

// Option configures a discovery strategy.
type Option func(*options)

type options struct {
	ruleKinds map[string]bool
	logger    zerolog.Logger
}

func newOptions(opts []Option) *options {
	o := &options{
		ruleKinds: make(map[string]bool),
		logger:    zerolog.Nop(),
	}
	for _, kind := range JavaRuleKinds {
		o.ruleKinds[kind] = true
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// WithRuleKinds replaces the imported rule classes.
func WithRuleKinds(kinds ...string) Option {
	return func(o *options) {
		o.ruleKinds = make(map[string]bool, len(kinds))
		for _, kind := range kinds {
			o.ruleKinds[kind] = true
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// ProjectViewStrategy imports the targets of matching rule kinds in the
// packages under the included directories.
type ProjectViewStrategy struct {
	patterns []directoryPattern
	*options
}

type directoryPattern struct {
	glob string
	want bool
}

// NewProjectViewStrategy creates a strategy from directory intents such as
// "java/..." or "-java/experimental".  A directory includes its
// subdirectories; the last matching intent wins.
func NewProjectViewStrategy(intents []*collections.Intent, opts ...Option) (*ProjectViewStrategy, error) {
	s := &ProjectViewStrategy{options: newOptions(opts)}
	for _, intent := range intents {
		glob := directoryGlob(intent.Value)
		if !doublestar.ValidatePattern(glob) {
			return nil, fmt.Errorf("invalid directory pattern %q", intent.Value)
		}
		s.patterns = append(s.patterns, directoryPattern{glob: glob, want: intent.Want})
	}
	return s, nil
}

// directoryGlob converts a directory pattern to a glob matching the
// directory and everything below it.
func directoryGlob(dir string) string {
	dir = strings.TrimPrefix(dir, "//")
	dir = strings.TrimSuffix(dir, "...")
	dir = strings.Trim(dir, "/")
	if dir == "" || dir == "." {
		return "**"
	}
	if strings.HasSuffix(dir, "**") {
		return dir
	}
	return dir + "/**"
}

// Includes reports whether the workspace-relative directory is imported.
func (s *ProjectViewStrategy) Includes(rel string) bool {
	included := false
	for _, p := range s.patterns {
		if ok, _ := doublestar.Match(p.glob, rel); ok {
			included = p.want
		}
	}
	return included
}

// DiscoverTargets implements TargetDiscoveryStrategy.  Directories are
// visited in lexical order; hidden directories, bazel output links and
// nested workspaces are skipped.  A package that fails to load is logged
// and skipped.
func (s *ProjectViewStrategy) DiscoverTargets(ctx context.Context, ws model.Workspace) ([]model.Target, error) {
	var targets []model.Target
	root := ws.Root()

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if rel == "." {
			rel = ""
		} else if skipDir(path, d.Name()) {
			return filepath.SkipDir
		}
		if !s.Includes(rel) {
			return nil
		}

		pkg := ws.Package(rel)
		if _, ok := pkg.BuildFile(); !ok {
			return nil
		}
		found, err := s.packageTargets(ctx, pkg)
		if err != nil {
			if ctx.Err() != nil {
				return err
			}
			s.logger.Warn().Err(err).Str("package", pkg.String()).Msg("skipping package")
			return nil
		}
		targets = append(targets, found...)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("discovering targets in %s: %w", root, err)
	}

	return targets, nil
}

func (s *ProjectViewStrategy) packageTargets(ctx context.Context, pkg model.Package) ([]model.Target, error) {
	info, err := pkg.Info(ctx)
	if err != nil {
		return nil, err
	}
	var targets []model.Target
	for _, name := range info.TargetNames() {
		rule, _ := info.Rule(name)
		if s.ruleKinds[rule.GetRuleClass()] {
			targets = append(targets, pkg.Target(name))
		}
	}
	return targets, nil
}

func skipDir(path, name string) bool {
	if strings.HasPrefix(name, ".") || strings.HasPrefix(name, "bazel-") {
		return true
	}
	// a nested workspace is a different model workspace
	for _, boundary := range append([]string{model.ModuleFile}, model.BoundaryFiles...) {
		if _, err := os.Stat(filepath.Join(path, boundary)); err == nil {
			return true
		}
	}
	return false
}

// ExplicitTargetsStrategy imports configured labels.  A label named "all"
// imports the targets of matching rule kinds in its package.
type ExplicitTargetsStrategy struct {
	labels []label.Label
	*options
}

// NewExplicitTargetsStrategy creates a strategy for the labels.
func NewExplicitTargetsStrategy(labels []label.Label, opts ...Option) *ExplicitTargetsStrategy {
	return &ExplicitTargetsStrategy{labels: labels, options: newOptions(opts)}
}

// DiscoverTargets implements TargetDiscoveryStrategy.  Labels of other
// repositories and targets that do not exist are logged and skipped.
func (s *ExplicitTargetsStrategy) DiscoverTargets(ctx context.Context, ws model.Workspace) ([]model.Target, error) {
	var targets []model.Target
	for _, l := range s.labels {
		if l.Repo != "" {
			s.logger.Warn().Str("target", l.String()).Msg("skipping target of another repository")
			continue
		}
		pkg := ws.Package(l.Pkg)
		if l.Name == "all" {
			found, err := s.packageTargets(ctx, pkg)
			if err != nil {
				if errors.Is(err, fs.ErrNotExist) {
					s.logger.Warn().Str("package", pkg.String()).Msg("skipping missing package")
					continue
				}
				return nil, err
			}
			targets = append(targets, found...)
			continue
		}
		t := pkg.Target(l.Name)
		exists, err := t.Exists(ctx)
		if err != nil {
			return nil, err
		}
		if !exists {
			s.logger.Warn().Str("target", l.String()).Msg("skipping missing target")
			continue
		}
		targets = append(targets, t)
	}
	return targets, nil
}

func (s *ExplicitTargetsStrategy) packageTargets(ctx context.Context, pkg model.Package) ([]model.Target, error) {
	view := &ProjectViewStrategy{options: s.options}
	return view.packageTargets(ctx, pkg)
}

// Strategies combines strategies.  Targets are returned once, in the order
// first discovered.
type Strategies []TargetDiscoveryStrategy

// DiscoverTargets implements TargetDiscoveryStrategy.
func (ss Strategies) DiscoverTargets(ctx context.Context, ws model.Workspace) ([]model.Target, error) {
	seen := collections.NewOrderedSet[model.Target]()
	for _, s := range ss {
		targets, err := s.DiscoverTargets(ctx, ws)
		if err != nil {
			return nil, err
		}
		for _, t := range targets {
			seen.Add(t)
		}
	}
	return seen.Values(), nil
}
