package classpath

import (
	"context"
	"path/filepath"

	"github.com/bazelbuild/bazel-gazelle/label"
	depspb "github.com/bazelbuild/buildtools/deps_proto"
	"github.com/rs/zerolog"

	"github.com/stackb/bazel-classpath/pkg/aspect"
	"github.com/stackb/bazel-classpath/pkg/collections"
	"github.com/stackb/bazel-classpath/pkg/jdeps"
	"github.com/stackb/bazel-classpath/pkg/model"
)

// JavaProtoLibraryKind is the rule kind whose dependencies are folded into
// the direct dependencies of its consumers.
const JavaProtoLibraryKind = "java_proto_library"

// jarRef is a jar relative to the execution root.
type jarRef struct {
	path       string
	sourcePath string
	owner      label.Label
}

// jdepsJar is a jar read from a jdeps file.
type jdepsJar struct {
	path string
	kind depspb.Dependency_Kind
}

// Option configures an Info.
type Option func(*Info) *Info

// WithLogger sets the logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Info) *Info {
		c.logger = logger
		return c
	}
}

// WithProjects sets the lookup of live IDE projects.
func WithProjects(projects ProjectLookup) Option {
	return func(c *Info) *Info {
		c.projects = projects
		return c
	}
}

// WithCurrentProject names the project the classpath is computed for.
// References to it are dropped.
func WithCurrentProject(p *Project) Option {
	return func(c *Info) *Info {
		c.current = p
		return c
	}
}

// WithProjectMapping maps a target to a project URI ("project:/name"),
// overriding every other project resolution for it.
func WithProjectMapping(l label.Label, uri string) Option {
	return func(c *Info) *Info {
		c.mappings[l] = uri
		return c
	}
}

// Info accumulates the targets of one classpath and computes it.  An Info
// is not safe for concurrent use.
type Info struct {
	workspace model.Workspace
	index     *aspect.Index
	projects  ProjectLookup
	current   *Project
	mappings  map[label.Label]string
	logger    zerolog.Logger

	targets           *collections.OrderedSet[label.Label]
	generatedCodeJars *collections.OrderedSet[jarRef]
	jdepsCompileJars  *collections.OrderedSet[jdepsJar]
	directDeps        *collections.OrderedSet[label.Label]
	runtimeDeps       *collections.OrderedSet[label.Label]
	exports           map[label.Label]bool

	markers []Marker
}

// New creates an Info for targets of the workspace described by the index.
func New(ws model.Workspace, index *aspect.Index, options ...Option) *Info {
	c := &Info{
		workspace:         ws,
		index:             index,
		projects:          NewProjects(),
		mappings:          make(map[label.Label]string),
		logger:            zerolog.Nop(),
		targets:           collections.NewOrderedSet[label.Label](),
		generatedCodeJars: collections.NewOrderedSet[jarRef](),
		jdepsCompileJars:  collections.NewOrderedSet[jdepsJar](),
		directDeps:        collections.NewOrderedSet[label.Label](),
		runtimeDeps:       collections.NewOrderedSet[label.Label](),
		exports:           make(map[label.Label]bool),
	}
	for _, opt := range options {
		c = opt(c)
	}
	return c
}

// Targets returns the added targets in order.
func (c *Info) Targets() []label.Label {
	return c.targets.Values()
}

// Markers returns the diagnostics collected so far.
func (c *Info) Markers() []Marker {
	markers := make([]Marker, len(c.markers))
	copy(markers, c.markers)
	return markers
}

func (c *Info) addMarker(m Marker) {
	for _, existing := range c.markers {
		if existing == m {
			return
		}
	}
	c.markers = append(c.markers, m)
}

// AddTarget merges the aspect output of the target into the classpath.
// Targets must be added in priority order.  A target without aspect output
// (failed or skipped build) is logged and skipped.
func (c *Info) AddTarget(ctx context.Context, t model.Target) error {
	l := t.Label()
	if !c.targets.Add(l) {
		return nil
	}

	d, ok := c.index.Get(l)
	if !ok {
		c.logger.Warn().Str("target", l.String()).Msg("no classpath info for target (build failed or skipped?)")
		return nil
	}

	wsInfo, err := c.workspace.Info(ctx)
	if err != nil {
		return err
	}
	execRoot := wsInfo.ExecutionRoot()

	for _, jar := range d.GeneratedJars {
		c.generatedCodeJars.Add(jarRef{
			path:       jar.CompileJar(),
			sourcePath: jar.SourceJar,
			owner:      l,
		})
	}

	for _, file := range d.Jdeps {
		deps, err := jdeps.ReadFile(filepath.Join(execRoot, file))
		if err != nil {
			c.logger.Warn().Err(err).Str("target", l.String()).Msg("skipping unreadable jdeps file")
			c.addMarker(Marker{
				Severity: SeverityWarning,
				Label:    l,
				Path:     file,
				Message:  "dependency information is unavailable; rebuild the target",
			})
			continue
		}
		for _, dep := range jdeps.CompileJars(deps) {
			c.jdepsCompileJars.Add(jdepsJar{path: dep.GetPath(), kind: dep.GetKind()})
		}
	}

	for _, dep := range d.DepsOfType(aspect.CompileTime) {
		c.directDeps.Add(dep)
		// the proto aspect hides the deps of a java_proto_library behind it.
		if depInfo, ok := c.index.Get(dep); ok && depInfo.Kind == JavaProtoLibraryKind {
			for _, protoDep := range depInfo.DepsOfType(aspect.CompileTime) {
				c.directDeps.Add(protoDep)
			}
		}
	}

	for _, dep := range d.DepsOfType(aspect.Runtime) {
		c.runtimeDeps.Add(dep)
	}
	for _, dep := range d.RuntimeDepLabels() {
		c.runtimeDeps.Add(dep)
	}

	for _, export := range d.ExportLabels() {
		c.exports[export] = true
	}

	return nil
}
