package classpath

import (
	"archive/zip"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/bazelbuild/bazel-gazelle/label"
	"github.com/bazelbuild/bazel-gazelle/testtools"
	bqpb "github.com/bazelbuild/buildtools/build_proto"
	depspb "github.com/bazelbuild/buildtools/deps_proto"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/proto"

	"github.com/stackb/bazel-classpath/pkg/aspect"
	"github.com/stackb/bazel-classpath/pkg/bazel"
	"github.com/stackb/bazel-classpath/pkg/bazel/mocks"
	"github.com/stackb/bazel-classpath/pkg/jdeps"
	"github.com/stackb/bazel-classpath/pkg/model"
	"github.com/stackb/bazel-classpath/pkg/testutil"
)

// fixture is a workspace with an execution root, an aspect index and a set
// of live projects.
type fixture struct {
	t        *testing.T
	model    *model.Model
	ws       model.Workspace
	runner   *mocks.Runner
	execRoot string
	index    *aspect.Index
	projects *Projects
}

// newFixture creates the fixture.  The external repository rules answer
// the //external:* query.
func newFixture(t *testing.T, external ...*bqpb.Rule) *fixture {
	t.Helper()
	dir, _, cleanup := testutil.MustPrepareTestFiles(t, []testtools.FileSpec{
		{Path: "WORKSPACE"},
		{Path: "lib/BUILD.bazel"},
		{Path: "app/BUILD.bazel"},
	})
	t.Cleanup(cleanup)

	outputBase := filepath.Join(dir, "output_base")
	runner := mocks.NewRunner(t)
	runner.On("Info", mock.Anything, dir).
		Return([]byte(testutil.InfoOutput(outputBase)), nil).
		Maybe()

	runner.On("Query", mock.Anything, dir, "//external:*", bazel.QueryOptions{KeepGoing: true}).
		Return(testutil.QueryResult(external...), nil).
		Maybe()

	m, err := model.New(runner, model.WithLogger(testutil.NewTestLogger(t)))
	require.NoError(t, err)
	t.Cleanup(m.Close)

	return &fixture{
		t:        t,
		model:    m,
		ws:       m.Workspace(dir),
		runner:   runner,
		execRoot: filepath.Join(outputBase, "execroot", "_main"),
		index:    aspect.NewIndex(aspect.WithLogger(testutil.NewTestLogger(t))),
		projects: NewProjects(),
	}
}

// jar writes an empty jar at the path relative to the execution root.
func (f *fixture) jar(rel string) string {
	f.t.Helper()
	abs := filepath.Join(f.execRoot, rel)
	require.NoError(f.t, os.MkdirAll(filepath.Dir(abs), os.ModePerm))
	out, err := os.Create(abs)
	require.NoError(f.t, err)
	defer out.Close()
	w := zip.NewWriter(out)
	_, err = w.Create("META-INF/MANIFEST.MF")
	require.NoError(f.t, err)
	require.NoError(f.t, w.Close())
	return rel
}

// jdeps writes a jdeps file at the path relative to the execution root.
func (f *fixture) jdeps(rel string, deps ...*depspb.Dependency) string {
	f.t.Helper()
	abs := filepath.Join(f.execRoot, rel)
	require.NoError(f.t, os.MkdirAll(filepath.Dir(abs), os.ModePerm))
	require.NoError(f.t, jdeps.WriteFile(abs, &depspb.Dependencies{Dependency: deps, Success: proto.Bool(true)}))
	return rel
}

// describe adds a descriptor to the index.
func (f *fixture) describe(d *aspect.Descriptor) {
	f.t.Helper()
	data, err := json.Marshal(d)
	require.NoError(f.t, err)
	parsed, err := aspect.ParseDescriptor(data)
	require.NoError(f.t, err)
	f.index.Add(parsed)
}

// library describes a target with a single jar (and its interface jar when
// hjar is set), writing the jars.
func (f *fixture) library(l, kind, jar, hjar string, deps ...*aspect.Dependency) *aspect.Descriptor {
	f.t.Helper()
	j := &aspect.Jar{Jar: f.jar(jar)}
	if hjar != "" {
		j.InterfaceJar = f.jar(hjar)
	}
	d := &aspect.Descriptor{Label: l, Kind: kind, Jars: []*aspect.Jar{j}, Deps: deps}
	f.describe(d)
	return d
}

func (f *fixture) target(s string) model.Target {
	f.t.Helper()
	return f.ws.Target(mustLabel(f.t, s))
}

func (f *fixture) packageProject(name, pkg string, targets ...string) *Project {
	f.t.Helper()
	p := &Project{Name: name, Path: "/" + name, Kind: PackageProject, Package: f.ws.Package(pkg)}
	for _, t := range targets {
		p.Targets = append(p.Targets, p.Package.Target(t))
	}
	require.NoError(f.t, f.projects.Add(p))
	return p
}

// summarize renders the entries with paths relative to the execution root.
func (f *fixture) summarize(entries []*Entry) []string {
	var out []string
	for _, e := range entries {
		out = append(out, strings.ReplaceAll(e.String(), f.execRoot+"/", ""))
	}
	return out
}

func mustLabel(t *testing.T, s string) label.Label {
	t.Helper()
	l, err := label.Parse(s)
	require.NoError(t, err)
	return l
}

func compileDep(target string) *aspect.Dependency {
	return &aspect.Dependency{Target: target, DependencyType: aspect.CompileTime}
}

func runtimeDep(target string) *aspect.Dependency {
	return &aspect.Dependency{Target: target, DependencyType: aspect.Runtime}
}
