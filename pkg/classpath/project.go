package classpath

import (
	"fmt"
	"net/url"
	"path"
	"sort"
	"strings"

	"github.com/stackb/bazel-classpath/pkg/model"
)

// ProjectKind says what a project represents.
type ProjectKind int

const (
	// PackageProject represents a package and some of its targets.
	PackageProject ProjectKind = iota
	// TargetProject represents exactly one target.
	TargetProject
	// MappedProject is named by a project mapping override.
	MappedProject
)

// Project is an IDE project provisioned for part of a workspace.
type Project struct {
	// Name is the project name.
	Name string `json:"name"`
	// Path is the resource path of the project, such as "/core".
	Path    string        `json:"path"`
	Kind    ProjectKind   `json:"-"`
	Package model.Package `json:"-"`
	// Targets are the targets the project was provisioned with.
	Targets []model.Target `json:"-"`
}

// HasTarget reports whether the project lists the named target of its
// package.
func (p *Project) HasTarget(name string) bool {
	for _, t := range p.Targets {
		if t.Package() == p.Package && t.Name() == name {
			return true
		}
	}
	return false
}

func (p *Project) String() string {
	return p.Path
}

// ProjectLookup finds the live IDE projects.
type ProjectLookup interface {
	// ProjectForTarget returns the project representing exactly the target.
	ProjectForTarget(t model.Target) (*Project, bool)
	// ProjectForPackage returns the project representing the package.
	ProjectForPackage(p model.Package) (*Project, bool)
}

// Projects is a ProjectLookup over a fixed set of projects.
type Projects struct {
	list      []*Project
	byTarget  map[model.Target]*Project
	byPackage map[model.Package]*Project
	byName    map[string]*Project
}

// NewProjects creates an empty set.
func NewProjects() *Projects {
	return &Projects{
		byTarget:  make(map[model.Target]*Project),
		byPackage: make(map[model.Package]*Project),
		byName:    make(map[string]*Project),
	}
}

// Add registers the project.  Project names must be unique.
func (ps *Projects) Add(p *Project) error {
	if _, ok := ps.byName[p.Name]; ok {
		return fmt.Errorf("duplicate project name %q", p.Name)
	}
	switch p.Kind {
	case TargetProject:
		if len(p.Targets) != 1 {
			return fmt.Errorf("target project %q must have exactly one target (got %d)", p.Name, len(p.Targets))
		}
		ps.byTarget[p.Targets[0]] = p
	case PackageProject:
		ps.byPackage[p.Package] = p
	default:
		return fmt.Errorf("project %q: unsupported kind %d", p.Name, p.Kind)
	}
	ps.byName[p.Name] = p
	ps.list = append(ps.list, p)
	return nil
}

// ProjectForTarget implements ProjectLookup.
func (ps *Projects) ProjectForTarget(t model.Target) (*Project, bool) {
	p, ok := ps.byTarget[t]
	return p, ok
}

// ProjectForPackage implements ProjectLookup.
func (ps *Projects) ProjectForPackage(pkg model.Package) (*Project, bool) {
	p, ok := ps.byPackage[pkg]
	return p, ok
}

// Get returns the project with the given name.
func (ps *Projects) Get(name string) (*Project, bool) {
	p, ok := ps.byName[name]
	return p, ok
}

// List returns the projects sorted by name.
func (ps *Projects) List() []*Project {
	list := make([]*Project, len(ps.list))
	copy(list, ps.list)
	sort.Slice(list, func(i, j int) bool {
		return list[i].Name < list[j].Name
	})
	return list
}

// ProjectMappingScheme is the only URI scheme honored by project mappings.
const ProjectMappingScheme = "project"

// ParseProjectMapping parses a project mapping override such as
// "project:/core".  The URI names the resource path of the project.
func ParseProjectMapping(raw string) (*Project, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("project mapping %q: %w", raw, err)
	}
	if u.Scheme != ProjectMappingScheme {
		return nil, fmt.Errorf("project mapping %q: unsupported scheme %q", raw, u.Scheme)
	}
	resource := u.Path
	if resource == "" {
		resource = u.Opaque
	}
	resource = path.Clean("/" + strings.TrimPrefix(resource, "/"))
	if resource == "/" {
		return nil, fmt.Errorf("project mapping %q: missing project path", raw)
	}
	return &Project{
		Name: strings.SplitN(strings.TrimPrefix(resource, "/"), "/", 2)[0],
		Path: resource,
		Kind: MappedProject,
	}, nil
}
