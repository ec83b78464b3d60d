package discovery

import (
	"fmt"
	"strings"

	"github.com/stackb/bazel-classpath/pkg/classpath"
	"github.com/stackb/bazel-classpath/pkg/model"
)

// RootProjectName names the project of the root package.
const RootProjectName = "root"

// ProvisioningStrategy turns discovered targets into IDE projects.
type ProvisioningStrategy interface {
	Provision(targets []model.Target) (*classpath.Projects, error)
}

// ProjectPerPackage provisions one project per package, listing the
// package's discovered targets in discovery order.
type ProjectPerPackage struct{}

// Provision implements ProvisioningStrategy.
func (ProjectPerPackage) Provision(targets []model.Target) (*classpath.Projects, error) {
	var order []model.Package
	byPackage := make(map[model.Package][]model.Target)
	for _, t := range targets {
		pkg := t.Package()
		if _, ok := byPackage[pkg]; !ok {
			order = append(order, pkg)
		}
		byPackage[pkg] = append(byPackage[pkg], t)
	}

	projects := classpath.NewProjects()
	names := newProjectNames()
	for _, pkg := range order {
		name := names.unique(packageProjectName(pkg))
		if err := projects.Add(&classpath.Project{
			Name:    name,
			Path:    "/" + name,
			Kind:    classpath.PackageProject,
			Package: pkg,
			Targets: byPackage[pkg],
		}); err != nil {
			return nil, err
		}
	}
	return projects, nil
}

// ProjectPerTarget provisions one project per target.
type ProjectPerTarget struct{}

// Provision implements ProvisioningStrategy.
func (ProjectPerTarget) Provision(targets []model.Target) (*classpath.Projects, error) {
	projects := classpath.NewProjects()
	names := newProjectNames()
	seen := make(map[model.Target]bool)
	for _, t := range targets {
		if seen[t] {
			continue
		}
		seen[t] = true
		name := names.unique(packageProjectName(t.Package()) + "-" + t.Name())
		if err := projects.Add(&classpath.Project{
			Name:    name,
			Path:    "/" + name,
			Kind:    classpath.TargetProject,
			Package: t.Package(),
			Targets: []model.Target{t},
		}); err != nil {
			return nil, err
		}
	}
	return projects, nil
}

func packageProjectName(pkg model.Package) string {
	if pkg.Path() == "" {
		return RootProjectName
	}
	return strings.ReplaceAll(pkg.Path(), "/", ".")
}

// projectNames disambiguates colliding project names with a numeric
// suffix.
type projectNames map[string]bool

func newProjectNames() projectNames {
	return make(projectNames)
}

func (n projectNames) unique(name string) string {
	candidate := name
	for i := 2; n[candidate]; i++ {
		candidate = fmt.Sprintf("%s~%d", name, i)
	}
	n[candidate] = true
	return candidate
}
