package model

import (
	"context"
	"fmt"

	"github.com/bazelbuild/bazel-gazelle/label"
	bqpb "github.com/bazelbuild/buildtools/build_proto"

	"github.com/stackb/bazel-classpath/pkg/bazel"
)

// PackageInfo holds the rules of a package, as reported by a single
// `bazel query //pkg:all`.
type PackageInfo struct {
	pkg       Package
	buildFile BuildFile
	rules     map[string]*bqpb.Rule
	names     []string
}

func newPackageInfo(ctx context.Context, p Package, buildFile BuildFile) (*PackageInfo, error) {
	expr := fmt.Sprintf("//%s:all", p.path)
	// keep going: a broken target must not hide the rest of the package.
	result, err := p.Model().runner.Query(ctx, p.workspace.root, expr, bazel.QueryOptions{KeepGoing: true})
	if err != nil {
		return nil, fmt.Errorf("bazel query %s: %w", expr, err)
	}

	info := &PackageInfo{
		pkg:       p,
		buildFile: buildFile,
		rules:     make(map[string]*bqpb.Rule),
	}
	for _, target := range result.GetTarget() {
		if target.GetType() != bqpb.Target_RULE {
			continue
		}
		rule := target.GetRule()
		l, err := label.Parse(rule.GetName())
		if err != nil {
			p.Model().logger.Warn().Err(err).Str("rule", rule.GetName()).Msg("skipping rule with unparseable label")
			continue
		}
		if l.Pkg != p.path {
			continue
		}
		if _, seen := info.rules[l.Name]; !seen {
			info.names = append(info.names, l.Name)
		}
		info.rules[l.Name] = rule
	}

	return info, nil
}

// Element implements Info.
func (p *PackageInfo) Element() Element { return p.pkg }

// Package returns the owning handle.
func (p *PackageInfo) Package() Package { return p.pkg }

// BuildFile returns the build file the package was loaded from.
func (p *PackageInfo) BuildFile() BuildFile { return p.buildFile }

// TargetNames returns the rule names in query order.
func (p *PackageInfo) TargetNames() []string {
	names := make([]string, len(p.names))
	copy(names, p.names)
	return names
}

// Targets returns the handles of the package rules in query order.
func (p *PackageInfo) Targets() []Target {
	targets := make([]Target, len(p.names))
	for i, name := range p.names {
		targets[i] = p.pkg.Target(name)
	}
	return targets
}

// Rule returns the raw rule record of the named target.
func (p *PackageInfo) Rule(name string) (*bqpb.Rule, bool) {
	rule, ok := p.rules[name]
	return rule, ok
}
