package model

import (
	"context"
	"errors"
	"io/fs"

	"github.com/bazelbuild/bazel-gazelle/label"
	bqpb "github.com/bazelbuild/buildtools/build_proto"
)

// Target is the handle of a rule target, identified by its package and name.
type Target struct {
	pkg  Package
	name string
}

// Kind implements Element.
func (t Target) Kind() Kind { return TargetKind }

// Parent implements Element.
func (t Target) Parent() Element { return t.pkg }

// Location implements Element.  Targets share the location of their package.
func (t Target) Location() string { return t.pkg.Dir() }

// Model implements Element.
func (t Target) Model() *Model { return t.pkg.Model() }

func (t Target) String() string { return t.Label().String() }

// Package returns the owning package.
func (t Target) Package() Package { return t.pkg }

// Workspace returns the owning workspace.
func (t Target) Workspace() Workspace { return t.pkg.workspace }

// Name returns the target name.
func (t Target) Name() string { return t.name }

// Label returns the workspace-local label of the target.
func (t Target) Label() label.Label {
	return label.New("", t.pkg.path, t.name)
}

// Exists reports whether the package defines the target.
func (t Target) Exists(ctx context.Context) (bool, error) {
	_, err := t.Info(ctx)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, err
}

// Info returns the loaded target info.
func (t Target) Info(ctx context.Context) (*TargetInfo, error) {
	return getInfo[*TargetInfo](ctx, t)
}

func (t Target) createInfo(ctx context.Context, parent Info) (Info, error) {
	pkgInfo := parent.(*PackageInfo)
	rule, ok := pkgInfo.Rule(t.name)
	if !ok {
		return nil, &NotExistError{Element: t}
	}
	return &TargetInfo{
		target:     t,
		rule:       rule,
		attributes: NewRuleAttributes(rule.GetAttribute()),
	}, nil
}

// TargetInfo exposes the rule record of a target.
type TargetInfo struct {
	target     Target
	rule       *bqpb.Rule
	attributes *RuleAttributes
}

// Element implements Info.
func (t *TargetInfo) Element() Element { return t.target }

// Target returns the owning handle.
func (t *TargetInfo) Target() Target { return t.target }

// Label returns the target label.
func (t *TargetInfo) Label() label.Label { return t.target.Label() }

// RuleClass returns the rule kind, such as "java_library".
func (t *TargetInfo) RuleClass() string { return t.rule.GetRuleClass() }

// Attributes returns the indexed rule attributes.
func (t *TargetInfo) Attributes() *RuleAttributes { return t.attributes }

// Rule returns the raw rule record.
func (t *TargetInfo) Rule() *bqpb.Rule { return t.rule }
