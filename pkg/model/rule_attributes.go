package model

import (
	"sort"

	"github.com/bazelbuild/bazel-gazelle/label"
	bqpb "github.com/bazelbuild/buildtools/build_proto"
)

// RuleAttributes is a name-indexed view of the attributes of a queried rule.
// When a rule reports the same attribute name more than once, the last
// occurrence wins.
type RuleAttributes struct {
	attrs map[string]*bqpb.Attribute
	names []string
}

// NewRuleAttributes indexes the given attributes.
func NewRuleAttributes(attrs []*bqpb.Attribute) *RuleAttributes {
	r := &RuleAttributes{attrs: make(map[string]*bqpb.Attribute, len(attrs))}
	for _, attr := range attrs {
		name := attr.GetName()
		if _, seen := r.attrs[name]; !seen {
			r.names = append(r.names, name)
		}
		r.attrs[name] = attr
	}
	return r
}

// Has reports whether the attribute is present.
func (r *RuleAttributes) Has(name string) bool {
	_, ok := r.attrs[name]
	return ok
}

// Names returns the attribute names, sorted.
func (r *RuleAttributes) Names() []string {
	names := make([]string, len(r.names))
	copy(names, r.names)
	sort.Strings(names)
	return names
}

// Attribute returns the raw attribute.
func (r *RuleAttributes) Attribute(name string) (*bqpb.Attribute, bool) {
	attr, ok := r.attrs[name]
	return attr, ok
}

// String returns a string-valued attribute (STRING, LABEL, OUTPUT, ...).
func (r *RuleAttributes) String(name string) (string, bool) {
	attr, ok := r.attrs[name]
	if !ok || attr.StringValue == nil {
		return "", false
	}
	return attr.GetStringValue(), true
}

// StringList returns a list-valued attribute.
func (r *RuleAttributes) StringList(name string) []string {
	attr, ok := r.attrs[name]
	if !ok {
		return nil
	}
	return attr.GetStringListValue()
}

// Label returns a label-valued attribute.  Values that do not parse as a
// label are ignored.
func (r *RuleAttributes) Label(name string) (label.Label, bool) {
	value, ok := r.String(name)
	if !ok || value == "" {
		return label.NoLabel, false
	}
	l, err := label.Parse(value)
	if err != nil {
		return label.NoLabel, false
	}
	return l, true
}

// LabelList returns a label-list attribute.  Values that do not parse as a
// label are skipped.
func (r *RuleAttributes) LabelList(name string) []label.Label {
	values := r.StringList(name)
	if len(values) == 0 {
		return nil
	}
	labels := make([]label.Label, 0, len(values))
	for _, value := range values {
		l, err := label.Parse(value)
		if err != nil {
			continue
		}
		labels = append(labels, l)
	}
	return labels
}

// Bool returns a boolean attribute.  Query output encodes booleans in the
// int value; the boolean value is honored as well.
func (r *RuleAttributes) Bool(name string) (bool, bool) {
	attr, ok := r.attrs[name]
	if !ok {
		return false, false
	}
	if attr.BooleanValue != nil {
		return attr.GetBooleanValue(), true
	}
	if attr.IntValue != nil {
		return attr.GetIntValue() != 0, true
	}
	return false, false
}

// Int returns an integer attribute.
func (r *RuleAttributes) Int(name string) (int, bool) {
	attr, ok := r.attrs[name]
	if !ok || attr.IntValue == nil {
		return 0, false
	}
	return int(attr.GetIntValue()), true
}
