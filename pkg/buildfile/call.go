package buildfile

import (
	"github.com/bazelbuild/buildtools/build"
)

// MacroCall is a top-level call expression whose callee is a plain identifier.
type MacroCall struct {
	// Name is the callee as written in the file.
	Name string
	// ResolvedFunctionName is Name mapped through load statement aliases.
	ResolvedFunctionName string
	// Line is the 1-based line of the call.
	Line int

	call *build.CallExpr
}

func newMacroCall(name, resolved string, call *build.CallExpr) *MacroCall {
	start, _ := call.Span()
	return &MacroCall{
		Name:                 name,
		ResolvedFunctionName: resolved,
		Line:                 start.Line,
		call:                 call,
	}
}

// Call returns the underlying syntax node.
func (c *MacroCall) Call() *build.CallExpr {
	return c.call
}

// Argument returns the expression bound to the named keyword argument.
func (c *MacroCall) Argument(name string) (build.Expr, bool) {
	for _, arg := range c.call.List {
		assign, ok := arg.(*build.AssignExpr)
		if !ok {
			continue
		}
		if ident, ok := assign.LHS.(*build.Ident); ok && ident.Name == name {
			return assign.RHS, true
		}
	}
	return nil, false
}

// StringArgument returns the value of a string literal keyword argument.
func (c *MacroCall) StringArgument(name string) (string, bool) {
	expr, ok := c.Argument(name)
	if !ok {
		return "", false
	}
	str, ok := expr.(*build.StringExpr)
	if !ok {
		return "", false
	}
	return str.Value, true
}

// StringListArgument returns the string literals of a list keyword argument.
// Non-literal list items are skipped.
func (c *MacroCall) StringListArgument(name string) ([]string, bool) {
	expr, ok := c.Argument(name)
	if !ok {
		return nil, false
	}
	list, ok := expr.(*build.ListExpr)
	if !ok {
		return nil, false
	}
	var values []string
	for _, item := range list.List {
		if str, ok := item.(*build.StringExpr); ok {
			values = append(values, str.Value)
		}
	}
	return values, true
}

// TargetName returns the "name" argument, if any.
func (c *MacroCall) TargetName() string {
	name, _ := c.StringArgument("name")
	return name
}
