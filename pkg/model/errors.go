package model

import (
	"fmt"
	"io/fs"
	"sort"
	"strings"
)

// NotExistError reports that an element is structurally absent: no boundary
// file, no BUILD file, or no such rule in the package.  It matches
// fs.ErrNotExist with errors.Is.
type NotExistError struct {
	Element Element
}

func (e *NotExistError) Error() string {
	return fmt.Sprintf("%s %s does not exist", e.Element.Kind(), e.Element)
}

func (e *NotExistError) Is(target error) bool {
	return target == fs.ErrNotExist
}

// LoadError wraps a failure to create the info of an element.
type LoadError struct {
	Element Element
	Err     error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("loading %s info at %s: %v", e.Element.Kind(), e.Element.Location(), e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// CanceledError reports that loading an element was canceled.  It is not a
// load failure: nothing was cached and the load may simply be retried.
// errors.Is(err, context.Canceled) holds when the context was canceled.
type CanceledError struct {
	Element Element
	Err     error
}

func (e *CanceledError) Error() string {
	return fmt.Sprintf("loading %s %s canceled: %v", e.Element.Kind(), e.Element, e.Err)
}

func (e *CanceledError) Unwrap() error {
	return e.Err
}

// MissingInfoKeysError reports that `bazel info` did not print all required
// keys.  Output holds the full dump for diagnosis.
type MissingInfoKeysError struct {
	Missing []string
	Output  map[string]string
}

func (e *MissingInfoKeysError) Error() string {
	keys := make([]string, 0, len(e.Output))
	for k := range e.Output {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	fmt.Fprintf(&sb, "bazel info is missing required keys %v; got:", e.Missing)
	for _, k := range keys {
		fmt.Fprintf(&sb, "\n  %s: %s", k, e.Output[k])
	}
	return sb.String()
}
