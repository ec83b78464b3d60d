package model

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/bazelbuild/bazel-gazelle/label"
	bqpb "github.com/bazelbuild/buildtools/build_proto"

	"github.com/stackb/bazel-classpath/pkg/bazel"
	"github.com/stackb/bazel-classpath/pkg/buildfile"
)

// Keys of `bazel info` that must be present.
const (
	InfoExecutionRoot   = "execution_root"
	InfoRelease         = "release"
	InfoRepositoryCache = "repository_cache"
	InfoBazelBin        = "bazel-bin"
	InfoBazelGenfiles   = "bazel-genfiles"
	InfoBazelTestlogs   = "bazel-testlogs"
	InfoCommandLog      = "command_log"
	InfoOutputBase      = "output_base"
	InfoOutputPath      = "output_path"
)

// RequiredInfoKeys lists the keys without which a workspace cannot load.
var RequiredInfoKeys = []string{
	InfoExecutionRoot,
	InfoRelease,
	InfoRepositoryCache,
	InfoBazelBin,
	InfoBazelGenfiles,
	InfoBazelTestlogs,
	InfoCommandLog,
	InfoOutputBase,
	InfoOutputPath,
}

const externalQuery = "//external:*"

// WorkspaceInfo holds what `bazel info` reports for a workspace, plus the
// lazily loaded index of external repository rules.
type WorkspaceInfo struct {
	workspace Workspace
	values    map[string]string
	version   *Version
	name      string

	externalMu sync.Mutex
	external   atomic.Pointer[map[string]*RuleAttributes]
}

func newWorkspaceInfo(ctx context.Context, w Workspace) (*WorkspaceInfo, error) {
	out, err := w.model.runner.Info(ctx, w.root)
	if err != nil {
		return nil, fmt.Errorf("bazel info: %w", err)
	}
	values, err := ParseInfo(out)
	if err != nil {
		return nil, err
	}

	info := &WorkspaceInfo{
		workspace: w,
		values:    values,
	}
	if v, ok := ParseRelease(values[InfoRelease]); ok {
		info.version = &v
	}

	name, err := readWorkspaceName(w.root)
	if err != nil {
		w.model.logger.Warn().Err(err).Str("workspace", w.root).Msg("reading workspace name")
	}
	info.name = name

	return info, nil
}

// ParseInfo parses `bazel info` output ("key: value" lines) and checks the
// required keys.
func ParseInfo(out []byte) (map[string]string, error) {
	values := make(map[string]string)
	scanner := bufio.NewScanner(bytes.NewReader(out))
	for scanner.Scan() {
		line := scanner.Text()
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		values[key] = strings.TrimSpace(value)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading bazel info output: %w", err)
	}

	var missing []string
	for _, key := range RequiredInfoKeys {
		if _, ok := values[key]; !ok {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return nil, &MissingInfoKeysError{Missing: missing, Output: values}
	}
	return values, nil
}

// readWorkspaceName takes the repository name from MODULE.bazel module(name)
// or from the WORKSPACE workspace(name) call.
func readWorkspaceName(root string) (string, error) {
	var errs []error

	moduleFile := filepath.Join(root, ModuleFile)
	if _, err := os.Stat(moduleFile); err == nil {
		r := buildfile.NewModuleFileReader(moduleFile)
		if err := r.Read(); err != nil {
			errs = append(errs, err)
		} else if call := r.DesignatedCall(); call != nil {
			if name, ok := call.StringArgument("name"); ok && name != "" {
				return name, nil
			}
		}
	}

	if boundary, ok := findBoundaryFile(root); ok {
		r := buildfile.NewWorkspaceFileReader(boundary)
		if err := r.Read(); err != nil {
			errs = append(errs, err)
		} else if call := r.DesignatedCall(); call != nil {
			if name, ok := call.StringArgument("name"); ok {
				return name, nil
			}
		}
	}

	return "", errors.Join(errs...)
}

// Element implements Info.
func (w *WorkspaceInfo) Element() Element { return w.workspace }

// Workspace returns the owning handle.
func (w *WorkspaceInfo) Workspace() Workspace { return w.workspace }

// Name is the repository name declared by the workspace, if any.
func (w *WorkspaceInfo) Name() string { return w.name }

// Get returns a raw `bazel info` value.
func (w *WorkspaceInfo) Get(key string) (string, bool) {
	v, ok := w.values[key]
	return v, ok
}

// Keys returns the sorted `bazel info` keys.
func (w *WorkspaceInfo) Keys() []string {
	keys := make([]string, 0, len(w.values))
	for k := range w.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (w *WorkspaceInfo) ExecutionRoot() string   { return w.values[InfoExecutionRoot] }
func (w *WorkspaceInfo) OutputBase() string      { return w.values[InfoOutputBase] }
func (w *WorkspaceInfo) OutputPath() string      { return w.values[InfoOutputPath] }
func (w *WorkspaceInfo) BazelBin() string        { return w.values[InfoBazelBin] }
func (w *WorkspaceInfo) BazelGenfiles() string   { return w.values[InfoBazelGenfiles] }
func (w *WorkspaceInfo) BazelTestlogs() string   { return w.values[InfoBazelTestlogs] }
func (w *WorkspaceInfo) CommandLog() string      { return w.values[InfoCommandLog] }
func (w *WorkspaceInfo) RepositoryCache() string { return w.values[InfoRepositoryCache] }
func (w *WorkspaceInfo) Release() string         { return w.values[InfoRelease] }

// Version is the parsed release, or nil for builds that do not report a
// "release X.Y.Z" value.
func (w *WorkspaceInfo) Version() *Version { return w.version }

// ExternalRepository returns the attributes of the external repository rule
// with the given name.
func (w *WorkspaceInfo) ExternalRepository(ctx context.Context, name string) (*RuleAttributes, bool, error) {
	index, err := w.externalIndex(ctx)
	if err != nil {
		return nil, false, err
	}
	attrs, ok := index[name]
	return attrs, ok, nil
}

// ExternalRepositoryNames returns the sorted names of the external
// repositories.
func (w *WorkspaceInfo) ExternalRepositoryNames(ctx context.Context) ([]string, error) {
	index, err := w.externalIndex(ctx)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(index))
	for name := range index {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// externalIndex queries //external:* on first use.  A failed query is not
// remembered; the next call queries again.
func (w *WorkspaceInfo) externalIndex(ctx context.Context) (map[string]*RuleAttributes, error) {
	if index := w.external.Load(); index != nil {
		return *index, nil
	}

	w.externalMu.Lock()
	defer w.externalMu.Unlock()

	if index := w.external.Load(); index != nil {
		return *index, nil
	}

	result, err := w.workspace.model.runner.Query(ctx, w.workspace.root, externalQuery, bazel.QueryOptions{KeepGoing: true})
	if err != nil {
		return nil, fmt.Errorf("querying external repositories of %s: %w", w.workspace.root, err)
	}

	index := make(map[string]*RuleAttributes)
	for _, target := range result.GetTarget() {
		if target.GetType() != bqpb.Target_RULE {
			continue
		}
		rule := target.GetRule()
		name := rule.GetName()
		if l, err := label.Parse(name); err == nil {
			name = l.Name
		}
		index[name] = NewRuleAttributes(rule.GetAttribute())
	}
	w.external.Store(&index)

	return index, nil
}
