package classpath

import (
	"context"
	"path/filepath"

	"github.com/bazelbuild/bazel-gazelle/label"

	"github.com/stackb/bazel-classpath/pkg/model"
)

// externalRepo is a resolved external repository.
type externalRepo struct {
	workspace model.Workspace
	ok        bool
}

// resolveProject finds the live project standing for the target, if any.
// A project mapping override always wins.  External labels are resolved in
// the workspace of their repository when that repository points at a local
// path.
func (r *resolver) resolveProject(ctx context.Context, l label.Label) (*Project, bool, error) {
	if uri, ok := r.mappings[l]; ok {
		p, err := ParseProjectMapping(uri)
		if err == nil {
			return p, true, nil
		}
		r.logger.Warn().Err(err).Str("target", l.String()).Msg("ignoring project mapping")
	}

	ws := r.workspace
	if l.Repo != "" {
		ext, err := r.externalWorkspace(ctx, l.Repo)
		if err != nil {
			return nil, false, err
		}
		if !ext.ok {
			return nil, false, nil
		}
		ws = ext.workspace
	}

	t := ws.Target(l)
	if p, ok := r.projects.ProjectForTarget(t); ok {
		return p, true, nil
	}
	if p, ok := r.projects.ProjectForPackage(t.Package()); ok && p.HasTarget(t.Name()) {
		return p, true, nil
	}
	return nil, false, nil
}

// externalWorkspace resolves a repository name through the `path` attribute
// of its repository rule.  Repositories without one (downloaded archives)
// have no workspace of their own to hold projects.
func (r *resolver) externalWorkspace(ctx context.Context, repo string) (*externalRepo, error) {
	if ext, ok := r.external[repo]; ok {
		return ext, nil
	}

	ext := &externalRepo{}
	r.external[repo] = ext

	wsInfo, err := r.workspace.Info(ctx)
	if err != nil {
		return nil, err
	}
	attrs, ok, err := wsInfo.ExternalRepository(ctx, repo)
	if err != nil {
		r.logger.Warn().Err(err).Str("repository", repo).Msg("external repositories unavailable")
		return ext, nil
	}
	if !ok {
		return ext, nil
	}
	path, ok := attrs.String("path")
	if !ok || path == "" {
		return ext, nil
	}
	if !filepath.IsAbs(path) {
		path = filepath.Join(r.workspace.Root(), path)
	}

	ext.workspace = r.workspace.Model().Workspace(path)
	ext.ok = true
	return ext, nil
}
