package classpath

import (
	"context"
	"path/filepath"

	"github.com/bazelbuild/bazel-gazelle/label"
	depspb "github.com/bazelbuild/buildtools/deps_proto"

	"github.com/stackb/bazel-classpath/pkg/collections"
	"github.com/stackb/bazel-classpath/pkg/java"
)

// Compute returns the classpath of the added targets.
//
// Entries are keyed by jar path (or project) in an access-ordered map, so
// the final order follows the last time each entry was touched:
//
//  1. jars used by the compilations (jdeps): IMPLICIT ones are discouraged
//     and only inserted when absent, EXPLICIT ones are accessible and
//     replace any earlier entry;
//  2. generated code jars, exported;
//  3. direct dependencies, as projects when a live project represents them;
//  4. runtime dependencies, test only and discouraged.
func (c *Info) Compute(ctx context.Context) ([]*Entry, error) {
	wsInfo, err := c.workspace.Info(ctx)
	if err != nil {
		return nil, err
	}
	r := &resolver{
		Info:     c,
		execRoot: wsInfo.ExecutionRoot(),
		external: make(map[string]*externalRepo),
	}

	entries := collections.NewLinkedMap[string, *Entry]()

	for _, jar := range c.jdepsCompileJars.Values() {
		entry, err := r.resolveJdepsJar(ctx, jar)
		if err != nil {
			return nil, err
		}
		if entry == nil {
			continue
		}
		switch jar.kind {
		case depspb.Dependency_IMPLICIT:
			if c.exports[entry.Label] {
				entry.AccessRules = accessibleRules()
			} else {
				entry.AccessRules = discouragedRules()
			}
			entries.PutIfAbsent(entry.key(), entry)
		default:
			entry.AccessRules = accessibleRules()
			entries.Put(entry.key(), entry)
		}
	}

	for _, jar := range c.generatedCodeJars.Values() {
		entry := r.libraryEntry(jar.path, jar.sourcePath, jar.owner)
		if entry == nil {
			continue
		}
		entry.Exported = true
		entries.PutIfAbsent(entry.key(), entry)
	}

	for _, dep := range c.directDeps.Values() {
		resolved, err := r.resolveDependency(ctx, dep)
		if err != nil {
			return nil, err
		}
		for _, entry := range resolved {
			if c.exports[dep] {
				entry.Exported = true
			}
			entries.PutIfAbsent(entry.key(), entry)
		}
	}

	for _, dep := range c.runtimeDeps.Values() {
		resolved, err := r.resolveDependency(ctx, dep)
		if err != nil {
			return nil, err
		}
		for _, entry := range resolved {
			entry.TestOnly = true
			entry.AccessRules = discouragedRules()
			entries.PutIfAbsent(entry.key(), entry)
		}
	}

	return entries.Values(), nil
}

// resolver holds the state of one Compute call.
type resolver struct {
	*Info
	execRoot string
	external map[string]*externalRepo
}

// resolveJdepsJar turns a jar used by a compilation into an entry: a project
// entry when the target owning the jar is a live project, a library entry
// otherwise.
func (r *resolver) resolveJdepsJar(ctx context.Context, jar jdepsJar) (*Entry, error) {
	owner, ok := r.index.Owner(jar.path)
	if ok {
		p, found, err := r.resolveProject(ctx, owner)
		if err != nil {
			return nil, err
		}
		if found {
			return r.projectEntry(p, owner), nil
		}
	}
	var sourcePath string
	if ok {
		for _, j := range r.index.Jars(owner) {
			if j.CompileJar() == jar.path || j.Jar == jar.path {
				sourcePath = j.SourceJar
			}
		}
	}
	return r.libraryEntry(jar.path, sourcePath, owner), nil
}

// resolveDependency resolves a dependency target into entries: a project
// entry when a live project represents it, its jars otherwise.
func (r *resolver) resolveDependency(ctx context.Context, dep label.Label) ([]*Entry, error) {
	p, found, err := r.resolveProject(ctx, dep)
	if err != nil {
		return nil, err
	}
	if found {
		if entry := r.projectEntry(p, dep); entry != nil {
			return []*Entry{entry}, nil
		}
		return nil, nil
	}

	d, ok := r.index.Get(dep)
	if !ok {
		r.logger.Warn().Str("target", dep.String()).Msg("no classpath info for dependency (build failed or skipped?)")
		return nil, nil
	}
	var entries []*Entry
	for _, jar := range d.Jars {
		if entry := r.libraryEntry(jar.CompileJar(), jar.SourceJar, dep); entry != nil {
			entries = append(entries, entry)
		}
	}
	return entries, nil
}

// projectEntry returns nil for a reference to the current project.
func (r *resolver) projectEntry(p *Project, from label.Label) *Entry {
	if r.current != nil && p.Path == r.current.Path {
		return nil
	}
	return newProjectEntry(p, from)
}

// libraryEntry resolves a jar relative to the execution root.  A missing or
// unreadable jar yields a marker and no entry.
func (r *resolver) libraryEntry(path, sourcePath string, from label.Label) *Entry {
	abs := r.abs(path)
	if err := java.CheckJar(abs); err != nil {
		r.logger.Warn().Err(err).Str("target", from.String()).Msg("jar is missing or unreadable")
		r.addMarker(Marker{
			Severity: SeverityError,
			Label:    from,
			Path:     abs,
			Message:  "jar is missing or unreadable; run 'bazel fetch' or rebuild",
		})
		return nil
	}
	var absSource string
	if sourcePath != "" {
		absSource = r.abs(sourcePath)
	}
	return newLibraryEntry(abs, absSource, from)
}

func (r *resolver) abs(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(r.execRoot, path)
}
