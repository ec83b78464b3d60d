package discovery

import (
	"context"
	"fmt"
	"sync"

	"github.com/bazelbuild/bazel-gazelle/label"
	"github.com/pcj/mobyprogress"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/stackb/bazel-classpath/pkg/aspect"
	"github.com/stackb/bazel-classpath/pkg/classpath"
	"github.com/stackb/bazel-classpath/pkg/model"
)

// ProjectClasspath is the computed classpath of one project.
type ProjectClasspath struct {
	Project *classpath.Project `json:"project"`
	Entries []*classpath.Entry `json:"entries"`
	Markers []classpath.Marker `json:"markers,omitempty"`
}

// SyncResult is the outcome of a Sync.
type SyncResult struct {
	Targets    []model.Target      `json:"-"`
	Projects   *classpath.Projects `json:"-"`
	Index      *aspect.Index       `json:"-"`
	Classpaths []*ProjectClasspath `json:"classpaths"`
}

// SyncOption configures a Synchronizer.
type SyncOption func(*Synchronizer) *Synchronizer

// WithSyncLogger sets the logger.
func WithSyncLogger(logger zerolog.Logger) SyncOption {
	return func(s *Synchronizer) *Synchronizer {
		s.logger = logger
		return s
	}
}

// WithProgress reports progress to output.
func WithProgress(output mobyprogress.Output) SyncOption {
	return func(s *Synchronizer) *Synchronizer {
		s.progress = output
		return s
	}
}

// WithParallelism bounds the number of classpaths computed concurrently.
func WithParallelism(n int) SyncOption {
	return func(s *Synchronizer) *Synchronizer {
		if n > 0 {
			s.parallelism = n
		}
		return s
	}
}

// WithProjectMapping maps a label to a project URI in every computed
// classpath.
func WithProjectMapping(l label.Label, uri string) SyncOption {
	return func(s *Synchronizer) *Synchronizer {
		s.mappings = append(s.mappings, classpath.WithProjectMapping(l, uri))
		return s
	}
}

// Synchronizer imports a workspace: it discovers targets, provisions
// projects, builds the classpath aspect and computes the classpath of every
// project.
type Synchronizer struct {
	workspace    model.Workspace
	discovery    TargetDiscoveryStrategy
	provisioning ProvisioningStrategy
	builder      *aspect.Builder
	mappings     []classpath.Option
	parallelism  int
	progress     mobyprogress.Output
	logger       zerolog.Logger
}

// NewSynchronizer creates a Synchronizer for the workspace.
func NewSynchronizer(ws model.Workspace, discovery TargetDiscoveryStrategy, provisioning ProvisioningStrategy, builder *aspect.Builder, options ...SyncOption) *Synchronizer {
	s := &Synchronizer{
		workspace:    ws,
		discovery:    discovery,
		provisioning: provisioning,
		builder:      builder,
		parallelism:  4,
		progress:     discardProgress{},
		logger:       zerolog.Nop(),
	}
	for _, opt := range options {
		s = opt(s)
	}
	return s
}

// Sync runs the import.  Invalidation of the workspace is suspended for the
// duration so that the aspect build does not flush the model while it is in
// use.  The model is flushed up front.
func (s *Synchronizer) Sync(ctx context.Context) (*SyncResult, error) {
	ws := s.workspace
	m := ws.Model()

	suspension := m.SuspendInvalidation(ws)
	defer suspension.Resume()

	if err := m.Invalidate(ctx, ws); err != nil {
		return nil, fmt.Errorf("flushing %s: %w", ws, err)
	}

	s.writeMessage("discover", "discovering targets")
	targets, err := s.discovery.DiscoverTargets(ctx, ws)
	if err != nil {
		return nil, err
	}
	s.logger.Info().Int("targets", len(targets)).Str("workspace", ws.Root()).Msg("discovered targets")

	projects, err := s.provisioning.Provision(targets)
	if err != nil {
		return nil, fmt.Errorf("provisioning projects: %w", err)
	}
	result := &SyncResult{Targets: targets, Projects: projects}
	if len(targets) == 0 {
		return result, nil
	}

	s.writeMessage("build", fmt.Sprintf("building classpath info for %d targets", len(targets)))
	labels := make([]label.Label, len(targets))
	for i, t := range targets {
		labels[i] = t.Label()
	}
	index, err := s.builder.Build(ctx, ws, labels)
	if err != nil {
		return nil, err
	}
	result.Index = index

	list := projects.List()
	result.Classpaths = make([]*ProjectClasspath, len(list))
	var (
		mu   sync.Mutex
		done int64
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.parallelism)
	for i, p := range list {
		g.Go(func() error {
			cp, err := s.computeProject(gctx, index, projects, p)
			if err != nil {
				return fmt.Errorf("computing classpath of project %s: %w", p.Name, err)
			}
			result.Classpaths[i] = cp
			mu.Lock()
			done++
			s.writeComputeProgress(done, int64(len(list)))
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return result, nil
}

func (s *Synchronizer) computeProject(ctx context.Context, index *aspect.Index, projects *classpath.Projects, p *classpath.Project) (*ProjectClasspath, error) {
	options := []classpath.Option{
		classpath.WithLogger(s.logger.With().Str("project", p.Name).Logger()),
		classpath.WithProjects(projects),
		classpath.WithCurrentProject(p),
	}
	options = append(options, s.mappings...)

	info := classpath.New(s.workspace, index, options...)
	for _, t := range p.Targets {
		if err := info.AddTarget(ctx, t); err != nil {
			return nil, err
		}
	}
	entries, err := info.Compute(ctx)
	if err != nil {
		return nil, err
	}
	return &ProjectClasspath{
		Project: p,
		Entries: entries,
		Markers: info.Markers(),
	}, nil
}

func (s *Synchronizer) writeMessage(id, message string) {
	s.progress.WriteProgress(mobyprogress.Progress{
		ID:      id,
		Message: message,
	})
}

func (s *Synchronizer) writeComputeProgress(current, total int64) {
	s.progress.WriteProgress(mobyprogress.Progress{
		ID:         "compute",
		Action:     "computing classpaths",
		Current:    current,
		Total:      total,
		Units:      "projects",
		LastUpdate: current == total,
	})
}

type discardProgress struct{}

func (discardProgress) WriteProgress(mobyprogress.Progress) error { return nil }
