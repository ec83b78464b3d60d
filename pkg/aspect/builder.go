package aspect

import (
	"context"
	"fmt"

	"github.com/bazelbuild/bazel-gazelle/label"
	"github.com/rs/zerolog"

	"github.com/stackb/bazel-classpath/pkg/bazel"
	"github.com/stackb/bazel-classpath/pkg/model"
)

const (
	// DefaultAspect is the aspect that writes the descriptors.
	DefaultAspect = "@bazel_classpath//aspect:classpath_info.bzl%classpath_info_aspect"
	// DefaultOutputGroup is the output group holding the descriptors.
	DefaultOutputGroup = "classpath-info"
)

// BuilderOption configures a Builder.
type BuilderOption func(*Builder) *Builder

// WithAspect sets the aspect and its output group.
func WithAspect(aspect, outputGroup string) BuilderOption {
	return func(b *Builder) *Builder {
		b.aspect = aspect
		b.outputGroup = outputGroup
		return b
	}
}

// WithBuildFlags adds flags to the aspect build.
func WithBuildFlags(flags ...string) BuilderOption {
	return func(b *Builder) *Builder {
		b.flags = append(b.flags, flags...)
		return b
	}
}

// WithBuilderLogger sets the logger.
func WithBuilderLogger(logger zerolog.Logger) BuilderOption {
	return func(b *Builder) *Builder {
		b.logger = logger
		return b
	}
}

// Builder runs the classpath aspect over a set of targets and indexes the
// descriptors it writes.
type Builder struct {
	aspect      string
	outputGroup string
	flags       []string
	logger      zerolog.Logger
}

// NewBuilder creates a new Builder.
func NewBuilder(options ...BuilderOption) *Builder {
	b := &Builder{
		aspect:      DefaultAspect,
		outputGroup: DefaultOutputGroup,
		logger:      zerolog.Nop(),
	}
	for _, opt := range options {
		b = opt(b)
	}
	return b
}

// Build builds the targets of the workspace with the aspect applied.  The
// build keeps going past failing targets; their descriptors are simply
// missing from the index.
func (b *Builder) Build(ctx context.Context, ws model.Workspace, targets []label.Label) (*Index, error) {
	info, err := ws.Info(ctx)
	if err != nil {
		return nil, err
	}

	patterns := make([]string, len(targets))
	for i, target := range targets {
		patterns[i] = target.String()
	}

	result, err := ws.Model().Runner().Build(ctx, ws.Root(), patterns, bazel.BuildOptions{
		Aspects:        []string{b.aspect},
		OutputGroups:   []string{b.outputGroup},
		KeepGoing:      true,
		Flags:          b.flags,
		OutputSuffixes: []string{DescriptorSuffix},
		ExecutionRoot:  info.ExecutionRoot(),
	})
	if err != nil {
		return nil, fmt.Errorf("building classpath info for %d targets in %s: %w", len(targets), ws.Root(), err)
	}
	if result.ExitCode != bazel.ExitSuccess {
		b.logger.Warn().Int("exit_code", result.ExitCode).Str("workspace", ws.Root()).Msg("aspect build partially failed")
	}

	index, err := ReadIndex(result.OutputFiles, WithLogger(b.logger))
	if err != nil {
		return nil, err
	}
	b.logger.Debug().Int("targets", len(targets)).Int("descriptors", index.Len()).Msg("aspect build complete")

	return index, nil
}
