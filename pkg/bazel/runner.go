package bazel

import (
	"context"

	bqpb "github.com/bazelbuild/buildtools/build_proto"
)

// QueryOptions tune a query invocation.
type QueryOptions struct {
	// KeepGoing tolerates broken targets and returns partial results.
	KeepGoing bool
	// Flags are extra flags appended to the command line.
	Flags []string
}

// BuildOptions tune a build invocation.
type BuildOptions struct {
	// Aspects are applied to the top-level targets (--aspects).
	Aspects []string
	// OutputGroups are requested from the build (--output_groups).
	OutputGroups []string
	// KeepGoing tolerates failing targets.
	KeepGoing bool
	// Flags are extra flags appended to the command line.
	Flags []string
	// OutputSuffixes restricts BuildResult.OutputFiles to files with one of
	// these suffixes.
	OutputSuffixes []string
	// ExecutionRoot resolves output files reported without a file URI.
	ExecutionRoot string
}

// BuildResult describes a finished build.
type BuildResult struct {
	// ExitCode is the bazel exit code; a keep-going build that failed for
	// some targets still carries the outputs of the others.
	ExitCode int
	// OutputFiles are the absolute paths of the files in the requested
	// output groups, in build event order.
	OutputFiles []string
}

// Runner executes bazel commands for a workspace root.  Query and info
// commands may run concurrently with anything; build commands require
// exclusive access to the workspace.
type Runner interface {
	// Info runs `bazel info` and returns its raw "key: value" output.
	Info(ctx context.Context, workspaceRoot string) ([]byte, error)
	// Query runs `bazel query --output=proto`.
	Query(ctx context.Context, workspaceRoot string, expr string, opts QueryOptions) (*bqpb.QueryResult, error)
	// Build runs `bazel build` over the given targets.
	Build(ctx context.Context, workspaceRoot string, targets []string, opts BuildOptions) (*BuildResult, error)
}
