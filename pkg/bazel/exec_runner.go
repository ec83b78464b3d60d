package bazel

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	bqpb "github.com/bazelbuild/buildtools/build_proto"
	"github.com/gofrs/flock"
	"github.com/rs/zerolog"
	"google.golang.org/protobuf/proto"

	"github.com/stackb/bazel-classpath/pkg/collections"
	"github.com/stackb/bazel-classpath/pkg/procutil"
)

const lockRetryDelay = 250 * time.Millisecond

// ExecRunnerOption configures an ExecRunner.
type ExecRunnerOption func(*ExecRunner) *ExecRunner

// WithBinary sets the bazel executable (default "bazel").
func WithBinary(binary string) ExecRunnerOption {
	return func(r *ExecRunner) *ExecRunner {
		r.binary = binary
		return r
	}
}

// WithStartupFlags sets flags that go before the command name.
func WithStartupFlags(flags ...string) ExecRunnerOption {
	return func(r *ExecRunner) *ExecRunner {
		r.startupFlags = flags
		return r
	}
}

// WithLockDir sets the directory holding the per-workspace build locks.
func WithLockDir(dir string) ExecRunnerOption {
	return func(r *ExecRunner) *ExecRunner {
		r.lockDir = dir
		return r
	}
}

// WithLogger sets the logger.
func WithLogger(logger zerolog.Logger) ExecRunnerOption {
	return func(r *ExecRunner) *ExecRunner {
		r.logger = logger
		return r
	}
}

// ExecRunner implements Runner by running the bazel executable.
type ExecRunner struct {
	binary       string
	startupFlags []string
	lockDir      string
	logger       zerolog.Logger
}

// NewExecRunner creates a new ExecRunner.
func NewExecRunner(options ...ExecRunnerOption) *ExecRunner {
	r := &ExecRunner{
		binary:  "bazel",
		lockDir: os.TempDir(),
		logger:  zerolog.Nop(),
	}
	for _, opt := range options {
		r = opt(r)
	}
	return r
}

type execResult struct {
	stdout   []byte
	stderr   []byte
	exitCode int
}

func (r *ExecRunner) run(ctx context.Context, root string, args []string) (*execResult, error) {
	cmdArgs := append(append([]string{}, r.startupFlags...), args...)
	cmd := exec.CommandContext(ctx, r.binary, cmdArgs...)
	cmd.Dir = root

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	t1 := time.Now()
	r.logger.Debug().Str("workspace", root).Strs("args", args).Msg("running bazel")
	err := cmd.Run()
	exitCode := procutil.ExitCode(cmd, err)
	r.logger.Debug().
		Str("workspace", root).
		Str("command", args[0]).
		Int("exit_code", exitCode).
		Dur("elapsed", time.Since(t1)).
		Msg("bazel finished")

	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}
	res := &execResult{stdout: stdout.Bytes(), stderr: stderr.Bytes(), exitCode: exitCode}
	if exitCode < 0 {
		return res, &CommandError{WorkspaceRoot: root, Args: args, ExitCode: exitCode, Stderr: stderr.String(), Err: err}
	}
	return res, nil
}

// Info implements Runner.
func (r *ExecRunner) Info(ctx context.Context, root string) ([]byte, error) {
	args := []string{"info"}
	res, err := r.run(ctx, root, args)
	if err != nil {
		return nil, err
	}
	if res.exitCode != ExitSuccess {
		return nil, &CommandError{WorkspaceRoot: root, Args: args, ExitCode: res.exitCode, Stderr: string(res.stderr)}
	}
	return res.stdout, nil
}

// Query implements Runner.  Query commands do not take the workspace lock.
func (r *ExecRunner) Query(ctx context.Context, root string, expr string, opts QueryOptions) (*bqpb.QueryResult, error) {
	args := []string{"query", expr, "--output=proto"}
	if opts.KeepGoing {
		args = append(args, "--keep_going")
	}
	args = append(args, opts.Flags...)

	res, err := r.run(ctx, root, args)
	if err != nil {
		return nil, err
	}
	switch {
	case res.exitCode == ExitSuccess:
	case res.exitCode == ExitPartialFailure && opts.KeepGoing:
		r.logger.Warn().Str("workspace", root).Str("query", expr).Msg("query completed with errors (keep_going)")
	default:
		return nil, &CommandError{WorkspaceRoot: root, Args: args, ExitCode: res.exitCode, Stderr: string(res.stderr)}
	}

	var result bqpb.QueryResult
	if err := proto.Unmarshal(res.stdout, &result); err != nil {
		return nil, &CommandError{WorkspaceRoot: root, Args: args, ExitCode: res.exitCode, Err: fmt.Errorf("unmarshal query result: %w", err)}
	}
	return &result, nil
}

// Build implements Runner.  Builds hold an exclusive file lock for the
// workspace for their whole duration.
func (r *ExecRunner) Build(ctx context.Context, root string, targets []string, opts BuildOptions) (*BuildResult, error) {
	unlock, err := r.lockWorkspace(ctx, root)
	if err != nil {
		return nil, err
	}
	defer unlock()

	tmpDir, err := NewTmpDir("bazel-classpath-bep")
	if err != nil {
		return nil, fmt.Errorf("creating build event dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)
	bepFile := filepath.Join(tmpDir, "bep.json")

	args := []string{"build", "--build_event_json_file=" + bepFile}
	if opts.KeepGoing {
		args = append(args, "--keep_going")
	}
	for _, aspect := range opts.Aspects {
		args = append(args, "--aspects="+aspect)
	}
	for _, group := range opts.OutputGroups {
		args = append(args, "--output_groups="+group)
	}
	args = append(args, opts.Flags...)
	args = append(args, "--")
	args = append(args, targets...)

	res, err := r.run(ctx, root, args)
	if err != nil {
		return nil, err
	}
	switch {
	case res.exitCode == ExitSuccess:
	case opts.KeepGoing && (res.exitCode == ExitBuildFailure || res.exitCode == ExitPartialFailure):
		r.logger.Warn().Str("workspace", root).Int("exit_code", res.exitCode).Msg("build completed with errors (keep_going)")
	default:
		return nil, &CommandError{WorkspaceRoot: root, Args: args, ExitCode: res.exitCode, Stderr: string(res.stderr)}
	}

	events, err := readBuildEvents(bepFile)
	if err != nil {
		return nil, fmt.Errorf("reading build events of %s: %w", root, err)
	}
	return &BuildResult{
		ExitCode:    res.exitCode,
		OutputFiles: outputFiles(events, opts.ExecutionRoot, opts.OutputSuffixes...),
	}, nil
}

func (r *ExecRunner) lockWorkspace(ctx context.Context, root string) (func(), error) {
	lock := flock.New(lockFileName(r.lockDir, collections.StringSha256(root)))
	locked, err := lock.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		return nil, fmt.Errorf("acquiring workspace lock for %s: %w", root, err)
	}
	if !locked {
		return nil, fmt.Errorf("acquiring workspace lock for %s: not acquired", root)
	}
	return func() {
		if err := lock.Unlock(); err != nil {
			r.logger.Warn().Err(err).Str("workspace", root).Msg("releasing workspace lock")
		}
	}, nil
}
