package bazel

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	bqpb "github.com/bazelbuild/buildtools/build_proto"

	"github.com/stackb/bazel-classpath/pkg/collections"
	"github.com/stackb/bazel-classpath/pkg/protobuf"
)

// ErrNotRecorded is returned by a ReplayRunner for a command that was never
// recorded.
var ErrNotRecorded = errors.New("command not recorded")

const infoFileName = "info.txt"

func queryFileName(expr string, opts QueryOptions) string {
	key := expr + "\x00" + strconv.FormatBool(opts.KeepGoing) + "\x00" + strings.Join(opts.Flags, " ")
	return "query-" + collections.ShortDigest(key, 16) + ".pbtext"
}

func buildFileName(targets []string, opts BuildOptions) string {
	key := strings.Join(targets, " ") + "\x00" + strings.Join(opts.Aspects, " ") + "\x00" + strings.Join(opts.OutputGroups, " ")
	return "build-" + collections.ShortDigest(key, 16) + ".json"
}

// RecordingRunner passes commands through to another Runner and writes each
// successful result under a directory, for later use by a ReplayRunner.
type RecordingRunner struct {
	Runner
	dir string
}

// NewRecordingRunner records the results of next under dir.
func NewRecordingRunner(next Runner, dir string) (*RecordingRunner, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("recording dir: %w", err)
	}
	return &RecordingRunner{Runner: next, dir: dir}, nil
}

// Info implements Runner.
func (r *RecordingRunner) Info(ctx context.Context, root string) ([]byte, error) {
	out, err := r.Runner.Info(ctx, root)
	if err != nil {
		return nil, err
	}
	if err := os.WriteFile(filepath.Join(r.dir, infoFileName), out, 0644); err != nil {
		return nil, fmt.Errorf("recording info: %w", err)
	}
	return out, nil
}

// Query implements Runner.
func (r *RecordingRunner) Query(ctx context.Context, root string, expr string, opts QueryOptions) (*bqpb.QueryResult, error) {
	result, err := r.Runner.Query(ctx, root, expr, opts)
	if err != nil {
		return nil, err
	}
	if err := protobuf.WriteFile(filepath.Join(r.dir, queryFileName(expr, opts)), result); err != nil {
		return nil, fmt.Errorf("recording query %q: %w", expr, err)
	}
	return result, nil
}

// Build implements Runner.
func (r *RecordingRunner) Build(ctx context.Context, root string, targets []string, opts BuildOptions) (*BuildResult, error) {
	result, err := r.Runner.Build(ctx, root, targets, opts)
	if err != nil {
		return nil, err
	}
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return nil, err
	}
	if err := os.WriteFile(filepath.Join(r.dir, buildFileName(targets, opts)), data, 0644); err != nil {
		return nil, fmt.Errorf("recording build: %w", err)
	}
	return result, nil
}

// ReplayRunner answers commands from the files of a RecordingRunner without
// running bazel.
type ReplayRunner struct {
	dir string
}

// NewReplayRunner replays the recordings under dir.
func NewReplayRunner(dir string) *ReplayRunner {
	return &ReplayRunner{dir: dir}
}

func (r *ReplayRunner) read(name, what string) ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(r.dir, name))
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", what, ErrNotRecorded)
	}
	return data, err
}

// Info implements Runner.
func (r *ReplayRunner) Info(ctx context.Context, root string) ([]byte, error) {
	return r.read(infoFileName, "info")
}

// Query implements Runner.
func (r *ReplayRunner) Query(ctx context.Context, root string, expr string, opts QueryOptions) (*bqpb.QueryResult, error) {
	name := queryFileName(expr, opts)
	data, err := r.read(name, "query "+expr)
	if err != nil {
		return nil, err
	}
	var result bqpb.QueryResult
	if err := protobuf.ReadBytes(name, data, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Build implements Runner.
func (r *ReplayRunner) Build(ctx context.Context, root string, targets []string, opts BuildOptions) (*BuildResult, error) {
	data, err := r.read(buildFileName(targets, opts), "build")
	if err != nil {
		return nil, err
	}
	var result BuildResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("replaying build: %w", err)
	}
	return &result, nil
}
