package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/davecgh/go-spew/spew"
	"github.com/pcj/mobyprogress"
	"github.com/rs/zerolog"

	"github.com/stackb/bazel-classpath/pkg/aspect"
	"github.com/stackb/bazel-classpath/pkg/bazel"
	"github.com/stackb/bazel-classpath/pkg/classpath"
	"github.com/stackb/bazel-classpath/pkg/collections"
	"github.com/stackb/bazel-classpath/pkg/config"
	"github.com/stackb/bazel-classpath/pkg/discovery"
	"github.com/stackb/bazel-classpath/pkg/java"
	"github.com/stackb/bazel-classpath/pkg/logger"
	"github.com/stackb/bazel-classpath/pkg/model"
)

// bzlclasspath imports a bazel workspace the way an IDE would: it discovers
// the java targets of the project view, provisions projects for them, runs
// the classpath aspect and prints the resolved classpath of every project.

const watchDebounce = 500 * time.Millisecond

type flags struct {
	workspaceDir string
	configFile   string
	bazel        string
	targets      collections.StringSlice
	directories  collections.StringSlice
	provisioning string
	buildFlags   string
	format       string
	outputFile   string
	recordDir    string
	replayDir    string
	classes      bool
	watch        bool
	debug        bool
}

func main() {
	log.SetPrefix("bzlclasspath: ")
	log.SetFlags(0) // don't print timestamps

	f, err := parseFlags(os.Args[1:])
	if err != nil {
		log.Fatal(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, f, os.Stdout, os.Stderr); err != nil {
		log.Fatal(err)
	}
}

func parseFlags(args []string) (*flags, error) {
	f := new(flags)

	fs := flag.NewFlagSet("bzlclasspath", flag.ContinueOnError)
	fs.StringVar(&f.workspaceDir, "workspace", ".", "a directory in the workspace to import")
	fs.StringVar(&f.configFile, "config", "", "the project view file (default: <workspace>/"+config.FileName+")")
	fs.StringVar(&f.bazel, "bazel", "", "the bazel executable (overrides the project view)")
	fs.Var(&f.targets, "target", "a target to import (repeatable)")
	fs.Var(&f.directories, "dir", "a directory pattern to import, '-' prefixed to exclude (repeatable, replaces the project view directories)")
	fs.StringVar(&f.provisioning, "provisioning", "", "the provisioning strategy: 'package' or 'target'")
	fs.StringVar(&f.buildFlags, "build_flags", "", "shell-quoted flags added to the aspect build, such as '--config=ci --define \"x=a b\"'")
	fs.StringVar(&f.format, "format", "text", "the output format: 'text' or 'json'")
	fs.StringVar(&f.outputFile, "output", "", "the output file (default: stdout)")
	fs.StringVar(&f.recordDir, "record_dir", "", "record bazel results under this directory")
	fs.StringVar(&f.replayDir, "replay_dir", "", "replay recorded bazel results instead of running bazel")
	fs.BoolVar(&f.classes, "classes", false, "list the classes of each library entry")
	fs.BoolVar(&f.watch, "watch", false, "re-sync when build files change")
	fs.BoolVar(&f.debug, "debug", false, "enable debug logging and dump the classpaths")
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "usage: bzlclasspath OPTIONS\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() > 0 {
		return nil, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}
	switch f.format {
	case "text", "json":
	default:
		return nil, fmt.Errorf("invalid -format %q (want 'text' or 'json')", f.format)
	}
	if f.recordDir != "" && f.replayDir != "" {
		return nil, fmt.Errorf("-record_dir and -replay_dir are mutually exclusive")
	}
	if _, err := bazel.ParseFlags(f.buildFlags); err != nil {
		return nil, fmt.Errorf("invalid -build_flags %q: %w", f.buildFlags, err)
	}
	return f, nil
}

// loadConfig loads the project view of the workspace and applies the flag
// overrides.
func loadConfig(f *flags, root string) (*config.Config, error) {
	filename := f.configFile
	if filename == "" {
		filename = filepath.Join(root, config.FileName)
	}
	conf, err := config.Load(filename)
	if err != nil {
		return nil, err
	}
	if f.bazel != "" {
		conf.Bazel = f.bazel
	}
	if len(f.directories) > 0 {
		conf.Directories = f.directories
	}
	conf.Targets = append(conf.Targets, f.targets...)
	if f.provisioning != "" {
		conf.Provisioning = config.Provisioning(f.provisioning)
	}
	buildFlags, err := bazel.ParseFlags(f.buildFlags)
	if err != nil {
		return nil, fmt.Errorf("invalid -build_flags %q: %w", f.buildFlags, err)
	}
	conf.BuildFlags = append(conf.BuildFlags, buildFlags...)
	conf.Debug = conf.Debug || f.debug
	if err := conf.Validate(); err != nil {
		return nil, err
	}
	return conf, nil
}

func newRunner(f *flags, conf *config.Config, logger zerolog.Logger) (bazel.Runner, error) {
	if f.replayDir != "" {
		return bazel.NewReplayRunner(f.replayDir), nil
	}
	runner := bazel.NewExecRunner(
		bazel.WithBinary(conf.Bazel),
		bazel.WithLogger(logger),
	)
	if f.recordDir != "" {
		return bazel.NewRecordingRunner(runner, f.recordDir)
	}
	return runner, nil
}

func newSynchronizer(ws model.Workspace, conf *config.Config, progress mobyprogress.Output, logger zerolog.Logger) (*discovery.Synchronizer, error) {
	opts := []discovery.Option{discovery.WithLogger(logger)}

	view, err := discovery.NewProjectViewStrategy(conf.DirectoryIntents(), opts...)
	if err != nil {
		return nil, err
	}
	labels, err := conf.TargetLabels()
	if err != nil {
		return nil, err
	}
	strategy := discovery.Strategies{view, discovery.NewExplicitTargetsStrategy(labels, opts...)}

	var provisioning discovery.ProvisioningStrategy = discovery.ProjectPerPackage{}
	if conf.Provisioning == config.ProvisionPerTarget {
		provisioning = discovery.ProjectPerTarget{}
	}

	builderOpts := []aspect.BuilderOption{
		aspect.WithBuildFlags(conf.BuildFlags...),
		aspect.WithBuilderLogger(logger),
	}
	if conf.Aspect != "" {
		group := conf.OutputGroup
		if group == "" {
			group = aspect.DefaultOutputGroup
		}
		builderOpts = append(builderOpts, aspect.WithAspect(conf.Aspect, group))
	}

	syncOpts := []discovery.SyncOption{
		discovery.WithSyncLogger(logger),
		discovery.WithParallelism(conf.Parallelism),
		discovery.WithProgress(progress),
	}
	mappings, err := conf.Mappings()
	if err != nil {
		return nil, err
	}
	for _, mapping := range mappings {
		syncOpts = append(syncOpts, discovery.WithProjectMapping(mapping.Label, mapping.URI))
	}

	return discovery.NewSynchronizer(ws, strategy, provisioning, aspect.NewBuilder(builderOpts...), syncOpts...), nil
}

func run(ctx context.Context, f *flags, stdout, stderr io.Writer) error {
	root, err := model.FindWorkspaceRoot(f.workspaceDir)
	if err != nil {
		return err
	}
	conf, err := loadConfig(f, root)
	if err != nil {
		return err
	}
	logger := logger.New(stderr, conf.Debug)

	runner, err := newRunner(f, conf, logger)
	if err != nil {
		return err
	}
	m, err := model.New(runner,
		model.WithLogger(logger),
		model.WithCacheSize(conf.CacheSize),
	)
	if err != nil {
		return err
	}
	defer m.Close()
	ws := m.Workspace(root)

	progress := mobyprogress.NewProgressOutput(mobyprogress.NewOut(stderr))
	syncer, err := newSynchronizer(ws, conf, progress, logger)
	if err != nil {
		return err
	}

	result, err := syncAndWrite(ctx, syncer, f, stdout, stderr)
	if err != nil {
		return err
	}
	if !f.watch {
		return nil
	}
	return watch(ctx, ws, result, func() (*discovery.SyncResult, error) {
		return syncAndWrite(ctx, syncer, f, stdout, stderr)
	})
}

func syncAndWrite(ctx context.Context, syncer *discovery.Synchronizer, f *flags, stdout, stderr io.Writer) (*discovery.SyncResult, error) {
	result, err := syncer.Sync(ctx)
	if err != nil {
		return nil, err
	}
	if f.debug {
		dumper := spew.ConfigState{
			Indent:                  "  ",
			MaxDepth:                4,
			DisablePointerAddresses: true,
			DisableCapacities:       true,
		}
		dumper.Fdump(stderr, result.Classpaths)
	}

	out := stdout
	if f.outputFile != "" {
		file, err := os.Create(f.outputFile)
		if err != nil {
			return nil, err
		}
		defer file.Close()
		out = file
	}

	switch f.format {
	case "json":
		err = writeJSON(out, result)
	default:
		err = writeText(out, result, f.classes)
	}
	if err != nil {
		return nil, fmt.Errorf("writing output: %w", err)
	}
	return result, nil
}

func writeJSON(w io.Writer, result *discovery.SyncResult) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

func writeText(w io.Writer, result *discovery.SyncResult, classes bool) error {
	for _, cp := range result.Classpaths {
		if _, err := fmt.Fprintf(w, "project %s (%s)\n", cp.Project.Name, cp.Project.Path); err != nil {
			return err
		}
		for _, entry := range cp.Entries {
			if _, err := fmt.Fprintf(w, "  %s\n", entry); err != nil {
				return err
			}
			if !classes || entry.Kind != classpath.LibraryEntry {
				continue
			}
			names, err := java.ClassNames(entry.Path)
			if err != nil {
				fmt.Fprintf(w, "    ! %v\n", err)
				continue
			}
			for _, name := range names {
				fmt.Fprintf(w, "    %s\n", name)
			}
		}
		for _, marker := range cp.Markers {
			if _, err := fmt.Fprintf(w, "  ! %s\n", marker); err != nil {
				return err
			}
		}
	}
	return nil
}

// watch re-syncs whenever a watched build file changes, until the context
// is done.  A failed re-sync is logged and the previous watches are kept.
func watch(ctx context.Context, ws model.Workspace, result *discovery.SyncResult, resync func() (*discovery.SyncResult, error)) error {
	changed := make(chan struct{}, 1)
	watcher, err := model.NewWatcher(ws.Model(), model.WithInvalidationCallback(func(model.Element) {
		select {
		case changed <- struct{}{}:
		default:
		}
	}))
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watchResult(watcher, ws, result); err != nil {
		return err
	}

	errc := make(chan error, 1)
	go func() { errc <- watcher.Run(ctx) }()

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-errc:
			return err
		case <-changed:
			// let editors finish writing before re-syncing
			select {
			case <-time.After(watchDebounce):
			case <-ctx.Done():
				return nil
			}
			select {
			case <-changed:
			default:
			}
			result, err := resync()
			if err != nil {
				log.Printf("sync failed: %v", err)
				continue
			}
			if err := watchResult(watcher, ws, result); err != nil {
				return err
			}
		}
	}
}

func watchResult(watcher *model.Watcher, ws model.Workspace, result *discovery.SyncResult) error {
	if err := watcher.WatchWorkspace(ws); err != nil {
		return err
	}
	for _, t := range result.Targets {
		if err := watcher.WatchPackage(t.Package()); err != nil {
			return err
		}
	}
	return nil
}
