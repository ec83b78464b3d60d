package bazel

import (
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

// BuildEvent represents a single build event in a --build_event_json_file, or
// at least the minimal structure required for our purposes.
type BuildEvent struct {
	NamedSetOfFiles *NamedSetOfFiles `json:"namedSetOfFiles,omitempty"`
}

// NamedSetOfFiles is a set of output files reported by the build.
type NamedSetOfFiles struct {
	Files []*File `json:"files,omitempty"`
}

// File is an output file reported by the build.
type File struct {
	Name       string   `json:"name,omitempty"`
	URI        string   `json:"uri,omitempty"`
	PathPrefix []string `json:"pathPrefix,omitempty"`
}

// LocalPath returns the absolute local path of the file, resolving
// prefix-relative names against execRoot.  The second value is false when the
// file is not on the local file system.
func (f *File) LocalPath(execRoot string) (string, bool) {
	if f.URI != "" {
		u, err := url.Parse(f.URI)
		if err != nil || u.Scheme != "file" {
			return "", false
		}
		return u.Path, true
	}
	if f.Name == "" || execRoot == "" {
		return "", false
	}
	parts := append([]string{execRoot}, f.PathPrefix...)
	return filepath.Join(append(parts, f.Name)...), true
}

func readBuildEvents(filename string) ([]*BuildEvent, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return readBuildEventsIn(f)
}

func readBuildEventsIn(in io.Reader) ([]*BuildEvent, error) {
	var events []*BuildEvent

	decoder := json.NewDecoder(in)
	for {
		var evt BuildEvent

		err := decoder.Decode(&evt)
		if err == io.EOF {
			// all done
			break
		}
		if err != nil {
			return nil, fmt.Errorf("decoding build event %d: %w", len(events), err)
		}

		events = append(events, &evt)
	}

	return events, nil
}

// outputFiles collects the distinct local output files of the build events
// whose name has one of the given suffixes (all files when suffixes is empty).
func outputFiles(events []*BuildEvent, execRoot string, suffixes ...string) []string {
	seen := make(map[string]bool)
	var files []string
	for _, evt := range events {
		if evt.NamedSetOfFiles == nil {
			continue
		}
		for _, f := range evt.NamedSetOfFiles.Files {
			path, ok := f.LocalPath(execRoot)
			if !ok || seen[path] {
				continue
			}
			if len(suffixes) > 0 && !hasAnySuffix(path, suffixes) {
				continue
			}
			seen[path] = true
			files = append(files, path)
		}
	}
	return files
}

func hasAnySuffix(s string, suffixes []string) bool {
	for _, suffix := range suffixes {
		if strings.HasSuffix(s, suffix) {
			return true
		}
	}
	return false
}
