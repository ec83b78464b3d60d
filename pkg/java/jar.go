// Package java holds helpers for Java build outputs.
package java

import (
	"archive/zip"
	"fmt"
	"strings"
)

const (
	ClassFileSuffix = ".class"
	JarFileSuffix   = ".jar"
)

// JarError reports a jar that is missing or cannot be read.
type JarError struct {
	Path string
	Err  error
}

func (e *JarError) Error() string {
	return fmt.Sprintf("unreadable jar %s: %v", e.Path, e.Err)
}

func (e *JarError) Unwrap() error {
	return e.Err
}

// CheckJar verifies that the file at path exists and is a readable zip
// archive.  Missing files match fs.ErrNotExist.
func CheckJar(path string) error {
	r, err := zip.OpenReader(path)
	if err != nil {
		return &JarError{Path: path, Err: err}
	}
	return r.Close()
}

// ClassNames lists the binary names of the classes in the jar, such as
// "com.example.Foo$Bar", in archive order.
func ClassNames(path string) ([]string, error) {
	r, err := zip.OpenReader(path)
	if err != nil {
		return nil, &JarError{Path: path, Err: err}
	}
	defer r.Close()

	var names []string
	for _, f := range r.File {
		if !strings.HasSuffix(f.Name, ClassFileSuffix) {
			continue
		}
		name := strings.TrimSuffix(f.Name, ClassFileSuffix)
		if name == "module-info" || strings.HasSuffix(name, "/package-info") {
			continue
		}
		names = append(names, strings.ReplaceAll(name, "/", "."))
	}
	return names, nil
}
