package aspect

import (
	"github.com/bazelbuild/bazel-gazelle/label"
	"github.com/rs/zerolog"
)

// IndexOption configures an Index.
type IndexOption func(*Index) *Index

// WithLogger sets the logger.
func WithLogger(logger zerolog.Logger) IndexOption {
	return func(x *Index) *Index {
		x.logger = logger
		return x
	}
}

// Index holds the descriptors of a build, by label, and the owner of every
// jar they mention.
type Index struct {
	logger      zerolog.Logger
	descriptors map[label.Label]*Descriptor
	labels      []label.Label
	owners      map[string]label.Label
}

// NewIndex creates an empty index.
func NewIndex(options ...IndexOption) *Index {
	x := &Index{
		logger:      zerolog.Nop(),
		descriptors: make(map[label.Label]*Descriptor),
		owners:      make(map[string]label.Label),
	}
	for _, opt := range options {
		x = opt(x)
	}
	return x
}

// ReadIndex reads the given descriptor files into a new index.
func ReadIndex(files []string, options ...IndexOption) (*Index, error) {
	x := NewIndex(options...)
	for _, filename := range files {
		d, err := ReadDescriptor(filename)
		if err != nil {
			return nil, err
		}
		x.Add(d)
	}
	return x, nil
}

// Add indexes the descriptor.  When the label is already present the first
// descriptor is kept and Add returns false.
func (x *Index) Add(d *Descriptor) bool {
	l := d.ParsedLabel()
	if _, ok := x.descriptors[l]; ok {
		x.logger.Warn().Str("label", l.String()).Msg("duplicate classpath descriptor (keeping the first)")
		return false
	}
	x.descriptors[l] = d
	x.labels = append(x.labels, l)

	for _, jars := range [][]*Jar{d.Jars, d.GeneratedJars} {
		for _, jar := range jars {
			for _, path := range []string{jar.Jar, jar.InterfaceJar} {
				if path == "" {
					continue
				}
				if _, ok := x.owners[path]; !ok {
					x.owners[path] = l
				}
			}
		}
	}
	return true
}

// Get returns the descriptor for the label.
func (x *Index) Get(l label.Label) (*Descriptor, bool) {
	d, ok := x.descriptors[l]
	return d, ok
}

// Jars returns the output jars of the label.
func (x *Index) Jars(l label.Label) []*Jar {
	if d, ok := x.descriptors[l]; ok {
		return d.Jars
	}
	return nil
}

// Owner returns the label whose outputs include the jar at path.
func (x *Index) Owner(path string) (label.Label, bool) {
	l, ok := x.owners[path]
	return l, ok
}

// Labels returns the indexed labels in the order they were added.
func (x *Index) Labels() []label.Label {
	labels := make([]label.Label, len(x.labels))
	copy(labels, x.labels)
	return labels
}

// Len returns the number of descriptors.
func (x *Index) Len() int {
	return len(x.labels)
}
