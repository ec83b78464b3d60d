package model

import (
	"fmt"
	"strconv"
	"strings"
)

const releasePrefix = "release "

// Version is a parsed bazel release, such as "7.1.0" or "8.0.0rc2".
type Version struct {
	Major, Minor, Patch int
	// Suffix holds whatever follows the numeric part ("rc2", "-pre.2024").
	Suffix string
}

// ParseRelease parses the "release" value of `bazel info`.  Only values
// starting with "release " are understood; development builds report
// something else and yield ok == false.
func ParseRelease(release string) (Version, bool) {
	if !strings.HasPrefix(release, releasePrefix) {
		return Version{}, false
	}
	return ParseVersion(strings.TrimSpace(strings.TrimPrefix(release, releasePrefix)))
}

// ParseVersion parses "MAJOR[.MINOR[.PATCH]][SUFFIX]".
func ParseVersion(s string) (Version, bool) {
	end := strings.IndexFunc(s, func(r rune) bool {
		return r != '.' && (r < '0' || r > '9')
	})
	if end == -1 {
		end = len(s)
	}
	numbers, suffix := strings.TrimSuffix(s[:end], "."), s[end:]
	if numbers == "" {
		return Version{}, false
	}

	var v Version
	parts := strings.Split(numbers, ".")
	if len(parts) > 3 {
		return Version{}, false
	}
	fields := []*int{&v.Major, &v.Minor, &v.Patch}
	for i, part := range parts {
		n, err := strconv.Atoi(part)
		if err != nil {
			return Version{}, false
		}
		*fields[i] = n
	}
	v.Suffix = suffix
	return v, true
}

func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d%s", v.Major, v.Minor, v.Patch, v.Suffix)
}

// Compare orders versions by their numeric parts; a version with a suffix
// sorts before the same version without one.
func (v Version) Compare(other Version) int {
	for _, d := range []int{v.Major - other.Major, v.Minor - other.Minor, v.Patch - other.Patch} {
		if d < 0 {
			return -1
		}
		if d > 0 {
			return 1
		}
	}
	switch {
	case v.Suffix == other.Suffix:
		return 0
	case v.Suffix == "":
		return 1
	case other.Suffix == "":
		return -1
	default:
		return strings.Compare(v.Suffix, other.Suffix)
	}
}

// AtLeast reports whether v >= major.minor.
func (v Version) AtLeast(major, minor int) bool {
	return v.Compare(Version{Major: major, Minor: minor}) >= 0
}
