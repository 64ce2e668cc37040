// Package manifest reads dataset manifests (text files listing one relative
// path per line) and expands every entry into the image files it stands for.
//
// Two layouts are supported out of the box:
//
//   - a fixed naming convention, where each entry is a directory holding a known
//     set of files (ShapeNet renders: r_00.png ... r_23.png);
//   - a directory glob, where each entry is a directory whose contents are
//     globbed and sorted lexicographically (Amazon product photos).
//
// Plain lists, where each entry already is an image file, use Identity.
package manifest

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// Read loads the manifest at path and returns its lines in file order.
//
// A trailing newline does not produce an empty entry and "\r\n" endings are
// accepted. Blank lines in the middle of the file are kept.
func Read(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read manifest %q", path)
	}
	return Parse(data), nil
}

// Parse splits manifest contents into lines. Lines have no length limit.
func Parse(data []byte) []string {
	if len(data) == 0 {
		return []string{}
	}
	data = bytes.TrimSuffix(data, []byte{'\n'})
	raw := bytes.Split(data, []byte{'\n'})
	lines := make([]string, len(raw))
	for i, line := range raw {
		lines[i] = strings.TrimSuffix(string(line), "\r")
	}
	return lines
}

// Expander turns one manifest entry (already joined with the dataset root)
// into the image file paths it stands for.
type Expander interface {
	Expand(dir string) ([]string, error)
}

// FixedViews expands a directory into Count files named by Format, which
// takes the view index as its only argument.
type FixedViews struct {
	Count  int
	Format string
}

// ShapeNetViews is the layout of the ShapeNet renders: 24 views per object.
var ShapeNetViews = FixedViews{Count: 24, Format: "r_%02d.png"}

// Expand implements Expander. It does not touch the filesystem, missing
// files surface when the image is opened.
func (f FixedViews) Expand(dir string) ([]string, error) {
	if f.Count < 0 {
		return nil, errors.Errorf("invalid view count %d", f.Count)
	}
	paths := make([]string, f.Count)
	for i := range f.Count {
		paths[i] = filepath.Join(dir, fmt.Sprintf(f.Format, i))
	}
	return paths, nil
}

// Factor returns the number of files each entry expands to.
func (f FixedViews) Factor() int { return f.Count }

// DirGlob expands a directory by globbing Pattern inside it ("*" when
// empty). Results are sorted lexicographically.
type DirGlob struct {
	Pattern string
}

// Expand implements Expander. A directory without matches expands to nothing.
func (g DirGlob) Expand(dir string) ([]string, error) {
	pattern := g.Pattern
	if pattern == "" {
		pattern = "*"
	}
	matches, err := filepath.Glob(filepath.Join(dir, pattern))
	if err != nil {
		return nil, errors.Wrapf(err, "failed to glob %q in %q", pattern, dir)
	}
	if len(matches) == 0 {
		klog.Warningf("manifest: no files matching %q in %s", pattern, dir)
	}
	sort.Strings(matches)
	return matches, nil
}

// Identity treats every entry as an image file.
type Identity struct{}

// Expand implements Expander.
func (Identity) Expand(path string) ([]string, error) {
	return []string{path}, nil
}

// Factor returns 1.
func (Identity) Factor() int { return 1 }

// Paths reads the manifest, joins each entry with root and expands it,
// concatenating the results in manifest order.
func Paths(root, manifestPath string, exp Expander) ([]string, error) {
	entries, err := Read(manifestPath)
	if err != nil {
		return nil, err
	}
	return Expand(root, entries, exp)
}

// Expand joins every entry with root and expands it with exp.
func Expand(root string, entries []string, exp Expander) ([]string, error) {
	if exp == nil {
		exp = Identity{}
	}
	var paths []string
	for _, entry := range entries {
		expanded, err := exp.Expand(filepath.Join(root, entry))
		if err != nil {
			return nil, errors.WithMessagef(err, "expanding manifest entry %q", entry)
		}
		paths = append(paths, expanded...)
	}
	klog.V(1).Infof("manifest: %d entries under %s expanded to %d paths", len(entries), root, len(paths))
	return paths, nil
}
