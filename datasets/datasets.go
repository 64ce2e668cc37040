package datasets

import (
	"github.com/Noofbiz/objectData/pixels"
	"github.com/gomlx/gomlx/pkg/core/tensors"
	"github.com/pkg/errors"
)

// This file provides the dataset abstractions that load images listed in
// manifest files and present them as examples suitable for model training.
//
// All datasets are lazy: they store file paths and only decode the actual
// image when an example is requested. Nothing is cached between calls, every
// Example call decodes, resizes and crops again.
//
// Layout and intended usage:
//
// ImagePaths
//   - Stores the image paths produced by a manifest (see package manifest)
//   - Decodes, rescales to the smaller side and crops to size x size on access
//   - Example keys: "image" (H, W, 3) in [-1, 1] and "file_path_"
//
// Objects
//   - Restricts examples to a caller-supplied key allow-list
//
// Augmented
//   - Random (train) or center (validation) crop to crop_size x crop_size,
//     optionally with a "coord" grid cropped alongside the image
//
// ConcatWithIndex
//   - Chains several sources and tags each example with its source "class"
//
// Loader
//   - Batches any Source into gomlx tensors through the train.Dataset
//     interface, so it can be handed to a train.Loop.

// Example keys.
const (
	KeyImage    = "image"
	KeyCoord    = "coord"
	KeyClass    = "class"
	KeyFilePath = "file_path_"
)

var (
	// ErrIndexOutOfRange is returned for indices outside [0, Len()).
	ErrIndexOutOfRange = errors.New("index out of range")

	// ErrMissingKey is returned when an example lacks a requested key.
	ErrMissingKey = errors.New("example has no such key")
)

// Example is a single training sample. Values depend on the key, see the
// Key* constants.
type Example map[string]any

// Array returns the array stored under key, if any.
func (e Example) Array(key string) (*pixels.Array, bool) {
	a, ok := e[key].(*pixels.Array)
	return a, ok && a != nil
}

// Image returns the "image" array.
func (e Example) Image() (*pixels.Array, bool) { return e.Array(KeyImage) }

// Coord returns the "coord" grid.
func (e Example) Coord() (*pixels.Array, bool) { return e.Array(KeyCoord) }

// Class returns the index of the source the example came from when the
// example was produced by ConcatWithIndex.
func (e Example) Class() (int, bool) {
	c, ok := e[KeyClass].(int)
	return c, ok
}

// FilePath returns the path of the image file, or "" when unknown.
func (e Example) FilePath() string {
	p, _ := e[KeyFilePath].(string)
	return p
}

// Source is a finite, randomly indexable sequence of examples.
type Source interface {
	Len() int
	Example(i int) (Example, error)
}

// Dataset is what the training code expects of a batching dataset. Loader
// implements it.
type Dataset interface {
	Source
	Batch(indices []int) ([]Example, error)
	Shuffle(seed int64)

	// To implement gomlx's train.Dataset interface
	Name() string
	Yield() (any, []*tensors.Tensor, []*tensors.Tensor, error)
	Reset()
}

func checkIndex(i, n int) error {
	if i < 0 || i >= n {
		return errors.Wrapf(ErrIndexOutOfRange, "index %d not in [0, %d)", i, n)
	}
	return nil
}
