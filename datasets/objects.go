package datasets

import (
	"path/filepath"

	"github.com/Noofbiz/objectData/augment"
	"github.com/Noofbiz/objectData/manifest"
	"github.com/Noofbiz/objectData/pixels"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// Split selects the train or validation manifest of a family.
type Split int

const (
	Train Split = iota
	Validation
)

func (s Split) String() string {
	switch s {
	case Train:
		return "train"
	case Validation:
		return "validation"
	}
	return "unknown"
}

// ParseSplit accepts "train", "validation" and "val".
func ParseSplit(s string) (Split, error) {
	switch s {
	case "train", "":
		return Train, nil
	case "validation", "val":
		return Validation, nil
	}
	return Train, errors.Errorf("unknown split %q", s)
}

// Objects restricts the examples of a source to an allow-list of keys. A
// nil key list passes examples through unchanged.
type Objects struct {
	src  Source
	keys []string
}

var _ Source = (*Objects)(nil)

// NewObjects wraps src with the key filter.
func NewObjects(src Source, keys []string) *Objects {
	return &Objects{src: src, keys: keys}
}

// Len returns the number of examples of the wrapped source.
func (o *Objects) Len() int { return o.src.Len() }

// Keys returns the allow-list, nil when examples pass through.
func (o *Objects) Keys() []string { return o.keys }

// Example returns example i holding exactly the allowed keys.
func (o *Objects) Example(i int) (Example, error) {
	ex, err := o.src.Example(i)
	if err != nil {
		return nil, err
	}
	if o.keys == nil {
		return ex, nil
	}
	filtered := make(Example, len(o.keys))
	for _, k := range o.keys {
		v, ok := ex[k]
		if !ok {
			return nil, errors.Wrapf(ErrMissingKey, "example %d has no key %q", i, k)
		}
		filtered[k] = v
	}
	return filtered, nil
}

// Family describes how a dataset lays out its manifests and image files.
// Manifest names are relative to Root unless absolute.
type Family struct {
	Name               string
	Root               string
	TrainManifest      string
	ValidationManifest string
	Expander           manifest.Expander
}

var (
	// ShapeNet renders: every manifest entry is an object directory with 24 views.
	ShapeNet = Family{
		Name:               "shapenet",
		Root:               "data/shapenet",
		TrainManifest:      "train.txt",
		ValidationManifest: "val.txt",
		Expander:           manifest.ShapeNetViews,
	}

	// Amazon product photos: every manifest entry is a directory whose
	// contents are all images of one product.
	Amazon = Family{
		Name:               "amazon",
		Root:               "data/amazon",
		TrainManifest:      "train.txt",
		ValidationManifest: "val.txt",
		Expander:           manifest.DirGlob{Pattern: "*"},
	}

	// FFHQ lists image files directly; its manifests live next to the root.
	FFHQ = Family{
		Name:               "ffhq",
		Root:               "data/ffhq",
		TrainManifest:      "../ffhqtrain.txt",
		ValidationManifest: "../ffhqvalidation.txt",
		Expander:           manifest.Identity{},
	}
)

// Families lists the known families by name.
var Families = map[string]Family{
	ShapeNet.Name: ShapeNet,
	Amazon.Name:   Amazon,
	FFHQ.Name:     FFHQ,
}

// WithRoot returns a copy of the family rooted at root.
func (f Family) WithRoot(root string) Family {
	f.Root = root
	return f
}

// ManifestPath returns the manifest file for split.
func (f Family) ManifestPath(split Split) string {
	name := f.TrainManifest
	if split == Validation {
		name = f.ValidationManifest
	}
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(f.Root, name)
}

// Paths returns the image paths listed by the split's manifest.
func (f Family) Paths(split Split) ([]string, error) {
	paths, err := manifest.Paths(f.Root, f.ManifestPath(split), f.Expander)
	if err != nil {
		return nil, errors.WithMessagef(err, "%s %s", f.Name, split)
	}
	return paths, nil
}

// Open builds the split's dataset: images rescaled and center cropped to
// size x size, restricted to keys.
func (f Family) Open(split Split, size int, keys []string) (*Objects, error) {
	paths, err := f.Paths(split)
	if err != nil {
		return nil, err
	}
	klog.V(1).Infof("datasets: %s %s has %d images", f.Name, split, len(paths))
	return NewObjects(NewImagePaths(paths, size, false, 0), keys), nil
}

// NewShapeNet opens the ShapeNet split from data/shapenet.
func NewShapeNet(split Split, size int, keys []string) (*Objects, error) {
	return ShapeNet.Open(split, size, keys)
}

// NewAmazon opens the Amazon split from data/amazon.
func NewAmazon(split Split, size int, keys []string) (*Objects, error) {
	return Amazon.Open(split, size, keys)
}

// AugmentOptions configures Augmented.
type AugmentOptions struct {
	// CropSize of the square output. Zero disables cropping.
	CropSize int

	// Coord adds a "coord" grid cropped with the same window as the image.
	// Only used when CropSize > 0.
	Coord bool

	// Seed of the random crop (train split). Zero seeds from the clock.
	Seed int64
}

// Augmented crops the examples of a source: randomly for the train split,
// centered for validation.
type Augmented struct {
	src     Source
	coord   bool
	compose *augment.Compose
}

var _ Source = (*Augmented)(nil)

// NewAugmented wraps src.
func NewAugmented(src Source, split Split, opts AugmentOptions) *Augmented {
	a := &Augmented{src: src, coord: opts.Coord}
	if opts.CropSize > 0 {
		var cropper augment.Cropper
		if split == Train {
			cropper = augment.NewRandomCrop(opts.CropSize, opts.CropSize, opts.Seed)
		} else {
			cropper = augment.CenterCrop{Height: opts.CropSize, Width: opts.CropSize}
		}
		a.compose = &augment.Compose{Cropper: cropper}
	}
	return a
}

// NewObjectsTrain opens the Amazon train split with random crops.
func NewObjectsTrain(size int, keys []string, opts AugmentOptions) (*Augmented, error) {
	src, err := NewAmazon(Train, size, keys)
	if err != nil {
		return nil, err
	}
	return NewAugmented(src, Train, opts), nil
}

// NewObjectsValidation opens the Amazon validation split with center crops.
func NewObjectsValidation(size int, keys []string, opts AugmentOptions) (*Augmented, error) {
	src, err := NewAmazon(Validation, size, keys)
	if err != nil {
		return nil, err
	}
	return NewAugmented(src, Validation, opts), nil
}

// Len returns the number of examples of the wrapped source.
func (a *Augmented) Len() int { return a.src.Len() }

// Example returns example i with its image (and coord grid) cropped.
func (a *Augmented) Example(i int) (Example, error) {
	ex, err := a.src.Example(i)
	if err != nil {
		return nil, err
	}
	if a.compose == nil {
		return ex, nil
	}
	img, ok := ex.Image()
	if !ok {
		return nil, errors.Wrapf(ErrMissingKey, "example %d has no %q to crop", i, KeyImage)
	}
	if !a.coord {
		out, _, err := a.compose.Apply(img, nil)
		if err != nil {
			return nil, errors.WithMessagef(err, "example %d", i)
		}
		ex[KeyImage] = out
		return ex, nil
	}
	grid := augment.CoordGrid(img.Height, img.Width)
	out, extra, err := a.compose.Apply(img, map[string]*pixels.Array{KeyCoord: grid})
	if err != nil {
		return nil, errors.WithMessagef(err, "example %d", i)
	}
	ex[KeyImage] = out
	ex[KeyCoord] = extra[KeyCoord]
	return ex, nil
}
