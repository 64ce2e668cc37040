package datasets

import (
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/Noofbiz/objectData/augment"
	"github.com/Noofbiz/objectData/pixels"
	"github.com/disintegration/imaging"
	"github.com/pkg/errors"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// ImagePaths is a Source over a list of image files.
//
// When size > 0, each image is rescaled so its smaller side equals size and
// then cropped to size x size, centered or at a random position. When size
// is 0 images are returned at their original resolution.
type ImagePaths struct {
	paths   []string
	size    int
	cropper augment.Cropper
}

var _ Source = (*ImagePaths)(nil)

// NewImagePaths creates the path-to-example adapter. seed only matters when
// randomCrop is set; zero seeds from the clock.
func NewImagePaths(paths []string, size int, randomCrop bool, seed int64) *ImagePaths {
	ip := &ImagePaths{
		paths: paths,
		size:  size,
	}
	if size > 0 {
		if randomCrop {
			ip.cropper = augment.NewRandomCrop(size, size, seed)
		} else {
			ip.cropper = augment.CenterCrop{Height: size, Width: size}
		}
	}
	return ip
}

// Len returns the number of image paths.
func (ip *ImagePaths) Len() int { return len(ip.paths) }

// Paths returns the underlying image paths. The slice must not be modified.
func (ip *ImagePaths) Paths() []string { return ip.paths }

// Size returns the configured output size, 0 for original resolution.
func (ip *ImagePaths) Size() int { return ip.size }

// Example decodes the image at index i.
func (ip *ImagePaths) Example(i int) (Example, error) {
	if err := checkIndex(i, len(ip.paths)); err != nil {
		return nil, err
	}
	path := ip.paths[i]
	img, err := ip.load(path)
	if err != nil {
		return nil, errors.WithMessagef(err, "example %d", i)
	}
	return Example{
		KeyImage:    pixels.FromImage(img),
		KeyFilePath: path,
	}, nil
}

// load decodes, rescales and crops a single image.
func (ip *ImagePaths) load(path string) (image.Image, error) {
	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open image %q", path)
	}
	if ip.size <= 0 {
		return img, nil
	}
	img = rescaleSmallestSide(img, ip.size)
	b := img.Bounds()
	r, err := ip.cropper.Window(b.Dy(), b.Dx())
	if err != nil {
		return nil, errors.WithMessagef(err, "cropping %q", path)
	}
	return imaging.Crop(img, r.Add(b.Min)), nil
}

// rescaleSmallestSide resizes img so that min(width, height) == size,
// keeping the aspect ratio.
func rescaleSmallestSide(img image.Image, size int) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if min(w, h) == size {
		return img
	}
	if w <= h {
		return imaging.Resize(img, size, 0, imaging.Lanczos)
	}
	return imaging.Resize(img, 0, size, imaging.Lanczos)
}
