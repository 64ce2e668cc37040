// Package augment crops decoded images, and any per-pixel targets that must
// stay aligned with them, to a fixed output size.
package augment

import (
	"image"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/Noofbiz/objectData/pixels"
	"github.com/pkg/errors"
)

// ErrCropTooLarge is returned when the crop window does not fit the image.
var ErrCropTooLarge = errors.New("crop size larger than image")

// Cropper picks the crop window for an image of the given size.
type Cropper interface {
	Window(height, width int) (image.Rectangle, error)
}

func checkFits(ch, cw, h, w int) error {
	if ch <= 0 || cw <= 0 {
		return errors.Errorf("invalid crop size %dx%d", ch, cw)
	}
	if ch > h || cw > w {
		return errors.Wrapf(ErrCropTooLarge, "crop %dx%d, image %dx%d", ch, cw, h, w)
	}
	return nil
}

// CenterCrop takes the centered Height x Width window.
type CenterCrop struct {
	Height, Width int
}

// Window implements Cropper.
func (c CenterCrop) Window(h, w int) (image.Rectangle, error) {
	if err := checkFits(c.Height, c.Width, h, w); err != nil {
		return image.Rectangle{}, err
	}
	y0 := (h - c.Height) / 2
	x0 := (w - c.Width) / 2
	return image.Rect(x0, y0, x0+c.Width, y0+c.Height), nil
}

// RandomCrop takes a uniformly placed Height x Width window. It is safe for
// concurrent use.
type RandomCrop struct {
	Height, Width int

	mu  sync.Mutex
	rng *rand.Rand
}

// NewRandomCrop creates a RandomCrop. A zero seed uses the current time.
func NewRandomCrop(height, width int, seed int64) *RandomCrop {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &RandomCrop{
		Height: height,
		Width:  width,
		rng:    rand.New(rand.NewSource(seed)),
	}
}

// Window implements Cropper.
func (c *RandomCrop) Window(h, w int) (image.Rectangle, error) {
	if err := checkFits(c.Height, c.Width, h, w); err != nil {
		return image.Rectangle{}, err
	}
	c.mu.Lock()
	if c.rng == nil {
		c.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	y0 := c.rng.Intn(h - c.Height + 1)
	x0 := c.rng.Intn(w - c.Width + 1)
	c.mu.Unlock()
	return image.Rect(x0, y0, x0+c.Width, y0+c.Height), nil
}

// Compose applies one Cropper to a primary image and to additional targets,
// using the same window for all of them.
type Compose struct {
	Cropper Cropper
}

// Apply crops img and every array in extra with a single window chosen from
// img's size. Extra targets must have the image's height and width. The
// returned map holds the cropped extras under their original names.
func (c Compose) Apply(img *pixels.Array, extra map[string]*pixels.Array) (*pixels.Array, map[string]*pixels.Array, error) {
	r, err := c.Cropper.Window(img.Height, img.Width)
	if err != nil {
		return nil, nil, err
	}
	out, err := img.Crop(r)
	if err != nil {
		return nil, nil, err
	}
	if len(extra) == 0 {
		return out, nil, nil
	}
	cropped := make(map[string]*pixels.Array, len(extra))
	for name, target := range extra {
		if target.Height != img.Height || target.Width != img.Width {
			return nil, nil, errors.Errorf("target %q is %dx%d, image is %dx%d",
				name, target.Height, target.Width, img.Height, img.Width)
		}
		if cropped[name], err = target.Crop(r); err != nil {
			return nil, nil, errors.WithMessagef(err, "cropping target %q", name)
		}
	}
	return out, cropped, nil
}

// CoordGrid returns a (h, w, 1) grid holding each pixel's flat index divided
// by h*w, so values are in [0, 1) and increase in row-major order.
func CoordGrid(h, w int) *pixels.Array {
	grid := pixels.New(h, w, 1)
	n := float64(h * w)
	// Past about 2^25 pixels the last values round to 1 in float32.
	last := math.Nextafter32(1, 0)
	for i := range grid.Data {
		grid.Data[i] = min(float32(float64(i)/n), last)
	}
	return grid
}
