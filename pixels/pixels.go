// Package pixels holds decoded images and derived per-pixel grids as dense
// float32 arrays laid out (height, width, channels), which is the layout the
// training loop consumes.
package pixels

import (
	"image"
	"image/color"
	"math"

	"github.com/pkg/errors"
)

// Array is a dense (Height, Width, Channels) buffer in row-major order.
type Array struct {
	Height, Width, Channels int
	Data                    []float32
}

// New allocates a zeroed array.
func New(height, width, channels int) *Array {
	return &Array{
		Height:   height,
		Width:    width,
		Channels: channels,
		Data:     make([]float32, height*width*channels),
	}
}

// Shape returns {Height, Width, Channels}.
func (a *Array) Shape() []int {
	return []int{a.Height, a.Width, a.Channels}
}

// Bounds returns the array extent as an image rectangle.
func (a *Array) Bounds() image.Rectangle {
	return image.Rect(0, 0, a.Width, a.Height)
}

func (a *Array) offset(y, x, c int) int {
	return (y*a.Width+x)*a.Channels + c
}

// At returns the value at row y, column x, channel c.
func (a *Array) At(y, x, c int) float32 {
	return a.Data[a.offset(y, x, c)]
}

// Set stores v at row y, column x, channel c.
func (a *Array) Set(y, x, c int, v float32) {
	a.Data[a.offset(y, x, c)] = v
}

// Crop returns a copy of the window r. The window must lie inside the array.
func (a *Array) Crop(r image.Rectangle) (*Array, error) {
	if r.Empty() || !r.In(a.Bounds()) {
		return nil, errors.Errorf("crop window %v outside of array bounds %v", r, a.Bounds())
	}
	out := New(r.Dy(), r.Dx(), a.Channels)
	rowLen := r.Dx() * a.Channels
	for y := 0; y < out.Height; y++ {
		src := a.offset(r.Min.Y+y, r.Min.X, 0)
		copy(out.Data[y*rowLen:(y+1)*rowLen], a.Data[src:src+rowLen])
	}
	return out, nil
}

// Values returns the buffer as float64, for statistics.
func (a *Array) Values() []float64 {
	out := make([]float64, len(a.Data))
	for i, v := range a.Data {
		out[i] = float64(v)
	}
	return out
}

// FromImage converts img to a 3-channel RGB array scaled to [-1, 1].
// Alpha is dropped.
func FromImage(img image.Image) *Array {
	b := img.Bounds()
	out := New(b.Dy(), b.Dx(), 3)
	pos := 0
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
			out.Data[pos] = float32(c.R)/127.5 - 1
			out.Data[pos+1] = float32(c.G)/127.5 - 1
			out.Data[pos+2] = float32(c.B)/127.5 - 1
			pos += 3
		}
	}
	return out
}

// ToImage renders the array for previews. Three channel arrays are read as
// RGB in [-1, 1]; single channel arrays as grayscale in [0, 1].
func (a *Array) ToImage() *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, a.Width, a.Height))
	for y := 0; y < a.Height; y++ {
		for x := 0; x < a.Width; x++ {
			var c color.NRGBA
			if a.Channels >= 3 {
				c = color.NRGBA{
					R: toByte((a.At(y, x, 0) + 1) / 2),
					G: toByte((a.At(y, x, 1) + 1) / 2),
					B: toByte((a.At(y, x, 2) + 1) / 2),
					A: 255,
				}
			} else {
				g := toByte(a.At(y, x, 0))
				c = color.NRGBA{R: g, G: g, B: g, A: 255}
			}
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}

func toByte(v float32) uint8 {
	v = float32(math.Round(float64(v * 255)))
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}
