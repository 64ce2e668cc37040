package datasets

import (
	"github.com/gomlx/gomlx/pkg/core/tensors"
	"github.com/pkg/errors"
)

// ImageBatchFlat stores a batch of equally shaped arrays in one contiguous
// (Batch, Height, Width, Channels) buffer.
type ImageBatchFlat struct {
	Buf      []float32
	Batch    int
	Height   int
	Width    int
	Channels int
}

// MakeImageBatchFlat flattens the arrays stored under key in every example.
// All arrays must have the same shape.
func MakeImageBatchFlat(examples []Example, key string) (*ImageBatchFlat, error) {
	if len(examples) == 0 {
		return nil, errors.New("empty batch")
	}
	first, ok := examples[0].Array(key)
	if !ok {
		return nil, errors.Wrapf(ErrMissingKey, "example 0 of batch has no %q", key)
	}
	h, w, c := first.Height, first.Width, first.Channels
	size := h * w * c

	flat := make([]float32, len(examples)*size)
	for i, ex := range examples {
		a, ok := ex.Array(key)
		if !ok {
			return nil, errors.Wrapf(ErrMissingKey, "example %d of batch has no %q", i, key)
		}
		if a.Height != h || a.Width != w || a.Channels != c {
			return nil, errors.Errorf("inconsistent %q shapes: example 0 has %v, example %d has %v",
				key, first.Shape(), i, a.Shape())
		}
		copy(flat[i*size:], a.Data)
	}

	return &ImageBatchFlat{
		Buf:      flat,
		Batch:    len(examples),
		Height:   h,
		Width:    w,
		Channels: c,
	}, nil
}

// Dims returns {Batch, Height, Width, Channels}.
func (b *ImageBatchFlat) Dims() []int {
	return []int{b.Batch, b.Height, b.Width, b.Channels}
}

// ToGomlxTensor converts the batch to a float32 gomlx tensor shaped
// (Batch, Height, Width, Channels).
func (b *ImageBatchFlat) ToGomlxTensor() *tensors.Tensor {
	return tensors.FromFlatDataAndDimensions(b.Buf, b.Dims()...)
}
