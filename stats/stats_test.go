package stats

import (
	"math"
	"testing"

	"github.com/Noofbiz/objectData/augment"
	"github.com/Noofbiz/objectData/datasets"
	"github.com/Noofbiz/objectData/pixels"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// rampSource yields 2x2x1 images holding i, i+1, i+2, i+3 plus a coord grid.
type rampSource struct{ n int }

func (r rampSource) Len() int { return r.n }

func (r rampSource) Example(i int) (datasets.Example, error) {
	img := pixels.New(2, 2, 1)
	for j := range img.Data {
		img.Data[j] = float32(i + j)
	}
	return datasets.Example{
		datasets.KeyImage:    img,
		datasets.KeyCoord:    augment.CoordGrid(2, 2),
		datasets.KeyFilePath: "ignored",
	}, nil
}

func TestSummarize(t *testing.T) {
	calls := 0
	s, err := Summarize(rampSource{n: 3}, 0, func() { calls++ })
	require.NoError(t, err)
	assert.Equal(t, 3, s.Examples)
	assert.Equal(t, 3, calls)
	assert.Equal(t, []string{datasets.KeyCoord, datasets.KeyImage}, s.SortedKeys())

	img := s.Keys[datasets.KeyImage]
	assert.Equal(t, 12, img.Count)
	assert.Equal(t, 3, img.Examples)
	assert.InDelta(t, 2.5, img.Mean, 1e-9)
	assert.Equal(t, 0.0, img.Min)
	assert.Equal(t, 5.0, img.Max)
	assert.Equal(t, map[string]int{"2x2x1": 3}, img.Shapes)

	// Values: 0..3, 1..4, 2..5.
	all := []float64{0, 1, 2, 3, 1, 2, 3, 4, 2, 3, 4, 5}
	var ss float64
	for _, v := range all {
		ss += (v - 2.5) * (v - 2.5)
	}
	assert.InDelta(t, math.Sqrt(ss/11), img.Std, 1e-9)

	coord := s.Keys[datasets.KeyCoord]
	assert.GreaterOrEqual(t, coord.Min, 0.0)
	assert.Less(t, coord.Max, 1.0)
}

func TestSummarize_Limit(t *testing.T) {
	s, err := Summarize(rampSource{n: 10}, 2, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, s.Examples)
	assert.Equal(t, 3.0, s.Keys[datasets.KeyImage].Max)
}

func TestHistogram(t *testing.T) {
	values, err := Histogram(rampSource{n: 2}, datasets.KeyImage, 0, 2)
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 2, 1, 3}, values)

	_, err = Histogram(rampSource{n: 1}, datasets.KeyClass, 0, 1)
	assert.ErrorIs(t, err, datasets.ErrMissingKey)
}

func TestShapeString(t *testing.T) {
	assert.Equal(t, "64x64x3", ShapeString([]int{64, 64, 3}))
}
