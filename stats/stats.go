// Package stats summarizes the pixel arrays produced by a datasets.Source,
// to sanity check value ranges and shapes before training.
package stats

import (
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/Noofbiz/objectData/datasets"
	"github.com/Noofbiz/objectData/pixels"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// KeyStats holds the statistics of one example key over all values of all
// summarized examples.
type KeyStats struct {
	Key string

	// Examples that carried the key, and the total number of values.
	Examples int
	Count    int

	Mean, Std, Min, Max float64

	// Shapes maps "HxWxC" to the number of examples with that shape.
	Shapes map[string]int

	// Running pooled moments: sum of n_i*mean_i and of (n_i-1)*var_i + n_i*mean_i^2.
	sum, sumSq float64
}

// Summary is the result of Summarize.
type Summary struct {
	// Examples visited.
	Examples int
	Keys     map[string]*KeyStats
}

// SortedKeys returns the summarized keys in lexicographic order.
func (s *Summary) SortedKeys() []string {
	keys := make([]string, 0, len(s.Keys))
	for k := range s.Keys {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// ShapeString formats a shape as "HxWxC".
func ShapeString(shape []int) string {
	parts := make([]string, len(shape))
	for i, d := range shape {
		parts[i] = fmt.Sprint(d)
	}
	return strings.Join(parts, "x")
}

// Summarize computes per key statistics of the pixel arrays of the first n
// examples of src (all of them if n <= 0 or n > src.Len()). Non array
// values, like "class" or "file_path_", are skipped.
//
// progress, if not nil, is called after every example.
func Summarize(src datasets.Source, n int, progress func()) (*Summary, error) {
	if n <= 0 || n > src.Len() {
		n = src.Len()
	}
	s := &Summary{Keys: make(map[string]*KeyStats)}
	for i := range n {
		ex, err := src.Example(i)
		if err != nil {
			return nil, errors.WithMessagef(err, "summarizing example %d", i)
		}
		for key, v := range ex {
			arr, ok := v.(*pixels.Array)
			if !ok || arr == nil || len(arr.Data) == 0 {
				continue
			}
			ks, found := s.Keys[key]
			if !found {
				ks = &KeyStats{Key: key, Min: math.Inf(1), Max: math.Inf(-1), Shapes: make(map[string]int)}
				s.Keys[key] = ks
			}
			ks.add(arr)
		}
		s.Examples++
		if progress != nil {
			progress()
		}
	}
	for _, ks := range s.Keys {
		ks.finish()
	}
	return s, nil
}

func (ks *KeyStats) add(arr *pixels.Array) {
	values := arr.Values()
	mean, variance := stat.MeanVariance(values, nil)
	if len(values) < 2 {
		variance = 0
	}
	cnt := float64(len(values))
	ks.sum += cnt * mean
	ks.sumSq += (cnt-1)*variance + cnt*mean*mean
	ks.Min = math.Min(ks.Min, floats.Min(values))
	ks.Max = math.Max(ks.Max, floats.Max(values))
	ks.Count += len(values)
	ks.Examples++
	ks.Shapes[ShapeString(arr.Shape())]++
}

func (ks *KeyStats) finish() {
	if ks.Count == 0 {
		return
	}
	cnt := float64(ks.Count)
	ks.Mean = ks.sum / cnt
	if ks.Count > 1 {
		variance := (ks.sumSq - cnt*ks.Mean*ks.Mean) / (cnt - 1)
		ks.Std = math.Sqrt(math.Max(variance, 0))
	}
}

// Histogram returns the values of key over the first n examples of src,
// sampled with the given stride (every value when stride <= 1), ready to be
// plotted.
func Histogram(src datasets.Source, key string, n, stride int) ([]float64, error) {
	if n <= 0 || n > src.Len() {
		n = src.Len()
	}
	stride = max(stride, 1)
	var values []float64
	for i := range n {
		ex, err := src.Example(i)
		if err != nil {
			return nil, errors.WithMessagef(err, "histogram of example %d", i)
		}
		arr, ok := ex.Array(key)
		if !ok {
			return nil, errors.Wrapf(datasets.ErrMissingKey, "example %d has no %q", i, key)
		}
		for j := 0; j < len(arr.Data); j += stride {
			values = append(values, float64(arr.Data[j]))
		}
	}
	return values, nil
}
