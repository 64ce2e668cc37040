package datasets

import (
	"sort"

	"github.com/pkg/errors"
)

// ConcatWithIndex chains several sources. Every example it returns carries
// the index of the source it came from under "class", e.g. CelebAHQ = 0 and
// FFHQ = 1 when building a combined faces dataset.
type ConcatWithIndex struct {
	sources []Source

	// cumCounts[i] is the number of examples in sources[:i].
	cumCounts []int
}

var _ Source = (*ConcatWithIndex)(nil)

// NewConcatWithIndex chains sources in order. Source lengths are read once.
func NewConcatWithIndex(sources ...Source) *ConcatWithIndex {
	c := &ConcatWithIndex{
		sources:   sources,
		cumCounts: make([]int, len(sources)+1),
	}
	for i, src := range sources {
		c.cumCounts[i+1] = c.cumCounts[i] + src.Len()
	}
	return c
}

// Len returns the total number of examples.
func (c *ConcatWithIndex) Len() int { return c.cumCounts[len(c.sources)] }

// Locate maps a global index to (source index, index within that source).
func (c *ConcatWithIndex) Locate(i int) (sourceIdx, localIdx int, err error) {
	if err = checkIndex(i, c.Len()); err != nil {
		return
	}
	// First source whose cumulative end is past i.
	sourceIdx = sort.SearchInts(c.cumCounts[1:], i+1)
	localIdx = i - c.cumCounts[sourceIdx]
	return
}

// Example returns example i with its source index under "class".
func (c *ConcatWithIndex) Example(i int) (Example, error) {
	sourceIdx, localIdx, err := c.Locate(i)
	if err != nil {
		return nil, err
	}
	ex, err := c.sources[sourceIdx].Example(localIdx)
	if err != nil {
		return nil, errors.WithMessagef(err, "source %d", sourceIdx)
	}
	ex[KeyClass] = sourceIdx
	return ex, nil
}
