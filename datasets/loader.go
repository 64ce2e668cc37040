package datasets

import (
	"io"
	"math/rand"
	"sync"
	"time"

	"github.com/gomlx/gomlx/pkg/core/tensors"
	"github.com/gomlx/gomlx/pkg/ml/train"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// LoaderOptions configures a Loader.
type LoaderOptions struct {
	// BatchSize of every Yield. Defaults to 32.
	BatchSize int

	// Shuffle the example order at every Reset (and at every wrap around
	// when Infinite).
	Shuffle bool

	// Seed of the shuffling. Zero seeds from the clock.
	Seed int64

	// Infinite loops over the source forever instead of returning io.EOF at
	// the end of an epoch. Typically used with train.Loop.RunSteps.
	Infinite bool

	// DropRemainder skips the last, smaller batch of an epoch.
	DropRemainder bool
}

// Loader batches a Source into gomlx tensors. It implements train.Dataset
// so it can be used by a train.Loop, and it is safe to use from
// datasets.Parallel: only the selection of indices is serialized, examples
// are decoded concurrently.
type Loader struct {
	name string
	src  Source
	opts LoaderOptions

	// mu protects rand, order and pos.
	mu    sync.Mutex
	rand  *rand.Rand
	order []int
	pos   int
}

var (
	_ train.Dataset = (*Loader)(nil)
	_ Dataset       = (*Loader)(nil)
)

// NewLoader creates a Loader over src.
func NewLoader(name string, src Source, opts LoaderOptions) *Loader {
	if opts.BatchSize <= 0 {
		opts.BatchSize = 32
	}
	seed := opts.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	l := &Loader{
		name: name,
		src:  src,
		opts: opts,
		rand: rand.New(rand.NewSource(seed)),
	}
	l.Reset()
	return l
}

// Name implements train.Dataset.
func (l *Loader) Name() string { return l.name }

// Len returns the number of examples of the source.
func (l *Loader) Len() int { return l.src.Len() }

// Example returns example i of the source.
func (l *Loader) Example(i int) (Example, error) { return l.src.Example(i) }

// BatchSize returns the configured batch size.
func (l *Loader) BatchSize() int { return l.opts.BatchSize }

// Reset implements train.Dataset. It restarts the epoch and reshuffles when
// shuffling is enabled.
func (l *Loader) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.resetLocked()
}

func (l *Loader) resetLocked() {
	n := l.src.Len()
	if len(l.order) != n {
		l.order = make([]int, n)
	}
	for i := range l.order {
		l.order[i] = i
	}
	if l.opts.Shuffle {
		l.rand.Shuffle(n, func(i, j int) {
			l.order[i], l.order[j] = l.order[j], l.order[i]
		})
	}
	l.pos = 0
	klog.V(2).Infof("datasets: loader %q reset, %d examples, shuffle=%v", l.name, n, l.opts.Shuffle)
}

// Shuffle reseeds the loader and restarts the epoch with a new shuffled
// order, regardless of LoaderOptions.Shuffle.
func (l *Loader) Shuffle(seed int64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.rand = rand.New(rand.NewSource(seed))
	shuffle := l.opts.Shuffle
	l.opts.Shuffle = true
	l.resetLocked()
	l.opts.Shuffle = shuffle
}

// nextIndices selects the example indices of the next batch.
func (l *Loader) nextIndices() ([]int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	n := len(l.order)
	if n == 0 {
		if l.opts.Infinite {
			return nil, errors.Errorf("loader %q: infinite loader over an empty dataset", l.name)
		}
		return nil, io.EOF
	}
	batchSize := l.opts.BatchSize
	indices := make([]int, 0, batchSize)
	for len(indices) < batchSize {
		if l.pos >= n {
			if !l.opts.Infinite {
				break
			}
			l.resetLocked()
		}
		indices = append(indices, l.order[l.pos])
		l.pos++
	}
	if len(indices) == 0 || (l.opts.DropRemainder && len(indices) < batchSize) {
		return nil, io.EOF
	}
	return indices, nil
}

// Batch reads the examples at indices.
func (l *Loader) Batch(indices []int) ([]Example, error) {
	examples := make([]Example, len(indices))
	for i, idx := range indices {
		ex, err := l.src.Example(idx)
		if err != nil {
			return nil, err
		}
		examples[i] = ex
	}
	return examples, nil
}

// Yield implements train.Dataset. It returns:
//
//   - spec: the Loader itself.
//   - inputs: the images batch shaped (batch_size, height, width, channels),
//     followed by the coord batch shaped (batch_size, height, width, 1) when
//     the examples carry one.
//   - labels: the "class" of each example as int32 shaped (batch_size) when
//     present, otherwise the example indices.
//
// At the end of an epoch it returns io.EOF, unless the loader is infinite.
func (l *Loader) Yield() (spec any, inputs []*tensors.Tensor, labels []*tensors.Tensor, err error) {
	indices, err := l.nextIndices()
	if err != nil {
		return nil, nil, nil, err
	}
	examples, err := l.Batch(indices)
	if err != nil {
		return nil, nil, nil, errors.WithMessagef(err, "loader %q", l.name)
	}
	inputs, labels, err = Tensors(examples, indices)
	if err != nil {
		return nil, nil, nil, errors.WithMessagef(err, "loader %q", l.name)
	}
	return l, inputs, labels, nil
}

// Tensors converts a batch of examples to the inputs and labels yielded by
// Loader. indices are used as labels when the examples have no "class".
func Tensors(examples []Example, indices []int) (inputs, labels []*tensors.Tensor, err error) {
	images, err := MakeImageBatchFlat(examples, KeyImage)
	if err != nil {
		return nil, nil, err
	}
	inputs = []*tensors.Tensor{images.ToGomlxTensor()}
	if _, ok := examples[0].Coord(); ok {
		coords, err := MakeImageBatchFlat(examples, KeyCoord)
		if err != nil {
			return nil, nil, err
		}
		inputs = append(inputs, coords.ToGomlxTensor())
	}

	ids := make([]int32, len(examples))
	if _, ok := examples[0].Class(); ok {
		for i, ex := range examples {
			class, ok := ex.Class()
			if !ok {
				return nil, nil, errors.Wrapf(ErrMissingKey, "example %d of batch has no %q", i, KeyClass)
			}
			ids[i] = int32(class)
		}
	} else {
		if len(indices) != len(examples) {
			return nil, nil, errors.Errorf("%d indices for %d examples", len(indices), len(examples))
		}
		for i, idx := range indices {
			ids[i] = int32(idx)
		}
	}
	labels = []*tensors.Tensor{tensors.FromFlatDataAndDimensions(ids, len(ids))}
	return inputs, labels, nil
}
