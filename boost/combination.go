package boost

import (
	"github.com/ezoic/glassboost/core/bitpack"
	"github.com/ezoic/glassboost/pkg/errors"
)

// Combination is an ordered set of significant features whose cross-product
// indexes one model tensor. Features with a single state are dropped at
// construction: they add no information and would only waste tensor cells.
type Combination struct {
	index    int
	features []*feature
	shape    []int
	// tensorStates is the product of the shape, i.e. the number of cells of
	// the expanded tensor.
	tensorStates int

	// bit packing of the combined bin index
	itemsPerWord int
	bitsPerItem  int
	mask         uint64
}

// Dimensions returns the significant dimensionality. Zero means the
// combination is scalar: its tensor has a single cell.
func (c *Combination) Dimensions() int { return len(c.features) }

// Shape returns the per-dimension state counts. The slice aliases internal
// storage and must not be mutated.
func (c *Combination) Shape() []int { return c.shape }

// TensorStates returns the number of cells of the expanded tensor.
func (c *Combination) TensorStates() int { return c.tensorStates }

func buildCombinations(features []feature, lists [][]int) ([]*Combination, error) {
	combos := make([]*Combination, len(lists))
	for i, list := range lists {
		combo := &Combination{index: i, tensorStates: 1}
		for _, fi := range list {
			if fi < 0 || fi >= len(features) {
				return nil, errors.NewValueError("Initialize", "combination references a feature out of range")
			}
			f := &features[fi]
			if f.binCount <= 1 {
				// single-state features collapse out of the tensor
				continue
			}
			combo.features = append(combo.features, f)
			combo.shape = append(combo.shape, f.binCount)
			if combo.tensorStates > int(^uint(0)>>1)/f.binCount {
				return nil, errors.NewAllocationError("Initialize", "combination tensor state count overflows")
			}
			combo.tensorStates *= f.binCount
		}
		if len(combo.features) > MaxDimensions {
			return nil, errors.NewValueError("Initialize", "combination dimensionality exceeds the maximum")
		}
		if len(combo.features) > 0 {
			bitsRequired := bitpack.CountBitsRequired(uint64(combo.tensorStates - 1))
			combo.itemsPerWord = bitpack.ItemsPerWord(bitsRequired)
			combo.bitsPerItem = bitpack.BitsPerItem(combo.itemsPerWord)
			combo.mask = bitpack.Mask(combo.bitsPerItem)
		}
		combos[i] = combo
	}
	return combos, nil
}

// combinedBin computes the packed bin index of one case: dimension 0 varies
// fastest, matching the expanded tensor layout.
func (c *Combination) combinedBin(inputs []int64, featureCount, caseIndex int) (int, error) {
	bin := 0
	stride := 1
	row := inputs[caseIndex*featureCount : (caseIndex+1)*featureCount]
	for d, f := range c.features {
		v, ok := toHostCount(row[f.index])
		if !ok || v >= f.binCount {
			return 0, errors.NewValueError("Initialize", "input bin index out of range")
		}
		bin += v * stride
		stride *= c.shape[d]
	}
	return bin, nil
}
