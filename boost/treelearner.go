package boost

import (
	"github.com/ezoic/glassboost/core/tensor"
)

// FitContext is everything a tree learner sees for one bag of one
// combination. Residuals and BinIndexes alias trainer-owned storage and are
// read-only; the learner writes its result into the scratch tensor it is
// handed.
type FitContext struct {
	// Combination under fit. Dimensions() is 0 for a scalar fit.
	Combination *Combination
	// BinIndexes holds the combined bin index per training case; nil for a
	// scalar combination.
	BinIndexes []int
	// Residuals is the training residual buffer, case-major with
	// VectorLength entries per case.
	Residuals []float64
	// Sampling carries the bag multiplicities.
	Sampling *SamplingSet
	// Resources is the trainer's accumulation scratch.
	Resources *CachedResources
	// VectorLength is L: 1 for regression and binary, classCount for
	// multiclass.
	VectorLength int
	// Regression is true in regression mode. The default learner does not
	// read it: Resources' learning mode selects mean over Newton updates.
	Regression bool
	// CaseCount is the number of training cases.
	CaseCount int
}

// TreeLearner produces update tensors over bagged residuals. The driver
// calls the arity matching the combination's significant dimensionality;
// each call overwrites out with a compressed update tensor. Single-dimension
// fits also report a gain; by this driver's convention gain is non-positive
// (a loss reduction carries a negative sign).
type TreeLearner interface {
	FitZeroDimensional(ctx *FitContext, out *tensor.Segmented) error
	FitSingleDimensional(ctx *FitContext, maxSplits, minParentCases int, out *tensor.Segmented) (gain float64, err error)
	FitMultiDimensional(ctx *FitContext, out *tensor.Segmented) error
}

// histogramLearner is the default TreeLearner: per-bin residual and
// curvature accumulation weighted by bag multiplicity, greedy recursive
// splitting along a single dimension, and per-cell fits for
// multi-dimensional combinations.
type histogramLearner struct{}

// NewHistogramLearner returns the default tree learner.
func NewHistogramLearner() TreeLearner { return histogramLearner{} }

// segmentValue computes the update for one accumulated segment: the mean
// residual in regression mode, the Newton step sum/denominator otherwise.
func segmentValue(sum, denom float64) float64 {
	if denom <= 0 {
		return 0
	}
	return sum / denom
}

func (histogramLearner) FitZeroDimensional(ctx *FitContext, out *tensor.Segmented) error {
	res := ctx.Resources
	res.reset(1)
	for c := 0; c < ctx.CaseCount; c++ {
		res.accumulate(0, ctx.Residuals, c, ctx.Sampling.Multiplicity(c))
	}

	out.Reset()
	cell := out.MutableValues()
	for k := 0; k < ctx.VectorLength; k++ {
		cell[k] = segmentValue(res.binSums[k], res.binDenoms[k])
	}
	return nil
}

func (histogramLearner) FitSingleDimensional(ctx *FitContext, maxSplits, minParentCases int, out *tensor.Segmented) (float64, error) {
	states := ctx.Combination.Shape()[0]
	res := ctx.Resources
	res.reset(states)
	for c := 0; c < ctx.CaseCount; c++ {
		res.accumulate(ctx.BinIndexes[c], ctx.Residuals, c, ctx.Sampling.Multiplicity(c))
	}

	cuts, gain := greedySplit(res, states, maxSplits, minParentCases)

	out.Reset()
	if err := out.SetDivisions(0, cuts); err != nil {
		return 0, err
	}
	L := ctx.VectorLength
	values := make([]float64, (len(cuts)+1)*L)
	lo := 0
	for s := 0; s <= len(cuts); s++ {
		hi := states
		if s < len(cuts) {
			hi = cuts[s]
		}
		for k := 0; k < L; k++ {
			var sum, denom float64
			for b := lo; b < hi; b++ {
				sum += res.binSums[b*L+k]
				denom += res.binDenoms[b*L+k]
			}
			values[s*L+k] = segmentValue(sum, denom)
		}
		lo = hi
	}
	if err := out.SetValues(values); err != nil {
		return 0, err
	}
	return gain, nil
}

func (histogramLearner) FitMultiDimensional(ctx *FitContext, out *tensor.Segmented) error {
	states := ctx.Combination.TensorStates()
	res := ctx.Resources
	res.reset(states)
	for c := 0; c < ctx.CaseCount; c++ {
		res.accumulate(ctx.BinIndexes[c], ctx.Residuals, c, ctx.Sampling.Multiplicity(c))
	}

	out.Reset()
	for d, dimStates := range ctx.Combination.Shape() {
		cuts := make([]int, 0, dimStates-1)
		for c := 1; c < dimStates; c++ {
			cuts = append(cuts, c)
		}
		if err := out.SetDivisions(d, cuts); err != nil {
			return err
		}
	}
	L := ctx.VectorLength
	values := make([]float64, states*L)
	for b := 0; b < states; b++ {
		for k := 0; k < L; k++ {
			values[b*L+k] = segmentValue(res.binSums[b*L+k], res.binDenoms[b*L+k])
		}
	}
	return out.SetValues(values)
}

// segment is a half-open bin range [lo, hi) under split search.
type segment struct {
	lo, hi int
}

// segmentScore is the split criterion: sum over classes of sum^2/denom.
// Larger is better; the improvement of a split is the children's total score
// minus the parent's.
func segmentScore(res *CachedResources, lo, hi int) float64 {
	L := res.vectorLen
	var score float64
	for k := 0; k < L; k++ {
		var sum, denom float64
		for b := lo; b < hi; b++ {
			sum += res.binSums[b*L+k]
			denom += res.binDenoms[b*L+k]
		}
		if denom > 0 {
			score += sum * sum / denom
		}
	}
	return score
}

func segmentWeight(res *CachedResources, lo, hi int) float64 {
	var w float64
	for b := lo; b < hi; b++ {
		w += res.binWeights[b]
	}
	return w
}

// greedySplit repeatedly takes the best remaining split until the budget is
// exhausted or no split improves. Returns the sorted division points and the
// total gain under the non-positive convention.
func greedySplit(res *CachedResources, states, maxSplits, minParentCases int) ([]int, float64) {
	segments := []segment{{0, states}}
	var cuts []int
	var totalImprovement float64

	for len(cuts) < maxSplits {
		bestImprovement := 0.0
		bestSeg := -1
		bestCut := 0
		for si, seg := range segments {
			if seg.hi-seg.lo < 2 {
				continue
			}
			if segmentWeight(res, seg.lo, seg.hi) < float64(minParentCases) {
				continue
			}
			parent := segmentScore(res, seg.lo, seg.hi)
			for cut := seg.lo + 1; cut < seg.hi; cut++ {
				improvement := segmentScore(res, seg.lo, cut) + segmentScore(res, cut, seg.hi) - parent
				if improvement > bestImprovement {
					bestImprovement = improvement
					bestSeg = si
					bestCut = cut
				}
			}
		}
		if bestSeg < 0 {
			break
		}
		seg := segments[bestSeg]
		segments[bestSeg] = segment{seg.lo, bestCut}
		segments = append(segments, segment{bestCut, seg.hi})
		cuts = insertSorted(cuts, bestCut)
		totalImprovement += bestImprovement
	}
	return cuts, -totalImprovement
}

func insertSorted(cuts []int, cut int) []int {
	pos := len(cuts)
	for i, c := range cuts {
		if cut < c {
			pos = i
			break
		}
	}
	cuts = append(cuts, 0)
	copy(cuts[pos+1:], cuts[pos:])
	cuts[pos] = cut
	return cuts
}

// ensure the default learner satisfies the interface
var _ TreeLearner = histogramLearner{}
