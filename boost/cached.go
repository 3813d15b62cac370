package boost

// CachedResources is the per-trainer scratch the tree learners accumulate
// into. It is allocated once at initialization, sized to the largest
// combination, and reused for every fit. The two variants of the sum type
// share storage; mode discriminates which accumulation rules apply.
type CachedResources struct {
	mode      learningMode
	vectorLen int

	// binSums holds per-bin residual sums, bin-major: binSums[bin*L+k].
	binSums []float64
	// binDenoms holds per-bin Newton denominators (classification) or bag
	// weights replicated per class (regression).
	binDenoms []float64
	// binWeights holds per-bin case weights (sums of bag multiplicities).
	binWeights []float64

	// decodedBins caches the unpacked combined-bin column of the training
	// set for the combination currently being fit; it is shared by all bags
	// of one GenerateUpdate call.
	decodedBins []int
}

func newCachedResources(mode learningMode, vectorLen, maxTensorStates, trainingCases int) *CachedResources {
	if maxTensorStates < 1 {
		maxTensorStates = 1
	}
	return &CachedResources{
		mode:        mode,
		vectorLen:   vectorLen,
		binSums:     make([]float64, maxTensorStates*vectorLen),
		binDenoms:   make([]float64, maxTensorStates*vectorLen),
		binWeights:  make([]float64, maxTensorStates),
		decodedBins: make([]int, trainingCases),
	}
}

// reset zeroes the first bins accumulator cells.
func (r *CachedResources) reset(bins int) {
	for i := 0; i < bins*r.vectorLen; i++ {
		r.binSums[i] = 0
		r.binDenoms[i] = 0
	}
	for i := 0; i < bins; i++ {
		r.binWeights[i] = 0
	}
}

// accumulate folds one case into bin: the residual sums, the Newton
// denominators, and the case weight, all scaled by the bag multiplicity.
func (r *CachedResources) accumulate(bin int, residuals []float64, caseIndex, multiplicity int) {
	if multiplicity == 0 {
		return
	}
	w := float64(multiplicity)
	base := bin * r.vectorLen
	caseBase := caseIndex * r.vectorLen
	for k := 0; k < r.vectorLen; k++ {
		res := residuals[caseBase+k]
		r.binSums[base+k] += w * res
		if r.mode == modeRegression {
			r.binDenoms[base+k] += w
		} else {
			r.binDenoms[base+k] += w * newtonDenominator(res)
		}
	}
	r.binWeights[bin] += w
}
