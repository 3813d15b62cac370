package boost

import "math"

// applyUpdateToValidation applies an expanded update tensor to the
// validation set and returns the resulting metric: RMSE for regression,
// summed log loss for classification.
//
// Regression validation sets track residuals (no scores); classification
// validation sets track scores (no residuals). Both are swept with the same
// bit-packed traversal as the training update.
func (st *trainingState) applyUpdateToValidation(combo *Combination, update []float64) float64 {
	ds := st.validation
	if combo.Dimensions() == 0 {
		return st.applyScalarToValidation(ds, update)
	}

	L := st.vectorLen
	itemsPerWord := combo.itemsPerWord
	shift := uint(combo.bitsPerItem)
	mask := combo.mask

	words := ds.packed[combo.index]
	caseIndex := 0
	var metric float64
	switch st.mode {
	case modeRegression:
		for _, word := range words {
			items := itemsPerWord
			if remaining := ds.caseCount - caseIndex; remaining < items {
				items = remaining
			}
			for j := 0; j < items; j++ {
				bin := int(word & mask)
				word >>= shift
				residual := computeRegressionResidual(ds.residuals[caseIndex] - update[bin])
				ds.residuals[caseIndex] = residual
				metric += residual * residual
				caseIndex++
			}
		}
		return math.Sqrt(metric / float64(ds.caseCount))
	case modeBinary:
		for _, word := range words {
			items := itemsPerWord
			if remaining := ds.caseCount - caseIndex; remaining < items {
				items = remaining
			}
			for j := 0; j < items; j++ {
				bin := int(word & mask)
				word >>= shift
				score := ds.scores[caseIndex] + update[bin]
				ds.scores[caseIndex] = score
				metric += binaryLogLossTerm(score, ds.targetsClass[caseIndex])
				caseIndex++
			}
		}
		return metric
	default:
		for _, word := range words {
			items := itemsPerWord
			if remaining := ds.caseCount - caseIndex; remaining < items {
				items = remaining
			}
			for j := 0; j < items; j++ {
				bin := int(word & mask)
				word >>= shift
				metric += st.applyMulticlassValidationCase(ds, caseIndex, update[bin*L:(bin+1)*L])
				caseIndex++
			}
		}
		return metric
	}
}

func (st *trainingState) applyScalarToValidation(ds *dataset, update []float64) float64 {
	var metric float64
	switch st.mode {
	case modeRegression:
		u := update[0]
		for c := 0; c < ds.caseCount; c++ {
			residual := computeRegressionResidual(ds.residuals[c] - u)
			ds.residuals[c] = residual
			metric += residual * residual
		}
		return math.Sqrt(metric / float64(ds.caseCount))
	case modeBinary:
		u := update[0]
		for c := 0; c < ds.caseCount; c++ {
			score := ds.scores[c] + u
			ds.scores[c] = score
			metric += binaryLogLossTerm(score, ds.targetsClass[c])
		}
		return metric
	default:
		for c := 0; c < ds.caseCount; c++ {
			metric += st.applyMulticlassValidationCase(ds, c, update)
		}
		return metric
	}
}

// applyMulticlassValidationCase moves one validation case's scores and
// returns its log-loss term.
func (st *trainingState) applyMulticlassValidationCase(ds *dataset, caseIndex int, cell []float64) float64 {
	L := st.vectorLen
	base := caseIndex * L
	var sumExp float64
	for k := 0; k < L; k++ {
		score := ds.scores[base+k] + cell[k]
		ds.scores[base+k] = score
		sumExp += math.Exp(score)
	}
	return multiclassLogLossTerm(sumExp, ds.scores[base+ds.targetsClass[caseIndex]])
}
