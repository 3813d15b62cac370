package boost

import "math"

// applyUpdateToTraining applies an expanded update tensor to the training
// set. In classification, prediction scores move by the update for the
// case's bin and residuals are recomputed under the active loss; in
// regression the residuals are reduced by the update directly (no scores
// are stored).
//
// The mode, vector length, shift amount, and mask are all fixed before the
// loops start; nothing inside the per-case body branches on them beyond the
// single mode dispatch below.
func (st *trainingState) applyUpdateToTraining(combo *Combination, update []float64) {
	ds := st.training
	if combo.Dimensions() == 0 {
		st.applyScalarToTraining(ds, update)
		return
	}

	L := st.vectorLen
	itemsPerWord := combo.itemsPerWord
	shift := uint(combo.bitsPerItem)
	mask := combo.mask

	words := ds.packed[combo.index]
	caseIndex := 0
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
				ds.residuals[caseIndex] = computeRegressionResidual(ds.residuals[caseIndex] - update[bin])
				caseIndex++
			}
		}
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
				ds.residuals[caseIndex] = binaryResidual(score, ds.targetsClass[caseIndex])
				caseIndex++
			}
		}
	case modeMulticlass:
		for _, word := range words {
			items := itemsPerWord
			if remaining := ds.caseCount - caseIndex; remaining < items {
				items = remaining
			}
			for j := 0; j < items; j++ {
				bin := int(word & mask)
				word >>= shift
				st.applyMulticlassCase(ds, caseIndex, update[bin*L:(bin+1)*L])
				caseIndex++
			}
		}
	}
}

// applyScalarToTraining is the zero-dimension fast path: a single update
// cell applies to every case.
func (st *trainingState) applyScalarToTraining(ds *dataset, update []float64) {
	switch st.mode {
	case modeRegression:
		u := update[0]
		for c := 0; c < ds.caseCount; c++ {
			ds.residuals[c] = computeRegressionResidual(ds.residuals[c] - u)
		}
	case modeBinary:
		u := update[0]
		for c := 0; c < ds.caseCount; c++ {
			score := ds.scores[c] + u
			ds.scores[c] = score
			ds.residuals[c] = binaryResidual(score, ds.targetsClass[c])
		}
	case modeMulticlass:
		for c := 0; c < ds.caseCount; c++ {
			st.applyMulticlassCase(ds, c, update)
		}
	}
}

// applyMulticlassCase moves one case's class scores by the update cell and
// recomputes its softmax residuals, forcing the zero-residual slot when
// configured.
func (st *trainingState) applyMulticlassCase(ds *dataset, caseIndex int, cell []float64) {
	L := st.vectorLen
	base := caseIndex * L
	var sumExp float64
	for k := 0; k < L; k++ {
		score := ds.scores[base+k] + cell[k]
		ds.scores[base+k] = score
		sumExp += math.Exp(score)
	}
	target := ds.targetsClass[caseIndex]
	for k := 0; k < L; k++ {
		ds.residuals[base+k] = multiclassResidual(sumExp, ds.scores[base+k], target, k)
	}
	if st.zeroResidualIndex >= 0 {
		ds.residuals[base+st.zeroResidualIndex] = 0
	}
}
