package boost

import (
	"math"

	"github.com/ezoic/glassboost/core/bitpack"
	"github.com/ezoic/glassboost/pkg/errors"
)

// DataSpec carries one dataset across the trainer boundary.
//
// Inputs is a row-major caseCount x featureCount matrix of bin indexes.
// Exactly one of Targets (regression) or ClassTargets (classification) is
// consulted, per the initializer used. InitialScores, when present, seeds
// the prediction scores (length caseCount, or caseCount*classCount for
// multiclass); absent scores are zeros.
type DataSpec struct {
	Inputs        []int64
	Targets       []float64
	ClassTargets  []int64
	InitialScores []float64
}

// datasetOptions selects which per-case state a dataset materializes.
// Training sets always store residuals and, for classification, scores.
// Validation sets store residuals for regression and scores for
// classification.
type datasetOptions struct {
	storesResiduals bool
	storesScores    bool
}

type dataset struct {
	caseCount int
	// packed holds one bit-packed combined-bin column per combination;
	// scalar combinations carry nil.
	packed [][]uint64
	// targetsClass is nil in regression mode.
	targetsClass []int
	scores       []float64
	residuals    []float64
}

// newDataset packs the inputs per combination, validates targets, and seeds
// scores and residuals from the optional initial scores.
func newDataset(combos []*Combination, featureCount, caseCount int, spec DataSpec, mode learningMode, classCount, vectorLen, zeroResidualIndex int, opts datasetOptions) (*dataset, error) {
	if caseCount == 0 {
		return nil, nil
	}
	if len(spec.Inputs) != caseCount*featureCount {
		return nil, errors.NewDimensionError("Initialize", caseCount*featureCount, len(spec.Inputs), 0)
	}
	if len(spec.InitialScores) != 0 && len(spec.InitialScores) != caseCount*vectorLen {
		return nil, errors.NewDimensionError("Initialize", caseCount*vectorLen, len(spec.InitialScores), 0)
	}

	ds := &dataset{
		caseCount: caseCount,
		packed:    make([][]uint64, len(combos)),
	}

	bins := make([]int, caseCount)
	for i, combo := range combos {
		if combo.Dimensions() == 0 {
			continue
		}
		for c := 0; c < caseCount; c++ {
			bin, err := combo.combinedBin(spec.Inputs, featureCount, c)
			if err != nil {
				return nil, err
			}
			bins[c] = bin
		}
		words, err := bitpack.Pack(bins, combo.itemsPerWord)
		if err != nil {
			return nil, err
		}
		ds.packed[i] = words
	}

	switch mode {
	case modeRegression:
		if len(spec.Targets) != caseCount {
			return nil, errors.NewDimensionError("Initialize", caseCount, len(spec.Targets), 0)
		}
		for _, y := range spec.Targets {
			if math.IsNaN(y) || math.IsInf(y, 0) {
				return nil, errors.NewValueError("Initialize", "regression targets must be finite")
			}
		}
	default:
		if len(spec.ClassTargets) != caseCount {
			return nil, errors.NewDimensionError("Initialize", caseCount, len(spec.ClassTargets), 0)
		}
		ds.targetsClass = make([]int, caseCount)
		for c, y := range spec.ClassTargets {
			target, ok := toHostCount(y)
			if !ok || target >= classCount {
				return nil, errors.NewValueError("Initialize", "classification target out of class range")
			}
			ds.targetsClass[c] = target
		}
	}

	if opts.storesScores {
		ds.scores = make([]float64, caseCount*vectorLen)
		copy(ds.scores, spec.InitialScores)
	}
	if opts.storesResiduals {
		ds.residuals = make([]float64, caseCount*vectorLen)
		initResiduals(ds, spec, mode, vectorLen, zeroResidualIndex)
	}
	return ds, nil
}

// initResiduals seeds residuals from the targets and the initial scores.
func initResiduals(ds *dataset, spec DataSpec, mode learningMode, vectorLen, zeroResidualIndex int) {
	scoreAt := func(i int) float64 {
		if len(spec.InitialScores) == 0 {
			return 0
		}
		return spec.InitialScores[i]
	}
	switch mode {
	case modeRegression:
		for c := 0; c < ds.caseCount; c++ {
			ds.residuals[c] = spec.Targets[c] - scoreAt(c)
		}
	case modeBinary:
		for c := 0; c < ds.caseCount; c++ {
			ds.residuals[c] = binaryResidual(scoreAt(c), ds.targetsClass[c])
		}
	case modeMulticlass:
		for c := 0; c < ds.caseCount; c++ {
			var sumExp float64
			for k := 0; k < vectorLen; k++ {
				sumExp += math.Exp(scoreAt(c*vectorLen + k))
			}
			for k := 0; k < vectorLen; k++ {
				ds.residuals[c*vectorLen+k] = multiclassResidual(sumExp, scoreAt(c*vectorLen+k), ds.targetsClass[c], k)
			}
			if zeroResidualIndex >= 0 {
				ds.residuals[c*vectorLen+zeroResidualIndex] = 0
			}
		}
	}
}
