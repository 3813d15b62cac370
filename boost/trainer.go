package boost

import (
	"math"

	"github.com/ezoic/glassboost/core/tensor"
	"github.com/ezoic/glassboost/pkg/errors"
	"github.com/ezoic/glassboost/pkg/log"
)

// Trainer is the boosting driver. Construct with InitializeRegression or
// InitializeClassification; all methods must be externally serialized.
type Trainer struct {
	st     *trainingState
	logger *log.Logger
}

// UpdateOptions parameterizes one update generation.
type UpdateOptions struct {
	// LearningRate scales the bag-averaged update before it is applied.
	LearningRate float64
	// MaxTreeSplits bounds the splits of a single-dimension fit.
	MaxTreeSplits int64
	// MinCasesForParentSplit is the minimum bag weight a segment needs
	// before it may be split further.
	MinCasesForParentSplit int64

	// TrainingWeights and ValidationWeights are reserved for per-case
	// weighting and must be nil.
	TrainingWeights   []float64
	ValidationWeights []float64
}

// InitializeRegression builds a regression trainer. Targets are real
// values; prediction scores are predicted reals and the validation metric is
// RMSE.
func InitializeRegression(p Params, training, validation DataSpec, opts ...Option) (*Trainer, error) {
	st, err := newTrainingState(p, 0, modeRegression, training, validation, opts)
	if err != nil {
		return nil, err
	}
	return &Trainer{st: st, logger: log.GetLoggerWithName("boost.trainer")}, nil
}

// InitializeClassification builds a classification trainer. Targets are
// class indexes in [0, classCount); prediction scores are log-odds (binary)
// or unnormalized log-weights (multiclass) and the validation metric is
// summed log loss. classCount <= 1 yields a degenerate trainer whose
// operations all succeed with empty results.
func InitializeClassification(p Params, classCount int64, training, validation DataSpec, opts ...Option) (*Trainer, error) {
	classes, ok := toHostCount(classCount)
	if !ok {
		return nil, errors.NewValueError("InitializeClassification", "class count does not fit the host address width")
	}
	mode := modeBinary
	if classes > 2 {
		mode = modeMulticlass
	}
	st, err := newTrainingState(p, classes, mode, training, validation, opts)
	if err != nil {
		return nil, err
	}
	return &Trainer{st: st, logger: log.GetLoggerWithName("boost.trainer")}, nil
}

// CombinationCount returns the number of model tensors.
func (t *Trainer) CombinationCount() int { return len(t.st.combos) }

// BestMetric returns the lowest validation metric seen so far; +Inf before
// the first improving step.
func (t *Trainer) BestMetric() float64 { return t.st.bestMetric }

// GenerateUpdate fits one candidate update for the given combination: one
// tree fit per inner bag accumulated, averaged, scaled by the learning rate,
// and expanded to the combination's full shape.
//
// The returned slice aliases trainer-internal scratch: it stays valid only
// until the next mutating call, and is meant to be handed straight to
// ApplyUpdate. The returned gain is the bag-averaged fit gain under the
// non-positive convention (zero-dimension fits contribute zero). A
// degenerate classification returns a nil update, gain zero, and no error.
func (t *Trainer) GenerateUpdate(combinationIndex int, opt UpdateOptions) ([]float64, float64, error) {
	st := t.st
	if st.degenerate() {
		return nil, 0, nil
	}
	if combinationIndex < 0 || combinationIndex >= len(st.combos) {
		return nil, 0, errors.NewValueError("GenerateUpdate", "combination index out of range")
	}
	if math.IsNaN(opt.LearningRate) || math.IsInf(opt.LearningRate, 0) {
		return nil, 0, errors.NewValueError("GenerateUpdate", "learning rate must be finite")
	}
	if opt.TrainingWeights != nil || opt.ValidationWeights != nil {
		return nil, 0, errors.NewModelError("Trainer", "per-case weights", errors.ErrNotImplemented)
	}
	maxSplits, ok := toHostCount(opt.MaxTreeSplits)
	if !ok {
		return nil, 0, errors.NewValueError("GenerateUpdate", "max tree splits must be a non-negative host-width integer")
	}
	minParentCases, ok := toHostCount(opt.MinCasesForParentSplit)
	if !ok {
		return nil, 0, errors.NewValueError("GenerateUpdate", "min cases for a parent split must be a non-negative host-width integer")
	}

	combo := st.combos[combinationIndex]
	dims := combo.Dimensions()

	if err := st.accumulated.SetDimCount(dims); err != nil {
		return nil, 0, err
	}
	st.accumulated.Reset()

	var totalGain float64
	if st.training != nil {
		if err := st.overwritePerBag.SetDimCount(dims); err != nil {
			return nil, 0, err
		}

		ctx := &FitContext{
			Combination:  combo,
			Residuals:    st.training.residuals,
			Resources:    st.resources,
			VectorLength: st.vectorLen,
			Regression:   st.mode == modeRegression,
			CaseCount:    st.training.caseCount,
		}
		if dims > 0 {
			// the bin column is identical across bags; decode it once
			decodePacked(st.training.packed[combo.index], combo, st.training.caseCount, st.resources.decodedBins)
			ctx.BinIndexes = st.resources.decodedBins[:st.training.caseCount]
		}

		bagCount := len(st.samplingSets)
		for _, set := range st.samplingSets {
			ctx.Sampling = set
			var gain float64
			var err error
			switch dims {
			case 0:
				err = st.learner.FitZeroDimensional(ctx, st.overwritePerBag)
			case 1:
				gain, err = st.learner.FitSingleDimensional(ctx, maxSplits, minParentCases, st.overwritePerBag)
			default:
				err = st.learner.FitMultiDimensional(ctx, st.overwritePerBag)
			}
			if err != nil {
				return nil, 0, errors.NewModelError("Trainer", "tree fit failed", err)
			}
			totalGain += gain
			if err := st.accumulated.Add(st.overwritePerBag); err != nil {
				return nil, 0, err
			}
		}
		totalGain /= float64(bagCount)

		// divide by the bag count and slow growth by the learning rate so
		// the more relevant combinations get the chance to grow first
		factor := opt.LearningRate / float64(bagCount)
		if st.mode == modeBinary && st.halvedBinaryUpdates {
			factor /= 2
		}
		st.accumulated.Multiply(factor)
	}

	// expand before returning so downstream lookups index directly instead
	// of searching divisions
	if err := st.accumulated.Expand(combo.Shape()); err != nil {
		return nil, 0, err
	}

	update, err := st.accumulated.ValuePointer()
	if err != nil {
		return nil, 0, err
	}
	return update, totalGain, nil
}

// ApplyUpdate folds an update tensor into the current model, refreshes the
// training residuals, scores the validation set, and promotes the best model
// when the metric improved. A nil update is a no-op returning metric zero.
func (t *Trainer) ApplyUpdate(combinationIndex int, update []float64) (float64, error) {
	st := t.st
	if update == nil || st.degenerate() {
		return 0, nil
	}
	if combinationIndex < 0 || combinationIndex >= len(st.combos) {
		return 0, errors.NewValueError("ApplyUpdate", "combination index out of range")
	}
	combo := st.combos[combinationIndex]

	if err := st.current[combinationIndex].AddExpanded(update); err != nil {
		return 0, err
	}

	if st.training != nil {
		st.applyUpdateToTraining(combo, update)
	}

	var metric float64
	if st.validation != nil {
		metric = st.applyUpdateToValidation(combo, update)

		// both log loss and RMSE are minimized
		if metric < st.bestMetric {
			st.bestMetric = metric
			for j := range st.best {
				if err := st.best[j].Copy(st.current[j]); err != nil {
					return 0, errors.NewModelError("Trainer", "best model promotion failed", err)
				}
			}
			t.logger.Debug("best model improved", "combination", combinationIndex, "metric", metric)
		}
	}
	return metric, nil
}

// Step composes GenerateUpdate and ApplyUpdate for one combination,
// discarding the gain and returning the validation metric.
func (t *Trainer) Step(combinationIndex int, opt UpdateOptions) (float64, error) {
	if t.st.degenerate() {
		return 0, nil
	}
	update, _, err := t.GenerateUpdate(combinationIndex, opt)
	if err != nil {
		return 0, err
	}
	return t.ApplyUpdate(combinationIndex, update)
}

// GetCurrentModel returns the dense value buffer of the current model tensor
// for one combination, laid out cell-major with VectorLength values per
// cell. The slice aliases trainer storage and is valid only until the next
// mutating call. A degenerate classification returns nil.
func (t *Trainer) GetCurrentModel(combinationIndex int) []float64 {
	return modelValues(t.st, t.st.current, combinationIndex)
}

// GetBestModel returns the dense value buffer of the best model seen by
// validation metric, with the same aliasing caveats as GetCurrentModel.
func (t *Trainer) GetBestModel(combinationIndex int) []float64 {
	return modelValues(t.st, t.st.best, combinationIndex)
}

func modelValues(st *trainingState, models []*tensor.Segmented, combinationIndex int) []float64 {
	if st.degenerate() || combinationIndex < 0 || combinationIndex >= len(models) {
		return nil
	}
	values, err := models[combinationIndex].ValuePointer()
	if err != nil {
		// models are expanded at allocation and stay expanded
		return nil
	}
	return values
}

// decodePacked unpacks a combined-bin column into out, stopping exactly at
// caseCount.
func decodePacked(words []uint64, combo *Combination, caseCount int, out []int) {
	itemsPerWord := combo.itemsPerWord
	shift := uint(combo.bitsPerItem)
	mask := combo.mask
	caseIndex := 0
	for _, word := range words {
		items := itemsPerWord
		if remaining := caseCount - caseIndex; remaining < items {
			items = remaining
		}
		for j := 0; j < items; j++ {
			out[caseIndex] = int(word & mask)
			word >>= shift
			caseIndex++
		}
	}
}
