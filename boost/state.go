package boost

import (
	"math"
	"math/rand/v2"

	"github.com/ezoic/glassboost/core/tensor"
	"github.com/ezoic/glassboost/pkg/errors"
	"github.com/ezoic/glassboost/pkg/log"
)

// Params carries the trainer-wide configuration across the boundary.
type Params struct {
	// Seed drives the bootstrap sampling.
	Seed int64
	// Features describes every input feature.
	Features []FeatureSpec
	// Combinations lists, per model tensor, the indexes into Features whose
	// cross-product the tensor covers. An empty list is a scalar
	// combination (an intercept table).
	Combinations [][]int
	// InnerBagCount is the number of bootstrap bags fit per update. Zero
	// means one unbagged fit over the full training data.
	InnerBagCount int64
}

// Option adjusts trainer construction.
type Option func(*trainingState)

// WithTreeLearner replaces the default histogram learner.
func WithTreeLearner(learner TreeLearner) Option {
	return func(st *trainingState) { st.learner = learner }
}

// WithZeroResidualIndex pins the residual of one class to zero after every
// multiclass update, removing the softmax's redundant degree of freedom.
// Negative disables the constraint (the default).
func WithZeroResidualIndex(index int) Option {
	return func(st *trainingState) { st.zeroResidualIndex = index }
}

// WithHalvedBinaryUpdates applies an extra factor of 1/2 to binary
// classification updates, keeping the per-class-direction learning rate
// invariant to an expanded two-logit representation.
func WithHalvedBinaryUpdates() Option {
	return func(st *trainingState) { st.halvedBinaryUpdates = true }
}

// trainingState owns everything a trainer holds: features, combinations,
// datasets, sampling sets, the current and best models, the update scratch
// tensors, and the cached learner resources. It is built in one initialize
// call; a failure anywhere discards the whole state.
type trainingState struct {
	mode       learningMode
	classCount int
	vectorLen  int

	features []feature
	combos   []*Combination

	training   *dataset
	validation *dataset

	samplingSets []*SamplingSet

	current []*tensor.Segmented
	best    []*tensor.Segmented

	bestMetric float64

	// scratch update tensors, invalidated by every GenerateUpdate
	overwritePerBag *tensor.Segmented
	accumulated     *tensor.Segmented

	resources *CachedResources
	learner   TreeLearner

	zeroResidualIndex   int
	halvedBinaryUpdates bool
}

// degenerate reports the single-class classification case: the model is
// empty and every driver operation short-circuits.
func (st *trainingState) degenerate() bool {
	return st.mode != modeRegression && st.classCount <= 1
}

func newTrainingState(p Params, classCount int, mode learningMode, training, validation DataSpec, opts []Option) (*trainingState, error) {
	logger := log.GetLoggerWithName("boost.state")

	st := &trainingState{
		mode:              mode,
		classCount:        classCount,
		bestMetric:        math.Inf(1),
		learner:           NewHistogramLearner(),
		zeroResidualIndex: -1,
	}
	for _, opt := range opts {
		opt(st)
	}

	innerBags, ok := toHostCount(p.InnerBagCount)
	if !ok {
		return nil, errors.NewValueError("Initialize", "inner bag count does not fit the host address width")
	}

	switch mode {
	case modeRegression:
		st.vectorLen = 1
	case modeBinary:
		st.vectorLen = 1
	case modeMulticlass:
		st.vectorLen = classCount
	}
	if st.zeroResidualIndex >= st.vectorLen {
		return nil, errors.NewValueError("Initialize", "zero residual index out of class range")
	}

	if st.degenerate() {
		// a single target state is predictable with certainty: no model, no
		// datasets, every operation short-circuits
		logger.Warn("classification with at most one class; trainer is degenerate")
		return st, nil
	}

	features, err := buildFeatures(p.Features)
	if err != nil {
		return nil, err
	}
	st.features = features

	combos, err := buildCombinations(features, p.Combinations)
	if err != nil {
		return nil, err
	}
	st.combos = combos

	trainingCases := specCaseCount(training, mode)
	validationCases := specCaseCount(validation, mode)

	trainingOpts := datasetOptions{storesResiduals: true, storesScores: mode != modeRegression}
	validationOpts := datasetOptions{storesResiduals: mode == modeRegression, storesScores: mode != modeRegression}

	st.training, err = newDataset(combos, len(features), trainingCases, training, mode, classCount, st.vectorLen, st.zeroResidualIndex, trainingOpts)
	if err != nil {
		return nil, err
	}
	st.validation, err = newDataset(combos, len(features), validationCases, validation, mode, classCount, st.vectorLen, st.zeroResidualIndex, validationOpts)
	if err != nil {
		return nil, err
	}

	if st.training != nil {
		rng := rand.New(rand.NewPCG(uint64(p.Seed), uint64(p.Seed)+1))
		st.samplingSets = generateSamplingSets(rng, trainingCases, innerBags)
	}

	maxStates := 1
	for _, combo := range combos {
		// current and best models start expanded to the full combination
		// shape so external lookup is O(1) from the first step
		cur, err := allocateModelTensor(combo, st.vectorLen)
		if err != nil {
			return nil, err
		}
		bst, err := allocateModelTensor(combo, st.vectorLen)
		if err != nil {
			return nil, err
		}
		st.current = append(st.current, cur)
		st.best = append(st.best, bst)
		if combo.tensorStates > maxStates {
			maxStates = combo.tensorStates
		}
	}

	st.overwritePerBag, err = tensor.Allocate(MaxDimensions, st.vectorLen)
	if err != nil {
		return nil, err
	}
	st.accumulated, err = tensor.Allocate(MaxDimensions, st.vectorLen)
	if err != nil {
		return nil, err
	}

	st.resources = newCachedResources(mode, st.vectorLen, maxStates, trainingCases)

	logger.Debug("trainer initialized",
		"features", len(features),
		"combinations", len(combos),
		"trainingCases", trainingCases,
		"validationCases", validationCases,
		"innerBags", len(st.samplingSets),
		"vectorLength", st.vectorLen)
	return st, nil
}

// allocateModelTensor builds one model tensor pre-expanded to the
// combination's full shape.
func allocateModelTensor(combo *Combination, vectorLen int) (*tensor.Segmented, error) {
	t, err := tensor.Allocate(MaxDimensions, vectorLen)
	if err != nil {
		return nil, err
	}
	if err := t.SetDimCount(combo.Dimensions()); err != nil {
		return nil, err
	}
	t.Reset()
	if err := t.Expand(combo.Shape()); err != nil {
		return nil, err
	}
	return t, nil
}

// specCaseCount derives the case count from the targets of the active mode.
func specCaseCount(spec DataSpec, mode learningMode) int {
	if mode == modeRegression {
		return len(spec.Targets)
	}
	return len(spec.ClassTargets)
}
