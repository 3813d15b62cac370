package boost

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ezoic/glassboost/core/tensor"
	"github.com/ezoic/glassboost/metrics"
)

const epsilon = 1e-9

// stubLearner hands back scripted update tensors so the driver's own
// arithmetic can be checked in isolation.
type stubLearner struct {
	// cells holds zero-dimension update cells, used in order one per fit
	// call and cycled once exhausted.
	cells [][]float64
	// divisions/segValues describe the single-dimension update.
	divisions []int
	segValues []float64
	gain      float64
	calls     int
}

func (s *stubLearner) FitZeroDimensional(ctx *FitContext, out *tensor.Segmented) error {
	cell := s.cells[s.calls%len(s.cells)]
	s.calls++
	out.Reset()
	copy(out.MutableValues(), cell)
	return nil
}

func (s *stubLearner) FitSingleDimensional(ctx *FitContext, maxSplits, minParentCases int, out *tensor.Segmented) (float64, error) {
	s.calls++
	out.Reset()
	if err := out.SetDivisions(0, s.divisions); err != nil {
		return 0, err
	}
	if err := out.SetValues(s.segValues); err != nil {
		return 0, err
	}
	return s.gain, nil
}

func (s *stubLearner) FitMultiDimensional(ctx *FitContext, out *tensor.Segmented) error {
	s.calls++
	out.Reset()
	for d, states := range ctx.Combination.Shape() {
		cuts := make([]int, 0, states-1)
		for c := 1; c < states; c++ {
			cuts = append(cuts, c)
		}
		if err := out.SetDivisions(d, cuts); err != nil {
			return err
		}
	}
	return out.SetValues(s.segValues)
}

func scalarParams() Params {
	return Params{
		Features:     nil,
		Combinations: [][]int{{}},
	}
}

// S1: regression, two cases, scalar combination, unbagged.
func TestStepRegressionScalarCombination(t *testing.T) {
	learner := &stubLearner{cells: [][]float64{{4.0}}}
	tr, err := InitializeRegression(scalarParams(),
		DataSpec{Targets: []float64{3.0, 5.0}},
		DataSpec{},
		WithTreeLearner(learner))
	require.NoError(t, err)

	metric, err := tr.Step(0, UpdateOptions{LearningRate: 1.0})
	require.NoError(t, err)
	assert.Equal(t, 0.0, metric, "no validation cases surface metric 0")

	residuals := tr.st.training.residuals
	assert.InDelta(t, -1.0, residuals[0], epsilon)
	assert.InDelta(t, 1.0, residuals[1], epsilon)

	model := tr.GetCurrentModel(0)
	require.Len(t, model, 1)
	assert.InDelta(t, 4.0, model[0], epsilon, "prediction for every case is the single model cell")
}

// S2: binary classification over one two-state feature, validation mirrors
// training.
func TestStepBinarySingleFeature(t *testing.T) {
	learner := &stubLearner{divisions: []int{1}, segValues: []float64{-0.5, 0.5}}
	data := DataSpec{
		Inputs:       []int64{0, 0, 1, 1},
		ClassTargets: []int64{0, 1, 0, 1},
	}
	tr, err := InitializeClassification(Params{
		Features:     []FeatureSpec{{BinCount: 2}},
		Combinations: [][]int{{0}},
	}, 2, data, data, WithTreeLearner(learner))
	require.NoError(t, err)

	metric, err := tr.Step(0, UpdateOptions{LearningRate: 1.0})
	require.NoError(t, err)

	wantScores := []float64{-0.5, -0.5, 0.5, 0.5}
	for i, want := range wantScores {
		assert.InDelta(t, want, tr.st.training.scores[i], epsilon, "training score %d", i)
		assert.InDelta(t, want, tr.st.validation.scores[i], epsilon, "validation score %d", i)
	}

	targets := []int{0, 1, 0, 1}
	for i, want := range wantScores {
		wantResidual := float64(targets[i]) - 1/(1+math.Exp(-want))
		assert.InDelta(t, wantResidual, tr.st.training.residuals[i], epsilon, "residual %d", i)
	}

	wantMetric, err := metrics.BinaryLogLoss(wantScores, targets)
	require.NoError(t, err)
	assert.InDelta(t, wantMetric, metric, epsilon)
}

// S3: multiclass with the identifiability constraint pinning class 1.
func TestStepMulticlassZeroResidualIndex(t *testing.T) {
	learner := &stubLearner{cells: [][]float64{{0.2, 0.5, 0.1}}}
	data := DataSpec{ClassTargets: []int64{1}}
	tr, err := InitializeClassification(scalarParams(), 3, data, DataSpec{},
		WithTreeLearner(learner), WithZeroResidualIndex(1))
	require.NoError(t, err)

	// the constraint holds from initialization onward
	assert.Equal(t, 0.0, tr.st.training.residuals[1])

	_, err = tr.Step(0, UpdateOptions{LearningRate: 1.0})
	require.NoError(t, err)

	scores := tr.st.training.scores
	require.Len(t, scores, 3)
	assert.InDelta(t, 0.2, scores[0], epsilon)
	assert.InDelta(t, 0.5, scores[1], epsilon)
	assert.InDelta(t, 0.1, scores[2], epsilon)

	sumExp := math.Exp(0.2) + math.Exp(0.5) + math.Exp(0.1)
	residuals := tr.st.training.residuals
	assert.InDelta(t, -math.Exp(0.2)/sumExp, residuals[0], epsilon)
	assert.Equal(t, 0.0, residuals[1], "pinned residual stays zero after every update")
	assert.InDelta(t, -math.Exp(0.1)/sumExp, residuals[2], epsilon)
}

// S4 plus properties 6 and 7: the best model tracks the minimum metric and
// is an exact snapshot of the current model at the improving step.
func TestBestModelPromotion(t *testing.T) {
	learner := &stubLearner{cells: [][]float64{{0.0}, {0.2}, {2.0}}}
	tr, err := InitializeRegression(scalarParams(),
		DataSpec{Targets: []float64{1.0}},
		DataSpec{Targets: []float64{1.0}},
		WithTreeLearner(learner))
	require.NoError(t, err)

	var metricSeen []float64
	var bestSeen []float64
	for i := 0; i < 3; i++ {
		metric, err := tr.Step(0, UpdateOptions{LearningRate: 1.0})
		require.NoError(t, err)
		metricSeen = append(metricSeen, metric)
		bestSeen = append(bestSeen, tr.BestMetric())
	}

	assert.InDelta(t, 1.0, metricSeen[0], epsilon)
	assert.InDelta(t, 0.8, metricSeen[1], epsilon)
	assert.InDelta(t, 1.2, metricSeen[2], epsilon)

	// best metric is non-increasing
	for i := 1; i < len(bestSeen); i++ {
		assert.LessOrEqual(t, bestSeen[i], bestSeen[i-1])
	}
	assert.InDelta(t, 0.8, tr.BestMetric(), epsilon)

	// the best model is the snapshot from the end of step 2, not step 3
	best := tr.GetBestModel(0)
	require.Len(t, best, 1)
	assert.InDelta(t, 0.2, best[0], epsilon)
	current := tr.GetCurrentModel(0)
	assert.InDelta(t, 2.2, current[0], epsilon)
}

func TestPromotionCopiesEveryCombination(t *testing.T) {
	learner := &stubLearner{cells: [][]float64{{0.5}}}
	tr, err := InitializeRegression(Params{
		Combinations: [][]int{{}, {}},
	},
		DataSpec{Targets: []float64{2.0}},
		DataSpec{Targets: []float64{2.0}},
		WithTreeLearner(learner))
	require.NoError(t, err)

	_, err = tr.Step(0, UpdateOptions{LearningRate: 1.0})
	require.NoError(t, err)

	for j := 0; j < tr.CombinationCount(); j++ {
		cur := tr.GetCurrentModel(j)
		best := tr.GetBestModel(j)
		require.Len(t, best, len(cur))
		for i := range cur {
			assert.Equal(t, cur[i], best[i], "combination %d cell %d", j, i)
		}
	}
}

// S5: classification with a single class is degenerate but fully operable.
func TestDegenerateClassification(t *testing.T) {
	data := DataSpec{ClassTargets: []int64{0, 0}}
	tr, err := InitializeClassification(scalarParams(), 1, data, data)
	require.NoError(t, err)

	update, gain, err := tr.GenerateUpdate(0, UpdateOptions{LearningRate: 0.1})
	require.NoError(t, err)
	assert.Nil(t, update)
	assert.Equal(t, 0.0, gain)

	metric, err := tr.ApplyUpdate(0, update)
	require.NoError(t, err)
	assert.Equal(t, 0.0, metric)

	metric, err = tr.Step(0, UpdateOptions{LearningRate: 0.1})
	require.NoError(t, err)
	assert.Equal(t, 0.0, metric)

	assert.Nil(t, tr.GetCurrentModel(0))
	assert.Nil(t, tr.GetBestModel(0))
}

// S6: single-state features collapse out of a combination.
func TestDimensionCollapse(t *testing.T) {
	inputsWide := []int64{
		0, 3, 0,
		0, 1, 0,
		0, 0, 0,
		0, 2, 0,
		0, 1, 0,
	}
	targets := []float64{4.0, 1.5, 0.5, 3.0, 1.0}

	wide, err := InitializeRegression(Params{
		Seed:         7,
		Features:     []FeatureSpec{{BinCount: 1}, {BinCount: 4}, {BinCount: 1}},
		Combinations: [][]int{{0, 1, 2}},
	},
		DataSpec{Inputs: inputsWide, Targets: targets},
		DataSpec{Inputs: inputsWide, Targets: targets})
	require.NoError(t, err)

	narrowInputs := []int64{3, 1, 0, 2, 1}
	narrow, err := InitializeRegression(Params{
		Seed:         7,
		Features:     []FeatureSpec{{BinCount: 4}},
		Combinations: [][]int{{0}},
	},
		DataSpec{Inputs: narrowInputs, Targets: targets},
		DataSpec{Inputs: narrowInputs, Targets: targets})
	require.NoError(t, err)

	opt := UpdateOptions{LearningRate: 0.5, MaxTreeSplits: 3}
	metricWide, err := wide.Step(0, opt)
	require.NoError(t, err)
	metricNarrow, err := narrow.Step(0, opt)
	require.NoError(t, err)

	assert.InDelta(t, metricNarrow, metricWide, epsilon)
	modelWide := wide.GetCurrentModel(0)
	modelNarrow := narrow.GetCurrentModel(0)
	require.Equal(t, len(modelNarrow), len(modelWide))
	for i := range modelNarrow {
		assert.InDelta(t, modelNarrow[i], modelWide[i], epsilon, "cell %d", i)
	}
	for i := range narrow.st.training.residuals {
		assert.InDelta(t, narrow.st.training.residuals[i], wide.st.training.residuals[i], epsilon)
	}
}

// Property 8: the applied update scales linearly with the learning rate.
func TestLearningRateLinearity(t *testing.T) {
	learner := &stubLearner{divisions: []int{1}, segValues: []float64{-1.0, 1.0}}
	data := DataSpec{Inputs: []int64{0, 1}, ClassTargets: []int64{0, 1}}
	tr, err := InitializeClassification(Params{
		Features:     []FeatureSpec{{BinCount: 2}},
		Combinations: [][]int{{0}},
	}, 2, data, DataSpec{}, WithTreeLearner(learner))
	require.NoError(t, err)

	update1, _, err := tr.GenerateUpdate(0, UpdateOptions{LearningRate: 0.1})
	require.NoError(t, err)
	small := append([]float64(nil), update1...)

	update2, _, err := tr.GenerateUpdate(0, UpdateOptions{LearningRate: 0.2})
	require.NoError(t, err)
	for i := range update2 {
		assert.InDelta(t, 2*small[i], update2[i], epsilon, "cell %d", i)
	}
}

func TestHalvedBinaryUpdates(t *testing.T) {
	learner := &stubLearner{divisions: []int{1}, segValues: []float64{-1.0, 1.0}}
	data := DataSpec{Inputs: []int64{0, 1}, ClassTargets: []int64{0, 1}}

	build := func(opts ...Option) *Trainer {
		opts = append(opts, WithTreeLearner(learner))
		tr, err := InitializeClassification(Params{
			Features:     []FeatureSpec{{BinCount: 2}},
			Combinations: [][]int{{0}},
		}, 2, data, DataSpec{}, opts...)
		require.NoError(t, err)
		return tr
	}

	plain, _, err := build().GenerateUpdate(0, UpdateOptions{LearningRate: 1.0})
	require.NoError(t, err)
	halved, _, err := build(WithHalvedBinaryUpdates()).GenerateUpdate(0, UpdateOptions{LearningRate: 1.0})
	require.NoError(t, err)
	for i := range plain {
		assert.InDelta(t, plain[i]/2, halved[i], epsilon, "cell %d", i)
	}
}

func TestUpdateAveragedAcrossBags(t *testing.T) {
	learner := &stubLearner{cells: [][]float64{{3.0}}}
	tr, err := InitializeRegression(Params{
		Seed:          11,
		Combinations:  [][]int{{}},
		InnerBagCount: 4,
	},
		DataSpec{Targets: []float64{1, 2, 3}},
		DataSpec{},
		WithTreeLearner(learner))
	require.NoError(t, err)

	update, _, err := tr.GenerateUpdate(0, UpdateOptions{LearningRate: 1.0})
	require.NoError(t, err)
	require.Len(t, update, 1)
	assert.Equal(t, 4, learner.calls, "one fit per inner bag")
	assert.InDelta(t, 3.0, update[0], epsilon, "identical per-bag updates average to themselves")
}

func TestGenerateUpdateRejectsReservedWeights(t *testing.T) {
	learner := &stubLearner{cells: [][]float64{{0.0}}}
	tr, err := InitializeRegression(scalarParams(),
		DataSpec{Targets: []float64{1.0}}, DataSpec{}, WithTreeLearner(learner))
	require.NoError(t, err)

	_, _, err = tr.GenerateUpdate(0, UpdateOptions{
		LearningRate:    0.1,
		TrainingWeights: []float64{1.0},
	})
	require.Error(t, err)
}

func TestGenerateUpdateValidatesArguments(t *testing.T) {
	learner := &stubLearner{cells: [][]float64{{0.0}}}
	tr, err := InitializeRegression(scalarParams(),
		DataSpec{Targets: []float64{1.0}}, DataSpec{}, WithTreeLearner(learner))
	require.NoError(t, err)

	if _, _, err := tr.GenerateUpdate(5, UpdateOptions{LearningRate: 0.1}); err == nil {
		t.Error("expected error for a combination index out of range")
	}
	if _, _, err := tr.GenerateUpdate(0, UpdateOptions{LearningRate: math.NaN()}); err == nil {
		t.Error("expected error for a NaN learning rate")
	}
	if _, _, err := tr.GenerateUpdate(0, UpdateOptions{LearningRate: 0.1, MaxTreeSplits: -1}); err == nil {
		t.Error("expected error for negative split budget")
	}
}

func TestApplyNilUpdateIsNoOp(t *testing.T) {
	learner := &stubLearner{cells: [][]float64{{0.0}}}
	tr, err := InitializeRegression(scalarParams(),
		DataSpec{Targets: []float64{1.0}}, DataSpec{Targets: []float64{1.0}},
		WithTreeLearner(learner))
	require.NoError(t, err)

	metric, err := tr.ApplyUpdate(0, nil)
	require.NoError(t, err)
	assert.Equal(t, 0.0, metric)
	assert.True(t, math.IsInf(tr.BestMetric(), 1), "no-op must not touch the best metric")
}

func TestInitializationRejectsBadInputs(t *testing.T) {
	// negative bin count
	_, err := InitializeRegression(Params{
		Features:     []FeatureSpec{{BinCount: -1}},
		Combinations: [][]int{{0}},
	}, DataSpec{Inputs: []int64{0}, Targets: []float64{1}}, DataSpec{})
	require.Error(t, err)

	// combination referencing a missing feature
	_, err = InitializeRegression(Params{
		Features:     []FeatureSpec{{BinCount: 2}},
		Combinations: [][]int{{3}},
	}, DataSpec{Inputs: []int64{0}, Targets: []float64{1}}, DataSpec{})
	require.Error(t, err)

	// classification target out of range
	_, err = InitializeClassification(Params{
		Features:     []FeatureSpec{{BinCount: 2}},
		Combinations: [][]int{{0}},
	}, 2, DataSpec{Inputs: []int64{0}, ClassTargets: []int64{5}}, DataSpec{})
	require.Error(t, err)

	// too many significant dimensions
	features := make([]FeatureSpec, MaxDimensions+1)
	combo := make([]int, MaxDimensions+1)
	inputs := make([]int64, MaxDimensions+1)
	for i := range features {
		features[i] = FeatureSpec{BinCount: 2}
		combo[i] = i
	}
	_, err = InitializeRegression(Params{
		Features:     features,
		Combinations: [][]int{combo},
	}, DataSpec{Inputs: inputs, Targets: []float64{1}}, DataSpec{})
	require.Error(t, err)
}

// The default learner's gain follows the non-positive convention after bag
// averaging.
func TestGenerateUpdateGainNonPositive(t *testing.T) {
	inputs := []int64{0, 0, 1, 1, 2, 2, 3, 3}
	targets := []float64{0, 0, 1, 1, 4, 4, 9, 9}
	tr, err := InitializeRegression(Params{
		Seed:         3,
		Features:     []FeatureSpec{{BinCount: 4}},
		Combinations: [][]int{{0}},
	},
		DataSpec{Inputs: inputs, Targets: targets},
		DataSpec{})
	require.NoError(t, err)

	_, gain, err := tr.GenerateUpdate(0, UpdateOptions{LearningRate: 0.1, MaxTreeSplits: 3})
	require.NoError(t, err)
	assert.LessOrEqual(t, gain, 1e-9)
	assert.Less(t, gain, 0.0, "a splittable column must report a strict improvement")
}

// Boosting with the default learner drives the training residuals down.
func TestBoostingReducesTrainingLoss(t *testing.T) {
	inputs := []int64{0, 1, 2, 3, 0, 1, 2, 3, 0, 1, 2, 3}
	targets := []float64{1, 2, 3, 4, 1.2, 2.2, 2.8, 4.1, 0.9, 1.8, 3.1, 3.9}
	tr, err := InitializeRegression(Params{
		Seed:         19,
		Features:     []FeatureSpec{{BinCount: 4}},
		Combinations: [][]int{{0}},
	},
		DataSpec{Inputs: inputs, Targets: targets},
		DataSpec{Inputs: inputs, Targets: targets})
	require.NoError(t, err)

	first, err := tr.Step(0, UpdateOptions{LearningRate: 0.5, MaxTreeSplits: 3})
	require.NoError(t, err)
	var last float64
	for i := 0; i < 20; i++ {
		last, err = tr.Step(0, UpdateOptions{LearningRate: 0.5, MaxTreeSplits: 3})
		require.NoError(t, err)
	}
	assert.Less(t, last, first, "repeated steps must reduce the validation RMSE")
	assert.LessOrEqual(t, tr.BestMetric(), last)
}
