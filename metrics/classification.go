package metrics

import (
	"math"

	gberrors "github.com/ezoic/glassboost/pkg/errors"
)

// BinaryLogLoss sums the per-case log loss over log-odds prediction scores:
// log(1 + exp(-score)) for a positive target, log(1 + exp(score)) otherwise.
//
// targets must contain 0 and 1 only; scores and targets must have equal
// length.
func BinaryLogLoss(scores []float64, targets []int) (float64, error) {
	if len(scores) == 0 {
		return 0, gberrors.NewValueError("BinaryLogLoss", "empty scores")
	}
	if len(scores) != len(targets) {
		return 0, gberrors.NewDimensionError("BinaryLogLoss", len(targets), len(scores), 0)
	}

	var sum float64
	for i, score := range scores {
		switch targets[i] {
		case 1:
			sum += math.Log1p(math.Exp(-score))
		case 0:
			sum += math.Log1p(math.Exp(score))
		default:
			return 0, gberrors.NewValueError("BinaryLogLoss", "targets must be 0 or 1")
		}
	}
	return sum, nil
}

// MulticlassLogLoss sums the per-case log loss over unnormalized log-weight
// scores laid out case-major: scores[case*classCount+k]. Per case the loss is
// log(sum_k exp(score_k)) - score_target.
func MulticlassLogLoss(scores []float64, targets []int, classCount int) (float64, error) {
	if classCount < 2 {
		return 0, gberrors.NewValueError("MulticlassLogLoss", "classCount must be at least 2")
	}
	if len(scores) != len(targets)*classCount {
		return 0, gberrors.NewDimensionError("MulticlassLogLoss", len(targets)*classCount, len(scores), 0)
	}

	var sum float64
	for i, target := range targets {
		if target < 0 || target >= classCount {
			return 0, gberrors.NewValueError("MulticlassLogLoss", "target out of class range")
		}
		row := scores[i*classCount : (i+1)*classCount]
		var sumExp float64
		for _, s := range row {
			sumExp += math.Exp(s)
		}
		sum += math.Log(sumExp) - row[target]
	}
	return sum, nil
}
