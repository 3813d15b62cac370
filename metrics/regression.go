// Package metrics provides evaluation metrics for glassboost models.
//
// The trainer's hot loops accumulate their metrics inline; this package is
// the public counterpart used by callers, examples, and tests:
//
// Regression:
//   - MSE: Mean Squared Error
//   - RMSE: Root Mean Squared Error (the trainer's validation metric)
//
// Classification:
//   - BinaryLogLoss: summed per-case log loss over log-odds scores
//   - MulticlassLogLoss: summed per-case log loss over log-weight scores
//
// Vector inputs use gonum/mat; slice variants exist for buffers coming
// straight out of the trainer.
package metrics

import (
	"math"

	"gonum.org/v1/gonum/mat"

	gberrors "github.com/ezoic/glassboost/pkg/errors"
)

// MSE calculates the Mean Squared Error between true and predicted values.
//
// Returns an error when the vectors are empty or their lengths differ.
func MSE(yTrue, yPred *mat.VecDense) (float64, error) {
	n := yTrue.Len()
	if n == 0 {
		return 0, gberrors.NewValueError("MSE", "empty vector")
	}
	if yPred.Len() != n {
		return 0, gberrors.NewDimensionError("MSE", n, yPred.Len(), 0)
	}

	var sum float64
	for i := 0; i < n; i++ {
		diff := yTrue.AtVec(i) - yPred.AtVec(i)
		sum += diff * diff
	}
	return sum / float64(n), nil
}

// RMSE calculates the Root Mean Squared Error between true and predicted
// values. This is the validation metric the trainer minimizes in regression
// mode.
func RMSE(yTrue, yPred *mat.VecDense) (float64, error) {
	mse, err := MSE(yTrue, yPred)
	if err != nil {
		return 0, err
	}
	return math.Sqrt(mse), nil
}

// RMSEFromResiduals computes sqrt(sum(r^2)/n) from a residual buffer, the
// form the validation sweep produces.
func RMSEFromResiduals(residuals []float64) (float64, error) {
	n := len(residuals)
	if n == 0 {
		return 0, gberrors.NewValueError("RMSEFromResiduals", "empty residuals")
	}
	var sum float64
	for _, r := range residuals {
		sum += r * r
	}
	return math.Sqrt(sum / float64(n)), nil
}
