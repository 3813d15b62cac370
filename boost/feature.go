// Package boost implements the boosting driver for glassboost: an
// explainable additive model trained by cyclic gradient boosting over
// per-feature-combination lookup tensors.
//
// A trainer is built once with InitializeRegression or
// InitializeClassification and then driven step by step: GenerateUpdate fits
// a candidate update tensor for one feature combination over the inner bags,
// ApplyUpdate folds it into the running model and scores the validation set,
// and Step composes the two. The best model by validation metric is tracked
// throughout and read back with GetBestModel.
//
// A single trainer is not safe for concurrent use; drive it from one
// goroutine. Independent trainers may run in parallel.
package boost

import (
	"github.com/ezoic/glassboost/pkg/errors"
)

// MaxDimensions bounds the significant dimensionality of a feature
// combination.
const MaxDimensions = 8

// FeatureKind discriminates ordinal from nominal features.
type FeatureKind int

const (
	// Ordinal features have ordered bins.
	Ordinal FeatureKind = iota
	// Nominal features have unordered categories. Accepted and recorded;
	// the trainer does not treat them differently from ordinal features.
	Nominal
)

// FeatureSpec describes one input feature at the trainer boundary.
type FeatureSpec struct {
	// BinCount is the number of discrete states the feature can take.
	// Features with BinCount <= 1 carry no information and contribute no
	// tensor dimension.
	BinCount int64
	Kind     FeatureKind
	// HasMissing records whether bin 0 stands for a missing value.
	HasMissing bool
}

// feature is the internal, width-checked form.
type feature struct {
	binCount   int
	index      int
	kind       FeatureKind
	hasMissing bool
}

func buildFeatures(specs []FeatureSpec) ([]feature, error) {
	features := make([]feature, len(specs))
	for i, spec := range specs {
		binCount, ok := toHostCount(spec.BinCount)
		if !ok {
			return nil, errors.NewValueError("Initialize", "feature bin count does not fit the host address width")
		}
		if spec.Kind != Ordinal && spec.Kind != Nominal {
			return nil, errors.NewValueError("Initialize", "unknown feature kind")
		}
		features[i] = feature{
			binCount:   binCount,
			index:      i,
			kind:       spec.Kind,
			hasMissing: spec.HasMissing,
		}
	}
	return features, nil
}

// toHostCount converts a boundary int64 count into a host int, reporting
// whether the value is non-negative and representable.
func toHostCount(v int64) (int, bool) {
	if v < 0 {
		return 0, false
	}
	n := int(v)
	if int64(n) != v {
		return 0, false
	}
	return n, true
}
