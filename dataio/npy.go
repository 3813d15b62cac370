// Package dataio bridges numpy files into trainer inputs: feature matrices
// of bin indexes and target vectors.
package dataio

import (
	"math"
	"os"

	"github.com/sbinet/npyio"
	"gonum.org/v1/gonum/mat"

	"github.com/ezoic/glassboost/boost"
	"github.com/ezoic/glassboost/pkg/errors"
)

// ReadMatrix reads a 2-D .npy file into a dense matrix.
func ReadMatrix(path string) (*mat.Dense, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "dataio: open matrix")
	}
	defer f.Close()

	r, err := npyio.NewReader(f)
	if err != nil {
		return nil, errors.Wrap(err, "dataio: read npy header")
	}
	m := &mat.Dense{}
	if err := r.Read(m); err != nil {
		return nil, errors.Wrap(err, "dataio: read npy matrix")
	}
	return m, nil
}

// ReadVector reads a 1-D .npy file (or a single-column matrix) into a slice.
func ReadVector(path string) ([]float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "dataio: open vector")
	}
	defer f.Close()

	r, err := npyio.NewReader(f)
	if err != nil {
		return nil, errors.Wrap(err, "dataio: read npy header")
	}
	var data []float64
	if err := r.Read(&data); err != nil {
		return nil, errors.Wrap(err, "dataio: read npy vector")
	}
	return data, nil
}

// ToBinInputs converts a matrix of discretized features into row-major
// trainer inputs plus the feature specs implied by the observed bins. Every
// entry must be a non-negative integer.
func ToBinInputs(m *mat.Dense) ([]int64, []boost.FeatureSpec, error) {
	rows, cols := m.Dims()
	inputs := make([]int64, 0, rows*cols)
	maxBin := make([]int64, cols)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			v := m.At(i, j)
			if v < 0 || v != math.Trunc(v) {
				return nil, nil, errors.NewValueError("ToBinInputs", "inputs must hold non-negative integer bin indexes")
			}
			b := int64(v)
			if b > maxBin[j] {
				maxBin[j] = b
			}
			inputs = append(inputs, b)
		}
	}
	features := make([]boost.FeatureSpec, cols)
	for j := range features {
		features[j] = boost.FeatureSpec{BinCount: maxBin[j] + 1}
	}
	return inputs, features, nil
}
