package stats

import (
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// Scaler standardises each column to zero mean and unit variance using the population
// standard deviation of the data it was fitted on. Constant columns are only centred.
type Scaler struct {
	Mean  []float64
	Scale []float64
}

// Fit computes the column means and standard deviations.
func (s *Scaler) Fit(x mat.Matrix) error {
	rows, cols := x.Dims()
	if rows == 0 || cols == 0 {
		return errors.New("scaler: no data")
	}
	s.Mean = make([]float64, cols)
	s.Scale = make([]float64, cols)
	for j := 0; j < cols; j++ {
		var avg Average
		for i := 0; i < rows; i++ {
			avg.Add(x.At(i, j))
		}
		s.Mean[j] = avg.Mean
		s.Scale[j] = avg.PopStdDev
		if s.Scale[j] < 1e-12 {
			s.Scale[j] = 1
		}
	}
	return nil
}

// Transform returns a standardised copy of x.
func (s *Scaler) Transform(x mat.Matrix) (*mat.Dense, error) {
	rows, cols := x.Dims()
	if cols != len(s.Mean) {
		return nil, errors.Errorf("scaler: fitted on %d features, got %d", len(s.Mean), cols)
	}
	res := mat.NewDense(rows, cols, nil)
	res.Apply(func(i, j int, v float64) float64 {
		return (v - s.Mean[j]) / s.Scale[j]
	}, x)
	return res, nil
}
